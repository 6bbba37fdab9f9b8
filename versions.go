// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package assetreg

// RegistryVersion is the monotonic milestone enum that gates field presence
// across the record codec. The ordering mirrors the engine's own
// FAssetRegistryVersion::Type, not a renumbering of our own invention.
type RegistryVersion uint32

// Named milestones, in the order the engine introduced them. Every
// milestone up to AssetPackageDataHasExtension is named, including those
// no codec branch consults, so each constant's value matches its position.
const (
	PreVersioning RegistryVersion = iota
	HardSoftDependencies
	AddAssetRegistryState
	ChangedAssetData
	RemovedMD5Hash
	AddedHardManage
	AddedCookedMD5Hash
	AddedDependencyFlags
	FixedTags
	WorkspaceDomain
	PackageImportedClasses
	PackageFileSummaryVersionChange
	ObjectResourceOptionalVersioning
	AddedChunkHashes
	ClassPaths
	RemoveAssetPathFnames
	AddedHeader
	AssetPackageDataHasExtension
	versionPlusOne
	LatestVersion = versionPlusOne - 1
)

// PackageFieldDescriptor names one version-gated field of a package record
// so the codec can drive both read and write from one table instead of
// scattering version checks.
type PackageFieldDescriptor struct {
	Name       string
	MinVersion RegistryVersion
}

// PackageFieldSchema lists every version-gated package record field in wire
// order, paired with the minimum version at which it is present. §4.5.
var PackageFieldSchema = []PackageFieldDescriptor{
	{"Key", PreVersioning},
	{"DiskSize", PreVersioning},
	{"Guid", PreVersioning},
	{"CookedHash", AddedCookedMD5Hash},
	{"ChunkHashes", AddedChunkHashes},
	{"UE4Version", WorkspaceDomain},
	{"UE5Version", PackageFileSummaryVersionChange},
	{"VersionLicensee", WorkspaceDomain},
	{"Flags", WorkspaceDomain},
	{"CustomVersions", WorkspaceDomain},
	{"ImportedClasses", PackageImportedClasses},
	{"ExtensionPath", AssetPackageDataHasExtension},
}

// Present reports whether the field is on the wire for the given version.
func (d PackageFieldDescriptor) Present(v RegistryVersion) bool {
	return v >= d.MinVersion
}
