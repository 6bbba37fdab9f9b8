// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package assetreg

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Document is the top-level textual (editable) projection of a Registry
// (§4.7, §6): a lossless object/array view that re-interns names and
// re-deduplicates tag values on ingress.
type Document struct {
	Header DocHeader `json:"Header"`
	State  DocState  `json:"State"`
}

// DocHeader mirrors Header in document form.
type DocHeader struct {
	VersionGUID      [4]uint32 `json:"VersionGUID"`
	VersionNumber    uint32    `json:"VersionNumber"`
	FilterEditorOnly bool      `json:"FilterEditorOnly"`
}

// DocState carries the three record sections plus the options needed to
// re-encode byte-faithfully.
type DocState struct {
	Assets       []DocAsset      `json:"Assets"`
	Dependencies []DocDependency `json:"Dependencies"`
	Packages     []DocPackage    `json:"Packages"`
	Options      DocOptions      `json:"Options"`
}

// DocOptions records the one binary-encoding knob the textual form must
// round-trip (§4.7, §6).
type DocOptions struct {
	TextTagsFirst bool `json:"TextTagsFirst"`
}

// DocBundle mirrors Bundle in document form.
type DocBundle struct {
	BundleName string   `json:"BundleName"`
	AssetPaths []string `json:"AssetPaths"`
}

// DocAsset mirrors AssetData in document form, with every Name resolved
// to its display string and every tag value formatted with its type
// marker (§4.7, §6).
type DocAsset struct {
	PackageName       string            `json:"PackageName"`
	PackagePath       string            `json:"PackagePath"`
	AssetName         string            `json:"AssetName"`
	AssetClass        string            `json:"AssetClass"`
	HasNumberlessTags bool              `json:"HasNumberlessTags"`
	TagsAndValues     map[string]string `json:"TagsAndValues"`
	Bundles           []DocBundle       `json:"Bundles,omitempty"`
	PackageFlags      uint32            `json:"PackageFlags"`
	ChunkIds          []int32           `json:"ChunkIds,omitempty"`
	OldObjectPath     string            `json:"OldObjectPath,omitempty"`
	OptionalOuterPath string            `json:"OptionalOuterPath,omitempty"`
}

// DocDependency mirrors Dependency in document form: identifier fields
// resolved to strings, node-index lists hex-formatted, flag blobs kept as
// raw hex (§6).
type DocDependency struct {
	Package *string `json:"Package,omitempty"`
	Type    *string `json:"Type,omitempty"`
	Object  *string `json:"Object,omitempty"`
	Value   *string `json:"Value,omitempty"`

	PackageDependencies       []string `json:"PackageDependencies"`
	PackageDependencyFlags    string   `json:"PackageDependencyFlags"`
	NameDependencies          []string `json:"NameDependencies"`
	NameDependencyFlags       string   `json:"NameDependencyFlags"`
	ManageDependencies        []string `json:"ManageDependencies"`
	ManageDependencyFlags     string   `json:"ManageDependencyFlags"`
	ReferencerDependencies    []string `json:"ReferencerDependencies"`
	ReferencerDependencyFlags string   `json:"ReferencerDependencyFlags"`
}

// DocChunkHash mirrors ChunkHash in document form.
type DocChunkHash struct {
	Key  string `json:"Key"`
	Hash string `json:"Hash"`
}

// DocCustomVersion mirrors CustomVersion in document form. Guid is the
// canonical uuid.UUID string form (§3 FULL: GUID representation).
type DocCustomVersion struct {
	Guid    string `json:"Guid"`
	Version int32  `json:"Version"`
}

// DocPackage mirrors PackageData in document form; fields absent at the
// source version stay unset (§6). Guid is the canonical uuid.UUID string
// form (§3 FULL); unlike the header's VersionGUID, which stays a 4-tuple
// of u32 matching the source's literal JSON shape.
type DocPackage struct {
	Key             string             `json:"Key"`
	DiskSize        int64              `json:"DiskSize"`
	Guid            string             `json:"Guid"`
	CookedHash      string             `json:"CookedHash,omitempty"`
	ChunkHashes     []DocChunkHash     `json:"ChunkHashes,omitempty"`
	UE4Version      *int32             `json:"UE4Version,omitempty"`
	UE5Version      *int32             `json:"UE5Version,omitempty"`
	VersionLicensee *int32             `json:"VersionLicensee,omitempty"`
	Flags           *int32             `json:"Flags,omitempty"`
	CustomVersions  []DocCustomVersion `json:"CustomVersions,omitempty"`
	ImportedClasses []string           `json:"ImportedClasses,omitempty"`
	ExtensionPath   string             `json:"ExtensionPath,omitempty"`
}

var tagValuePattern = regexp.MustCompile(`(?s)^([A-Z_]+)\((.*)\)$`)

func formatTopLevelAssetPath(pool *NamePool, p TopLevelAssetPath) (string, error) {
	pkg, err := pool.Resolve(p.Package)
	if err != nil {
		return "", err
	}
	asset, err := pool.Resolve(p.Asset)
	if err != nil {
		return "", err
	}
	return pkg + "." + asset, nil
}

func formatExportPath(pool *NamePool, e ExportPath) (string, error) {
	cls, err := formatTopLevelAssetPath(pool, e.ClassPath)
	if err != nil {
		return "", err
	}
	pkgName, err := pool.Resolve(e.PackageName)
	if err != nil {
		return "", err
	}
	objName, err := pool.Resolve(e.ObjectName)
	if err != nil {
		return "", err
	}
	return cls + "'" + pkgName + "." + objName + "'", nil
}

func formatSoftObjectPath(pool *NamePool, p SoftObjectPath) (string, error) {
	top, err := formatTopLevelAssetPath(pool, p.AssetPath)
	if err != nil {
		return "", err
	}
	return top + "::" + p.SubPath.Text, nil
}

func parseTopLevelAssetPath(pool *NamePool, s string) (TopLevelAssetPath, error) {
	idx := strings.LastIndex(s, ".")
	if idx < 0 {
		return TopLevelAssetPath{}, ErrMalformedExportPath
	}
	return TopLevelAssetPath{Package: pool.Intern(s[:idx]), Asset: pool.Intern(s[idx+1:])}, nil
}

func parseExportPath(pool *NamePool, s string) (ExportPath, error) {
	i := strings.Index(s, "'")
	if i < 0 || !strings.HasSuffix(s, "'") {
		return ExportPath{}, ErrMalformedExportPath
	}
	classPath, err := parseTopLevelAssetPath(pool, s[:i])
	if err != nil {
		return ExportPath{}, err
	}
	inner := s[i+1 : len(s)-1]
	j := strings.LastIndex(inner, ".")
	if j < 0 {
		return ExportPath{}, ErrMalformedExportPath
	}
	return ExportPath{
		ClassPath:   classPath,
		PackageName: pool.Intern(inner[:j]),
		ObjectName:  pool.Intern(inner[j+1:]),
	}, nil
}

func parseSoftObjectPath(pool *NamePool, s string) (SoftObjectPath, error) {
	i := strings.Index(s, "::")
	if i < 0 {
		return SoftObjectPath{}, ErrMalformedExportPath
	}
	assetPath, err := parseTopLevelAssetPath(pool, s[:i])
	if err != nil {
		return SoftObjectPath{}, err
	}
	sub := s[i+2:]
	return SoftObjectPath{AssetPath: assetPath, SubPath: StoredIdentifier{Text: sub, IsWide: !isASCII(sub)}}, nil
}

// formatTagValue renders a single tag value as "<MARKER>(<value>)" (§4.7).
func formatTagValue(pool *NamePool, tags *TagStore, id ValueID) (string, error) {
	val, err := tags.Lookup(id)
	if err != nil {
		return "", err
	}
	switch id.Type {
	case ValueAnsiString:
		return fmt.Sprintf("ANSI(%s)", val.(string)), nil
	case ValueWideString:
		return fmt.Sprintf("WIDE(%s)", val.(string)), nil
	case ValueLocalizedText:
		return fmt.Sprintf("TEXT(%s)", val.(string)), nil
	case ValueNumberlessName:
		s, err := pool.Resolve(val.(Name))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("NAME__NO_NUM(%s)", s), nil
	case ValueName:
		s, err := pool.Resolve(val.(Name))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("NAME(%s)", s), nil
	case ValueNumberlessExportPath:
		s, err := formatExportPath(pool, val.(ExportPath))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("PATH__NO_NUM(%s)", s), nil
	case ValueExportPath:
		s, err := formatExportPath(pool, val.(ExportPath))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("PATH(%s)", s), nil
	default:
		return "", ErrMalformedTagValue
	}
}

// parseTagValue is the inverse of formatTagValue: it re-interns names and
// re-inserts the value through tags, producing a fresh ValueId (§4.7).
func parseTagValue(pool *NamePool, tags *TagStore, raw string) (ValueID, error) {
	m := tagValuePattern.FindStringSubmatch(raw)
	if m == nil {
		return ValueID{}, ErrUnrecognizedTagMarker
	}
	marker, val := m[1], m[2]
	switch marker {
	case "ANSI":
		return tags.InsertAnsiString(val), nil
	case "WIDE":
		return tags.InsertWideString(val), nil
	case "TEXT":
		return tags.InsertLocalizedText(val), nil
	case "NAME":
		return tags.InsertName(pool.Intern(val)), nil
	case "NAME__NO_NUM":
		return tags.InsertNumberlessName(pool.Intern(val)), nil
	case "PATH":
		e, err := parseExportPath(pool, val)
		if err != nil {
			return ValueID{}, err
		}
		return tags.InsertExportPath(e), nil
	case "PATH__NO_NUM":
		e, err := parseExportPath(pool, val)
		if err != nil {
			return ValueID{}, err
		}
		return tags.InsertNumberlessExportPath(e), nil
	default:
		return ValueID{}, ErrUnrecognizedTagMarker
	}
}

func hexIndices(nodes []int32) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = fmt.Sprintf("0x%X", uint32(n))
	}
	return out
}

func parseHexIndices(vals []string) ([]int32, error) {
	out := make([]int32, len(vals))
	for i, v := range vals {
		v = strings.TrimPrefix(v, "0x")
		var n uint32
		if _, err := fmt.Sscanf(v, "%X", &n); err != nil {
			return nil, err
		}
		out[i] = int32(n)
	}
	return out, nil
}

// EncodeTextual projects reg into its lossless textual document (§4.7).
func EncodeTextual(reg *Registry) (*Document, error) {
	doc := &Document{
		Header: DocHeader{
			VersionGUID:      [4]uint32(reg.Header.Guid),
			VersionNumber:    uint32(reg.Header.Version),
			FilterEditorOnly: reg.Header.FilterEditorOnly,
		},
		State: DocState{
			Options: DocOptions{TextTagsFirst: reg.Tags.TextFirst},
		},
	}

	for _, a := range reg.Assets {
		da, err := encodeAsset(reg, a)
		if err != nil {
			return nil, err
		}
		doc.State.Assets = append(doc.State.Assets, *da)
	}
	for _, d := range reg.Dependencies {
		dd, err := encodeDependency(reg.Pool, d)
		if err != nil {
			return nil, err
		}
		doc.State.Dependencies = append(doc.State.Dependencies, *dd)
	}
	for _, p := range reg.Packages {
		doc.State.Packages = append(doc.State.Packages, encodePackage(reg.Pool, p))
	}
	return doc, nil
}

func encodeAsset(reg *Registry, a *AssetData) (*DocAsset, error) {
	pool := reg.Pool
	da := &DocAsset{
		HasNumberlessTags: a.Tags.HasNumberlessKeys,
		PackageFlags:      a.PackageFlags,
		ChunkIds:          a.ChunkIDs,
	}
	var err error
	if da.PackageName, err = pool.Resolve(a.PackageName); err != nil {
		return nil, err
	}
	if da.PackagePath, err = pool.Resolve(a.PackagePath); err != nil {
		return nil, err
	}
	if da.AssetName, err = pool.Resolve(a.AssetName); err != nil {
		return nil, err
	}
	switch {
	case a.AssetClassPath != nil:
		if da.AssetClass, err = formatTopLevelAssetPath(pool, *a.AssetClassPath); err != nil {
			return nil, err
		}
	case a.AssetClassName != nil:
		if da.AssetClass, err = pool.Resolve(*a.AssetClassName); err != nil {
			return nil, err
		}
	}
	if a.OldObjectPath != nil {
		if da.OldObjectPath, err = pool.Resolve(*a.OldObjectPath); err != nil {
			return nil, err
		}
	}
	if a.OptionalOuterPath != nil {
		if da.OptionalOuterPath, err = pool.Resolve(*a.OptionalOuterPath); err != nil {
			return nil, err
		}
	}

	pairs, err := reg.Tags.ResolvePairs(a.Tags)
	if err != nil {
		return nil, err
	}
	da.TagsAndValues = make(map[string]string, len(pairs))
	for _, p := range pairs {
		tagName, err := pool.Resolve(p.Key)
		if err != nil {
			return nil, err
		}
		val, err := formatTagValue(pool, reg.Tags, p.Value)
		if err != nil {
			return nil, err
		}
		da.TagsAndValues[tagName] = val
	}

	for _, b := range a.Bundles {
		name, err := pool.Resolve(b.Name)
		if err != nil {
			return nil, err
		}
		paths := make([]string, len(b.Paths))
		for i, p := range b.Paths {
			if paths[i], err = formatSoftObjectPath(pool, p); err != nil {
				return nil, err
			}
		}
		da.Bundles = append(da.Bundles, DocBundle{BundleName: name, AssetPaths: paths})
	}
	return da, nil
}

func encodeDependency(pool *NamePool, d *Dependency) (*DocDependency, error) {
	dd := &DocDependency{
		PackageDependencies:       hexIndices(d.Package.Nodes),
		PackageDependencyFlags:    hex.EncodeToString(d.Package.Flags),
		NameDependencies:          hexIndices(d.NameList.Nodes),
		NameDependencyFlags:       hex.EncodeToString(d.NameList.Flags),
		ManageDependencies:        hexIndices(d.Manage.Nodes),
		ManageDependencyFlags:     hex.EncodeToString(d.Manage.Flags),
		ReferencerDependencies:    hexIndices(d.Referencer.Nodes),
		ReferencerDependencyFlags: hex.EncodeToString(d.Referencer.Flags),
	}
	resolve := func(n *Name) (*string, error) {
		if n == nil {
			return nil, nil
		}
		s, err := pool.Resolve(*n)
		if err != nil {
			return nil, err
		}
		return &s, nil
	}
	var err error
	if dd.Package, err = resolve(d.Identifier.Package); err != nil {
		return nil, err
	}
	if dd.Type, err = resolve(d.Identifier.Type); err != nil {
		return nil, err
	}
	if dd.Object, err = resolve(d.Identifier.Object); err != nil {
		return nil, err
	}
	if dd.Value, err = resolve(d.Identifier.Value); err != nil {
		return nil, err
	}
	return dd, nil
}

func encodePackage(pool *NamePool, p *PackageData) DocPackage {
	dp := DocPackage{DiskSize: p.DiskSize, Guid: p.Guid.UUID().String()}
	if key, err := pool.Resolve(p.Key); err == nil {
		dp.Key = key
	}
	if p.CookedHash != nil {
		dp.CookedHash = hex.EncodeToString(p.CookedHash[:])
	}
	for _, ch := range p.ChunkHashes {
		dp.ChunkHashes = append(dp.ChunkHashes, DocChunkHash{
			Key:  hex.EncodeToString(ch.Key[:]),
			Hash: hex.EncodeToString(ch.Hash[:]),
		})
	}
	if p.UE4Version != 0 || p.VersionLicensee != 0 || p.Flags != 0 || p.CustomVersions != nil {
		v := p.UE4Version
		dp.UE4Version = &v
		vl := p.VersionLicensee
		dp.VersionLicensee = &vl
		fl := p.Flags
		dp.Flags = &fl
	}
	if p.UE5Version != nil {
		dp.UE5Version = p.UE5Version
	}
	for _, cv := range p.CustomVersions {
		dp.CustomVersions = append(dp.CustomVersions, DocCustomVersion{Guid: cv.Guid.UUID().String(), Version: cv.Version})
	}
	for _, n := range p.ImportedClasses {
		if s, err := pool.Resolve(n); err == nil {
			dp.ImportedClasses = append(dp.ImportedClasses, s)
		}
	}
	if p.ExtensionPath != nil {
		dp.ExtensionPath = p.ExtensionPath.Text
	}
	return dp
}

// DecodeTextual rebuilds a Registry from doc, re-interning names and
// re-deduplicating tag values (§4.7). The result always targets
// LatestVersion: cross-version textual ingestion is out of scope (§1).
func DecodeTextual(doc *Document, opts *Options) (*Registry, error) {
	o := opts.normalize()
	reg := &Registry{
		opts: o,
		log:  o.Logger.Sugar(),
		Header: Header{
			Guid:             GUID(doc.Header.VersionGUID),
			Version:          LatestVersion,
			FilterEditorOnly: doc.Header.FilterEditorOnly,
		},
	}
	pool := NewNamePool()
	tags := NewTagStore()
	tags.TextFirst = doc.State.Options.TextTagsFirst
	reg.Pool = pool
	reg.Tags = tags

	for _, da := range doc.State.Assets {
		a, err := decodeAsset(reg, &da)
		if err != nil {
			return nil, err
		}
		reg.Assets = append(reg.Assets, a)
	}
	for _, dd := range doc.State.Dependencies {
		d, err := decodeDependency(pool, &dd)
		if err != nil {
			return nil, err
		}
		reg.Dependencies = append(reg.Dependencies, d)
	}
	for _, dp := range doc.State.Packages {
		reg.Packages = append(reg.Packages, decodePackage(pool, &dp))
	}
	return reg, nil
}

func decodeAsset(reg *Registry, da *DocAsset) (*AssetData, error) {
	pool := reg.Pool
	a := &AssetData{
		PackagePath:  pool.Intern(da.PackagePath),
		PackageName:  pool.Intern(da.PackageName),
		AssetName:    pool.Intern(da.AssetName),
		PackageFlags: da.PackageFlags,
		ChunkIDs:     da.ChunkIds,
	}
	if parsed, err := parseTopLevelAssetPath(pool, da.AssetClass); err == nil {
		a.AssetClassPath = &parsed
	} else {
		n := pool.Intern(da.AssetClass)
		a.AssetClassName = &n
	}

	if !reg.Header.FilterEditorOnly && da.OptionalOuterPath != "" {
		n := pool.Intern(da.OptionalOuterPath)
		a.OptionalOuterPath = &n
	}

	var pairs []Pair
	for tagName, rawVal := range da.TagsAndValues {
		key := pool.Intern(tagName)
		val, err := parseTagValue(pool, reg.Tags, rawVal)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, Pair{Key: key, Value: val})
	}
	handle, err := reg.Tags.RegisterPairs(pairs, da.HasNumberlessTags)
	if err != nil {
		return nil, err
	}
	a.Tags = handle

	for _, b := range da.Bundles {
		paths := make([]SoftObjectPath, len(b.AssetPaths))
		for i, s := range b.AssetPaths {
			p, err := parseSoftObjectPath(pool, s)
			if err != nil {
				return nil, err
			}
			paths[i] = p
		}
		a.Bundles = append(a.Bundles, Bundle{Name: pool.Intern(b.BundleName), Paths: paths})
	}
	return a, nil
}

func decodeDependency(pool *NamePool, dd *DocDependency) (*Dependency, error) {
	d := &Dependency{}
	intern := func(s *string) *Name {
		if s == nil {
			return nil
		}
		n := pool.Intern(*s)
		return &n
	}
	d.Identifier.Package = intern(dd.Package)
	d.Identifier.Type = intern(dd.Type)
	d.Identifier.Object = intern(dd.Object)
	d.Identifier.Value = intern(dd.Value)
	if d.Identifier.Package != nil {
		d.Identifier.Flags |= assetIDFlagPackage
	}
	if d.Identifier.Type != nil {
		d.Identifier.Flags |= assetIDFlagType
	}
	if d.Identifier.Object != nil {
		d.Identifier.Flags |= assetIDFlagObject
	}
	if d.Identifier.Value != nil {
		d.Identifier.Flags |= assetIDFlagValue
	}

	var err error
	if d.Package.Nodes, err = parseHexIndices(dd.PackageDependencies); err != nil {
		return nil, err
	}
	if d.Package.Flags, err = hex.DecodeString(dd.PackageDependencyFlags); err != nil {
		return nil, err
	}
	if d.NameList.Nodes, err = parseHexIndices(dd.NameDependencies); err != nil {
		return nil, err
	}
	if d.NameList.Flags, err = hex.DecodeString(dd.NameDependencyFlags); err != nil {
		return nil, err
	}
	if d.Manage.Nodes, err = parseHexIndices(dd.ManageDependencies); err != nil {
		return nil, err
	}
	if d.Manage.Flags, err = hex.DecodeString(dd.ManageDependencyFlags); err != nil {
		return nil, err
	}
	if d.Referencer.Nodes, err = parseHexIndices(dd.ReferencerDependencies); err != nil {
		return nil, err
	}
	if d.Referencer.Flags, err = hex.DecodeString(dd.ReferencerDependencyFlags); err != nil {
		return nil, err
	}
	return d, nil
}

func decodePackage(pool *NamePool, dp *DocPackage) *PackageData {
	p := &PackageData{
		Key:      pool.Intern(dp.Key),
		DiskSize: dp.DiskSize,
	}
	if u, err := uuid.Parse(dp.Guid); err == nil {
		p.Guid = GUIDFromUUID(u)
	}
	if dp.CookedHash != "" {
		if raw, err := hex.DecodeString(dp.CookedHash); err == nil {
			var h [16]byte
			copy(h[:], raw)
			p.CookedHash = &h
		}
	}
	for _, ch := range dp.ChunkHashes {
		var c ChunkHash
		if raw, err := hex.DecodeString(ch.Key); err == nil {
			copy(c.Key[:], raw)
		}
		if raw, err := hex.DecodeString(ch.Hash); err == nil {
			copy(c.Hash[:], raw)
		}
		p.ChunkHashes = append(p.ChunkHashes, c)
	}
	if dp.UE4Version != nil {
		p.UE4Version = *dp.UE4Version
	}
	if dp.UE5Version != nil {
		p.UE5Version = dp.UE5Version
	}
	if dp.VersionLicensee != nil {
		p.VersionLicensee = *dp.VersionLicensee
	}
	if dp.Flags != nil {
		p.Flags = *dp.Flags
	}
	for _, cv := range dp.CustomVersions {
		var g GUID
		if u, err := uuid.Parse(cv.Guid); err == nil {
			g = GUIDFromUUID(u)
		}
		p.CustomVersions = append(p.CustomVersions, CustomVersion{Guid: g, Version: cv.Version})
	}
	for _, n := range dp.ImportedClasses {
		p.ImportedClasses = append(p.ImportedClasses, pool.Intern(n))
	}
	if dp.ExtensionPath != "" {
		p.ExtensionPath = &StoredIdentifier{Text: dp.ExtensionPath, IsWide: !isASCII(dp.ExtensionPath)}
	}
	return p
}
