// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package assetreg

import (
	"encoding/binary"
	"testing"
)

// TestEmptyRegistryRoundTrip covers spec scenario 1: a registry with no
// names, tags, assets, dependencies or packages round-trips through
// EncodeBinary/NewBytes byte-for-byte.
func TestEmptyRegistryRoundTrip(t *testing.T) {
	reg := &Registry{
		Header: Header{Guid: GUID{0x11111111, 0x22222222, 0x33333333, 0x44444444}, Version: LatestVersion},
		Pool:   NewNamePool(),
		Tags:   NewTagStore(),
		opts:   (&Options{}).normalize(),
	}

	data, err := reg.EncodeBinary()
	if err != nil {
		t.Fatalf("EncodeBinary: %v", err)
	}

	got, err := NewBytes(data, nil)
	if err != nil {
		t.Fatalf("NewBytes: %v", err)
	}
	if got.Header != reg.Header {
		t.Errorf("Header = %+v, want %+v", got.Header, reg.Header)
	}
	if got.Pool.Len() != 0 {
		t.Errorf("Pool.Len() = %d, want 0", got.Pool.Len())
	}
	if len(got.Assets) != 0 || len(got.Dependencies) != 0 || len(got.Packages) != 0 {
		t.Errorf("expected every section empty, got assets=%d deps=%d pkgs=%d",
			len(got.Assets), len(got.Dependencies), len(got.Packages))
	}

	again, err := got.EncodeBinary()
	if err != nil {
		t.Fatalf("re-EncodeBinary: %v", err)
	}
	if string(again) != string(data) {
		t.Errorf("re-encode does not match original bytes")
	}
}

// TestEmptyRegistryMatchesLiteralByteSequence builds spec scenario 1's
// field sequence by hand, one primitive call per documented field, and
// checks EncodeBinary produces exactly those bytes. FilterEditorOnly is
// written with Bool32 (4 bytes), not a single byte: the general
// primitive contract (every bool is 4 bytes) overrides the scenario
// prose's "one zero byte", the same kind of distillation slip already
// resolved for the tag-store count (DESIGN.md).
func TestEmptyRegistryMatchesLiteralByteSequence(t *testing.T) {
	w := NewWriter(binary.LittleEndian)
	w.GUIDValue(GUID{0, 0, 0, 0})
	w.U32(uint32(LatestVersion))
	w.Bool32(false)

	// Name batch: num_strings=0, num_string_bytes=0, hash_version.
	w.U32(0)
	w.U32(0)
	w.U64(NameBatchHashVersion)

	// Tag store: start marker, eleven zero counts, inner text-section
	// size, end marker.
	w.U32(tagStoreStartMarkerNew)
	for i := 0; i < 11; i++ {
		w.U32(0)
	}
	w.U32(0)
	w.U32(tagStoreEndMarker)

	// Assets: count 0.
	w.I32(0)
	// Dependencies: back-patched size (just the i32 count = 4 bytes), count 0.
	w.I64(4)
	w.I32(0)
	// Packages: count 0.
	w.I32(0)

	want := w.Bytes()

	reg := &Registry{
		Header: Header{Guid: GUID{0, 0, 0, 0}, Version: LatestVersion, FilterEditorOnly: false},
		Pool:   NewNamePool(),
		Tags:   NewTagStore(),
		opts:   (&Options{}).normalize(),
	}
	reg.Tags.TextFirst = true

	got, err := reg.EncodeBinary()
	if err != nil {
		t.Fatalf("EncodeBinary: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("byte sequence mismatch:\n got  % x\n want % x", got, want)
	}

	roundTripped, err := NewBytes(got, nil)
	if err != nil {
		t.Fatalf("NewBytes: %v", err)
	}
	if roundTripped.Header != reg.Header {
		t.Errorf("Header = %+v, want %+v", roundTripped.Header, reg.Header)
	}
}

func TestRegistryRoundTripWithAllSections(t *testing.T) {
	pool := NewNamePool()
	tags := NewTagStore()

	pkgPath := pool.Intern("/Game/Foo")
	pkgName := pool.Intern("/Game/Foo")
	assetName := pool.Intern("Foo")
	classPath := TopLevelAssetPath{Package: pool.Intern("/Script/Engine"), Asset: pool.Intern("Blueprint")}

	tagVal := tags.InsertAnsiString("hello")
	handle, err := tags.RegisterPairs([]Pair{{Key: pool.Intern("Category"), Value: tagVal}}, false)
	if err != nil {
		t.Fatalf("RegisterPairs: %v", err)
	}

	asset := &AssetData{
		PackagePath:    pkgPath,
		AssetClassPath: &classPath,
		PackageName:    pkgName,
		AssetName:      assetName,
		Tags:           handle,
		PackageFlags:   0x20,
	}

	depPkg := pool.Intern("/Game/Bar")
	dep := &Dependency{
		Identifier: AssetIdentifier{Flags: assetIDFlagPackage, Package: &depPkg},
		Package:    DependencyList{Nodes: []int32{0}, Flags: make([]byte, flagBlobWords(5, 1)*4)},
	}

	// WritePackages requires every field present at LatestVersion.
	pkgKey := pool.Intern("/Game/Foo")
	cookedHash := [16]byte{1}
	ue5 := int32(1000)
	pkg := &PackageData{
		Key:           pkgKey,
		DiskSize:      4096,
		Guid:          GUID{9, 8, 7, 6},
		CookedHash:    &cookedHash,
		UE5Version:    &ue5,
		ExtensionPath: &StoredIdentifier{Text: ".uasset"},
	}

	reg := &Registry{
		Header:       Header{Guid: GUID{1, 2, 3, 4}, Version: LatestVersion, FilterEditorOnly: true},
		Pool:         pool,
		Tags:         tags,
		Assets:       []*AssetData{asset},
		Dependencies: []*Dependency{dep},
		Packages:     []*PackageData{pkg},
		opts:         (&Options{}).normalize(),
	}

	data, err := reg.EncodeBinary()
	if err != nil {
		t.Fatalf("EncodeBinary: %v", err)
	}
	got, err := NewBytes(data, nil)
	if err != nil {
		t.Fatalf("NewBytes: %v", err)
	}

	if len(got.Assets) != 1 {
		t.Fatalf("got %d assets, want 1", len(got.Assets))
	}
	// FilterEditorOnly is true, so OptionalOuterPath must not have been
	// written or read back regardless of version.
	if got.Assets[0].OptionalOuterPath != nil {
		t.Errorf("OptionalOuterPath present despite FilterEditorOnly=true")
	}
	gotName, err := got.Pool.Resolve(got.Assets[0].AssetName)
	if err != nil || gotName != "Foo" {
		t.Errorf("AssetName = %q, %v, want Foo", gotName, err)
	}

	if len(got.Dependencies) != 1 || got.Dependencies[0].Identifier.Package == nil {
		t.Fatalf("dependency round trip failed: %+v", got.Dependencies)
	}
	depName, err := got.Pool.Resolve(*got.Dependencies[0].Identifier.Package)
	if err != nil || depName != "/Game/Bar" {
		t.Errorf("dependency package = %q, %v, want /Game/Bar", depName, err)
	}

	if len(got.Packages) != 1 || got.Packages[0].Guid != pkg.Guid {
		t.Fatalf("package round trip failed: %+v", got.Packages)
	}
}

func TestDecodeBinaryRejectsTrailingBytes(t *testing.T) {
	reg := &Registry{
		Header: Header{Guid: GUID{1, 1, 1, 1}, Version: LatestVersion},
		Pool:   NewNamePool(),
		Tags:   NewTagStore(),
		opts:   (&Options{}).normalize(),
	}
	data, err := reg.EncodeBinary()
	if err != nil {
		t.Fatalf("EncodeBinary: %v", err)
	}
	data = append(data, 0xFF)

	if _, err := NewBytes(data, nil); err != ErrTrailingBytes {
		t.Errorf("expected ErrTrailingBytes, got %v", err)
	}
}

func TestDecodeBinaryRejectsUnsupportedVersion(t *testing.T) {
	reg := &Registry{
		Header: Header{Guid: GUID{1, 1, 1, 1}, Version: PreVersioning},
		Pool:   NewNamePool(),
		Tags:   NewTagStore(),
		opts:   (&Options{}).normalize(),
	}
	data, err := reg.EncodeBinary()
	if err != nil {
		t.Fatalf("EncodeBinary: %v", err)
	}
	if _, err := NewBytes(data, nil); err != ErrUnsupportedVersion {
		t.Errorf("expected ErrUnsupportedVersion, got %v", err)
	}
}
