// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package assetreg

import (
	"encoding/binary"
	"testing"
)

func newAssetRegistryCodec(t *testing.T) *IdentifierCodec {
	t.Helper()
	idc, err := NewIdentifierCodec(ArchiveTypeAssetRegistry)
	if err != nil {
		t.Fatalf("NewIdentifierCodec: %v", err)
	}
	return idc
}

func TestNameWireRoundTripWithAndWithoutSuffix(t *testing.T) {
	idc := newAssetRegistryCodec(t)
	cases := []Name{
		{Index: 0, Number: 0},
		{Index: 42, Number: 0},
		{Index: 7, Number: 3},
		{Index: 0x7FFFFFFF, Number: 1},
	}
	for _, n := range cases {
		w := NewWriter(binary.LittleEndian)
		if err := idc.WriteName(w, n); err != nil {
			t.Fatalf("WriteName(%v): %v", n, err)
		}
		r := NewReader(w.Bytes(), binary.LittleEndian)
		got, err := idc.ReadName(r)
		if err != nil {
			t.Fatalf("ReadName: %v", err)
		}
		if got != n {
			t.Errorf("round trip %v got %v", n, got)
		}
	}
}

func TestExportPathWireOrder(t *testing.T) {
	pool := NewNamePool()
	idc := newAssetRegistryCodec(t)
	e := ExportPath{
		ClassPath:   TopLevelAssetPath{Package: pool.Intern("/Game/Foo"), Asset: pool.Intern("Foo_C")},
		PackageName: pool.Intern("/Game/Bar"),
		ObjectName:  pool.Intern("Inst1"),
	}

	w := NewWriter(binary.LittleEndian)
	if err := idc.WriteExportPath(w, e); err != nil {
		t.Fatalf("WriteExportPath: %v", err)
	}

	// Wire order is class_path, object_name, package_name (§4.5
	// resolution) — read the raw fields back in that order to confirm.
	r := NewReader(w.Bytes(), binary.LittleEndian)
	classPath, err := idc.ReadTopLevelAssetPath(r)
	if err != nil {
		t.Fatalf("ReadTopLevelAssetPath: %v", err)
	}
	if classPath != e.ClassPath {
		t.Errorf("class path = %v, want %v", classPath, e.ClassPath)
	}
	objectName, err := idc.ReadName(r)
	if err != nil {
		t.Fatalf("ReadName (object): %v", err)
	}
	if objectName != e.ObjectName {
		t.Errorf("wire object name = %v, want %v (wire order should be object before package)", objectName, e.ObjectName)
	}
	packageName, err := idc.ReadName(r)
	if err != nil {
		t.Fatalf("ReadName (package): %v", err)
	}
	if packageName != e.PackageName {
		t.Errorf("wire package name = %v, want %v", packageName, e.PackageName)
	}

	// And the logical round trip through ReadExportPath reassembles the
	// §3 field order correctly.
	r2 := NewReader(w.Bytes(), binary.LittleEndian)
	got, err := idc.ReadExportPath(r2)
	if err != nil {
		t.Fatalf("ReadExportPath: %v", err)
	}
	if got != e {
		t.Errorf("ReadExportPath = %v, want %v", got, e)
	}
}

// TestSoftObjectPathRoundTrip covers spec scenario 5: /Game/Foo.Foo_C::Inst1
// decomposes into a top-level asset path plus an uninterned sub-path.
func TestSoftObjectPathRoundTrip(t *testing.T) {
	pool := NewNamePool()
	idc := newAssetRegistryCodec(t)
	p := SoftObjectPath{
		AssetPath: TopLevelAssetPath{Package: pool.Intern("/Game/Foo"), Asset: pool.Intern("Foo_C")},
		SubPath:   StoredIdentifier{Text: "Inst1", IsWide: false},
	}

	w := NewWriter(binary.LittleEndian)
	if err := idc.WriteSoftObjectPath(w, p); err != nil {
		t.Fatalf("WriteSoftObjectPath: %v", err)
	}
	r := NewReader(w.Bytes(), binary.LittleEndian)
	got, err := idc.ReadSoftObjectPath(r)
	if err != nil {
		t.Fatalf("ReadSoftObjectPath: %v", err)
	}
	if got != p {
		t.Errorf("round trip = %v, want %v", got, p)
	}

	text, err := formatSoftObjectPath(pool, got)
	if err != nil {
		t.Fatalf("formatSoftObjectPath: %v", err)
	}
	if text != "/Game/Foo.Foo_C::Inst1" {
		t.Errorf("formatted = %q, want /Game/Foo.Foo_C::Inst1", text)
	}

	reparsed, err := parseSoftObjectPath(pool, text)
	if err != nil {
		t.Fatalf("parseSoftObjectPath: %v", err)
	}
	if reparsed != p {
		t.Errorf("reparsed = %v, want %v", reparsed, p)
	}
}

func TestAssetIdentifierFlagGating(t *testing.T) {
	idc := newAssetRegistryCodec(t)
	pkg := Name{Index: 1}
	obj := Name{Index: 3}
	ai := AssetIdentifier{Flags: assetIDFlagPackage | assetIDFlagObject, Package: &pkg, Object: &obj}

	w := NewWriter(binary.LittleEndian)
	if err := idc.WriteAssetIdentifier(w, ai); err != nil {
		t.Fatalf("WriteAssetIdentifier: %v", err)
	}
	r := NewReader(w.Bytes(), binary.LittleEndian)
	got, err := idc.ReadAssetIdentifier(r)
	if err != nil {
		t.Fatalf("ReadAssetIdentifier: %v", err)
	}
	if got.Type != nil || got.Value != nil {
		t.Errorf("expected Type and Value unset, got %v, %v", got.Type, got.Value)
	}
	if got.Package == nil || *got.Package != pkg {
		t.Errorf("Package = %v, want %v", got.Package, pkg)
	}
	if got.Object == nil || *got.Object != obj {
		t.Errorf("Object = %v, want %v", got.Object, obj)
	}
}

func TestTableArchiveDialectUnimplemented(t *testing.T) {
	idc, err := NewIdentifierCodec(ArchiveTypeTableArchive)
	if err != nil {
		t.Fatalf("NewIdentifierCodec: %v", err)
	}
	if _, err := idc.ReadName(NewReader(nil, binary.LittleEndian)); err != ErrLegacyTableArchive {
		t.Errorf("expected ErrLegacyTableArchive, got %v", err)
	}
}
