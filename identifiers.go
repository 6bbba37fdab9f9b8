// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package assetreg

// ArchiveType selects the Name wire dialect for a decode/encode operation
// (§4.8). Values mirror the engine's own reader-type enum rather than an
// arbitrary renumbering.
type ArchiveType uint32

const (
	ArchiveTypeTableArchive  ArchiveType = 1
	ArchiveTypeAssetRegistry ArchiveType = 2
)

// TopLevelAssetPath is "package.asset" (§3).
type TopLevelAssetPath struct {
	Package Name
	Asset   Name
}

// ExportPath is a class plus the object/package pair it was exported
// from. The logical field order here matches §3; the wire order (class
// path, object name, package name) is handled in IdentifierCodec and
// must not be inferred from this struct's field order.
type ExportPath struct {
	ClassPath   TopLevelAssetPath
	PackageName Name
	ObjectName  Name
}

// SoftObjectPath is a top-level asset path plus an arbitrary, uninterned
// instance sub-path (§3).
type SoftObjectPath struct {
	AssetPath TopLevelAssetPath
	SubPath   StoredIdentifier
}

// AssetIdentifier carries a subset of {package, type, object, value},
// selected by Flags bits 0-3 respectively (§3).
type AssetIdentifier struct {
	Flags   uint8
	Package *Name
	Type    *Name
	Object  *Name
	Value   *Name
}

const (
	assetIDFlagPackage = 1 << 0
	assetIDFlagType    = 1 << 1
	assetIDFlagObject  = 1 << 2
	assetIDFlagValue   = 1 << 3
)

// nameDialect is the closed set of variants §9 asks for: a Name read/write
// strategy selected once per decode, not re-branched at every call site.
type nameDialect interface {
	ReadName(r *Reader) (Name, error)
	WriteName(w *Writer, n Name) error
}

// assetRegistryDialect implements the modern Name wire shape: a u32 index
// whose high bit signals a trailing u32 numeric suffix (§4.8).
type assetRegistryDialect struct{}

func (assetRegistryDialect) ReadName(r *Reader) (Name, error) {
	raw, err := r.U32()
	if err != nil {
		return Name{}, err
	}
	hasNumber := raw&0x80000000 != 0
	idx := raw &^ 0x80000000
	var number uint32
	if hasNumber {
		if number, err = r.U32(); err != nil {
			return Name{}, err
		}
	}
	return Name{Index: idx, Number: number}, nil
}

func (assetRegistryDialect) WriteName(w *Writer, n Name) error {
	idx := n.Index
	if idx&0x80000000 != 0 {
		return ErrMalformedFName
	}
	if n.Number != 0 {
		idx |= 0x80000000
	}
	w.U32(idx)
	if n.Number != 0 {
		w.U32(n.Number)
	}
	return nil
}

// tableArchiveDialect is the legacy dialect. Its Name shape (a pair of
// hashes plus an inline 2048-byte buffer recorded into a file-scoped name
// table) is left unimplemented, matching the stub in the source this was
// distilled from (§9: "read_fname returns (0, 0); treat as unimplemented").
type tableArchiveDialect struct{}

func (tableArchiveDialect) ReadName(r *Reader) (Name, error) {
	return Name{}, ErrLegacyTableArchive
}

func (tableArchiveDialect) WriteName(w *Writer, n Name) error {
	return ErrLegacyTableArchive
}

// IdentifierCodec reads and writes every name-dependent shape (§3) for a
// single archive type, keeping the dialect choice in one place instead of
// testing the archive type at every call site.
type IdentifierCodec struct {
	dialect nameDialect
}

// NewIdentifierCodec selects the dialect for archiveType.
func NewIdentifierCodec(archiveType ArchiveType) (*IdentifierCodec, error) {
	switch archiveType {
	case ArchiveTypeAssetRegistry:
		return &IdentifierCodec{dialect: assetRegistryDialect{}}, nil
	case ArchiveTypeTableArchive:
		return &IdentifierCodec{dialect: tableArchiveDialect{}}, nil
	default:
		return nil, ErrUnsupportedVersion
	}
}

// ReadName reads a single Name in the codec's dialect.
func (c *IdentifierCodec) ReadName(r *Reader) (Name, error) { return c.dialect.ReadName(r) }

// WriteName writes a single Name in the codec's dialect.
func (c *IdentifierCodec) WriteName(w *Writer, n Name) error { return c.dialect.WriteName(w, n) }

// ReadTopLevelAssetPath reads {package, asset}.
func (c *IdentifierCodec) ReadTopLevelAssetPath(r *Reader) (TopLevelAssetPath, error) {
	pkg, err := c.ReadName(r)
	if err != nil {
		return TopLevelAssetPath{}, err
	}
	asset, err := c.ReadName(r)
	if err != nil {
		return TopLevelAssetPath{}, err
	}
	return TopLevelAssetPath{Package: pkg, Asset: asset}, nil
}

// WriteTopLevelAssetPath writes {package, asset}.
func (c *IdentifierCodec) WriteTopLevelAssetPath(w *Writer, p TopLevelAssetPath) error {
	if err := c.WriteName(w, p.Package); err != nil {
		return err
	}
	return c.WriteName(w, p.Asset)
}

// ReadExportPath reads the wire order class_path, object_name,
// package_name and assembles it into the §3 logical field order.
func (c *IdentifierCodec) ReadExportPath(r *Reader) (ExportPath, error) {
	classPath, err := c.ReadTopLevelAssetPath(r)
	if err != nil {
		return ExportPath{}, err
	}
	objectName, err := c.ReadName(r)
	if err != nil {
		return ExportPath{}, err
	}
	packageName, err := c.ReadName(r)
	if err != nil {
		return ExportPath{}, err
	}
	return ExportPath{ClassPath: classPath, PackageName: packageName, ObjectName: objectName}, nil
}

// WriteExportPath writes class_path, object_name, package_name in that
// wire order.
func (c *IdentifierCodec) WriteExportPath(w *Writer, e ExportPath) error {
	if err := c.WriteTopLevelAssetPath(w, e.ClassPath); err != nil {
		return err
	}
	if err := c.WriteName(w, e.ObjectName); err != nil {
		return err
	}
	return c.WriteName(w, e.PackageName)
}

// ReadSoftObjectPath reads {asset_path, sub_path}. sub_path is the generic
// FString primitive (signed i32 count, NUL-terminated payload), not the
// name-batch's StoredIdentifier shape.
func (c *IdentifierCodec) ReadSoftObjectPath(r *Reader) (SoftObjectPath, error) {
	assetPath, err := c.ReadTopLevelAssetPath(r)
	if err != nil {
		return SoftObjectPath{}, err
	}
	text, wide, err := r.FString()
	if err != nil {
		return SoftObjectPath{}, err
	}
	return SoftObjectPath{AssetPath: assetPath, SubPath: StoredIdentifier{Text: text, IsWide: wide}}, nil
}

// WriteSoftObjectPath writes {asset_path, sub_path}.
func (c *IdentifierCodec) WriteSoftObjectPath(w *Writer, p SoftObjectPath) error {
	if err := c.WriteTopLevelAssetPath(w, p.AssetPath); err != nil {
		return err
	}
	return w.FString(p.SubPath.Text, p.SubPath.IsWide)
}

// ReadAssetIdentifier reads {flags, package?, type?, object?, value?}.
func (c *IdentifierCodec) ReadAssetIdentifier(r *Reader) (AssetIdentifier, error) {
	flags, err := r.U8()
	if err != nil {
		return AssetIdentifier{}, err
	}
	ai := AssetIdentifier{Flags: flags}
	if flags&assetIDFlagPackage != 0 {
		n, err := c.ReadName(r)
		if err != nil {
			return AssetIdentifier{}, err
		}
		ai.Package = &n
	}
	if flags&assetIDFlagType != 0 {
		n, err := c.ReadName(r)
		if err != nil {
			return AssetIdentifier{}, err
		}
		ai.Type = &n
	}
	if flags&assetIDFlagObject != 0 {
		n, err := c.ReadName(r)
		if err != nil {
			return AssetIdentifier{}, err
		}
		ai.Object = &n
	}
	if flags&assetIDFlagValue != 0 {
		n, err := c.ReadName(r)
		if err != nil {
			return AssetIdentifier{}, err
		}
		ai.Value = &n
	}
	return ai, nil
}

// WriteAssetIdentifier writes {flags, package?, type?, object?, value?}.
func (c *IdentifierCodec) WriteAssetIdentifier(w *Writer, ai AssetIdentifier) error {
	w.U8(ai.Flags)
	for _, n := range []*Name{ai.Package, ai.Type, ai.Object, ai.Value} {
		if n == nil {
			continue
		}
		if err := c.WriteName(w, *n); err != nil {
			return err
		}
	}
	return nil
}

