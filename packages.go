// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package assetreg

// ChunkHash pairs a 12-byte chunk key with its 20-byte content hash (§4.5).
type ChunkHash struct {
	Key  [12]byte
	Hash [20]byte
}

// CustomVersion pairs a system GUID with the version number recorded
// against it at cook time (§4.5).
type CustomVersion struct {
	Guid    GUID
	Version int32
}

// PackageData is one package summary record. Every field beyond Key,
// DiskSize and Guid is a pointer/nil-slice so presence exactly mirrors
// what PackageFieldSchema says was on the wire for the version it was
// decoded at (§3, §4.5).
type PackageData struct {
	Key             Name
	DiskSize        int64
	Guid            GUID
	CookedHash      *[16]byte
	ChunkHashes     []ChunkHash
	UE4Version      int32
	UE5Version      *int32
	VersionLicensee int32
	Flags           int32
	CustomVersions  []CustomVersion
	ImportedClasses []Name
	ExtensionPath   *StoredIdentifier
}

// ReadPackages decodes the package section: an i32 count followed by that
// many records, each gated field-by-field by PackageFieldSchema (§4.5,
// §9's version-indexed descriptor design).
func ReadPackages(r *Reader, idc *IdentifierCodec, v RegistryVersion) ([]*PackageData, error) {
	count, err := r.I32()
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, ErrUnexpectedEOF
	}
	pkgs := make([]*PackageData, 0, count)
	for i := int32(0); i < count; i++ {
		p, err := readOnePackage(r, idc, v)
		if err != nil {
			return nil, err
		}
		pkgs = append(pkgs, p)
	}
	return pkgs, nil
}

func fieldPresent(v RegistryVersion, name string) bool {
	for _, d := range PackageFieldSchema {
		if d.Name == name {
			return d.Present(v)
		}
	}
	return false
}

func readOnePackage(r *Reader, idc *IdentifierCodec, v RegistryVersion) (*PackageData, error) {
	p := &PackageData{}

	key, err := idc.ReadName(r)
	if err != nil {
		return nil, err
	}
	p.Key = key

	if p.DiskSize, err = r.I64(); err != nil {
		return nil, err
	}
	if p.Guid, err = r.GUIDValue(); err != nil {
		return nil, err
	}

	if fieldPresent(v, "CookedHash") {
		raw, err := r.Bytes(16)
		if err != nil {
			return nil, err
		}
		var h [16]byte
		copy(h[:], raw)
		p.CookedHash = &h
	}

	if fieldPresent(v, "ChunkHashes") {
		n, err := r.I32()
		if err != nil {
			return nil, err
		}
		for i := int32(0); i < n; i++ {
			keyRaw, err := r.Bytes(12)
			if err != nil {
				return nil, err
			}
			hashRaw, err := r.Bytes(20)
			if err != nil {
				return nil, err
			}
			var ch ChunkHash
			copy(ch.Key[:], keyRaw)
			copy(ch.Hash[:], hashRaw)
			p.ChunkHashes = append(p.ChunkHashes, ch)
		}
	}

	if fieldPresent(v, "UE4Version") {
		if p.UE4Version, err = r.I32(); err != nil {
			return nil, err
		}
		if fieldPresent(v, "UE5Version") {
			ver, err := r.I32()
			if err != nil {
				return nil, err
			}
			p.UE5Version = &ver
		}
		if p.VersionLicensee, err = r.I32(); err != nil {
			return nil, err
		}
		if p.Flags, err = r.I32(); err != nil {
			return nil, err
		}
		n, err := r.I32()
		if err != nil {
			return nil, err
		}
		for i := int32(0); i < n; i++ {
			g, err := r.GUIDValue()
			if err != nil {
				return nil, err
			}
			ver, err := r.I32()
			if err != nil {
				return nil, err
			}
			p.CustomVersions = append(p.CustomVersions, CustomVersion{Guid: g, Version: ver})
		}
	}

	if fieldPresent(v, "ImportedClasses") {
		n, err := r.I32()
		if err != nil {
			return nil, err
		}
		for i := int32(0); i < n; i++ {
			n, err := idc.ReadName(r)
			if err != nil {
				return nil, err
			}
			p.ImportedClasses = append(p.ImportedClasses, n)
		}
	}

	if fieldPresent(v, "ExtensionPath") {
		text, wide, err := r.FString()
		if err != nil {
			return nil, err
		}
		p.ExtensionPath = &StoredIdentifier{Text: text, IsWide: wide}
	}

	return p, nil
}

// WritePackages encodes pkgs, the exact inverse of ReadPackages — the
// source's write side was a TODO stub; this implements it per §9's
// directive to mirror the read side field-for-field.
func WritePackages(w *Writer, idc *IdentifierCodec, v RegistryVersion, pkgs []*PackageData) error {
	w.I32(int32(len(pkgs)))
	for _, p := range pkgs {
		if err := writeOnePackage(w, idc, v, p); err != nil {
			return err
		}
	}
	return nil
}

func writeOnePackage(w *Writer, idc *IdentifierCodec, v RegistryVersion, p *PackageData) error {
	if err := idc.WriteName(w, p.Key); err != nil {
		return err
	}
	w.I64(p.DiskSize)
	w.GUIDValue(p.Guid)

	if fieldPresent(v, "CookedHash") {
		if p.CookedHash == nil {
			return ErrMalformedFName
		}
		w.WriteBytes(p.CookedHash[:])
	}

	if fieldPresent(v, "ChunkHashes") {
		w.I32(int32(len(p.ChunkHashes)))
		for _, ch := range p.ChunkHashes {
			w.WriteBytes(ch.Key[:])
			w.WriteBytes(ch.Hash[:])
		}
	}

	if fieldPresent(v, "UE4Version") {
		w.I32(p.UE4Version)
		if fieldPresent(v, "UE5Version") {
			if p.UE5Version == nil {
				return ErrMalformedFName
			}
			w.I32(*p.UE5Version)
		}
		w.I32(p.VersionLicensee)
		w.I32(p.Flags)
		w.I32(int32(len(p.CustomVersions)))
		for _, cv := range p.CustomVersions {
			w.GUIDValue(cv.Guid)
			w.I32(cv.Version)
		}
	}

	if fieldPresent(v, "ImportedClasses") {
		w.I32(int32(len(p.ImportedClasses)))
		for _, n := range p.ImportedClasses {
			if err := idc.WriteName(w, n); err != nil {
				return err
			}
		}
	}

	if fieldPresent(v, "ExtensionPath") {
		if p.ExtensionPath == nil {
			return ErrMalformedFName
		}
		if err := w.FString(p.ExtensionPath.Text, p.ExtensionPath.IsWide); err != nil {
			return err
		}
	}

	return nil
}
