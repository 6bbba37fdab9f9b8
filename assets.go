// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package assetreg

import "sort"

// Bundle is a named group of soft object paths attached to an asset (§3).
type Bundle struct {
	Name  Name
	Paths []SoftObjectPath
}

// AssetData is one asset record (§3, §4.5). Optional fields are nil when
// absent at the version a given Registry was decoded at.
type AssetData struct {
	OldObjectPath     *Name
	PackagePath       Name
	AssetClassName    *Name
	AssetClassPath    *TopLevelAssetPath
	PackageName       Name
	AssetName         Name
	OptionalOuterPath *Name
	Tags              TagMapHandle
	Bundles           []Bundle
	ChunkIDs          []int32
	PackageFlags      uint32
}

// sortKey computes the lexical path key §4.5 orders asset records by,
// resolving Names through pool since the key is string-valued.
func (a *AssetData) sortKey(pool *NamePool) (string, error) {
	if a.OptionalOuterPath != nil {
		outer, err := pool.Resolve(*a.OptionalOuterPath)
		if err != nil {
			return "", err
		}
		assetName, err := pool.Resolve(a.AssetName)
		if err != nil {
			return "", err
		}
		sep := "."
		for _, r := range outer {
			if r == '.' {
				sep = ":"
				break
			}
		}
		return outer + sep + assetName, nil
	}
	pkgName, err := pool.Resolve(a.PackageName)
	if err != nil {
		return "", err
	}
	assetName, err := pool.Resolve(a.AssetName)
	if err != nil {
		return "", err
	}
	return pkgName + "." + assetName, nil
}

// ReadAssetData decodes the asset section: an i32 count followed by that
// many records in the field layout §4.5 pins for v (the version in force
// for the enclosing Registry). OptionalOuterPath is read only when v is at
// least RemoveAssetPathFnames and filterEditorOnly is false (§3, §4.5).
func ReadAssetData(r *Reader, idc *IdentifierCodec, v RegistryVersion, filterEditorOnly bool) ([]*AssetData, error) {
	count, err := r.I32()
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, ErrTooManyAssets
	}
	assets := make([]*AssetData, 0, count)
	for i := int32(0); i < count; i++ {
		a, err := readOneAsset(r, idc, v, filterEditorOnly)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, nil
}

func readOneAsset(r *Reader, idc *IdentifierCodec, v RegistryVersion, filterEditorOnly bool) (*AssetData, error) {
	a := &AssetData{}

	if v < RemoveAssetPathFnames {
		n, err := idc.ReadName(r)
		if err != nil {
			return nil, err
		}
		a.OldObjectPath = &n
	}

	pkgPath, err := idc.ReadName(r)
	if err != nil {
		return nil, err
	}
	a.PackagePath = pkgPath

	if v >= ClassPaths {
		p, err := idc.ReadTopLevelAssetPath(r)
		if err != nil {
			return nil, err
		}
		a.AssetClassPath = &p
	} else {
		n, err := idc.ReadName(r)
		if err != nil {
			return nil, err
		}
		a.AssetClassName = &n
	}

	pkgName, err := idc.ReadName(r)
	if err != nil {
		return nil, err
	}
	a.PackageName = pkgName

	assetName, err := idc.ReadName(r)
	if err != nil {
		return nil, err
	}
	a.AssetName = assetName

	if v >= RemoveAssetPathFnames && !filterEditorOnly {
		n, err := idc.ReadName(r)
		if err != nil {
			return nil, err
		}
		a.OptionalOuterPath = &n
	}

	tags, err := r.TagMapHandleValue()
	if err != nil {
		return nil, err
	}
	a.Tags = tags

	bundleCount, err := r.I32()
	if err != nil {
		return nil, err
	}
	for i := int32(0); i < bundleCount; i++ {
		name, err := idc.ReadName(r)
		if err != nil {
			return nil, err
		}
		pathCount, err := r.I32()
		if err != nil {
			return nil, err
		}
		paths := make([]SoftObjectPath, 0, pathCount)
		for j := int32(0); j < pathCount; j++ {
			p, err := idc.ReadSoftObjectPath(r)
			if err != nil {
				return nil, err
			}
			paths = append(paths, p)
		}
		a.Bundles = append(a.Bundles, Bundle{Name: name, Paths: paths})
	}

	chunkCount, err := r.I32()
	if err != nil {
		return nil, err
	}
	a.ChunkIDs = make([]int32, chunkCount)
	for i := range a.ChunkIDs {
		if a.ChunkIDs[i], err = r.I32(); err != nil {
			return nil, err
		}
	}

	if a.PackageFlags, err = r.U32(); err != nil {
		return nil, err
	}

	return a, nil
}

// WriteAssetData encodes assets sorted by §4.5's lexical path key (ingest
// order is not preserved on the wire). OptionalOuterPath is written only
// when v is at least RemoveAssetPathFnames and filterEditorOnly is false.
func WriteAssetData(w *Writer, idc *IdentifierCodec, v RegistryVersion, filterEditorOnly bool, pool *NamePool, assets []*AssetData) error {
	ordered := make([]*AssetData, len(assets))
	copy(ordered, assets)
	keys := make(map[*AssetData]string, len(ordered))
	for _, a := range ordered {
		k, err := a.sortKey(pool)
		if err != nil {
			return err
		}
		keys[a] = k
	}
	sort.Slice(ordered, func(i, j int) bool { return keys[ordered[i]] < keys[ordered[j]] })

	w.I32(int32(len(ordered)))
	for _, a := range ordered {
		if err := writeOneAsset(w, idc, v, filterEditorOnly, a); err != nil {
			return err
		}
	}
	return nil
}

func writeOneAsset(w *Writer, idc *IdentifierCodec, v RegistryVersion, filterEditorOnly bool, a *AssetData) error {
	if v < RemoveAssetPathFnames {
		if a.OldObjectPath == nil {
			return ErrMalformedFName
		}
		if err := idc.WriteName(w, *a.OldObjectPath); err != nil {
			return err
		}
	}

	if err := idc.WriteName(w, a.PackagePath); err != nil {
		return err
	}

	if v >= ClassPaths {
		if a.AssetClassPath == nil {
			return ErrMalformedFName
		}
		if err := idc.WriteTopLevelAssetPath(w, *a.AssetClassPath); err != nil {
			return err
		}
	} else {
		if a.AssetClassName == nil {
			return ErrMalformedFName
		}
		if err := idc.WriteName(w, *a.AssetClassName); err != nil {
			return err
		}
	}

	if err := idc.WriteName(w, a.PackageName); err != nil {
		return err
	}
	if err := idc.WriteName(w, a.AssetName); err != nil {
		return err
	}

	if v >= RemoveAssetPathFnames && !filterEditorOnly {
		if a.OptionalOuterPath == nil {
			return ErrMalformedFName
		}
		if err := idc.WriteName(w, *a.OptionalOuterPath); err != nil {
			return err
		}
	}

	w.TagMapHandleValue(a.Tags)

	w.I32(int32(len(a.Bundles)))
	for _, b := range a.Bundles {
		if err := idc.WriteName(w, b.Name); err != nil {
			return err
		}
		w.I32(int32(len(b.Paths)))
		for _, p := range b.Paths {
			if err := idc.WriteSoftObjectPath(w, p); err != nil {
				return err
			}
		}
	}

	w.I32(int32(len(a.ChunkIDs)))
	for _, c := range a.ChunkIDs {
		w.I32(c)
	}

	w.U32(a.PackageFlags)
	return nil
}
