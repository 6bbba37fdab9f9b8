// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package assetreg

// dependencyListBitsPerFlag gives the per-entry flag-blob width, in bits,
// for each of the four node-index lists a dependency record carries, in
// wire order (§4.5).
var dependencyListBitsPerFlag = [4]uint32{
	5, // package
	0, // name
	1, // manage
	0, // referencer
}

// flagBlobWords is the §9-pinned interpretation of the source's ambiguous
// sizing formula: ceil(bitsPerFlag*count/32) 32-bit words, emitted as
// words*4 bytes.
func flagBlobWords(bitsPerFlag uint32, count int) uint32 {
	totalBits := bitsPerFlag * uint32(count)
	return (totalBits + 31) / 32
}

// DependencyList is one of a dependency record's four (node indices, flag
// blob) pairs.
type DependencyList struct {
	Nodes []int32
	Flags []byte
}

// Dependency is one dependency record: an identifier plus the package,
// name, manage and referencer node-index lists (§3, §4.5).
type Dependency struct {
	Identifier AssetIdentifier
	Package    DependencyList
	NameList   DependencyList
	Manage     DependencyList
	Referencer DependencyList
}

func (d *Dependency) lists() [4]*DependencyList {
	return [4]*DependencyList{&d.Package, &d.NameList, &d.Manage, &d.Referencer}
}

func readDependencyList(r *Reader, bitsPerFlag uint32) (DependencyList, error) {
	count, err := r.I32()
	if err != nil {
		return DependencyList{}, err
	}
	if count < 0 {
		return DependencyList{}, ErrUnexpectedEOF
	}
	nodes := make([]int32, count)
	for i := range nodes {
		if nodes[i], err = r.I32(); err != nil {
			return DependencyList{}, err
		}
	}
	blobBytes := flagBlobWords(bitsPerFlag, int(count)) * 4
	flags, err := r.Bytes(blobBytes)
	if err != nil {
		return DependencyList{}, err
	}
	return DependencyList{Nodes: nodes, Flags: append([]byte(nil), flags...)}, nil
}

func writeDependencyList(w *Writer, bitsPerFlag uint32, l DependencyList) {
	w.I32(int32(len(l.Nodes)))
	for _, n := range l.Nodes {
		w.I32(n)
	}
	blobBytes := flagBlobWords(bitsPerFlag, len(l.Nodes)) * 4
	flags := l.Flags
	if uint32(len(flags)) != blobBytes {
		flags = make([]byte, blobBytes)
		copy(flags, l.Flags)
	}
	w.WriteBytes(flags)
}

// ReadDependencies decodes the dependency section: a back-patched i64 byte
// size, an i32 record count, then that many records (§4.5).
func ReadDependencies(r *Reader, idc *IdentifierCodec) ([]*Dependency, error) {
	declared, err := r.I64()
	if err != nil {
		return nil, err
	}
	start := r.Pos()

	count, err := r.I32()
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, ErrUnexpectedEOF
	}

	deps := make([]*Dependency, 0, count)
	for i := int32(0); i < count; i++ {
		d := &Dependency{}
		ident, err := idc.ReadAssetIdentifier(r)
		if err != nil {
			return nil, err
		}
		d.Identifier = ident

		lists := d.lists()
		for j, l := range lists {
			dl, err := readDependencyList(r, dependencyListBitsPerFlag[j])
			if err != nil {
				return nil, err
			}
			*l = dl
		}
		deps = append(deps, d)
	}

	if int64(r.Pos()-start) != declared {
		return nil, ErrTrailingBytes
	}
	return deps, nil
}

// WriteDependencies encodes deps, back-patching the section's i64 byte
// size once every record has been emitted.
func WriteDependencies(w *Writer, idc *IdentifierCodec, deps []*Dependency) error {
	sizeOff := w.ReserveI64()
	start := w.Pos()

	w.I32(int32(len(deps)))
	for _, d := range deps {
		if err := idc.WriteAssetIdentifier(w, d.Identifier); err != nil {
			return err
		}
		lists := d.lists()
		for j, l := range lists {
			writeDependencyList(w, dependencyListBitsPerFlag[j], *l)
		}
	}

	w.PatchI64(sizeOff, int64(w.Pos()-start))
	return nil
}
