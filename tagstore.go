// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package assetreg

import (
	"fmt"
	"strings"

	"github.com/tenfyzhong/cityhash"
)

// ValueType is the 3-bit tag of a packed ValueID, selecting which of the
// seven tag value tables an index refers to (§3).
type ValueType uint8

const (
	ValueAnsiString ValueType = iota
	ValueWideString
	ValueNumberlessName
	ValueName
	ValueNumberlessExportPath
	ValueExportPath
	ValueLocalizedText
)

// tagStoreStartMarkerNew and tagStoreStartMarkerOld select whether the
// localized-text table is serialized before (new) or after (old) the
// name/export tables (§4.4).
const (
	tagStoreStartMarkerNew = 0x12345679
	tagStoreStartMarkerOld = 0x12345678
	tagStoreEndMarker      = 0x87654321
)

// Pair is one (tag name, tag value) entry in a pair array (§3).
type Pair struct {
	Key   Name
	Value ValueID
}

// TagStore is the typed, deduplicated pool of tag metadata values plus
// the two pair arrays that reference them (§3, §4.4). Every table is an
// append-only vector paired with a canonical-hash side index, the same
// arena-plus-hashmap shape NamePool uses (§9).
type TagStore struct {
	AnsiStrings           []string
	WideStrings           []string
	NumberlessNames       []Name
	Names                 []Name
	NumberlessExportPaths []ExportPath
	ExportPaths           []ExportPath
	Texts                 []string

	NumberlessPairs []Pair
	Pairs           []Pair

	TextFirst bool

	ansiIndex       map[uint64]uint32
	wideIndex       map[uint64]uint32
	numlessNameIdx  map[uint64]uint32
	nameIdx         map[uint64]uint32
	numlessExpIdx   map[uint64]uint32
	expIdx          map[uint64]uint32
	textIdx         map[uint64]uint32
}

// NewTagStore returns an empty store.
func NewTagStore() *TagStore {
	return &TagStore{
		ansiIndex:      make(map[uint64]uint32),
		wideIndex:      make(map[uint64]uint32),
		numlessNameIdx: make(map[uint64]uint32),
		nameIdx:        make(map[uint64]uint32),
		numlessExpIdx:  make(map[uint64]uint32),
		expIdx:         make(map[uint64]uint32),
		textIdx:        make(map[uint64]uint32),
	}
}

func hashKey(s string) uint64 { return cityhash.CityHash64([]byte(s)) }

func nameCanonicalKey(n Name) string { return fmt.Sprintf("%d-%d", n.Index, n.Number) }

func exportPathCanonicalKey(e ExportPath) string {
	return strings.Join([]string{
		nameCanonicalKey(e.ClassPath.Package),
		nameCanonicalKey(e.ClassPath.Asset),
		nameCanonicalKey(e.PackageName),
		nameCanonicalKey(e.ObjectName),
	}, "-")
}

// InsertAnsiString inserts or dedups a narrow string value.
func (s *TagStore) InsertAnsiString(v string) ValueID {
	h := hashKey(v)
	if idx, ok := s.ansiIndex[h]; ok {
		return ValueID{Type: ValueAnsiString, Index: idx}
	}
	idx := uint32(len(s.AnsiStrings))
	s.AnsiStrings = append(s.AnsiStrings, v)
	s.ansiIndex[h] = idx
	return ValueID{Type: ValueAnsiString, Index: idx}
}

// InsertWideString inserts or dedups a wide string value.
func (s *TagStore) InsertWideString(v string) ValueID {
	h := hashKey(v)
	if idx, ok := s.wideIndex[h]; ok {
		return ValueID{Type: ValueWideString, Index: idx}
	}
	idx := uint32(len(s.WideStrings))
	s.WideStrings = append(s.WideStrings, v)
	s.wideIndex[h] = idx
	return ValueID{Type: ValueWideString, Index: idx}
}

// InsertLocalizedText inserts or dedups a localized text value.
func (s *TagStore) InsertLocalizedText(v string) ValueID {
	h := hashKey(v)
	if idx, ok := s.textIdx[h]; ok {
		return ValueID{Type: ValueLocalizedText, Index: idx}
	}
	idx := uint32(len(s.Texts))
	s.Texts = append(s.Texts, v)
	s.textIdx[h] = idx
	return ValueID{Type: ValueLocalizedText, Index: idx}
}

// InsertNumberlessName inserts or dedups a name in the numberless table.
func (s *TagStore) InsertNumberlessName(n Name) ValueID {
	h := hashKey(nameCanonicalKey(n))
	if idx, ok := s.numlessNameIdx[h]; ok {
		return ValueID{Type: ValueNumberlessName, Index: idx}
	}
	idx := uint32(len(s.NumberlessNames))
	s.NumberlessNames = append(s.NumberlessNames, n)
	s.numlessNameIdx[h] = idx
	return ValueID{Type: ValueNumberlessName, Index: idx}
}

// InsertName inserts or dedups a name in the numbered table.
func (s *TagStore) InsertName(n Name) ValueID {
	h := hashKey(nameCanonicalKey(n))
	if idx, ok := s.nameIdx[h]; ok {
		return ValueID{Type: ValueName, Index: idx}
	}
	idx := uint32(len(s.Names))
	s.Names = append(s.Names, n)
	s.nameIdx[h] = idx
	return ValueID{Type: ValueName, Index: idx}
}

// InsertNumberlessExportPath inserts or dedups an export path in the
// numberless table.
func (s *TagStore) InsertNumberlessExportPath(e ExportPath) ValueID {
	h := hashKey(exportPathCanonicalKey(e))
	if idx, ok := s.numlessExpIdx[h]; ok {
		return ValueID{Type: ValueNumberlessExportPath, Index: idx}
	}
	idx := uint32(len(s.NumberlessExportPaths))
	s.NumberlessExportPaths = append(s.NumberlessExportPaths, e)
	s.numlessExpIdx[h] = idx
	return ValueID{Type: ValueNumberlessExportPath, Index: idx}
}

// InsertExportPath inserts or dedups an export path in the numbered table.
func (s *TagStore) InsertExportPath(e ExportPath) ValueID {
	h := hashKey(exportPathCanonicalKey(e))
	if idx, ok := s.expIdx[h]; ok {
		return ValueID{Type: ValueExportPath, Index: idx}
	}
	idx := uint32(len(s.ExportPaths))
	s.ExportPaths = append(s.ExportPaths, e)
	s.expIdx[h] = idx
	return ValueID{Type: ValueExportPath, Index: idx}
}

// Lookup resolves a ValueID back to its stored representation, as a
// loosely typed value the textual projection can format per its marker.
func (s *TagStore) Lookup(id ValueID) (interface{}, error) {
	switch id.Type {
	case ValueAnsiString:
		if id.Index >= uint32(len(s.AnsiStrings)) {
			return nil, ErrValueIDOutOfRange
		}
		return s.AnsiStrings[id.Index], nil
	case ValueWideString:
		if id.Index >= uint32(len(s.WideStrings)) {
			return nil, ErrValueIDOutOfRange
		}
		return s.WideStrings[id.Index], nil
	case ValueNumberlessName:
		if id.Index >= uint32(len(s.NumberlessNames)) {
			return nil, ErrValueIDOutOfRange
		}
		return s.NumberlessNames[id.Index], nil
	case ValueName:
		if id.Index >= uint32(len(s.Names)) {
			return nil, ErrValueIDOutOfRange
		}
		return s.Names[id.Index], nil
	case ValueNumberlessExportPath:
		if id.Index >= uint32(len(s.NumberlessExportPaths)) {
			return nil, ErrValueIDOutOfRange
		}
		return s.NumberlessExportPaths[id.Index], nil
	case ValueExportPath:
		if id.Index >= uint32(len(s.ExportPaths)) {
			return nil, ErrValueIDOutOfRange
		}
		return s.ExportPaths[id.Index], nil
	case ValueLocalizedText:
		if id.Index >= uint32(len(s.Texts)) {
			return nil, ErrValueIDOutOfRange
		}
		return s.Texts[id.Index], nil
	default:
		return nil, ErrValueIDOutOfRange
	}
}

// RegisterPairs appends pairs to the numberless or numbered pair array and
// returns a handle selecting the contiguous range just appended (§4.4).
func (s *TagStore) RegisterPairs(pairs []Pair, hasNumberless bool) (TagMapHandle, error) {
	if len(pairs) > 0xFFFF {
		return TagMapHandle{}, ErrTagMapHandleOutOfRange
	}
	if hasNumberless {
		begin := uint32(len(s.NumberlessPairs))
		s.NumberlessPairs = append(s.NumberlessPairs, pairs...)
		return TagMapHandle{HasNumberlessKeys: true, Count: uint16(len(pairs)), Begin: begin}, nil
	}
	begin := uint32(len(s.Pairs))
	s.Pairs = append(s.Pairs, pairs...)
	return TagMapHandle{HasNumberlessKeys: false, Count: uint16(len(pairs)), Begin: begin}, nil
}

// ResolvePairs returns the pairs a handle selects.
func (s *TagStore) ResolvePairs(h TagMapHandle) ([]Pair, error) {
	var table []Pair
	if h.HasNumberlessKeys {
		table = s.NumberlessPairs
	} else {
		table = s.Pairs
	}
	end := uint64(h.Begin) + uint64(h.Count)
	if end > uint64(len(table)) {
		return nil, ErrTagMapHandleOutOfRange
	}
	return table[h.Begin:end], nil
}

func computeAnsiOffsets(strs []string) []uint32 {
	offsets := make([]uint32, len(strs))
	off := uint32(0)
	for i, str := range strs {
		offsets[i] = off
		off += uint32(len(str)) + 1
	}
	return offsets
}

func computeWideOffsets(strs []string) ([]uint32, error) {
	offsets := make([]uint32, len(strs))
	off := uint32(0)
	for i, str := range strs {
		offsets[i] = off
		enc, err := EncodeUTF16(str)
		if err != nil {
			return nil, err
		}
		off += uint32(len(enc)) + 2
	}
	return offsets, nil
}

func splitNulTerminated(blob string) []string {
	parts := strings.Split(blob, "\x00")
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// ReadTagStore decodes a tag value store per §4.4, dispatching Name and
// ExportPath reads through idc so both archive dialects are honored.
func ReadTagStore(r *Reader, idc *IdentifierCodec) (*TagStore, error) {
	marker, err := r.U32()
	if err != nil {
		return nil, err
	}
	var textFirst bool
	switch marker {
	case tagStoreStartMarkerNew:
		textFirst = true
	case tagStoreStartMarkerOld:
		textFirst = false
	default:
		return nil, ErrInvalidStartMarker
	}

	counts := make([]uint32, 11)
	for i := range counts {
		if counts[i], err = r.U32(); err != nil {
			return nil, err
		}
	}
	numberlessNameCount := counts[0]
	nameCount := counts[1]
	numberlessExportPathCount := counts[2]
	exportPathCount := counts[3]
	textCount := counts[4]
	ansiOffsetCount := counts[5]
	wideOffsetCount := counts[6]
	ansiByteCount := counts[7]
	wideCharCount := counts[8]
	numberlessPairCount := counts[9]
	pairCount := counts[10]

	s := NewTagStore()
	s.TextFirst = textFirst

	readTexts := func() error {
		for i := uint32(0); i < textCount; i++ {
			text, _, err := r.FString()
			if err != nil {
				return err
			}
			s.Texts = append(s.Texts, text)
		}
		return nil
	}

	if textFirst {
		declared, err := r.U32()
		if err != nil {
			return nil, err
		}
		start := r.Pos()
		if err := readTexts(); err != nil {
			return nil, err
		}
		if r.Pos()-start != declared {
			return nil, ErrTrailingBytes
		}
	}

	for i := uint32(0); i < numberlessNameCount; i++ {
		n, err := idc.ReadName(r)
		if err != nil {
			return nil, err
		}
		s.NumberlessNames = append(s.NumberlessNames, n)
	}
	for i := uint32(0); i < nameCount; i++ {
		n, err := idc.ReadName(r)
		if err != nil {
			return nil, err
		}
		s.Names = append(s.Names, n)
	}
	for i := uint32(0); i < numberlessExportPathCount; i++ {
		e, err := idc.ReadExportPath(r)
		if err != nil {
			return nil, err
		}
		s.NumberlessExportPaths = append(s.NumberlessExportPaths, e)
	}
	for i := uint32(0); i < exportPathCount; i++ {
		e, err := idc.ReadExportPath(r)
		if err != nil {
			return nil, err
		}
		s.ExportPaths = append(s.ExportPaths, e)
	}

	if !textFirst {
		if err := readTexts(); err != nil {
			return nil, err
		}
	}

	if _, err := r.Bytes(ansiOffsetCount * 4); err != nil {
		return nil, err
	}
	if _, err := r.Bytes(wideOffsetCount * 4); err != nil {
		return nil, err
	}

	ansiBlob, err := r.Bytes(ansiByteCount)
	if err != nil {
		return nil, err
	}
	s.AnsiStrings = splitNulTerminated(string(ansiBlob))

	wideBlob, err := r.Bytes(wideCharCount * 2)
	if err != nil {
		return nil, err
	}
	wideText, err := DecodeUTF16(wideBlob)
	if err != nil {
		return nil, err
	}
	s.WideStrings = splitNulTerminated(wideText)

	readPairs := func(count uint32) ([]Pair, error) {
		pairs := make([]Pair, 0, count)
		for i := uint32(0); i < count; i++ {
			key, err := idc.ReadName(r)
			if err != nil {
				return nil, err
			}
			val, err := r.ValueIDValue()
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, Pair{Key: key, Value: val})
		}
		return pairs, nil
	}

	if s.NumberlessPairs, err = readPairs(numberlessPairCount); err != nil {
		return nil, err
	}
	if s.Pairs, err = readPairs(pairCount); err != nil {
		return nil, err
	}

	end, err := r.U32()
	if err != nil {
		return nil, err
	}
	if end != tagStoreEndMarker {
		return nil, ErrInvalidStartMarker
	}

	s.rebuildIndexes()
	return s, nil
}

// rebuildIndexes populates the canonical-hash side tables after a raw
// decode, so subsequent Insert* calls against a decoded store still dedup
// correctly against everything already on disk.
func (s *TagStore) rebuildIndexes() {
	for i, v := range s.AnsiStrings {
		s.ansiIndex[hashKey(v)] = uint32(i)
	}
	for i, v := range s.WideStrings {
		s.wideIndex[hashKey(v)] = uint32(i)
	}
	for i, v := range s.Texts {
		s.textIdx[hashKey(v)] = uint32(i)
	}
	for i, v := range s.NumberlessNames {
		s.numlessNameIdx[hashKey(nameCanonicalKey(v))] = uint32(i)
	}
	for i, v := range s.Names {
		s.nameIdx[hashKey(nameCanonicalKey(v))] = uint32(i)
	}
	for i, v := range s.NumberlessExportPaths {
		s.numlessExpIdx[hashKey(exportPathCanonicalKey(v))] = uint32(i)
	}
	for i, v := range s.ExportPaths {
		s.expIdx[hashKey(exportPathCanonicalKey(v))] = uint32(i)
	}
}

// WriteTagStore encodes s per §4.4, the inverse of ReadTagStore.
func WriteTagStore(w *Writer, idc *IdentifierCodec, s *TagStore) error {
	if s.TextFirst {
		w.U32(tagStoreStartMarkerNew)
	} else {
		w.U32(tagStoreStartMarkerOld)
	}

	ansiOffsets := computeAnsiOffsets(s.AnsiStrings)
	wideOffsets, err := computeWideOffsets(s.WideStrings)
	if err != nil {
		return err
	}
	ansiByteCount := uint32(0)
	for _, v := range s.AnsiStrings {
		ansiByteCount += uint32(len(v)) + 1
	}
	wideCharCount := uint32(0)
	for _, v := range s.WideStrings {
		enc, err := EncodeUTF16(v)
		if err != nil {
			return err
		}
		wideCharCount += uint32(len(enc))/2 + 1
	}

	counts := []uint32{
		uint32(len(s.NumberlessNames)),
		uint32(len(s.Names)),
		uint32(len(s.NumberlessExportPaths)),
		uint32(len(s.ExportPaths)),
		uint32(len(s.Texts)),
		uint32(len(ansiOffsets)),
		uint32(len(wideOffsets)),
		ansiByteCount,
		wideCharCount,
		uint32(len(s.NumberlessPairs)),
		uint32(len(s.Pairs)),
	}
	for _, c := range counts {
		w.U32(c)
	}

	writeTexts := func() error {
		for _, t := range s.Texts {
			if err := w.FString(t, false); err != nil {
				return err
			}
		}
		return nil
	}

	if s.TextFirst {
		sizeOff := w.ReserveU32()
		start := w.Pos()
		if err := writeTexts(); err != nil {
			return err
		}
		w.PatchU32(sizeOff, w.Pos()-start)
	}

	for _, n := range s.NumberlessNames {
		if err := idc.WriteName(w, n); err != nil {
			return err
		}
	}
	for _, n := range s.Names {
		if err := idc.WriteName(w, n); err != nil {
			return err
		}
	}
	for _, e := range s.NumberlessExportPaths {
		if err := idc.WriteExportPath(w, e); err != nil {
			return err
		}
	}
	for _, e := range s.ExportPaths {
		if err := idc.WriteExportPath(w, e); err != nil {
			return err
		}
	}

	if !s.TextFirst {
		if err := writeTexts(); err != nil {
			return err
		}
	}

	for _, off := range ansiOffsets {
		w.U32(off)
	}
	for _, off := range wideOffsets {
		w.U32(off)
	}

	for _, v := range s.AnsiStrings {
		w.WriteBytes([]byte(v))
		w.U8(0)
	}

	wideBlob := make([]byte, 0, wideCharCount*2)
	for _, v := range s.WideStrings {
		enc, err := EncodeUTF16(v)
		if err != nil {
			return err
		}
		wideBlob = append(wideBlob, enc...)
		wideBlob = append(wideBlob, 0, 0)
	}
	w.WriteBytes(wideBlob)

	writePairs := func(pairs []Pair) error {
		for _, p := range pairs {
			if err := idc.WriteName(w, p.Key); err != nil {
				return err
			}
			w.ValueIDValue(p.Value)
		}
		return nil
	}
	if err := writePairs(s.NumberlessPairs); err != nil {
		return err
	}
	if err := writePairs(s.Pairs); err != nil {
		return err
	}

	w.U32(tagStoreEndMarker)
	return nil
}
