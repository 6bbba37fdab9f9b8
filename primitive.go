// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package assetreg

import (
	"bytes"
	"encoding/binary"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/unicode"
)

// GUID is the four-u32 wire shape used by the header, package records and
// custom-version entries (§3, §4.1). It carries no RFC-4122 semantics; it
// is an opaque 16-byte identifier, not a generated UUID.
type GUID [4]uint32

// UUID renders g as a github.com/google/uuid.UUID, used purely as a typed
// 16-byte value with canonical string formatting (no RFC-4122 version or
// variant is implied) — the textual projection's display form for
// package GUIDs and custom-version GUIDs.
func (g GUID) UUID() uuid.UUID {
	var b [16]byte
	for i, part := range g {
		binary.BigEndian.PutUint32(b[i*4:i*4+4], part)
	}
	return uuid.UUID(b)
}

// GUIDFromUUID reverses GUID.UUID.
func GUIDFromUUID(u uuid.UUID) GUID {
	var g GUID
	for i := range g {
		g[i] = binary.BigEndian.Uint32(u[i*4 : i*4+4])
	}
	return g
}

// ValueID is the packed (type, index) reference into one of the seven tag
// value tables: low 3 bits hold the type tag, the high 29 bits hold the
// row index (§3, §4.1).
type ValueID struct {
	Type  ValueType
	Index uint32
}

// Pack returns the wire-packed uint32 form of v.
func (v ValueID) Pack() uint32 {
	return (v.Index << 3) | uint32(v.Type&0x7)
}

// UnpackValueID reverses Pack.
func UnpackValueID(w uint32) ValueID {
	return ValueID{Type: ValueType(w & 0x7), Index: w >> 3}
}

// MaxValueIndex is the largest index a 29-bit field can hold.
const MaxValueIndex = 1<<29 - 1

// TagMapHandle is the packed reference into one of the two pair arrays:
// bit 63 is the numberless-keys flag, bits 32-47 hold the pair count, bits
// 0-31 hold the starting index (§3, §4.1).
type TagMapHandle struct {
	HasNumberlessKeys bool
	Count             uint16
	Begin             uint32
}

// Pack returns the wire-packed uint64 form of h.
func (h TagMapHandle) Pack() uint64 {
	v := uint64(h.Begin) | uint64(h.Count)<<32
	if h.HasNumberlessKeys {
		v |= 1 << 63
	}
	return v
}

// UnpackTagMapHandle reverses Pack.
func UnpackTagMapHandle(w uint64) TagMapHandle {
	return TagMapHandle{
		HasNumberlessKeys: w&(1<<63) != 0,
		Count:             uint16((w >> 32) & 0xFFFF),
		Begin:             uint32(w),
	}
}

// Reader is a bounds-checked cursor over an in-memory registry buffer, in
// the spirit of the teacher's own structUnpack/ReadUint* helpers but
// generalized to a movable position and a caller-chosen byte order
// (§4.1, §5 — both reader and writer must be seekable for back-patching).
type Reader struct {
	data  []byte
	pos   uint32
	order binary.ByteOrder
}

// NewReader wraps data for sequential, bounds-checked reads.
func NewReader(data []byte, order binary.ByteOrder) *Reader {
	return &Reader{data: data, order: order}
}

// Len returns the total buffer length.
func (r *Reader) Len() uint32 { return uint32(len(r.data)) }

// Pos returns the current read cursor.
func (r *Reader) Pos() uint32 { return r.pos }

// AtEOF reports whether the cursor sits exactly at the end of the buffer.
func (r *Reader) AtEOF() bool { return r.pos == uint32(len(r.data)) }

// Seek repositions the cursor absolutely.
func (r *Reader) Seek(pos uint32) { r.pos = pos }

func (r *Reader) require(n uint32) error {
	if r.pos+n < r.pos || r.pos+n > uint32(len(r.data)) {
		return ErrUnexpectedEOF
	}
	return nil
}

// Bytes reads n raw bytes.
func (r *Reader) Bytes(n uint32) ([]byte, error) {
	if err := r.require(n); err != nil {
		return nil, err
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// U8 reads an unsigned byte.
func (r *Reader) U8() (uint8, error) {
	b, err := r.Bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// U16 reads an unsigned 16-bit value in the reader's byte order.
func (r *Reader) U16() (uint16, error) {
	b, err := r.Bytes(2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(b), nil
}

// U32 reads an unsigned 32-bit value in the reader's byte order.
func (r *Reader) U32() (uint32, error) {
	b, err := r.Bytes(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(b), nil
}

// U64 reads an unsigned 64-bit value in the reader's byte order.
func (r *Reader) U64() (uint64, error) {
	b, err := r.Bytes(8)
	if err != nil {
		return 0, err
	}
	return r.order.Uint64(b), nil
}

// I32 reads a signed 32-bit value.
func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

// I64 reads a signed 64-bit value.
func (r *Reader) I64() (int64, error) {
	v, err := r.U64()
	return int64(v), err
}

// Bool32 reads a 4-byte boolean: any nonzero value is true (§4.1).
func (r *Reader) Bool32() (bool, error) {
	v, err := r.U32()
	return v != 0, err
}

// GUIDValue reads a four-u32 GUID (§3, §4.1).
func (r *Reader) GUIDValue() (GUID, error) {
	var g GUID
	for i := range g {
		v, err := r.U32()
		if err != nil {
			return g, err
		}
		g[i] = v
	}
	return g, nil
}

// ValueIDValue reads a packed ValueID.
func (r *Reader) ValueIDValue() (ValueID, error) {
	v, err := r.U32()
	if err != nil {
		return ValueID{}, err
	}
	return UnpackValueID(v), nil
}

// TagMapHandleValue reads a packed TagMapHandle.
func (r *Reader) TagMapHandleValue() (TagMapHandle, error) {
	v, err := r.U64()
	if err != nil {
		return TagMapHandle{}, err
	}
	return UnpackTagMapHandle(v), nil
}

var utf16Decoder = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
var utf16Encoder = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()

// DecodeUTF16 decodes a BOM-less little-endian UTF-16 byte slice, in the
// manner of the teacher's own DecodeUTF16String (helper.go), generalized
// to take an already-sliced buffer rather than scanning for a NUL itself.
func DecodeUTF16(b []byte) (string, error) {
	if len(b) == 0 {
		return "", nil
	}
	s, err := utf16Decoder.Bytes(b)
	if err != nil {
		return "", err
	}
	return string(s), nil
}

// EncodeUTF16 encodes s as BOM-less little-endian UTF-16.
func EncodeUTF16(s string) ([]byte, error) {
	return utf16Encoder.Bytes([]byte(s))
}

// FString reads the generic length-prefixed string primitive (§4.1): a
// signed i32 character count whose sign carries the wide flag, the
// payload (including a trailing NUL) following. char_len counts the NUL.
func (r *Reader) FString() (text string, wide bool, err error) {
	n, err := r.I32()
	if err != nil {
		return "", false, err
	}
	if n == 0 {
		return "", false, nil
	}
	wide = n < 0
	charLen := n
	if wide {
		charLen = -n
	}
	if wide {
		raw, err := r.Bytes(uint32(charLen) * 2)
		if err != nil {
			return "", wide, err
		}
		s, err := DecodeUTF16(raw[:len(raw)-2])
		return s, wide, err
	}
	raw, err := r.Bytes(uint32(charLen))
	if err != nil {
		return "", wide, err
	}
	return string(raw[:len(raw)-1]), wide, nil
}

// Writer is a growable byte buffer supporting seek-and-rewrite back
// patching of the size fields the format requires (name batch payload,
// tag-store text section, dependency section — §4.3-§4.6).
type Writer struct {
	buf   []byte
	order binary.ByteOrder
}

// NewWriter starts an empty writer using the given byte order.
func NewWriter(order binary.ByteOrder) *Writer {
	return &Writer{order: order}
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Pos returns the current end-of-buffer offset.
func (w *Writer) Pos() uint32 { return uint32(len(w.buf)) }

// WriteBytes appends raw bytes.
func (w *Writer) WriteBytes(b []byte) { w.buf = append(w.buf, b...) }

// U8 appends an unsigned byte.
func (w *Writer) U8(v uint8) { w.buf = append(w.buf, v) }

// U16 appends an unsigned 16-bit value.
func (w *Writer) U16(v uint16) {
	var b [2]byte
	w.order.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// U32 appends an unsigned 32-bit value.
func (w *Writer) U32(v uint32) {
	var b [4]byte
	w.order.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// U64 appends an unsigned 64-bit value.
func (w *Writer) U64(v uint64) {
	var b [8]byte
	w.order.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// I32 appends a signed 32-bit value.
func (w *Writer) I32(v int32) { w.U32(uint32(v)) }

// I64 appends a signed 64-bit value.
func (w *Writer) I64(v int64) { w.U64(uint64(v)) }

// Bool32 appends a 4-byte boolean (§4.1: writes 1 for true, 0 for false).
func (w *Writer) Bool32(v bool) {
	if v {
		w.U32(1)
	} else {
		w.U32(0)
	}
}

// GUIDValue appends a four-u32 GUID.
func (w *Writer) GUIDValue(g GUID) {
	for _, part := range g {
		w.U32(part)
	}
}

// ValueIDValue appends a packed ValueID.
func (w *Writer) ValueIDValue(v ValueID) { w.U32(v.Pack()) }

// TagMapHandleValue appends a packed TagMapHandle.
func (w *Writer) TagMapHandleValue(h TagMapHandle) { w.U64(h.Pack()) }

// ReserveU32 writes a zero placeholder and returns its offset, to be
// filled in later via PatchU32 once the true value is known.
func (w *Writer) ReserveU32() uint32 {
	off := w.Pos()
	w.U32(0)
	return off
}

// PatchU32 rewrites the u32 at offset, which must have come from
// ReserveU32 on the same writer.
func (w *Writer) PatchU32(offset, v uint32) {
	w.order.PutUint32(w.buf[offset:offset+4], v)
}

// ReserveI64 writes a zero placeholder and returns its offset, to be
// filled in later via PatchI64 (used by the dependency section's
// back-patched i64 byte size).
func (w *Writer) ReserveI64() uint32 {
	off := w.Pos()
	w.I64(0)
	return off
}

// PatchI64 rewrites the i64 at offset, which must have come from
// ReserveI64 on the same writer.
func (w *Writer) PatchI64(offset uint32, v int64) {
	w.order.PutUint64(w.buf[offset:offset+8], uint64(v))
}

// FString writes the generic length-prefixed string primitive, the
// inverse of Reader.FString. Wide text is stripped of any leading BOM
// before encoding (§4.1).
func (w *Writer) FString(text string, wide bool) error {
	if wide {
		enc, err := EncodeUTF16(text)
		if err != nil {
			return err
		}
		enc = bytes.TrimPrefix(enc, []byte{0xFF, 0xFE})
		charLen := len(enc)/2 + 1
		w.I32(-int32(charLen))
		w.WriteBytes(enc)
		w.U16(0)
		return nil
	}
	charLen := len(text) + 1
	w.I32(int32(charLen))
	w.WriteBytes([]byte(text))
	w.U8(0)
	return nil
}
