// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package assetreg

import (
	"encoding/binary"
	"testing"
)

func TestReaderWriterIntegerRoundTrip(t *testing.T) {
	w := NewWriter(binary.LittleEndian)
	w.U8(0xAB)
	w.U16(0x1234)
	w.U32(0xDEADBEEF)
	w.U64(0x0102030405060708)
	w.I32(-42)
	w.I64(-4200)
	w.Bool32(true)
	w.Bool32(false)
	w.GUIDValue(GUID{1, 2, 3, 4})

	r := NewReader(w.Bytes(), binary.LittleEndian)
	if v, err := r.U8(); err != nil || v != 0xAB {
		t.Fatalf("U8 = %v, %v", v, err)
	}
	if v, err := r.U16(); err != nil || v != 0x1234 {
		t.Fatalf("U16 = %v, %v", v, err)
	}
	if v, err := r.U32(); err != nil || v != 0xDEADBEEF {
		t.Fatalf("U32 = %v, %v", v, err)
	}
	if v, err := r.U64(); err != nil || v != 0x0102030405060708 {
		t.Fatalf("U64 = %v, %v", v, err)
	}
	if v, err := r.I32(); err != nil || v != -42 {
		t.Fatalf("I32 = %v, %v", v, err)
	}
	if v, err := r.I64(); err != nil || v != -4200 {
		t.Fatalf("I64 = %v, %v", v, err)
	}
	if v, err := r.Bool32(); err != nil || v != true {
		t.Fatalf("Bool32(true) = %v, %v", v, err)
	}
	if v, err := r.Bool32(); err != nil || v != false {
		t.Fatalf("Bool32(false) = %v, %v", v, err)
	}
	if g, err := r.GUIDValue(); err != nil || g != (GUID{1, 2, 3, 4}) {
		t.Fatalf("GUIDValue = %v, %v", g, err)
	}
	if !r.AtEOF() {
		t.Fatalf("expected reader at EOF, pos=%d len=%d", r.Pos(), r.Len())
	}
}

func TestReaderUnexpectedEOF(t *testing.T) {
	r := NewReader([]byte{1, 2}, binary.LittleEndian)
	if _, err := r.U32(); err != ErrUnexpectedEOF {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
}

func TestFStringRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		text string
		wide bool
	}{
		{"narrow", "hello world", false},
		{"wide-ascii", "hello", true},
		{"wide-unicode", "café", true},
		{"empty-narrow", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWriter(binary.LittleEndian)
			if err := w.FString(tt.text, tt.wide); err != nil {
				t.Fatalf("FString write: %v", err)
			}
			r := NewReader(w.Bytes(), binary.LittleEndian)
			got, wide, err := r.FString()
			if err != nil {
				t.Fatalf("FString read: %v", err)
			}
			if got != tt.text {
				t.Errorf("got %q, want %q", got, tt.text)
			}
			if wide != tt.wide {
				t.Errorf("got wide=%v, want %v", wide, tt.wide)
			}
			if !r.AtEOF() {
				t.Errorf("reader not at EOF after FString read")
			}
		})
	}
}

func TestReserveAndPatch(t *testing.T) {
	w := NewWriter(binary.LittleEndian)
	off32 := w.ReserveU32()
	w.WriteBytes([]byte{1, 2, 3})
	w.PatchU32(off32, 3)

	off64 := w.ReserveI64()
	w.WriteBytes([]byte{4, 5})
	w.PatchI64(off64, 2)

	r := NewReader(w.Bytes(), binary.LittleEndian)
	if v, err := r.U32(); err != nil || v != 3 {
		t.Fatalf("patched U32 = %v, %v", v, err)
	}
	if _, err := r.Bytes(3); err != nil {
		t.Fatalf("skip payload: %v", err)
	}
	if v, err := r.I64(); err != nil || v != 2 {
		t.Fatalf("patched I64 = %v, %v", v, err)
	}
}

func TestValueIDPackRoundTrip(t *testing.T) {
	cases := []ValueID{
		{Type: ValueAnsiString, Index: 0},
		{Type: ValueWideString, Index: 1},
		{Type: ValueLocalizedText, Index: MaxValueIndex},
		{Type: ValueExportPath, Index: 12345},
	}
	for _, c := range cases {
		got := UnpackValueID(c.Pack())
		if got != c {
			t.Errorf("UnpackValueID(Pack(%v)) = %v", c, got)
		}
	}
}

func TestTagMapHandlePackRoundTrip(t *testing.T) {
	cases := []TagMapHandle{
		{HasNumberlessKeys: false, Count: 0, Begin: 0},
		{HasNumberlessKeys: true, Count: 0xFFFF, Begin: 0xFFFFFFFF},
		{HasNumberlessKeys: false, Count: 7, Begin: 42},
	}
	for _, c := range cases {
		got := UnpackTagMapHandle(c.Pack())
		if got != c {
			t.Errorf("UnpackTagMapHandle(Pack(%v)) = %v", c, got)
		}
	}
}

func TestNameHeaderPackRoundTrip(t *testing.T) {
	cases := []struct {
		chars  int
		isWide bool
	}{
		{0, false},
		{3, false},
		{1023, true},
		{500, true},
	}
	for _, c := range cases {
		gotChars, gotWide := NameHeaderUnpack(NameHeaderPack(c.chars, c.isWide))
		if gotChars != c.chars || gotWide != c.isWide {
			t.Errorf("NameHeaderUnpack(Pack(%d,%v)) = (%d,%v)", c.chars, c.isWide, gotChars, gotWide)
		}
	}
}

func TestGUIDUUIDRoundTrip(t *testing.T) {
	g := GUID{0x01020304, 0x05060708, 0x090A0B0C, 0x0D0E0F10}
	u := g.UUID()
	got := GUIDFromUUID(u)
	if got != g {
		t.Errorf("GUIDFromUUID(UUID(%v)) = %v", g, got)
	}
}
