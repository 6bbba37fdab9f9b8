// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package assetreg

import (
	"encoding/binary"
	"testing"
)

// TestNameBatchSingleASCIIName covers spec scenario 2: interning "Foo"
// must produce a one-entry name batch whose header encodes chars=3,
// is_wide=0 and whose payload is the raw bytes "Foo".
func TestNameBatchSingleASCIIName(t *testing.T) {
	pool := NewNamePool()
	n := pool.Intern("Foo")
	if n.Index != 0 || n.Number != 0 {
		t.Fatalf("Intern(Foo) = %v, want {0 0}", n)
	}

	w := NewWriter(binary.LittleEndian)
	if err := WriteNameBatch(w, pool); err != nil {
		t.Fatalf("WriteNameBatch: %v", err)
	}

	r := NewReader(w.Bytes(), binary.LittleEndian)
	numStrings, err := r.U32()
	if err != nil || numStrings != 1 {
		t.Fatalf("numStrings = %d, %v, want 1", numStrings, err)
	}
	numStringBytes, err := r.U32()
	if err != nil || numStringBytes != 3 {
		t.Fatalf("numStringBytes = %d, %v, want 3", numStringBytes, err)
	}
	hashVersion, err := r.U64()
	if err != nil || hashVersion != NameBatchHashVersion {
		t.Fatalf("hashVersion = 0x%x, %v, want 0x%x", hashVersion, err, NameBatchHashVersion)
	}
	if _, err := r.U64(); err != nil {
		t.Fatalf("read hash: %v", err)
	}
	header, err := r.U16()
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	if header != 0x0003 {
		t.Fatalf("header = 0x%04x, want 0x0003", header)
	}
	payload, err := r.Bytes(3)
	if err != nil || string(payload) != "Foo" {
		t.Fatalf("payload = %q, %v, want Foo", payload, err)
	}
	if !r.AtEOF() {
		t.Fatalf("expected EOF after payload")
	}
}

func TestReadNameBatchRejectsImplausibleCount(t *testing.T) {
	w := NewWriter(binary.LittleEndian)
	w.U32(MaxNameBatchEntries + 1)
	if err := ReadNameBatch(NewReader(w.Bytes(), binary.LittleEndian), NewNamePool(), nil); err != ErrTooManyNames {
		t.Errorf("expected ErrTooManyNames, got %v", err)
	}
}

func TestNameBatchRoundTrip(t *testing.T) {
	pool := NewNamePool()
	names := []string{"Foo", "Bar___2", "/Game/Assets/Widget", "café"}
	var interned []Name
	for _, s := range names {
		interned = append(interned, pool.Intern(s))
	}

	w := NewWriter(binary.LittleEndian)
	if err := WriteNameBatch(w, pool); err != nil {
		t.Fatalf("WriteNameBatch: %v", err)
	}

	got := NewNamePool()
	if err := ReadNameBatch(NewReader(w.Bytes(), binary.LittleEndian), got, nil); err != nil {
		t.Fatalf("ReadNameBatch: %v", err)
	}
	if got.Len() != pool.Len() {
		t.Fatalf("Len = %d, want %d", got.Len(), pool.Len())
	}
	for i, n := range interned {
		want, err := pool.Resolve(n)
		if err != nil {
			t.Fatalf("Resolve(original %d): %v", i, err)
		}
		// The decoded pool assigns indices in wire order, matching the
		// original's interning order, so n.Index lines up directly.
		entry, err := got.Entry(n.Index)
		if err != nil {
			t.Fatalf("Entry(%d): %v", n.Index, err)
		}
		gotDisplay := entry.Text
		wantBase, _ := splitSuffix(want)
		if gotDisplay != wantBase {
			t.Errorf("entry %d = %q, want base %q", i, gotDisplay, wantBase)
		}
	}
}
