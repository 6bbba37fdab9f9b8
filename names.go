// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package assetreg

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tenfyzhong/cityhash"
)

// MaxStoredIdentifierChars is the hard limit on a stored identifier's
// character count: the name-batch header only carries 15 usable bits but
// the wire format caps it far lower (§4.3).
const MaxStoredIdentifierChars = 1024

// Name is an interned identifier reference: an index into a NamePool plus
// an optional one-based numeric suffix. Number == 0 means no suffix (§3).
type Name struct {
	Index  uint32
	Number uint32
}

// IsNone reports whether n is the zero value (§3 treats an absent
// optional Name field the same way the source treats FName.IsNone()).
func (n Name) IsNone() bool { return n.Index == 0 && n.Number == 0 }

// StoredIdentifier is one row of the name pool: a display payload with no
// trailing NUL and a wide-character flag (§3).
type StoredIdentifier struct {
	Text   string
	IsWide bool
}

// NameHeaderPack packs a stored identifier's character count and wide
// flag into the u16 per-entry header used by the name batch (§4.3): low
// 15 bits hold the character count, the high bit of the high byte is the
// wide flag. Strings embedded in composite shapes use the FString
// primitive instead and carry no such header.
func NameHeaderPack(chars int, isWide bool) uint16 {
	h := uint16(chars) & 0x7FFF
	if isWide {
		h |= 0x8000
	}
	return h
}

// NameHeaderUnpack reverses NameHeaderPack.
func NameHeaderUnpack(h uint16) (chars int, isWide bool) {
	return int(h & 0x7FFF), h&0x8000 != 0
}

var suffixPattern = regexp.MustCompile(`^(.*?)___([0-9]+)$`)

// splitSuffix splits a trailing "___<digits>" suffix off display, per
// §4.2's intern contract: the base is matched non-greedily so a name that
// itself legitimately ends in such a pattern more than once only has the
// last occurrence treated as the suffix.
func splitSuffix(display string) (base string, number uint32) {
	m := suffixPattern.FindStringSubmatch(display)
	if m == nil {
		return display, 0
	}
	digits, err := strconv.ParseUint(m[2], 10, 32)
	if err != nil {
		return display, 0
	}
	return m[1], uint32(digits) + 1
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}

func nameHash(base string) uint64 {
	return cityhash.CityHash64([]byte(strings.ToLower(base)))
}

// NamePool is the deduplicating store of interned identifiers (§3, §4.2):
// an append-only vector of StoredIdentifier plus a side-table hash index,
// following the "arena plus hash map" shape the design notes (§9)
// prescribe for all interning tables in this codec.
type NamePool struct {
	entries []StoredIdentifier
	index   map[uint64]uint32
}

// NewNamePool returns an empty pool.
func NewNamePool() *NamePool {
	return &NamePool{index: make(map[uint64]uint32)}
}

// Len returns the number of interned base identifiers.
func (p *NamePool) Len() int { return len(p.entries) }

// Entry returns the stored identifier at i.
func (p *NamePool) Entry(i uint32) (StoredIdentifier, error) {
	if i >= uint32(len(p.entries)) {
		return StoredIdentifier{}, ErrNameTableOffsetOOB
	}
	return p.entries[i], nil
}

// Intern splits display's numeric suffix, hashes the lowercased base, and
// reuses or appends a pool entry (§4.2).
func (p *NamePool) Intern(display string) Name {
	base, number := splitSuffix(display)
	h := nameHash(base)
	if idx, ok := p.index[h]; ok {
		return Name{Index: idx, Number: number}
	}
	idx := uint32(len(p.entries))
	p.entries = append(p.entries, StoredIdentifier{Text: base, IsWide: !isASCII(base)})
	p.index[h] = idx
	return Name{Index: idx, Number: number}
}

// InternRaw registers a base identifier read directly off the wire,
// without splitting a suffix (the name batch never stores a suffix -
// §3). The hash is recomputed rather than trusted, matching the name
// pool's "hashes are never trusted from the file" invariant.
func (p *NamePool) InternRaw(stored StoredIdentifier) uint32 {
	h := nameHash(stored.Text)
	if idx, ok := p.index[h]; ok {
		return idx
	}
	idx := uint32(len(p.entries))
	p.entries = append(p.entries, stored)
	p.index[h] = idx
	return idx
}

// Resolve returns the display string for n, reattaching its numeric
// suffix (§4.2).
func (p *NamePool) Resolve(n Name) (string, error) {
	if n.Index >= uint32(len(p.entries)) {
		return "", ErrNameTableOffsetOOB
	}
	base := p.entries[n.Index].Text
	if n.Number == 0 {
		return base, nil
	}
	return fmt.Sprintf("%s___%d", base, n.Number-1), nil
}
