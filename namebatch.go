// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package assetreg

import "go.uber.org/zap"

// NameBatchHashVersion is the only hash-version tag this codec emits; a
// mismatch on read is advisory only (§4.3, §7).
const NameBatchHashVersion uint64 = 0xC1640000

// MaxNameBatchEntries caps the declared entry count before it is used to
// size the hash/header slices below, so a corrupt count field fails fast
// with ErrTooManyNames instead of attempting a huge allocation.
const MaxNameBatchEntries = 16 << 20

// ReadNameBatch decodes the name batch described in §4.3 directly into
// pool, in file order, so pool indices line up with wire indices.
func ReadNameBatch(r *Reader, pool *NamePool, log *zap.SugaredLogger) error {
	numStrings, err := r.U32()
	if err != nil {
		return err
	}
	if numStrings > MaxNameBatchEntries {
		return ErrTooManyNames
	}
	numStringBytes, err := r.U32()
	if err != nil {
		return err
	}
	hashVersion, err := r.U64()
	if err != nil {
		return err
	}
	if hashVersion != NameBatchHashVersion && log != nil {
		log.Warnf("name batch: unexpected hash version 0x%x", hashVersion)
	}

	hashes := make([]uint64, numStrings)
	for i := range hashes {
		if hashes[i], err = r.U64(); err != nil {
			return err
		}
	}

	headers := make([]uint16, numStrings)
	for i := range headers {
		if headers[i], err = r.U16(); err != nil {
			return err
		}
	}

	payload, err := r.Bytes(numStringBytes)
	if err != nil {
		return err
	}

	off := uint32(0)
	for i := uint32(0); i < numStrings; i++ {
		chars, isWide := NameHeaderUnpack(headers[i])
		if chars >= MaxStoredIdentifierChars {
			return ErrStringTooLong
		}
		width := uint32(1)
		if isWide {
			width = 2
		}
		n := uint32(chars) * width
		if off+n > uint32(len(payload)) {
			return ErrUnexpectedEOF
		}
		raw := payload[off : off+n]
		off += n

		var text string
		if isWide {
			text, err = DecodeUTF16(raw)
			if err != nil {
				return err
			}
		} else {
			text = string(raw)
		}
		pool.entries = append(pool.entries, StoredIdentifier{Text: text, IsWide: isWide})
		pool.index[nameHash(text)] = uint32(len(pool.entries) - 1)
	}
	return nil
}

// WriteNameBatch encodes pool as a name batch, back-patching the payload
// byte count once every entry has been emitted (§4.3).
func WriteNameBatch(w *Writer, pool *NamePool) error {
	w.U32(uint32(pool.Len()))
	sizeOffset := w.ReserveU32()
	w.U64(NameBatchHashVersion)

	for _, e := range pool.entries {
		w.U64(nameHash(e.Text))
	}
	for _, e := range pool.entries {
		w.U16(NameHeaderPack(len([]rune(e.Text)), e.IsWide))
	}

	payloadStart := w.Pos()
	for _, e := range pool.entries {
		if e.IsWide {
			enc, err := EncodeUTF16(e.Text)
			if err != nil {
				return err
			}
			w.WriteBytes(enc)
		} else {
			w.WriteBytes([]byte(e.Text))
		}
	}
	w.PatchU32(sizeOffset, w.Pos()-payloadStart)
	return nil
}
