// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package assetreg

// Fuzz decodes data as a registry file and, on success, re-encodes the
// result and checks it reproduces the same bytes. A decode or re-encode
// error returns 0; a re-encoding at LatestVersion that differs from data
// panics; a clean round-trip returns 1.
func Fuzz(data []byte) int {
	reg, err := NewBytes(data, nil)
	if err != nil {
		return 0
	}
	out, err := reg.EncodeBinary()
	if err != nil {
		return 0
	}
	if reg.Header.Version == LatestVersion && string(out) != string(data) {
		panic("round-trip mismatch at latest version")
	}
	return 1
}
