// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package assetreg

import "errors"

// Format errors are returned when the byte stream does not look like a
// cooked asset registry at all.
var (
	ErrInvalidStartMarker  = errors.New("assetreg: invalid start marker")
	ErrUnexpectedEOF       = errors.New("assetreg: unexpected end of buffer")
	ErrTrailingBytes       = errors.New("assetreg: section size mismatch or trailing bytes")
	ErrMalformedFName      = errors.New("assetreg: malformed stored name")
	ErrMalformedExportPath = errors.New("assetreg: malformed export path string")
)

// Version errors are returned when the stream declares a version this
// codec cannot handle.
var (
	ErrUnsupportedVersion   = errors.New("assetreg: unsupported registry version")
	ErrLegacyTableArchive   = errors.New("assetreg: legacy table-archive dialect is not implemented")
	ErrNotImplemented       = errors.New("assetreg: feature not implemented")
)

// Integrity errors are returned when a size or index field refers to data
// outside the bounds the codec was given.
var (
	ErrNameTableOffsetOOB     = errors.New("assetreg: name offset out of bounds")
	ErrStringTooLong          = errors.New("assetreg: string length exceeds maximum")
	ErrValueIDOutOfRange      = errors.New("assetreg: tag value id index out of range")
	ErrTagMapHandleOutOfRange = errors.New("assetreg: tag map handle out of range")
	ErrTooManyNames           = errors.New("assetreg: name count exceeds maximum")
	ErrTooManyAssets          = errors.New("assetreg: asset count out of range")
)

// Textual-document errors, returned while ingesting the editable JSON form.
var (
	ErrUnrecognizedTagMarker = errors.New("assetreg: unrecognized typed tag value marker")
	ErrMalformedTagValue     = errors.New("assetreg: malformed typed tag value")
)
