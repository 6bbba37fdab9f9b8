// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package assetreg

import (
	"encoding/binary"
	"os"

	mmap "github.com/edsrzf/mmap-go"
	"go.uber.org/zap"
)

// Header is the fixed preamble every registry file opens with (§3).
// FilterEditorOnly is only meaningful from AddedHeader onward; earlier
// versions always report false.
type Header struct {
	Guid             GUID
	Version          RegistryVersion
	FilterEditorOnly bool
}

// Options configures how a Registry is opened, decoded and re-encoded.
// It plays the role the teacher's own Options struct plays for a PE file:
// caller-tunable knobs plus an injectable logger, defaulted when absent.
type Options struct {
	// ByteOrder is the wire byte order. Most production files are
	// little-endian (§6); defaults to binary.LittleEndian.
	ByteOrder binary.ByteOrder

	// ArchiveType selects the Name wire dialect (§4.8). Defaults to
	// ArchiveTypeAssetRegistry.
	ArchiveType ArchiveType

	// TextTagsFirst overrides the tag store's text_first flag on
	// re-encode; when unset (nil) the value observed on ingress is kept
	// byte-faithfully (§4.6, §6).
	TextTagsFirst *bool

	// Logger receives advisory warnings (currently only the name batch's
	// hash version mismatch — §7). A no-op logger is used when nil.
	Logger *zap.Logger
}

func (o *Options) normalize() *Options {
	out := Options{}
	if o != nil {
		out = *o
	}
	if out.ByteOrder == nil {
		out.ByteOrder = binary.LittleEndian
	}
	if out.ArchiveType == 0 {
		out.ArchiveType = ArchiveTypeAssetRegistry
	}
	if out.Logger == nil {
		out.Logger = zap.NewNop()
	}
	return &out
}

// Registry is the fully decoded in-memory model of an asset registry file
// (§3): the interned name pool, the deduplicated tag value store, and the
// three record sections, plus the header and options that round-trip
// encoding needs to stay byte-faithful.
type Registry struct {
	Header       Header
	Pool         *NamePool
	Tags         *TagStore
	Assets       []*AssetData
	Dependencies []*Dependency
	Packages     []*PackageData

	opts *Options
	data mmap.MMap
	f    *os.File
	log  *zap.SugaredLogger
}

// Open memory-maps name and decodes it as a registry file.
func Open(name string, opts *Options) (*Registry, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	reg, err := NewBytes(data, opts)
	if err != nil {
		data.Unmap()
		f.Close()
		return nil, err
	}
	reg.data = data
	reg.f = f
	return reg, nil
}

// NewBytes decodes data as a registry file already held in memory.
func NewBytes(data []byte, opts *Options) (*Registry, error) {
	o := opts.normalize()
	reg := &Registry{opts: o, log: o.Logger.Sugar()}
	if err := reg.DecodeBinary(data); err != nil {
		return nil, err
	}
	return reg, nil
}

// Close releases any memory mapping Open created. A Registry built via
// NewBytes has nothing to release.
func (reg *Registry) Close() error {
	if reg.data != nil {
		_ = reg.data.Unmap()
	}
	if reg.f != nil {
		return reg.f.Close()
	}
	return nil
}

// DecodeBinary parses data into reg per the top-level pipeline in §4.6:
// header, name batch, tag store, assets, dependencies, packages, then an
// end-of-file assertion.
func (reg *Registry) DecodeBinary(data []byte) error {
	r := NewReader(data, reg.opts.ByteOrder)

	guid, err := r.GUIDValue()
	if err != nil {
		return err
	}
	rawVersion, err := r.U32()
	if err != nil {
		return err
	}
	version := RegistryVersion(rawVersion)

	header := Header{Guid: guid, Version: version}
	if version >= AddedHeader {
		b, err := r.Bool32()
		if err != nil {
			return err
		}
		header.FilterEditorOnly = b
	}
	reg.Header = header

	if version < RemovedMD5Hash {
		return ErrUnsupportedVersion
	}
	if version < FixedTags {
		return ErrLegacyTableArchive
	}
	if version != LatestVersion {
		return ErrNotImplemented
	}

	idc, err := NewIdentifierCodec(reg.opts.ArchiveType)
	if err != nil {
		return err
	}

	pool := NewNamePool()
	if err := ReadNameBatch(r, pool, reg.log); err != nil {
		return err
	}
	reg.Pool = pool

	tags, err := ReadTagStore(r, idc)
	if err != nil {
		return err
	}
	reg.Tags = tags

	assets, err := ReadAssetData(r, idc, version, header.FilterEditorOnly)
	if err != nil {
		return err
	}
	reg.Assets = assets

	deps, err := ReadDependencies(r, idc)
	if err != nil {
		return err
	}
	reg.Dependencies = deps

	pkgs, err := ReadPackages(r, idc, version)
	if err != nil {
		return err
	}
	reg.Packages = pkgs

	if !r.AtEOF() {
		return ErrTrailingBytes
	}
	return nil
}

// EncodeBinary mirrors DecodeBinary exactly (§4.6), preserving text_first
// as observed on ingress unless Options.TextTagsFirst overrides it.
func (reg *Registry) EncodeBinary() ([]byte, error) {
	w := NewWriter(reg.opts.ByteOrder)

	w.GUIDValue(reg.Header.Guid)
	w.U32(uint32(reg.Header.Version))
	if reg.Header.Version >= AddedHeader {
		w.Bool32(reg.Header.FilterEditorOnly)
	}

	idc, err := NewIdentifierCodec(reg.opts.ArchiveType)
	if err != nil {
		return nil, err
	}

	if err := WriteNameBatch(w, reg.Pool); err != nil {
		return nil, err
	}

	if reg.opts.TextTagsFirst != nil {
		reg.Tags.TextFirst = *reg.opts.TextTagsFirst
	}
	if err := WriteTagStore(w, idc, reg.Tags); err != nil {
		return nil, err
	}

	if err := WriteAssetData(w, idc, reg.Header.Version, reg.Header.FilterEditorOnly, reg.Pool, reg.Assets); err != nil {
		return nil, err
	}
	if err := WriteDependencies(w, idc, reg.Dependencies); err != nil {
		return nil, err
	}
	if err := WritePackages(w, idc, reg.Header.Version, reg.Packages); err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}
