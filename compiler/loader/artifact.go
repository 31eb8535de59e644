// Package loader resolves `extern crate` references: it validates crate
// names, locates built artifacts on the configured search paths, extracts
// their metadata sections, and registers the resulting crates in the session
// store. It implements both capability interfaces of the cstore contract,
// MetadataLoader and CrateLoader.
package loader

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/spf13/afero"

	"github.com/quill-lang/quill/compiler/cstore"
)

// Artifact container layout: an 8-byte magic identifying the form, a 4-byte
// big-endian payload length, then the metadata payload. The payload itself
// is opaque here; version checking belongs to the metadata decoder.
var (
	dynlibMagic  = []byte("QSOMETA\x00")
	archiveMagic = []byte("QARMETA\x00")
)

const headerLen = 12

// ArtifactLoader extracts metadata sections from built crate artifacts. It
// reads through an afero filesystem so tests can run against an in-memory
// tree. Failures are descriptive errors, never fatal: a missing or
// malformed artifact just means the caller tries the next candidate.
type ArtifactLoader struct {
	fs afero.Fs
}

var _ cstore.MetadataLoader = (*ArtifactLoader)(nil)

// NewArtifactLoader creates a loader over fs. A nil fs defaults to the OS
// filesystem.
func NewArtifactLoader(fs afero.Fs) *ArtifactLoader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &ArtifactLoader{fs: fs}
}

// DynLibMetadata implements cstore.MetadataLoader.
func (a *ArtifactLoader) DynLibMetadata(target cstore.Target, filename string) ([]byte, error) {
	return a.extract(filename, dynlibMagic, "dynamic library")
}

// ArchiveMetadata implements cstore.MetadataLoader.
func (a *ArtifactLoader) ArchiveMetadata(target cstore.Target, filename string) ([]byte, error) {
	return a.extract(filename, archiveMagic, "static archive")
}

func (a *ArtifactLoader) extract(filename string, magic []byte, form string) ([]byte, error) {
	data, err := afero.ReadFile(a.fs, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s %s: %v", form, filename, err)
	}
	if len(data) < headerLen || !bytes.Equal(data[:len(magic)], magic) {
		return nil, fmt.Errorf("%s %s has no metadata section", form, filename)
	}
	n := binary.BigEndian.Uint32(data[len(magic):headerLen])
	if int(n) != len(data)-headerLen {
		return nil, fmt.Errorf("%s %s has a malformed metadata section", form, filename)
	}
	return data[headerLen:], nil
}

// PackDynLib wraps a metadata payload in the dynamic library container.
func PackDynLib(payload []byte) []byte { return pack(dynlibMagic, payload) }

// PackArchive wraps a metadata payload in the static archive container.
func PackArchive(payload []byte) []byte { return pack(archiveMagic, payload) }

func pack(magic, payload []byte) []byte {
	out := make([]byte, 0, headerLen+len(payload))
	out = append(out, magic...)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	out = append(out, lenBuf[:]...)
	return append(out, payload...)
}
