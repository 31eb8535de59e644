package cstore

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// metadataVersion is the fixed format-version prefix on every encoded
// metadata blob. A consumer whose expected version differs must reject the
// blob rather than attempt a partial decode.
var metadataVersion = []byte("qmeta\x00\x02")

// MetadataVersion returns the format-version tag. The returned slice is a
// copy; the tag itself never changes within a build.
func MetadataVersion() []byte {
	out := make([]byte, len(metadataVersion))
	copy(out, metadataVersion)
	return out
}

// LinkMeta carries the whole-crate content hash, distinct from the per-item
// hashes, used to compute the crate's overall disambiguating fingerprint.
type LinkMeta struct {
	CrateHash Fingerprint
}

// EncodedMetadataHash is the stable content hash of one exported definition.
// Downstream incremental compilation compares these to detect "this item's
// semantics did not change" without comparing full metadata blobs.
type EncodedMetadataHash struct {
	DefIndex DefIndex    `json:"def_index"`
	Hash     Fingerprint `json:"hash"`
}

// EncodedMetadata is the opaque serialized payload for a compiled crate plus
// the content hashes of its exported items. Never mutated after creation.
type EncodedMetadata struct {
	RawData []byte
	Hashes  []EncodedMetadataHash
}

// NewEncodedMetadata returns the empty state: zero-length payload, no hashes.
func NewEncodedMetadata() EncodedMetadata {
	return EncodedMetadata{}
}

// ExportedItem is one item of the local crate's exportable surface, as
// handed to EncodeMetadata by the reachability pass. Body is the item's
// encoded compiled body, when it has one.
type ExportedItem struct {
	Node      NodeID          `json:"-"`
	Index     DefIndex        `json:"index"`
	Name      string          `json:"name"`
	Kind      string          `json:"kind"`
	Signature string          `json:"signature"`
	Body      json.RawMessage `json:"body,omitempty"`
}

// contentHash is the per-item fingerprint. It depends only on the item's
// own content, never on its position in the export list.
func (it ExportedItem) contentHash() Fingerprint {
	return FingerprintOfString(fmt.Sprintf("%d\x00%s\x00%s\x00%s\x00%s",
		uint32(it.Index), it.Name, it.Kind, it.Signature, it.Body))
}

// LocalCrateState is the slice of current-session state EncodeMetadata
// needs: the identity of the crate being compiled and its exportable items.
type LocalCrateState struct {
	Name          string
	Disambiguator string
	PanicStrategy PanicStrategy
	Exports       []ExportedItem
}

// NewLocalCrateState seeds the identity of the crate being compiled with a
// fresh disambiguator, so two builds of the same crate name stay distinct in
// a dependency graph.
func NewLocalCrateState(name string, strategy PanicStrategy) *LocalCrateState {
	return &LocalCrateState{
		Name:          name,
		Disambiguator: FreshDisambiguator(),
		PanicStrategy: strategy,
	}
}

// FreshDisambiguator generates a random per-session crate disambiguator.
func FreshDisambiguator() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// DepEntry is one dependency edge recorded in encoded metadata.
type DepEntry struct {
	Name          string      `json:"name"`
	Hash          Fingerprint `json:"hash"`
	Disambiguator string      `json:"disambiguator"`
	Kind          DepKind     `json:"kind"`
}

// MetadataRoot is the decoded form of a metadata blob. The loader produces
// the raw bytes; the store decodes and serves queries from them.
type MetadataRoot struct {
	Name          string          `json:"name"`
	Disambiguator string          `json:"disambiguator"`
	CrateHash     Fingerprint     `json:"crate_hash"`
	PanicStrategy PanicStrategy   `json:"panic_strategy"`
	Deps          []DepEntry      `json:"deps,omitempty"`
	NativeLibs    []NativeLibrary `json:"native_libs,omitempty"`
	LinkArgs      []string        `json:"link_args,omitempty"`
	Exports       []ExportedItem  `json:"exports,omitempty"`
}

// encodeRoot serializes a MetadataRoot: deterministic JSON, gzip, then the
// version prefix. Exports are sorted by def index first so two encodings of
// the same surface are byte-identical.
func encodeRoot(root *MetadataRoot) ([]byte, error) {
	sort.Slice(root.Exports, func(i, j int) bool { return root.Exports[i].Index < root.Exports[j].Index })
	sort.Slice(root.Deps, func(i, j int) bool { return root.Deps[i].Name < root.Deps[j].Name })
	SortNativeLibraries(root.NativeLibs)

	data, err := json.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize metadata: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(metadataVersion)
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}
	if _, err := zw.Write(data); err != nil {
		_ = zw.Close()
		return nil, fmt.Errorf("failed to compress metadata: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeMetadata parses a metadata blob produced by EncodeMetadata. The
// version prefix is checked before anything else; a mismatch is an error,
// never a partial decode.
func DecodeMetadata(blob []byte) (*MetadataRoot, error) {
	if len(blob) < len(metadataVersion) || !bytes.Equal(blob[:len(metadataVersion)], metadataVersion) {
		return nil, fmt.Errorf("incompatible metadata version, expected %q", metadataVersion)
	}
	zr, err := gzip.NewReader(bytes.NewReader(blob[len(metadataVersion):]))
	if err != nil {
		return nil, fmt.Errorf("malformed metadata payload: %w", err)
	}
	defer zr.Close()
	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("malformed metadata payload: %w", err)
	}
	var root MetadataRoot
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("malformed metadata payload: %w", err)
	}
	return &root, nil
}
