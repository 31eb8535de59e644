package cstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localState(exports ...ExportedItem) *LocalCrateState {
	return &LocalCrateState{
		Name:          "app",
		Disambiguator: "d1s4mb",
		PanicStrategy: PanicUnwind,
		Exports:       exports,
	}
}

func hashSet(hashes []EncodedMetadataHash) map[DefIndex]Fingerprint {
	m := make(map[DefIndex]Fingerprint, len(hashes))
	for _, h := range hashes {
		m[h.DefIndex] = h.Hash
	}
	return m
}

func TestMetadataVersionConstant(t *testing.T) {
	v1 := MetadataVersion()
	v2 := MetadataVersion()
	require.NotEmpty(t, v1)
	assert.Equal(t, v1, v2)

	// The returned slice is a copy; mutating it must not corrupt the tag.
	v1[0] = 'x'
	assert.Equal(t, v2, MetadataVersion())
}

func TestEncodeMetadataDeterministic(t *testing.T) {
	exports := []ExportedItem{
		{Node: 10, Index: 1, Name: "parse", Kind: "value", Signature: "fn(string) -> Ast"},
		{Node: 11, Index: 2, Name: "Ast", Kind: "type", Signature: "struct"},
		{Node: 12, Index: 3, Name: "dump", Kind: "value", Signature: "fn(Ast)"},
	}
	reachable := map[NodeID]bool{10: true, 11: true, 12: true}
	linkMeta := LinkMeta{CrateHash: FingerprintOfString("app-contents")}

	store := NewStore(nil)
	first := store.EncodeMetadata(localState(exports...), linkMeta, reachable)

	// Same state again, exports presented in a different order.
	shuffled := []ExportedItem{exports[2], exports[0], exports[1]}
	second := store.EncodeMetadata(localState(shuffled...), linkMeta, reachable)

	assert.Equal(t, first.RawData, second.RawData)
	assert.Equal(t, hashSet(first.Hashes), hashSet(second.Hashes))
	require.Len(t, first.Hashes, 3)
}

func TestEncodeMetadataFiltersByReachability(t *testing.T) {
	exports := []ExportedItem{
		{Node: 10, Index: 1, Name: "pub_fn", Kind: "value"},
		{Node: 11, Index: 2, Name: "dead_fn", Kind: "value"},
	}
	store := NewStore(nil)
	enc := store.EncodeMetadata(localState(exports...), LinkMeta{}, map[NodeID]bool{10: true})

	require.Len(t, enc.Hashes, 1)
	assert.Equal(t, DefIndex(1), enc.Hashes[0].DefIndex)

	root, err := DecodeMetadata(enc.RawData)
	require.NoError(t, err)
	require.Len(t, root.Exports, 1)
	assert.Equal(t, "pub_fn", root.Exports[0].Name)
}

func TestEncodeMetadataHashTracksContent(t *testing.T) {
	store := NewStore(nil)
	a := store.EncodeMetadata(
		localState(ExportedItem{Node: 1, Index: 1, Name: "f", Kind: "value", Signature: "fn()"}),
		LinkMeta{}, map[NodeID]bool{1: true})
	b := store.EncodeMetadata(
		localState(ExportedItem{Node: 1, Index: 1, Name: "f", Kind: "value", Signature: "fn(int)"}),
		LinkMeta{}, map[NodeID]bool{1: true})

	assert.NotEqual(t, hashSet(a.Hashes)[1], hashSet(b.Hashes)[1],
		"signature change must change the content hash")
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	store := NewStore(nil)
	store.AddUsedLibrary(NativeLibrary{Kind: NativeStatic, Name: "m"})
	store.AddUsedLinkArgs("-lfoo")

	local := localState(ExportedItem{Node: 1, Index: 1, Name: "f", Kind: "value"})
	linkMeta := LinkMeta{CrateHash: FingerprintOfString("whole-crate")}
	enc := store.EncodeMetadata(local, linkMeta, map[NodeID]bool{1: true})

	root, err := DecodeMetadata(enc.RawData)
	require.NoError(t, err)
	assert.Equal(t, "app", root.Name)
	assert.Equal(t, "d1s4mb", root.Disambiguator)
	assert.Equal(t, linkMeta.CrateHash, root.CrateHash)
	require.Len(t, root.NativeLibs, 1)
	assert.Equal(t, []string{"-lfoo"}, root.LinkArgs)
}

func TestDecodeMetadataRejectsWrongVersion(t *testing.T) {
	store := NewStore(nil)
	enc := store.EncodeMetadata(localState(), LinkMeta{}, nil)

	blob := append([]byte(nil), enc.RawData...)
	blob[0] ^= 0xff
	_, err := DecodeMetadata(blob)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incompatible metadata version")

	_, err = DecodeMetadata([]byte{1, 2})
	require.Error(t, err)
}

func TestDecodeMetadataRejectsTruncatedPayload(t *testing.T) {
	store := NewStore(nil)
	enc := store.EncodeMetadata(localState(), LinkMeta{}, nil)

	blob := enc.RawData[:len(enc.RawData)-3]
	_, err := DecodeMetadata(blob)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed metadata payload")
}

func TestNewLocalCrateState(t *testing.T) {
	a := NewLocalCrateState("app", PanicAbort)
	b := NewLocalCrateState("app", PanicAbort)

	assert.Equal(t, "app", a.Name)
	assert.Equal(t, PanicAbort, a.PanicStrategy)
	assert.NotEmpty(t, a.Disambiguator)
	assert.NotContains(t, a.Disambiguator, "-")
	assert.NotEqual(t, a.Disambiguator, b.Disambiguator,
		"each session gets its own disambiguator")
}

func TestNewEncodedMetadataEmpty(t *testing.T) {
	enc := NewEncodedMetadata()
	assert.Empty(t, enc.RawData)
	assert.Empty(t, enc.Hashes)
}
