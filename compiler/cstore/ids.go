package cstore

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// CrateNum identifies one loaded crate within the current compilation
// session. Foreign crates are numbered densely from 1 in load order; numbers
// are never reused because crates are never unloaded mid-session.
type CrateNum uint32

// LocalCrate is the crate currently being compiled.
const LocalCrate CrateNum = 0

// IsLocal returns true for the crate currently being compiled.
func (c CrateNum) IsLocal() bool { return c == LocalCrate }

func (c CrateNum) String() string { return fmt.Sprintf("crate%d", uint32(c)) }

// DefIndex identifies a definition within a single crate.
type DefIndex uint32

// DefId identifies a single definition anywhere in the crate graph, local or
// foreign. Two DefIds are equal iff both components match; the type is
// comparable and usable as a map key.
type DefId struct {
	Crate CrateNum
	Index DefIndex
}

func (d DefId) String() string {
	return fmt.Sprintf("%v:%d", d.Crate, uint32(d.Index))
}

// NodeID identifies a node in the current crate's source-level item tree.
// It is only meaningful for the local crate.
type NodeID uint32

// Fingerprint is a stable content hash. Equal fingerprints mean "semantics
// did not change" for incremental compilation, so the value must depend only
// on content, never on iteration or allocation order.
type Fingerprint uint64

// FingerprintOf hashes a byte slice.
func FingerprintOf(data []byte) Fingerprint {
	return Fingerprint(xxhash.Sum64(data))
}

// FingerprintOfString hashes a string.
func FingerprintOfString(s string) Fingerprint {
	return Fingerprint(xxhash.Sum64String(s))
}

// Combine mixes another fingerprint into this one. The operation is not
// commutative; callers that need order independence must sort first.
func (f Fingerprint) Combine(other Fingerprint) Fingerprint {
	var buf [16]byte
	putUint64(buf[:8], uint64(f))
	putUint64(buf[8:], uint64(other))
	return FingerprintOf(buf[:])
}

func (f Fingerprint) String() string { return fmt.Sprintf("%016x", uint64(f)) }

func putUint64(b []byte, v uint64) {
	_ = b[7]
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	b[4] = byte(v >> 32)
	b[5] = byte(v >> 40)
	b[6] = byte(v >> 48)
	b[7] = byte(v >> 56)
}
