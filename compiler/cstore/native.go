package cstore

import (
	"fmt"
	"sort"
	"strings"
)

// NativeLibraryKind classifies a linked native (non-Quill) library.
// The variants are ordered so link lines can be emitted deterministically.
type NativeLibraryKind int

const (
	// NativeStatic is a native static archive bundled into produced .qar files.
	NativeStatic NativeLibraryKind = iota
	// NativeStaticNobundle is a native static archive that is not bundled.
	NativeStaticNobundle
	// NativeFramework is a macOS framework.
	NativeFramework
	// NativeUnknown is the default way to specify a dynamic library.
	NativeUnknown
)

func (k NativeLibraryKind) String() string {
	switch k {
	case NativeStatic:
		return "static"
	case NativeStaticNobundle:
		return "static-nobundle"
	case NativeFramework:
		return "framework"
	case NativeUnknown:
		return "dylib"
	default:
		return fmt.Sprintf("NativeLibraryKind(%d)", int(k))
	}
}

// NativeLibrary describes one native library a crate links against: its
// symbolic name, an optional cfg predicate gating inclusion, and the foreign
// item definitions it backs.
type NativeLibrary struct {
	Kind         NativeLibraryKind `json:"kind"`
	Name         string            `json:"name"`
	Cfg          string            `json:"cfg,omitempty"` // empty means unconditional
	ForeignItems []DefIndex        `json:"foreign_items,omitempty"`
}

// Compare orders libraries by kind, then name, then cfg. Used for
// deterministic link-line ordering.
func (l NativeLibrary) Compare(o NativeLibrary) int {
	if l.Kind != o.Kind {
		if l.Kind < o.Kind {
			return -1
		}
		return 1
	}
	if c := strings.Compare(l.Name, o.Name); c != 0 {
		return c
	}
	return strings.Compare(l.Cfg, o.Cfg)
}

// Fingerprint hashes the library descriptor. Foreign items are sorted first
// so the value does not depend on registration order.
func (l NativeLibrary) Fingerprint() Fingerprint {
	items := make([]DefIndex, len(l.ForeignItems))
	copy(items, l.ForeignItems)
	sort.Slice(items, func(i, j int) bool { return items[i] < items[j] })

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d\x00%s\x00%s\x00", int(l.Kind), l.Name, l.Cfg)
	for _, it := range items {
		fmt.Fprintf(&sb, "%d,", uint32(it))
	}
	return FingerprintOfString(sb.String())
}

// SortNativeLibraries sorts in place by Compare.
func SortNativeLibraries(libs []NativeLibrary) {
	sort.Slice(libs, func(i, j int) bool { return libs[i].Compare(libs[j]) < 0 })
}
