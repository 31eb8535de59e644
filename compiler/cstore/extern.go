package cstore

import "github.com/quill-lang/quill/compiler/diag"

// ExternCrate records why a crate is in the session's graph: the definition
// whose `extern crate` caused it to load, where that reference was written,
// and how direct the route to it is. When several import routes reach the
// same crate, the most direct and nearest one wins.
type ExternCrate struct {
	// DefID is a definition in the current crate whose `extern crate`
	// caused this crate to be loaded. There may be several such
	// definitions; one is recorded.
	DefID DefId

	// Span of the extern crate reference that caused the load.
	Span diag.Span

	// Direct is true when this crate is the one named by the extern crate
	// reference, false when it was pulled in as a dependency of it.
	Direct bool

	// PathLen is the number of links from the current crate to this one.
	// Used to select the extern crate with the shortest path.
	PathLen int
}

// Better reports whether e should replace old as the recorded route to a
// crate: direct routes beat indirect ones, then shorter paths beat longer.
func (e ExternCrate) Better(old ExternCrate) bool {
	if e.Direct != old.Direct {
		return e.Direct
	}
	return e.PathLen < old.PathLen
}
