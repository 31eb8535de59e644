package cstore

import "github.com/quill-lang/quill/compiler/diag"

// ItemKind is the kind of a top-level source item, in the minimal detail the
// crate loader needs.
type ItemKind int

const (
	ItemExternCrate ItemKind = iota
	ItemFn
	ItemStruct
	ItemTrait
	ItemImpl
	ItemMod
	ItemMacroDef
	ItemOther
)

// Item is one top-level item of the crate currently being compiled, as
// handed to the crate loader by item resolution.
type Item struct {
	ID   NodeID
	Kind ItemKind
	Name string
	// OrigName is the crate name before an `as` rename on an extern crate
	// item; empty when the item was not renamed.
	OrigName string
	Span     diag.Span
}

// CrateName returns the name the crate is stored under on disk, which is the
// pre-rename name when a rename is present.
func (it Item) CrateName() string {
	if it.OrigName != "" {
		return it.OrigName
	}
	return it.Name
}

// Crate is the item tree of the compilation unit being walked.
type Crate struct {
	Items []Item
}

// Definitions allocates DefIndexes for items of the local crate. Indexes are
// dense and stable for the session's lifetime. Index 0 is reserved for the
// crate root.
type Definitions struct {
	byNode map[NodeID]DefIndex
	next   DefIndex
}

// NewDefinitions creates an empty local definition table.
func NewDefinitions() *Definitions {
	return &Definitions{byNode: make(map[NodeID]DefIndex), next: 1}
}

// Create allocates (or returns the existing) DefIndex for a source node.
func (d *Definitions) Create(node NodeID) DefIndex {
	if idx, ok := d.byNode[node]; ok {
		return idx
	}
	idx := d.next
	d.next++
	d.byNode[node] = idx
	return idx
}

// Lookup returns the DefIndex previously allocated for a node.
func (d *Definitions) Lookup(node NodeID) (DefIndex, bool) {
	idx, ok := d.byNode[node]
	return idx, ok
}

// Len returns the number of allocated definitions.
func (d *Definitions) Len() int { return len(d.byNode) }
