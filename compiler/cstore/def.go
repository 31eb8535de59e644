package cstore

import (
	"fmt"
	"strings"

	"github.com/quill-lang/quill/compiler/diag"
)

// DefPathData is one segment of a definition path.
type DefPathData struct {
	Kind string `json:"kind"` // "crate-root", "mod", "type", "value", "macro", "field", "impl"
	Name string `json:"name"`
}

// DisambiguatedDefPathData is a path segment plus an index distinguishing
// same-named siblings (e.g. multiple impls in one module).
type DisambiguatedDefPathData struct {
	Data          DefPathData `json:"data"`
	Disambiguator uint32      `json:"disambiguator"`
}

// DefKey is the structural identity of one definition: its parent within the
// same crate plus its own disambiguated path segment.
type DefKey struct {
	// Parent is the DefIndex of the parent definition. The crate root has
	// HasParent false.
	Parent    DefIndex                 `json:"parent"`
	HasParent bool                     `json:"has_parent"`
	Data      DisambiguatedDefPathData `json:"data"`
}

// DefPath is the full path of a definition from its crate root, used for
// stable cross-session naming.
type DefPath struct {
	Crate CrateNum
	Data  []DisambiguatedDefPathData
}

// String renders the path with :: separators.
func (p DefPath) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%v", p.Crate)
	for _, seg := range p.Data {
		sb.WriteString("::")
		sb.WriteString(seg.Data.Name)
		if seg.Disambiguator != 0 {
			fmt.Fprintf(&sb, "#%d", seg.Disambiguator)
		}
	}
	return sb.String()
}

// Hash returns a stable fingerprint of the path, independent of how the
// session numbered the crate.
func (p DefPath) Hash(crateName string, crateDisambiguator string) Fingerprint {
	var sb strings.Builder
	sb.WriteString(crateName)
	sb.WriteByte(0)
	sb.WriteString(crateDisambiguator)
	for _, seg := range p.Data {
		fmt.Fprintf(&sb, "\x00%s\x00%s\x00%d", seg.Data.Kind, seg.Data.Name, seg.Disambiguator)
	}
	return FingerprintOfString(sb.String())
}

// DefPathTable holds the DefKey and path hash of every definition in one
// crate, indexed by DefIndex. Read-only once built.
type DefPathTable struct {
	Keys   []DefKey
	Hashes []Fingerprint
}

// DefKey returns the key for an index.
func (t *DefPathTable) DefKey(index DefIndex) DefKey {
	if int(index) >= len(t.Keys) {
		diag.Bugf("def path table: index %d out of range (%d entries)", index, len(t.Keys))
	}
	return t.Keys[index]
}

// Len returns the number of definitions in the table.
func (t *DefPathTable) Len() int { return len(t.Keys) }

// VisibilityKind discriminates Visibility.
type VisibilityKind int

const (
	// VisibilityPublic is visible everywhere.
	VisibilityPublic VisibilityKind = iota
	// VisibilityRestricted is visible only within the module identified by
	// Restricted.
	VisibilityRestricted
	// VisibilityInvisible is not nameable from other crates at all.
	VisibilityInvisible
)

// Visibility of a definition as recorded in crate metadata.
type Visibility struct {
	Kind       VisibilityKind
	Restricted DefId // meaningful only for VisibilityRestricted
}

// IsPublic reports unrestricted visibility.
func (v Visibility) IsPublic() bool { return v.Kind == VisibilityPublic }

// GenericParam is one generic parameter of an item.
type GenericParam struct {
	Name  string `json:"name"`
	Index int    `json:"index"`
	Kind  string `json:"kind"` // "type", "lifetime", "const"
}

// Generics describes the generic parameters of an item, including those
// inherited from a parent item.
type Generics struct {
	Parent      *DefId         `json:"parent,omitempty"`
	ParentCount int            `json:"parent_count"`
	Params      []GenericParam `json:"params"`
}

// Defaultness records whether an impl item is a default provided by the
// trait or a final definition.
type Defaultness int

const (
	DefaultnessFinal Defaultness = iota
	DefaultnessDefault
)

// AssocItemKind is the kind of a trait or impl member.
type AssocItemKind int

const (
	AssocFn AssocItemKind = iota
	AssocConst
	AssocType
)

// AssociatedItem is one member of a trait or impl.
type AssociatedItem struct {
	DefID     DefId
	Name      string
	Kind      AssocItemKind
	Container DefId
	Vis       Visibility
}

// ChildExport is one re-export or visible child of an item, as listed by
// ItemChildren.
type ChildExport struct {
	Name  string
	DefID DefId
	Span  diag.Span
}

// TraitImpl pairs an impl with the trait it implements.
type TraitImpl struct {
	Trait DefId
	Impl  DefId
}

// MacroDef is a source-form macro definition loaded from a foreign crate.
type MacroDef struct {
	Name string
	Body string
	Span diag.Span
}

// ProcMacro is a handle to a compiled procedural macro. The expansion
// machinery is elsewhere; the store only identifies the entry point.
type ProcMacro struct {
	Name       string
	SymbolName string
}

// LoadedMacroKind discriminates LoadedMacro.
type LoadedMacroKind int

const (
	LoadedMacroDef LoadedMacroKind = iota
	LoadedProcMacro
)

// LoadedMacro is the result of resolving a macro DefId: either a source-form
// definition to re-parse or a compiled procedural macro handle.
type LoadedMacro struct {
	Kind LoadedMacroKind
	Def  *MacroDef
	Proc *ProcMacro
}
