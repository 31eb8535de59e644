// Package cstore is the boundary the Quill front end uses to resolve, query,
// and link against the compiled output of other, already-built crates.
//
// The CrateStore contract answers questions such as: what did crate X
// export, what macros does it provide, which native libraries must be
// linked, and what is the stable content hash of a given exported item. It
// represents partial, lazily-loaded, foreign-produced information with
// strict identity guarantees while staying agnostic to how that information
// was physically produced.
package cstore

// Target describes the build target metadata artifacts were produced for.
type Target struct {
	Triple string
}

// UsedCrate pairs a crate with the library source actually selected for it
// under a linkage preference.
type UsedCrate struct {
	Crate CrateNum
	Lib   LibSource
}

// MetadataLoader is the narrow capability for turning a located artifact
// path into an opaque byte blob. The store never interprets artifact bytes
// itself; it forwards this capability to the decoder it wraps.
//
// A missing or malformed artifact is an ordinary error value, not a fatal
// abort: the caller may have further candidate search paths to try.
type MetadataLoader interface {
	// DynLibMetadata extracts the metadata section embedded in a dynamic
	// library artifact.
	DynLibMetadata(target Target, filename string) ([]byte, error)
	// ArchiveMetadata extracts the metadata section embedded in a static
	// archive artifact.
	ArchiveMetadata(target Target, filename string) ([]byte, error)
}

// CrateStore is the query contract over the session's loaded crates.
//
// Every query taking a CrateNum or DefId assumes the identity was observed
// from this session's crate graph; querying an unknown identity is an
// internal invariant violation and panics via diag.Bugf. It is never a
// user-facing error.
//
// The contract is read-mostly and safe for concurrent queries. ExportMacros
// and EncodeMetadata are the only operations with observable side effects
// and occur at phase boundaries, not interleaved with arbitrary queries.
type CrateStore interface {
	// MetadataLoaderRef exposes the loader capability the store was built
	// with.
	MetadataLoaderRef() MetadataLoader

	// Item info.
	Visibility(def DefId) Visibility
	ItemGenerics(def DefId) Generics
	AssociatedItem(def DefId) AssociatedItem
	ImplDefaultness(def DefId) Defaultness
	StructFieldNames(def DefId) []string
	// ItemChildren lists the re-exports and visible children of an item.
	ItemChildren(def DefId) []ChildExport
	// ItemBody fetches a fully-typed compiled body. Expensive: triggers
	// lazy full decode of that one item, cached thereafter.
	ItemBody(def DefId) *Body

	// VisibleParentMap maps every definition to the most visible definition
	// that can see it. Computed lazily once per session; callers must treat
	// the returned map as read-only.
	VisibleParentMap() map[DefId]DefId

	// Trait info. With a nil filter, every known trait impl across the
	// loaded crate graph is returned; with a trait DefId, only impls of
	// that trait. Order is deterministic across repeated calls within one
	// session: defining crate load order, then def index.
	ImplementationsOfTrait(filter *DefId) []DefId

	// Foreign item flags.
	IsDllimportForeignItem(def DefId) bool
	IsStaticallyIncludedForeignItem(def DefId) bool

	// Crate identity and linkage.
	DepKind(cnum CrateNum) DepKind
	CrateName(cnum CrateNum) string
	// OriginalCrateName is the name stored in the crate's own metadata,
	// before any `extern crate ... as` rename.
	OriginalCrateName(cnum CrateNum) string
	CrateHash(cnum CrateNum) Fingerprint
	CrateDisambiguator(cnum CrateNum) string
	PanicStrategy(cnum CrateNum) PanicStrategy
	IsNoBuiltins(cnum CrateNum) bool
	IsCompilerBuiltins(cnum CrateNum) bool
	IsSanitizerRuntime(cnum CrateNum) bool
	IsProfilerRuntime(cnum CrateNum) bool
	PluginRegistrarFn(cnum CrateNum) (DefId, bool)
	DeriveRegistrarFn(cnum CrateNum) (DefId, bool)
	// ExportedSymbols lists the definitions a crate exposes for linking.
	ExportedSymbols(cnum CrateNum) []DefId

	// Macro info. ExportMacros marks a crate's macros for re-export in the
	// current crate's own emitted metadata; it is a registration side
	// effect, not a pure query.
	LoadMacro(def DefId) LoadedMacro
	ExportMacros(cnum CrateNum)

	// Structural path identity.
	DefKey(def DefId) DefKey
	DefPath(def DefId) DefPath
	DefPathHash(def DefId) Fingerprint
	DefPathTable(cnum CrateNum) *DefPathTable

	// Native linking info.
	NativeLibraries(cnum CrateNum) []NativeLibrary
	UsedLibraries() []NativeLibrary
	UsedLinkArgs() []string
	// UsedCrates resolves, per linkable crate, the library source selected
	// under the given preference. A crate offering no source for the
	// preference yields LibSourceNone, not an error.
	UsedCrates(prefer LinkagePreference) []UsedCrate
	UsedCrateSource(cnum CrateNum) CrateSource

	// Graph utility. Crates returns every loaded crate in load order.
	Crates() []CrateNum
	// ExternModStmtCnum maps a local `extern crate` statement back to the
	// crate it resolved to.
	ExternModStmtCnum(id NodeID) (CrateNum, bool)

	// EncodeMetadata serializes the current crate's own exportable surface,
	// computing one EncodedMetadataHash per reachable exported item. The
	// one mutating, expensive operation of the contract.
	EncodeMetadata(local *LocalCrateState, linkMeta LinkMeta, reachable map[NodeID]bool) EncodedMetadata
	// MetadataEncodingVersion reports the fixed format-version tag checked
	// by any loader before interpreting encoded bytes.
	MetadataEncodingVersion() []byte
}

// CrateLoader is the hook item resolution drives while walking a
// compilation unit: ProcessItem once per top-level item as discovered, then
// Postprocess exactly once after the whole item tree has been walked. Every
// ProcessItem call for a unit precedes its Postprocess call.
type CrateLoader interface {
	ProcessItem(item Item, defs *Definitions)
	Postprocess(krate *Crate)
}
