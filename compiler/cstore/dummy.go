package cstore

import "github.com/quill-lang/quill/compiler/diag"

// DummyStore is a crate store supporting no non-local crates. It is the
// reference for what "no dependencies" looks like and a test double for the
// contract shape: informational queries that cannot be answered without real
// data are unreachable and panic, collection queries return empty
// containers, boolean queries default to false or absent.
type DummyStore struct{}

var _ CrateStore = DummyStore{}

func (DummyStore) MetadataLoaderRef() MetadataLoader {
	diag.Bugf("metadata_loader")
	return nil
}

// Item info.

func (DummyStore) Visibility(def DefId) Visibility {
	diag.Bugf("visibility")
	return Visibility{}
}

func (DummyStore) ItemGenerics(def DefId) Generics {
	diag.Bugf("item_generics")
	return Generics{}
}

func (DummyStore) AssociatedItem(def DefId) AssociatedItem {
	diag.Bugf("associated_item")
	return AssociatedItem{}
}

func (DummyStore) ImplDefaultness(def DefId) Defaultness {
	diag.Bugf("impl_defaultness")
	return DefaultnessFinal
}

func (DummyStore) StructFieldNames(def DefId) []string {
	diag.Bugf("struct_field_names")
	return nil
}

func (DummyStore) ItemChildren(def DefId) []ChildExport {
	diag.Bugf("item_children")
	return nil
}

func (DummyStore) ItemBody(def DefId) *Body {
	diag.Bugf("item_body")
	return nil
}

func (DummyStore) VisibleParentMap() map[DefId]DefId {
	diag.Bugf("visible_parent_map")
	return nil
}

// Trait info.

func (DummyStore) ImplementationsOfTrait(filter *DefId) []DefId { return []DefId{} }

// Foreign item flags.

func (DummyStore) IsDllimportForeignItem(def DefId) bool          { return false }
func (DummyStore) IsStaticallyIncludedForeignItem(def DefId) bool { return false }

// Crate metadata.

func (DummyStore) DepKind(cnum CrateNum) DepKind {
	diag.Bugf("dep_kind")
	return DepKindExplicit
}

func (DummyStore) CrateName(cnum CrateNum) string {
	diag.Bugf("crate_name")
	return ""
}

func (DummyStore) OriginalCrateName(cnum CrateNum) string {
	diag.Bugf("original_crate_name")
	return ""
}

func (DummyStore) CrateHash(cnum CrateNum) Fingerprint {
	diag.Bugf("crate_hash")
	return 0
}

func (DummyStore) CrateDisambiguator(cnum CrateNum) string {
	diag.Bugf("crate_disambiguator")
	return ""
}

func (DummyStore) PanicStrategy(cnum CrateNum) PanicStrategy {
	diag.Bugf("panic_strategy")
	return PanicUnwind
}

func (DummyStore) IsNoBuiltins(cnum CrateNum) bool {
	diag.Bugf("is_no_builtins")
	return false
}

func (DummyStore) IsCompilerBuiltins(cnum CrateNum) bool {
	diag.Bugf("is_compiler_builtins")
	return false
}

func (DummyStore) IsSanitizerRuntime(cnum CrateNum) bool {
	diag.Bugf("is_sanitizer_runtime")
	return false
}

func (DummyStore) IsProfilerRuntime(cnum CrateNum) bool {
	diag.Bugf("is_profiler_runtime")
	return false
}

func (DummyStore) PluginRegistrarFn(cnum CrateNum) (DefId, bool) {
	diag.Bugf("plugin_registrar_fn")
	return DefId{}, false
}

func (DummyStore) DeriveRegistrarFn(cnum CrateNum) (DefId, bool) {
	diag.Bugf("derive_registrar_fn")
	return DefId{}, false
}

func (DummyStore) ExportedSymbols(cnum CrateNum) []DefId {
	diag.Bugf("exported_symbols")
	return nil
}

// Macro info.

func (DummyStore) LoadMacro(def DefId) LoadedMacro {
	diag.Bugf("load_macro")
	return LoadedMacro{}
}

func (DummyStore) ExportMacros(cnum CrateNum) { diag.Bugf("export_macros") }

// Structural path identity.

func (DummyStore) DefKey(def DefId) DefKey {
	diag.Bugf("def_key")
	return DefKey{}
}

func (DummyStore) DefPath(def DefId) DefPath {
	diag.Bugf("def_path")
	return DefPath{}
}

func (DummyStore) DefPathHash(def DefId) Fingerprint {
	diag.Bugf("def_path_hash")
	return 0
}

func (DummyStore) DefPathTable(cnum CrateNum) *DefPathTable {
	diag.Bugf("def_path_table")
	return nil
}

// Native linking info.

func (DummyStore) NativeLibraries(cnum CrateNum) []NativeLibrary {
	diag.Bugf("native_libraries")
	return nil
}

func (DummyStore) UsedLibraries() []NativeLibrary { return []NativeLibrary{} }
func (DummyStore) UsedLinkArgs() []string         { return []string{} }

func (DummyStore) UsedCrates(prefer LinkagePreference) []UsedCrate { return []UsedCrate{} }

func (DummyStore) UsedCrateSource(cnum CrateNum) CrateSource {
	diag.Bugf("used_crate_source")
	return CrateSource{}
}

// Graph utility.

func (DummyStore) Crates() []CrateNum { return []CrateNum{} }

func (DummyStore) ExternModStmtCnum(id NodeID) (CrateNum, bool) { return 0, false }

// Encoding.

func (DummyStore) EncodeMetadata(local *LocalCrateState, linkMeta LinkMeta, reachable map[NodeID]bool) EncodedMetadata {
	diag.Bugf("encode_metadata")
	return EncodedMetadata{}
}

func (DummyStore) MetadataEncodingVersion() []byte {
	diag.Bugf("metadata_encoding_version")
	return nil
}
