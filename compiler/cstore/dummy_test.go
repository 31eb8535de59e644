package cstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDummyStoreEmptyCollections(t *testing.T) {
	var s CrateStore = DummyStore{}

	assert.Empty(t, s.Crates())
	assert.Empty(t, s.ImplementationsOfTrait(nil))
	assert.Empty(t, s.UsedCrates(RequireDynamic))
	assert.Empty(t, s.UsedLibraries())
	assert.Empty(t, s.UsedLinkArgs())
}

func TestDummyStoreBooleanDefaults(t *testing.T) {
	s := DummyStore{}

	assert.False(t, s.IsDllimportForeignItem(DefId{Crate: 1, Index: 1}))
	assert.False(t, s.IsStaticallyIncludedForeignItem(DefId{Crate: 1, Index: 1}))

	_, ok := s.ExternModStmtCnum(1)
	assert.False(t, ok)
}

func TestDummyStoreInformationalQueriesAreBugs(t *testing.T) {
	s := DummyStore{}
	def := DefId{Crate: 1, Index: 1}

	cases := map[string]func(){
		"metadata_loader":           func() { s.MetadataLoaderRef() },
		"visibility":                func() { s.Visibility(def) },
		"item_generics":             func() { s.ItemGenerics(def) },
		"associated_item":           func() { s.AssociatedItem(def) },
		"impl_defaultness":          func() { s.ImplDefaultness(def) },
		"struct_field_names":        func() { s.StructFieldNames(def) },
		"item_children":             func() { s.ItemChildren(def) },
		"item_body":                 func() { s.ItemBody(def) },
		"visible_parent_map":        func() { s.VisibleParentMap() },
		"dep_kind":                  func() { s.DepKind(1) },
		"crate_name":                func() { s.CrateName(1) },
		"original_crate_name":       func() { s.OriginalCrateName(1) },
		"crate_hash":                func() { s.CrateHash(1) },
		"crate_disambiguator":       func() { s.CrateDisambiguator(1) },
		"panic_strategy":            func() { s.PanicStrategy(1) },
		"is_no_builtins":            func() { s.IsNoBuiltins(1) },
		"is_compiler_builtins":      func() { s.IsCompilerBuiltins(1) },
		"is_sanitizer_runtime":      func() { s.IsSanitizerRuntime(1) },
		"is_profiler_runtime":       func() { s.IsProfilerRuntime(1) },
		"plugin_registrar_fn":       func() { s.PluginRegistrarFn(1) },
		"derive_registrar_fn":       func() { s.DeriveRegistrarFn(1) },
		"exported_symbols":          func() { s.ExportedSymbols(1) },
		"load_macro":                func() { s.LoadMacro(def) },
		"export_macros":             func() { s.ExportMacros(1) },
		"def_key":                   func() { s.DefKey(def) },
		"def_path":                  func() { s.DefPath(def) },
		"def_path_hash":             func() { s.DefPathHash(def) },
		"def_path_table":            func() { s.DefPathTable(1) },
		"native_libraries":          func() { s.NativeLibraries(1) },
		"used_crate_source":         func() { s.UsedCrateSource(1) },
		"encode_metadata":           func() { s.EncodeMetadata(nil, LinkMeta{}, nil) },
		"metadata_encoding_version": func() { s.MetadataEncodingVersion() },
	}

	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			defer func() {
				r := recover()
				assert.NotNil(t, r, "query %s must be unreachable", name)
				if msg, ok := r.(string); ok {
					assert.Contains(t, msg, name)
				}
			}()
			fn()
		})
	}
}
