package cstore

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// expectBug asserts that fn panics with an internal compiler error.
func expectBug(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected an internal compiler error")
		msg, ok := r.(string)
		require.True(t, ok, "unexpected panic value %T", r)
		assert.True(t, strings.HasPrefix(msg, "internal compiler error:"), "got %q", msg)
	}()
	fn()
}

func testSource(t *testing.T, dynlib, archive, meta string) CrateSource {
	t.Helper()
	var d, a, m *CrateLocation
	if dynlib != "" {
		d = &CrateLocation{Path: dynlib, Kind: PathKindCrate}
	}
	if archive != "" {
		a = &CrateLocation{Path: archive, Kind: PathKindCrate}
	}
	if meta != "" {
		m = &CrateLocation{Path: meta, Kind: PathKindDependency}
	}
	src, err := NewCrateSource(d, a, m)
	require.NoError(t, err)
	return src
}

func registerBasic(t *testing.T, s *Store, name string, reg CrateRegistration) CrateNum {
	t.Helper()
	reg.Name = name
	if reg.Source.Validate() != nil {
		reg.Source = testSource(t, "/out/lib"+name+".qso", "", "")
	}
	return s.RegisterCrate(reg)
}

func TestEmptySession(t *testing.T) {
	s := NewStore(nil)
	assert.Empty(t, s.Crates())
	assert.Empty(t, s.ImplementationsOfTrait(nil))
	assert.Empty(t, s.UsedCrates(RequireDynamic))
	assert.Empty(t, s.UsedCrates(RequireStatic))
	assert.NotEmpty(t, s.MetadataEncodingVersion())

	_, ok := s.ExternModStmtCnum(1)
	assert.False(t, ok)
}

func TestCrateNumbersAreDenseAndOneBased(t *testing.T) {
	s := NewStore(nil)
	a := registerBasic(t, s, "a", CrateRegistration{})
	b := registerBasic(t, s, "b", CrateRegistration{})
	c := registerBasic(t, s, "c", CrateRegistration{})

	assert.Equal(t, CrateNum(1), a)
	assert.Equal(t, CrateNum(2), b)
	assert.Equal(t, CrateNum(3), c)
	assert.Equal(t, []CrateNum{1, 2, 3}, s.Crates())
}

func TestCrateIdentityQueries(t *testing.T) {
	s := NewStore(nil)
	cnum := registerBasic(t, s, "dep", CrateRegistration{
		OriginalName:  "dep_orig",
		Disambiguator: "abcd",
		Hash:          FingerprintOfString("dep"),
		DepKind:       DepKindExplicit,
		PanicStrategy: PanicAbort,
		NoBuiltins:    true,
	})

	assert.Equal(t, "dep", s.CrateName(cnum))
	assert.Equal(t, "dep_orig", s.OriginalCrateName(cnum))
	assert.Equal(t, "abcd", s.CrateDisambiguator(cnum))
	assert.Equal(t, FingerprintOfString("dep"), s.CrateHash(cnum))
	assert.Equal(t, DepKindExplicit, s.DepKind(cnum))
	assert.Equal(t, PanicAbort, s.PanicStrategy(cnum))
	assert.True(t, s.IsNoBuiltins(cnum))
	assert.False(t, s.IsCompilerBuiltins(cnum))
	assert.False(t, s.IsSanitizerRuntime(cnum))
	assert.False(t, s.IsProfilerRuntime(cnum))

	_, ok := s.PluginRegistrarFn(cnum)
	assert.False(t, ok)
	_, ok = s.DeriveRegistrarFn(cnum)
	assert.False(t, ok)
}

func TestUnknownCrateNumIsBug(t *testing.T) {
	s := NewStore(nil)
	registerBasic(t, s, "only", CrateRegistration{})

	expectBug(t, func() { s.CrateName(7) })
	expectBug(t, func() { s.DepKind(99) })
	expectBug(t, func() { s.CrateHash(LocalCrate) })
	expectBug(t, func() { s.UsedCrateSource(2) })
}

func TestUnknownDefIdIsBug(t *testing.T) {
	s := NewStore(nil)
	cnum := registerBasic(t, s, "dep", CrateRegistration{
		Defs: map[DefIndex]DefData{1: {Vis: Visibility{Kind: VisibilityPublic}}},
	})

	assert.True(t, s.Visibility(DefId{Crate: cnum, Index: 1}).IsPublic())
	expectBug(t, func() { s.Visibility(DefId{Crate: cnum, Index: 9}) })
	expectBug(t, func() { s.ItemBody(DefId{Crate: cnum, Index: 9}) })
}

func TestDependencyEdgeMerging(t *testing.T) {
	s := NewStore(nil)
	cnum := registerBasic(t, s, "dep", CrateRegistration{DepKind: DepKindMacrosOnly})

	s.AddDependencyEdge(cnum, DepKindImplicit)
	assert.Equal(t, DepKindImplicit, s.DepKind(cnum))

	s.AddDependencyEdge(cnum, DepKindExplicit)
	assert.Equal(t, DepKindExplicit, s.DepKind(cnum))

	// A weaker edge never downgrades the effective kind.
	s.AddDependencyEdge(cnum, DepKindUnexportedMacrosOnly)
	assert.Equal(t, DepKindExplicit, s.DepKind(cnum))
}

func TestUsedCratesSelection(t *testing.T) {
	s := NewStore(nil)
	dynOnly := registerBasic(t, s, "dyn_only", CrateRegistration{
		DepKind: DepKindExplicit,
		Source:  testSource(t, "/out/libdyn_only.qso", "", ""),
	})
	both := registerBasic(t, s, "both", CrateRegistration{
		DepKind: DepKindExplicit,
		Source:  testSource(t, "/out/libboth.qso", "/out/libboth.qar", ""),
	})
	metaOnly := registerBasic(t, s, "meta_only", CrateRegistration{
		DepKind: DepKindExplicit,
		Source:  testSource(t, "", "", "/out/meta_only.qmeta"),
	})
	registerBasic(t, s, "macros", CrateRegistration{
		DepKind: DepKindMacrosOnly,
		Source:  testSource(t, "/out/libmacros.qso", "", ""),
	})

	dynamic := s.UsedCrates(RequireDynamic)
	require.Len(t, dynamic, 3, "macro-only deps are never linked")
	byCrate := map[CrateNum]LibSource{}
	for _, uc := range dynamic {
		byCrate[uc.Crate] = uc.Lib
	}
	assert.Equal(t, LibSource{Kind: LibSourcePath, Path: "/out/libdyn_only.qso"}, byCrate[dynOnly])
	assert.Equal(t, LibSource{Kind: LibSourcePath, Path: "/out/libboth.qso"}, byCrate[both])
	assert.Equal(t, LibSource{Kind: LibSourceMetadataOnly}, byCrate[metaOnly])

	static := s.UsedCrates(RequireStatic)
	byCrate = map[CrateNum]LibSource{}
	for _, uc := range static {
		byCrate[uc.Crate] = uc.Lib
	}
	// No static form: an empty result for that crate, not an error.
	assert.Equal(t, LibSource{Kind: LibSourceNone}, byCrate[dynOnly])
	assert.Equal(t, LibSource{Kind: LibSourcePath, Path: "/out/libboth.qar"}, byCrate[both])
	assert.Equal(t, LibSource{Kind: LibSourceMetadataOnly}, byCrate[metaOnly])
}

func TestImplementationsOfTraitOrderingAndFilter(t *testing.T) {
	s := NewStore(nil)

	trait := DefId{Crate: 1, Index: 1}
	otherTrait := DefId{Crate: 1, Index: 2}

	registerBasic(t, s, "a", CrateRegistration{
		TraitImpls: []TraitImpl{
			// Registered out of index order on purpose.
			{Trait: trait, Impl: DefId{Crate: 1, Index: 9}},
			{Trait: trait, Impl: DefId{Crate: 1, Index: 4}},
			{Trait: otherTrait, Impl: DefId{Crate: 1, Index: 6}},
		},
	})
	registerBasic(t, s, "b", CrateRegistration{
		TraitImpls: []TraitImpl{
			{Trait: trait, Impl: DefId{Crate: 2, Index: 3}},
		},
	})

	all := s.ImplementationsOfTrait(nil)
	want := []DefId{
		{Crate: 1, Index: 4},
		{Crate: 1, Index: 6},
		{Crate: 1, Index: 9},
		{Crate: 2, Index: 3},
	}
	assert.Equal(t, want, all, "crate load order, then def index")

	// Stable across repeated calls.
	for i := 0; i < 5; i++ {
		assert.Equal(t, all, s.ImplementationsOfTrait(nil))
	}

	filtered := s.ImplementationsOfTrait(&trait)
	assert.Equal(t, []DefId{
		{Crate: 1, Index: 4},
		{Crate: 1, Index: 9},
		{Crate: 2, Index: 3},
	}, filtered)
}

func TestExportedSymbols(t *testing.T) {
	s := NewStore(nil)
	cnum := registerBasic(t, s, "dep", CrateRegistration{
		Exported: []DefIndex{1, 3},
	})
	empty := registerBasic(t, s, "bare", CrateRegistration{})

	assert.Equal(t, []DefId{
		{Crate: cnum, Index: 1},
		{Crate: cnum, Index: 3},
	}, s.ExportedSymbols(cnum))
	assert.Empty(t, s.ExportedSymbols(empty))

	expectBug(t, func() { s.ExportedSymbols(9) })
}

func TestExternStmtMapping(t *testing.T) {
	s := NewStore(nil)
	cnum := registerBasic(t, s, "dep", CrateRegistration{})
	s.NoteExternStmt(42, cnum)

	got, ok := s.ExternModStmtCnum(42)
	assert.True(t, ok)
	assert.Equal(t, cnum, got)

	_, ok = s.ExternModStmtCnum(43)
	assert.False(t, ok)
}

func TestSetExternCrateKeepsBestRoute(t *testing.T) {
	s := NewStore(nil)
	cnum := registerBasic(t, s, "dep", CrateRegistration{})

	s.SetExternCrate(cnum, ExternCrate{Direct: false, PathLen: 4})
	s.SetExternCrate(cnum, ExternCrate{Direct: false, PathLen: 2})
	ec, ok := s.ExternCrateRecord(cnum)
	require.True(t, ok)
	assert.Equal(t, 2, ec.PathLen)

	// A direct route beats any indirect one.
	s.SetExternCrate(cnum, ExternCrate{Direct: true, PathLen: 9})
	ec, _ = s.ExternCrateRecord(cnum)
	assert.True(t, ec.Direct)

	// A longer indirect route never replaces it.
	s.SetExternCrate(cnum, ExternCrate{Direct: false, PathLen: 1})
	ec, _ = s.ExternCrateRecord(cnum)
	assert.True(t, ec.Direct)
}

func TestExportMacros(t *testing.T) {
	s := NewStore(nil)
	cnum := registerBasic(t, s, "macros", CrateRegistration{DepKind: DepKindMacrosOnly})

	assert.False(t, s.MacrosExported(cnum))
	s.ExportMacros(cnum)
	assert.True(t, s.MacrosExported(cnum))

	expectBug(t, func() { s.ExportMacros(9) })
}

func TestLoadMacro(t *testing.T) {
	s := NewStore(nil)
	cnum := registerBasic(t, s, "macros", CrateRegistration{
		Defs: map[DefIndex]DefData{
			1: {MacroDef: &MacroDef{Name: "vec_of", Body: "..."}},
			2: {ProcMacro: &ProcMacro{Name: "derive_thing", SymbolName: "__quill_derive_thing"}},
			3: {},
		},
	})

	m := s.LoadMacro(DefId{Crate: cnum, Index: 1})
	assert.Equal(t, LoadedMacroDef, m.Kind)
	assert.Equal(t, "vec_of", m.Def.Name)

	m = s.LoadMacro(DefId{Crate: cnum, Index: 2})
	assert.Equal(t, LoadedProcMacro, m.Kind)
	assert.Equal(t, "__quill_derive_thing", m.Proc.SymbolName)

	expectBug(t, func() { s.LoadMacro(DefId{Crate: cnum, Index: 3}) })
}

func TestItemBodyLazyDecode(t *testing.T) {
	body := Body{Nodes: []BodyNode{{Kind: "Stmt", Size: 16}, {Kind: "Expr", Size: 8}}}
	raw, err := json.Marshal(&body)
	require.NoError(t, err)

	s := NewStore(nil)
	cnum := registerBasic(t, s, "dep", CrateRegistration{
		Defs: map[DefIndex]DefData{
			1: {BodyData: raw},
			2: {},
		},
	})

	got := s.ItemBody(DefId{Crate: cnum, Index: 1})
	require.NotNil(t, got)
	assert.Equal(t, DefId{Crate: cnum, Index: 1}, got.Owner)
	assert.Equal(t, 2, got.Len())

	// Cached: same pointer on every call.
	again := s.ItemBody(DefId{Crate: cnum, Index: 1})
	assert.Same(t, got, again)

	expectBug(t, func() { s.ItemBody(DefId{Crate: cnum, Index: 2}) })
}

func TestDefPathQueries(t *testing.T) {
	table := &DefPathTable{
		Keys: []DefKey{
			{Data: DisambiguatedDefPathData{Data: DefPathData{Kind: "crate-root", Name: "dep"}}},
			{Parent: 0, HasParent: true, Data: DisambiguatedDefPathData{Data: DefPathData{Kind: "mod", Name: "inner"}}},
			{Parent: 1, HasParent: true, Data: DisambiguatedDefPathData{Data: DefPathData{Kind: "value", Name: "f"}}},
		},
		Hashes: []Fingerprint{1, 2, 3},
	}
	s := NewStore(nil)
	cnum := registerBasic(t, s, "dep", CrateRegistration{DefPaths: table})

	key := s.DefKey(DefId{Crate: cnum, Index: 2})
	assert.Equal(t, "f", key.Data.Data.Name)

	path := s.DefPath(DefId{Crate: cnum, Index: 2})
	require.Len(t, path.Data, 3)
	assert.Equal(t, "crate-root", path.Data[0].Data.Kind)
	assert.Equal(t, "inner", path.Data[1].Data.Name)
	assert.Equal(t, "f", path.Data[2].Data.Name)
	assert.Contains(t, path.String(), "::inner::f")

	assert.Equal(t, Fingerprint(3), s.DefPathHash(DefId{Crate: cnum, Index: 2}))
	assert.Equal(t, 3, s.DefPathTable(cnum).Len())

	expectBug(t, func() { s.DefPathHash(DefId{Crate: cnum, Index: 9}) })
}

func TestVisibleParentMapComputedOnceAndShared(t *testing.T) {
	s := NewStore(nil)
	cnum := registerBasic(t, s, "dep", CrateRegistration{
		Defs: map[DefIndex]DefData{
			0: {Children: []ChildExport{
				{Name: "inner", DefID: DefId{Crate: 1, Index: 1}},
			}},
			1: {Children: []ChildExport{
				{Name: "leaf", DefID: DefId{Crate: 1, Index: 2}},
			}},
			2: {},
		},
	})

	var maps [4]map[DefId]DefId
	var wg sync.WaitGroup
	for i := range maps {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			maps[i] = s.VisibleParentMap()
		}(i)
	}
	wg.Wait()

	for _, m := range maps[1:] {
		assert.Equal(t, maps[0], m)
	}

	m := maps[0]
	assert.Equal(t, DefId{Crate: cnum, Index: 0}, m[DefId{Crate: cnum, Index: 1}])
	assert.Equal(t, DefId{Crate: cnum, Index: 1}, m[DefId{Crate: cnum, Index: 2}])
}

func TestStructFieldsChildrenAndAssocItems(t *testing.T) {
	s := NewStore(nil)
	assoc := &AssociatedItem{Name: "len", Kind: AssocFn}
	cnum := registerBasic(t, s, "dep", CrateRegistration{
		Defs: map[DefIndex]DefData{
			1: {
				FieldNames: []string{"x", "y"},
				Children: []ChildExport{
					{Name: "child", DefID: DefId{Crate: 1, Index: 2}},
				},
				Generics: Generics{Params: []GenericParam{{Name: "T", Kind: "type"}}},
			},
			2: {Assoc: assoc, Defaultness: DefaultnessDefault},
		},
	})

	assert.Equal(t, []string{"x", "y"}, s.StructFieldNames(DefId{Crate: cnum, Index: 1}))
	require.Len(t, s.ItemChildren(DefId{Crate: cnum, Index: 1}), 1)
	assert.Len(t, s.ItemGenerics(DefId{Crate: cnum, Index: 1}).Params, 1)

	got := s.AssociatedItem(DefId{Crate: cnum, Index: 2})
	assert.Equal(t, "len", got.Name)
	assert.Equal(t, DefaultnessDefault, s.ImplDefaultness(DefId{Crate: cnum, Index: 2}))

	expectBug(t, func() { s.AssociatedItem(DefId{Crate: cnum, Index: 1}) })
}

func TestRegisterCrateRejectsEmptySource(t *testing.T) {
	s := NewStore(nil)
	expectBug(t, func() {
		s.RegisterCrate(CrateRegistration{Name: "broken"})
	})
}

func TestUsedLibrariesAndLinkArgs(t *testing.T) {
	s := NewStore(nil)
	assert.Empty(t, s.UsedLibraries())
	assert.Empty(t, s.UsedLinkArgs())

	s.AddUsedLibrary(NativeLibrary{Kind: NativeStatic, Name: "m"})
	s.AddUsedLinkArgs("-L/opt/lib", "-lm")

	require.Len(t, s.UsedLibraries(), 1)
	assert.Equal(t, []string{"-L/opt/lib", "-lm"}, s.UsedLinkArgs())
}
