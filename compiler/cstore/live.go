package cstore

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/quill-lang/quill/compiler/diag"
)

// DefData is the registration-time description of one foreign definition.
// Populated by the loader from decoded metadata; read-only afterward.
type DefData struct {
	Vis                Visibility
	Generics           Generics
	Assoc              *AssociatedItem
	Defaultness        Defaultness
	FieldNames         []string
	Children           []ChildExport
	MacroDef           *MacroDef
	ProcMacro          *ProcMacro
	Dllimport          bool
	StaticallyIncluded bool
	// BodyData is the encoded compiled body, decoded lazily on the first
	// ItemBody call.
	BodyData []byte
}

// CrateRegistration is everything the loader hands the store when a crate
// enters the session's graph.
type CrateRegistration struct {
	Name          string
	OriginalName  string
	Disambiguator string
	Hash          Fingerprint
	DepKind       DepKind
	PanicStrategy PanicStrategy

	NoBuiltins       bool
	CompilerBuiltins bool
	SanitizerRuntime bool
	ProfilerRuntime  bool

	PluginRegistrar *DefIndex
	DeriveRegistrar *DefIndex

	Source     CrateSource
	NativeLibs []NativeLibrary
	LinkArgs   []string
	Extern     *ExternCrate

	DefPaths   *DefPathTable
	Defs       map[DefIndex]DefData
	TraitImpls []TraitImpl
	Exported   []DefIndex
}

type defRecord struct {
	data DefData

	bodyOnce sync.Once
	body     *Body
}

type crateRecord struct {
	name          string
	originalName  string
	disambiguator string
	hash          Fingerprint
	depKind       DepKind
	panicStrategy PanicStrategy

	noBuiltins       bool
	compilerBuiltins bool
	sanitizerRuntime bool
	profilerRuntime  bool

	pluginRegistrar *DefIndex
	deriveRegistrar *DefIndex

	source   CrateSource
	natives  []NativeLibrary
	linkArgs []string
	extern   *ExternCrate

	defPaths *DefPathTable
	defs     map[DefIndex]*defRecord
	impls    []TraitImpl
	exported []DefIndex

	macrosExported bool
}

// Store is the session-backed CrateStore. Crates are registered once by the
// loader at load time and answer queries read-only for the rest of the
// session.
type Store struct {
	loader MetadataLoader

	mu          sync.RWMutex
	crates      []*crateRecord // index is CrateNum-1
	externStmts map[NodeID]CrateNum

	localNatives  []NativeLibrary
	localLinkArgs []string

	vpOnce         sync.Once
	visibleParents map[DefId]DefId
}

var _ CrateStore = (*Store)(nil)

// NewStore creates an empty session store wrapping a metadata loader.
func NewStore(loader MetadataLoader) *Store {
	return &Store{
		loader:      loader,
		externStmts: make(map[NodeID]CrateNum),
	}
}

// RegisterCrate adds a crate to the session's graph and returns its number.
// The crate source must carry at least one form.
func (s *Store) RegisterCrate(reg CrateRegistration) CrateNum {
	if err := reg.Source.Validate(); err != nil {
		diag.Bugf("registering crate %q: %v", reg.Name, err)
	}
	rec := &crateRecord{
		name:             reg.Name,
		originalName:     reg.OriginalName,
		disambiguator:    reg.Disambiguator,
		hash:             reg.Hash,
		depKind:          reg.DepKind,
		panicStrategy:    reg.PanicStrategy,
		noBuiltins:       reg.NoBuiltins,
		compilerBuiltins: reg.CompilerBuiltins,
		sanitizerRuntime: reg.SanitizerRuntime,
		profilerRuntime:  reg.ProfilerRuntime,
		pluginRegistrar:  reg.PluginRegistrar,
		deriveRegistrar:  reg.DeriveRegistrar,
		source:           reg.Source,
		natives:          append([]NativeLibrary(nil), reg.NativeLibs...),
		linkArgs:         append([]string(nil), reg.LinkArgs...),
		extern:           reg.Extern,
		defPaths:         reg.DefPaths,
		defs:             make(map[DefIndex]*defRecord, len(reg.Defs)),
		impls:            append([]TraitImpl(nil), reg.TraitImpls...),
		exported:         append([]DefIndex(nil), reg.Exported...),
	}
	if rec.originalName == "" {
		rec.originalName = rec.name
	}
	for idx, data := range reg.Defs {
		rec.defs[idx] = &defRecord{data: data}
	}
	// Impl iteration order is fixed at registration: def index within the
	// crate, crate load order across crates.
	sort.Slice(rec.impls, func(i, j int) bool {
		return rec.impls[i].Impl.Index < rec.impls[j].Impl.Index
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.crates = append(s.crates, rec)
	return CrateNum(len(s.crates))
}

// NextCrateNum returns the number the next registered crate will receive.
// Crate loading is single-writer, so the loader may use it to pre-assign
// ids to definitions of the crate being registered.
func (s *Store) NextCrateNum() CrateNum {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CrateNum(len(s.crates) + 1)
}

// AddDependencyEdge records one more reason a crate is depended on. The
// effective kind is the maximum across all observed edges.
func (s *Store) AddDependencyEdge(cnum CrateNum, kind DepKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.recordLocked(cnum)
	rec.depKind = rec.depKind.Max(kind)
}

// NoteExternStmt maps a local `extern crate` statement to the crate it
// resolved to.
func (s *Store) NoteExternStmt(id NodeID, cnum CrateNum) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordLocked(cnum) // validate
	s.externStmts[id] = cnum
}

// SetExternCrate records the route through which a crate was reached,
// keeping the most direct and nearest one when several exist.
func (s *Store) SetExternCrate(cnum CrateNum, ec ExternCrate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.recordLocked(cnum)
	if rec.extern == nil || ec.Better(*rec.extern) {
		rec.extern = &ec
	}
}

// AddUsedLibrary records a native library the current crate links against.
func (s *Store) AddUsedLibrary(lib NativeLibrary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.localNatives = append(s.localNatives, lib)
}

// AddUsedLinkArgs records raw link arguments requested by the current crate.
func (s *Store) AddUsedLinkArgs(args ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.localLinkArgs = append(s.localLinkArgs, args...)
}

// CrateByName returns the crate registered under name, if any. Loader-side
// lookup; not part of the query contract.
func (s *Store) CrateByName(name string) (CrateNum, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, rec := range s.crates {
		if rec.name == name {
			return CrateNum(i + 1), true
		}
	}
	return 0, false
}

// ExternCrateRecord returns the recorded route to a crate, if any.
func (s *Store) ExternCrateRecord(cnum CrateNum) (ExternCrate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec := s.recordLocked(cnum)
	if rec.extern == nil {
		return ExternCrate{}, false
	}
	return *rec.extern, true
}

// MacrosExported reports whether ExportMacros was called for a crate.
func (s *Store) MacrosExported(cnum CrateNum) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recordLocked(cnum).macrosExported
}

func (s *Store) recordLocked(cnum CrateNum) *crateRecord {
	if cnum == LocalCrate || int(cnum) > len(s.crates) {
		diag.Bugf("unknown crate number %v", cnum)
	}
	return s.crates[cnum-1]
}

func (s *Store) record(cnum CrateNum) *crateRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recordLocked(cnum)
}

func (s *Store) def(id DefId) *defRecord {
	rec := s.record(id.Crate)
	d, ok := rec.defs[id.Index]
	if !ok {
		diag.Bugf("unknown definition %v", id)
	}
	return d
}

// MetadataLoaderRef implements CrateStore.
func (s *Store) MetadataLoaderRef() MetadataLoader { return s.loader }

// Visibility implements CrateStore.
func (s *Store) Visibility(def DefId) Visibility { return s.def(def).data.Vis }

// ItemGenerics implements CrateStore. The returned value is a copy; mutating
// it does not affect the store.
func (s *Store) ItemGenerics(def DefId) Generics {
	g := s.def(def).data.Generics
	g.Params = append([]GenericParam(nil), g.Params...)
	return g
}

// AssociatedItem implements CrateStore.
func (s *Store) AssociatedItem(def DefId) AssociatedItem {
	d := s.def(def)
	if d.data.Assoc == nil {
		diag.Bugf("%v is not an associated item", def)
	}
	return *d.data.Assoc
}

// ImplDefaultness implements CrateStore.
func (s *Store) ImplDefaultness(def DefId) Defaultness { return s.def(def).data.Defaultness }

// StructFieldNames implements CrateStore.
func (s *Store) StructFieldNames(def DefId) []string {
	return append([]string(nil), s.def(def).data.FieldNames...)
}

// ItemChildren implements CrateStore.
func (s *Store) ItemChildren(def DefId) []ChildExport {
	return append([]ChildExport(nil), s.def(def).data.Children...)
}

// ItemBody implements CrateStore. The body is decoded on first request and
// cached; a race between two first callers keeps one result.
func (s *Store) ItemBody(def DefId) *Body {
	d := s.def(def)
	d.bodyOnce.Do(func() {
		if d.data.BodyData == nil {
			diag.Bugf("%v has no compiled body", def)
		}
		var body Body
		if err := json.Unmarshal(d.data.BodyData, &body); err != nil {
			diag.Bugf("decoding body of %v: %v", def, err)
		}
		body.Owner = def
		d.body = &body
	})
	if d.body == nil {
		diag.Bugf("%v has no compiled body", def)
	}
	return d.body
}

// HasBody reports whether a definition carries a compiled body, without the
// unknown-body bug that ItemBody raises. Tooling-side helper; not part of
// the query contract.
func (s *Store) HasBody(def DefId) bool {
	d := s.def(def)
	return d.data.BodyData != nil || d.body != nil
}

// ImplementationsOfTrait implements CrateStore. Iteration order is crate
// load order, then impl def index, fixed at registration time.
func (s *Store) ImplementationsOfTrait(filter *DefId) []DefId {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []DefId{}
	for _, rec := range s.crates {
		for _, ti := range rec.impls {
			if filter == nil || ti.Trait == *filter {
				out = append(out, ti.Impl)
			}
		}
	}
	return out
}

// IsDllimportForeignItem implements CrateStore.
func (s *Store) IsDllimportForeignItem(def DefId) bool { return s.def(def).data.Dllimport }

// IsStaticallyIncludedForeignItem implements CrateStore.
func (s *Store) IsStaticallyIncludedForeignItem(def DefId) bool {
	return s.def(def).data.StaticallyIncluded
}

// DepKind implements CrateStore.
func (s *Store) DepKind(cnum CrateNum) DepKind { return s.record(cnum).depKind }

// CrateName implements CrateStore.
func (s *Store) CrateName(cnum CrateNum) string { return s.record(cnum).name }

// OriginalCrateName implements CrateStore.
func (s *Store) OriginalCrateName(cnum CrateNum) string { return s.record(cnum).originalName }

// CrateHash implements CrateStore.
func (s *Store) CrateHash(cnum CrateNum) Fingerprint { return s.record(cnum).hash }

// CrateDisambiguator implements CrateStore.
func (s *Store) CrateDisambiguator(cnum CrateNum) string { return s.record(cnum).disambiguator }

// PanicStrategy implements CrateStore.
func (s *Store) PanicStrategy(cnum CrateNum) PanicStrategy { return s.record(cnum).panicStrategy }

// IsNoBuiltins implements CrateStore.
func (s *Store) IsNoBuiltins(cnum CrateNum) bool { return s.record(cnum).noBuiltins }

// IsCompilerBuiltins implements CrateStore.
func (s *Store) IsCompilerBuiltins(cnum CrateNum) bool { return s.record(cnum).compilerBuiltins }

// IsSanitizerRuntime implements CrateStore.
func (s *Store) IsSanitizerRuntime(cnum CrateNum) bool { return s.record(cnum).sanitizerRuntime }

// IsProfilerRuntime implements CrateStore.
func (s *Store) IsProfilerRuntime(cnum CrateNum) bool { return s.record(cnum).profilerRuntime }

// PluginRegistrarFn implements CrateStore.
func (s *Store) PluginRegistrarFn(cnum CrateNum) (DefId, bool) {
	rec := s.record(cnum)
	if rec.pluginRegistrar == nil {
		return DefId{}, false
	}
	return DefId{Crate: cnum, Index: *rec.pluginRegistrar}, true
}

// DeriveRegistrarFn implements CrateStore.
func (s *Store) DeriveRegistrarFn(cnum CrateNum) (DefId, bool) {
	rec := s.record(cnum)
	if rec.deriveRegistrar == nil {
		return DefId{}, false
	}
	return DefId{Crate: cnum, Index: *rec.deriveRegistrar}, true
}

// ExportedSymbols implements CrateStore.
func (s *Store) ExportedSymbols(cnum CrateNum) []DefId {
	rec := s.record(cnum)
	out := make([]DefId, 0, len(rec.exported))
	for _, idx := range rec.exported {
		out = append(out, DefId{Crate: cnum, Index: idx})
	}
	return out
}

// LoadMacro implements CrateStore.
func (s *Store) LoadMacro(def DefId) LoadedMacro {
	d := s.def(def)
	switch {
	case d.data.ProcMacro != nil:
		return LoadedMacro{Kind: LoadedProcMacro, Proc: d.data.ProcMacro}
	case d.data.MacroDef != nil:
		return LoadedMacro{Kind: LoadedMacroDef, Def: d.data.MacroDef}
	default:
		diag.Bugf("%v is not a macro", def)
		return LoadedMacro{}
	}
}

// ExportMacros implements CrateStore.
func (s *Store) ExportMacros(cnum CrateNum) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordLocked(cnum).macrosExported = true
}

// DefKey implements CrateStore.
func (s *Store) DefKey(def DefId) DefKey {
	rec := s.record(def.Crate)
	if rec.defPaths == nil {
		diag.Bugf("%v has no def path table", def.Crate)
	}
	return rec.defPaths.DefKey(def.Index)
}

// DefPath implements CrateStore. The path is rebuilt by walking parent keys
// up to the crate root.
func (s *Store) DefPath(def DefId) DefPath {
	rec := s.record(def.Crate)
	if rec.defPaths == nil {
		diag.Bugf("%v has no def path table", def.Crate)
	}
	var segs []DisambiguatedDefPathData
	index := def.Index
	for {
		key := rec.defPaths.DefKey(index)
		segs = append(segs, key.Data)
		if !key.HasParent {
			break
		}
		index = key.Parent
	}
	// Reverse: collected root-last.
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return DefPath{Crate: def.Crate, Data: segs}
}

// DefPathHash implements CrateStore.
func (s *Store) DefPathHash(def DefId) Fingerprint {
	rec := s.record(def.Crate)
	if rec.defPaths == nil || int(def.Index) >= len(rec.defPaths.Hashes) {
		diag.Bugf("%v has no def path hash", def)
	}
	return rec.defPaths.Hashes[def.Index]
}

// DefPathTable implements CrateStore. The table is shared, not copied;
// callers must treat it as read-only.
func (s *Store) DefPathTable(cnum CrateNum) *DefPathTable {
	rec := s.record(cnum)
	if rec.defPaths == nil {
		diag.Bugf("%v has no def path table", cnum)
	}
	return rec.defPaths
}

// NativeLibraries implements CrateStore.
func (s *Store) NativeLibraries(cnum CrateNum) []NativeLibrary {
	return append([]NativeLibrary(nil), s.record(cnum).natives...)
}

// UsedLibraries implements CrateStore: the native libraries of the crate
// being compiled.
func (s *Store) UsedLibraries() []NativeLibrary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]NativeLibrary(nil), s.localNatives...)
}

// UsedLinkArgs implements CrateStore.
func (s *Store) UsedLinkArgs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.localLinkArgs...)
}

// UsedCrates implements CrateStore. Macro-only dependencies never appear:
// they are not linked into produced artifacts.
func (s *Store) UsedCrates(prefer LinkagePreference) []UsedCrate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []UsedCrate{}
	for i, rec := range s.crates {
		if rec.depKind.MacrosOnly() {
			continue
		}
		out = append(out, UsedCrate{
			Crate: CrateNum(i + 1),
			Lib:   selectLibSource(rec.source, prefer),
		})
	}
	return out
}

// selectLibSource picks the artifact for one crate under a preference. A
// crate offering only a metadata artifact yields LibSourceMetadataOnly; a
// crate offering nothing for the preference yields LibSourceNone.
func selectLibSource(src CrateSource, prefer LinkagePreference) LibSource {
	var want *CrateLocation
	if prefer == RequireDynamic {
		want = src.DynLib
	} else {
		want = src.Archive
	}
	if want != nil {
		return LibSource{Kind: LibSourcePath, Path: want.Path}
	}
	if src.DynLib == nil && src.Archive == nil && src.Meta != nil {
		return LibSource{Kind: LibSourceMetadataOnly}
	}
	return LibSource{Kind: LibSourceNone}
}

// UsedCrateSource implements CrateStore.
func (s *Store) UsedCrateSource(cnum CrateNum) CrateSource { return s.record(cnum).source }

// Crates implements CrateStore.
func (s *Store) Crates() []CrateNum {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]CrateNum, len(s.crates))
	for i := range s.crates {
		out[i] = CrateNum(i + 1)
	}
	return out
}

// ExternModStmtCnum implements CrateStore.
func (s *Store) ExternModStmtCnum(id NodeID) (CrateNum, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cnum, ok := s.externStmts[id]
	return cnum, ok
}

// VisibleParentMap implements CrateStore. Built once per session by a
// breadth-first walk of item children from each crate root, so the first
// (most visible) route to a definition wins. The sync.Once guard makes a
// racing second initializer reuse the first computation.
func (s *Store) VisibleParentMap() map[DefId]DefId {
	s.vpOnce.Do(func() {
		m := make(map[DefId]DefId)
		s.mu.RLock()
		defer s.mu.RUnlock()
		for i, rec := range s.crates {
			root := DefId{Crate: CrateNum(i + 1), Index: 0}
			queue := []DefId{root}
			for len(queue) > 0 {
				parent := queue[0]
				queue = queue[1:]
				d, ok := rec.defs[parent.Index]
				if !ok || parent.Crate != root.Crate {
					continue
				}
				for _, child := range d.data.Children {
					if _, seen := m[child.DefID]; seen {
						continue
					}
					m[child.DefID] = parent
					if child.DefID.Crate == root.Crate {
						queue = append(queue, child.DefID)
					}
				}
			}
		}
		s.visibleParents = m
	})
	return s.visibleParents
}

// EncodeMetadata implements CrateStore. Deterministic: the same reachable
// set over the same state yields a byte-identical payload and the same hash
// per item, whatever order the inputs arrive in.
func (s *Store) EncodeMetadata(local *LocalCrateState, linkMeta LinkMeta, reachable map[NodeID]bool) EncodedMetadata {
	if local == nil {
		diag.Bugf("encode_metadata: no local crate state")
	}

	var exports []ExportedItem
	var hashes []EncodedMetadataHash
	for _, it := range local.Exports {
		if !reachable[it.Node] {
			continue
		}
		exports = append(exports, it)
		hashes = append(hashes, EncodedMetadataHash{DefIndex: it.Index, Hash: it.contentHash()})
	}

	s.mu.RLock()
	deps := make([]DepEntry, 0, len(s.crates))
	for _, rec := range s.crates {
		deps = append(deps, DepEntry{
			Name:          rec.name,
			Hash:          rec.hash,
			Disambiguator: rec.disambiguator,
			Kind:          rec.depKind,
		})
	}
	natives := append([]NativeLibrary(nil), s.localNatives...)
	linkArgs := append([]string(nil), s.localLinkArgs...)
	s.mu.RUnlock()

	root := &MetadataRoot{
		Name:          local.Name,
		Disambiguator: local.Disambiguator,
		CrateHash:     linkMeta.CrateHash,
		PanicStrategy: local.PanicStrategy,
		Deps:          deps,
		NativeLibs:    natives,
		LinkArgs:      linkArgs,
		Exports:       exports,
	}
	raw, err := encodeRoot(root)
	if err != nil {
		diag.Bugf("encoding metadata for %q: %v", local.Name, err)
	}
	return EncodedMetadata{RawData: raw, Hashes: hashes}
}

// MetadataEncodingVersion implements CrateStore.
func (s *Store) MetadataEncodingVersion() []byte { return MetadataVersion() }
