package loader

import (
	"errors"
	"fmt"

	"github.com/dominikbraun/graph"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/quill-lang/quill/compiler/cstore"
	"github.com/quill-lang/quill/compiler/diag"
)

// localVertex is the crate-graph vertex standing for the crate being
// compiled.
const localVertex = ""

// Options configures a Loader.
type Options struct {
	Fs       afero.Fs
	Target   cstore.Target
	Paths    []SearchPath
	Logger   *zap.Logger
	// Injected crates are added to the dependency list at Postprocess even
	// when no source item names them, e.g. the runtime crate.
	Injected []string
}

// Loader reacts to `extern crate` items during item resolution and
// finalizes the crate graph once the whole unit has been walked. It
// implements cstore.CrateLoader.
type Loader struct {
	store    *cstore.Store
	sess     *diag.Session
	artifact *ArtifactLoader
	locator  *Locator
	target   cstore.Target
	log      *zap.Logger
	injected []string

	deps          graph.Graph[string, string]
	postprocessed bool
}

var _ cstore.CrateLoader = (*Loader)(nil)

// NewLoader creates a loader registering crates into store and reporting
// user errors through sess.
func NewLoader(store *cstore.Store, sess *diag.Session, opts Options) *Loader {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	g := graph.New(graph.StringHash, graph.Directed())
	_ = g.AddVertex(localVertex)
	return &Loader{
		store:    store,
		sess:     sess,
		artifact: NewArtifactLoader(opts.Fs),
		locator:  NewLocator(opts.Fs, opts.Paths),
		target:   opts.Target,
		log:      log,
		injected: opts.Injected,
		deps:     g,
	}
}

// ArtifactLoader returns the metadata-loading capability, for wiring into
// the store at session setup.
func (l *Loader) ArtifactLoader() *ArtifactLoader { return l.artifact }

// ProcessItem implements cstore.CrateLoader. Only extern crate items are of
// interest; everything else passes through untouched.
func (l *Loader) ProcessItem(item cstore.Item, defs *cstore.Definitions) {
	if l.postprocessed {
		diag.Bugf("ProcessItem called after Postprocess")
	}
	if item.Kind != cstore.ItemExternCrate {
		return
	}

	name := item.CrateName()
	cstore.ValidateCrateName(l.sess, name, &item.Span)

	index := defs.Create(item.ID)
	origin := cstore.ExternCrate{
		DefID:   cstore.DefId{Crate: cstore.LocalCrate, Index: index},
		Span:    item.Span,
		Direct:  true,
		PathLen: 1,
	}

	cnum, err := l.loadCrate(name, cstore.DepKindExplicit, origin)
	if err != nil {
		l.sess.SpanErr(item.Span, err.Error())
		return
	}
	l.store.NoteExternStmt(item.ID, cnum)
	l.addEdge(localVertex, name)
}

// loadCrate resolves a crate by name, loading it and its transitive
// dependencies if it is not in the session graph yet.
func (l *Loader) loadCrate(name string, kind cstore.DepKind, origin cstore.ExternCrate) (cstore.CrateNum, error) {
	if cnum, ok := l.store.CrateByName(name); ok {
		l.store.AddDependencyEdge(cnum, kind)
		l.store.SetExternCrate(cnum, origin)
		return cnum, nil
	}

	source, err := l.locator.Locate(name)
	if err != nil {
		return 0, err
	}
	blob, err := l.readMetadata(source)
	if err != nil {
		return 0, err
	}
	root, err := cstore.DecodeMetadata(blob)
	if err != nil {
		return 0, fmt.Errorf("crate `%s`: %v", name, err)
	}
	if err := validateExports(root); err != nil {
		return 0, fmt.Errorf("crate `%s` has malformed metadata: %v", name, err)
	}

	cnum := l.registerCrate(name, root, source, kind, origin)
	l.log.Debug("loaded crate",
		zap.String("name", name),
		zap.Stringer("cnum", cnum),
		zap.Stringer("dep_kind", kind))

	// Pull in transitive dependencies. Unexported-macros-only entries are
	// placeholders in metadata and are ignored when decoding.
	for _, dep := range root.Deps {
		if dep.Kind == cstore.DepKindUnexportedMacrosOnly {
			continue
		}
		depOrigin := origin
		depOrigin.Direct = false
		depOrigin.PathLen = origin.PathLen + 1
		if _, err := l.loadCrate(dep.Name, dep.Kind, depOrigin); err != nil {
			l.sess.Err(fmt.Sprintf("crate `%s` requires `%s`: %v", name, dep.Name, err))
			continue
		}
		l.addEdge(name, dep.Name)
	}
	return cnum, nil
}

// readMetadata extracts the metadata blob from the best available form:
// the dynamic library, then the static archive, then the raw metadata-only
// artifact.
func (l *Loader) readMetadata(source cstore.CrateSource) ([]byte, error) {
	switch {
	case source.DynLib != nil:
		return l.artifact.DynLibMetadata(l.target, source.DynLib.Path)
	case source.Archive != nil:
		return l.artifact.ArchiveMetadata(l.target, source.Archive.Path)
	case source.Meta != nil:
		data, err := afero.ReadFile(l.locator.fs, source.Meta.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read metadata file %s: %v", source.Meta.Path, err)
		}
		return data, nil
	default:
		diag.Bugf("crate source with no forms survived validation")
		return nil, nil
	}
}

// validateExports rejects decoded exports that would collide in the def
// table. Index 0 always belongs to the crate root.
func validateExports(root *cstore.MetadataRoot) error {
	seen := make(map[cstore.DefIndex]bool, len(root.Exports))
	for _, it := range root.Exports {
		if it.Index == 0 {
			return fmt.Errorf("export %q claims the crate root index", it.Name)
		}
		if seen[it.Index] {
			return fmt.Errorf("duplicate export index %d", it.Index)
		}
		seen[it.Index] = true
	}
	return nil
}

// registerCrate turns decoded metadata into a store registration. The
// crate's exports become children of its root definition.
func (l *Loader) registerCrate(name string, root *cstore.MetadataRoot, source cstore.CrateSource, kind cstore.DepKind, origin cstore.ExternCrate) cstore.CrateNum {
	cnum := l.store.NextCrateNum()

	maxIndex := cstore.DefIndex(0)
	for _, it := range root.Exports {
		if it.Index > maxIndex {
			maxIndex = it.Index
		}
	}

	table := &cstore.DefPathTable{
		Keys:   make([]cstore.DefKey, maxIndex+1),
		Hashes: make([]cstore.Fingerprint, maxIndex+1),
	}
	rootKey := cstore.DefKey{Data: cstore.DisambiguatedDefPathData{
		Data: cstore.DefPathData{Kind: "crate-root", Name: root.Name},
	}}
	table.Keys[0] = rootKey
	table.Hashes[0] = cstore.DefPath{Crate: cnum}.Hash(root.Name, root.Disambiguator)

	defs := make(map[cstore.DefIndex]cstore.DefData, len(root.Exports)+1)
	children := make([]cstore.ChildExport, 0, len(root.Exports))
	exported := make([]cstore.DefIndex, 0, len(root.Exports))

	for _, it := range root.Exports {
		key := cstore.DefKey{
			Parent:    0,
			HasParent: true,
			Data: cstore.DisambiguatedDefPathData{
				Data: cstore.DefPathData{Kind: it.Kind, Name: it.Name},
			},
		}
		table.Keys[it.Index] = key
		table.Hashes[it.Index] = cstore.DefPath{
			Crate: cnum,
			Data:  []cstore.DisambiguatedDefPathData{key.Data},
		}.Hash(root.Name, root.Disambiguator)

		defs[it.Index] = cstore.DefData{
			Vis:      cstore.Visibility{Kind: cstore.VisibilityPublic},
			BodyData: it.Body,
		}
		children = append(children, cstore.ChildExport{
			Name:  it.Name,
			DefID: cstore.DefId{Crate: cnum, Index: it.Index},
		})
		exported = append(exported, it.Index)
	}
	defs[0] = cstore.DefData{
		Vis:      cstore.Visibility{Kind: cstore.VisibilityPublic},
		Children: children,
	}

	got := l.store.RegisterCrate(cstore.CrateRegistration{
		Name:          name,
		OriginalName:  root.Name,
		Disambiguator: root.Disambiguator,
		Hash:          root.CrateHash,
		DepKind:       kind,
		PanicStrategy: root.PanicStrategy,
		Source:        source,
		NativeLibs:    root.NativeLibs,
		LinkArgs:      root.LinkArgs,
		Extern:        &origin,
		DefPaths:      table,
		Defs:          defs,
		Exported:      exported,
	})
	if got != cnum {
		diag.Bugf("crate number drifted during registration: %v != %v", got, cnum)
	}
	_ = l.deps.AddVertex(name)
	return cnum
}

func (l *Loader) addEdge(from, to string) {
	_ = l.deps.AddVertex(from)
	_ = l.deps.AddVertex(to)
	if err := l.deps.AddEdge(from, to); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
		l.log.Debug("crate graph edge rejected", zap.String("from", from), zap.String("to", to), zap.Error(err))
	}
}

// Postprocess implements cstore.CrateLoader: called exactly once after the
// unit's item tree has been walked. Injects implicit dependencies, refines
// extern-crate path lengths to the shortest known route, and aborts if any
// load errors were reported.
func (l *Loader) Postprocess(krate *cstore.Crate) {
	if l.postprocessed {
		diag.Bugf("Postprocess called twice")
	}
	l.postprocessed = true

	for _, name := range l.injected {
		origin := cstore.ExternCrate{Direct: false, PathLen: 1}
		if _, err := l.loadCrate(name, cstore.DepKindImplicit, origin); err != nil {
			l.sess.Err(fmt.Sprintf("can't inject implicit dependency: %v", err))
			continue
		}
		l.addEdge(localVertex, name)
		l.log.Debug("injected implicit dependency", zap.String("name", name))
	}

	for _, cnum := range l.store.Crates() {
		ec, ok := l.store.ExternCrateRecord(cnum)
		if !ok {
			continue
		}
		path, err := graph.ShortestPath(l.deps, localVertex, l.store.CrateName(cnum))
		if err != nil || len(path) < 2 {
			continue
		}
		if n := len(path) - 1; n < ec.PathLen {
			ec.PathLen = n
			l.store.SetExternCrate(cnum, ec)
		}
	}

	l.sess.AbortIfErrors()
}
