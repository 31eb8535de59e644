package loader

import (
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"

	"github.com/quill-lang/quill/compiler/cstore"
)

// SearchPath is one directory probed for crate artifacts.
type SearchPath struct {
	Dir  string
	Kind cstore.PathKind
}

// Locator probes the configured search paths for the on-disk forms of a
// crate. The first path carrying a given form wins; forms found on
// different paths may be combined into one CrateSource.
type Locator struct {
	fs    afero.Fs
	paths []SearchPath
}

// NewLocator creates a locator over fs and the given search paths.
func NewLocator(fs afero.Fs, paths []SearchPath) *Locator {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Locator{fs: fs, paths: paths}
}

// Locate finds the available forms of the named crate. When no form exists
// anywhere, the returned error lists every path that was probed.
func (l *Locator) Locate(name string) (cstore.CrateSource, error) {
	var dynlib, archive, meta *cstore.CrateLocation
	var probeErrs error

	for _, sp := range l.paths {
		if dynlib == nil {
			dynlib = l.probe(filepath.Join(sp.Dir, "lib"+name+".qso"), sp.Kind)
		}
		if archive == nil {
			archive = l.probe(filepath.Join(sp.Dir, "lib"+name+".qar"), sp.Kind)
		}
		if meta == nil {
			meta = l.probe(filepath.Join(sp.Dir, name+".qmeta"), sp.Kind)
		}
		if dynlib == nil && archive == nil && meta == nil {
			probeErrs = multierror.Append(probeErrs,
				fmt.Errorf("no artifact for crate `%s` in %s path %s", name, sp.Kind, sp.Dir))
		}
	}

	src, err := cstore.NewCrateSource(dynlib, archive, meta)
	if err != nil {
		if probeErrs == nil {
			probeErrs = fmt.Errorf("no search paths configured")
		}
		if hint := suggestCrate(name, l.knownCrates()); hint != "" {
			return cstore.CrateSource{}, fmt.Errorf("can't find crate `%s` (did you mean `%s`?): %w", name, hint, probeErrs)
		}
		return cstore.CrateSource{}, fmt.Errorf("can't find crate `%s`: %w", name, probeErrs)
	}
	return src, nil
}

func (l *Locator) probe(path string, kind cstore.PathKind) *cstore.CrateLocation {
	if ok, err := afero.Exists(l.fs, path); err != nil || !ok {
		return nil
	}
	return &cstore.CrateLocation{Path: path, Kind: kind}
}
