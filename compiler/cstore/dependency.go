package cstore

import "fmt"

// DepKind classifies why a dependency edge exists. The variants are ordered:
// when a crate is pulled in through multiple edges, its effective kind is the
// maximum observed across all of them.
type DepKind int

const (
	// DepKindUnexportedMacrosOnly is a dependency used only for macros, none
	// of which are visible from other crates. Included in metadata only as a
	// placeholder.
	DepKindUnexportedMacrosOnly DepKind = iota
	// DepKindMacrosOnly is a dependency used only for its macros.
	DepKindMacrosOnly
	// DepKindImplicit is a dependency injected into the dependency list by
	// the compiler itself, e.g. the injected runtime.
	DepKindImplicit
	// DepKindExplicit is a dependency named by an ordinary `extern crate`.
	DepKindExplicit
)

// MacrosOnly reports whether the dependency never needs to be linked into
// produced artifacts.
func (k DepKind) MacrosOnly() bool {
	switch k {
	case DepKindUnexportedMacrosOnly, DepKindMacrosOnly:
		return true
	default:
		return false
	}
}

// Max returns the stronger of two dependency kinds.
func (k DepKind) Max(other DepKind) DepKind {
	if other > k {
		return other
	}
	return k
}

func (k DepKind) String() string {
	switch k {
	case DepKindUnexportedMacrosOnly:
		return "unexported-macros-only"
	case DepKindMacrosOnly:
		return "macros-only"
	case DepKindImplicit:
		return "implicit"
	case DepKindExplicit:
		return "explicit"
	default:
		return fmt.Sprintf("DepKind(%d)", int(k))
	}
}

// PathKind classifies a library search path.
type PathKind int

const (
	PathKindNative PathKind = iota
	PathKindCrate
	PathKindDependency
	PathKindFramework
	PathKindExternFlag
	PathKindAll
)

func (p PathKind) String() string {
	switch p {
	case PathKindNative:
		return "native"
	case PathKindCrate:
		return "crate"
	case PathKindDependency:
		return "dependency"
	case PathKindFramework:
		return "framework"
	case PathKindExternFlag:
		return "extern-flag"
	case PathKindAll:
		return "all"
	default:
		return fmt.Sprintf("PathKind(%d)", int(p))
	}
}

// CrateLocation is one on-disk form of a crate plus the kind of search path
// it was found on.
type CrateLocation struct {
	Path string
	Kind PathKind
}

// CrateSource records where a crate came from on the local filesystem.
// At least one of the three forms must be present; several may coexist when
// the crate was built in multiple output forms.
type CrateSource struct {
	DynLib  *CrateLocation // dynamic library (.qso)
	Archive *CrateLocation // static archive (.qar)
	Meta    *CrateLocation // metadata-only artifact (.qmeta)
}

// NewCrateSource builds a CrateSource, rejecting the all-absent case.
func NewCrateSource(dynlib, archive, meta *CrateLocation) (CrateSource, error) {
	src := CrateSource{DynLib: dynlib, Archive: archive, Meta: meta}
	if err := src.Validate(); err != nil {
		return CrateSource{}, err
	}
	return src, nil
}

// Validate enforces the at-least-one-form invariant.
func (s CrateSource) Validate() error {
	if s.DynLib == nil && s.Archive == nil && s.Meta == nil {
		return fmt.Errorf("crate source has no dynamic, archive, or metadata form")
	}
	return nil
}

// LibSourceKind discriminates LibSource.
type LibSourceKind int

const (
	// LibSourcePath means a concrete artifact path was selected.
	LibSourcePath LibSourceKind = iota
	// LibSourceMetadataOnly means the crate exists but has no linkable
	// artifact; the linker must not be handed a path for it.
	LibSourceMetadataOnly
	// LibSourceNone means no source matching the requested linkage exists.
	LibSourceNone
)

// LibSource reports which source was actually selected for final linking,
// as distinct from the sources merely available in a CrateSource.
type LibSource struct {
	Kind LibSourceKind
	Path string
}

// IsSome reports whether a concrete path was selected.
func (l LibSource) IsSome() bool { return l.Kind == LibSourcePath }

// Option returns the selected path, if any.
func (l LibSource) Option() (string, bool) {
	if l.Kind == LibSourcePath {
		return l.Path, true
	}
	return "", false
}

// LinkagePreference chooses between dynamic and static linkage when a crate
// offers multiple sources. Resolved once per crate and build target.
type LinkagePreference int

const (
	RequireDynamic LinkagePreference = iota
	RequireStatic
)

func (p LinkagePreference) String() string {
	if p == RequireStatic {
		return "static"
	}
	return "dynamic"
}

// PanicStrategy is the unwinding behavior a crate was compiled with.
type PanicStrategy int

const (
	PanicUnwind PanicStrategy = iota
	PanicAbort
)

func (p PanicStrategy) String() string {
	if p == PanicAbort {
		return "abort"
	}
	return "unwind"
}
