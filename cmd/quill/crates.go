package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quill-lang/quill/compiler/cstore"
	"github.com/quill-lang/quill/compiler/diag"
	"github.com/quill-lang/quill/compiler/loader"
	"github.com/quill-lang/quill/internal/cli/config"
	"github.com/quill-lang/quill/internal/cli/ui"
)

var (
	cratesVerbose  bool
	cratesNoColor  bool
	cratesEmitPath string
	cratesEmitName string
)

func init() {
	cratesCmd.Flags().BoolVarP(&cratesVerbose, "verbose", "v", false, "enable debug logging")
	cratesCmd.Flags().BoolVar(&cratesNoColor, "no-color", false, "disable colored output")
	cratesCmd.Flags().StringVar(&cratesEmitPath, "emit", "", "write the session's metadata blob to this file")
	cratesCmd.Flags().StringVar(&cratesEmitName, "crate-name", "app", "crate name recorded in emitted metadata")
}

var cratesCmd = &cobra.Command{
	Use:   "crates [crate names...]",
	Short: "Resolve crates and print the resulting crate graph",
	Long: `Resolves each named crate against the search paths configured in
quill.yml, exactly as the compiler would for an extern crate reference, then
prints every crate in the session graph with its dependency kind, hash, and
selected link source.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, cfg, err := buildSession(args)
		if err != nil {
			return err
		}

		prefer := cfg.LinkagePreference()
		table := ui.NewTable(os.Stdout, []string{"Crate", "Name", "Kind", "Hash", "Source"}, cratesNoColor)
		for _, uc := range store.UsedCrates(prefer) {
			src := "<none>"
			if path, ok := uc.Lib.Option(); ok {
				src = path
			} else if uc.Lib.Kind == cstore.LibSourceMetadataOnly {
				src = "<metadata only>"
			}
			table.AddRow(
				uc.Crate.String(),
				store.CrateName(uc.Crate),
				store.DepKind(uc.Crate).String(),
				store.CrateHash(uc.Crate).String(),
				src)
		}
		table.Render()

		if cratesEmitPath != "" {
			return emitMetadata(store, cfg)
		}
		return nil
	},
}

// emitMetadata encodes the session's (empty-surface) local crate metadata and
// writes it to the --emit path, so downstream tooling can be exercised
// without a full compile.
func emitMetadata(store *cstore.Store, cfg *config.Config) error {
	local := cstore.NewLocalCrateState(cratesEmitName, cfg.PanicStrategy())
	linkMeta := cstore.LinkMeta{CrateHash: cstore.FingerprintOfString(local.Name + local.Disambiguator)}
	enc := store.EncodeMetadata(local, linkMeta, nil)
	if err := os.WriteFile(cratesEmitPath, enc.RawData, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata to %s: %w", cratesEmitPath, err)
	}
	fmt.Printf("wrote %d bytes of metadata to %s\n", len(enc.RawData), cratesEmitPath)
	return nil
}

// buildSession wires a store and loader from project config and resolves the
// named crates as direct extern references.
func buildSession(names []string) (*cstore.Store, *loader.Loader, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}

	logger := zap.NewNop()
	if cratesVerbose {
		if dev, err := zap.NewDevelopment(); err == nil {
			logger = dev
		}
	}

	var paths []loader.SearchPath
	for _, sp := range cfg.Search {
		kind, err := config.ParsePathKind(sp.Kind)
		if err != nil {
			return nil, nil, nil, err
		}
		paths = append(paths, loader.SearchPath{Dir: sp.Dir, Kind: kind})
	}

	fs := afero.NewOsFs()
	sess := diag.NewSession(os.Stderr)
	store := cstore.NewStore(loader.NewArtifactLoader(fs))
	ld := loader.NewLoader(store, sess, loader.Options{
		Fs:       fs,
		Target:   cstore.Target{Triple: cfg.Target},
		Paths:    paths,
		Logger:   logger,
		Injected: cfg.Inject,
	})

	defs := cstore.NewDefinitions()
	krate := &cstore.Crate{}
	for i, name := range names {
		item := cstore.Item{
			ID:   cstore.NodeID(i + 1),
			Kind: cstore.ItemExternCrate,
			Name: name,
			Span: diag.Span{File: "<command line>", Line: 1, Column: i + 1},
		}
		krate.Items = append(krate.Items, item)
		ld.ProcessItem(item, defs)
	}
	ld.Postprocess(krate)

	return store, ld, cfg, nil
}
