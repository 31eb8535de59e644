package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/quill-lang/quill/compiler/cstore"
	"github.com/quill-lang/quill/compiler/loader"
	"github.com/quill-lang/quill/internal/cli/ui"
)

var metaNoColor bool

func init() {
	metaCmd.Flags().BoolVar(&metaNoColor, "no-color", false, "disable colored output")
}

var metaCmd = &cobra.Command{
	Use:   "meta <artifact>",
	Short: "Decode and print a crate artifact's metadata",
	Long: `Extracts the metadata section from a built crate artifact (.qso, .qar,
or .qmeta) and prints its contents: crate identity, dependency entries,
native libraries, and exported items.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		blob, err := readArtifactMetadata(args[0])
		if err != nil {
			return err
		}
		root, err := cstore.DecodeMetadata(blob)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		kv := ui.NewKeyValueTable(os.Stdout, metaNoColor)
		kv.AddRow("name", root.Name)
		kv.AddRow("disambiguator", root.Disambiguator)
		kv.AddRow("hash", root.CrateHash.String())
		kv.AddRow("panic", root.PanicStrategy.String())
		kv.AddRow("deps", strconv.Itoa(len(root.Deps)))
		kv.AddRow("exports", strconv.Itoa(len(root.Exports)))
		kv.Render()

		if len(root.Deps) > 0 {
			fmt.Println()
			deps := ui.NewTable(os.Stdout, []string{"Dep", "Kind", "Hash"}, metaNoColor)
			for _, d := range root.Deps {
				deps.AddRow(d.Name, d.Kind.String(), d.Hash.String())
			}
			deps.Render()
		}

		if len(root.Exports) > 0 {
			fmt.Println()
			exports := ui.NewTable(os.Stdout, []string{"Index", "Name", "Kind", "Signature"}, metaNoColor)
			for _, e := range root.Exports {
				exports.AddRow(strconv.Itoa(int(e.Index)), e.Name, e.Kind, e.Signature)
			}
			exports.Render()
		}
		return nil
	},
}

// readArtifactMetadata pulls the raw metadata blob out of an artifact based
// on its filename extension.
func readArtifactMetadata(path string) ([]byte, error) {
	fs := afero.NewOsFs()
	al := loader.NewArtifactLoader(fs)
	switch {
	case strings.HasSuffix(path, ".qso"):
		return al.DynLibMetadata(cstore.Target{}, path)
	case strings.HasSuffix(path, ".qar"):
		return al.ArchiveMetadata(cstore.Target{}, path)
	case strings.HasSuffix(path, ".qmeta"):
		return afero.ReadFile(fs, path)
	default:
		return nil, fmt.Errorf("%s is not a recognized crate artifact", path)
	}
}
