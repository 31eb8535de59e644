package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quill-lang/quill/compiler/cstore"
	"github.com/quill-lang/quill/internal/cli/ui"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("quill %s\n", Version)
		kv := ui.NewKeyValueTable(os.Stdout, false)
		kv.AddRow("commit", GitCommit)
		kv.AddRow("built", BuildDate)
		kv.AddRow("metadata version", fmt.Sprintf("%q", cstore.MetadataVersion()))
		kv.Render()
	},
}
