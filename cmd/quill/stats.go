package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/quill-lang/quill/compiler/cstore"
	"github.com/quill-lang/quill/internal/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats [crate names...]",
	Short: "Print body statistics for the exported items of resolved crates",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, _, err := buildSession(args)
		if err != nil {
			return err
		}

		collector := stats.NewCollector()
		for _, cnum := range store.Crates() {
			root := cstore.DefId{Crate: cnum, Index: 0}
			for _, child := range store.ItemChildren(root) {
				if !store.HasBody(child.DefID) {
					continue
				}
				collector.VisitBody(store.ItemBody(child.DefID))
			}
		}
		collector.Print(os.Stdout, "BODY STATS")
		return nil
	},
}
