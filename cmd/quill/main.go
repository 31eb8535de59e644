package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quill-lang/quill/compiler/diag"
)

var (
	// Version information - will be set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "quill",
		Short: "Quill compiler crate tooling",
		Long: `Quill is a systems programming language. This tool inspects the crate
graph the compiler resolves against: loaded crates, their dependency kinds,
link sources, and compiled-body statistics.`,
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cratesCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(metaCmd)

	defer func() {
		if r := recover(); r != nil {
			if fatal, ok := r.(diag.FatalError); ok {
				fmt.Fprintln(os.Stderr, "error:", fatal.Error())
				os.Exit(1)
			}
			panic(r)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
