// Package cmd contains all CLI commands for glyph.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/1S33dp1sk/glyph/internal/ui"
)

// Version is the current version of glyph.
var Version = "0.1.0"

// Exit codes shared by the commands.
const (
	exitOK       = 0
	exitNotFound = 1
	exitArgError = 2
)

var (
	verbose   bool
	quiet     bool
	jsonOut   bool
	colorMode string
)

var rootCmd = &cobra.Command{
	Use:   "glyph",
	Short: "Readable C/C++ marker and analysis",
	Long: `glyph indexes C/C++ translation units: it extracts top-level
entities, assigns each a deterministic content-addressed ID, brackets
every entity with paired GLYPH comment markers, derives call graphs, and
persists everything into a single-file SQLite index with full-text search.

Main capabilities:
  - Rewrite sources with GLYPH markers (idempotent)
  - Emit a compact JSONL pack for model consumption
  - Scan whole repositories, optionally harvesting flags via 'make -nB'
  - Query the index: callers, callees, search, blast radius
  - Resolve unlinked calls by unique definition name

Examples:
  glyph rewrite --file src/util.c
  glyph scan --root . --db .glyph/idx.sqlite
  glyph db search parse_header
  glyph db callers K61PXXH29T
  glyph impact --symbol compute_hash`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		verb := ui.Normal
		if quiet {
			verb = ui.Quiet
		} else if verbose {
			verb = ui.Verbose
		}
		ui.Configure(verb, jsonOut, colorMode)
	},
	SilenceUsage: true,
}

// Execute runs the root command. Called once from main.
func Execute() {
	if cmd, err := rootCmd.ExecuteC(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if cmd.ValidateArgs(cmd.Flags().Args()) != nil || cmd.ValidateRequiredFlags() != nil {
			os.Exit(exitArgError)
		}
		os.Exit(exitNotFound)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress informational output")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON on stdout")
	rootCmd.PersistentFlags().StringVar(&colorMode, "color", "auto", "Colorize stderr output (auto|always|never)")

	// Bad flags and bad arguments exit 2; runtime failures exit 1.
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitArgError)
		return nil
	})
}

// argErrorf reports a usage problem with the documented exit code.
func argErrorf(format string, args ...any) error {
	ui.Errorf("error: "+format, args...)
	os.Exit(exitArgError)
	return nil
}
