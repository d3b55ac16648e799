package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/1S33dp1sk/glyph/internal/pack"
	"github.com/1S33dp1sk/glyph/internal/ui"
)

var (
	packFiles  []string
	packName   string
	packCFlags string
)

var packCmd = &cobra.Command{
	Use:   "pack",
	Short: "Emit a compact JSONL pack for LLMs",
	Long: `Parse the inputs and emit newline-delimited JSON with stable short
tags (hdr, fn, pr, td, rc, mc, call, gap), minified, deterministically
ordered. Repeat --file name@path to pack several units; with no --file,
stdin is read under --name.`,
	RunE: runPack,
}

var (
	treeFiles  []string
	treeName   string
	treeCFlags string
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Summarize entities, calls and gaps across inputs",
	RunE:  runTree,
}

func init() {
	rootCmd.AddCommand(packCmd)
	packCmd.Flags().StringArrayVar(&packFiles, "file", nil, "name@path (repeatable)")
	packCmd.Flags().StringVar(&packName, "name", "snippet.c", "Name for stdin when used")
	packCmd.Flags().StringVar(&packCFlags, "cflags", "", "Compiler flags")

	rootCmd.AddCommand(treeCmd)
	treeCmd.Flags().StringArrayVar(&treeFiles, "file", nil, "name@path (repeatable)")
	treeCmd.Flags().StringVar(&treeName, "name", "snippet.c", "Name for stdin when used")
	treeCmd.Flags().StringVar(&treeCFlags, "cflags", "", "Compiler flags")
}

func runPack(cmd *cobra.Command, args []string) error {
	snippets, err := readSpecs(packFiles, packName)
	if err != nil {
		return err
	}
	units, err := pack.BuildUnits(snippets, splitFlags(packCFlags))
	if err != nil {
		return err
	}
	fmt.Print(pack.Build(units).String())
	return nil
}

func runTree(cmd *cobra.Command, args []string) error {
	snippets, err := readSpecs(treeFiles, treeName)
	if err != nil {
		return err
	}
	units, err := pack.BuildUnits(snippets, splitFlags(treeCFlags))
	if err != nil {
		return err
	}
	ui.EmitJSON(pack.InferTree(units))
	return nil
}
