package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/1S33dp1sk/glyph/internal/pack"
	"github.com/1S33dp1sk/glyph/internal/rewrite"
)

var (
	rewriteFile   string
	rewriteName   string
	rewriteCFlags string
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite",
	Short: "Rewrite a snippet or file with GLYPH markers",
	Long: `Parse the input, extract top-level entities, and emit the source
with paired GLYPH markers on stdout. Inputs already carrying markers pass
through unchanged.`,
	RunE: runRewrite,
}

var (
	depsFile   string
	depsName   string
	depsCFlags string
)

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Print caller→callee edges for a snippet or file",
	RunE:  runDeps,
}

func init() {
	rootCmd.AddCommand(rewriteCmd)
	rewriteCmd.Flags().StringVar(&rewriteFile, "file", "-", "Path or '-' for stdin")
	rewriteCmd.Flags().StringVar(&rewriteName, "name", "snippet.c", "Virtual filename for parsing")
	rewriteCmd.Flags().StringVar(&rewriteCFlags, "cflags", "", "Compiler flags, e.g. '-Iinclude -DHAVE_X=1'")

	rootCmd.AddCommand(depsCmd)
	depsCmd.Flags().StringVar(&depsFile, "file", "-", "Path or '-' for stdin")
	depsCmd.Flags().StringVar(&depsName, "name", "snippet.c", "Virtual filename for parsing")
	depsCmd.Flags().StringVar(&depsCFlags, "cflags", "", "Compiler flags")
}

func runRewrite(cmd *cobra.Command, args []string) error {
	code, err := readInput(rewriteFile)
	if err != nil {
		return err
	}
	res, err := rewrite.Snippet(code, rewriteName, splitFlags(rewriteCFlags))
	if err != nil {
		return err
	}
	os.Stdout.Write(res.Code)
	return nil
}

func runDeps(cmd *cobra.Command, args []string) error {
	code, err := readInput(depsFile)
	if err != nil {
		return err
	}
	units, err := pack.BuildUnits(map[string][]byte{depsName: code}, splitFlags(depsCFlags))
	if err != nil {
		return err
	}
	for _, u := range units {
		cg := u.CallGraph
		roots := append([]string(nil), cg.Roots...)
		sort.Strings(roots)
		for _, src := range roots {
			dsts := make([]string, 0, len(cg.Edges[src]))
			for dst := range cg.Edges[src] {
				dsts = append(dsts, dst)
			}
			sort.Strings(dsts)
			for _, dst := range dsts {
				line := src + " -> " + dst
				if name := cg.Names[dst]; name != "" {
					line += "  # " + name
				}
				fmt.Println(line)
			}
		}
	}
	return nil
}
