package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/1S33dp1sk/glyph/internal/report"
	"github.com/1S33dp1sk/glyph/internal/store"
	"github.com/1S33dp1sk/glyph/internal/ui"
)

var (
	summaryRoot   string
	summaryMake   string
	summaryTarget string
	summaryCFlags string
	summaryExt    string
	summaryIgnore string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Scour a codebase and emit a full summary (files, entities, calls)",
	RunE: func(cmd *cobra.Command, args []string) error {
		var makeCmd []string
		if summaryMake != "" {
			makeCmd = strings.Fields(summaryMake)
		}
		res, err := report.Summarize(summaryRoot, report.SummarizeOptions{
			Exts:    splitCSV(summaryExt),
			Ignore:  splitCSV(summaryIgnore),
			MakeCmd: makeCmd,
			Target:  summaryTarget,
			CFlags:  splitFlags(summaryCFlags),
		})
		if err != nil {
			return err
		}
		ui.EmitJSON(res)
		return nil
	},
}

var (
	impactDB     string
	impactSymbol string
)

var impactCmd = &cobra.Command{
	Use:   "impact",
	Short: "Show the callers (blast radius) of a symbol",
	RunE: func(cmd *cobra.Command, args []string) error {
		if impactSymbol == "" {
			return argErrorf("--symbol is required")
		}
		s, err := store.Open(impactDB)
		if err != nil {
			return err
		}
		defer s.Close()
		rep, err := report.Impact(s, impactSymbol)
		if err != nil {
			return err
		}
		if ui.JSONMode() {
			ui.EmitJSON(rep)
			return nil
		}
		fmt.Printf("target: %s\n", rep.Target)
		fmt.Printf("entities: %s\n", orNone(strings.Join(rep.Entities, ", ")))
		fmt.Println("callers:")
		if len(rep.Callers) == 0 {
			fmt.Println("  (none)")
			return nil
		}
		gids := make([]string, 0, len(rep.Callers))
		for gid := range rep.Callers {
			gids = append(gids, gid)
		}
		sort.Strings(gids)
		for _, gid := range gids {
			fmt.Printf("  %s: %s\n", gid, orNone(strings.Join(rep.Callers[gid], ", ")))
		}
		return nil
	},
}

var (
	statusDB   string
	statusPlan string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Evaluate a plan.json against current repo signals",
	RunE: func(cmd *cobra.Command, args []string) error {
		if statusPlan == "" {
			return argErrorf("--plan is required")
		}
		s, err := store.Open(statusDB)
		if err != nil {
			return err
		}
		defer s.Close()
		rep, err := report.Status(s, statusPlan)
		if err != nil {
			return err
		}
		ui.EmitJSON(rep)
		return nil
	},
}

var explainDB string

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Explain the codebase (basic index metrics)",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Open(explainDB)
		if err != nil {
			return err
		}
		defer s.Close()
		metrics, err := report.Explain(s)
		if err != nil {
			return err
		}
		if ui.JSONMode() {
			ui.EmitJSON(metrics)
			return nil
		}
		byKind, _ := metrics["entities_by_kind"].(map[string]int)
		kinds := make([]string, 0, len(byKind))
		for k := range byKind {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		var parts []string
		for _, k := range kinds {
			parts = append(parts, fmt.Sprintf("%s:%d", k, byKind[k]))
		}
		fmt.Println("# Repo summary")
		fmt.Printf("- Files: %v\n", metrics["files"])
		fmt.Printf("- Unresolved calls: %v\n", metrics["unresolved_calls"])
		fmt.Printf("- Entities by kind: %s\n", orNone(strings.Join(parts, ", ")))
		return nil
	},
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func init() {
	rootCmd.AddCommand(summaryCmd, impactCmd, statusCmd, explainCmd)

	summaryCmd.Flags().StringVar(&summaryRoot, "root", ".", "Repository root")
	summaryCmd.Flags().StringVar(&summaryMake, "make", "", "e.g. 'make -nB all' to harvest per-file flags")
	summaryCmd.Flags().StringVar(&summaryTarget, "target", "", "make target for --make")
	summaryCmd.Flags().StringVar(&summaryCFlags, "cflags", "", "Fallback compiler flags")
	summaryCmd.Flags().StringVar(&summaryExt, "ext", ".c,.h,.cc,.cpp,.cxx,.hpp,.hh,.hxx", "Source extensions")
	summaryCmd.Flags().StringVar(&summaryIgnore, "ignore", ".git,.glyph,build", "Path segments to skip")

	impactCmd.Flags().StringVar(&impactDB, "db", defaultDBPath, "Database path")
	impactCmd.Flags().StringVar(&impactSymbol, "symbol", "", "Symbol to analyze")

	statusCmd.Flags().StringVar(&statusDB, "db", defaultDBPath, "Database path")
	statusCmd.Flags().StringVar(&statusPlan, "plan", "", "Path to plan.json")

	explainCmd.Flags().StringVar(&explainDB, "db", defaultDBPath, "Database path")
}
