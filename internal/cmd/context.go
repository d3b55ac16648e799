package cmd

import (
	"github.com/spf13/cobra"

	"github.com/1S33dp1sk/glyph/internal/retrieve"
	"github.com/1S33dp1sk/glyph/internal/store"
	"github.com/1S33dp1sk/glyph/internal/ui"
)

var (
	contextDB       string
	contextSeeds    int
	contextHops     int
	contextMaxChars int
)

var contextCmd = &cobra.Command{
	Use:   "context <query>",
	Short: "Retrieve budgeted source context for a query",
	Long: `Seed by exact identifier lookup, fall back to full-text search,
expand along call edges, and materialise the matching source spans under
a character budget. The result is a JSON list of context items.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Open(contextDB)
		if err != nil {
			return err
		}
		defer s.Close()

		r := retrieve.New(s)
		seeds, err := r.Search(args[0], contextSeeds)
		if err != nil {
			return err
		}
		perHop := contextSeeds / 2
		if perHop < 2 {
			perHop = 2
		}
		expanded, err := r.ExpandNeighbors(seeds, contextHops, perHop)
		if err != nil {
			return err
		}
		items := r.Materialize(expanded, retrieve.DefaultSurroundLines, contextMaxChars)
		ui.EmitJSON(items)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(contextCmd)
	contextCmd.Flags().StringVar(&contextDB, "db", defaultDBPath, "Database path")
	contextCmd.Flags().IntVar(&contextSeeds, "k", retrieve.DefaultLimit, "Seed results to retrieve")
	contextCmd.Flags().IntVar(&contextHops, "hops", retrieve.DefaultHops, "Neighbor expansion around seeds")
	contextCmd.Flags().IntVar(&contextMaxChars, "max-chars", retrieve.DefaultMaxChars, "Context size cap")
}
