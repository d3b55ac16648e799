package cmd

import (
	"github.com/spf13/cobra"

	"github.com/1S33dp1sk/glyph/internal/mcp"
	"github.com/1S33dp1sk/glyph/internal/ui"
)

var serveDB string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the index over MCP (stdio transport)",
	Long: `Expose the index to MCP clients: glyph_search, glyph_show,
glyph_callers, glyph_callees and glyph_impact tools over stdio.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := mcp.New(serveDB)
		if err != nil {
			return err
		}
		defer srv.Close()
		ui.Info("glyph MCP server listening on stdio")
		return srv.ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveDB, "db", defaultDBPath, "Database path")
}
