package cmd

import (
	"fmt"
	"os"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/1S33dp1sk/glyph/internal/extract"
	"github.com/1S33dp1sk/glyph/internal/graph"
	"github.com/1S33dp1sk/glyph/internal/parser"
	"github.com/1S33dp1sk/glyph/internal/rewrite"
	"github.com/1S33dp1sk/glyph/internal/store"
	"github.com/1S33dp1sk/glyph/internal/ui"
)

const defaultDBPath = ".glyph/idx.sqlite"

var dbPath string

var dbCmd = &cobra.Command{
	Use:     "db",
	Aliases: []string{"dbv"},
	Short:   "Index database operations",
	Long:    "DB ops: init, ingest, show, callers/callees, search, resolve, vacuum, analyze.",
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the index database and schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer s.Close()
		fmt.Println(dbPath)
		return nil
	},
}

var (
	ingestFiles  []string
	ingestCFlags string
)

var dbIngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Parse inputs and ingest entities, includes and calls",
	RunE:  runDBIngest,
}

var dbShowCmd = &cobra.Command{
	Use:   "show <gid>",
	Short: "Show an entity by GLYPH ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer s.Close()
		e, err := s.GetEntity(args[0])
		if err != nil {
			return err
		}
		if e == nil {
			os.Exit(exitNotFound)
		}
		decl := e.DeclSig
		if decl == "" {
			decl = e.Name
		}
		fmt.Printf("%s\t%s\t%s\t%s\t%s\n", e.GID, e.Kind, e.Storage, e.Name, decl)
		fmt.Printf("%s:%d-%d\n", e.FilePath, e.Start, e.End)
		if e.EffSig != "" {
			fmt.Println(e.EffSig)
		}
		return nil
	},
}

var dbCallersCmd = &cobra.Command{
	Use:   "callers <gid>",
	Short: "List source GIDs calling an entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer s.Close()
		callers, err := s.Callers(args[0])
		if err != nil {
			return err
		}
		for _, g := range callers {
			fmt.Println(g)
		}
		return nil
	},
}

var dbCalleesCmd = &cobra.Command{
	Use:   "callees <gid>",
	Short: "List an entity's call targets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer s.Close()
		callees, err := s.Callees(args[0])
		if err != nil {
			return err
		}
		for _, c := range callees {
			if c.DstGID != "" {
				fmt.Println(c.DstGID)
			} else {
				fmt.Printf("<unresolved:%s>\n", c.DstName)
			}
		}
		return nil
	},
}

var dbSearchLimit int

var identQueryRx = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var dbSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search names and signatures (exact name preferred, then FTS)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := args[0]
		s, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer s.Close()

		printed := make(map[string]bool)
		emit := func(gid, name, decl string) {
			if printed[gid] {
				return
			}
			printed[gid] = true
			fmt.Printf("%s\t%s\t%s\n", gid, name, decl)
		}

		if identQueryRx.MatchString(q) {
			ents, err := s.LookupByName(q)
			if err != nil {
				return err
			}
			for _, e := range ents {
				emit(e.GID, e.Name, e.DeclSig)
				if len(printed) >= dbSearchLimit {
					return nil
				}
			}
		}
		hits, err := s.FTSSearch(q, dbSearchLimit)
		if err != nil {
			return err
		}
		for _, h := range hits {
			emit(h.GID, h.Name, h.DeclSig)
			if len(printed) >= dbSearchLimit {
				break
			}
		}
		return nil
	},
}

var dbResolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Link unresolved calls to unique function definitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer s.Close()
		n, err := s.ResolveUnlinkedCalls()
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	},
}

var dbVacuumCmd = &cobra.Command{
	Use:   "vacuum",
	Short: "Compact the database file",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.Vacuum(); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil
	},
}

var dbAnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Refresh query planner statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.Analyze(); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath, "Database path")

	dbCmd.AddCommand(dbInitCmd, dbIngestCmd, dbShowCmd, dbCallersCmd,
		dbCalleesCmd, dbSearchCmd, dbResolveCmd, dbVacuumCmd, dbAnalyzeCmd)

	dbIngestCmd.Flags().StringArrayVar(&ingestFiles, "file", nil, "name@path (repeatable)")
	dbIngestCmd.Flags().StringVar(&ingestCFlags, "cflags", "", "Compiler flags for parsing")
	dbIngestCmd.MarkFlagRequired("file")

	dbSearchCmd.Flags().IntVar(&dbSearchLimit, "limit", 50, "Maximum results")
}

// ingestOne parses one input and loads it into the store.
func ingestOne(s *store.Store, name, path string, code []byte, flags []string) error {
	res, err := rewrite.Snippet(code, name, flags)
	if err != nil {
		return err
	}
	ents := res.Entities

	p, err := parser.NewForFile(name)
	if err != nil {
		return err
	}
	defer p.Close()
	parsed, err := p.Parse(code, name)
	if err != nil {
		return err
	}
	defer parsed.Close()

	defs := make(map[string]string)
	for _, e := range ents {
		if e.Kind == extract.KindFn {
			defs[e.Name] = e.GID
		}
	}
	cg := graph.Build(parsed, ents, name)
	edges := graph.IngestEdges(cg, code, ents, defs)
	includes := extract.New(parsed, path).Includes(extract.IncludeDirs(flags))

	return s.IngestFile(store.IngestUnit{
		Path:     path,
		Entities: ents,
		Calls:    edges,
		Includes: includes,
		Bytes:    code,
	})
}

func runDBIngest(cmd *cobra.Command, args []string) error {
	flags := splitFlags(ingestCFlags)
	s, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, spec := range ingestFiles {
		fs := parseFileSpec(spec)
		code, err := readInput(fs.Path)
		if err != nil {
			return err
		}
		if err := ingestOne(s, fs.Name, fs.Path, code, flags); err != nil {
			return fmt.Errorf("ingest %s: %w", fs.Path, err)
		}
		ui.Verbosef("ingested %s", fs.Path)
	}
	fmt.Println("ok")
	return nil
}
