package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/1S33dp1sk/glyph/internal/config"
	"github.com/1S33dp1sk/glyph/internal/mkparse"
	"github.com/1S33dp1sk/glyph/internal/rewrite"
	"github.com/1S33dp1sk/glyph/internal/store"
	"github.com/1S33dp1sk/glyph/internal/ui"
)

var (
	scanRoot   string
	scanDB     string
	scanMirror string
	scanMake   string
	scanTarget string
	scanExt    string
	scanIgnore string
	scanCFlags string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan a repo, rewrite sources, and ingest the index",
	Long: `Walk the repository, parse every matching source, and ingest the
entities, includes and calls into the index. With --make, per-file
compiler flags are harvested from a make dry-run. With --mirror, the
marker-rewritten sources are written under the mirror directory.`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&scanRoot, "root", ".", "Repository root")
	scanCmd.Flags().StringVar(&scanDB, "db", defaultDBPath, "Database path")
	scanCmd.Flags().StringVar(&scanMirror, "mirror", "", "Mirror rewritten files to dir")
	scanCmd.Flags().StringVar(&scanMake, "make", "", "e.g. 'make -nB all' to harvest flags")
	scanCmd.Flags().StringVar(&scanTarget, "target", "", "make target when using --make")
	scanCmd.Flags().StringVar(&scanExt, "ext", ".c,.h,.cc,.cpp,.cxx", "Source extensions")
	scanCmd.Flags().StringVar(&scanIgnore, "ignore", ".git,.glyph,build", "Path segments to skip")
	scanCmd.Flags().StringVar(&scanCFlags, "cflags", "", "Fallback flags when none harvested")
}

func runScan(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(scanRoot)
	if err != nil {
		return err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	ignore := splitCSV(scanIgnore)
	if len(ignore) == 0 {
		ignore = cfg.Scan.Ignore
	}
	exts := splitCSV(scanExt)
	if len(exts) == 0 {
		exts = cfg.Scan.Extensions
	}

	var perFile map[string][]string
	if scanMake != "" {
		perFile, err = mkparse.ExtractCompileCommands(root, strings.Fields(scanMake), scanTarget)
		if err != nil {
			ui.Warnf("make harvest failed: %v", err)
		}
	}

	files, err := collectSources(root, exts, ignore)
	if err != nil {
		return err
	}
	ui.Info("scanning %d files under %s", len(files), root)

	if scanMirror != "" {
		if err := os.MkdirAll(scanMirror, 0o755); err != nil {
			return err
		}
	}

	s, err := store.Open(scanDB)
	if err != nil {
		return err
	}
	defer s.Close()

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("scan"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetVisibility(!ui.JSONMode()),
		progressbar.OptionClearOnFinish(),
	)

	fallback := splitFlags(scanCFlags)
	if len(fallback) == 0 {
		fallback = cfg.Scan.CFlags
	}

	scanned, failed := 0, 0
	for _, fp := range files {
		bar.Add(1)
		code, err := os.ReadFile(fp)
		if err != nil {
			failed++
			ui.Warnf("read %s: %v", fp, err)
			continue
		}
		flags := fallback
		if harvested, ok := perFile[fp]; ok {
			flags = harvested
		}
		name := filepath.Base(fp)
		if err := ingestOne(s, name, fp, code, flags); err != nil {
			failed++
			ui.Warnf("ingest %s: %v", fp, err)
			continue
		}
		scanned++

		if scanMirror != "" {
			if err := writeMirror(root, fp, code, name, flags); err != nil {
				ui.Warnf("mirror %s: %v", fp, err)
			}
		}
	}
	bar.Finish()

	if failed > 0 {
		ui.Warnf("scan finished: %d ingested, %d failed", scanned, failed)
	} else {
		ui.Successf("scan finished: %d ingested", scanned)
	}
	if ui.JSONMode() {
		ui.EmitJSON(map[string]any{"scanned": scanned, "failed": failed, "db": scanDB})
	} else {
		fmt.Println(scanDB)
	}
	return nil
}

// writeMirror rewrites one source with markers into the mirror tree.
func writeMirror(root, fp string, code []byte, name string, flags []string) error {
	res, err := rewrite.Snippet(code, name, flags)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(root, fp)
	if err != nil {
		rel = filepath.Base(fp)
	}
	out := filepath.Join(scanMirror, rel)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	return os.WriteFile(out, res.Code, 0o644)
}

// collectSources walks root for matching files, skipping ignored
// segments.
func collectSources(root string, exts, ignore []string) ([]string, error) {
	extSet := make(map[string]bool, len(exts))
	for _, e := range exts {
		extSet[strings.ToLower(e)] = true
	}
	igSet := make(map[string]bool, len(ignore))
	for _, seg := range ignore {
		igSet[seg] = true
	}
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if igSet[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if extSet[strings.ToLower(filepath.Ext(path))] {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}
