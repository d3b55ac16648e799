// Package report renders aggregate views over the index: whole-repo
// summaries, per-symbol impact (callers blast radius), and plan status.
package report

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/1S33dp1sk/glyph/internal/extract"
	"github.com/1S33dp1sk/glyph/internal/graph"
	"github.com/1S33dp1sk/glyph/internal/mkparse"
	"github.com/1S33dp1sk/glyph/internal/parser"
	"github.com/1S33dp1sk/glyph/internal/rewrite"
)

// EntityOut is the summary view of one entity.
type EntityOut struct {
	GID     string `json:"gid"`
	Kind    string `json:"kind"`
	Name    string `json:"name"`
	Storage string `json:"storage"`
	DeclSig string `json:"decl_sig"`
	EffSig  string `json:"eff_sig"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// FileOut is the summary view of one scanned file.
type FileOut struct {
	Path     string      `json:"path"`
	Args     []string    `json:"args"`
	Entities []EntityOut `json:"entities"`
}

// CallOut is one call edge with global resolution applied.
type CallOut struct {
	SrcGID  string `json:"src_gid"`
	SrcName string `json:"src_name"`
	DstGID  string `json:"dst_gid,omitempty"`
	DstName string `json:"dst_name"`
}

// RepoSummary aggregates a whole-repo scan.
type RepoSummary struct {
	Root   string         `json:"root"`
	Files  []FileOut      `json:"files"`
	Calls  []CallOut      `json:"calls"`
	Totals map[string]int `json:"totals"`
}

// SummarizeOptions configures a repo summary scan.
type SummarizeOptions struct {
	Exts    []string // source extensions; defaults to parser.SourceExtensions
	Ignore  []string // path segments to skip
	MakeCmd []string // optional: harvest per-file flags via make dry-run
	Target  string   // make target when MakeCmd is set
	CFlags  []string // fallback flags when none harvested
}

// Summarize walks root and produces the full summary in two passes:
// first entities plus a global fn-name → gid map, then per-file call
// graphs resolved against that map. Files that fail to parse are skipped.
func Summarize(root string, opts SummarizeOptions) (*RepoSummary, error) {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	exts := opts.Exts
	if len(exts) == 0 {
		exts = parser.SourceExtensions()
	}
	extSet := make(map[string]bool, len(exts))
	for _, e := range exts {
		extSet[strings.ToLower(e)] = true
	}
	ignore := make(map[string]bool, len(opts.Ignore))
	for _, seg := range opts.Ignore {
		if seg != "" {
			ignore[seg] = true
		}
	}

	var perFile map[string][]string
	if len(opts.MakeCmd) > 0 {
		perFile, _ = mkparse.ExtractCompileCommands(rootAbs, opts.MakeCmd, opts.Target)
	}

	paths, err := walkSources(rootAbs, extSet, ignore)
	if err != nil {
		return nil, err
	}

	// Pass 1: entities + global symbol table.
	var files []FileOut
	globalDefs := make(map[string]string) // fn/prototype name → first gid
	for _, fp := range paths {
		code, err := os.ReadFile(fp)
		if err != nil {
			continue
		}
		args := opts.CFlags
		if harvested, ok := perFile[fp]; ok {
			args = harvested
		}
		res, err := rewrite.Snippet(code, filepath.Base(fp), args)
		if err != nil {
			continue
		}
		var ents []EntityOut
		for _, e := range res.Entities {
			ents = append(ents, EntityOut{
				GID: e.GID, Kind: e.Kind, Name: e.Name, Storage: e.Storage,
				DeclSig: e.DeclSig, EffSig: e.EffSig, Start: e.Start, End: e.End,
			})
			if (e.Kind == extract.KindFn || e.Kind == extract.KindPrototype) && e.Name != "" {
				if _, ok := globalDefs[e.Name]; !ok {
					globalDefs[e.Name] = e.GID
				}
			}
		}
		files = append(files, FileOut{Path: fp, Args: args, Entities: ents})
	}

	// Pass 2: calls with global resolution.
	var calls []CallOut
	for _, f := range files {
		code, err := os.ReadFile(f.Path)
		if err != nil {
			continue
		}
		name := filepath.Base(f.Path)
		p, err := parser.NewForFile(name)
		if err != nil {
			continue
		}
		res, err := p.Parse(code, name)
		if err != nil {
			p.Close()
			continue
		}
		ents := extract.New(res, name).Entities()
		cg := graph.Build(res, ents, name)
		localDefs := make(map[string]string)
		for _, e := range f.Entities {
			if e.Kind == extract.KindFn {
				localDefs[e.Name] = e.GID
			}
		}
		for _, src := range cg.Roots {
			srcName := cg.Names[src]
			srcGID := localDefs[srcName]
			if srcGID == "" {
				continue
			}
			dsts := make([]string, 0, len(cg.Edges[src]))
			for dst := range cg.Edges[src] {
				dsts = append(dsts, dst)
			}
			sort.Strings(dsts)
			for _, dst := range dsts {
				dstName := cg.Names[dst]
				if dstName == "" {
					continue
				}
				calls = append(calls, CallOut{
					SrcGID:  srcGID,
					SrcName: srcName,
					DstGID:  globalDefs[dstName],
					DstName: dstName,
				})
			}
		}
		res.Close()
		p.Close()
	}

	totals := map[string]int{
		"files": len(files),
		"calls": len(calls),
	}
	unresolved := 0
	for _, c := range calls {
		if c.DstGID == "" {
			unresolved++
		}
	}
	totals["unresolved_calls"] = unresolved
	entityTotal := 0
	byKind := make(map[string]int)
	for _, f := range files {
		entityTotal += len(f.Entities)
		for _, e := range f.Entities {
			byKind[e.Kind]++
		}
	}
	totals["entities"] = entityTotal
	for _, k := range []string{
		extract.KindFn, extract.KindPrototype, extract.KindTypedef,
		extract.KindStruct, extract.KindUnion, extract.KindEnum, extract.KindMacro,
	} {
		totals["entities_"+k] = byKind[k]
	}

	return &RepoSummary{Root: rootAbs, Files: files, Calls: calls, Totals: totals}, nil
}

// walkSources collects matching source files under root, skipping
// ignored path segments, sorted for determinism.
func walkSources(root string, exts, ignore map[string]bool) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree: skip, best-effort
		}
		if d.IsDir() {
			if ignore[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if ignore[d.Name()] {
			return nil
		}
		if exts[strings.ToLower(filepath.Ext(path))] {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}
