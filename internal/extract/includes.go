package extract

import (
	"os"
	"path/filepath"
	"strings"
)

// Include kinds.
const (
	IncludeQuote = "quote"
	IncludeAngle = "angle"
)

// Includes returns the #include directives of the unit, resolved to paths
// that exist on disk. Quote includes are resolved against the including
// file's directory first, then the -I search dirs; angle includes search
// only the -I dirs. Directives that cannot be resolved are dropped —
// edges are best-effort, never an error.
func (e *Extractor) Includes(searchDirs []string) []IncludeEdge {
	var out []IncludeEdge
	baseDir := filepath.Dir(e.filename)
	for _, node := range e.result.FindNodesByType("preproc_include") {
		pathNode := node.ChildByFieldName("path")
		if pathNode == nil {
			continue
		}
		raw := e.result.NodeText(pathNode)
		var kind, spelled string
		switch pathNode.Type() {
		case "string_literal":
			kind = IncludeQuote
			spelled = strings.Trim(raw, `"`)
		case "system_lib_string":
			kind = IncludeAngle
			spelled = strings.Trim(raw, "<>")
		default:
			continue
		}
		if spelled == "" {
			continue
		}
		if resolved := resolveInclude(spelled, kind, baseDir, searchDirs); resolved != "" {
			out = append(out, IncludeEdge{Path: resolved, Kind: kind})
		}
	}
	return out
}

func resolveInclude(spelled, kind, baseDir string, searchDirs []string) string {
	var candidates []string
	if kind == IncludeQuote {
		candidates = append(candidates, filepath.Join(baseDir, spelled))
	}
	for _, dir := range searchDirs {
		candidates = append(candidates, filepath.Join(dir, spelled))
	}
	for _, c := range candidates {
		if st, err := os.Stat(c); err == nil && !st.IsDir() {
			return c
		}
	}
	return ""
}

// IncludeDirs extracts -I search directories from compiler flags, both the
// fused (-Iinclude) and split (-I include) spellings.
func IncludeDirs(flags []string) []string {
	var dirs []string
	for i := 0; i < len(flags); i++ {
		f := flags[i]
		switch {
		case f == "-I" || f == "-isystem":
			if i+1 < len(flags) {
				dirs = append(dirs, flags[i+1])
				i++
			}
		case strings.HasPrefix(f, "-I"):
			dirs = append(dirs, f[2:])
		}
	}
	return dirs
}
