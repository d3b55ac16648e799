package graph

import (
	"regexp"
	"sort"

	"github.com/1S33dp1sk/glyph/internal/extract"
)

// identCallRx matches "name(" call shapes in raw source text.
var identCallRx = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

// keywordBlacklist holds identifiers that precede '(' without being calls.
var keywordBlacklist = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true,
	"return": true, "sizeof": true, "typedef": true,
	"struct": true, "union": true, "enum": true,
}

// FallbackCallees scans a function's byte extent for potential callee
// names. This is the coverage net for calls the AST pass could not
// resolve (macro-expanded calls, calls into headers, partial parses). The
// result is a sorted, deduplicated set of names, never an error.
func FallbackCallees(code []byte, fn extract.Entity) []string {
	if fn.Start < 0 || fn.End > len(code) || fn.Start >= fn.End {
		return nil
	}
	seg := code[fn.Start:fn.End]
	seen := make(map[string]bool)
	for _, m := range identCallRx.FindAllSubmatch(seg, -1) {
		name := string(m[1])
		if keywordBlacklist[name] || name == fn.Name {
			continue
		}
		seen[name] = true
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
