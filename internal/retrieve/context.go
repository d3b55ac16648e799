package retrieve

import (
	"os"
	"strings"

	"github.com/1S33dp1sk/glyph/internal/store"
)

// ContextItem is a materialised source span for one entity.
type ContextItem struct {
	GID      string `json:"gid"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Storage  string `json:"storage"`
	DeclSig  string `json:"decl_sig"`
	FilePath string `json:"file_path"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Snippet  string `json:"snippet"`
}

// Materialize slices each entity's byte extent out of its owning file,
// expanded to full lines plus surroundLines of context, under a global
// maxChars budget. I/O failures degrade: whole file first, then empty —
// never an error.
func (r *Retriever) Materialize(ents []*store.Entity, surroundLines, maxChars int) []ContextItem {
	if surroundLines < 0 {
		surroundLines = DefaultSurroundLines
	}
	if maxChars == 0 {
		maxChars = DefaultMaxChars
	}
	var items []ContextItem
	total := 0
	for _, e := range ents {
		snip := readSpan(e.FilePath, e.Start, e.End, surroundLines)
		if maxChars > 0 && total+len(snip) > maxChars {
			keep := maxChars - total
			if keep < 0 {
				keep = 0
			}
			snip = snip[:keep]
		}
		decl := e.DeclSig
		if decl == "" {
			decl = e.Name
		}
		items = append(items, ContextItem{
			GID:      e.GID,
			Name:     e.Name,
			Kind:     e.Kind,
			Storage:  e.Storage,
			DeclSig:  decl,
			FilePath: e.FilePath,
			Start:    e.Start,
			End:      e.End,
			Snippet:  snip,
		})
		total += len(snip)
		if maxChars > 0 && total >= maxChars {
			break
		}
	}
	return items
}

// readSpan reads path and returns the lines covering [start,end) plus
// surround lines. On any failure it falls back to the whole file, then
// to empty.
func readSpan(path string, start, end, surround int) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	if start < 0 {
		start = 0
	}
	if start > len(data) {
		start = len(data)
	}
	if end < start {
		end = start
	}
	if end > len(data) {
		end = len(data)
	}

	full := string(data)
	before := strings.Count(full[:start], "\n")
	after := before + strings.Count(full[start:end], "\n")
	lines := strings.Split(full, "\n")

	lo := before - surround
	if lo < 0 {
		lo = 0
	}
	hi := after + 1 + surround
	if hi > len(lines) {
		hi = len(lines)
	}
	if lo >= hi {
		return full
	}
	return strings.Join(lines[lo:hi], "\n")
}
