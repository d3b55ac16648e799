// Package rewrite inserts paired GLYPH markers around extracted entities.
//
// Markers are stable external surface:
//
//	\n/* GLYPH:S <gid> */\n ... \n/* GLYPH:E <gid> */\n
//
// Insertion is idempotent: a buffer already containing any marker is
// returned unchanged with no entities, signalling "no work".
package rewrite

import (
	"bytes"
	"sort"

	"github.com/1S33dp1sk/glyph/internal/extract"
	"github.com/1S33dp1sk/glyph/internal/parser"
)

// Marker detection substrings (exact, including trailing space).
var (
	markerStart = []byte("/* GLYPH:S ")
	markerEnd   = []byte("/* GLYPH:E ")
)

// Result is the outcome of a rewrite: the marked source plus the entities
// whose extents (into the ORIGINAL bytes) drove the insertion.
type Result struct {
	Code     []byte
	Entities []extract.Entity
}

// AlreadyMarked reports whether buf carries any GLYPH marker.
func AlreadyMarked(buf []byte) bool {
	return bytes.Contains(buf, markerStart) || bytes.Contains(buf, markerEnd)
}

// Snippet parses code under a virtual filename, extracts entities, and
// inserts markers. extraFlags are accepted but not used: the
// grammar-based parse does not need them.
func Snippet(code []byte, filename string, extraFlags []string) (*Result, error) {
	if AlreadyMarked(code) {
		return &Result{Code: code, Entities: nil}, nil
	}
	p, err := parser.NewForFile(filename)
	if err != nil {
		return nil, err
	}
	defer p.Close()
	res, err := p.Parse(code, filename)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	ents := extract.New(res, filename).Entities()
	return &Result{Code: InsertMarkers(code, ents), Entities: ents}, nil
}

// InsertMarkers inserts marker pairs around each entity extent. All
// insertion points index the original buffer and are applied in descending
// offset order, so every recorded extent stays valid — including entities
// whose extents nest (a typedef wrapping a record definition).
func InsertMarkers(buf []byte, ents []extract.Entity) []byte {
	type insertion struct {
		off   int
		start bool
		text  []byte
	}
	var ins []insertion
	for _, e := range ents {
		if e.Start < 0 || e.End > len(buf) || e.Start > e.End {
			continue
		}
		ins = append(ins,
			insertion{e.Start, true, []byte("\n/* GLYPH:S " + e.GID + " */\n")},
			insertion{e.End, false, []byte("\n/* GLYPH:E " + e.GID + " */\n")},
		)
	}
	sort.SliceStable(ins, func(i, j int) bool {
		if ins[i].off != ins[j].off {
			return ins[i].off > ins[j].off
		}
		// At a shared offset start markers are applied first, so the end
		// marker of an entity that ends there lands ahead of them.
		return ins[i].start && !ins[j].start
	})

	out := make([]byte, len(buf))
	copy(out, buf)
	for _, i := range ins {
		out = insertAt(out, i.off, i.text)
	}
	return out
}

func insertAt(buf []byte, off int, ins []byte) []byte {
	out := make([]byte, 0, len(buf)+len(ins))
	out = append(out, buf[:off]...)
	out = append(out, ins...)
	out = append(out, buf[off:]...)
	return out
}
