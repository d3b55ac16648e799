// Package retrieve turns free-text queries into ranked, budgeted source
// context: exact-name seeds, FTS fallback, call-graph neighbour
// expansion, and snippet materialisation from entity extents.
package retrieve

import (
	"regexp"

	"github.com/1S33dp1sk/glyph/internal/store"
)

// Defaults for retrieval tuning.
const (
	DefaultLimit         = 8
	DefaultHops          = 1
	DefaultPerHop        = 4
	DefaultSurroundLines = 2
	DefaultMaxChars      = 14000
)

// Retriever answers queries over an open store.
type Retriever struct {
	store *store.Store
}

// New creates a retriever over the given store handle.
func New(s *store.Store) *Retriever {
	return &Retriever{store: s}
}

var identRx = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// identsInText returns the identifier-like tokens of a query, first
// occurrence order, deduplicated.
func identsInText(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tok := range identRx.FindAllString(text, -1) {
		if !seen[tok] {
			seen[tok] = true
			out = append(out, tok)
		}
	}
	return out
}

// Search seeds results with exact name lookups for each identifier in
// the query, then falls back to FTS over the whole query, up to limit.
func (r *Retriever) Search(query string, limit int) ([]*store.Entity, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	var out []*store.Entity
	seen := make(map[string]bool)

	for _, ident := range identsInText(query) {
		ents, err := r.store.LookupByName(ident)
		if err != nil {
			return nil, err
		}
		for _, e := range ents {
			if seen[e.GID] {
				continue
			}
			seen[e.GID] = true
			out = append(out, e)
			if len(out) >= limit {
				return out, nil
			}
		}
	}

	hits, err := r.store.FTSSearch(query, limit)
	if err != nil {
		return nil, err
	}
	for _, h := range hits {
		if seen[h.GID] {
			continue
		}
		e, err := r.store.GetEntity(h.GID)
		if err != nil {
			return nil, err
		}
		if e == nil {
			continue
		}
		seen[h.GID] = true
		out = append(out, e)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ExpandNeighbors grows the seed set along call edges, up to hops rounds
// bounded by perHop in each direction (callees then callers).
func (r *Retriever) ExpandNeighbors(seeds []*store.Entity, hops, perHop int) ([]*store.Entity, error) {
	if hops < 0 {
		hops = 0
	}
	if perHop <= 0 {
		perHop = DefaultPerHop
	}
	out := make([]*store.Entity, len(seeds))
	copy(out, seeds)
	seen := make(map[string]bool, len(seeds))
	frontier := make([]string, 0, len(seeds))
	for _, e := range seeds {
		seen[e.GID] = true
		frontier = append(frontier, e.GID)
	}

	for h := 0; h < hops && len(frontier) > 0; h++ {
		var next []string
		for _, gid := range frontier {
			callees, err := r.store.Callees(gid)
			if err != nil {
				return nil, err
			}
			if len(callees) > perHop {
				callees = callees[:perHop]
			}
			for _, c := range callees {
				if c.DstGID == "" || seen[c.DstGID] {
					continue
				}
				e, err := r.store.GetEntity(c.DstGID)
				if err != nil {
					return nil, err
				}
				if e == nil {
					continue
				}
				seen[c.DstGID] = true
				out = append(out, e)
				next = append(next, c.DstGID)
			}

			callers, err := r.store.Callers(gid)
			if err != nil {
				return nil, err
			}
			if len(callers) > perHop {
				callers = callers[:perHop]
			}
			for _, sg := range callers {
				if seen[sg] {
					continue
				}
				e, err := r.store.GetEntity(sg)
				if err != nil {
					return nil, err
				}
				if e == nil {
					continue
				}
				seen[sg] = true
				out = append(out, e)
				next = append(next, sg)
			}
		}
		frontier = next
	}
	return out, nil
}
