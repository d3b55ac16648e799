package report

import (
	"sort"

	"github.com/1S33dp1sk/glyph/internal/store"
)

// ImpactReport is the callers blast radius of a symbol: every entity
// matching the name, per-entity caller GIDs, and the by-name union.
type ImpactReport struct {
	Target   string              `json:"target"`
	Entities []string            `json:"entities"`
	Callers  map[string][]string `json:"callers"`
	ByName   map[string][]string `json:"by_name"`
}

// Impact computes the blast radius for symbol over the store. Unknown
// symbols yield an empty report, not an error.
func Impact(s *store.Store, symbol string) (*ImpactReport, error) {
	ents, err := s.LookupByName(symbol)
	if err != nil {
		return nil, err
	}
	rep := &ImpactReport{
		Target:  symbol,
		Callers: make(map[string][]string),
		ByName:  make(map[string][]string),
	}
	union := make(map[string]bool)
	for _, e := range ents {
		rep.Entities = append(rep.Entities, e.GID)
		callers, err := s.Callers(e.GID)
		if err != nil {
			return nil, err
		}
		if callers == nil {
			callers = []string{}
		}
		rep.Callers[e.GID] = callers
		for _, c := range callers {
			union[c] = true
		}
	}
	all := make([]string, 0, len(union))
	for c := range union {
		all = append(all, c)
	}
	sort.Strings(all)
	rep.ByName[symbol] = all
	return rep, nil
}

// Explain returns the high-level repo metrics: file count, entity counts
// by kind, and the number of unresolved calls.
func Explain(s *store.Store) (map[string]any, error) {
	files, err := s.CountFiles()
	if err != nil {
		return nil, err
	}
	byKind, err := s.EntitiesByKind()
	if err != nil {
		return nil, err
	}
	unresolved, err := s.CountUnresolvedCalls()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"files":            files,
		"entities_by_kind": byKind,
		"unresolved_calls": unresolved,
	}, nil
}
