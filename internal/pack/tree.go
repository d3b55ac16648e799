package pack

import (
	"sort"
	"strings"

	"github.com/1S33dp1sk/glyph/internal/extract"
)

// GapMissingDef records a prototype with no matching definition anywhere
// in the input set.
type GapMissingDef struct {
	Name      string   `json:"name"`
	DeclFiles []string `json:"decl_files"`
}

// GapUndefinedRef records a call whose callee is not a known definition.
type GapUndefinedRef struct {
	CallerID   string `json:"caller_id"`
	CallerName string `json:"caller_name"`
	CalleeName string `json:"callee_name"`
}

// Hotspot is a function ranked by fan-out.
type Hotspot struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Fanout   int    `json:"fanout"`
	Indegree int    `json:"indegree"`
}

// TreeSummary is the cross-unit inference over a set of parsed inputs.
type TreeSummary struct {
	Files            []string          `json:"files"`
	Totals           map[string]int    `json:"totals"`
	Modules          map[string]int    `json:"modules"`
	GapsMissingDefs  []GapMissingDef   `json:"gaps_missing_defs"`
	GapsUndefinedRef []GapUndefinedRef `json:"gaps_undefined_refs"`
	Hotspots         []Hotspot         `json:"hotspots"`
}

const (
	maxMissingDefs = 100
	maxUndefRefs   = 200
	maxHotspots    = 10
)

// InferTree derives the cross-unit summary: totals, per-top-level-dir
// module bins, prototype/definition gaps, undefined references, and
// fan-out hotspots.
func InferTree(units []Unit) *TreeSummary {
	files := make([]string, 0, len(units))
	byID := make(map[string]extract.Entity)
	defsByName := make(map[string][]string)
	declsByName := make(map[string][]string)
	counts := map[string]int{
		"fn_defs": 0, "prototypes": 0, "typedefs": 0,
		"records": 0, "macros": 0, "entities": 0,
	}

	for _, u := range units {
		files = append(files, u.Filename)
		for _, e := range u.Entities {
			byID[e.GID] = e
			counts["entities"]++
			switch e.Kind {
			case extract.KindFn:
				counts["fn_defs"]++
				defsByName[e.Name] = append(defsByName[e.Name], e.GID)
			case extract.KindPrototype:
				counts["prototypes"]++
				declsByName[e.Name] = append(declsByName[e.Name], u.Filename)
			case extract.KindTypedef:
				counts["typedefs"]++
			case extract.KindStruct, extract.KindUnion, extract.KindEnum:
				counts["records"]++
			case extract.KindMacro:
				counts["macros"]++
			}
		}
	}

	var missing []GapMissingDef
	for name, declFiles := range declsByName {
		if len(defsByName[name]) > 0 {
			continue
		}
		uniq := uniqueSorted(declFiles)
		missing = append(missing, GapMissingDef{Name: name, DeclFiles: uniq})
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i].Name < missing[j].Name })
	if len(missing) > maxMissingDefs {
		missing = missing[:maxMissingDefs]
	}

	fanout := make(map[string]int)
	indegree := make(map[string]int)
	var undef []GapUndefinedRef
	for _, u := range units {
		cg := u.CallGraph
		for _, fid := range cg.Roots {
			if _, ok := fanout[fid]; !ok {
				fanout[fid] = 0
			}
			for cid := range cg.Edges[fid] {
				fanout[fid]++
				indegree[cid]++
				if _, known := byID[cid]; !known {
					undef = append(undef, GapUndefinedRef{
						CallerID:   fid,
						CallerName: nameOf(fid, units, "<fn>"),
						CalleeName: nameOf(cid, units, "<ext>"),
					})
				}
			}
		}
	}
	sort.Slice(undef, func(i, j int) bool {
		if undef[i].CallerID != undef[j].CallerID {
			return undef[i].CallerID < undef[j].CallerID
		}
		return undef[i].CalleeName < undef[j].CalleeName
	})
	if len(undef) > maxUndefRefs {
		undef = undef[:maxUndefRefs]
	}

	type ranked struct {
		id string
		fo int
	}
	var rank []ranked
	for id, fo := range fanout {
		rank = append(rank, ranked{id, fo})
	}
	sort.Slice(rank, func(i, j int) bool {
		if rank[i].fo != rank[j].fo {
			return rank[i].fo > rank[j].fo
		}
		return rank[i].id < rank[j].id
	})
	if len(rank) > maxHotspots {
		rank = rank[:maxHotspots]
	}
	var hotspots []Hotspot
	for _, r := range rank {
		hotspots = append(hotspots, Hotspot{
			ID:       r.id,
			Name:     nameOf(r.id, units, r.id),
			Fanout:   r.fo,
			Indegree: indegree[r.id],
		})
	}

	modules := make(map[string]int)
	for _, f := range files {
		seg := "."
		if idx := strings.Index(f, "/"); idx >= 0 {
			seg = f[:idx]
		}
		modules[seg]++
	}

	sort.Strings(files)
	return &TreeSummary{
		Files:            files,
		Totals:           counts,
		Modules:          modules,
		GapsMissingDefs:  missing,
		GapsUndefinedRef: undef,
		Hotspots:         hotspots,
	}
}

// nameOf resolves an id to a human name via entities first, then the
// call-graph name maps.
func nameOf(id string, units []Unit, fallback string) string {
	for _, u := range units {
		for _, e := range u.Entities {
			if e.GID == id {
				return e.Name
			}
		}
	}
	for _, u := range units {
		if n, ok := u.CallGraph.Names[id]; ok {
			return n
		}
	}
	return fallback
}

func uniqueSorted(xs []string) []string {
	seen := make(map[string]bool, len(xs))
	var out []string
	for _, x := range xs {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	sort.Strings(out)
	return out
}
