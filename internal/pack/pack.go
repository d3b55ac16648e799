// Package pack emits the compact JSONL exchange format: one minified
// JSON object per line with stable short tags (hdr, fn, pr, td, rc, mc,
// call, gap) and deterministic ordering, sized for model context windows.
package pack

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/1S33dp1sk/glyph/internal/extract"
	"github.com/1S33dp1sk/glyph/internal/graph"
	"github.com/1S33dp1sk/glyph/internal/parser"
	"github.com/1S33dp1sk/glyph/internal/rewrite"
)

// Unit is one parsed input: its entities and per-unit call graph.
type Unit struct {
	Filename  string
	Entities  []extract.Entity
	CallGraph *graph.CallGraph
}

// Pack is a sequence of JSONL lines.
type Pack struct {
	Lines []string
}

// String joins the lines with a trailing newline.
func (p *Pack) String() string {
	if len(p.Lines) == 0 {
		return ""
	}
	return strings.Join(p.Lines, "\n") + "\n"
}

// BuildUnits parses each snippet (sorted by filename for determinism)
// into a Unit. Marker-bearing inputs contribute no entities, matching the
// rewriter's idempotence contract.
func BuildUnits(snippets map[string][]byte, extraFlags []string) ([]Unit, error) {
	names := make([]string, 0, len(snippets))
	for name := range snippets {
		names = append(names, name)
	}
	sort.Strings(names)

	var units []Unit
	for _, name := range names {
		code := snippets[name]
		res, err := rewrite.Snippet(code, name, extraFlags)
		if err != nil {
			return nil, err
		}
		p, err := parser.NewForFile(name)
		if err != nil {
			return nil, err
		}
		parsed, err := p.Parse(code, name)
		if err != nil {
			p.Close()
			return nil, err
		}
		cg := graph.Build(parsed, res.Entities, name)
		parsed.Close()
		p.Close()
		units = append(units, Unit{Filename: name, Entities: res.Entities, CallGraph: cg})
	}
	return units, nil
}

// kindTag maps entity kinds to the wire tags.
func kindTag(kind string) string {
	switch kind {
	case extract.KindFn:
		return "fn"
	case extract.KindPrototype:
		return "pr"
	case extract.KindTypedef:
		return "td"
	case extract.KindStruct, extract.KindUnion, extract.KindEnum:
		return "rc"
	case extract.KindMacro:
		return "mc"
	}
	return "uk"
}

// minify marshals with "," and ":" separators and no key reordering
// beyond the struct layout.
func minify(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
	return strings.TrimRight(buf.String(), "\n")
}

type hdrRec struct {
	T      string         `json:"t"`
	V      int            `json:"v"`
	Files  []string       `json:"files"`
	Counts map[string]int `json:"counts"`
}

type fnRec struct {
	T   string `json:"t"`
	ID  string `json:"id"`
	N   string `json:"n"`
	S   string `json:"s"`
	Sig string `json:"sig"`
	F   int    `json:"f"`
}

type tdRec struct {
	T   string `json:"t"`
	ID  string `json:"id"`
	N   string `json:"n"`
	Sig string `json:"sig"`
	F   int    `json:"f"`
}

type rcRec struct {
	T   string `json:"t"`
	ID  string `json:"id"`
	K   string `json:"k"`
	N   string `json:"n"`
	Sig string `json:"sig"`
	F   int    `json:"f"`
}

type mcRec struct {
	T  string `json:"t"`
	ID string `json:"id"`
	N  string `json:"n"`
	F  int    `json:"f"`
}

type callRec struct {
	T    string `json:"t"`
	Src  string `json:"src"`
	Dst  string `json:"dst,omitempty"`
	DstN string `json:"dstn,omitempty"`
}

type gapMissingRec struct {
	T     string `json:"t"`
	K     string `json:"k"`
	N     string `json:"n"`
	Files []int  `json:"files"`
}

type gapUndefRec struct {
	T    string `json:"t"`
	K    string `json:"k"`
	Src  string `json:"src"`
	DstN string `json:"dstn"`
}

// Build renders units to the JSONL pack: header, entities sorted by
// (kind tag, name, gid), deduplicated calls ascending (src, dst), then
// the gap records (missing definitions, undefined references).
func Build(units []Unit) *Pack {
	files := make([]string, len(units))
	fileIx := make(map[string]int, len(units))
	for i, u := range units {
		files[i] = u.Filename
		fileIx[u.Filename] = i
	}

	type flatEnt struct {
		ent extract.Entity
		ix  int
	}
	var all []flatEnt
	for _, u := range units {
		ix := fileIx[u.Filename]
		for _, e := range u.Entities {
			all = append(all, flatEnt{ent: e, ix: ix})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		ti, tj := kindTag(all[i].ent.Kind), kindTag(all[j].ent.Kind)
		if ti != tj {
			return ti < tj
		}
		if all[i].ent.Name != all[j].ent.Name {
			return all[i].ent.Name < all[j].ent.Name
		}
		return all[i].ent.GID < all[j].ent.GID
	})

	knownIDs := make(map[string]bool)
	declFiles := make(map[string]map[int]bool)
	defNames := make(map[string]bool)
	counts := map[string]int{"fn": 0, "pr": 0, "td": 0, "rec": 0, "mc": 0}
	for _, fe := range all {
		knownIDs[fe.ent.GID] = true
		switch kindTag(fe.ent.Kind) {
		case "fn":
			counts["fn"]++
			defNames[fe.ent.Name] = true
		case "pr":
			counts["pr"]++
			if declFiles[fe.ent.Name] == nil {
				declFiles[fe.ent.Name] = make(map[int]bool)
			}
			declFiles[fe.ent.Name][fe.ix] = true
		case "td":
			counts["td"]++
		case "rc":
			counts["rec"]++
		case "mc":
			counts["mc"]++
		}
	}

	var lines []string
	lines = append(lines, minify(hdrRec{T: "hdr", V: 1, Files: files, Counts: counts}))

	for _, fe := range all {
		e, ix := fe.ent, fe.ix
		switch kindTag(e.Kind) {
		case "fn":
			lines = append(lines, minify(fnRec{T: "fn", ID: e.GID, N: e.Name, S: e.Storage, Sig: e.DeclSig, F: ix}))
		case "pr":
			lines = append(lines, minify(fnRec{T: "pr", ID: e.GID, N: e.Name, S: e.Storage, Sig: e.DeclSig, F: ix}))
		case "td":
			lines = append(lines, minify(tdRec{T: "td", ID: e.GID, N: e.Name, Sig: e.DeclSig, F: ix}))
		case "rc":
			lines = append(lines, minify(rcRec{T: "rc", ID: e.GID, K: e.Kind, N: e.Name, Sig: e.EffSig, F: ix}))
		case "mc":
			lines = append(lines, minify(mcRec{T: "mc", ID: e.GID, N: e.Name, F: ix}))
		}
	}

	type callLine struct {
		key  [2]string
		line string
	}
	var callLines []callLine
	seenCalls := make(map[[2]string]bool)
	for _, u := range units {
		cg := u.CallGraph
		roots := append([]string(nil), cg.Roots...)
		sort.Strings(roots)
		for _, src := range roots {
			dsts := make([]string, 0, len(cg.Edges[src]))
			for dst := range cg.Edges[src] {
				dsts = append(dsts, dst)
			}
			sort.Strings(dsts)
			for _, dst := range dsts {
				key := [2]string{src, dst}
				if seenCalls[key] {
					continue
				}
				seenCalls[key] = true
				if knownIDs[dst] {
					callLines = append(callLines, callLine{key, minify(callRec{T: "call", Src: src, Dst: dst})})
				} else {
					name := cg.Names[dst]
					if name == "" {
						name = "unknown"
					}
					callLines = append(callLines, callLine{key, minify(callRec{T: "call", Src: src, DstN: name})})
				}
			}
		}
	}
	sort.Slice(callLines, func(i, j int) bool {
		a, b := callLines[i].key, callLines[j].key
		return a[0] < b[0] || (a[0] == b[0] && a[1] < b[1])
	})
	for _, c := range callLines {
		lines = append(lines, c.line)
	}

	declNames := make([]string, 0, len(declFiles))
	for name := range declFiles {
		declNames = append(declNames, name)
	}
	sort.Strings(declNames)
	for _, name := range declNames {
		if defNames[name] {
			continue
		}
		var ixs []int
		for ix := range declFiles[name] {
			ixs = append(ixs, ix)
		}
		sort.Ints(ixs)
		lines = append(lines, minify(gapMissingRec{T: "gap", K: "missing_def", N: name, Files: ixs}))
	}

	seenUndef := make(map[[2]string]bool)
	for _, u := range units {
		cg := u.CallGraph
		roots := append([]string(nil), cg.Roots...)
		sort.Strings(roots)
		for _, src := range roots {
			dsts := make([]string, 0, len(cg.Edges[src]))
			for dst := range cg.Edges[src] {
				dsts = append(dsts, dst)
			}
			sort.Strings(dsts)
			for _, dst := range dsts {
				if knownIDs[dst] {
					continue
				}
				name := cg.Names[dst]
				if name == "" {
					name = "unknown"
				}
				key := [2]string{src, name}
				if seenUndef[key] {
					continue
				}
				seenUndef[key] = true
				lines = append(lines, minify(gapUndefRec{T: "gap", K: "undef_ref", Src: src, DstN: name}))
			}
		}
	}

	return &Pack{Lines: lines}
}
