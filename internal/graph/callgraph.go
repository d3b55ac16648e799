// Package graph builds the per-unit intra-TU call graph from parsed
// function bodies, plus the textual fallback scan that recovers callee
// names when AST resolution fails. Both passes return partial results;
// absence of an edge never means absence of a call.
package graph

import (
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/1S33dp1sk/glyph/internal/extract"
	"github.com/1S33dp1sk/glyph/internal/parser"
)

// CallGraph is the per-unit graph: defined-function GIDs as roots, edges
// src → set(dst), and id → human name for every participant.
type CallGraph struct {
	Roots []string
	Edges map[string]map[string]struct{}
	Names map[string]string
}

// Edge is a call edge in store form. Dst is empty when the callee did not
// resolve to a function definition; DstName is the spelled callee name.
type Edge struct {
	Src     string
	Dst     string
	DstName string
}

// Build derives the call graph for one translation unit. Function
// definitions among ents become roots; each call_expression inside a
// root's extent contributes an edge. Callee names resolving to a
// definition in the same unit use that definition's GID; anything else
// gets a synthetic callee GID so the graph stays stable across runs.
func Build(result *parser.ParseResult, ents []extract.Entity, filename string) *CallGraph {
	if filename == "" {
		filename = result.FilePath
	}
	cg := &CallGraph{
		Edges: make(map[string]map[string]struct{}),
		Names: make(map[string]string),
	}

	defsByName := make(map[string]string)
	for _, e := range ents {
		if e.Kind == extract.KindFn {
			defsByName[e.Name] = e.GID
		}
	}

	for _, e := range ents {
		if e.Kind != extract.KindFn {
			continue
		}
		node := definitionNode(result, e)
		if node == nil {
			continue
		}
		cg.Roots = append(cg.Roots, e.GID)
		cg.Names[e.GID] = e.Name
		if cg.Edges[e.GID] == nil {
			cg.Edges[e.GID] = make(map[string]struct{})
		}
		walk(node, func(n *sitter.Node) bool {
			if n.Type() == "call_expression" {
				if name := callTarget(n, result); name != "" {
					cid, ok := defsByName[name]
					if !ok {
						cid = extract.CalleeGID(name, filename)
					}
					cg.Edges[e.GID][cid] = struct{}{}
					if _, seen := cg.Names[cid]; !seen {
						cg.Names[cid] = name
					}
				}
			}
			return true
		})
	}
	return cg
}

// IngestEdges flattens a call graph into store edges, resolving callee
// names only against function definitions (defs: name → gid, usually the
// unit's own definitions). The textual fallback over each function extent
// adds names the AST pass missed, minus the keyword blacklist and the
// function's own name.
func IngestEdges(cg *CallGraph, code []byte, ents []extract.Entity, defs map[string]string) []Edge {
	var edges []Edge
	added := make(map[string]map[string]bool) // src gid → callee names

	for _, src := range cg.Roots {
		for dst := range cg.Edges[src] {
			name := cg.Names[dst]
			if name == "" {
				continue
			}
			edges = append(edges, Edge{Src: src, Dst: defs[name], DstName: name})
			if added[src] == nil {
				added[src] = make(map[string]bool)
			}
			added[src][name] = true
		}
	}

	for _, e := range ents {
		if e.Kind != extract.KindFn {
			continue
		}
		for _, name := range FallbackCallees(code, e) {
			if added[e.GID][name] {
				continue
			}
			edges = append(edges, Edge{Src: e.GID, Dst: defs[name], DstName: name})
		}
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Src != edges[j].Src {
			return edges[i].Src < edges[j].Src
		}
		if edges[i].Dst != edges[j].Dst {
			return edges[i].Dst < edges[j].Dst
		}
		return edges[i].DstName < edges[j].DstName
	})
	return edges
}

// definitionNode locates the function_definition node matching an
// entity's extent.
func definitionNode(result *parser.ParseResult, e extract.Entity) *sitter.Node {
	root := result.Root
	if root == nil {
		return nil
	}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() != "function_definition" {
			continue
		}
		if int(child.StartByte()) == e.Start && int(child.EndByte()) == e.End {
			return child
		}
	}
	return nil
}

// callTarget extracts the callee name from a call_expression. Calls
// through function pointers and subscripts have no direct name and return
// empty.
func callTarget(node *sitter.Node, result *parser.ParseResult) string {
	fn := node.ChildByFieldName("function")
	if fn == nil && node.ChildCount() > 0 {
		fn = node.Child(0)
	}
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier":
		return result.NodeText(fn)
	case "field_expression":
		// obj->handler(...) — record the field name.
		for i := 0; i < int(fn.ChildCount()); i++ {
			child := fn.Child(i)
			if child.Type() == "field_identifier" {
				return result.NodeText(child)
			}
		}
	}
	return ""
}

func walk(node *sitter.Node, fn func(*sitter.Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walk(node.Child(i), fn)
	}
}
