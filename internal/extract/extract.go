package extract

import (
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/1S33dp1sk/glyph/internal/parser"
)

// Extractor extracts entities from a parsed C/C++ translation unit.
type Extractor struct {
	result *parser.ParseResult
	// filename is the name entities are attributed to; it feeds every GID
	// and so must match what the caller will use on re-parse.
	filename string
}

// New creates an extractor for the given parse result. The filename
// parameter overrides result.FilePath when non-empty (callers pass virtual
// names for in-memory snippets).
func New(result *parser.ParseResult, filename string) *Extractor {
	if filename == "" {
		filename = result.FilePath
	}
	return &Extractor{result: result, filename: filename}
}

// Entities walks the direct children of the translation unit and returns
// every recognised top-level entity, sorted by (start, end).
func (e *Extractor) Entities() []Entity {
	var ents []Entity
	root := e.result.Root
	if root == nil {
		return nil
	}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		node := root.NamedChild(i)
		switch node.Type() {
		case "function_definition":
			if ent := e.function(node, true); ent != nil {
				ents = append(ents, *ent)
			}
		case "declaration":
			if findDescendant(node, "function_declarator") != nil {
				if ent := e.function(node, false); ent != nil {
					ents = append(ents, *ent)
				}
			}
		case "struct_specifier", "union_specifier", "enum_specifier":
			if ent := e.record(node); ent != nil {
				ents = append(ents, *ent)
			}
		case "type_definition":
			// typedef struct {...} name; declares both the record and
			// the alias, matching how a compiler front-end reports the
			// two top-level cursors.
			for j := 0; j < int(node.NamedChildCount()); j++ {
				child := node.NamedChild(j)
				switch child.Type() {
				case "struct_specifier", "union_specifier", "enum_specifier":
					if ent := e.record(child); ent != nil {
						ents = append(ents, *ent)
					}
				}
			}
			if ent := e.typedef(node); ent != nil {
				ents = append(ents, *ent)
			}
		case "preproc_function_def":
			if ent := e.functionMacro(node); ent != nil {
				ents = append(ents, *ent)
			}
		}
	}
	sort.Slice(ents, func(i, j int) bool {
		if ents[i].Start != ents[j].Start {
			return ents[i].Start < ents[j].Start
		}
		return ents[i].End < ents[j].End
	})
	return ents
}

// function builds a fn or prototype entity from a function_definition or
// declaration node.
func (e *Extractor) function(node *sitter.Node, isDefinition bool) *Entity {
	declarator := findDescendant(node, "function_declarator")
	if declarator == nil {
		return nil
	}
	// A function-pointer variable parses as declaration > (*name)(args);
	// it is a VAR, not a prototype.
	if first := declarator.NamedChild(0); first != nil && first.Type() == "parenthesized_declarator" {
		return nil
	}
	name := declaratorName(declarator, e.result)
	if name == "" {
		return nil
	}

	paramTypes := e.parameterTypes(declarator)
	retType := e.returnType(node)
	declSig := NormalizeSig(name + "(" + strings.Join(paramTypes, ", ") + ")")
	effSig := NormalizeSig(retType + " (" + strings.Join(paramTypes, ", ") + ")")
	storage := e.storageOf(node)

	start, end := extent(node)
	gid := FnGID(isDefinition, declSig, effSig, storage, e.filename)
	kind := KindFn
	if !isDefinition {
		kind = KindPrototype
	}
	return &Entity{
		Kind:    kind,
		Name:    name,
		Start:   start,
		End:     end,
		Storage: storage,
		DeclSig: declSig,
		EffSig:  effSig,
		GID:     gid,
		SigID:   SigID(effSig),
		Linkage: LinkageOf(storage),
	}
}

// record builds a struct/union/enum entity. Forward declarations and bare
// references are skipped; only definitions carry a body list.
func (e *Extractor) record(node *sitter.Node) *Entity {
	var kind, bodyType string
	switch node.Type() {
	case "struct_specifier":
		kind, bodyType = KindStruct, "field_declaration_list"
	case "union_specifier":
		kind, bodyType = KindUnion, "field_declaration_list"
	case "enum_specifier":
		kind, bodyType = KindEnum, "enumerator_list"
	default:
		return nil
	}
	if findChildByType(node, bodyType) == nil {
		return nil
	}

	name := AnonymousName
	if nameNode := findChildByType(node, "type_identifier"); nameNode != nil {
		name = e.result.NodeText(nameNode)
	}
	effSig := kind + " " + name
	start, end := extent(node)
	return &Entity{
		Kind:    kind,
		Name:    name,
		Start:   start,
		End:     end,
		Storage: StorageExtern,
		DeclSig: effSig,
		EffSig:  effSig,
		GID:     RecordGID(kind, effSig, e.filename),
		SigID:   SigID(effSig),
		Linkage: LinkageExternal,
	}
}

// typedef builds a typedef entity from a type_definition node.
func (e *Extractor) typedef(node *sitter.Node) *Entity {
	name := typedefName(node, e.result)
	if name == "" {
		return nil
	}
	effSig := NormalizeSig(e.typedefUnderlying(node, name))
	start, end := extent(node)
	return &Entity{
		Kind:    KindTypedef,
		Name:    name,
		Start:   start,
		End:     end,
		Storage: StorageExtern,
		DeclSig: name,
		EffSig:  effSig,
		GID:     TypedefGID(effSig, e.filename),
		SigID:   SigID(effSig),
		Linkage: LinkageExternal,
	}
}

// functionMacro builds a macro entity from a preproc_function_def node.
// The grammar only produces this node when an identifier is immediately
// followed by '(' , which is exactly the function-like test.
func (e *Extractor) functionMacro(node *sitter.Node) *Entity {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		nameNode = findChildByType(node, "identifier")
	}
	if nameNode == nil {
		return nil
	}
	name := e.result.NodeText(nameNode)
	effSig := "#define " + name + "(...)"
	start, end := extent(node)
	// The preproc extent swallows the trailing newline; keep markers on
	// the directive's own line.
	for end > start && (e.result.Source[end-1] == '\n' || e.result.Source[end-1] == '\r') {
		end--
	}
	return &Entity{
		Kind:    KindMacro,
		Name:    name,
		Start:   start,
		End:     end,
		Storage: StorageExtern,
		DeclSig: effSig,
		EffSig:  effSig,
		GID:     MacroGID(name, e.filename),
		SigID:   SigID(effSig),
		Linkage: LinkageExternal,
	}
}

// storageOf derives the storage class from storage_class_specifier
// children of the declaration node (the grammar treats inline as a
// storage class, so a token scan is unnecessary).
func (e *Extractor) storageOf(node *sitter.Node) string {
	var isStatic, isInline bool
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() != "storage_class_specifier" {
			continue
		}
		switch e.result.NodeText(child) {
		case "static":
			isStatic = true
		case "inline":
			isInline = true
		}
	}
	switch {
	case isStatic && isInline:
		return StorageStaticInline
	case isStatic:
		return StorageStatic
	case isInline:
		return StorageInline
	}
	return StorageExtern
}

// returnType collects the type specifier text preceding the declarator.
func (e *Extractor) returnType(node *sitter.Node) string {
	var specs []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "primitive_type", "type_identifier", "sized_type_specifier",
			"struct_specifier", "union_specifier", "enum_specifier":
			specs = append(specs, e.result.NodeText(child))
		case "type_qualifier":
			specs = append(specs, e.result.NodeText(child))
		}
	}
	stars := pointerDepth(node)
	if len(specs) == 0 {
		specs = []string{"int"}
	}
	return strings.Join(specs, " ") + strings.Repeat(" *", stars)
}

// pointerDepth counts pointer_declarator nesting between the declaration
// and its function_declarator (the return type's indirection).
func pointerDepth(node *sitter.Node) int {
	depth := 0
	cur := findChildByType(node, "pointer_declarator")
	for cur != nil {
		depth++
		cur = findChildByType(cur, "pointer_declarator")
	}
	return depth
}

// parameterTypes returns the type spelling of each parameter, with the
// declared name removed, in declaration order.
func (e *Extractor) parameterTypes(declarator *sitter.Node) []string {
	paramList := findChildByType(declarator, "parameter_list")
	if paramList == nil {
		return nil
	}
	var types []string
	for i := 0; i < int(paramList.NamedChildCount()); i++ {
		child := paramList.NamedChild(i)
		switch child.Type() {
		case "parameter_declaration":
			types = append(types, e.parameterType(child))
		case "variadic_parameter":
			types = append(types, "...")
		}
	}
	return types
}

// parameterType strips the declared identifier out of a parameter
// declaration, leaving the type spelling ("int", "const char *", ...).
func (e *Extractor) parameterType(param *sitter.Node) string {
	text := e.result.NodeText(param)
	if id := parameterName(param); id != nil {
		s := int(id.StartByte() - param.StartByte())
		t := int(id.EndByte() - param.StartByte())
		if s >= 0 && t <= len(text) && s <= t {
			text = text[:s] + text[t:]
		}
	}
	return NormalizeSig(text)
}

// parameterName locates the declared identifier inside a parameter
// declaration, looking through pointer and array declarators.
func parameterName(param *sitter.Node) *sitter.Node {
	var found *sitter.Node
	walk(param, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.Type() == "identifier" {
			found = n
			return false
		}
		return true
	})
	return found
}

// declaratorName extracts the function name from a function_declarator.
func declaratorName(declarator *sitter.Node, result *parser.ParseResult) string {
	for i := 0; i < int(declarator.NamedChildCount()); i++ {
		child := declarator.NamedChild(i)
		switch child.Type() {
		case "identifier", "field_identifier":
			return result.NodeText(child)
		case "pointer_declarator", "array_declarator", "parenthesized_declarator":
			if name := declaratorName(child, result); name != "" {
				return name
			}
		case "qualified_identifier":
			// C++ out-of-line definitions: keep the rightmost segment.
			text := result.NodeText(child)
			if idx := strings.LastIndex(text, "::"); idx >= 0 {
				return text[idx+2:]
			}
			return text
		}
	}
	return ""
}

// typedefName picks the declared alias: the last type_identifier outside
// any record specifier body.
func typedefName(node *sitter.Node, result *parser.ParseResult) string {
	var names []string
	walk(node, func(n *sitter.Node) bool {
		switch n.Type() {
		case "struct_specifier", "union_specifier", "enum_specifier":
			return false
		case "type_identifier":
			names = append(names, result.NodeText(n))
		}
		return true
	})
	if len(names) == 0 {
		return ""
	}
	return names[len(names)-1]
}

// typedefUnderlying reconstructs the aliased type text: the node body with
// the typedef keyword, the alias identifier, and the terminator removed.
func (e *Extractor) typedefUnderlying(node *sitter.Node, name string) string {
	text := e.result.NodeText(node)
	text = strings.TrimSuffix(strings.TrimSpace(text), ";")
	text = strings.TrimPrefix(strings.TrimSpace(text), "typedef")
	// Drop the trailing alias spelling only; the same identifier may
	// legitimately appear in the underlying type.
	trimmed := strings.TrimSpace(text)
	if strings.HasSuffix(trimmed, name) {
		trimmed = trimmed[:len(trimmed)-len(name)]
	}
	return trimmed
}

// extent returns a node's byte offsets.
func extent(node *sitter.Node) (int, int) {
	return int(node.StartByte()), int(node.EndByte())
}

// findChildByType returns the first named child of the given type.
func findChildByType(node *sitter.Node, nodeType string) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == nodeType {
			return child
		}
	}
	return nil
}

// findDescendant returns the first descendant of the given type,
// depth-first, without descending into compound statements (a nested
// function pointer inside a body must not reclassify the declaration).
func findDescendant(node *sitter.Node, nodeType string) *sitter.Node {
	var found *sitter.Node
	walk(node, func(n *sitter.Node) bool {
		if found != nil || n.Type() == "compound_statement" {
			return false
		}
		if n.Type() == nodeType {
			found = n
			return false
		}
		return true
	})
	return found
}

// walk performs a depth-first traversal; returning false skips a subtree.
func walk(node *sitter.Node, fn func(*sitter.Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walk(node.Child(i), fn)
	}
}
