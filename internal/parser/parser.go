// Package parser provides tree-sitter based parsing for C and C++
// translation units.
//
// The parser package wraps the tree-sitter library behind a small unified
// interface. Grammars are linked statically, so there is no runtime library
// resolution step. A translation unit that contains syntax errors still
// yields a tree; callers extract whatever nodes exist and never assume a
// clean parse.
package parser

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Language represents a supported source language.
type Language string

const (
	// C represents the C programming language.
	C Language = "c"
	// Cpp represents the C++ programming language.
	Cpp Language = "cpp"
)

// cppExts are the extensions parsed in C++ mode; everything else is C.
var cppExts = map[string]bool{
	".hpp": true, ".hh": true, ".hxx": true,
	".cc": true, ".cpp": true, ".cxx": true,
}

// LanguageForFile selects the language mode from the filename extension.
// Defaults to C.
func LanguageForFile(filename string) Language {
	if cppExts[strings.ToLower(filepath.Ext(filename))] {
		return Cpp
	}
	return C
}

// Parser wraps a tree-sitter parser for one language.
type Parser struct {
	parser *sitter.Parser
	lang   Language
}

// ParseResult contains the parsed tree and metadata.
type ParseResult struct {
	// Tree is the complete tree-sitter parse tree. It must outlive every
	// node taken from it.
	Tree *sitter.Tree
	// Root is the translation_unit node.
	Root *sitter.Node
	// Source is the original source that was parsed.
	Source []byte
	// FilePath is the path to the source file (may be a virtual name for
	// in-memory parses).
	FilePath string
	// Language is the language mode used.
	Language Language
}

// New creates a parser for the given language.
func New(lang Language) (*Parser, error) {
	var p *sitter.Parser
	switch lang {
	case C:
		p = newCParser()
	case Cpp:
		p = newCppParser()
	default:
		return nil, &UnsupportedLanguageError{Language: string(lang)}
	}
	return &Parser{parser: p, lang: lang}, nil
}

// NewForFile creates a parser whose language matches the filename.
func NewForFile(filename string) (*Parser, error) {
	return New(LanguageForFile(filename))
}

// Parse parses source bytes under a virtual filename.
func (p *Parser) Parse(source []byte, filename string) (*ParseResult, error) {
	tree, err := p.parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, &ParseError{Message: err.Error(), File: filename}
	}
	return &ParseResult{
		Tree:     tree,
		Root:     tree.RootNode(),
		Source:   source,
		FilePath: filename,
		Language: p.lang,
	}, nil
}

// ParseFile parses a file from disk.
func (p *Parser) ParseFile(path string) (*ParseResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, &FileReadError{Path: path, Err: err}
	}
	return p.Parse(source, path)
}

// Language returns the language this parser is configured for.
func (p *Parser) Language() Language {
	return p.lang
}

// Close releases parser resources.
func (p *Parser) Close() {
	if p.parser != nil {
		p.parser.Close()
		p.parser = nil
	}
}

// Close releases the parse tree resources.
func (r *ParseResult) Close() {
	if r.Tree != nil {
		r.Tree.Close()
		r.Tree = nil
		r.Root = nil
	}
}

// HasErrors reports whether the tree contains syntax errors. Extraction
// still runs over erroneous trees; this is advisory.
func (r *ParseResult) HasErrors() bool {
	return r.Root != nil && r.Root.HasError()
}

// WalkNodes traverses the tree depth-first, calling visitor for each node.
// If the visitor returns false, that node's subtree is skipped.
func (r *ParseResult) WalkNodes(visitor func(*sitter.Node) bool) {
	if r.Root != nil {
		walkNode(r.Root, visitor)
	}
}

func walkNode(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if !visitor(node) {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkNode(node.Child(i), visitor)
	}
}

// FindNodesByType returns all nodes of the given type, depth-first.
func (r *ParseResult) FindNodesByType(nodeType string) []*sitter.Node {
	var nodes []*sitter.Node
	r.WalkNodes(func(n *sitter.Node) bool {
		if n.Type() == nodeType {
			nodes = append(nodes, n)
		}
		return true
	})
	return nodes
}

// NodeText returns the source text for a node.
func (r *ParseResult) NodeText(node *sitter.Node) string {
	if node == nil || r.Source == nil {
		return ""
	}
	if node.EndByte() > uint32(len(r.Source)) {
		return ""
	}
	return node.Content(r.Source)
}

// SourceExtensions returns all file extensions recognised for scanning.
func SourceExtensions() []string {
	return []string{".c", ".h", ".cc", ".cpp", ".cxx", ".hpp", ".hh", ".hxx"}
}
