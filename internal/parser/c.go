package parser

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
)

// newCParser creates a tree-sitter parser configured for C.
func newCParser() *sitter.Parser {
	parser := sitter.NewParser()
	parser.SetLanguage(c.GetLanguage())
	return parser
}
