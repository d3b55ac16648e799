// Package main is the entry point for the glyph CLI tool.
package main

import (
	"github.com/1S33dp1sk/glyph/internal/cmd"
)

func main() {
	cmd.Execute()
}
