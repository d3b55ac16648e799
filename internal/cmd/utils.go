package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// readInput reads a path, or stdin when the path is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// fileSpec is one "name@path" input item.
type fileSpec struct {
	Name string
	Path string
}

// parseFileSpec splits "name@path"; a bare path uses its base name.
func parseFileSpec(spec string) fileSpec {
	if idx := strings.Index(spec, "@"); idx >= 0 {
		return fileSpec{Name: spec[:idx], Path: spec[idx+1:]}
	}
	return fileSpec{Name: filepath.Base(spec), Path: spec}
}

// readSpecs loads each "name@path" spec into name → bytes. With no specs,
// stdin is read under defaultName.
func readSpecs(specs []string, defaultName string) (map[string][]byte, error) {
	out := make(map[string][]byte)
	if len(specs) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		out[defaultName] = data
		return out, nil
	}
	for _, spec := range specs {
		fs := parseFileSpec(spec)
		data, err := readInput(fs.Path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fs.Path, err)
		}
		out[fs.Name] = data
	}
	return out, nil
}

// splitFlags tokenises a --cflags string on whitespace.
func splitFlags(cflags string) []string {
	return strings.Fields(cflags)
}

// splitCSV splits a comma-separated option, dropping empties.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
