package parser

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLanguageForFile(t *testing.T) {
	cases := map[string]Language{
		"a.c":      C,
		"a.h":      C,
		"a.cc":     Cpp,
		"a.cpp":    Cpp,
		"a.cxx":    Cpp,
		"a.hpp":    Cpp,
		"a.hh":     Cpp,
		"a.HXX":    Cpp,
		"weird.go": C, // unknown extensions default to C
	}
	for name, want := range cases {
		if got := LanguageForFile(name); got != want {
			t.Errorf("LanguageForFile(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestParseProducesTranslationUnit(t *testing.T) {
	p, err := New(C)
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}
	defer p.Close()

	res, err := p.Parse([]byte("int main(void){ return 0; }"), "main.c")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer res.Close()

	if res.Root == nil || res.Root.Type() != "translation_unit" {
		t.Fatalf("root = %v, want translation_unit", res.Root)
	}
	if res.HasErrors() {
		t.Error("clean input reported errors")
	}
}

func TestParseToleratesErrors(t *testing.T) {
	p, err := New(C)
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}
	defer p.Close()

	res, err := p.Parse([]byte("int broken( { return ; }\nint ok(void){ return 1; }"), "broken.c")
	if err != nil {
		t.Fatalf("parse must not fail on syntax errors: %v", err)
	}
	defer res.Close()

	if !res.HasErrors() {
		t.Error("expected error nodes in tree")
	}
	// Extraction-style traversal still sees the healthy function.
	found := false
	for _, n := range res.FindNodesByType("function_definition") {
		if res.NodeText(n) != "" {
			found = true
		}
	}
	if !found {
		t.Error("no function_definition nodes recovered from erroneous input")
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.c")
	if err := os.WriteFile(path, []byte("int x;"), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := NewForFile(path)
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}
	defer p.Close()

	res, err := p.ParseFile(path)
	if err != nil {
		t.Fatalf("parse file: %v", err)
	}
	defer res.Close()
	if res.FilePath != path {
		t.Errorf("FilePath = %q, want %q", res.FilePath, path)
	}

	if _, err := p.ParseFile(filepath.Join(dir, "missing.c")); err == nil {
		t.Error("expected error for missing file")
	} else if _, ok := err.(*FileReadError); !ok {
		t.Errorf("expected *FileReadError, got %T", err)
	}
}

func TestCppParsesClasses(t *testing.T) {
	p, err := New(Cpp)
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}
	defer p.Close()

	res, err := p.Parse([]byte("class Foo { public: int bar(); };"), "foo.cpp")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer res.Close()
	if res.HasErrors() {
		t.Error("C++ grammar failed on a class declaration")
	}
}
