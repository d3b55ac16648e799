package pack

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestPack(t *testing.T, snippets map[string]string) *Pack {
	t.Helper()
	in := make(map[string][]byte, len(snippets))
	for k, v := range snippets {
		in[k] = []byte(v)
	}
	units, err := BuildUnits(in, nil)
	require.NoError(t, err)
	return Build(units)
}

func decodeLines(t *testing.T, p *Pack) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range p.Lines {
		var obj map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &obj), "line %q", line)
		out = append(out, obj)
	}
	return out
}

func TestPackHeaderAndCounts(t *testing.T) {
	p := buildTestPack(t, map[string]string{
		"a.c": "int add(int a, int b);\nint add(int a, int b){ return a+b; }",
	})
	objs := decodeLines(t, p)
	require.NotEmpty(t, objs)

	hdr := objs[0]
	assert.Equal(t, "hdr", hdr["t"])
	assert.Equal(t, float64(1), hdr["v"])
	counts := hdr["counts"].(map[string]any)
	assert.Equal(t, float64(1), counts["fn"])
	assert.Equal(t, float64(1), counts["pr"])
}

func TestPackLinesAreMinified(t *testing.T) {
	p := buildTestPack(t, map[string]string{"a.c": "int f(void){ return 0; }"})
	for _, line := range p.Lines {
		assert.NotContains(t, line, ": ", "minified separators")
		assert.NotContains(t, line, ", ")
	}
}

func TestPackDeterministicOrdering(t *testing.T) {
	snippets := map[string]string{
		"b.c": "int zeta(void){ return 1; }",
		"a.c": "int alpha(void){ return 0; }",
	}
	p1 := buildTestPack(t, snippets)
	p2 := buildTestPack(t, snippets)
	assert.Equal(t, p1.Lines, p2.Lines)

	objs := decodeLines(t, p1)
	hdr := objs[0]
	files := hdr["files"].([]any)
	assert.Equal(t, []any{"a.c", "b.c"}, files, "files sorted by name")

	// Entities of the same tag are sorted by name.
	var names []string
	for _, o := range objs[1:] {
		if o["t"] == "fn" {
			names = append(names, o["n"].(string))
		}
	}
	assert.Equal(t, []string{"alpha", "zeta"}, names)
}

func TestPackCallsAndGaps(t *testing.T) {
	p := buildTestPack(t, map[string]string{
		"b.c": "int sq(int x){ return x*x; } int f(int n){ return sq(n)+g(); }",
		"h.h": "int declared_only(void);",
	})
	objs := decodeLines(t, p)

	var resolvedCall, unresolvedCall, missingDef, undefRef bool
	for _, o := range objs {
		switch o["t"] {
		case "call":
			if _, ok := o["dst"]; ok {
				resolvedCall = true
			}
			if o["dstn"] == "g" {
				unresolvedCall = true
			}
		case "gap":
			if o["k"] == "missing_def" && o["n"] == "declared_only" {
				missingDef = true
			}
			if o["k"] == "undef_ref" && o["dstn"] == "g" {
				undefRef = true
			}
		}
	}
	assert.True(t, resolvedCall, "sq call resolves to a known id")
	assert.True(t, unresolvedCall)
	assert.True(t, missingDef)
	assert.True(t, undefRef)
}

func TestPackStringTrailingNewline(t *testing.T) {
	p := buildTestPack(t, map[string]string{"a.c": "int f(void){ return 0; }"})
	s := p.String()
	assert.True(t, strings.HasSuffix(s, "\n"))
	assert.False(t, strings.HasSuffix(s, "\n\n"))
}

func TestInferTree(t *testing.T) {
	in := map[string][]byte{
		"core/a.c": []byte("int hub(void){ return spoke1()+spoke2(); }\nint spoke1(void){ return 1; }"),
		"core/b.c": []byte("int spoke2(void){ return 2; }\nint lonely(void);"),
	}
	units, err := BuildUnits(in, nil)
	require.NoError(t, err)
	tree := InferTree(units)

	assert.Equal(t, []string{"core/a.c", "core/b.c"}, tree.Files)
	assert.Equal(t, 3, tree.Totals["fn_defs"])
	assert.Equal(t, 1, tree.Totals["prototypes"])
	assert.Equal(t, map[string]int{"core": 2}, tree.Modules)

	var missingNames []string
	for _, g := range tree.GapsMissingDefs {
		missingNames = append(missingNames, g.Name)
	}
	assert.Equal(t, []string{"lonely"}, missingNames)

	require.NotEmpty(t, tree.Hotspots)
	assert.Equal(t, "hub", tree.Hotspots[0].Name, "highest fan-out first")
	assert.Equal(t, 2, tree.Hotspots[0].Fanout)
}

func TestPackIdempotentOnMarkedInput(t *testing.T) {
	units, err := BuildUnits(map[string][]byte{
		"a.c": []byte("/* GLYPH:S XYZ */ int f(void){ return 0; } /* GLYPH:E XYZ */"),
	}, nil)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Empty(t, units[0].Entities, "marked input contributes no entities")
}
