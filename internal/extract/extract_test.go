package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1S33dp1sk/glyph/internal/parser"
)

func parseC(t *testing.T, code, filename string) *parser.ParseResult {
	t.Helper()
	p, err := parser.NewForFile(filename)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	res, err := p.Parse([]byte(code), filename)
	require.NoError(t, err)
	t.Cleanup(res.Close)
	return res
}

func extractAll(t *testing.T, code, filename string) []Entity {
	t.Helper()
	return New(parseC(t, code, filename), filename).Entities()
}

func TestFunctionAndPrototype(t *testing.T) {
	code := "int add(int a, int b);\nint add(int a, int b){ return a+b; }"
	ents := extractAll(t, code, "a.c")
	require.Len(t, ents, 2)

	proto, def := ents[0], ents[1]
	assert.Equal(t, KindPrototype, proto.Kind)
	assert.Equal(t, KindFn, def.Kind)
	assert.Equal(t, "add", proto.Name)
	assert.Equal(t, "add", def.Name)
	assert.NotEqual(t, proto.GID, def.GID)
	assert.Equal(t, StorageExtern, def.Storage)
	assert.Equal(t, LinkageExternal, def.Linkage)
	assert.Equal(t, "add(int, int)", def.DeclSig)
	assert.Equal(t, "int (int, int)", def.EffSig)
}

func TestGIDDeterminism(t *testing.T) {
	code := "static int helper(void){ return 0; }\nint use(void){ return helper(); }"
	first := extractAll(t, code, "b.c")
	second := extractAll(t, code, "b.c")
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].GID, second[i].GID)
		assert.Equal(t, first[i], second[i])
	}
}

func TestGIDDependsOnFilename(t *testing.T) {
	code := "int f(void){ return 1; }"
	a := extractAll(t, code, "a.c")
	b := extractAll(t, code, "b.c")
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.NotEqual(t, a[0].GID, b[0].GID)
}

func TestExtentContainsName(t *testing.T) {
	code := "static inline int sq(int x){ return x*x; }\n" +
		"struct point { int x; int y; };\n" +
		"typedef unsigned int u32;\n"
	ents := extractAll(t, code, "c.c")
	require.NotEmpty(t, ents)
	for _, e := range ents {
		if e.Name == AnonymousName {
			continue
		}
		span := code[e.Start:e.End]
		assert.Contains(t, span, e.Name, "extent of %s/%s must contain its name", e.Kind, e.Name)
	}
}

func TestStorageClassification(t *testing.T) {
	cases := []struct {
		code    string
		storage string
		linkage string
	}{
		{"int a(void){ return 0; }", StorageExtern, LinkageExternal},
		{"static int b(void){ return 0; }", StorageStatic, LinkageInternal},
		{"inline int c(void){ return 0; }", StorageInline, LinkageExternal},
		{"static inline int d(void){ return 0; }", StorageStaticInline, LinkageInternal},
	}
	for _, tc := range cases {
		ents := extractAll(t, tc.code, "s.c")
		require.Len(t, ents, 1, tc.code)
		assert.Equal(t, tc.storage, ents[0].Storage, tc.code)
		assert.Equal(t, tc.linkage, ents[0].Linkage, tc.code)
	}
}

func TestRecordDefinitionsOnly(t *testing.T) {
	code := "struct fwd;\n" +
		"struct node { int v; struct node *next; };\n" +
		"union u { int i; float f; };\n" +
		"enum color { RED, GREEN };\n"
	ents := extractAll(t, code, "r.c")

	kinds := make(map[string]string)
	for _, e := range ents {
		kinds[e.Name] = e.Kind
	}
	assert.NotContains(t, kinds, "fwd", "forward declarations are not entities")
	assert.Equal(t, KindStruct, kinds["node"])
	assert.Equal(t, KindUnion, kinds["u"])
	assert.Equal(t, KindEnum, kinds["color"])

	for _, e := range ents {
		if e.Name == "node" {
			assert.Equal(t, "struct node", e.EffSig)
		}
	}
}

func TestTypedefWithRecord(t *testing.T) {
	code := "typedef struct { int x; } point_t;\n"
	ents := extractAll(t, code, "t.c")

	var hasTypedef, hasRecord bool
	for _, e := range ents {
		switch e.Kind {
		case KindTypedef:
			hasTypedef = true
			assert.Equal(t, "point_t", e.Name)
		case KindStruct:
			hasRecord = true
			assert.Equal(t, AnonymousName, e.Name)
		}
	}
	assert.True(t, hasTypedef)
	assert.True(t, hasRecord)
}

func TestTypedefUnderlying(t *testing.T) {
	ents := extractAll(t, "typedef unsigned int u32;\n", "t.c")
	require.Len(t, ents, 1)
	assert.Equal(t, KindTypedef, ents[0].Kind)
	assert.Equal(t, "u32", ents[0].Name)
	assert.Equal(t, "unsigned int", ents[0].EffSig)
	assert.Equal(t, "u32", ents[0].DeclSig)
}

func TestFunctionLikeMacrosOnly(t *testing.T) {
	code := "#define MAX_LEN 128\n#define INC(x) ((x) + 1u)\n"
	ents := extractAll(t, code, "m.c")
	require.Len(t, ents, 1, "object-like macros are not indexed")
	e := ents[0]
	assert.Equal(t, KindMacro, e.Kind)
	assert.Equal(t, "INC", e.Name)
	assert.Equal(t, "#define INC(...)", e.EffSig)
	assert.False(t, strings.HasSuffix(code[e.Start:e.End], "\n"))
}

func TestEntitiesSortedByOffset(t *testing.T) {
	code := "int b(void){ return 2; }\nint a(void){ return 1; }\n"
	ents := extractAll(t, code, "o.c")
	require.Len(t, ents, 2)
	assert.True(t, ents[0].Start < ents[1].Start)
	assert.Equal(t, "b", ents[0].Name)
}

func TestFunctionPointerVarIsNotPrototype(t *testing.T) {
	ents := extractAll(t, "int (*handler)(int);\n", "fp.c")
	for _, e := range ents {
		assert.NotEqual(t, KindPrototype, e.Kind)
		assert.NotEqual(t, KindFn, e.Kind)
	}
}

func TestIncludeDirs(t *testing.T) {
	dirs := IncludeDirs([]string{"-Iinclude", "-I", "vendor", "-DFOO", "-isystem", "/usr/inc"})
	assert.Equal(t, []string{"include", "vendor", "/usr/inc"}, dirs)
}
