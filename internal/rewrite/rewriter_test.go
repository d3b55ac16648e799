package rewrite

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const s1 = "int add(int a, int b);\nint add(int a, int b){ return a+b; }"
const s2 = "int sq(int x){ return x*x; } int f(int n){ return sq(n)+1; }"

func TestMarkersSurroundEntities(t *testing.T) {
	res, err := Snippet([]byte(s1), "a.c", nil)
	require.NoError(t, err)
	require.Len(t, res.Entities, 2)

	out := string(res.Code)
	for _, e := range res.Entities {
		assert.Contains(t, out, "/* GLYPH:S "+e.GID+" */")
		assert.Contains(t, out, "/* GLYPH:E "+e.GID+" */")
	}

	// The definition's body sits between its own marker pair.
	def := res.Entities[1]
	start := strings.Index(out, "/* GLYPH:S "+def.GID+" */")
	end := strings.Index(out, "/* GLYPH:E "+def.GID+" */")
	require.True(t, start >= 0 && end > start)
	assert.Contains(t, out[start:end], "return a+b;")
}

func TestRewriteIdempotent(t *testing.T) {
	first, err := Snippet([]byte(s2), "b.c", nil)
	require.NoError(t, err)
	require.NotEmpty(t, first.Entities)

	second, err := Snippet(first.Code, "b.c", nil)
	require.NoError(t, err)
	assert.Empty(t, second.Entities, "marked input must yield no entities")
	assert.Equal(t, first.Code, second.Code, "second pass must not change bytes")
}

func TestAlreadyMarkedDetection(t *testing.T) {
	assert.False(t, AlreadyMarked([]byte(s2)))
	assert.True(t, AlreadyMarked([]byte("/* GLYPH:S ABC123 */")))
	assert.True(t, AlreadyMarked([]byte("/* GLYPH:E ABC123 */")))
}

func TestOffsetsIndexOriginalBytes(t *testing.T) {
	res, err := Snippet([]byte(s2), "b.c", nil)
	require.NoError(t, err)
	for _, e := range res.Entities {
		span := s2[e.Start:e.End]
		assert.Contains(t, span, e.Name)
	}
}

func TestNestedExtentsKeepMarkersPaired(t *testing.T) {
	code := "typedef struct { int x; } point_t;\n"
	res, err := Snippet([]byte(code), "t.c", nil)
	require.NoError(t, err)
	require.NotEmpty(t, res.Entities)

	out := string(res.Code)
	for _, e := range res.Entities {
		assert.Equal(t, 1, strings.Count(out, "/* GLYPH:S "+e.GID+" */"))
		assert.Equal(t, 1, strings.Count(out, "/* GLYPH:E "+e.GID+" */"))
	}
}
