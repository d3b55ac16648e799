package retrieve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1S33dp1sk/glyph/internal/extract"
	"github.com/1S33dp1sk/glyph/internal/graph"
	"github.com/1S33dp1sk/glyph/internal/store"
)

// seedRepo writes one source file and indexes its f → sq call.
func seedRepo(t *testing.T) (*store.Store, string) {
	t.Helper()
	dir := t.TempDir()
	src := "int sq(int x){ return x*x; }\nint f(int n){ return sq(n)+1; }\n"
	path := filepath.Join(dir, "b.c")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	mk := func(name string, start, end int) extract.Entity {
		declSig := name + "(int)"
		effSig := "int (int)"
		return extract.Entity{
			Kind: extract.KindFn, Name: name, Start: start, End: end,
			Storage: extract.StorageExtern, DeclSig: declSig, EffSig: effSig,
			GID:   extract.FnGID(true, declSig, effSig, extract.StorageExtern, "b.c"),
			SigID: extract.SigID(effSig), Linkage: extract.LinkageExternal,
		}
	}
	sq := mk("sq", 0, 28)
	f := mk("f", 29, 59)

	s, err := store.Open(filepath.Join(dir, "idx.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.IngestFile(store.IngestUnit{
		Path:     path,
		Entities: []extract.Entity{sq, f},
		Calls:    []graph.Edge{{Src: f.GID, Dst: sq.GID, DstName: "sq"}},
		Bytes:    []byte(src),
	}))
	return s, path
}

func TestSearchExactNameFirst(t *testing.T) {
	s, _ := seedRepo(t)
	r := New(s)

	seeds, err := r.Search("what does sq do", 8)
	require.NoError(t, err)
	require.NotEmpty(t, seeds)
	assert.Equal(t, "sq", seeds[0].Name)
}

func TestSearchFTSFallback(t *testing.T) {
	s, _ := seedRepo(t)
	r := New(s)

	// No identifier matches an entity name exactly; FTS over decl_sig
	// has nothing either, so the result may be empty, but never an error.
	_, err := r.Search("zzz_not_there", 8)
	assert.NoError(t, err)
}

func TestExpandNeighbors(t *testing.T) {
	s, _ := seedRepo(t)
	r := New(s)

	seeds, err := r.Search("sq", 8)
	require.NoError(t, err)
	require.Len(t, seeds, 1)

	expanded, err := r.ExpandNeighbors(seeds, 1, 4)
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, e := range expanded {
		names[e.Name] = true
	}
	assert.True(t, names["sq"])
	assert.True(t, names["f"], "caller pulled in by expansion")

	// Zero hops returns the seeds untouched.
	same, err := r.ExpandNeighbors(seeds, 0, 4)
	require.NoError(t, err)
	assert.Len(t, same, 1)
}

func TestMaterialize(t *testing.T) {
	s, _ := seedRepo(t)
	r := New(s)

	seeds, err := r.Search("sq", 8)
	require.NoError(t, err)
	items := r.Materialize(seeds, 2, DefaultMaxChars)
	require.Len(t, items, 1)
	assert.Equal(t, "sq", items[0].Name)
	assert.Contains(t, items[0].Snippet, "return x*x;")
}

func TestMaterializeBudget(t *testing.T) {
	s, _ := seedRepo(t)
	r := New(s)

	seeds, err := r.Search("sq f", 8)
	require.NoError(t, err)
	require.Len(t, seeds, 2)

	items := r.Materialize(seeds, 0, 10)
	total := 0
	for _, it := range items {
		total += len(it.Snippet)
	}
	assert.LessOrEqual(t, total, 10, "global character budget is honored")
}

func TestMaterializeMissingFileDegrades(t *testing.T) {
	s, path := seedRepo(t)
	r := New(s)

	seeds, err := r.Search("sq", 8)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	items := r.Materialize(seeds, 2, DefaultMaxChars)
	require.Len(t, items, 1)
	assert.Empty(t, items[0].Snippet, "missing file reads as empty, not an error")
}
