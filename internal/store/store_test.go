package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1S33dp1sk/glyph/internal/extract"
	"github.com/1S33dp1sk/glyph/internal/graph"
	"github.com/1S33dp1sk/glyph/internal/ids"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "idx.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// fnEntity builds a function definition entity the way the extractor
// would, so GIDs stay consistent with the minting formulas.
func fnEntity(name, file string, start, end int) extract.Entity {
	declSig := name + "(void)"
	effSig := "int (void)"
	return extract.Entity{
		Kind:    extract.KindFn,
		Name:    name,
		Start:   start,
		End:     end,
		Storage: extract.StorageExtern,
		DeclSig: declSig,
		EffSig:  effSig,
		GID:     extract.FnGID(true, declSig, effSig, extract.StorageExtern, file),
		SigID:   extract.SigID(effSig),
		Linkage: extract.LinkageExternal,
	}
}

func protoEntity(name, file string, start, end int) extract.Entity {
	declSig := name + "(void)"
	effSig := "int (void)"
	return extract.Entity{
		Kind:    extract.KindPrototype,
		Name:    name,
		Start:   start,
		End:     end,
		Storage: extract.StorageExtern,
		DeclSig: declSig,
		EffSig:  effSig,
		GID:     extract.FnGID(false, declSig, effSig, extract.StorageExtern, file),
		SigID:   extract.SigID(effSig),
		Linkage: extract.LinkageExternal,
	}
}

func TestOpenCreatesSchema(t *testing.T) {
	s := openTestStore(t)

	var version string
	err := s.DB().QueryRow("SELECT value FROM meta WHERE key='schema_version'").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, "5", version)

	// Reopening the same file migrates cleanly.
	path := s.Path()
	require.NoError(t, s.Close())
	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
}

func TestIngestAndLookup(t *testing.T) {
	s := openTestStore(t)

	proto := protoEntity("add", "a.c", 0, 22)
	def := fnEntity("add", "a.c", 23, 60)
	require.NoError(t, s.IngestFile(IngestUnit{
		Path:     "a.c",
		Entities: []extract.Entity{proto, def},
		Bytes:    []byte("int add(int a, int b);\nint add(int a, int b){ return a+b; }"),
	}))

	got, err := s.GetEntity(def.GID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "add", got.Name)
	assert.Equal(t, extract.KindFn, got.Kind)
	assert.Equal(t, 23, got.Start)

	missing, err := s.GetEntity("NOPE123456")
	require.NoError(t, err)
	assert.Nil(t, missing)

	inFile, err := s.EntitiesInFile("a.c")
	require.NoError(t, err)
	require.Len(t, inFile, 2)
	assert.Equal(t, proto.GID, inFile[0].GID, "ordered by start offset")

	byName, err := s.LookupByName("add")
	require.NoError(t, err)
	assert.Len(t, byName, 2)

	sha := ""
	err = s.DB().QueryRow("SELECT sha256 FROM files WHERE path=?", canonPath("a.c")).Scan(&sha)
	require.NoError(t, err)
	assert.Len(t, sha, 64)
}

func TestCallEdges(t *testing.T) {
	s := openTestStore(t)

	sq := fnEntity("sq", "b.c", 0, 28)
	f := fnEntity("f", "b.c", 29, 70)
	require.NoError(t, s.IngestFile(IngestUnit{
		Path:     "b.c",
		Entities: []extract.Entity{sq, f},
		Calls:    []graph.Edge{{Src: f.GID, Dst: sq.GID, DstName: "sq"}},
		Bytes:    []byte("int sq(int x){ return x*x; } int f(int n){ return sq(n)+1; }"),
	}))

	callees, err := s.Callees(f.GID)
	require.NoError(t, err)
	require.Len(t, callees, 1)
	assert.Equal(t, sq.GID, callees[0].DstGID)
	assert.Equal(t, "sq", callees[0].DstName)

	callers, err := s.Callers(sq.GID)
	require.NoError(t, err)
	assert.Equal(t, []string{f.GID}, callers)
}

func TestReplacementSemantics(t *testing.T) {
	s := openTestStore(t)

	old := fnEntity("old_fn", "r.c", 0, 20)
	require.NoError(t, s.IngestFile(IngestUnit{
		Path:     "r.c",
		Entities: []extract.Entity{old},
		Calls:    []graph.Edge{{Src: old.GID, DstName: "gone"}},
		Bytes:    []byte("int old_fn(void){}"),
	}))

	// Re-ingest with different content replaces everything.
	neu := fnEntity("new_fn", "r.c", 0, 20)
	require.NoError(t, s.IngestFile(IngestUnit{
		Path:     "r.c",
		Entities: []extract.Entity{neu},
		Bytes:    []byte("int new_fn(void){}"),
	}))

	gone, err := s.GetEntity(old.GID)
	require.NoError(t, err)
	assert.Nil(t, gone, "prior entities removed")

	var calls int
	require.NoError(t, s.DB().QueryRow(
		"SELECT COUNT(*) FROM calls WHERE src_gid=?", old.GID).Scan(&calls))
	assert.Zero(t, calls, "outgoing calls of removed entities dropped")

	inFile, err := s.EntitiesInFile("r.c")
	require.NoError(t, err)
	require.Len(t, inFile, 1)
	assert.Equal(t, neu.GID, inFile[0].GID)
}

func TestReingestIdenticalContentNoDuplicates(t *testing.T) {
	s := openTestStore(t)

	f := fnEntity("f", "dup.c", 0, 30)
	unit := IngestUnit{
		Path:     "dup.c",
		Entities: []extract.Entity{f},
		Calls:    []graph.Edge{{Src: f.GID, DstName: "g"}},
		Bytes:    []byte("int f(void){ return g(); }"),
	}
	require.NoError(t, s.IngestFile(unit))
	require.NoError(t, s.IngestFile(unit))

	n, err := s.CountCalls()
	require.NoError(t, err)
	assert.Equal(t, 1, n, "unique constraint deduplicates identical edges")

	e, err := s.CountEntities()
	require.NoError(t, err)
	assert.Equal(t, 1, e)
}

func TestResolveUnlinkedCalls(t *testing.T) {
	s := openTestStore(t)

	// S3: f calls g before g exists anywhere.
	f := fnEntity("f", "c.c", 0, 30)
	require.NoError(t, s.IngestFile(IngestUnit{
		Path:     "c.c",
		Entities: []extract.Entity{f},
		Calls:    []graph.Edge{{Src: f.GID, DstName: "g"}},
		Bytes:    []byte("int f(void){ return g(); }"),
	}))

	callees, err := s.Callees(f.GID)
	require.NoError(t, err)
	require.Len(t, callees, 1)
	assert.Empty(t, callees[0].DstGID)
	assert.Equal(t, "g", callees[0].DstName)

	g := fnEntity("g", "d.c", 0, 25)
	require.NoError(t, s.IngestFile(IngestUnit{
		Path:     "d.c",
		Entities: []extract.Entity{g},
		Bytes:    []byte("int g(void){ return 0; }"),
	}))

	n, err := s.ResolveUnlinkedCalls()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	callees, err = s.Callees(f.GID)
	require.NoError(t, err)
	require.Len(t, callees, 1)
	assert.Equal(t, g.GID, callees[0].DstGID)
}

func TestResolveSkipsAmbiguousNames(t *testing.T) {
	s := openTestStore(t)

	f := fnEntity("f", "c.c", 0, 30)
	require.NoError(t, s.IngestFile(IngestUnit{
		Path:     "c.c",
		Entities: []extract.Entity{f},
		Calls:    []graph.Edge{{Src: f.GID, DstName: "g"}},
		Bytes:    []byte("int f(void){ return g(); }"),
	}))

	// Two definitions of g in different files: static-like duplication.
	g1 := fnEntity("g", "d1.c", 0, 25)
	g2 := fnEntity("g", "d2.c", 0, 25)
	require.NoError(t, s.IngestFile(IngestUnit{Path: "d1.c", Entities: []extract.Entity{g1}}))
	require.NoError(t, s.IngestFile(IngestUnit{Path: "d2.c", Entities: []extract.Entity{g2}}))

	n, err := s.ResolveUnlinkedCalls()
	require.NoError(t, err)
	assert.Zero(t, n, "ambiguity keeps calls unresolved")

	callees, err := s.Callees(f.GID)
	require.NoError(t, err)
	assert.Empty(t, callees[0].DstGID)
}

func TestResolveIgnoresPrototypes(t *testing.T) {
	s := openTestStore(t)

	f := fnEntity("f", "c.c", 0, 30)
	require.NoError(t, s.IngestFile(IngestUnit{
		Path:     "c.c",
		Entities: []extract.Entity{f},
		Calls:    []graph.Edge{{Src: f.GID, DstName: "g"}},
	}))
	require.NoError(t, s.IngestFile(IngestUnit{
		Path:     "h.h",
		Entities: []extract.Entity{protoEntity("g", "h.h", 0, 12)},
	}))

	n, err := s.ResolveUnlinkedCalls()
	require.NoError(t, err)
	assert.Zero(t, n, "prototypes are not resolution targets")
}

func TestCallsitesAndCandidates(t *testing.T) {
	s := openTestStore(t)

	f := fnEntity("f", "c.c", 0, 30)
	require.NoError(t, s.IngestFile(IngestUnit{
		Path:     "c.c",
		Entities: []extract.Entity{f},
		Calls:    []graph.Edge{{Src: f.GID, DstName: "g"}},
	}))

	sites, err := s.CallsitesOf(f.GID)
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, CallsiteDirect, sites[0].Kind)
	assert.Equal(t, "g", sites[0].NameHint)

	// The edge is backfilled with the callsite id.
	var csID int64
	require.NoError(t, s.DB().QueryRow(
		"SELECT callsite_id FROM calls WHERE src_gid=?", f.GID).Scan(&csID))
	assert.Equal(t, sites[0].ID, csID)

	// A matching definition becomes a candidate.
	g := fnEntity("g", "d.c", 0, 25)
	require.NoError(t, s.IngestFile(IngestUnit{Path: "d.c", Entities: []extract.Entity{g}}))
	require.NoError(t, s.PopulateCandidates())

	cands, err := s.CandidatesOf(sites[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{g.GID}, cands)
}

func TestAffectedFiles(t *testing.T) {
	s := openTestStore(t)

	// a.c includes util.h, util.h includes cfg.h.
	require.NoError(t, s.InsertIncludeEdge("a.c", "util.h", extract.IncludeQuote))
	require.NoError(t, s.InsertIncludeEdge("util.h", "cfg.h", extract.IncludeQuote))

	got, err := s.AffectedFiles([]string{"cfg.h"}, true, true)
	require.NoError(t, err)
	assert.Equal(t, []string{canonPath("a.c"), canonPath("cfg.h"), canonPath("util.h")}, got)

	got, err = s.AffectedFiles([]string{"cfg.h"}, false, true)
	require.NoError(t, err)
	assert.Equal(t, []string{canonPath("a.c"), canonPath("util.h")}, got)

	got, err = s.AffectedFiles([]string{"cfg.h"}, false, false)
	require.NoError(t, err)
	assert.Equal(t, []string{canonPath("util.h")}, got, "non-transitive returns direct includers only")

	got, err = s.AffectedFiles([]string{"unknown.h"}, true, true)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLookupSpan(t *testing.T) {
	s := openTestStore(t)

	outer := fnEntity("outer", "s.c", 0, 100)
	inner := fnEntity("inner", "s.c", 40, 60)
	require.NoError(t, s.IngestFile(IngestUnit{
		Path:     "s.c",
		Entities: []extract.Entity{outer, inner},
	}))

	hit, err := s.LookupSpan("s.c", 50)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, inner.GID, hit.GID, "smallest covering extent wins")

	hit, err = s.LookupSpan("s.c", 10)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, outer.GID, hit.GID)

	hit, err = s.LookupSpan("s.c", 2000)
	require.NoError(t, err)
	assert.Nil(t, hit)
}

func TestBulkIngestAtomicity(t *testing.T) {
	s := openTestStore(t)

	units := []IngestUnit{
		{Path: "x.c", Entities: []extract.Entity{fnEntity("x", "x.c", 0, 10)}},
		{Path: "y.c", Entities: []extract.Entity{fnEntity("y", "y.c", 0, 10)}},
	}
	require.NoError(t, s.BulkIngest(context.Background(), units))

	n, err := s.CountFiles()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Cancellation is observed between files.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.BulkIngest(ctx, units)
	assert.Error(t, err)
}

func TestMaintenance(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.IngestFile(IngestUnit{
		Path:     "m.c",
		Entities: []extract.Entity{fnEntity("m", "m.c", 0, 10)},
	}))
	assert.NoError(t, s.Analyze())
	assert.NoError(t, s.Vacuum())
}

func TestStatusCounts(t *testing.T) {
	s := openTestStore(t)

	f := fnEntity("f", "c.c", 0, 30)
	require.NoError(t, s.IngestFile(IngestUnit{
		Path:     "c.c",
		Entities: []extract.Entity{f},
		Calls:    []graph.Edge{{Src: f.GID, DstName: "g"}},
	}))

	files, _ := s.CountFiles()
	ents, _ := s.CountEntities()
	calls, _ := s.CountCalls()
	unresolved, _ := s.CountUnresolvedCalls()
	assert.Equal(t, 1, files)
	assert.Equal(t, 1, ents)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, unresolved)

	missing, err := s.MissingSymbols()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"g": 1}, missing)

	byKind, err := s.EntitiesByKind()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{extract.KindFn: 1}, byKind)
}

func TestSyntheticCalleeGIDStability(t *testing.T) {
	// The synthetic formula is part of the external contract.
	assert.Equal(t, ids.ShortID("callee", "g", "extern", "c.c"), extract.CalleeGID("g", "c.c"))
}
