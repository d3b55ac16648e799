package store

import (
	"database/sql"
	"fmt"

	"github.com/1S33dp1sk/glyph/internal/graph"
)

// insertCalls inserts call edges. The unique index on
// (src, IFNULL(dst,''), IFNULL(dst_name,'')) plus INSERT OR IGNORE keeps
// re-ingest of identical content duplicate-free.
func (s *Store) insertCalls(edges []graph.Edge) error {
	if len(edges) == 0 {
		return nil
	}
	stmt, err := s.db.Prepare(
		"INSERT OR IGNORE INTO calls(src_gid, dst_gid, dst_name) VALUES(?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare call insert: %w", err)
	}
	defer stmt.Close()
	for _, e := range edges {
		dst := sql.NullString{String: e.Dst, Valid: e.Dst != ""}
		name := sql.NullString{String: e.DstName, Valid: e.DstName != ""}
		if _, err := stmt.Exec(e.Src, dst, name); err != nil {
			return fmt.Errorf("insert call %s -> %s: %w", e.Src, e.DstName, err)
		}
	}
	return nil
}

// clearCallsFrom deletes the outgoing calls of the given source GIDs.
func (s *Store) clearCallsFrom(gids []string) error {
	stmt, err := s.db.Prepare("DELETE FROM calls WHERE src_gid=?")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, g := range gids {
		if _, err := stmt.Exec(g); err != nil {
			return err
		}
	}
	return nil
}

// Callers returns the source GIDs of calls targeting gid.
func (s *Store) Callers(gid string) ([]string, error) {
	rows, err := s.db.Query("SELECT src_gid FROM calls WHERE dst_gid=? ORDER BY src_gid", gid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Callees returns gid's outgoing call targets as (dst_gid, dst_name)
// pairs; dst_gid is empty for unresolved edges.
func (s *Store) Callees(gid string) ([]Callee, error) {
	rows, err := s.db.Query(`
		SELECT IFNULL(dst_gid,''), IFNULL(dst_name,'')
		FROM calls WHERE src_gid=? ORDER BY IFNULL(dst_gid,''), IFNULL(dst_name,'')`, gid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Callee
	for rows.Next() {
		var c Callee
		if err := rows.Scan(&c.DstGID, &c.DstName); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// linkCallsToCallsites synthesises direct callsites for the unresolved
// outgoing edges of the given caller GIDs and backfills calls.callsite_id.
// Best-effort: callers swallow the returned error at the ingest boundary.
func (s *Store) linkCallsToCallsites(gids []string) error {
	siteStmt, err := s.db.Prepare(`
		INSERT OR IGNORE INTO callsites(src_gid, kind, name_hint)
		SELECT src_gid, ?, dst_name FROM calls
		WHERE src_gid=? AND dst_gid IS NULL AND dst_name IS NOT NULL`)
	if err != nil {
		return err
	}
	defer siteStmt.Close()
	backfillStmt, err := s.db.Prepare(`
		UPDATE calls SET callsite_id = (
		  SELECT cs.id FROM callsites cs
		  WHERE cs.src_gid = calls.src_gid
		    AND IFNULL(cs.name_hint,'') = IFNULL(calls.dst_name,'')
		    AND cs.kind = ?
		)
		WHERE src_gid=? AND callsite_id IS NULL`)
	if err != nil {
		return err
	}
	defer backfillStmt.Close()

	for _, g := range gids {
		if _, err := siteStmt.Exec(CallsiteDirect, g); err != nil {
			return err
		}
		if _, err := backfillStmt.Exec(CallsiteDirect, g); err != nil {
			return err
		}
	}
	return nil
}

// PopulateCandidates proposes one candidate per function definition whose
// name matches a direct callsite's hint. INSERT OR IGNORE keeps the
// (callsite, dst) primary key conflict-free across repeat runs.
func (s *Store) PopulateCandidates() error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO call_candidates(callsite_id, dst_gid, rank)
		SELECT cs.id, e.gid, 0
		FROM callsites cs
		JOIN entities e ON e.name = cs.name_hint AND e.kind = 'fn'
		WHERE cs.kind = ?`, CallsiteDirect)
	return err
}

// ResolveUnlinkedCalls links every unresolved call whose dst_name is the
// name of exactly one function definition in the store. Candidates are
// populated globally first. Returns the number of calls updated.
// Ambiguous names (zero or two-plus definitions) stay unresolved.
func (s *Store) ResolveUnlinkedCalls() (int, error) {
	if err := s.PopulateCandidates(); err != nil {
		return 0, fmt.Errorf("populate candidates: %w", err)
	}
	var updated int64
	err := s.withSavepoint(func() error {
		res, err := s.db.Exec(`
			WITH defs AS (
			  SELECT name, gid FROM entities WHERE kind='fn'
			),
			uniq AS (
			  SELECT name, gid FROM defs GROUP BY name HAVING COUNT(*) = 1
			)
			UPDATE calls
			SET dst_gid = (SELECT uniq.gid FROM uniq WHERE uniq.name = calls.dst_name)
			WHERE dst_gid IS NULL
			  AND EXISTS (SELECT 1 FROM uniq WHERE uniq.name = calls.dst_name)`)
		if err != nil {
			return err
		}
		updated, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return int(updated), nil
}

// CountCalls returns the number of call edges.
func (s *Store) CountCalls() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM calls").Scan(&n)
	return n, err
}

// CountUnresolvedCalls returns the number of calls without a destination.
func (s *Store) CountUnresolvedCalls() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM calls WHERE dst_gid IS NULL").Scan(&n)
	return n, err
}

// MissingSymbols returns per-name counts of unresolved calls.
func (s *Store) MissingSymbols() (map[string]int, error) {
	rows, err := s.db.Query(`
		SELECT IFNULL(dst_name,''), COUNT(*)
		FROM calls WHERE dst_gid IS NULL GROUP BY IFNULL(dst_name,'')`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		if name != "" {
			out[name] = n
		}
	}
	return out, rows.Err()
}

// CallsitesOf returns the callsites aggregated for a caller.
func (s *Store) CallsitesOf(gid string) ([]Callsite, error) {
	rows, err := s.db.Query(`
		SELECT id, src_gid, kind, IFNULL(name_hint,''), IFNULL(expr,''), IFNULL(sig_id,'')
		FROM callsites WHERE src_gid=? ORDER BY id`, gid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Callsite
	for rows.Next() {
		var c Callsite
		if err := rows.Scan(&c.ID, &c.SrcGID, &c.Kind, &c.NameHint, &c.Expr, &c.SigID); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CandidatesOf returns the candidate destination GIDs for a callsite,
// rank ascending.
func (s *Store) CandidatesOf(callsiteID int64) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT dst_gid FROM call_candidates
		WHERE callsite_id=? ORDER BY rank, dst_gid`, callsiteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
