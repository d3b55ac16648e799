package store

import (
	"database/sql"
	"fmt"

	"github.com/1S33dp1sk/glyph/internal/extract"
)

const rowChunk = 1000

const entityColumns = `e.gid, e.kind, e.name, e.storage,
  IFNULL(e.decl_sig,''), IFNULL(e.eff_sig,''), IFNULL(e.sig_id,''),
  IFNULL(e.linkage,''), f.path, e.start, e."end"`

// upsertEntities bulk-upserts entities for a file. Duplicate GIDs update
// in place (ON CONFLICT DO UPDATE), so re-ingest of identical content is
// a no-op apart from refreshed metadata.
func (s *Store) upsertEntities(fileID int64, ents []extract.Entity) error {
	for lo := 0; lo < len(ents); lo += rowChunk {
		hi := lo + rowChunk
		if hi > len(ents) {
			hi = len(ents)
		}
		stmt, err := s.db.Prepare(`
			INSERT INTO entities(gid, kind, name, storage, decl_sig, eff_sig,
			                     sig_id, linkage, file_id, start, "end")
			VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(gid) DO UPDATE SET
			  kind=excluded.kind,
			  name=excluded.name,
			  storage=excluded.storage,
			  decl_sig=excluded.decl_sig,
			  eff_sig=excluded.eff_sig,
			  sig_id=excluded.sig_id,
			  linkage=excluded.linkage,
			  file_id=excluded.file_id,
			  start=excluded.start,
			  "end"=excluded."end"`)
		if err != nil {
			return fmt.Errorf("prepare entity upsert: %w", err)
		}
		for _, e := range ents[lo:hi] {
			if _, err := stmt.Exec(e.GID, e.Kind, e.Name, e.Storage, e.DeclSig,
				e.EffSig, e.SigID, e.Linkage, fileID, e.Start, e.End); err != nil {
				stmt.Close()
				return fmt.Errorf("upsert entity %s: %w", e.GID, err)
			}
		}
		stmt.Close()
	}
	return nil
}

// entityGIDsForFile returns the GIDs currently owned by a file.
func (s *Store) entityGIDsForFile(fileID int64) ([]string, error) {
	rows, err := s.db.Query("SELECT gid FROM entities WHERE file_id=?", fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var gids []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		gids = append(gids, g)
	}
	return gids, rows.Err()
}

// removeEntitiesForFile deletes a file's entities; callsites and
// candidates follow by cascade, call destinations are nulled.
func (s *Store) removeEntitiesForFile(fileID int64) error {
	_, err := s.db.Exec("DELETE FROM entities WHERE file_id=?", fileID)
	return err
}

func scanEntity(scanner interface{ Scan(...any) error }) (*Entity, error) {
	var e Entity
	err := scanner.Scan(&e.GID, &e.Kind, &e.Name, &e.Storage, &e.DeclSig,
		&e.EffSig, &e.SigID, &e.Linkage, &e.FilePath, &e.Start, &e.End)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetEntity retrieves an entity by GID; nil when absent.
func (s *Store) GetEntity(gid string) (*Entity, error) {
	row := s.db.QueryRow(`
		SELECT `+entityColumns+`
		FROM entities e JOIN files f ON e.file_id=f.id
		WHERE e.gid=?`, gid)
	e, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// EntitiesInFile returns a file's entities ordered by start offset.
func (s *Store) EntitiesInFile(path string) ([]*Entity, error) {
	fid, ok := s.fileID(path)
	if !ok {
		return nil, nil
	}
	rows, err := s.db.Query(`
		SELECT `+entityColumns+`
		FROM entities e JOIN files f ON e.file_id=f.id
		WHERE e.file_id=?
		ORDER BY e.start`, fid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntities(rows)
}

// LookupByName returns entities with an exact name, ordered by
// (path, start).
func (s *Store) LookupByName(name string) ([]*Entity, error) {
	rows, err := s.db.Query(`
		SELECT `+entityColumns+`
		FROM entities e JOIN files f ON e.file_id=f.id
		WHERE e.name=?
		ORDER BY f.path, e.start`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntities(rows)
}

// LookupSpan returns the smallest entity whose extent covers the byte
// offset in the given file; nil when none does.
func (s *Store) LookupSpan(path string, offset int) (*Entity, error) {
	fid, ok := s.fileID(path)
	if !ok {
		return nil, nil
	}
	row := s.db.QueryRow(`
		SELECT `+entityColumns+`
		FROM entities e JOIN files f ON e.file_id=f.id
		WHERE e.file_id=? AND e.start<=? AND e."end">=?
		ORDER BY (e."end"-e.start) ASC LIMIT 1`, fid, offset, offset)
	e, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func collectEntities(rows *sql.Rows) ([]*Entity, error) {
	var out []*Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountEntities returns the number of indexed entities.
func (s *Store) CountEntities() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM entities").Scan(&n)
	return n, err
}

// EntitiesByKind returns per-kind entity counts.
func (s *Store) EntitiesByKind() (map[string]int, error) {
	rows, err := s.db.Query("SELECT kind, COUNT(*) FROM entities GROUP BY kind")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		out[kind] = n
	}
	return out, rows.Err()
}
