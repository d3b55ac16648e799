package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
)

// upsertFile creates or refreshes a files row keyed by canonical absolute
// path. mtime/size come from the filesystem when the file exists; the
// sha256 is computed from data when provided and otherwise preserved.
func (s *Store) upsertFile(path string, data []byte) (int64, error) {
	p := canonPath(path)

	var mtime sql.NullFloat64
	var size sql.NullInt64
	if st, err := os.Stat(p); err == nil {
		mtime = sql.NullFloat64{Float64: float64(st.ModTime().UnixNano()) / 1e9, Valid: true}
		size = sql.NullInt64{Int64: st.Size(), Valid: true}
	}
	var sha sql.NullString
	if data != nil {
		sum := sha256.Sum256(data)
		sha = sql.NullString{String: hex.EncodeToString(sum[:]), Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO files(path, mtime, size, sha256)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
		  mtime=excluded.mtime,
		  size=excluded.size,
		  sha256=COALESCE(excluded.sha256, files.sha256)`,
		p, mtime, size, sha)
	if err != nil {
		return 0, fmt.Errorf("upsert file %s: %w", p, err)
	}

	var id int64
	if err := s.db.QueryRow("SELECT id FROM files WHERE path=?", p).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup file id %s: %w", p, err)
	}
	return id, nil
}

// fileID returns the id of an already-registered file, or 0.
func (s *Store) fileID(path string) (int64, bool) {
	var id int64
	err := s.db.QueryRow("SELECT id FROM files WHERE path=?", canonPath(path)).Scan(&id)
	return id, err == nil
}

// CountFiles returns the number of registered files.
func (s *Store) CountFiles() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM files").Scan(&n)
	return n, err
}
