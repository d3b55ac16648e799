// Package store provides the SQLite-backed index: files, entities, call
// edges, callsites, call candidates, the include graph, and an FTS5 index
// over names and signatures.
//
// A Store owns a single database connection (the pool is capped at one
// conn so savepoints observe one session). Handles must not be shared
// across goroutines without external serialisation; multiple handles may
// open the same file concurrently because the journal mode is WAL.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	_ "modernc.org/sqlite"
)

// Store manages one glyph index database.
type Store struct {
	db     *sql.DB
	dbPath string
	spSeq  atomic.Int64
}

// Open opens or creates the index database at path, applying connection
// pragmas and migrating the schema as needed. Parent directories are
// created.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One session: savepoints and temp state must see a single connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA cache_size=-80000",
		"PRAGMA recursive_triggers=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", p, err)
		}
	}

	s := &Store{db: db, dbPath: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// DB returns the underlying connection for advanced operations.
func (s *Store) DB() *sql.DB {
	return s.db
}

// withSavepoint runs fn inside a named savepoint. Savepoints nest: the
// name is minted from an atomic counter, so a bulk ingest may wrap
// per-file ingests. On error the savepoint is rolled back and released;
// the error is returned unchanged.
func (s *Store) withSavepoint(fn func() error) error {
	name := fmt.Sprintf("glyph_sp_%d", s.spSeq.Add(1))
	if _, err := s.db.Exec("SAVEPOINT " + name); err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}
	if err := fn(); err != nil {
		s.db.Exec("ROLLBACK TO " + name)
		s.db.Exec("RELEASE " + name)
		return err
	}
	if _, err := s.db.Exec("RELEASE " + name); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

// canonPath resolves a path to its canonical absolute form; files are
// keyed by this in the files table.
func canonPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return filepath.Clean(abs)
}
