package store

import (
	"database/sql"
	"fmt"
)

// schemaVersion is persisted at meta.schema_version; any mismatch on open
// runs the full create script below, then the idempotent column adds.
const schemaVersion = 5

// schemaSQL is the full schema. The FTS table and its triggers are
// dropped unconditionally first so prior contentless installs migrate
// cleanly to the external-content layout.
const schemaSQL = `
DROP TRIGGER IF EXISTS trg_entities_fts_insert;
DROP TRIGGER IF EXISTS trg_entities_fts_update;
DROP TRIGGER IF EXISTS trg_entities_fts_delete;
DROP TABLE   IF EXISTS entities_fts;

CREATE TABLE IF NOT EXISTS meta (
  key   TEXT PRIMARY KEY,
  value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
  id      INTEGER PRIMARY KEY AUTOINCREMENT,
  path    TEXT NOT NULL UNIQUE,
  mtime   REAL,
  size    INTEGER,
  sha256  TEXT
);

CREATE TABLE IF NOT EXISTS entities (
  gid      TEXT PRIMARY KEY,
  kind     TEXT NOT NULL,
  name     TEXT NOT NULL,
  storage  TEXT NOT NULL,
  decl_sig TEXT,
  eff_sig  TEXT,
  sig_id   TEXT,
  linkage  TEXT,
  file_id  INTEGER NOT NULL,
  start    INTEGER NOT NULL,
  "end"    INTEGER NOT NULL,
  FOREIGN KEY(file_id) REFERENCES files(id) ON DELETE CASCADE
  DEFERRABLE INITIALLY DEFERRED
);
CREATE INDEX IF NOT EXISTS idx_entities_file ON entities(file_id, start);
CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(name);
CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities(kind);

CREATE TABLE IF NOT EXISTS calls (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  src_gid     TEXT NOT NULL,
  dst_gid     TEXT,
  dst_name    TEXT,
  callsite_id INTEGER,
  FOREIGN KEY(src_gid) REFERENCES entities(gid) ON DELETE CASCADE
  DEFERRABLE INITIALLY DEFERRED,
  FOREIGN KEY(dst_gid) REFERENCES entities(gid) ON DELETE SET NULL
  DEFERRABLE INITIALLY DEFERRED
);
CREATE INDEX IF NOT EXISTS idx_calls_src ON calls(src_gid);
CREATE INDEX IF NOT EXISTS idx_calls_dst ON calls(dst_gid);
CREATE INDEX IF NOT EXISTS idx_calls_callsite ON calls(callsite_id);
CREATE UNIQUE INDEX IF NOT EXISTS uq_calls_norm
  ON calls(src_gid, IFNULL(dst_gid,''), IFNULL(dst_name,''));

CREATE TABLE IF NOT EXISTS callsites (
  id        INTEGER PRIMARY KEY AUTOINCREMENT,
  src_gid   TEXT NOT NULL,
  kind      TEXT NOT NULL,
  name_hint TEXT,
  expr      TEXT,
  sig_id    TEXT,
  FOREIGN KEY(src_gid) REFERENCES entities(gid) ON DELETE CASCADE
  DEFERRABLE INITIALLY DEFERRED
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_callsites_norm
  ON callsites(src_gid, IFNULL(name_hint,''), kind);

CREATE TABLE IF NOT EXISTS call_candidates (
  callsite_id INTEGER NOT NULL,
  dst_gid     TEXT NOT NULL,
  rank        INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (callsite_id, dst_gid),
  FOREIGN KEY(callsite_id) REFERENCES callsites(id) ON DELETE CASCADE
  DEFERRABLE INITIALLY DEFERRED,
  FOREIGN KEY(dst_gid) REFERENCES entities(gid) ON DELETE CASCADE
  DEFERRABLE INITIALLY DEFERRED
);
CREATE INDEX IF NOT EXISTS idx_candidates_dst ON call_candidates(dst_gid);

CREATE TABLE IF NOT EXISTS includes (
  src_file_id INTEGER NOT NULL,
  dst_file_id INTEGER NOT NULL,
  kind        TEXT NOT NULL DEFAULT '',
  UNIQUE(src_file_id, dst_file_id),
  FOREIGN KEY(src_file_id) REFERENCES files(id) ON DELETE CASCADE
  DEFERRABLE INITIALLY DEFERRED,
  FOREIGN KEY(dst_file_id) REFERENCES files(id) ON DELETE CASCADE
  DEFERRABLE INITIALLY DEFERRED
);
CREATE INDEX IF NOT EXISTS idx_includes_dst ON includes(dst_file_id);

CREATE VIRTUAL TABLE entities_fts USING fts5(
  gid UNINDEXED, name, decl_sig, eff_sig,
  content='entities', content_rowid='rowid',
  tokenize='unicode61'
);

CREATE TRIGGER trg_entities_fts_insert
AFTER INSERT ON entities BEGIN
  INSERT INTO entities_fts(rowid, gid, name, decl_sig, eff_sig)
  VALUES (new.rowid, new.gid, new.name, new.decl_sig, new.eff_sig);
END;

CREATE TRIGGER trg_entities_fts_update
AFTER UPDATE ON entities BEGIN
  INSERT INTO entities_fts(entities_fts, rowid, gid, name, decl_sig, eff_sig)
  VALUES('delete', old.rowid, old.gid, old.name, old.decl_sig, old.eff_sig);
  INSERT INTO entities_fts(rowid, gid, name, decl_sig, eff_sig)
  VALUES (new.rowid, new.gid, new.name, new.decl_sig, new.eff_sig);
END;

CREATE TRIGGER trg_entities_fts_delete
AFTER DELETE ON entities BEGIN
  INSERT INTO entities_fts(entities_fts, rowid, gid, name, decl_sig, eff_sig)
  VALUES('delete', old.rowid, old.gid, old.name, old.decl_sig, old.eff_sig);
END;
`

// ensureSchema migrates the database to the current schema version: run
// the full create script on mismatch, add late columns idempotently, then
// rebuild the FTS index when it exists but is empty.
func (s *Store) ensureSchema() error {
	var current int
	err := s.db.QueryRow(
		"SELECT value FROM meta WHERE key='schema_version'").Scan(&current)
	if err != nil || current != schemaVersion {
		if _, err := s.db.Exec(schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := s.db.Exec(
			"INSERT OR REPLACE INTO meta(key, value) VALUES('schema_version', ?)",
			fmt.Sprint(schemaVersion)); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	}

	// Late columns; each is added only when table_info does not list it.
	for _, alter := range []struct{ table, column, ddl string }{
		{"entities", "sig_id", "ALTER TABLE entities ADD COLUMN sig_id TEXT"},
		{"entities", "linkage", "ALTER TABLE entities ADD COLUMN linkage TEXT"},
		{"calls", "callsite_id", "ALTER TABLE calls ADD COLUMN callsite_id INTEGER"},
	} {
		if !s.hasColumn(alter.table, alter.column) {
			if _, err := s.db.Exec(alter.ddl); err != nil {
				return fmt.Errorf("add %s.%s: %w", alter.table, alter.column, err)
			}
		}
	}

	return s.rebuildFTSIfEmpty()
}

// hasColumn checks pragma table_info for a column.
func (s *Store) hasColumn(table, column string) bool {
	rows, err := s.db.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return false
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if rows.Scan(&name) == nil && name == column {
			return true
		}
	}
	return false
}

// rebuildFTSIfEmpty repopulates the external-content index after a
// migration left it present but empty while entities exist.
func (s *Store) rebuildFTSIfEmpty() error {
	var entities, indexed int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM entities").Scan(&entities); err != nil {
		return err
	}
	if entities == 0 {
		return nil
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM entities_fts").Scan(&indexed); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return err
	}
	if indexed > 0 {
		return nil
	}
	_, err := s.db.Exec("INSERT INTO entities_fts(entities_fts) VALUES('rebuild')")
	return err
}
