package store

import (
	"fmt"
	"sort"

	"github.com/1S33dp1sk/glyph/internal/extract"
)

// replaceIncludes refreshes the include edges of one source file: ensure
// a files row per destination (metadata may stay null), clear the prior
// edges, insert the new set.
func (s *Store) replaceIncludes(srcFileID int64, edges []extract.IncludeEdge) error {
	if _, err := s.db.Exec("DELETE FROM includes WHERE src_file_id=?", srcFileID); err != nil {
		return fmt.Errorf("clear includes: %w", err)
	}
	for _, e := range edges {
		dstID, err := s.upsertFile(e.Path, nil)
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(`
			INSERT OR IGNORE INTO includes(src_file_id, dst_file_id, kind)
			VALUES(?, ?, ?)`, srcFileID, dstID, e.Kind); err != nil {
			return fmt.Errorf("insert include edge: %w", err)
		}
	}
	return nil
}

// InsertIncludeEdge registers a single include edge by path, creating
// files rows as needed.
func (s *Store) InsertIncludeEdge(srcPath, dstPath, kind string) error {
	srcID, err := s.upsertFile(srcPath, nil)
	if err != nil {
		return err
	}
	dstID, err := s.upsertFile(dstPath, nil)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT OR IGNORE INTO includes(src_file_id, dst_file_id, kind)
		VALUES(?, ?, ?)`, srcID, dstID, kind)
	return err
}

// AffectedFiles computes the reverse-include closure of the changed
// paths: every file that includes one of them, directly or (when
// transitive) through a chain. Paths unknown to the store are ignored.
// includeSelf adds the seeds themselves. The result is sorted canonical
// absolute paths.
func (s *Store) AffectedFiles(changed []string, includeSelf, transitive bool) ([]string, error) {
	seedIDs := make([]int64, 0, len(changed))
	seen := make(map[int64]bool)
	for _, p := range changed {
		if id, ok := s.fileID(p); ok && !seen[id] {
			seen[id] = true
			seedIDs = append(seedIDs, id)
		}
	}

	affected := make(map[int64]bool)
	frontier := seedIDs
	for len(frontier) > 0 {
		var next []int64
		for _, id := range frontier {
			rows, err := s.db.Query(
				"SELECT src_file_id FROM includes WHERE dst_file_id=?", id)
			if err != nil {
				return nil, err
			}
			for rows.Next() {
				var src int64
				if err := rows.Scan(&src); err != nil {
					rows.Close()
					return nil, err
				}
				if !affected[src] {
					affected[src] = true
					next = append(next, src)
				}
			}
			if err := rows.Err(); err != nil {
				rows.Close()
				return nil, err
			}
			rows.Close()
		}
		if !transitive {
			break
		}
		frontier = next
	}

	if includeSelf {
		for _, id := range seedIDs {
			affected[id] = true
		}
	}
	ids := make([]int64, 0, len(affected))
	for id := range affected {
		ids = append(ids, id)
	}

	var paths []string
	for _, id := range ids {
		var p string
		if err := s.db.QueryRow("SELECT path FROM files WHERE id=?", id).Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}
