package store

import (
	"context"
	"fmt"

	"github.com/1S33dp1sk/glyph/internal/extract"
	"github.com/1S33dp1sk/glyph/internal/graph"
)

// IngestUnit is one file's worth of extraction output.
type IngestUnit struct {
	Path     string
	Entities []extract.Entity
	Calls    []graph.Edge
	Includes []extract.IncludeEdge
	// Bytes are the pre-rewrite source bytes; they feed the stored sha256.
	Bytes []byte
}

// IngestFile atomically replaces a file's slice of the index: the files
// row, its entities, include edges, and call edges, plus best-effort
// callsite and candidate bookkeeping. Everything runs inside one
// savepoint; on error nothing of the file's previous state is lost.
func (s *Store) IngestFile(unit IngestUnit) error {
	return s.withSavepoint(func() error {
		fid, err := s.upsertFile(unit.Path, unit.Bytes)
		if err != nil {
			return err
		}

		prior, err := s.entityGIDsForFile(fid)
		if err != nil {
			return fmt.Errorf("read prior entities: %w", err)
		}
		if len(prior) > 0 {
			if err := s.clearCallsFrom(prior); err != nil {
				return fmt.Errorf("clear prior calls: %w", err)
			}
			if err := s.removeEntitiesForFile(fid); err != nil {
				return fmt.Errorf("remove prior entities: %w", err)
			}
		}

		if err := s.upsertEntities(fid, unit.Entities); err != nil {
			return err
		}
		if err := s.replaceIncludes(fid, unit.Includes); err != nil {
			return err
		}
		if err := s.insertCalls(unit.Calls); err != nil {
			return err
		}

		// Callsite synthesis and candidate population are bookkeeping on
		// top of the edges; their failure must not abort the ingest.
		callers := make([]string, 0, len(unit.Entities))
		for _, e := range unit.Entities {
			if e.Kind == extract.KindFn {
				callers = append(callers, e.GID)
			}
		}
		if err := s.linkCallsToCallsites(callers); err == nil {
			s.PopulateCandidates()
		}
		return nil
	})
}

// BulkIngest ingests several units inside one outer savepoint. The inner
// per-file savepoints nest via the counter. Cancellation is observed only
// between files; a file ingest is never interrupted mid-transaction.
func (s *Store) BulkIngest(ctx context.Context, units []IngestUnit) error {
	return s.withSavepoint(func() error {
		for _, u := range units {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.IngestFile(u); err != nil {
				return fmt.Errorf("ingest %s: %w", u.Path, err)
			}
		}
		return nil
	})
}
