package store

import (
	"regexp"
	"strings"
)

// FTSHit is one full-text search result.
type FTSHit struct {
	GID     string
	Name    string
	DeclSig string
}

var identRx = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// ftsBanned are FTS5 operator words that must not reach MATCH.
var ftsBanned = map[string]bool{"and": true, "or": true, "not": true, "near": true}

const ftsMaxTerms = 6

// ftsExprFromText converts a natural-language query into a safe,
// high-recall FTS5 expression: identifier-ish tokens (containing '_' or
// length >= 4), deduplicated in order, capped, joined with OR as prefix
// matches. Empty when nothing usable remains.
func ftsExprFromText(q string) string {
	var terms []string
	seen := make(map[string]bool)
	for _, tok := range identRx.FindAllString(q, -1) {
		if ftsBanned[strings.ToLower(tok)] {
			continue
		}
		if !strings.Contains(tok, "_") && len(tok) < 4 {
			continue
		}
		if seen[tok] {
			continue
		}
		seen[tok] = true
		terms = append(terms, tok+"*")
		if len(terms) >= ftsMaxTerms {
			break
		}
	}
	return strings.Join(terms, " OR ")
}

// FTSSearch queries the full-text index over name/decl_sig/eff_sig. When
// the rewritten expression fails (or yields nothing usable), the search
// degrades to substring matching on name and decl_sig rather than
// raising.
func (s *Store) FTSSearch(query string, limit int) ([]FTSHit, error) {
	if limit <= 0 {
		limit = 50
	}
	expr := ftsExprFromText(query)
	if expr != "" {
		rows, err := s.db.Query(
			"SELECT gid, name, IFNULL(decl_sig,'') FROM entities_fts WHERE entities_fts MATCH ? LIMIT ?",
			expr, limit)
		if err == nil {
			defer rows.Close()
			var out []FTSHit
			for rows.Next() {
				var h FTSHit
				if err := rows.Scan(&h.GID, &h.Name, &h.DeclSig); err != nil {
					return nil, err
				}
				out = append(out, h)
			}
			return out, rows.Err()
		}
		// fall through to the substring fallback
	}
	return s.likeSearch(query, limit)
}

func (s *Store) likeSearch(query string, limit int) ([]FTSHit, error) {
	like := "%" + strings.TrimSpace(query) + "%"
	rows, err := s.db.Query(`
		SELECT gid, name, IFNULL(decl_sig,'') FROM entities
		WHERE name LIKE ? OR decl_sig LIKE ? LIMIT ?`, like, like, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FTSHit
	for rows.Next() {
		var h FTSHit
		if err := rows.Scan(&h.GID, &h.Name, &h.DeclSig); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
