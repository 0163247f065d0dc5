package search

import (
	"database/sql"
	"fmt"
	"strings"

	"chronomind/api/internal/store"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true — if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search runs plainto_tsquery over the highlights table with ts_headline
// snippets. Section filtering translates to an owner-kind predicate that both
// the count and the data query share, so Total stays consistent with the
// filtered result set. Year filtering needs the owner chain, which FTS does
// not join; year-scoped queries are served by Meilisearch only.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	where := "h.user_id = $2 AND h.fts @@ plainto_tsquery('english', $1)"
	args := []any{q.Text, q.UserID}

	if q.Section != "" {
		kinds := store.KindsForSection(q.Section)
		if len(kinds) == 0 {
			return nil, 0, nil
		}
		placeholders := make([]string, len(kinds))
		for i, kind := range kinds {
			args = append(args, string(kind))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		where += " AND h.owner_kind IN (" + strings.Join(placeholders, ", ") + ")"
	}

	var total int
	countSQL := fmt.Sprintf(`SELECT count(*) FROM highlights h WHERE %s`, where)
	if err := p.db.QueryRow(countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	dataSQL := fmt.Sprintf(`
		SELECT h.id, h.owner_kind, h.owner_id,
			ts_headline('english', h.text, plainto_tsquery('english', $1), 'MaxFragments=1,MaxWords=30') AS snippet,
			ts_rank(h.fts, plainto_tsquery('english', $1)) AS rank
		FROM highlights h
		WHERE %s
		ORDER BY rank DESC
		LIMIT %d OFFSET %d
	`, where, limit, offset)

	rows, err := p.db.Query(dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts search: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var rank float64
		if err := rows.Scan(&r.ID, &r.OwnerKind, &r.OwnerID, &r.Snippet, &rank); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range results {
		results[i].Section = sectionForKind(results[i].OwnerKind)
	}
	return results, total, nil
}

func sectionForKind(kind string) string {
	return store.OwnerKind(kind).Section()
}
