package db

import (
	"context"
	"fmt"
	"strings"
)

// ListBriefCandidates returns active events of sourceName that have not
// ended before day and have no content_briefs row yet.
func (p *Pool) ListBriefCandidates(ctx context.Context, sourceName, day string, limit int) ([]EventRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	q := fmt.Sprintf(`
SELECT %s
FROM events e
WHERE e.source_name = $1
  AND e.is_active
  AND e.end_date >= $2::date
  AND NOT EXISTS (
	SELECT 1 FROM content_briefs b WHERE b.event_id = e.id
  )
ORDER BY e.start_date ASC, e.id ASC
LIMIT $3
`, eventColumns)

	rows, err := p.Query(ctx, q, sourceName, day, limit)
	if err != nil {
		return nil, fmt.Errorf("query brief candidates: %w", err)
	}
	defer rows.Close()

	out := make([]EventRecord, 0, limit)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan brief candidate: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate brief candidates: %w", err)
	}
	return out, nil
}

// InsertContentBrief records a brief; false means one already existed.
func (p *Pool) InsertContentBrief(ctx context.Context, b ContentBrief) (bool, error) {
	status := strings.TrimSpace(b.Status)
	if status == "" {
		status = BriefStatusPending
	}
	const q = `
INSERT INTO content_briefs (
	event_id,
	city,
	country,
	source_text,
	status,
	created_at
)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (event_id) DO NOTHING
`
	tag, err := p.Exec(ctx, q, b.EventID, b.City, b.Country, b.SourceText, status, b.CreatedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("insert content brief for event %d: %w", b.EventID, err)
	}
	return tag.RowsAffected() == 1, nil
}
