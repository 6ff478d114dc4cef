package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const eventColumns = `
	id,
	source_name,
	source_event_id,
	title,
	slug,
	description,
	venue_name,
	country,
	city,
	to_char(start_date, 'YYYY-MM-DD'),
	to_char(end_date, 'YYYY-MM-DD'),
	start_time,
	end_time,
	timezone,
	price_amount::float8,
	price_currency,
	image_url,
	booking_url,
	affiliate_url,
	category,
	language,
	is_active,
	is_featured,
	created_at,
	updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (EventRecord, error) {
	var e EventRecord
	err := row.Scan(
		&e.ID,
		&e.SourceName,
		&e.SourceEventID,
		&e.Title,
		&e.Slug,
		&e.Description,
		&e.VenueName,
		&e.Country,
		&e.City,
		&e.StartDate,
		&e.EndDate,
		&e.StartTime,
		&e.EndTime,
		&e.Timezone,
		&e.PriceAmount,
		&e.PriceCurrency,
		&e.ImageURL,
		&e.BookingURL,
		&e.AffiliateURL,
		&e.Category,
		&e.Language,
		&e.IsActive,
		&e.IsFeatured,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	return e, err
}

// FindEventID returns the stored id for the identity pair, or ErrNoRows.
func (p *Pool) FindEventID(ctx context.Context, sourceName, sourceEventID string) (int64, error) {
	const q = `
SELECT id
FROM events
WHERE source_name = $1
  AND source_event_id = $2
`
	var id int64
	if err := p.QueryRow(ctx, q, sourceName, sourceEventID).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// InsertEvent stores a first sighting and returns its id.
func (p *Pool) InsertEvent(ctx context.Context, e *EventRecord, now time.Time) (int64, error) {
	if e == nil {
		return 0, fmt.Errorf("event is nil")
	}
	const q = `
INSERT INTO events (
	source_name,
	source_event_id,
	title,
	slug,
	description,
	venue_name,
	country,
	city,
	start_date,
	end_date,
	start_time,
	end_time,
	timezone,
	price_amount,
	price_currency,
	image_url,
	booking_url,
	affiliate_url,
	category,
	language,
	is_active,
	is_featured,
	created_at,
	updated_at
)
VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9::date, $10::date, $11, $12,
	$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $23
)
RETURNING id
`
	var id int64
	err := p.QueryRow(ctx, q,
		e.SourceName,
		e.SourceEventID,
		e.Title,
		e.Slug,
		e.Description,
		e.VenueName,
		e.Country,
		e.City,
		e.StartDate,
		e.EndDate,
		e.StartTime,
		e.EndTime,
		e.Timezone,
		e.PriceAmount,
		e.PriceCurrency,
		e.ImageURL,
		e.BookingURL,
		e.AffiliateURL,
		e.Category,
		e.Language,
		e.IsActive,
		e.IsFeatured,
		now.UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert event %s/%s: %w", e.SourceName, e.SourceEventID, err)
	}
	return id, nil
}

// UpdateEvent overwrites every mutable field of an existing row. created_at
// and the identity pair are left untouched.
func (p *Pool) UpdateEvent(ctx context.Context, id int64, e *EventRecord, now time.Time) error {
	if e == nil {
		return fmt.Errorf("event is nil")
	}
	const q = `
UPDATE events
SET
	title = $2,
	slug = $3,
	description = $4,
	venue_name = $5,
	country = $6,
	city = $7,
	start_date = $8::date,
	end_date = $9::date,
	start_time = $10,
	end_time = $11,
	timezone = $12,
	price_amount = $13,
	price_currency = $14,
	image_url = $15,
	booking_url = $16,
	affiliate_url = $17,
	category = $18,
	language = $19,
	is_active = $20,
	is_featured = $21,
	updated_at = $22
WHERE id = $1
`
	tag, err := p.Exec(ctx, q,
		id,
		e.Title,
		e.Slug,
		e.Description,
		e.VenueName,
		e.Country,
		e.City,
		e.StartDate,
		e.EndDate,
		e.StartTime,
		e.EndTime,
		e.Timezone,
		e.PriceAmount,
		e.PriceCurrency,
		e.ImageURL,
		e.BookingURL,
		e.AffiliateURL,
		e.Category,
		e.Language,
		e.IsActive,
		e.IsFeatured,
		now.UTC(),
	)
	if err != nil {
		return fmt.Errorf("update event id=%d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update event id=%d: %w", id, ErrNoRows)
	}
	return nil
}

// ExpiredEvent is the projection the cleanup pass filters on.
type ExpiredEvent struct {
	ID      int64
	Country string
	EndDate string
}

// ListEventsEndingBefore returns rows of sourceName whose end_date < day (YYYY-MM-DD).
func (p *Pool) ListEventsEndingBefore(ctx context.Context, sourceName, day string) ([]ExpiredEvent, error) {
	const q = `
SELECT id, country, to_char(end_date, 'YYYY-MM-DD')
FROM events
WHERE source_name = $1
  AND end_date < $2::date
ORDER BY id
`
	rows, err := p.Query(ctx, q, sourceName, day)
	if err != nil {
		return nil, fmt.Errorf("query expired events: %w", err)
	}
	defer rows.Close()

	out := make([]ExpiredEvent, 0, 32)
	for rows.Next() {
		var e ExpiredEvent
		if err := rows.Scan(&e.ID, &e.Country, &e.EndDate); err != nil {
			return nil, fmt.Errorf("scan expired event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired events: %w", err)
	}
	return out, nil
}

// DeleteEvents removes rows by id in one transaction.
func (p *Pool) DeleteEvents(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := p.BeginTx(ctx, TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM content_briefs WHERE event_id IN ?`, ids); err != nil {
		return 0, fmt.Errorf("delete content briefs: %w", err)
	}
	res := tx.GORM().WithContext(ctx).Where("id IN ?", ids).Delete(&EventRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete events: %w", res.Error)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return res.RowsAffected, nil
}

// EventFilter narrows ListEvents. Empty fields do not filter.
type EventFilter struct {
	SourceName string
	Country    string
	Category   string
	FromDate   string
	Limit      int
	Offset     int
}

// ListEvents returns active events ordered by start date together with the
// total number of matching rows.
func (p *Pool) ListEvents(ctx context.Context, f EventFilter) ([]EventRecord, int64, error) {
	where := []string{"is_active"}
	args := make([]any, 0, 6)
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if s := strings.TrimSpace(f.SourceName); s != "" {
		add("source_name = $%d", s)
	}
	if s := strings.ToUpper(strings.TrimSpace(f.Country)); s != "" {
		add("country = $%d", s)
	}
	if s := strings.ToLower(strings.TrimSpace(f.Category)); s != "" {
		add("category = $%d", s)
	}
	if s := strings.TrimSpace(f.FromDate); s != "" {
		add("end_date >= $%d::date", s)
	}
	whereSQL := strings.Join(where, "\n  AND ")

	var total int64
	countQuery := "SELECT COUNT(*)::BIGINT FROM events WHERE " + whereSQL
	if err := p.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := max(f.Offset, 0)
	args = append(args, limit, offset)
	listQuery := fmt.Sprintf(`
SELECT %s
FROM events
WHERE %s
ORDER BY start_date ASC, start_time ASC, id ASC
LIMIT $%d OFFSET $%d
`, eventColumns, whereSQL, len(args)-1, len(args))

	rows, err := p.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := make([]EventRecord, 0, limit)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate events: %w", err)
	}
	return events, total, nil
}

// CountEventsByCountry groups active events of sourceName by country.
func (p *Pool) CountEventsByCountry(ctx context.Context, sourceName string) (map[string]int64, error) {
	const q = `
SELECT country, COUNT(*)::BIGINT
FROM events
WHERE source_name = $1
  AND is_active
GROUP BY country
`
	rows, err := p.Query(ctx, q, sourceName)
	if err != nil {
		return nil, fmt.Errorf("query country counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64, 16)
	for rows.Next() {
		var country string
		var n int64
		if err := rows.Scan(&country, &n); err != nil {
			return nil, fmt.Errorf("scan country count: %w", err)
		}
		out[country] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate country counts: %w", err)
	}
	return out, nil
}
