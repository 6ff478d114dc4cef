package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RunCounts are the totals recorded when a run completes.
type RunCounts struct {
	Fetched    int
	Inserted   int
	Updated    int
	ErrorCount int
	Cleaned    int64
}

func (p *Pool) InsertSyncRun(ctx context.Context, runUUID, sourceName string, startedAt time.Time) (int64, error) {
	const q = `
INSERT INTO sync_runs (
	run_uuid,
	source_name,
	started_at,
	status
)
VALUES ($1::uuid, $2, $3, 'running')
RETURNING id
`
	var id int64
	if err := p.QueryRow(ctx, q, runUUID, sourceName, startedAt.UTC()).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert sync run: %w", err)
	}
	return id, nil
}

func (p *Pool) CompleteSyncRun(ctx context.Context, runID int64, counts RunCounts, finishedAt time.Time) error {
	const q = `
UPDATE sync_runs
SET
	status = 'completed',
	finished_at = $2,
	fetched = $3,
	inserted = $4,
	updated = $5,
	error_count = $6,
	cleaned = $7,
	error_message = NULL
WHERE id = $1
`
	if _, err := p.Exec(ctx, q,
		runID,
		finishedAt.UTC(),
		counts.Fetched,
		counts.Inserted,
		counts.Updated,
		counts.ErrorCount,
		counts.Cleaned,
	); err != nil {
		return fmt.Errorf("complete sync run %d: %w", runID, err)
	}
	return nil
}

func (p *Pool) FailSyncRun(ctx context.Context, runID int64, message string, finishedAt time.Time) error {
	const q = `
UPDATE sync_runs
SET
	status = 'failed',
	finished_at = $2,
	error_message = $3
WHERE id = $1
`
	msg := strings.TrimSpace(message)
	if len(msg) > 2000 {
		msg = msg[:2000]
	}
	if _, err := p.Exec(ctx, q, runID, finishedAt.UTC(), msg); err != nil {
		return fmt.Errorf("fail sync run %d: %w", runID, err)
	}
	return nil
}

// ListSyncRuns returns the newest runs first.
func (p *Pool) ListSyncRuns(ctx context.Context, limit int) ([]SyncRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	const q = `
SELECT
	id,
	run_uuid::text,
	source_name,
	started_at,
	finished_at,
	status,
	fetched,
	inserted,
	updated,
	error_count,
	cleaned,
	error_message
FROM sync_runs
ORDER BY started_at DESC, id DESC
LIMIT $1
`
	rows, err := p.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query sync runs: %w", err)
	}
	defer rows.Close()

	runs := make([]SyncRun, 0, limit)
	for rows.Next() {
		var r SyncRun
		if err := rows.Scan(
			&r.ID,
			&r.RunUUID,
			&r.SourceName,
			&r.StartedAt,
			&r.FinishedAt,
			&r.Status,
			&r.Fetched,
			&r.Inserted,
			&r.Updated,
			&r.ErrorCount,
			&r.Cleaned,
			&r.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("scan sync run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sync runs: %w", err)
	}
	return runs, nil
}
