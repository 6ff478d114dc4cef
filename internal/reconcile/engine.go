// Package reconcile upserts normalized events by their source identity and
// removes expired listings outside the home region.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/shareef6907/BahrainNights-sub013/internal/db"
	"github.com/shareef6907/BahrainNights-sub013/internal/globaltime"
)

// Store is the storage the engine writes through. *db.Pool satisfies it.
type Store interface {
	FindEventID(ctx context.Context, sourceName, sourceEventID string) (int64, error)
	InsertEvent(ctx context.Context, e *db.EventRecord, now time.Time) (int64, error)
	UpdateEvent(ctx context.Context, id int64, e *db.EventRecord, now time.Time) error
	ListEventsEndingBefore(ctx context.Context, sourceName, day string) ([]db.ExpiredEvent, error)
	DeleteEvents(ctx context.Context, ids []int64) (int64, error)
}

// Action is what happened to one record.
type Action string

const (
	ActionInserted Action = "inserted"
	ActionUpdated  Action = "updated"
	ActionFailed   Action = "failed"
)

// Outcome is the per-record result. Err is set only for ActionFailed.
type Outcome struct {
	SourceEventID string
	Action        Action
	EventID       int64
	Err           error
}

// Summary aggregates the outcomes of one batch. Deferred counts records left
// unwritten because the context ended; they are picked up by the next run.
type Summary struct {
	Inserted int
	Updated  int
	Failed   int
	Deferred int
	Canceled error
	Errors   []string
	Outcomes []Outcome
}

// ErrorCount is the number of reported errors: one per failed record plus
// one for a stopped batch.
func (s Summary) ErrorCount() int {
	return len(s.Errors)
}

func (s *Summary) add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	switch o.Action {
	case ActionInserted:
		s.Inserted++
	case ActionUpdated:
		s.Updated++
	case ActionFailed:
		s.Failed++
		s.Errors = append(s.Errors, fmt.Sprintf("%s: %v", o.SourceEventID, o.Err))
	}
}

func (s *Summary) stop(err error, remaining int) {
	s.Canceled = err
	s.Deferred = remaining
	s.Errors = append(s.Errors, fmt.Sprintf("batch stopped, %d records deferred: %v", remaining, err))
}

type Engine struct {
	store       Store
	homeCountry string
	logger      zerolog.Logger
}

func NewEngine(store Store, homeCountry string, logger zerolog.Logger) *Engine {
	return &Engine{
		store:       store,
		homeCountry: strings.ToUpper(strings.TrimSpace(homeCountry)),
		logger:      logger,
	}
}

// Reconcile writes every record independently. A failed record is reported
// in the summary and never stops the batch. When ctx ends the batch stops:
// the remaining records, including one whose write was cut short, are
// counted as deferred and the cancellation is reported once.
func (e *Engine) Reconcile(ctx context.Context, sourceName string, records []db.EventRecord) Summary {
	summary := Summary{Outcomes: make([]Outcome, 0, len(records))}
	for i := range records {
		if err := ctx.Err(); err != nil {
			summary.stop(err, len(records)-i)
			break
		}
		record := records[i]
		record.SourceName = sourceName
		out := e.upsert(ctx, &record)
		if out.Action == ActionFailed && interrupted(ctx, out.Err) {
			summary.stop(ctx.Err(), len(records)-i)
			break
		}
		summary.add(out)
	}

	e.logger.Info().
		Str("source", sourceName).
		Int("records", len(records)).
		Int("inserted", summary.Inserted).
		Int("updated", summary.Updated).
		Int("failed", summary.Failed).
		Int("deferred", summary.Deferred).
		Msg("reconcile batch completed")
	return summary
}

func (e *Engine) upsert(ctx context.Context, record *db.EventRecord) Outcome {
	out := Outcome{SourceEventID: record.SourceEventID}
	if strings.TrimSpace(record.SourceEventID) == "" {
		out.Action = ActionFailed
		out.Err = fmt.Errorf("source_event_id is required")
		return out
	}
	now := globaltime.UTC()
	id, err := e.store.FindEventID(ctx, record.SourceName, record.SourceEventID)
	switch {
	case err == nil:
		if err := e.store.UpdateEvent(ctx, id, record, now); err != nil {
			return e.failed(out, err)
		}
		out.Action = ActionUpdated
		out.EventID = id
	case db.IsNoRows(err):
		newID, err := e.store.InsertEvent(ctx, record, now)
		if err != nil {
			return e.failed(out, err)
		}
		out.Action = ActionInserted
		out.EventID = newID
	default:
		return e.failed(out, fmt.Errorf("lookup event: %w", err))
	}
	return out
}

func interrupted(ctx context.Context, err error) bool {
	if ctx.Err() == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (e *Engine) failed(out Outcome, err error) Outcome {
	e.logger.Warn().
		Err(err).
		Str("source_event_id", out.SourceEventID).
		Msg("event write failed")
	out.Action = ActionFailed
	out.Err = err
	return out
}

// Cleanup deletes records of sourceName that ended strictly before today
// (YYYY-MM-DD) and do not belong to the home region.
func (e *Engine) Cleanup(ctx context.Context, sourceName, today string) (int64, error) {
	expired, err := e.store.ListEventsEndingBefore(ctx, sourceName, today)
	if err != nil {
		return 0, fmt.Errorf("list expired events: %w", err)
	}

	ids := make([]int64, 0, len(expired))
	for _, ev := range expired {
		if strings.EqualFold(ev.Country, e.homeCountry) {
			continue
		}
		ids = append(ids, ev.ID)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	deleted, err := e.store.DeleteEvents(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete expired events: %w", err)
	}

	e.logger.Info().
		Str("source", sourceName).
		Str("before", today).
		Int64("deleted", deleted).
		Int("retained_home", len(expired)-len(ids)).
		Msg("cleanup completed")
	return deleted, nil
}
