// Package pipeline runs one sync of the upstream listings into storage.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shareef6907/BahrainNights-sub013/internal/classify"
	"github.com/shareef6907/BahrainNights-sub013/internal/db"
	"github.com/shareef6907/BahrainNights-sub013/internal/globaltime"
	"github.com/shareef6907/BahrainNights-sub013/internal/metrics"
	"github.com/shareef6907/BahrainNights-sub013/internal/reconcile"
	"github.com/shareef6907/BahrainNights-sub013/internal/timeconv"
	"github.com/shareef6907/BahrainNights-sub013/internal/upstream"
)

// Fetcher yields the in-scope listings of one walk.
type Fetcher interface {
	FetchAll(ctx context.Context) ([]upstream.Listing, upstream.FetchStats)
}

// Store is everything a run writes: events through the reconcile engine and
// the sync_runs ledger.
type Store interface {
	reconcile.Store
	InsertSyncRun(ctx context.Context, runUUID, sourceName string, startedAt time.Time) (int64, error)
	CompleteSyncRun(ctx context.Context, runID int64, counts db.RunCounts, finishedAt time.Time) error
	FailSyncRun(ctx context.Context, runID int64, message string, finishedAt time.Time) error
}

// Summary is the structured result of one run.
type Summary struct {
	RunID      string         `json:"run_id"`
	Fetched    int            `json:"fetched"`
	Skipped    int            `json:"skipped"`
	Inserted   int            `json:"inserted"`
	Updated    int            `json:"updated"`
	Deferred   int            `json:"deferred"`
	Errors     []string       `json:"errors"`
	ErrorCount int            `json:"error_count"`
	Countries  map[string]int `json:"countries"`
	Categories map[string]int `json:"categories"`
	Cleaned    int64          `json:"cleaned"`
	FetchError string         `json:"fetch_error,omitempty"`
	DurationMS int64          `json:"duration_ms"`

	Fetch upstream.FetchStats `json:"-"`
}

type Service struct {
	fetcher    Fetcher
	store      Store
	normalizer *Normalizer
	engine     *reconcile.Engine
	sourceName string
	homeTZ     *time.Location
	logger     zerolog.Logger
}

func NewService(fetcher Fetcher, store Store, normalizer *Normalizer, sourceName string, logger zerolog.Logger) *Service {
	tables := normalizer.classifier.Tables()
	home := tables.Home()
	return &Service{
		fetcher:    fetcher,
		store:      store,
		normalizer: normalizer,
		engine:     reconcile.NewEngine(store, home.Code, logger),
		sourceName: strings.TrimSpace(sourceName),
		homeTZ:     timeconv.Resolve(home.DefaultTimezone, ""),
		logger:     logger,
	}
}

// Run fetches, normalizes, classifies and reconciles, then always runs
// cleanup. Only a failure to open the run ledger is returned as an error;
// everything else is reported through the summary.
func (s *Service) Run(ctx context.Context) (Summary, error) {
	if s == nil || s.store == nil || s.fetcher == nil {
		return Summary{}, fmt.Errorf("pipeline service is not initialized")
	}

	timer := metrics.NewTimer()
	started := globaltime.UTC()
	summary := Summary{
		RunID:      uuid.NewString(),
		Errors:     []string{},
		Countries:  map[string]int{},
		Categories: map[string]int{},
	}

	runID, err := s.store.InsertSyncRun(ctx, summary.RunID, s.sourceName, started)
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues(db.RunStatusFailed).Inc()
		return summary, fmt.Errorf("insert sync run: %w", err)
	}

	listings, stats := s.fetcher.FetchAll(ctx)
	summary.Fetch = stats
	summary.Fetched = len(listings)
	summary.FetchError = stats.PageError
	metrics.ListingsFetched.Add(float64(len(listings)))
	metrics.ListingsSkipped.WithLabelValues("home").Add(float64(stats.SkippedHome))
	metrics.ListingsSkipped.WithLabelValues("attraction").Add(float64(stats.SkippedAttraction))
	metrics.ListingsSkipped.WithLabelValues("sold_out").Add(float64(stats.SkippedSoldOut))

	records := make([]db.EventRecord, 0, len(listings))
	for _, listing := range listings {
		normalized, ok := s.normalizer.Normalize(listing)
		if !ok {
			summary.Skipped++
			metrics.ListingsSkipped.WithLabelValues("no_country").Inc()
			continue
		}
		records = append(records, normalized.Record)
		summary.Countries[normalized.Record.Country]++
		summary.Categories[normalized.Record.Category]++
		metrics.CategoryDecisions.WithLabelValues(string(normalized.Stage), normalized.Record.Category).Inc()
	}

	batch := s.engine.Reconcile(ctx, s.sourceName, records)
	summary.Inserted = batch.Inserted
	summary.Updated = batch.Updated
	summary.Deferred = batch.Deferred
	summary.Errors = append(summary.Errors, batch.Errors...)
	metrics.EventsWritten.WithLabelValues(string(reconcile.ActionInserted)).Add(float64(batch.Inserted))
	metrics.EventsWritten.WithLabelValues(string(reconcile.ActionUpdated)).Add(float64(batch.Updated))
	metrics.EventsWritten.WithLabelValues(string(reconcile.ActionFailed)).Add(float64(batch.Failed))

	// Cleanup runs even when the batch had failures or the context is done,
	// so it gets its own short deadline.
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	cleaned, err := s.engine.Cleanup(cleanupCtx, s.sourceName, globaltime.Today(s.homeTZ))
	cancel()
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("cleanup: %v", err))
	}
	summary.Cleaned = cleaned
	metrics.EventsCleaned.Add(float64(cleaned))

	summary.ErrorCount = len(summary.Errors)
	summary.DurationMS = timer.ObserveDuration(metrics.SyncRunDuration).Milliseconds()

	finished := globaltime.UTC()
	counts := db.RunCounts{
		Fetched:    summary.Fetched,
		Inserted:   summary.Inserted,
		Updated:    summary.Updated,
		ErrorCount: summary.ErrorCount,
		Cleaned:    summary.Cleaned,
	}
	ledgerCtx := context.WithoutCancel(ctx)
	if err := s.store.CompleteSyncRun(ledgerCtx, runID, counts, finished); err != nil {
		s.logger.Error().Err(err).Str("run_id", summary.RunID).Msg("failed to mark sync run completed")
		if markErr := s.store.FailSyncRun(ledgerCtx, runID, err.Error(), finished); markErr != nil {
			s.logger.Error().Err(markErr).Str("run_id", summary.RunID).Msg("failed to mark sync run failed")
		}
		metrics.SyncRunsTotal.WithLabelValues(db.RunStatusFailed).Inc()
	} else {
		metrics.SyncRunsTotal.WithLabelValues(db.RunStatusCompleted).Inc()
		metrics.LastSuccessfulRun.Set(float64(finished.Unix()))
	}

	s.logger.Info().
		Str("run_id", summary.RunID).
		Str("source", s.sourceName).
		Int("fetched", summary.Fetched).
		Int("skipped", summary.Skipped).
		Int("inserted", summary.Inserted).
		Int("updated", summary.Updated).
		Int("deferred", summary.Deferred).
		Int("errors", summary.ErrorCount).
		Int64("cleaned", summary.Cleaned).
		Str("stop_reason", string(stats.StopReason)).
		Int64("duration_ms", summary.DurationMS).
		Msg("sync run completed")

	return summary, nil
}
