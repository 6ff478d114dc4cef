package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/shareef6907/BahrainNights-sub013/internal/classify"
	"github.com/shareef6907/BahrainNights-sub013/internal/db"
	"github.com/shareef6907/BahrainNights-sub013/internal/globaltime"
	"github.com/shareef6907/BahrainNights-sub013/internal/taxonomy"
	"github.com/shareef6907/BahrainNights-sub013/internal/textnorm"
	"github.com/shareef6907/BahrainNights-sub013/internal/upstream"
)

type fakeFetcher struct {
	listings []upstream.Listing
	stats    upstream.FetchStats
}

func (f fakeFetcher) FetchAll(context.Context) ([]upstream.Listing, upstream.FetchStats) {
	return f.listings, f.stats
}

type fakeStore struct {
	nextID    int64
	rows      map[int64]db.EventRecord
	failOn    map[string]bool
	runs      map[int64]string
	counts    db.RunCounts
	cleanupAt string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rows:   map[int64]db.EventRecord{},
		failOn: map[string]bool{},
		runs:   map[int64]string{},
	}
}

func (s *fakeStore) FindEventID(_ context.Context, source, id string) (int64, error) {
	for rowID, row := range s.rows {
		if row.SourceName == source && row.SourceEventID == id {
			return rowID, nil
		}
	}
	return 0, db.ErrNoRows
}

func (s *fakeStore) InsertEvent(_ context.Context, e *db.EventRecord, now time.Time) (int64, error) {
	if s.failOn[e.SourceEventID] {
		return 0, errors.New("insert rejected")
	}
	s.nextID++
	row := *e
	row.ID = s.nextID
	row.CreatedAt = now
	s.rows[row.ID] = row
	return row.ID, nil
}

func (s *fakeStore) UpdateEvent(_ context.Context, id int64, e *db.EventRecord, now time.Time) error {
	row := *e
	row.ID = id
	row.UpdatedAt = now
	s.rows[id] = row
	return nil
}

func (s *fakeStore) ListEventsEndingBefore(_ context.Context, source, day string) ([]db.ExpiredEvent, error) {
	s.cleanupAt = day
	var out []db.ExpiredEvent
	for id, row := range s.rows {
		if row.SourceName == source && row.EndDate < day {
			out = append(out, db.ExpiredEvent{ID: id, Country: row.Country, EndDate: row.EndDate})
		}
	}
	return out, nil
}

func (s *fakeStore) DeleteEvents(_ context.Context, ids []int64) (int64, error) {
	for _, id := range ids {
		delete(s.rows, id)
	}
	return int64(len(ids)), nil
}

func (s *fakeStore) InsertSyncRun(_ context.Context, runUUID, _ string, _ time.Time) (int64, error) {
	id := int64(len(s.runs) + 1)
	s.runs[id] = db.RunStatusRunning
	return id, nil
}

func (s *fakeStore) CompleteSyncRun(_ context.Context, runID int64, counts db.RunCounts, _ time.Time) error {
	s.runs[runID] = db.RunStatusCompleted
	s.counts = counts
	return nil
}

func (s *fakeStore) FailSyncRun(_ context.Context, runID int64, _ string, _ time.Time) error {
	s.runs[runID] = db.RunStatusFailed
	return nil
}

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	tables, err := taxonomy.Default()
	if err != nil {
		t.Fatalf("load taxonomy: %v", err)
	}
	rewriter, err := textnorm.NewAffiliateRewriter("https://platinumlist.net/aff/", "partner1")
	if err != nil {
		t.Fatalf("new rewriter: %v", err)
	}
	return NewNormalizer(classify.New(tables), rewriter, "platinumlist")
}

func amount(v float64) *float64 { return &v }

func TestNormalize(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	got, ok := n.Normalize(upstream.Listing{
		ID:          4211,
		Name:        "<b>Grand Prix</b> Qualifying &amp; Fan Zone",
		Description: "<p>Festival party night at the track.</p>",
		Start:       1740861000,
		End:         1740868200,
		Timezone:    "",
		URL:         "https://abudhabi.platinumlist.net/event-tickets/4211",
		Venue:       upstream.Venue{Name: " Yas  Marina ", City: "Abu Dhabi"},
		Price:       upstream.Price{Amount: amount(95), Currency: "aed"},
	})
	if !ok {
		t.Fatalf("expected listing to normalize")
	}
	r := got.Record
	if r.Country != "AE" || r.Category != "sports" || got.Stage != classify.StageTitlePriority {
		t.Fatalf("unexpected classification: country=%s category=%s stage=%s", r.Country, r.Category, got.Stage)
	}
	if r.Title != "Grand Prix Qualifying & Fan Zone" || r.Description != "Festival party night at the track." {
		t.Fatalf("unexpected text: %q / %q", r.Title, r.Description)
	}
	if r.Slug != "grand-prix-qualifying-fan-zone-4211" {
		t.Fatalf("unexpected slug %q", r.Slug)
	}
	// Falls back to the country timezone: 20:30Z is 00:30 next day in Dubai.
	if r.Timezone != "Asia/Dubai" || r.StartDate != "2025-03-02" || r.StartTime != "00:30" || r.EndTime != "02:30" {
		t.Fatalf("unexpected temporal fields: %s %s %s-%s", r.Timezone, r.StartDate, r.StartTime, r.EndTime)
	}
	if r.VenueName != "Yas Marina" || r.City == nil || *r.City != "Abu Dhabi" {
		t.Fatalf("unexpected venue/city: %q %v", r.VenueName, r.City)
	}
	if r.PriceCurrency != "AED" || r.PriceAmount == nil || *r.PriceAmount != 95 {
		t.Fatalf("unexpected price: %v %s", r.PriceAmount, r.PriceCurrency)
	}
	if !strings.HasPrefix(r.AffiliateURL, "https://platinumlist.net/aff/?") || !strings.Contains(r.AffiliateURL, "ref=partner1") {
		t.Fatalf("unexpected affiliate url %q", r.AffiliateURL)
	}
	if !r.IsActive || r.SourceEventID != "4211" || r.SourceName != "platinumlist" {
		t.Fatalf("unexpected identity/flags: %+v", r)
	}
}

func TestNormalizeDropsUnknownCountry(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	if _, ok := n.Normalize(upstream.Listing{ID: 1, Name: "Paris Show", Timezone: "Europe/Paris", Price: upstream.Price{Currency: "EUR"}}); ok {
		t.Fatalf("expected listing without a country signal to be dropped")
	}
}

func TestHomeMatcher(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	home := HomeMatcher(n.classifier)
	if !home.IsHome(upstream.Listing{Price: upstream.Price{Currency: "BHD"}}) {
		t.Fatalf("expected BHD listing to be home")
	}
	if home.IsHome(upstream.Listing{URL: "https://doha.platinumlist.net/x"}) {
		t.Fatalf("expected Doha listing not to be home")
	}
}

func listingsFor(n int) []upstream.Listing {
	out := make([]upstream.Listing, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, upstream.Listing{
			ID:       int64(i),
			Name:     fmt.Sprintf("Live Concert %d", i),
			Start:    1740861000,
			End:      1740868200,
			Timezone: "Asia/Dubai",
		})
	}
	return out
}

func TestRunReportsPartialFailureAndAlwaysCleansUp(t *testing.T) {
	t.Cleanup(globaltime.ResetTime)
	globaltime.SetMockTime(time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC))

	store := newFakeStore()
	store.failOn["3"] = true
	store.rows[900] = db.EventRecord{ID: 900, SourceName: "platinumlist", SourceEventID: "old", Country: "AE", EndDate: "2025-03-01"}
	store.rows[901] = db.EventRecord{ID: 901, SourceName: "platinumlist", SourceEventID: "old-home", Country: "BH", EndDate: "2025-03-01"}
	store.nextID = 1000

	listings := listingsFor(10)
	listings = append(listings, upstream.Listing{ID: 99, Name: "Nowhere", Timezone: "Europe/Paris"})
	fetcher := fakeFetcher{listings: listings, stats: upstream.FetchStats{StopReason: upstream.StopPageError, PageError: "page 3: status 502"}}

	svc := NewService(fetcher, store, newTestNormalizer(t), "platinumlist", zerolog.Nop())
	summary, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if summary.Fetched != 11 || summary.Skipped != 1 {
		t.Fatalf("unexpected fetched/skipped: %d/%d", summary.Fetched, summary.Skipped)
	}
	if summary.Inserted != 9 || summary.ErrorCount != 1 || len(summary.Errors) != 1 {
		t.Fatalf("expected 9 inserted and exactly one error, got %+v", summary)
	}
	if summary.Countries["AE"] != 10 || summary.Categories["music"] != 10 {
		t.Fatalf("unexpected breakdowns: %v %v", summary.Countries, summary.Categories)
	}
	if summary.Cleaned != 1 {
		t.Fatalf("expected the expired non-home row to be cleaned, got %d", summary.Cleaned)
	}
	if _, ok := store.rows[901]; !ok {
		t.Fatalf("expected home-region row to be retained")
	}
	if store.cleanupAt != "2025-03-02" {
		t.Fatalf("expected cleanup against home-region today, got %q", store.cleanupAt)
	}
	if summary.FetchError == "" || summary.RunID == "" {
		t.Fatalf("expected fetch error and run id in summary: %+v", summary)
	}
	if store.runs[1] != db.RunStatusCompleted || store.counts.Inserted != 9 || store.counts.ErrorCount != 1 {
		t.Fatalf("unexpected run ledger: %v %+v", store.runs, store.counts)
	}
}

func TestRunDefersRecordsWhenBudgetEnds(t *testing.T) {
	t.Cleanup(globaltime.ResetTime)
	globaltime.SetMockTime(time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC))

	store := newFakeStore()
	store.rows[900] = db.EventRecord{ID: 900, SourceName: "platinumlist", SourceEventID: "old", Country: "AE", EndDate: "2025-03-01"}
	store.nextID = 1000

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewService(fakeFetcher{listings: listingsFor(10)}, store, newTestNormalizer(t), "platinumlist", zerolog.Nop())
	summary, err := svc.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Inserted != 0 || summary.Deferred != 10 || summary.ErrorCount != 1 {
		t.Fatalf("expected 10 deferred records and one reported error, got %+v", summary)
	}
	if summary.Cleaned != 1 {
		t.Fatalf("expected cleanup to run after the budget ended, got %d", summary.Cleaned)
	}
	if store.runs[1] != db.RunStatusCompleted {
		t.Fatalf("expected the run ledger to be completed, got %v", store.runs)
	}
}

func TestRunUsesHomeTimezoneForToday(t *testing.T) {
	t.Cleanup(globaltime.ResetTime)
	// 22:00Z on the 9th is already the 10th in Bahrain (UTC+3).
	globaltime.SetMockTime(time.Date(2025, 3, 9, 22, 0, 0, 0, time.UTC))

	store := newFakeStore()
	svc := NewService(fakeFetcher{}, store, newTestNormalizer(t), "platinumlist", zerolog.Nop())
	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if store.cleanupAt != "2025-03-10" {
		t.Fatalf("expected 2025-03-10, got %q", store.cleanupAt)
	}
}
