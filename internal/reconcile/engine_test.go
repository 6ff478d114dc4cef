package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/shareef6907/BahrainNights-sub013/internal/db"
	"github.com/shareef6907/BahrainNights-sub013/internal/globaltime"
)

type memStore struct {
	onInsert func(sourceEventID string)
	nextID   int64
	rows     map[int64]db.EventRecord
	failOn   map[string]error
	deleteFn func(ids []int64) error
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[int64]db.EventRecord), failOn: make(map[string]error)}
}

func (m *memStore) FindEventID(_ context.Context, sourceName, sourceEventID string) (int64, error) {
	for id, row := range m.rows {
		if row.SourceName == sourceName && row.SourceEventID == sourceEventID {
			return id, nil
		}
	}
	return 0, db.ErrNoRows
}

func (m *memStore) InsertEvent(ctx context.Context, e *db.EventRecord, now time.Time) (int64, error) {
	if m.onInsert != nil {
		m.onInsert(e.SourceEventID)
	}
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	if err := m.failOn[e.SourceEventID]; err != nil {
		return 0, err
	}
	for _, row := range m.rows {
		if row.SourceName == e.SourceName && row.SourceEventID == e.SourceEventID {
			return 0, fmt.Errorf("duplicate key (%s, %s)", e.SourceName, e.SourceEventID)
		}
	}
	m.nextID++
	row := *e
	row.ID = m.nextID
	row.CreatedAt = now
	row.UpdatedAt = now
	m.rows[row.ID] = row
	return row.ID, nil
}

func (m *memStore) UpdateEvent(_ context.Context, id int64, e *db.EventRecord, now time.Time) error {
	if err := m.failOn[e.SourceEventID]; err != nil {
		return err
	}
	existing, ok := m.rows[id]
	if !ok {
		return db.ErrNoRows
	}
	row := *e
	row.ID = id
	row.CreatedAt = existing.CreatedAt
	row.UpdatedAt = now
	m.rows[id] = row
	return nil
}

func (m *memStore) ListEventsEndingBefore(_ context.Context, sourceName, day string) ([]db.ExpiredEvent, error) {
	var out []db.ExpiredEvent
	for id, row := range m.rows {
		if row.SourceName == sourceName && row.EndDate < day {
			out = append(out, db.ExpiredEvent{ID: id, Country: row.Country, EndDate: row.EndDate})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) DeleteEvents(_ context.Context, ids []int64) (int64, error) {
	if m.deleteFn != nil {
		if err := m.deleteFn(ids); err != nil {
			return 0, err
		}
	}
	var n int64
	for _, id := range ids {
		if _, ok := m.rows[id]; ok {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func batch(n int) []db.EventRecord {
	out := make([]db.EventRecord, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, db.EventRecord{
			SourceEventID: fmt.Sprintf("%d", i),
			Title:         fmt.Sprintf("Show %d", i),
			Slug:          fmt.Sprintf("show-%d", i),
			Country:       "AE",
			StartDate:     "2025-03-01",
			EndDate:       "2025-03-02",
			Category:      "music",
		})
	}
	return out
}

func TestReconcileIsIdempotent(t *testing.T) {
	store := newMemStore()
	engine := NewEngine(store, "BH", zerolog.Nop())

	first := engine.Reconcile(context.Background(), "platinumlist", batch(4))
	if first.Inserted != 4 || first.Updated != 0 || first.ErrorCount() != 0 {
		t.Fatalf("unexpected first summary: %+v", first)
	}
	snapshot := make(map[int64]db.EventRecord, len(store.rows))
	for id, row := range store.rows {
		snapshot[id] = row
	}

	second := engine.Reconcile(context.Background(), "platinumlist", batch(4))
	if second.Inserted != 0 || second.Updated != 4 || second.ErrorCount() != 0 {
		t.Fatalf("unexpected second summary: %+v", second)
	}
	if len(store.rows) != 4 {
		t.Fatalf("expected 4 rows after rerun, got %d", len(store.rows))
	}
	for id, row := range store.rows {
		before := snapshot[id]
		if row.Title != before.Title || row.Slug != before.Slug || row.Category != before.Category {
			t.Fatalf("row %d changed across identical runs: %+v vs %+v", id, before, row)
		}
	}
}

func TestReconcileKeepsIdentityPairUnique(t *testing.T) {
	store := newMemStore()
	engine := NewEngine(store, "BH", zerolog.Nop())

	records := batch(2)
	records = append(records, records[0])
	records[2].Title = "Show 1 (moved)"

	summary := engine.Reconcile(context.Background(), "platinumlist", records)
	if summary.Inserted != 2 || summary.Updated != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	seen := make(map[string]bool)
	for _, row := range store.rows {
		key := row.SourceName + "/" + row.SourceEventID
		if seen[key] {
			t.Fatalf("duplicate identity %s", key)
		}
		seen[key] = true
	}
	id, _ := store.FindEventID(context.Background(), "platinumlist", "1")
	if store.rows[id].Title != "Show 1 (moved)" {
		t.Fatalf("expected full overwrite on later sighting, got %q", store.rows[id].Title)
	}

	// Same external id under another source is a different identity.
	other := engine.Reconcile(context.Background(), "othersource", batch(1))
	if other.Inserted != 1 {
		t.Fatalf("expected insert for another source, got %+v", other)
	}
}

func TestReconcileUpdateKeepsCreatedAt(t *testing.T) {
	t.Cleanup(globaltime.ResetTime)

	store := newMemStore()
	engine := NewEngine(store, "BH", zerolog.Nop())

	created := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	globaltime.SetMockTime(created)
	engine.Reconcile(context.Background(), "platinumlist", batch(1))

	updated := created.Add(6 * time.Hour)
	globaltime.SetMockTime(updated)
	engine.Reconcile(context.Background(), "platinumlist", batch(1))

	row := store.rows[1]
	if !row.CreatedAt.Equal(created) || !row.UpdatedAt.Equal(updated) {
		t.Fatalf("unexpected timestamps created=%s updated=%s", row.CreatedAt, row.UpdatedAt)
	}
}

func TestReconcileToleratesPartialFailure(t *testing.T) {
	store := newMemStore()
	store.failOn["3"] = errors.New("value too long for column")
	engine := NewEngine(store, "BH", zerolog.Nop())

	summary := engine.Reconcile(context.Background(), "platinumlist", batch(10))
	if summary.ErrorCount() != 1 {
		t.Fatalf("expected exactly one error, got %d (%v)", summary.ErrorCount(), summary.Errors)
	}
	if summary.Inserted != 9 || len(store.rows) != 9 {
		t.Fatalf("expected 9 committed rows, got inserted=%d rows=%d", summary.Inserted, len(store.rows))
	}
	if _, err := store.FindEventID(context.Background(), "platinumlist", "3"); !db.IsNoRows(err) {
		t.Fatalf("expected record 3 to be missing, got %v", err)
	}
	if summary.Outcomes[2].Action != ActionFailed || summary.Outcomes[2].Err == nil {
		t.Fatalf("expected third outcome to carry the failure: %+v", summary.Outcomes[2])
	}
}

func TestReconcileStopsWhenContextEnds(t *testing.T) {
	store := newMemStore()
	store.failOn["2"] = errors.New("value too long for column")
	engine := NewEngine(store, "BH", zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// Record 6 is mid-write when the context ends.
	store.onInsert = func(id string) {
		if id == "6" {
			cancel()
		}
	}

	summary := engine.Reconcile(ctx, "platinumlist", batch(10))
	if summary.Inserted != 4 || summary.Failed != 1 || summary.Deferred != 5 {
		t.Fatalf("expected 4 inserted, 1 failed, 5 deferred, got %+v", summary)
	}
	if !errors.Is(summary.Canceled, context.Canceled) {
		t.Fatalf("expected cancellation to be recorded, got %v", summary.Canceled)
	}
	if summary.ErrorCount() != 2 || len(summary.Outcomes) != 5 {
		t.Fatalf("expected one record error plus one stop entry, got %v (%d outcomes)", summary.Errors, len(summary.Outcomes))
	}
	if len(store.rows) != 4 {
		t.Fatalf("expected 4 committed rows, got %d", len(store.rows))
	}

	// The next run writes the deferred records.
	rerun := engine.Reconcile(context.Background(), "platinumlist", batch(10))
	if rerun.Deferred != 0 || rerun.Canceled != nil || len(store.rows) != 9 {
		t.Fatalf("expected deferred records on the next run, got %+v rows=%d", rerun, len(store.rows))
	}
}

func TestReconcileWithEndedContextDefersEverything(t *testing.T) {
	store := newMemStore()
	engine := NewEngine(store, "BH", zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := engine.Reconcile(ctx, "platinumlist", batch(3))
	if summary.Deferred != 3 || summary.Failed != 0 || summary.ErrorCount() != 1 || len(store.rows) != 0 {
		t.Fatalf("unexpected summary for ended context: %+v", summary)
	}
}

func TestCleanupBoundary(t *testing.T) {
	store := newMemStore()
	engine := NewEngine(store, "BH", zerolog.Nop())

	rows := []db.EventRecord{
		{SourceEventID: "yesterday-ae", Country: "AE", EndDate: "2025-03-09"},
		{SourceEventID: "today-ae", Country: "AE", EndDate: "2025-03-10"},
		{SourceEventID: "yesterday-bh", Country: "BH", EndDate: "2025-03-09"},
		{SourceEventID: "last-year-sa", Country: "SA", EndDate: "2024-03-10"},
	}
	for i := range rows {
		rows[i].Category = "music"
	}
	engine.Reconcile(context.Background(), "platinumlist", rows)
	engine.Reconcile(context.Background(), "othersource", []db.EventRecord{{SourceEventID: "old", Country: "AE", EndDate: "2020-01-01", Category: "music"}})

	deleted, err := engine.Cleanup(context.Background(), "platinumlist", "2025-03-10")
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deletions, got %d", deleted)
	}

	for _, keep := range []string{"today-ae", "yesterday-bh"} {
		if _, err := store.FindEventID(context.Background(), "platinumlist", keep); err != nil {
			t.Fatalf("expected %s to be retained: %v", keep, err)
		}
	}
	for _, gone := range []string{"yesterday-ae", "last-year-sa"} {
		if _, err := store.FindEventID(context.Background(), "platinumlist", gone); !db.IsNoRows(err) {
			t.Fatalf("expected %s to be deleted", gone)
		}
	}
	if _, err := store.FindEventID(context.Background(), "othersource", "old"); err != nil {
		t.Fatalf("cleanup must stay within the source: %v", err)
	}
}

func TestCleanupReportsStoreErrors(t *testing.T) {
	store := newMemStore()
	store.deleteFn = func([]int64) error { return errors.New("connection reset") }
	engine := NewEngine(store, "BH", zerolog.Nop())
	engine.Reconcile(context.Background(), "platinumlist", []db.EventRecord{{SourceEventID: "x", Country: "AE", EndDate: "2020-01-01", Category: "music"}})

	if _, err := engine.Cleanup(context.Background(), "platinumlist", "2025-01-01"); err == nil {
		t.Fatalf("expected delete error to surface")
	}
}
