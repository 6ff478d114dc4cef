// Package metrics exposes pipeline and HTTP counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Sync metrics
	SyncRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventsync_runs_total",
			Help: "Total number of sync runs by final status",
		},
		[]string{"status"},
	)

	SyncRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eventsync_run_duration_seconds",
			Help:    "Wall-clock duration of sync runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	ListingsFetched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eventsync_listings_fetched_total",
			Help: "Listings kept by the fetcher after scope filtering",
		},
	)

	ListingsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventsync_listings_skipped_total",
			Help: "Listings dropped before reconciliation by reason",
		},
		[]string{"reason"},
	)

	EventsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventsync_events_written_total",
			Help: "Event writes by action (inserted, updated, failed)",
		},
		[]string{"action"},
	)

	EventsCleaned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eventsync_events_cleaned_total",
			Help: "Expired events deleted by cleanup",
		},
	)

	CategoryDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventsync_category_decisions_total",
			Help: "Category assignments by deciding stage and category",
		},
		[]string{"stage", "category"},
	)

	LastSuccessfulRun = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventsync_last_success_timestamp_seconds",
			Help: "Unix time of the last completed sync run",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventsync_api_requests_total",
			Help: "Total number of API requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventsync_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func init() {
	prometheus.MustRegister(SyncRunsTotal)
	prometheus.MustRegister(SyncRunDuration)
	prometheus.MustRegister(ListingsFetched)
	prometheus.MustRegister(ListingsSkipped)
	prometheus.MustRegister(EventsWritten)
	prometheus.MustRegister(EventsCleaned)
	prometheus.MustRegister(CategoryDecisions)
	prometheus.MustRegister(LastSuccessfulRun)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures an operation and feeds a histogram.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

func (t *Timer) ObserveDuration(h prometheus.Observer) time.Duration {
	d := t.Duration()
	h.Observe(d.Seconds())
	return d
}
