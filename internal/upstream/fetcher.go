package upstream

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultPageSize  = 50
	DefaultMaxPages  = 20
	DefaultPageDelay = 300 * time.Millisecond
)

// PageSource returns one page of listings.
type PageSource interface {
	FetchPage(ctx context.Context, pageNumber, perPage int) ([]Listing, error)
}

// HomeMatcher decides whether a listing belongs to the home region.
type HomeMatcher interface {
	IsHome(listing Listing) bool
}

// HomeMatcherFunc adapts a function to HomeMatcher.
type HomeMatcherFunc func(Listing) bool

func (f HomeMatcherFunc) IsHome(listing Listing) bool { return f(listing) }

// FetchOptions bounds a pagination walk.
type FetchOptions struct {
	PageSize  int
	MaxPages  int
	PageDelay time.Duration
}

// StopReason says why pagination ended.
type StopReason string

const (
	StopShortPage StopReason = "short_page"
	StopMaxPages  StopReason = "max_pages"
	StopPageError StopReason = "page_error"
	StopCanceled  StopReason = "canceled"
)

// FetchStats counts what one walk saw and dropped.
type FetchStats struct {
	Pages             int
	Received          int
	Kept              int
	SkippedHome       int
	SkippedAttraction int
	SkippedSoldOut    int
	StopReason        StopReason
	PageError         string
}

// Fetcher walks the provider pages sequentially.
type Fetcher struct {
	source PageSource
	home   HomeMatcher
	opts   FetchOptions
	logger zerolog.Logger
}

func NewFetcher(source PageSource, home HomeMatcher, opts FetchOptions, logger zerolog.Logger) *Fetcher {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.PageDelay < 0 {
		opts.PageDelay = 0
	}
	return &Fetcher{source: source, home: home, opts: opts, logger: logger}
}

// FetchAll collects in-scope listings from pages 1..MaxPages. A failed page
// ends the walk and the listings gathered so far are returned.
func (f *Fetcher) FetchAll(ctx context.Context) ([]Listing, FetchStats) {
	var stats FetchStats
	kept := make([]Listing, 0, f.opts.PageSize)

	for pageNumber := 1; pageNumber <= f.opts.MaxPages; pageNumber++ {
		if pageNumber > 1 && f.opts.PageDelay > 0 {
			if err := sleep(ctx, f.opts.PageDelay); err != nil {
				stats.StopReason = StopCanceled
				stats.Kept = len(kept)
				return kept, stats
			}
		}

		listings, err := f.source.FetchPage(ctx, pageNumber, f.opts.PageSize)
		if err != nil {
			stats.StopReason = StopPageError
			stats.PageError = err.Error()
			if ctx.Err() != nil {
				stats.StopReason = StopCanceled
			}
			f.logger.Warn().
				Err(err).
				Int("page", pageNumber).
				Int("kept", len(kept)).
				Msg("stopping pagination after failed page")
			stats.Kept = len(kept)
			return kept, stats
		}

		stats.Pages++
		stats.Received += len(listings)
		for _, listing := range listings {
			switch {
			case listing.IsAttraction:
				stats.SkippedAttraction++
			case listing.SoldOut:
				stats.SkippedSoldOut++
			case f.home != nil && f.home.IsHome(listing):
				stats.SkippedHome++
			default:
				kept = append(kept, listing)
			}
		}

		f.logger.Debug().
			Int("page", pageNumber).
			Int("received", len(listings)).
			Int("kept_total", len(kept)).
			Msg("fetched upstream page")

		if len(listings) < f.opts.PageSize {
			stats.StopReason = StopShortPage
			stats.Kept = len(kept)
			return kept, stats
		}
	}

	stats.StopReason = StopMaxPages
	stats.Kept = len(kept)
	return kept, stats
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
