// Package content prepares stored events for long-form write-ups. It reads
// events and writes only to content_briefs.
package content

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/shareef6907/BahrainNights-sub013/internal/db"
	"github.com/shareef6907/BahrainNights-sub013/internal/globaltime"
	"github.com/shareef6907/BahrainNights-sub013/internal/location"
	"github.com/shareef6907/BahrainNights-sub013/internal/reader"
)

const (
	shortDescriptionChars = 200
	maxSourceTextChars    = 4000
)

type Store interface {
	ListBriefCandidates(ctx context.Context, sourceName, day string, limit int) ([]db.EventRecord, error)
	InsertContentBrief(ctx context.Context, b db.ContentBrief) (bool, error)
}

// PageReader fetches booking page text to enrich thin descriptions.
type PageReader interface {
	PageText(ctx context.Context, pageURL string) (string, error)
}

// Brief is the material handed to the writer for one event.
type Brief struct {
	EventID    int64  `json:"event_id"`
	Title      string `json:"title"`
	City       string `json:"city"`
	Country    string `json:"country"`
	SourceText string `json:"source_text"`
}

type PrepareResult struct {
	Considered int      `json:"considered"`
	Created    int      `json:"created"`
	Briefs     []Brief  `json:"briefs"`
	Errors     []string `json:"errors"`
}

type Service struct {
	store      Store
	extractor  *location.Extractor
	pages      PageReader
	sourceName string
	homeTZ     *time.Location
	logger     zerolog.Logger
}

// NewService builds the preparer. pages may be nil to skip page enrichment.
func NewService(store Store, extractor *location.Extractor, pages PageReader, sourceName string, homeTZ *time.Location, logger zerolog.Logger) *Service {
	if homeTZ == nil {
		homeTZ = time.UTC
	}
	return &Service{
		store:      store,
		extractor:  extractor,
		pages:      pages,
		sourceName: strings.TrimSpace(sourceName),
		homeTZ:     homeTZ,
		logger:     logger,
	}
}

// Prepare selects up to limit unprocessed active future events, resolves
// their location and records a brief for each.
func (s *Service) Prepare(ctx context.Context, limit int) (PrepareResult, error) {
	if s == nil || s.store == nil || s.extractor == nil {
		return PrepareResult{}, fmt.Errorf("content service is not initialized")
	}

	candidates, err := s.store.ListBriefCandidates(ctx, s.sourceName, globaltime.Today(s.homeTZ), limit)
	if err != nil {
		return PrepareResult{}, fmt.Errorf("list brief candidates: %w", err)
	}

	result := PrepareResult{
		Considered: len(candidates),
		Briefs:     make([]Brief, 0, len(candidates)),
		Errors:     []string{},
	}
	for _, event := range candidates {
		text := s.sourceText(ctx, event)
		city, country := s.extractor.Extract(text, event.BookingURL).Display()

		inserted, err := s.store.InsertContentBrief(ctx, db.ContentBrief{
			EventID:    event.ID,
			City:       city,
			Country:    country,
			SourceText: text,
			Status:     db.BriefStatusPending,
			CreatedAt:  globaltime.UTC(),
		})
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("event %d: %v", event.ID, err))
			s.logger.Warn().Err(err).Int64("event_id", event.ID).Msg("content brief insert failed")
			continue
		}
		if !inserted {
			continue
		}
		result.Created++
		result.Briefs = append(result.Briefs, Brief{
			EventID:    event.ID,
			Title:      event.Title,
			City:       city,
			Country:    country,
			SourceText: text,
		})
	}

	s.logger.Info().
		Int("considered", result.Considered).
		Int("created", result.Created).
		Int("errors", len(result.Errors)).
		Msg("content briefs prepared")
	return result, nil
}

func (s *Service) sourceText(ctx context.Context, event db.EventRecord) string {
	parts := []string{event.Title, event.VenueName}
	if event.City != nil {
		parts = append(parts, *event.City)
	}
	parts = append(parts, event.Description)

	if s.pages != nil && len([]rune(event.Description)) < shortDescriptionChars && event.BookingURL != "" {
		page, err := s.pages.PageText(ctx, event.BookingURL)
		if err != nil {
			s.logger.Debug().Err(err).Int64("event_id", event.ID).Msg("booking page text unavailable")
		} else {
			parts = append(parts, page)
		}
	}

	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return reader.Truncate(strings.Join(kept, "\n\n"), maxSourceTextChars)
}
