package app

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/shareef6907/BahrainNights-sub013/internal/classify"
	"github.com/shareef6907/BahrainNights-sub013/internal/cli"
	"github.com/shareef6907/BahrainNights-sub013/internal/config"
	"github.com/shareef6907/BahrainNights-sub013/internal/db"
	"github.com/shareef6907/BahrainNights-sub013/internal/logging"
	"github.com/shareef6907/BahrainNights-sub013/internal/pipeline"
	"github.com/shareef6907/BahrainNights-sub013/internal/taxonomy"
	"github.com/shareef6907/BahrainNights-sub013/internal/textnorm"
	"github.com/shareef6907/BahrainNights-sub013/internal/upstream"
)

// loadRuntime applies .env files, loads config and builds the logger. A
// non-zero code means the command should exit with it.
func loadRuntime(envLoader *cli.EnvLoader) (*config.Config, zerolog.Logger, int) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, zerolog.Nop(), 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return nil, zerolog.Nop(), 1
	}
	return cfg, logger, 0
}

func loadTables(path string, venueHintRatio float64) (*taxonomy.Tables, error) {
	tables, err := taxonomy.Load(path)
	if err != nil {
		return nil, err
	}
	tuned, err := tables.WithVenueHintRatio(venueHintRatio)
	if err != nil {
		return nil, fmt.Errorf("apply VENUE_HINT_RATIO: %w", err)
	}
	return tuned, nil
}

// newSyncService wires the upstream client, fetcher, normalizer and pool
// into one pipeline service.
func newSyncService(cfg *config.Config, pool *db.Pool, logger zerolog.Logger) (*pipeline.Service, error) {
	tables, err := loadTables(cfg.TaxonomyFile, cfg.VenueHintRatio)
	if err != nil {
		return nil, err
	}
	classifier := classify.New(tables)

	client, err := upstream.NewClient(upstream.ClientOptions{
		BaseURL:      cfg.UpstreamBaseURL,
		APIKey:       cfg.UpstreamAPIKey,
		APIKeyHeader: cfg.UpstreamAPIKeyHeader,
		PartnerRef:   cfg.PartnerRef,
		Timeout:      cfg.UpstreamTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create upstream client: %w", err)
	}
	fetcher := upstream.NewFetcher(client, pipeline.HomeMatcher(classifier), upstream.FetchOptions{
		PageSize:  cfg.PageSize,
		MaxPages:  cfg.MaxPages,
		PageDelay: cfg.PageDelay,
	}, logger)

	affiliate, err := textnorm.NewAffiliateRewriter(cfg.AffiliateBaseURL, cfg.PartnerRef)
	if err != nil {
		return nil, fmt.Errorf("create affiliate rewriter: %w", err)
	}
	normalizer := pipeline.NewNormalizer(classifier, affiliate, cfg.SourceName)
	return pipeline.NewService(fetcher, pool, normalizer, cfg.SourceName, logger), nil
}

func connect(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*db.Pool, error) {
	pool, err := db.NewPool(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return pool, nil
}
