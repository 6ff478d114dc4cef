package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shareef6907/BahrainNights-sub013/internal/cli"
	"github.com/shareef6907/BahrainNights-sub013/internal/content"
	"github.com/shareef6907/BahrainNights-sub013/internal/location"
	"github.com/shareef6907/BahrainNights-sub013/internal/reader"
	"github.com/shareef6907/BahrainNights-sub013/internal/timeconv"
)

func runBriefs(args []string) int {
	fs := flag.NewFlagSet("briefs", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env")
	limit := fs.Int("limit", 20, "Maximum events to prepare")
	readPages := fs.Bool("read-pages", true, "Enrich short descriptions with booking page text")
	timeout := fs.Duration("timeout", 2*time.Minute, "Overall timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *limit < 1 || *limit > 500 {
		fmt.Fprintln(os.Stderr, "--limit must be between 1 and 500")
		return 2
	}

	cfg, logger, code := loadRuntime(envLoader)
	if code != 0 {
		return code
	}

	tables, err := loadTables(cfg.TaxonomyFile, cfg.VenueHintRatio)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load taxonomy: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := connect(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("briefs failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	var pages content.PageReader
	if *readPages {
		pages = reader.New(reader.Options{})
	}
	home := tables.Home()
	service := content.NewService(pool, location.NewExtractor(tables), pages, cfg.SourceName, timeconv.Resolve(home.DefaultTimezone, ""), logger)

	result, err := service.Prepare(ctx, *limit)
	if err != nil {
		logger.Error().Err(err).Msg("prepare briefs failed")
		fmt.Fprintf(os.Stderr, "Prepare briefs failed: %v\n", err)
		return 1
	}

	if err := printJSON(result); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode result: %v\n", err)
		return 1
	}
	return 0
}
