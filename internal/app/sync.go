package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shareef6907/BahrainNights-sub013/internal/cli"
)

func runSync(args []string) int {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env")
	timeout := fs.Duration("timeout", 5*time.Minute, "Overall sync timeout")
	failOnErrors := fs.Bool("fail-on-errors", false, "Exit 1 when any record failed to write")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *timeout <= 0 {
		fmt.Fprintln(os.Stderr, "--timeout must be > 0")
		return 2
	}

	cfg, logger, code := loadRuntime(envLoader)
	if code != 0 {
		return code
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	pool, err := connect(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("sync failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	service, err := newSyncService(cfg, pool, logger)
	if err != nil {
		logger.Error().Err(err).Msg("sync setup failed")
		fmt.Fprintf(os.Stderr, "Sync setup failed: %v\n", err)
		return 1
	}

	summary, err := service.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("sync run failed")
		fmt.Fprintf(os.Stderr, "Sync failed: %v\n", err)
		return 1
	}

	if err := printJSON(summary); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode summary: %v\n", err)
		return 1
	}

	if *failOnErrors && summary.ErrorCount > 0 {
		return 1
	}
	return 0
}
