package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shareef6907/BahrainNights-sub013/internal/auth"
	"github.com/shareef6907/BahrainNights-sub013/internal/cli"
	"github.com/shareef6907/BahrainNights-sub013/internal/config"
	"github.com/shareef6907/BahrainNights-sub013/internal/httpapi"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env")
	host := fs.String("host", "0.0.0.0", "Host interface to bind")
	port := fs.Int("port", 8080, "HTTP port")
	readTimeout := fs.Duration("read-timeout", 10*time.Second, "HTTP read timeout")
	syncTimeout := fs.Duration("sync-timeout", 5*time.Minute, "Timeout for one triggered sync")
	shutdownTimeout := fs.Duration("shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *port <= 0 || *port > 65535 {
		fmt.Fprintln(os.Stderr, "--port must be between 1 and 65535")
		return 2
	}

	cfg, logger, code := loadRuntime(envLoader)
	if code != 0 {
		return code
	}
	for _, warning := range cronAuthWarnings(cfg) {
		logger.Warn().Str("cron_header", cfg.CronHeader).Msg(warning)
	}

	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()

	pool, err := connect(dbCtx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("serve failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	service, err := newSyncService(cfg, pool, logger)
	if err != nil {
		logger.Error().Err(err).Msg("serve setup failed")
		fmt.Fprintf(os.Stderr, "Sync setup failed: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		cancel()
	}()

	authorizer := auth.NewCronAuthorizer(cfg.CronHeader, cfg.CronSecret, cfg.CronSecretBcrypt)
	srv := httpapi.NewServer(pool, service, authorizer, logger, httpapi.Options{
		Host:               *host,
		Port:               *port,
		ReadTimeout:        *readTimeout,
		SyncTimeout:        *syncTimeout,
		ShutdownTimeout:    *shutdownTimeout,
		SourceName:         cfg.SourceName,
		CORSAllowedOrigins: cfg.CORSAllowedOriginsList(),
	})

	if err := srv.Start(ctx); err != nil {
		logger.Error().Err(err).Str("host", *host).Int("port", *port).Msg("server failed")
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		return 1
	}

	return 0
}

// cronAuthWarnings describes how the trigger endpoint can be reached with
// the given config.
func cronAuthWarnings(cfg *config.Config) []string {
	header := strings.TrimSpace(cfg.CronHeader)
	if !cfg.HasCronSecret() {
		return []string{"no CRON_SECRET configured; any request carrying the scheduler header can trigger syncs"}
	}
	if header != "" {
		return []string{"scheduler header authorizes triggers without the bearer secret; strip it from external requests at the edge"}
	}
	return nil
}
