package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/shareef6907/BahrainNights-sub013/internal/cli"
	"github.com/shareef6907/BahrainNights-sub013/internal/db"
)

type statsReport struct {
	Source    string         `json:"source"`
	Countries []countryCount `json:"countries"`
	Total     int64          `json:"total"`
	Runs      []db.SyncRun   `json:"recent_runs"`
}

type countryCount struct {
	Country string `json:"country"`
	Events  int64  `json:"events"`
}

func runStats(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	runs := fs.Int("runs", 5, "Number of recent sync runs to show")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "stats does not accept positional arguments")
		return 2
	}
	if *runs < 1 || *runs > 100 {
		fmt.Fprintln(os.Stderr, "--runs must be between 1 and 100")
		return 2
	}
	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	cfg, logger, code := loadRuntime(envLoader)
	if code != 0 {
		return code
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := connect(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	byCountry, err := pool.CountEventsByCountry(ctx, cfg.SourceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query event counts: %v\n", err)
		return 1
	}
	recent, err := pool.ListSyncRuns(ctx, *runs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query sync runs: %v\n", err)
		return 1
	}

	report := buildStatsReport(cfg.SourceName, byCountry, recent)
	if outputFormat == outputFormatJSON {
		if err := printJSON(report); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	countryRows := make([][]string, 0, len(report.Countries)+1)
	for _, row := range report.Countries {
		countryRows = append(countryRows, []string{row.Country, fmt.Sprintf("%d", row.Events)})
	}
	countryRows = append(countryRows, []string{"TOTAL", fmt.Sprintf("%d", report.Total)})
	if err := writeTable([]string{"country", "events"}, countryRows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render country table: %v\n", err)
		return 1
	}

	fmt.Println()
	runRows := make([][]string, 0, len(report.Runs))
	for _, run := range report.Runs {
		runRows = append(runRows, []string{
			run.StartedAt.UTC().Format(time.RFC3339),
			run.Status,
			fmt.Sprintf("%d", run.Fetched),
			fmt.Sprintf("%d", run.Inserted),
			fmt.Sprintf("%d", run.Updated),
			fmt.Sprintf("%d", run.ErrorCount),
			fmt.Sprintf("%d", run.Cleaned),
		})
	}
	if err := writeTable([]string{"started_at", "status", "fetched", "inserted", "updated", "errors", "cleaned"}, runRows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render run table: %v\n", err)
		return 1
	}
	return 0
}

func buildStatsReport(source string, byCountry map[string]int64, runs []db.SyncRun) statsReport {
	report := statsReport{
		Source:    source,
		Countries: make([]countryCount, 0, len(byCountry)),
		Runs:      runs,
	}
	for country, n := range byCountry {
		report.Countries = append(report.Countries, countryCount{Country: country, Events: n})
		report.Total += n
	}
	sort.Slice(report.Countries, func(i, j int) bool {
		if report.Countries[i].Events != report.Countries[j].Events {
			return report.Countries[i].Events > report.Countries[j].Events
		}
		return report.Countries[i].Country < report.Countries[j].Country
	})
	if report.Runs == nil {
		report.Runs = []db.SyncRun{}
	}
	return report
}
