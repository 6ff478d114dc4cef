package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "sync", "run-once":
		return runSync(args[1:])
	case "classify":
		return runClassify(args[1:])
	case "taxonomy":
		return runTaxonomy(args[1:])
	case "briefs":
		return runBriefs(args[1:])
	case "stats":
		return runStats(args[1:])
	case "hash-secret":
		return runHashSecret(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "eventsync CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  eventsync <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health       Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  sync         Fetch, classify and reconcile upstream listings once")
	fmt.Fprintln(os.Stderr, "  run-once     Alias for sync")
	fmt.Fprintln(os.Stderr, "  classify     Classify one listing or a saved upstream page offline")
	fmt.Fprintln(os.Stderr, "  taxonomy     Validate and summarize classification tables")
	fmt.Fprintln(os.Stderr, "  briefs       Prepare content briefs for upcoming events")
	fmt.Fprintln(os.Stderr, "  stats        Show stored events per country and recent sync runs")
	fmt.Fprintln(os.Stderr, "  hash-secret  Print a bcrypt hash for CRON_SECRET_BCRYPT")
	fmt.Fprintln(os.Stderr, "  serve        Start the trigger and read API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"eventsync <command> -h\" for command-specific flags.")
}
