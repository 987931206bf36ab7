package app

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"stride.fit/curator/internal/cli"
	"stride.fit/curator/internal/dedup"
)

func runProgress(args []string) int {
	fs := flag.NewFlagSet("progress", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	reset := fs.Bool("reset", false, "Delete the persisted scan progress so the next detect starts from scratch")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}

	ctx, cancel, pool, cfg, err := connectReadPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	if *reset {
		if err := pool.DeleteState(ctx, cfg.AgentID, dedup.ProgressStateName); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to reset progress: %v\n", err)
			return 1
		}
		fmt.Println("ok: scan progress reset")
		return 0
	}

	raw, found, err := pool.LoadState(ctx, cfg.AgentID, dedup.ProgressStateName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load progress: %v\n", err)
		return 1
	}

	progress := dedup.NewScanProgress()
	if found {
		if err := json.Unmarshal(raw, progress); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to decode progress: %v\n", err)
			return 1
		}
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(progress); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode progress: %v\n", err)
			return 1
		}
		return 0
	}

	rows := [][]string{
		{"cursor", fmt.Sprintf("%d", progress.LastProcessedEventID)},
		{"last full scan", formatUTCTimestampPtr(progress.LastFullScanAt)},
		{"events analyzed", fmt.Sprintf("%d", progress.TotalEventsAnalyzed)},
		{"duplicates found", fmt.Sprintf("%d", progress.TotalDuplicatesFound)},
		{"memoized pairs", fmt.Sprintf("%d", len(progress.AnalyzedPairs))},
	}
	if err := writeTable([]string{"FIELD", "VALUE"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render progress: %v\n", err)
		return 1
	}
	return 0
}
