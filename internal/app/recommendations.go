package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"stride.fit/curator/internal/cli"
)

func runRecommendations(args []string) int {
	fs := flag.NewFlagSet("recommendations", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	status := fs.String("status", "", "Filter by status: pending, approved, rejected or applied (empty = all)")
	limit := fs.Int("limit", 50, "Maximum recommendations to list")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *limit <= 0 {
		fmt.Fprintln(os.Stderr, "--limit must be > 0")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}

	statusFilter := strings.ToLower(strings.TrimSpace(*status))
	switch statusFilter {
	case "", "pending", "approved", "rejected", "applied":
	default:
		fmt.Fprintln(os.Stderr, "--status must be pending, approved, rejected or applied")
		return 2
	}

	ctx, cancel, pool, _, err := connectReadPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	recommendations, err := pool.ListRecommendations(ctx, statusFilter, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list recommendations: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(recommendations); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode recommendations: %v\n", err)
			return 1
		}
		return 0
	}

	rows := make([][]string, 0, len(recommendations))
	for _, rec := range recommendations {
		rows = append(rows, []string{
			fmt.Sprintf("%d", rec.RecommendationID),
			truncateForTable(rec.RecommendationUUID, 36),
			fmt.Sprintf("%d", rec.KeepEventID),
			fmt.Sprintf("%d", rec.DuplicateEventID),
			fmt.Sprintf("%.3f", rec.Confidence),
			rec.Status,
			formatUTCTimestamp(rec.CreatedAt),
		})
	}
	headers := []string{"ID", "UUID", "KEEP", "DUPLICATE", "CONFIDENCE", "STATUS", "CREATED"}
	if err := writeTable(headers, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render recommendations: %v\n", err)
		return 1
	}
	fmt.Printf("%d recommendation(s)\n", len(recommendations))
	return 0
}
