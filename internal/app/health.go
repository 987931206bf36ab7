package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"stride.fit/curator/internal/cli"
	"stride.fit/curator/internal/db"
	"stride.fit/curator/internal/logging"
	"stride.fit/curator/internal/search"
)

func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Second, "Database ping timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := loadConfig(envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("health check failed")
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		return 1
	}
	defer pool.Close()

	counts, err := pool.CountEventsByStatus(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("event count query failed")
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		return 1
	}

	total := int64(0)
	for _, count := range counts {
		total += count
	}

	logger.Info().
		Dur("timeout", *timeout).
		Int64("events", total).
		Msg("database health check passed")
	fmt.Printf("ok: database ping successful, %d events in catalog\n", total)

	if client := search.NewClient(cfg, logger); client != nil {
		if client.Healthy() {
			fmt.Println("ok: search index reachable")
		} else {
			fmt.Fprintln(os.Stderr, "warning: search index unreachable, detection will use sql retrieval only")
		}
	} else {
		fmt.Println("note: search index not configured")
	}

	return 0
}
