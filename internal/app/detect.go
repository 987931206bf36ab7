package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"stride.fit/curator/internal/cli"
	"stride.fit/curator/internal/db"
	"stride.fit/curator/internal/dedup"
	"stride.fit/curator/internal/logging"
	"stride.fit/curator/internal/search"
)

func runDetect(args []string) int {
	fs := flag.NewFlagSet("detect", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 2*time.Minute, "Command timeout")
	tuningPath := fs.String("config", "", "Optional detection tuning config JSON file")
	batchSize := fs.Int("batch-size", 0, "Events per batch (0 uses the configured default)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *batchSize < 0 {
		fmt.Fprintln(os.Stderr, "--batch-size must be >= 0")
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	svc, pool, logger, code := buildDetectionService(ctx, envLoader, *tuningPath, *batchSize)
	if code != 0 {
		return code
	}
	defer pool.Close()

	result, err := svc.RunBatch(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("detect failed")
		fmt.Fprintf(os.Stderr, "Detect failed: %v\n", err)
		return 1
	}

	printBatchResult("detect", result)
	if !result.Success() {
		return 1
	}
	return 0
}

func runSweep(args []string) int {
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Minute, "Command timeout")
	tuningPath := fs.String("config", "", "Optional detection tuning config JSON file")
	batchSize := fs.Int("batch-size", 0, "Events per batch (0 uses the configured default)")
	maxBatches := fs.Int("max-batches", 0, "Stop after this many batches even if the sweep is incomplete (0 = unlimited)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *batchSize < 0 {
		fmt.Fprintln(os.Stderr, "--batch-size must be >= 0")
		return 2
	}
	if *maxBatches < 0 {
		fmt.Fprintln(os.Stderr, "--max-batches must be >= 0")
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	svc, pool, logger, code := buildDetectionService(ctx, envLoader, *tuningPath, *batchSize)
	if code != 0 {
		return code
	}
	defer pool.Close()

	total := dedup.BatchResult{}
	batches := 0
	for {
		result, err := svc.RunBatch(ctx)
		if err != nil {
			logger.Error().Err(err).Int("batches", batches).Msg("sweep failed")
			fmt.Fprintf(os.Stderr, "Sweep failed after %d batches: %v\n", batches, err)
			return 1
		}
		batches++
		total.EventsAnalyzed += result.EventsAnalyzed
		total.DuplicatesFound += result.DuplicatesFound
		total.RecommendationsCreated += result.RecommendationsCreated
		total.PairsSkipped += result.PairsSkipped
		total.Errors = append(total.Errors, result.Errors...)

		if result.SweepCompleted {
			total.SweepCompleted = true
			break
		}
		if *maxBatches > 0 && batches >= *maxBatches {
			logger.Info().Int("batches", batches).Msg("sweep stopped at batch limit")
			break
		}
	}

	fmt.Printf("sweep batches=%d completed=%t\n", batches, total.SweepCompleted)
	printBatchResult("sweep", total)
	if !total.Success() {
		return 1
	}
	return 0
}

// buildDetectionService loads the environment, connects the pool and wires
// the detection service. A non-zero exit code means setup failed and the
// caller should return it; the pool is open only when the code is zero.
func buildDetectionService(
	ctx context.Context,
	envLoader *cli.EnvLoader,
	tuningPath string,
	batchSize int,
) (*dedup.Service, *db.Pool, zerolog.Logger, int) {
	var noLogger zerolog.Logger

	cfg, err := loadConfig(envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return nil, nil, noLogger, 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return nil, nil, noLogger, 1
	}

	detection, err := detectionConfigFrom(cfg, tuningPath)
	if err != nil {
		logger.Error().Err(err).Msg("invalid detection tuning")
		fmt.Fprintf(os.Stderr, "Invalid detection tuning: %v\n", err)
		return nil, nil, noLogger, 2
	}
	if batchSize > 0 {
		detection.BatchSize = batchSize
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return nil, nil, noLogger, 1
	}

	// The typed nil check matters: wrapping a nil *search.Client in the
	// interface would defeat the nil index fallback inside the retriever.
	var index dedup.EventIndex
	if client := search.NewClient(cfg, logger); client != nil {
		index = client
	}

	svc := dedup.NewService(pool, pool, pool, index, detection, cfg.AgentID, logger)
	return svc, pool, logger, 0
}

func printBatchResult(label string, result dedup.BatchResult) {
	fmt.Printf(
		"%s analyzed=%d duplicates=%d recommendations=%d skipped=%d completed=%t errors=%d\n",
		label,
		result.EventsAnalyzed,
		result.DuplicatesFound,
		result.RecommendationsCreated,
		result.PairsSkipped,
		result.SweepCompleted,
		len(result.Errors),
	)
	for _, message := range result.Errors {
		fmt.Fprintf(os.Stderr, "error: %s\n", message)
	}
}
