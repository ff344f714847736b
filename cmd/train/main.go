// Command train runs one online training pass over collected feedback and
// saves the result as the latest model version.
// Usage: go run ./cmd/train [-since 2025-10-01] [-min-samples 10]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"receiptai/internal/classifier"
	"receiptai/internal/config"
	"receiptai/internal/logging"
	"receiptai/internal/modelstore"
	"receiptai/internal/recordstore/backend"
	"receiptai/internal/service"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	since := flag.String("since", "", "only use feedback created at or after this time (RFC3339 or YYYY-MM-DD)")
	minSamples := flag.Int("min-samples", -1, "minimum samples required; negative uses the configured value")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Train.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Train.Timeout)
		defer cancel()
	}

	records, closeStore, err := backend.Open(cfg, logger)
	if err != nil {
		return fmt.Errorf("opening record store: %w", err)
	}
	defer closeStore()

	models := modelstore.New(records,
		modelstore.WithChunkSize(cfg.Model.ChunkSize),
		modelstore.WithLogger(logger))

	// No process serves predictions here, so there is no cache to refresh.
	training := service.NewTrainingService(records, models, nil, service.TrainingConfig{
		Task:       cfg.Model.Task,
		MinSamples: cfg.Train.MinSamples,
		PageSize:   cfg.Train.PageSize,
		Options: classifier.TrainOptions{
			Epochs:          cfg.Train.Epochs,
			Loss:            cfg.Train.Loss,
			RefitVocabulary: cfg.Train.RefitVocabulary,
		},
	}, logger)

	input := service.TrainInput{Since: *since}
	if *minSamples >= 0 {
		input.MinSamples = minSamples
	}
	result, err := training.Train(ctx, input)
	if err != nil {
		return fmt.Errorf("training: %w", err)
	}

	logger.Info("training finished",
		zap.Bool("ok", result.OK),
		zap.String("reason", result.Reason),
		zap.Int("collected", result.Collected),
		zap.String("model_version", result.ModelVersion))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
