package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "receiptai/docs"
	"receiptai/internal/classifier"
	"receiptai/internal/config"
	"receiptai/internal/handler"
	"receiptai/internal/imagesource"
	"receiptai/internal/logging"
	"receiptai/internal/middleware"
	"receiptai/internal/modelstore"
	"receiptai/internal/ocr"
	_ "receiptai/internal/ocr/azure"
	_ "receiptai/internal/ocr/documentai"
	_ "receiptai/internal/ocr/tesseract"
	"receiptai/internal/port"
	"receiptai/internal/recordstore/backend"
	"receiptai/internal/router"
	"receiptai/internal/service"
	s3storage "receiptai/internal/storage/s3"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	records, closeStore, err := backend.Open(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open record store: %w", err)
	}
	defer closeStore()

	// Initialize storage
	var objects port.ObjectStorage
	if cfg.S3.Enabled() {
		objects, err = s3storage.NewS3Client(ctx, &cfg.S3, cfg.OCR.MaxImageBytes)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 client: %w", err)
		}
	}

	recognizer, err := ocr.Build(ctx, &cfg.OCR, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OCR: %w", err)
	}

	models := modelstore.New(records,
		modelstore.WithChunkSize(cfg.Model.ChunkSize),
		modelstore.WithLogger(logger))
	cache := modelstore.NewLatestCache(models, cfg.Model.Task, modelstore.WithMaxAge(cfg.Model.CacheTTL))

	// Initialize services
	predictCfg := service.PredictConfig{
		Language: cfg.OCR.Language,
		Location: cfg.Server.Location(),
	}
	var archive port.ObjectStorage
	if cfg.S3.ArchiveUploads && objects != nil {
		archive = objects
		predictCfg.ArchiveBucket = cfg.S3.Bucket
	}
	predictSvc := service.NewPredictService(
		imagesource.NewResolver(objects, &cfg.OCR),
		recognizer, cache, records, archive, predictCfg, logger)
	feedbackSvc := service.NewFeedbackService(records, logger)
	trainingSvc := service.NewTrainingService(records, models, cache, service.TrainingConfig{
		Task:       cfg.Model.Task,
		MinSamples: cfg.Train.MinSamples,
		PageSize:   cfg.Train.PageSize,
		Options: classifier.TrainOptions{
			Epochs:          cfg.Train.Epochs,
			Loss:            cfg.Train.Loss,
			RefitVocabulary: cfg.Train.RefitVocabulary,
		},
	}, logger)
	modelSvc := service.NewModelService(models, cache, cfg.Model.Task)
	exportSvc := service.NewExportService(records, logger)
	authSvc := service.NewAuthService(cfg.Auth)

	// Initialize handlers
	errs := handler.NewErrorResponder(logger)
	handlers := router.Handlers{
		Predict:  handler.NewPredictHandler(predictSvc, errs),
		Feedback: handler.NewFeedbackHandler(feedbackSvc, errs),
		Train:    handler.NewTrainHandler(trainingSvc, errs),
		Model:    handler.NewModelHandler(modelSvc, errs),
		Export:   handler.NewExportHandler(exportSvc, errs),
		Auth:     handler.NewAuthHandler(authSvc, errs),
		Health:   handler.NewHealthHandler(records),
	}

	idempotency := middleware.NewIdempotencyStore(cfg.Security.IdempotencyTTL)
	r := router.Setup(authSvc, handlers, router.Options{
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		SignatureSecret: cfg.Security.SignatureSecret,
		Idempotency:     idempotency,
		EnableSwagger:   cfg.Server.Environment != config.EnvProduction,
	}, logger)

	// Warm the model cache; an untrained task serves the fallback category.
	if loaded, err := cache.Get(ctx); err != nil {
		logger.Warn("model cache warmup failed", zap.Error(err))
	} else if loaded != nil && loaded.Version != nil {
		logger.Info("model loaded", zap.String("version", loaded.Version.Name))
	}

	var wg sync.WaitGroup
	scheduler := service.NewTrainingScheduler(trainingSvc, service.TrainingSchedulerConfig{
		Interval:   cfg.Train.ScheduleInterval,
		RunTimeout: cfg.Train.Timeout,
	}, time.Time{}, logger)
	wg.Add(2)
	go func() {
		defer wg.Done()
		scheduler.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		sweepIdempotency(ctx, idempotency, cfg.Security.IdempotencyTTL, logger)
	}()

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		stop()
		wg.Wait()
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	wg.Wait()
	return nil
}

// sweepIdempotency drops expired idempotency entries every ttl until ctx ends.
func sweepIdempotency(ctx context.Context, store *middleware.IdempotencyStore, ttl time.Duration, logger *zap.Logger) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Sweep(); n > 0 {
				logger.Debug("idempotency sweep", zap.Int("expired", n))
			}
		}
	}
}
