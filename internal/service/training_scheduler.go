package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TrainingSchedulerConfig holds settings for the training scheduler.
type TrainingSchedulerConfig struct {
	Interval   time.Duration
	RunTimeout time.Duration
}

// TrainingScheduler retrains the model periodically on feedback received
// since its last successful run.
type TrainingScheduler struct {
	training TrainingService
	cfg      TrainingSchedulerConfig
	log      *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	lastRun time.Time
	wg      sync.WaitGroup
}

// NewTrainingScheduler creates a new TrainingScheduler. since seeds the
// first run; the zero time trains on all feedback.
func NewTrainingScheduler(training TrainingService, cfg TrainingSchedulerConfig, since time.Time, logger *zap.Logger) *TrainingScheduler {
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrainingScheduler{
		training: training,
		cfg:      cfg,
		log:      logger,
		now:      time.Now,
		lastRun:  since,
	}
}

// Start runs the training loop until ctx is canceled. It returns at once when
// the interval is not positive, and otherwise blocks until an in-flight run
// has finished.
func (s *TrainingScheduler) Start(ctx context.Context) {
	if s.cfg.Interval <= 0 {
		s.log.Info("trainingScheduler: disabled")
		return
	}
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.log.Info("trainingScheduler: started", zap.Duration("interval", s.cfg.Interval))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("trainingScheduler: shutting down, waiting for in-flight run")
			s.wg.Wait()
			s.log.Info("trainingScheduler: shutdown complete")
			return
		case <-ticker.C:
			s.wg.Add(1)
			// Runs are sequential; a tick that fires during a long run is
			// dropped by the ticker.
			func() {
				defer s.wg.Done()
				// A fresh context so a run in progress completes during shutdown.
				runCtx, cancel := context.WithTimeout(context.Background(), s.cfg.RunTimeout)
				defer cancel()
				s.RunOnce(runCtx)
			}()
		}
	}
}

// RunOnce trains on feedback created since the last successful run. The
// cutoff only advances when a model was published.
func (s *TrainingScheduler) RunOnce(ctx context.Context) *TrainResult {
	s.mu.Lock()
	since := s.lastRun
	s.mu.Unlock()

	started := s.now().UTC()
	input := TrainInput{}
	if !since.IsZero() {
		input.Since = since.Format(time.RFC3339Nano)
	}

	result, err := s.training.Train(ctx, input)
	if err != nil {
		s.log.Error("trainingScheduler.RunOnce: training failed", zap.Error(err))
		return nil
	}
	if !result.OK {
		s.log.Info("trainingScheduler.RunOnce: nothing published",
			zap.String("reason", result.Reason), zap.Int("collected", result.Collected))
		return result
	}

	s.mu.Lock()
	s.lastRun = started
	s.mu.Unlock()
	s.log.Info("trainingScheduler.RunOnce: model published",
		zap.String("model_version", result.ModelVersion), zap.Int("collected", result.Collected))
	return result
}

// LastRun returns the cutoff of the next run.
func (s *TrainingScheduler) LastRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}
