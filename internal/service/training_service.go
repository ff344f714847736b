package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"receiptai/internal/classifier"
	"receiptai/internal/domain"
	"receiptai/internal/modelstore"
	"receiptai/internal/port"
	"receiptai/internal/recordstore"
)

// Training outcomes that are not errors.
const (
	ReasonNotEnoughSamples = "not_enough_samples"
	ReasonTrainingSkipped  = "training_skipped"
)

// ModelStore loads and publishes model versions.
type ModelStore interface {
	Load(ctx context.Context, task string) (*modelstore.Loaded, error)
	Save(ctx context.Context, task, name string, m *classifier.Model, metrics map[string]any) (*modelstore.SaveResult, error)
	List(ctx context.Context, task string, limit int) ([]domain.ModelVersion, error)
}

// ModelRefresher swaps a newly published version into the serving cache.
type ModelRefresher interface {
	Refresh(ctx context.Context) (*modelstore.Loaded, error)
}

// TrainInput is the DTO for train requests. Since is an RFC 3339 timestamp;
// feedback created before it is ignored. MinSamples nil selects the
// configured minimum.
type TrainInput struct {
	Since      string `json:"since"`
	MinSamples *int   `json:"min_samples" binding:"omitempty,min=0"`
}

// TrainResult reports one training run. When OK is false, Reason says why
// nothing was published.
type TrainResult struct {
	OK           bool           `json:"ok"`
	Reason       string         `json:"reason,omitempty"`
	Collected    int            `json:"collected"`
	ModelVersion string         `json:"model_version,omitempty"`
	ModelID      string         `json:"model_id,omitempty"`
	Metrics      map[string]any `json:"metrics,omitempty"`
}

// TrainingConfig holds the settings of training runs.
type TrainingConfig struct {
	Task       string
	MinSamples int
	PageSize   int
	Options    classifier.TrainOptions
}

// TrainingService defines the online training contract.
type TrainingService interface {
	Train(ctx context.Context, input TrainInput) (*TrainResult, error)
}

type trainingService struct {
	records port.RecordStore
	models  ModelStore
	cache   ModelRefresher
	cfg     TrainingConfig
	log     *zap.Logger
}

// NewTrainingService creates a new TrainingService implementation. cache may
// be nil when no process serves predictions.
func NewTrainingService(
	records port.RecordStore,
	models ModelStore,
	cache ModelRefresher,
	cfg TrainingConfig,
	logger *zap.Logger,
) TrainingService {
	if cfg.Task == "" {
		cfg.Task = domain.DefaultTask
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &trainingService{records: records, models: models, cache: cache, cfg: cfg, log: logger}
}

// Train collects feedback samples, updates the latest model with them and
// publishes the result as the new latest version.
func (s *trainingService) Train(ctx context.Context, input TrainInput) (*TrainResult, error) {
	since, err := ParseSince(input.Since)
	if err != nil {
		return nil, err
	}
	minSamples := s.cfg.MinSamples
	if input.MinSamples != nil {
		minSamples = *input.MinSamples
	}
	if minSamples < 0 {
		return nil, fmt.Errorf("min_samples must be >= 0: %w", domain.ErrInvalidInput)
	}

	samples, err := s.collect(ctx, since)
	if err != nil {
		return nil, err
	}
	if len(samples) < minSamples {
		s.log.Info("trainingService.Train: not enough samples",
			zap.Int("collected", len(samples)), zap.Int("min_samples", minSamples))
		return &TrainResult{Reason: ReasonNotEnoughSamples, Collected: len(samples)}, nil
	}

	loaded, err := s.models.Load(ctx, s.cfg.Task)
	if err != nil {
		return nil, fmt.Errorf("loading model: %w", err)
	}
	old, err := loaded.Require()
	if err != nil {
		return nil, fmt.Errorf("loading model: %w", err)
	}

	model, metrics := classifier.PartialTrain(old, samples, s.cfg.Options)
	if metrics.Skipped || model == nil {
		return &TrainResult{Reason: ReasonTrainingSkipped, Collected: len(samples)}, nil
	}

	metricsMap := metrics.Map()
	saved, err := s.models.Save(ctx, s.cfg.Task, "", model, metricsMap)
	if err != nil {
		return nil, fmt.Errorf("saving model: %w", err)
	}

	if s.cache != nil {
		if _, err := s.cache.Refresh(ctx); err != nil {
			s.log.Warn("trainingService.Train: cache refresh failed",
				zap.String("model_id", saved.Version.ID), zap.Error(err))
		}
	}

	s.log.Info("trainingService.Train: published model",
		zap.String("model_id", saved.Version.ID),
		zap.String("model_version", saved.Version.Name),
		zap.Int("samples", len(samples)),
		zap.Int("demoted", saved.Demoted),
		zap.Int("demotion_failures", saved.DemotionFailures))
	return &TrainResult{
		OK:           true,
		Collected:    len(samples),
		ModelVersion: saved.Version.Name,
		ModelID:      saved.Version.ID,
		Metrics:      metricsMap,
	}, nil
}

// collect pages through Feedback oldest first. A failed page after at least
// one successful page ends the scan and training proceeds on what was read.
func (s *trainingService) collect(ctx context.Context, since time.Time) ([]classifier.Sample, error) {
	var samples []classifier.Sample
	cursor := ""
	pages := 0
	for {
		page, err := s.records.Search(ctx, domain.TypeFeedback, port.SearchQuery{
			Limit:     s.cfg.PageSize,
			Cursor:    cursor,
			SortField: recordstore.SortCreatedDate,
		})
		if err != nil {
			if pages == 0 {
				return nil, fmt.Errorf("fetching feedback: %w", err)
			}
			s.log.Error("trainingService.collect: feedback fetch failed",
				zap.Int("pages", pages), zap.Error(err))
			break
		}
		pages++
		for i := range page.Results {
			rec := &page.Results[i]
			if !since.IsZero() && !rec.CreatedAt.IsZero() && rec.CreatedAt.Before(since) {
				continue
			}
			samples = append(samples, SampleFromFeedback(toFeedback(rec)))
		}
		if page.Cursor == "" || len(page.Results) == 0 {
			break
		}
		cursor = page.Cursor
	}
	return samples, nil
}

// SampleFromFeedback builds a training sample from a correction. The text is
// the receipt's raw text, or the corrected category when none was recorded.
func SampleFromFeedback(fb domain.Feedback) classifier.Sample {
	text := fb.RawText
	if text == "" {
		text = fb.CategoryCorrect
	}
	label := fb.CategoryCorrect
	if label == "" {
		label = domain.CategoryUncategorized
	}
	return classifier.Sample{
		Text:    text,
		Vendor:  fb.VendorCorrect,
		Amount:  fb.TotalCorrect,
		Payment: fb.PaymentMethod,
		Label:   label,
	}
}

// ParseSince parses an optional RFC 3339 timestamp. A trailing Z or an
// explicit offset are both accepted; a bare date means midnight UTC.
func ParseSince(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid since timestamp %q: %w", raw, domain.ErrInvalidInput)
}
