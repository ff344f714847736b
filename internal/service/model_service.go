package service

import (
	"context"
	"fmt"

	"receiptai/internal/domain"
	"receiptai/internal/modelstore"
)

// ModelInfo describes the version currently served by predictions.
type ModelInfo struct {
	Loaded  bool                 `json:"loaded"`
	Version *domain.ModelVersion `json:"version,omitempty"`
	Classes []string             `json:"classes,omitempty"`
}

// ModelService defines the model administration contract.
type ModelService interface {
	List(ctx context.Context, limit int) ([]domain.ModelVersion, error)
	Refresh(ctx context.Context) (*ModelInfo, error)
	Current(ctx context.Context) (*ModelInfo, error)
}

// ServingCache is the cache predictions read from.
type ServingCache interface {
	LatestModel
	ModelRefresher
}

type modelService struct {
	models ModelStore
	cache  ServingCache
	task   string
}

// NewModelService creates a new ModelService implementation.
func NewModelService(models ModelStore, cache ServingCache, task string) ModelService {
	if task == "" {
		task = domain.DefaultTask
	}
	return &modelService{models: models, cache: cache, task: task}
}

func (s *modelService) List(ctx context.Context, limit int) ([]domain.ModelVersion, error) {
	versions, err := s.models.List(ctx, s.task, limit)
	if err != nil {
		return nil, fmt.Errorf("listing model versions: %w", err)
	}
	return versions, nil
}

func (s *modelService) Refresh(ctx context.Context) (*ModelInfo, error) {
	loaded, err := s.cache.Refresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("refreshing model: %w", err)
	}
	return infoFrom(loaded), nil
}

func (s *modelService) Current(ctx context.Context) (*ModelInfo, error) {
	loaded, err := s.cache.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading model: %w", err)
	}
	return infoFrom(loaded), nil
}

func infoFrom(loaded *modelstore.Loaded) *ModelInfo {
	if loaded == nil {
		return &ModelInfo{}
	}
	info := &ModelInfo{Version: loaded.Version}
	if loaded.Model != nil {
		info.Loaded = true
		info.Classes = loaded.Model.Classes()
	}
	return info
}
