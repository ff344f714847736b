package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"receiptai/internal/domain"
	"receiptai/internal/service"
)

// MockModelService is a mock implementation of service.ModelService.
type MockModelService struct {
	mock.Mock
}

func (m *MockModelService) List(ctx context.Context, limit int) ([]domain.ModelVersion, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ModelVersion), args.Error(1)
}

func (m *MockModelService) Refresh(ctx context.Context) (*service.ModelInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ModelInfo), args.Error(1)
}

func (m *MockModelService) Current(ctx context.Context) (*service.ModelInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ModelInfo), args.Error(1)
}
