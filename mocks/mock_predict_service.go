package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"receiptai/internal/service"
)

// MockPredictService is a mock implementation of service.PredictService.
type MockPredictService struct {
	mock.Mock
}

func (m *MockPredictService) Predict(ctx context.Context, input service.PredictInput) (*service.PredictResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PredictResult), args.Error(1)
}

func (m *MockPredictService) Extract(ctx context.Context, input service.ExtractInput) (*service.PredictResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PredictResult), args.Error(1)
}
