package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"receiptai/internal/service"
)

// MockTrainingService is a mock implementation of service.TrainingService.
type MockTrainingService struct {
	mock.Mock
}

func (m *MockTrainingService) Train(ctx context.Context, input service.TrainInput) (*service.TrainResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TrainResult), args.Error(1)
}
