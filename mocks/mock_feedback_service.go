package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"receiptai/internal/service"
)

// MockFeedbackService is a mock implementation of service.FeedbackService.
type MockFeedbackService struct {
	mock.Mock
}

func (m *MockFeedbackService) Submit(ctx context.Context, input service.FeedbackInput) (*service.FeedbackResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.FeedbackResult), args.Error(1)
}
