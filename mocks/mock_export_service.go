package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"receiptai/internal/service"
)

// MockExportService is a mock implementation of service.ExportService.
type MockExportService struct {
	mock.Mock
}

func (m *MockExportService) Export(ctx context.Context, input service.ExportInput, w io.Writer) (int, error) {
	args := m.Called(ctx, input, w)
	return args.Int(0), args.Error(1)
}
