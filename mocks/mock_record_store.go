package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"receiptai/internal/port"
)

// MockRecordStore is a mock implementation of port.RecordStore.
type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) Create(ctx context.Context, recordType string, fields map[string]any) (*port.Record, error) {
	args := m.Called(ctx, recordType, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.Record), args.Error(1)
}

func (m *MockRecordStore) Update(ctx context.Context, recordType, id string, fields map[string]any) (*port.Record, error) {
	args := m.Called(ctx, recordType, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.Record), args.Error(1)
}

func (m *MockRecordStore) Get(ctx context.Context, recordType, id string) (*port.Record, error) {
	args := m.Called(ctx, recordType, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.Record), args.Error(1)
}

func (m *MockRecordStore) Search(ctx context.Context, recordType string, query port.SearchQuery) (*port.SearchPage, error) {
	args := m.Called(ctx, recordType, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.SearchPage), args.Error(1)
}
