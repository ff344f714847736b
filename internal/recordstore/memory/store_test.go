package memory_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receiptai/internal/domain"
	"receiptai/internal/port"
	"receiptai/internal/recordstore"
	"receiptai/internal/recordstore/memory"
	"receiptai/internal/recordstore/storetest"
)

func TestStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) port.RecordStore { return memory.New() })
}

func TestStore_MaxFieldLength(t *testing.T) {
	s := memory.New(memory.WithMaxFieldLength(10))

	_, err := s.Create(context.Background(), "Thing", map[string]any{"a": strings.Repeat("x", 11)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	rec, err := s.Create(context.Background(), "Thing", map[string]any{"a": strings.Repeat("x", 10)})
	require.NoError(t, err)
	_, err = s.Update(context.Background(), "Thing", rec.ID, map[string]any{"a": strings.Repeat("x", 11)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStore_TimestampsIncreaseWithFrozenClock(t *testing.T) {
	frozen := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	s := memory.New(memory.WithClock(func() time.Time { return frozen }))

	a, err := s.Create(context.Background(), "Thing", map[string]any{})
	require.NoError(t, err)
	b, err := s.Create(context.Background(), "Thing", map[string]any{})
	require.NoError(t, err)
	assert.True(t, b.CreatedAt.After(a.CreatedAt))

	page, err := s.Search(context.Background(), "Thing", port.SearchQuery{SortField: recordstore.SortCreatedDate, Descending: true})
	require.NoError(t, err)
	require.Len(t, page.Results, 2)
	assert.Equal(t, b.ID, page.Results[0].ID)
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := memory.New()
	rec, err := s.Create(context.Background(), "Thing", map[string]any{"a": "1"})
	require.NoError(t, err)
	rec.Fields["a"] = "changed"

	got, err := s.Get(context.Background(), "Thing", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "1", got.String("a"))
}

func TestStore_CanceledContext(t *testing.T) {
	s := memory.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Create(ctx, "Thing", map[string]any{})
	assert.ErrorIs(t, err, domain.ErrService)
}
