package backend_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receiptai/internal/config"
	"receiptai/internal/domain"
	"receiptai/internal/recordstore/backend"
)

func TestOpen(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		cfg := &config.Config{Store: config.StoreConfig{Backend: config.StoreMemory}}
		store, closeFn, err := backend.Open(cfg, nil)
		require.NoError(t, err)
		defer closeFn()

		assert.NoError(t, store.Ping(context.Background()))
		rec, err := store.Create(context.Background(), domain.TypeReceipt, map[string]any{"doc_id": "r_1"})
		require.NoError(t, err)
		assert.NotEmpty(t, rec.ID)
	})

	t.Run("sqlite_is_migrated", func(t *testing.T) {
		cfg := &config.Config{
			Store: config.StoreConfig{Backend: config.StoreSQL},
			DB:    config.DBConfig{Driver: "sqlite", Path: ":memory:"},
		}
		store, closeFn, err := backend.Open(cfg, nil)
		require.NoError(t, err)
		defer closeFn()

		_, err = store.Create(context.Background(), domain.TypeFeedback, map[string]any{"reason": "x"})
		assert.NoError(t, err)
	})

	t.Run("unknown_backend", func(t *testing.T) {
		cfg := &config.Config{Store: config.StoreConfig{Backend: "redis"}}
		_, _, err := backend.Open(cfg, nil)
		assert.Error(t, err)
	})
}
