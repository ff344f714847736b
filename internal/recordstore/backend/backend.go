// Package backend opens the record store selected by configuration.
package backend

import (
	"fmt"

	"go.uber.org/zap"

	"receiptai/internal/config"
	"receiptai/internal/port"
	"receiptai/internal/recordstore/bubble"
	"receiptai/internal/recordstore/memory"
	"receiptai/internal/recordstore/sqlstore"
)

// Store is an opened record store.
type Store interface {
	port.RecordStore
	port.HealthChecker
}

// Open returns the configured store and a function releasing its resources.
// The SQL backend is migrated to the latest schema before use.
func Open(cfg *config.Config, logger *zap.Logger) (Store, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	noop := func() {}

	switch cfg.Store.Backend {
	case config.StoreBubble:
		logger.Info("record store: bubble", zap.String("api_base", cfg.Bubble.APIBase))
		return bubble.NewClient(&cfg.Bubble, cfg.Store.Timeout), noop, nil
	case config.StoreSQL:
		db, err := sqlstore.Open(&cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		if err := sqlstore.Migrate(db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrating record store: %w", err)
		}
		logger.Info("record store: sql", zap.String("driver", cfg.DB.Driver))
		store := sqlstore.New(db, sqlstore.WithMaxFieldLength(cfg.Store.MaxFieldLength))
		return store, func() { db.Close() }, nil
	case config.StoreMemory:
		logger.Warn("record store: memory, data is lost on exit")
		return memory.New(memory.WithMaxFieldLength(cfg.Store.MaxFieldLength)), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
