// Package ocr turns receipt images into raw text. Engines register a factory
// by name and are combined into a FallbackRecognizer in configured order.
package ocr

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"receiptai/internal/config"
	"receiptai/internal/port"
)

// ProviderFactory creates a Recognizer from the OCR config.
type ProviderFactory func(ctx context.Context, cfg *config.OCRConfig) (port.Recognizer, error)

var (
	providersMu sync.RWMutex
	// populated by init() in each engine package
	providers = map[string]ProviderFactory{}
)

func init() {
	RegisterProvider(EngineText, func(context.Context, *config.OCRConfig) (port.Recognizer, error) {
		return NewTextRecognizer(), nil
	})
}

// RegisterProvider registers an engine factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providersMu.Lock()
	defer providersMu.Unlock()
	providers[name] = factory
}

// Providers lists the registered engine names.
func Providers() []string {
	providersMu.RLock()
	defer providersMu.RUnlock()
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewRecognizer creates the named engine.
func NewRecognizer(ctx context.Context, name string, cfg *config.OCRConfig) (port.Recognizer, error) {
	providersMu.RLock()
	factory, ok := providers[name]
	providersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown ocr engine: %s", name)
	}
	return factory(ctx, cfg)
}

// Build creates every configured engine and chains them in order.
func Build(ctx context.Context, cfg *config.OCRConfig, logger *zap.Logger) (*FallbackRecognizer, error) {
	recognizers := make([]port.Recognizer, 0, len(cfg.Engines))
	for _, name := range cfg.Engines {
		r, err := NewRecognizer(ctx, name, cfg)
		if err != nil {
			return nil, fmt.Errorf("creating ocr engine %s: %w", name, err)
		}
		recognizers = append(recognizers, r)
	}
	return NewFallbackRecognizer(recognizers, cfg.Engines, cfg.Cooldown, logger), nil
}
