package ocr

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"receiptai/internal/domain"
	"receiptai/internal/port"
)

// DefaultCooldown is how long an engine is skipped after a service failure.
const DefaultCooldown = time.Minute

// cooldown tracks when a failing engine may be tried again.
type cooldown struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = healthy
}

func (c *cooldown) activeUntil(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *cooldown) set(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// FallbackRecognizer validates the document once, then tries engines in
// order. Service failures and timeouts put an engine on cooldown; decode
// failures move on to the next engine without a cooldown.
type FallbackRecognizer struct {
	recognizers []port.Recognizer
	names       []string
	cooldowns   []*cooldown
	period      time.Duration
	log         *zap.Logger
	now         func() time.Time
}

// NewFallbackRecognizer creates a FallbackRecognizer from engines and their
// names. A zero period selects DefaultCooldown.
func NewFallbackRecognizer(recognizers []port.Recognizer, names []string, period time.Duration, logger *zap.Logger) *FallbackRecognizer {
	if period <= 0 {
		period = DefaultCooldown
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cooldowns := make([]*cooldown, len(recognizers))
	for i := range cooldowns {
		cooldowns[i] = &cooldown{}
	}
	return &FallbackRecognizer{
		recognizers: recognizers,
		names:       names,
		cooldowns:   cooldowns,
		period:      period,
		log:         logger,
		now:         time.Now,
	}
}

// SetClock overrides the time source. Tests use it to expire cooldowns.
func (f *FallbackRecognizer) SetClock(now func() time.Time) { f.now = now }

func (f *FallbackRecognizer) Recognize(ctx context.Context, input port.RecognizeInput) (*port.RecognizeOutput, error) {
	prepared, err := Prepare(input)
	if err != nil {
		return nil, err
	}

	now := f.now()
	var lastErr error
	for i, r := range f.recognizers {
		if resetAt, active := f.cooldowns[i].activeUntil(now); active {
			f.log.Debug("ocr.FallbackRecognizer: skipping engine on cooldown",
				zap.String("engine", f.names[i]), zap.Time("until", resetAt))
			continue
		}

		out, err := r.Recognize(ctx, prepared)
		if err == nil {
			if out.Engine == "" {
				out.Engine = f.names[i]
			}
			return out, nil
		}

		f.log.Warn("ocr.FallbackRecognizer: engine failed",
			zap.String("engine", f.names[i]), zap.Error(err))
		lastErr = err

		switch {
		case errors.Is(err, domain.ErrFetch):
			return nil, err
		case errors.Is(err, domain.ErrDecode):
		default:
			f.cooldowns[i].set(now.Add(f.period))
		}
		if ctx.Err() != nil {
			return nil, domain.WrapTimeout("ocr.FallbackRecognizer.Recognize", domain.ErrService, ctx.Err())
		}
	}

	if lastErr == nil {
		return nil, fmt.Errorf("ocr.FallbackRecognizer.Recognize: all engines cooling down: %w", domain.ErrService)
	}
	return nil, fmt.Errorf("ocr.FallbackRecognizer.Recognize: all engines failed: %w", lastErr)
}
