package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"receiptai/internal/handler"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	t.Run("liveness", func(t *testing.T) {
		h := handler.NewHealthHandler(nil)
		c, w := newJSONContext(t, http.MethodGet, "/healthz", nil)
		h.Liveness(c)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("ready", func(t *testing.T) {
		h := handler.NewHealthHandler(pingFunc(func(context.Context) error { return nil }))
		c, w := newJSONContext(t, http.MethodGet, "/readyz", nil)
		h.Readiness(c)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("store_unreachable", func(t *testing.T) {
		h := handler.NewHealthHandler(pingFunc(func(context.Context) error { return errors.New("down") }))
		c, w := newJSONContext(t, http.MethodGet, "/readyz", nil)
		h.Readiness(c)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "unavailable")
	})
}
