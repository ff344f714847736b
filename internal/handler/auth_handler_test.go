package handler_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"receiptai/internal/domain"
	"receiptai/internal/handler"
	"receiptai/internal/service"
	"receiptai/mocks"
)

func TestAuthHandler_Token(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := new(mocks.MockAuthService)
		h := handler.NewAuthHandler(svc, nil)
		svc.On("IssueToken", service.TokenInput{AdminToken: "secret"}).Return(&service.Token{
			AccessToken: "jwt",
			TokenType:   "Bearer",
			ExpiresAt:   time.Now().Add(time.Hour),
		}, nil)

		c, w := newJSONContext(t, http.MethodPost, "/api/v1/auth/token", map[string]string{"admin_token": "secret"})
		h.Token(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "jwt", decodeResponse(t, w).Data.(map[string]any)["access_token"])
	})

	t.Run("wrong_token", func(t *testing.T) {
		svc := new(mocks.MockAuthService)
		h := handler.NewAuthHandler(svc, nil)
		svc.On("IssueToken", service.TokenInput{AdminToken: "nope"}).Return(nil, domain.ErrUnauthorized)

		c, w := newJSONContext(t, http.MethodPost, "/api/v1/auth/token", map[string]string{"admin_token": "nope"})
		h.Token(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "invalid_admin_token", decodeResponse(t, w).Error.Code)
	})

	t.Run("issuance_disabled", func(t *testing.T) {
		svc := new(mocks.MockAuthService)
		h := handler.NewAuthHandler(svc, nil)
		svc.On("IssueToken", service.TokenInput{AdminToken: "secret"}).Return(nil, service.ErrTokenIssuanceDisabled)

		c, w := newJSONContext(t, http.MethodPost, "/api/v1/auth/token", map[string]string{"admin_token": "secret"})
		h.Token(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("missing_token", func(t *testing.T) {
		svc := new(mocks.MockAuthService)
		h := handler.NewAuthHandler(svc, nil)

		c, w := newJSONContext(t, http.MethodPost, "/api/v1/auth/token", map[string]string{})
		h.Token(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
