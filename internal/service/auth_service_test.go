package service_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"receiptai/internal/config"
	"receiptai/internal/domain"
	"receiptai/internal/service"
)

func authConfig() config.AuthConfig {
	return config.AuthConfig{
		AdminToken:  "admin-secret",
		JWTSecret:   "jwt-secret-for-tests",
		TokenExpiry: 15 * time.Minute,
		Issuer:      "receiptai",
	}
}

func TestAuthService_IssueToken(t *testing.T) {
	t.Run("valid_admin_token", func(t *testing.T) {
		svc := service.NewAuthService(authConfig())
		tok, err := svc.IssueToken(service.TokenInput{AdminToken: "admin-secret"})
		require.NoError(t, err)
		assert.Equal(t, "Bearer", tok.TokenType)
		assert.WithinDuration(t, time.Now().Add(15*time.Minute), tok.ExpiresAt, 5*time.Second)

		claims, err := svc.Authenticate(tok.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "admin", claims.Role)
		assert.Equal(t, "receiptai", claims.Issuer)
	})

	t.Run("wrong_admin_token", func(t *testing.T) {
		svc := service.NewAuthService(authConfig())
		_, err := svc.IssueToken(service.TokenInput{AdminToken: "guess"})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("issuance_disabled", func(t *testing.T) {
		cfg := authConfig()
		cfg.JWTSecret = ""
		svc := service.NewAuthService(cfg)
		_, err := svc.IssueToken(service.TokenInput{AdminToken: "admin-secret"})
		assert.ErrorIs(t, err, service.ErrTokenIssuanceDisabled)
	})

	t.Run("bcrypt_hash", func(t *testing.T) {
		hash, err := bcrypt.GenerateFromPassword([]byte("hashed-secret"), bcrypt.MinCost)
		require.NoError(t, err)
		cfg := authConfig()
		cfg.AdminToken = ""
		cfg.AdminTokenHash = string(hash)
		svc := service.NewAuthService(cfg)

		_, err = svc.IssueToken(service.TokenInput{AdminToken: "hashed-secret"})
		assert.NoError(t, err)
		_, err = svc.IssueToken(service.TokenInput{AdminToken: "admin-secret"})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Run("raw_admin_token", func(t *testing.T) {
		svc := service.NewAuthService(authConfig())
		claims, err := svc.Authenticate("admin-secret")
		require.NoError(t, err)
		assert.Equal(t, "admin", claims.Role)
	})

	t.Run("empty", func(t *testing.T) {
		svc := service.NewAuthService(authConfig())
		_, err := svc.Authenticate("")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("no_admin_token_configured", func(t *testing.T) {
		svc := service.NewAuthService(config.AuthConfig{})
		_, err := svc.Authenticate("anything")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("foreign_signature", func(t *testing.T) {
		other := authConfig()
		other.JWTSecret = "another-secret"
		tok, err := service.NewAuthService(other).IssueToken(service.TokenInput{AdminToken: "admin-secret"})
		require.NoError(t, err)

		_, err = service.NewAuthService(authConfig()).Authenticate(tok.AccessToken)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("expired_token", func(t *testing.T) {
		cfg := authConfig()
		claims := &service.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "admin",
				Audience:  jwt.ClaimStrings{"admin"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			},
			Role: "admin",
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
		require.NoError(t, err)

		_, err = service.NewAuthService(cfg).Authenticate(signed)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("wrong_audience", func(t *testing.T) {
		cfg := authConfig()
		claims := &service.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Audience:  jwt.ClaimStrings{"access"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
			Role: "admin",
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
		require.NoError(t, err)

		_, err = service.NewAuthService(cfg).Authenticate(signed)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}
