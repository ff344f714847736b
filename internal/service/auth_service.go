package service

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"receiptai/internal/config"
	"receiptai/internal/domain"
)

const (
	roleAdmin     = "admin"
	audienceAdmin = "admin"

	defaultTokenExpiry = time.Hour
)

// ErrTokenIssuanceDisabled is returned by IssueToken when no JWT secret is set.
var ErrTokenIssuanceDisabled = errors.New("token issuance is not configured")

// Claims represents the JWT claims of an admin session.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Token is an issued admin access token.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// TokenInput is the DTO for token requests.
type TokenInput struct {
	AdminToken string `json:"admin_token" binding:"required"`
}

// AuthService defines the admin authentication contract.
type AuthService interface {
	IssueToken(input TokenInput) (*Token, error)
	// Authenticate accepts either an issued JWT or the raw admin token.
	Authenticate(bearer string) (*Claims, error)
}

type authService struct {
	cfg config.AuthConfig
	now func() time.Time
}

// NewAuthService creates a new AuthService implementation.
func NewAuthService(cfg config.AuthConfig) AuthService {
	if cfg.TokenExpiry <= 0 {
		cfg.TokenExpiry = defaultTokenExpiry
	}
	return &authService{cfg: cfg, now: time.Now}
}

func (s *authService) IssueToken(input TokenInput) (*Token, error) {
	if s.cfg.JWTSecret == "" {
		return nil, ErrTokenIssuanceDisabled
	}
	if !s.checkAdminToken(input.AdminToken) {
		return nil, domain.ErrUnauthorized
	}

	now := s.now()
	expiresAt := now.Add(s.cfg.TokenExpiry)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   roleAdmin,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.New().String(),
			Audience:  jwt.ClaimStrings{audienceAdmin},
		},
		Role: roleAdmin,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}
	return &Token{AccessToken: signed, TokenType: "Bearer", ExpiresAt: expiresAt}, nil
}

func (s *authService) Authenticate(bearer string) (*Claims, error) {
	if bearer == "" {
		return nil, domain.ErrUnauthorized
	}
	if s.checkAdminToken(bearer) {
		return &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: roleAdmin}, Role: roleAdmin}, nil
	}
	if s.cfg.JWTSecret == "" {
		return nil, domain.ErrUnauthorized
	}
	claims, err := s.parseToken(bearer)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}
	return claims, nil
}

// checkAdminToken compares against the bcrypt hash when one is configured,
// otherwise against the plain token. Nothing matches when neither is set.
func (s *authService) checkAdminToken(token string) bool {
	if token == "" {
		return false
	}
	if s.cfg.AdminTokenHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminTokenHash), []byte(token)) == nil
	}
	if s.cfg.AdminToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AdminToken)) == 1
}

func (s *authService) parseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithAudience(audienceAdmin), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid || claims.Role != roleAdmin {
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}
