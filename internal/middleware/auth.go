package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"receiptai/internal/service"
)

const (
	ContextKeyClaims = "claims"
	ContextKeyRole   = "role"
)

// AdminAuth returns Gin middleware that accepts a bearer JWT issued for the
// admin, or the raw admin token.
func AdminAuth(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortInvalidAdminToken(c)
			return
		}

		claims, err := authService.Authenticate(token)
		if err != nil {
			abortInvalidAdminToken(c)
			return
		}

		c.Set(ContextKeyRole, claims.Role)
		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// GetClaims returns the admin claims set by AdminAuth.
func GetClaims(c *gin.Context) (*service.Claims, bool) {
	v, ok := c.Get(ContextKeyClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*service.Claims)
	return claims, ok
}

// bearerToken splits "Bearer <token>". The scheme is case-insensitive and
// anything other than exactly two parts is rejected.
func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

func abortInvalidAdminToken(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   gin.H{"code": "invalid_admin_token", "message": "missing or invalid admin token"},
	})
}
