package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"receiptai/internal/domain"
)

// SignatureHeader carries the webhook signature of the raw request body.
const SignatureHeader = "X-Bubble-Signature"

// VerifySignature checks header against an HMAC-SHA256 of body. It reports
// whether a signature was present: a missing header is allowed, while a
// present header with no configured secret, an unknown scheme or a mismatch
// is ErrInvalidSignature. Accepted forms are hmac=<base64> and sha256=<hex>.
func VerifySignature(body []byte, header, secret string) (bool, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return false, nil
	}
	if secret == "" {
		return false, fmt.Errorf("no signature secret configured: %w", domain.ErrInvalidSignature)
	}

	scheme, value, ok := strings.Cut(header, "=")
	if !ok {
		return false, domain.ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	digest := mac.Sum(nil)

	switch strings.ToLower(scheme) {
	case "hmac":
		provided, err := base64.StdEncoding.Strict().DecodeString(value)
		if err != nil {
			return false, domain.ErrInvalidSignature
		}
		if !hmac.Equal(digest, provided) {
			return false, domain.ErrInvalidSignature
		}
		return true, nil
	case "sha256":
		if !hmac.Equal([]byte(hex.EncodeToString(digest)), []byte(strings.ToLower(value))) {
			return false, domain.ErrInvalidSignature
		}
		return true, nil
	}
	return false, domain.ErrInvalidSignature
}

// Signature returns middleware that verifies SignatureHeader against the raw
// body and restores the body for the handler.
func Signature(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(SignatureHeader)
		if header == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   gin.H{"code": "VALIDATION_ERROR", "message": "could not read request body"},
			})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if _, err := VerifySignature(body, header, secret); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   gin.H{"code": "invalid_signature", "message": "request signature could not be verified"},
			})
			return
		}
		c.Next()
	}
}
