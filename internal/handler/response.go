package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"receiptai/internal/domain"
	"receiptai/internal/middleware"
	"receiptai/internal/service"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
// Pipeline kinds are checked after the caller errors so that a wrapped
// not-found or invalid input keeps its meaning.
func MapDomainError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, domain.ErrMissingImage):
		return http.StatusBadRequest, "missing_image_url", "either image_url or image_base64 must be provided"
	case errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusUnauthorized, "invalid_signature", "request signature could not be verified"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "invalid_admin_token", "missing or invalid admin token"
	case errors.Is(err, service.ErrTokenIssuanceDisabled):
		return http.StatusServiceUnavailable, "TOKEN_ISSUANCE_DISABLED", "token issuance is not configured"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error()
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT", "an upstream call timed out"
	case errors.Is(err, domain.ErrFetch):
		return http.StatusUnprocessableEntity, "IMAGE_FETCH_FAILED", "the image could not be fetched"
	case errors.Is(err, domain.ErrDecode):
		return http.StatusUnprocessableEntity, "OCR_DECODE_FAILED", "the document could not be decoded"
	case errors.Is(err, domain.ErrStore):
		return http.StatusInternalServerError, "MODEL_STORE_ERROR", "the model store failed"
	case errors.Is(err, domain.ErrService):
		return http.StatusBadGateway, "OCR_SERVICE_ERROR", "a backend service failed"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// ErrorResponder writes mapped error responses and logs server-side ones.
type ErrorResponder struct {
	log *zap.Logger
}

// NewErrorResponder creates an ErrorResponder; a nil logger discards logs.
func NewErrorResponder(logger *zap.Logger) *ErrorResponder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorResponder{log: logger}
}

// HandleError maps a domain error and sends the appropriate error response.
func (r *ErrorResponder) HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	if status >= http.StatusInternalServerError {
		requestID, _ := c.Get(middleware.ContextKeyRequestID)
		r.log.Error("handler: request failed",
			zap.Any("request_id", requestID),
			zap.String("code", code),
			zap.Error(err))
	}
	_ = c.Error(err)
	RespondError(c, status, code, msg)
}
