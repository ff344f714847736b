package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"receiptai/internal/service"
)

// AuthHandler exchanges the admin token for a short-lived JWT.
type AuthHandler struct {
	authService service.AuthService
	errs        *ErrorResponder
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService service.AuthService, errs *ErrorResponder) *AuthHandler {
	if errs == nil {
		errs = NewErrorResponder(nil)
	}
	return &AuthHandler{authService: authService, errs: errs}
}

// Token handles POST /api/v1/auth/token
// @Summary Issue an admin token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body TokenRequest true "Admin token"
// @Success 200 {object} Response{data=service.Token}
// @Failure 400 {object} ErrorResponseBody "Invalid body"
// @Failure 401 {object} ErrorResponseBody "Invalid admin token"
// @Failure 503 {object} ErrorResponseBody "Token issuance not configured"
// @Router /auth/token [post]
func (h *AuthHandler) Token(c *gin.Context) {
	var input service.TokenInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	token, err := h.authService.IssueToken(input)
	if err != nil {
		h.errs.HandleError(c, err)
		return
	}

	RespondOK(c, token)
}
