package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"receiptai/internal/service"
)

// FeedbackHandler records user corrections.
type FeedbackHandler struct {
	feedbackService service.FeedbackService
	errs            *ErrorResponder
}

// NewFeedbackHandler creates a new FeedbackHandler.
func NewFeedbackHandler(feedbackService service.FeedbackService, errs *ErrorResponder) *FeedbackHandler {
	if errs == nil {
		errs = NewErrorResponder(nil)
	}
	return &FeedbackHandler{feedbackService: feedbackService, errs: errs}
}

// Submit handles POST /api/v1/feedback
// @Summary Submit a correction
// @Description Store corrected fields for a receipt and mark it corrected
// @Tags feedback
// @Accept json
// @Produce json
// @Param request body FeedbackRequest true "Corrected fields"
// @Param X-Bubble-Signature header string false "hmac=<base64> or sha256=<hex> of the body"
// @Success 200 {object} Response{data=service.FeedbackResult}
// @Failure 400 {object} ErrorResponseBody "Invalid body"
// @Failure 401 {object} ErrorResponseBody "Invalid signature"
// @Failure 502 {object} ErrorResponseBody "Record store failed"
// @Router /feedback [post]
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var input service.FeedbackInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	result, err := h.feedbackService.Submit(c.Request.Context(), input)
	if err != nil {
		h.errs.HandleError(c, err)
		return
	}

	RespondOK(c, result)
}
