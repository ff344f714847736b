package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"receiptai/internal/service"
)

// PredictHandler handles the OCR and prediction endpoints.
type PredictHandler struct {
	predictService service.PredictService
	errs           *ErrorResponder
}

// NewPredictHandler creates a new PredictHandler.
func NewPredictHandler(predictService service.PredictService, errs *ErrorResponder) *PredictHandler {
	if errs == nil {
		errs = NewErrorResponder(nil)
	}
	return &PredictHandler{predictService: predictService, errs: errs}
}

// Predict handles POST /api/v1/predict
// @Summary Predict a receipt
// @Description OCR a receipt image, extract its fields and predict the expense category
// @Tags predict
// @Accept json
// @Produce json
// @Param request body PredictRequest true "Receipt image reference"
// @Param Idempotency-Key header string false "Replays the first response for repeated keys"
// @Param X-Bubble-Signature header string false "hmac=<base64> or sha256=<hex> of the body"
// @Success 200 {object} Response{data=service.PredictResult}
// @Failure 400 {object} ErrorResponseBody "Missing image or invalid body"
// @Failure 401 {object} ErrorResponseBody "Invalid signature"
// @Failure 422 {object} ErrorResponseBody "Image could not be fetched or decoded"
// @Failure 502 {object} ErrorResponseBody "OCR service failed"
// @Failure 504 {object} ErrorResponseBody "Upstream timeout"
// @Router /predict [post]
func (h *PredictHandler) Predict(c *gin.Context) {
	var input service.PredictInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	result, err := h.predictService.Predict(c.Request.Context(), input)
	if err != nil {
		h.errs.HandleError(c, err)
		return
	}

	RespondOK(c, result)
}

// Extract handles POST /api/v1/extract
// @Summary Extract fields from OCR text
// @Description Run normalization, field extraction and classification on already recognized text
// @Tags predict
// @Accept json
// @Produce json
// @Param request body ExtractRequest true "Recognized receipt text"
// @Success 200 {object} Response{data=service.PredictResult}
// @Failure 400 {object} ErrorResponseBody "Invalid body"
// @Failure 500 {object} ErrorResponseBody "Model store failed"
// @Router /extract [post]
func (h *PredictHandler) Extract(c *gin.Context) {
	var input service.ExtractInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	result, err := h.predictService.Extract(c.Request.Context(), input)
	if err != nil {
		h.errs.HandleError(c, err)
		return
	}

	RespondOK(c, result)
}
