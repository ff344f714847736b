package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"receiptai/internal/service"
)

// TrainHandler runs online training on demand.
type TrainHandler struct {
	trainingService service.TrainingService
	errs            *ErrorResponder
}

// NewTrainHandler creates a new TrainHandler.
func NewTrainHandler(trainingService service.TrainingService, errs *ErrorResponder) *TrainHandler {
	if errs == nil {
		errs = NewErrorResponder(nil)
	}
	return &TrainHandler{trainingService: trainingService, errs: errs}
}

// Train handles POST /api/v1/admin/train
// @Summary Train the category model
// @Description Fold collected feedback into the latest model and save a new version
// @Tags admin
// @Accept json
// @Produce json
// @Param request body TrainRequest false "Training window"
// @Success 200 {object} Response{data=service.TrainResult} "Trained, or skipped with a reason"
// @Failure 400 {object} ErrorResponseBody "Invalid since or min_samples"
// @Failure 401 {object} ErrorResponseBody "Invalid admin token"
// @Failure 500 {object} ErrorResponseBody "Model store failed"
// @Security BearerAuth
// @Router /admin/train [post]
func (h *TrainHandler) Train(c *gin.Context) {
	var input service.TrainInput
	// An empty body trains on everything with the configured minimum.
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	result, err := h.trainingService.Train(c.Request.Context(), input)
	if err != nil {
		h.errs.HandleError(c, err)
		return
	}

	RespondOK(c, result)
}
