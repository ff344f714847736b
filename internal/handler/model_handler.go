package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"receiptai/internal/service"
)

const defaultModelListLimit = 20

// ModelHandler exposes model version administration.
type ModelHandler struct {
	modelService service.ModelService
	errs         *ErrorResponder
}

// NewModelHandler creates a new ModelHandler.
func NewModelHandler(modelService service.ModelService, errs *ErrorResponder) *ModelHandler {
	if errs == nil {
		errs = NewErrorResponder(nil)
	}
	return &ModelHandler{modelService: modelService, errs: errs}
}

// List handles GET /api/v1/admin/models
// @Summary List model versions
// @Description Newest first, metadata only
// @Tags admin
// @Produce json
// @Param limit query int false "Maximum versions to return" default(20)
// @Success 200 {object} Response{data=[]domain.ModelVersion}
// @Failure 400 {object} ErrorResponseBody "Invalid limit"
// @Failure 401 {object} ErrorResponseBody "Invalid admin token"
// @Security BearerAuth
// @Router /admin/models [get]
func (h *ModelHandler) List(c *gin.Context) {
	limit := defaultModelListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a positive integer")
			return
		}
		limit = n
	}

	versions, err := h.modelService.List(c.Request.Context(), limit)
	if err != nil {
		h.errs.HandleError(c, err)
		return
	}

	RespondOK(c, versions)
}

// Current handles GET /api/v1/admin/models/current
// @Summary Show the serving model
// @Tags admin
// @Produce json
// @Success 200 {object} Response{data=service.ModelInfo}
// @Failure 401 {object} ErrorResponseBody "Invalid admin token"
// @Security BearerAuth
// @Router /admin/models/current [get]
func (h *ModelHandler) Current(c *gin.Context) {
	info, err := h.modelService.Current(c.Request.Context())
	if err != nil {
		h.errs.HandleError(c, err)
		return
	}
	RespondOK(c, info)
}

// Refresh handles POST /api/v1/admin/models/refresh
// @Summary Reload the latest model
// @Description Drops the serving cache and loads the latest version from the store
// @Tags admin
// @Produce json
// @Success 200 {object} Response{data=service.ModelInfo}
// @Failure 401 {object} ErrorResponseBody "Invalid admin token"
// @Failure 500 {object} ErrorResponseBody "Model store failed"
// @Security BearerAuth
// @Router /admin/models/refresh [post]
func (h *ModelHandler) Refresh(c *gin.Context) {
	info, err := h.modelService.Refresh(c.Request.Context())
	if err != nil {
		h.errs.HandleError(c, err)
		return
	}
	RespondOK(c, info)
}
