package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"receiptai/internal/domain"
	"receiptai/internal/handler"
	"receiptai/internal/service"
	"receiptai/mocks"
)

func TestModelHandler_List(t *testing.T) {
	t.Run("default_limit", func(t *testing.T) {
		svc := new(mocks.MockModelService)
		h := handler.NewModelHandler(svc, nil)
		svc.On("List", mock.Anything, 20).Return([]domain.ModelVersion{
			{ID: "m2", Task: domain.DefaultTask, Name: "v2", IsLatest: true},
			{ID: "m1", Task: domain.DefaultTask, Name: "v1"},
		}, nil)

		c, w := newJSONContext(t, http.MethodGet, "/api/v1/admin/models", nil)
		h.List(c)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w).Data.([]any)
		assert.Len(t, data, 2)
		assert.Equal(t, "v2", data[0].(map[string]any)["name"])
		svc.AssertExpectations(t)
	})

	t.Run("explicit_limit", func(t *testing.T) {
		svc := new(mocks.MockModelService)
		h := handler.NewModelHandler(svc, nil)
		svc.On("List", mock.Anything, 5).Return([]domain.ModelVersion{}, nil)

		c, w := newJSONContext(t, http.MethodGet, "/api/v1/admin/models?limit=5", nil)
		h.List(c)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("invalid_limit", func(t *testing.T) {
		svc := new(mocks.MockModelService)
		h := handler.NewModelHandler(svc, nil)

		c, w := newJSONContext(t, http.MethodGet, "/api/v1/admin/models?limit=zero", nil)
		h.List(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	})
}

func TestModelHandler_CurrentAndRefresh(t *testing.T) {
	t.Run("current", func(t *testing.T) {
		svc := new(mocks.MockModelService)
		h := handler.NewModelHandler(svc, nil)
		svc.On("Current", mock.Anything).Return(&service.ModelInfo{Loaded: false}, nil)

		c, w := newJSONContext(t, http.MethodGet, "/api/v1/admin/models/current", nil)
		h.Current(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, false, decodeResponse(t, w).Data.(map[string]any)["loaded"])
	})

	t.Run("refresh_store_error", func(t *testing.T) {
		svc := new(mocks.MockModelService)
		h := handler.NewModelHandler(svc, nil)
		svc.On("Refresh", mock.Anything).Return(nil, domain.NewStoreError("load", nil))

		c, w := newJSONContext(t, http.MethodPost, "/api/v1/admin/models/refresh", nil)
		h.Refresh(c)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("refresh", func(t *testing.T) {
		svc := new(mocks.MockModelService)
		h := handler.NewModelHandler(svc, nil)
		svc.On("Refresh", mock.Anything).Return(&service.ModelInfo{
			Loaded:  true,
			Version: &domain.ModelVersion{ID: "m1", Name: "v1", IsLatest: true},
			Classes: []string{"会議費", "消耗品費"},
		}, nil)

		c, w := newJSONContext(t, http.MethodPost, "/api/v1/admin/models/refresh", nil)
		h.Refresh(c)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w).Data.(map[string]any)
		assert.Equal(t, true, data["loaded"])
		assert.Len(t, data["classes"], 2)
	})
}
