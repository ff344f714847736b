package router_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"receiptai/internal/domain"
	"receiptai/internal/handler"
	"receiptai/internal/middleware"
	"receiptai/internal/router"
	"receiptai/internal/service"
	"receiptai/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	engine   *gin.Engine
	auth     *mocks.MockAuthService
	predict  *mocks.MockPredictService
	training *mocks.MockTrainingService
}

func newTestServer() *testServer {
	s := &testServer{
		auth:     new(mocks.MockAuthService),
		predict:  new(mocks.MockPredictService),
		training: new(mocks.MockTrainingService),
	}
	h := router.Handlers{
		Predict:  handler.NewPredictHandler(s.predict, nil),
		Feedback: handler.NewFeedbackHandler(new(mocks.MockFeedbackService), nil),
		Train:    handler.NewTrainHandler(s.training, nil),
		Model:    handler.NewModelHandler(new(mocks.MockModelService), nil),
		Export:   handler.NewExportHandler(new(mocks.MockExportService), nil),
		Auth:     handler.NewAuthHandler(s.auth, nil),
		Health:   handler.NewHealthHandler(nil),
	}
	s.engine = router.Setup(s.auth, h, router.Options{SignatureSecret: "secret"}, nil)
	return s
}

func (s *testServer) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	s.engine.ServeHTTP(w, req)
	return w
}

func TestSetup_Health(t *testing.T) {
	s := newTestServer()
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/readyz", "", nil).Code)
}

func TestSetup_AdminRequiresToken(t *testing.T) {
	s := newTestServer()

	w := s.do(http.MethodPost, "/api/v1/admin/train", "{}", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	s.training.AssertNotCalled(t, "Train", mock.Anything, mock.Anything)

	s.auth.On("Authenticate", "tok").Return(&service.Claims{Role: "admin"}, nil)
	s.training.On("Train", mock.Anything, mock.Anything).Return(&service.TrainResult{OK: true}, nil)

	w = s.do(http.MethodPost, "/api/v1/admin/train", "{}", map[string]string{"Authorization": "Bearer tok"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetup_PredictIsIdempotent(t *testing.T) {
	s := newTestServer()
	s.predict.On("Predict", mock.Anything, mock.Anything).
		Return(&service.PredictResult{DocID: "r_1"}, nil).Once()

	headers := map[string]string{middleware.IdempotencyHeader: "k"}
	first := s.do(http.MethodPost, "/api/v1/predict", `{"image_url":"https://x/y.jpg"}`, headers)
	second := s.do(http.MethodPost, "/api/v1/predict", `{"image_url":"https://x/y.jpg"}`, headers)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	s.predict.AssertNumberOfCalls(t, "Predict", 1)
}

func TestSetup_PredictRejectsBadSignature(t *testing.T) {
	s := newTestServer()

	w := s.do(http.MethodPost, "/api/v1/predict", `{}`, map[string]string{middleware.SignatureHeader: "sha256=00"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	s.predict.AssertNotCalled(t, "Predict", mock.Anything, mock.Anything)
}

func TestSetup_PredictMissingImage(t *testing.T) {
	s := newTestServer()
	s.predict.On("Predict", mock.Anything, mock.Anything).Return(nil, domain.ErrMissingImage)

	w := s.do(http.MethodPost, "/api/v1/predict", `{}`, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "missing_image_url")
}
