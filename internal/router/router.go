package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"receiptai/internal/handler"
	"receiptai/internal/middleware"
	"receiptai/internal/service"
)

// Handlers groups the HTTP handlers mounted by Setup.
type Handlers struct {
	Predict  *handler.PredictHandler
	Feedback *handler.FeedbackHandler
	Train    *handler.TrainHandler
	Model    *handler.ModelHandler
	Export   *handler.ExportHandler
	Auth     *handler.AuthHandler
	Health   *handler.HealthHandler
}

// Options carries the middleware settings.
type Options struct {
	AllowedOrigins  []string
	SignatureSecret string
	Idempotency     *middleware.IdempotencyStore
	EnableSwagger   bool
}

// Setup configures the Gin engine with all routes and middleware.
func Setup(authSvc service.AuthService, h Handlers, opts Options, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(opts.AllowedOrigins))

	// Health checks
	r.GET("/healthz", h.Health.Liveness)
	r.GET("/readyz", h.Health.Readiness)

	if opts.EnableSwagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	idempotency := opts.Idempotency
	if idempotency == nil {
		idempotency = middleware.NewIdempotencyStore(0)
	}
	signature := middleware.Signature(opts.SignatureSecret)

	v1 := r.Group("/api/v1")

	// Webhook routes called by the Bubble app
	v1.POST("/predict", signature, middleware.Idempotency(idempotency), h.Predict.Predict)
	v1.POST("/extract", h.Predict.Extract)
	v1.POST("/feedback", signature, h.Feedback.Submit)

	v1.POST("/auth/token", h.Auth.Token)

	// Admin routes
	admin := v1.Group("/admin")
	admin.Use(middleware.AdminAuth(authSvc))
	admin.POST("/train", h.Train.Train)
	admin.GET("/models", h.Model.List)
	admin.GET("/models/current", h.Model.Current)
	admin.POST("/models/refresh", h.Model.Refresh)
	admin.GET("/receipts/export", h.Export.Export)

	return r
}
