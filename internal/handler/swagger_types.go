package handler

// Swagger type definitions for API documentation.
// These types are used by swag to generate OpenAPI documentation.

// --- Request Types ---

// HintRequest carries caller-known values that bias classification.
type HintRequest struct {
	Vendor        string `json:"vendor" example:"デンキチ"`
	Amount        string `json:"amount" example:"36990"`
	PaymentMethod string `json:"payment_method" example:"クレジット"`
}

// PredictRequest represents the predict request body. One of image_url or
// image_base64 is required.
type PredictRequest struct {
	DocID       string       `json:"doc_id" example:"r_20251010_a1b2c3"`
	ImageURL    string       `json:"image_url" example:"https://example.com/receipts/1.jpg"`
	ImageBase64 string       `json:"image_base64" example:"iVBORw0KGgoAAAANSUhEUgAA..."`
	Hint        *HintRequest `json:"hint"`
}

// ExtractRequest represents the extract request body.
type ExtractRequest struct {
	DocID string       `json:"doc_id" example:"r_20251010_a1b2c3"`
	Text  string       `json:"text" binding:"required" example:"デンキチ 川口店\n合計 ¥36,990"`
	Hint  *HintRequest `json:"hint"`
}

// CorrectionRequest holds corrected receipt fields.
type CorrectionRequest struct {
	Category      string `json:"category" example:"消耗品費"`
	Vendor        string `json:"vendor" example:"デンキチ"`
	Date          string `json:"date" example:"2025-10-10"`
	Total         int64  `json:"total" example:"36990"`
	PaymentMethod string `json:"payment_method" example:"クレジット"`
}

// FeedbackRequest represents the feedback request body.
type FeedbackRequest struct {
	ReceiptID string            `json:"receipt_id" example:"1728550000000x123456789"`
	DocID     string            `json:"doc_id" example:"r_20251010_a1b2c3"`
	Correct   CorrectionRequest `json:"correct"`
	Reason    string            `json:"reason" example:"wrong category"`
}

// TrainRequest represents the train request body.
type TrainRequest struct {
	Since      string `json:"since" example:"2025-10-01T00:00:00Z"`
	MinSamples int    `json:"min_samples" example:"10"`
}

// TokenRequest represents the admin token exchange body.
type TokenRequest struct {
	AdminToken string `json:"admin_token" binding:"required" example:"change-me"`
}

// --- Response Types ---

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
	Error  string `json:"error,omitempty" example:"record store not reachable"`
}

// --- Generic Response Wrappers ---

// Response wraps a successful response with data.
type Response struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponseBody wraps an error response.
type ErrorResponseBody struct {
	Success bool      `json:"success" example:"false"`
	Error   *APIError `json:"error"`
}
