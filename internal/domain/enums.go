package domain

// Record type names in the backing record store.
const (
	TypeReceipt      = "Receipt"
	TypeFeedback     = "Feedback"
	TypeModelVersion = "ModelVersion"
)

// ReceiptStatus tracks a receipt through prediction and review.
type ReceiptStatus string

const (
	ReceiptStatusPredicted ReceiptStatus = "predicted"
	ReceiptStatusCorrected ReceiptStatus = "corrected"
)

// Category defaults used when no trained model exists yet.
const (
	CategoryUncategorized = "未分類"
	CategoryOfficeSupply  = "事務用品費"
	CategoryMiscellaneous = "雑費"
)

// DefaultTask is the classifier task name used for model versions.
const DefaultTask = "receipt_category"

// AllowedContentTypes lists the document types the OCR pipeline accepts.
var AllowedContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/bmp":       true,
	"image/tiff":      true,
	"application/pdf": true,
	"text/plain":      true,
}
