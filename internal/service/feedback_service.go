package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"receiptai/internal/domain"
	"receiptai/internal/port"
)

// Correction holds the corrected values of a receipt. Total may be a number
// or a string.
type Correction struct {
	Category      string `json:"category"`
	Vendor        string `json:"vendor"`
	Date          string `json:"date"`
	Total         any    `json:"total"`
	PaymentMethod string `json:"payment_method"`
}

// FeedbackInput is the DTO for feedback requests.
type FeedbackInput struct {
	ReceiptID string     `json:"receipt_id"`
	DocID     string     `json:"doc_id"`
	Correct   Correction `json:"correct"`
	Reason    string     `json:"reason"`
}

// FeedbackResult is returned after a correction is stored.
type FeedbackResult struct {
	OK         bool   `json:"ok"`
	FeedbackID string `json:"feedback_id,omitempty"`
	ReceiptID  string `json:"receipt_id,omitempty"`
}

// FeedbackService defines the correction contract.
type FeedbackService interface {
	Submit(ctx context.Context, input FeedbackInput) (*FeedbackResult, error)
}

type feedbackService struct {
	records port.RecordStore
	log     *zap.Logger
}

// NewFeedbackService creates a new FeedbackService implementation.
func NewFeedbackService(records port.RecordStore, logger *zap.Logger) FeedbackService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &feedbackService{records: records, log: logger}
}

// Submit stores a Feedback record and marks its receipt corrected. Only the
// Feedback create can fail the call; the receipt lookup and the status
// update are best effort.
func (s *feedbackService) Submit(ctx context.Context, input FeedbackInput) (*FeedbackResult, error) {
	receiptID := strings.TrimSpace(input.ReceiptID)
	var receipt *port.Record

	switch {
	case receiptID != "":
		rec, err := s.records.Get(ctx, domain.TypeReceipt, receiptID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.log.Warn("feedbackService.Submit: receipt lookup failed",
				zap.String("receipt_id", receiptID), zap.Error(err))
		}
		receipt = rec
	case strings.TrimSpace(input.DocID) != "":
		rec, err := findReceiptByDocID(ctx, s.records, strings.TrimSpace(input.DocID))
		if err != nil {
			s.log.Warn("feedbackService.Submit: receipt lookup failed",
				zap.String("doc_id", input.DocID), zap.Error(err))
		}
		if rec != nil {
			receipt = rec
			receiptID = rec.ID
		}
	}

	fields := map[string]any{
		fieldReceipt:         nilIfEmpty(receiptID),
		fieldCategoryCorrect: nilIfEmpty(input.Correct.Category),
		fieldVendorCorrect:   nilIfEmpty(input.Correct.Vendor),
		fieldDateCorrect:     nilIfEmpty(input.Correct.Date),
		fieldTotalCorrect:    nilIfEmpty(stringValue(input.Correct.Total)),
		fieldPaymentMethod:   nilIfEmpty(input.Correct.PaymentMethod),
		fieldReason:          nilIfEmpty(input.Reason),
	}
	if receipt != nil {
		fields[fieldRawText] = nilIfEmpty(receipt.String(fieldRawText))
		if fields[fieldPaymentMethod] == nil {
			fields[fieldPaymentMethod] = nilIfEmpty(receipt.String(fieldPaymentMethod))
		}
	}

	created, err := s.records.Create(ctx, domain.TypeFeedback, fields)
	if err != nil {
		s.log.Error("feedbackService.Submit: failed to store feedback",
			zap.String("receipt_id", receiptID), zap.Error(err))
		return nil, fmt.Errorf("storing feedback: %w", asServiceError(err))
	}

	if receiptID != "" {
		_, err := s.records.Update(ctx, domain.TypeReceipt, receiptID, map[string]any{
			fieldStatus: string(domain.ReceiptStatusCorrected),
		})
		if err != nil {
			s.log.Warn("feedbackService.Submit: failed to update receipt status",
				zap.String("receipt_id", receiptID), zap.Error(err))
		}
	}

	s.log.Info("feedbackService.Submit: feedback stored",
		zap.String("feedback_id", created.ID),
		zap.String("receipt_id", receiptID),
		zap.String("category", input.Correct.Category))
	return &FeedbackResult{OK: true, FeedbackID: created.ID, ReceiptID: receiptID}, nil
}

// asServiceError makes sure a record store failure surfaces as a backend
// failure rather than a caller error.
func asServiceError(err error) error {
	if errors.Is(err, domain.ErrService) || errors.Is(err, domain.ErrTimeout) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrService, err)
}

func nilIfEmpty(s string) any {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return s
}
