package domain

import "time"

// Receipt is the persisted outcome of one prediction.
type Receipt struct {
	ID            string        `json:"id"`
	DocID         string        `json:"doc_id"`
	ImageURL      string        `json:"image_url,omitempty"`
	RawText       string        `json:"raw_text"`
	Vendor        string        `json:"vendor,omitempty"`
	Total         *int64        `json:"total,omitempty"`
	TaxRate       *float64      `json:"tax_rate,omitempty"`
	PaidDate      string        `json:"paid_date,omitempty"`
	PaymentMethod string        `json:"payment_method,omitempty"`
	InvoiceNumber string        `json:"invoice_number,omitempty"`
	Address       string        `json:"address,omitempty"`
	PredCategory  string        `json:"pred_category"`
	PredScore     float64       `json:"pred_score"`
	Status        ReceiptStatus `json:"status"`
	ModelVersion  string        `json:"model_version,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Feedback is a user correction for a receipt; it is the training signal.
type Feedback struct {
	ID              string    `json:"id"`
	ReceiptID       string    `json:"receipt"`
	RawText         string    `json:"raw_text,omitempty"`
	CategoryCorrect string    `json:"category_correct,omitempty"`
	VendorCorrect   string    `json:"vendor_correct,omitempty"`
	DateCorrect     string    `json:"date_correct,omitempty"`
	TotalCorrect    string    `json:"total_correct,omitempty"`
	PaymentMethod   string    `json:"payment_method,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// ModelVersion is the metadata of one stored classifier artifact. Chunks hold
// the base64 blob split to respect the store's field size limit.
type ModelVersion struct {
	ID        string         `json:"id"`
	Task      string         `json:"task"`
	Name      string         `json:"name"`
	IsLatest  bool           `json:"is_latest"`
	Metrics   map[string]any `json:"metrics,omitempty"`
	Chunks    []string       `json:"-"`
	CreatedAt time.Time      `json:"created_at"`
}
