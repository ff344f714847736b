package service

import (
	"context"
	"strconv"

	"receiptai/internal/domain"
	"receiptai/internal/extract"
	"receiptai/internal/port"
	"receiptai/internal/recordstore"
)

// Record field names shared by the Receipt and Feedback types.
const (
	fieldDocID         = "doc_id"
	fieldImageURL      = "image_url"
	fieldRawText       = "raw_text"
	fieldVendor        = "vendor"
	fieldDate          = "date"
	fieldTotal         = "total"
	fieldTax           = "tax"
	fieldPaymentMethod = "payment_method"
	fieldInvoiceNumber = "invoice_number"
	fieldAddress       = "address"
	fieldPredCategory  = "pred_category"
	fieldPredScore     = "pred_score"
	fieldStatus        = "status"
	fieldModelVersion  = "model_version"

	fieldReceipt         = "receipt"
	fieldCategoryCorrect = "category_correct"
	fieldVendorCorrect   = "vendor_correct"
	fieldDateCorrect     = "date_correct"
	fieldTotalCorrect    = "total_correct"
	fieldReason          = "reason"
)

// receiptFields builds the stored payload of a prediction. Absent fields are
// left out so an update never blanks a value set by someone else.
func receiptFields(docID, imageURL, rawText string, rec extract.Record, pred predictedCategory) map[string]any {
	fields := map[string]any{
		fieldDocID:        docID,
		fieldRawText:      rawText,
		fieldPredCategory: pred.Label,
		fieldPredScore:    pred.Score,
		fieldStatus:       string(domain.ReceiptStatusPredicted),
		fieldModelVersion: pred.ModelVersion,
	}
	if imageURL != "" {
		fields[fieldImageURL] = imageURL
	}
	if rec.Vendor.Found() {
		fields[fieldVendor] = rec.Vendor.Value()
	}
	if rec.Date.Found() {
		fields[fieldDate] = rec.Date.Value().String()
	}
	if rec.Amount.Found() {
		fields[fieldTotal] = rec.Amount.Value()
	}
	if rec.TaxRate.Found() {
		fields[fieldTax] = rec.TaxRate.Value()
	}
	if rec.PaymentMethod.Found() {
		fields[fieldPaymentMethod] = rec.PaymentMethod.Value()
	}
	if rec.InvoiceNumber.Found() {
		fields[fieldInvoiceNumber] = rec.InvoiceNumber.Value()
	}
	if rec.Address.Found() {
		fields[fieldAddress] = rec.Address.Value()
	}
	return fields
}

func toReceipt(rec *port.Record) domain.Receipt {
	r := domain.Receipt{
		ID:            rec.ID,
		DocID:         rec.String(fieldDocID),
		ImageURL:      rec.String(fieldImageURL),
		RawText:       rec.String(fieldRawText),
		Vendor:        rec.String(fieldVendor),
		PaidDate:      rec.String(fieldDate),
		PaymentMethod: rec.String(fieldPaymentMethod),
		InvoiceNumber: rec.String(fieldInvoiceNumber),
		Address:       rec.String(fieldAddress),
		PredCategory:  rec.String(fieldPredCategory),
		Status:        domain.ReceiptStatus(rec.String(fieldStatus)),
		ModelVersion:  rec.String(fieldModelVersion),
		CreatedAt:     rec.CreatedAt,
	}
	if f, ok := recordstore.ToFloat(rec.Fields[fieldTotal]); ok {
		total := int64(f)
		r.Total = &total
	}
	if f, ok := recordstore.ToFloat(rec.Fields[fieldTax]); ok {
		r.TaxRate = &f
	}
	if f, ok := recordstore.ToFloat(rec.Fields[fieldPredScore]); ok {
		r.PredScore = f
	}
	return r
}

func toFeedback(rec *port.Record) domain.Feedback {
	return domain.Feedback{
		ID:              rec.ID,
		ReceiptID:       rec.String(fieldReceipt),
		RawText:         rec.String(fieldRawText),
		CategoryCorrect: rec.String(fieldCategoryCorrect),
		VendorCorrect:   rec.String(fieldVendorCorrect),
		DateCorrect:     rec.String(fieldDateCorrect),
		TotalCorrect:    stringValue(rec.Fields[fieldTotalCorrect]),
		PaymentMethod:   rec.String(fieldPaymentMethod),
		Reason:          rec.String(fieldReason),
		CreatedAt:       rec.CreatedAt,
	}
}

// stringValue renders scalar field values, since corrected totals arrive as
// either JSON numbers or strings.
func stringValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	}
	return ""
}

// findReceiptByDocID returns the first Receipt with docID, or nil.
func findReceiptByDocID(ctx context.Context, records port.RecordStore, docID string) (*port.Record, error) {
	page, err := records.Search(ctx, domain.TypeReceipt, port.SearchQuery{
		Constraints: []port.Constraint{{Key: fieldDocID, Operator: port.OpEquals, Value: docID}},
		Limit:       1,
	})
	if err != nil {
		return nil, err
	}
	if len(page.Results) == 0 {
		return nil, nil
	}
	return &page.Results[0], nil
}
