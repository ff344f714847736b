package extract

import (
	"sync"

	"receiptai/internal/textnorm"
)

// Record is the structured receipt: one result per field.
type Record struct {
	Vendor        Result[string]  `json:"vendor"`
	Amount        Result[int64]   `json:"amount"`
	Date          Result[Date]    `json:"date"`
	TaxRate       Result[float64] `json:"tax_rate"`
	PaymentMethod Result[string]  `json:"payment_method"`
	InvoiceNumber Result[string]  `json:"invoice_number"`
	Address       Result[string]  `json:"address"`
}

// ExtractAll runs every field extractor over the same lines. The extractors
// share no state, so each runs in its own goroutine.
func ExtractAll(text textnorm.OCRText) Record {
	var (
		rec Record
		wg  sync.WaitGroup
	)
	lines := text.Lines
	run := func(f func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f()
		}()
	}

	run(func() { rec.Vendor = Vendor(lines) })
	run(func() { rec.Amount = Amount(lines) })
	run(func() { rec.Date = DateField(lines) })
	run(func() { rec.TaxRate = TaxRate(lines) })
	run(func() { rec.PaymentMethod = PaymentMethod(lines) })
	run(func() { rec.InvoiceNumber = InvoiceNumber(lines) })
	run(func() { rec.Address = Address(lines) })

	wg.Wait()
	return rec
}

// Summary is the flat view of a Record used in API responses and stored
// receipts: each field's best value and confidence.
type Summary struct {
	Vendor        FieldValue `json:"vendor"`
	Amount        FieldValue `json:"amount"`
	PaidDate      FieldValue `json:"paid_date"`
	TaxRate       FieldValue `json:"tax_rate"`
	PaymentMethod FieldValue `json:"payment_method"`
	InvoiceNumber FieldValue `json:"invoice_number"`
	Address       FieldValue `json:"address"`
}

// FieldValue is a best value with its confidence; Value is nil when absent.
type FieldValue struct {
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
	Currency   string  `json:"currency,omitempty"`
}

// Summarize flattens rec.
func (rec Record) Summarize() Summary {
	s := Summary{
		Vendor:        field(rec.Vendor),
		Amount:        field(rec.Amount),
		TaxRate:       field(rec.TaxRate),
		PaymentMethod: field(rec.PaymentMethod),
		InvoiceNumber: field(rec.InvoiceNumber),
		Address:       field(rec.Address),
	}
	if rec.Amount.Found() {
		s.Amount.Currency = "JPY"
	}
	if rec.Date.Found() {
		s.PaidDate = FieldValue{Value: rec.Date.Value().String(), Confidence: rec.Date.Confidence()}
	}
	return s
}

func field[T any](r Result[T]) FieldValue {
	if !r.Found() {
		return FieldValue{}
	}
	return FieldValue{Value: r.Value(), Confidence: r.Confidence()}
}
