package export_test

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"receiptai/internal/domain"
	"receiptai/internal/export"
)

func sampleReceipt() domain.Receipt {
	total := int64(36990)
	tax := 0.1
	return domain.Receipt{
		DocID:         "r_20251010_abcdef",
		PaidDate:      "2025-10-10",
		Vendor:        "デンキチ",
		Total:         &total,
		TaxRate:       &tax,
		PaymentMethod: "クレジット",
		InvoiceNumber: "T1234567890123",
		Address:       "埼玉県川口市栄町3-2-1",
		PredCategory:  "消耗品費",
		PredScore:     0.8125,
		Status:        domain.ReceiptStatusCorrected,
		ModelVersion:  "sgd-tfidf-2025-10-10T00:05",
		ImageURL:      "s3://archive/receipts/2025/10/r_20251010_abcdef.png",
		CreatedAt:     time.Date(2025, 10, 10, 1, 2, 3, 0, time.UTC),
	}
}

func TestCSVWriter(t *testing.T) {
	t.Run("header", func(t *testing.T) {
		var buf bytes.Buffer
		w := export.NewCSVWriter(&buf)
		require.NoError(t, w.WriteHeader())
		w.Flush()
		require.NoError(t, w.Error())

		row, err := csv.NewReader(&buf).Read()
		require.NoError(t, err)
		assert.Len(t, row, 14)
		assert.Equal(t, "Doc ID", row[0])
		assert.Equal(t, "Created At", row[13])
	})

	t.Run("full_receipt", func(t *testing.T) {
		var buf bytes.Buffer
		w := export.NewCSVWriter(&buf)
		require.NoError(t, w.WriteReceipts([]domain.Receipt{sampleReceipt()}))
		w.Flush()
		require.NoError(t, w.Error())

		row, err := csv.NewReader(&buf).Read()
		require.NoError(t, err)
		assert.Equal(t, []string{
			"r_20251010_abcdef",
			"2025-10-10",
			"デンキチ",
			"36990",
			"0.1",
			"クレジット",
			"T1234567890123",
			"埼玉県川口市栄町3-2-1",
			"消耗品費",
			"0.8125",
			"corrected",
			"sgd-tfidf-2025-10-10T00:05",
			"s3://archive/receipts/2025/10/r_20251010_abcdef.png",
			"2025-10-10T01:02:03Z",
		}, row)
	})

	t.Run("absent_values_are_blank", func(t *testing.T) {
		var buf bytes.Buffer
		w := export.NewCSVWriter(&buf)
		require.NoError(t, w.WriteReceipts([]domain.Receipt{{DocID: "r_1"}}))
		w.Flush()

		row, err := csv.NewReader(&buf).Read()
		require.NoError(t, err)
		assert.Equal(t, "", row[3])
		assert.Equal(t, "", row[4])
		assert.Equal(t, "", row[13])
	})
}

func TestXLSXWriter(t *testing.T) {
	w, err := export.NewXLSXWriter()
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.WriteReceipts([]domain.Receipt{sampleReceipt(), {DocID: "r_2"}}))

	var buf bytes.Buffer
	_, err = w.WriteTo(&buf)
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Receipts")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, export.Columns(), rows[0])
	assert.Equal(t, "デンキチ", rows[1][2])
	assert.Equal(t, "36990", rows[1][3])
	assert.Equal(t, "r_2", rows[2][0])

	total, err := f.GetCellType("Receipts", "D2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, total)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv; charset=utf-8", export.ContentType("csv"))
	assert.Contains(t, export.ContentType("xlsx"), "spreadsheetml")
	assert.Empty(t, export.ContentType("pdf"))
}
