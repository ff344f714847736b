package export

import (
	"encoding/csv"
	"io"

	"receiptai/internal/domain"
)

// BOM is written first so spreadsheet apps read the file as UTF-8.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter wraps csv.Writer for exporting receipts.
type CSVWriter struct {
	csv *csv.Writer
}

// NewCSVWriter creates a CSVWriter that writes to w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{csv: csv.NewWriter(w)}
}

func (w *CSVWriter) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteReceipts writes one row per receipt.
func (w *CSVWriter) WriteReceipts(receipts []domain.Receipt) error {
	for i := range receipts {
		if err := w.csv.Write(receiptToRow(&receipts[i])); err != nil {
			return err
		}
	}
	return nil
}

func (w *CSVWriter) Flush() {
	w.csv.Flush()
}

func (w *CSVWriter) Error() error {
	return w.csv.Error()
}
