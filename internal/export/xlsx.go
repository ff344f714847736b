package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"receiptai/internal/domain"
)

const sheetName = "Receipts"

// XLSXWriter builds a single-sheet workbook in memory. Rows are appended in
// batches; WriteTo renders the workbook.
type XLSXWriter struct {
	f   *excelize.File
	row int
}

// NewXLSXWriter creates a workbook with an empty Receipts sheet.
func NewXLSXWriter() (*XLSXWriter, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("export.NewXLSXWriter: %w", err)
	}
	return &XLSXWriter{f: f, row: 1}, nil
}

func (w *XLSXWriter) WriteHeader() error {
	if err := w.writeRow(columns); err != nil {
		return err
	}
	_ = w.f.SetColWidth(sheetName, "A", "A", 22)
	_ = w.f.SetColWidth(sheetName, "B", "B", 12)
	_ = w.f.SetColWidth(sheetName, "C", "C", 28)
	_ = w.f.SetColWidth(sheetName, "H", "H", 40)
	_ = w.f.SetColWidth(sheetName, "I", "I", 16)
	return w.f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// WriteReceipts appends one row per receipt. Totals, tax rates and scores
// are written as numbers.
func (w *XLSXWriter) WriteReceipts(receipts []domain.Receipt) error {
	for i := range receipts {
		r := &receipts[i]
		cells := receiptToRow(r)
		values := make([]any, len(cells))
		for j, c := range cells {
			values[j] = c
		}
		if r.Total != nil {
			values[3] = *r.Total
		}
		if r.TaxRate != nil {
			values[4] = *r.TaxRate
		}
		values[9] = r.PredScore
		if err := w.writeValues(values); err != nil {
			return err
		}
	}
	return nil
}

func (w *XLSXWriter) writeRow(cells []string) error {
	values := make([]any, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	return w.writeValues(values)
}

func (w *XLSXWriter) writeValues(values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	if err := w.f.SetSheetRow(sheetName, cell, &values); err != nil {
		return fmt.Errorf("export.XLSXWriter: row %d: %w", w.row, err)
	}
	w.row++
	return nil
}

// WriteTo renders the workbook to dst.
func (w *XLSXWriter) WriteTo(dst io.Writer) (int64, error) {
	return w.f.WriteTo(dst)
}

func (w *XLSXWriter) Close() error {
	return w.f.Close()
}
