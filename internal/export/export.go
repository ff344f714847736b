// Package export renders stored receipts as CSV or XLSX.
package export

import (
	"strconv"
	"time"

	"receiptai/internal/domain"
)

// Formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ContentType returns the MIME type of format, or "" when unknown.
func ContentType(format string) string {
	switch format {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return ""
}

// columns defines the header row shared by both formats.
var columns = []string{
	"Doc ID",
	"Paid Date",
	"Vendor",
	"Total",
	"Tax Rate",
	"Payment Method",
	"Invoice Number",
	"Address",
	"Category",
	"Score",
	"Status",
	"Model Version",
	"Image",
	"Created At",
}

// Columns returns a copy of the header row.
func Columns() []string {
	return append([]string(nil), columns...)
}

// receiptToRow converts a receipt to a row of len(columns) cells.
func receiptToRow(r *domain.Receipt) []string {
	row := make([]string, len(columns))
	row[0] = r.DocID
	row[1] = r.PaidDate
	row[2] = r.Vendor
	if r.Total != nil {
		row[3] = strconv.FormatInt(*r.Total, 10)
	}
	if r.TaxRate != nil {
		row[4] = strconv.FormatFloat(*r.TaxRate, 'f', -1, 64)
	}
	row[5] = r.PaymentMethod
	row[6] = r.InvoiceNumber
	row[7] = r.Address
	row[8] = r.PredCategory
	row[9] = strconv.FormatFloat(r.PredScore, 'f', 4, 64)
	row[10] = string(r.Status)
	row[11] = r.ModelVersion
	row[12] = r.ImageURL
	if !r.CreatedAt.IsZero() {
		row[13] = r.CreatedAt.UTC().Format(time.RFC3339)
	}
	return row
}
