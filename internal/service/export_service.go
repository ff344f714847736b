package service

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"receiptai/internal/domain"
	"receiptai/internal/export"
	"receiptai/internal/port"
	"receiptai/internal/recordstore"
)

// ExportInput selects the receipts to export.
type ExportInput struct {
	Format string `form:"format"`
	Status string `form:"status"`
}

// ExportService defines the receipt export contract.
type ExportService interface {
	// Export writes the selected receipts to w and returns the row count.
	Export(ctx context.Context, input ExportInput, w io.Writer) (int, error)
}

type exportService struct {
	records port.RecordStore
	log     *zap.Logger
}

// NewExportService creates a new ExportService implementation.
func NewExportService(records port.RecordStore, logger *zap.Logger) ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &exportService{records: records, log: logger}
}

// ValidateExportInput fills the default format and rejects unknown values.
func ValidateExportInput(input *ExportInput) error {
	if input.Format == "" {
		input.Format = export.FormatCSV
	}
	if export.ContentType(input.Format) == "" {
		return fmt.Errorf("unknown export format %q: %w", input.Format, domain.ErrInvalidInput)
	}
	switch domain.ReceiptStatus(input.Status) {
	case "", domain.ReceiptStatusPredicted, domain.ReceiptStatusCorrected:
	default:
		return fmt.Errorf("unknown receipt status %q: %w", input.Status, domain.ErrInvalidInput)
	}
	return nil
}

type receiptWriter interface {
	WriteHeader() error
	WriteReceipts([]domain.Receipt) error
}

func (s *exportService) Export(ctx context.Context, input ExportInput, w io.Writer) (int, error) {
	if err := ValidateExportInput(&input); err != nil {
		return 0, err
	}

	var (
		rw     receiptWriter
		finish func() error
	)
	switch input.Format {
	case export.FormatXLSX:
		xw, err := export.NewXLSXWriter()
		if err != nil {
			return 0, err
		}
		defer func() { _ = xw.Close() }()
		rw = xw
		finish = func() error {
			_, err := xw.WriteTo(w)
			return err
		}
	default:
		if _, err := w.Write(export.BOM); err != nil {
			return 0, err
		}
		cw := export.NewCSVWriter(w)
		rw = cw
		finish = func() error {
			cw.Flush()
			return cw.Error()
		}
	}

	if err := rw.WriteHeader(); err != nil {
		return 0, fmt.Errorf("writing header: %w", err)
	}

	var constraints []port.Constraint
	if input.Status != "" {
		constraints = append(constraints, port.Constraint{Key: fieldStatus, Operator: port.OpEquals, Value: input.Status})
	}

	total := 0
	cursor := ""
	for {
		page, err := s.records.Search(ctx, domain.TypeReceipt, port.SearchQuery{
			Constraints: constraints,
			Limit:       recordstore.MaxPageSize,
			Cursor:      cursor,
			SortField:   recordstore.SortCreatedDate,
		})
		if err != nil {
			return total, fmt.Errorf("listing receipts: %w", asServiceError(err))
		}
		receipts := make([]domain.Receipt, len(page.Results))
		for i := range page.Results {
			receipts[i] = toReceipt(&page.Results[i])
		}
		if err := rw.WriteReceipts(receipts); err != nil {
			return total, fmt.Errorf("writing receipts: %w", err)
		}
		total += len(receipts)
		if page.Cursor == "" || len(page.Results) == 0 {
			break
		}
		cursor = page.Cursor
	}

	if err := finish(); err != nil {
		return total, fmt.Errorf("finishing %s export: %w", input.Format, err)
	}
	s.log.Info("exportService.Export: receipts exported",
		zap.String("format", input.Format), zap.String("status", input.Status), zap.Int("rows", total))
	return total, nil
}
