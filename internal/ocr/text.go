package ocr

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"receiptai/internal/domain"
	"receiptai/internal/port"
)

// EngineText names the recognizer for documents that are already text.
const EngineText = "text"

// TextRecognizer reads UTF-8 text documents as-is.
type TextRecognizer struct{}

// NewTextRecognizer creates a TextRecognizer.
func NewTextRecognizer() *TextRecognizer { return &TextRecognizer{} }

func (t *TextRecognizer) Recognize(ctx context.Context, input port.RecognizeInput) (*port.RecognizeOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.WrapTimeout("ocr.TextRecognizer.Recognize", domain.ErrService, err)
	}
	if !utf8.Valid(input.Data) {
		return nil, fmt.Errorf("ocr.TextRecognizer.Recognize: not UTF-8 text: %w", domain.ErrDecode)
	}
	text := strings.TrimPrefix(string(input.Data), "\ufeff")
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("ocr.TextRecognizer.Recognize: empty document: %w", domain.ErrDecode)
	}
	return &port.RecognizeOutput{Text: text, Engine: EngineText, Confidence: 1}, nil
}
