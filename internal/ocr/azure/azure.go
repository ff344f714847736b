// Package azure runs OCR through Azure Computer Vision.
package azure

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"

	"receiptai/internal/config"
	"receiptai/internal/domain"
	"receiptai/internal/ocr"
	"receiptai/internal/port"
)

// Engine is the registry name.
const Engine = "azure"

func init() {
	ocr.RegisterProvider(Engine, func(_ context.Context, cfg *config.OCRConfig) (port.Recognizer, error) {
		return New(&cfg.Azure, cfg.Language)
	})
}

// Recognizer calls the printed-text OCR operation.
type Recognizer struct {
	client   computervision.BaseClient
	language computervision.OcrLanguages
}

// New creates a Recognizer for one Cognitive Services endpoint.
func New(cfg *config.AzureOCRConfig, language string) (*Recognizer, error) {
	if cfg.Endpoint == "" || cfg.Key == "" {
		return nil, fmt.Errorf("azure ocr: endpoint and key are required")
	}
	client := computervision.New(cfg.Endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(cfg.Key)
	return &Recognizer{client: client, language: ocrLanguage(language)}, nil
}

func (r *Recognizer) Recognize(ctx context.Context, input port.RecognizeInput) (*port.RecognizeOutput, error) {
	if !strings.HasPrefix(input.ContentType, "image/") {
		return nil, fmt.Errorf("azure.Recognize: cannot read %s: %w", input.ContentType, domain.ErrDecode)
	}
	language := r.language
	if input.Language != "" {
		language = ocrLanguage(input.Language)
	}

	result, err := r.client.RecognizePrintedTextInStream(ctx, true, io.NopCloser(bytes.NewReader(input.Data)), language)
	if err != nil {
		return nil, mapError(err)
	}
	return &port.RecognizeOutput{Text: resultText(result), Engine: Engine}, nil
}

// ocrLanguage maps Tesseract-style language lists to the service's codes.
// Japanese wins when present since receipts are mostly Japanese.
func ocrLanguage(language string) computervision.OcrLanguages {
	for _, l := range strings.Split(language, "+") {
		if l == "jpn" || l == "ja" {
			return computervision.OcrLanguagesJa
		}
	}
	return computervision.OcrLanguagesEn
}

func mapError(err error) error {
	var detailed autorest.DetailedError
	if errors.As(err, &detailed) {
		if code, ok := detailed.StatusCode.(int); ok && code == http.StatusBadRequest {
			return fmt.Errorf("azure.Recognize: %w: %w", domain.ErrDecode, err)
		}
	}
	return domain.WrapTimeout("azure.Recognize", domain.ErrService, err)
}

// resultText joins words with spaces and lines with newlines in reading
// order.
func resultText(result computervision.OcrResult) string {
	if result.Regions == nil {
		return ""
	}
	var sb strings.Builder
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			words := make([]string, 0, len(*line.Words))
			for _, w := range *line.Words {
				if w.Text != nil {
					words = append(words, *w.Text)
				}
			}
			sb.WriteString(strings.Join(words, " "))
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
