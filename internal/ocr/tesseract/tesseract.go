// Package tesseract runs OCR locally through the Tesseract C library.
package tesseract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"

	"receiptai/internal/config"
	"receiptai/internal/domain"
	"receiptai/internal/ocr"
	"receiptai/internal/port"
)

// Engine is the registry name.
const Engine = "tesseract"

const defaultLanguage = "jpn+eng"

func init() {
	ocr.RegisterProvider(Engine, func(_ context.Context, cfg *config.OCRConfig) (port.Recognizer, error) {
		return New(cfg.Language, cfg.Timeout), nil
	})
}

// Recognizer reads a single block of text, which suits receipts.
type Recognizer struct {
	language string
	timeout  time.Duration
}

// New creates a Recognizer. language uses Tesseract's "jpn+eng" form.
func New(language string, timeout time.Duration) *Recognizer {
	if language == "" {
		language = defaultLanguage
	}
	return &Recognizer{language: language, timeout: timeout}
}

type result struct {
	out *port.RecognizeOutput
	err error
}

// Recognize runs Tesseract in a goroutine so the caller's deadline is
// honored. Tesseract itself cannot be interrupted; an abandoned run finishes
// in the background and its result is dropped.
func (r *Recognizer) Recognize(ctx context.Context, input port.RecognizeInput) (*port.RecognizeOutput, error) {
	if input.ContentType == "application/pdf" || input.ContentType == "text/plain" {
		return nil, fmt.Errorf("tesseract.Recognize: cannot read %s: %w", input.ContentType, domain.ErrDecode)
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	language := r.language
	if input.Language != "" {
		language = input.Language
	}

	done := make(chan result, 1)
	go func() {
		out, err := recognize(input.Data, language)
		done <- result{out: out, err: err}
	}()

	select {
	case res := <-done:
		return res.out, res.err
	case <-ctx.Done():
		return nil, domain.WrapTimeout("tesseract.Recognize", domain.ErrService, ctx.Err())
	}
}

func recognize(data []byte, language string) (*port.RecognizeOutput, error) {
	img, err := ocr.LocalImage(data)
	if err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer func() { _ = client.Close() }()

	if err := client.SetLanguage(strings.Split(language, "+")...); err != nil {
		return nil, fmt.Errorf("tesseract.Recognize: set language: %w: %w", domain.ErrService, err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return nil, fmt.Errorf("tesseract.Recognize: set page mode: %w: %w", domain.ErrService, err)
	}
	if err := client.SetImageFromBytes(img); err != nil {
		return nil, fmt.Errorf("tesseract.Recognize: set image: %w: %w", domain.ErrDecode, err)
	}
	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("tesseract.Recognize: %w: %w", domain.ErrService, err)
	}

	return &port.RecognizeOutput{
		Text:       text,
		Engine:     Engine,
		Confidence: meanConfidence(client),
	}, nil
}

func meanConfidence(client *gosseract.Client) float64 {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return sum / float64(len(boxes)) / 100
}
