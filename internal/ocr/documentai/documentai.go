// Package documentai runs OCR through a Google Document AI processor.
package documentai

import (
	"context"
	"fmt"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"receiptai/internal/config"
	"receiptai/internal/domain"
	"receiptai/internal/ocr"
	"receiptai/internal/port"
)

// Engine is the registry name.
const Engine = "documentai"

func init() {
	ocr.RegisterProvider(Engine, func(ctx context.Context, cfg *config.OCRConfig) (port.Recognizer, error) {
		return New(ctx, &cfg.DocumentAI)
	})
}

// Recognizer sends raw documents to one processor.
type Recognizer struct {
	client *documentai.DocumentProcessorClient
	name   string
}

// New dials the regional Document AI endpoint.
func New(ctx context.Context, cfg *config.DocumentAIConfig) (*Recognizer, error) {
	if cfg.ProjectID == "" || cfg.ProcessorID == "" {
		return nil, fmt.Errorf("documentai: project_id and processor_id are required")
	}
	location := cfg.Location
	if location == "" {
		location = "us"
	}

	opts := []option.ClientOption{
		option.WithEndpoint(fmt.Sprintf("%s-documentai.googleapis.com:443", location)),
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating Document AI client: %w", err)
	}

	return &Recognizer{
		client: client,
		name:   fmt.Sprintf("projects/%s/locations/%s/processors/%s", cfg.ProjectID, location, cfg.ProcessorID),
	}, nil
}

func (r *Recognizer) Recognize(ctx context.Context, input port.RecognizeInput) (*port.RecognizeOutput, error) {
	resp, err := r.client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: r.name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  input.Data,
				MimeType: input.ContentType,
			},
		},
		SkipHumanReview: true,
	})
	if err != nil {
		return nil, mapError(err)
	}

	doc := resp.GetDocument()
	return &port.RecognizeOutput{
		Text:       doc.GetText(),
		Engine:     Engine,
		Confidence: pageConfidence(doc),
	}, nil
}

// Close releases the gRPC connection.
func (r *Recognizer) Close() error {
	return r.client.Close()
}

func mapError(err error) error {
	switch status.Code(err) {
	case codes.InvalidArgument:
		return fmt.Errorf("documentai.Recognize: %w: %w", domain.ErrDecode, err)
	case codes.DeadlineExceeded:
		return fmt.Errorf("documentai.Recognize: %w: %w", domain.ErrTimeout, err)
	}
	return domain.WrapTimeout("documentai.Recognize", domain.ErrService, err)
}

// pageConfidence averages the layout confidence of every page.
func pageConfidence(doc *documentaipb.Document) float64 {
	pages := doc.GetPages()
	if len(pages) == 0 {
		return 0
	}
	var sum float64
	for _, p := range pages {
		sum += float64(p.GetLayout().GetConfidence())
	}
	return sum / float64(len(pages))
}
