package port

import "context"

// RecognizeInput carries the document bytes handed to an OCR backend.
type RecognizeInput struct {
	Data        []byte
	ContentType string
	Language    string
}

// RecognizeOutput is the raw text an OCR backend produced.
type RecognizeOutput struct {
	Text       string
	Engine     string
	Confidence float64
}

// Recognizer abstracts an OCR backend. Failures wrap domain.ErrFetch,
// domain.ErrDecode, domain.ErrService or domain.ErrTimeout.
type Recognizer interface {
	Recognize(ctx context.Context, input RecognizeInput) (*RecognizeOutput, error)
}
