package ocr

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	"receiptai/internal/domain"
	"receiptai/internal/port"
)

// DetectContentType sniffs data and drops MIME parameters.
func DetectContentType(data []byte) string {
	ct := mimetype.Detect(data).String()
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}

// Prepare fills in the content type and rejects documents no engine can
// read: empty payloads, unsupported types and undecodable images.
func Prepare(input port.RecognizeInput) (port.RecognizeInput, error) {
	if len(input.Data) == 0 {
		return input, fmt.Errorf("ocr.Prepare: empty document: %w", domain.ErrDecode)
	}
	ct := input.ContentType
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.ToLower(strings.TrimSpace(ct))
	if ct == "" || ct == "application/octet-stream" {
		ct = DetectContentType(input.Data)
	}
	if !domain.AllowedContentTypes[ct] {
		return input, fmt.Errorf("ocr.Prepare: unsupported content type %q: %w", ct, domain.ErrDecode)
	}
	input.ContentType = ct
	if strings.HasPrefix(ct, "image/") {
		if _, err := ValidateImage(input.Data); err != nil {
			return input, err
		}
	}
	return input, nil
}

// ValidateImage decodes data and reports corrupt images as ErrDecode.
func ValidateImage(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("ocr.ValidateImage: %w: %w", domain.ErrDecode, err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("ocr.ValidateImage: empty image: %w", domain.ErrDecode)
	}
	return img, nil
}

// LocalImage validates data for a local engine and returns it unchanged.
// Engines receive the original pixels; no deskewing or filtering is applied.
func LocalImage(data []byte) ([]byte, error) {
	if _, err := ValidateImage(data); err != nil {
		return nil, err
	}
	return data, nil
}
