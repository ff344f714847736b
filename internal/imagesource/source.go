// Package imagesource resolves the image reference of a predict request into
// bytes: an inline base64 payload, an http(s) URL or an s3://bucket/key.
package imagesource

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"receiptai/internal/config"
	"receiptai/internal/domain"
	"receiptai/internal/port"
)

const (
	defaultFetchTimeout = 20 * time.Second
	defaultMaxBytes     = 20 << 20
)

// ErrRemoteDisabled is returned for URLs when remote fetching is turned off.
var ErrRemoteDisabled = errors.New("remote image fetch is disabled")

// Ref names an image by URL or inline payload. Base64 wins when both are set.
type Ref struct {
	URL    string
	Base64 string
}

// Image is a resolved document.
type Image struct {
	Data        []byte
	ContentType string
	Origin      string
}

// Resolver fetches images. storage may be nil when no bucket is configured.
type Resolver struct {
	storage     port.ObjectStorage
	client      *http.Client
	allowRemote bool
	maxBytes    int64
}

// NewResolver creates a Resolver from the OCR settings.
func NewResolver(storage port.ObjectStorage, cfg *config.OCRConfig) *Resolver {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	maxBytes := cfg.MaxImageBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &Resolver{
		storage:     storage,
		client:      &http.Client{Timeout: timeout},
		allowRemote: cfg.AllowRemoteFetch,
		maxBytes:    maxBytes,
	}
}

func (r *Resolver) Resolve(ctx context.Context, ref Ref) (*Image, error) {
	switch {
	case strings.TrimSpace(ref.Base64) != "":
		return r.decodeBase64(ref.Base64)
	case strings.TrimSpace(ref.URL) != "":
		return r.fetch(ctx, strings.TrimSpace(ref.URL))
	}
	return nil, domain.ErrMissingImage
}

// decodeBase64 accepts bare payloads and data URLs in standard or URL-safe
// alphabets, padded or not.
func (r *Resolver) decodeBase64(payload string) (*Image, error) {
	payload = strings.TrimSpace(payload)
	contentType := ""
	if strings.HasPrefix(payload, "data:") {
		meta, data, ok := strings.Cut(payload, ",")
		if !ok {
			return nil, fmt.Errorf("imagesource.Resolve: malformed data URL: %w", domain.ErrDecode)
		}
		meta = strings.TrimPrefix(meta, "data:")
		contentType, _, _ = strings.Cut(meta, ";")
		payload = data
	}
	payload = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, payload)

	var data []byte
	var err error
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if data, err = enc.DecodeString(payload); err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("imagesource.Resolve: invalid base64: %w: %w", domain.ErrDecode, err)
	}
	if int64(len(data)) > r.maxBytes {
		return nil, fmt.Errorf("imagesource.Resolve: image exceeds %d bytes: %w", r.maxBytes, domain.ErrDecode)
	}
	return &Image{Data: data, ContentType: contentType, Origin: "base64"}, nil
}

func (r *Resolver) fetch(ctx context.Context, raw string) (*Image, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("imagesource.Resolve: %w: %w", domain.ErrFetch, err)
	}
	switch u.Scheme {
	case "s3":
		return r.fetchS3(ctx, u)
	case "http", "https":
		if !r.allowRemote {
			return nil, fmt.Errorf("imagesource.Resolve: %w: %w", domain.ErrFetch, ErrRemoteDisabled)
		}
		return r.fetchHTTP(ctx, u.String())
	}
	return nil, fmt.Errorf("imagesource.Resolve: unsupported scheme %q: %w", u.Scheme, domain.ErrFetch)
}

func (r *Resolver) fetchS3(ctx context.Context, u *url.URL) (*Image, error) {
	if r.storage == nil {
		return nil, fmt.Errorf("imagesource.Resolve: object storage is not configured: %w", domain.ErrFetch)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return nil, fmt.Errorf("imagesource.Resolve: s3 URL needs a bucket and key: %w", domain.ErrFetch)
	}
	data, err := r.storage.Download(ctx, u.Host, key)
	if err != nil {
		return nil, err
	}
	return &Image{Data: data, Origin: u.String()}, nil
}

func (r *Resolver) fetchHTTP(ctx context.Context, target string) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("imagesource.Resolve: creating request: %w: %w", domain.ErrFetch, err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, domain.WrapTimeout("imagesource.Resolve", domain.ErrFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("imagesource.Resolve: GET %s returned %d: %w", target, resp.StatusCode, domain.ErrFetch)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		return nil, domain.WrapTimeout("imagesource.Resolve", domain.ErrFetch, err)
	}
	if int64(len(data)) > r.maxBytes {
		return nil, fmt.Errorf("imagesource.Resolve: image exceeds %d bytes: %w", r.maxBytes, domain.ErrFetch)
	}
	return &Image{Data: data, ContentType: resp.Header.Get("Content-Type"), Origin: target}, nil
}
