// Package bubble is a RecordStore backed by the Bubble Data API.
package bubble

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"receiptai/internal/config"
	"receiptai/internal/domain"
	"receiptai/internal/port"
	"receiptai/internal/recordstore"
)

const (
	keyID           = "_id"
	keyCreatedDate  = "Created Date"
	keyModifiedDate = "Modified Date"

	defaultTimeout = 30 * time.Second
	maxErrorBody   = 512
)

// Client talks to <base>/obj/<type>. Responses carry the record or search
// page under "response".
type Client struct {
	base     string
	apiKey   string
	client   *http.Client
	pingType string
	now      func() time.Time
}

// NewClient creates a Client. base must already be normalized with
// config.NormalizeBubbleBase.
func NewClient(cfg *config.BubbleConfig, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		base:     cfg.APIBase,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
		pingType: domain.TypeReceipt,
		now:      time.Now,
	}
}

type createResponse struct {
	ID       string `json:"id"`
	Response struct {
		ID string `json:"id"`
	} `json:"response"`
}

type getResponse struct {
	Response map[string]any `json:"response"`
}

type searchResponse struct {
	Response struct {
		Cursor    int              `json:"cursor"`
		Results   []map[string]any `json:"results"`
		Remaining int              `json:"remaining"`
		Count     int              `json:"count"`
	} `json:"response"`
}

// Create posts a new record. Bubble only returns the id, so the timestamps of
// the returned record are local approximations.
func (c *Client) Create(ctx context.Context, recordType string, fields map[string]any) (*port.Record, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("bubble.Client.Create: %w: %w", domain.ErrInvalidInput, err)
	}
	raw, err := c.do(ctx, "bubble.Client.Create", http.MethodPost, c.objURL(recordType, ""), body)
	if err != nil {
		return nil, err
	}

	var resp createResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("bubble.Client.Create: decoding response: %w: %w", domain.ErrService, err)
	}
	id := resp.Response.ID
	if id == "" {
		id = resp.ID
	}
	if id == "" {
		return nil, fmt.Errorf("bubble.Client.Create: response has no id: %w", domain.ErrService)
	}
	now := c.now().UTC()
	return &port.Record{
		ID:         id,
		Type:       recordType,
		CreatedAt:  now,
		ModifiedAt: now,
		Fields:     recordstore.CopyFields(fields),
	}, nil
}

// Update patches fields and returns the record as stored afterwards.
func (c *Client) Update(ctx context.Context, recordType, id string, fields map[string]any) (*port.Record, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("bubble.Client.Update: %w: %w", domain.ErrInvalidInput, err)
	}
	if _, err := c.do(ctx, "bubble.Client.Update", http.MethodPatch, c.objURL(recordType, id), body); err != nil {
		return nil, err
	}
	return c.Get(ctx, recordType, id)
}

func (c *Client) Get(ctx context.Context, recordType, id string) (*port.Record, error) {
	raw, err := c.do(ctx, "bubble.Client.Get", http.MethodGet, c.objURL(recordType, id), nil)
	if err != nil {
		return nil, err
	}
	var resp getResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("bubble.Client.Get: decoding response: %w: %w", domain.ErrService, err)
	}
	if resp.Response == nil {
		return nil, fmt.Errorf("bubble.Client.Get: %s %s: %w", recordType, id, domain.ErrNotFound)
	}
	return toRecord(recordType, resp.Response), nil
}

// Search runs a constrained query. The next cursor is the offset after this
// page and is only set while Bubble reports remaining results.
func (c *Client) Search(ctx context.Context, recordType string, q port.SearchQuery) (*port.SearchPage, error) {
	if err := recordstore.ValidateConstraints(q.Constraints); err != nil {
		return nil, fmt.Errorf("bubble.Client.Search: %w", err)
	}
	offset, err := recordstore.ParseCursor(q.Cursor)
	if err != nil {
		return nil, fmt.Errorf("bubble.Client.Search: %w", err)
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(recordstore.PageLimit(q.Limit)))
	if offset > 0 {
		params.Set("cursor", strconv.Itoa(offset))
	}
	if len(q.Constraints) > 0 {
		constraints, err := json.Marshal(q.Constraints)
		if err != nil {
			return nil, fmt.Errorf("bubble.Client.Search: %w: %w", domain.ErrInvalidInput, err)
		}
		params.Set("constraints", string(constraints))
	}
	if q.SortField != "" {
		params.Set("sort_field", q.SortField)
		if q.Descending {
			params.Set("descending", "true")
		}
	}

	raw, err := c.do(ctx, "bubble.Client.Search", http.MethodGet, c.objURL(recordType, "")+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var resp searchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("bubble.Client.Search: decoding response: %w: %w", domain.ErrService, err)
	}

	page := &port.SearchPage{Results: make([]port.Record, 0, len(resp.Response.Results))}
	for _, obj := range resp.Response.Results {
		page.Results = append(page.Results, *toRecord(recordType, obj))
	}
	if resp.Response.Remaining > 0 && len(page.Results) > 0 {
		page.Cursor = strconv.Itoa(resp.Response.Cursor + len(page.Results))
	}
	return page, nil
}

// Ping runs a one-record search.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Search(ctx, c.pingType, port.SearchQuery{Limit: 1})
	return err
}

func (c *Client) objURL(recordType, id string) string {
	u := c.base + "/obj/" + url.PathEscape(recordType)
	if id != "" {
		u += "/" + url.PathEscape(id)
	}
	return u
}

func (c *Client) do(ctx context.Context, op, method, target string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: creating request: %w: %w", op, domain.ErrService, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, domain.WrapTimeout(op, domain.ErrService, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.WrapTimeout(op, domain.ErrService, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		if len(raw) > maxErrorBody {
			raw = raw[:maxErrorBody]
		}
		return nil, fmt.Errorf("%s: bubble API error (status %d): %s: %w", op, resp.StatusCode, string(raw), domain.ErrService)
	}
	return raw, nil
}

func toRecord(recordType string, obj map[string]any) *port.Record {
	rec := &port.Record{Type: recordType, Fields: make(map[string]any, len(obj))}
	for k, v := range obj {
		switch k {
		case keyID:
			rec.ID, _ = v.(string)
		case keyCreatedDate:
			rec.CreatedAt = parseTime(v)
		case keyModifiedDate:
			rec.ModifiedAt = parseTime(v)
		default:
			rec.Fields[k] = v
		}
	}
	return rec
}

func parseTime(v any) time.Time {
	s, _ := v.(string)
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
