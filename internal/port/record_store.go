package port

import (
	"context"
	"time"
)

// Constraint operators understood by every RecordStore implementation.
const (
	OpEquals       = "equals"
	OpNotEqual     = "not equal"
	OpIsEmpty      = "is_empty"
	OpIsNotEmpty   = "is_not_empty"
	OpTextContains = "text contains"
)

// Record is a generic stored object: an id, its type and free-form fields.
type Record struct {
	ID         string         `json:"_id"`
	Type       string         `json:"-"`
	CreatedAt  time.Time      `json:"Created Date"`
	ModifiedAt time.Time      `json:"Modified Date"`
	Fields     map[string]any `json:"-"`
}

// String returns the named field as a string, or "" when absent.
func (r *Record) String(key string) string {
	if r == nil || r.Fields == nil {
		return ""
	}
	if s, ok := r.Fields[key].(string); ok {
		return s
	}
	return ""
}

// Bool returns the named field as a bool.
func (r *Record) Bool(key string) bool {
	if r == nil || r.Fields == nil {
		return false
	}
	b, _ := r.Fields[key].(bool)
	return b
}

// Constraint is one search filter: {key, operator, value}.
type Constraint struct {
	Key      string `json:"key"`
	Operator string `json:"constraint_type"`
	Value    any    `json:"value,omitempty"`
}

// SearchQuery selects records of one type.
type SearchQuery struct {
	Constraints []Constraint
	Limit       int
	Cursor      string
	SortField   string
	Descending  bool
}

// SearchPage is one page of search results. Cursor is empty when no more
// results exist.
type SearchPage struct {
	Results []Record
	Cursor  string
}

// RecordStore is the generic blob/record store backing receipts, feedback
// and model versions.
type RecordStore interface {
	Create(ctx context.Context, recordType string, fields map[string]any) (*Record, error)
	Update(ctx context.Context, recordType, id string, fields map[string]any) (*Record, error)
	Get(ctx context.Context, recordType, id string) (*Record, error)
	Search(ctx context.Context, recordType string, query SearchQuery) (*SearchPage, error)
}

// HealthChecker is implemented by dependencies probed by the readiness check.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
