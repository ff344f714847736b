// Package recordstore holds the constraint semantics shared by the
// RecordStore backends.
package recordstore

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"receiptai/internal/domain"
	"receiptai/internal/port"
)

// Sort keys that refer to record timestamps rather than fields.
const (
	SortCreatedDate  = "Created Date"
	SortModifiedDate = "Modified Date"

	// MaxPageSize is the largest page any backend returns.
	MaxPageSize = 100
)

// PageLimit clamps a requested limit to (0, MaxPageSize]. Zero or negative
// selects MaxPageSize.
func PageLimit(limit int) int {
	if limit <= 0 || limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

// ValidateConstraints rejects unknown operators.
func ValidateConstraints(cs []port.Constraint) error {
	for _, c := range cs {
		switch c.Operator {
		case port.OpEquals, port.OpNotEqual, port.OpIsEmpty, port.OpIsNotEmpty, port.OpTextContains:
		default:
			return fmt.Errorf("constraint on %q: unknown operator %q: %w", c.Key, c.Operator, domain.ErrInvalidInput)
		}
	}
	return nil
}

// MatchAll reports whether rec satisfies every constraint.
func MatchAll(rec *port.Record, cs []port.Constraint) bool {
	for _, c := range cs {
		if !Match(rec, c) {
			return false
		}
	}
	return true
}

// Match evaluates one constraint against rec.
func Match(rec *port.Record, c port.Constraint) bool {
	v, present := rec.Fields[c.Key]
	switch c.Operator {
	case port.OpEquals:
		return present && Canonical(v) == Canonical(c.Value)
	case port.OpNotEqual:
		return !present || Canonical(v) != Canonical(c.Value)
	case port.OpIsEmpty:
		return IsEmpty(v)
	case port.OpIsNotEmpty:
		return !IsEmpty(v)
	case port.OpTextContains:
		s, ok := v.(string)
		needle, _ := c.Value.(string)
		return ok && strings.Contains(strings.ToLower(s), strings.ToLower(needle))
	}
	return false
}

// Canonical renders v as compact JSON so values decoded from different
// sources compare equal (1 and 1.0, for example).
func Canonical(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// IsEmpty reports whether v is absent, null, "" or an empty collection.
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	}
	return false
}

// CompareField orders two records by a timestamp sort key or a field.
// Missing fields sort first.
func CompareField(a, b *port.Record, key string) int {
	switch key {
	case SortCreatedDate:
		return a.CreatedAt.Compare(b.CreatedAt)
	case SortModifiedDate:
		return a.ModifiedAt.Compare(b.ModifiedAt)
	}
	av, aok := a.Fields[key]
	bv, bok := b.Fields[key]
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}
	if af, ok := ToFloat(av); ok {
		if bf, ok := ToFloat(bv); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(av), fmt.Sprint(bv))
}

// CheckFieldLength rejects string fields longer than limit bytes. A limit of
// zero disables the check.
func CheckFieldLength(fields map[string]any, limit int) error {
	if limit <= 0 {
		return nil
	}
	for k, v := range fields {
		if s, ok := v.(string); ok && len(s) > limit {
			return fmt.Errorf("field %q is %d bytes, limit %d: %w", k, len(s), limit, domain.ErrInvalidInput)
		}
	}
	return nil
}

// CopyFields returns a shallow copy of fields.
func CopyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// ParseCursor decodes an offset cursor; "" is the first page.
func ParseCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(cursor)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid cursor %q: %w", cursor, domain.ErrInvalidInput)
	}
	return n, nil
}

// ToFloat converts numeric field values to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
