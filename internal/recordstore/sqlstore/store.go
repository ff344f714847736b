package sqlstore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"receiptai/internal/domain"
	"receiptai/internal/port"
	"receiptai/internal/recordstore"
)

// maxIndexedValue bounds thing_fields.field_value so the btree index stays
// within PostgreSQL's row size limit. Longer values are stored as a digest,
// which keeps equality filters exact.
const maxIndexedValue = 1024

type thingRow struct {
	ID         string `db:"id"`
	RecordType string `db:"record_type"`
	CreatedAt  int64  `db:"created_at"`
	ModifiedAt int64  `db:"modified_at"`
	Fields     string `db:"fields"`
}

// Store implements port.RecordStore on a SQL database.
type Store struct {
	db             *sqlx.DB
	maxFieldLength int
	now            func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithMaxFieldLength rejects string fields longer than n bytes.
func WithMaxFieldLength(n int) Option {
	return func(s *Store) { s.maxFieldLength = n }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store on a migrated database.
func New(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Create(ctx context.Context, recordType string, fields map[string]any) (*port.Record, error) {
	if err := recordstore.CheckFieldLength(fields, s.maxFieldLength); err != nil {
		return nil, fmt.Errorf("sqlstore.Store.Create: %w", err)
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("sqlstore.Store.Create: %w: %w", domain.ErrInvalidInput, err)
	}
	row := thingRow{
		ID:         uuid.NewString(),
		RecordType: recordType,
		CreatedAt:  s.now().UTC().UnixMicro(),
		Fields:     string(raw),
	}
	row.ModifiedAt = row.CreatedAt

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, domain.WrapTimeout("sqlstore.Store.Create", domain.ErrService, err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO things (id, record_type, created_at, modified_at, fields) VALUES (?, ?, ?, ?, ?)`),
		row.ID, row.RecordType, row.CreatedAt, row.ModifiedAt, row.Fields)
	if err != nil {
		return nil, domain.WrapTimeout("sqlstore.Store.Create", domain.ErrService, err)
	}
	if err := s.putFields(ctx, tx, row.ID, fields); err != nil {
		return nil, domain.WrapTimeout("sqlstore.Store.Create", domain.ErrService, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, domain.WrapTimeout("sqlstore.Store.Create", domain.ErrService, err)
	}
	return toRecord(&row)
}

// Update merges fields into an existing record.
func (s *Store) Update(ctx context.Context, recordType, id string, fields map[string]any) (*port.Record, error) {
	if err := recordstore.CheckFieldLength(fields, s.maxFieldLength); err != nil {
		return nil, fmt.Errorf("sqlstore.Store.Update: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, domain.WrapTimeout("sqlstore.Store.Update", domain.ErrService, err)
	}
	defer tx.Rollback() //nolint:errcheck

	var row thingRow
	err = tx.GetContext(ctx, &row, s.db.Rebind(
		`SELECT id, record_type, created_at, modified_at, fields FROM things WHERE record_type = ? AND id = ?`),
		recordType, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sqlstore.Store.Update: %s %s: %w", recordType, id, domain.ErrNotFound)
		}
		return nil, domain.WrapTimeout("sqlstore.Store.Update", domain.ErrService, err)
	}

	merged := map[string]any{}
	if err := json.Unmarshal([]byte(row.Fields), &merged); err != nil {
		return nil, fmt.Errorf("sqlstore.Store.Update: stored fields: %w: %w", domain.ErrService, err)
	}
	for k, v := range fields {
		merged[k] = v
	}
	raw, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("sqlstore.Store.Update: %w: %w", domain.ErrInvalidInput, err)
	}
	row.Fields = string(raw)
	row.ModifiedAt = max(s.now().UTC().UnixMicro(), row.CreatedAt)

	_, err = tx.ExecContext(ctx, s.db.Rebind(
		`UPDATE things SET fields = ?, modified_at = ? WHERE id = ?`),
		row.Fields, row.ModifiedAt, row.ID)
	if err != nil {
		return nil, domain.WrapTimeout("sqlstore.Store.Update", domain.ErrService, err)
	}
	if err := s.putFields(ctx, tx, row.ID, fields); err != nil {
		return nil, domain.WrapTimeout("sqlstore.Store.Update", domain.ErrService, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, domain.WrapTimeout("sqlstore.Store.Update", domain.ErrService, err)
	}
	return toRecord(&row)
}

func (s *Store) Get(ctx context.Context, recordType, id string) (*port.Record, error) {
	var row thingRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(
		`SELECT id, record_type, created_at, modified_at, fields FROM things WHERE record_type = ? AND id = ?`),
		recordType, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sqlstore.Store.Get: %s %s: %w", recordType, id, domain.ErrNotFound)
		}
		return nil, domain.WrapTimeout("sqlstore.Store.Get", domain.ErrService, err)
	}
	return toRecord(&row)
}

// Search translates constraints into EXISTS filters over thing_fields. The
// cursor is the offset of the next page.
func (s *Store) Search(ctx context.Context, recordType string, q port.SearchQuery) (*port.SearchPage, error) {
	if err := recordstore.ValidateConstraints(q.Constraints); err != nil {
		return nil, fmt.Errorf("sqlstore.Store.Search: %w", err)
	}
	offset, err := recordstore.ParseCursor(q.Cursor)
	if err != nil {
		return nil, fmt.Errorf("sqlstore.Store.Search: %w", err)
	}
	limit := recordstore.PageLimit(q.Limit)

	var sb strings.Builder
	sb.WriteString(`SELECT t.id, t.record_type, t.created_at, t.modified_at, t.fields FROM things t WHERE t.record_type = ?`)
	args := []any{recordType}
	for _, c := range q.Constraints {
		cond, condArgs := constraintSQL(c)
		sb.WriteString(" AND ")
		sb.WriteString(cond)
		args = append(args, condArgs...)
	}
	order, orderArgs := orderSQL(q.SortField, q.Descending)
	sb.WriteString(" ORDER BY ")
	sb.WriteString(order)
	args = append(args, orderArgs...)
	sb.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, limit+1, offset)

	var rows []thingRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(sb.String()), args...); err != nil {
		return nil, domain.WrapTimeout("sqlstore.Store.Search", domain.ErrService, err)
	}

	page := &port.SearchPage{Results: make([]port.Record, 0, min(len(rows), limit))}
	if len(rows) > limit {
		rows = rows[:limit]
		page.Cursor = strconv.Itoa(offset + limit)
	}
	for i := range rows {
		rec, err := toRecord(&rows[i])
		if err != nil {
			return nil, fmt.Errorf("sqlstore.Store.Search: %w", err)
		}
		page.Results = append(page.Results, *rec)
	}
	return page, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// putFields upserts the filter rows of the given fields.
func (s *Store) putFields(ctx context.Context, tx *sqlx.Tx, id string, fields map[string]any) error {
	query := s.db.Rebind(`INSERT INTO thing_fields (thing_id, field_key, field_value, text_value, num_value)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (thing_id, field_key) DO UPDATE SET
			field_value = excluded.field_value,
			text_value = excluded.text_value,
			num_value = excluded.num_value`)
	for key, v := range fields {
		var text sql.NullString
		if str, ok := v.(string); ok {
			text = sql.NullString{String: str, Valid: true}
		}
		var num sql.NullFloat64
		if f, ok := recordstore.ToFloat(v); ok {
			num = sql.NullFloat64{Float64: f, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, query, id, key, indexValue(v), text, num); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
	}
	return nil
}

// emptyValues are the canonical forms is_empty treats as empty.
var emptyValues = []any{"null", `""`, "[]", "{}"}

func constraintSQL(c port.Constraint) (string, []any) {
	const exists = `EXISTS (SELECT 1 FROM thing_fields f WHERE f.thing_id = t.id AND f.field_key = ?`
	switch c.Operator {
	case port.OpEquals:
		return exists + ` AND f.field_value = ?)`, []any{c.Key, indexValue(c.Value)}
	case port.OpNotEqual:
		return `NOT ` + exists + ` AND f.field_value = ?)`, []any{c.Key, indexValue(c.Value)}
	case port.OpIsEmpty:
		return `NOT ` + exists + ` AND f.field_value NOT IN (?, ?, ?, ?))`, append([]any{c.Key}, emptyValues...)
	case port.OpIsNotEmpty:
		return exists + ` AND f.field_value NOT IN (?, ?, ?, ?))`, append([]any{c.Key}, emptyValues...)
	default: // port.OpTextContains
		needle, _ := c.Value.(string)
		return exists + ` AND LOWER(f.text_value) LIKE ? ESCAPE '\')`, []any{c.Key, "%" + escapeLike(strings.ToLower(needle)) + "%"}
	}
}

// orderSQL sorts like recordstore.CompareField: missing fields first when
// ascending, insertion order on ties.
func orderSQL(field string, desc bool) (string, []any) {
	dir, nulls := " ASC", " NULLS FIRST"
	if desc {
		dir, nulls = " DESC", " NULLS LAST"
	}
	switch field {
	case "":
		return "t.seq ASC", nil
	case recordstore.SortCreatedDate:
		return "t.created_at" + dir + ", t.seq" + dir, nil
	case recordstore.SortModifiedDate:
		return "t.modified_at" + dir + ", t.seq" + dir, nil
	}
	const sub = `(SELECT f.%s FROM thing_fields f WHERE f.thing_id = t.id AND f.field_key = ?)`
	return fmt.Sprintf(sub, "num_value") + dir + nulls + ", " +
			fmt.Sprintf(sub, "text_value") + dir + nulls + ", t.seq" + dir,
		[]any{field, field}
}

// indexValue is the canonical JSON of v, or a digest of it when too long to
// index. JSON never starts with '#', so digests cannot collide with values.
func indexValue(v any) string {
	canonical := recordstore.Canonical(v)
	if len(canonical) <= maxIndexedValue {
		return canonical
	}
	sum := sha256.Sum256([]byte(canonical))
	return "#sha256:" + hex.EncodeToString(sum[:])
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func toRecord(row *thingRow) (*port.Record, error) {
	fields := map[string]any{}
	if err := json.Unmarshal([]byte(row.Fields), &fields); err != nil {
		return nil, fmt.Errorf("record %s: %w: %w", row.ID, domain.ErrService, err)
	}
	return &port.Record{
		ID:         row.ID,
		Type:       row.RecordType,
		CreatedAt:  time.UnixMicro(row.CreatedAt).UTC(),
		ModifiedAt: time.UnixMicro(row.ModifiedAt).UTC(),
		Fields:     fields,
	}, nil
}
