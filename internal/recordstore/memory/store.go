// Package memory is an in-process RecordStore used for development and
// tests. Records are lost when the process exits.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"receiptai/internal/domain"
	"receiptai/internal/port"
	"receiptai/internal/recordstore"
)

// Store keeps records per type in insertion order.
type Store struct {
	mu             sync.RWMutex
	records        map[string][]*port.Record
	maxFieldLength int
	now            func() time.Time
	last           time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithMaxFieldLength rejects string fields longer than n bytes, like the
// hosted record store does.
func WithMaxFieldLength(n int) Option {
	return func(s *Store) { s.maxFieldLength = n }
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{records: map[string][]*port.Record{}, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new record and returns a copy of it.
func (s *Store) Create(ctx context.Context, recordType string, fields map[string]any) (*port.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.WrapTimeout("memory.Store.Create", domain.ErrService, err)
	}
	if err := recordstore.CheckFieldLength(fields, s.maxFieldLength); err != nil {
		return nil, fmt.Errorf("memory.Store.Create: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ts := s.tick()
	rec := &port.Record{
		ID:         uuid.NewString(),
		Type:       recordType,
		CreatedAt:  ts,
		ModifiedAt: ts,
		Fields:     recordstore.CopyFields(fields),
	}
	s.records[recordType] = append(s.records[recordType], rec)
	return clone(rec), nil
}

// Update merges fields into an existing record.
func (s *Store) Update(ctx context.Context, recordType, id string, fields map[string]any) (*port.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.WrapTimeout("memory.Store.Update", domain.ErrService, err)
	}
	if err := recordstore.CheckFieldLength(fields, s.maxFieldLength); err != nil {
		return nil, fmt.Errorf("memory.Store.Update: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.find(recordType, id)
	if rec == nil {
		return nil, fmt.Errorf("memory.Store.Update: %s %s: %w", recordType, id, domain.ErrNotFound)
	}
	for k, v := range fields {
		rec.Fields[k] = v
	}
	rec.ModifiedAt = s.tick()
	return clone(rec), nil
}

// Get returns one record by id.
func (s *Store) Get(ctx context.Context, recordType, id string) (*port.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.WrapTimeout("memory.Store.Get", domain.ErrService, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec := s.find(recordType, id)
	if rec == nil {
		return nil, fmt.Errorf("memory.Store.Get: %s %s: %w", recordType, id, domain.ErrNotFound)
	}
	return clone(rec), nil
}

// Search filters records by constraints. The cursor is the offset of the
// next page; pages hold at most recordstore.MaxPageSize records.
func (s *Store) Search(ctx context.Context, recordType string, q port.SearchQuery) (*port.SearchPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.WrapTimeout("memory.Store.Search", domain.ErrService, err)
	}
	if err := recordstore.ValidateConstraints(q.Constraints); err != nil {
		return nil, fmt.Errorf("memory.Store.Search: %w", err)
	}
	offset, err := recordstore.ParseCursor(q.Cursor)
	if err != nil {
		return nil, fmt.Errorf("memory.Store.Search: %w", err)
	}

	s.mu.RLock()
	var matched []*port.Record
	for _, rec := range s.records[recordType] {
		if recordstore.MatchAll(rec, q.Constraints) {
			matched = append(matched, clone(rec))
		}
	}
	s.mu.RUnlock()

	if q.SortField != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			c := recordstore.CompareField(matched[i], matched[j], q.SortField)
			if q.Descending {
				return c > 0
			}
			return c < 0
		})
	}

	page := &port.SearchPage{Results: []port.Record{}}
	if offset >= len(matched) {
		return page, nil
	}
	end := len(matched)
	if limit := recordstore.PageLimit(q.Limit); offset+limit < end {
		end = offset + limit
		page.Cursor = strconv.Itoa(end)
	}
	for _, rec := range matched[offset:end] {
		page.Results = append(page.Results, *rec)
	}
	return page, nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// tick returns a creation time strictly after the previous one so ordering
// by date matches insertion order.
func (s *Store) tick() time.Time {
	ts := s.now().UTC()
	if !ts.After(s.last) {
		ts = s.last.Add(time.Microsecond)
	}
	s.last = ts
	return ts
}

func (s *Store) find(recordType, id string) *port.Record {
	for _, rec := range s.records[recordType] {
		if rec.ID == id {
			return rec
		}
	}
	return nil
}

func clone(rec *port.Record) *port.Record {
	out := *rec
	out.Fields = recordstore.CopyFields(rec.Fields)
	return &out
}
