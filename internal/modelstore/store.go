// Package modelstore persists classifier versions in the record store with a
// single latest version per task.
package modelstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"receiptai/internal/classifier"
	"receiptai/internal/domain"
	"receiptai/internal/port"
)

const (
	defaultPageSize = 100

	fieldTask        = "task"
	fieldName        = "name"
	fieldIsLatest    = "is_latest"
	fieldMetricsJSON = "metrics_json"
	fieldChunkCount  = "chunk_count"

	sortCreatedDate = "Created Date"
)

// VersionName returns the conventional version name for a save at t.
func VersionName(t time.Time) string {
	return "sgd-tfidf-" + t.UTC().Format("2006-01-02T15:04")
}

// Store saves and loads model versions through a RecordStore. Loads do not
// mutate any state and are safe for concurrent use.
type Store struct {
	records   port.RecordStore
	chunkSize int
	pageSize  int
	log       *zap.Logger
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithChunkSize sets the chunk size in bytes of the encoded blob.
func WithChunkSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// WithLogger sets the logger used for demotion warnings.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the time source used for version names.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store on top of records.
func New(records port.RecordStore, opts ...Option) *Store {
	s := &Store{
		records:   records,
		chunkSize: DefaultChunkSize,
		pageSize:  defaultPageSize,
		log:       zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveResult describes a published version and the demotion step after it.
type SaveResult struct {
	Version          *domain.ModelVersion
	Demoted          int
	DemotionFailures int
}

// Save publishes m as the latest version of task. The new record is created
// first and older latest records are demoted afterwards; the two steps are
// not atomic, so Load resolves leftovers by creation time. Demotion failures
// are logged and counted but do not fail the save. An empty name selects
// VersionName(now).
func (s *Store) Save(ctx context.Context, task, name string, m *classifier.Model, metrics map[string]any) (*SaveResult, error) {
	blob, err := Encode(m)
	if err != nil {
		return nil, err
	}
	metricsJSON, err := json.Marshal(metrics)
	if err != nil {
		return nil, domain.NewStoreError("modelstore.Store.Save: metrics", err)
	}
	if name == "" {
		name = VersionName(s.now())
	}

	chunks := Chunk(blob, s.chunkSize)
	fields := chunkFields(chunks)
	fields[fieldTask] = task
	fields[fieldName] = name
	fields[fieldIsLatest] = true
	fields[fieldMetricsJSON] = string(metricsJSON)

	rec, err := s.records.Create(ctx, domain.TypeModelVersion, fields)
	if err != nil {
		return nil, domain.NewStoreError("modelstore.Store.Save: create", err)
	}
	if rec == nil || rec.ID == "" {
		return nil, domain.NewStoreError("modelstore.Store.Save", errors.New("record store returned no id"))
	}

	demoted, failures := s.demoteOthers(ctx, task, rec.ID)

	version := toVersion(rec)
	version.Task = task
	version.Name = name
	version.IsLatest = true
	version.Metrics = metrics
	version.Chunks = chunks

	s.log.Info("modelstore.Store.Save: published model version",
		zap.String("task", task),
		zap.String("id", rec.ID),
		zap.String("name", name),
		zap.Int("chunks", len(chunks)),
		zap.Int("demoted", demoted),
		zap.Int("demotion_failures", failures),
	)
	return &SaveResult{Version: version, Demoted: demoted, DemotionFailures: failures}, nil
}

// demoteOthers clears is_latest on every latest record of task except keep.
// All ids are collected before updating so paging is not disturbed by the
// updates themselves.
func (s *Store) demoteOthers(ctx context.Context, task, keep string) (demoted, failures int) {
	var ids []string
	cursor := ""
	for {
		page, err := s.records.Search(ctx, domain.TypeModelVersion, port.SearchQuery{
			Constraints: latestConstraints(task),
			Limit:       s.pageSize,
			Cursor:      cursor,
		})
		if err != nil {
			s.log.Warn("modelstore.Store.demoteOthers: search for previous latest failed",
				zap.String("task", task), zap.Error(err))
			failures++
			break
		}
		for _, r := range page.Results {
			if r.ID != keep {
				ids = append(ids, r.ID)
			}
		}
		if page.Cursor == "" || len(page.Results) == 0 {
			break
		}
		cursor = page.Cursor
	}

	for _, id := range ids {
		if _, err := s.records.Update(ctx, domain.TypeModelVersion, id, map[string]any{fieldIsLatest: false}); err != nil {
			s.log.Warn("modelstore.Store.demoteOthers: demote failed",
				zap.String("task", task), zap.String("id", id), zap.Error(err))
			failures++
			continue
		}
		demoted++
	}
	return demoted, failures
}

// Loaded is the latest version of a task. Model is nil when the record
// carries no blob.
type Loaded struct {
	Version *domain.ModelVersion
	Model   *classifier.Model
}

// Require returns the model for callers that build on it. A nil Loaded means
// the task was never trained and yields (nil, nil); a record without a blob
// is a store error.
func (l *Loaded) Require() (*classifier.Model, error) {
	if l == nil {
		return nil, nil
	}
	if l.Model == nil {
		id := ""
		if l.Version != nil {
			id = l.Version.ID
		}
		return nil, domain.NewStoreError("modelstore.Loaded.Require", fmt.Errorf("version %q has no model blob", id))
	}
	return l.Model, nil
}

// Load returns the most recently created latest version of task, or nil
// when none exists.
func (s *Store) Load(ctx context.Context, task string) (*Loaded, error) {
	page, err := s.records.Search(ctx, domain.TypeModelVersion, port.SearchQuery{
		Constraints: latestConstraints(task),
		Limit:       1,
		SortField:   sortCreatedDate,
		Descending:  true,
	})
	if err != nil {
		return nil, domain.NewStoreError("modelstore.Store.Load: search", err)
	}
	if len(page.Results) == 0 {
		return nil, nil
	}

	rec := page.Results[0]
	version := toVersion(&rec)
	chunks, err := collectChunks(rec.Fields)
	if err != nil {
		return nil, domain.NewStoreError("modelstore.Store.Load: chunks", err)
	}
	version.Chunks = chunks
	if len(chunks) == 0 {
		return &Loaded{Version: version}, nil
	}

	m, err := Decode(strings.Join(chunks, ""))
	if err != nil {
		return nil, err
	}
	return &Loaded{Version: version, Model: m}, nil
}

// List returns version metadata for task, newest first, without blobs.
func (s *Store) List(ctx context.Context, task string, limit int) ([]domain.ModelVersion, error) {
	if limit <= 0 {
		limit = s.pageSize
	}
	var out []domain.ModelVersion
	cursor := ""
	for len(out) < limit {
		page, err := s.records.Search(ctx, domain.TypeModelVersion, port.SearchQuery{
			Constraints: []port.Constraint{{Key: fieldTask, Operator: port.OpEquals, Value: task}},
			Limit:       min(s.pageSize, limit-len(out)),
			Cursor:      cursor,
			SortField:   sortCreatedDate,
			Descending:  true,
		})
		if err != nil {
			return nil, domain.NewStoreError("modelstore.Store.List: search", err)
		}
		for i := range page.Results {
			out = append(out, *toVersion(&page.Results[i]))
		}
		if page.Cursor == "" || len(page.Results) == 0 {
			break
		}
		cursor = page.Cursor
	}
	return out, nil
}

func latestConstraints(task string) []port.Constraint {
	return []port.Constraint{
		{Key: fieldTask, Operator: port.OpEquals, Value: task},
		{Key: fieldIsLatest, Operator: port.OpEquals, Value: true},
	}
}

func toVersion(rec *port.Record) *domain.ModelVersion {
	v := &domain.ModelVersion{
		ID:        rec.ID,
		Task:      rec.String(fieldTask),
		Name:      rec.String(fieldName),
		IsLatest:  rec.Bool(fieldIsLatest),
		CreatedAt: rec.CreatedAt,
	}
	if raw := rec.String(fieldMetricsJSON); raw != "" {
		var metrics map[string]any
		if json.Unmarshal([]byte(raw), &metrics) == nil {
			v.Metrics = metrics
		}
	}
	return v
}
