// Package storetest holds the behavior every RecordStore backend shares, as a
// reusable test suite.
package storetest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receiptai/internal/domain"
	"receiptai/internal/port"
	"receiptai/internal/recordstore"
)

// Run exercises a RecordStore. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) port.RecordStore) {
	ctx := context.Background()

	t.Run("create_and_get", func(t *testing.T) {
		s := newStore(t)
		rec, err := s.Create(ctx, "Receipt", map[string]any{"doc_id": "r_1", "total": 1200, "ok": true})
		require.NoError(t, err)
		assert.NotEmpty(t, rec.ID)
		assert.False(t, rec.CreatedAt.IsZero())

		got, err := s.Get(ctx, "Receipt", rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, got.ID)
		assert.Equal(t, "r_1", got.String("doc_id"))
		assert.True(t, got.Bool("ok"))
		assert.EqualValues(t, 1200, got.Fields["total"])
	})

	t.Run("get_missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "Receipt", "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("types_are_isolated", func(t *testing.T) {
		s := newStore(t)
		rec, err := s.Create(ctx, "Receipt", map[string]any{"a": "1"})
		require.NoError(t, err)
		_, err = s.Get(ctx, "Feedback", rec.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("update_merges_fields", func(t *testing.T) {
		s := newStore(t)
		rec, err := s.Create(ctx, "Receipt", map[string]any{"status": "predicted", "vendor": "ローソン"})
		require.NoError(t, err)

		updated, err := s.Update(ctx, "Receipt", rec.ID, map[string]any{"status": "corrected", "score": 0.5})
		require.NoError(t, err)
		assert.Equal(t, "corrected", updated.String("status"))
		assert.Equal(t, "ローソン", updated.String("vendor"))
		assert.False(t, updated.ModifiedAt.Before(updated.CreatedAt))

		page, err := s.Search(ctx, "Receipt", port.SearchQuery{Constraints: []port.Constraint{
			{Key: "status", Operator: port.OpEquals, Value: "corrected"},
		}})
		require.NoError(t, err)
		require.Len(t, page.Results, 1)
		assert.Equal(t, rec.ID, page.Results[0].ID)
	})

	t.Run("update_missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Update(ctx, "Receipt", "nope", map[string]any{"a": 1})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("equals_and_not_equal", func(t *testing.T) {
		s := newStore(t)
		a := mustCreate(t, s, map[string]any{"task": "cat", "is_latest": true, "n": 1})
		b := mustCreate(t, s, map[string]any{"task": "cat", "is_latest": false, "n": 2})
		c := mustCreate(t, s, map[string]any{"task": "other"})

		assert.Equal(t, []string{a}, ids(t, s, port.Constraint{Key: "is_latest", Operator: port.OpEquals, Value: true}))
		assert.Equal(t, []string{b}, ids(t, s, port.Constraint{Key: "n", Operator: port.OpEquals, Value: 2.0}))
		assert.Equal(t, []string{a, b}, ids(t, s, port.Constraint{Key: "task", Operator: port.OpEquals, Value: "cat"}))
		assert.Equal(t, []string{b, c}, ids(t, s, port.Constraint{Key: "is_latest", Operator: port.OpNotEqual, Value: true}))
	})

	t.Run("empty_checks", func(t *testing.T) {
		s := newStore(t)
		blank := mustCreate(t, s, map[string]any{"reason": ""})
		null := mustCreate(t, s, map[string]any{"reason": nil})
		missing := mustCreate(t, s, map[string]any{"other": "x"})
		set := mustCreate(t, s, map[string]any{"reason": "wrong vendor"})

		assert.Equal(t, []string{blank, null, missing}, ids(t, s, port.Constraint{Key: "reason", Operator: port.OpIsEmpty}))
		assert.Equal(t, []string{set}, ids(t, s, port.Constraint{Key: "reason", Operator: port.OpIsNotEmpty}))
	})

	t.Run("text_contains", func(t *testing.T) {
		s := newStore(t)
		a := mustCreate(t, s, map[string]any{"raw_text": "STARBUCKS Coffee 100% arabica"})
		mustCreate(t, s, map[string]any{"raw_text": "ローソン"})
		mustCreate(t, s, map[string]any{"raw_text": 100})

		assert.Equal(t, []string{a}, ids(t, s, port.Constraint{Key: "raw_text", Operator: port.OpTextContains, Value: "coffee"}))
		assert.Equal(t, []string{a}, ids(t, s, port.Constraint{Key: "raw_text", Operator: port.OpTextContains, Value: "100%"}))
		assert.Empty(t, ids(t, s, port.Constraint{Key: "raw_text", Operator: port.OpTextContains, Value: "1_0"}))
	})

	t.Run("long_values_compare_exactly", func(t *testing.T) {
		s := newStore(t)
		long := strings.Repeat("あ", 2000)
		a := mustCreate(t, s, map[string]any{"blob": long})
		mustCreate(t, s, map[string]any{"blob": long + "x"})

		assert.Equal(t, []string{a}, ids(t, s, port.Constraint{Key: "blob", Operator: port.OpEquals, Value: long}))
		assert.Len(t, ids(t, s, port.Constraint{Key: "blob", Operator: port.OpIsNotEmpty}), 2)
	})

	t.Run("sort_by_created_date", func(t *testing.T) {
		s := newStore(t)
		first := mustCreate(t, s, map[string]any{"i": 1})
		second := mustCreate(t, s, map[string]any{"i": 2})
		third := mustCreate(t, s, map[string]any{"i": 3})

		page, err := s.Search(ctx, "Thing", port.SearchQuery{SortField: recordstore.SortCreatedDate, Descending: true, Limit: 1})
		require.NoError(t, err)
		require.Len(t, page.Results, 1)
		assert.Equal(t, third, page.Results[0].ID)

		page, err = s.Search(ctx, "Thing", port.SearchQuery{SortField: recordstore.SortCreatedDate})
		require.NoError(t, err)
		assert.Equal(t, []string{first, second, third}, pageIDs(page))
	})

	t.Run("sort_by_field", func(t *testing.T) {
		s := newStore(t)
		thirty := mustCreate(t, s, map[string]any{"amount": 30})
		ten := mustCreate(t, s, map[string]any{"amount": 10})
		none := mustCreate(t, s, map[string]any{})
		twenty := mustCreate(t, s, map[string]any{"amount": 20})

		page, err := s.Search(ctx, "Thing", port.SearchQuery{SortField: "amount"})
		require.NoError(t, err)
		assert.Equal(t, []string{none, ten, twenty, thirty}, pageIDs(page))

		page, err = s.Search(ctx, "Thing", port.SearchQuery{SortField: "amount", Descending: true})
		require.NoError(t, err)
		assert.Equal(t, []string{thirty, twenty, ten, none}, pageIDs(page))
	})

	t.Run("paging", func(t *testing.T) {
		s := newStore(t)
		var want []string
		for i := 0; i < 5; i++ {
			want = append(want, mustCreate(t, s, map[string]any{"i": i}))
		}

		var got []string
		var cursors []string
		cursor := ""
		for {
			page, err := s.Search(ctx, "Thing", port.SearchQuery{Limit: 2, Cursor: cursor})
			require.NoError(t, err)
			got = append(got, pageIDs(page)...)
			cursors = append(cursors, page.Cursor)
			if page.Cursor == "" {
				break
			}
			cursor = page.Cursor
		}
		assert.Equal(t, want, got)
		assert.Equal(t, []string{"2", "4", ""}, cursors)
	})

	t.Run("page_size_is_capped", func(t *testing.T) {
		s := newStore(t)
		for i := 0; i < recordstore.MaxPageSize+1; i++ {
			mustCreate(t, s, map[string]any{"i": i})
		}
		page, err := s.Search(ctx, "Thing", port.SearchQuery{Limit: 500})
		require.NoError(t, err)
		assert.Len(t, page.Results, recordstore.MaxPageSize)
		assert.Equal(t, "100", page.Cursor)
	})

	t.Run("invalid_query", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Search(ctx, "Thing", port.SearchQuery{Constraints: []port.Constraint{{Key: "a", Operator: "greater than"}}})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		_, err = s.Search(ctx, "Thing", port.SearchQuery{Cursor: "abc"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func mustCreate(t *testing.T, s port.RecordStore, fields map[string]any) string {
	t.Helper()
	rec, err := s.Create(context.Background(), "Thing", fields)
	require.NoError(t, err)
	return rec.ID
}

func ids(t *testing.T, s port.RecordStore, cs ...port.Constraint) []string {
	t.Helper()
	page, err := s.Search(context.Background(), "Thing", port.SearchQuery{Constraints: cs})
	require.NoError(t, err)
	return pageIDs(page)
}

func pageIDs(page *port.SearchPage) []string {
	out := []string{}
	for _, r := range page.Results {
		out = append(out, r.ID)
	}
	return out
}
