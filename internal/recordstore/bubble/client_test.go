package bubble_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receiptai/internal/config"
	"receiptai/internal/domain"
	"receiptai/internal/port"
	"receiptai/internal/recordstore/bubble"
)

func newClient(t *testing.T, handler http.HandlerFunc) *bubble.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return bubble.NewClient(&config.BubbleConfig{APIBase: srv.URL, APIKey: "secret"}, 5*time.Second)
}

func TestClient_Create(t *testing.T) {
	t.Run("id_under_response", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/obj/Receipt", r.URL.Path)
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "r_1", body["doc_id"])
			_, _ = io.WriteString(w, `{"status":"success","response":{"id":"123x456"}}`)
		})

		rec, err := c.Create(context.Background(), "Receipt", map[string]any{"doc_id": "r_1"})
		require.NoError(t, err)
		assert.Equal(t, "123x456", rec.ID)
		assert.Equal(t, "r_1", rec.String("doc_id"))
	})

	t.Run("id_at_top_level", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"status":"success","id":"top"}`)
		})
		rec, err := c.Create(context.Background(), "Receipt", map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, "top", rec.ID)
	})

	t.Run("missing_id", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"status":"success"}`)
		})
		_, err := c.Create(context.Background(), "Receipt", map[string]any{})
		assert.ErrorIs(t, err, domain.ErrService)
	})

	t.Run("server_error", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		_, err := c.Create(context.Background(), "Receipt", map[string]any{})
		assert.ErrorIs(t, err, domain.ErrService)
	})
}

func TestClient_Get(t *testing.T) {
	t.Run("parses_record", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/obj/Receipt/abc", r.URL.Path)
			_, _ = io.WriteString(w, `{"response":{"_id":"abc","Created Date":"2025-10-10T01:02:03.456Z","Modified Date":"2025-10-11T00:00:00Z","doc_id":"r_1","is_latest":true}}`)
		})

		rec, err := c.Get(context.Background(), "Receipt", "abc")
		require.NoError(t, err)
		assert.Equal(t, "abc", rec.ID)
		assert.Equal(t, time.Date(2025, 10, 10, 1, 2, 3, 456_000_000, time.UTC), rec.CreatedAt)
		assert.Equal(t, "r_1", rec.String("doc_id"))
		assert.True(t, rec.Bool("is_latest"))
		assert.NotContains(t, rec.Fields, "_id")
	})

	t.Run("not_found", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		_, err := c.Get(context.Background(), "Receipt", "abc")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestClient_Update(t *testing.T) {
	var patched map[string]any
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPatch:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patched))
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet:
			_, _ = io.WriteString(w, `{"response":{"_id":"abc","status":"corrected"}}`)
		}
	})

	rec, err := c.Update(context.Background(), "Receipt", "abc", map[string]any{"status": "corrected"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": "corrected"}, patched)
	assert.Equal(t, "corrected", rec.String("status"))
}

func TestClient_Search(t *testing.T) {
	t.Run("sends_query_and_pages", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			assert.Equal(t, "2", q.Get("limit"))
			assert.Equal(t, "4", q.Get("cursor"))
			assert.Equal(t, "Created Date", q.Get("sort_field"))
			assert.Equal(t, "true", q.Get("descending"))

			var cs []map[string]any
			require.NoError(t, json.Unmarshal([]byte(q.Get("constraints")), &cs))
			assert.Equal(t, []map[string]any{
				{"key": "task", "constraint_type": "equals", "value": "receipt_category"},
				{"key": "is_latest", "constraint_type": "equals", "value": false},
				{"key": "reason", "constraint_type": "is_empty"},
			}, cs)

			_, _ = io.WriteString(w, `{"response":{"cursor":4,"results":[{"_id":"a"},{"_id":"b"}],"remaining":3,"count":2}}`)
		})

		page, err := c.Search(context.Background(), "ModelVersion", port.SearchQuery{
			Constraints: []port.Constraint{
				{Key: "task", Operator: port.OpEquals, Value: "receipt_category"},
				{Key: "is_latest", Operator: port.OpEquals, Value: false},
				{Key: "reason", Operator: port.OpIsEmpty},
			},
			Limit:      2,
			Cursor:     "4",
			SortField:  "Created Date",
			Descending: true,
		})
		require.NoError(t, err)
		require.Len(t, page.Results, 2)
		assert.Equal(t, "a", page.Results[0].ID)
		assert.Equal(t, "6", page.Cursor)
	})

	t.Run("last_page_has_no_cursor", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "100", r.URL.Query().Get("limit"))
			_, _ = io.WriteString(w, `{"response":{"cursor":0,"results":[{"_id":"a"}],"remaining":0,"count":1}}`)
		})
		page, err := c.Search(context.Background(), "Feedback", port.SearchQuery{})
		require.NoError(t, err)
		assert.Len(t, page.Results, 1)
		assert.Empty(t, page.Cursor)
	})

	t.Run("unknown_operator", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("request should not be sent")
		})
		_, err := c.Search(context.Background(), "Feedback", port.SearchQuery{
			Constraints: []port.Constraint{{Key: "a", Operator: "like"}},
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("timeout", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		})
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := c.Search(ctx, "Feedback", port.SearchQuery{})
		assert.ErrorIs(t, err, domain.ErrTimeout)
	})
}

func TestClient_Ping(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/obj/Receipt", r.URL.Path)
		_, _ = io.WriteString(w, `{"response":{"cursor":0,"results":[],"remaining":0}}`)
	})
	assert.NoError(t, c.Ping(context.Background()))
}
