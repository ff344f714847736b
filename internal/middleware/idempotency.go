package middleware

import (
	"bytes"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayHeader      = "Idempotent-Replayed"

	defaultIdempotencyTTL = 10 * time.Minute
)

// StoredResponse is a response remembered under an idempotency key.
type StoredResponse struct {
	Status      int
	ContentType string
	Body        []byte
}

type idempotencyEntry struct {
	expiresAt time.Time
	response  StoredResponse
}

// IdempotencyStore is an in-process TTL map of responses by key. Expired
// entries are dropped when read and by Sweep.
type IdempotencyStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]idempotencyEntry
}

// NewIdempotencyStore creates a store; ttl <= 0 selects 10 minutes.
func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &IdempotencyStore{ttl: ttl, now: time.Now, entries: map[string]idempotencyEntry{}}
}

// SetClock overrides the time source.
func (s *IdempotencyStore) SetClock(now func() time.Time) { s.now = now }

func (s *IdempotencyStore) Get(key string) (StoredResponse, bool) {
	if key == "" {
		return StoredResponse{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return StoredResponse{}, false
	}
	if e.expiresAt.Before(s.now()) {
		delete(s.entries, key)
		return StoredResponse{}, false
	}
	return e.response, true
}

func (s *IdempotencyStore) Remember(key string, resp StoredResponse) {
	if key == "" {
		return
	}
	s.mu.Lock()
	s.entries[key] = idempotencyEntry{expiresAt: s.now().Add(s.ttl), response: resp}
	s.mu.Unlock()
}

// Sweep removes expired entries and returns how many were dropped.
func (s *IdempotencyStore) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, e := range s.entries {
		if e.expiresAt.Before(now) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of entries, expired ones included.
func (s *IdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

type recordingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response for a repeated Idempotency-Key.
// Keys are scoped by route; only 2xx responses are remembered.
func Idempotency(store *IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if key == "" {
			c.Next()
			return
		}
		scoped := c.Request.Method + " " + c.FullPath() + " " + key

		if resp, ok := store.Get(scoped); ok {
			c.Header(ReplayHeader, "true")
			c.Data(resp.Status, resp.ContentType, resp.Body)
			c.Abort()
			return
		}

		rw := &recordingWriter{ResponseWriter: c.Writer}
		c.Writer = rw
		c.Next()

		if status := rw.Status(); status >= http.StatusOK && status < http.StatusMultipleChoices {
			store.Remember(scoped, StoredResponse{
				Status:      status,
				ContentType: rw.Header().Get("Content-Type"),
				Body:        append([]byte(nil), rw.body.Bytes()...),
			})
		}
	}
}
