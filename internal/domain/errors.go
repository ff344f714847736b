package domain

import (
	"context"
	"errors"
	"fmt"
)

// Pipeline failure kinds. Collaborator adapters wrap one of these so callers
// can tell the kinds apart with errors.Is.
var (
	ErrFetch   = errors.New("image fetch failed")
	ErrDecode  = errors.New("could not decode document")
	ErrService = errors.New("backend service failure")
	ErrStore   = errors.New("model store failure")
	ErrTimeout = errors.New("upstream call timed out")
)

var (
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidInput     = errors.New("invalid input")
	ErrMissingImage     = errors.New("either image_url or image_base64 must be provided")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrNotEnoughSamples = errors.New("not enough samples")
)

// StoreError reports a serialization, deserialization or missing-identifier
// failure in the model version store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, ErrStore)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrStore, e.Err)
}

func (e *StoreError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrStore}
	}
	return []error{ErrStore, e.Err}
}

// NewStoreError wraps err as a StoreError for op.
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// WrapTimeout rewrites a context deadline into ErrTimeout, otherwise wraps
// err with kind. Adapters call it at the boundary of every external call.
func WrapTimeout(op string, kind, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}
