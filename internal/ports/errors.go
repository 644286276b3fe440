package ports

import (
	"errors"
	"fmt"
)

// Provider failures. infrastructure/llm classifies SDK errors into these so
// callers can branch with errors.Is without importing provider types.
var (
	ErrRateLimited          = errors.New("rate limited")
	ErrServiceUnavailable   = errors.New("service unavailable")
	ErrTimeout              = errors.New("operation timed out")
	ErrInvalidResponse      = errors.New("invalid response")
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// ErrNoClient is returned by SeatClients when a seat's provider has no
// credentials or is not registered. The evaluator reports such seats offline.
var ErrNoClient = errors.New("no client configured")

// StoreError wraps a failed persistence call with the backend and the
// operation that failed. Not-found conditions are reported with the domain
// sentinels instead, never as a StoreError.
type StoreError struct {
	Store     string
	Operation string
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Store, e.Operation, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError returns a StoreError, or nil when err is nil.
func NewStoreError(store, operation string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Store: store, Operation: operation, Err: err}
}
