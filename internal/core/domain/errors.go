package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested document or record was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid (missing identifier, empty url, ...)
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoProfileData indicates the scrape payload contained no recognisable profile
	ErrNoProfileData = errors.New("no profile data in payload")

	// ErrScrapeFailed indicates the external profile fetch failed
	ErrScrapeFailed = errors.New("profile scrape failed")

	// ErrAIFailed indicates narrative generation failed
	ErrAIFailed = errors.New("ai generation failed")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")
)

// StoreError wraps a backend failure with the store operation that produced it.
// Every store operation surfaces its failures through this type so callers can
// branch on errors.As(&StoreError{}) without knowing the backend.
type StoreError struct {
	Op  string // operation name: "save", "update", "query", ...
	Err error  // underlying backend error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError wraps err in a StoreError for the given operation.
// Returns nil when err is nil so call sites can wrap unconditionally.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
