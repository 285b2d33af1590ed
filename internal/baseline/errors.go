package baseline

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidInput marks requests that must be rejected rather than absorbed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned by stores when an analysis id is unknown.
	ErrNotFound = errors.New("analysis not found")
)

// InvalidInputError carries a user-facing message for a rejected request.
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string {
	return e.Message
}

// Unwrap lets callers match ErrInvalidInput with errors.Is.
func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

// InvalidInput builds an InvalidInputError.
func InvalidInput(format string, args ...any) error {
	return &InvalidInputError{Message: fmt.Sprintf(format, args...)}
}

// FetchError describes one failed page fetch.
type FetchError struct {
	URL        string
	StatusCode int
	Message    string
	Timestamp  time.Time
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %s", e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Failure converts the error into the record stored on a CrawlResult.
func (e *FetchError) Failure() FetchFailure {
	return FetchFailure{URL: e.URL, Error: e.Message, Timestamp: e.Timestamp}
}
