package source

import (
	"errors"
	"fmt"
)

// Sentinel kinds for snapshot acquisition errors.
var (
	ErrAuthRequired = errors.New("auth required")
	ErrFetch        = errors.New("fetch failed")
	ErrDecode       = errors.New("decode failed")
)

// HTTPError is a non-success response from the database.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// QuizError is the failure of one quiz. The rest of the snapshot is still usable.
type QuizError struct {
	QuizID string
	Err    error
}

func (e *QuizError) Error() string { return e.QuizID + ": " + e.Err.Error() }

func (e *QuizError) Unwrap() error { return e.Err }
