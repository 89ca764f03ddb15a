package store

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is a generic sentinel for missing records.
var ErrNotFound = errors.New("record not found")

// APIError is a failure reported by the record store. Message is the
// server's own text and is surfaced to the user verbatim.
type APIError struct {
	Status  int
	Message string
	Data    map[string]interface{}
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("server returned status %d", e.Status)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// IsNotFound reports whether err represents a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
