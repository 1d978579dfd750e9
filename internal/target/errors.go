package target

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrWriteFailed marks a rejected write. The record is skipped, the unit continues.
	ErrWriteFailed = errors.New("target write failed")

	// ErrReadFailed marks a rejected lookup or index request. Callers treat it
	// like a rejected write: the record that needed the read is skipped.
	ErrReadFailed = errors.New("target read failed")

	// ErrConnectionFailed marks a transport-level failure. No further record
	// can be processed correctly, so units abort on it.
	ErrConnectionFailed = errors.New("target connection failed")

	// ErrMalformedResponse marks a 2xx response the client cannot decode.
	ErrMalformedResponse = errors.New("malformed target response")

	// ErrNotFound marks a 404 from a read endpoint.
	ErrNotFound = errors.New("target resource not found")
)

// APIError carries the status and full body of a non-2xx response.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Status, body)
}

func (e *APIError) unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// Is lets callers match an APIError against the sentinel for its class.
// GET failures are reads; every other method is a write.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrConnectionFailed:
		// 401/403 mean every following request fails the same way
		return e.unauthorized()
	case ErrWriteFailed:
		return !e.unauthorized() && e.Method != http.MethodGet
	case ErrReadFailed:
		return !e.unauthorized() && e.Method == http.MethodGet
	}
	return false
}
