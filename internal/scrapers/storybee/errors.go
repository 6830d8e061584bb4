package storybee

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidReference = errors.New("invalid book reference")
	ErrNoSlidesFound    = errors.New("no slides found")
	ErrConfigParse      = errors.New("viewer config parse error")
	ErrRedirectLoop     = errors.New("too many redirects")
)

// FetchError is returned by Client for every request that did not produce a usable response.
type FetchError struct {
	Method string
	Url    string
	// StatusCode is 0 when no response was received.
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 && e.Err == nil {
		return fmt.Sprintf("fetch %s %s: status %d", e.Method, e.Url, e.StatusCode)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s %s: status %d: %s", e.Method, e.Url, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s %s: %s", e.Method, e.Url, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Transient reports whether repeating the request may succeed: transport failures, 5xx and 429.
// Redirect loops and cancellations are never transient.
func (e *FetchError) Transient() bool {
	if errors.Is(e.Err, ErrRedirectLoop) || errors.Is(e.Err, context.Canceled) {
		return false
	}
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

func isTransient(err error) bool {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Transient()
	}
	return false
}
