package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrMalformedListing is wrapped when a listing body is not an array of entries
	ErrMalformedListing = errors.New("malformed directory listing")
	// ErrUnexpectedStatus is wrapped when the host answers with a non-2xx status
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// ListError reports a failed directory listing. It wraps network failures,
// non-2xx statuses, malformed bodies and timeouts.
type ListError struct {
	Path       string
	StatusCode int
	Err        error
}

func (e *ListError) Error() string {
	return fmt.Sprintf("list directory %q: %v", e.Path, e.Err)
}

func (e *ListError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the listing failed because a deadline passed
func (e *ListError) Timeout() bool {
	return isTimeout(e.Err)
}

// FetchError reports a failed raw download. StatusCode is zero when no
// response was received.
type FetchError struct {
	Path       string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %q: %v", e.Path, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NotFound reports whether the host answered 404
func (e *FetchError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Timeout reports whether the download failed because a deadline passed
func (e *FetchError) Timeout() bool {
	return isTimeout(e.Err)
}

func statusError(code int) error {
	return fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, code, http.StatusText(code))
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
