// Package resilience classifies external-call failures and retries the
// transient ones. The pipeline maps unrecoverable failures to status
// transitions rather than aborting, so the taxonomy here is the only place
// that decides what is worth retrying.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// ErrNotFound signals an external lookup that completed but matched nothing.
// Callers treat it as data, not as a failure.
var ErrNotFound = errors.New("not found")

// TransientError marks a failure that is safe to retry (rate limit, 5xx,
// network timeout).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable, carrying the HTTP status when known.
func Transient(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// transientFragments are matched against wrapped error text from HTTP
// clients that do not expose typed network errors.
var transientFragments = []string{
	"connection reset by peer",
	"broken pipe",
	"no such host",
	"temporary failure in name resolution",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
}

// IsTransient reports whether err (anywhere in its chain) is retryable.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, ErrNotFound) {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, f := range transientFragments {
		if strings.Contains(msg, f) {
			return true
		}
	}
	return false
}

// RetryableStatus reports whether an HTTP status indicates a transient
// server-side condition.
func RetryableStatus(code int) bool {
	switch code {
	case 408, 429, 500, 502, 503, 504:
		return true
	}
	return false
}
