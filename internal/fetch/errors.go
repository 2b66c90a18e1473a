package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"torrentsearch/searchd/internal/domain"
)

// ErrNetworkUnavailable is returned by the connectivity check when no
// outbound network path exists. It aborts a whole round before fan-out.
var ErrNetworkUnavailable = errors.New("network unavailable")

// Error is a normalized fetch failure. Every error leaving this package is
// one of these so callers can map it onto the failure taxonomy without
// inspecting transport internals.
type Error struct {
	Kind   domain.FailureKind
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Kind == domain.FailureHTTP {
		return fmt.Sprintf("fetch: http status %d", e.Status)
	}
	return fmt.Sprintf("fetch: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind from err, defaulting to transport.
func KindOf(err error) domain.FailureKind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if isTimeout(err) {
		return domain.FailureTimeout
	}
	return domain.FailureTransport
}

func classify(err error) *Error {
	if isTimeout(err) {
		return &Error{Kind: domain.FailureTimeout, Err: err}
	}
	return &Error{Kind: domain.FailureTransport, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return true
	}
	return false
}
