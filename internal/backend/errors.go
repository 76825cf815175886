package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Kind classifies a failed backend call independently of the provider's
// transport.
type Kind int

const (
	KindBackendError Kind = iota
	KindRateLimited
	KindAuthenticationFailed
	KindAccessDenied
	KindEmptyGeneration
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindAuthenticationFailed:
		return "authentication_failed"
	case KindAccessDenied:
		return "access_denied"
	case KindEmptyGeneration:
		return "empty_generation"
	default:
		return "backend_error"
	}
}

// Error is returned by every Generator
type Error struct {
	Kind   Kind
	Status int // provider status code, 0 when no response arrived
	Detail string
	// Timeout is set when the call ran out of time or the concurrency budget
	// could not be acquired in time.
	Timeout bool
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Credential reports whether the failure points at operator configuration
// rather than load.
func (e *Error) Credential() bool {
	return e.Kind == KindAuthenticationFailed || e.Kind == KindAccessDenied
}

// Quota reports whether the provider refused for billing or quota reasons
func (e *Error) Quota() bool {
	if e.Credential() {
		return false
	}
	d := strings.ToLower(e.Detail)
	return strings.Contains(d, "quota") || strings.Contains(d, "billing") || strings.Contains(d, "resource_exhausted")
}

// Transient reports whether the failure reflects backend load or reachability:
// rate limits, timeouts, network failures, quota exhaustion and 5xx responses.
func (e *Error) Transient() bool {
	switch {
	case e.Kind == KindRateLimited, e.Timeout, e.Quota():
		return true
	case e.Kind != KindBackendError:
		return false
	case e.Status >= http.StatusInternalServerError:
		return true
	case e.Status == 0 && e.Err != nil:
		return true
	}
	return false
}

// Reasons reported for BackendError flavors
const (
	ReasonTimeout = "timeout"
	ReasonQuota   = "quota_exhausted"
)

// Reason is a short label suitable for notices, logs and metrics
func (e *Error) Reason() string {
	switch {
	case e.Timeout:
		return ReasonTimeout
	case e.Kind == KindBackendError && e.Quota():
		return ReasonQuota
	}
	return e.Kind.String()
}

// AsError extracts a *Error from err's chain
func AsError(err error) (*Error, bool) {
	var berr *Error
	if errors.As(err, &berr) {
		return berr, true
	}
	return nil, false
}

// FromStatus maps a provider status code to the error taxonomy
func FromStatus(provider string, status int, detail string) *Error {
	e := &Error{Kind: KindBackendError, Status: status, Detail: detail}
	switch status {
	case http.StatusTooManyRequests:
		e.Kind = KindRateLimited
		e.Detail = fmt.Sprintf("%s rate limit exceeded", provider)
	case http.StatusUnauthorized:
		e.Kind = KindAuthenticationFailed
		e.Detail = fmt.Sprintf("invalid %s API key", provider)
	case http.StatusForbidden:
		e.Kind = KindAccessDenied
		e.Detail = fmt.Sprintf("%s access denied, check account status and billing", provider)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		e.Timeout = true
	}
	if detail != "" && e.Kind != KindBackendError {
		e.Detail += " (" + detail + ")"
	}
	return e
}

// FromTransport wraps an error raised before any response arrived
func FromTransport(provider string, err error) *Error {
	e := &Error{Kind: KindBackendError, Detail: provider + " request failed", Err: err}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		e.Timeout = true
	}
	return e
}

// Empty reports a response that carried no generated text
func Empty(provider string) *Error {
	return &Error{Kind: KindEmptyGeneration, Detail: "no code generated from " + provider}
}
