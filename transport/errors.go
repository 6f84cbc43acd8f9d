package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind classifies transport failures.
type Kind string

const (
	KindNetwork     Kind = "network"
	KindStatus      Kind = "status"
	KindTimeout     Kind = "timeout"
	KindCanceled    Kind = "canceled"
	KindRateLimited Kind = "rate_limited"
	KindCircuitOpen Kind = "circuit_open"
	KindConfig      Kind = "config"
)

var (
	// ErrCircuitOpen is the cause of KindCircuitOpen errors.
	ErrCircuitOpen = errors.New("transport: circuit open")

	// ErrRateLimited is the cause of KindRateLimited errors.
	ErrRateLimited = errors.New("transport: rate limited")
)

// Error is returned by Client.Send for every failure. Non-2xx responses
// produce KindStatus with Response set to the fully read response.
type Error struct {
	Kind       Kind
	Message    string
	Cause      error
	RequestID  string
	Method     string
	URL        string
	Attempt    int
	MaxRetries int
	Duration   time.Duration
	Response   *Response
}

// StatusCode returns the HTTP status, or 0 when no response was received.
func (e *Error) StatusCode() int {
	if e == nil || e.Response == nil {
		return 0
	}
	return e.Response.Status
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	if e.RequestID != "" {
		msg = fmt.Sprintf("[%s] %s", e.RequestID, msg)
	}
	if e.Attempt > 0 {
		msg = fmt.Sprintf("%s (attempt %d/%d)", msg, e.Attempt, e.MaxRetries)
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches another *Error of the same Kind.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// DebugInfo renders a multi-line diagnostic description.
func (e *Error) DebugInfo() string {
	if e == nil {
		return "Error: <nil>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Kind: %s\n", e.Kind)
	fmt.Fprintf(&b, "Message: %s\n", e.Message)
	if e.RequestID != "" {
		fmt.Fprintf(&b, "Request ID: %s\n", e.RequestID)
	}
	if e.Method != "" {
		fmt.Fprintf(&b, "Method: %s\n", e.Method)
	}
	if e.URL != "" {
		fmt.Fprintf(&b, "URL: %s\n", e.URL)
	}
	if status := e.StatusCode(); status > 0 {
		fmt.Fprintf(&b, "Status Code: %d\n", status)
	}
	if e.Attempt > 0 {
		fmt.Fprintf(&b, "Attempt: %d/%d\n", e.Attempt, e.MaxRetries)
	}
	if e.Duration > 0 {
		fmt.Fprintf(&b, "Duration: %v\n", e.Duration)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, "Cause: %v\n", e.Cause)
	}
	return b.String()
}

// IsTransient reports whether err may succeed when tried again: network
// failures, timeouts, open circuits, rate limiting, 429 and 5xx statuses.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrRateLimited) {
		return true
	}

	var terr *Error
	if !errors.As(err, &terr) {
		return false
	}
	switch terr.Kind {
	case KindNetwork, KindTimeout, KindRateLimited, KindCircuitOpen:
		return true
	case KindStatus:
		status := terr.StatusCode()
		return status == 429 || status >= 500
	default:
		return false
	}
}

func kindForContext(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindCanceled
}
