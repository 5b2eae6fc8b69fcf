// ABOUTME: Classified failures for the uptime protocol
// ABOUTME: Kind and retryability are inspectable via errors.As
package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for retry decisions and user-facing messaging
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindAPI
	KindData
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAPI:
		return "api"
	case KindData:
		return "data"
	default:
		return "unknown"
	}
}

// Error is a classified protocol failure
type Error struct {
	Kind      Kind
	Retryable bool

	// Op names the protocol step that failed ("start date" or "uptime")
	Op string

	// StatusCode is set for KindAPI failures
	StatusCode int

	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error: failed to fetch %s", e.Kind, e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": HTTP %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrNotInitialized is returned when the epoch is needed before the first
// successful start-date fetch
var ErrNotInitialized = &Error{
	Kind: KindData,
	Op:   "start date",
	Err:  errors.New("start date not initialized"),
}

// KindOf returns the classification of err, or KindUnknown if err is not
// a classified failure
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether err is a classified failure marked retryable
func IsRetryable(err error) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}

func networkError(op string, err error) *Error {
	return &Error{Kind: KindNetwork, Retryable: true, Op: op, Err: err}
}

func dataError(op string, err error) *Error {
	return &Error{Kind: KindData, Retryable: false, Op: op, Err: err}
}

func unknownError(op string, err error) *Error {
	return &Error{Kind: KindUnknown, Retryable: true, Op: op, Err: err}
}

// apiError classifies a non-success status. Server-side errors are retryable.
func apiError(op string, status int) *Error {
	return &Error{
		Kind:       KindAPI,
		Retryable:  status >= http.StatusInternalServerError,
		Op:         op,
		StatusCode: status,
	}
}
