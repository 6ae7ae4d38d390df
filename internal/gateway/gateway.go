// Package gateway wraps the model completion capability behind a small
// client interface. Each call is independent; client configuration is
// read-only after construction, so concurrent calls share nothing mutable.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Client is the completion capability consumed by the orchestrator and the
// synthesizer.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// TransientError marks a completion failure the caller may retry: network
// errors, timeouts, rate limits, server-side errors.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// FatalError marks a completion failure that must not be retried:
// authentication and request validation failures.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsFatal reports whether err must not be retried.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// classifyStatus maps an HTTP status to the error taxonomy. Rate limits and
// server errors are transient; auth and validation failures are fatal.
func classifyStatus(op string, status int, body string) error {
	err := fmt.Errorf("status %d: %s", status, body)
	switch {
	case status == http.StatusTooManyRequests:
		return &TransientError{Op: op, Err: err}
	case status >= 500:
		return &TransientError{Op: op, Err: err}
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return &FatalError{Op: op, Err: err}
	default:
		// Remaining 4xx are request validation failures.
		return &FatalError{Op: op, Err: err}
	}
}

// wrapTransport classifies a transport-level failure. Context expiry counts
// as transient so the orchestrator's per-task timeout demotes cleanly to a
// TimedOut opinion.
func wrapTransport(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}
