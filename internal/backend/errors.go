package backend

import (
	"context"
	"errors"
	"fmt"
)

// TransientError marks a failure worth retrying: timeouts, connection
// resets, rate limits, server-side 5xx.
type TransientError struct {
	Reason string
	Err    error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transient backend failure: %s: %v", e.Reason, e.Err)
	}
	return "transient backend failure: " + e.Reason
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError marks a failure that retrying cannot fix: auth failures,
// invalid requests, missing executables.
type PermanentError struct {
	Reason string
	Auth   bool
	Err    error
}

func (e *PermanentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("permanent backend failure: %s: %v", e.Reason, e.Err)
	}
	return "permanent backend failure: " + e.Reason
}

func (e *PermanentError) Unwrap() error { return e.Err }

// MalformedError marks a response that arrived but could not be
// understood at the transport level (unparseable body, empty content).
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return "malformed backend response: " + e.Reason
}

// IsTransient reports whether err should be retried on the same backend.
// Context deadline expiry counts as transient: the call timed out.
func IsTransient(err error) bool {
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsPermanent reports whether err must skip retries and advance the
// fallback chain immediately.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// IsMalformed reports whether err is a malformed-response classification.
func IsMalformed(err error) bool {
	var me *MalformedError
	return errors.As(err, &me)
}

// IsAuthError reports whether err is an authentication failure.
func IsAuthError(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe) && pe.Auth
}
