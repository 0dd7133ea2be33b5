package llm

import (
	"errors"
)

// Error kinds for classifying transport errors. Classification happens once,
// at the HTTP boundary, so callers branch on kind instead of matching
// message text.

// TransientError represents a temporary error that may succeed on retry.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string {
	return e.err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.err
}

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// QuotaError represents a rate-limit or quota-exhausted failure. The remedy
// is rotating to another credential or waiting out the quota window, not a
// blind retry on the same key.
type QuotaError struct {
	err error
}

func (e *QuotaError) Error() string {
	return e.err.Error()
}

func (e *QuotaError) Unwrap() error {
	return e.err
}

// NewQuotaError wraps an error as a quota/rate-limit failure.
func NewQuotaError(err error) error {
	return &QuotaError{err: err}
}

// FatalError represents a permanent error that should not be retried.
type FatalError struct {
	err error
}

func (e *FatalError) Error() string {
	return e.err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.err
}

// NewFatalError wraps an error as fatal (non-retryable).
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

// IsTransient returns true if the error should be retried with backoff.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsQuota returns true if the error signals credential quota exhaustion.
func IsQuota(err error) bool {
	var quota *QuotaError
	return errors.As(err, &quota)
}

// IsFatal returns true if the error is fatal and should not be retried.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}
