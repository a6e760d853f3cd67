package reasoning

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
)

// transientError marks failures that are worth retrying: rate limits,
// timeouts, flaky upstreams.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// fatalError marks failures that no amount of retrying will fix: bad
// credentials, malformed requests, misconfiguration.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Transient wraps err as a retryable failure. Returns nil for nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// Transientf creates a new retryable failure.
func Transientf(format string, args ...interface{}) error {
	return &transientError{err: pkgerrors.Errorf(format, args...)}
}

// Fatal wraps err as a non-retryable failure. Returns nil for nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// Fatalf creates a new non-retryable failure.
func Fatalf(format string, args ...interface{}) error {
	return &fatalError{err: pkgerrors.Errorf(format, args...)}
}

// IsTransient reports whether err is retryable. Context deadline expiry
// counts as transient: a timed-out call goes back through the retry policy
// like any other flaky failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsFatal reports whether err is a non-retryable failure.
func IsFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}
