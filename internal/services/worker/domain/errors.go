package domain

import "errors"

type permanentError struct {
	cause error
}

func (e permanentError) Error() string {
	if e.cause == nil {
		return "permanent error"
	}
	return e.cause.Error()
}

func (e permanentError) Unwrap() error {
	return e.cause
}

// Permanent marks an error as non-retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{cause: err}
}

// IsPermanent reports whether err was marked as non-retryable, either with
// Permanent or by a cause that classifies itself.
func IsPermanent(err error) bool {
	var target permanentError
	if errors.As(err, &target) {
		return true
	}
	var classified interface{ Permanent() bool }
	return errors.As(err, &classified) && classified.Permanent()
}
