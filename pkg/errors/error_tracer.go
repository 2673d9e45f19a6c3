package errors

import "github.com/pkg/errors"

// StackTracer is satisfied by errors that carry a pkg/errors stack trace.
// The logger uses it to surface the trace of a wrapped error instead of the
// call site of the log statement.
type StackTracer interface {
	StackTrace() errors.StackTrace
}

// ErrorTracer pairs a short operational message (usually an error-code
// string) with the underlying cause. The cause always carries a stack trace.
type ErrorTracer struct {
	Message string
	Err     error
}

// NewTracer creates an ErrorTracer with the given message and no cause yet;
// chain with Wrap to attach one.
func NewTracer(message string) *ErrorTracer {
	return &ErrorTracer{Message: message}
}

// TracerFromError lifts an existing error into an ErrorTracer, attaching a
// stack trace if the error does not already have one.
func TracerFromError(err error) *ErrorTracer {
	return &ErrorTracer{
		Message: err.Error(),
		Err:     ensureStack(err),
	}
}

// Wrap attaches the cause, adding a stack trace if it lacks one.
func (e *ErrorTracer) Wrap(err error) *ErrorTracer {
	e.Err = ensureStack(err)
	return e
}

func (e *ErrorTracer) Error() string {
	return e.Message
}

func (e *ErrorTracer) Unwrap() error {
	return e.Err
}

// StackTrace returns the cause's stack trace, or nil when there is no traced
// cause.
func (e *ErrorTracer) StackTrace() errors.StackTrace {
	if traced, ok := e.Unwrap().(StackTracer); ok {
		return traced.StackTrace()
	}
	return nil
}

func ensureStack(err error) error {
	if _, ok := err.(StackTracer); ok {
		return err
	}
	return errors.WithStack(err)
}
