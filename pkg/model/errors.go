package model

import (
	"errors"
	"fmt"
)

// Error kinds. Every error produced by gokite wraps exactly one of these, so
// callers classify failures with errors.Is.
var (
	ErrConfiguration       = errors.New("configuration error")
	ErrResolution          = errors.New("resolution error")
	ErrBinding             = errors.New("binding error")
	ErrJobExecution        = errors.New("job execution error")
	ErrIncompatibleContext = errors.New("incompatible context")
	ErrContextUnavailable  = errors.New("context unavailable")
)

// Error is a classified gokite error.
type Error struct {
	Kind error  // one of the Err* sentinels above
	Op   string // operation or subject, e.g. "resolve source.users"
	Msg  string
	Err  error // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// ConfigurationError reports missing or invalid configuration.
func ConfigurationError(op, format string, args ...any) *Error {
	return newError(ErrConfiguration, op, format, args...)
}

// ResolutionError reports a template or window that cannot be resolved.
func ResolutionError(op, format string, args ...any) *Error {
	return newError(ErrResolution, op, format, args...)
}

// BindingError reports a job slot that cannot be satisfied.
func BindingError(op, format string, args ...any) *Error {
	return newError(ErrBinding, op, format, args...)
}

// IncompatibleContextError reports a settings mismatch against the live context.
func IncompatibleContextError(op, format string, args ...any) *Error {
	return newError(ErrIncompatibleContext, op, format, args...)
}

// ContextUnavailableError reports a request for a context that has been torn down.
func ContextUnavailableError(op, format string, args ...any) *Error {
	return newError(ErrContextUnavailable, op, format, args...)
}

// JobExecutionError wraps a failure raised by a job body.
func JobExecutionError(job string, cause error) *Error {
	return &Error{Kind: ErrJobExecution, Op: job, Err: cause}
}

// KindOf returns the kind of the outermost *Error in err's chain, or nil when
// err is not classified. A job failure whose cause is itself classified still
// reports ErrJobExecution.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}
