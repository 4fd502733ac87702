package engine

import (
	"log/slog"
	"strings"
)

// Predefined errors (sentinel values).
//
// Recoverable errors are logged into the execution context and surfaced
// in-stream; fatal errors halt the runtime.
var (
	ErrExprParse      = NewError("expression parse failed")
	ErrExprEval       = NewError("expression evaluation failed")
	ErrBadPath        = NewError("invalid state path")
	ErrReservedPath   = NewError("write to reserved namespace")
	ErrBlockSpec      = NewError("malformed block")
	ErrMissingInput   = NewError("missing form input")
	ErrValidation     = NewError("form validation failed")
	ErrNoPendingForm  = NewError("resume without suspended form")
	ErrNavTarget      = NewFatal("navigation target not found")
	ErrNavigationLoop = NewFatal("navigation loop detected")
	ErrCorruptContext = NewFatal("corrupt execution context")
)

// Error represents a runtime error with optional structured logging
// attributes. It implements both error and slog.LogValuer interfaces.
//
// Fatal errors transition the runtime to [StatusFatal]; all others are
// recorded and execution continues with the next block.
type Error struct {
	msg   string
	err   error       // Wrapped error (for errors.Unwrap)
	attrs []slog.Attr // Attributes for structured logging
	fatal bool
}

// NewError creates a new recoverable Error with a message.
func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// NewFatal creates a new fatal Error with a message.
func NewFatal(msg string) *Error {
	return &Error{msg: msg, fatal: true}
}

// Error implements the error interface.
func (e *Error) Error() string {
	// Build error message using the first available format,
	// depending on which fields are set:
	//
	//   1. "<msg>: <err>" // base and wrapped error both set
	//   2. "<msg>"        // wrapped error is nil
	//   3. "<err>"        // base error message is empty
	//   4. ""             // no fields are set
	part := make([]string, 0, 2)

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	return strings.Join(part, ": ")
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// Is matches errors derived from the same sentinel via [Error.With] and
// [Error.Wrap].
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)

	return ok && e.msg == t.msg
}

// Fatal reports whether the error halts the runtime.
func (e *Error) Fatal() bool { return e.fatal }

// LogValue implements slog.LogValuer for rich structured logging.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+2)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Wrap creates a new Error wrapping another error.
func (e *Error) Wrap(err error) *Error {
	return &Error{
		msg:   e.msg,
		err:   err,
		attrs: e.attrs, // Share attrs
		fatal: e.fatal,
	}
}

// With adds attributes to the error for structured logging.
// This creates a new Error instance to maintain immutability.
func (e *Error) With(attrs ...slog.Attr) *Error {
	newAttrs := make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(newAttrs, e.attrs)
	copy(newAttrs[len(e.attrs):], attrs)

	return &Error{
		msg:   e.msg,
		err:   e.err,
		attrs: newAttrs,
		fatal: e.fatal,
	}
}

// IsFatal reports whether err is (or wraps) a fatal engine error.
func IsFatal(err error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.fatal {
			return true
		}

		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}

		err = u.Unwrap()
	}

	return false
}
