// Package exception provides the error type used across the batch framework.
// Errors carry the module they came from and are classified as retryable,
// skippable or fatal so that callers can decide how a failure ends a step.
package exception

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// BatchError is an error raised during batch processing.
type BatchError struct {
	// Module indicates where the error occurred (e.g., "fetcher", "loader", "config").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped cause, if any.
	OriginalErr error
	isRetryable bool
	isSkippable bool
	// StackTrace is captured at construction time for debugging.
	StackTrace string
}

// NewBatchError creates a new BatchError.
//
// module: The module where the error occurred.
// message: The error message.
// originalErr: The cause to wrap (may be nil).
// isSkippable: Whether this error is skippable.
// isRetryable: Whether this error is retryable.
func NewBatchError(module, message string, originalErr error, isSkippable, isRetryable bool) *BatchError {
	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  captureStack(),
	}
}

// NewBatchErrorf creates a BatchError with a formatted message.
// Trailing optional arguments are consumed from the end in this order:
// [originalErr error], then [isRetryable bool], then [isSkippable bool].
// The remaining arguments are passed to fmt.Sprintf.
//
//	NewBatchErrorf("loader", "insert failed for %s", key, err)
//	NewBatchErrorf("fetcher", "status %d", code, true, cause) // retryable
func NewBatchErrorf(module, format string, a ...interface{}) *BatchError {
	var originalErr error
	isRetryable, isSkippable := false, false
	args := a

	if n := len(args); n > 0 {
		if err, ok := args[n-1].(error); ok {
			originalErr = err
			args = args[:n-1]
		}
	}
	if n := len(args); n > 0 {
		if b, ok := args[n-1].(bool); ok {
			isRetryable = b
			args = args[:n-1]
		}
	}
	if n := len(args); n > 0 {
		if b, ok := args[n-1].(bool); ok {
			isSkippable = b
			args = args[:n-1]
		}
	}

	return &BatchError{
		Module:      module,
		Message:     fmt.Sprintf(format, args...),
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  captureStack(),
	}
}

func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Is and errors.As.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable returns whether this error is retryable.
func (e *BatchError) IsRetryable() bool {
	return e.isRetryable
}

// IsSkippable returns whether this error is skippable.
func (e *BatchError) IsSkippable() bool {
	return e.isSkippable
}

// AsBatchError returns the first BatchError in err's chain.
func AsBatchError(err error) (*BatchError, bool) {
	var be *BatchError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// IsTemporary reports whether err is a transient failure such as a 5xx
// response or a dropped connection. A BatchError's retryable flag wins.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	if be, ok := AsBatchError(err); ok {
		return be.IsRetryable()
	}
	msg := err.Error()
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset")
}

// ExtractErrorMessage returns the Message of the outermost BatchError,
// or err.Error() for any other error.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if be, ok := err.(*BatchError); ok {
		return be.Message
	}
	return err.Error()
}
