// Package ingesterr provides the structured error type used across the
// ingestion engine, modeled on the trading platform's own error package.
package ingesterr

import (
	"fmt"
	"runtime"
	"time"
)

// Code classifies an error by the handling policy it requires.
type Code string

const (
	// ErrDecodeMalformed covers malformed buffers, bad node tags, and
	// alignment failures while decoding an on-chain account. The current
	// account update is abandoned; processing continues with the next one.
	ErrDecodeMalformed Code = "DECODE_MALFORMED"

	// ErrTransientIO covers cache, store, summary-API, or RPC failures.
	// The current fan-out step is abandoned; downstream state converges
	// on the next account update.
	ErrTransientIO Code = "TRANSIENT_IO"

	// ErrStreamDisconnect signals the streaming subscription dropped and
	// must be reopened after the reconnect backoff.
	ErrStreamDisconnect Code = "STREAM_DISCONNECT"

	// ErrStartup covers missing configuration or initial RPC/market
	// resolution failures. The process must exit.
	ErrStartup Code = "STARTUP"

	// ErrInvariantViolation marks a condition the engine defines as a bug
	// (e.g. a trade batch with no trades, or a pubkey with no market
	// state). It must not occur in a compliant implementation.
	ErrInvariantViolation Code = "INVARIANT_VIOLATION"
)

// IngestError is the structured error carried through the engine.
type IngestError struct {
	Code      Code
	Message   string
	Details   map[string]interface{}
	Timestamp time.Time
	File      string
	Line      int
	Cause     error
}

func (e *IngestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *IngestError) Unwrap() error {
	return e.Cause
}

// WithDetail attaches a key/value pair for structured logging.
func (e *IngestError) WithDetail(key string, value interface{}) *IngestError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates an IngestError with the caller's file/line.
func New(code Code, message string) *IngestError {
	_, file, line, _ := runtime.Caller(1)
	return &IngestError{Code: code, Message: message, Timestamp: time.Now(), File: file, Line: line}
}

// Newf creates an IngestError with a formatted message.
func Newf(code Code, format string, args ...interface{}) *IngestError {
	_, file, line, _ := runtime.Caller(1)
	return &IngestError{Code: code, Message: fmt.Sprintf(format, args...), Timestamp: time.Now(), File: file, Line: line}
}

// Wrap attaches a code and message to an existing error.
func Wrap(err error, code Code, message string) *IngestError {
	if err == nil {
		return nil
	}
	_, file, line, _ := runtime.Caller(1)
	return &IngestError{Code: code, Message: message, Timestamp: time.Now(), File: file, Line: line, Cause: err}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *IngestError {
	if err == nil {
		return nil
	}
	_, file, line, _ := runtime.Caller(1)
	return &IngestError{Code: code, Message: fmt.Sprintf(format, args...), Timestamp: time.Now(), File: file, Line: line, Cause: err}
}

// As finds the first IngestError in err's chain.
func As(err error, target **IngestError) bool {
	if err == nil {
		return false
	}
	if ie, ok := err.(*IngestError); ok {
		*target = ie
		return true
	}
	if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
		return As(unwrapper.Unwrap(), target)
	}
	return false
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var ie *IngestError
	if As(err, &ie) {
		return ie.Code == code
	}
	return false
}

// GetCode extracts the error code, or "" if err is not an IngestError.
func GetCode(err error) Code {
	var ie *IngestError
	if As(err, &ie) {
		return ie.Code
	}
	return ""
}

// IsRetryable reports whether the policy for code is "log and continue".
func IsRetryable(err error) bool {
	switch GetCode(err) {
	case ErrDecodeMalformed, ErrTransientIO:
		return true
	default:
		return false
	}
}

// IsFatal reports whether err should terminate the process.
func IsFatal(err error) bool {
	return GetCode(err) == ErrStartup
}
