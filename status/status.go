// Package status defines the result-code taxonomy shared by every layer of
// the inference bridge.
//
// The native engine, the C API surface, and the Go components all speak the
// same set of numeric codes. On the Go side a code travels inside a
// *status.Error so callers can use errors.Is/errors.As; at the C boundary
// the bare Code value is what crosses.
package status

import (
	"errors"
	"fmt"
)

// Code is a numeric result code. Zero is success; failures are negative,
// matching the convention of C-style engine APIs.
type Code int32

const (
	// OK indicates success.
	OK Code = 0

	// InvalidArgument indicates a nil or malformed required parameter.
	InvalidArgument Code = -1

	// InvalidHandle indicates a zero, unknown, or already-destroyed handle.
	InvalidHandle Code = -2

	// NotInitialized indicates the core runtime has not been initialized.
	NotInitialized Code = -3

	// AdapterNotSet indicates no platform adapter is registered.
	AdapterNotSet Code = -4

	// NotLoaded indicates an operation that requires a loaded model was
	// invoked before LoadModel.
	NotLoaded Code = -5

	// NotFound indicates a key miss in a storage lookup.
	NotFound Code = -6

	// FileNotFound indicates a file read miss.
	FileNotFound Code = -7

	// FileWriteFailed indicates a file write or delete was refused.
	FileWriteFailed Code = -8

	// StorageError indicates a secure-storage operation failed.
	StorageError Code = -9

	// OutOfMemory indicates an allocation failure at the boundary.
	OutOfMemory Code = -10

	// NetworkError indicates a host HTTP callback failed or panicked.
	NetworkError Code = -11

	// HTTPRequestFailed indicates a host HTTP callback returned a
	// non-success response.
	HTTPRequestFailed Code = -12

	// TimedOut indicates the bounded wait for a streaming completion
	// signal elapsed.
	TimedOut Code = -13

	// InvalidState indicates an operation was invoked in a state that
	// does not permit it.
	InvalidState Code = -14

	// Canceled indicates the operation was canceled by the caller.
	Canceled Code = -15

	// EngineFailure is the pass-through bucket for failures reported by
	// the native engine with its own message.
	EngineFailure Code = -16
)

// String returns a short stable name for the code.
func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case InvalidArgument:
		return "invalid argument"
	case InvalidHandle:
		return "invalid handle"
	case NotInitialized:
		return "not initialized"
	case AdapterNotSet:
		return "adapter not set"
	case NotLoaded:
		return "model not loaded"
	case NotFound:
		return "not found"
	case FileNotFound:
		return "file not found"
	case FileWriteFailed:
		return "file write failed"
	case StorageError:
		return "storage error"
	case OutOfMemory:
		return "out of memory"
	case NetworkError:
		return "network error"
	case HTTPRequestFailed:
		return "http request failed"
	case TimedOut:
		return "timed out"
	case InvalidState:
		return "invalid state"
	case Canceled:
		return "canceled"
	case EngineFailure:
		return "engine failure"
	default:
		return fmt.Sprintf("unknown (%d)", int32(c))
	}
}

// Error carries a Code and a human-readable message across the bridge.
type Error struct {
	Code    Code
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return e.Message
}

// Is reports whether target is a *Error with the same code, so that
// errors.Is(err, status.New(status.TimedOut, "")) classifies by code alone.
func (e *Error) Is(target error) bool {
	var se *Error
	if !errors.As(target, &se) {
		return false
	}
	return se.Code == e.Code
}

// New returns an error carrying the given code and message.
// An empty message falls back to the code's name.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Errorf returns an error carrying the given code and a formatted message.
func Errorf(code Code, format string, args ...interface{}) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// FromEngine converts an engine-reported failure into an error. When the
// engine supplied no message, a generic fallback naming the raw status is
// used so callers always see something actionable.
func FromEngine(code Code, message string) error {
	if code == OK {
		return nil
	}
	if message == "" {
		message = fmt.Sprintf("operation failed (status=%d)", int32(code))
	}
	return &Error{Code: code, Message: message}
}

// Convert returns err unchanged when it already carries a Code and
// wraps anything else as an EngineFailure, preserving the message.
func Convert(err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Code: EngineFailure, Message: err.Error()}
}

// CodeOf extracts the Code from err, unwrapping as needed.
// A nil error is OK; an error that carries no code is EngineFailure.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return EngineFailure
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
