// Copyright 2025 James Ross
// Package bferrors defines the error taxonomy shared by every component that
// can fail while servicing an envelope: invalid argument, not found, backend,
// local I/O, resource, and stream errors. Primitives and the dispatcher both
// funnel through this package so envelope.Error.Code/Message are always
// derived the same way.
package bferrors

import (
	"errors"
	"fmt"
)

// Category is the taxonomy bucket an error belongs to (spec §7).
type Category string

const (
	CategoryInvalidArgument Category = "INVALID_ARGUMENT"
	CategoryNotFound        Category = "NOT_FOUND"
	CategoryBackend         Category = "BACKEND_ERROR"
	CategoryLocalIO         Category = "LOCAL_IO_ERROR"
	CategoryResource        Category = "RESOURCE_ERROR"
	CategoryStream          Category = "STREAM_ERROR"
)

var (
	// ErrNotFound is returned when a resolved target does not exist.
	ErrNotFound = errors.New("target does not exist")

	// ErrInvalidArgument covers malformed envelopes, unknown operations and
	// unknown nested arguments.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrLoginFailed terminates the stream loop; it is never attached to an
	// individual envelope.
	ErrLoginFailed = errors.New("login failed")

	// ErrConnectionFailed marks a backend call that could not reach the grid.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrResource covers local allocation failures during core bookkeeping.
	ErrResource = errors.New("resource allocation failed")
)

// BackendError wraps a non-zero status returned by the storage client,
// carrying its numeric code and, if resolvable, a symbolic name.
type BackendError struct {
	Code    int
	Symbol  string
	Op      string
	Message string
	Err     error
}

func (e *BackendError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("backend error %d (%s) during %s: %s", e.Code, e.Symbol, e.Op, e.Message)
	}
	return fmt.Sprintf("backend error %d during %s: %s", e.Code, e.Op, e.Message)
}

func (e *BackendError) Unwrap() error { return e.Err }

func NewBackendError(code int, symbol, op, message string, err error) *BackendError {
	return &BackendError{Code: code, Symbol: symbol, Op: op, Message: message, Err: err}
}

// ConnectionError represents a failure to dial or maintain the grid connection.
type ConnectionError struct {
	Host string
	Port int
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error to %s:%d: %v", e.Host, e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func NewConnectionError(host string, port int, err error) *ConnectionError {
	return &ConnectionError{Host: host, Port: port, Err: err}
}

// ValidationError represents a malformed envelope, target, or argument set.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s (value: %v): %s", e.Field, e.Value, e.Message)
}

func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// OperationError represents a named primitive failing against a specific target.
type OperationError struct {
	Operation string
	Target    string
	Err       error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("operation %s failed on %s: %v", e.Operation, e.Target, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

func NewOperationError(operation, target string, err error) *OperationError {
	return &OperationError{Operation: operation, Target: target, Err: err}
}

// NewNotFoundError wraps ErrNotFound with the path that was missing.
func NewNotFoundError(path string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, path)
}

// IsRetryable reports whether the error reflects a transient backend/connection
// condition a caller could reasonably retry outside this process.
func IsRetryable(err error) bool {
	switch {
	case errors.Is(err, ErrConnectionFailed):
		return true
	case errors.Is(err, ErrNotFound):
		return false
	case errors.Is(err, ErrInvalidArgument):
		return false
	default:
		var connErr *ConnectionError
		if errors.As(err, &connErr) {
			return true
		}
		var backendErr *BackendError
		if errors.As(err, &backendErr) {
			return backendErr.Code < 0 // negative backend codes are transport-layer in this taxonomy
		}
		return false
	}
}

// IsPermanent reports whether retrying the same request could never succeed.
func IsPermanent(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidArgument):
		return true
	default:
		var valErr *ValidationError
		return errors.As(err, &valErr)
	}
}

// Categorize classifies err into one of the spec's buckets: anything wrapping
// a *BackendError or *ConnectionError is CategoryBackend, and anything else
// unrecognized defaults to CategoryLocalIO. CategoryStream is never returned.
func Categorize(err error) Category {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidArgument):
		return CategoryInvalidArgument
	case errors.Is(err, ErrNotFound):
		return CategoryNotFound
	case errors.Is(err, ErrResource):
		return CategoryResource
	default:
		var valErr *ValidationError
		if errors.As(err, &valErr) {
			return CategoryInvalidArgument
		}
		var backendErr *BackendError
		if errors.As(err, &backendErr) {
			return CategoryBackend
		}
		var connErr *ConnectionError
		if errors.As(err, &connErr) {
			return CategoryBackend
		}
		return CategoryLocalIO
	}
}

// nonBackendCode maps a non-backend category to the real iRODS catalog/system
// error code it corresponds to, so the codes this module invents line up
// with the codes primitives already borrow straight from the backend (see
// CAT_COLLECTION_ALREADY_EXISTS, -809000, in internal/primitives/coll.go).
var nonBackendCode = map[Category]int{
	CategoryNotFound:        -310000, // USER_FILE_DOES_NOT_EXIST
	CategoryInvalidArgument: -130000, // SYS_INVALID_INPUT_PARAM
	CategoryResource:        -900000, // SYS_MALLOC_ERR
	CategoryStream:          -408000, // SYS_SOCK_READ_ERR
	CategoryLocalIO:         -511000, // UNIX_FILE_OPEN_ERR
}

// Code returns the stable integer code attached to an envelope's error
// object. Backend errors keep their own numeric code; everything else maps
// to the analogous real iRODS catalog/system code via nonBackendCode.
func Code(err error) int {
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return backendErr.Code
	}
	if code, ok := nonBackendCode[Categorize(err)]; ok {
		return code
	}
	return -1000 // CAT_UNKNOWN_FILE_EXCEPTION, no more specific category applies
}
