package hunt

import (
	"errors"
	"net/http"
)

// ErrNotFound is returned by stores when a keyed record does not exist.
var ErrNotFound = errors.New("not found")

// Code is a machine-readable error code surfaced to clients.
type Code string

const (
	CodeInvalid            Code = "CODE_INVALID"
	CodeInactive           Code = "CODE_INACTIVE"
	CodeExhausted          Code = "CODE_EXHAUSTED"
	CodeDeviceConflict     Code = "DEVICE_CONFLICT"
	CodeTokenInvalid       Code = "TOKEN_INVALID"
	CodeTokenExpired       Code = "TOKEN_EXPIRED"
	CodeOrderingGeneration Code = "ORDERING_GENERATION_FAILED"
	CodeStorageUnavailable Code = "STORAGE_UNAVAILABLE"
	CodeNotFound           Code = "NOT_FOUND"
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
	CodeUnauthenticated    Code = "UNAUTHENTICATED"
	CodeUnknown            Code = "UNKNOWN"
)

// HTTPStatus maps a code to the status used by the HTTP layer.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalid, CodeTokenInvalid, CodeTokenExpired, CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeInactive, CodeExhausted:
		return http.StatusForbidden
	case CodeDeviceConflict, CodeAlreadyExists:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is the domain error type. Two errors match under errors.Is when
// their codes are equal.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func WrapError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the code from err, or CodeUnknown when err is not a
// domain error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// Sentinels for errors.Is comparisons.
var (
	ErrCodeInvalid        = NewError(CodeInvalid, "team code not recognised")
	ErrCodeInactive       = NewError(CodeInactive, "team code is no longer active")
	ErrCodeExhausted      = NewError(CodeExhausted, "team code usage limit reached")
	ErrDeviceConflict     = NewError(CodeDeviceConflict, "device is already bound to another team")
	ErrTokenInvalid       = NewError(CodeTokenInvalid, "lock token is invalid")
	ErrTokenExpired       = NewError(CodeTokenExpired, "lock token has expired")
	ErrOrderingGeneration = NewError(CodeOrderingGeneration, "stop order could not be stored")
	ErrStorageUnavailable = NewError(CodeStorageUnavailable, "storage unavailable")
)
