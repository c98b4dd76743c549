package wirechat

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes SDK errors.
type ErrorCode int

const (
	ErrorUnknown ErrorCode = iota

	// Reported by the server in error frames.
	ErrorUnsupportedVersion
	ErrorUnauthorized
	ErrorInvalidMessage
	ErrorBadRequest
	ErrorRoomNotFound
	ErrorAlreadyJoined
	ErrorNotInRoom
	ErrorAccessDenied
	ErrorRateLimited
	ErrorInternalServer

	// Raised by the client itself.
	ErrorConnection
	ErrorDisconnected
	ErrorTimeout
	ErrorInvalidConfig
	ErrorNotConnected
	ErrorSerialization
)

// codeNames holds the wire names of server codes and the display names of
// client codes.
var codeNames = map[ErrorCode]string{
	ErrorUnknown:            "unknown",
	ErrorUnsupportedVersion: "unsupported_version",
	ErrorUnauthorized:       "unauthorized",
	ErrorInvalidMessage:     "invalid_message",
	ErrorBadRequest:         "bad_request",
	ErrorRoomNotFound:       "room_not_found",
	ErrorAlreadyJoined:      "already_joined",
	ErrorNotInRoom:          "not_in_room",
	ErrorAccessDenied:       "access_denied",
	ErrorRateLimited:        "rate_limited",
	ErrorInternalServer:     "internal_error",
	ErrorConnection:         "connection_error",
	ErrorDisconnected:       "disconnected",
	ErrorTimeout:            "timeout",
	ErrorInvalidConfig:      "invalid_config",
	ErrorNotConnected:       "not_connected",
	ErrorSerialization:      "serialization_error",
}

func (e ErrorCode) String() string {
	if name, ok := codeNames[e]; ok {
		return name
	}
	return fmt.Sprintf("unknown_code_%d", e)
}

// fromServer reports whether the code can arrive in a server error frame.
func (e ErrorCode) fromServer() bool {
	return e >= ErrorUnsupportedVersion && e <= ErrorInternalServer
}

// ParseErrorCode maps a server error code to its ErrorCode. Client-side
// names and unrecognized codes map to ErrorUnknown.
func ParseErrorCode(code string) ErrorCode {
	for c, name := range codeNames {
		if name == code && c.fromServer() {
			return c
		}
	}
	return ErrorUnknown
}

// WirechatError is a structured error with code and context.
type WirechatError struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

func (e *WirechatError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *WirechatError) Unwrap() error {
	return e.Wrapped
}

// Is matches any *WirechatError with the same code, so
// errors.Is(err, NewError(ErrorTimeout, "")) works as a code check.
func (e *WirechatError) Is(target error) bool {
	t, ok := target.(*WirechatError)
	return ok && e.Code == t.Code
}

// NewError creates a WirechatError with the given code and message.
func NewError(code ErrorCode, message string) *WirechatError {
	return &WirechatError{Code: code, Message: message}
}

// WrapError attaches a code and message to err.
func WrapError(code ErrorCode, message string, err error) *WirechatError {
	return &WirechatError{Code: code, Message: message, Wrapped: err}
}

// FromProtocolError converts a server error frame.
func FromProtocolError(e *Error) *WirechatError {
	if e == nil {
		return nil
	}
	return NewError(ParseErrorCode(e.Code), e.Msg)
}

// IsProtocolError reports whether err came from a server error frame.
func IsProtocolError(err error) bool {
	return CodeOf(err).fromServer()
}

// IsConnectionError reports whether err means the connection is unusable.
func IsConnectionError(err error) bool {
	switch CodeOf(err) {
	case ErrorConnection, ErrorDisconnected, ErrorTimeout, ErrorNotConnected:
		return true
	default:
		return false
	}
}

// CodeOf extracts the ErrorCode from err, or ErrorUnknown when err is not
// a WirechatError.
func CodeOf(err error) ErrorCode {
	var we *WirechatError
	if !errors.As(err, &we) {
		return ErrorUnknown
	}
	return we.Code
}
