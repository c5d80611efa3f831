package domainerrors

import "errors"

// Code represents a domain error category independent of transport layer.
// These codes describe what went wrong in client terms, not HTTP terms.
type Code string

const (
	// Connection and signing layer
	CodeAgentUnavailable Code = "agent_unavailable"
	CodeUserRejected     Code = "user_rejected"
	CodeAgentError       Code = "agent_error"

	// Binding and session layer
	CodeNotConnected   Code = "not_connected"
	CodeInvalidAddress Code = "invalid_address"
	CodeNotBound       Code = "not_bound"
	CodeSuperseded     Code = "session_superseded"

	// Issuance layer
	CodePermissionDenied   Code = "permission_denied"
	CodeSubmissionRejected Code = "submission_rejected"
	CodeEventNotFound      Code = "event_not_found"

	// Verification layer
	CodeInvalidIdentifier Code = "invalid_identifier"
	CodeNotFound          Code = "not_found"
	CodeUnknownType       Code = "unknown_type"
	CodeRecordMismatch    Code = "record_mismatch"

	// Canonicalizer
	CodeHashingUnavailable Code = "hashing_unavailable"

	CodeInvalidInput Code = "invalid_input"
	CodeValidation   Code = "validation_failed"
	CodeUnauthorized Code = "unauthorized"
	CodeTimeout      Code = "timeout"
	CodeInternal     Code = "internal_error"
)

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across service, adapter, and transport layers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// KindOf returns the code of the outermost domain error in the chain.
// Errors that carry no domain code report CodeInternal.
func KindOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
