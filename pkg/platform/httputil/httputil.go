package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "verichain/pkg/domain-errors"
)

// ErrorResponse is the {kind, message} envelope every failure is rendered as.
type ErrorResponse struct {
	Kind    dErrors.Code `json:"kind"`
	Message string       `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Errors after WriteHeader cannot change the status code, so we ignore encoding errors.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError centralizes domain error translation to HTTP responses.
// Errors without a domain code are reported as internal without leaking
// their text.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), ErrorResponse{
			Kind:    domainErr.Code,
			Message: domainErr.Error(),
		})
		return
	}

	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
		Kind:    dErrors.CodeInternal,
		Message: "internal error",
	})
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeInvalidInput, dErrors.CodeValidation, dErrors.CodeInvalidIdentifier, dErrors.CodeInvalidAddress:
		return http.StatusBadRequest
	case dErrors.CodeNotConnected, dErrors.CodeNotBound, dErrors.CodeSuperseded, dErrors.CodeRecordMismatch:
		return http.StatusConflict
	case dErrors.CodePermissionDenied, dErrors.CodeUserRejected:
		return http.StatusForbidden
	case dErrors.CodeSubmissionRejected:
		return http.StatusUnprocessableEntity
	case dErrors.CodeAgentUnavailable:
		return http.StatusServiceUnavailable
	case dErrors.CodeAgentError, dErrors.CodeEventNotFound, dErrors.CodeUnknownType:
		return http.StatusBadGateway
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeInternal, dErrors.CodeHashingUnavailable:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
