package issuance

import (
	"context"
	"errors"

	"verichain/internal/sentinel"
	dErrors "verichain/pkg/domain-errors"
)

// translateSubmitError maps registry and signer failures for a state-changing
// call. A missing issuer role is reported apart from every other rejection.
func translateSubmitError(err error, msg string) error {
	detail := msg + ": " + err.Error()
	switch {
	case errors.Is(err, sentinel.ErrPermission):
		return dErrors.Wrap(err, dErrors.CodePermissionDenied, msg+": the connected identity is not an authorized issuer")
	case errors.Is(err, sentinel.ErrReverted):
		return dErrors.Wrap(err, dErrors.CodeSubmissionRejected, detail)
	case errors.Is(err, sentinel.ErrRejected):
		return dErrors.Wrap(err, dErrors.CodeAgentError, msg+": signing was declined")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeAgentError, msg+": timed out")
	default:
		return dErrors.Wrap(err, dErrors.CodeAgentError, detail)
	}
}

func translateReadError(err error, msg string) error {
	if errors.Is(err, sentinel.ErrPermission) {
		return dErrors.Wrap(err, dErrors.CodePermissionDenied, msg+": "+err.Error())
	}
	return dErrors.Wrap(err, dErrors.CodeAgentError, msg+": "+err.Error())
}
