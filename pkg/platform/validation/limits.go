package validation

import (
	"fmt"

	dErrors "verichain/pkg/domain-errors"
)

// HTTP body limits
const (
	// MaxBodySize is the maximum allowed request body size (64 KB).
	MaxBodySize = 64 * 1024
)

// String element length limits. Registry storage is paid per byte, so text
// fields are kept short.
const (
	MaxTitleLength       = 256
	MaxInstitutionLength = 256
	MaxExternalURILength = 2048
	MaxReasonLength      = 512
)

// CheckStringLength validates that a string does not exceed the maximum length.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}
