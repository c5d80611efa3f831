package models

import (
	"strconv"
	"strings"
	"time"

	"verichain/internal/fingerprint"
	"verichain/pkg/domain"
	dErrors "verichain/pkg/domain-errors"
)

// CredentialType is the enumerated kind of a credential.
type CredentialType uint8

// The registry encodes types by their position in this list.
const (
	CourseCompletion CredentialType = iota
	CompetitionAward
	ProjectValidation
)

var typeNames = [...]struct {
	key     string
	display string
}{
	CourseCompletion:  {"course_completion", "Course Completion"},
	CompetitionAward:  {"competition_award", "Competition Award"},
	ProjectValidation: {"project_validation", "Project Validation"},
}

// TypeFromCode maps a registry type code. Codes outside the known range are
// CodeUnknownType; there is no default.
func TypeFromCode(code uint8) (CredentialType, error) {
	if int(code) >= len(typeNames) {
		return 0, dErrors.New(dErrors.CodeUnknownType, "registry returned unknown credential type code "+strconv.Itoa(int(code)))
	}
	return CredentialType(code), nil
}

// ParseCredentialType accepts the snake_case key, the display name or the
// CamelCase constant name.
func ParseCredentialType(s string) (CredentialType, error) {
	norm := strings.ToLower(strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.TrimSpace(s)))
	for i, n := range typeNames {
		if norm == strings.ReplaceAll(n.key, "_", "") {
			return CredentialType(i), nil
		}
	}
	return 0, dErrors.New(dErrors.CodeInvalidInput, "unknown credential type: "+s)
}

// Valid reports whether t is a known type.
func (t CredentialType) Valid() bool { return int(t) < len(typeNames) }

// Code is the registry's numeric encoding.
func (t CredentialType) Code() uint8 { return uint8(t) }

// DisplayName is the human-readable name.
func (t CredentialType) DisplayName() string {
	if !t.Valid() {
		return "Unknown"
	}
	return typeNames[t].display
}

func (t CredentialType) String() string {
	if !t.Valid() {
		return "unknown"
	}
	return typeNames[t].key
}

// MarshalText encodes the snake_case key.
func (t CredentialType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText accepts any form ParseCredentialType does.
func (t *CredentialType) UnmarshalText(text []byte) error {
	parsed, err := ParseCredentialType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// CredentialRequest is an issuance request before fingerprinting. A nil
// ExpiryDate means the credential never expires.
type CredentialRequest struct {
	Recipient   string
	Type        CredentialType
	Title       string
	Institution string
	ExpiryDate  *time.Time
	ExternalURI string
}

// IssuanceReceipt describes a confirmed issuance.
type IssuanceReceipt struct {
	AssignedID     domain.CredentialID `json:"assigned_id,string"`
	TransactionRef string              `json:"transaction_ref"`
	BlockRef       uint64              `json:"block_ref"`
	Fingerprint    fingerprint.Digest  `json:"fingerprint"`
}

// RevocationReceipt describes a confirmed revocation.
type RevocationReceipt struct {
	CredentialID   domain.CredentialID `json:"credential_id,string"`
	TransactionRef string              `json:"transaction_ref"`
	BlockRef       uint64              `json:"block_ref"`
}

// CredentialRecord is the normalized registry record. Absent dates are nil,
// never the zero time.
type CredentialRecord struct {
	Issuer      domain.Address     `json:"issuer"`
	Recipient   domain.Address     `json:"recipient"`
	Type        CredentialType     `json:"type"`
	TypeName    string             `json:"type_name"`
	Title       string             `json:"title"`
	Institution string             `json:"institution"`
	IssueDate   *time.Time         `json:"issue_date,omitempty"`
	ExpiryDate  *time.Time         `json:"expiry_date,omitempty"`
	Fingerprint fingerprint.Digest `json:"fingerprint"`
	Revoked     bool               `json:"revoked"`
	ExternalURI string             `json:"external_uri"`
}

// VerificationResult is a successful lookup. EffectivelyValid is
// Valid && !Record.Revoked.
type VerificationResult struct {
	ID               domain.CredentialID `json:"id,string"`
	Valid            bool                `json:"valid"`
	EffectivelyValid bool                `json:"effectively_valid"`
	Record           CredentialRecord    `json:"record"`
}

// NewVerificationResult composes a result and derives EffectivelyValid.
func NewVerificationResult(id domain.CredentialID, valid bool, record CredentialRecord) VerificationResult {
	return VerificationResult{
		ID:               id,
		Valid:            valid,
		EffectivelyValid: valid && !record.Revoked,
		Record:           record,
	}
}

// Failure is the {kind, message} outcome shown to the presentation layer.
type Failure struct {
	Kind    dErrors.Code `json:"kind"`
	Message string       `json:"message"`
}

// FailureFrom converts an error into its presentation form.
func FailureFrom(err error) Failure {
	return Failure{Kind: dErrors.KindOf(err), Message: err.Error()}
}
