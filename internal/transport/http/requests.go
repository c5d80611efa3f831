package httptransport

import (
	"strings"
	"time"

	"verichain/internal/credential/models"
	dErrors "verichain/pkg/domain-errors"
	platformvalidation "verichain/pkg/platform/validation"
	s "verichain/pkg/platform/strings"
	"verichain/pkg/validation"
)

// HTTP Request DTOs - contain JSON tags for API serialization.
// Semantic checks (address syntax, blank fields, type names) stay in the
// services so every caller gets the same error kinds.

type BindRequest struct {
	RegistryAddress string `json:"registry_address"`
}

func (r *BindRequest) Sanitize() {
	if r == nil {
		return
	}
	s.TrimStrings(&r.RegistryAddress)
}

type SelectAccountRequest struct {
	Address string `json:"address" validate:"required,ethaddr"`
}

func (r *SelectAccountRequest) Sanitize() {
	if r == nil {
		return
	}
	s.TrimStrings(&r.Address)
}

func (r *SelectAccountRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request is required")
	}
	return validation.Validate(r)
}

type IssueRequest struct {
	Recipient   string  `json:"recipient"`
	Type        string  `json:"type"`
	Title       string  `json:"title"`
	Institution string  `json:"institution"`
	ExpiryDate  *string `json:"expiry_date,omitempty"`
	ExternalURI string  `json:"external_uri,omitempty"`

	expiry *time.Time
}

func (r *IssueRequest) Sanitize() {
	if r == nil {
		return
	}
	s.TrimStrings(&r.Recipient, &r.Type, &r.Title, &r.Institution, &r.ExternalURI)
	if r.ExpiryDate != nil {
		s.TrimStrings(r.ExpiryDate)
		if *r.ExpiryDate == "" {
			r.ExpiryDate = nil
		}
	}
}

// Validate enforces transport limits and parses the expiry date, which may
// be a calendar date (taken as UTC midnight) or an RFC 3339 timestamp.
func (r *IssueRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request is required")
	}
	if err := platformvalidation.CheckStringLength("title", r.Title, platformvalidation.MaxTitleLength); err != nil {
		return err
	}
	if err := platformvalidation.CheckStringLength("institution", r.Institution, platformvalidation.MaxInstitutionLength); err != nil {
		return err
	}
	if err := platformvalidation.CheckStringLength("external_uri", r.ExternalURI, platformvalidation.MaxExternalURILength); err != nil {
		return err
	}
	if r.ExpiryDate != nil {
		t, err := parseDate(*r.ExpiryDate)
		if err != nil {
			return err
		}
		r.expiry = &t
	}
	return nil
}

// Command converts the request for the issuance service. It fails with
// invalid_input on an unknown type name.
func (r *IssueRequest) Command() (models.CredentialRequest, error) {
	typ, err := models.ParseCredentialType(r.Type)
	if err != nil {
		return models.CredentialRequest{}, err
	}
	return models.CredentialRequest{
		Recipient:   r.Recipient,
		Type:        typ,
		Title:       r.Title,
		Institution: r.Institution,
		ExpiryDate:  r.expiry,
		ExternalURI: r.ExternalURI,
	}, nil
}

type RevokeRequest struct {
	Reason string `json:"reason"`
}

func (r *RevokeRequest) Normalize() {
	if r == nil {
		return
	}
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *RevokeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request is required")
	}
	return platformvalidation.CheckStringLength("reason", r.Reason, platformvalidation.MaxReasonLength)
}

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, dErrors.New(dErrors.CodeInvalidInput, "expiry_date must be YYYY-MM-DD or RFC 3339: "+v)
}
