package audit

import "time"

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp    time.Time `json:"timestamp"`
	Action       string    `json:"action"`
	Actor        string    `json:"actor,omitempty"`   // signing identity that performed the action
	Subject      string    `json:"subject,omitempty"` // identity the action concerns, e.g. the recipient
	CredentialID string    `json:"credential_id,omitempty"`
	TxRef        string    `json:"tx_ref,omitempty"`
	Generation   uint64    `json:"generation,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	Client       string    `json:"client,omitempty"`
	RequestID    string    `json:"request_id,omitempty"` // Correlation ID from HTTP request context
}

// Involves reports whether identity is the actor or the subject.
func (e Event) Involves(identity string) bool {
	return identity != "" && (e.Actor == identity || e.Subject == identity)
}

type AuditEvent string

const (
	EventCredentialIssued   AuditEvent = "credential_issued"
	EventCredentialRevoked  AuditEvent = "credential_revoked"
	EventCredentialVerified AuditEvent = "credential_verified"
	EventSessionReset       AuditEvent = "session_reset"
	EventSessionBound       AuditEvent = "session_bound"
)

// Category groups events by retention class.
type Category string

const (
	CategoryCompliance Category = "compliance"
	CategoryOperations Category = "operations"
)

// Category returns the retention class of e. Unknown events are operational.
func (e AuditEvent) Category() Category {
	switch e {
	case EventCredentialIssued, EventCredentialRevoked:
		return CategoryCompliance
	default:
		return CategoryOperations
	}
}
