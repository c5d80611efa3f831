package audit

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

// AuditEventSuite tests the AuditEvent type and category mapping.
//
// Ledger mutations must never fall into the operational class.
type AuditEventSuite struct {
	suite.Suite
}

func TestAuditEventSuite(t *testing.T) {
	suite.Run(t, new(AuditEventSuite))
}

func (s *AuditEventSuite) TestCategory() {
	s.Run("ledger mutations are compliance events", func() {
		s.Equal(CategoryCompliance, EventCredentialIssued.Category())
		s.Equal(CategoryCompliance, EventCredentialRevoked.Category())
	})

	s.Run("lookups and session changes are operational", func() {
		s.Equal(CategoryOperations, EventCredentialVerified.Category())
		s.Equal(CategoryOperations, EventSessionReset.Category())
	})

	s.Run("unknown events fall back to operations", func() {
		s.Equal(CategoryOperations, AuditEvent("something_new").Category())
	})
}

func (s *AuditEventSuite) TestInvolves() {
	ev := Event{Actor: "0xA", Subject: "0xB"}
	s.True(ev.Involves("0xA"))
	s.True(ev.Involves("0xB"))
	s.False(ev.Involves("0xC"))
	s.False(Event{}.Involves(""))
}
