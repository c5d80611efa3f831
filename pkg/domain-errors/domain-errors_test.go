package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite covers the error primitives every layer returns to the
// presentation boundary: wrapped domain errors keep their original code and
// errors.Is matches by code.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeNotFound, Message: "credential #5 does not exist"}
		s.Equal("credential #5 does not exist", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeNotBound}
		s.Equal("not_bound", err.Error())
	})
}

func (s *DomainErrorsSuite) TestUnwrap() {
	s.Run("returns wrapped error", func() {
		inner := errors.New("dial tcp: connection refused")
		err := &Error{Code: CodeAgentError, Message: "agent failed", Err: inner}
		s.Equal(inner, err.Unwrap())
	})

	s.Run("returns nil when no wrapped error", func() {
		err := &Error{Code: CodeNotFound, Message: "not found"}
		s.Nil(err.Unwrap())
	})
}

func (s *DomainErrorsSuite) TestIsMatching() {
	s.Run("matches by code only", func() {
		err1 := &Error{Code: CodePermissionDenied, Message: "missing issuer role"}
		err2 := &Error{Code: CodePermissionDenied, Message: "other message"}
		s.True(err1.Is(err2))
	})

	s.Run("does not match different codes", func() {
		err1 := &Error{Code: CodePermissionDenied}
		err2 := &Error{Code: CodeSubmissionRejected}
		s.False(err1.Is(err2))
	})

	s.Run("does not match non-domain errors", func() {
		err1 := &Error{Code: CodeNotFound}
		s.False(err1.Is(errors.New("not found")))
	})

	s.Run("works with errors.Is through chain", func() {
		inner := &Error{Code: CodeEventNotFound, Message: "original"}
		wrapped := fmt.Errorf("issue: %w", inner)
		s.True(errors.Is(wrapped, &Error{Code: CodeEventNotFound}))
	})
}

func (s *DomainErrorsSuite) TestWrap() {
	s.Run("preserves original domain code when wrapping domain error", func() {
		original := New(CodeUserRejected, "user declined the request")
		wrapped := Wrap(original, CodeAgentError, "connect failed")

		var domainErr *Error
		s.Require().True(errors.As(wrapped, &domainErr))
		s.Equal(CodeUserRejected, domainErr.Code)
		s.Equal("connect failed", domainErr.Message)
	})

	s.Run("uses provided code when wrapping non-domain error", func() {
		original := errors.New("execution reverted")
		wrapped := Wrap(original, CodeSubmissionRejected, "registry rejected issuance")

		s.True(HasCode(wrapped, CodeSubmissionRejected))
		s.True(errors.Is(wrapped, original))
	})
}

func (s *DomainErrorsSuite) TestKindOf() {
	s.Run("reports code of domain error", func() {
		s.Equal(CodeUnknownType, KindOf(New(CodeUnknownType, "type code 7")))
	})

	s.Run("reports code through fmt wrapping", func() {
		err := fmt.Errorf("verify: %w", New(CodeInvalidIdentifier, "bad id"))
		s.Equal(CodeInvalidIdentifier, KindOf(err))
	})

	s.Run("reports internal for plain errors", func() {
		s.Equal(CodeInternal, KindOf(errors.New("boom")))
	})
}

func (s *DomainErrorsSuite) TestHasCode() {
	s.Run("returns false for non-domain error", func() {
		s.False(HasCode(errors.New("regular error"), CodeNotFound))
	})

	s.Run("returns false for nil error", func() {
		s.False(HasCode(nil, CodeNotFound))
	})
}
