package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "verichain/pkg/domain-errors"
)

// LimitsSuite pins the boundary: max passes, max+1 fails.
type LimitsSuite struct {
	suite.Suite
}

func TestLimitsSuite(t *testing.T) {
	suite.Run(t, new(LimitsSuite))
}

func (s *LimitsSuite) TestCheckStringLength() {
	s.Run("passes when length equals max", func() {
		s.NoError(CheckStringLength("title", strings.Repeat("a", MaxTitleLength), MaxTitleLength))
	})

	s.Run("passes when empty", func() {
		s.NoError(CheckStringLength("title", "", MaxTitleLength))
	})

	s.Run("fails when length exceeds max", func() {
		err := CheckStringLength("title", strings.Repeat("a", MaxTitleLength+1), MaxTitleLength)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(err.Error(), "title exceeds max length of 256")
	})
}
