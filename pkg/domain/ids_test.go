package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "verichain/pkg/domain-errors"
)

// TestParseAddress_Invariants validates the parsing invariant:
// "identities must be well-formed, non-zero 20-byte hex addresses".
func TestParseAddress_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseAddress("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAddress))
	})

	t.Run("rejects malformed hex", func(t *testing.T) {
		_, err := ParseAddress("0xZZZ")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAddress))
	})

	t.Run("rejects short address", func(t *testing.T) {
		_, err := ParseAddress("0xAAA")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAddress))
	})

	t.Run("rejects zero address", func(t *testing.T) {
		_, err := ParseAddress("0x0000000000000000000000000000000000000000")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAddress))
	})

	t.Run("accepts lower-case address and checksums it", func(t *testing.T) {
		addr, err := ParseAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
		require.NoError(t, err)
		assert.False(t, addr.IsNil())
		assert.Equal(t, "0xaAaAaAaaAaAaAaaAaAAAAAAAAaaaAaAaAaaAaaAa", addr.String())
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		a, err := ParseAddress("  0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb ")
		require.NoError(t, err)
		b, err := ParseAddress("0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}

func TestParseCredentialID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     CredentialID
		wantCode dErrors.Code
	}{
		{name: "zero", input: "0", want: 0},
		{name: "plain integer", input: "42", want: 42},
		{name: "leading zeros", input: "007", want: 7},
		{name: "surrounding whitespace", input: " 5 ", want: 5},
		{name: "empty", input: "", wantCode: dErrors.CodeInvalidIdentifier},
		{name: "negative", input: "-1", wantCode: dErrors.CodeInvalidIdentifier},
		{name: "explicit plus sign", input: "+3", wantCode: dErrors.CodeInvalidIdentifier},
		{name: "hex", input: "0x10", wantCode: dErrors.CodeInvalidIdentifier},
		{name: "decimal point", input: "1.5", wantCode: dErrors.CodeInvalidIdentifier},
		{name: "beyond uint64", input: "18446744073709551616", wantCode: dErrors.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCredentialID(tt.input)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, tt.wantCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, uint64(tt.want), got.Big().Uint64())
		})
	}
}
