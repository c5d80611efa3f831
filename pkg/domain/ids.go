// Package domain provides type-safe identifiers to prevent mixing up ledger
// identities and registry-assigned credential IDs at compile time.
package domain

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	dErrors "verichain/pkg/domain-errors"
)

// Address is a syntactically valid, non-zero ledger identity: a wallet,
// a credential recipient, or a registry contract.
type Address common.Address

// CredentialID is the registry-assigned identifier of an issued credential.
type CredentialID uint64

// Parse functions - use at trust boundaries (handlers, service inputs).

// ParseAddress validates a 0x-prefixed (or bare) 20-byte hex identity.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Address{}, dErrors.New(dErrors.CodeInvalidAddress, "address cannot be empty")
	}
	if !common.IsHexAddress(s) {
		return Address{}, dErrors.New(dErrors.CodeInvalidAddress, "invalid address format: "+s)
	}
	addr := common.HexToAddress(s)
	if addr == (common.Address{}) {
		return Address{}, dErrors.New(dErrors.CodeInvalidAddress, "zero address is not a valid identity")
	}
	return Address(addr), nil
}

// ParseCredentialID parses a non-negative base-10 integer.
//
// Malformed or negative input yields CodeInvalidIdentifier. Integers that do
// not fit in 64 bits are well-formed but can never be below the registry's
// issued count, so they yield CodeNotFound instead.
func ParseCredentialID(s string) (CredentialID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidIdentifier, "credential ID cannot be empty")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, dErrors.New(dErrors.CodeInvalidIdentifier, "credential ID must be a non-negative integer: "+s)
		}
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return 0, dErrors.New(dErrors.CodeInvalidIdentifier, "credential ID must be a non-negative integer: "+s)
	}
	if !n.IsUint64() {
		return 0, dErrors.New(dErrors.CodeNotFound, "credential #"+s+" does not exist")
	}
	return CredentialID(n.Uint64()), nil
}

// String methods - for logging and API responses.

func (a Address) String() string       { return common.Address(a).Hex() }
func (id CredentialID) String() string { return strconv.FormatUint(uint64(id), 10) }

// IsNil checks - used for service-layer validation.

func (a Address) IsNil() bool { return common.Address(a) == common.Address{} }

// Common exposes the go-ethereum representation for adapter code.
func (a Address) Common() common.Address { return common.Address(a) }

// Big returns the identifier as the registry's uint256 argument.
func (id CredentialID) Big() *big.Int { return new(big.Int).SetUint64(uint64(id)) }

// MarshalText encodes the checksummed hex form.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses with ParseAddress.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// AddressFromCommon converts an adapter-level address without validation.
func AddressFromCommon(a common.Address) Address { return Address(a) }
