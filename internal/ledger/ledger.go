// Package ledger defines the credential registry capability the client
// consumes and its go-ethereum contract adapter.
//
// Values here are raw registry shapes (big integers, numeric type codes,
// zero-as-absent dates). The verification service converts them at its
// boundary; nothing above it sees these types.
package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Event names emitted by the registry contract.
const (
	EventCredentialIssued  = "CredentialIssued"
	EventCredentialRevoked = "CredentialRevoked"
)

// IssuanceCall carries the arguments of issueCredential.
type IssuanceCall struct {
	Recipient   common.Address
	TypeCode    uint8
	Title       string
	Institution string
	Expiry      uint64
	Fingerprint [32]byte
	URI         string
}

// Submission identifies a signed, broadcast transaction awaiting confirmation.
type Submission struct {
	TxHash common.Hash
	handle any
}

// NewSubmission builds a Submission carrying an adapter-private handle.
func NewSubmission(hash common.Hash, handle any) Submission {
	return Submission{TxHash: hash, handle: handle}
}

// Handle returns the adapter-private value passed to NewSubmission.
func (s Submission) Handle() any { return s.handle }

// Event is a decoded registry log entry.
type Event struct {
	Name    string
	TokenID *big.Int
}

// Confirmation is a mined, successful transaction and its decoded events.
type Confirmation struct {
	TxHash      common.Hash
	BlockNumber uint64
	Events      []Event
}

// RawRecord is getCredential's return tuple.
type RawRecord struct {
	Issuer      common.Address
	Recipient   common.Address
	TypeCode    uint8
	Title       string
	Institution string
	IssueDate   *big.Int
	ExpiryDate  *big.Int
	Fingerprint [32]byte
	Revoked     bool
	URI         string
}

// Registry is the remote credential registry bound to one signer.
//
// Implementations report failures with the sentinel package: ErrPermission
// for a missing issuer role, ErrReverted for any other rejection, ErrSigning
// and ErrRejected for signer failures and ErrUnavailable for transport loss.
type Registry interface {
	TotalIssued(ctx context.Context) (*big.Int, error)
	IsAuthorizedIssuer(ctx context.Context, who common.Address) (bool, error)
	SubmitIssuance(ctx context.Context, call IssuanceCall) (Submission, error)
	SubmitRevocation(ctx context.Context, id *big.Int, reason string) (Submission, error)
	WaitConfirmed(ctx context.Context, sub Submission) (Confirmation, error)
	FetchValidity(ctx context.Context, id *big.Int) (bool, error)
	FetchRecord(ctx context.Context, id *big.Int) (RawRecord, error)
}

// Factory opens a Registry at registry that signs as from. Opening is
// optimistic: no call is made against the ledger.
type Factory interface {
	Open(registry, from common.Address) (Registry, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(registry, from common.Address) (Registry, error)

func (f FactoryFunc) Open(registry, from common.Address) (Registry, error) {
	return f(registry, from)
}

// FindEvent returns the first event named name.
func (c Confirmation) FindEvent(name string) (Event, bool) {
	for _, e := range c.Events {
		if e.Name == name {
			return e, true
		}
	}
	return Event{}, false
}
