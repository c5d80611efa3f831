package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"verichain/internal/sentinel"
)

// Backend is the RPC surface the contract adapter needs; *ethclient.Client
// satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Signer produces signing options for the identity a registry was opened for.
type Signer interface {
	Transactor(ctx context.Context, from common.Address) (*bind.TransactOpts, error)
}

// EthRegistry talks to the registry contract through go-ethereum bindings.
type EthRegistry struct {
	address  common.Address
	from     common.Address
	backend  Backend
	signer   Signer
	contract *bind.BoundContract
}

// NewEthFactory returns a Factory producing EthRegistry handles.
func NewEthFactory(backend Backend, signer Signer) Factory {
	return FactoryFunc(func(registry, from common.Address) (Registry, error) {
		return NewEthRegistry(backend, signer, registry, from), nil
	})
}

// NewEthRegistry binds the contract at address, signing as from.
func NewEthRegistry(backend Backend, signer Signer, address, from common.Address) *EthRegistry {
	return &EthRegistry{
		address:  address,
		from:     from,
		backend:  backend,
		signer:   signer,
		contract: bind.NewBoundContract(address, ParsedRegistryABI, backend, backend, backend),
	}
}

func (r *EthRegistry) callOpts(ctx context.Context) *bind.CallOpts {
	return &bind.CallOpts{Context: ctx, From: r.from}
}

func (r *EthRegistry) call(ctx context.Context, method string, args ...any) ([]any, error) {
	var out []any
	if err := r.contract.Call(r.callOpts(ctx), &out, method, args...); err != nil {
		return nil, fmt.Errorf("call %s: %w", method, classify(err, sentinel.ErrUnavailable))
	}
	return out, nil
}

func (r *EthRegistry) TotalIssued(ctx context.Context) (*big.Int, error) {
	out, err := r.call(ctx, "totalCredentials")
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (r *EthRegistry) IsAuthorizedIssuer(ctx context.Context, who common.Address) (bool, error) {
	out, err := r.call(ctx, "isIssuer", who)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (r *EthRegistry) FetchValidity(ctx context.Context, id *big.Int) (bool, error) {
	out, err := r.call(ctx, "isValid", id)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (r *EthRegistry) FetchRecord(ctx context.Context, id *big.Int) (RawRecord, error) {
	out, err := r.call(ctx, "getCredential", id)
	if err != nil {
		return RawRecord{}, err
	}
	t := *abi.ConvertType(out[0], new(credentialTuple)).(*credentialTuple)
	return RawRecord{
		Issuer:      t.Issuer,
		Recipient:   t.Recipient,
		TypeCode:    t.Ctype,
		Title:       t.Title,
		Institution: t.Institution,
		IssueDate:   t.IssueDate,
		ExpiryDate:  t.ExpiryDate,
		Fingerprint: t.CredentialHash,
		Revoked:     t.Revoked,
		URI:         t.IpfsURI,
	}, nil
}

func (r *EthRegistry) transact(ctx context.Context, method string, args ...any) (Submission, error) {
	opts, err := r.signer.Transactor(ctx, r.from)
	if err != nil {
		return Submission{}, fmt.Errorf("prepare %s: %w", method, classify(err, sentinel.ErrSigning))
	}
	tx, err := r.contract.Transact(opts, method, args...)
	if err != nil {
		return Submission{}, fmt.Errorf("submit %s: %w", method, classify(err, sentinel.ErrReverted))
	}
	return NewSubmission(tx.Hash(), tx), nil
}

func (r *EthRegistry) SubmitIssuance(ctx context.Context, c IssuanceCall) (Submission, error) {
	return r.transact(ctx, "issueCredential",
		c.Recipient,
		c.TypeCode,
		c.Title,
		c.Institution,
		new(big.Int).SetUint64(c.Expiry),
		c.Fingerprint,
		c.URI,
	)
}

func (r *EthRegistry) SubmitRevocation(ctx context.Context, id *big.Int, reason string) (Submission, error) {
	return r.transact(ctx, "revokeCredential", id, reason)
}

// WaitConfirmed blocks until the transaction is mined. A mined transaction
// with failed status is reported as sentinel.ErrReverted.
func (r *EthRegistry) WaitConfirmed(ctx context.Context, sub Submission) (Confirmation, error) {
	tx, ok := sub.Handle().(*types.Transaction)
	if !ok {
		return Confirmation{}, fmt.Errorf("submission %s was not produced by this registry: %w", sub.TxHash.Hex(), sentinel.ErrInvalidInput)
	}
	receipt, err := bind.WaitMined(ctx, r.backend, tx)
	if err != nil {
		return Confirmation{}, fmt.Errorf("wait for %s: %w", sub.TxHash.Hex(), classify(err, sentinel.ErrUnavailable))
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return Confirmation{}, fmt.Errorf("transaction %s failed in block %d: %w", receipt.TxHash.Hex(), receipt.BlockNumber.Uint64(), sentinel.ErrReverted)
	}
	return Confirmation{
		TxHash:      receipt.TxHash,
		BlockNumber: receipt.BlockNumber.Uint64(),
		Events:      DecodeEvents(r.address, receipt.Logs),
	}, nil
}

// DecodeEvents extracts registry events emitted by address. Logs from other
// contracts and unknown topics are skipped.
func DecodeEvents(address common.Address, logs []*types.Log) []Event {
	var events []Event
	for _, l := range logs {
		if l == nil || l.Address != address || len(l.Topics) < 2 {
			continue
		}
		ev, err := ParsedRegistryABI.EventByID(l.Topics[0])
		if err != nil {
			continue
		}
		events = append(events, Event{
			Name:    ev.Name,
			TokenID: new(big.Int).SetBytes(l.Topics[1].Bytes()),
		})
	}
	return events
}

// Registry access control reverts carry one of these fragments.
var permissionMarkers = []string{
	"accesscontrol",
	"missing role",
	"issuer_role",
	"not an issuer",
	"not authorized",
	"unauthorized",
}

// classify maps go-ethereum error text onto sentinel errors. fallback is
// used when nothing more specific matches.
func classify(err error, fallback error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{sentinel.ErrPermission, sentinel.ErrReverted, sentinel.ErrSigning, sentinel.ErrRejected, sentinel.ErrUnavailable} {
		if errors.Is(err, known) {
			return err
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "user denied"), strings.Contains(msg, "user rejected"):
		return fmt.Errorf("%w: %w", sentinel.ErrRejected, err)
	case strings.Contains(msg, "insufficient funds"), strings.Contains(msg, "nonce too low"),
		strings.Contains(msg, "invalid sender"):
		return fmt.Errorf("%w: %w", sentinel.ErrSigning, err)
	case strings.Contains(msg, "revert"):
		for _, marker := range permissionMarkers {
			if strings.Contains(msg, marker) {
				return fmt.Errorf("%w: %w", sentinel.ErrPermission, err)
			}
		}
		return fmt.Errorf("%w: %w", sentinel.ErrReverted, err)
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"),
		strings.Contains(msg, "eof"):
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	default:
		return fmt.Errorf("%w: %w", fallback, err)
	}
}

var _ Registry = (*EthRegistry)(nil)
