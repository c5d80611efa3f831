// Package ledgertest provides an in-memory credential registry for tests
// and local development.
package ledgertest

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"verichain/internal/ledger"
	"verichain/internal/sentinel"
)

type pendingTx struct {
	apply func() []ledger.Event
}

// Chain is the shared registry state. Every handle opened through it sees
// the same records, the way every signer sees the same contract.
type Chain struct {
	mu        sync.Mutex
	records   []ledger.RawRecord
	validity  map[uint64]bool
	issuers   map[common.Address]bool
	pending   map[common.Hash]pendingTx
	nonce     uint64
	block     uint64
	calls     []string
	opened    int
	submitErr error
	readErr   error
	dropEvent bool
	gate      chan struct{}
	now       func() time.Time
}

// NewChain returns an empty registry whose issuers are the given addresses.
func NewChain(issuers ...common.Address) *Chain {
	c := &Chain{
		validity: make(map[uint64]bool),
		issuers:  make(map[common.Address]bool),
		pending:  make(map[common.Hash]pendingTx),
		block:    100,
		now:      time.Now,
	}
	for _, a := range issuers {
		c.issuers[a] = true
	}
	return c
}

// Open implements ledger.Factory.
func (c *Chain) Open(registry, from common.Address) (ledger.Registry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opened++
	return &Handle{chain: c, address: registry, from: from}, nil
}

// Opened reports how many handles were opened.
func (c *Chain) Opened() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened
}

// AddIssuer grants the issuer role.
func (c *Chain) AddIssuer(a common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issuers[a] = true
}

// Seed appends a record directly and returns its identifier.
func (c *Chain) Seed(r ledger.RawRecord) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r.IssueDate == nil {
		r.IssueDate = big.NewInt(c.now().Unix())
	}
	if r.ExpiryDate == nil {
		r.ExpiryDate = new(big.Int)
	}
	c.records = append(c.records, r)
	return uint64(len(c.records) - 1)
}

// SetValidity overrides the validity flag reported for id.
func (c *Chain) SetValidity(id uint64, valid bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.validity[id] = valid
}

// FailSubmissions makes submissions fail with err until cleared with nil.
func (c *Chain) FailSubmissions(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitErr = err
}

// FailReads makes read calls fail with err until cleared with nil.
func (c *Chain) FailReads(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readErr = err
}

// DropIssuanceEvents confirms issuances without emitting CredentialIssued.
func (c *Chain) DropIssuanceEvents(drop bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropEvent = drop
}

// HoldConfirmations blocks WaitConfirmed until release is called.
func (c *Chain) HoldConfirmations() (release func()) {
	gate := make(chan struct{})
	c.mu.Lock()
	c.gate = gate
	c.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			if c.gate == gate {
				c.gate = nil
			}
			c.mu.Unlock()
			close(gate)
		})
	}
}

// Calls returns the registry entry points invoked so far, in order.
func (c *Chain) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// Total reports the number of issued credentials.
func (c *Chain) Total() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return uint64(len(c.records))
}

// Record returns the stored record for id.
func (c *Chain) Record(id uint64) (ledger.RawRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id >= uint64(len(c.records)) {
		return ledger.RawRecord{}, false
	}
	return c.records[id], true
}

func (c *Chain) record(call string) {
	c.calls = append(c.calls, call)
}

func (c *Chain) nextHash() common.Hash {
	c.nonce++
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], c.nonce)
	return crypto.Keccak256Hash(buf[:])
}

// Handle is one signer's view of the Chain.
type Handle struct {
	chain   *Chain
	address common.Address
	from    common.Address
}

// Address reports the registry address the handle was opened for.
func (h *Handle) Address() common.Address { return h.address }

// From reports the signing identity.
func (h *Handle) From() common.Address { return h.from }

func (h *Handle) TotalIssued(ctx context.Context) (*big.Int, error) {
	c := h.chain
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("totalIssued")
	if c.readErr != nil {
		return nil, c.readErr
	}
	return new(big.Int).SetUint64(uint64(len(c.records))), nil
}

func (h *Handle) IsAuthorizedIssuer(ctx context.Context, who common.Address) (bool, error) {
	c := h.chain
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("isAuthorizedIssuer")
	if c.readErr != nil {
		return false, c.readErr
	}
	return c.issuers[who], nil
}

func (h *Handle) SubmitIssuance(ctx context.Context, call ledger.IssuanceCall) (ledger.Submission, error) {
	c := h.chain
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("submitIssuance")
	if c.submitErr != nil {
		return ledger.Submission{}, c.submitErr
	}
	if !c.issuers[h.from] {
		return ledger.Submission{}, fmt.Errorf("execution reverted: AccessControl: missing role: %w", sentinel.ErrPermission)
	}
	issuer := h.from
	hash := c.nextHash()
	c.pending[hash] = pendingTx{apply: func() []ledger.Event {
		id := uint64(len(c.records))
		c.records = append(c.records, ledger.RawRecord{
			Issuer:      issuer,
			Recipient:   call.Recipient,
			TypeCode:    call.TypeCode,
			Title:       call.Title,
			Institution: call.Institution,
			IssueDate:   big.NewInt(c.now().Unix()),
			ExpiryDate:  new(big.Int).SetUint64(call.Expiry),
			Fingerprint: call.Fingerprint,
			URI:         call.URI,
		})
		if c.dropEvent {
			return nil
		}
		return []ledger.Event{{Name: ledger.EventCredentialIssued, TokenID: new(big.Int).SetUint64(id)}}
	}}
	return ledger.NewSubmission(hash, nil), nil
}

func (h *Handle) SubmitRevocation(ctx context.Context, id *big.Int, reason string) (ledger.Submission, error) {
	c := h.chain
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("revoke")
	if c.submitErr != nil {
		return ledger.Submission{}, c.submitErr
	}
	if !c.issuers[h.from] {
		return ledger.Submission{}, fmt.Errorf("execution reverted: AccessControl: missing role: %w", sentinel.ErrPermission)
	}
	if !id.IsUint64() || id.Uint64() >= uint64(len(c.records)) {
		return ledger.Submission{}, fmt.Errorf("execution reverted: credential does not exist: %w", sentinel.ErrReverted)
	}
	target := id.Uint64()
	hash := c.nextHash()
	c.pending[hash] = pendingTx{apply: func() []ledger.Event {
		c.records[target].Revoked = true
		return []ledger.Event{{Name: ledger.EventCredentialRevoked, TokenID: new(big.Int).SetUint64(target)}}
	}}
	return ledger.NewSubmission(hash, nil), nil
}

func (h *Handle) WaitConfirmed(ctx context.Context, sub ledger.Submission) (ledger.Confirmation, error) {
	c := h.chain
	c.mu.Lock()
	c.record("waitConfirmed")
	gate := c.gate
	c.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ledger.Confirmation{}, fmt.Errorf("wait for %s: %w: %w", sub.TxHash.Hex(), sentinel.ErrUnavailable, ctx.Err())
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	tx, ok := c.pending[sub.TxHash]
	if !ok {
		return ledger.Confirmation{}, fmt.Errorf("unknown transaction %s: %w", sub.TxHash.Hex(), sentinel.ErrNotFound)
	}
	delete(c.pending, sub.TxHash)
	c.block++
	return ledger.Confirmation{
		TxHash:      sub.TxHash,
		BlockNumber: c.block,
		Events:      tx.apply(),
	}, nil
}

func (h *Handle) FetchValidity(ctx context.Context, id *big.Int) (bool, error) {
	c := h.chain
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("fetchValidity")
	if c.readErr != nil {
		return false, c.readErr
	}
	if !id.IsUint64() || id.Uint64() >= uint64(len(c.records)) {
		return false, nil
	}
	n := id.Uint64()
	if v, ok := c.validity[n]; ok {
		return v, nil
	}
	r := c.records[n]
	expired := r.ExpiryDate != nil && r.ExpiryDate.Sign() > 0 && r.ExpiryDate.Int64() <= c.now().Unix()
	return !r.Revoked && !expired, nil
}

// FetchRecord returns a zeroed record for unknown identifiers, like
// registries backed by a default-valued mapping.
func (h *Handle) FetchRecord(ctx context.Context, id *big.Int) (ledger.RawRecord, error) {
	c := h.chain
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("fetchRecord")
	if c.readErr != nil {
		return ledger.RawRecord{}, c.readErr
	}
	if !id.IsUint64() || id.Uint64() >= uint64(len(c.records)) {
		return ledger.RawRecord{IssueDate: new(big.Int), ExpiryDate: new(big.Int)}, nil
	}
	return c.records[id.Uint64()], nil
}

var (
	_ ledger.Factory  = (*Chain)(nil)
	_ ledger.Registry = (*Handle)(nil)
)
