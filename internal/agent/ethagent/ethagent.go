// Package ethagent implements agent.Provider with locally held secp256k1
// keys and an Ethereum JSON-RPC endpoint.
//
// It stands in for a browser wallet when the client runs as a service: the
// configured keys are the identities it can authorize, an Approver decides
// whether an authorization request is granted, and the chain ID is polled to
// detect network changes.
package ethagent

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"

	"verichain/internal/agent"
	"verichain/internal/sentinel"
	"verichain/pkg/platform/circuit"
)

// ChainIDReader is the part of an RPC client the agent needs.
type ChainIDReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// Approver decides whether an authorization request for addr is granted.
type Approver func(ctx context.Context, addr common.Address) bool

// AutoApprove grants every request.
func AutoApprove(context.Context, common.Address) bool { return true }

// Agent holds signing keys and tracks the active one.
type Agent struct {
	chain        ChainIDReader
	approve      Approver
	pollInterval time.Duration
	logger       *slog.Logger

	mu      sync.RWMutex
	keys    []*ecdsa.PrivateKey
	active  int
	chainID *big.Int

	accountsFeed event.Feed
	networkFeed  event.Feed

	rpc *circuit.Breaker // trips after consecutive chain ID poll failures
}

// Option configures an Agent.
type Option func(*Agent)

// WithApprover sets the authorization decision hook. Defaults to AutoApprove.
func WithApprover(fn Approver) Option {
	return func(a *Agent) {
		a.approve = fn
	}
}

// WithPollInterval sets how often the chain ID is polled in Run.
func WithPollInterval(d time.Duration) Option {
	return func(a *Agent) {
		a.pollInterval = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// New parses hex-encoded private keys. The first key is initially active.
func New(chain ChainIDReader, hexKeys []string, opts ...Option) (*Agent, error) {
	a := &Agent{
		chain:        chain,
		approve:      AutoApprove,
		pollInterval: 5 * time.Second,
		rpc:          circuit.New("ledger_rpc", circuit.WithFailureThreshold(3), circuit.WithSuccessThreshold(1)),
	}
	for _, raw := range hexKeys {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse signer key: %w", err)
		}
		a.keys = append(a.keys, key)
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.DiscardHandler)
	}
	return a, nil
}

// Addresses lists the identities the agent can sign for.
func (a *Agent) Addresses() []common.Address {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]common.Address, len(a.keys))
	for i, k := range a.keys {
		out[i] = crypto.PubkeyToAddress(k.PublicKey)
	}
	return out
}

// RequestAccounts asks the Approver to authorize the active identity.
func (a *Agent) RequestAccounts(ctx context.Context) ([]string, error) {
	if a.chain == nil {
		return nil, fmt.Errorf("no ledger endpoint configured: %w", sentinel.ErrUnavailable)
	}
	a.mu.RLock()
	if len(a.keys) == 0 {
		a.mu.RUnlock()
		return nil, fmt.Errorf("no signer keys configured: %w", sentinel.ErrUnavailable)
	}
	addr := crypto.PubkeyToAddress(a.keys[a.active].PublicKey)
	a.mu.RUnlock()

	if !a.approve(ctx, addr) {
		return nil, fmt.Errorf("authorization for %s declined: %w", addr.Hex(), sentinel.ErrRejected)
	}
	return []string{addr.Hex()}, nil
}

// Network reports the chain the RPC endpoint is attached to.
func (a *Agent) Network(ctx context.Context) (agent.Network, error) {
	if a.chain == nil {
		return agent.Network{}, fmt.Errorf("no ledger endpoint configured: %w", sentinel.ErrUnavailable)
	}
	id, err := a.chain.ChainID(ctx)
	if err != nil {
		return agent.Network{}, fmt.Errorf("query chain id: %w", err)
	}
	a.mu.Lock()
	a.chainID = id
	a.mu.Unlock()
	return agent.Network{Name: NetworkName(id.Uint64()), ChainID: id.Uint64()}, nil
}

func (a *Agent) WatchAccounts(_ context.Context, sink chan<- agent.AccountsChange) (event.Subscription, error) {
	return a.accountsFeed.Subscribe(sink), nil
}

func (a *Agent) WatchNetwork(_ context.Context, sink chan<- agent.NetworkChange) (event.Subscription, error) {
	return a.networkFeed.Subscribe(sink), nil
}

// SelectAccount switches the active identity and returns once every watcher
// has applied the switch. When no watcher receives it the previous identity
// is restored and agent.ErrNotDelivered is returned, so the signing key
// never drifts from what the session believes.
func (a *Agent) SelectAccount(ctx context.Context, addr common.Address) error {
	a.mu.Lock()
	idx := -1
	for i, k := range a.keys {
		if crypto.PubkeyToAddress(k.PublicKey) == addr {
			idx = i
			break
		}
	}
	if idx < 0 {
		a.mu.Unlock()
		return fmt.Errorf("no signer key for %s: %w", addr.Hex(), sentinel.ErrNotFound)
	}
	prev := a.active
	a.active = idx
	a.mu.Unlock()

	if prev == idx {
		return nil
	}
	_, err := agent.Publish(ctx, &a.accountsFeed, []string{addr.Hex()})
	if errors.Is(err, agent.ErrNotDelivered) {
		a.mu.Lock()
		if a.active == idx {
			a.active = prev
		}
		a.mu.Unlock()
	}
	if err != nil {
		return fmt.Errorf("switch to %s: %w", addr.Hex(), err)
	}
	return nil
}

// Transactor returns signing options for the active identity. from must be
// the identity the caller was bound to; a mismatch means the active account
// changed underneath the caller.
func (a *Agent) Transactor(ctx context.Context, from common.Address) (*bind.TransactOpts, error) {
	a.mu.RLock()
	if len(a.keys) == 0 {
		a.mu.RUnlock()
		return nil, fmt.Errorf("no signer keys configured: %w", sentinel.ErrUnavailable)
	}
	key := a.keys[a.active]
	chainID := a.chainID
	a.mu.RUnlock()

	if crypto.PubkeyToAddress(key.PublicKey) != from {
		return nil, fmt.Errorf("active account is not %s: %w", from.Hex(), sentinel.ErrSigning)
	}
	if chainID == nil {
		if _, err := a.Network(ctx); err != nil {
			return nil, err
		}
		a.mu.RLock()
		chainID = a.chainID
		a.mu.RUnlock()
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("build transactor: %w: %w", sentinel.ErrSigning, err)
	}
	opts.Context = ctx
	return opts, nil
}

// Run polls the chain ID and notifies network watchers on change until ctx
// is done.
func (a *Agent) Run(ctx context.Context) error {
	if a.chain == nil {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.poll(ctx)
		}
	}
}

func (a *Agent) poll(ctx context.Context) {
	id, err := a.chain.ChainID(ctx)
	if err != nil {
		if _, change := a.rpc.RecordFailure(); change.Opened {
			a.logger.ErrorContext(ctx, "ledger rpc unreachable", "error", err)
		} else {
			a.logger.WarnContext(ctx, "chain id poll failed", "error", err)
		}
		return
	}
	if _, change := a.rpc.RecordSuccess(); change.Closed {
		a.logger.InfoContext(ctx, "ledger rpc recovered")
	}
	a.mu.Lock()
	prev := a.chainID
	a.chainID = id
	a.mu.Unlock()

	if prev != nil && prev.Cmp(id) != 0 {
		a.logger.InfoContext(ctx, "ledger network changed",
			"previous_chain_id", prev.Uint64(),
			"chain_id", id.Uint64(),
		)
		network := agent.Network{Name: NetworkName(id.Uint64()), ChainID: id.Uint64()}
		if _, err := agent.Publish(ctx, &a.networkFeed, network); err != nil && !errors.Is(err, agent.ErrNotDelivered) {
			a.logger.WarnContext(ctx, "network change not applied by every watcher", "error", err)
		}
	}
}

// Healthy reports whether recent chain ID polls reached the RPC endpoint.
func (a *Agent) Healthy(context.Context) error {
	if a.rpc.IsOpen() {
		return fmt.Errorf("ledger rpc unreachable: %w", sentinel.ErrUnavailable)
	}
	return nil
}

// NetworkName maps well-known chain IDs to their conventional names.
func NetworkName(chainID uint64) string {
	switch chainID {
	case 1:
		return "mainnet"
	case 11155111:
		return "sepolia"
	case 17000:
		return "holesky"
	case 137:
		return "matic"
	default:
		return "unknown"
	}
}

var _ agent.Provider = (*Agent)(nil)
