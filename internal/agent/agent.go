// Package agent wraps the external signing agent that authorizes the user's
// identity and reports the ledger network it is attached to.
//
// The Adapter is the only component that talks to a Provider. It maps
// provider failures to the connection-layer error kinds and turns the
// provider's change feeds into at most one live handler per feed.
package agent

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"

	"verichain/internal/sentinel"
	"verichain/pkg/domain"
	dErrors "verichain/pkg/domain-errors"
)

// Network identifies the ledger network an agent is attached to.
type Network struct {
	Name    string
	ChainID uint64
}

// ConnectionInfo describes an authorized connection.
type ConnectionInfo struct {
	Address     domain.Address `json:"address"`
	NetworkName string         `json:"network_name"`
	ChainID     uint64         `json:"chain_id"`
}

// Provider is the raw capability of an external signing agent.
//
// RequestAccounts must always prompt for authorization. Providers report a
// missing agent with sentinel.ErrUnavailable and a declined prompt with
// sentinel.ErrRejected. A Watch call returns once the watcher is live;
// changes published through Publish wait for the handler to finish.
type Provider interface {
	RequestAccounts(ctx context.Context) ([]string, error)
	Network(ctx context.Context) (Network, error)
	WatchAccounts(ctx context.Context, sink chan<- AccountsChange) (event.Subscription, error)
	WatchNetwork(ctx context.Context, sink chan<- NetworkChange) (event.Subscription, error)
}

// IdentityHandler receives the newly active identity.
type IdentityHandler func(domain.Address)

// NetworkHandler receives the newly active network.
type NetworkHandler func(Network)

// Adapter exposes connect and change notifications over a Provider.
type Adapter struct {
	provider Provider
	logger   *slog.Logger
	backoff  time.Duration

	mu          sync.Mutex
	identitySub event.Subscription
	networkSub  event.Subscription
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger used for subscription diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// WithResubscribeBackoff bounds the wait between resubscription attempts
// after a dropped notification feed.
func WithResubscribeBackoff(d time.Duration) Option {
	return func(a *Adapter) {
		a.backoff = d
	}
}

// New creates an Adapter. A nil provider is allowed and makes every
// Connect fail with CodeAgentUnavailable.
func New(provider Provider, opts ...Option) *Adapter {
	a := &Adapter{
		provider: provider,
		backoff:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.DiscardHandler)
	}
	return a
}

// Connect performs an explicit authorization request and reports the first
// authorized identity together with the current network.
func (a *Adapter) Connect(ctx context.Context) (ConnectionInfo, error) {
	if a.provider == nil {
		return ConnectionInfo{}, dErrors.New(dErrors.CodeAgentUnavailable, "no compatible signing agent is present")
	}

	accounts, err := a.provider.RequestAccounts(ctx)
	if err != nil {
		return ConnectionInfo{}, translateProviderError(err, "account authorization failed")
	}
	if len(accounts) == 0 {
		return ConnectionInfo{}, dErrors.New(dErrors.CodeUserRejected, "no account was authorized")
	}
	addr, err := domain.ParseAddress(accounts[0])
	if err != nil {
		return ConnectionInfo{}, dErrors.Wrap(err, dErrors.CodeAgentError, "agent reported a malformed account")
	}

	network, err := a.provider.Network(ctx)
	if err != nil {
		return ConnectionInfo{}, translateProviderError(err, "network query failed")
	}

	return ConnectionInfo{
		Address:     addr,
		NetworkName: network.Name,
		ChainID:     network.ChainID,
	}, nil
}

// SubscribeToIdentityChanges registers fn for identity changes, replacing any
// previous handler. The watcher is live when it returns. fn runs to
// completion before the change is acknowledged to its publisher. Account
// lists that are empty or malformed are skipped.
func (a *Adapter) SubscribeToIdentityChanges(fn IdentityHandler) error {
	if a.provider == nil {
		return dErrors.New(dErrors.CodeAgentUnavailable, "no compatible signing agent is present")
	}
	sink := make(chan AccountsChange)
	sub, err := a.watch(func(ctx context.Context) (event.Subscription, error) {
		return a.provider.WatchAccounts(ctx, sink)
	})
	if err != nil {
		return translateProviderError(err, "identity change subscription failed")
	}

	a.mu.Lock()
	if a.identitySub != nil {
		a.identitySub.Unsubscribe()
	}
	a.identitySub = sub
	a.mu.Unlock()

	go func() {
		for {
			select {
			case change := <-sink:
				a.applyAccounts(change, fn)
			case <-sub.Err():
				return
			}
		}
	}()
	return nil
}

func (a *Adapter) applyAccounts(change AccountsChange, fn IdentityHandler) {
	defer change.Ack()
	if len(change.Value) == 0 {
		a.logger.Warn("agent reported no active account, ignoring")
		return
	}
	addr, err := domain.ParseAddress(change.Value[0])
	if err != nil {
		a.logger.Warn("agent reported malformed account, ignoring", "error", err)
		return
	}
	fn(addr)
}

// SubscribeToNetworkChanges registers fn for network changes, replacing any
// previous handler. Delivery follows SubscribeToIdentityChanges.
func (a *Adapter) SubscribeToNetworkChanges(fn NetworkHandler) error {
	if a.provider == nil {
		return dErrors.New(dErrors.CodeAgentUnavailable, "no compatible signing agent is present")
	}
	sink := make(chan NetworkChange)
	sub, err := a.watch(func(ctx context.Context) (event.Subscription, error) {
		return a.provider.WatchNetwork(ctx, sink)
	})
	if err != nil {
		return translateProviderError(err, "network change subscription failed")
	}

	a.mu.Lock()
	if a.networkSub != nil {
		a.networkSub.Unsubscribe()
	}
	a.networkSub = sub
	a.mu.Unlock()

	go func() {
		for {
			select {
			case change := <-sink:
				fn(change.Value)
				change.Ack()
			case <-sub.Err():
				return
			}
		}
	}()
	return nil
}

// watch subscribes once, synchronously, and falls back to background
// resubscription with backoff only after that subscription fails.
func (a *Adapter) watch(subscribe event.ResubscribeFunc) (event.Subscription, error) {
	first, err := subscribe(context.Background())
	if err != nil {
		return nil, err
	}
	return event.NewSubscription(func(quit <-chan struct{}) error {
		select {
		case err, ok := <-first.Err():
			if !ok || err == nil {
				return nil
			}
			a.logger.Warn("agent notification feed dropped, resubscribing", "error", err)
		case <-quit:
			first.Unsubscribe()
			return nil
		}
		retry := event.Resubscribe(a.backoff, subscribe)
		defer retry.Unsubscribe()
		select {
		case err := <-retry.Err():
			return err
		case <-quit:
			return nil
		}
	}), nil
}

// Close drops both subscriptions.
func (a *Adapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.identitySub != nil {
		a.identitySub.Unsubscribe()
		a.identitySub = nil
	}
	if a.networkSub != nil {
		a.networkSub.Unsubscribe()
		a.networkSub = nil
	}
}

func translateProviderError(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeAgentUnavailable, "no compatible signing agent is present")
	case errors.Is(err, sentinel.ErrRejected):
		return dErrors.Wrap(err, dErrors.CodeUserRejected, "user declined the request")
	default:
		return dErrors.Wrap(err, dErrors.CodeAgentError, msg+": "+err.Error())
	}
}
