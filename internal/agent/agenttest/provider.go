// Package agenttest provides an in-memory agent.Provider for tests.
package agenttest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"

	"verichain/internal/agent"
)

// Provider is a scriptable agent. The zero value has no accounts; set
// Accounts and Net before connecting.
type Provider struct {
	mu         sync.Mutex
	accounts   []string
	network    agent.Network
	requestErr error
	requests   int
	gate       chan struct{}

	accountsFeed event.Feed
	networkFeed  event.Feed
}

// New returns a provider authorizing the given accounts on network.
func New(network agent.Network, accounts ...string) *Provider {
	return &Provider{accounts: accounts, network: network}
}

// FailRequests makes every subsequent RequestAccounts return err.
func (p *Provider) FailRequests(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requestErr = err
}

// HoldRequests blocks RequestAccounts until the returned release func runs.
func (p *Provider) HoldRequests() (release func()) {
	gate := make(chan struct{})
	p.mu.Lock()
	p.gate = gate
	p.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Requests reports how many authorization requests were made.
func (p *Provider) Requests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests
}

func (p *Provider) RequestAccounts(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	p.requests++
	gate := p.gate
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.requestErr != nil {
		return nil, p.requestErr
	}
	return append([]string(nil), p.accounts...), nil
}

func (p *Provider) Network(context.Context) (agent.Network, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.network, nil
}

func (p *Provider) WatchAccounts(_ context.Context, sink chan<- agent.AccountsChange) (event.Subscription, error) {
	return p.accountsFeed.Subscribe(sink), nil
}

func (p *Provider) WatchNetwork(_ context.Context, sink chan<- agent.NetworkChange) (event.Subscription, error) {
	return p.networkFeed.Subscribe(sink), nil
}

// SwitchAccount makes addr the active account and notifies watchers. It
// returns once every watcher has applied the change, reporting how many
// there were.
func (p *Provider) SwitchAccount(addr string) int {
	p.mu.Lock()
	p.accounts = []string{addr}
	p.mu.Unlock()
	n, _ := agent.Publish(context.Background(), &p.accountsFeed, []string{addr})
	return n
}

// SwitchNetwork changes the network and notifies watchers like SwitchAccount.
func (p *Provider) SwitchNetwork(network agent.Network) int {
	p.mu.Lock()
	p.network = network
	p.mu.Unlock()
	n, _ := agent.Publish(context.Background(), &p.networkFeed, network)
	return n
}

// SelectAccount switches to addr on behalf of an operator. Unlike
// SwitchAccount it refuses to change anything when no watcher would see
// the switch.
func (p *Provider) SelectAccount(ctx context.Context, addr common.Address) error {
	p.mu.Lock()
	prev := p.accounts
	p.accounts = []string{addr.Hex()}
	p.mu.Unlock()

	_, err := agent.Publish(ctx, &p.accountsFeed, []string{addr.Hex()})
	if errors.Is(err, agent.ErrNotDelivered) {
		p.mu.Lock()
		if len(p.accounts) == 1 && p.accounts[0] == addr.Hex() {
			p.accounts = prev
		}
		p.mu.Unlock()
	}
	if err != nil {
		return fmt.Errorf("switch to %s: %w", addr.Hex(), err)
	}
	return nil
}
