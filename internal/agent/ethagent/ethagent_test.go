package ethagent

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/suite"

	"verichain/internal/agent"
	"verichain/internal/sentinel"
)

// Well-known development keys.
const (
	key0  = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	addr0 = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	key1  = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
	addr1 = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

type stubChain struct {
	mu  sync.Mutex
	id  int64
	err error
}

func (c *stubChain) ChainID(context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return big.NewInt(c.id), nil
}

func (c *stubChain) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *stubChain) set(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = id
}

type EthAgentSuite struct {
	suite.Suite
	chain *stubChain
	agent *Agent
}

func TestEthAgentSuite(t *testing.T) {
	suite.Run(t, new(EthAgentSuite))
}

func (s *EthAgentSuite) SetupTest() {
	s.chain = &stubChain{id: 1}
	a, err := New(s.chain, []string{key0, key1}, WithPollInterval(5*time.Millisecond))
	s.Require().NoError(err)
	s.agent = a
}

func (s *EthAgentSuite) TestRequestAccounts() {
	s.Run("returns the active identity", func() {
		accounts, err := s.agent.RequestAccounts(context.Background())
		s.Require().NoError(err)
		s.Equal([]string{addr0}, accounts)
	})

	s.Run("declined approval is a rejection", func() {
		a, err := New(s.chain, []string{key0}, WithApprover(func(context.Context, common.Address) bool { return false }))
		s.Require().NoError(err)
		_, err = a.RequestAccounts(context.Background())
		s.True(errors.Is(err, sentinel.ErrRejected))
	})

	s.Run("no keys means no agent", func() {
		a, err := New(s.chain, nil)
		s.Require().NoError(err)
		_, err = a.RequestAccounts(context.Background())
		s.True(errors.Is(err, sentinel.ErrUnavailable))
	})

	s.Run("malformed key fails construction", func() {
		_, err := New(s.chain, []string{"zz"})
		s.Error(err)
	})
}

func (s *EthAgentSuite) TestNetwork() {
	n, err := s.agent.Network(context.Background())
	s.Require().NoError(err)
	s.Equal(agent.Network{Name: "mainnet", ChainID: 1}, n)
	s.Equal("sepolia", NetworkName(11155111))
	s.Equal("unknown", NetworkName(31337))
}

func (s *EthAgentSuite) TestSelectAccount() {
	s.Run("returns after the watcher applied the switch", func() {
		sink := make(chan agent.AccountsChange)
		sub, err := s.agent.WatchAccounts(context.Background(), sink)
		s.Require().NoError(err)
		defer sub.Unsubscribe()

		var mu sync.Mutex
		var applied []string
		go func() {
			change := <-sink
			mu.Lock()
			applied = change.Value
			mu.Unlock()
			change.Ack()
		}()

		s.Require().NoError(s.agent.SelectAccount(context.Background(), common.HexToAddress(addr1)))
		mu.Lock()
		s.Equal([]string{addr1}, applied)
		mu.Unlock()

		accounts, err := s.agent.RequestAccounts(context.Background())
		s.Require().NoError(err)
		s.Equal([]string{addr1}, accounts)
	})

	s.Run("selecting the active identity is a no-op", func() {
		s.NoError(s.agent.SelectAccount(context.Background(), common.HexToAddress(addr1)))
	})

	s.Run("without a watcher the previous identity stays active", func() {
		err := s.agent.SelectAccount(context.Background(), common.HexToAddress(addr0))
		s.Require().Error(err)
		s.True(errors.Is(err, agent.ErrNotDelivered))

		accounts, err := s.agent.RequestAccounts(context.Background())
		s.Require().NoError(err)
		s.Equal([]string{addr1}, accounts)

		opts, err := s.agent.Transactor(context.Background(), common.HexToAddress(addr1))
		s.Require().NoError(err)
		s.Equal(common.HexToAddress(addr1), opts.From)
	})

	s.Run("unknown identity", func() {
		err := s.agent.SelectAccount(context.Background(), common.HexToAddress("0x00000000000000000000000000000000000000ff"))
		s.True(errors.Is(err, sentinel.ErrNotFound))
	})
}

func (s *EthAgentSuite) TestTransactor() {
	s.Run("signs for the active identity", func() {
		opts, err := s.agent.Transactor(context.Background(), common.HexToAddress(addr0))
		s.Require().NoError(err)
		s.Equal(common.HexToAddress(addr0), opts.From)
	})

	s.Run("rejects a stale identity", func() {
		_, err := s.agent.Transactor(context.Background(), common.HexToAddress(addr1))
		s.True(errors.Is(err, sentinel.ErrSigning))
	})
}

func (s *EthAgentSuite) TestRunPublishesNetworkChanges() {
	_, err := s.agent.Network(context.Background())
	s.Require().NoError(err)

	sink := make(chan agent.NetworkChange, 1)
	sub, err := s.agent.WatchNetwork(context.Background(), sink)
	s.Require().NoError(err)
	defer sub.Unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.agent.Run(ctx) }()

	s.chain.set(11155111)
	select {
	case change := <-sink:
		s.Equal(agent.Network{Name: "sepolia", ChainID: 11155111}, change.Value)
		change.Ack()
	case <-time.After(time.Second):
		s.Fail("network change was not published")
	}
}

func (s *EthAgentSuite) TestHealthTracksPollFailures() {
	ctx := context.Background()
	s.Require().NoError(s.agent.Healthy(ctx))

	s.chain.fail(errors.New("connection refused"))
	s.agent.poll(ctx)
	s.agent.poll(ctx)
	s.NoError(s.agent.Healthy(ctx), "below the failure threshold")

	s.agent.poll(ctx)
	err := s.agent.Healthy(ctx)
	s.Require().Error(err)
	s.True(errors.Is(err, sentinel.ErrUnavailable))

	s.chain.fail(nil)
	s.agent.poll(ctx)
	s.NoError(s.agent.Healthy(ctx))
}
