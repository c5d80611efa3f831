package agent_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/suite"

	"verichain/internal/agent"
	"verichain/internal/agent/agenttest"
	"verichain/internal/sentinel"
	"verichain/pkg/domain"
	dErrors "verichain/pkg/domain-errors"
)

const (
	addrA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	addrB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

var mainnet = agent.Network{Name: "mainnet", ChainID: 1}

type AdapterSuite struct {
	suite.Suite
	provider *agenttest.Provider
	adapter  *agent.Adapter
}

func TestAdapterSuite(t *testing.T) {
	suite.Run(t, new(AdapterSuite))
}

func (s *AdapterSuite) SetupTest() {
	s.provider = agenttest.New(mainnet, addrA)
	s.adapter = agent.New(s.provider, agent.WithResubscribeBackoff(10*time.Millisecond))
}

func (s *AdapterSuite) TearDownTest() {
	s.adapter.Close()
}

func (s *AdapterSuite) TestConnect() {
	s.Run("returns address and network", func() {
		info, err := s.adapter.Connect(context.Background())
		s.Require().NoError(err)
		want, _ := domain.ParseAddress(addrA)
		s.Equal(want, info.Address)
		s.Equal("mainnet", info.NetworkName)
		s.Equal(uint64(1), info.ChainID)
	})

	s.Run("always requests authorization", func() {
		before := s.provider.Requests()
		_, err := s.adapter.Connect(context.Background())
		s.Require().NoError(err)
		_, err = s.adapter.Connect(context.Background())
		s.Require().NoError(err)
		s.Equal(before+2, s.provider.Requests())
	})
}

func (s *AdapterSuite) TestConnectFailures() {
	cases := []struct {
		name string
		err  error
		want dErrors.Code
	}{
		{"agent missing", fmt.Errorf("window provider: %w", sentinel.ErrUnavailable), dErrors.CodeAgentUnavailable},
		{"user declined", sentinel.ErrRejected, dErrors.CodeUserRejected},
		{"other failure", errors.New("internal JSON-RPC error"), dErrors.CodeAgentError},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.provider.FailRequests(tc.err)
			defer s.provider.FailRequests(nil)

			_, err := s.adapter.Connect(context.Background())
			s.Require().Error(err)
			s.Equal(tc.want, dErrors.KindOf(err))
		})
	}

	s.Run("nil provider is unavailable", func() {
		_, err := agent.New(nil).Connect(context.Background())
		s.True(dErrors.HasCode(err, dErrors.CodeAgentUnavailable))
	})

	s.Run("no authorized account is a rejection", func() {
		_, err := agent.New(agenttest.New(mainnet)).Connect(context.Background())
		s.True(dErrors.HasCode(err, dErrors.CodeUserRejected))
	})
}

func (s *AdapterSuite) TestIdentitySubscription() {
	s.Run("watcher is live as soon as subscribe returns", func() {
		got := make(chan domain.Address, 1)
		s.Require().NoError(s.adapter.SubscribeToIdentityChanges(func(a domain.Address) { got <- a }))
		s.Equal(1, s.provider.SwitchAccount(addrB))

		want, _ := domain.ParseAddress(addrB)
		s.Equal(want, <-got)
	})

	s.Run("handler completes before the switch returns", func() {
		var seen atomic.Value
		s.Require().NoError(s.adapter.SubscribeToIdentityChanges(func(a domain.Address) {
			time.Sleep(5 * time.Millisecond)
			seen.Store(a)
		}))
		for _, addr := range []string{addrA, addrB, addrA} {
			s.Require().Equal(1, s.provider.SwitchAccount(addr))
			want, _ := domain.ParseAddress(addr)
			s.Equal(want, seen.Load())
		}
	})

	s.Run("resubscribing replaces the previous handler", func() {
		var first, second atomic.Int32
		s.Require().NoError(s.adapter.SubscribeToIdentityChanges(func(domain.Address) { first.Add(1) }))
		s.Require().NoError(s.adapter.SubscribeToIdentityChanges(func(domain.Address) { second.Add(1) }))

		s.Equal(1, s.provider.SwitchAccount(addrB))
		s.Equal(int32(1), second.Load())
		s.Equal(int32(0), first.Load())
	})

	s.Run("nil provider cannot be watched", func() {
		err := agent.New(nil).SubscribeToIdentityChanges(func(domain.Address) {})
		s.True(dErrors.HasCode(err, dErrors.CodeAgentUnavailable))
	})
}

func (s *AdapterSuite) TestNetworkSubscription() {
	var seen atomic.Value
	s.Require().NoError(s.adapter.SubscribeToNetworkChanges(func(n agent.Network) { seen.Store(n) }))
	sepolia := agent.Network{Name: "sepolia", ChainID: 11155111}
	s.Equal(1, s.provider.SwitchNetwork(sepolia))
	s.Equal(sepolia, seen.Load())
}

func (s *AdapterSuite) TestSelectAccount() {
	s.Run("without a watcher nothing changes", func() {
		err := s.provider.SelectAccount(context.Background(), common.HexToAddress(addrB))
		s.Require().Error(err)
		s.True(errors.Is(err, agent.ErrNotDelivered))

		info, err := s.adapter.Connect(context.Background())
		s.Require().NoError(err)
		want, _ := domain.ParseAddress(addrA)
		s.Equal(want, info.Address)
	})

	s.Run("with a watcher the switch is applied on return", func() {
		var seen atomic.Value
		s.Require().NoError(s.adapter.SubscribeToIdentityChanges(func(a domain.Address) { seen.Store(a) }))
		s.Require().NoError(s.provider.SelectAccount(context.Background(), common.HexToAddress(addrB)))
		want, _ := domain.ParseAddress(addrB)
		s.Equal(want, seen.Load())
	})
}
