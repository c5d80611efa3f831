package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"verichain/internal/agent"
	"verichain/internal/agent/agenttest"
	"verichain/internal/binding"
	"verichain/internal/ledger"
	"verichain/internal/ledger/ledgertest"
	"verichain/internal/session"
	"verichain/pkg/domain"
	dErrors "verichain/pkg/domain-errors"
	"verichain/pkg/platform/audit"
	"verichain/pkg/platform/audit/publisher"
	"verichain/pkg/platform/audit/store/memory"
)

const (
	addrA       = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	addrB       = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	registryHex = "0xcccccccccccccccccccccccccccccccccccccccc"
)

type SessionSuite struct {
	suite.Suite
	provider *agenttest.Provider
	adapter  *agent.Adapter
	chain    *ledgertest.Chain
	metrics  *session.Metrics
	resets   chan session.ResetEvent
	events   *memory.InMemoryStore
	session  *session.Session
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) SetupTest() {
	s.provider = agenttest.New(agent.Network{Name: "mainnet", ChainID: 1}, addrA)
	s.adapter = agent.New(s.provider, agent.WithResubscribeBackoff(10*time.Millisecond))
	issuer, _ := domain.ParseAddress(addrA)
	s.chain = ledgertest.NewChain(issuer.Common())
	s.metrics = session.NewMetrics(prometheus.NewRegistry())
	s.resets = make(chan session.ResetEvent, 4)
	s.events = memory.NewInMemoryStore()
	s.session = session.New(s.adapter, binding.New(s.chain),
		session.WithMetrics(s.metrics),
		session.WithAuditLogger(audit.NewLogger(nil, publisher.NewPublisher(s.events))),
		session.WithResetHook(func(ev session.ResetEvent) {
			select {
			case s.resets <- ev:
			default:
			}
		}),
	)
}

func (s *SessionSuite) TearDownTest() {
	s.adapter.Close()
}

func (s *SessionSuite) ready() session.Snapshot {
	_, err := s.session.Connect(context.Background())
	s.Require().NoError(err)
	_, err = s.session.Bind(context.Background(), registryHex)
	s.Require().NoError(err)
	snap, err := s.session.Authorize(context.Background())
	s.Require().NoError(err)
	return snap
}

func (s *SessionSuite) TestInitialState() {
	snap := s.session.Snapshot()
	s.Equal(session.Disconnected, snap.State)
	s.Nil(snap.Connection)
	s.Nil(snap.Handle)
}

func (s *SessionSuite) TestBindBeforeConnectFails() {
	_, err := s.session.Bind(context.Background(), registryHex)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotConnected))
	s.Equal(session.Disconnected, s.session.Snapshot().State)
}

func (s *SessionSuite) TestLifecycle() {
	s.Run("connect reports identity and network", func() {
		snap, err := s.session.Connect(context.Background())
		s.Require().NoError(err)
		s.Equal(session.Connected, snap.State)
		s.Equal("0xaAaAaAaaAaAaAaaAaAAAAAAAAaaaAaAaAaaAaaAa", snap.Connection.Address.String())
		s.Equal("mainnet", snap.Connection.NetworkName)
		s.Equal(uint64(1), snap.Connection.ChainID)
	})

	s.Run("authorize requires a binding", func() {
		_, err := s.session.Authorize(context.Background())
		s.True(dErrors.HasCode(err, dErrors.CodeNotBound))
	})

	s.Run("bind moves to Bound", func() {
		snap, err := s.session.Bind(context.Background(), registryHex)
		s.Require().NoError(err)
		s.Equal(session.Bound, snap.State)
		s.NotNil(snap.Handle)
	})

	s.Run("authorize moves to Ready", func() {
		snap, err := s.session.Authorize(context.Background())
		s.Require().NoError(err)
		s.Equal(session.Ready, snap.State)
		s.True(snap.Authorized)
	})
}

func (s *SessionSuite) TestReadyReachedWithoutIssuerRole() {
	s.provider.SwitchAccount(addrB)
	snap := s.ready()
	s.Equal(session.Ready, snap.State)
	s.False(snap.Authorized)
}

func (s *SessionSuite) TestInvalidRegistryAddressKeepsState() {
	_, err := s.session.Connect(context.Background())
	s.Require().NoError(err)
	_, err = s.session.Bind(context.Background(), "0x1234")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidAddress))
	s.Equal(session.Connected, s.session.Snapshot().State)
}

func (s *SessionSuite) TestIdentityChangeResetsToConnected() {
	before := s.ready()

	s.Require().Equal(1, s.provider.SwitchAccount(addrB))
	ev := <-s.resets

	after := s.session.Snapshot()
	s.Equal(session.CauseIdentityChange, ev.Cause)
	s.Equal(session.Connected, after.State)
	s.Equal("0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB", after.Connection.Address.String())
	s.Equal("mainnet", after.Connection.NetworkName)
	s.Nil(after.Handle)
	s.False(after.Authorized)
	s.Greater(after.Generation, before.Generation)

	err := s.session.Superseded(before.Generation, "0xfeed")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeSuperseded))
	s.Contains(err.Error(), "0xfeed")
	s.NoError(s.session.Superseded(after.Generation, ""))

	s.Equal(float64(1), testutil.ToFloat64(s.metrics.Resets.WithLabelValues(session.CauseIdentityChange)))
}

func (s *SessionSuite) TestRebindAfterIdentityChangeYieldsNewHandle() {
	before := s.ready()
	s.Require().Equal(1, s.provider.SwitchAccount(addrB))
	<-s.resets

	_, err := s.session.Bind(context.Background(), registryHex)
	s.Require().NoError(err)
	after := s.session.Snapshot()
	s.NotEqual(before.Handle.ID(), after.Handle.ID())
	s.Equal("0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB", after.Handle.Signer().String())
}

func (s *SessionSuite) TestNetworkChangeInvalidatesBinding() {
	before := s.ready()

	sepolia := agent.Network{Name: "sepolia", ChainID: 11155111}
	s.Require().Equal(1, s.provider.SwitchNetwork(sepolia))
	ev := <-s.resets

	after := s.session.Snapshot()
	s.Equal(session.CauseNetworkChange, ev.Cause)
	s.Equal(session.Connected, after.State)
	s.Equal(before.Connection.Address, after.Connection.Address)
	s.Equal(uint64(11155111), after.Connection.ChainID)
	s.Nil(after.Handle)

	_, err := s.session.Require(session.Bound)
	s.True(dErrors.HasCode(err, dErrors.CodeNotBound))
}

func (s *SessionSuite) TestConcurrentConnectIsSerialized() {
	release := s.provider.HoldRequests()

	var wg sync.WaitGroup
	results := make([]session.Snapshot, 2)
	errs := make([]error, 2)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = s.session.Connect(context.Background())
		}()
	}

	s.Eventually(func() bool { return s.provider.Requests() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	release()
	wg.Wait()

	s.Require().NoError(errs[0])
	s.Require().NoError(errs[1])
	s.Equal(1, s.provider.Requests())
	s.Equal(results[0].Generation, results[1].Generation)
}

func (s *SessionSuite) TestSnapshotReflectsSwitchOnReturn() {
	s.ready()
	for i := range 500 {
		addr := addrB
		if i%2 == 1 {
			addr = addrA
		}
		s.Require().Equal(1, s.provider.SwitchAccount(addr))

		snap := s.session.Snapshot()
		want, _ := domain.ParseAddress(addr)
		s.Require().Equal(want, snap.Connection.Address, "switch %d", i)
		s.Require().Equal(session.Connected, snap.State)
		s.Require().Nil(snap.Handle)
	}
}

func (s *SessionSuite) TestSwitchRightAfterConnectIsObserved() {
	_, err := s.session.Connect(context.Background())
	s.Require().NoError(err)

	s.Require().Equal(1, s.provider.SwitchAccount(addrB))
	s.Equal("0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB", s.session.Snapshot().Connection.Address.String())
	s.Equal(session.CauseIdentityChange, (<-s.resets).Cause)
}

func (s *SessionSuite) TestSwitchDuringConnectIsKept() {
	release := s.provider.HoldRequests()
	done := make(chan session.Snapshot, 1)
	go func() {
		snap, err := s.session.Connect(context.Background())
		s.NoError(err)
		done <- snap
	}()

	s.Eventually(func() bool { return s.provider.Requests() == 1 }, time.Second, 5*time.Millisecond)
	s.Equal(1, s.provider.SwitchAccount(addrB))
	release()

	snap := <-done
	s.Equal(session.Connected, snap.State)
	s.Equal("0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB", snap.Connection.Address.String())
}

func (s *SessionSuite) TestFailedSubscriptionIsRetried() {
	connector := &flakyConnector{Adapter: s.adapter, failures: 1}
	sess := session.New(connector, binding.New(s.chain))

	_, err := sess.Connect(context.Background())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeAgentError))
	s.Equal(session.Disconnected, sess.Snapshot().State)

	_, err = sess.Connect(context.Background())
	s.Require().NoError(err)
	s.Equal(2, connector.attempts)

	s.Require().Equal(1, s.provider.SwitchAccount(addrB))
	s.Equal("0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB", sess.Snapshot().Connection.Address.String())

	_, err = sess.Connect(context.Background())
	s.Require().NoError(err)
	s.Equal(2, connector.attempts)
}

func (s *SessionSuite) TestConcurrentBindOpensOneHandle() {
	factory := &gatedFactory{Chain: s.chain, entered: make(chan struct{}, 2), gate: make(chan struct{})}
	sess := session.New(s.adapter, binding.New(factory))
	_, err := sess.Connect(context.Background())
	s.Require().NoError(err)

	var wg sync.WaitGroup
	results := make([]session.Snapshot, 2)
	errs := make([]error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = sess.Bind(context.Background(), registryHex)
	}()
	<-factory.entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], errs[1] = sess.Bind(context.Background(), registryHex)
	}()
	time.Sleep(50 * time.Millisecond)
	close(factory.gate)
	wg.Wait()

	s.Require().NoError(errs[0])
	s.Require().NoError(errs[1])
	s.Equal(1, s.chain.Opened())
	s.Equal(results[0].Handle.ID(), results[1].Handle.ID())
	s.Equal(results[0].Generation, results[1].Generation)
}

func (s *SessionSuite) TestConnectFailureLeavesStateUntouched() {
	s.provider.FailRequests(context.DeadlineExceeded)
	_, err := s.session.Connect(context.Background())
	s.True(dErrors.HasCode(err, dErrors.CodeAgentError))
	s.Equal(session.Disconnected, s.session.Snapshot().State)
}

func (s *SessionSuite) TestAuditTrail() {
	s.ready()
	s.Require().Equal(1, s.provider.SwitchAccount(addrB))
	<-s.resets

	events, err := s.events.ListAll(context.Background())
	s.Require().NoError(err)
	s.Require().Len(events, 2)

	s.Equal(string(audit.EventSessionBound), events[0].Action)
	s.Equal("0xaAaAaAaaAaAaAaaAaAAAAAAAAaaaAaAaAaaAaaAa", events[0].Actor)
	s.Equal("0xCcCCccccCCCCcCCCCCCcCcCccCcCCCcCcccccccC", events[0].Subject)

	s.Equal(string(audit.EventSessionReset), events[1].Action)
	s.Equal(session.CauseIdentityChange, events[1].Reason)
	s.Equal("0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB", events[1].Actor)
	s.Greater(events[1].Generation, events[0].Generation)
}

// flakyConnector fails the first identity subscriptions it is asked for.
type flakyConnector struct {
	*agent.Adapter
	failures int
	attempts int
}

func (c *flakyConnector) SubscribeToIdentityChanges(fn agent.IdentityHandler) error {
	c.attempts++
	if c.attempts <= c.failures {
		return dErrors.New(dErrors.CodeAgentError, "identity change subscription failed")
	}
	return c.Adapter.SubscribeToIdentityChanges(fn)
}

// gatedFactory holds every Open until gate is closed.
type gatedFactory struct {
	*ledgertest.Chain
	entered chan struct{}
	gate    chan struct{}
}

func (f *gatedFactory) Open(registry, from common.Address) (ledger.Registry, error) {
	f.entered <- struct{}{}
	<-f.gate
	return f.Chain.Open(registry, from)
}
