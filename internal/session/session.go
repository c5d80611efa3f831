// Package session owns the connection lifecycle of one client:
//
//	Disconnected -> Connected -> Bound -> Ready
//
// Session is the single writer of the connection info and the registry
// handle. Every replacement of either bumps a generation counter; services
// tag their operations with the generation they started under and discard
// results once it has been superseded.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"verichain/internal/agent"
	"verichain/internal/binding"
	"verichain/internal/sentinel"
	"verichain/pkg/domain"
	dErrors "verichain/pkg/domain-errors"
	"verichain/pkg/platform/audit"
)

// State is a lifecycle state.
type State int

const (
	Disconnected State = iota
	Connected
	Bound
	Ready
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case Bound:
		return "bound"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Reset causes.
const (
	CauseIdentityChange = "identity_change"
	CauseNetworkChange  = "network_change"
)

// ResetEvent describes a change-driven reset back to Connected.
type ResetEvent struct {
	Cause      string
	Generation uint64
	Address    domain.Address
	ChainID    uint64
}

// Snapshot is a read-only view of the session, valid for one operation.
type Snapshot struct {
	State      State                 `json:"state"`
	Generation uint64                `json:"generation"`
	Connection *agent.ConnectionInfo `json:"connection,omitempty"`
	Handle     *binding.Handle       `json:"-"`
	Authorized bool                  `json:"authorized"`
}

// ChainID reports the connected chain, or 0 before Connect.
func (s Snapshot) ChainID() uint64 {
	if s.Connection == nil {
		return 0
	}
	return s.Connection.ChainID
}

// Connector is the connection provider capability.
type Connector interface {
	Connect(ctx context.Context) (agent.ConnectionInfo, error)
	SubscribeToIdentityChanges(fn agent.IdentityHandler) error
	SubscribeToNetworkChanges(fn agent.NetworkHandler) error
}

// Binder opens registry handles.
type Binder interface {
	Bind(ctx context.Context, conn *agent.ConnectionInfo, registryAddress string) (*binding.Handle, error)
}

// Session is the connection state machine.
type Session struct {
	connector Connector
	binder    Binder
	logger    *slog.Logger
	metrics   *Metrics
	auditor   *audit.Logger
	onReset   func(ResetEvent)

	flight singleflight.Group

	mu         sync.RWMutex
	state      State
	generation uint64
	conn       *agent.ConnectionInfo
	handle     *binding.Handle
	authorized bool
	subscribed bool

	// Latest agent notifications, kept so a Connect racing a change
	// reports the identity and network the agent ended up on.
	identitySeq  uint64
	lastIdentity domain.Address
	networkSeq   uint64
	lastNetwork  agent.Network
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithMetrics sets transition metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithAuditLogger records bindings and resets as audit events.
func WithAuditLogger(l *audit.Logger) Option {
	return func(s *Session) {
		s.auditor = l
	}
}

// WithResetHook registers fn to run after every change-driven reset.
func WithResetHook(fn func(ResetEvent)) Option {
	return func(s *Session) {
		s.onReset = fn
	}
}

// New creates a Disconnected session.
func New(connector Connector, binder Binder, opts ...Option) *Session {
	s := &Session{
		connector: connector,
		binder:    binder,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:      s.state,
		Generation: s.generation,
		Handle:     s.handle,
		Authorized: s.authorized,
	}
	if s.conn != nil {
		c := *s.conn
		snap.Connection = &c
	}
	return snap
}

// Connect authorizes with the agent and moves to Connected, discarding any
// binding. Change notifications are live before the agent is asked, so a
// switch made right after Connect returns is never missed. Concurrent calls
// share the outcome of the one in flight.
func (s *Session) Connect(ctx context.Context) (Snapshot, error) {
	v, err, shared := s.flight.Do("connect", func() (any, error) {
		if err := s.ensureSubscribed(); err != nil {
			return nil, err
		}

		s.mu.RLock()
		identitySeq, networkSeq := s.identitySeq, s.networkSeq
		s.mu.RUnlock()

		info, err := s.connector.Connect(ctx)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		if s.identitySeq != identitySeq {
			info.Address = s.lastIdentity
		}
		if s.networkSeq != networkSeq {
			info.NetworkName = s.lastNetwork.Name
			info.ChainID = s.lastNetwork.ChainID
		}
		s.generation++
		s.conn = &info
		s.handle = nil
		s.authorized = false
		s.transitionLocked(Connected)
		snap := s.snapshotLocked()
		s.mu.Unlock()

		s.logger.InfoContext(ctx, "session connected",
			"address", info.Address.String(),
			"network", info.NetworkName,
			"chain_id", info.ChainID,
			"generation", snap.Generation,
		)
		return snap, nil
	})
	if shared {
		s.logger.DebugContext(ctx, "connect shared with in-flight attempt")
	}
	if err != nil {
		return Snapshot{}, err
	}
	return v.(Snapshot), nil
}

// Bind binds the current identity to registryAddress and moves to Bound.
// Concurrent calls share the outcome of the one in flight.
func (s *Session) Bind(ctx context.Context, registryAddress string) (Snapshot, error) {
	v, err, _ := s.flight.Do("bind", func() (any, error) {
		s.mu.RLock()
		conn := s.conn
		gen := s.generation
		s.mu.RUnlock()

		handle, err := s.binder.Bind(ctx, conn, registryAddress)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		if s.generation != gen {
			s.mu.Unlock()
			return nil, supersededError(gen, "")
		}
		s.generation++
		s.handle = handle
		s.authorized = false
		s.transitionLocked(Bound)
		snap := s.snapshotLocked()
		s.mu.Unlock()

		s.logger.InfoContext(ctx, "registry bound",
			"registry", handle.RegistryAddress().String(),
			"signer", handle.Signer().String(),
			"generation", snap.Generation,
		)
		s.auditor.Log(ctx, string(audit.EventSessionBound),
			"actor", handle.Signer(),
			"subject", handle.RegistryAddress(),
			"generation", snap.Generation,
		)
		return snap, nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return v.(Snapshot), nil
}

// Authorize asks the registry whether the bound identity may issue and
// moves to Ready whatever the answer.
func (s *Session) Authorize(ctx context.Context) (Snapshot, error) {
	snap, err := s.Require(Bound)
	if err != nil {
		return Snapshot{}, err
	}
	ok, err := snap.Handle.Registry().IsAuthorizedIssuer(ctx, snap.Handle.Signer().Common())
	if err != nil {
		return Snapshot{}, translateRegistryError(err, "issuer check failed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != snap.Generation {
		return Snapshot{}, supersededError(snap.Generation, "")
	}
	s.authorized = ok
	s.transitionLocked(Ready)
	s.logger.InfoContext(ctx, "issuer authorization checked",
		"signer", snap.Handle.Signer().String(),
		"authorized", ok,
		"generation", s.generation,
	)
	return s.snapshotLocked(), nil
}

// Require returns a snapshot when the session is at least min. Below Bound
// the error is CodeNotBound, below Connected CodeNotConnected.
func (s *Session) Require(min State) (Snapshot, error) {
	snap := s.Snapshot()
	if snap.State >= min {
		return snap, nil
	}
	if min >= Bound {
		return Snapshot{}, dErrors.New(dErrors.CodeNotBound, "bind a registry before making registry requests")
	}
	return Snapshot{}, dErrors.New(dErrors.CodeNotConnected, "connect a signing agent first")
}

// Superseded returns a CodeSuperseded error when gen is no longer current.
// txRef, when set, is carried in the message for diagnostics.
func (s *Session) Superseded(gen uint64, txRef string) error {
	s.mu.RLock()
	current := s.generation
	s.mu.RUnlock()
	if current == gen {
		return nil
	}
	return supersededError(gen, txRef)
}

func (s *Session) handleIdentityChange(addr domain.Address) {
	s.mu.Lock()
	s.identitySeq++
	s.lastIdentity = addr
	if s.state == Disconnected || s.conn == nil || s.conn.Address == addr {
		s.mu.Unlock()
		return
	}
	conn := *s.conn
	conn.Address = addr
	s.resetLocked(&conn)
	ev := ResetEvent{Cause: CauseIdentityChange, Generation: s.generation, Address: addr, ChainID: conn.ChainID}
	s.mu.Unlock()

	s.afterReset(ev)
}

func (s *Session) handleNetworkChange(n agent.Network) {
	s.mu.Lock()
	s.networkSeq++
	s.lastNetwork = n
	if s.state == Disconnected || s.conn == nil {
		s.mu.Unlock()
		return
	}
	conn := *s.conn
	conn.NetworkName = n.Name
	conn.ChainID = n.ChainID
	s.resetLocked(&conn)
	ev := ResetEvent{Cause: CauseNetworkChange, Generation: s.generation, Address: conn.Address, ChainID: n.ChainID}
	s.mu.Unlock()

	s.afterReset(ev)
}

func (s *Session) resetLocked(conn *agent.ConnectionInfo) {
	s.generation++
	s.conn = conn
	s.handle = nil
	s.authorized = false
	s.transitionLocked(Connected)
}

func (s *Session) afterReset(ev ResetEvent) {
	s.metrics.observeReset(ev.Cause)
	s.logger.Info("session reset",
		"cause", ev.Cause,
		"address", ev.Address.String(),
		"chain_id", ev.ChainID,
		"generation", ev.Generation,
	)
	s.auditor.Log(context.Background(), string(audit.EventSessionReset),
		"actor", ev.Address,
		"reason", ev.Cause,
		"generation", ev.Generation,
	)
	if s.onReset != nil {
		s.onReset(ev)
	}
}

func (s *Session) transitionLocked(to State) {
	s.state = to
	s.metrics.observeTransition(to)
}

// ensureSubscribed registers the change handlers once. A failed attempt
// leaves the session unsubscribed so the next Connect tries again. Only
// the Connect flight calls it.
func (s *Session) ensureSubscribed() error {
	s.mu.RLock()
	done := s.subscribed
	s.mu.RUnlock()
	if done {
		return nil
	}

	if err := s.connector.SubscribeToIdentityChanges(s.handleIdentityChange); err != nil {
		s.logger.Warn("identity change subscription failed", "error", err)
		return err
	}
	if err := s.connector.SubscribeToNetworkChanges(s.handleNetworkChange); err != nil {
		s.logger.Warn("network change subscription failed", "error", err)
		return err
	}

	s.mu.Lock()
	s.subscribed = true
	s.mu.Unlock()
	return nil
}

func supersededError(gen uint64, txRef string) error {
	msg := "session changed while the operation was in flight (generation " + strconv.FormatUint(gen, 10) + ")"
	if txRef != "" {
		msg += "; transaction " + txRef + " was submitted"
	}
	return dErrors.New(dErrors.CodeSuperseded, msg)
}

func translateRegistryError(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrPermission):
		return dErrors.Wrap(err, dErrors.CodePermissionDenied, msg+": "+err.Error())
	default:
		return dErrors.Wrap(err, dErrors.CodeAgentError, msg+": "+err.Error())
	}
}
