// Package binding associates a validated registry address with the
// connected signer, producing the handle every registry request goes
// through.
package binding

import (
	"context"
	"sync/atomic"

	"verichain/internal/agent"
	"verichain/internal/ledger"
	"verichain/pkg/domain"
	dErrors "verichain/pkg/domain-errors"
)

// Handle is a registry capability bound to one (signer, registry) pair.
type Handle struct {
	id       uint64
	registry ledger.Registry
	address  domain.Address
	signer   domain.Address
}

// ID distinguishes handles; every Bind yields a new one.
func (h *Handle) ID() uint64 { return h.id }

// Registry returns the bound registry capability.
func (h *Handle) Registry() ledger.Registry { return h.registry }

// RegistryAddress is the address the handle was bound to.
func (h *Handle) RegistryAddress() domain.Address { return h.address }

// Signer is the identity the handle signs as.
func (h *Handle) Signer() domain.Address { return h.signer }

// Binder opens registry handles.
type Binder struct {
	factory ledger.Factory
	seq     atomic.Uint64
}

// New creates a Binder over factory.
func New(factory ledger.Factory) *Binder {
	return &Binder{factory: factory}
}

// Bind validates registryAddress and opens a handle signing as conn's
// identity. Binding is optimistic: no registry call is made, so a missing or
// incompatible registry surfaces on first use.
func (b *Binder) Bind(_ context.Context, conn *agent.ConnectionInfo, registryAddress string) (*Handle, error) {
	if conn == nil || conn.Address.IsNil() {
		return nil, dErrors.New(dErrors.CodeNotConnected, "connect a signing agent before binding a registry")
	}
	addr, err := domain.ParseAddress(registryAddress)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidAddress, "invalid registry address")
	}
	reg, err := b.factory.Open(addr.Common(), conn.Address.Common())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeAgentError, "failed to open registry: "+err.Error())
	}
	return &Handle{
		id:       b.seq.Add(1),
		registry: reg,
		address:  addr,
		signer:   conn.Address,
	}, nil
}
