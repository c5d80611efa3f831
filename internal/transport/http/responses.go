package httptransport

import (
	"verichain/internal/agent"
	"verichain/internal/credential/store"
	"verichain/internal/session"
	"verichain/pkg/domain"
)

// SessionResponse is the externally visible session view.
type SessionResponse struct {
	State           string                `json:"state"`
	Generation      uint64                `json:"generation"`
	Connection      *agent.ConnectionInfo `json:"connection,omitempty"`
	RegistryAddress *domain.Address       `json:"registry_address,omitempty"`
	Authorized      bool                  `json:"authorized"`
}

func toSessionResponse(snap session.Snapshot) *SessionResponse {
	resp := &SessionResponse{
		State:      snap.State.String(),
		Generation: snap.Generation,
		Connection: snap.Connection,
		Authorized: snap.Authorized,
	}
	if snap.Handle != nil {
		addr := snap.Handle.RegistryAddress()
		resp.RegistryAddress = &addr
	}
	return resp
}

type TotalIssuedResponse struct {
	Total uint64 `json:"total"`
}

// CredentialListResponse lists the advisory entries for an owner. With
// reconciliation, Entries holds what survived and Reconciled pairs every
// checked entry with its live lookup.
type CredentialListResponse struct {
	Owner      domain.Address          `json:"owner"`
	Advisory   bool                    `json:"advisory"`
	Entries    []store.Entry           `json:"entries"`
	Reconciled []store.ReconciledEntry `json:"reconciled,omitempty"`
}

func toReconciledListResponse(owner domain.Address, reconciled []store.ReconciledEntry) *CredentialListResponse {
	kept := make([]store.Entry, 0, len(reconciled))
	for _, r := range reconciled {
		if !r.Dropped {
			kept = append(kept, r.Entry)
		}
	}
	return &CredentialListResponse{
		Owner:      owner,
		Advisory:   true,
		Entries:    kept,
		Reconciled: reconciled,
	}
}
