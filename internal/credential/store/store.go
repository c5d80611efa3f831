// Package store keeps the advisory "my credentials" list per identity.
//
// Entries are a display convenience only. They are never trusted as the
// state of a credential; Reconciler re-checks them against the registry.
package store

import (
	"cmp"
	"context"
	"slices"
	"time"

	"verichain/internal/credential/models"
	"verichain/pkg/domain"
)

// Roles an owner can have in a listed credential.
const (
	RoleIssuer    = "issuer"
	RoleRecipient = "recipient"
)

// Entry is one advisory list item. Registry and ChainID name the registry
// the credential was issued on; an ID means nothing without them.
type Entry struct {
	ID             domain.CredentialID   `json:"id,string"`
	Registry       domain.Address        `json:"registry"`
	ChainID        uint64                `json:"chain_id"`
	Role           string                `json:"role"`
	Type           models.CredentialType `json:"type"`
	Title          string                `json:"title"`
	TransactionRef string                `json:"transaction_ref"`
	RecordedAt     time.Time             `json:"recorded_at"`
}

// Store is implemented by InMemoryStore and RedisStore. List returns
// entries ordered by ID; an owner with no entries yields an empty list.
type Store interface {
	Save(ctx context.Context, owner domain.Address, entry Entry) error
	List(ctx context.Context, owner domain.Address) ([]Entry, error)
	Remove(ctx context.Context, owner domain.Address, id domain.CredentialID) error
}

func sortByID(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int { return cmp.Compare(a.ID, b.ID) })
}
