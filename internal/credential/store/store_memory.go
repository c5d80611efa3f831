package store

import (
	"context"
	"sync"
	"time"

	"verichain/pkg/domain"
)

type cachedEntry struct {
	entry    Entry
	storedAt time.Time
}

// InMemoryStore keeps lists in process memory with TTL expiration.
type InMemoryStore struct {
	mu    sync.RWMutex
	lists map[domain.Address]map[domain.CredentialID]cachedEntry
	ttl   time.Duration
	now   func() time.Time
}

// NewInMemoryStore creates a store whose entries expire after ttl. A
// non-positive ttl keeps entries forever.
func NewInMemoryStore(ttl time.Duration) *InMemoryStore {
	return &InMemoryStore{
		lists: make(map[domain.Address]map[domain.CredentialID]cachedEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (s *InMemoryStore) Save(_ context.Context, owner domain.Address, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, ok := s.lists[owner]
	if !ok {
		list = make(map[domain.CredentialID]cachedEntry)
		s.lists[owner] = list
	}
	list[entry.ID] = cachedEntry{entry: entry, storedAt: s.now()}
	return nil
}

func (s *InMemoryStore) List(_ context.Context, owner domain.Address) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Entry{}
	for _, cached := range s.lists[owner] {
		if s.expired(cached) {
			continue
		}
		out = append(out, cached.entry)
	}
	sortByID(out)
	return out, nil
}

func (s *InMemoryStore) Remove(_ context.Context, owner domain.Address, id domain.CredentialID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lists[owner], id)
	return nil
}

func (s *InMemoryStore) expired(c cachedEntry) bool {
	return s.ttl > 0 && s.now().Sub(c.storedAt) >= s.ttl
}
