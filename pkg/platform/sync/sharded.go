// Package sync holds keyed locking helpers.
package sync

import (
	"sync"
)

// ShardedMutex serializes work per key without a global lock. Keys hash onto
// a fixed set of shards, so unrelated keys may occasionally share one.
type ShardedMutex struct {
	shards [32]sync.Mutex
}

func NewShardedMutex() *ShardedMutex {
	return &ShardedMutex{}
}

// Lock acquires the shard for key. The empty key maps to shard 0.
func (m *ShardedMutex) Lock(key string) {
	m.shards[m.shardFor(key)].Lock()
}

func (m *ShardedMutex) Unlock(key string) {
	m.shards[m.shardFor(key)].Unlock()
}

func (m *ShardedMutex) shardFor(key string) int {
	if key == "" {
		return 0
	}
	return int(hashString(key) % uint32(len(m.shards)))
}

// hashString is a 31-multiplier polynomial hash.
func hashString(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h*31 + uint32(s[i])
	}
	return h
}
