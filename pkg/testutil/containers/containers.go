//go:build integration

// Package containers starts the Redis and Kafka brokers the integration
// suites run against. One instance of each is shared per test binary.
package containers

import (
	"sync"
	"testing"
)

// Manager starts containers lazily and hands the same instance to every
// suite that asks.
type Manager struct {
	mu    sync.Mutex
	redis *RedisContainer
	kafka *KafkaContainer
}

var (
	globalManager *Manager
	initOnce      sync.Once
)

func GetManager() *Manager {
	initOnce.Do(func() {
		globalManager = &Manager{}
	})
	return globalManager
}

// GetRedis backs the advisory credential list suites.
func (m *Manager) GetRedis(t *testing.T) *RedisContainer {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.redis == nil {
		m.redis = NewRedisContainer(t)
	}
	return m.redis
}

// GetKafka backs the audit sink suites.
func (m *Manager) GetKafka(t *testing.T) *KafkaContainer {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.kafka == nil {
		m.kafka = NewKafkaContainer(t)
	}
	return m.kafka
}
