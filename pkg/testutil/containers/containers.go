//go:build integration

// Package containers starts the backing services used by integration tests.
// Each service is started at most once per test binary and then shared;
// suites reset state themselves (TruncateContacts, Flush, fresh topics).
package containers

import (
	"sync"
	"testing"
)

// shared holds one lazily started container.
type shared[T any] struct {
	mu    sync.Mutex
	value *T
}

func (s *shared[T]) get(t *testing.T, start func(*testing.T) *T) *T {
	t.Helper()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.value == nil {
		s.value = start(t)
	}
	return s.value
}

// Manager hands out the shared containers.
type Manager struct {
	postgres shared[PostgresContainer]
	redis    shared[RedisContainer]
	kafka    shared[KafkaContainer]
}

var manager = &Manager{}

func GetManager() *Manager {
	return manager
}

// GetPostgres returns Postgres with the contacts schema applied.
func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	return m.postgres.get(t, NewPostgresContainer)
}

func (m *Manager) GetRedis(t *testing.T) *RedisContainer {
	t.Helper()
	return m.redis.get(t, NewRedisContainer)
}

func (m *Manager) GetKafka(t *testing.T) *KafkaContainer {
	t.Helper()
	return m.kafka.get(t, NewKafkaContainer)
}
