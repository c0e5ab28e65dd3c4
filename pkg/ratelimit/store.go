package ratelimit

import (
	"context"
	"sync"
)

// Store persists rate limit state between requests. The default in-memory
// implementation is scoped to one client; RedisStore shares state across
// processes that hit the API with the same credential.
type Store interface {
	// Get returns the current state, or the default state if none has
	// been recorded yet.
	Get(ctx context.Context) (State, error)

	// Set overwrites the current state.
	Set(ctx context.Context, state State) error
}

// MemoryStore keeps rate limit state in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	state State
	set   bool
}

// NewMemoryStore creates an in-memory state store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get returns the stored state, or the default state before the first Set.
func (m *MemoryStore) Get(_ context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return DefaultState(), nil
	}
	return m.state, nil
}

// Set overwrites the stored state.
func (m *MemoryStore) Set(_ context.Context, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	m.set = true
	return nil
}
