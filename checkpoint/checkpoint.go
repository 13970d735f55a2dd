// Package checkpoint persists per-session agent state across turns.
//
// A checkpoint is the durable snapshot of a session's MessageState, keyed by
// session ID and written once per completed turn. The engine is the only
// reader and writer.
package checkpoint

import (
	"context"
	"sync"

	"github.com/fingen/agent/core"
)

// Store is the checkpoint store collaborator.
type Store interface {
	// Get returns the last saved state for the session, or nil if the
	// session has no checkpoint yet.
	Get(ctx context.Context, sessionID string) (*core.MessageState, error)

	// Put saves the state keyed by its session ID, replacing any previous
	// checkpoint for the session.
	Put(ctx context.Context, state *core.MessageState) error

	// Close releases resources.
	Close() error
}

// Memory is an in-process Store. Checkpoints are lost when the process
// exits; it is a valid but weaker conforming implementation, suitable for
// tests and ephemeral deployments.
type Memory struct {
	mu     sync.RWMutex
	states map[string]core.MessageState
}

// NewMemory creates an empty in-process store.
func NewMemory() *Memory {
	return &Memory{states: make(map[string]core.MessageState)}
}

// Get returns a copy of the session's last state, or nil if none.
func (m *Memory) Get(ctx context.Context, sessionID string) (*core.MessageState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.states[sessionID]
	if !ok {
		return nil, nil
	}
	cp := state
	cp.ShortTerm = append([]core.Message(nil), state.ShortTerm...)
	return &cp, nil
}

// Put saves a copy of the state.
func (m *Memory) Put(ctx context.Context, state *core.MessageState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *state
	cp.ShortTerm = append([]core.Message(nil), state.ShortTerm...)
	m.states[state.SessionID] = cp
	return nil
}

// Close is a no-op for the in-process store.
func (m *Memory) Close() error {
	return nil
}
