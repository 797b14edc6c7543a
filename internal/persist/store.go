// Package persist stores the authority's snapshot in PostgreSQL so shared
// state survives restarts. An in-memory store backs tests and single-host
// runs without a database.
package persist

import (
	"context"
	gosync "sync"

	"github.com/orrery/orrery/internal/state"
)

// Store persists the authoritative snapshot.
type Store interface {
	// LoadCurrent returns the stored snapshot, or (nil, nil) when nothing
	// has been stored yet (first boot).
	LoadCurrent(ctx context.Context) (*state.Snapshot, error)
	// SaveCurrent replaces the stored snapshot and appends a history row.
	// source names what caused the write ("state", "preset:earthView",
	// "reset").
	SaveCurrent(ctx context.Context, s *state.Snapshot, source string) error
	Close()
}

// MemStore keeps the snapshot in process memory.
type MemStore struct {
	mu   gosync.Mutex
	cur  *state.Snapshot
	hist []string
}

func NewMemStore() *MemStore { return &MemStore{} }

func (m *MemStore) LoadCurrent(ctx context.Context) (*state.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return nil, nil
	}
	return m.cur.Clone(), nil
}

func (m *MemStore) SaveCurrent(ctx context.Context, s *state.Snapshot, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cur = s.Clone()
	m.hist = append(m.hist, source)
	return nil
}

// History returns the sources of every save, oldest first.
func (m *MemStore) History() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.hist...)
}

func (m *MemStore) Close() {}
