package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/hamed0406/servermonitor/internal/domain"
	"github.com/hamed0406/servermonitor/internal/repo"
)

var _ repo.StateStore = (*Store)(nil)

// Store keeps the persisted state in process memory. Used for the memory
// backend and in tests.
type Store struct {
	mu    sync.RWMutex
	state *domain.State
	saves int
	err   error
}

func New() *Store {
	return &Store{}
}

func (m *Store) Load(ctx context.Context) (domain.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == nil {
		return domain.DefaultState(), nil
	}
	st := *m.state
	st.Servers = slices.Clone(st.Servers)
	return st, nil
}

func (m *Store) Save(ctx context.Context, st domain.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	st.Servers = slices.Clone(st.Servers)
	if st.Servers == nil {
		st.Servers = []string{}
	}
	m.state = &st
	m.saves++
	return nil
}

// Saves reports how many successful saves the store has seen.
func (m *Store) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// FailWith makes subsequent saves return err; nil restores normal behavior.
func (m *Store) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}
