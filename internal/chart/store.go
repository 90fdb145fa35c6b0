package chart

import "sync"

// Store is the single owner of the chart state. Every change goes through
// Dispatch, which runs the reducer.
type Store struct {
	mu    sync.RWMutex
	state State
}

// NewStore returns a store holding an empty chart.
func NewStore() *Store {
	return &Store{state: EmptyState()}
}

// Dispatch applies a and returns the resulting state.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, a)
	return s.state
}

// State returns the current state. Callers must treat it as read-only.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
