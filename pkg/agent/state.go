package agent

import (
	"context"
	"sync"
)

// State is a concurrency-safe key/value store for agent-local state. Save
// and Load are hooks for persistence; the defaults keep everything in
// memory.
type State struct {
	mu     sync.RWMutex
	values map[string]any

	// SaveFunc and LoadFunc override persistence. Nil means in-memory only.
	SaveFunc func(ctx context.Context, values map[string]any) error
	LoadFunc func(ctx context.Context) (map[string]any, error)
}

func NewState() *State {
	return &State{values: make(map[string]any)}
}

func (s *State) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *State) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *State) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Snapshot returns a shallow copy of the state map.
func (s *State) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

func (s *State) Save(ctx context.Context) error {
	if s.SaveFunc == nil {
		return nil
	}
	return s.SaveFunc(ctx, s.Snapshot())
}

func (s *State) Load(ctx context.Context) error {
	if s.LoadFunc == nil {
		return nil
	}
	loaded, err := s.LoadFunc(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range loaded {
		s.values[k] = v
	}
	return nil
}
