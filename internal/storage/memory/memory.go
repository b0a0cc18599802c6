// Package memory is a process-local key-value store used for development and
// tests.
package memory

import (
	"context"
	"sync"
)

type Store struct {
	mu    sync.Mutex
	items map[string][]byte
	// FailWrites makes every Set fail; tests use it to exercise
	// persistence errors.
	FailWrites error
}

func New() *Store {
	return &Store{items: make(map[string][]byte)}
}

// Seed stores value under key without going through Set.
func (s *Store) Seed(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = append([]byte(nil), value...)
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	s.items[key] = append([]byte(nil), value...)
	return nil
}

// Keys returns the number of stored keys.
func (s *Store) Keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }
