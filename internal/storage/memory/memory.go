// Package memory provides an in-memory record backend for tests and for
// running without durable storage.
package memory

import (
	"context"
	"sync"
)

type Store struct {
	mu      sync.Mutex
	records map[string][]byte
}

func New() *Store {
	return &Store{records: make(map[string][]byte)}
}

// Seed pre-populates a record, for tests that need existing state.
func (s *Store) Seed(key string, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = append([]byte(nil), payload...)
}

func (s *Store) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), payload...), nil
}

func (s *Store) Save(_ context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = append([]byte(nil), payload...)
	return nil
}

func (s *Store) Close() error {
	return nil
}
