// Package memory implements an ephemeral storage.Storage.
// It backs the ":memory:" profile and the package tests.
package memory

import (
	"context"
	"sync"

	"github.com/iudanet/aiinterview/internal/client/storage"
)

// Storage keeps values in a map guarded by a mutex
type Storage struct {
	values map[string]string
	mu     sync.RWMutex
}

var _ storage.Storage = (*Storage)(nil)

// New creates an empty in-memory storage
func New() *Storage {
	return &Storage{values: make(map[string]string)}
}

func (s *Storage) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return "", storage.ErrKeyNotFound
	}
	return value, nil
}

func (s *Storage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

func (s *Storage) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values = make(map[string]string)
	return nil
}

// Len returns the number of stored keys
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
