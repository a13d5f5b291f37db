package storage

import (
	"context"
	"errors"
)

//go:generate moq -out storage_mock.go . Storage

// Storage defines the persistent key-value store of the client.
// It plays the role browser local storage plays for the web client:
// one instance per user profile, string keys, string values.
type Storage interface {
	// Get returns the value stored under key.
	// Returns ErrKeyNotFound if nothing is stored.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every key
	Clear(ctx context.Context) error
}

// ValueOrEmpty returns the stored value or "" when the key is absent.
func ValueOrEmpty(ctx context.Context, s Storage, key string) (string, error) {
	value, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return "", nil
		}
		return "", err
	}
	return value, nil
}
