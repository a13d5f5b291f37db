package boltdb

import (
	"context"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/aiinterview/internal/client/storage"
)

// Get retrieves the value stored under key
func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.view(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketLocal)
		if bucket == nil {
			return fmt.Errorf("local bucket not found")
		}

		data := bucket.Get([]byte(key))
		if data == nil {
			return storage.ErrKeyNotFound
		}
		// bbolt отдает срез, валидный только внутри транзакции
		value = string(data)
		return nil
	})
	if err != nil {
		return "", err
	}

	return value, nil
}

// Set stores value under key
func (s *Storage) Set(ctx context.Context, key, value string) error {
	return s.update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketLocal)
		if bucket == nil {
			return fmt.Errorf("local bucket not found")
		}

		if err := bucket.Put([]byte(key), []byte(value)); err != nil {
			return fmt.Errorf("failed to save %q: %w", key, err)
		}
		return nil
	})
}

// Delete removes key, missing keys are ignored
func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketLocal)
		if bucket == nil {
			return fmt.Errorf("local bucket not found")
		}

		if err := bucket.Delete([]byte(key)); err != nil {
			return fmt.Errorf("failed to delete %q: %w", key, err)
		}
		return nil
	})
}

// Clear removes every key by recreating the bucket
func (s *Storage) Clear(ctx context.Context) error {
	return s.update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketLocal); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return fmt.Errorf("failed to drop local bucket: %w", err)
		}
		if _, err := tx.CreateBucket(bucketLocal); err != nil {
			return fmt.Errorf("failed to create local bucket: %w", err)
		}
		return nil
	})
}
