package boltdb

import (
	"context"
	"fmt"
	"sync"

	"go.etcd.io/bbolt"

	"github.com/iudanet/aiinterview/internal/client/storage"
)

var (
	// BoltDB bucket names
	bucketLocal = []byte("local")
)

// Storage represents BoltDB storage implementation for client
type Storage struct {
	db *bbolt.DB
	// mu: транзакции держат RLock, Close ждет их завершения
	mu sync.RWMutex
}

var _ storage.Storage = (*Storage)(nil)

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string) (*Storage, error) {
	// Открываем BoltDB
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	s := &Storage{db: db}

	// Инициализируем buckets
	if err := s.initBuckets(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return s, nil
}

// Close closes the database connection. Repeated calls are no-ops.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// view runs fn in a read-only transaction unless the storage is closed
func (s *Storage) view(fn func(tx *bbolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return storage.ErrStorageClosed
	}
	return s.db.View(fn)
}

// update runs fn in a read-write transaction unless the storage is closed
func (s *Storage) update(fn func(tx *bbolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return storage.ErrStorageClosed
	}
	return s.db.Update(fn)
}

// initBuckets создает необходимые buckets если они не существуют
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketLocal); err != nil {
			return fmt.Errorf("failed to create local bucket: %w", err)
		}
		return nil
	})
}
