// Package memory is an in-process dataset store, used when Redis is not
// configured and in tests.
package memory

import (
	"context"
	"sync"

	"github.com/gyaneshwarpardhi/pacsim/internal/store"
)

// Store keeps the encoded dataset so UsedBytes reflects its real size.
type Store struct {
	mu   sync.RWMutex
	data []byte
}

var _ store.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store { return &Store{} }

func (s *Store) Save(_ context.Context, ds *store.Dataset) error {
	data, err := store.Encode(ds)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

func (s *Store) Load(_ context.Context) (*store.Dataset, error) {
	s.mu.RLock()
	data := s.data
	s.mu.RUnlock()
	if data == nil {
		return nil, store.ErrNotFound
	}
	return store.Decode(data)
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	s.data = nil
	s.mu.Unlock()
	return nil
}

func (s *Store) UsedBytes(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.data)), nil
}
