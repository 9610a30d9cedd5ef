// Package memory keeps history logs in process memory, encoded exactly as the
// durable stores encode them.
package memory

import (
	"context"
	"sync"

	domain "github.com/bryanwahyu/metaselect/internal/domain/analysis"
)

type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) Load(ctx context.Context, key string) ([]domain.HistoryEntry, error) {
	s.mu.RLock()
	b, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return domain.DecodeHistory(b)
}

func (s *Store) Save(ctx context.Context, key string, entries []domain.HistoryEntry) error {
	b, err := domain.EncodeHistory(entries)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data[key] = b
	s.mu.Unlock()
	return nil
}

// Put stores raw bytes under key, bypassing encoding.
func (s *Store) Put(key string, raw []byte) {
	s.mu.Lock()
	s.data[key] = append([]byte(nil), raw...)
	s.mu.Unlock()
}

// Raw returns the stored bytes for key.
func (s *Store) Raw(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.data[key]
	return append([]byte(nil), b...), ok
}
