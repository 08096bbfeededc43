// Package memory contains in-memory store implementations for development
// and tests.
package memory

import (
	"context"
	"sync"

	"github.com/showcaselabs/showcase-indexer/internal/indexer"
)

// AppStore records upserts keyed by app id.
type AppStore struct {
	mu   sync.RWMutex
	apps map[string]indexer.AppRecord
}

// NewAppStore creates an empty AppStore.
func NewAppStore() *AppStore {
	return &AppStore{
		apps: make(map[string]indexer.AppRecord),
	}
}

// UpsertApp stores the record, replacing any previous one with the same id.
func (s *AppStore) UpsertApp(_ context.Context, record indexer.AppRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apps[record.ID] = record
	return nil
}

// App returns the stored record for id, if present.
func (s *AppStore) App(id string) (indexer.AppRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.apps[id]
	return record, ok
}

// Len returns the number of stored records.
func (s *AppStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.apps)
}
