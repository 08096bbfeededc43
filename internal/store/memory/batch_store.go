package memory

import (
	"fmt"
	"sync"

	"github.com/showcaselabs/showcase-indexer/internal/indexer"
)

// BatchStore tracks submitted batches and their snapshot summaries.
type BatchStore struct {
	mu        sync.RWMutex
	batches   map[string]indexer.Batch
	summaries map[string][]indexer.SnapshotSummary
}

// NewBatchStore creates an empty BatchStore.
func NewBatchStore() *BatchStore {
	return &BatchStore{
		batches:   make(map[string]indexer.Batch),
		summaries: make(map[string][]indexer.SnapshotSummary),
	}
}

// CreateBatch registers a new batch record.
func (s *BatchStore) CreateBatch(batch indexer.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.batches[batch.ID]; exists {
		return fmt.Errorf("batch %s already exists", batch.ID)
	}
	s.batches[batch.ID] = batch
	return nil
}

// UpdateBatch applies fn to the stored batch under the lock.
func (s *BatchStore) UpdateBatch(id string, fn func(*indexer.Batch)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch, ok := s.batches[id]
	if !ok {
		return fmt.Errorf("batch %s not found", id)
	}
	fn(&batch)
	s.batches[id] = batch
	return nil
}

// GetBatch returns the batch record for id.
func (s *BatchStore) GetBatch(id string) (indexer.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	batch, ok := s.batches[id]
	if !ok {
		return indexer.Batch{}, fmt.Errorf("batch %s not found", id)
	}
	return batch, nil
}

// RecordSummary appends one snapshot summary to the batch's results.
func (s *BatchStore) RecordSummary(id string, summary indexer.SnapshotSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[id] = append(s.summaries[id], summary)
}

// ListSummaries returns the snapshot summaries recorded for a batch.
func (s *BatchStore) ListSummaries(id string) []indexer.SnapshotSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]indexer.SnapshotSummary, len(s.summaries[id]))
	copy(out, s.summaries[id])
	return out
}
