package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/showcaselabs/showcase-indexer/internal/indexer"
)

func TestAppStore_UpsertReplacesByID(t *testing.T) {
	t.Parallel()

	store := NewAppStore()
	require.NoError(t, store.UpsertApp(context.Background(), indexer.AppRecord{ID: "a", Title: "First"}))
	require.NoError(t, store.UpsertApp(context.Background(), indexer.AppRecord{ID: "a", Title: "Second"}))
	require.NoError(t, store.UpsertApp(context.Background(), indexer.AppRecord{ID: "b", Title: "Other"}))

	require.Equal(t, 2, store.Len())
	record, ok := store.App("a")
	require.True(t, ok)
	require.Equal(t, "Second", record.Title)
}

func TestBatchStore_Lifecycle(t *testing.T) {
	t.Parallel()

	store := NewBatchStore()
	batch := indexer.Batch{
		ID:        "batch-1",
		Status:    indexer.BatchStatusQueued,
		URLs:      []string{"https://a.example"},
		Submitted: time.Unix(100, 0),
	}
	require.NoError(t, store.CreateBatch(batch))
	require.Error(t, store.CreateBatch(batch), "duplicate ids are rejected")

	require.NoError(t, store.UpdateBatch("batch-1", func(b *indexer.Batch) {
		b.Status = indexer.BatchStatusRunning
		b.Counters.SnapshotsOK++
	}))
	require.Error(t, store.UpdateBatch("missing", func(*indexer.Batch) {}))

	got, err := store.GetBatch("batch-1")
	require.NoError(t, err)
	require.Equal(t, indexer.BatchStatusRunning, got.Status)
	require.Equal(t, 1, got.Counters.SnapshotsOK)

	_, err = store.GetBatch("missing")
	require.Error(t, err)
}

func TestBatchStore_Summaries(t *testing.T) {
	t.Parallel()

	store := NewBatchStore()
	require.NoError(t, store.CreateBatch(indexer.Batch{ID: "batch-1"}))

	store.RecordSummary("batch-1", indexer.SnapshotSummary{URL: "https://a.example", Status: indexer.StatusOK})
	store.RecordSummary("batch-1", indexer.SnapshotSummary{URL: "https://b.example", Status: indexer.StatusError, Error: "boom"})

	summaries := store.ListSummaries("batch-1")
	require.Len(t, summaries, 2)
	require.Equal(t, "https://a.example", summaries[0].URL)
	require.Empty(t, store.ListSummaries("missing"))
}
