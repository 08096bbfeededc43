package indexer

import "time"

// BatchStatus represents the lifecycle state of a submitted batch.
type BatchStatus string

// Batch status values tracked by the batch store.
const (
	BatchStatusQueued    BatchStatus = "queued"
	BatchStatusRunning   BatchStatus = "running"
	BatchStatusSucceeded BatchStatus = "succeeded"
	BatchStatusFailed    BatchStatus = "failed"
)

// BatchCounters tracks per-batch snapshot outcomes.
type BatchCounters struct {
	SnapshotsOK    int `json:"snapshots_ok"`
	SnapshotsError int `json:"snapshots_error"`
}

// Batch is the metadata tracked for each submitted run.
type Batch struct {
	ID        string        `json:"id"`
	Status    BatchStatus   `json:"status"`
	URLs      []string      `json:"urls"`
	Submitted time.Time     `json:"submitted_at"`
	Started   *time.Time    `json:"started_at,omitempty"`
	Finished  *time.Time    `json:"finished_at,omitempty"`
	ErrorText string        `json:"error_text,omitempty"`
	Counters  BatchCounters `json:"counters"`
}

// SnapshotSummary is the per-URL result row returned by the batch result
// endpoint. Image bytes stay out of the API payload.
type SnapshotSummary struct {
	URL           string `json:"url"`
	Status        Status `json:"status"`
	AITitle       string `json:"aiTitle,omitempty"`
	AIDescription string `json:"aiDescription,omitempty"`
	Error         string `json:"error,omitempty"`
	FetchedAt     string `json:"fetchedAt"`
}

// Summary strips a snapshot down to its API representation.
func (s *Snapshot) Summary() SnapshotSummary {
	return SnapshotSummary{
		URL:           s.URL,
		Status:        s.Status,
		AITitle:       s.AITitle,
		AIDescription: s.AIDescription,
		Error:         s.Error,
		FetchedAt:     s.FetchedAt,
	}
}
