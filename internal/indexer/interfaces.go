package indexer

import (
	"context"
	"time"
)

// Extractor loads a URL in the shared browser engine and harvests text,
// metadata and screenshots. Start must be called once before the first
// Extract and Close once after the last.
type Extractor interface {
	Start(ctx context.Context) error
	Extract(ctx context.Context, url string) (ExtractedPage, error)
	Close() error
}

// EnrichmentRequest carries everything the enrichment stage feeds a provider.
type EnrichmentRequest struct {
	URL             string
	RawTitle        string
	MetaDescription *string
	ExtractedText   string
}

// Enricher produces an AI title/description for an extracted page.
type Enricher interface {
	Enrich(ctx context.Context, req EnrichmentRequest) (EnrichmentResult, error)
}

// EmitFunc receives each completed Snapshot exactly once, in completion
// order. Implementations own their internal failures; an error return is
// logged by the scheduler and does not affect other submissions.
type EmitFunc func(ctx context.Context, snapshot *Snapshot) error

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, key string, contentType string, data []byte) (string, error)
}

// AppStore upserts the record derived from an ok snapshot. Implementations
// include a remote-procedure HTTP client and a Postgres table.
type AppStore interface {
	UpsertApp(ctx context.Context, record AppRecord) error
}

// Publisher pushes completion events to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes digests used to derive stable app/image ids.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces batch IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
