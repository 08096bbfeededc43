// Package sink hands finished snapshots to downstream persistence: image
// upload, app upsert, and completion events.
package sink

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/showcaselabs/showcase-indexer/internal/indexer"
)

// Config controls Sink behavior.
type Config struct {
	Topic string
}

// Sink implements the emission contract: it accepts one snapshot, performs
// its fallible work internally, and returns normally. Failures of the blob
// store, the app store, or the publisher are logged here and never reach
// the scheduler.
type Sink struct {
	blobs     indexer.BlobStore
	apps      indexer.AppStore
	publisher indexer.Publisher
	hasher    indexer.Hasher
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Sink. Every collaborator except the hasher is optional:
// a nil blob store skips image persistence, a nil app store skips upserts,
// a nil publisher skips completion events.
func New(
	blobs indexer.BlobStore,
	apps indexer.AppStore,
	publisher indexer.Publisher,
	hasher indexer.Hasher,
	cfg Config,
	logger *zap.Logger,
) (*Sink, error) {
	if hasher == nil {
		return nil, indexer.NewConfigError("hasher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{
		blobs:     blobs,
		apps:      apps,
		publisher: publisher,
		hasher:    hasher,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// Emit persists one snapshot. It satisfies indexer.EmitFunc via method
// value. The returned error is always nil; the signature exists so fakes in
// tests can exercise the scheduler's containment.
func (s *Sink) Emit(ctx context.Context, snapshot *indexer.Snapshot) error {
	appID, err := s.hasher.Hash([]byte(snapshot.URL))
	if err != nil {
		s.logger.Error("derive app id failed", zap.String("url", snapshot.URL), zap.Error(err))
		return nil
	}

	if snapshot.Status != indexer.StatusOK {
		s.logger.Info("skipping upsert for error snapshot",
			zap.String("url", snapshot.URL),
			zap.String("error", snapshot.Error),
		)
		s.publishCompletion(ctx, snapshot, "")
		return nil
	}

	imageID := s.uploadScreenshots(ctx, appID, snapshot)
	s.upsert(ctx, appID, imageID, snapshot)
	s.publishCompletion(ctx, snapshot, imageID)
	return nil
}

// uploadScreenshots writes both sizes under the id-derived keys. The large
// and small keys differ only in their resolution suffix; downstream readers
// rely on that convention to build image URLs from the bare id.
func (s *Sink) uploadScreenshots(ctx context.Context, appID string, snapshot *indexer.Snapshot) string {
	if s.blobs == nil {
		return ""
	}

	largeKey := fmt.Sprintf("%s_%d.jpg", appID, indexer.ViewportWidth)
	smallKey := fmt.Sprintf("%s_%d.jpg", appID, indexer.ThumbWidth)

	if _, err := s.blobs.PutObject(ctx, largeKey, "image/jpeg", snapshot.ScreenshotLarge); err != nil {
		emitErr := &indexer.EmissionError{URL: snapshot.URL, Err: err}
		s.logger.Error("large screenshot upload failed", zap.String("key", largeKey), zap.Error(emitErr))
		return ""
	}
	if _, err := s.blobs.PutObject(ctx, smallKey, "image/jpeg", snapshot.ScreenshotSmall); err != nil {
		emitErr := &indexer.EmissionError{URL: snapshot.URL, Err: err}
		s.logger.Error("small screenshot upload failed", zap.String("key", smallKey), zap.Error(emitErr))
		return ""
	}
	return appID
}

func (s *Sink) upsert(ctx context.Context, appID, imageID string, snapshot *indexer.Snapshot) {
	if s.apps == nil {
		return
	}
	record := indexer.AppRecord{
		ID:            appID,
		URL:           snapshot.URL,
		Title:         snapshot.AITitle,
		Description:   snapshot.AIDescription,
		ImageID:       imageID,
		AuthorName:    snapshot.Submission.AuthorName,
		AppName:       snapshot.Submission.AppName,
		SocialPostURL: snapshot.Submission.SocialPostURL,
	}
	if err := s.apps.UpsertApp(ctx, record); err != nil {
		emitErr := &indexer.EmissionError{URL: snapshot.URL, Err: err}
		s.logger.Error("app upsert failed", zap.String("app_id", appID), zap.Error(emitErr))
		return
	}
	s.logger.Info("app upserted",
		zap.String("app_id", appID),
		zap.String("url", snapshot.URL),
		zap.Bool("images", imageID != ""),
	)
}

func (s *Sink) publishCompletion(ctx context.Context, snapshot *indexer.Snapshot, imageID string) {
	if s.publisher == nil || s.cfg.Topic == "" {
		return
	}
	event := indexer.CompletionEvent{
		URL:       snapshot.URL,
		Status:    snapshot.Status,
		ImageID:   imageID,
		FetchedAt: snapshot.FetchedAt,
		Error:     snapshot.Error,
	}
	if _, err := s.publisher.Publish(ctx, s.cfg.Topic, event); err != nil {
		s.logger.Error("completion publish failed", zap.String("url", snapshot.URL), zap.Error(err))
	}
}
