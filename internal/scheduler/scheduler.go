// Package scheduler drives submissions through extraction and enrichment at
// bounded concurrency, with per-submission fault isolation.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/showcaselabs/showcase-indexer/internal/indexer"
	"github.com/showcaselabs/showcase-indexer/internal/metrics"
)

// Config controls Scheduler behavior.
type Config struct {
	Concurrency int
}

// Scheduler fans a batch of submissions out over a fixed number of slots.
// Every submission yields exactly one Snapshot and exactly one emit call,
// whatever its stages do; only configuration problems can fail a run before
// it starts.
type Scheduler struct {
	extractor indexer.Extractor
	enricher  indexer.Enricher
	clock     indexer.Clock
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Scheduler.
func New(
	extractor indexer.Extractor,
	enricher indexer.Enricher,
	clock indexer.Clock,
	cfg Config,
	logger *zap.Logger,
) (*Scheduler, error) {
	if extractor == nil {
		return nil, indexer.NewConfigError("extractor is required")
	}
	if enricher == nil {
		return nil, indexer.NewConfigError("enricher is required")
	}
	if clock == nil {
		return nil, indexer.NewConfigError("clock is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		extractor: extractor,
		enricher:  enricher,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// Run processes every submission and returns after all snapshots have been
// constructed and all emission calls have completed. Individual failures are
// folded into error snapshots; they never abort or block the rest of the
// batch.
//
// The browser engine is owned by this invocation: started before the first
// dispatch, torn down after the last task joins.
func (s *Scheduler) Run(ctx context.Context, submissions []indexer.Submission, emit indexer.EmitFunc) error {
	if emit == nil {
		return indexer.NewConfigError("emit function is required")
	}

	if err := s.extractor.Start(ctx); err != nil {
		return fmt.Errorf("start extractor: %w", err)
	}
	defer func() {
		if err := s.extractor.Close(); err != nil {
			s.logger.Warn("extractor close failed", zap.Error(err))
		}
	}()

	sem := make(chan struct{}, s.cfg.Concurrency)
	var wg sync.WaitGroup

	for _, sub := range submissions {
		wg.Add(1)
		go func(sub indexer.Submission) {
			defer wg.Done()

			// The slot covers the stages and the emission call, exactly one
			// submission per slot at a time.
			sem <- struct{}{}
			defer func() { <-sem }()

			metrics.WorkerStarted()
			defer metrics.WorkerFinished()

			snapshot := s.process(ctx, sub)
			metrics.SnapshotProduced(string(snapshot.Status))
			s.safeEmit(ctx, emit, snapshot)
		}(sub)
	}

	wg.Wait()
	return nil
}

// RunURLs is the degenerate single-URL-list entry point: it synthesizes
// empty metadata per URL and delegates to Run.
func (s *Scheduler) RunURLs(ctx context.Context, urls []string, emit indexer.EmitFunc) error {
	submissions := make([]indexer.Submission, 0, len(urls))
	for _, url := range urls {
		submissions = append(submissions, indexer.Submission{URL: url})
	}
	return s.Run(ctx, submissions, emit)
}

// process runs one submission through both stages and always returns a
// snapshot. A canceled context is treated like any other stage failure so
// totality holds even mid-shutdown.
func (s *Scheduler) process(ctx context.Context, sub indexer.Submission) *indexer.Snapshot {
	fetchedAt := s.clock.Now().UTC().Format(time.RFC3339)

	if err := ctx.Err(); err != nil {
		return s.errorSnapshot(sub, fetchedAt, err)
	}

	extractStart := s.clock.Now()
	page, err := s.extractor.Extract(ctx, sub.URL)
	metrics.ObserveStage("extract", s.clock.Now().Sub(extractStart))
	if err != nil {
		metrics.StageFailed("extract")
		s.logger.Warn("extraction failed", zap.String("url", sub.URL), zap.Error(err))
		return s.errorSnapshot(sub, fetchedAt, err)
	}

	enrichStart := s.clock.Now()
	result, err := s.enricher.Enrich(ctx, indexer.EnrichmentRequest{
		URL:             sub.URL,
		RawTitle:        page.RawTitle,
		MetaDescription: page.MetaDescription,
		ExtractedText:   page.ExtractedText,
	})
	metrics.ObserveStage("enrich", s.clock.Now().Sub(enrichStart))
	if err != nil {
		// All or nothing: the extracted page is discarded, not partially
		// emitted.
		metrics.StageFailed("enrich")
		s.logger.Warn("enrichment failed", zap.String("url", sub.URL), zap.Error(err))
		return s.errorSnapshot(sub, fetchedAt, err)
	}

	return &indexer.Snapshot{
		URL:             sub.URL,
		Submission:      sub.Meta,
		RawTitle:        page.RawTitle,
		MetaDescription: page.MetaDescription,
		ExtractedText:   page.ExtractedText,
		ScreenshotLarge: page.ScreenshotLarge,
		ScreenshotSmall: page.ScreenshotSmall,
		AITitle:         result.Title,
		AIDescription:   result.Description,
		FetchedAt:       fetchedAt,
		Status:          indexer.StatusOK,
	}
}

func (s *Scheduler) errorSnapshot(sub indexer.Submission, fetchedAt string, cause error) *indexer.Snapshot {
	return &indexer.Snapshot{
		URL:        sub.URL,
		Submission: sub.Meta,
		FetchedAt:  fetchedAt,
		Status:     indexer.StatusError,
		Error:      cause.Error(),
	}
}

// safeEmit invokes the sink and contains anything it does wrong. The sink
// contract says it never throws past its boundary; this enforces the
// boundary even when the sink violates it.
func (s *Scheduler) safeEmit(ctx context.Context, emit indexer.EmitFunc, snapshot *indexer.Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			metrics.EmitFailed()
			s.logger.Error("emit panicked",
				zap.String("url", snapshot.URL),
				zap.Any("panic", r),
			)
		}
	}()
	if err := emit(ctx, snapshot); err != nil {
		metrics.EmitFailed()
		s.logger.Error("emit failed", zap.String("url", snapshot.URL), zap.Error(err))
	}
}
