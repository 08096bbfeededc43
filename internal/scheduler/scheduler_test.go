package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/showcaselabs/showcase-indexer/internal/indexer"
)

func TestScheduler_New_RequiresCollaborators(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(100, 0)}
	extractor := &fakeExtractor{}
	enricher := &fakeEnricher{}

	_, err := New(nil, enricher, clock, Config{}, zap.NewNop())
	require.Error(t, err)

	_, err = New(extractor, nil, clock, Config{}, zap.NewNop())
	require.Error(t, err)

	_, err = New(extractor, enricher, nil, Config{}, zap.NewNop())
	require.Error(t, err)

	sched, err := New(extractor, enricher, clock, Config{}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, sched)
}

func TestScheduler_Run_RequiresEmit(t *testing.T) {
	t.Parallel()

	sched := newTestScheduler(t, &fakeExtractor{}, &fakeEnricher{}, Config{})
	err := sched.Run(context.Background(), nil, nil)
	require.Error(t, err)

	var cfgErr *indexer.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestScheduler_Run_EverySubmissionYieldsOneSnapshot(t *testing.T) {
	t.Parallel()

	urls := []string{
		"https://a.example",
		"https://b.example",
		"https://c.example",
		"https://d.example",
		"https://e.example",
	}
	extractor := &fakeExtractor{}
	enricher := &fakeEnricher{}
	sched := newTestScheduler(t, extractor, enricher, Config{Concurrency: 2})

	collector := newCollector()
	err := sched.RunURLs(context.Background(), urls, collector.emit)
	require.NoError(t, err)

	snapshots := collector.snapshots()
	require.Len(t, snapshots, len(urls))

	seen := make(map[string]int)
	for _, snap := range snapshots {
		seen[snap.URL]++
		require.Equal(t, indexer.StatusOK, snap.Status)
	}
	for _, url := range urls {
		require.Equal(t, 1, seen[url], "url %s should appear exactly once", url)
	}
	require.True(t, extractor.started.Load() != 0)
	require.True(t, extractor.closed.Load() != 0)
}

func TestScheduler_Run_FaultIsolation(t *testing.T) {
	t.Parallel()

	extractor := &fakeExtractor{
		errs: map[string]error{
			"https://broken.example": &indexer.ExtractionError{
				URL: "https://broken.example",
				Err: errors.New("navigation timeout"),
			},
		},
	}
	sched := newTestScheduler(t, extractor, &fakeEnricher{}, Config{Concurrency: 2})

	collector := newCollector()
	err := sched.RunURLs(context.Background(), []string{
		"https://ok.example",
		"https://broken.example",
		"https://also-ok.example",
	}, collector.emit)
	require.NoError(t, err)

	snapshots := collector.snapshots()
	require.Len(t, snapshots, 3)

	byURL := make(map[string]indexer.Snapshot)
	for _, snap := range snapshots {
		byURL[snap.URL] = snap
	}
	require.Equal(t, indexer.StatusError, byURL["https://broken.example"].Status)
	require.Contains(t, byURL["https://broken.example"].Error, "timeout")
	require.Equal(t, indexer.StatusOK, byURL["https://ok.example"].Status)
	require.Equal(t, indexer.StatusOK, byURL["https://also-ok.example"].Status)
}

func TestScheduler_Run_ConcurrencyBound(t *testing.T) {
	t.Parallel()

	gate := &concurrencyGate{limit: 2}
	extractor := &fakeExtractor{
		onExtract: func() {
			gate.enter(t)
			time.Sleep(10 * time.Millisecond)
			gate.leave()
		},
	}
	sched := newTestScheduler(t, extractor, &fakeEnricher{}, Config{Concurrency: 2})

	urls := make([]string, 8)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://site-%d.example", i)
	}
	collector := newCollector()
	err := sched.RunURLs(context.Background(), urls, collector.emit)
	require.NoError(t, err)
	require.Len(t, collector.snapshots(), len(urls))
	require.LessOrEqual(t, gate.peak(), 2)
}

func TestScheduler_Run_EnrichmentFailureDiscardsExtraction(t *testing.T) {
	t.Parallel()

	enricher := &fakeEnricher{
		errs: map[string]error{
			"https://strange.example": &indexer.EnrichmentError{
				URL: "https://strange.example",
				Err: errors.New("model returned invalid JSON"),
			},
		},
	}
	sched := newTestScheduler(t, &fakeExtractor{}, enricher, Config{})

	collector := newCollector()
	err := sched.RunURLs(context.Background(), []string{"https://strange.example"}, collector.emit)
	require.NoError(t, err)

	snapshots := collector.snapshots()
	require.Len(t, snapshots, 1)
	snap := snapshots[0]
	require.Equal(t, indexer.StatusError, snap.Status)
	require.Contains(t, snap.Error, "invalid JSON")
	require.Empty(t, snap.RawTitle)
	require.Empty(t, snap.ExtractedText)
	require.Nil(t, snap.ScreenshotLarge)
	require.Empty(t, snap.AITitle)
}

func TestScheduler_Run_SubmissionMetaCarriedThrough(t *testing.T) {
	t.Parallel()

	sched := newTestScheduler(t, &fakeExtractor{}, &fakeEnricher{}, Config{})

	collector := newCollector()
	err := sched.Run(context.Background(), []indexer.Submission{{
		URL: "https://made-by-ada.example",
		Meta: indexer.SubmissionMeta{
			AuthorName:    "Ada",
			AppName:       "Orrery",
			SocialPostURL: "https://social.example/p/1",
		},
	}}, collector.emit)
	require.NoError(t, err)

	snapshots := collector.snapshots()
	require.Len(t, snapshots, 1)
	require.Equal(t, "Ada", snapshots[0].Submission.AuthorName)
	require.Equal(t, "Orrery", snapshots[0].Submission.AppName)
}

func TestScheduler_Run_EmitPanicContained(t *testing.T) {
	t.Parallel()

	sched := newTestScheduler(t, &fakeExtractor{}, &fakeEnricher{}, Config{Concurrency: 1})

	var calls int
	emit := func(_ context.Context, snapshot *indexer.Snapshot) error {
		calls++
		if strings.Contains(snapshot.URL, "angry") {
			panic("sink blew up")
		}
		return nil
	}

	err := sched.RunURLs(context.Background(), []string{
		"https://angry.example",
		"https://calm.example",
	}, emit)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestScheduler_Run_EmitErrorDoesNotAbortBatch(t *testing.T) {
	t.Parallel()

	sched := newTestScheduler(t, &fakeExtractor{}, &fakeEnricher{}, Config{Concurrency: 1})

	var calls int
	emit := func(context.Context, *indexer.Snapshot) error {
		calls++
		return errors.New("downstream unavailable")
	}

	err := sched.RunURLs(context.Background(), []string{
		"https://one.example",
		"https://two.example",
		"https://three.example",
	}, emit)
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestScheduler_Run_CanceledContextStillEmitsErrorSnapshots(t *testing.T) {
	t.Parallel()

	sched := newTestScheduler(t, &fakeExtractor{}, &fakeEnricher{}, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	collector := newCollector()
	err := sched.RunURLs(ctx, []string{"https://late.example"}, collector.emit)
	require.NoError(t, err)

	snapshots := collector.snapshots()
	require.Len(t, snapshots, 1)
	require.Equal(t, indexer.StatusError, snapshots[0].Status)
}

func TestScheduler_Run_ExtractorStartFailureAbortsRun(t *testing.T) {
	t.Parallel()

	extractor := &fakeExtractor{startErr: errors.New("chrome not found")}
	sched := newTestScheduler(t, extractor, &fakeEnricher{}, Config{})

	collector := newCollector()
	err := sched.RunURLs(context.Background(), []string{"https://x.example"}, collector.emit)
	require.Error(t, err)
	require.Empty(t, collector.snapshots())
}

func TestScheduler_Run_FetchedAtIsRFC3339(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)}
	sched, err := New(&fakeExtractor{}, &fakeEnricher{}, clock, Config{}, zap.NewNop())
	require.NoError(t, err)

	collector := newCollector()
	require.NoError(t, sched.RunURLs(context.Background(), []string{"https://t.example"}, collector.emit))

	snapshots := collector.snapshots()
	require.Len(t, snapshots, 1)
	require.Equal(t, "2025-06-01T12:30:00Z", snapshots[0].FetchedAt)
	_, parseErr := time.Parse(time.RFC3339, snapshots[0].FetchedAt)
	require.NoError(t, parseErr)
}

func newTestScheduler(t *testing.T, extractor indexer.Extractor, enricher indexer.Enricher, cfg Config) *Scheduler {
	t.Helper()
	sched, err := New(extractor, enricher, &fakeClock{now: time.Unix(100, 0)}, cfg, zap.NewNop())
	require.NoError(t, err)
	return sched
}

type collector struct {
	mu    sync.Mutex
	snaps []indexer.Snapshot
}

func newCollector() *collector {
	return &collector{}
}

func (c *collector) emit(_ context.Context, snapshot *indexer.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snaps = append(c.snaps, *snapshot)
	return nil
}

func (c *collector) snapshots() []indexer.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]indexer.Snapshot, len(c.snaps))
	copy(out, c.snaps)
	return out
}

type fakeExtractor struct {
	started   atomicBool
	closed    atomicBool
	startErr  error
	errs      map[string]error
	onExtract func()
}

func (f *fakeExtractor) Start(context.Context) error {
	f.started.Store(1)
	return f.startErr
}

func (f *fakeExtractor) Extract(_ context.Context, url string) (indexer.ExtractedPage, error) {
	if f.onExtract != nil {
		f.onExtract()
	}
	if err, ok := f.errs[url]; ok {
		return indexer.ExtractedPage{}, err
	}
	desc := "a page about " + url
	return indexer.ExtractedPage{
		RawTitle:        "Title of " + url,
		MetaDescription: &desc,
		ExtractedText:   "body text for " + url,
		ScreenshotLarge: []byte{0xff, 0xd8},
		ScreenshotSmall: []byte{0xff, 0xd8},
	}, nil
}

func (f *fakeExtractor) Close() error {
	f.closed.Store(1)
	return nil
}

type fakeEnricher struct {
	errs map[string]error
}

func (f *fakeEnricher) Enrich(_ context.Context, req indexer.EnrichmentRequest) (indexer.EnrichmentResult, error) {
	if err, ok := f.errs[req.URL]; ok {
		return indexer.EnrichmentResult{}, err
	}
	return indexer.EnrichmentResult{
		Title:       "AI title for " + req.URL,
		Description: "AI description for " + req.URL,
	}, nil
}

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	return f.now
}

type atomicBool struct {
	mu sync.Mutex
	v  int
}

func (a *atomicBool) Store(v int) {
	a.mu.Lock()
	a.v = v
	a.mu.Unlock()
}

func (a *atomicBool) Load() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.v
}

type concurrencyGate struct {
	mu     sync.Mutex
	limit  int
	active int
	max    int
}

func (g *concurrencyGate) enter(t *testing.T) {
	g.mu.Lock()
	g.active++
	if g.active > g.max {
		g.max = g.active
	}
	if g.active > g.limit {
		g.mu.Unlock()
		t.Errorf("concurrency limit exceeded: %d active", g.active)
		return
	}
	g.mu.Unlock()
}

func (g *concurrencyGate) leave() {
	g.mu.Lock()
	g.active--
	g.mu.Unlock()
}

func (g *concurrencyGate) peak() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.max
}
