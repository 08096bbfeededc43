// Package chromedp implements the extraction stage with headless Chrome.
package chromedp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/showcaselabs/showcase-indexer/internal/indexer"
)

// Config controls the behavior of the headless extractor.
type Config struct {
	UserAgent    string
	NavTimeout   time.Duration
	QuietTimeout time.Duration
}

// Extractor implements indexer.Extractor using chromedp and headless Chrome.
// One browser process is shared by all active runs; each Extract opens and
// closes its own tab. Start and Close are reference counted so overlapping
// batches share the engine instead of colliding on it.
type Extractor struct {
	cfg    Config
	logger *zap.Logger

	mu         sync.Mutex
	refs       int
	browserCtx context.Context
	shutdown   func()

	newBrowser func(ctx context.Context) (context.Context, func(), error)
}

// New creates a headless extractor. The browser is not launched until Start.
func New(cfg Config, logger *zap.Logger) *Extractor {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 30 * time.Second
	}
	if cfg.QuietTimeout <= 0 {
		cfg.QuietTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Extractor{
		cfg:    cfg,
		logger: logger,
	}
	e.newBrowser = e.launch
	return e
}

// launch spawns the browser process eagerly so a broken Chrome install
// fails the run before any submission is dispatched.
func (e *Extractor) launch(ctx context.Context) (context.Context, func(), error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if e.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(e.cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, nil, fmt.Errorf("launch browser: %w", err)
	}
	return browserCtx, func() {
		browserCancel()
		allocCancel()
	}, nil
}

// Start acquires the shared browser, launching it on first use. Each Start
// must be paired with one Close. The engine inherits the first caller's
// context, so runs that may overlap should start from a long-lived one.
func (e *Extractor) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.refs > 0 {
		e.refs++
		return nil
	}

	browserCtx, shutdown, err := e.newBrowser(ctx)
	if err != nil {
		return err
	}
	e.browserCtx = browserCtx
	e.shutdown = shutdown
	e.refs = 1
	return nil
}

// Close releases one Start. The browser is torn down when the last active
// run finishes; calling Close without a matching Start is a no-op.
func (e *Extractor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.refs == 0 {
		return nil
	}
	e.refs--
	if e.refs > 0 {
		return nil
	}
	if e.shutdown != nil {
		e.shutdown()
	}
	e.browserCtx = nil
	e.shutdown = nil
	return nil
}

// Extract navigates to url in a fresh tab and harvests title, meta
// description, body text and both screenshot sizes. Navigation failures and
// timeouts fail the whole stage; the individual harvest steps are
// best-effort and fall back to their zero values.
func (e *Extractor) Extract(ctx context.Context, url string) (indexer.ExtractedPage, error) {
	e.mu.Lock()
	browserCtx := e.browserCtx
	e.mu.Unlock()
	if browserCtx == nil {
		return indexer.ExtractedPage{}, &indexer.ExtractionError{URL: url, Err: fmt.Errorf("extractor not started")}
	}

	// The tab context is canceled on every exit path so handles cannot leak
	// under concurrent load.
	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	defer tabCancel()

	// Propagate caller cancellation into the tab.
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	quiet := newQuietTracker()
	chromedp.ListenTarget(tabCtx, quiet.handle)

	navCtx, navCancel := context.WithTimeout(tabCtx, e.cfg.NavTimeout)
	defer navCancel()

	err := chromedp.Run(navCtx,
		network.Enable(),
		chromedp.EmulateViewport(indexer.ViewportWidth, indexer.ViewportHeight),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return indexer.ExtractedPage{}, &indexer.ExtractionError{URL: url, Err: fmt.Errorf("navigate: %w", err)}
	}

	// Soft wait for the network to settle. Expiry is a degradation, not a
	// failure: single-page apps often never go fully idle.
	if !quiet.wait(tabCtx, e.cfg.QuietTimeout) {
		e.logger.Debug("network quiet wait expired", zap.String("url", url))
	}

	p := indexer.ExtractedPage{
		RawTitle:        e.harvestTitle(tabCtx, url),
		MetaDescription: e.harvestMetaDescription(tabCtx, url),
		ExtractedText:   e.harvestText(tabCtx, url),
	}

	large, err := e.captureScreenshot(tabCtx)
	if err != nil {
		return indexer.ExtractedPage{}, &indexer.ExtractionError{URL: url, Err: fmt.Errorf("screenshot: %w", err)}
	}
	small, err := thumbnail(large)
	if err != nil {
		return indexer.ExtractedPage{}, &indexer.ExtractionError{URL: url, Err: fmt.Errorf("thumbnail: %w", err)}
	}
	p.ScreenshotLarge = large
	p.ScreenshotSmall = small

	return p, nil
}

func (e *Extractor) harvestTitle(ctx context.Context, url string) string {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var title string
	if err := chromedp.Run(opCtx, chromedp.Title(&title)); err != nil {
		e.logger.Debug("title extraction failed", zap.String("url", url), zap.Error(err))
		return ""
	}
	return title
}

func (e *Extractor) harvestMetaDescription(ctx context.Context, url string) *string {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	const js = `(() => {
		const m = document.querySelector('meta[name="description"]');
		return m ? m.getAttribute('content') : null;
	})()`
	var desc *string
	if err := chromedp.Run(opCtx, chromedp.Evaluate(js, &desc)); err != nil {
		e.logger.Debug("meta description extraction failed", zap.String("url", url), zap.Error(err))
		return nil
	}
	return desc
}

func (e *Extractor) harvestText(ctx context.Context, url string) string {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var text string
	if err := chromedp.Run(opCtx, chromedp.Evaluate(`document.body.innerText`, &text)); err != nil {
		e.logger.Debug("text extraction failed", zap.String("url", url), zap.Error(err))
		return ""
	}
	return capText(text)
}

// capText bounds harvested body text to the stored limit, cutting at a rune
// boundary. Pages under the limit pass through untouched.
func capText(text string) string {
	return indexer.TruncateRunes(text, indexer.MaxExtractedText)
}

func (e *Extractor) captureScreenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	action := chromedp.ActionFunc(func(ctx context.Context) error {
		// Pin the metrics again right before capture in case the page
		// resized itself during load.
		if err := emulation.SetDeviceMetricsOverride(
			indexer.ViewportWidth, indexer.ViewportHeight, 1, false,
		).Do(ctx); err != nil {
			return err
		}
		shot, err := page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatJpeg).
			WithQuality(indexer.JPEGQuality).
			Do(ctx)
		if err != nil {
			return err
		}
		buf = shot
		return nil
	})
	if err := chromedp.Run(ctx, action); err != nil {
		return nil, err
	}
	return buf, nil
}

// quietTracker counts in-flight network requests so the extractor can wait
// for a short lull after the initial load signal.
type quietTracker struct {
	mu       sync.Mutex
	inflight map[network.RequestID]struct{}
	lastDone time.Time
}

func newQuietTracker() *quietTracker {
	return &quietTracker{
		inflight: make(map[network.RequestID]struct{}),
		lastDone: time.Now(),
	}
}

func (q *quietTracker) handle(ev any) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		q.mu.Lock()
		q.inflight[e.RequestID] = struct{}{}
		q.mu.Unlock()
	case *network.EventLoadingFinished:
		q.done(e.RequestID)
	case *network.EventLoadingFailed:
		q.done(e.RequestID)
	}
}

func (q *quietTracker) done(id network.RequestID) {
	q.mu.Lock()
	delete(q.inflight, id)
	q.lastDone = time.Now()
	q.mu.Unlock()
}

func (q *quietTracker) settled(lull time.Duration) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inflight) == 0 && time.Since(q.lastDone) >= lull
}

// wait blocks until the network has been idle for a short lull, the timeout
// expires, or ctx finishes. It returns false when the wait timed out.
func (q *quietTracker) wait(ctx context.Context, timeout time.Duration) bool {
	const lull = 200 * time.Millisecond
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return false
		case <-tick.C:
			if q.settled(lull) {
				return true
			}
		}
	}
}
