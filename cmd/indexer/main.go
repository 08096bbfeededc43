// Package main wires together the showcase indexer binary.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	cloudpubsub "cloud.google.com/go/pubsub"
	cloudstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/showcaselabs/showcase-indexer/internal/api"
	"github.com/showcaselabs/showcase-indexer/internal/clock/system"
	"github.com/showcaselabs/showcase-indexer/internal/config"
	"github.com/showcaselabs/showcase-indexer/internal/enricher"
	chromedpextractor "github.com/showcaselabs/showcase-indexer/internal/extractor/chromedp"
	"github.com/showcaselabs/showcase-indexer/internal/hash/md5"
	"github.com/showcaselabs/showcase-indexer/internal/id/uuid"
	"github.com/showcaselabs/showcase-indexer/internal/indexer"
	"github.com/showcaselabs/showcase-indexer/internal/ingest"
	"github.com/showcaselabs/showcase-indexer/internal/logging"
	"github.com/showcaselabs/showcase-indexer/internal/metrics"
	pubsubpublisher "github.com/showcaselabs/showcase-indexer/internal/publisher/pubsub"
	"github.com/showcaselabs/showcase-indexer/internal/scheduler"
	"github.com/showcaselabs/showcase-indexer/internal/sink"
	gcsstorage "github.com/showcaselabs/showcase-indexer/internal/storage/gcs"
	memorystorage "github.com/showcaselabs/showcase-indexer/internal/storage/memory"
	s3storage "github.com/showcaselabs/showcase-indexer/internal/storage/s3"
	memorystore "github.com/showcaselabs/showcase-indexer/internal/store/memory"
	"github.com/showcaselabs/showcase-indexer/internal/store/postgres"
	rpcstore "github.com/showcaselabs/showcase-indexer/internal/store/rpc"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	csvPath := flag.String("csv", "", "Path to a submissions CSV to index")
	urlList := flag.String("urls", "", "Comma-separated URLs to index")
	serve := flag.Bool("serve", false, "Run the HTTP API instead of a one-shot batch")
	outPath := flag.String("out", "", "Write the produced snapshots as JSON to this file (\"-\" for stdout)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *csvPath, *urlList, *serve, *outPath); err != nil {
		logger.Error("indexer failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger, csvPath, urlList string, serve bool, outPath string) error {
	clock := system.New()
	hasher := md5.New()
	idGen := uuid.NewUUIDGenerator()

	extractor := chromedpextractor.New(chromedpextractor.Config{
		UserAgent:    cfg.Indexer.UserAgent,
		NavTimeout:   cfg.NavTimeout(),
		QuietTimeout: cfg.QuietTimeout(),
	}, logger)

	enrich, err := enricher.NewFromConfig(enricher.Config{
		OpenAIKey:      cfg.AI.OpenAIAPIKey,
		AnthropicKey:   cfg.AI.AnthropicAPIKey,
		OpenAIModel:    cfg.AI.OpenAIModel,
		AnthropicModel: cfg.AI.AnthropicModel,
		Temperature:    cfg.AI.Temperature,
	}, logger)
	if err != nil {
		return fmt.Errorf("build enricher: %w", err)
	}

	blobs, err := buildBlobStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build blob store: %w", err)
	}
	apps, closeApps, err := buildAppStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build app store: %w", err)
	}
	if closeApps != nil {
		defer closeApps()
	}

	var publisher indexer.Publisher
	if cfg.PubSub.ProjectID != "" && cfg.PubSub.TopicName != "" {
		client, err := cloudpubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return fmt.Errorf("pubsub client: %w", err)
		}
		defer func() {
			if closeErr := client.Close(); closeErr != nil {
				logger.Warn("pubsub client close failed", zap.Error(closeErr))
			}
		}()
		publisher = pubsubpublisher.New(client)
	}

	snapshotSink, err := sink.New(blobs, apps, publisher, hasher, sink.Config{Topic: cfg.PubSub.TopicName}, logger)
	if err != nil {
		return fmt.Errorf("build sink: %w", err)
	}

	sched, err := scheduler.New(extractor, enrich, clock, scheduler.Config{
		Concurrency: cfg.Indexer.Concurrency,
	}, logger)
	if err != nil {
		return fmt.Errorf("build scheduler: %w", err)
	}

	if serve {
		batches := memorystore.NewBatchStore()
		server := api.NewServer(batches, sched, snapshotSink.Emit, idGen, clock, logger)
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logger.Info("serving HTTP API", zap.String("addr", addr))
		return server.Serve(ctx, addr)
	}

	submissions, err := loadBatch(csvPath, urlList)
	if err != nil {
		return err
	}
	if len(submissions) == 0 {
		return indexer.NewConfigError("nothing to index: pass -csv, -urls, or -serve")
	}

	emit, results := collectingEmit(snapshotSink.Emit, outPath != "")
	if err := sched.Run(ctx, submissions, emit); err != nil {
		return err
	}
	if outPath != "" {
		return writeResults(outPath, results())
	}
	return nil
}

func loadBatch(csvPath, urlList string) ([]indexer.Submission, error) {
	if csvPath != "" {
		return ingest.LoadSubmissions(csvPath)
	}
	var submissions []indexer.Submission
	for _, raw := range strings.Split(urlList, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		cleaned, err := indexer.CleanURL(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid url %q: %w", raw, err)
		}
		submissions = append(submissions, indexer.Submission{URL: cleaned})
	}
	return submissions, nil
}

// collectingEmit wraps the sink so that a one-shot run can also report its
// snapshots to the caller. Screenshot bytes are dropped from the report.
func collectingEmit(next indexer.EmitFunc, collect bool) (indexer.EmitFunc, func() []indexer.Snapshot) {
	var mu sync.Mutex
	var snapshots []indexer.Snapshot
	emit := func(ctx context.Context, snapshot *indexer.Snapshot) error {
		if collect {
			trimmed := *snapshot
			trimmed.ScreenshotLarge = nil
			trimmed.ScreenshotSmall = nil
			mu.Lock()
			snapshots = append(snapshots, trimmed)
			mu.Unlock()
		}
		return next(ctx, snapshot)
	}
	return emit, func() []indexer.Snapshot {
		mu.Lock()
		defer mu.Unlock()
		return snapshots
	}
}

func writeResults(path string, snapshots []indexer.Snapshot) error {
	data, err := json.MarshalIndent(snapshots, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshots: %w", err)
	}
	if path == "-" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func buildBlobStore(ctx context.Context, cfg config.Config) (indexer.BlobStore, error) {
	switch cfg.Storage.Provider {
	case "none":
		return nil, nil
	case "memory":
		return memorystorage.NewBlobStore(), nil
	case "s3":
		return s3storage.New(ctx, s3storage.Config{
			Bucket:          cfg.Storage.Bucket,
			Prefix:          cfg.Storage.Prefix,
			Endpoint:        cfg.Storage.Endpoint,
			Region:          cfg.Storage.Region,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			PublicURL:       cfg.Storage.PublicURL,
		})
	case "gcs":
		client, err := cloudstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client: %w", err)
		}
		return gcsstorage.New(client, gcsstorage.Config{
			Bucket: cfg.Storage.Bucket,
			Prefix: cfg.Storage.Prefix,
		})
	default:
		return nil, indexer.NewConfigError("unknown storage.provider %q", cfg.Storage.Provider)
	}
}

func buildAppStore(ctx context.Context, cfg config.Config) (indexer.AppStore, func(), error) {
	switch cfg.Store.Provider {
	case "none":
		return nil, nil, nil
	case "memory":
		return memorystore.NewAppStore(), nil, nil
	case "rpc":
		store, err := rpcstore.New(rpcstore.Config{
			Endpoint: cfg.Store.Endpoint,
			APIKey:   cfg.Store.APIKey,
		})
		return store, nil, err
	case "postgres":
		store, err := postgres.NewAppStore(ctx, postgres.AppStoreConfig{
			DSN:   cfg.Store.DSN,
			Table: cfg.Store.Table,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, indexer.NewConfigError("unknown store.provider %q", cfg.Store.Provider)
	}
}
