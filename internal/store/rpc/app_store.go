// Package rpc upserts app records against a remote gallery service over
// HTTP JSON.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/showcaselabs/showcase-indexer/internal/indexer"
)

// Config holds the remote endpoint settings.
type Config struct {
	Endpoint string
	APIKey   string
}

// AppStore implements indexer.AppStore over an upsert_app-style endpoint.
// No timeout is imposed on the upsert call; cancellation flows through the
// caller's context.
type AppStore struct {
	cfg        Config
	httpClient *http.Client
}

// New builds an AppStore from configuration.
func New(cfg Config) (*AppStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("rpc endpoint is required")
	}
	return &AppStore{
		cfg:        cfg,
		httpClient: &http.Client{},
	}, nil
}

// UpsertApp posts the record to the remote endpoint.
func (s *AppStore) UpsertApp(ctx context.Context, record indexer.AppRecord) error {
	if record.ID == "" {
		return fmt.Errorf("app record id is required")
	}
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal app record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upsert app %s: %w", record.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("upsert app %s: %s: %s", record.ID, resp.Status, strings.TrimSpace(string(detail)))
	}
	return nil
}
