// Package enricher turns extracted page content into an AI title and
// description through exactly one of two interchangeable providers.
package enricher

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/showcaselabs/showcase-indexer/internal/enricher/anthropic"
	"github.com/showcaselabs/showcase-indexer/internal/enricher/openai"
	"github.com/showcaselabs/showcase-indexer/internal/indexer"
)

// Provider is the transport behind the enrichment stage: it takes the shared
// system instruction and a user prompt and returns the model's raw text.
type Provider interface {
	Complete(ctx context.Context, system string, user string) (string, error)
}

// Config selects and tunes the provider. Exactly one API key must be set.
type Config struct {
	OpenAIKey      string
	AnthropicKey   string
	OpenAIModel    string
	AnthropicModel string
	Temperature    float64
}

// Enricher implements indexer.Enricher over a single Provider.
type Enricher struct {
	provider Provider
	logger   *zap.Logger
}

// New wraps an already-constructed provider. Used by tests and by callers
// that build their own transport.
func New(provider Provider, logger *zap.Logger) (*Enricher, error) {
	if provider == nil {
		return nil, indexer.NewConfigError("enrichment provider is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{provider: provider, logger: logger}, nil
}

// NewFromConfig selects the provider from the configured credentials.
// Provider selection is static: missing both keys or supplying both is a
// configuration error raised here, before any batch starts.
func NewFromConfig(cfg Config, logger *zap.Logger) (*Enricher, error) {
	switch {
	case cfg.OpenAIKey != "" && cfg.AnthropicKey != "":
		return nil, indexer.NewConfigError("openai and anthropic credentials are mutually exclusive")
	case cfg.OpenAIKey != "":
		return New(openai.New(openai.Config{
			APIKey:      cfg.OpenAIKey,
			Model:       cfg.OpenAIModel,
			Temperature: cfg.Temperature,
		}), logger)
	case cfg.AnthropicKey != "":
		return New(anthropic.New(anthropic.Config{
			APIKey:      cfg.AnthropicKey,
			Model:       cfg.AnthropicModel,
			Temperature: cfg.Temperature,
		}), logger)
	default:
		return nil, indexer.NewConfigError("either an openai or an anthropic api key must be provided")
	}
}

// Enrich builds the provider-agnostic prompt, dispatches it, and validates
// the structured response. Output truncation to the contract bounds is
// applied unconditionally after parsing.
func (e *Enricher) Enrich(ctx context.Context, req indexer.EnrichmentRequest) (indexer.EnrichmentResult, error) {
	user := buildUserPrompt(req)

	raw, err := e.provider.Complete(ctx, systemPrompt, user)
	if err != nil {
		return indexer.EnrichmentResult{}, &indexer.EnrichmentError{URL: req.URL, Err: fmt.Errorf("provider call: %w", err)}
	}

	result, err := parseResult(raw)
	if err != nil {
		e.logger.Debug("unusable provider response", zap.String("url", req.URL), zap.Error(err))
		return indexer.EnrichmentResult{}, &indexer.EnrichmentError{URL: req.URL, Err: err}
	}
	return result, nil
}
