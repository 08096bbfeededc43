package enricher

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/showcaselabs/showcase-indexer/internal/indexer"
)

// parseResult treats the provider output as untyped JSON first, then
// validates the required fields before constructing the typed result.
// Missing or empty fields fail explicitly rather than defaulting.
func parseResult(raw string) (indexer.EnrichmentResult, error) {
	cleaned := cleanJSON([]byte(raw))
	if len(cleaned) == 0 {
		return indexer.EnrichmentResult{}, fmt.Errorf("empty provider response")
	}

	var payload map[string]any
	if err := json.Unmarshal(cleaned, &payload); err != nil {
		return indexer.EnrichmentResult{}, fmt.Errorf("parse provider response: %w", err)
	}

	title, ok := payload["title"].(string)
	if !ok || title == "" {
		return indexer.EnrichmentResult{}, fmt.Errorf("provider response missing title")
	}
	description, ok := payload["description"].(string)
	if !ok || description == "" {
		return indexer.EnrichmentResult{}, fmt.Errorf("provider response missing description")
	}

	return indexer.EnrichmentResult{
		Title:       title,
		Description: description,
	}.Truncated(), nil
}

// cleanJSON strips a markdown code fence if the model wrapped its answer in
// one. Anthropic in particular does this despite the prompt.
func cleanJSON(data []byte) []byte {
	s := bytes.TrimSpace(data)
	if len(s) == 0 {
		return s
	}
	if bytes.HasPrefix(s, []byte("```")) {
		if idx := bytes.IndexByte(s, '\n'); idx >= 0 {
			s = s[idx+1:]
		}
		if bytes.HasSuffix(s, []byte("```")) {
			s = s[:len(s)-3]
		}
		s = bytes.TrimSpace(s)
	}
	return s
}
