package enricher

import (
	"fmt"
	"strings"

	"github.com/showcaselabs/showcase-indexer/internal/indexer"
)

// systemPrompt is shared verbatim by both providers; only the transport and
// model differ. Swapping providers must change no other pipeline behavior.
const systemPrompt = `You are a metadata generator for a showcase gallery index.
Given a webpage's URL, title, meta description, and text content, generate:
1. A concise, descriptive title (max 100 characters)
2. A clear description (max 500 characters)

Return ONLY valid JSON with this exact structure:
{
  "title": "...",
  "description": "..."
}`

// buildUserPrompt renders the shared user-content template. The page text is
// capped a second time here: prompts carry at most the first 4,000
// characters of the already-capped extracted text.
func buildUserPrompt(req indexer.EnrichmentRequest) string {
	meta := "N/A"
	if req.MetaDescription != nil && *req.MetaDescription != "" {
		meta = *req.MetaDescription
	}
	content := indexer.TruncateRunes(req.ExtractedText, indexer.MaxPromptText)

	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\n", req.URL)
	fmt.Fprintf(&b, "Raw Title: %s\n", req.RawTitle)
	fmt.Fprintf(&b, "Meta Description: %s\n", meta)
	fmt.Fprintf(&b, "Page Content (truncated): %s\n\n", content)
	b.WriteString("Generate title and description:")
	return b.String()
}
