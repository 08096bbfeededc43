// Package indexer defines core types shared across subsystems.
package indexer

import "unicode/utf8"

// Limits applied to stage outputs. Downstream stages never see text beyond
// these bounds.
const (
	MaxExtractedText  = 50000
	MaxPromptText     = 4000
	MaxTitleChars     = 100
	MaxDescriptionLen = 500
)

// Screenshot geometry shared by the extractor and every sink that derives
// object keys from it.
const (
	ViewportWidth  = 1500
	ViewportHeight = 844
	ThumbWidth     = 200
	ThumbHeight    = 112
	JPEGQuality    = 70
)

// Status marks a Snapshot as a success or a recorded failure.
type Status string

// Snapshot status values.
const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// SubmissionMeta carries the author-supplied metadata attached to a URL.
type SubmissionMeta struct {
	AuthorName    string `json:"authorName"`
	AppName       string `json:"appName"`
	SocialPostURL string `json:"socialPostUrl"`
}

// Submission is one URL plus metadata to be processed. URLs are validated and
// deduplicated by the ingestion side before they reach the scheduler.
type Submission struct {
	URL  string         `json:"url"`
	Meta SubmissionMeta `json:"meta"`
}

// ExtractedPage is the raw harvest of one page: text, metadata and two JPEG
// screenshots. Produced exactly once per submission and never mutated after.
type ExtractedPage struct {
	RawTitle        string
	MetaDescription *string
	ExtractedText   string
	ScreenshotLarge []byte
	ScreenshotSmall []byte
}

// EnrichmentResult is the AI-generated title/description pair. Both fields
// are truncated to their bounds before the result leaves the enrichment
// stage, regardless of what the provider returned.
type EnrichmentResult struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Truncated returns a copy with the title and description cut to their
// contract bounds. Applying it to an already-bounded result is a no-op.
func (r EnrichmentResult) Truncated() EnrichmentResult {
	return EnrichmentResult{
		Title:       TruncateRunes(r.Title, MaxTitleChars),
		Description: TruncateRunes(r.Description, MaxDescriptionLen),
	}
}

// Snapshot is the sole per-submission output of the pipeline. Exactly one is
// constructed per submission and handed to the emission sink exactly once.
// When Status is "error" only URL, Submission, Error and FetchedAt are
// meaningful; the remaining fields hold zero values.
type Snapshot struct {
	URL        string         `json:"url"`
	Submission SubmissionMeta `json:"submission"`

	RawTitle        string  `json:"rawTitle"`
	MetaDescription *string `json:"metaDescription"`
	ExtractedText   string  `json:"extractedText"`

	ScreenshotLarge []byte `json:"screenshotLarge"`
	ScreenshotSmall []byte `json:"screenshotSmall"`

	AITitle       string `json:"aiTitle"`
	AIDescription string `json:"aiDescription"`

	FetchedAt string `json:"fetchedAt"`
	Status    Status `json:"status"`
	Error     string `json:"error,omitempty"`
}

// AppRecord is the row handed to an AppStore when a snapshot is upserted.
type AppRecord struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	ImageID       string `json:"image_id,omitempty"`
	AuthorName    string `json:"author_name,omitempty"`
	AppName       string `json:"app_name,omitempty"`
	SocialPostURL string `json:"social_post_url,omitempty"`
}

// CompletionEvent is published after the sink finishes with a snapshot.
type CompletionEvent struct {
	URL       string `json:"url"`
	Status    Status `json:"status"`
	ImageID   string `json:"image_id,omitempty"`
	FetchedAt string `json:"fetched_at"`
	Error     string `json:"error,omitempty"`
}

// TruncateRunes cuts s to at most n runes, never splitting a rune.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := 0
	for i := range s {
		if runes == n {
			return s[:i]
		}
		runes++
	}
	return s
}
