// Package ingest loads and deduplicates submissions before a batch runs.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/showcaselabs/showcase-indexer/internal/indexer"
)

// Expected column order in a submissions export. Only the app URL column is
// mandatory; everything else degrades to a placeholder.
const (
	colAuthorName = iota
	colAppName
	colSocialPostURL
	colAppURL
)

// LoadSubmissions parses a submissions CSV file. Rows with a missing or
// non-http(s) app URL are skipped, fragments are stripped, and rows are
// deduplicated by the cleaned URL. The first row is treated as a header.
func LoadSubmissions(path string) ([]indexer.Submission, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open submissions csv: %w", err)
	}
	defer f.Close()

	return ParseSubmissions(f)
}

// ParseSubmissions reads submission rows from r. Exported separately so
// callers can ingest from any source, not just a file on disk.
func ParseSubmissions(r io.Reader) ([]indexer.Submission, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse submissions csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{})
	var submissions []indexer.Submission
	for _, row := range records[1:] {
		sub, ok := submissionFromRow(row)
		if !ok {
			continue
		}
		if _, dup := seen[sub.URL]; dup {
			continue
		}
		seen[sub.URL] = struct{}{}
		submissions = append(submissions, sub)
	}
	return submissions, nil
}

func submissionFromRow(row []string) (indexer.Submission, bool) {
	field := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	rawURL := field(colAppURL)
	if rawURL == "" {
		return indexer.Submission{}, false
	}
	cleaned, err := indexer.CleanURL(rawURL)
	if err != nil {
		return indexer.Submission{}, false
	}

	author := field(colAuthorName)
	if author == "" {
		author = "Unknown"
	}
	app := field(colAppName)
	if app == "" {
		app = "Untitled"
	}

	return indexer.Submission{
		URL: cleaned,
		Meta: indexer.SubmissionMeta{
			AuthorName:    author,
			AppName:       app,
			SocialPostURL: field(colSocialPostURL),
		},
	}, true
}
