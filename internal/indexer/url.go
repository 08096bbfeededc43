package indexer

import (
	"fmt"
	"net/url"
	"strings"
)

// CleanURL validates and normalizes a submitted URL: the scheme must be
// http or https, and any fragment is stripped (submission links often carry
// admin tokens in the fragment).
func CleanURL(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", fmt.Errorf("url is empty")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Scheme = scheme
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}
