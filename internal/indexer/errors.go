package indexer

import "fmt"

// ConfigError reports an invalid configuration detected at construction.
// It is the only error class that should ever reach the caller of a batch
// run; everything per-submission is folded into an error Snapshot instead.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "configuration: " + e.Reason
}

// NewConfigError builds a ConfigError with a formatted reason.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// ExtractionError marks a hard failure of the extraction stage for one URL.
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// EnrichmentError marks a failure of the enrichment stage: a provider call
// failing, an unparseable response, or required fields missing from it.
type EnrichmentError struct {
	URL string
	Err error
}

func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("enrich %s: %v", e.URL, e.Err)
}

func (e *EnrichmentError) Unwrap() error {
	return e.Err
}

// EmissionError marks a sink-internal failure. Sinks catch and log these
// themselves; the type exists so sink implementations can classify what they
// swallow.
type EmissionError struct {
	URL string
	Err error
}

func (e *EmissionError) Error() string {
	return fmt.Sprintf("emit %s: %v", e.URL, e.Err)
}

func (e *EmissionError) Unwrap() error {
	return e.Err
}
