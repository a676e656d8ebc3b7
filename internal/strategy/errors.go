package strategy

import (
	"errors"
	"fmt"
)

// Reason tags an extraction failure. The orchestrator treats every reason
// the same way; the tag exists for logs and metrics.
type Reason string

const (
	// ReasonNetwork covers fetch failures: timeouts, non-2xx responses,
	// blocked or unreachable pages.
	ReasonNetwork Reason = "network"
	// ReasonParse covers documents that were fetched but could not be read.
	ReasonParse Reason = "parse"
	// ReasonNotFound means every heuristic ran and none produced price text.
	ReasonNotFound Reason = "not_found"
)

// ExtractionError reports a failed extraction for one competitor URL.
type ExtractionError struct {
	Platform string
	URL      string
	Reason   Reason
	Err      error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("strategy %s: %s: %s: %v", e.Platform, e.Reason, e.URL, e.Err)
	}
	return fmt.Sprintf("strategy %s: %s: %s", e.Platform, e.Reason, e.URL)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func extractErr(platform, url string, reason Reason, err error) *ExtractionError {
	return &ExtractionError{Platform: platform, URL: url, Reason: reason, Err: err}
}

// ErrNoStrategy is returned by Registry.Resolve when no registered strategy
// claims the URL.
var ErrNoStrategy = errors.New("strategy: no registered strategy for url")
