// Package strategy provides per-platform price extraction from retailer pages.
package strategy

import "context"

// Strategy recognizes and extracts raw price text from one retail platform.
type Strategy interface {
	// Platform returns the stable platform identifier used in logs.
	Platform() string

	// CanHandle reports whether this strategy claims the URL. It is a pure,
	// cheap predicate and performs no I/O.
	CanHandle(rawURL string) bool

	// Extract fetches the URL and returns the raw price text found by the
	// platform's heuristic chain. Failures surface as *ExtractionError.
	Extract(ctx context.Context, rawURL string) (string, error)
}
