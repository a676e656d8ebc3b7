// Package normalize converts heterogeneous retail price text into decimals.
package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// ParseError reports price text that could not be normalized.
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("normalize: %s: %q", e.Reason, e.Raw)
}

// knownPrefixes are locale/currency markers stripped before numeric parsing,
// longest first so "US$" wins over "$".
var knownPrefixes = []string{"US$", "S$", "SGD", "USD", "$"}

// numericPattern captures the trailing best-effort numeric form after any
// unknown prefix: digits with optional thousands separators and an optional
// fractional part.
var numericPattern = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

var validAmount = regexp.MustCompile(`^\d+(?:\.\d{1,2})?$`)

// Parse converts raw price text ("$1,428.90", "S$299", "1234.05") into a
// non-negative decimal. Known currency prefixes and thousands separators are
// stripped; unknown prefixes are dropped best-effort by locating the numeric
// pattern. An amount with more than one decimal point, more than two
// fractional digits, or a leading minus fails. Parse never returns a default
// of zero on failure.
func Parse(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, &ParseError{Raw: raw, Reason: "empty price text"}
	}

	s = stripPrefixes(s)

	loc := numericPattern.FindStringIndex(s)
	if loc == nil {
		return decimal.Zero, &ParseError{Raw: raw, Reason: "no numeric pattern"}
	}
	m := s[loc[0]:loc[1]]

	// A price is never negative; a minus in front of the amount means the
	// text is not a price at all.
	if loc[0] > 0 && s[loc[0]-1] == '-' {
		return decimal.Zero, &ParseError{Raw: raw, Reason: "negative amount"}
	}

	// A second decimal point right after the match means the amount itself
	// is malformed ("1.2.3"), not an amount with a suffix.
	if loc[1] < len(s) && s[loc[1]] == '.' {
		return decimal.Zero, &ParseError{Raw: raw, Reason: "malformed amount"}
	}

	amount := strings.ReplaceAll(m, ",", "")
	if !validAmount.MatchString(amount) {
		return decimal.Zero, &ParseError{Raw: raw, Reason: "malformed amount"}
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, &ParseError{Raw: raw, Reason: "not a decimal"}
	}
	return d, nil
}

// Format renders a price the way the engine displays and re-parses it.
// Parse(Format(Parse(raw))) equals Parse(raw) for any raw that parses.
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// stripPrefixes removes known currency markers and ISO currency codes from
// the front of the text. It is deliberately conservative: only the fixed
// table and valid ISO 4217 codes are recognized.
func stripPrefixes(s string) string {
	for {
		s = strings.TrimSpace(s)
		stripped := false
		for _, p := range knownPrefixes {
			if strings.HasPrefix(s, p) {
				s = s[len(p):]
				stripped = true
				break
			}
		}
		if stripped {
			continue
		}
		if code := leadingISOCode(s); code != "" {
			s = s[len(code):]
			continue
		}
		return s
	}
}

// leadingISOCode returns a leading three-letter ISO 4217 currency code, or "".
func leadingISOCode(s string) string {
	if len(s) < 3 {
		return ""
	}
	head := s[:3]
	for _, r := range head {
		if r < 'A' || r > 'Z' {
			return ""
		}
	}
	// A fourth letter would make it a word, not a code.
	if len(s) > 3 && s[3] >= 'A' && s[3] <= 'Z' {
		return ""
	}
	if _, err := currency.ParseISO(head); err != nil {
		return ""
	}
	return head
}
