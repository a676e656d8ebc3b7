package strategy

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// probe is one CSS selector attempt. When attr is empty the element text is
// taken; otherwise the named attribute.
type probe struct {
	selector string
	attr     string
}

// probePrice tries each selector in priority order and returns the first
// non-empty price text.
func probePrice(doc *Document, probes []probe) (string, bool) {
	for _, p := range probes {
		sel := doc.Selection(p.selector).First()
		if sel.Length() == 0 {
			continue
		}
		var text string
		if p.attr != "" {
			text, _ = sel.Attr(p.attr)
		} else {
			text = sel.Text()
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, true
		}
	}
	return "", false
}

// structuredPrice scans embedded JSON-LD product markup for an offer price.
// Most platforms ship schema.org Product blocks even when the visible price
// is rendered client-side.
func structuredPrice(doc *Document) (string, bool) {
	var found string
	doc.Selection(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		if price, ok := priceFromJSON(data); ok {
			found = price
			return false
		}
		return true
	})
	return found, found != ""
}

// priceFromJSON recursively searches decoded JSON for a price-bearing field.
func priceFromJSON(data any) (string, bool) {
	switch v := data.(type) {
	case map[string]any:
		for _, field := range []string{"price", "lowPrice", "current_price", "sale_price"} {
			switch pv := v[field].(type) {
			case string:
				if strings.TrimSpace(pv) != "" {
					return pv, true
				}
			case float64:
				return strconv.FormatFloat(pv, 'f', -1, 64), true
			}
		}
		for _, value := range v {
			if price, ok := priceFromJSON(value); ok {
				return price, true
			}
		}
	case []any:
		for _, item := range v {
			if price, ok := priceFromJSON(item); ok {
				return price, true
			}
		}
	}
	return "", false
}

// currencyAmountPattern matches a currency-prefixed decimal anywhere in the
// document text, for the whole-document sweep after targeted probes fail.
var currencyAmountPattern = regexp.MustCompile(`(?:S\$|US\$|SGD\s?|USD\s?|\$)\s*\d[\d,]*(?:\.\d{1,2})?`)

// scanPrice sweeps the visible document text for the first currency-prefixed
// amount. Weaker than targeted probes: it can pick up a related-product
// price, so it runs last before the static fallback.
func scanPrice(doc *Document) (string, bool) {
	m := currencyAmountPattern.FindString(doc.Text())
	if m == "" {
		return "", false
	}
	return strings.TrimSpace(m), true
}
