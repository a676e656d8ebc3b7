// Package model holds the shared data types for competitor price aggregation.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CompetitorPrice is one competitor's price for a product.
//
// Price is always non-negative: a price that cannot be parsed into a valid
// decimal is an extraction failure, never a zero-price entry.
type CompetitorPrice struct {
	Competitor  string          `json:"competitor"`
	Price       decimal.Decimal `json:"price"`
	SourceURL   string          `json:"source_url"`
	LastUpdated time.Time       `json:"last_updated"`

	// IsLive is true only when the value came from a fetch performed during
	// the current aggregation call. Cache-retained values carry false.
	IsLive bool `json:"is_live"`
}

// PriceSet maps competitor name to its price entry for one product.
// Keys are unique; iteration order carries no meaning.
type PriceSet map[string]CompetitorPrice

// Clone returns a shallow copy. A nil set clones to an empty set.
func (ps PriceSet) Clone() PriceSet {
	out := make(PriceSet, len(ps))
	for k, v := range ps {
		out[k] = v
	}
	return out
}

// Competitors returns the competitor names present in the set.
func (ps PriceSet) Competitors() []string {
	names := make([]string, 0, len(ps))
	for k := range ps {
		names = append(names, k)
	}
	return names
}

// Product identifies the product whose competitor prices are aggregated.
type Product struct {
	ID    string `json:"id"`
	Brand string `json:"brand"`
	Model string `json:"model"`
}
