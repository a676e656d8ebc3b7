// Package aggregate orchestrates competitor price aggregation: URL
// resolution, per-competitor extraction, normalization, and cache merge.
package aggregate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/divemart/pricewatch/internal/model"
	"github.com/divemart/pricewatch/internal/normalize"
	"github.com/divemart/pricewatch/internal/pricecache"
	"github.com/divemart/pricewatch/internal/resolver"
	"github.com/divemart/pricewatch/internal/strategy"
)

// Config bounds the fan-out of one aggregation call.
type Config struct {
	// MaxConcurrent caps simultaneous competitor fetches. Default: 4.
	MaxConcurrent int
	// FetchTimeout bounds each individual competitor fetch. Default: 10s.
	FetchTimeout time.Duration
	// CallTimeout bounds the whole call; competitors still pending when it
	// fires are abandoned and treated as failures. Default: 45s.
	CallTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 4
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 10 * time.Second
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 45 * time.Second
	}
	return c
}

// Aggregator is the long-lived aggregation service. Construct one at
// startup and share it; it holds no per-call state.
type Aggregator struct {
	registry *strategy.Registry
	resolver resolver.Resolver
	cache    *pricecache.Cache
	cfg      Config
}

// New creates an Aggregator.
func New(reg *strategy.Registry, res resolver.Resolver, cache *pricecache.Cache, cfg Config) *Aggregator {
	return &Aggregator{
		registry: reg,
		resolver: res,
		cache:    cache,
		cfg:      cfg.withDefaults(),
	}
}

// FetchCompetitorPrices aggregates current competitor prices for a product.
//
// Per-competitor failures (no strategy, extraction, normalization) never
// fail the call: the competitor falls back to its cached entry, demoted to
// IsLive=false, or is absent when no cached entry exists. The one fatal
// case is URL resolution failure, returned as a *resolver.Error in the
// chain: without URLs there is no work to do.
func (a *Aggregator) FetchCompetitorPrices(ctx context.Context, productID, productModel, brand string) (model.PriceSet, error) {
	log := zap.L().With(
		zap.String("call_id", uuid.NewString()),
		zap.String("product_id", productID),
	)

	urls, err := a.resolver.Resolve(ctx, productID, brand, productModel)
	if err != nil {
		var rerr *resolver.Error
		if !errors.As(err, &rerr) {
			err = resolver.NewError(productID, err)
		}
		log.Error("aggregate: url resolution failed", zap.Error(err))
		return nil, err
	}

	log.Info("aggregate: resolved competitor urls", zap.Int("competitors", len(urls)))

	callCtx, cancel := context.WithTimeout(ctx, a.cfg.CallTimeout)
	defer cancel()

	var (
		mu     sync.Mutex
		fresh  = model.PriceSet{}
		failed []string
	)
	recordFailure := func(competitor string, err error) {
		log.Warn("aggregate: competitor failed",
			zap.String("competitor", competitor),
			zap.Error(err),
		)
		mu.Lock()
		failed = append(failed, competitor)
		mu.Unlock()
	}

	g, gCtx := errgroup.WithContext(callCtx)
	g.SetLimit(a.cfg.MaxConcurrent)

	for competitor, rawURL := range urls {
		g.Go(func() error {
			cp, err := a.fetchOne(gCtx, competitor, rawURL)
			if err != nil {
				recordFailure(competitor, err)
				return nil
			}
			mu.Lock()
			fresh[competitor] = *cp
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	// Merge on the parent context: a fired call timeout must not also kill
	// the persistence of what did succeed.
	merged, err := a.cache.Merge(ctx, productID, fresh, failed)
	if err != nil {
		log.Error("aggregate: cache merge failed", zap.Error(err))
	}

	log.Info("aggregate: call complete",
		zap.Int("live", len(fresh)),
		zap.Int("failed", len(failed)),
		zap.Int("total", len(merged)),
	)
	return merged, nil
}

// LastFetchedPrices returns the cached result of the most recent completed
// aggregation for the product, or an empty set.
func (a *Aggregator) LastFetchedPrices(ctx context.Context, productID string) model.PriceSet {
	return a.cache.Read(ctx, productID)
}

// fetchOne runs the resolve → extract → normalize pipeline for a single
// competitor under its own timeout.
func (a *Aggregator) fetchOne(ctx context.Context, competitor, rawURL string) (*model.CompetitorPrice, error) {
	strat, err := a.registry.Resolve(rawURL)
	if err != nil {
		return nil, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, a.cfg.FetchTimeout)
	defer cancel()

	raw, err := strat.Extract(fetchCtx, rawURL)
	if err != nil {
		return nil, err
	}

	price, err := normalize.Parse(raw)
	if err != nil {
		return nil, err
	}

	return &model.CompetitorPrice{
		Competitor:  competitor,
		Price:       price,
		SourceURL:   rawURL,
		LastUpdated: time.Now().UTC(),
		IsLive:      true,
	}, nil
}
