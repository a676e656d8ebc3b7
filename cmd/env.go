package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/divemart/pricewatch/internal/aggregate"
	"github.com/divemart/pricewatch/internal/pricecache"
	"github.com/divemart/pricewatch/internal/resilience"
	"github.com/divemart/pricewatch/internal/resolver"
	"github.com/divemart/pricewatch/internal/strategy"
)

// env holds the long-lived service instances. Everything is constructed
// here once and passed by reference; there are no package-level singletons.
type env struct {
	aggregator *aggregate.Aggregator
	cache      *pricecache.Cache
	closers    []func() error
}

func (e *env) Close() {
	for _, c := range e.closers {
		_ = c()
	}
}

// initEnv builds the cache backend, resolver, strategy registry, and
// aggregator from config.
func initEnv(ctx context.Context) (*env, error) {
	e := &env{}

	backend, err := newBackend(ctx)
	if err != nil {
		return nil, err
	}
	e.cache = pricecache.New(backend, cfg.Store.StalenessWindow())
	e.closers = append(e.closers, e.cache.Close)

	res, err := newResolver()
	if err != nil {
		e.Close()
		return nil, err
	}
	if c, ok := res.(interface{ Close() error }); ok {
		e.closers = append(e.closers, c.Close)
	}

	fetcher := strategy.NewFetcher(
		time.Duration(cfg.Fetch.TimeoutSecs)*time.Second,
		strategy.WithPerHostRate(rate.Limit(cfg.Fetch.PerHostRPS), cfg.Fetch.PerHostBurst),
		strategy.WithRetry(resilience.RetryConfig{MaxAttempts: cfg.Fetch.RetryAttempts}),
	)

	e.aggregator = aggregate.New(
		strategy.DefaultRegistry(fetcher),
		res,
		e.cache,
		aggregate.Config{
			MaxConcurrent: cfg.Aggregate.MaxConcurrent,
			FetchTimeout:  time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			CallTimeout:   time.Duration(cfg.Aggregate.CallTimeoutSecs) * time.Second,
		},
	)

	return e, nil
}

func newBackend(ctx context.Context) (pricecache.Backend, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		b, err := pricecache.NewSQLite(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := b.Migrate(ctx); err != nil {
			_ = b.Close()
			return nil, err
		}
		return b, nil
	case "postgres":
		b, err := pricecache.NewPostgres(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := b.Migrate(ctx); err != nil {
			_ = b.Close()
			return nil, err
		}
		return b, nil
	case "memory":
		return pricecache.NewMemory(), nil
	default:
		return nil, eris.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
}

func newResolver() (resolver.Resolver, error) {
	switch cfg.Resolver.Mode {
	case "static":
		return resolver.LoadStatic(cfg.Resolver.TablePath)
	case "remote":
		return resolver.NewRemote(
			cfg.Resolver.BaseURL,
			time.Duration(cfg.Resolver.TimeoutSecs)*time.Second,
		), nil
	default:
		return nil, eris.Errorf("unknown resolver mode: %s", cfg.Resolver.Mode)
	}
}
