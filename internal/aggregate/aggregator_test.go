package aggregate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divemart/pricewatch/internal/model"
	"github.com/divemart/pricewatch/internal/pricecache"
	"github.com/divemart/pricewatch/internal/resolver"
	"github.com/divemart/pricewatch/internal/strategy"
)

// fakeStrategy serves canned raw price text keyed by URL substring, or an
// error when the text is empty.
type fakeStrategy struct {
	name    string
	marker  string
	raw     map[string]string
	failErr error
}

func (f *fakeStrategy) Platform() string             { return f.name }
func (f *fakeStrategy) CanHandle(rawURL string) bool { return strings.Contains(rawURL, f.marker) }
func (f *fakeStrategy) Extract(_ context.Context, rawURL string) (string, error) {
	for frag, text := range f.raw {
		if strings.Contains(rawURL, frag) {
			return text, nil
		}
	}
	if f.failErr != nil {
		return "", f.failErr
	}
	return "", errors.New("no canned response")
}

type fixture struct {
	agg   *Aggregator
	cache *pricecache.Cache
}

func newFixture(t *testing.T, res resolver.Resolver, strategies ...strategy.Strategy) *fixture {
	t.Helper()
	cache := pricecache.New(pricecache.NewMemory(), 48*time.Hour)
	t.Cleanup(func() { _ = cache.Close() })
	agg := New(strategy.NewRegistry(strategies...), res, cache, Config{
		MaxConcurrent: 4,
		FetchTimeout:  time.Second,
		CallTimeout:   5 * time.Second,
	})
	return &fixture{agg: agg, cache: cache}
}

func scubaURLs() map[string]string {
	return map[string]string{
		"Lazada":         "https://www.lazada.sg/products/scubapro-mk19-evo",
		"Shopee":         "https://shopee.sg/scubapro-mk19-evo-bt2-i.123.456",
		"ScubaWarehouse": "https://scubawarehouse.com.sg/products/mk19-evo-bt2",
	}
}

func scubaStrategies() []strategy.Strategy {
	return []strategy.Strategy{
		&fakeStrategy{name: "lazada", marker: "lazada.", raw: map[string]string{"mk19": "$1,428.90"}},
		&fakeStrategy{name: "shopee", marker: "shopee.", raw: map[string]string{"mk19": "$1,234.05"}},
		&fakeStrategy{name: "scubawarehouse", marker: "scubawarehouse.com", raw: map[string]string{"mk19": "1363.95"}},
	}
}

func TestFetchCompetitorPrices_AllSucceed(t *testing.T) {
	fx := newFixture(t, resolver.NewStatic(map[string]map[string]string{"1": scubaURLs()}), scubaStrategies()...)

	got, err := fx.agg.FetchCompetitorPrices(context.Background(), "1", "MK19 EVO", "ScubaPro")
	require.NoError(t, err)
	require.Len(t, got, 3)

	want := map[string]string{
		"Lazada":         "1428.90",
		"Shopee":         "1234.05",
		"ScubaWarehouse": "1363.95",
	}
	for name, price := range want {
		cp, ok := got[name]
		require.True(t, ok, "missing competitor %s", name)
		assert.True(t, cp.Price.Equal(decimal.RequireFromString(price)),
			"%s: got %s want %s", name, cp.Price, price)
		assert.True(t, cp.IsLive)
		assert.Equal(t, name, cp.Competitor)
		assert.Equal(t, scubaURLs()[name], cp.SourceURL)
		assert.False(t, cp.LastUpdated.IsZero())
	}
}

func TestFetchCompetitorPrices_FailureWithoutCacheIsAbsent(t *testing.T) {
	strategies := []strategy.Strategy{
		&fakeStrategy{name: "lazada", marker: "lazada.", raw: map[string]string{"mk19": "$1,428.90"}},
		&fakeStrategy{name: "shopee", marker: "shopee.", failErr: errors.New("blocked")},
	}
	urls := map[string]string{
		"Lazada": "https://www.lazada.sg/products/scubapro-mk19-evo",
		"Shopee": "https://shopee.sg/scubapro-mk19-evo-i.1.2",
	}
	fx := newFixture(t, resolver.NewStatic(map[string]map[string]string{"1": urls}), strategies...)

	got, err := fx.agg.FetchCompetitorPrices(context.Background(), "1", "MK19 EVO", "ScubaPro")
	require.NoError(t, err, "per-competitor failures never fail the call")
	require.Len(t, got, 1)
	assert.Contains(t, got, "Lazada")
	assert.NotContains(t, got, "Shopee")
}

func TestFetchCompetitorPrices_FailureFallsBackToCache(t *testing.T) {
	strategies := []strategy.Strategy{
		&fakeStrategy{name: "lazada", marker: "lazada.", raw: map[string]string{"mk19": "$1,428.90"}},
		&fakeStrategy{name: "shopee", marker: "shopee.", failErr: errors.New("js shell, nothing extracted")},
	}
	urls := map[string]string{
		"Lazada": "https://www.lazada.sg/products/scubapro-mk19-evo",
		"Shopee": "https://shopee.sg/scubapro-mk19-evo-i.1.2",
	}
	fx := newFixture(t, resolver.NewStatic(map[string]map[string]string{"1": urls}), strategies...)

	// Seed a prior successful Shopee result.
	seeded := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	_, err := fx.cache.Merge(context.Background(), "1", model.PriceSet{
		"Shopee": {
			Competitor:  "Shopee",
			Price:       decimal.RequireFromString("1234.05"),
			SourceURL:   urls["Shopee"],
			LastUpdated: seeded,
			IsLive:      true,
		},
	}, nil)
	require.NoError(t, err)

	got, err := fx.agg.FetchCompetitorPrices(context.Background(), "1", "MK19 EVO", "ScubaPro")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.True(t, got["Lazada"].IsLive)

	shopee := got["Shopee"]
	assert.False(t, shopee.IsLive, "cached fallback must be demoted")
	assert.Equal(t, seeded, shopee.LastUpdated, "fallback keeps its original timestamp")
	assert.True(t, shopee.Price.Equal(decimal.RequireFromString("1234.05")))
}

func TestFetchCompetitorPrices_UnparseablePriceIsFailure(t *testing.T) {
	strategies := []strategy.Strategy{
		&fakeStrategy{name: "lazada", marker: "lazada.", raw: map[string]string{"mk19": "Out of stock"}},
	}
	urls := map[string]string{"Lazada": "https://www.lazada.sg/products/scubapro-mk19-evo"}
	fx := newFixture(t, resolver.NewStatic(map[string]map[string]string{"1": urls}), strategies...)

	got, err := fx.agg.FetchCompetitorPrices(context.Background(), "1", "MK19 EVO", "ScubaPro")
	require.NoError(t, err)
	assert.Empty(t, got, "garbage price text must not become an entry")
}

func TestFetchCompetitorPrices_NoStrategyForURL(t *testing.T) {
	urls := map[string]string{"Carousell": "https://www.carousell.sg/p/mk19-123"}
	fx := newFixture(t, resolver.NewStatic(map[string]map[string]string{"1": urls}), scubaStrategies()...)

	got, err := fx.agg.FetchCompetitorPrices(context.Background(), "1", "MK19 EVO", "ScubaPro")
	require.NoError(t, err, "an unclaimed url is a per-competitor failure, not a call failure")
	assert.Empty(t, got)
}

func TestFetchCompetitorPrices_ResolverFailureIsFatal(t *testing.T) {
	res := resolver.Func(func(_ context.Context, productID, _, _ string) (map[string]string, error) {
		return nil, resolver.NewError(productID, errors.New("mapping service down"))
	})
	fx := newFixture(t, res, scubaStrategies()...)

	_, err := fx.agg.FetchCompetitorPrices(context.Background(), "1", "MK19 EVO", "ScubaPro")
	require.Error(t, err)

	var rerr *resolver.Error
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "1", rerr.ProductID)

	// Nothing was merged for the product.
	assert.Empty(t, fx.agg.LastFetchedPrices(context.Background(), "1"))
}

func TestFetchCompetitorPrices_BareResolverErrorGetsWrapped(t *testing.T) {
	res := resolver.Func(func(context.Context, string, string, string) (map[string]string, error) {
		return nil, errors.New("boom")
	})
	fx := newFixture(t, res, scubaStrategies()...)

	_, err := fx.agg.FetchCompetitorPrices(context.Background(), "1", "", "")
	require.Error(t, err)

	var rerr *resolver.Error
	assert.True(t, errors.As(err, &rerr))
}

func TestFetchCompetitorPrices_EmptyResolutionIsNotAnError(t *testing.T) {
	fx := newFixture(t, resolver.NewStatic(nil), scubaStrategies()...)

	got, err := fx.agg.FetchCompetitorPrices(context.Background(), "unknown", "", "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFetchCompetitorPrices_SuccessiveCallsUnion(t *testing.T) {
	fx := newFixture(t, resolver.NewStatic(map[string]map[string]string{"1": scubaURLs()}), scubaStrategies()...)
	ctx := context.Background()

	first, err := fx.agg.FetchCompetitorPrices(ctx, "1", "MK19 EVO", "ScubaPro")
	require.NoError(t, err)
	require.Len(t, first, 3)

	// A later deployment drops Amazon from strategies but the cache keeps
	// growing monotonically: re-running the same call never shrinks the set.
	second, err := fx.agg.FetchCompetitorPrices(ctx, "1", "MK19 EVO", "ScubaPro")
	require.NoError(t, err)
	assert.Len(t, second, 3)
}

func TestLastFetchedPrices_ReturnsPriorCallResult(t *testing.T) {
	fx := newFixture(t, resolver.NewStatic(map[string]map[string]string{"1": scubaURLs()}), scubaStrategies()...)
	ctx := context.Background()

	merged, err := fx.agg.FetchCompetitorPrices(ctx, "1", "MK19 EVO", "ScubaPro")
	require.NoError(t, err)

	cached := fx.agg.LastFetchedPrices(ctx, "1")
	require.Len(t, cached, len(merged))
	for name, cp := range merged {
		assert.True(t, cached[name].Price.Equal(cp.Price), "competitor %s", name)
	}
}

// hangingStrategy blocks until its context is cancelled.
type hangingStrategy struct {
	name   string
	marker string
}

func (h *hangingStrategy) Platform() string             { return h.name }
func (h *hangingStrategy) CanHandle(rawURL string) bool { return strings.Contains(rawURL, h.marker) }
func (h *hangingStrategy) Extract(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestFetchCompetitorPrices_CallTimeoutAbandonsPending(t *testing.T) {
	urls := map[string]string{
		"Lazada": "https://www.lazada.sg/products/scubapro-mk19-evo",
		"Shopee": "https://shopee.sg/scubapro-mk19-evo-i.1.2",
	}
	cache := pricecache.New(pricecache.NewMemory(), 0)
	t.Cleanup(func() { _ = cache.Close() })

	agg := New(
		strategy.NewRegistry(
			&fakeStrategy{name: "lazada", marker: "lazada.", raw: map[string]string{"mk19": "$1,428.90"}},
			&hangingStrategy{name: "shopee", marker: "shopee."},
		),
		resolver.NewStatic(map[string]map[string]string{"1": urls}),
		cache,
		Config{
			MaxConcurrent: 4,
			FetchTimeout:  5 * time.Second,
			CallTimeout:   200 * time.Millisecond,
		},
	)

	start := time.Now()
	got, err := agg.FetchCompetitorPrices(context.Background(), "1", "MK19 EVO", "ScubaPro")
	elapsed := time.Since(start)

	require.NoError(t, err, "an abandoned competitor is a failure, not a call failure")
	assert.Less(t, elapsed, 2*time.Second, "the call must return once the call timeout fires")

	require.Len(t, got, 1)
	assert.Contains(t, got, "Lazada")
	assert.True(t, got["Lazada"].IsLive)
	assert.NotContains(t, got, "Shopee", "no prior cache entry exists for the hung competitor")
}

func TestFetchCompetitorPrices_CallTimeoutFallsBackToCache(t *testing.T) {
	urls := map[string]string{
		"Shopee": "https://shopee.sg/scubapro-mk19-evo-i.1.2",
	}
	cache := pricecache.New(pricecache.NewMemory(), 0)
	t.Cleanup(func() { _ = cache.Close() })

	seeded := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	_, err := cache.Merge(context.Background(), "1", model.PriceSet{
		"Shopee": {
			Competitor:  "Shopee",
			Price:       decimal.RequireFromString("1234.05"),
			SourceURL:   urls["Shopee"],
			LastUpdated: seeded,
			IsLive:      true,
		},
	}, nil)
	require.NoError(t, err)

	agg := New(
		strategy.NewRegistry(&hangingStrategy{name: "shopee", marker: "shopee."}),
		resolver.NewStatic(map[string]map[string]string{"1": urls}),
		cache,
		Config{
			MaxConcurrent: 4,
			FetchTimeout:  5 * time.Second,
			CallTimeout:   200 * time.Millisecond,
		},
	)

	got, err := agg.FetchCompetitorPrices(context.Background(), "1", "MK19 EVO", "ScubaPro")
	require.NoError(t, err)

	require.Len(t, got, 1)
	shopee := got["Shopee"]
	assert.False(t, shopee.IsLive, "the abandoned competitor serves its cached entry demoted")
	assert.Equal(t, seeded, shopee.LastUpdated)
}

func TestLastFetchedPrices_UnknownProductIsEmpty(t *testing.T) {
	fx := newFixture(t, resolver.NewStatic(nil), scubaStrategies()...)

	got := fx.agg.LastFetchedPrices(context.Background(), "never-fetched")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
