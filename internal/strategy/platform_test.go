package strategy

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func servePage(t *testing.T, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCanHandle_HostnameMarkers(t *testing.T) {
	f := testFetcher()
	cases := []struct {
		name     string
		strategy Strategy
		url      string
		want     bool
	}{
		{"lazada sg", NewLazada(f), "https://www.lazada.sg/products/scubapro-mk19", true},
		{"lazada my", NewLazada(f), "https://www.lazada.com.my/products/x", true},
		{"lazada rejects shopee", NewLazada(f), "https://shopee.sg/item-i.1.2", false},
		{"shopee", NewShopee(f, nil), "https://shopee.sg/scubapro-mk19-evo-i.1.2", true},
		{"scubawarehouse", NewScubaWarehouse(f), "https://scubawarehouse.com.sg/products/mk19", true},
		{"amazon", NewAmazon(f), "https://www.amazon.sg/dp/B0ABCD", true},
		{"amazon rejects garbage", NewAmazon(f), "://bad", false},
		{"path does not count", NewShopee(f, nil), "https://evil.example/shopee.sg/item", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.strategy.CanHandle(tc.url))
		})
	}
}

func TestExtract_StructuredTier(t *testing.T) {
	srv := servePage(t, `<html><head>
		<script type="application/ld+json">{"@type":"Product","offers":{"price":"1428.90"}}</script>
	</head><body><span class="pdp-price">$9,999.00</span></body></html>`)

	raw, err := NewLazada(testFetcher()).Extract(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "1428.90", raw, "structured markup outranks selector probes")
}

func TestExtract_SelectorTier(t *testing.T) {
	srv := servePage(t, `<html><body>
		<div class="price"><span class="price-item price-item--sale">$1,363.95</span></div>
	</body></html>`)

	raw, err := NewScubaWarehouse(testFetcher()).Extract(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "$1,363.95", raw)
}

func TestExtract_RegexTier(t *testing.T) {
	srv := servePage(t, `<html><body>
		<p>Grab the MK25 EVO today for only S$1,595.00 with free delivery.</p>
	</body></html>`)

	raw, err := NewAmazon(testFetcher()).Extract(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "S$1,595.00", raw)
}

func TestExtract_FallbackTier(t *testing.T) {
	// Shopee ships a JS shell with no usable price markup; the pinned table
	// keyed by URL fragment is the last resort.
	srv := servePage(t, `<html><body><div id="app"></div></body></html>`)

	s := NewShopee(testFetcher(), DefaultShopeeFallback())
	raw, err := s.Extract(context.Background(), srv.URL+"/scubapro-mk19-evo-bt2-i.123.456")
	require.NoError(t, err)
	assert.Equal(t, "$1,234.05", raw)
}

func TestExtract_NotFound(t *testing.T) {
	srv := servePage(t, `<html><body><div id="app"></div></body></html>`)

	_, err := NewShopee(testFetcher(), DefaultShopeeFallback()).
		Extract(context.Background(), srv.URL+"/unknown-listing-i.9.9")
	require.Error(t, err)

	var xerr *ExtractionError
	require.True(t, errors.As(err, &xerr))
	assert.Equal(t, ReasonNotFound, xerr.Reason)
	assert.Equal(t, "shopee", xerr.Platform)
}

func TestExtract_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	_, err := NewLazada(testFetcher()).Extract(context.Background(), srv.URL)
	require.Error(t, err)

	var xerr *ExtractionError
	require.True(t, errors.As(err, &xerr))
	assert.Equal(t, ReasonNetwork, xerr.Reason)
}

func TestExtract_UnreachableHost(t *testing.T) {
	srv := servePage(t, "")
	srv.Close() // connection refused from here on

	_, err := NewLazada(testFetcher()).Extract(context.Background(), srv.URL)
	require.Error(t, err)

	var xerr *ExtractionError
	require.True(t, errors.As(err, &xerr))
	assert.Equal(t, ReasonNetwork, xerr.Reason)
}
