package strategy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/divemart/pricewatch/internal/resilience"
)

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func testFetcher(opts ...FetcherOption) *Fetcher {
	base := []FetcherOption{
		WithPerHostRate(rate.Inf, 1),
		WithRetry(fastRetry()),
	}
	return NewFetcher(5*time.Second, append(base, opts...)...)
}

func TestFetcher_SendsBrowserHeaders(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept-Language")
		_, _ = w.Write([]byte(`<html><body>ok</body></html>`))
	}))
	defer srv.Close()

	doc, err := testFetcher().Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, browserUA, gotUA)
	assert.Contains(t, gotAccept, "en-SG")
	assert.Equal(t, "ok", doc.Text())
}

func TestFetcher_NonRetryableStatus(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testFetcher().Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, 1, hits, "404 must not be retried")
}

func TestFetcher_RetriesTransientStatus(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`<html><body><span class="price">$10.00</span></body></html>`))
	}))
	defer srv.Close()

	doc, err := testFetcher().Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 2, hits)
	assert.Equal(t, "$10.00", doc.Selection("span.price").Text())
}

func TestFetcher_DetectsCloudflareBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>Checking your browser before accessing</body></html>`))
	}))
	defer srv.Close()

	_, err := testFetcher().Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
}

func TestFetcher_DetectsCaptchaBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div class="g-recaptcha"></div></body></html>`))
	}))
	defer srv.Close()

	_, err := testFetcher().Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
}

func TestFetcher_InvalidURL(t *testing.T) {
	_, err := testFetcher().Get(context.Background(), "://not-a-url")
	require.Error(t, err)
}

func TestFetcher_SharesLimiterPerHost(t *testing.T) {
	f := NewFetcher(time.Second)

	a := f.limiter("shopee.sg")
	b := f.limiter("shopee.sg")
	c := f.limiter("lazada.sg")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}
