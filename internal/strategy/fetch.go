package strategy

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/divemart/pricewatch/internal/resilience"
)

const (
	// browserUA is the fixed User-Agent sent on every fetch. Retail sites
	// commonly serve bot UAs a degraded or blocked page.
	browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

	maxBodyBytes = 2 << 20
)

// Fetcher performs the single GET every strategy uses, with browser-like
// headers, a per-request timeout, a per-host rate limit, and one retry for
// transient failures.
type Fetcher struct {
	client  *http.Client
	retry   resilience.RetryConfig
	perHost rate.Limit
	burst   int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// FetcherOption customizes a Fetcher.
type FetcherOption func(*Fetcher)

// WithRetry overrides the transient-failure retry policy.
func WithRetry(cfg resilience.RetryConfig) FetcherOption {
	return func(f *Fetcher) { f.retry = cfg }
}

// WithPerHostRate overrides the per-host request rate limit.
func WithPerHostRate(limit rate.Limit, burst int) FetcherOption {
	return func(f *Fetcher) {
		f.perHost = limit
		f.burst = burst
	}
}

// NewFetcher creates a Fetcher with the given per-request timeout.
func NewFetcher(timeout time.Duration, opts ...FetcherOption) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	f := &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: timeout,
				}).DialContext,
				TLSHandshakeTimeout: timeout,
			},
		},
		retry:    resilience.DefaultRetryConfig(),
		perHost:  rate.Limit(2),
		burst:    2,
		limiters: make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Document is a fetched page ready for heuristic extraction.
type Document struct {
	URL  string
	Body []byte
	doc  *goquery.Document
}

// Selection runs a CSS selector against the parsed document.
func (d *Document) Selection(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Text returns the visible text of the document body.
func (d *Document) Text() string {
	return d.doc.Find("body").Text()
}

// Get fetches the URL and parses it as an HTML document. All failures
// (timeouts, non-2xx, anti-bot blocks) are network-level; the caller maps
// them onto its error taxonomy.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (*Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: parse url %s", rawURL)
	}

	if err := f.limiter(u.Host).Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "fetch: rate limit wait")
	}

	body, err := resilience.DoVal(ctx, f.retry, func(ctx context.Context) ([]byte, error) {
		return f.fetchOnce(ctx, rawURL)
	})
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: parse html %s", rawURL)
	}

	return &Document{URL: rawURL, Body: body, doc: doc}, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: create request")
	}
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-SG,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: get")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "fetch: read body")
	}

	if blocked, kind := detectBlock(resp, body); blocked {
		return nil, eris.Errorf("fetch: blocked (%s)", kind)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := eris.Errorf("fetch: status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	return body, nil
}

func (f *Fetcher) limiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.limiters[host]
	if !ok {
		l = rate.NewLimiter(f.perHost, f.burst)
		f.limiters[host] = l
	}
	return l
}
