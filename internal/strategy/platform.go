package strategy

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// platformStrategy is the shared implementation behind every concrete
// platform. A platform differs only in its hostname markers, its selector
// probes, and optionally a pinned-listing fallback table; the heuristic
// chain itself is fixed:
//
//  1. structured/embedded metadata (JSON-LD product markup)
//  2. platform-specific selector probes, in priority order
//  3. whole-document regex sweep for a currency-prefixed amount
//  4. static fallback table keyed by URL fragment (placeholder tier)
type platformStrategy struct {
	name     string
	hosts    []string
	probes   []probe
	fetcher  *Fetcher
	fallback *FallbackTable
}

func (p *platformStrategy) Platform() string { return p.name }

// CanHandle matches on hostname substrings only. No I/O.
func (p *platformStrategy) CanHandle(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range p.hosts {
		if strings.Contains(host, h) {
			return true
		}
	}
	return false
}

func (p *platformStrategy) Extract(ctx context.Context, rawURL string) (string, error) {
	doc, err := p.fetcher.Get(ctx, rawURL)
	if err != nil {
		return "", extractErr(p.name, rawURL, ReasonNetwork, err)
	}

	if raw, ok := structuredPrice(doc); ok {
		p.logHit(rawURL, "structured", raw)
		return raw, nil
	}

	if raw, ok := probePrice(doc, p.probes); ok {
		p.logHit(rawURL, "selector", raw)
		return raw, nil
	}

	if raw, ok := scanPrice(doc); ok {
		p.logHit(rawURL, "regex", raw)
		return raw, nil
	}

	if raw, ok := p.fallback.Lookup(rawURL); ok {
		zap.L().Warn("strategy: serving pinned fallback price",
			zap.String("platform", p.name),
			zap.String("url", rawURL),
		)
		return raw, nil
	}

	return "", extractErr(p.name, rawURL, ReasonNotFound,
		eris.New("no heuristic produced price text"))
}

func (p *platformStrategy) logHit(rawURL, tier, raw string) {
	zap.L().Debug("strategy: extracted price text",
		zap.String("platform", p.name),
		zap.String("url", rawURL),
		zap.String("tier", tier),
		zap.String("raw", raw),
	)
}
