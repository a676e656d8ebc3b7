// Package pricecache persists per-product competitor price sets and merges
// fresh aggregation results into them.
package pricecache

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/divemart/pricewatch/internal/model"
)

// Backend is a durable key-value store of product id → price set. Put
// writes the whole record atomically; Get returns (nil, nil) when the
// product has no entry.
type Backend interface {
	Get(ctx context.Context, productID string) (model.PriceSet, error)
	Put(ctx context.Context, productID string, set model.PriceSet) error
	Close() error
}

// Cache layers merge semantics and per-product write serialization over a
// Backend. It is the only component that mutates persisted price sets.
type Cache struct {
	backend   Backend
	staleness time.Duration

	locks keyedMutex
}

// New creates a Cache. staleness is the window after which retained entries
// are flagged in logs as stale; the stored value is never discarded.
func New(backend Backend, staleness time.Duration) *Cache {
	return &Cache{backend: backend, staleness: staleness}
}

// Read returns the cached price set for a product. Absence of prior data
// returns an empty set, and backend failures degrade to an empty set with a
// logged warning: a cache read never fails the caller.
func (c *Cache) Read(ctx context.Context, productID string) model.PriceSet {
	set, err := c.backend.Get(ctx, productID)
	if err != nil {
		zap.L().Warn("pricecache: read failed, treating as empty",
			zap.String("product_id", productID),
			zap.Error(err),
		)
		return model.PriceSet{}
	}
	if set == nil {
		return model.PriceSet{}
	}
	return set
}

// Merge folds fresh results into the prior cached entry and persists the
// result atomically. Fresh entries overwrite with IsLive=true; every prior
// competitor missing from fresh (failed or not attempted) is retained with
// IsLive forced to false and its original timestamp kept. A merge therefore
// never shrinks the competitor set.
//
// Merges for the same product are serialized so concurrent aggregation
// calls cannot interleave partial writes; different products proceed
// independently. The merged set is returned even when the persist step
// fails, so a storage outage degrades to stale-but-served data.
//
// When the prior record cannot be read, Merge must not persist: writing
// fresh-only over an unreadable record would drop every competitor it
// holds. The fresh results are served and the stored record is left alone.
func (c *Cache) Merge(ctx context.Context, productID string, fresh model.PriceSet, failed []string) (model.PriceSet, error) {
	unlock := c.locks.lock(productID)
	defer unlock()

	prior, err := c.backend.Get(ctx, productID)
	if err != nil {
		zap.L().Error("pricecache: prior read failed, skipping persist",
			zap.String("product_id", productID),
			zap.Error(err),
		)
		return fresh.Clone(), eris.Wrapf(err, "pricecache: read prior for product %s", productID)
	}
	merged := mergeSets(prior, fresh)

	c.warnStale(productID, merged)
	if len(failed) > 0 {
		zap.L().Info("pricecache: retaining cached entries for failed competitors",
			zap.String("product_id", productID),
			zap.Strings("failed", failed),
		)
	}

	if err := c.backend.Put(ctx, productID, merged); err != nil {
		return merged, eris.Wrapf(err, "pricecache: persist merge for product %s", productID)
	}
	return merged, nil
}

// Replace overwrites the product's entry wholesale. Not part of the default
// aggregation flow; exists for explicit administrative resets.
func (c *Cache) Replace(ctx context.Context, productID string, set model.PriceSet) error {
	unlock := c.locks.lock(productID)
	defer unlock()

	if err := c.backend.Put(ctx, productID, set.Clone()); err != nil {
		return eris.Wrapf(err, "pricecache: replace product %s", productID)
	}
	return nil
}

// Close releases the backend.
func (c *Cache) Close() error {
	return c.backend.Close()
}

// mergeSets is the pure merge: prior entries demoted to IsLive=false, fresh
// entries overlaid as-is. Commutative and idempotent with respect to the
// order fresh results were collected.
func mergeSets(prior, fresh model.PriceSet) model.PriceSet {
	merged := make(model.PriceSet, len(prior)+len(fresh))
	for name, cp := range prior {
		cp.IsLive = false
		merged[name] = cp
	}
	for name, cp := range fresh {
		merged[name] = cp
	}
	return merged
}

func (c *Cache) warnStale(productID string, set model.PriceSet) {
	if c.staleness <= 0 {
		return
	}
	cutoff := time.Now().Add(-c.staleness)
	for name, cp := range set {
		if !cp.IsLive && cp.LastUpdated.Before(cutoff) {
			zap.L().Warn("pricecache: entry stale beyond window",
				zap.String("product_id", productID),
				zap.String("competitor", name),
				zap.Time("last_updated", cp.LastUpdated),
			)
		}
	}
}

// keyedMutex hands out one mutex per key. Keys are product ids; the map
// grows with the product catalog, which is small enough not to reap.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
