package podds

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/richard-senior/podds/internal/logger"
	"golang.org/x/sync/singleflight"
)

// PosteriorStore is an optional second tier behind the in memory cache.
// LoadPosterior returns (nil, nil) when the key is unknown.
type PosteriorStore interface {
	LoadPosterior(key string) (*Posterior, error)
	SavePosterior(key string, p *Posterior) error
	DeletePosterior(key string) error
	ClearPosteriors() error
}

// CacheStats is a snapshot of cache counters.
type CacheStats struct {
	Size      int   `json:"size"`
	Capacity  int   `json:"capacity"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	StoreHits int64 `json:"store_hits"`
	Fits      int64 `json:"fits"`
}

// PosteriorCache memoises fitted posteriors in a bounded, expiring LRU.
// Concurrent misses on the same key share one fit. Safe for concurrent use.
type PosteriorCache struct {
	lru      *expirable.LRU[CacheKey, *Posterior]
	group    singleflight.Group
	store    PosteriorStore
	capacity int

	hits      atomic.Int64
	misses    atomic.Int64
	storeHits atomic.Int64
	fits      atomic.Int64
}

// NewPosteriorCache creates a cache holding at most size posteriors for ttl
// (0 means no expiry). store may be nil.
func NewPosteriorCache(size int, ttl time.Duration, store PosteriorStore) *PosteriorCache {
	return &PosteriorCache{
		lru:      expirable.NewLRU[CacheKey, *Posterior](size, nil, ttl),
		store:    store,
		capacity: size,
	}
}

// Get looks in memory, then in the store. A store hit is promoted to memory.
func (c *PosteriorCache) Get(key CacheKey) (*Posterior, bool) {
	if p, ok := c.lru.Get(key); ok {
		c.hits.Add(1)
		return p, true
	}
	if c.store != nil {
		p, err := c.store.LoadPosterior(key.String())
		if err != nil {
			logger.Warn("Posterior store lookup failed", err)
		} else if p != nil {
			c.storeHits.Add(1)
			c.lru.Add(key, p)
			return p, true
		}
	}
	c.misses.Add(1)
	return nil, false
}

// Put stores p under key, overwriting any previous entry.
func (c *PosteriorCache) Put(key CacheKey, p *Posterior) {
	c.lru.Add(key, p)
	if c.store != nil {
		if err := c.store.SavePosterior(key.String(), p); err != nil {
			logger.Warn("Posterior store write failed", err)
		}
	}
}

// GetOrFit returns the cached posterior for key or runs fit once, however
// many callers ask concurrently. Failed fits are not cached. A shared fit
// abandoned by the caller that started it is run again for callers whose
// own context is still live.
func (c *PosteriorCache) GetOrFit(ctx context.Context, key CacheKey, fit func() (*Posterior, error)) (*Posterior, error) {
	if p, ok := c.Get(key); ok {
		logger.Debug("Posterior cache hit", key.String())
		return p, nil
	}
	for {
		ch := c.group.DoChan(key.String(), func() (any, error) {
			if p, ok := c.lru.Peek(key); ok {
				return p, nil
			}
			p, err := fit()
			if err != nil {
				return nil, err
			}
			c.fits.Add(1)
			c.Put(key, p)
			return p, nil
		})
		select {
		case <-ctx.Done():
			return nil, fitError(StageCancelled, ctx.Err())
		case res := <-ch:
			if res.Err == nil {
				return res.Val.(*Posterior), nil
			}
			if res.Shared && isCancelledFit(res.Err) && ctx.Err() == nil {
				logger.Debug("Shared posterior fit abandoned, fitting again", key.String())
				continue
			}
			return nil, res.Err
		}
	}
}

func isCancelledFit(err error) bool {
	var fe *FittingFailedError
	return errors.As(err, &fe) && fe.Stage == StageCancelled
}

// Remove evicts one key from both tiers.
func (c *PosteriorCache) Remove(key CacheKey) {
	c.lru.Remove(key)
	if c.store != nil {
		if err := c.store.DeletePosterior(key.String()); err != nil {
			logger.Warn("Posterior store delete failed", err)
		}
	}
}

// Clear empties both tiers and resets the counters.
func (c *PosteriorCache) Clear() error {
	c.lru.Purge()
	c.hits.Store(0)
	c.misses.Store(0)
	c.storeHits.Store(0)
	c.fits.Store(0)
	if c.store != nil {
		return c.store.ClearPosteriors()
	}
	return nil
}

func (c *PosteriorCache) Len() int {
	return c.lru.Len()
}

func (c *PosteriorCache) Stats() CacheStats {
	return CacheStats{
		Size:      c.lru.Len(),
		Capacity:  c.capacity,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		StoreHits: c.storeHits.Load(),
		Fits:      c.fits.Load(),
	}
}

// Close drops the in memory tier. The store is owned by the caller.
func (c *PosteriorCache) Close() {
	c.lru.Purge()
}
