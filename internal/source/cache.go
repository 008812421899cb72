package source

import (
	"context"
	"log/slog"
	"time"

	"github.com/derickschaefer/covidchart/internal/model"
	"github.com/derickschaefer/covidchart/internal/store"
)

// Endpointer is a Fetcher that can name the URL it would fetch for a region.
// The cache keys entries by that URL.
type Endpointer interface {
	Fetcher
	Endpoint(region string) string
}

// CacheOptions controls how CachedFetcher uses the store.
type CacheOptions struct {
	TTL     time.Duration // entries older than this are misses; <= 0 never expires
	NoCache bool          // neither read nor write the cache
	Refresh bool          // skip reads but store the fresh feed
}

// CachedFetcher wraps a Fetcher with a bbolt-backed feed cache keyed by
// endpoint URL and fetch day.
type CachedFetcher struct {
	inner Endpointer
	store *store.Store
	opts  CacheOptions
}

// NewCachedFetcher creates a cache decorator around inner.
func NewCachedFetcher(inner Endpointer, s *store.Store, opts CacheOptions) *CachedFetcher {
	return &CachedFetcher{inner: inner, store: s, opts: opts}
}

// Fetch returns a cached feed when one is fresh, otherwise fetches and stores it.
// Cache read and write failures are logged and never fail the fetch.
func (c *CachedFetcher) Fetch(ctx context.Context, region string) (*model.Feed, error) {
	if c.opts.NoCache || c.store == nil {
		return c.inner.Fetch(ctx, region)
	}

	key := store.FeedKey(c.inner.Endpoint(region), c.store.Clock().Now())

	if !c.opts.Refresh {
		feed, ok, err := c.store.GetFeed(key, c.opts.TTL)
		switch {
		case err != nil:
			slog.Warn("cache read failed", "key", key, "err", err)
		case ok:
			slog.Debug("cache hit", "key", key, "age", c.store.Clock().Since(feed.FetchedAt).Round(time.Second))
			return &feed, nil
		default:
			slog.Debug("cache miss", "key", key)
		}
	}

	feed, err := c.inner.Fetch(ctx, region)
	if err != nil {
		return nil, err
	}
	stored := *feed
	stored.FetchedAt = c.store.Clock().Now()
	if err := c.store.PutFeed(key, stored); err != nil {
		slog.Warn("cache write failed", "key", key, "err", err)
	}
	return feed, nil
}

// Endpoint delegates to the wrapped fetcher.
func (c *CachedFetcher) Endpoint(region string) string {
	return c.inner.Endpoint(region)
}
