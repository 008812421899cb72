// Package app wires together configuration, the feed client, and the cache
// store into a single Deps struct that commands receive at runtime.
package app

import (
	"fmt"

	"github.com/derickschaefer/covidchart/internal/config"
	"github.com/derickschaefer/covidchart/internal/source"
	"github.com/derickschaefer/covidchart/internal/store"
)

// Deps holds all runtime dependencies injected into command Run functions.
type Deps struct {
	Config  *config.Config
	Client  *source.Client
	Store   *store.Store
	Fetcher source.Fetcher
}

// New builds a Deps from resolved config. The store is not opened; call
// OpenStore to enable the feed cache. Until then Fetcher hits the network.
func New(cfg *config.Config) *Deps {
	client := source.NewClient(
		cfg.BaseURL,
		cfg.Timeout,
		cfg.Rate,
		cfg.Debug,
	)
	return &Deps{
		Config:  cfg,
		Client:  client,
		Fetcher: client,
	}
}

// OpenStore opens the bbolt cache at cfg.DBPath and routes Fetcher through
// it. It is a no-op when the store is already open.
func (d *Deps) OpenStore() error {
	if d.Store != nil {
		return nil
	}
	s, err := store.Open(d.Config.DBPath)
	if err != nil {
		return err
	}
	d.Store = s
	d.Fetcher = source.NewCachedFetcher(d.Client, s, source.CacheOptions{
		TTL:     d.Config.CacheTTL,
		NoCache: d.Config.NoCache,
		Refresh: d.Config.Refresh,
	})
	return nil
}

// RequireStore opens the store or returns an error naming the DB path.
// Commands that only manage the cache use this instead of degrading.
func (d *Deps) RequireStore() (*store.Store, error) {
	if err := d.OpenStore(); err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", d.Config.DBPath, err)
	}
	return d.Store, nil
}

// Close releases the store, if open.
func (d *Deps) Close() error {
	if d.Store == nil {
		return nil
	}
	err := d.Store.Close()
	d.Store = nil
	return err
}
