// Package store provides a thin bbolt wrapper for covidchart's feed cache.
//
// Each entry is a raw CSV feed keyed by endpoint URL and the calendar day it
// was fetched on, so a new day always misses. Entries older than the caller's
// TTL are treated as misses and can be removed with Prune.
//
// Buckets:
//
//	feeds: raw CSV bodies keyed by FeedKey
//	_meta: internal: schema version, created_at
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	bolt "go.etcd.io/bbolt"

	"github.com/derickschaefer/covidchart/internal/model"
)

// Current schema version. Bump when bucket layout or key format changes.
const schemaVersion = 1

// Bucket name constants.
var (
	bucketFeeds    = []byte("feeds")
	bucketInternal = []byte("_meta")
)

// AllBuckets lists every user-facing bucket for stats and clear operations.
var AllBuckets = []string{"feeds"}

// Store wraps a bbolt database.
type Store struct {
	db    *bolt.DB
	clock clockwork.Clock
}

// Open opens (or creates) the bbolt database at path.
// Parent directories are created automatically.
// Runs schema migrations on every open.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening db %s: %w", path, err)
	}

	s := &Store{db: db, clock: clockwork.NewRealClock()}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration: %w", err)
	}
	return s, nil
}

// SetClock swaps the time source used for stamping and expiry.
// Pass nil to reset to real time.
func (s *Store) SetClock(c clockwork.Clock) {
	if c == nil {
		s.clock = clockwork.NewRealClock()
		return
	}
	s.clock = c
}

// Clock returns the store's time source.
func (s *Store) Clock() clockwork.Clock {
	return s.clock
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the filesystem path of the open database.
func (s *Store) Path() string {
	return s.db.Path()
}

// ─── Migrations ───────────────────────────────────────────────────────────────

// migrate ensures all buckets exist and schema is current.
func (s *Store) migrate() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketFeeds, bucketInternal} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}

		meta := tx.Bucket(bucketInternal)
		if meta.Get([]byte("schema_version")) == nil {
			if err := meta.Put([]byte("schema_version"), []byte(fmt.Sprintf("%d", schemaVersion))); err != nil {
				return err
			}
			if err := meta.Put([]byte("created_at"), []byte(s.clock.Now().UTC().Format(time.RFC3339))); err != nil {
				return err
			}
		}
		return nil
	})
}

// ─── Feeds ────────────────────────────────────────────────────────────────────

// FeedKey builds the canonical key for a cached feed.
// Format: feed:<url>|day:<YYYY-MM-DD>
func FeedKey(url string, day time.Time) string {
	return "feed:" + url + "|day:" + day.UTC().Format("2006-01-02")
}

// storedFeed is the on-disk envelope for a cached feed.
type storedFeed struct {
	URL       string    `json:"url"`
	FetchedAt time.Time `json:"fetched_at"`
	Body      []byte    `json:"body"`
}

// PutFeed stores a feed under key. A zero FetchedAt is stamped with the
// store's clock.
func (s *Store) PutFeed(key string, feed model.Feed) error {
	at := feed.FetchedAt
	if at.IsZero() {
		at = s.clock.Now()
	}
	b, err := json.Marshal(storedFeed{URL: feed.URL, FetchedAt: at.UTC(), Body: feed.Body})
	if err != nil {
		return fmt.Errorf("encoding feed: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketFeeds).Put([]byte(key), b)
	})
}

// GetFeed retrieves a feed by key.
// Returns (feed, true, nil) on a hit, (zero, false, nil) when the key is
// absent or the entry is older than maxAge. maxAge <= 0 disables expiry.
func (s *Store) GetFeed(key string, maxAge time.Duration) (model.Feed, bool, error) {
	var env storedFeed
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketFeeds).Get([]byte(key))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &env)
	})
	if err != nil {
		return model.Feed{}, false, fmt.Errorf("reading feed %s: %w", key, err)
	}
	if !found {
		return model.Feed{}, false, nil
	}
	if maxAge > 0 && s.clock.Since(env.FetchedAt) > maxAge {
		return model.Feed{}, false, nil
	}
	return model.Feed{
		URL:       env.URL,
		Body:      env.Body,
		FetchedAt: env.FetchedAt,
		FromCache: true,
	}, true, nil
}

// ListFeedKeys returns all feed keys in key order.
func (s *Store) ListFeedKeys() ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketFeeds).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

// Prune deletes feeds older than maxAge and returns how many were removed.
// Entries that cannot be decoded are removed as well.
func (s *Store) Prune(maxAge time.Duration) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketFeeds)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var env storedFeed
			if err := json.Unmarshal(v, &env); err != nil || s.clock.Since(env.FetchedAt) > maxAge {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}

// ─── Stats & Maintenance ──────────────────────────────────────────────────────

// BucketStats holds row count and byte size for a single bucket.
type BucketStats struct {
	Name  string
	Count int
	Bytes int64
}

// Stats returns row counts and approximate sizes for all user-facing buckets.
func (s *Store) Stats() ([]BucketStats, error) {
	var stats []BucketStats
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, name := range AllBuckets {
			b := tx.Bucket([]byte(name))
			if b == nil {
				continue
			}
			var count int
			var bytes int64
			if err := b.ForEach(func(k, v []byte) error {
				count++
				bytes += int64(len(k) + len(v))
				return nil
			}); err != nil {
				return err
			}
			stats = append(stats, BucketStats{Name: name, Count: count, Bytes: bytes})
		}
		return nil
	})
	return stats, err
}

// ClearBucket deletes all entries in the named bucket.
func (s *Store) ClearBucket(name string) error {
	if !isUserBucket(name) {
		return fmt.Errorf("unknown bucket %q", name)
	}
	bname := []byte(name)
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bname); err != nil {
			return fmt.Errorf("clearing bucket %s: %w", name, err)
		}
		_, err := tx.CreateBucket(bname)
		return err
	})
}

// ClearAll deletes all entries from every user-facing bucket.
func (s *Store) ClearAll() error {
	for _, name := range AllBuckets {
		if err := s.ClearBucket(name); err != nil {
			return err
		}
	}
	return nil
}

func isUserBucket(name string) bool {
	for _, n := range AllBuckets {
		if n == name {
			return true
		}
	}
	return false
}
