package store_test

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/derickschaefer/covidchart/internal/model"
	"github.com/derickschaefer/covidchart/internal/store"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// testDB opens a fresh isolated database in t.TempDir() with a fake clock.
// It is closed automatically when the test ends.
func testDB(t *testing.T) (*store.Store, *clockwork.FakeClock) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	clk := clockwork.NewFakeClockAt(time.Date(2021, 3, 7, 12, 0, 0, 0, time.UTC))
	s.SetClock(clk)
	return s, clk
}

const usURL = "https://covidtracking.com/api/v1/us/daily.csv"

func feed(body string) model.Feed {
	return model.Feed{URL: usURL, Body: []byte(body)}
}

// ─── Open / Path ──────────────────────────────────────────────────────────────

func TestOpenCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "cache.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open with nested path: %v", err)
	}
	defer s.Close()
	if s.Path() != path {
		t.Errorf("Path: expected %q, got %q", path, s.Path())
	}
}

func TestReopenPreservesData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	key := store.FeedKey(usURL, time.Now())
	if err := s.PutFeed(key, feed("date,positive\n")); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := store.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if _, ok, err := s2.GetFeed(key, 0); err != nil || !ok {
		t.Fatalf("expected entry after reopen, ok=%v err=%v", ok, err)
	}
}

// ─── FeedKey ──────────────────────────────────────────────────────────────────

func TestFeedKeyFormat(t *testing.T) {
	day := time.Date(2021, 3, 7, 23, 59, 0, 0, time.UTC)
	got := store.FeedKey(usURL, day)
	want := "feed:" + usURL + "|day:2021-03-07"
	if got != want {
		t.Errorf("FeedKey:\n  expected: %q\n  got:      %q", want, got)
	}
}

func TestFeedKeyDiffersByDayAndURL(t *testing.T) {
	d1 := time.Date(2021, 3, 7, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	if store.FeedKey(usURL, d1) == store.FeedKey(usURL, d2) {
		t.Error("keys for different days should differ")
	}
	if store.FeedKey(usURL, d1) == store.FeedKey("https://x/states/daily.csv", d1) {
		t.Error("keys for different URLs should differ")
	}
}

// ─── Feeds ────────────────────────────────────────────────────────────────────

func TestPutGetFeed(t *testing.T) {
	s, clk := testDB(t)
	key := store.FeedKey(usURL, clk.Now())
	if err := s.PutFeed(key, feed("date,positiveIncrease\n20210307,41265\n")); err != nil {
		t.Fatalf("PutFeed: %v", err)
	}

	got, ok, err := s.GetFeed(key, time.Hour)
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if !got.FromCache {
		t.Error("FromCache should be set on cached feeds")
	}
	if got.URL != usURL {
		t.Errorf("URL: got %q", got.URL)
	}
	if !strings.Contains(string(got.Body), "41265") {
		t.Errorf("Body not preserved: %q", got.Body)
	}
	if !got.FetchedAt.Equal(clk.Now()) {
		t.Errorf("FetchedAt should be stamped with the store clock: got %v", got.FetchedAt)
	}
}

func TestGetFeedNotFound(t *testing.T) {
	s, _ := testDB(t)
	_, ok, err := s.GetFeed("feed:nope|day:2021-01-01", time.Hour)
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if ok {
		t.Error("expected miss for absent key")
	}
}

func TestGetFeedExpires(t *testing.T) {
	s, clk := testDB(t)
	key := store.FeedKey(usURL, clk.Now())
	if err := s.PutFeed(key, feed("x")); err != nil {
		t.Fatal(err)
	}

	clk.Advance(59 * time.Minute)
	if _, ok, _ := s.GetFeed(key, time.Hour); !ok {
		t.Error("expected hit inside TTL")
	}

	clk.Advance(2 * time.Minute)
	if _, ok, _ := s.GetFeed(key, time.Hour); ok {
		t.Error("expected miss after TTL")
	}
	if _, ok, _ := s.GetFeed(key, 0); !ok {
		t.Error("maxAge 0 should disable expiry")
	}
}

func TestPutFeedOverwrites(t *testing.T) {
	s, clk := testDB(t)
	key := store.FeedKey(usURL, clk.Now())
	_ = s.PutFeed(key, feed("old"))
	_ = s.PutFeed(key, feed("new"))
	got, _, _ := s.GetFeed(key, 0)
	if string(got.Body) != "new" {
		t.Errorf("expected overwritten body, got %q", got.Body)
	}
}

func TestPrune(t *testing.T) {
	s, clk := testDB(t)
	oldKey := store.FeedKey(usURL, clk.Now())
	_ = s.PutFeed(oldKey, feed("old"))

	clk.Advance(48 * time.Hour)
	newKey := store.FeedKey(usURL, clk.Now())
	_ = s.PutFeed(newKey, feed("new"))

	n, err := s.Prune(24 * time.Hour)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 pruned entry, got %d", n)
	}
	keys, _ := s.ListFeedKeys()
	if len(keys) != 1 || keys[0] != newKey {
		t.Errorf("expected only %q to remain, got %v", newKey, keys)
	}
}

// ─── Stats & Maintenance ──────────────────────────────────────────────────────

func TestStatsCountsRows(t *testing.T) {
	s, clk := testDB(t)
	_ = s.PutFeed(store.FeedKey(usURL, clk.Now()), feed("a"))
	_ = s.PutFeed(store.FeedKey("https://x/states/daily.csv", clk.Now()), feed("b"))

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(stats) != 1 || stats[0].Name != "feeds" {
		t.Fatalf("expected one feeds bucket, got %+v", stats)
	}
	if stats[0].Count != 2 {
		t.Errorf("expected 2 rows, got %d", stats[0].Count)
	}
	if stats[0].Bytes <= 0 {
		t.Errorf("expected positive size, got %d", stats[0].Bytes)
	}
}

func TestClearAll(t *testing.T) {
	s, clk := testDB(t)
	_ = s.PutFeed(store.FeedKey(usURL, clk.Now()), feed("a"))
	if err := s.ClearAll(); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	keys, _ := s.ListFeedKeys()
	if len(keys) != 0 {
		t.Errorf("expected empty store after ClearAll, got %v", keys)
	}
}

func TestClearBucketUnknown(t *testing.T) {
	s, _ := testDB(t)
	if err := s.ClearBucket("_meta"); err == nil {
		t.Error("internal bucket must not be clearable")
	}
	if err := s.ClearBucket("nope"); err == nil {
		t.Error("expected error for unknown bucket")
	}
}
