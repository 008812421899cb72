package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/covidchart/internal/source"
	"github.com/derickschaefer/covidchart/internal/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the local feed cache",
	Long: `Commands for inspecting and clearing the local bbolt feed cache.

Each fetched CSV feed is cached under its URL and the day it was fetched.
Entries older than cache_ttl (default 6h) are refetched on the next run;
a new day always refetches.`,
}

// ─── cache stats ──────────────────────────────────────────────────────────────

var cacheStatsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show row counts and sizes for each bucket",
	Example: `  covidchart cache stats`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		s, err := deps.RequireStore()
		if err != nil {
			return err
		}
		defer deps.Close()

		stats, err := s.Stats()
		if err != nil {
			return fmt.Errorf("reading store stats: %w", err)
		}

		// Sort by bucket name for deterministic output
		sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })

		keys, err := s.ListFeedKeys()
		if err != nil {
			return fmt.Errorf("listing feeds: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Database: %s\n\n", s.Path())
		printSimpleTable(out, []string{"BUCKET", "ROWS", "SIZE"}, func(add func(...string)) {
			for _, st := range stats {
				add(st.Name, fmt.Sprintf("%d", st.Count), humanBytes(st.Bytes))
			}
		})
		if len(keys) > 0 {
			fmt.Fprintln(out)
			printSimpleTable(out, []string{"FEED", "DAY"}, func(add func(...string)) {
				for _, k := range keys {
					u, day := splitFeedKey(k)
					add(u, day)
				}
			})
		}
		return nil
	},
}

// ─── cache clear ──────────────────────────────────────────────────────────────

var (
	cacheClearAll    bool
	cacheClearBucket string
)

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete entries from the local cache",
	Long: `Delete entries from one or all buckets.

Note: bbolt does not shrink the database file automatically after clearing.
Free pages are reused internally on the next write.`,
	Example: `  covidchart cache clear --all
  covidchart cache clear --bucket feeds`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cacheClearAll && cacheClearBucket == "" {
			return fmt.Errorf("specify --all or --bucket <n>\n\nBuckets: %s", strings.Join(store.AllBuckets, ", "))
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		s, err := deps.RequireStore()
		if err != nil {
			return err
		}
		defer deps.Close()

		if cacheClearAll {
			if err := s.ClearAll(); err != nil {
				return fmt.Errorf("clearing all buckets: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Cleared all buckets")
			return nil
		}

		if err := s.ClearBucket(cacheClearBucket); err != nil {
			return fmt.Errorf("clearing bucket %q: %w", cacheClearBucket, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared bucket %q\n", cacheClearBucket)
		return nil
	},
}

// ─── cache prune ──────────────────────────────────────────────────────────────

var cachePruneOlderThan string

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete cached feeds older than a given age",
	Long: `Delete cached feeds fetched longer ago than --older-than.
Defaults to the configured cache_ttl.`,
	Example: `  covidchart cache prune
  covidchart cache prune --older-than 24h`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		s, err := deps.RequireStore()
		if err != nil {
			return err
		}
		defer deps.Close()

		maxAge := deps.Config.CacheTTL
		if cachePruneOlderThan != "" {
			if maxAge, err = time.ParseDuration(cachePruneOlderThan); err != nil {
				return fmt.Errorf("invalid --older-than %q: %w", cachePruneOlderThan, err)
			}
		}

		n, err := s.Prune(maxAge)
		if err != nil {
			return fmt.Errorf("pruning cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Pruned %d feed(s) older than %s\n", n, maxAge)
		return nil
	},
}

// ─── cache warm ───────────────────────────────────────────────────────────────

var cacheWarmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Fetch the national and all-regions feeds into the cache",
	Long: `Fetch both CSV feeds and store them, replacing any cached copy from
today. Later runs (with any --state) are served from the cache until the
entries expire.`,
	Example: `  covidchart cache warm`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		deps.Config.Refresh = true
		deps.Config.NoCache = false
		if _, err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		out := cmd.OutOrStdout()
		for _, region := range []string{"", source.AllRegions} {
			feed, err := deps.Fetcher.Fetch(cmd.Context(), region)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Cached %s (%s)\n", feed.URL, humanBytes(int64(len(feed.Body))))
		}
		return nil
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheWarmCmd)

	cacheClearCmd.Flags().BoolVar(&cacheClearAll, "all", false, "clear all buckets")
	cacheClearCmd.Flags().StringVar(&cacheClearBucket, "bucket", "", "clear a specific bucket: "+strings.Join(store.AllBuckets, "|"))
	cachePruneCmd.Flags().StringVar(&cachePruneOlderThan, "older-than", "", "maximum age to keep (e.g. 6h, 48h)")
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func humanBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// splitFeedKey splits a store.FeedKey back into its URL and day.
func splitFeedKey(key string) (string, string) {
	key = strings.TrimPrefix(key, "feed:")
	i := strings.LastIndex(key, "|day:")
	if i < 0 {
		return key, ""
	}
	return key[:i], key[i+len("|day:"):]
}
