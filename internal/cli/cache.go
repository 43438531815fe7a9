package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/weave/internal/ir"
	"github.com/roach88/weave/internal/store"
)

// CacheOptions holds flags shared by the cache subcommands.
type CacheOptions struct {
	*RootOptions
	Database string
	Fragment string // runs: filter by fragment
	Limit    int    // runs: most recent N
	Keep     string // prune: oldest generator version to keep
}

// ArtifactSummary describes a cached artifact without its code.
type ArtifactSummary struct {
	Key              string `json:"key"`
	Fragment         string `json:"fragment"`
	Lanes            int    `json:"lanes"`
	GeneratorVersion string `json:"generator_version"`
	Size             int    `json:"size"`
}

// CacheStats summarizes the run log.
type CacheStats struct {
	Artifacts int     `json:"artifacts"`
	Runs      int64   `json:"runs"`
	HitRate   float64 `json:"hit_rate"`
}

// NewCacheCommand creates the cache command and its subcommands.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CacheOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the artifact cache and the compile run log",
		Long: `Inspect the SQLite database written by "weave compile --cache".

Examples:
  weave cache list --db weave.db
  weave cache runs --db weave.db --fragment probe --limit 10
  weave cache stats --db weave.db
  weave cache prune --db weave.db`,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the cache database (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	list := &cobra.Command{
		Use:           "list",
		Short:         "List cached artifacts",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, runCacheList)
		},
	}

	runs := &cobra.Command{
		Use:           "runs",
		Short:         "List recorded compile runs, oldest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, runCacheRuns)
		},
	}
	runs.Flags().StringVar(&opts.Fragment, "fragment", "", "only runs of this fragment")
	runs.Flags().IntVar(&opts.Limit, "limit", 20, "most recent runs to show (0 for all)")

	stats := &cobra.Command{
		Use:           "stats",
		Short:         "Show the cache hit rate",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, runCacheStats)
		},
	}

	prune := &cobra.Command{
		Use:           "prune",
		Short:         "Delete artifacts emitted by older generator versions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, runCachePrune)
		},
	}
	prune.Flags().StringVar(&opts.Keep, "keep", ir.GeneratorVersion, "oldest generator version to keep")

	cmd.AddCommand(list, runs, stats, prune)
	return cmd
}

type cacheFunc func(ctx context.Context, st *store.Store, opts *CacheOptions, formatter *OutputFormatter) error

// withStore opens an existing database and runs fn against it.
func withStore(cmd *cobra.Command, opts *CacheOptions, fn cacheFunc) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	// Opening would create a fresh database; a missing one is a user error.
	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return fail(formatter, ExitCommandError, ErrCodeStore, fmt.Sprintf("database not found: %s", opts.Database))
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeStore, err.Error())
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, st, opts, formatter)
}

func runCacheList(ctx context.Context, st *store.Store, opts *CacheOptions, formatter *OutputFormatter) error {
	arts, err := st.ListArtifacts(ctx)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeStore, err.Error())
	}
	summaries := make([]ArtifactSummary, len(arts))
	for i, a := range arts {
		summaries[i] = ArtifactSummary{
			Key:              a.Key,
			Fragment:         a.Fragment,
			Lanes:            a.Lanes,
			GeneratorVersion: a.GeneratorVersion,
			Size:             len(a.Decls) + len(a.Body),
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(summaries)
	}
	w := formatter.Writer
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No cached artifacts.")
		return nil
	}
	for _, s := range summaries {
		fmt.Fprintf(w, "%s  %-20s lanes=%d  v%s  %d bytes\n", shortKey(s.Key), s.Fragment, s.Lanes, s.GeneratorVersion, s.Size)
	}
	return nil
}

func runCacheRuns(ctx context.Context, st *store.Store, opts *CacheOptions, formatter *OutputFormatter) error {
	runs, err := st.ReadRuns(ctx, opts.Fragment, opts.Limit)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeStore, err.Error())
	}
	if formatter.Format == "json" {
		return formatter.Success(runs)
	}
	printRuns(formatter.Writer, runs)
	return nil
}

func printRuns(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	for _, r := range runs {
		source := "emitted"
		if r.CacheHit {
			source = "cache"
		}
		fmt.Fprintf(w, "[%d] %s  %s  lanes=%d  %s  %d -> %d block(s)\n",
			r.Seq, r.StartedAt.Format(time.RFC3339), r.Fragment, r.Lanes, source,
			r.Stats.BlocksBefore, r.Stats.BlocksAfter)
	}
}

func runCacheStats(ctx context.Context, st *store.Store, opts *CacheOptions, formatter *OutputFormatter) error {
	arts, err := st.ListArtifacts(ctx)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeStore, err.Error())
	}
	rate, total, err := st.CacheHitRate(ctx)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeStore, err.Error())
	}
	stats := CacheStats{Artifacts: len(arts), Runs: total, HitRate: rate}

	if formatter.Format == "json" {
		return formatter.Success(stats)
	}
	fmt.Fprintf(formatter.Writer, "Artifacts: %d\nRuns: %d\nHit rate: %.1f%%\n", stats.Artifacts, stats.Runs, stats.HitRate*100)
	return nil
}

func runCachePrune(ctx context.Context, st *store.Store, opts *CacheOptions, formatter *OutputFormatter) error {
	n, err := st.PruneArtifacts(ctx, opts.Keep)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeStore, err.Error())
	}
	if formatter.Format == "json" {
		return formatter.Success(map[string]any{"pruned": n, "kept_version": opts.Keep})
	}
	fmt.Fprintf(formatter.Writer, "✓ Pruned %d artifact(s) older than generator %s\n", n, opts.Keep)
	return nil
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
