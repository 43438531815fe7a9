package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/weave/internal/codegen"
	"github.com/roach88/weave/internal/ir"
	"github.com/roach88/weave/internal/opt"
	"github.com/roach88/weave/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Name  string // fragment to select when the file holds several
	Lanes int    // lane count
	Decls string // declarations output file
	Body  string // body output file
	Cache string // artifact cache database
	NoOpt bool   // skip the optimizer
}

// CompileResult is the outcome of one compile.
type CompileResult struct {
	Fragment    string     `json:"fragment"`
	Fingerprint string     `json:"fingerprint"`
	Lanes       int        `json:"lanes"`
	ArtifactKey string     `json:"artifact_key"`
	CacheHit    bool       `json:"cache_hit"`
	RunID       string     `json:"run_id,omitempty"`
	Stats       *opt.Stats `json:"stats,omitempty"`
	Decls       string     `json:"decls"`
	Body        string     `json:"body"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <fragment>",
		Short: "Optimize a fragment and emit code",
		Long: `Optimize a fragment and emit its declarations and body.

The fragment is read from a .yaml file, a .cue file or a directory
holding one CUE package. With --cache, emitted code is stored in a
SQLite database keyed by the fragment fingerprint and lane count, and
every compile is recorded as a run.

Examples:
  weave compile probe.cue
  weave compile probe.cue --lanes 4 --decls probe.h --body probe.inc
  weave compile probe.cue --lanes 4 --cache weave.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return guard(formatter, func() error {
				return runCompile(cmd.Context(), opts, args[0], formatter)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "fragment to compile when the file holds several")
	cmd.Flags().IntVar(&opts.Lanes, "lanes", 1, "number of lanes to interleave")
	cmd.Flags().StringVar(&opts.Decls, "decls", "", "write declarations to this file")
	cmd.Flags().StringVar(&opts.Body, "body", "", "write the function body to this file")
	cmd.Flags().StringVar(&opts.Cache, "cache", "", "artifact cache database")
	cmd.Flags().BoolVar(&opts.NoOpt, "no-opt", false, "emit without optimizing")

	return cmd
}

func runCompile(ctx context.Context, opts *CompileOptions, path string, formatter *OutputFormatter) error {
	if opts.Lanes < 1 {
		return fail(formatter, ExitCommandError, ErrCodeFlag, fmt.Sprintf("--lanes must be at least 1, got %d", opts.Lanes))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	f, err := loadFragment(formatter, path, opts.Name)
	if err != nil {
		return err
	}

	result := &CompileResult{
		Fragment:    f.Name,
		Fingerprint: ir.Fingerprint(f),
		Lanes:       opts.Lanes,
	}
	result.ArtifactKey = ir.ArtifactKey(result.Fingerprint, opts.Lanes)

	// Unoptimized output would collide with optimized output under the
	// same key, so --no-opt never touches the cache.
	var st *store.Store
	if opts.Cache != "" && !opts.NoOpt {
		st, err = store.Open(opts.Cache)
		if err != nil {
			return fail(formatter, ExitCommandError, ErrCodeStore, err.Error())
		}
		defer st.Close()

		art, err := st.LookupArtifact(ctx, result.Fingerprint, opts.Lanes)
		switch {
		case err == nil:
			formatter.VerboseLog("Cache hit for %s (%s)", f.Name, art.Key)
			result.CacheHit = true
			result.Decls = art.Decls
			result.Body = art.Body
		case errors.Is(err, store.ErrNotFound):
			formatter.VerboseLog("Cache miss for %s", f.Name)
		default:
			return fail(formatter, ExitCommandError, ErrCodeStore, err.Error())
		}
	}

	if !result.CacheHit {
		if err := compileFragment(opts, f, result); err != nil {
			return fail(formatter, ExitCommandError, ErrCodeEmit, err.Error())
		}
	}

	if st != nil {
		if err := recordCompile(ctx, st, result); err != nil {
			return fail(formatter, ExitCommandError, ErrCodeStore, err.Error())
		}
	}

	if err := writeStream(opts.Decls, result.Decls); err != nil {
		return fail(formatter, ExitCommandError, ErrCodeGeneric, err.Error())
	}
	if err := writeStream(opts.Body, result.Body); err != nil {
		return fail(formatter, ExitCommandError, ErrCodeGeneric, err.Error())
	}

	opts.Logger().Info("compiled",
		"fragment", result.Fragment,
		"lanes", result.Lanes,
		"cache_hit", result.CacheHit,
	)
	return outputCompileSuccess(formatter, opts, result)
}

// compileFragment optimizes f (unless disabled) and emits it into result.
func compileFragment(opts *CompileOptions, f *ir.Fragment, result *CompileResult) error {
	if !opts.NoOpt {
		stats := opt.New(opt.WithLogger(opts.Logger())).Run(f)
		result.Stats = &stats
	}
	em, err := codegen.Emit(f, opts.Lanes, codegen.WithLogger(opts.Logger()))
	if err != nil {
		return err
	}
	result.Decls = em.Decls
	result.Body = em.Body
	return nil
}

// recordCompile stores a freshly emitted artifact and logs the run.
func recordCompile(ctx context.Context, st *store.Store, result *CompileResult) error {
	if !result.CacheHit {
		art := store.NewArtifact(result.Fragment, result.Fingerprint, result.Lanes, result.Decls, result.Body)
		if _, err := st.PutArtifact(ctx, art); err != nil {
			return err
		}
	}
	run := store.Run{
		Fragment:    result.Fragment,
		Fingerprint: result.Fingerprint,
		Lanes:       result.Lanes,
		ArtifactKey: result.ArtifactKey,
		CacheHit:    result.CacheHit,
	}
	if result.Stats != nil {
		run.Stats = *result.Stats
	}
	recorded, _, err := st.RecordRun(ctx, run)
	if err != nil {
		return err
	}
	result.RunID = recorded.ID
	return nil
}

func writeStream(path, text string) error {
	if path == "" {
		return nil
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}
	return nil
}

// outputCompileSuccess prints the emitted code, or a summary when both
// streams went to files.
func outputCompileSuccess(formatter *OutputFormatter, opts *CompileOptions, result *CompileResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	if result.Stats != nil {
		formatter.VerboseLog("Optimized %s: %d -> %d block(s), %d fold(s)",
			result.Fragment, result.Stats.BlocksBefore, result.Stats.BlocksAfter, result.Stats.Folds)
	}
	if opts.Decls == "" {
		fmt.Fprint(w, result.Decls)
	}
	if opts.Body == "" {
		fmt.Fprint(w, result.Body)
	}
	if opts.Decls != "" && opts.Body != "" {
		source := "emitted"
		if result.CacheHit {
			source = "from cache"
		}
		fmt.Fprintf(w, "✓ Compiled %s for %d lane(s) (%s)\n", result.Fragment, result.Lanes, source)
	}
	return nil
}
