package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/weave/internal/ir"
	"github.com/roach88/weave/internal/opt"
)

// OptimizeOptions holds flags for the optimize command.
type OptimizeOptions struct {
	*RootOptions
	Name       string
	MaxRounds  int
	CopyRounds int
}

// OptimizeResult holds the optimized IR and the optimizer statistics.
type OptimizeResult struct {
	Fragment string    `json:"fragment"`
	Before   string    `json:"before,omitempty"`
	IR       string    `json:"ir"`
	Stats    opt.Stats `json:"stats"`
}

// NewOptimizeCommand creates the optimize command.
func NewOptimizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OptimizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "optimize <fragment>",
		Short: "Run the block-inlining optimizer and print the IR",
		Long: `Run the block-inlining optimizer on a fragment and print the result.

The optimizer folds blocks reached by exactly one branch into that
branch, repeats to a fixed point, then runs a few copy-inline rounds
for blocks marked inline_target and a final normal phase. The IR is
printed in its textual dump form, followed by the round statistics.

Examples:
  weave optimize probe.cue
  weave optimize probe.cue --copy-rounds 0
  weave optimize probe.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return guard(formatter, func() error {
				return runOptimize(opts, args[0], formatter)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "fragment to optimize when the file holds several")
	cmd.Flags().IntVar(&opts.MaxRounds, "max-rounds", opt.DefaultMaxRounds, "round quota per normal phase")
	cmd.Flags().IntVar(&opts.CopyRounds, "copy-rounds", opt.DefaultCopyRounds, "number of copy-inline rounds")

	return cmd
}

func runOptimize(opts *OptimizeOptions, path string, formatter *OutputFormatter) error {
	if opts.MaxRounds < 1 {
		return fail(formatter, ExitCommandError, ErrCodeFlag, fmt.Sprintf("--max-rounds must be at least 1, got %d", opts.MaxRounds))
	}
	if opts.CopyRounds < 0 {
		return fail(formatter, ExitCommandError, ErrCodeFlag, fmt.Sprintf("--copy-rounds must not be negative, got %d", opts.CopyRounds))
	}

	f, err := loadFragment(formatter, path, opts.Name)
	if err != nil {
		return err
	}

	result := OptimizeResult{Fragment: f.Name}
	if opts.Verbose {
		result.Before = ir.Dump(f)
	}
	result.Stats = opt.New(
		opt.WithLogger(opts.Logger()),
		opt.WithMaxRounds(opts.MaxRounds),
		opt.WithCopyRounds(opts.CopyRounds),
	).Run(f)
	result.IR = ir.Dump(f)

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	if result.Before != "" {
		fmt.Fprintln(w, "-- before --")
		fmt.Fprint(w, result.Before)
		fmt.Fprintln(w, "-- after --")
	}
	fmt.Fprint(w, result.IR)
	fmt.Fprintln(w)
	printStats(w, result.Stats)
	return nil
}

func printStats(w io.Writer, s opt.Stats) {
	fmt.Fprintf(w, "Blocks: %d -> %d (%d removed, %d fold(s))\n", s.BlocksBefore, s.BlocksAfter, s.Removed, s.Folds)
	fmt.Fprintf(w, "Rounds: %d normal, %d copy, %d final\n", s.NormalRounds, s.CopyRounds, s.FinalRounds)
	fmt.Fprintf(w, "Dead statements: %d\n", s.DeadStmts)
	fmt.Fprintf(w, "Findings: %d before, %d after\n", s.ViolationsBefore, s.ViolationsAfter)
	if s.QuotaExceeded {
		fmt.Fprintln(w, "Round quota exceeded")
	}
}
