package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/weave/internal/codegen"
	"github.com/roach88/weave/internal/interp"
	"github.com/roach88/weave/internal/opt"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Name     string
	Lanes    int
	Outcomes []string
	NoOpt    bool
	MaxSteps int
}

// TraceResult holds the single-lane run and, for several lanes, the
// scheduler simulation.
type TraceResult struct {
	Fragment string           `json:"fragment"`
	Lanes    int              `json:"lanes"`
	Run      *interp.Result   `json:"run"`
	Schedule *interp.Schedule `json:"schedule,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <fragment>",
		Short: "Interpret a fragment and print its side effects",
		Long: `Interpret a fragment and print the statements it executes.

Branch conditions are not evaluated; their outcomes come from --outcomes
sequences keyed by the condition as printed, e.g. "(i < limit)". The
n-th evaluation of a condition takes the n-th value, the last value
repeats, and unknown conditions are false.

With --lanes greater than one, the lane scheduler is simulated as well
and every lane's trace is printed with the dispatch order.

Examples:
  weave trace loop.yaml --outcomes "(i < limit)=true,true,false"
  weave trace probe.cue --lanes 4 --outcomes "(pos >= end)=0,0,1"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return guard(formatter, func() error {
				return runTrace(opts, args[0], formatter)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "fragment to trace when the file holds several")
	cmd.Flags().IntVar(&opts.Lanes, "lanes", 1, "number of lanes to simulate")
	cmd.Flags().StringArrayVar(&opts.Outcomes, "outcomes", nil, "branch outcomes as cond=bool[,bool...] (repeatable)")
	cmd.Flags().BoolVar(&opts.NoOpt, "no-opt", false, "trace the fragment as loaded")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", interp.DefaultMaxSteps, "block executions before giving up")

	return cmd
}

func runTrace(opts *TraceOptions, path string, formatter *OutputFormatter) error {
	if opts.Lanes < 1 {
		return fail(formatter, ExitCommandError, ErrCodeFlag, fmt.Sprintf("--lanes must be at least 1, got %d", opts.Lanes))
	}
	oracle, err := parseOutcomes(opts.Outcomes)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeFlag, err.Error())
	}

	f, err := loadFragment(formatter, path, opts.Name)
	if err != nil {
		return err
	}
	if !opts.NoOpt {
		opt.New(opt.WithLogger(opts.Logger())).Run(f)
	}

	result := TraceResult{Fragment: f.Name, Lanes: opts.Lanes}
	result.Run, err = interp.Run(f, oracle, interp.WithMaxSteps(opts.MaxSteps))
	if err != nil {
		return fail(formatter, ExitFailure, ErrCodeInterp, err.Error())
	}
	if opts.Lanes > 1 {
		result.Schedule, err = interp.Simulate(f, opts.Lanes, oracle, codegen.DefaultRotation(opts.Lanes), interp.WithMaxSteps(opts.MaxSteps))
		if err != nil {
			return fail(formatter, ExitFailure, ErrCodeInterp, err.Error())
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	outputTraceText(formatter.Writer, result)
	return nil
}

func outputTraceText(w io.Writer, result TraceResult) {
	fmt.Fprintf(w, "Trace: %s\n", result.Fragment)
	fmt.Fprintf(w, "Path: %s\n\n", strings.Join(result.Run.Path, " -> "))
	for i, stmt := range result.Run.Trace {
		fmt.Fprintf(w, "  [%d] %s\n", i+1, stmt)
	}
	fmt.Fprintf(w, "\n%d statement(s), %d block execution(s)\n", len(result.Run.Trace), result.Run.Steps)

	if result.Schedule == nil {
		return
	}
	s := result.Schedule
	fmt.Fprintf(w, "\nLanes: %d (%d dispatch(es), %d yield(s))\n", result.Lanes, s.Dispatches, s.Yields)
	for lane, trace := range s.Lanes {
		fmt.Fprintf(w, "  lane %d: %d statement(s)\n", lane, len(trace))
	}
	fmt.Fprintf(w, "Order: %s\n", formatOrder(s.Order))
}

func formatOrder(order []int) string {
	parts := make([]string, len(order))
	for i, lane := range order {
		parts[i] = fmt.Sprint(lane)
	}
	return strings.Join(parts, " ")
}
