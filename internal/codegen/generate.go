package codegen

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/weave/internal/ir"
)

// Option configures code generation.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	rotation *Rotation
}

// WithLogger sets the logger for emission summaries.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRotation overrides the multi-lane rotation policy.
//
// Default: DefaultRotation(lanes)
func WithRotation(r Rotation) Option {
	return func(o *options) {
		o.rotation = &r
	}
}

// Emission is the generated code for one fragment.
type Emission struct {
	// Decls holds the per-thread and per-lane field declarations.
	Decls string `json:"decls"`
	// Body holds the function implementation.
	Body string `json:"body"`
	// Lanes is the lane count the code was generated for.
	Lanes int `json:"lanes"`
}

// Emit generates code for f with the requested number of lanes: plain
// sequential code for one lane, a cooperative scheduler for more.
//
// Internal-invariant violations in f (for example a branch to a block
// that is not part of f) panic with *ir.InvariantError.
func Emit(f *ir.Fragment, lanes int, opts ...Option) (*Emission, error) {
	if lanes < 1 {
		return nil, fmt.Errorf("lane count must be positive, got %d", lanes)
	}
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	rot := DefaultRotation(lanes)
	if o.rotation != nil {
		rot = *o.rotation
	}
	for _, s := range rot.Strides {
		if s < 0 {
			return nil, fmt.Errorf("rotation stride must not be negative, got %d", s)
		}
	}

	g := newGenerator(f, lanes, rot)
	if g.multi() {
		g.emitMultiLane()
	} else {
		g.emitSequential()
	}

	o.logger.Debug("fragment emitted",
		"fragment", f.Name,
		"lanes", lanes,
		"blocks", len(f.Blocks()),
		"lane_fields", len(g.fields(ClassLane)),
		"thread_fields", len(g.fields(ClassThread)),
	)
	return &Emission{Decls: g.decls.String(), Body: g.body.String(), Lanes: lanes}, nil
}

// Generate emits f and appends the declaration and body streams to decls
// and body. Nothing is written unless generation succeeds as a whole.
func Generate(f *ir.Fragment, lanes int, decls, body io.Writer, opts ...Option) error {
	em, err := Emit(f, lanes, opts...)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(decls, em.Decls); err != nil {
		return fmt.Errorf("write declarations: %w", err)
	}
	if _, err := io.WriteString(body, em.Body); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}
