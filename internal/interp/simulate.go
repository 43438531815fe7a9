package interp

import (
	"fmt"

	"github.com/roach88/weave/internal/codegen"
	"github.com/roach88/weave/internal/ir"
)

// Reserved scheduler states, mirroring the emitted dispatch table.
const (
	stateEnter     = codegen.StateEnter
	stateTerminate = codegen.StateTerminate
	stateDormant   = codegen.StateDormant
	firstBlock     = codegen.FirstBlockState
)

// Schedule is the outcome of a multi-lane simulation.
type Schedule struct {
	// Lanes holds each lane's own side-effect trace.
	Lanes [][]string `json:"lanes"`
	// Dispatches counts passes through the dispatch switch.
	Dispatches int `json:"dispatches"`
	// Yields counts lane rotations.
	Yields int `json:"yields"`
	// Order lists the lane of every block execution, in execution order.
	Order []int `json:"order"`
}

// Simulate runs lanes copies of f under a model of the emitted
// cooperative scheduler until every lane has terminated and the
// scheduler reaches its epilogue. All lanes share the oracle but keep
// separate question counts, so each lane on its own behaves exactly like
// Run.
func Simulate(f *ir.Fragment, lanes int, oracle Oracle, rot codegen.Rotation, opts ...Option) (*Schedule, error) {
	if lanes < 1 {
		return nil, fmt.Errorf("lane count must be positive, got %d", lanes)
	}
	cfg := newConfig(opts)

	blocks := f.Blocks()
	state := make(map[*ir.Block]int, len(blocks))
	for i, b := range blocks {
		state[b] = firstBlock + i
	}

	ls := make([]*lane, lanes)
	for i := range ls {
		ls[i] = newLane(f, oracle)
	}
	resume := make([]int, lanes)
	running := lanes
	cur := 0
	sched := &Schedule{}
	work := 0

	finish := func() *Schedule {
		sched.Lanes = make([][]string, lanes)
		for i, l := range ls {
			sched.Lanes[i] = l.trace
		}
		return sched
	}
	limit := func() error {
		work++
		if work > cfg.maxSteps {
			return &StepLimitError{Fragment: f.Name, Limit: cfg.maxSteps}
		}
		return nil
	}

	for {
		if err := limit(); err != nil {
			return finish(), err
		}
		sched.Dispatches++

		var b *ir.Block
		yield := false
		switch s := resume[cur]; {
		case s == stateEnter:
			b = f.Entry()
			if b == nil {
				resume[cur] = stateTerminate
				continue
			}
			resume[cur] = firstBlock
		case s == stateTerminate:
			running--
			resume[cur] = stateDormant
			yield = true
		case s == stateDormant:
			if running == 0 {
				return finish(), nil
			}
			yield = true
		default:
			idx := s - firstBlock
			if idx < 0 || idx >= len(blocks) {
				panic(ir.Invariantf(ir.ErrMissingDispatch, "lane %d resumed at unknown state %d", cur, s))
			}
			b = blocks[idx]
		}

		// Run blocks on this lane until it dispatches or yields.
		for b != nil {
			if err := limit(); err != nil {
				return finish(), err
			}
			sched.Order = append(sched.Order, cur)
			tr, err := ls[cur].execBlock(b)
			if err != nil {
				return finish(), err
			}
			b = nil
			if tr.target == nil {
				resume[cur] = stateTerminate
				break
			}
			next, ok := state[tr.target]
			if !ok {
				panic(ir.Invariantf(ir.ErrMissingDispatch, "branch to %s has no dispatch state", ir.BlockName(tr.target)))
			}
			resume[cur] = next
			switch tr.threading {
			case ir.ThreadingMustYield:
				yield = true
			case ir.ThreadingNeverYield:
				b = tr.target
			}
		}

		if yield {
			sched.Yields++
			cur = rot.Next(cur, sched.Yields, lanes)
		}
	}
}
