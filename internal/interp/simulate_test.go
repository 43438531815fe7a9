package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/weave/internal/codegen"
	"github.com/roach88/weave/internal/ir"
	"github.com/roach88/weave/internal/testutil"
)

func TestSimulate_RoundRobin(t *testing.T) {
	f := testutil.Chain(2, ir.ThreadingMustYield)
	s, err := Simulate(f, 2, Always(false), codegen.Rotation{})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 0, 1}, s.Order, "lanes interleave at yield points")
	assert.Equal(t, 7, s.Dispatches)
	assert.Equal(t, 4, s.Yields)
	for _, trace := range s.Lanes {
		assert.Equal(t, []string{"do step(0)", "do step(1)"}, trace)
	}
}

func TestSimulate_IrrelevantKeepsLane(t *testing.T) {
	f := testutil.Chain(3, ir.ThreadingIrrelevant)
	s, err := Simulate(f, 2, Always(false), codegen.Rotation{})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 1, 1, 1}, s.Order)
}

func TestSimulate_NeverYieldSkipsDispatch(t *testing.T) {
	direct, err := Simulate(testutil.Chain(4, ir.ThreadingNeverYield), 1, Always(false), codegen.Rotation{})
	require.NoError(t, err)
	dispatched, err := Simulate(testutil.Chain(4, ir.ThreadingIrrelevant), 1, Always(false), codegen.Rotation{})
	require.NoError(t, err)

	assert.Equal(t, direct.Lanes, dispatched.Lanes)
	assert.Less(t, direct.Dispatches, dispatched.Dispatches)
}

// Every lane, interleaved or not, sees exactly the single-lane trace.
func TestSimulate_LanesMatchSequentialRun(t *testing.T) {
	oracle := OracleFunc(testutil.BoundedOracle(3))
	for seed := int64(0); seed < 100; seed++ {
		f := testutil.RandomFragment(seed)
		want, err := Run(f, oracle)
		require.NoError(t, err, "seed %d", seed)

		for _, lanes := range []int{1, 2, 3, 5} {
			s, err := Simulate(f, lanes, oracle, codegen.DefaultRotation(lanes))
			require.NoError(t, err, "seed %d lanes %d", seed, lanes)
			require.Len(t, s.Lanes, lanes)
			for lane, trace := range s.Lanes {
				assert.Equal(t, want.Trace, trace, "seed %d lanes %d lane %d", seed, lanes, lane)
			}
		}
	}
}

// The scheduler reaches its epilogue within a number of dispatches
// bounded by lanes x states per lane.
func TestSimulate_Liveness(t *testing.T) {
	for _, threading := range []ir.Threading{ir.ThreadingMustYield, ir.ThreadingIrrelevant, ir.ThreadingNeverYield} {
		for states := 1; states <= 6; states++ {
			for lanes := 1; lanes <= 8; lanes++ {
				rot := codegen.DefaultRotation(lanes)
				s, err := Simulate(testutil.Chain(states, threading), lanes, Always(false), rot)
				require.NoError(t, err)

				bound := rot.Warmup + lanes*lanes*(states+codegen.FirstBlockState)
				assert.LessOrEqual(t, s.Dispatches, bound,
					"threading %s states %d lanes %d", threading, states, lanes)
				assert.Len(t, s.Order, lanes*states)
			}
		}
	}
}

func TestSimulate_RejectsLaneCount(t *testing.T) {
	_, err := Simulate(testutil.Diamond(), 0, Always(true), codegen.Rotation{})
	require.Error(t, err)
}

func TestSimulate_StepLimit(t *testing.T) {
	_, err := Simulate(testutil.Loop(ir.ThreadingMustYield), 2, Always(true), codegen.DefaultRotation(2), WithMaxSteps(100))
	require.Error(t, err)
	assert.True(t, IsStepLimitError(err))
}

func TestSimulate_EmptyFragment(t *testing.T) {
	s, err := Simulate(ir.NewFragment("empty"), 3, Always(true), codegen.DefaultRotation(3))
	require.NoError(t, err)
	assert.Empty(t, s.Order)
}
