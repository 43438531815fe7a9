package codegen

import "fmt"

// Reserved identifiers of the emitted code. Surrounding generated code
// refers to these verbatim.
const (
	LaneVar        = "weave_lane"
	StateVar       = "weave_state"
	RunningVar     = "weave_running"
	StepsVar       = "weave_steps"
	StrideVar      = "weave_stride"
	ConstructedVar = "weave_constructed"
)

// Reserved labels.
const (
	DispatchLabel  = "weave_dispatch"
	YieldLabel     = "weave_yield"
	EnterLabel     = "weave_enter"
	TerminateLabel = "weave_terminate"
	DormantLabel   = "weave_dormant"
	EpilogueLabel  = "weave_epilogue"
	blockLabelFmt  = "weave_blk%d"
)

// Reserved scheduler states. Surviving block N resumes at state
// FirstBlockState+N.
const (
	StateEnter      = 0
	StateTerminate  = 1
	StateDormant    = 2
	FirstBlockState = 3
)

// BlockLabel returns the label of the block at position n among the
// surviving blocks.
func BlockLabel(n int) string {
	return fmt.Sprintf(blockLabelFmt, n)
}
