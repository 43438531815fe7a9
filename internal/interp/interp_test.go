package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/weave/internal/ir"
	"github.com/roach88/weave/internal/testutil"
)

func TestRun_Loop(t *testing.T) {
	f := testutil.Loop(ir.ThreadingIrrelevant)
	res, err := Run(f, Outcomes{"(i < limit)": {true, false}})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"i = 0",
		"acc = (acc + i)",
		"i = (i + 1)",
		"acc = (acc + i)",
		"i = (i + 1)",
		"do emit(acc)",
	}, res.Trace)
	assert.Equal(t, 4, res.Steps)
	assert.Equal(t, []string{"b0.entry", "b1.loop", "b1.loop", "b2.done"}, res.Path)
}

func TestRun_PredicatedAndScopes(t *testing.T) {
	f := ir.NewFragment("nested")
	b0 := f.NewBlock("entry")
	b1 := f.NewBlock("after")
	b0.Append(
		ir.Note("ignored"),
		&ir.InlineTarget{},
		ir.If(ir.Lit("p"), ir.Do(ir.Call("taken")), ir.Jump(b1), ir.Do(ir.Call("dead"))),
		&ir.Scope{Body: []ir.Stmt{&ir.Plain{Text: "raw();"}}},
	)
	b1.Append(ir.Do(ir.Call("after")))

	res, err := Run(f, Outcomes{"p": {false}})
	require.NoError(t, err)
	assert.Equal(t, []string{"plain raw();"}, res.Trace, "falling off the entry exits")

	res, err = Run(f, Outcomes{"p": {true}})
	require.NoError(t, err)
	assert.Equal(t, []string{"do taken()", "do after()"}, res.Trace)
}

func TestRun_ConditionalExit(t *testing.T) {
	f := ir.NewFragment("exit")
	f.NewBlock("entry").Append(ir.ExitIf(ir.Lit("stop"), ir.LikelihoodUnlikely), ir.Do(ir.Call("work")))

	res, err := Run(f, Always(true))
	require.NoError(t, err)
	assert.Empty(t, res.Trace)

	res, err = Run(f, Always(false))
	require.NoError(t, err)
	assert.Equal(t, []string{"do work()"}, res.Trace)
}

func TestRun_StepLimit(t *testing.T) {
	f := testutil.Loop(ir.ThreadingIrrelevant)
	_, err := Run(f, Always(true), WithMaxSteps(50))
	require.Error(t, err)
	assert.True(t, IsStepLimitError(err))
}

func TestRun_EmptyFragment(t *testing.T) {
	res, err := Run(ir.NewFragment("empty"), Always(true))
	require.NoError(t, err)
	assert.Empty(t, res.Trace)
	assert.Zero(t, res.Steps)
}

func TestRun_ForeignBranch(t *testing.T) {
	f := ir.NewFragment("foreign")
	other := ir.NewFragment("other")
	f.NewBlock("entry").Append(ir.Jump(other.NewBlock("x")))

	_, err := Run(f, Always(true))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown block")
}

func TestOutcomes(t *testing.T) {
	o := Outcomes{"c": {true, false, true}}
	assert.True(t, o.Outcome("c", 0))
	assert.False(t, o.Outcome("c", 1))
	assert.True(t, o.Outcome("c", 2))
	assert.True(t, o.Outcome("c", 9), "last answer repeats")
	assert.False(t, o.Outcome("missing", 0))
}
