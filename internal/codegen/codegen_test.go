package codegen

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/weave/internal/ir"
)

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// buildLoop builds a counting loop:
//
//	entry: i = 0; br loop
//	loop:  acc += i; i += 1; br loop if i < limit; br done
//	done:  emit(acc)
func buildLoop(threading ir.Threading) *ir.Fragment {
	f := ir.NewFragment("loop")
	limit := f.NewVar(ir.VarSpec{Name: "limit", Type: "int64_t", Const: true, Default: ir.Int(10)})
	acc := f.NewVar(ir.VarSpec{Name: "acc", Type: "int64_t", Default: ir.Int(0)})
	i := f.NewVar(ir.VarSpec{Name: "i", Type: "int64_t", Default: ir.Int(0)})

	entry := f.NewBlock("entry")
	loop := f.NewBlock("loop")
	done := f.NewBlock("done")

	toLoop := ir.Jump(loop)
	toLoop.Threading = threading
	entry.Append(ir.Set(i, ir.Int(0)), toLoop)
	loop.Append(
		ir.Set(acc, ir.Op("+", ir.RefOf(acc), ir.RefOf(i))),
		ir.Set(i, ir.Op("+", ir.RefOf(i), ir.Int(1))),
		ir.JumpIf(ir.Op("<", ir.RefOf(i), ir.RefOf(limit)), loop, ir.LikelihoodLikely),
		ir.Jump(done),
	)
	done.Append(ir.Do(ir.Call("emit", ir.RefOf(acc))))
	return f
}

func TestGenerate_Sequential(t *testing.T) {
	var decls, body bytes.Buffer
	require.NoError(t, Generate(buildLoop(ir.ThreadingIrrelevant), 1, &decls, &body, quiet()))

	assert.Equal(t, "int64_t acc;\nint64_t i;\n", decls.String())

	want := `{
  const int64_t limit = 10;
  acc = 0;
  i = 0;
  weave_blk0: {
    /* b0.entry */
    i = 0;
    goto weave_blk1;
  }
  weave_blk1: {
    /* b1.loop */
    acc = (acc + i);
    i = (i + 1);
    if (__builtin_expect(!!(i < limit), 1)) {
      goto weave_blk1;
    }
    goto weave_blk2;
  }
  weave_blk2: {
    /* b2.done */
    emit(acc);
    goto weave_epilogue;
  }
  weave_epilogue:;
}
`
	assert.Equal(t, want, body.String())
}

func TestGenerate_AppendsToStreams(t *testing.T) {
	decls := bytes.NewBufferString("/* existing */\n")
	body := bytes.NewBufferString("/* existing */\n")
	require.NoError(t, Generate(buildLoop(ir.ThreadingIrrelevant), 1, decls, body, quiet()))

	assert.True(t, strings.HasPrefix(decls.String(), "/* existing */\nint64_t acc;"))
	assert.True(t, strings.HasPrefix(body.String(), "/* existing */\n{"))
}

func TestGenerate_RejectsLaneCount(t *testing.T) {
	var decls, body bytes.Buffer
	err := Generate(buildLoop(ir.ThreadingIrrelevant), 0, &decls, &body, quiet())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lane count")
	assert.Empty(t, decls.String())
}

func TestGenerate_MultiLaneScheduler(t *testing.T) {
	em, err := Emit(buildLoop(ir.ThreadingMustYield), 2, quiet())
	require.NoError(t, err)

	assert.Equal(t, "int64_t acc[2];\nint64_t i[2];\n", em.Decls)

	body := em.Body
	for _, want := range []string{
		"  int weave_lane = 0;\n",
		"  int weave_running = 2;\n",
		"  int weave_state[2];\n",
		"  static const int weave_stride[3] = {1, 1, 1};\n",
		"  const int64_t limit = 10;\n",
		"  for (weave_lane = 0; weave_lane < 2; weave_lane++) {\n    weave_state[weave_lane] = 0;\n    acc[weave_lane] = 0;\n    i[weave_lane] = 0;\n  }\n",
		"  weave_dispatch:\n  switch (weave_state[weave_lane]) {\n" +
			"    case 0: goto weave_enter;\n" +
			"    case 1: goto weave_terminate;\n" +
			"    case 2: goto weave_dormant;\n" +
			"    case 3: goto weave_blk0;\n" +
			"    case 4: goto weave_blk1;\n" +
			"    case 5: goto weave_blk2;\n" +
			"    default: __builtin_unreachable();\n  }\n",
		"  weave_yield:\n  weave_steps++;\n  if (weave_steps <= 4) {\n" +
			"    weave_lane = (weave_lane + weave_stride[weave_steps % 3]) % 2;\n" +
			"  } else {\n    weave_lane = (weave_lane + 1) % 2;\n  }\n  goto weave_dispatch;\n",
		"  weave_enter:\n  weave_state[weave_lane] = 3;\n  goto weave_blk0;\n",
		"  weave_terminate:\n  weave_running--;\n  weave_state[weave_lane] = 2;\n  goto weave_yield;\n",
		"  weave_dormant:\n  if (weave_running == 0) goto weave_epilogue;\n  goto weave_yield;\n",
		// MustYield: record the resume point, then rotate.
		"    i[weave_lane] = 0;\n    weave_state[weave_lane] = 4;\n    goto weave_yield;\n",
		// Irrelevant: record the resume point, then dispatch the same lane.
		"    if (__builtin_expect(!!(i[weave_lane] < limit), 1)) {\n      weave_state[weave_lane] = 4;\n      goto weave_dispatch;\n    }\n",
		// Implicit exit.
		"    emit(acc[weave_lane]);\n    weave_state[weave_lane] = 1;\n    goto weave_dispatch;\n",
		"  weave_epilogue:;\n}\n",
	} {
		assert.Contains(t, body, want)
	}
}

func TestGenerate_NeverYieldFallsThrough(t *testing.T) {
	em, err := Emit(buildLoop(ir.ThreadingNeverYield), 3, quiet())
	require.NoError(t, err)
	assert.Contains(t, em.Body, "    weave_state[weave_lane] = 4;\n    goto weave_blk1;\n")
}

func TestGenerate_RotationWithoutWarmup(t *testing.T) {
	em, err := Emit(buildLoop(ir.ThreadingMustYield), 4, quiet(), WithRotation(Rotation{}))
	require.NoError(t, err)
	assert.NotContains(t, em.Body, StrideVar)
	assert.Contains(t, em.Body, "  weave_yield:\n  weave_steps++;\n  weave_lane = (weave_lane + 1) % 4;\n  goto weave_dispatch;\n")
}

func TestGenerate_NegativeStride(t *testing.T) {
	_, err := Emit(buildLoop(ir.ThreadingMustYield), 4, quiet(), WithRotation(Rotation{Warmup: 2, Strides: []int{-1}}))
	require.Error(t, err)
}

func TestGenerate_MissingDispatchPanics(t *testing.T) {
	f := ir.NewFragment("broken")
	other := ir.NewFragment("other")
	f.NewBlock("entry").Append(ir.Jump(other.NewBlock("elsewhere")))

	var decls, body bytes.Buffer
	var recovered any
	func() {
		defer func() { recovered = recover() }()
		_ = Generate(f, 4, &decls, &body, quiet())
	}()

	ie := ir.AsInvariantError(recovered)
	require.NotNil(t, ie)
	assert.Equal(t, ir.ErrMissingDispatch, ie.Code)
	assert.Empty(t, decls.String(), "no partial output")
	assert.Empty(t, body.String(), "no partial output")
}

// Scenario: a Local variable touched only by two of six blocks, emitted
// for four lanes, is a single per-lane field and never a stack variable.
func TestGenerate_SharedLocalIsLaneField(t *testing.T) {
	f := ir.NewFragment("shared")
	x := f.NewVar(ir.VarSpec{Name: "x", Type: "int64_t", Default: ir.Int(0)})
	tmp := f.NewVar(ir.VarSpec{Name: "tmp", Type: "int64_t", Default: ir.Int(7)})

	blocks := make([]*ir.Block, 6)
	for i := range blocks {
		blocks[i] = f.NewBlock("")
	}
	for i := 0; i < 5; i++ {
		blocks[i].Append(ir.Jump(blocks[i+1]))
	}
	blocks[2].Stmts = append([]ir.Stmt{ir.Set(x, ir.Int(1))}, blocks[2].Stmts...)
	blocks[5].Append(ir.Do(ir.Call("emit", ir.RefOf(x), ir.RefOf(tmp))))

	p := Place(f)
	assert.Equal(t, ClassLane, p.Class(x))
	assert.Nil(t, p.Home(x))
	assert.Equal(t, ClassStack, p.Class(tmp))
	assert.Same(t, blocks[5], p.Home(tmp))

	em, err := Emit(f, 4, quiet())
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(em.Decls, "int64_t x[4];"))
	assert.Equal(t, 1, strings.Count(em.Decls+em.Body, "int64_t x"))
	assert.Contains(t, em.Body, "x[weave_lane] = 1;")
	assert.Contains(t, em.Body, "emit(x[weave_lane], tmp);")
	assert.Contains(t, em.Body, "    /* b5 */\n    int64_t tmp = 7;\n")
}

func TestGenerate_ThreadWideConstructedOnce(t *testing.T) {
	f := ir.NewFragment("thread")
	table := f.NewVar(ir.VarSpec{Name: "table", Type: "table_t*", Scope: ir.ScopeThreadWide})
	table.Init = ir.Call("table_new", ir.Int(64))
	table.Ctor = []ir.Stmt{ir.Do(ir.Call("table_clear", ir.RefOf(table)))}
	f.NewBlock("entry").Append(ir.Do(ir.Call("probe", ir.RefOf(table))))

	for _, lanes := range []int{1, 2} {
		em, err := Emit(f, lanes, quiet())
		require.NoError(t, err)
		assert.Equal(t, "int weave_constructed;\ntable_t* table;\n", em.Decls)
		assert.Contains(t, em.Body,
			"  if (!weave_constructed) {\n    weave_constructed = 1;\n    table = table_new(64);\n    table_clear(table);\n  }\n")
		assert.Contains(t, em.Body, "probe(table);")
	}
}

// buildStaged builds constants read from a thread field and a lane field:
//
//	ht thread = make_table()
//	y = 5
//	n const = size(ht) + y
//	m const = size(ht)
func buildStaged() *ir.Fragment {
	f := ir.NewFragment("staged")
	ht := f.NewVar(ir.VarSpec{Name: "ht", Type: "table_t*", Scope: ir.ScopeThreadWide})
	ht.Init = ir.Call("make_table")
	y := f.NewVar(ir.VarSpec{Name: "y", Type: "int", Default: ir.Int(5)})
	n := f.NewVar(ir.VarSpec{Name: "n", Type: "int", Const: true})
	n.Init = ir.Op("+", ir.Call("size", ir.RefOf(ht)), ir.RefOf(y))
	m := f.NewVar(ir.VarSpec{Name: "m", Type: "int", Const: true, Default: ir.Call("size", ir.RefOf(ht))})
	f.NewBlock("entry").Append(ir.Do(ir.Call("use", ir.RefOf(n), ir.RefOf(m))))
	return f
}

func TestGenerate_ConstantsFollowFieldConstruction(t *testing.T) {
	em, err := Emit(buildStaged(), 1, quiet())
	require.NoError(t, err)

	assert.Equal(t, "int weave_constructed;\ntable_t* ht;\nint y;\nint n;\n", em.Decls)
	want := `{
  if (!weave_constructed) {
    weave_constructed = 1;
    ht = make_table();
  }
  y = 5;
  n = (size(ht) + y);
  const int m = size(ht);
  weave_blk0: {
    /* b0.entry */
    use(n, m);
    goto weave_epilogue;
  }
  weave_epilogue:;
}
`
	assert.Equal(t, want, em.Body)
}

func TestGenerate_LaneDependentConstantPerLane(t *testing.T) {
	em, err := Emit(buildStaged(), 2, quiet())
	require.NoError(t, err)

	assert.Equal(t, "int weave_constructed;\ntable_t* ht;\nint y[2];\nint n[2];\n", em.Decls)
	assert.Contains(t, em.Body,
		"    y[weave_lane] = 5;\n    n[weave_lane] = (size(ht) + y[weave_lane]);\n  }\n"+
			"  weave_lane = 0;\n  const int m = size(ht);\n")
	assert.Contains(t, em.Body, "use(n[weave_lane], m);")
	assert.NotContains(t, em.Body, "const int n")

	guard := strings.Index(em.Body, "ht = make_table();")
	perLane := strings.Index(em.Body, "for (weave_lane = 0;")
	require.NotEqual(t, -1, guard)
	assert.Less(t, guard, perLane)
}

func TestGenerate_CommentsAndPlain(t *testing.T) {
	f := ir.NewFragment("text")
	f.NewBlock("entry").Append(
		ir.Note("closes */ early"),
		&ir.Plain{Text: "asm volatile(\"\");"},
		ir.If(ir.Call("ready"), ir.Do(ir.Call("go"))),
		&ir.InlineTarget{},
		ir.ExitIf(ir.Lit("stop"), ir.LikelihoodUnlikely),
		ir.Exit(),
	)
	em, err := Emit(f, 1, quiet())
	require.NoError(t, err)
	assert.Contains(t, em.Body, "/* closes * / early */")
	assert.Contains(t, em.Body, "    asm volatile(\"\");\n")
	assert.Contains(t, em.Body, "    if (ready()) {\n      go();\n    }\n")
	assert.Contains(t, em.Body, "    if (__builtin_expect(!!(stop), 0)) {\n      goto weave_epilogue;\n    }\n")
	assert.Equal(t, 2, strings.Count(em.Body, "goto weave_epilogue;"), "terminated block gets no implicit exit")
}

func TestGenerate_EmptyFragment(t *testing.T) {
	f := ir.NewFragment("empty")
	em, err := Emit(f, 1, quiet())
	require.NoError(t, err)
	assert.Equal(t, "{\n  weave_epilogue:;\n}\n", em.Body)

	em, err = Emit(f, 2, quiet())
	require.NoError(t, err)
	assert.Contains(t, em.Body, "  weave_enter:\n  weave_state[weave_lane] = 1;\n  goto weave_dispatch;\n")
}

func TestGenerate_Reentrant(t *testing.T) {
	f := buildLoop(ir.ThreadingMustYield)
	a, err := Emit(f, 3, quiet())
	require.NoError(t, err)
	b, err := Emit(f, 3, quiet())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
