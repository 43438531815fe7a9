package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBlock_AlwaysAllocates(t *testing.T) {
	f := NewFragment("scan")

	a := f.NewBlock("loop")
	b := f.NewBlock("loop")

	assert.NotSame(t, a, b, "same label must still yield distinct blocks")
	assert.Equal(t, []*Block{a, b}, f.Blocks())
	assert.Same(t, a, f.Entry())
	assert.Equal(t, 0, a.ID())
	assert.Equal(t, 1, b.ID())
}

func TestEntry_EmptyFragment(t *testing.T) {
	assert.Nil(t, NewFragment("empty").Entry())
}

func TestTryNewVar_Idempotent(t *testing.T) {
	f := NewFragment("agg")

	first := f.TryNewVar(VarSpec{Name: "sum", Type: "int64_t"})
	second := f.TryNewVar(VarSpec{Name: "sum", Type: "double", Scope: ScopeThreadWide})

	assert.Same(t, first, second)
	assert.Equal(t, "int64_t", second.Type, "existing variable is returned unchanged")
	assert.Len(t, f.Vars(), 1)
}

func TestNewVar_DuplicatePanics(t *testing.T) {
	f := NewFragment("agg")
	f.NewVar(VarSpec{Name: "sum", Type: "int64_t"})

	defer func() {
		ie := AsInvariantError(recover())
		require.NotNil(t, ie, "duplicate NewVar must panic with an InvariantError")
		assert.Equal(t, ErrDuplicateVariable, ie.Code)
		assert.Contains(t, ie.Error(), "sum")
	}()
	f.NewVar(VarSpec{Name: "sum", Type: "int64_t"})
}

func TestCloneVar_DropsConstruction(t *testing.T) {
	f := NewFragment("join")
	src := f.NewVar(VarSpec{
		Name:      "cursor",
		Type:      "uint32_t",
		Scope:     ScopeThreadWide,
		Const:     false,
		NoPromote: true,
		Default:   Int(0),
	})
	src.Init = Call("open_cursor")
	src.Ctor = []Stmt{Do(Call("prefetch", RefOf(src)))}

	clone := f.CloneVar("cursor_1", src)

	assert.NotSame(t, src, clone)
	assert.Equal(t, "cursor_1", clone.Name)
	assert.Equal(t, src.Type, clone.Type)
	assert.Equal(t, src.Scope, clone.Scope)
	assert.Equal(t, src.Const, clone.Const)
	assert.Same(t, src.Default, clone.Default, "default expression is a shared value")
	assert.Nil(t, clone.Init)
	assert.Empty(t, clone.Ctor)
	assert.False(t, clone.HasConstruction())
	assert.True(t, src.HasConstruction())
}

func TestVarLookup(t *testing.T) {
	f := NewFragment("x")
	v := f.NewVar(VarSpec{Name: "a", Type: "int"})

	got, ok := f.Var("a")
	assert.True(t, ok)
	assert.Same(t, v, got)

	_, ok = f.Var("b")
	assert.False(t, ok)
}

func TestRemoveBlocks_KeepsEntryAndOrder(t *testing.T) {
	f := NewFragment("x")
	b0 := f.NewBlock("b0")
	b1 := f.NewBlock("b1")
	b2 := f.NewBlock("b2")
	b3 := f.NewBlock("b3")

	removed := f.RemoveBlocks(func(b *Block) bool { return b != b2 })

	assert.Equal(t, 2, removed, "entry is never dropped")
	assert.Equal(t, []*Block{b0, b2}, f.Blocks())
	assert.True(t, f.Owns(b0))
	assert.False(t, f.Owns(b1))
	assert.False(t, f.Owns(b3))
}
