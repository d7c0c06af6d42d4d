package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyggelang/hyggec/pkg/ir"
)

func moduleWithBody(body []ir.Instr) *ir.Module {
	m := ir.NewModule("test")
	_ = m.AddFunction(&ir.Function{Label: "main", Sig: &ir.FuncType{}, Body: body})
	return m
}

func TestPeepholePushDropElimination(t *testing.T) {
	m := moduleWithBody([]ir.Instr{ir.I32Const(1), ir.Drop(), ir.I32Const(2)})
	changed, err := NewPeepholePass().Run(m)
	require.NoError(t, err)
	assert.True(t, changed)

	fn, _ := m.Function("main")
	assert.Equal(t, []ir.Instr{ir.I32Const(2)}, fn.Body)
}

func TestPeepholeSetGetCollapsesToTee(t *testing.T) {
	m := moduleWithBody([]ir.Instr{ir.I32Const(1), ir.LocalSet("x"), ir.LocalGet("x")})
	changed, err := NewPeepholePass().Run(m)
	require.NoError(t, err)
	assert.True(t, changed)

	fn, _ := m.Function("main")
	require.Len(t, fn.Body, 2)
	assert.Equal(t, ir.LocalTee("x"), fn.Body[1])
}

func TestPeepholeDeadCodeAfterExit(t *testing.T) {
	m := moduleWithBody([]ir.Instr{ir.Return(), ir.I32Const(1), ir.Drop()})
	changed, err := NewPeepholePass().Run(m)
	require.NoError(t, err)
	assert.True(t, changed)

	fn, _ := m.Function("main")
	assert.Equal(t, []ir.Instr{ir.Return()}, fn.Body)
}

func TestPeepholeConstantConditionFoldsToThenBranch(t *testing.T) {
	then := []ir.Instr{ir.I32Const(10)}
	els := []ir.Instr{ir.I32Const(20)}
	m := moduleWithBody([]ir.Instr{ir.I32Const(1), ir.If([]ir.ValType{ir.I32}, then, els)})

	changed, err := NewPeepholePass().Run(m)
	require.NoError(t, err)
	assert.True(t, changed)

	fn, _ := m.Function("main")
	assert.Equal(t, then, fn.Body)
}

func TestPeepholeConstantConditionFoldsToElseBranch(t *testing.T) {
	then := []ir.Instr{ir.I32Const(10)}
	els := []ir.Instr{ir.I32Const(20)}
	m := moduleWithBody([]ir.Instr{ir.I32Const(0), ir.If([]ir.ValType{ir.I32}, then, els)})

	changed, err := NewPeepholePass().Run(m)
	require.NoError(t, err)
	assert.True(t, changed)

	fn, _ := m.Function("main")
	assert.Equal(t, els, fn.Body)
}

func TestPeepholeCommutesConstantToFirstOperand(t *testing.T) {
	m := moduleWithBody([]ir.Instr{ir.LocalGet("x"), ir.I32Const(5), ir.I32Add()})
	changed, err := NewPeepholePass().Run(m)
	require.NoError(t, err)
	assert.True(t, changed)

	fn, _ := m.Function("main")
	require.Len(t, fn.Body, 3)
	assert.Equal(t, ir.I32Const(5), fn.Body[0])
	assert.Equal(t, ir.LocalGet("x"), fn.Body[1])
}

func TestPeepholeDropsVacuousBlock(t *testing.T) {
	m := moduleWithBody([]ir.Instr{ir.Block("L0", nil, nil), ir.I32Const(1)})
	changed, err := NewPeepholePass().Run(m)
	require.NoError(t, err)
	assert.True(t, changed)

	fn, _ := m.Function("main")
	assert.Equal(t, []ir.Instr{ir.I32Const(1)}, fn.Body)
}

func TestPeepholeRewritesNestedBlockBodies(t *testing.T) {
	// the inner push/drop pair vanishes first (rewriteNested settles the
	// block's body before the outer sequence is ever inspected), leaving an
	// empty block that rule 6 then strips in the same Run call.
	inner := []ir.Instr{ir.I32Const(1), ir.Drop()}
	m := moduleWithBody([]ir.Instr{ir.Block("L0", nil, inner)})

	changed, err := NewPeepholePass().Run(m)
	require.NoError(t, err)
	assert.True(t, changed)

	fn, _ := m.Function("main")
	assert.Empty(t, fn.Body)
}

func TestPeepholeNoOpOnSettledBody(t *testing.T) {
	m := moduleWithBody([]ir.Instr{ir.I32Const(1), ir.I32Const(2), ir.I32Add()})
	changed, err := NewPeepholePass().Run(m)
	require.NoError(t, err)
	assert.False(t, changed)
}
