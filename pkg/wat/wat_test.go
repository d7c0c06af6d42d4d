package wat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyggelang/hyggec/pkg/ir"
)

func simpleAddModule(style ir.Style) *ir.Module {
	m := ir.NewModule("test")
	m.Style = style
	sig := &ir.FuncType{Params: []ir.ValType{ir.I32, ir.I32}, Results: []ir.ValType{ir.I32}}
	m.AddFuncType(sig)
	_ = m.AddFunction(&ir.Function{
		Label:  "add",
		Sig:    sig,
		Params: []string{"a", "b"},
		Body: []ir.Instr{
			ir.LocalGet("a"),
			ir.LocalGet("b"),
			ir.I32Add(),
		},
	})
	m.AddExport(ir.Export{Name: "add", Kind: ir.ExternFunc, Ref: "add"})
	return m
}

func TestPrintLinearStyleFunctionBody(t *testing.T) {
	text := Print(simpleAddModule(ir.StyleLinear))

	assert.Contains(t, text, "(module\n")
	assert.Contains(t, text, "(func $add (param $a i32) (param $b i32) (result i32)\n")
	assert.Contains(t, text, "    local.get $a\n")
	assert.Contains(t, text, "    local.get $b\n")
	assert.Contains(t, text, "    i32.add\n")
	assert.Contains(t, text, `(export "add" (func $add))`)
}

func TestPrintFoldedStyleNestsControl(t *testing.T) {
	m := ir.NewModule("test")
	m.Style = ir.StyleFolded
	sig := &ir.FuncType{Results: []ir.ValType{ir.I32}}
	then := []ir.Instr{ir.I32Const(1)}
	els := []ir.Instr{ir.I32Const(0)}
	_ = m.AddFunction(&ir.Function{
		Label: "pick",
		Sig:   sig,
		Body: []ir.Instr{
			ir.I32Const(1),
			ir.If([]ir.ValType{ir.I32}, then, els),
		},
	})

	text := Print(m)
	assert.Contains(t, text, "(if (result i32)\n")
	assert.Contains(t, text, "(then\n")
	assert.Contains(t, text, "(else\n")
}

func TestPrintLinearStyleUsesEndMarkers(t *testing.T) {
	m := ir.NewModule("test")
	m.Style = ir.StyleLinear
	sig := &ir.FuncType{Results: []ir.ValType{ir.I32}}
	_ = m.AddFunction(&ir.Function{
		Label: "loopy",
		Sig:   sig,
		Body: []ir.Instr{
			ir.Loop("L0", nil, []ir.Instr{ir.Br("L0")}),
		},
	})

	text := Print(m)
	assert.Contains(t, text, "loop $L0\n")
	assert.Contains(t, text, "br $L0\n")
	assert.Contains(t, text, "end\n")
}

func TestPrintDeterministicAcrossRuns(t *testing.T) {
	m := simpleAddModule(ir.StyleLinear)
	first := Print(m)
	second := Print(m)
	assert.Equal(t, first, second)
}

func TestPrintSectionOrder(t *testing.T) {
	m := ir.NewModule("test")
	require.NoError(t, m.AddImport(ir.Import{
		Module: "env", Name: "malloc", Kind: ir.ExternFunc,
		Sig: &ir.FuncType{Params: []ir.ValType{ir.I32}, Results: []ir.ValType{ir.I32}},
	}))
	m.AddMemory(ir.Memory{InitialPages: 1})
	require.NoError(t, m.AddGlobal(ir.Global{Name: "heap_base", Type: ir.I32, Mutable: true, Init: ir.I32Const(0)}))
	_ = m.AddFunction(&ir.Function{Label: "main", Sig: &ir.FuncType{}})
	m.AddData(0, []byte("hi"))
	m.AddExport(ir.Export{Name: "memory", Kind: ir.ExternMemory, Ref: "memory"})

	text := Print(m)
	importIdx := indexOf(t, text, "(import")
	memoryIdx := indexOf(t, text, "(memory")
	globalIdx := indexOf(t, text, "(global")
	funcIdx := indexOf(t, text, "(func $main")
	dataIdx := indexOf(t, text, "(data")
	exportIdx := indexOf(t, text, "(export")

	assert.True(t, importIdx < memoryIdx)
	assert.True(t, memoryIdx < globalIdx)
	assert.True(t, globalIdx < funcIdx)
	assert.True(t, funcIdx < dataIdx)
	assert.True(t, dataIdx < exportIdx)
}

func TestWriteDataEscapesBytes(t *testing.T) {
	m := ir.NewModule("test")
	m.AddData(4, []byte("hi\n"))
	text := Print(m)
	assert.Contains(t, text, `(data (i32.const 4) "hi\n")`)
}

func TestWriteMemoryWithAndWithoutMax(t *testing.T) {
	m1 := ir.NewModule("test")
	m1.AddMemory(ir.Memory{InitialPages: 2})
	assert.Contains(t, Print(m1), "(memory 2)\n")

	m2 := ir.NewModule("test")
	m2.AddMemory(ir.Memory{InitialPages: 2, MaxPages: 10, HasMax: true})
	assert.Contains(t, Print(m2), "(memory 2 10)\n")
}

func indexOf(t *testing.T, s, substr string) int {
	t.Helper()
	idx := -1
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			idx = i
			break
		}
	}
	require.NotEqual(t, -1, idx, "expected to find %q in output", substr)
	return idx
}
