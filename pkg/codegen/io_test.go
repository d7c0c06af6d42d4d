package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyggelang/hyggec/pkg/ast"
	"github.com/hyggelang/hyggec/pkg/config"
	"github.com/hyggelang/hyggec/pkg/ir"
)

func TestGeneratePrintIntImportsWriteInt(t *testing.T) {
	n := &ast.IO{Base: base(ast.Basic(ast.TUnit)), Kind: ast.IOPrint, Arg: intLit(5)}
	module, err := Generate(n, config.Default())
	require.NoError(t, err)

	assert.True(t, module.HasImport("env", writeIntLabel))
	fn, _ := module.Function("_start")
	assert.Equal(t, []ir.Instr{
		ir.I32Const(5), ir.Call(writeIntLabel),
		ir.I32Const(0), ir.Return(),
	}, fn.Body)
}

func TestGeneratePrintLnStringAppendsNewlineWrite(t *testing.T) {
	n := &ast.IO{Base: base(ast.Basic(ast.TUnit)), Kind: ast.IOPrintLn, Arg: &ast.StringLit{Base: base(ast.Basic(ast.TString)), Value: "hi"}}
	module, err := Generate(n, config.Default())
	require.NoError(t, err)

	assert.True(t, module.HasImport("env", writeSLabel))
	require.Len(t, module.Data, 2, "the string literal and the shared newline record")

	fn, _ := module.Function("_start")
	assert.Equal(t, []ir.Instr{
		ir.I32Const(0),
		ir.LocalSet("wrec$1"),
		ir.LocalGet("wrec$1"),
		ir.I32Const(4),
		ir.I32Add(),
		ir.LocalGet("wrec$1"),
		ir.I32Load(0),
		ir.Call(writeSLabel),
		ir.I32Const(10),
		ir.I32Const(1),
		ir.Call(writeSLabel),
		ir.I32Const(0), ir.Return(),
	}, fn.Body)
}

func TestGenerateReadIntImportsHostCall(t *testing.T) {
	n := &ast.IO{Base: base(ast.Basic(ast.TInt)), Kind: ast.IOReadInt}
	module, err := Generate(n, config.Default())
	require.NoError(t, err)
	assert.True(t, module.HasImport("env", readIntLabel))

	fn, _ := module.Function("_start")
	assert.Equal(t, []ir.Instr{ir.Call(readIntLabel), ir.I32Const(0), ir.Return()}, fn.Body)
}
