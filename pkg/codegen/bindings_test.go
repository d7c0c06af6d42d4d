package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyggelang/hyggec/pkg/ast"
	"github.com/hyggelang/hyggec/pkg/config"
	"github.com/hyggelang/hyggec/pkg/ir"
)

func TestGenerateLetBindsInitBeforeScope(t *testing.T) {
	n := &ast.Let{
		Base: base(ast.Basic(ast.TInt)),
		Name: "x",
		Init: intLit(5),
		Scope: &ast.BinOp{
			Base: base(ast.Basic(ast.TInt)),
			Op:   ast.OpAdd,
			Lhs:  &ast.Variable{Base: base(ast.Basic(ast.TInt)), Name: "x"},
			Rhs:  intLit(1),
		},
	}
	fn := generateStart(t, n)
	assert.Equal(t, []ir.Instr{
		ir.I32Const(5), ir.LocalSet("x$1"),
		ir.LocalGet("x$1"), ir.I32Const(1), ir.I32Add(),
		ir.I32Const(0), ir.Return(),
	}, fn.Body)
}

func TestGenerateLetRecHoistsDirectFunction(t *testing.T) {
	funType := &ast.Fun{Params: []ast.Type{ast.Basic(ast.TInt)}, Ret: ast.Basic(ast.TInt)}
	lam := &ast.Lambda{
		Base:   base(funType),
		Params: []ast.Param{{Name: "n", Typ: ast.Basic(ast.TInt)}},
		Body:   &ast.Variable{Base: base(ast.Basic(ast.TInt)), Name: "n"},
	}
	top := &ast.Let{
		Base:  base(ast.Basic(ast.TInt)),
		Name:  "f",
		IsRec: true,
		Init:  lam,
		Scope: &ast.Apply{
			Base:   base(ast.Basic(ast.TInt)),
			Callee: &ast.Variable{Base: base(funType), Name: "f"},
			Args:   []ast.Expr{intLit(5)},
		},
	}

	module, err := Generate(top, config.Default())
	require.NoError(t, err)

	hoisted, ok := module.Function("fn_f$1")
	require.True(t, ok)
	assert.Equal(t, []string{"n"}, hoisted.Params)
	assert.Equal(t, []ir.ValType{ir.I32}, hoisted.Sig.Params)
	assert.Equal(t, []ir.ValType{ir.I32}, hoisted.Sig.Results)
	assert.Equal(t, []ir.Instr{ir.LocalGet("n")}, hoisted.Body)

	assert.Equal(t, []string{"fn_f$1"}, module.Table.Elements)

	start, _ := module.Function("_start")
	assert.Equal(t, []ir.Instr{
		ir.I32Const(5), ir.Call("fn_f$1"),
		ir.I32Const(0), ir.Return(),
	}, start.Body)
}

// TestGenerateClosureBoxesMutableCapturedVariable models spec.md §8's
// makeCounters scenario in miniature: a let-mut captured by a lambda that
// mutates it must go through a shared heap cell, not an independent copy.
func TestGenerateClosureBoxesMutableCapturedVariable(t *testing.T) {
	funType := &ast.Fun{Params: nil, Ret: ast.Basic(ast.TUnit)}
	lam := &ast.Lambda{
		Base: base(funType),
		Body: &ast.Assign{
			Base:       base(ast.Basic(ast.TUnit)),
			TargetKind: ast.AssignVar,
			Name:       "c",
			Value: &ast.BinOp{
				Base: base(ast.Basic(ast.TInt)),
				Op:   ast.OpAdd,
				Lhs:  &ast.Variable{Base: base(ast.Basic(ast.TInt)), Name: "c"},
				Rhs:  intLit(1),
			},
		},
	}
	top := &ast.Let{
		Base:    base(funType),
		Name:    "c",
		Mutable: true,
		Init:    intLit(0),
		Scope: &ast.Let{
			Base:  base(funType),
			Name:  "inc",
			Init:  lam,
			Scope: &ast.Variable{Base: base(funType), Name: "inc"},
		},
	}

	module, err := Generate(top, config.Default())
	require.NoError(t, err)

	hoisted, ok := module.Function("lam$3")
	require.True(t, ok)
	assert.Equal(t, []string{"cenv"}, hoisted.Params)
	assert.Equal(t, []ir.Instr{
		ir.LocalGet("cenv"), ir.I32Load(0), ir.LocalSet("fv_c$4"),
		ir.LocalGet("fv_c$4"), ir.I32Load(0), ir.I32Const(1), ir.I32Add(),
		ir.LocalSet("boxval$5"),
		ir.LocalGet("fv_c$4"), ir.LocalGet("boxval$5"), ir.I32Store(0),
	}, hoisted.Body)

	start, _ := module.Function("_start")
	assert.Equal(t, []ir.Instr{
		ir.I32Const(0), ir.LocalSet("boxval$1"),
		ir.I32Const(4), ir.Call(mallocLabel), ir.LocalSet("box$2"),
		ir.LocalGet("box$2"), ir.LocalGet("boxval$1"), ir.I32Store(0),

		ir.I32Const(4), ir.Call(mallocLabel), ir.LocalSet("cenv$6"),
		ir.LocalGet("cenv$6"), ir.LocalGet("box$2"), ir.I32Store(0),
		ir.I32Const(8), ir.Call(mallocLabel), ir.LocalSet("cell$7"),
		ir.LocalGet("cell$7"), ir.I32Const(0), ir.I32Store(0),
		ir.LocalGet("cell$7"), ir.LocalGet("cenv$6"), ir.I32Store(4),
		ir.LocalGet("cell$7"),
		ir.LocalSet("inc$8"),

		ir.LocalGet("inc$8"),
		ir.I32Const(0), ir.Return(),
	}, start.Body)
}
