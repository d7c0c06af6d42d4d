package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hyggelang/hyggec/pkg/ast"
)

func variable(name string) *ast.Variable {
	return &ast.Variable{Base: base(ast.Basic(ast.TInt)), Name: name}
}

func TestFreeVarsExcludesParams(t *testing.T) {
	params := []ast.Param{{Name: "n", Typ: ast.Basic(ast.TInt)}}
	body := &ast.BinOp{Base: base(ast.Basic(ast.TInt)), Op: ast.OpAdd, Lhs: variable("n"), Rhs: variable("m")}
	assert.Equal(t, []string{"m"}, freeVars(params, body))
}

func TestFreeVarsPreservesFirstOccurrenceOrder(t *testing.T) {
	body := &ast.BinOp{
		Base: base(ast.Basic(ast.TInt)),
		Op:   ast.OpAdd,
		Lhs:  variable("b"),
		Rhs: &ast.BinOp{
			Base: base(ast.Basic(ast.TInt)),
			Op:   ast.OpAdd,
			Lhs:  variable("a"),
			Rhs:  variable("b"),
		},
	}
	assert.Equal(t, []string{"b", "a"}, freeVars(nil, body))
}

func TestFreeVarsExcludesLetBoundNames(t *testing.T) {
	body := &ast.Let{
		Base: base(ast.Basic(ast.TInt)),
		Name: "x",
		Init: intLit(1),
		Scope: &ast.BinOp{
			Base: base(ast.Basic(ast.TInt)),
			Op:   ast.OpAdd,
			Lhs:  variable("x"),
			Rhs:  variable("y"),
		},
	}
	assert.Equal(t, []string{"y"}, freeVars(nil, body))
}

func TestFreeVarsAssignVarCountsAsFree(t *testing.T) {
	body := &ast.Assign{
		Base:       base(ast.Basic(ast.TUnit)),
		TargetKind: ast.AssignVar,
		Name:       "z",
		Value:      intLit(1),
	}
	assert.Equal(t, []string{"z"}, freeVars(nil, body))
}

func TestFreeVarsNestedLambdaExcludesItsOwnParams(t *testing.T) {
	inner := &ast.Lambda{
		Base:   base(&ast.Fun{Params: []ast.Type{ast.Basic(ast.TInt)}, Ret: ast.Basic(ast.TInt)}),
		Params: []ast.Param{{Name: "k", Typ: ast.Basic(ast.TInt)}},
		Body: &ast.BinOp{
			Base: base(ast.Basic(ast.TInt)),
			Op:   ast.OpAdd,
			Lhs:  variable("k"),
			Rhs:  variable("outer"),
		},
	}
	assert.Equal(t, []string{"outer"}, freeVars(nil, inner))
}
