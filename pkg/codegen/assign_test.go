package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyggelang/hyggec/pkg/ast"
	"github.com/hyggelang/hyggec/pkg/ir"
)

func TestGenerateAssignVarStoresIntoLocal(t *testing.T) {
	top := &ast.Let{
		Base:    base(ast.Basic(ast.TUnit)),
		Name:    "x",
		Mutable: true,
		Init:    intLit(1),
		Scope: &ast.Assign{
			Base:       base(ast.Basic(ast.TUnit)),
			TargetKind: ast.AssignVar,
			Name:       "x",
			Value:      intLit(2),
		},
	}
	fn := generateStart(t, top)
	assert.Equal(t, []ir.Instr{
		ir.I32Const(1), ir.LocalSet("x$1"),
		ir.I32Const(2), ir.LocalSet("x$1"),
		ir.I32Const(0), ir.Return(),
	}, fn.Body)
}

func TestGenerateAssignFieldStoresAtFieldOffset(t *testing.T) {
	pointType := &ast.Struct{
		Name:       "Point",
		Fields:     map[string]ast.Type{"x": ast.Basic(ast.TInt), "y": ast.Basic(ast.TInt)},
		FieldOrder: []string{"x", "y"},
	}
	top := &ast.Let{
		Base: base(ast.Basic(ast.TUnit)),
		Name: "p",
		Init: intLit(100),
		Scope: &ast.Assign{
			Base:       base(ast.Basic(ast.TUnit)),
			TargetKind: ast.AssignField,
			Target:     &ast.Variable{Base: base(pointType), Name: "p"},
			Field:      "y",
			Value:      intLit(9),
		},
	}
	fn := generateStart(t, top)
	assert.Equal(t, []ir.Instr{
		ir.I32Const(100), ir.LocalSet("p$1"),
		ir.LocalGet("p$1"), ir.I32Const(9), ir.I32Store(4),
		ir.I32Const(0), ir.Return(),
	}, fn.Body)
}

func TestGenerateAssignIndexBoundsChecksAndStores(t *testing.T) {
	arrType := &ast.Array{Elem: ast.Basic(ast.TInt)}
	top := &ast.Let{
		Base: base(ast.Basic(ast.TUnit)),
		Name: "a",
		Init: intLit(200),
		Scope: &ast.Assign{
			Base:       base(ast.Basic(ast.TUnit)),
			TargetKind: ast.AssignIndex,
			Target:     &ast.Variable{Base: base(arrType), Name: "a"},
			Index:      intLit(0),
			Value:      intLit(7),
		},
	}
	fn := generateStart(t, top)

	require.Len(t, fn.Body, 25)
	assert.Equal(t, []ir.Instr{
		ir.I32Const(200), ir.LocalSet("a$1"),
		ir.LocalGet("a$1"), ir.LocalSet("ahdr$2"),
		ir.I32Const(0), ir.LocalSet("aidx$3"),
	}, fn.Body[:6])

	ifInstr := fn.Body[14]
	assert.Equal(t, "if", ifInstr.Op)
	assert.Equal(t, []ir.Instr{ir.I32Const(AssertExitSentinel), ir.Return()}, ifInstr.Then)
	assert.Empty(t, ifInstr.Else)

	assert.Equal(t, []ir.Instr{
		ir.LocalGet("ahdr$2"), ir.I32Load(0),
		ir.LocalGet("aidx$3"), ir.I32Const(4), ir.I32Mul(), ir.I32Add(),
		ir.I32Const(7), ir.I32Store(0),
	}, fn.Body[15:23])

	assert.Equal(t, []ir.Instr{ir.I32Const(0), ir.Return()}, fn.Body[23:])
}

func TestEmitStorageSetRejectsInvalidStorageKind(t *testing.T) {
	c := &Context{}
	err := c.emitStorageSet(nil, Storage{Kind: StorageMemory}, "bad", ir.NewBuilder())
	require.Error(t, err)
	var mismatch *StorageKindMismatchError
	assert.ErrorAs(t, err, &mismatch)
	assert.Equal(t, StorageOffset, mismatch.Expected)
	assert.Equal(t, StorageMemory, mismatch.Got)
}
