package codegen

import (
	"fmt"

	"github.com/hyggelang/hyggec/pkg/ast"
	"github.com/hyggelang/hyggec/pkg/config"
	"github.com/hyggelang/hyggec/pkg/ir"
)

// Generate lowers one top-level Hygge expression into a complete Wasm
// module: an implicit `_start` function wrapping top, the runtime
// boilerplate (heap globals, memory, imports actually used), and every
// hoisted or closure-converted function reached along the way (spec.md
// §4.C "Entry-point synthesis").
func Generate(top ast.Expr, cfg config.Config) (*ir.Module, error) {
	module := ir.NewModule("hygge")
	module.Style = mapStyle(cfg.Style)

	c := NewContext(module, cfg)
	env := NewEnv("_start", top.Env())

	b := ir.NewBuilder()
	if err := c.lower(env, top, b); err != nil {
		return nil, err
	}
	body := b.Take()
	body = append(body, ir.I32Const(0), ir.Return())

	fn := &ir.Function{
		Label:  "_start",
		Sig:    &ir.FuncType{Results: []ir.ValType{ir.I32}},
		Locals: c.takeLocals("_start"),
		Body:   body,
	}
	if err := module.AddFunction(fn); err != nil {
		return nil, err
	}
	module.AddExport(ir.Export{Name: "_start", Kind: ir.ExternFunc, Ref: "_start"})

	if err := c.finalizeRuntime(); err != nil {
		return nil, err
	}
	return module, nil
}

func mapStyle(s config.Style) ir.Style {
	if s == config.StyleFolded {
		return ir.StyleFolded
	}
	return ir.StyleLinear
}

// lower is the central recursive dispatch, one case per AST variant named
// in spec.md §4.C. Every case leaves exactly wasmType(e.Type())'s worth of
// values on b's stack (zero for unit).
func (c *Context) lower(env *Env, e ast.Expr, b *ir.Builder) error {
	switch n := e.(type) {
	case *ast.UnitLit:
		return nil
	case *ast.IntLit:
		b.Emit(ir.I32Const(int64(n.Value)))
		return nil
	case *ast.FloatLit:
		b.Emit(ir.F32Const(n.Value))
		return nil
	case *ast.BoolLit:
		v := int64(0)
		if n.Value {
			v = 1
		}
		b.Emit(ir.I32Const(v))
		return nil
	case *ast.StringLit:
		return c.lowerStringLit(env, n, b)
	case *ast.Variable:
		return c.lowerVariable(env, n, b)
	case *ast.BinOp:
		return c.lowerBinOp(env, n, b)
	case *ast.Not:
		if err := c.lower(env, n.Operand, b); err != nil {
			return err
		}
		b.Emit(ir.I32Eqz())
		return nil
	case *ast.ShortCircuit:
		return c.lowerShortCircuit(env, n, b)
	case *ast.Assert:
		return c.lowerAssert(env, n, b)
	case *ast.If:
		return c.lowerIf(env, n, b)
	case *ast.Seq:
		return c.lowerSeq(env, n, b)
	case *ast.Ascription:
		return c.lower(env, n.Operand, b)
	case *ast.IO:
		return c.lowerIO(env, n, b)
	case *ast.Let:
		return c.lowerLet(env, n, b)
	case *ast.TypeAlias:
		return c.lower(env, n.Scope, b)
	case *ast.Lambda:
		return c.lowerAnonymousLambda(env, n, b)
	case *ast.Apply:
		return c.lowerApply(env, n, b)
	case *ast.StructLit:
		return c.lowerStructLit(env, n, b)
	case *ast.FieldSelect:
		return c.lowerFieldSelect(env, n, b)
	case *ast.ArrayLit:
		return c.lowerArrayLit(env, n, b)
	case *ast.ArrayLength:
		return c.lowerArrayLength(env, n, b)
	case *ast.ArrayIndex:
		return c.lowerArrayIndex(env, n, b)
	case *ast.ArraySlice:
		return c.lowerArraySlice(env, n, b)
	case *ast.UnionLit:
		return c.lowerUnionLit(env, n, b)
	case *ast.Match:
		return c.lowerMatch(env, n, b)
	case *ast.Assign:
		return c.lowerAssign(env, n, b)
	case *ast.While:
		return c.lowerWhile(env, n, b)
	case *ast.For:
		return c.lowerFor(env, n, b)
	case *ast.IncDec:
		return c.lowerIncDec(env, n, b)
	case *ast.CompoundAssign:
		return c.lowerCompoundAssign(env, n, b)
	case *ast.Pointer:
		return &InvalidASTError{Node: "Pointer", Reason: "pointer expressions never reach the code generator"}
	default:
		return &InvalidASTError{Node: fmt.Sprintf("%T", e), Reason: "unrecognised AST node"}
	}
}

func isFloatType(t ast.Type) bool {
	b, ok := t.(ast.Basic)
	return ok && b == ast.TFloat
}

func isStringType(t ast.Type) bool {
	b, ok := t.(ast.Basic)
	return ok && b == ast.TString
}

// lowerVariable resolves a reference against the storage map, §3's
// six-way discriminated union.
func (c *Context) lowerVariable(env *Env, n *ast.Variable, b *ir.Builder) error {
	st, ok := env.Lookup(n.Name)
	if !ok {
		return &UnresolvedIdentifierError{Name: n.Name}
	}
	c.emitStorageGet(st, b)
	return nil
}

// emitStorageGet pushes the value a storage entry denotes — the one place
// that interprets all six StorageKind variants (spec.md §3).
func (c *Context) emitStorageGet(st Storage, b *ir.Builder) {
	switch st.Kind {
	case StorageLabel:
		if st.IsGlobal {
			b.Emit(ir.GlobalGet(st.Name))
		} else {
			b.Emit(ir.LocalGet(st.Name))
		}
	case StorageOffset:
		b.Emit(ir.LocalGet(st.LocalName))
	case StorageMemory:
		b.Emit(ir.I32Const(int64(st.Addr)))
		b.Emit(ir.I32Load(0))
	case StorageTableEntry:
		b.Emit(ir.I32Const(int64(st.TableIndex)))
	case StorageFuncRef:
		b.Emit(ir.LocalGet(st.LocalName))
		if st.ElemType == ir.F32 {
			b.Emit(ir.F32Load(0))
		} else {
			b.Emit(ir.I32Load(0))
		}
	case StorageID:
		b.Emit(ir.I32Const(st.ConstID))
	}
}

// lowerStringLit places the literal's bytes in a compile-time data segment
// as a length-prefixed record (4-byte length, then the raw bytes — the
// length counts payload bytes only, resolving spec.md's open question on
// string byte-length semantics) and pushes the record's address.
func (c *Context) lowerStringLit(env *Env, n *ast.StringLit, b *ir.Builder) error {
	addr, err := c.internString(n.Value)
	if err != nil {
		return err
	}
	b.Emit(ir.I32Const(int64(addr)))
	return nil
}

func (c *Context) internString(s string) (uint32, error) {
	raw := []byte(s)
	record := make([]byte, 4+len(raw))
	l := uint32(len(raw))
	record[0] = byte(l)
	record[1] = byte(l >> 8)
	record[2] = byte(l >> 16)
	record[3] = byte(l >> 24)
	copy(record[4:], raw)
	addr, err := c.Alloc.Allocate(uint32(len(record)))
	if err != nil {
		return 0, err
	}
	c.Module.AddData(int(addr), record)
	return addr, nil
}

func (c *Context) lowerBinOp(env *Env, n *ast.BinOp, b *ir.Builder) error {
	floatOp := isFloatType(n.Lhs.Type())

	if n.Op == ast.OpSqrt {
		if err := c.lower(env, n.Lhs, b); err != nil {
			return err
		}
		b.Emit(ir.F32Sqrt())
		return nil
	}

	if n.Op == ast.OpMin || n.Op == ast.OpMax {
		return c.lowerMinMax(env, n, floatOp, b)
	}

	if err := c.lower(env, n.Lhs, b); err != nil {
		return err
	}
	if err := c.lower(env, n.Rhs, b); err != nil {
		return err
	}
	b.Emit(binOpInstr(n.Op, floatOp))
	return nil
}

func binOpInstr(op ast.BinOpKind, floatOp bool) ir.Instr {
	switch op {
	case ast.OpAdd:
		if floatOp {
			return ir.F32Add()
		}
		return ir.I32Add()
	case ast.OpSub:
		if floatOp {
			return ir.F32Sub()
		}
		return ir.I32Sub()
	case ast.OpMul:
		if floatOp {
			return ir.F32Mul()
		}
		return ir.I32Mul()
	case ast.OpDiv:
		if floatOp {
			return ir.F32Div()
		}
		return ir.I32DivS()
	case ast.OpRem:
		return ir.I32RemS()
	case ast.OpAnd:
		return ir.I32And()
	case ast.OpOr:
		return ir.I32Or()
	case ast.OpXor:
		return ir.I32Xor()
	case ast.OpEq:
		if floatOp {
			return ir.F32Eq()
		}
		return ir.I32Eq()
	case ast.OpNeq:
		if floatOp {
			return ir.F32Ne()
		}
		return ir.I32Ne()
	case ast.OpLt:
		if floatOp {
			return ir.F32Lt()
		}
		return ir.I32LtS()
	case ast.OpLe:
		if floatOp {
			return ir.F32Le()
		}
		return ir.I32LeS()
	case ast.OpGt:
		if floatOp {
			return ir.F32Gt()
		}
		return ir.I32GtS()
	default: // ast.OpGe
		if floatOp {
			return ir.F32Ge()
		}
		return ir.I32GeS()
	}
}

// lowerMinMax: float min/max map directly onto f32.min/max. Int min/max has
// no single Wasm opcode, so both operands are stashed in locals and
// recombined with select (spec.md §4.C).
func (c *Context) lowerMinMax(env *Env, n *ast.BinOp, floatOp bool, b *ir.Builder) error {
	if err := c.lower(env, n.Lhs, b); err != nil {
		return err
	}
	if err := c.lower(env, n.Rhs, b); err != nil {
		return err
	}
	if floatOp {
		if n.Op == ast.OpMin {
			b.Emit(ir.F32Min())
		} else {
			b.Emit(ir.F32Max())
		}
		return nil
	}
	lhsL := c.newLocal(env, "mm_lhs", ir.I32)
	rhsL := c.newLocal(env, "mm_rhs", ir.I32)
	b.Emit(ir.LocalSet(rhsL))
	b.Emit(ir.LocalSet(lhsL))
	b.Emit(ir.LocalGet(lhsL))
	b.Emit(ir.LocalGet(rhsL))
	b.Emit(ir.LocalGet(lhsL))
	b.Emit(ir.LocalGet(rhsL))
	if n.Op == ast.OpMin {
		b.Emit(ir.I32LtS())
	} else {
		b.Emit(ir.I32GtS())
	}
	b.Emit(ir.Select())
	return nil
}

// lowerShortCircuit lowers source-level and/or to an if/else so the right
// operand is only evaluated when it can affect the result.
func (c *Context) lowerShortCircuit(env *Env, n *ast.ShortCircuit, b *ir.Builder) error {
	if err := c.lower(env, n.Lhs, b); err != nil {
		return err
	}
	thenB, elseB := ir.NewBuilder(), ir.NewBuilder()
	if n.Kind == ast.ScAnd {
		if err := c.lower(env, n.Rhs, thenB); err != nil {
			return err
		}
		elseB.Emit(ir.I32Const(0))
	} else {
		thenB.Emit(ir.I32Const(1))
		if err := c.lower(env, n.Rhs, elseB); err != nil {
			return err
		}
	}
	b.Emit(ir.If([]ir.ValType{ir.I32}, thenB.Take(), elseB.Take()))
	return nil
}

// lowerAssert: condition, then an if whose then-branch is empty (falls
// through) and whose else-branch exits with the sentinel failure code
// (spec.md §4.D, §7).
func (c *Context) lowerAssert(env *Env, n *ast.Assert, b *ir.Builder) error {
	if err := c.lower(env, n.Cond, b); err != nil {
		return err
	}
	b.Emit(ir.If(nil, nil, failInstrs()))
	return nil
}

func failInstrs() []ir.Instr {
	return []ir.Instr{ir.I32Const(AssertExitSentinel), ir.Return()}
}

func (c *Context) lowerIf(env *Env, n *ast.If, b *ir.Builder) error {
	if err := c.lower(env, n.Cond, b); err != nil {
		return err
	}
	thenB := ir.NewBuilder()
	if err := c.lower(env, n.Then, thenB); err != nil {
		return err
	}
	var elseInstrs []ir.Instr
	if n.Else != nil {
		elseB := ir.NewBuilder()
		if err := c.lower(env, n.Else, elseB); err != nil {
			return err
		}
		elseInstrs = elseB.Take()
	}
	b.Emit(ir.If(resultTypes(n.Type()), thenB.Take(), elseInstrs))
	return nil
}

// lowerSeq drops every intermediate non-unit result; only the last
// expression's value (if any) survives on the stack.
func (c *Context) lowerSeq(env *Env, n *ast.Seq, b *ir.Builder) error {
	for i, sub := range n.Exprs {
		if err := c.lower(env, sub, b); err != nil {
			return err
		}
		if i < len(n.Exprs)-1 {
			if _, ok := wasmType(sub.Type()); ok {
				b.Emit(ir.Drop())
			}
		}
	}
	return nil
}
