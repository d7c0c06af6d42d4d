package codegen

import (
	"github.com/hyggelang/hyggec/pkg/ast"
	"github.com/hyggelang/hyggec/pkg/ir"
)

// lowerWhile compiles `while cond { body }` as a labeled block wrapping a
// labeled loop: the condition is tested at the top, `br_if` out to the
// block's label exits, and the body ends with an explicit `br` back to the
// loop's own label (spec.md §4.C).
func (c *Context) lowerWhile(env *Env, n *ast.While, b *ir.Builder) error {
	if n.Kind == ast.LoopDoWhile {
		return c.lowerDoWhile(env, n, b)
	}
	contLabel := c.FreshLabel("wcont")
	exitLabel := c.FreshLabel("wexit")
	body := ir.NewBuilder()
	if err := c.lower(env, n.Cond, body); err != nil {
		return err
	}
	body.Emit(ir.I32Eqz())
	body.Emit(ir.BrIf(exitLabel))
	if err := c.lower(env, n.Body, body); err != nil {
		return err
	}
	if _, ok := wasmType(n.Body.Type()); ok {
		body.Emit(ir.Drop())
	}
	body.Emit(ir.Br(contLabel))
	loopInstr := ir.Loop(contLabel, nil, body.Take())
	b.Emit(ir.Block(exitLabel, nil, []ir.Instr{loopInstr}))
	return nil
}

// lowerDoWhile evaluates the condition after the first body execution
// (spec.md's open-question resolution): body runs, then cond is checked,
// and a true result branches back to the loop's own label. No wrapping
// block is needed since falling off the loop's end is itself the exit. An
// empty body makes the construct meaningless, so it is rejected outright.
func (c *Context) lowerDoWhile(env *Env, n *ast.While, b *ir.Builder) error {
	if _, ok := n.Body.(*ast.UnitLit); ok {
		return &InvalidASTError{Node: "While", Reason: "do-while with an empty body is rejected"}
	}
	contLabel := c.FreshLabel("dwcont")
	body := ir.NewBuilder()
	if err := c.lower(env, n.Body, body); err != nil {
		return err
	}
	if _, ok := wasmType(n.Body.Type()); ok {
		body.Emit(ir.Drop())
	}
	if err := c.lower(env, n.Cond, body); err != nil {
		return err
	}
	body.Emit(ir.BrIf(contLabel))
	b.Emit(ir.Loop(contLabel, nil, body.Take()))
	return nil
}

// lowerFor treats a *ast.Let Init as introducing the loop variable visible
// to Cond/Upd/Body (its own Scope field is unused — the for-loop's
// remaining clauses play that role structurally instead); any other Init
// is lowered once for its side effect and discarded.
func (c *Context) lowerFor(env *Env, n *ast.For, b *ir.Builder) error {
	loopEnv := env
	if letInit, ok := n.Init.(*ast.Let); ok {
		if err := c.lower(env, letInit.Init, b); err != nil {
			return err
		}
		var localName string
		if vt, ok := wasmType(letInit.Init.Type()); ok {
			localName = c.newLocal(env, letInit.Name, vt)
			b.Emit(ir.LocalSet(localName))
		}
		loopEnv = env.Bind(letInit.Name, Storage{Kind: StorageOffset, LocalName: localName})
	} else {
		if err := c.lower(env, n.Init, b); err != nil {
			return err
		}
		if _, ok := wasmType(n.Init.Type()); ok {
			b.Emit(ir.Drop())
		}
	}

	contLabel := c.FreshLabel("fcont")
	exitLabel := c.FreshLabel("fexit")
	body := ir.NewBuilder()
	if err := c.lower(loopEnv, n.Cond, body); err != nil {
		return err
	}
	body.Emit(ir.I32Eqz())
	body.Emit(ir.BrIf(exitLabel))
	if err := c.lower(loopEnv, n.Body, body); err != nil {
		return err
	}
	if _, ok := wasmType(n.Body.Type()); ok {
		body.Emit(ir.Drop())
	}
	if err := c.lower(loopEnv, n.Upd, body); err != nil {
		return err
	}
	if _, ok := wasmType(n.Upd.Type()); ok {
		body.Emit(ir.Drop())
	}
	body.Emit(ir.Br(contLabel))
	loopInstr := ir.Loop(contLabel, nil, body.Take())
	b.Emit(ir.Block(exitLabel, nil, []ir.Instr{loopInstr}))
	return nil
}

// lowerIncDec: pre-forms store then return the new value (read again from
// storage); post-forms stash the old value in a local with local.tee so it
// survives the store of the new value.
func (c *Context) lowerIncDec(env *Env, n *ast.IncDec, b *ir.Builder) error {
	st, ok := env.Lookup(n.Name)
	if !ok {
		return &UnresolvedIdentifierError{Name: n.Name}
	}
	delta := int64(1)
	if n.Kind == ast.PreDec || n.Kind == ast.PostDec {
		delta = -1
	}
	switch n.Kind {
	case ast.PreInc, ast.PreDec:
		c.emitStorageGet(st, b)
		b.Emit(ir.I32Const(delta))
		b.Emit(ir.I32Add())
		if err := c.emitStorageSet(env, st, n.Name, b); err != nil {
			return err
		}
		c.emitStorageGet(st, b)
	default: // PostInc, PostDec
		c.emitStorageGet(st, b)
		tmp := c.newLocal(env, "pd", ir.I32)
		b.Emit(ir.LocalTee(tmp))
		b.Emit(ir.I32Const(delta))
		b.Emit(ir.I32Add())
		if err := c.emitStorageSet(env, st, n.Name, b); err != nil {
			return err
		}
		b.Emit(ir.LocalGet(tmp))
	}
	return nil
}

func (c *Context) lowerCompoundAssign(env *Env, n *ast.CompoundAssign, b *ir.Builder) error {
	st, ok := env.Lookup(n.Name)
	if !ok {
		return &UnresolvedIdentifierError{Name: n.Name}
	}
	floatOp := isFloatType(n.Value.Type())
	c.emitStorageGet(st, b)
	if err := c.lower(env, n.Value, b); err != nil {
		return err
	}
	switch n.Op {
	case ast.CompoundAdd:
		if floatOp {
			b.Emit(ir.F32Add())
		} else {
			b.Emit(ir.I32Add())
		}
	case ast.CompoundSub:
		if floatOp {
			b.Emit(ir.F32Sub())
		} else {
			b.Emit(ir.I32Sub())
		}
	case ast.CompoundMul:
		if floatOp {
			b.Emit(ir.F32Mul())
		} else {
			b.Emit(ir.I32Mul())
		}
	case ast.CompoundDiv:
		if floatOp {
			b.Emit(ir.F32Div())
		} else {
			b.Emit(ir.I32DivS())
		}
	case ast.CompoundMod:
		b.Emit(ir.I32RemS())
	}
	return c.emitStorageSet(env, st, n.Name, b)
}
