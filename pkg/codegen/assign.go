package codegen

import (
	"github.com/hyggelang/hyggec/pkg/ast"
	"github.com/hyggelang/hyggec/pkg/ir"
)

// emitStorageSet pops the top of b's stack into a storage entry. Only
// variable bindings (label/offset/boxed) are ever assignment targets; field
// and index targets go through their own store-address computation in
// lowerAssign instead.
//
// StorageFuncRef needs the incoming value stashed in a scratch local first:
// i32.store/f32.store expect [address, value] on the stack, but by the time
// emitStorageSet runs the value is already on top, pushed by the caller
// ahead of the (not yet known) box address.
func (c *Context) emitStorageSet(env *Env, st Storage, name string, b *ir.Builder) error {
	switch st.Kind {
	case StorageLabel:
		if st.IsGlobal {
			b.Emit(ir.GlobalSet(st.Name))
		} else {
			b.Emit(ir.LocalSet(st.Name))
		}
	case StorageOffset:
		b.Emit(ir.LocalSet(st.LocalName))
	case StorageFuncRef:
		tmp := c.newLocal(env, "boxval", st.ElemType)
		b.Emit(ir.LocalSet(tmp))
		b.Emit(ir.LocalGet(st.LocalName))
		b.Emit(ir.LocalGet(tmp))
		if st.ElemType == ir.F32 {
			b.Emit(ir.F32Store(0))
		} else {
			b.Emit(ir.I32Store(0))
		}
	default:
		return &StorageKindMismatchError{Name: name, Expected: StorageOffset, Got: st.Kind}
	}
	return nil
}

func (c *Context) lowerAssign(env *Env, n *ast.Assign, b *ir.Builder) error {
	switch n.TargetKind {
	case ast.AssignVar:
		st, ok := env.Lookup(n.Name)
		if !ok {
			return &UnresolvedIdentifierError{Name: n.Name}
		}
		if err := c.lower(env, n.Value, b); err != nil {
			return err
		}
		return c.emitStorageSet(env, st, n.Name, b)

	case ast.AssignField:
		st, ok := n.Target.Type().(*ast.Struct)
		if !ok {
			return &InvalidASTError{Node: "Assign", Reason: "field target is not a struct"}
		}
		idx := fieldOffset(st, n.Field)
		if idx < 0 {
			return &InvalidASTError{Node: "Assign", Reason: "unknown field " + n.Field}
		}
		if err := c.lower(env, n.Target, b); err != nil {
			return err
		}
		if err := c.lower(env, n.Value, b); err != nil {
			return err
		}
		if vt, _ := wasmType(st.Fields[n.Field]); vt == ir.F32 {
			b.Emit(ir.F32Store(uint32(idx * 4)))
		} else {
			b.Emit(ir.I32Store(uint32(idx * 4)))
		}
		return nil

	case ast.AssignIndex:
		arr, ok := n.Target.Type().(*ast.Array)
		if !ok {
			return &InvalidASTError{Node: "Assign", Reason: "index target is not an array"}
		}
		if err := c.lower(env, n.Target, b); err != nil {
			return err
		}
		hdrL := c.newLocal(env, "ahdr", ir.I32)
		b.Emit(ir.LocalSet(hdrL))
		if err := c.lower(env, n.Index, b); err != nil {
			return err
		}
		idxL := c.newLocal(env, "aidx", ir.I32)
		b.Emit(ir.LocalSet(idxL))
		boundsCheck(hdrL, idxL, b)

		b.Emit(ir.LocalGet(hdrL))
		b.Emit(ir.I32Load(0))
		b.Emit(ir.LocalGet(idxL))
		b.Emit(ir.I32Const(4))
		b.Emit(ir.I32Mul())
		b.Emit(ir.I32Add())
		if err := c.lower(env, n.Value, b); err != nil {
			return err
		}
		if isFloatType(arr.Elem) {
			b.Emit(ir.F32Store(0))
		} else {
			b.Emit(ir.I32Store(0))
		}
		return nil

	default:
		return &InvalidASTError{Node: "Assign", Reason: "unrecognised target kind"}
	}
}
