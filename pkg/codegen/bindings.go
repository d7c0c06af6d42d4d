package codegen

import (
	"github.com/hyggelang/hyggec/pkg/ast"
	"github.com/hyggelang/hyggec/pkg/ir"
)

// lowerLet handles let and let-mut uniformly: the initializer's value (if
// any — unit carries none) is stashed in a fresh local, bound into scope,
// and the binding is simply never reused once Scope finishes lowering
// (spec.md §3 invariant 6, implemented via Env's persistence rather than
// explicit unbind). let-rec is handled separately: it hoists its lambda
// initializer to a top-level function instead of a runtime value.
//
// A let-mut whose name a nested lambda captures is boxed instead: spec.md
// §9 requires the closure to share a reference to the mutable cell rather
// than a snapshot of its value, which a plain local can't provide once the
// closure's body runs in a separate hoisted function.
func (c *Context) lowerLet(env *Env, n *ast.Let, b *ir.Builder) error {
	if n.IsRec {
		return c.lowerLetRec(env, n, b)
	}
	if err := c.lower(env, n.Init, b); err != nil {
		return err
	}
	vt, hasValue := wasmType(n.Init.Type())
	if n.Mutable && hasValue && isCapturedByClosure(n.Name, n.Scope) {
		return c.lowerBoxedLet(env, n, vt, b)
	}
	var localName string
	if hasValue {
		localName = c.newLocal(env, n.Name, vt)
		b.Emit(ir.LocalSet(localName))
	}
	inner := env.Bind(n.Name, Storage{Kind: StorageOffset, LocalName: localName})
	return c.lower(inner, n.Scope, b)
}

// lowerBoxedLet finishes lowering a captured let-mut: the initializer's
// value, already on the stack, is stashed into a freshly malloced one-cell
// heap record instead of a local, and the binding resolves to a
// StorageFuncRef pointing at that cell so every read and write — inside
// this function and inside any closure that captures it — goes through the
// same memory.
func (c *Context) lowerBoxedLet(env *Env, n *ast.Let, vt ir.ValType, b *ir.Builder) error {
	if err := c.ensureMalloc(); err != nil {
		return err
	}
	init := c.newLocal(env, "boxval", vt)
	b.Emit(ir.LocalSet(init))
	b.Emit(ir.I32Const(4))
	b.Emit(ir.Call(mallocLabel))
	cellL := c.newLocal(env, "box", ir.I32)
	b.Emit(ir.LocalSet(cellL))
	b.Emit(ir.LocalGet(cellL))
	b.Emit(ir.LocalGet(init))
	if vt == ir.F32 {
		b.Emit(ir.F32Store(0))
	} else {
		b.Emit(ir.I32Store(0))
	}
	inner := env.Bind(n.Name, Storage{Kind: StorageFuncRef, LocalName: cellL, ElemType: vt})
	return c.lower(inner, n.Scope, b)
}

// lowerLetRec hoists `let rec f(params) = body in scope` to a standalone
// Wasm function called directly (no closure cell, no environment pointer):
// f is bound to a StorageTableEntry so both recursive self-calls inside
// body and ordinary calls inside scope go through `call`, not
// `call_indirect` (spec.md §4.C).
func (c *Context) lowerLetRec(env *Env, n *ast.Let, b *ir.Builder) error {
	lam, ok := n.Init.(*ast.Lambda)
	if !ok {
		return &InvalidASTError{Node: "Let", Reason: "let rec requires a lambda initializer"}
	}
	label := c.FreshLabel("fn_" + n.Name)
	tableIdx := c.Module.AddTableEntry(label)
	st := Storage{Kind: StorageTableEntry, TableLabel: label, TableIndex: tableIdx}
	outer := env.Bind(n.Name, st)
	if err := c.hoistDirectFunction(outer, label, n.Name, st, lam); err != nil {
		return err
	}
	return c.lower(outer, n.Scope, b)
}

// hoistDirectFunction lowers lam's body into a standalone ir.Function with
// no leading environment parameter: its own recursive name resolves to
// self, and its parameters resolve to ordinary Wasm locals.
func (c *Context) hoistDirectFunction(outer *Env, label, name string, self Storage, lam *ast.Lambda) error {
	fnEnv := NewEnv(label, lam.Env())
	fnEnv = fnEnv.Bind(name, self)
	paramNames := make([]string, len(lam.Params))
	for i, p := range lam.Params {
		paramNames[i] = p.Name
		fnEnv = fnEnv.Bind(p.Name, Storage{Kind: StorageOffset, LocalName: p.Name})
	}
	fb := ir.NewBuilder()
	if err := c.lower(fnEnv, lam.Body, fb); err != nil {
		return err
	}
	sig := directFuncType(lam.Params, lam.Body.Type())
	fn := &ir.Function{
		Label:  label,
		Sig:    sig,
		Params: paramNames,
		Locals: c.takeLocals(label),
		Body:   fb.Take(),
	}
	return c.Module.AddFunction(fn)
}

// lowerAnonymousLambda closure-converts a function literal that is not a
// let-rec initializer: a fresh top-level function taking a leading cenv
// pointer, a heap record holding its free variables, and a 2-word closure
// cell (table_index, env_pointer) whose address is the lambda's runtime
// value (spec.md §4.C). A free variable that is itself a boxed (captured)
// let-mut is recorded by reference: the env slot holds the box's pointer,
// not a snapshot of its value, so a mutation on either side of the capture
// is visible to the other (spec.md §9).
func (c *Context) lowerAnonymousLambda(env *Env, n *ast.Lambda, b *ir.Builder) error {
	free := freeVars(n.Params, n.Body)
	freeTypes := make([]ir.ValType, len(free))
	freeBoxed := make([]bool, len(free))
	boxElemTypes := make([]ir.ValType, len(free))
	for i, name := range free {
		vt := ir.I32
		if t, ok := n.Env().Lookup(name); ok {
			if wt, has := wasmType(t); has {
				vt = wt
			}
		}
		if st, ok := env.Lookup(name); ok && st.Kind == StorageFuncRef {
			freeBoxed[i] = true
			boxElemTypes[i] = st.ElemType
			vt = ir.I32 // the shared cell's address, not its value
		}
		freeTypes[i] = vt
	}

	label := c.FreshLabel("lam")
	tableIdx := c.Module.AddTableEntry(label)
	if err := c.hoistClosureFunction(label, n, free, freeTypes, freeBoxed, boxElemTypes); err != nil {
		return err
	}

	cenvLocal, err := c.buildClosureEnv(env, free, freeTypes, freeBoxed, b)
	if err != nil {
		return err
	}
	return c.buildClosureCell(env, tableIdx, cenvLocal, b)
}

// buildClosureEnv mallocs a record holding one word per free variable (four
// bytes each, i32 or f32), in the order freeVars returned them, and
// returns the local holding its address. An empty free-variable set needs
// no record at all. A boxed free variable contributes its cell's pointer
// rather than its dereferenced value, so the closure shares the box rather
// than copying out of it.
func (c *Context) buildClosureEnv(env *Env, free []string, freeTypes []ir.ValType, freeBoxed []bool, b *ir.Builder) (string, error) {
	if len(free) == 0 {
		return "", nil
	}
	if err := c.ensureMalloc(); err != nil {
		return "", err
	}
	b.Emit(ir.I32Const(int64(4 * len(free))))
	b.Emit(ir.Call(mallocLabel))
	cenvL := c.newLocal(env, "cenv", ir.I32)
	b.Emit(ir.LocalSet(cenvL))
	for i, name := range free {
		st, ok := env.Lookup(name)
		if !ok {
			return "", &UnresolvedIdentifierError{Name: name}
		}
		b.Emit(ir.LocalGet(cenvL))
		if freeBoxed[i] {
			b.Emit(ir.LocalGet(st.LocalName)) // share the box's pointer
		} else {
			c.emitStorageGet(st, b)
		}
		if freeTypes[i] == ir.F32 {
			b.Emit(ir.F32Store(uint32(i * 4)))
		} else {
			b.Emit(ir.I32Store(uint32(i * 4)))
		}
	}
	return cenvL, nil
}

// buildClosureCell mallocs the 2-word (table_index, env_pointer) cell and
// leaves its address on the stack as the lambda's value.
func (c *Context) buildClosureCell(env *Env, tableIdx int, cenvLocal string, b *ir.Builder) error {
	if err := c.ensureMalloc(); err != nil {
		return err
	}
	b.Emit(ir.I32Const(8))
	b.Emit(ir.Call(mallocLabel))
	cellL := c.newLocal(env, "cell", ir.I32)
	b.Emit(ir.LocalSet(cellL))
	b.Emit(ir.LocalGet(cellL))
	b.Emit(ir.I32Const(int64(tableIdx)))
	b.Emit(ir.I32Store(0))
	b.Emit(ir.LocalGet(cellL))
	if cenvLocal == "" {
		b.Emit(ir.I32Const(0))
	} else {
		b.Emit(ir.LocalGet(cenvLocal))
	}
	b.Emit(ir.I32Store(4))
	b.Emit(ir.LocalGet(cellL))
	return nil
}

// hoistClosureFunction builds the standalone function a closure's table
// entry points to: a leading `cenv` i32 parameter, the lambda's own
// parameters, and a prelude that unpacks each free variable out of cenv
// into its own local before lowering the body. A boxed free variable's
// local holds the shared cell's pointer, bound back as a StorageFuncRef so
// every access inside the body indirects through the same cell the
// capturing scope uses (spec.md §9).
func (c *Context) hoistClosureFunction(label string, lam *ast.Lambda, free []string, freeTypes []ir.ValType, freeBoxed []bool, boxElemTypes []ir.ValType) error {
	fnEnv := NewEnv(label, lam.Env())
	fnEnv = fnEnv.Bind("cenv", Storage{Kind: StorageOffset, LocalName: "cenv"})
	paramNames := []string{"cenv"}
	for _, p := range lam.Params {
		paramNames = append(paramNames, p.Name)
		fnEnv = fnEnv.Bind(p.Name, Storage{Kind: StorageOffset, LocalName: p.Name})
	}

	fb := ir.NewBuilder()
	for i, name := range free {
		localName := c.newLocal(fnEnv, "fv_"+name, freeTypes[i])
		fb.Emit(ir.LocalGet("cenv"))
		if freeTypes[i] == ir.F32 {
			fb.Emit(ir.F32Load(uint32(i * 4)))
		} else {
			fb.Emit(ir.I32Load(uint32(i * 4)))
		}
		fb.Emit(ir.LocalSet(localName))
		if freeBoxed[i] {
			fnEnv = fnEnv.Bind(name, Storage{Kind: StorageFuncRef, LocalName: localName, ElemType: boxElemTypes[i]})
		} else {
			fnEnv = fnEnv.Bind(name, Storage{Kind: StorageOffset, LocalName: localName})
		}
	}

	if err := c.lower(fnEnv, lam.Body, fb); err != nil {
		return err
	}

	paramTypes := make([]ast.Type, len(lam.Params))
	for i, p := range lam.Params {
		paramTypes[i] = p.Typ
	}
	sig := closureFuncType(&ast.Fun{Params: paramTypes, Ret: lam.Body.Type()})
	fn := &ir.Function{
		Label:  label,
		Sig:    sig,
		Params: paramNames,
		Locals: c.takeLocals(label),
		Body:   fb.Take(),
	}
	return c.Module.AddFunction(fn)
}

// lowerApply distinguishes a direct call (the callee resolves to a
// table-hoisted function, i.e. a let-rec binding) from an indirect call
// through an arbitrary closure value: push the closure's env pointer as
// the leading argument, then the real arguments, then call_indirect
// against its table_index (spec.md §4.C).
func (c *Context) lowerApply(env *Env, n *ast.Apply, b *ir.Builder) error {
	if v, ok := n.Callee.(*ast.Variable); ok {
		if st, ok2 := env.Lookup(v.Name); ok2 && st.Kind == StorageTableEntry {
			for _, a := range n.Args {
				if err := c.lower(env, a, b); err != nil {
					return err
				}
			}
			b.Emit(ir.Call(st.TableLabel))
			return nil
		}
	}

	if err := c.lower(env, n.Callee, b); err != nil {
		return err
	}
	closureL := c.newLocal(env, "clos", ir.I32)
	b.Emit(ir.LocalSet(closureL))
	b.Emit(ir.LocalGet(closureL))
	b.Emit(ir.I32Load(4)) // env pointer becomes the callee's leading cenv arg
	for _, a := range n.Args {
		if err := c.lower(env, a, b); err != nil {
			return err
		}
	}
	b.Emit(ir.LocalGet(closureL))
	b.Emit(ir.I32Load(0)) // table index

	argTypes := make([]ast.Type, len(n.Args))
	for i, a := range n.Args {
		argTypes[i] = a.Type()
	}
	sigName := c.Module.AddFuncType(closureFuncType(&ast.Fun{Params: argTypes, Ret: n.Type()}))
	b.Emit(ir.CallIndirect(sigName))
	return nil
}
