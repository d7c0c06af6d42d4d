package codegen

import (
	"github.com/hyggelang/hyggec/pkg/ast"
	"github.com/hyggelang/hyggec/pkg/ir"
)

// Struct and array values are both heap records addressed by an i32
// pointer: a struct is its fields laid out at 4-byte strides in
// FieldOrder, an array is an 8-byte (data_ptr, length) header over a
// separately allocated data region (spec.md §3 invariants 8-9). Union
// values are an 8-byte (tag, payload) record (spec.md §3 invariant 10).

func (c *Context) lowerStructLit(env *Env, n *ast.StructLit, b *ir.Builder) error {
	st, ok := n.Type().(*ast.Struct)
	if !ok {
		return &InvalidASTError{Node: "StructLit", Reason: "resolved type is not a struct"}
	}
	if err := c.ensureMalloc(); err != nil {
		return err
	}
	b.Emit(ir.I32Const(int64(4 * len(st.FieldOrder))))
	b.Emit(ir.Call(mallocLabel))
	addrL := c.newLocal(env, "struct", ir.I32)
	b.Emit(ir.LocalSet(addrL))

	valueByName := make(map[string]ast.Expr, len(n.FieldNames))
	for i, name := range n.FieldNames {
		valueByName[name] = n.FieldValues[i]
	}
	for i, name := range st.FieldOrder {
		val, ok := valueByName[name]
		if !ok {
			return &InvalidASTError{Node: "StructLit", Reason: "missing field " + name}
		}
		b.Emit(ir.LocalGet(addrL))
		if err := c.lower(env, val, b); err != nil {
			return err
		}
		if vt, _ := wasmType(st.Fields[name]); vt == ir.F32 {
			b.Emit(ir.F32Store(uint32(i * 4)))
		} else {
			b.Emit(ir.I32Store(uint32(i * 4)))
		}
	}
	b.Emit(ir.LocalGet(addrL))
	return nil
}

func fieldOffset(st *ast.Struct, field string) int {
	for i, name := range st.FieldOrder {
		if name == field {
			return i
		}
	}
	return -1
}

func (c *Context) lowerFieldSelect(env *Env, n *ast.FieldSelect, b *ir.Builder) error {
	st, ok := n.Target.Type().(*ast.Struct)
	if !ok {
		return &InvalidASTError{Node: "FieldSelect", Reason: "target is not a struct"}
	}
	idx := fieldOffset(st, n.Field)
	if idx < 0 {
		return &InvalidASTError{Node: "FieldSelect", Reason: "unknown field " + n.Field}
	}
	if err := c.lower(env, n.Target, b); err != nil {
		return err
	}
	if vt, _ := wasmType(st.Fields[n.Field]); vt == ir.F32 {
		b.Emit(ir.F32Load(uint32(idx * 4)))
	} else {
		b.Emit(ir.I32Load(uint32(idx * 4)))
	}
	return nil
}

// lowerArrayLit evaluates Length once, mallocs the data region, then fills
// every slot with a fresh evaluation of Init via a counted loop (so an
// Init with observable effects, e.g. reading input, runs once per slot).
func (c *Context) lowerArrayLit(env *Env, n *ast.ArrayLit, b *ir.Builder) error {
	arr, ok := n.Type().(*ast.Array)
	if !ok {
		return &InvalidASTError{Node: "ArrayLit", Reason: "resolved type is not an array"}
	}
	if err := c.ensureMalloc(); err != nil {
		return err
	}
	if err := c.lower(env, n.Length, b); err != nil {
		return err
	}
	lenL := c.newLocal(env, "alen", ir.I32)
	b.Emit(ir.LocalSet(lenL))
	b.Emit(ir.LocalGet(lenL))
	b.Emit(ir.I32Const(4))
	b.Emit(ir.I32Mul())
	b.Emit(ir.Call(mallocLabel))
	dataL := c.newLocal(env, "adata", ir.I32)
	b.Emit(ir.LocalSet(dataL))
	idxL := c.newLocal(env, "ai", ir.I32)
	b.Emit(ir.I32Const(0))
	b.Emit(ir.LocalSet(idxL))

	elemFloat := isFloatType(arr.Elem)
	contLabel := c.FreshLabel("alcont")
	exitLabel := c.FreshLabel("alexit")
	body := ir.NewBuilder()
	body.Emit(ir.LocalGet(idxL))
	body.Emit(ir.LocalGet(lenL))
	body.Emit(ir.I32GeS())
	body.Emit(ir.BrIf(exitLabel))
	body.Emit(ir.LocalGet(dataL))
	body.Emit(ir.LocalGet(idxL))
	body.Emit(ir.I32Const(4))
	body.Emit(ir.I32Mul())
	body.Emit(ir.I32Add())
	if err := c.lower(env, n.Init, body); err != nil {
		return err
	}
	if elemFloat {
		body.Emit(ir.F32Store(0))
	} else {
		body.Emit(ir.I32Store(0))
	}
	body.Emit(ir.LocalGet(idxL))
	body.Emit(ir.I32Const(1))
	body.Emit(ir.I32Add())
	body.Emit(ir.LocalSet(idxL))
	body.Emit(ir.Br(contLabel))
	loopInstr := ir.Loop(contLabel, nil, body.Take())
	b.Emit(ir.Block(exitLabel, nil, []ir.Instr{loopInstr}))

	return c.buildArrayHeader(env, dataL, lenL, b)
}

func (c *Context) buildArrayHeader(env *Env, dataL, lenL string, b *ir.Builder) error {
	if err := c.ensureMalloc(); err != nil {
		return err
	}
	b.Emit(ir.I32Const(8))
	b.Emit(ir.Call(mallocLabel))
	hdrL := c.newLocal(env, "ahdr", ir.I32)
	b.Emit(ir.LocalSet(hdrL))
	b.Emit(ir.LocalGet(hdrL))
	b.Emit(ir.LocalGet(dataL))
	b.Emit(ir.I32Store(0))
	b.Emit(ir.LocalGet(hdrL))
	b.Emit(ir.LocalGet(lenL))
	b.Emit(ir.I32Store(4))
	b.Emit(ir.LocalGet(hdrL))
	return nil
}

func (c *Context) lowerArrayLength(env *Env, n *ast.ArrayLength, b *ir.Builder) error {
	if err := c.lower(env, n.Target, b); err != nil {
		return err
	}
	b.Emit(ir.I32Load(4))
	return nil
}

// boundsCheck emits `if (idx < 0 || idx >= length) { <fail> }` against the
// array header already in hdrL and the index already in idxL.
func boundsCheck(hdrL, idxL string, b *ir.Builder) {
	b.Emit(ir.LocalGet(idxL))
	b.Emit(ir.I32Const(0))
	b.Emit(ir.I32LtS())
	b.Emit(ir.LocalGet(idxL))
	b.Emit(ir.LocalGet(hdrL))
	b.Emit(ir.I32Load(4))
	b.Emit(ir.I32GeS())
	b.Emit(ir.I32Or())
	b.Emit(ir.If(nil, failInstrs(), nil))
}

func (c *Context) lowerArrayIndex(env *Env, n *ast.ArrayIndex, b *ir.Builder) error {
	arr, ok := n.Target.Type().(*ast.Array)
	if !ok {
		return &InvalidASTError{Node: "ArrayIndex", Reason: "target is not an array"}
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
	if isFloatType(arr.Elem) {
		b.Emit(ir.F32Load(0))
	} else {
		b.Emit(ir.I32Load(0))
	}
	return nil
}

// lowerArraySlice bounds-checks 0<=start<=end<=length, then copies the
// subrange into a freshly allocated array of its own (spec.md's array
// value semantics are by-value, not a view).
func (c *Context) lowerArraySlice(env *Env, n *ast.ArraySlice, b *ir.Builder) error {
	arr, ok := n.Target.Type().(*ast.Array)
	if !ok {
		return &InvalidASTError{Node: "ArraySlice", Reason: "target is not an array"}
	}
	if err := c.ensureMalloc(); err != nil {
		return err
	}
	if err := c.lower(env, n.Target, b); err != nil {
		return err
	}
	srcHdrL := c.newLocal(env, "shdr", ir.I32)
	b.Emit(ir.LocalSet(srcHdrL))
	if err := c.lower(env, n.Start, b); err != nil {
		return err
	}
	startL := c.newLocal(env, "sstart", ir.I32)
	b.Emit(ir.LocalSet(startL))
	if err := c.lower(env, n.End, b); err != nil {
		return err
	}
	endL := c.newLocal(env, "send", ir.I32)
	b.Emit(ir.LocalSet(endL))

	b.Emit(ir.LocalGet(startL))
	b.Emit(ir.I32Const(0))
	b.Emit(ir.I32LtS())
	b.Emit(ir.LocalGet(startL))
	b.Emit(ir.LocalGet(endL))
	b.Emit(ir.I32GtS())
	b.Emit(ir.I32Or())
	b.Emit(ir.LocalGet(endL))
	b.Emit(ir.LocalGet(srcHdrL))
	b.Emit(ir.I32Load(4))
	b.Emit(ir.I32GtS())
	b.Emit(ir.I32Or())
	b.Emit(ir.If(nil, failInstrs(), nil))

	newLenL := c.newLocal(env, "nlen", ir.I32)
	b.Emit(ir.LocalGet(endL))
	b.Emit(ir.LocalGet(startL))
	b.Emit(ir.I32Sub())
	b.Emit(ir.LocalSet(newLenL))

	b.Emit(ir.LocalGet(newLenL))
	b.Emit(ir.I32Const(4))
	b.Emit(ir.I32Mul())
	b.Emit(ir.Call(mallocLabel))
	newDataL := c.newLocal(env, "ndata", ir.I32)
	b.Emit(ir.LocalSet(newDataL))

	idxL := c.newLocal(env, "six", ir.I32)
	b.Emit(ir.I32Const(0))
	b.Emit(ir.LocalSet(idxL))

	elemFloat := isFloatType(arr.Elem)
	contLabel := c.FreshLabel("slcont")
	exitLabel := c.FreshLabel("slexit")
	body := ir.NewBuilder()
	body.Emit(ir.LocalGet(idxL))
	body.Emit(ir.LocalGet(newLenL))
	body.Emit(ir.I32GeS())
	body.Emit(ir.BrIf(exitLabel))
	body.Emit(ir.LocalGet(newDataL))
	body.Emit(ir.LocalGet(idxL))
	body.Emit(ir.I32Const(4))
	body.Emit(ir.I32Mul())
	body.Emit(ir.I32Add())
	body.Emit(ir.LocalGet(srcHdrL))
	body.Emit(ir.I32Load(0))
	body.Emit(ir.LocalGet(startL))
	body.Emit(ir.LocalGet(idxL))
	body.Emit(ir.I32Add())
	body.Emit(ir.I32Const(4))
	body.Emit(ir.I32Mul())
	body.Emit(ir.I32Add())
	if elemFloat {
		body.Emit(ir.F32Load(0))
		body.Emit(ir.F32Store(0))
	} else {
		body.Emit(ir.I32Load(0))
		body.Emit(ir.I32Store(0))
	}
	body.Emit(ir.LocalGet(idxL))
	body.Emit(ir.I32Const(1))
	body.Emit(ir.I32Add())
	body.Emit(ir.LocalSet(idxL))
	body.Emit(ir.Br(contLabel))
	loopInstr := ir.Loop(contLabel, nil, body.Take())
	b.Emit(ir.Block(exitLabel, nil, []ir.Instr{loopInstr}))

	return c.buildArrayHeader(env, newDataL, newLenL, b)
}

func (c *Context) lowerUnionLit(env *Env, n *ast.UnionLit, b *ir.Builder) error {
	tag := c.InternUnionTag(n.UnionName, n.Label)
	if err := c.ensureMalloc(); err != nil {
		return err
	}
	b.Emit(ir.I32Const(8))
	b.Emit(ir.Call(mallocLabel))
	cellL := c.newLocal(env, "union", ir.I32)
	b.Emit(ir.LocalSet(cellL))
	b.Emit(ir.LocalGet(cellL))
	b.Emit(ir.I32Const(tag))
	b.Emit(ir.I32Store(0))
	b.Emit(ir.LocalGet(cellL))
	if err := c.lower(env, n.Value, b); err != nil {
		return err
	}
	if isFloatType(n.Value.Type()) {
		b.Emit(ir.F32Store(4))
	} else {
		b.Emit(ir.I32Store(4))
	}
	b.Emit(ir.LocalGet(cellL))
	return nil
}

// lowerMatch compiles to a chain of `if (tag == caseTag) {...} else {...}`,
// falling through to the sentinel failure exit if no case matches an
// interned tag (spec.md §4.C, §7's unmatched-union case).
func (c *Context) lowerMatch(env *Env, n *ast.Match, b *ir.Builder) error {
	un, ok := n.Scrutinee.Type().(*ast.Union)
	if !ok {
		return &InvalidASTError{Node: "Match", Reason: "scrutinee is not a union"}
	}
	if err := c.lower(env, n.Scrutinee, b); err != nil {
		return err
	}
	addrL := c.newLocal(env, "mscr", ir.I32)
	b.Emit(ir.LocalSet(addrL))

	results := resultTypes(n.Type())
	chain, err := c.buildMatchChain(env, addrL, un, n.Cases, results)
	if err != nil {
		return err
	}
	b.EmitAll(chain)
	return nil
}

func (c *Context) buildMatchChain(env *Env, addrL string, un *ast.Union, cases []ast.MatchCase, results []ir.ValType) ([]ir.Instr, error) {
	if len(cases) == 0 {
		return failInstrs(), nil
	}
	cs := cases[0]
	tag := c.InternUnionTag(un.Name, cs.Label)

	instrs := []ir.Instr{
		ir.LocalGet(addrL),
		ir.I32Load(0),
		ir.I32Const(tag),
		ir.I32Eq(),
	}

	payloadType := un.Labels[cs.Label]
	thenB := ir.NewBuilder()
	thenEnv := env
	if vt, ok := wasmType(payloadType); ok {
		payloadLocal := c.newLocal(env, "payload", vt)
		thenB.Emit(ir.LocalGet(addrL))
		if vt == ir.F32 {
			thenB.Emit(ir.F32Load(4))
		} else {
			thenB.Emit(ir.I32Load(4))
		}
		thenB.Emit(ir.LocalSet(payloadLocal))
		thenEnv = env.Bind(cs.Binder, Storage{Kind: StorageOffset, LocalName: payloadLocal})
	}
	if err := c.lower(thenEnv, cs.Body, thenB); err != nil {
		return nil, err
	}

	elseInstrs, err := c.buildMatchChain(env, addrL, un, cases[1:], results)
	if err != nil {
		return nil, err
	}

	instrs = append(instrs, ir.If(results, thenB.Take(), elseInstrs))
	return instrs, nil
}
