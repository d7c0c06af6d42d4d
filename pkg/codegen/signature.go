package codegen

import (
	"github.com/hyggelang/hyggec/pkg/ast"
	"github.com/hyggelang/hyggec/pkg/ir"
)

// wasmType implements spec.md §4.C's Wasm() mapping: i32 for
// int/bool/string/struct/array/union/function, f32 for float, and "no
// result" for unit. The bool result reports whether t actually occupies a
// Wasm value (false for unit).
func wasmType(t ast.Type) (ir.ValType, bool) {
	switch tt := t.(type) {
	case ast.Basic:
		switch tt {
		case ast.TFloat:
			return ir.F32, true
		case ast.TUnit:
			return 0, false
		default: // TInt, TBool, TString, Bottom (never reached in valid AST)
			return ir.I32, true
		}
	default:
		// Fun, *Struct, *Array, *Union, *Var all lower to an i32 pointer
		// or table index.
		return ir.I32, true
	}
}

// resultTypes is wasmType's plural form for a function's result slot: a
// unit result is zero results, any other type is exactly one.
func resultTypes(t ast.Type) []ir.ValType {
	if vt, ok := wasmType(t); ok {
		return []ir.ValType{vt}
	}
	return nil
}

// closureFuncType derives the Wasm function-type signature for a Hygge
// function type, per spec.md §4.C's signature-mangling rule: a leading
// i32 environment-pointer parameter, then the Wasm-mapped parameter
// types, then the Wasm-mapped result. Every closure-compiled function and
// every call_indirect against it shares this one derivation, so the
// table's dispatch is always against a type the module's type table
// already carries (spec.md §3 invariant 7).
func closureFuncType(ft *ast.Fun) *ir.FuncType {
	params := make([]ir.ValType, 0, len(ft.Params)+1)
	params = append(params, ir.I32) // cenv
	for _, p := range ft.Params {
		if vt, ok := wasmType(p); ok {
			params = append(params, vt)
		}
	}
	return &ir.FuncType{Params: params, Results: resultTypes(ft.Ret)}
}

// directFuncType is the signature of a hoisted (non-closure) top-level
// function: no leading environment pointer, since hoisted lets are called
// directly rather than through call_indirect.
func directFuncType(params []ast.Param, ret ast.Type) *ir.FuncType {
	vts := make([]ir.ValType, 0, len(params))
	for _, p := range params {
		if vt, ok := wasmType(p.Typ); ok {
			vts = append(vts, vt)
		}
	}
	return &ir.FuncType{Params: vts, Results: resultTypes(ret)}
}
