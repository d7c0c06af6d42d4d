// Package ir is the in-memory model of a WebAssembly module: the data
// model spec.md §3/§4.A describes. It knows nothing about Hygge or about
// text layout — pkg/codegen builds one of these from a typed AST, and
// pkg/wat turns one into text.
package ir

import "strings"

// ValType is a WebAssembly value type. Only the two Hygge ever needs are
// defined (spec.md's Wasm() mapping produces i32 or f32 only).
type ValType byte

const (
	I32 ValType = iota
	F32
)

func (v ValType) String() string {
	if v == F32 {
		return "f32"
	}
	return "i32"
}

// FuncType is a function signature: (params) -> results. Two FuncTypes
// with the same params/results are the same signature and must collapse
// to the same type-table entry (spec.md §3 invariant 2).
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// CanonicalName is the deterministic key FuncType table entries, call
// sites and call_indirect signatures are addressed by.
func (f *FuncType) CanonicalName() string {
	var b strings.Builder
	b.WriteString("ty_")
	for _, p := range f.Params {
		b.WriteString(p.String())
	}
	b.WriteString("_to_")
	if len(f.Results) == 0 {
		b.WriteString("none")
	}
	for _, r := range f.Results {
		b.WriteString(r.String())
	}
	return b.String()
}

func (f *FuncType) Equal(other *FuncType) bool {
	return f.CanonicalName() == other.CanonicalName()
}
