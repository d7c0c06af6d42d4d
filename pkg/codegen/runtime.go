package codegen

import (
	"github.com/hyggelang/hyggec/pkg/ir"
)

// Well-known runtime symbol names, spec.md §4.D.
const (
	mallocLabel     = "malloc"
	readIntLabel    = "readInt"
	readFloatLabel  = "readFloat"
	writeIntLabel   = "writeInt"
	writeFloatLabel = "writeFloat"
	writeSLabel     = "writeS"

	bumpPtrGlobal  = "bump_ptr"
	heapBaseGlobal = "heap_base_ptr"

	// AssertExitSentinel is the value _start returns to signal a failed
	// runtime check: assertion, bounds check, or unmatched union
	// scrutinee (spec.md §4.D).
	AssertExitSentinel = 42
)

var mallocSig = &ir.FuncType{Params: []ir.ValType{ir.I32}, Results: []ir.ValType{ir.I32}}

// ensureMalloc makes `call $malloc` valid: imports it from the host under
// the external allocation strategy, or synthesises a bump-allocator
// function under the internal one (spec.md §4.B/§6).
func (c *Context) ensureMalloc() error {
	if c.Module.HasImport("env", mallocLabel) {
		return nil
	}
	if _, ok := c.Module.Function(mallocLabel); ok {
		return nil
	}
	if c.Config.AllocationStrategy == "internal" {
		return c.Module.AddFunction(synthesizeMalloc())
	}
	c.MarkImportUsed(mallocLabel)
	return c.Module.AddImport(ir.Import{Module: "env", Name: mallocLabel, Kind: ir.ExternFunc, Sig: mallocSig})
}

// synthesizeMalloc builds the module-local bump allocator used when
// Config.AllocationStrategy is "internal": a mutable global tracks the
// next free address, seeded at heap_base_ptr.
func synthesizeMalloc() *ir.Function {
	return &ir.Function{
		Label:  mallocLabel,
		Sig:    mallocSig,
		Params: []string{"n"},
		Locals: []ir.Local{{Name: "addr", Type: ir.I32}},
		Body: []ir.Instr{
			ir.WithComment(ir.GlobalGet(bumpPtrGlobal), "addr = bump_ptr"),
			ir.LocalSet("addr"),
			ir.GlobalGet(bumpPtrGlobal),
			ir.LocalGet("n"),
			ir.I32Add(),
			ir.WithComment(ir.GlobalSet(bumpPtrGlobal), "bump_ptr += n"),
			ir.LocalGet("addr"),
			ir.Return(),
		},
	}
}

// ensureHostCall imports the given env host function (readInt, readFloat,
// writeInt, writeFloat, writeS) on first use, per spec.md §4.D's "imports
// host calls only for the I/O primitives actually used".
func (c *Context) ensureHostCall(name string, sig *ir.FuncType) {
	c.MarkImportUsed(name)
	if c.Module.HasImport("env", name) {
		return
	}
	_ = c.Module.AddImport(ir.Import{Module: "env", Name: name, Kind: ir.ExternFunc, Sig: sig})
}

var (
	readIntSig    = &ir.FuncType{Results: []ir.ValType{ir.I32}}
	readFloatSig  = &ir.FuncType{Results: []ir.ValType{ir.F32}}
	writeIntSig   = &ir.FuncType{Params: []ir.ValType{ir.I32}}
	writeFloatSig = &ir.FuncType{Params: []ir.ValType{ir.F32}}
	writeSSig     = &ir.FuncType{Params: []ir.ValType{ir.I32, ir.I32}}
)

// finalizeRuntime stamps the module's fixed boiler-plate: the immutable
// heap_base_ptr global (and, under the internal allocation strategy, the
// mutable bump_ptr global it seeds), the memory section sized to the
// allocator's page count, and the memory export (spec.md §4.C "Entry-point
// synthesis", §6).
func (c *Context) finalizeRuntime() error {
	base := c.Alloc.HighWaterMark()
	_ = c.Module.AddGlobal(ir.Global{
		Name: heapBaseGlobal,
		Type: ir.I32,
		Init: ir.I32Const(int64(base)),
	})
	if c.Config.AllocationStrategy == "internal" {
		_ = c.Module.AddGlobal(ir.Global{
			Name:    bumpPtrGlobal,
			Type:    ir.I32,
			Mutable: true,
			Init:    ir.I32Const(int64(base)),
		})
	}
	c.Module.AddMemory(ir.Memory{InitialPages: uint32(c.Alloc.PageCount())})
	c.Module.AddExport(ir.Export{Name: "memory", Kind: ir.ExternMemory, Ref: "memory"})
	c.Module.AddExport(ir.Export{Name: "heap_base_ptr", Kind: ir.ExternGlobal, Ref: heapBaseGlobal})
	return nil
}
