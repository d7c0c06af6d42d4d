// Package wat serializes a lowered Wasm IR module into WebAssembly text
// format, in either of the two writing styles spec.md §4.F names: linear
// (explicit `end` markers) or folded (S-expression nesting). Section
// order is fixed — types, imports, memory, globals, table, element
// segments, functions, data, exports — so two runs over the same module
// always produce byte-identical text (spec.md §8's determinism property).
package wat

import (
	"fmt"
	"strings"

	"github.com/hyggelang/hyggec/pkg/ir"
)

// Print renders module as WAT text in the style module.Style selects.
func Print(module *ir.Module) string {
	var b strings.Builder
	b.WriteString("(module\n")

	for _, t := range module.Types() {
		fmt.Fprintf(&b, "  (type $%s (func%s%s))\n", t.CanonicalName(), paramTypeList(t.Params), resultList(t.Results))
	}
	for _, imp := range module.Imports {
		writeImport(&b, imp)
	}
	writeMemory(&b, module.Memory)
	for _, g := range module.Globals {
		writeGlobal(&b, g)
	}
	writeTable(&b, module.Table)
	writeElement(&b, module.Table)
	for _, fn := range module.Functions {
		writeFunction(&b, module, fn)
	}
	for _, d := range module.Data {
		writeData(&b, d)
	}
	for _, e := range module.Exports {
		writeExport(&b, e)
	}

	b.WriteString(")\n")
	return b.String()
}

func paramTypeList(params []ir.ValType) string {
	if len(params) == 0 {
		return ""
	}
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.String()
	}
	return " (param " + strings.Join(parts, " ") + ")"
}

func resultList(results []ir.ValType) string {
	if len(results) == 0 {
		return ""
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.String()
	}
	return " (result " + strings.Join(parts, " ") + ")"
}

func writeImport(b *strings.Builder, imp ir.Import) {
	switch imp.Kind {
	case ir.ExternFunc:
		fmt.Fprintf(b, "  (import %q %q (func $%s%s%s))\n",
			imp.Module, imp.Name, imp.Name, paramTypeList(imp.Sig.Params), resultList(imp.Sig.Results))
	case ir.ExternMemory:
		fmt.Fprintf(b, "  (import %q %q (memory $%s 0))\n", imp.Module, imp.Name, imp.Name)
	case ir.ExternTable:
		fmt.Fprintf(b, "  (import %q %q (table $%s 0 funcref))\n", imp.Module, imp.Name, imp.Name)
	case ir.ExternGlobal:
		fmt.Fprintf(b, "  (import %q %q (global $%s i32))\n", imp.Module, imp.Name, imp.Name)
	}
}

func writeMemory(b *strings.Builder, mem ir.Memory) {
	if mem.HasMax {
		fmt.Fprintf(b, "  (memory %d %d)\n", mem.InitialPages, mem.MaxPages)
		return
	}
	fmt.Fprintf(b, "  (memory %d)\n", mem.InitialPages)
}

func writeGlobal(b *strings.Builder, g ir.Global) {
	typ := g.Type.String()
	if g.Mutable {
		typ = "(mut " + typ + ")"
	}
	fmt.Fprintf(b, "  (global $%s %s (%s))\n", g.Name, typ, plainInstr(g.Init))
}

func writeTable(b *strings.Builder, t ir.Table) {
	if len(t.Elements) == 0 {
		return
	}
	fmt.Fprintf(b, "  (table %d funcref)\n", len(t.Elements))
}

func writeElement(b *strings.Builder, t ir.Table) {
	if len(t.Elements) == 0 {
		return
	}
	names := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		names[i] = "$" + e
	}
	fmt.Fprintf(b, "  (elem (i32.const 0) %s)\n", strings.Join(names, " "))
}

func writeFunction(b *strings.Builder, module *ir.Module, fn *ir.Function) {
	fmt.Fprintf(b, "  (func $%s", fn.Label)
	for i, p := range fn.Params {
		fmt.Fprintf(b, " (param $%s %s)", p, fn.Sig.Params[i].String())
	}
	b.WriteString(resultList(fn.Sig.Results))
	b.WriteString("\n")
	for _, l := range fn.Locals {
		fmt.Fprintf(b, "    (local $%s %s)\n", l.Name, l.Type.String())
	}
	if module.Style == ir.StyleFolded {
		writeInstrsFolded(b, fn.Body, "    ")
	} else {
		writeInstrsLinear(b, fn.Body, "    ")
	}
	b.WriteString("  )\n")
}

func writeData(b *strings.Builder, d ir.DataSegment) {
	fmt.Fprintf(b, "  (data (i32.const %d) %q)\n", d.Offset, string(d.Bytes))
}

func writeExport(b *strings.Builder, e ir.Export) {
	fmt.Fprintf(b, "  (export %q (%s $%s))\n", e.Name, e.Kind.String(), e.Ref)
}

// ---- instruction printing ---------------------------------------------------

func comment(c string) string {
	if c == "" {
		return ""
	}
	return "  ;; " + c
}

// plainInstr formats the non-nesting instructions — everything except
// block/loop/if, which the two stylistic printers below handle themselves
// since their bodies differ between linear and folded output.
func plainInstr(in ir.Instr) string {
	switch in.Op {
	case "i32.const":
		return fmt.Sprintf("i32.const %d", in.IntImm)
	case "f32.const":
		return fmt.Sprintf("f32.const %g", in.FloatImm)
	case "local.get", "local.set", "local.tee", "global.get", "global.set", "br", "br_if":
		return fmt.Sprintf("%s $%s", in.Op, in.Name)
	case "call":
		return fmt.Sprintf("call $%s", in.Name)
	case "call_indirect":
		return fmt.Sprintf("call_indirect (type $%s)", in.Name)
	case "i32.load", "f32.load", "i32.store", "f32.store":
		if in.Offset != 0 {
			return fmt.Sprintf("%s offset=%d", in.Op, in.Offset)
		}
		return in.Op
	default:
		return in.Op
	}
}

// writeInstrsFolded prints each instruction as an S-expression; block,
// loop and if are already nested in the IR, so this is a direct
// structural walk.
func writeInstrsFolded(b *strings.Builder, instrs []ir.Instr, indent string) {
	for _, in := range instrs {
		writeInstrFolded(b, in, indent)
	}
}

func writeInstrFolded(b *strings.Builder, in ir.Instr, indent string) {
	switch in.Op {
	case "block", "loop":
		fmt.Fprintf(b, "%s(%s $%s%s\n", indent, in.Op, in.Name, resultList(in.Results))
		writeInstrsFolded(b, in.Body, indent+"  ")
		fmt.Fprintf(b, "%s)%s\n", indent, comment(in.Comment))
	case "if":
		fmt.Fprintf(b, "%s(if%s\n", indent, resultList(in.Results))
		fmt.Fprintf(b, "%s  (then\n", indent)
		writeInstrsFolded(b, in.Then, indent+"    ")
		fmt.Fprintf(b, "%s  )\n", indent)
		if len(in.Else) > 0 {
			fmt.Fprintf(b, "%s  (else\n", indent)
			writeInstrsFolded(b, in.Else, indent+"    ")
			fmt.Fprintf(b, "%s  )\n", indent)
		}
		fmt.Fprintf(b, "%s)%s\n", indent, comment(in.Comment))
	default:
		fmt.Fprintf(b, "%s%s%s\n", indent, plainInstr(in), comment(in.Comment))
	}
}

// writeInstrsLinear flattens the same instruction tree into the
// block/loop/if ... end form.
func writeInstrsLinear(b *strings.Builder, instrs []ir.Instr, indent string) {
	for _, in := range instrs {
		writeInstrLinear(b, in, indent)
	}
}

func writeInstrLinear(b *strings.Builder, in ir.Instr, indent string) {
	switch in.Op {
	case "block", "loop":
		fmt.Fprintf(b, "%s%s $%s%s%s\n", indent, in.Op, in.Name, resultList(in.Results), comment(in.Comment))
		writeInstrsLinear(b, in.Body, indent+"  ")
		fmt.Fprintf(b, "%send\n", indent)
	case "if":
		fmt.Fprintf(b, "%sif%s%s\n", indent, resultList(in.Results), comment(in.Comment))
		writeInstrsLinear(b, in.Then, indent+"  ")
		if len(in.Else) > 0 {
			fmt.Fprintf(b, "%selse\n", indent)
			writeInstrsLinear(b, in.Else, indent+"  ")
		}
		fmt.Fprintf(b, "%send\n", indent)
	default:
		fmt.Fprintf(b, "%s%s%s\n", indent, plainInstr(in), comment(in.Comment))
	}
}
