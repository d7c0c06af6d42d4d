// Package codegen is the type-directed recursive lowering engine from a
// typed Hygge AST (pkg/ast) to a Wasm IR module (pkg/ir) — the heart of
// the system, spec.md §4.C. Everything else in this repository exists to
// support it: pkg/alloc gives it compile-time addresses, pkg/ir gives it
// a place to put instructions, pkg/optimizer and pkg/wat consume its
// output.
package codegen

import (
	"fmt"

	"github.com/hyggelang/hyggec/pkg/alloc"
	"github.com/hyggelang/hyggec/pkg/config"
	"github.com/hyggelang/hyggec/pkg/ir"
)

// Context is the long-lived state of one compilation: the static
// allocator and the module under construction. Unlike Env (which is
// scoped and threaded through the recursion functionally), Context is
// shared by reference across the whole lowering pass — spec.md §3
// describes the allocator as "long-lived (whole module)".
type Context struct {
	Module *ir.Module
	Alloc  *alloc.Allocator
	Config config.Config

	labelCounter int
	unionTags    map[string]int64 // "UnionName.Label" -> interned tag, first-seen order
	nextTag      int64

	usedImports map[string]bool // host calls actually referenced, for §4.D's "only imports used"

	pendingLocals map[string][]ir.Local // funcLabel -> locals minted while lowering its body

	newlineAddr *uint32 // cached data-segment address of the println newline record
}

// NewContext creates the shared state for lowering one top-level
// expression into module.
func NewContext(module *ir.Module, cfg config.Config) *Context {
	return &Context{
		Module:      module,
		Alloc:       alloc.New(),
		Config:      cfg,
		unionTags:     make(map[string]int64),
		usedImports:   make(map[string]bool),
		pendingLocals: make(map[string][]ir.Local),
	}
}

// newLocal mints a fresh local of type t, scoped to env's current function,
// and records it for that function's eventual Locals vector.
func (c *Context) newLocal(env *Env, prefix string, t ir.ValType) string {
	name := c.FreshLabel(prefix)
	c.pendingLocals[env.FuncLabel] = append(c.pendingLocals[env.FuncLabel], ir.Local{Name: name, Type: t})
	return name
}

// takeLocals returns and clears the locals minted for funcLabel so far —
// called once, when that function's body is fully lowered.
func (c *Context) takeLocals(funcLabel string) []ir.Local {
	ls := c.pendingLocals[funcLabel]
	delete(c.pendingLocals, funcLabel)
	return ls
}

// FreshLabel mints a compiler-generated, module-unique name built from a
// human-readable prefix — used for hoisted lambdas, block/loop labels,
// and local temporaries.
func (c *Context) FreshLabel(prefix string) string {
	c.labelCounter++
	return fmt.Sprintf("%s$%d", prefix, c.labelCounter)
}

// InternUnionTag returns the stable integer tag for label within union,
// assigning the next tag on first sight (spec.md §3: "a stable integer id
// derived from the label name, by interning"). Interning order is
// first-seen order across the whole compilation unit, so recompiling the
// same AST always yields the same tag table (spec.md §8 determinism
// property).
func (c *Context) InternUnionTag(unionName, label string) int64 {
	key := unionName + "." + label
	if tag, ok := c.unionTags[key]; ok {
		return tag
	}
	tag := c.nextTag
	c.nextTag++
	c.unionTags[key] = tag
	return tag
}

// MarkImportUsed records that the generated code actually calls a given
// host import, so Generate only declares the imports the program needs
// (spec.md §4.D).
func (c *Context) MarkImportUsed(name string) { c.usedImports[name] = true }

func (c *Context) importUsed(name string) bool { return c.usedImports[name] }
