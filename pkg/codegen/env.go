package codegen

import (
	"github.com/hyggelang/hyggec/pkg/ast"
	"github.com/hyggelang/hyggec/pkg/ir"
)

// StorageKind discriminates the six ways an identifier can be bound to a
// location, spec.md §3's variable-storage mapping.
type StorageKind int

const (
	StorageLabel      StorageKind = iota // named local or global in IR
	StorageOffset                        // local by index in the current function's locals vector
	StorageMemory                        // fixed linear-memory address (unused: the language has no statics)
	StorageTableEntry                    // function-table index (first-class function)
	StorageFuncRef                       // local holding a pointer to a one-cell heap box
	StorageID                            // compile-time integer constant (union tag)
)

// Storage is one entry of the variable-storage mapping. StorageFuncRef
// marks a let-mut that a nested lambda captures: per spec.md §9, such a
// binding lives in a one-cell heap record instead of a plain local, so the
// local named by LocalName holds the cell's address rather than its value,
// and every read/write indirects through it (emitStorageGet/emitStorageSet).
type Storage struct {
	Kind StorageKind

	Name       string     // StorageLabel: IR local/global name
	LocalIndex int        // StorageOffset: index into the current function's locals
	LocalName  string     // StorageOffset/StorageFuncRef: the synthesised local name at that index
	ElemType   ir.ValType // StorageFuncRef: the boxed cell's value type (i32 or f32)
	Addr       uint32     // StorageMemory: fixed address
	TableLabel string     // StorageTableEntry: function label in the table
	TableIndex int        // StorageTableEntry: index in the table
	ConstID    int64      // StorageID: the constant value
	IsGlobal   bool       // StorageLabel: true for a module global, false for a function local
}

// Env is the lexically-scoped environment threaded through lower(): the
// current function's label, the variable-storage map in effect, and the
// type environment the checker attached to the node being lowered.
//
// Env is persistent rather than mutate-and-restore: Bind returns a new
// Env that shares its parent's bindings by reference, so "restore on
// scope exit" (spec.md §3 invariant 6) falls out of simply not using the
// extended Env past the end of its scope, instead of undoing a mutation.
type Env struct {
	parent  *Env
	name    string
	storage Storage
	hasVar  bool

	FuncLabel string
	TypeEnv   ast.TypeEnv
}

// NewEnv creates the root environment for lowering one top-level
// expression in the given function.
func NewEnv(funcLabel string, typeEnv ast.TypeEnv) *Env {
	return &Env{FuncLabel: funcLabel, TypeEnv: typeEnv}
}

// Bind returns a new environment identical to e except that name now
// resolves to storage — spec.md §3 invariant 6's "entry inserted before
// any instruction referencing it is emitted".
func (e *Env) Bind(name string, storage Storage) *Env {
	return &Env{
		parent:    e,
		name:      name,
		storage:   storage,
		hasVar:    true,
		FuncLabel: e.FuncLabel,
		TypeEnv:   e.TypeEnv,
	}
}

// WithFunc returns a new environment for lowering inside a different
// function (used when lowering a freshly hoisted/lambda-generated
// function body).
func (e *Env) WithFunc(funcLabel string) *Env {
	cp := *e
	cp.FuncLabel = funcLabel
	return &cp
}

// Lookup resolves name to its storage entry, walking outward through
// enclosing scopes. The second result is false for an identifier with no
// binding — codegen treats that as UnresolvedIdentifierError.
func (e *Env) Lookup(name string) (Storage, bool) {
	for s := e; s != nil; s = s.parent {
		if s.hasVar && s.name == name {
			return s.storage, true
		}
	}
	return Storage{}, false
}
