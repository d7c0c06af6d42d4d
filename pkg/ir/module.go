package ir

import "fmt"

// ExternKind classifies an import or export.
type ExternKind int

const (
	ExternFunc ExternKind = iota
	ExternTable
	ExternMemory
	ExternGlobal
)

func (k ExternKind) String() string {
	switch k {
	case ExternFunc:
		return "func"
	case ExternTable:
		return "table"
	case ExternMemory:
		return "memory"
	default:
		return "global"
	}
}

// Import is a (module, name, kind) triple, spec.md §3.
type Import struct {
	Module string
	Name   string
	Kind   ExternKind
	Sig    *FuncType // meaningful when Kind == ExternFunc
}

func (i Import) key() string { return i.Module + "." + i.Name }

// Global is a named, typed, mutable-or-immutable global with a constant
// initializer.
type Global struct {
	Name    string
	Type    ValType
	Mutable bool
	Init    Instr // a single const instruction: i32.const or f32.const
}

// Memory is the module's single linear memory.
type Memory struct {
	InitialPages uint32
	MaxPages     uint32
	HasMax       bool
}

// merge widens limits so the union of two memory declarations is always
// satisfiable — spec.md §4.A: "merging limits — the widest initial/maximum
// wins".
func (m *Memory) merge(other Memory) {
	if other.InitialPages > m.InitialPages {
		m.InitialPages = other.InitialPages
	}
	if other.HasMax {
		if !m.HasMax || other.MaxPages > m.MaxPages {
			m.MaxPages = other.MaxPages
		}
		m.HasMax = true
	}
}

// Table is the module's single function-reference table. Elements are
// appended in the order AddTableEntry is called; an entry's index is its
// position, which doubles as the element-segment offset binding (spec.md
// §3 invariant 3: each indirectly-referenced function appears exactly
// once, at the index it is referenced by).
type Table struct {
	Elements []string // function labels, index == table index
}

// Local is a named local variable declared in a function's locals vector.
type Local struct {
	Name string
	Type ValType
}

// Function is one Wasm function: a signature, a locals vector, and a
// body of instructions. Label must be unique within the module (spec.md
// §3 invariant 1).
type Function struct {
	Label  string
	Sig    *FuncType
	Params []string // parallel to Sig.Params, gives each parameter a name
	Locals []Local
	Body   []Instr
}

// DataSegment is a (offset, bytes) pair placed in linear memory at module
// instantiation time.
type DataSegment struct {
	Offset int
	Bytes  []byte
}

// Export maps an external name to a module-internal entity.
type Export struct {
	Name string
	Kind ExternKind
	Ref  string // function label / global name / "memory"
}

// Style selects the module's WAT writing style (spec.md §4.A/§4.F).
type Style int

const (
	StyleLinear Style = iota
	StyleFolded
)

// Module is the full in-memory Wasm module spec.md §3 describes.
type Module struct {
	Name string

	types     []*FuncType
	typeIndex map[string]int // CanonicalName -> index into types

	Imports []Import
	importIndex map[string]int // key() -> index into Imports, for idempotent re-import

	Globals []Global
	globalIndex map[string]int

	Memory Memory
	Table  Table

	Functions []*Function
	funcIndex map[string]int

	Data []DataSegment

	Exports []Export

	Style Style
}

// NewModule creates an empty IR module ready for the code generator's
// entry point to populate.
func NewModule(name string) *Module {
	return &Module{
		Name:        name,
		typeIndex:   make(map[string]int),
		importIndex: make(map[string]int),
		globalIndex: make(map[string]int),
		funcIndex:   make(map[string]int),
	}
}

// AddFuncType registers a function signature, collapsing duplicates by
// canonical name (spec.md §3 invariant 2), and returns its canonical name.
func (m *Module) AddFuncType(sig *FuncType) string {
	name := sig.CanonicalName()
	if _, ok := m.typeIndex[name]; !ok {
		m.typeIndex[name] = len(m.types)
		m.types = append(m.types, sig)
	}
	return name
}

// Types returns the deduplicated function-type table in registration order.
func (m *Module) Types() []*FuncType { return m.types }

// AddFunction appends a function, failing with DuplicateSymbolError if its
// label is already used (spec.md §3 invariant 1, §4.A).
func (m *Module) AddFunction(f *Function) error {
	if _, ok := m.funcIndex[f.Label]; ok {
		return &DuplicateSymbolError{Label: f.Label}
	}
	m.funcIndex[f.Label] = len(m.Functions)
	m.Functions = append(m.Functions, f)
	m.AddFuncType(f.Sig)
	return nil
}

// Function looks up a function by label.
func (m *Module) Function(label string) (*Function, bool) {
	idx, ok := m.funcIndex[label]
	if !ok {
		return nil, false
	}
	return m.Functions[idx], true
}

// AddImport registers an import. A second import with the same
// (module, name) is idempotent as long as its signature matches;
// otherwise it fails with ConflictingImportError (spec.md §4.A).
func (m *Module) AddImport(imp Import) error {
	key := imp.key()
	if idx, ok := m.importIndex[key]; ok {
		existing := m.Imports[idx]
		if existing.Kind != imp.Kind || (imp.Sig != nil && existing.Sig != nil && !existing.Sig.Equal(imp.Sig)) {
			return &ConflictingImportError{Module: imp.Module, Name: imp.Name}
		}
		return nil
	}
	m.importIndex[key] = len(m.Imports)
	m.Imports = append(m.Imports, imp)
	if imp.Kind == ExternFunc && imp.Sig != nil {
		m.AddFuncType(imp.Sig)
	}
	return nil
}

// HasImport reports whether (module, name) has already been imported.
func (m *Module) HasImport(module, name string) bool {
	_, ok := m.importIndex[module+"."+name]
	return ok
}

// AddGlobal registers a named global, failing with DuplicateSymbolError on a
// repeated name.
func (m *Module) AddGlobal(g Global) error {
	if _, ok := m.globalIndex[g.Name]; ok {
		return &DuplicateSymbolError{Label: g.Name}
	}
	m.globalIndex[g.Name] = len(m.Globals)
	m.Globals = append(m.Globals, g)
	return nil
}

// AddMemory widens the module's single memory to cover the given limits.
func (m *Module) AddMemory(mem Memory) {
	m.Memory.merge(mem)
}

// AddTableEntry appends a function label to the table's element segment
// and returns the index it was assigned.
func (m *Module) AddTableEntry(funcLabel string) int {
	idx := len(m.Table.Elements)
	m.Table.Elements = append(m.Table.Elements, funcLabel)
	return idx
}

// AddData appends a data segment.
func (m *Module) AddData(offset int, bytes []byte) {
	m.Data = append(m.Data, DataSegment{Offset: offset, Bytes: bytes})
}

// AddExport registers an export, replacing any prior export of the same
// name (module-level exports are keyed by name, spec.md §4.A).
func (m *Module) AddExport(e Export) {
	for i, existing := range m.Exports {
		if existing.Name == e.Name {
			m.Exports[i] = e
			return
		}
	}
	m.Exports = append(m.Exports, e)
}

// Merge folds other into m: union of all lists, de-duplicated by each
// list's unique key (spec.md §4.A). Used when more than one lowering unit
// contributes to the same module (e.g. runtime helpers assembled
// independently of the main lowering pass).
func (m *Module) Merge(other *Module) error {
	for _, t := range other.types {
		m.AddFuncType(t)
	}
	for _, imp := range other.Imports {
		if err := m.AddImport(imp); err != nil {
			return err
		}
	}
	for _, g := range other.Globals {
		if _, ok := m.globalIndex[g.Name]; !ok {
			if err := m.AddGlobal(g); err != nil {
				return err
			}
		}
	}
	m.AddMemory(other.Memory)
	for _, label := range other.Table.Elements {
		m.AddTableEntry(label)
	}
	for _, f := range other.Functions {
		if _, ok := m.funcIndex[f.Label]; !ok {
			if err := m.AddFunction(f); err != nil {
				return err
			}
		}
	}
	m.Data = append(m.Data, other.Data...)
	for _, e := range other.Exports {
		m.AddExport(e)
	}
	return nil
}

// DuplicateSymbolError reports a function label or global name reused
// within one module (spec.md §7).
type DuplicateSymbolError struct{ Label string }

func (e *DuplicateSymbolError) Error() string {
	return fmt.Sprintf("duplicate symbol: %q is already defined in this module", e.Label)
}

// ConflictingImportError reports two imports of the same (module, name)
// with different signatures (spec.md §7).
type ConflictingImportError struct{ Module, Name string }

func (e *ConflictingImportError) Error() string {
	return fmt.Sprintf("conflicting import: %s.%s already imported with a different signature", e.Module, e.Name)
}
