package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddFuncTypeCollapsesDuplicates(t *testing.T) {
	m := NewModule("test")
	name1 := m.AddFuncType(&FuncType{Params: []ValType{I32}, Results: []ValType{I32}})
	name2 := m.AddFuncType(&FuncType{Params: []ValType{I32}, Results: []ValType{I32}})

	assert.Equal(t, name1, name2)
	assert.Len(t, m.Types(), 1)
}

func TestAddFunctionRejectsDuplicateLabel(t *testing.T) {
	m := NewModule("test")
	fn := &Function{Label: "foo", Sig: &FuncType{}}
	require.NoError(t, m.AddFunction(fn))

	err := m.AddFunction(&Function{Label: "foo", Sig: &FuncType{}})
	require.Error(t, err)
	var dup *DuplicateSymbolError
	assert.ErrorAs(t, err, &dup)
}

func TestAddImportIsIdempotentForMatchingSignature(t *testing.T) {
	m := NewModule("test")
	sig := &FuncType{Params: []ValType{I32}, Results: []ValType{I32}}
	require.NoError(t, m.AddImport(Import{Module: "env", Name: "malloc", Kind: ExternFunc, Sig: sig}))
	require.NoError(t, m.AddImport(Import{Module: "env", Name: "malloc", Kind: ExternFunc, Sig: sig}))
	assert.Len(t, m.Imports, 1)
}

func TestAddImportRejectsConflictingSignature(t *testing.T) {
	m := NewModule("test")
	sig1 := &FuncType{Params: []ValType{I32}, Results: []ValType{I32}}
	sig2 := &FuncType{Params: []ValType{I32, I32}, Results: []ValType{I32}}
	require.NoError(t, m.AddImport(Import{Module: "env", Name: "malloc", Kind: ExternFunc, Sig: sig1}))

	err := m.AddImport(Import{Module: "env", Name: "malloc", Kind: ExternFunc, Sig: sig2})
	require.Error(t, err)
	var conflict *ConflictingImportError
	assert.ErrorAs(t, err, &conflict)
}

func TestMemoryMergeWidensLimits(t *testing.T) {
	m := NewModule("test")
	m.AddMemory(Memory{InitialPages: 1})
	m.AddMemory(Memory{InitialPages: 2, MaxPages: 4, HasMax: true})
	m.AddMemory(Memory{InitialPages: 1, MaxPages: 6, HasMax: true})

	assert.Equal(t, uint32(2), m.Memory.InitialPages)
	assert.True(t, m.Memory.HasMax)
	assert.Equal(t, uint32(6), m.Memory.MaxPages)
}

func TestAddTableEntryAssignsSequentialIndices(t *testing.T) {
	m := NewModule("test")
	idx0 := m.AddTableEntry("fn_a")
	idx1 := m.AddTableEntry("fn_b")

	assert.Equal(t, 0, idx0)
	assert.Equal(t, 1, idx1)
	assert.Equal(t, []string{"fn_a", "fn_b"}, m.Table.Elements)
}

func TestAddExportReplacesSameName(t *testing.T) {
	m := NewModule("test")
	m.AddExport(Export{Name: "memory", Kind: ExternMemory, Ref: "memory"})
	m.AddExport(Export{Name: "memory", Kind: ExternMemory, Ref: "memory2"})

	require.Len(t, m.Exports, 1)
	assert.Equal(t, "memory2", m.Exports[0].Ref)
}

func TestMergeUnionsFunctionsOnce(t *testing.T) {
	m := NewModule("a")
	other := NewModule("b")
	require.NoError(t, other.AddFunction(&Function{Label: "helper", Sig: &FuncType{}}))

	require.NoError(t, m.Merge(other))
	require.NoError(t, m.Merge(other))

	assert.Len(t, m.Functions, 1)
}

func TestCanonicalNameDistinguishesSignatures(t *testing.T) {
	a := &FuncType{Params: []ValType{I32}, Results: []ValType{I32}}
	b := &FuncType{Params: []ValType{F32}, Results: []ValType{I32}}
	assert.NotEqual(t, a.CanonicalName(), b.CanonicalName())

	c := &FuncType{Results: []ValType{}}
	assert.Equal(t, "ty__to_none", c.CanonicalName())
}
