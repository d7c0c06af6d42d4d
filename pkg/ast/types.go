package ast

import "strings"

// Type is a Hygge source type. The lattice's least element is Bottom,
// used for expressions whose type could not be resolved (the type
// checker never hands these to the core). Codegen does not reject one:
// wasmType lowers a Bottom-typed value as i32.
type Type interface {
	hyggeType()
	String() string
}

// Basic covers the primitive Hygge types.
type Basic int

const (
	Bottom Basic = iota
	TUnit
	TInt
	TFloat
	TBool
	TString
)

func (Basic) hyggeType() {}

func (b Basic) String() string {
	switch b {
	case TUnit:
		return "unit"
	case TInt:
		return "int"
	case TFloat:
		return "float"
	case TBool:
		return "bool"
	case TString:
		return "string"
	default:
		return "bottom"
	}
}

// Fun is a closure type: (Params...) -> Ret.
type Fun struct {
	Params []Type
	Ret    Type
}

func (*Fun) hyggeType() {}

func (f *Fun) String() string {
	var b strings.Builder
	b.WriteString("fun(")
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteString(") -> ")
	b.WriteString(f.Ret.String())
	return b.String()
}

// Struct is a record type; FieldOrder fixes the layout order used by
// codegen for field offsets (field i lives at offset i*4).
type Struct struct {
	Name       string
	Fields     map[string]Type
	FieldOrder []string
}

func (*Struct) hyggeType() {}

func (s *Struct) String() string {
	if s.Name != "" {
		return s.Name
	}
	var b strings.Builder
	b.WriteString("struct{")
	for i, name := range s.FieldOrder {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(s.Fields[name].String())
	}
	b.WriteString("}")
	return b.String()
}

// Array is `array{T}`, represented at runtime as a (data-pointer, length)
// header — see spec.md §3 invariant 9.
type Array struct {
	Elem Type
}

func (*Array) hyggeType() {}

func (a *Array) String() string { return "array{" + a.Elem.String() + "}" }

// Union is a tagged-union (sum) type; LabelOrder fixes the interning order
// used to assign stable integer tags (spec.md §3).
type Union struct {
	Name       string
	Labels     map[string]Type
	LabelOrder []string
}

func (*Union) hyggeType() {}

func (u *Union) String() string {
	if u.Name != "" {
		return u.Name
	}
	var b strings.Builder
	b.WriteString("union{")
	for i, name := range u.LabelOrder {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(u.Labels[name].String())
	}
	b.WriteString("}")
	return b.String()
}

// Var is an as-yet-unresolved type variable; like Bottom, the type checker
// never hands one to the core, and codegen's wasmType lowers it as i32.
type Var struct {
	Name string
}

func (*Var) hyggeType() {}

func (v *Var) String() string { return "'" + v.Name }

// IsUnit reports whether t is the unit type.
func IsUnit(t Type) bool {
	b, ok := t.(Basic)
	return ok && b == TUnit
}
