// Package astjson decodes the JSON-encoded typed AST the external Hygge
// type checker hands to cmd/hyggec (spec.md §6's stable external
// interface) into the pkg/ast node tree codegen consumes. It is the
// JSON-driven CLI loader pkg/ast's NewBase doc comment anticipates.
package astjson

import (
	"encoding/json"
	"fmt"

	"github.com/hyggelang/hyggec/pkg/ast"
)

// Decode parses one JSON-encoded typed expression tree.
func Decode(data []byte) (ast.Expr, error) {
	return decodeExpr(json.RawMessage(data))
}

// ---- position ----------------------------------------------------------------

type posJSON struct {
	Line   int `json:"line"`
	Column int `json:"column"`
	Offset int `json:"offset"`
}

func decodePos(raw json.RawMessage) ast.Position {
	if len(raw) == 0 {
		return ast.Position{}
	}
	var p posJSON
	_ = json.Unmarshal(raw, &p)
	return ast.Position{Line: p.Line, Column: p.Column, Offset: p.Offset}
}

// ---- types ---------------------------------------------------------------

type typeJSON struct {
	Kind       string                     `json:"kind"`
	Params     []json.RawMessage          `json:"params"`
	Ret        json.RawMessage            `json:"ret"`
	Name       string                     `json:"name"`
	Fields     map[string]json.RawMessage `json:"fields"`
	FieldOrder []string                   `json:"fieldOrder"`
	Elem       json.RawMessage            `json:"elem"`
	Labels     map[string]json.RawMessage `json:"labels"`
	LabelOrder []string                   `json:"labelOrder"`
}

func decodeType(raw json.RawMessage) (ast.Type, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return ast.Basic(ast.Bottom), nil
	}
	var t typeJSON
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decode type: %w", err)
	}
	switch t.Kind {
	case "unit":
		return ast.Basic(ast.TUnit), nil
	case "int":
		return ast.Basic(ast.TInt), nil
	case "float":
		return ast.Basic(ast.TFloat), nil
	case "bool":
		return ast.Basic(ast.TBool), nil
	case "string":
		return ast.Basic(ast.TString), nil
	case "fun":
		params := make([]ast.Type, len(t.Params))
		for i, p := range t.Params {
			pt, err := decodeType(p)
			if err != nil {
				return nil, err
			}
			params[i] = pt
		}
		ret, err := decodeType(t.Ret)
		if err != nil {
			return nil, err
		}
		return &ast.Fun{Params: params, Ret: ret}, nil
	case "struct":
		fields := make(map[string]ast.Type, len(t.Fields))
		for name, raw := range t.Fields {
			ft, err := decodeType(raw)
			if err != nil {
				return nil, err
			}
			fields[name] = ft
		}
		return &ast.Struct{Name: t.Name, Fields: fields, FieldOrder: t.FieldOrder}, nil
	case "array":
		elem, err := decodeType(t.Elem)
		if err != nil {
			return nil, err
		}
		return &ast.Array{Elem: elem}, nil
	case "union":
		labels := make(map[string]ast.Type, len(t.Labels))
		for name, raw := range t.Labels {
			lt, err := decodeType(raw)
			if err != nil {
				return nil, err
			}
			labels[name] = lt
		}
		return &ast.Union{Name: t.Name, Labels: labels, LabelOrder: t.LabelOrder}, nil
	case "var":
		return &ast.Var{Name: t.Name}, nil
	default:
		return ast.Basic(ast.Bottom), nil
	}
}

// ---- type environment ------------------------------------------------------

// mapEnv is a flat name->type table decoded from a node's "env" object.
// codegen only ever calls Lookup on an ast.TypeEnv (to find a captured
// free variable's type), so this is all a JSON-loaded tree needs —
// reproducing the external checker's full subtyping lattice is out of
// scope for a driver that just replays its decisions.
type mapEnv map[string]ast.Type

func (e mapEnv) Lookup(name string) (ast.Type, bool) {
	t, ok := e[name]
	return t, ok
}

func (e mapEnv) IsSubtypeOf(t, u ast.Type) bool {
	return t.String() == u.String()
}

func decodeEnv(raw json.RawMessage) (ast.TypeEnv, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return mapEnv{}, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode env: %w", err)
	}
	env := make(mapEnv, len(fields))
	for name, r := range fields {
		t, err := decodeType(r)
		if err != nil {
			return nil, err
		}
		env[name] = t
	}
	return env, nil
}

// ---- expressions -----------------------------------------------------------

type paramJSON struct {
	Name string          `json:"name"`
	Typ  json.RawMessage `json:"type"`
}

type matchCaseJSON struct {
	Label  string          `json:"label"`
	Binder string          `json:"binder"`
	Body   json.RawMessage `json:"body"`
}

type exprJSON struct {
	Kind string          `json:"kind"`
	Pos  json.RawMessage `json:"pos"`
	End  json.RawMessage `json:"end"`
	Type json.RawMessage `json:"type"`
	Env  json.RawMessage `json:"env"`

	// literals
	IntValue    int32   `json:"intValue"`
	FloatValue  float32 `json:"floatValue"`
	BoolValue   bool    `json:"boolValue"`
	StringValue string  `json:"stringValue"`

	Name string `json:"name"`

	Op  string          `json:"op"`
	Lhs json.RawMessage `json:"lhs"`
	Rhs json.RawMessage `json:"rhs"`

	Operand json.RawMessage `json:"operand"`

	Cond json.RawMessage `json:"cond"`
	Then json.RawMessage `json:"then"`
	Else json.RawMessage `json:"else"`

	Exprs []json.RawMessage `json:"exprs"`

	AscribedType json.RawMessage `json:"ascribedType"`

	Arg json.RawMessage `json:"arg"`

	Mutable bool            `json:"mutable"`
	IsRec   bool            `json:"isRec"`
	Init    json.RawMessage `json:"init"`
	Scope   json.RawMessage `json:"scope"`

	Aliased json.RawMessage `json:"aliased"`

	Params []paramJSON     `json:"params"`
	Body   json.RawMessage `json:"body"`

	Callee json.RawMessage   `json:"callee"`
	Args   []json.RawMessage `json:"args"`

	StructName  string            `json:"structName"`
	FieldNames  []string          `json:"fieldNames"`
	FieldValues []json.RawMessage `json:"fieldValues"`

	Target json.RawMessage `json:"target"`
	Field  string          `json:"field"`

	Length   json.RawMessage `json:"length"`
	Index    json.RawMessage `json:"index"`
	Start    json.RawMessage `json:"start"`
	SliceEnd json.RawMessage `json:"sliceEnd"`

	UnionName string `json:"unionName"`
	Label     string `json:"label"`

	Scrutinee json.RawMessage `json:"scrutinee"`
	Cases     []matchCaseJSON `json:"cases"`

	TargetKind string          `json:"targetKind"`
	Value      json.RawMessage `json:"value"`

	Upd json.RawMessage `json:"upd"`
}

func decodeExpr(raw json.RawMessage) (ast.Expr, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("decode expr: missing node")
	}
	var n exprJSON
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("decode expr: %w", err)
	}

	typ, err := decodeType(n.Type)
	if err != nil {
		return nil, err
	}
	env, err := decodeEnv(n.Env)
	if err != nil {
		return nil, err
	}
	b := ast.NewBase(decodePos(n.Pos), decodePos(n.End), typ, env)

	switch n.Kind {
	case "UnitLit":
		return &ast.UnitLit{Base: b}, nil
	case "IntLit":
		return &ast.IntLit{Base: b, Value: n.IntValue}, nil
	case "FloatLit":
		return &ast.FloatLit{Base: b, Value: n.FloatValue}, nil
	case "BoolLit":
		return &ast.BoolLit{Base: b, Value: n.BoolValue}, nil
	case "StringLit":
		return &ast.StringLit{Base: b, Value: n.StringValue}, nil
	case "Variable":
		return &ast.Variable{Base: b, Name: n.Name}, nil

	case "BinOp":
		lhs, err := decodeExpr(n.Lhs)
		if err != nil {
			return nil, err
		}
		var rhs ast.Expr
		if len(n.Rhs) > 0 && string(n.Rhs) != "null" {
			if rhs, err = decodeExpr(n.Rhs); err != nil {
				return nil, err
			}
		}
		op, err := binOpKind(n.Op)
		if err != nil {
			return nil, err
		}
		return &ast.BinOp{Base: b, Op: op, Lhs: lhs, Rhs: rhs}, nil

	case "Not":
		operand, err := decodeExpr(n.Operand)
		if err != nil {
			return nil, err
		}
		return &ast.Not{Base: b, Operand: operand}, nil

	case "ShortCircuit":
		lhs, err := decodeExpr(n.Lhs)
		if err != nil {
			return nil, err
		}
		rhs, err := decodeExpr(n.Rhs)
		if err != nil {
			return nil, err
		}
		kind := ast.ScAnd
		if n.Op == "or" {
			kind = ast.ScOr
		}
		return &ast.ShortCircuit{Base: b, Kind: kind, Lhs: lhs, Rhs: rhs}, nil

	case "Assert":
		cond, err := decodeExpr(n.Cond)
		if err != nil {
			return nil, err
		}
		return &ast.Assert{Base: b, Cond: cond}, nil

	case "If":
		cond, err := decodeExpr(n.Cond)
		if err != nil {
			return nil, err
		}
		then, err := decodeExpr(n.Then)
		if err != nil {
			return nil, err
		}
		var els ast.Expr
		if len(n.Else) > 0 && string(n.Else) != "null" {
			if els, err = decodeExpr(n.Else); err != nil {
				return nil, err
			}
		}
		return &ast.If{Base: b, Cond: cond, Then: then, Else: els}, nil

	case "Seq":
		exprs := make([]ast.Expr, len(n.Exprs))
		for i, r := range n.Exprs {
			e, err := decodeExpr(r)
			if err != nil {
				return nil, err
			}
			exprs[i] = e
		}
		return &ast.Seq{Base: b, Exprs: exprs}, nil

	case "Ascription":
		ascribed, err := decodeType(n.AscribedType)
		if err != nil {
			return nil, err
		}
		operand, err := decodeExpr(n.Operand)
		if err != nil {
			return nil, err
		}
		return &ast.Ascription{Base: b, AscribedType: ascribed, Operand: operand}, nil

	case "IO":
		kind, err := ioKind(n.Op)
		if err != nil {
			return nil, err
		}
		var arg ast.Expr
		if len(n.Arg) > 0 && string(n.Arg) != "null" {
			if arg, err = decodeExpr(n.Arg); err != nil {
				return nil, err
			}
		}
		return &ast.IO{Base: b, Kind: kind, Arg: arg}, nil

	case "Let":
		init, err := decodeExpr(n.Init)
		if err != nil {
			return nil, err
		}
		scope, err := decodeExpr(n.Scope)
		if err != nil {
			return nil, err
		}
		return &ast.Let{Base: b, Name: n.Name, Mutable: n.Mutable, IsRec: n.IsRec, Init: init, Scope: scope}, nil

	case "TypeAlias":
		aliased, err := decodeType(n.Aliased)
		if err != nil {
			return nil, err
		}
		scope, err := decodeExpr(n.Scope)
		if err != nil {
			return nil, err
		}
		return &ast.TypeAlias{Base: b, Name: n.Name, Aliased: aliased, Scope: scope}, nil

	case "Lambda":
		params := make([]ast.Param, len(n.Params))
		for i, p := range n.Params {
			pt, err := decodeType(p.Typ)
			if err != nil {
				return nil, err
			}
			params[i] = ast.Param{Name: p.Name, Typ: pt}
		}
		body, err := decodeExpr(n.Body)
		if err != nil {
			return nil, err
		}
		return &ast.Lambda{Base: b, Params: params, Body: body}, nil

	case "Apply":
		callee, err := decodeExpr(n.Callee)
		if err != nil {
			return nil, err
		}
		args := make([]ast.Expr, len(n.Args))
		for i, r := range n.Args {
			a, err := decodeExpr(r)
			if err != nil {
				return nil, err
			}
			args[i] = a
		}
		return &ast.Apply{Base: b, Callee: callee, Args: args}, nil

	case "StructLit":
		values := make([]ast.Expr, len(n.FieldValues))
		for i, r := range n.FieldValues {
			v, err := decodeExpr(r)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		return &ast.StructLit{Base: b, StructName: n.StructName, FieldNames: n.FieldNames, FieldValues: values}, nil

	case "FieldSelect":
		target, err := decodeExpr(n.Target)
		if err != nil {
			return nil, err
		}
		return &ast.FieldSelect{Base: b, Target: target, Field: n.Field}, nil

	case "ArrayLit":
		length, err := decodeExpr(n.Length)
		if err != nil {
			return nil, err
		}
		init, err := decodeExpr(n.Init)
		if err != nil {
			return nil, err
		}
		return &ast.ArrayLit{Base: b, Length: length, Init: init}, nil

	case "ArrayLength":
		target, err := decodeExpr(n.Target)
		if err != nil {
			return nil, err
		}
		return &ast.ArrayLength{Base: b, Target: target}, nil

	case "ArrayIndex":
		target, err := decodeExpr(n.Target)
		if err != nil {
			return nil, err
		}
		index, err := decodeExpr(n.Index)
		if err != nil {
			return nil, err
		}
		return &ast.ArrayIndex{Base: b, Target: target, Index: index}, nil

	case "ArraySlice":
		target, err := decodeExpr(n.Target)
		if err != nil {
			return nil, err
		}
		start, err := decodeExpr(n.Start)
		if err != nil {
			return nil, err
		}
		end, err := decodeExpr(n.SliceEnd)
		if err != nil {
			return nil, err
		}
		return &ast.ArraySlice{Base: b, Target: target, Start: start, End: end}, nil

	case "UnionLit":
		value, err := decodeExpr(n.Value)
		if err != nil {
			return nil, err
		}
		return &ast.UnionLit{Base: b, UnionName: n.UnionName, Label: n.Label, Value: value}, nil

	case "Match":
		scrutinee, err := decodeExpr(n.Scrutinee)
		if err != nil {
			return nil, err
		}
		cases := make([]ast.MatchCase, len(n.Cases))
		for i, c := range n.Cases {
			body, err := decodeExpr(c.Body)
			if err != nil {
				return nil, err
			}
			cases[i] = ast.MatchCase{Label: c.Label, Binder: c.Binder, Body: body}
		}
		return &ast.Match{Base: b, Scrutinee: scrutinee, Cases: cases}, nil

	case "Assign":
		value, err := decodeExpr(n.Value)
		if err != nil {
			return nil, err
		}
		switch n.TargetKind {
		case "field":
			target, err := decodeExpr(n.Target)
			if err != nil {
				return nil, err
			}
			return &ast.Assign{Base: b, TargetKind: ast.AssignField, Target: target, Field: n.Field, Value: value}, nil
		case "index":
			target, err := decodeExpr(n.Target)
			if err != nil {
				return nil, err
			}
			index, err := decodeExpr(n.Index)
			if err != nil {
				return nil, err
			}
			return &ast.Assign{Base: b, TargetKind: ast.AssignIndex, Target: target, Index: index, Value: value}, nil
		default:
			return &ast.Assign{Base: b, TargetKind: ast.AssignVar, Name: n.Name, Value: value}, nil
		}

	case "While":
		cond, err := decodeExpr(n.Cond)
		if err != nil {
			return nil, err
		}
		body, err := decodeExpr(n.Body)
		if err != nil {
			return nil, err
		}
		kind := ast.LoopWhile
		if n.Op == "do-while" {
			kind = ast.LoopDoWhile
		}
		return &ast.While{Base: b, Kind: kind, Cond: cond, Body: body}, nil

	case "For":
		init, err := decodeExpr(n.Init)
		if err != nil {
			return nil, err
		}
		cond, err := decodeExpr(n.Cond)
		if err != nil {
			return nil, err
		}
		upd, err := decodeExpr(n.Upd)
		if err != nil {
			return nil, err
		}
		body, err := decodeExpr(n.Body)
		if err != nil {
			return nil, err
		}
		return &ast.For{Base: b, Init: init, Cond: cond, Upd: upd, Body: body}, nil

	case "IncDec":
		kind, err := incDecKind(n.Op)
		if err != nil {
			return nil, err
		}
		return &ast.IncDec{Base: b, Kind: kind, Name: n.Name}, nil

	case "CompoundAssign":
		op, err := compoundOp(n.Op)
		if err != nil {
			return nil, err
		}
		value, err := decodeExpr(n.Value)
		if err != nil {
			return nil, err
		}
		return &ast.CompoundAssign{Base: b, Op: op, Name: n.Name, Value: value}, nil

	case "Pointer":
		operand, err := decodeExpr(n.Operand)
		if err != nil {
			return nil, err
		}
		return &ast.Pointer{Base: b, Operand: operand}, nil

	default:
		return nil, fmt.Errorf("decode expr: unrecognised node kind %q", n.Kind)
	}
}

func binOpKind(op string) (ast.BinOpKind, error) {
	switch op {
	case "add":
		return ast.OpAdd, nil
	case "sub":
		return ast.OpSub, nil
	case "mul":
		return ast.OpMul, nil
	case "div":
		return ast.OpDiv, nil
	case "rem":
		return ast.OpRem, nil
	case "sqrt":
		return ast.OpSqrt, nil
	case "min":
		return ast.OpMin, nil
	case "max":
		return ast.OpMax, nil
	case "and":
		return ast.OpAnd, nil
	case "or":
		return ast.OpOr, nil
	case "xor":
		return ast.OpXor, nil
	case "eq":
		return ast.OpEq, nil
	case "neq":
		return ast.OpNeq, nil
	case "lt":
		return ast.OpLt, nil
	case "le":
		return ast.OpLe, nil
	case "gt":
		return ast.OpGt, nil
	case "ge":
		return ast.OpGe, nil
	default:
		return 0, fmt.Errorf("decode expr: unrecognised BinOp operator %q", op)
	}
}

func ioKind(op string) (ast.IOKind, error) {
	switch op {
	case "print":
		return ast.IOPrint, nil
	case "println":
		return ast.IOPrintLn, nil
	case "readInt":
		return ast.IOReadInt, nil
	case "readFloat":
		return ast.IOReadFloat, nil
	default:
		return 0, fmt.Errorf("decode expr: unrecognised IO operator %q", op)
	}
}

func incDecKind(op string) (ast.IncDecKind, error) {
	switch op {
	case "preInc":
		return ast.PreInc, nil
	case "preDec":
		return ast.PreDec, nil
	case "postInc":
		return ast.PostInc, nil
	case "postDec":
		return ast.PostDec, nil
	default:
		return 0, fmt.Errorf("decode expr: unrecognised IncDec operator %q", op)
	}
}

func compoundOp(op string) (ast.CompoundOp, error) {
	switch op {
	case "add":
		return ast.CompoundAdd, nil
	case "sub":
		return ast.CompoundSub, nil
	case "mul":
		return ast.CompoundMul, nil
	case "div":
		return ast.CompoundDiv, nil
	case "mod":
		return ast.CompoundMod, nil
	default:
		return 0, fmt.Errorf("decode expr: unrecognised CompoundAssign operator %q", op)
	}
}
