package codegen

import "github.com/hyggelang/hyggec/pkg/ast"

// freeVars computes the set of free variables of a lambda body: every
// Variable reference not bound by an enclosing let/let-mut/let-rec,
// lambda parameter, or for-loop within body itself (spec.md §4.C's lambda
// case: "Compute the set of free variables of the body"). The result
// preserves first-occurrence order so the closure-environment record
// layout it drives is deterministic (spec.md §8).
func freeVars(params []ast.Param, body ast.Expr) []string {
	bound := map[string]bool{}
	for _, p := range params {
		bound[p.Name] = true
	}
	var order []string
	seen := map[string]bool{}
	var walk func(e ast.Expr, bound map[string]bool)
	add := func(name string, bound map[string]bool) {
		if bound[name] || seen[name] {
			return
		}
		seen[name] = true
		order = append(order, name)
	}
	extend := func(bound map[string]bool, names ...string) map[string]bool {
		cp := make(map[string]bool, len(bound)+len(names))
		for k, v := range bound {
			cp[k] = v
		}
		for _, n := range names {
			cp[n] = true
		}
		return cp
	}
	walk = func(e ast.Expr, bound map[string]bool) {
		if e == nil {
			return
		}
		switch n := e.(type) {
		case *ast.Variable:
			add(n.Name, bound)
		case *ast.BinOp:
			walk(n.Lhs, bound)
			walk(n.Rhs, bound)
		case *ast.Not:
			walk(n.Operand, bound)
		case *ast.ShortCircuit:
			walk(n.Lhs, bound)
			walk(n.Rhs, bound)
		case *ast.Assert:
			walk(n.Cond, bound)
		case *ast.If:
			walk(n.Cond, bound)
			walk(n.Then, bound)
			walk(n.Else, bound)
		case *ast.Seq:
			for _, sub := range n.Exprs {
				walk(sub, bound)
			}
		case *ast.Ascription:
			walk(n.Operand, bound)
		case *ast.IO:
			walk(n.Arg, bound)
		case *ast.Let:
			if n.IsRec {
				walk(n.Init, extend(bound, n.Name))
			} else {
				walk(n.Init, bound)
			}
			walk(n.Scope, extend(bound, n.Name))
		case *ast.TypeAlias:
			walk(n.Scope, bound)
		case *ast.Lambda:
			inner := extend(bound)
			for _, p := range n.Params {
				inner[p.Name] = true
			}
			walk(n.Body, inner)
		case *ast.Apply:
			walk(n.Callee, bound)
			for _, a := range n.Args {
				walk(a, bound)
			}
		case *ast.StructLit:
			for _, v := range n.FieldValues {
				walk(v, bound)
			}
		case *ast.FieldSelect:
			walk(n.Target, bound)
		case *ast.ArrayLit:
			walk(n.Length, bound)
			walk(n.Init, bound)
		case *ast.ArrayLength:
			walk(n.Target, bound)
		case *ast.ArrayIndex:
			walk(n.Target, bound)
			walk(n.Index, bound)
		case *ast.ArraySlice:
			walk(n.Target, bound)
			walk(n.Start, bound)
			walk(n.End, bound)
		case *ast.UnionLit:
			walk(n.Value, bound)
		case *ast.Match:
			walk(n.Scrutinee, bound)
			for _, cs := range n.Cases {
				walk(cs.Body, extend(bound, cs.Binder))
			}
		case *ast.Assign:
			if n.TargetKind == ast.AssignVar {
				add(n.Name, bound)
			} else {
				walk(n.Target, bound)
				walk(n.Index, bound)
			}
			walk(n.Value, bound)
		case *ast.While:
			walk(n.Cond, bound)
			walk(n.Body, bound)
		case *ast.For:
			inner := bound
			if letInit, ok := n.Init.(*ast.Let); ok {
				inner = extend(bound, letInit.Name)
			}
			walk(n.Init, bound)
			walk(n.Cond, inner)
			walk(n.Upd, inner)
			walk(n.Body, inner)
		case *ast.IncDec:
			add(n.Name, bound)
		case *ast.CompoundAssign:
			add(n.Name, bound)
			walk(n.Value, bound)
		case *ast.Pointer:
			walk(n.Operand, bound)
		}
	}
	walk(body, bound)
	return order
}

// isCapturedByClosure reports whether name — bound by an enclosing let-mut,
// not by anything within e — is referenced from inside a lambda nested in
// e. That is the condition spec.md §9 boxes a let-mut for: a plain local
// can't be shared between the enclosing function and a hoisted closure
// function, so a mutation on either side would be invisible to the other.
// Shadowing is tracked the same way freeVars tracks it; a reference past a
// rebinding of name belongs to the new binding, not this one.
func isCapturedByClosure(name string, e ast.Expr) bool {
	captured := false
	extend := func(bound map[string]bool, names ...string) map[string]bool {
		cp := make(map[string]bool, len(bound)+len(names))
		for k, v := range bound {
			cp[k] = v
		}
		for _, n := range names {
			cp[n] = true
		}
		return cp
	}
	var walk func(e ast.Expr, bound map[string]bool, inLambda bool)
	see := func(ref string, bound map[string]bool, inLambda bool) {
		if inLambda && ref == name && !bound[name] {
			captured = true
		}
	}
	walk = func(e ast.Expr, bound map[string]bool, inLambda bool) {
		if e == nil || captured {
			return
		}
		switch n := e.(type) {
		case *ast.Variable:
			see(n.Name, bound, inLambda)
		case *ast.BinOp:
			walk(n.Lhs, bound, inLambda)
			walk(n.Rhs, bound, inLambda)
		case *ast.Not:
			walk(n.Operand, bound, inLambda)
		case *ast.ShortCircuit:
			walk(n.Lhs, bound, inLambda)
			walk(n.Rhs, bound, inLambda)
		case *ast.Assert:
			walk(n.Cond, bound, inLambda)
		case *ast.If:
			walk(n.Cond, bound, inLambda)
			walk(n.Then, bound, inLambda)
			walk(n.Else, bound, inLambda)
		case *ast.Seq:
			for _, sub := range n.Exprs {
				walk(sub, bound, inLambda)
			}
		case *ast.Ascription:
			walk(n.Operand, bound, inLambda)
		case *ast.IO:
			walk(n.Arg, bound, inLambda)
		case *ast.Let:
			if n.IsRec {
				walk(n.Init, extend(bound, n.Name), inLambda)
			} else {
				walk(n.Init, bound, inLambda)
			}
			walk(n.Scope, extend(bound, n.Name), inLambda)
		case *ast.TypeAlias:
			walk(n.Scope, bound, inLambda)
		case *ast.Lambda:
			inner := extend(bound)
			for _, p := range n.Params {
				inner[p.Name] = true
			}
			walk(n.Body, inner, true)
		case *ast.Apply:
			walk(n.Callee, bound, inLambda)
			for _, a := range n.Args {
				walk(a, bound, inLambda)
			}
		case *ast.StructLit:
			for _, v := range n.FieldValues {
				walk(v, bound, inLambda)
			}
		case *ast.FieldSelect:
			walk(n.Target, bound, inLambda)
		case *ast.ArrayLit:
			walk(n.Length, bound, inLambda)
			walk(n.Init, bound, inLambda)
		case *ast.ArrayLength:
			walk(n.Target, bound, inLambda)
		case *ast.ArrayIndex:
			walk(n.Target, bound, inLambda)
			walk(n.Index, bound, inLambda)
		case *ast.ArraySlice:
			walk(n.Target, bound, inLambda)
			walk(n.Start, bound, inLambda)
			walk(n.End, bound, inLambda)
		case *ast.UnionLit:
			walk(n.Value, bound, inLambda)
		case *ast.Match:
			walk(n.Scrutinee, bound, inLambda)
			for _, cs := range n.Cases {
				walk(cs.Body, extend(bound, cs.Binder), inLambda)
			}
		case *ast.Assign:
			if n.TargetKind == ast.AssignVar {
				see(n.Name, bound, inLambda)
			} else {
				walk(n.Target, bound, inLambda)
				walk(n.Index, bound, inLambda)
			}
			walk(n.Value, bound, inLambda)
		case *ast.While:
			walk(n.Cond, bound, inLambda)
			walk(n.Body, bound, inLambda)
		case *ast.For:
			inner := bound
			if letInit, ok := n.Init.(*ast.Let); ok {
				inner = extend(bound, letInit.Name)
			}
			walk(n.Init, bound, inLambda)
			walk(n.Cond, inner, inLambda)
			walk(n.Upd, inner, inLambda)
			walk(n.Body, inner, inLambda)
		case *ast.IncDec:
			see(n.Name, bound, inLambda)
		case *ast.CompoundAssign:
			see(n.Name, bound, inLambda)
			walk(n.Value, bound, inLambda)
		case *ast.Pointer:
			walk(n.Operand, bound, inLambda)
		}
	}
	walk(e, map[string]bool{}, false)
	return captured
}
