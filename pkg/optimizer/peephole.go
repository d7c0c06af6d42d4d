package optimizer

import (
	log "github.com/sirupsen/logrus"

	"github.com/hyggelang/hyggec/pkg/ir"
)

// PeepholePass implements the six rewrite families spec.md §4.E requires,
// applied to every function's instruction tree until no rule fires
// anywhere in it.
type PeepholePass struct {
	counts map[string]int
}

func NewPeepholePass() *PeepholePass {
	return &PeepholePass{counts: make(map[string]int)}
}

func (p *PeepholePass) Name() string { return "peephole" }

func (p *PeepholePass) Run(module *ir.Module) (bool, error) {
	changed := false
	for _, fn := range module.Functions {
		newBody, did := p.rewrite(fn.Body)
		if did {
			fn.Body = newBody
			changed = true
		}
	}
	if changed {
		log.WithField("pass", "peephole").WithField("rewrites", p.counts).Debug("applied rewrites")
	}
	return changed, nil
}

// rewrite normalizes nested control bodies first, then runs passOnce
// against the resulting straight-line sequence to a fixed point — inner
// sequences are fully settled before an outer adjacency rule (e.g. rule 4
// folding across an `if`) ever inspects them.
func (p *PeepholePass) rewrite(seq []ir.Instr) ([]ir.Instr, bool) {
	changed := false
	out := make([]ir.Instr, len(seq))
	for i, instr := range seq {
		var nestedChanged bool
		instr, nestedChanged = p.rewriteNested(instr)
		changed = changed || nestedChanged
		out[i] = instr
	}

	for {
		next, did := p.passOnce(out)
		if !did {
			break
		}
		out = next
		changed = true
	}
	return out, changed
}

func (p *PeepholePass) rewriteNested(instr ir.Instr) (ir.Instr, bool) {
	changed := false
	if instr.Op == "block" || instr.Op == "loop" {
		body, did := p.rewrite(instr.Body)
		instr.Body = body
		changed = changed || did
	}
	if instr.Op == "if" {
		then, did := p.rewrite(instr.Then)
		instr.Then = then
		changed = changed || did
		els, did2 := p.rewrite(instr.Else)
		instr.Else = els
		changed = changed || did2
	}
	return instr, changed
}

// passOnce applies the first matching rule at the earliest position it
// fires, trying the rule families in the order 3, 1, 2, 4, 5, 6.
func (p *PeepholePass) passOnce(seq []ir.Instr) ([]ir.Instr, bool) {
	// Rule 3: dead code after an unconditional exit — nothing after
	// unreachable/return/br in the same straight-line sequence ever runs.
	for i, instr := range seq {
		if instr.IsUnconditionalExit() && i+1 < len(seq) {
			p.counts["dead_code_after_exit"]++
			return append([]ir.Instr{}, seq[:i+1]...), true
		}
	}

	// Rule 1: a pure instruction whose value is immediately dropped is
	// pointless — both vanish.
	for i := 0; i+1 < len(seq); i++ {
		if seq[i].IsPure() && seq[i+1].Op == "drop" {
			p.counts["push_drop_elim"]++
			return spliceOut(seq, i, 2, nil), true
		}
	}

	// Rule 2: local.set X immediately followed by local.get X collapses
	// to local.tee X — one fewer round trip through the local.
	for i := 0; i+1 < len(seq); i++ {
		if seq[i].Op == "local.set" && seq[i+1].Op == "local.get" && seq[i].Name == seq[i+1].Name {
			p.counts["set_get_tee"]++
			return spliceOut(seq, i, 2, []ir.Instr{ir.LocalTee(seq[i].Name)}), true
		}
	}

	// Rule 4: a constant condition immediately feeding an `if` folds to
	// whichever branch the constant selects.
	for i, instr := range seq {
		if instr.Op == "i32.const" && i+1 < len(seq) && seq[i+1].Op == "if" {
			ifInstr := seq[i+1]
			kept := ifInstr.Then
			if instr.IntImm == 0 {
				kept = ifInstr.Else
			}
			p.counts["const_cond_fold"]++
			return spliceOut(seq, i, 2, kept), true
		}
	}

	// Rule 5: commute two adjacent pure pushes feeding a commutative
	// binary op so a constant operand leads — canonical form for any
	// further constant folding downstream.
	for i := 0; i+2 < len(seq); i++ {
		a, bb, op := seq[i], seq[i+1], seq[i+2]
		if isCommutativeOp(op.Op) && a.IsPure() && bb.IsPure() &&
			bb.Op == "i32.const" && a.Op != "i32.const" {
			p.counts["commute_push"]++
			return spliceOut(seq, i, 2, []ir.Instr{bb, a}), true
		}
	}

	// Rule 6: folding-style normalization — a block/loop/if with no body
	// and no else and no results contributes nothing and is dropped so a
	// folded print never shows an empty wrapper.
	for i, instr := range seq {
		if isVacuousControl(instr) {
			p.counts["vacuous_control_drop"]++
			return spliceOut(seq, i, 1, nil), true
		}
	}

	return seq, false
}

// spliceOut returns a copy of seq with the n instructions starting at i
// replaced by replacement.
func spliceOut(seq []ir.Instr, i, n int, replacement []ir.Instr) []ir.Instr {
	out := make([]ir.Instr, 0, len(seq)-n+len(replacement))
	out = append(out, seq[:i]...)
	out = append(out, replacement...)
	out = append(out, seq[i+n:]...)
	return out
}

func isCommutativeOp(op string) bool {
	switch op {
	case "i32.add", "i32.mul", "i32.and", "i32.or", "i32.xor", "i32.eq", "i32.ne",
		"f32.add", "f32.mul", "f32.eq", "f32.ne":
		return true
	default:
		return false
	}
}

func isVacuousControl(instr ir.Instr) bool {
	switch instr.Op {
	case "block", "loop":
		return len(instr.Body) == 0 && len(instr.Results) == 0
	case "if":
		return len(instr.Then) == 0 && len(instr.Else) == 0 && len(instr.Results) == 0
	default:
		return false
	}
}
