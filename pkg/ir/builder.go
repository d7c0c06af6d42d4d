package ir

// Builder accumulates an instruction sequence for one lowering call. The
// teacher's source built instruction streams into a single module-level
// "temp" buffer that was reset and flushed at lowering boundaries; this
// repository uses an explicit per-call builder instead (spec.md §9's
// design note on the temp-buffer pattern), so nested lowering calls never
// contend over shared mutable state.
type Builder struct {
	instrs []Instr
}

// NewBuilder returns an empty instruction builder.
func NewBuilder() *Builder { return &Builder{} }

// Emit appends one instruction.
func (b *Builder) Emit(i Instr) { b.instrs = append(b.instrs, i) }

// EmitAll appends a sequence of instructions.
func (b *Builder) EmitAll(is []Instr) { b.instrs = append(b.instrs, is...) }

// Len reports how many instructions have been emitted so far.
func (b *Builder) Len() int { return len(b.instrs) }

// Instrs returns the accumulated instruction sequence. The builder retains
// no reference to the returned slice's backing array beyond this call.
func (b *Builder) Instrs() []Instr {
	out := b.instrs
	b.instrs = nil
	return out
}

// Take is an alias for Instrs kept for readability at call sites that
// immediately assign the result to a function body or a branch body.
func (b *Builder) Take() []Instr { return b.Instrs() }
