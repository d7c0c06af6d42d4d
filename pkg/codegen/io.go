package codegen

import (
	"github.com/hyggelang/hyggec/pkg/ast"
	"github.com/hyggelang/hyggec/pkg/ir"
)

// newlineRecordAddr lazily interns the single-byte "\n" payload println
// appends, sharing one data-segment record across every println call site.
func (c *Context) newlineRecordAddr() (uint32, error) {
	if c.newlineAddr != nil {
		return *c.newlineAddr, nil
	}
	addr, err := c.internString("\n")
	if err != nil {
		return 0, err
	}
	c.newlineAddr = &addr
	return addr, nil
}

// lowerIO dispatches print/println/readInt/readFloat onto the matching
// host import, adding it to the module on first use (spec.md §4.D).
func (c *Context) lowerIO(env *Env, n *ast.IO, b *ir.Builder) error {
	switch n.Kind {
	case ast.IOPrint, ast.IOPrintLn:
		if err := c.emitWrite(env, n.Arg, b); err != nil {
			return err
		}
		if n.Kind == ast.IOPrintLn {
			addr, err := c.newlineRecordAddr()
			if err != nil {
				return err
			}
			c.ensureHostCall(writeSLabel, writeSSig)
			b.Emit(ir.I32Const(int64(addr + 4)))
			b.Emit(ir.I32Const(1))
			b.Emit(ir.Call(writeSLabel))
		}
		return nil
	case ast.IOReadInt:
		c.ensureHostCall(readIntLabel, readIntSig)
		b.Emit(ir.Call(readIntLabel))
		return nil
	case ast.IOReadFloat:
		c.ensureHostCall(readFloatLabel, readFloatSig)
		b.Emit(ir.Call(readFloatLabel))
		return nil
	default:
		return &InvalidASTError{Node: "IO", Reason: "unrecognised I/O kind"}
	}
}

// emitWrite lowers arg and calls the host write primitive matching its
// type: writeFloat for float, writeS (ptr, len) for string, writeInt
// (shared by int and bool) otherwise.
func (c *Context) emitWrite(env *Env, arg ast.Expr, b *ir.Builder) error {
	if err := c.lower(env, arg, b); err != nil {
		return err
	}
	switch {
	case isFloatType(arg.Type()):
		c.ensureHostCall(writeFloatLabel, writeFloatSig)
		b.Emit(ir.Call(writeFloatLabel))
	case isStringType(arg.Type()):
		recL := c.newLocal(env, "wrec", ir.I32)
		b.Emit(ir.LocalSet(recL))
		b.Emit(ir.LocalGet(recL))
		b.Emit(ir.I32Const(4))
		b.Emit(ir.I32Add()) // data pointer
		b.Emit(ir.LocalGet(recL))
		b.Emit(ir.I32Load(0)) // length
		c.ensureHostCall(writeSLabel, writeSSig)
		b.Emit(ir.Call(writeSLabel))
	default:
		c.ensureHostCall(writeIntLabel, writeIntSig)
		b.Emit(ir.Call(writeIntLabel))
	}
	return nil
}
