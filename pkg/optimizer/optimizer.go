// Package optimizer implements the peephole optimization pass that runs
// over a lowered Wasm IR module before it reaches the serializer (spec.md
// §4.E).
package optimizer

import (
	"fmt"

	"github.com/hyggelang/hyggec/pkg/ir"
)

// Pass is one optimization pass over a module.
type Pass interface {
	Name() string
	Run(module *ir.Module) (bool, error)
}

// Optimizer drives its configured passes to a fixed point: every pass
// re-runs until a full round leaves the module unchanged (spec.md §4.E
// "runs to a fixed point"), bounded by maxRounds as a termination
// safety net.
type Optimizer struct {
	passes []Pass
}

const maxRounds = 32

// New returns an optimizer with the peephole pass enabled according to
// enablePeephole; an optimizer with no passes is a no-op.
func New(enablePeephole bool) *Optimizer {
	o := &Optimizer{}
	if enablePeephole {
		o.passes = append(o.passes, NewPeepholePass())
	}
	return o
}

// Optimize runs every configured pass over module, looping until a full
// round makes no further change.
func (o *Optimizer) Optimize(module *ir.Module) error {
	for round := 0; round < maxRounds; round++ {
		changed := false
		for _, pass := range o.passes {
			passChanged, err := pass.Run(module)
			if err != nil {
				return fmt.Errorf("optimization pass %s failed: %w", pass.Name(), err)
			}
			changed = changed || passChanged
		}
		if !changed {
			return nil
		}
	}
	return nil
}
