// Package alloc implements the static memory allocator: a process-wide,
// per-module bump allocator that hands out compile-time-known byte ranges
// (spec.md §4.B). Codegen places only string literals through it; closure
// environments and boxed cells are not given static addresses here but
// are malloc'd at run time.
//
// This is deliberately not the same thing as the module's runtime
// `malloc` import — that one sizes and places heap objects (struct
// instances, array data regions) at run time. This allocator only ever
// runs at compile time, laying out the initial data segment.
package alloc

import "fmt"

const wasmPageSize = 65536

// Allocator is a monotonic bump allocator with a 4-byte stride
// assumption (spec.md §4.B). The zero value is ready to use, starting at
// address zero.
type Allocator struct {
	mark uint32
}

// New returns an allocator whose high-water mark starts at zero.
func New() *Allocator { return &Allocator{} }

// Allocate reserves n bytes and returns the address of the first byte.
// n must be positive; spec.md §4.B requires InvalidSize otherwise.
func (a *Allocator) Allocate(n uint32) (uint32, error) {
	if n == 0 {
		return 0, &InvalidSizeError{Requested: n}
	}
	addr := a.mark
	a.mark += n
	return addr, nil
}

// HighWaterMark returns the largest address ever handed out plus its
// size — the value used to initialize the `heap_base` global.
func (a *Allocator) HighWaterMark() uint32 { return a.mark }

// PageCount returns the smallest number of 64KiB Wasm pages that covers
// the high-water mark (spec.md §3 invariant 5).
func (a *Allocator) PageCount() uint32 {
	if a.mark == 0 {
		return 1 // a module always declares at least one page
	}
	pages := a.mark / wasmPageSize
	if a.mark%wasmPageSize != 0 {
		pages++
	}
	return pages
}

// InvalidSizeError reports a non-positive allocation request (spec.md §7).
type InvalidSizeError struct{ Requested uint32 }

func (e *InvalidSizeError) Error() string {
	return fmt.Sprintf("invalid allocation size: %d (must be > 0)", e.Requested)
}
