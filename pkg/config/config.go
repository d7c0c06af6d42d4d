// Package config holds the two knobs spec.md §6 says the driver supplies
// to the core, plus the output-shaping flags (writing style, whether to
// run the peephole pass) that the rest of the pipeline reads.
package config

// AllocationStrategy selects whether malloc is imported from the host or
// synthesised as a module-local function (spec.md §6).
type AllocationStrategy string

const (
	AllocExternal AllocationStrategy = "external"
	AllocInternal AllocationStrategy = "internal"
)

// SyscallInterface names the syscall-interface dialect. Only one value is
// currently defined (spec.md §6).
type SyscallInterface string

const HyggeSI SyscallInterface = "hygge_si"

// Style selects the WAT writing style the serializer produces.
type Style string

const (
	StyleLinear Style = "linear"
	StyleFolded Style = "folded"
)

// Config is the full set of knobs threaded from the CLI driver through
// codegen, the optimizer and the serializer.
type Config struct {
	AllocationStrategy AllocationStrategy
	SyscallInterface   SyscallInterface
	Style              Style
	Peephole           bool
}

// Default returns the configuration spec.md's examples assume: external
// allocation, the one defined syscall-interface dialect, linear style,
// peephole optimization on.
func Default() Config {
	return Config{
		AllocationStrategy: AllocExternal,
		SyscallInterface:   HyggeSI,
		Style:              StyleLinear,
		Peephole:           true,
	}
}
