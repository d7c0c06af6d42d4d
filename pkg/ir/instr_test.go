package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPure(t *testing.T) {
	assert.True(t, I32Const(1).IsPure())
	assert.True(t, LocalGet("x").IsPure())
	assert.True(t, GlobalGet("g").IsPure())
	assert.False(t, Call("f").IsPure())
	assert.False(t, Drop().IsPure())
}

func TestIsUnconditionalExit(t *testing.T) {
	assert.True(t, Unreachable().IsUnconditionalExit())
	assert.True(t, Return().IsUnconditionalExit())
	assert.True(t, Br("L0").IsUnconditionalExit())
	assert.False(t, BrIf("L0").IsUnconditionalExit())
	assert.False(t, Nop().IsUnconditionalExit())
}
