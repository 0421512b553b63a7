package jit

import (
	"errors"
	"testing"

	"github.com/piratebomber/go-rubolt/internal/bytecode"
	"github.com/piratebomber/go-rubolt/internal/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeBufferLifecycle(t *testing.T) {
	buf, err := Allocate(4096)
	if errors.Is(err, ErrNoExecutableMemory) {
		t.Skip("no executable memory on this platform")
	}
	require.NoError(t, err)

	require.NoError(t, buf.Write([]byte{0xC3})) // RET
	assert.Equal(t, 1, buf.Size())
	assert.False(t, buf.Executable())

	require.NoError(t, buf.MakeExecutable())
	assert.True(t, buf.Executable())

	// Writes after finalization are rejected.
	assert.Error(t, buf.Write([]byte{0x90}))

	require.NoError(t, buf.Free())
	require.NoError(t, buf.Free()) // double free is a no-op
}

func TestCodeBufferOverflow(t *testing.T) {
	buf, err := Allocate(16)
	if errors.Is(err, ErrNoExecutableMemory) {
		t.Skip("no executable memory on this platform")
	}
	require.NoError(t, err)
	defer buf.Free()

	assert.Error(t, buf.Write(make([]byte, 5000)))
}

func TestCodeBufferInvalidSize(t *testing.T) {
	_, err := Allocate(0)
	assert.Error(t, err)
}

func TestGuards(t *testing.T) {
	fn := &Function{Guards: []Guard{
		{Param: 0, Kind: runtime.NumberKind},
		{Param: 1, Kind: runtime.NumberKind},
	}}

	assert.True(t, fn.CheckGuards([]runtime.Value{
		runtime.NewNumber(1), runtime.NewNumber(2),
	}))
	assert.False(t, fn.CheckGuards([]runtime.Value{
		runtime.NewNumber(1), runtime.NewString("2"),
	}))
	assert.False(t, fn.CheckGuards([]runtime.Value{runtime.NewNumber(1)}))
}

// buildChunk assembles a tiny chunk directly for emitter tests.
func buildChunk(name string, params []string, build func(c *bytecode.Chunk)) *bytecode.Chunk {
	chunk := bytecode.NewChunk(name)
	for _, p := range params {
		chunk.InternName(p)
	}
	build(chunk)
	return chunk
}

func TestEmitNativeAdd(t *testing.T) {
	if !NativeSupported {
		t.Skip("no native backend on this architecture")
	}

	chunk := buildChunk("add", []string{"a", "b"}, func(c *bytecode.Chunk) {
		c.Emit(bytecode.OpLoadVar, 0, 1)
		c.Emit(bytecode.OpLoadVar, 1, 1)
		c.Emit(bytecode.OpAdd, 0, 1)
		c.Emit(bytecode.OpReturn, 0, 1)
	})

	buf, err := EmitNative(chunk, []string{"a", "b"})
	require.NoError(t, err)
	fn := &Function{Native: buf, Tier: TierOptimized}
	defer fn.ReleaseNative()

	result, ok := CallNative(fn, []runtime.Value{
		runtime.NewNumber(3), runtime.NewNumber(4),
	})
	require.True(t, ok)
	assert.Equal(t, 7.0, result.(*runtime.Number).Value)
}

func TestEmitNativeCompareAndBranch(t *testing.T) {
	if !NativeSupported {
		t.Skip("no native backend on this architecture")
	}

	// max(a, b) via a conditional branch.
	chunk := buildChunk("max", []string{"a", "b"}, func(c *bytecode.Chunk) {
		c.Emit(bytecode.OpLoadVar, 0, 1)    // 0: a
		c.Emit(bytecode.OpLoadVar, 1, 1)    // 1: b
		c.Emit(bytecode.OpCompareGt, 0, 1)  // 2: a > b
		c.Emit(bytecode.OpJumpIfFalse, 6, 1) // 3
		c.Emit(bytecode.OpLoadVar, 0, 1)    // 4: a
		c.Emit(bytecode.OpReturn, 0, 1)     // 5
		c.Emit(bytecode.OpLoadVar, 1, 1)    // 6: b
		c.Emit(bytecode.OpReturn, 0, 1)     // 7
	})

	buf, err := EmitNative(chunk, []string{"a", "b"})
	require.NoError(t, err)
	fn := &Function{Native: buf}
	defer fn.ReleaseNative()

	cases := []struct{ a, b, want float64 }{
		{3, 4, 4},
		{9, 2, 9},
		{5, 5, 5},
		{-1, -7, -1},
	}
	for _, tt := range cases {
		result, ok := CallNative(fn, []runtime.Value{
			runtime.NewNumber(tt.a), runtime.NewNumber(tt.b),
		})
		require.True(t, ok)
		assert.Equalf(t, tt.want, result.(*runtime.Number).Value, "max(%v, %v)", tt.a, tt.b)
	}
}

func TestNativeGuardBailout(t *testing.T) {
	if !NativeSupported {
		t.Skip("no native backend on this architecture")
	}

	chunk := buildChunk("id", []string{"a"}, func(c *bytecode.Chunk) {
		c.Emit(bytecode.OpLoadVar, 0, 1)
		c.Emit(bytecode.OpReturn, 0, 1)
	})
	buf, err := EmitNative(chunk, []string{"a"})
	require.NoError(t, err)
	fn := &Function{Native: buf}
	defer fn.ReleaseNative()

	// The preamble validates the argument count; a mismatch takes the
	// bail-out path and reports a side exit.
	_, ok := CallNative(fn, []runtime.Value{
		runtime.NewNumber(1), runtime.NewNumber(2),
	})
	assert.False(t, ok)

	// Non-numeric arguments never reach native code.
	_, ok = CallNative(fn, []runtime.Value{runtime.NewString("x")})
	assert.False(t, ok)
}

func TestEmitNativeRejectsUnsupported(t *testing.T) {
	if !NativeSupported {
		t.Skip("no native backend on this architecture")
	}

	chunk := buildChunk("caller", []string{"a"}, func(c *bytecode.Chunk) {
		c.Emit(bytecode.OpLoadVar, 0, 1)
		c.Emit(bytecode.OpCall, 0, 1)
		c.Emit(bytecode.OpReturn, 0, 1)
	})
	_, err := EmitNative(chunk, []string{"a"})
	assert.ErrorIs(t, err, ErrNotEmittable)
}

func TestEmitNativeRejectsBooleanReturn(t *testing.T) {
	if !NativeSupported {
		t.Skip("no native backend on this architecture")
	}

	// A comparison flowing into RETURN would surface as a Number where
	// the tree-walk yields a Bool; such chunks stay on the IR tier.
	chunk := buildChunk("isneg", []string{"n"}, func(c *bytecode.Chunk) {
		c.Emit(bytecode.OpLoadVar, 0, 1)
		c.Emit(bytecode.OpLoadConst, c.AddConstant(runtime.NewNumber(0)), 1)
		c.Emit(bytecode.OpCompareLt, 0, 1)
		c.Emit(bytecode.OpReturn, 0, 1)
	})
	_, err := EmitNative(chunk, []string{"n"})
	assert.ErrorIs(t, err, ErrNotEmittable)

	// The same applies to a boolean constant that escapes.
	chunk = buildChunk("yes", nil, func(c *bytecode.Chunk) {
		c.Emit(bytecode.OpLoadConst, c.AddConstant(runtime.True), 1)
		c.Emit(bytecode.OpReturn, 0, 1)
	})
	_, err = EmitNative(chunk, nil)
	assert.ErrorIs(t, err, ErrNotEmittable)
}

func TestEmitNativeArithmeticKernels(t *testing.T) {
	if !NativeSupported {
		t.Skip("no native backend on this architecture")
	}

	// (a - b) * -c
	chunk := buildChunk("kernel", []string{"a", "b", "c"}, func(c *bytecode.Chunk) {
		c.Emit(bytecode.OpLoadVar, 0, 1)
		c.Emit(bytecode.OpLoadVar, 1, 1)
		c.Emit(bytecode.OpSub, 0, 1)
		c.Emit(bytecode.OpLoadVar, 2, 1)
		c.Emit(bytecode.OpNeg, 0, 1)
		c.Emit(bytecode.OpMul, 0, 1)
		c.Emit(bytecode.OpReturn, 0, 1)
	})
	buf, err := EmitNative(chunk, []string{"a", "b", "c"})
	require.NoError(t, err)
	fn := &Function{Native: buf}
	defer fn.ReleaseNative()

	result, ok := CallNative(fn, []runtime.Value{
		runtime.NewNumber(10), runtime.NewNumber(4), runtime.NewNumber(3),
	})
	require.True(t, ok)
	assert.Equal(t, -18.0, result.(*runtime.Number).Value)
}

func TestShiftLeftEmission(t *testing.T) {
	if !NativeSupported {
		t.Skip("no native backend on this architecture")
	}

	chunk := buildChunk("shift", []string{"x"}, func(c *bytecode.Chunk) {
		c.Emit(bytecode.OpLoadVar, 0, 1)
		c.Emit(bytecode.OpShiftLeft, 3, 1)
		c.Emit(bytecode.OpReturn, 0, 1)
	})
	buf, err := EmitNative(chunk, []string{"x"})
	require.NoError(t, err)
	fn := &Function{Native: buf}
	defer fn.ReleaseNative()

	result, ok := CallNative(fn, []runtime.Value{runtime.NewNumber(2.5)})
	require.True(t, ok)
	assert.Equal(t, 20.0, result.(*runtime.Number).Value)
}
