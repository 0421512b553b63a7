//go:build !amd64

package jit

import (
	"errors"

	"github.com/piratebomber/go-rubolt/internal/bytecode"
	"github.com/piratebomber/go-rubolt/internal/runtime"
)

// NativeSupported reports whether this build has a native backend.
// Non-amd64 builds run the Baseline tier only.
const NativeSupported = false

// ErrNotEmittable marks a chunk the native backend cannot translate.
var ErrNotEmittable = errors.New("jit: no native backend for this architecture")

// EmitNative always fails on architectures without an emitter.
func EmitNative(chunk *bytecode.Chunk, paramNames []string) (*CodeBuffer, error) {
	return nil, ErrNotEmittable
}

// CallNative never handles a call without a native backend.
func CallNative(fn *Function, args []runtime.Value) (runtime.Value, bool) {
	return nil, false
}
