package jit

import (
	"sync"

	"github.com/piratebomber/go-rubolt/internal/bytecode"
	"github.com/piratebomber/go-rubolt/internal/runtime"
)

// Guard records one value-shape check native code depends on: the
// parameter at Param must have the given kind, matching what the
// inline caches observed at specialization time.
type Guard struct {
	Param int
	Kind  runtime.Kind
}

// Function is the per-function compilation record the coordinator
// keeps: the IR chunk, the optional native region, tier and counters.
type Function struct {
	Name       string
	Chunk      *bytecode.Chunk
	Native     *CodeBuffer
	NativeSize int
	Tier       Tier
	Guards     []Guard
	ParamNames []string

	// ExecCount counts entries through the coordinator; the hotness
	// counter that triggers promotion.
	ExecCount uint64

	// Uncompilable marks a function the IR subset cannot express, so
	// the compiler is not re-entered on every return.
	Uncompilable bool

	// mu serializes compilation of this function so a background
	// compile cannot race an execution of the same function.
	mu sync.Mutex
}

// Lock and Unlock bracket a compilation of this function.
func (f *Function) Lock()   { f.mu.Lock() }
func (f *Function) Unlock() { f.mu.Unlock() }

// CheckGuards validates the observed argument shapes against the
// guards. A failure is a deoptimization trigger.
func (f *Function) CheckGuards(args []runtime.Value) bool {
	for _, g := range f.Guards {
		if g.Param >= len(args) || args[g.Param].Kind() != g.Kind {
			return false
		}
	}
	return true
}

// ReleaseNative drops the native region, e.g. after deoptimization.
// The region is freed; no stack frame may reference it (the
// coordinator only calls this between executions).
func (f *Function) ReleaseNative() {
	if f.Native != nil {
		_ = f.Native.Free()
		f.Native = nil
		f.NativeSize = 0
	}
}
