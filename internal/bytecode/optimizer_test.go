package bytecode

import (
	"testing"

	"github.com/piratebomber/go-rubolt/internal/runtime"
)

// countOps counts occurrences of an opcode in a chunk.
func countOps(chunk *Chunk, op OpCode) int {
	n := 0
	for _, ins := range chunk.Code {
		if ins.Op == op {
			n++
		}
	}
	return n
}

func TestDeadCodeAfterReturn(t *testing.T) {
	chunk, fn := compileFn(t, `
def f(a) {
    return a
    print(999)
}`)
	before := len(chunk.Code)
	Optimize(chunk, WithPass(PassConstFold, false), WithPass(PassLICM, false))

	if len(chunk.Code) >= before {
		t.Fatalf("dead code not removed: %d -> %d instructions", before, len(chunk.Code))
	}
	if countOps(chunk, OpPrint) != 0 {
		t.Fatal("unreachable PRINT survived elimination")
	}
	// Behavior is unchanged.
	wantNumber(t, runChunk(t, chunk, fn, 7), 7)
}

func TestDeadCodeRemapsJumps(t *testing.T) {
	chunk, fn := compileFn(t, `
def f(n) {
    if (n > 0) {
        return 1
    } else {
        return 2
    }
}`)
	Optimize(chunk)
	wantNumber(t, runChunk(t, chunk, fn, 5), 1)
	wantNumber(t, runChunk(t, chunk, fn, -5), 2)
}

func TestConstantFolding(t *testing.T) {
	chunk, fn := compileFn(t, "def f() { return 2 + 3 * 4 }")
	Optimize(chunk, WithPass(PassLICM, false))

	// The whole expression folds to a single constant load.
	if got := countOps(chunk, OpAdd) + countOps(chunk, OpMul); got != 0 {
		t.Fatalf("%d arithmetic ops survived folding:\n%s", got, Disassemble(chunk))
	}
	wantNumber(t, runChunk(t, chunk, fn), 14)
}

func TestStringFolding(t *testing.T) {
	chunk, fn := compileFn(t, `def f() { return "ab" + "cd" }`)
	Optimize(chunk)
	if countOps(chunk, OpAdd) != 0 {
		t.Fatalf("string concat not folded:\n%s", Disassemble(chunk))
	}
	val := runChunk(t, chunk, fn)
	if s, ok := val.(*runtime.String); !ok || s.Value != "abcd" {
		t.Fatalf("got %s, want abcd", val.String())
	}
}

func TestDivisionByZeroNotFolded(t *testing.T) {
	chunk, fn := compileFn(t, "def f() { return 1 / 0 }")
	Optimize(chunk)
	if countOps(chunk, OpDiv) != 1 {
		t.Fatal("faulting division must fold at run time, not compile time")
	}
	var exc *runtime.Exception
	vm := NewVM(nil, nil)
	_, exc = vm.Run(chunk, runtime.NewEnclosedEnvironment(fn.Env))
	if exc == nil || exc.ErrKind != runtime.DivisionByZeroError {
		t.Fatalf("expected DivisionByZeroError, got %v", exc)
	}
}

func TestStrengthReductionPowerOfTwo(t *testing.T) {
	chunk, fn := compileFn(t, "def f(x) { return x * 8 }")
	Optimize(chunk)

	if countOps(chunk, OpShiftLeft) != 1 || countOps(chunk, OpMul) != 0 {
		t.Fatalf("x * 8 not reduced to a shift:\n%s", Disassemble(chunk))
	}
	wantNumber(t, runChunk(t, chunk, fn, 5), 40)
	wantNumber(t, runChunk(t, chunk, fn, 2.5), 20)
}

func TestIdentityElimination(t *testing.T) {
	chunk, fn := compileFn(t, "def f(x) { return x + 0 }")
	Optimize(chunk)
	if countOps(chunk, OpAdd) != 0 {
		t.Fatalf("x + 0 identity survived:\n%s", Disassemble(chunk))
	}
	wantNumber(t, runChunk(t, chunk, fn, 9), 9)

	chunk, fn = compileFn(t, "def f(x) { return x * 1 }")
	Optimize(chunk)
	if countOps(chunk, OpMul) != 0 {
		t.Fatalf("x * 1 identity survived:\n%s", Disassemble(chunk))
	}
	wantNumber(t, runChunk(t, chunk, fn, 9), 9)
}

func TestConstantConditionRewrite(t *testing.T) {
	chunk, fn := compileFn(t, `
def f(x) {
    while false {
        x = x + 1
    }
    return x
}`)
	Optimize(chunk)
	if countOps(chunk, OpJumpIfFalse) != 0 {
		t.Fatalf("constant-false condition not rewritten:\n%s", Disassemble(chunk))
	}
	wantNumber(t, runChunk(t, chunk, fn, 3), 3)
}

func TestLICMHoistsInvariant(t *testing.T) {
	chunk, fn := compileFn(t, `
def f(n, a, b) {
    let total = 0
    let i = 0
    while i < n {
        let k = a * b
        total = total + k
        i = i + 1
    }
    return total
}`)
	// Keep folding off so the invariant window stays recognizable.
	unoptimized := countLoopBodyOps(chunk)
	Optimize(chunk, WithPass(PassConstFold, false))
	optimized := countLoopBodyOps(chunk)

	if optimized >= unoptimized {
		t.Fatalf("loop body did not shrink: %d -> %d\n%s",
			unoptimized, optimized, Disassemble(chunk))
	}
	// Behavior is unchanged.
	wantNumber(t, runChunk(t, chunk, fn, 4, 3, 5), 60)
	wantNumber(t, runChunk(t, chunk, fn, 0, 3, 5), 0)
}

// countLoopBodyOps counts the instructions between the first backward
// jump's target and the jump itself.
func countLoopBodyOps(chunk *Chunk) int {
	for idx, ins := range chunk.Code {
		if ins.Op == OpJump && ins.Operand <= idx {
			return idx - ins.Operand
		}
	}
	return 0
}

func TestLICMLeavesVariantCode(t *testing.T) {
	chunk, fn := compileFn(t, `
def f(n) {
    let total = 0
    let i = 0
    while i < n {
        let k = i * 2
        total = total + k
        i = i + 1
    }
    return total
}`)
	Optimize(chunk, WithPass(PassConstFold, false))
	// i is written in the body, so i * 2 must stay inside the loop.
	wantNumber(t, runChunk(t, chunk, fn, 4), 12)
}

func TestOptimizePreservesSemantics(t *testing.T) {
	sources := []struct {
		source string
		args   []float64
		want   float64
	}{
		{"def f(n) { let acc = 0\nfor (let i = 0; i < n; i = i + 1) { acc = acc + i }\nreturn acc }", []float64{10}, 45},
		{"def f(a, b) { if (a > b) return a\nreturn b }", []float64{3, 9}, 9},
		{"def f(x) { return x * 4 + 2 * 3 }", []float64{5}, 26},
	}
	for _, tt := range sources {
		chunk, fn := compileFn(t, tt.source)
		Optimize(chunk)
		wantNumber(t, runChunk(t, chunk, fn, tt.args...), tt.want)
	}
}
