package bytecode

import (
	"math"

	"github.com/piratebomber/go-rubolt/internal/runtime"
)

// OptimizationPass names one optimizer pass.
type OptimizationPass string

const (
	// PassDeadCode removes instructions unreachable from the entry,
	// such as the successor of an unconditional return, and remaps
	// jump targets after compaction.
	PassDeadCode OptimizationPass = "dead-code"
	// PassConstFold folds constant operand pairs, applies strength
	// reduction (power-of-two multiplication becomes a shift, +0 and
	// *1 identities vanish) and rewrites constant-false conditional
	// jumps into unconditional ones.
	PassConstFold OptimizationPass = "const-fold"
	// PassLICM hoists loop-invariant computations in front of their
	// loop.
	PassLICM OptimizationPass = "licm"
)

// OptimizeOption toggles optimizer behavior.
type OptimizeOption func(*optimizeConfig)

type optimizeConfig struct {
	enabled map[OptimizationPass]bool
}

func (cfg optimizeConfig) isEnabled(pass OptimizationPass) bool {
	if cfg.enabled == nil {
		return true
	}
	enabled, ok := cfg.enabled[pass]
	if !ok {
		return true
	}
	return enabled
}

// WithPass enables or disables a single pass.
func WithPass(pass OptimizationPass, enabled bool) OptimizeOption {
	return func(cfg *optimizeConfig) {
		if cfg.enabled == nil {
			cfg.enabled = make(map[OptimizationPass]bool)
		}
		cfg.enabled[pass] = enabled
	}
}

// Optimize rewrites the chunk in place, running the enabled passes in
// their fixed order: dead code, folding, then loop-invariant motion.
func Optimize(chunk *Chunk, opts ...OptimizeOption) {
	var cfg optimizeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.isEnabled(PassDeadCode) {
		eliminateDeadCode(chunk)
	}
	if cfg.isEnabled(PassConstFold) {
		foldConstants(chunk)
	}
	if cfg.isEnabled(PassLICM) {
		hoistLoopInvariants(chunk)
	}
}

// ----------------------------------------------------------------------------
// Dead code elimination
// ----------------------------------------------------------------------------

// eliminateDeadCode drops instructions unreachable from the entry and
// remaps jump targets onto the compacted stream.
func eliminateDeadCode(chunk *Chunk) {
	code := chunk.Code
	if len(code) == 0 {
		return
	}

	reachable := make([]bool, len(code))
	work := []int{0}
	for len(work) > 0 {
		idx := work[len(work)-1]
		work = work[:len(work)-1]
		if idx >= len(code) || reachable[idx] {
			continue
		}
		reachable[idx] = true

		ins := code[idx]
		switch ins.Op {
		case OpReturn:
			// No successor.
		case OpJump:
			work = append(work, ins.Operand)
		case OpJumpIfFalse:
			work = append(work, idx+1, ins.Operand)
		default:
			work = append(work, idx+1)
		}
	}

	// Map old indexes to compacted positions.
	newPos := make([]int, len(code)+1)
	kept := make([]Instruction, 0, len(code))
	for idx, ins := range code {
		newPos[idx] = len(kept)
		if reachable[idx] {
			kept = append(kept, ins)
		}
	}
	newPos[len(code)] = len(kept)

	for idx := range kept {
		if kept[idx].Op.IsJump() {
			kept[idx].Operand = newPos[kept[idx].Operand]
		}
	}
	chunk.Code = kept
}

// ----------------------------------------------------------------------------
// Constant folding and strength reduction
// ----------------------------------------------------------------------------

// foldConstants runs the peephole until it reaches a fixpoint.
func foldConstants(chunk *Chunk) {
	for foldConstantsOnce(chunk) {
	}
}

// foldConstantsOnce performs one peephole sweep. Returns true when
// anything was rewritten. Windows spanning a jump target are left
// alone so control flow cannot land mid-pattern.
func foldConstantsOnce(chunk *Chunk) bool {
	code := chunk.Code
	targets := jumpTargets(code)

	type rewrite struct {
		start, length int
		replacement   []Instruction
	}
	var rw *rewrite

	for idx := 0; idx < len(code) && rw == nil; idx++ {
		ins := code[idx]

		// LOAD_CONST a; LOAD_CONST b; OP  ->  LOAD_CONST folded
		if (ins.Op == OpLoadConst || ins.Op == OpLoadString) && idx+2 < len(code) &&
			(code[idx+1].Op == OpLoadConst || code[idx+1].Op == OpLoadString) &&
			!targets[idx+1] && !targets[idx+2] {
			if folded, ok := foldPair(chunk, ins, code[idx+1], code[idx+2]); ok {
				rw = &rewrite{start: idx, length: 3, replacement: []Instruction{
					{Op: OpLoadConst, Operand: chunk.AddConstant(folded), Line: ins.Line},
				}}
				break
			}
		}

		if ins.Op == OpLoadConst && idx+1 < len(code) && !targets[idx+1] {
			next := code[idx+1]
			num, isNum := chunk.Constants[ins.Operand].(*runtime.Number)

			// x; LOAD_CONST 2^k; MUL  ->  x; SHIFT_LEFT k
			if isNum && next.Op == OpMul {
				if k, ok := powerOfTwo(num.Value); ok {
					rw = &rewrite{start: idx, length: 2, replacement: []Instruction{
						{Op: OpShiftLeft, Operand: k, Line: ins.Line},
					}}
					break
				}
			}
			// x; LOAD_CONST 0; ADD  and  x; LOAD_CONST 1; MUL  ->  x
			if isNum && ((num.Value == 0 && next.Op == OpAdd) ||
				(num.Value == 1 && next.Op == OpMul)) {
				rw = &rewrite{start: idx, length: 2}
				break
			}
			// LOAD_CONST falsey; JUMP_IF_FALSE t  ->  JUMP t
			// LOAD_CONST truthy; JUMP_IF_FALSE t  ->  (nothing)
			if next.Op == OpJumpIfFalse {
				if runtime.IsTruthy(chunk.Constants[ins.Operand]) {
					rw = &rewrite{start: idx, length: 2}
				} else {
					rw = &rewrite{start: idx, length: 2, replacement: []Instruction{
						{Op: OpJump, Operand: next.Operand, Line: next.Line},
					}}
				}
				break
			}
		}
	}

	if rw == nil {
		return false
	}

	newPos := make([]int, len(code)+1)
	out := make([]Instruction, 0, len(code))
	for idx := 0; idx <= len(code); idx++ {
		newPos[idx] = len(out)
		if idx == len(code) {
			break
		}
		switch {
		case idx == rw.start:
			out = append(out, rw.replacement...)
		case idx > rw.start && idx < rw.start+rw.length:
			// Replaced window; emits nothing.
		default:
			out = append(out, code[idx])
		}
	}
	for idx := range out {
		if out[idx].Op.IsJump() {
			out[idx].Operand = newPos[out[idx].Operand]
		}
	}
	chunk.Code = out
	return true
}

// foldPair evaluates OP over two constants when safe. Faulting
// operations (division by zero) and type errors fold at run time
// instead.
func foldPair(chunk *Chunk, a, b, op Instruction) (runtime.Value, bool) {
	av := chunk.Constants[a.Operand]
	bv := chunk.Constants[b.Operand]

	if op.Op == OpCompareEq {
		return runtime.BoolOf(runtime.Equal(av, bv)), true
	}
	if op.Op == OpCompareNe {
		return runtime.BoolOf(!runtime.Equal(av, bv)), true
	}

	if as, ok := av.(*runtime.String); ok && op.Op == OpAdd {
		if bs, ok := bv.(*runtime.String); ok {
			return runtime.NewString(as.Value + bs.Value), true
		}
		return nil, false
	}

	an, aok := av.(*runtime.Number)
	bn, bok := bv.(*runtime.Number)
	if !aok || !bok {
		return nil, false
	}
	switch op.Op {
	case OpAdd:
		return runtime.NewNumber(an.Value + bn.Value), true
	case OpSub:
		return runtime.NewNumber(an.Value - bn.Value), true
	case OpMul:
		return runtime.NewNumber(an.Value * bn.Value), true
	case OpDiv:
		if bn.Value == 0 {
			return nil, false
		}
		return runtime.NewNumber(an.Value / bn.Value), true
	case OpMod:
		if bn.Value == 0 {
			return nil, false
		}
		return runtime.NewNumber(math.Mod(an.Value, bn.Value)), true
	case OpCompareLt:
		return runtime.BoolOf(an.Value < bn.Value), true
	case OpCompareGt:
		return runtime.BoolOf(an.Value > bn.Value), true
	case OpCompareLe:
		return runtime.BoolOf(an.Value <= bn.Value), true
	case OpCompareGe:
		return runtime.BoolOf(an.Value >= bn.Value), true
	}
	return nil, false
}

// powerOfTwo returns (k, true) when v == 2^k for a small integer k.
func powerOfTwo(v float64) (int, bool) {
	if v <= 0 || v != math.Trunc(v) {
		return 0, false
	}
	n := int64(v)
	if n&(n-1) != 0 {
		return 0, false
	}
	k := 0
	for n > 1 {
		n >>= 1
		k++
	}
	if k == 0 || k > 31 {
		// *1 is an identity, handled separately.
		return 0, false
	}
	return k, true
}

// jumpTargets marks every instruction index some jump lands on.
func jumpTargets(code []Instruction) []bool {
	targets := make([]bool, len(code)+1)
	for _, ins := range code {
		if ins.Op.IsJump() {
			targets[ins.Operand] = true
		}
	}
	return targets
}

// ----------------------------------------------------------------------------
// Loop-invariant code motion
// ----------------------------------------------------------------------------

// hoistableOps are the operations safe to execute once ahead of the
// loop: pure, non-faulting value computations. Division stays inside
// the loop so a zero divisor cannot fault earlier than it would have.
func hoistableOp(op OpCode) (stackDelta int, ok bool) {
	switch op {
	case OpLoadConst, OpLoadString, OpLoadVar:
		return 1, true
	case OpAdd, OpSub, OpMul:
		return -1, true
	case OpNeg, OpShiftLeft:
		return 0, true
	}
	return 0, false
}

// hoistLoopInvariants finds loops by their backward jump and moves
// invariant compute-and-store windows in front of the loop entry. A
// window qualifies when every variable it reads is never written in
// the loop body, the stored variable is written nowhere else in the
// body and not read before the window, and no jump lands inside it.
func hoistLoopInvariants(chunk *Chunk) {
	code := chunk.Code
	targets := jumpTargets(code)

	for jumpIdx := 0; jumpIdx < len(code); jumpIdx++ {
		ins := code[jumpIdx]
		if ins.Op != OpJump || ins.Operand > jumpIdx {
			continue
		}
		loopStart := ins.Operand

		window, ok := findInvariantWindow(chunk, loopStart, jumpIdx, targets)
		if !ok {
			continue
		}

		hoistWindow(chunk, loopStart, window.start, window.end)
		// Indexes are stale after a rewrite; restart the scan.
		code = chunk.Code
		targets = jumpTargets(code)
		jumpIdx = 0
	}
}

type window struct {
	start, end int // [start, end)
}

// findInvariantWindow scans a loop body for the first hoistable
// compute-and-store sequence.
func findInvariantWindow(chunk *Chunk, loopStart, loopEnd int, targets []bool) (window, bool) {
	code := chunk.Code

	// Names written anywhere in the body.
	writes := make(map[string]int)
	for idx := loopStart; idx < loopEnd; idx++ {
		if code[idx].Op == OpStoreVar {
			nameIdx, _ := DecodeStore(code[idx].Operand)
			writes[chunk.Names[nameIdx]]++
		}
	}

	for start := loopStart; start < loopEnd; start++ {
		depth := 0
		for idx := start; idx < loopEnd; idx++ {
			ins := code[idx]
			if idx > start && targets[idx] {
				break
			}

			if ins.Op == OpStoreVar {
				nameIdx, _ := DecodeStore(ins.Operand)
				name := chunk.Names[nameIdx]
				if depth != 1 || writes[name] != 1 || idx == start {
					break
				}
				// The stored variable must not be read before the
				// window inside the body, or iteration one would see
				// the hoisted value too early.
				if nameReadIn(chunk, loopStart, start, name) {
					break
				}
				return window{start: start, end: idx + 1}, true
			}

			delta, ok := hoistableOp(ins.Op)
			if !ok {
				break
			}
			if ins.Op == OpLoadVar && writes[chunk.Names[ins.Operand]] > 0 {
				break
			}
			if delta < 0 && depth < 2 {
				break
			}
			if delta == 0 && depth < 1 {
				break
			}
			depth += delta
		}
	}
	return window{}, false
}

// nameReadIn reports whether name is loaded in code[from:to).
func nameReadIn(chunk *Chunk, from, to int, name string) bool {
	for idx := from; idx < to; idx++ {
		ins := chunk.Code[idx]
		if ins.Op == OpLoadVar && chunk.Names[ins.Operand] == name {
			return true
		}
	}
	return false
}

// hoistWindow moves code[start:end) in front of loopStart, remapping
// every jump target across the reorder.
func hoistWindow(chunk *Chunk, loopStart, start, end int) {
	code := chunk.Code

	order := make([]int, 0, len(code))
	for idx := 0; idx < loopStart; idx++ {
		order = append(order, idx)
	}
	for idx := start; idx < end; idx++ {
		order = append(order, idx)
	}
	for idx := loopStart; idx < len(code); idx++ {
		if idx >= start && idx < end {
			continue
		}
		order = append(order, idx)
	}

	newPos := make([]int, len(code)+1)
	for newIdx, oldIdx := range order {
		newPos[oldIdx] = newIdx
	}
	// A jump target at loopStart must keep pointing at the loop
	// condition, which now sits after the hoisted window.
	newPos[loopStart] = loopStart + (end - start)
	newPos[len(code)] = len(code)

	out := make([]Instruction, len(code))
	for newIdx, oldIdx := range order {
		out[newIdx] = code[oldIdx]
	}
	for idx := range out {
		if out[idx].Op.IsJump() {
			out[idx].Operand = newPos[out[idx].Operand]
		}
	}
	chunk.Code = out
}
