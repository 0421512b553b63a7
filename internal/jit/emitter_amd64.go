//go:build amd64

package jit

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unsafe"

	"github.com/piratebomber/go-rubolt/internal/bytecode"
	"github.com/piratebomber/go-rubolt/internal/runtime"
)

// NativeSupported reports whether this build has a native backend.
const NativeSupported = true

// ErrNotEmittable marks a chunk using operations outside the native
// subset; the function stays on the Baseline tier.
var ErrNotEmittable = errors.New("jit: chunk not emittable to native code")

// callNative invokes generated code: entry is the code address, args
// points at the float64 argument block, argc is the argument count
// for the guard preamble and out receives the result. The status is 0
// on success and 1 on a guard bail-out.
//
//go:noescape
func callNative(entry uintptr, args *float64, argc int, out *float64) uint64

// CallNative runs fn's native code over numeric arguments. ok is
// false when the code took its bail-out path; the caller then
// deoptimizes and reruns the tree-walk.
func CallNative(fn *Function, args []runtime.Value) (runtime.Value, bool) {
	if fn.Native == nil || !fn.Native.Executable() {
		return nil, false
	}
	block := make([]float64, len(args)+1)
	for idx, arg := range args {
		num, isNum := arg.(*runtime.Number)
		if !isNum {
			return nil, false
		}
		block[idx] = num.Value
	}
	var out float64
	var argp *float64
	if len(args) > 0 {
		argp = &block[0]
	} else {
		argp = &block[len(block)-1] // unused slot keeps the pointer valid
	}
	entry := uintptr(unsafe.Pointer(&fn.Native.mem[0]))
	status := callNative(entry, argp, len(args), &out)
	if status != 0 {
		return nil, false
	}
	return runtime.NewNumber(out), true
}

// checkBooleanFlow rejects chunks where a boolean value could escape
// the generated code. Native code carries booleans as 1.0/0.0, which
// is only safe while the very next instruction consumes them for
// truthiness; a boolean that reaches RETURN would come back as a
// Number where the tree-walk yields a Bool. Such functions stay on
// the Baseline IR tier, which preserves value kinds.
func checkBooleanFlow(chunk *bytecode.Chunk) error {
	for idx, ins := range chunk.Code {
		producesBool := false
		switch ins.Op {
		case bytecode.OpCompareEq, bytecode.OpCompareNe,
			bytecode.OpCompareLt, bytecode.OpCompareGt,
			bytecode.OpCompareLe, bytecode.OpCompareGe,
			bytecode.OpNot:
			producesBool = true
		case bytecode.OpLoadConst:
			_, producesBool = chunk.Constants[ins.Operand].(*runtime.Bool)
		}
		if !producesBool {
			continue
		}
		if idx+1 >= len(chunk.Code) || chunk.Code[idx+1].Op != bytecode.OpJumpIfFalse {
			return fmt.Errorf("%w: boolean result not consumed by a branch", ErrNotEmittable)
		}
	}
	return nil
}

// asm is a minimal byte-level assembler for the emitter.
type asm struct {
	buf []byte
	// irOffset maps IR instruction index to its byte offset.
	irOffset []int
	// fixups are rel32 patch positions pointing at IR targets.
	fixups []fixup
	// bailFixups are rel32 patch positions pointing at the bail-out
	// stub.
	bailFixups []int
}

type fixup struct {
	at     int // byte offset of the rel32 field
	target int // IR instruction index
}

func (a *asm) bytes(bs ...byte) { a.buf = append(a.buf, bs...) }

func (a *asm) imm32(v int32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	a.buf = append(a.buf, tmp[:]...)
}

func (a *asm) imm64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	a.buf = append(a.buf, tmp[:]...)
}

// movabsRAX loads a 64-bit immediate into RAX.
func (a *asm) movabsRAX(v uint64) { a.bytes(0x48, 0xB8); a.imm64(v) }

// movabsRBX loads a 64-bit immediate into RBX.
func (a *asm) movabsRBX(v uint64) { a.bytes(0x48, 0xBB); a.imm64(v) }

func (a *asm) pushRAX() { a.bytes(0x50) }
func (a *asm) popRAX()  { a.bytes(0x58) }
func (a *asm) popRBX()  { a.bytes(0x5B) }

// movqXMM0RAX moves RAX into XMM0; movqXMM1RBX moves RBX into XMM1.
func (a *asm) movqXMM0RAX() { a.bytes(0x66, 0x48, 0x0F, 0x6E, 0xC0) }
func (a *asm) movqXMM1RBX() { a.bytes(0x66, 0x48, 0x0F, 0x6E, 0xCB) }

// movqRAXXMM0 moves XMM0 back into RAX.
func (a *asm) movqRAXXMM0() { a.bytes(0x66, 0x48, 0x0F, 0x7E, 0xC0) }

// loadArg emits MOV RAX, [RDI + 8*index].
func (a *asm) loadArg(index int) {
	disp := index * 8
	if disp < 128 {
		a.bytes(0x48, 0x8B, 0x47, byte(disp))
	} else {
		a.bytes(0x48, 0x8B, 0x87)
		a.imm32(int32(disp))
	}
}

// popBinaryOperands pops b into XMM1 and a into XMM0.
func (a *asm) popBinaryOperands() {
	a.popRBX() // b (pushed last)
	a.popRAX() // a
	a.movqXMM0RAX()
	a.movqXMM1RBX()
}

// pushXMM0 pushes XMM0 through RAX.
func (a *asm) pushXMM0() {
	a.movqRAXXMM0()
	a.pushRAX()
}

// pushBoolFromFlags materializes a comparison result in AL as 1.0 or
// 0.0 and pushes it.
func (a *asm) pushBoolFromFlags() {
	a.bytes(0x0F, 0xB6, 0xC0)       // MOVZX EAX, AL
	a.bytes(0xF2, 0x0F, 0x2A, 0xC0) // CVTSI2SD XMM0, EAX
	a.pushXMM0()
}

// EmitNative translates an IR chunk into machine code. The generated
// function follows a tiny fixed ABI: RDI points at the float64
// argument block, RDX carries the argument count (validated by the
// guard preamble), RSI points at the result slot. Arithmetic moves
// values through RAX/RBX into the SSE registers. Unsupported opcodes
// return ErrNotEmittable and keep the function on the Baseline tier.
func EmitNative(chunk *bytecode.Chunk, paramNames []string) (*CodeBuffer, error) {
	if err := checkBooleanFlow(chunk); err != nil {
		return nil, err
	}

	paramIndex := make(map[string]int, len(paramNames))
	for idx, name := range paramNames {
		paramIndex[name] = idx
	}

	a := &asm{irOffset: make([]int, len(chunk.Code)+1)}

	// Guard preamble: the argument count must match the
	// specialization; anything else takes the bail-out path.
	a.bytes(0x48, 0x83, 0xFA, byte(len(paramNames))) // CMP RDX, argc
	a.bytes(0x0F, 0x85)                              // JNE bail
	a.bailFixups = append(a.bailFixups, len(a.buf))
	a.imm32(0)

	for idx, ins := range chunk.Code {
		a.irOffset[idx] = len(a.buf)

		switch ins.Op {
		case bytecode.OpLoadConst:
			num, isNum := chunk.Constants[ins.Operand].(*runtime.Number)
			if !isNum {
				if b, isBool := chunk.Constants[ins.Operand].(*runtime.Bool); isBool {
					v := 0.0
					if b.Value {
						v = 1.0
					}
					a.movabsRAX(math.Float64bits(v))
					a.pushRAX()
					continue
				}
				return nil, fmt.Errorf("%w: non-numeric constant", ErrNotEmittable)
			}
			a.movabsRAX(math.Float64bits(num.Value))
			a.pushRAX()

		case bytecode.OpLoadVar:
			param, isParam := paramIndex[chunk.Names[ins.Operand]]
			if !isParam {
				return nil, fmt.Errorf("%w: non-parameter variable %q",
					ErrNotEmittable, chunk.Names[ins.Operand])
			}
			a.loadArg(param)
			a.pushRAX()

		case bytecode.OpAdd:
			a.popBinaryOperands()
			a.bytes(0xF2, 0x0F, 0x58, 0xC1) // ADDSD XMM0, XMM1
			a.pushXMM0()

		case bytecode.OpSub:
			a.popBinaryOperands()
			a.bytes(0xF2, 0x0F, 0x5C, 0xC1) // SUBSD XMM0, XMM1
			a.pushXMM0()

		case bytecode.OpMul:
			a.popBinaryOperands()
			a.bytes(0xF2, 0x0F, 0x59, 0xC1) // MULSD XMM0, XMM1
			a.pushXMM0()

		case bytecode.OpNeg:
			a.popRAX()
			a.movabsRBX(0x8000000000000000)
			a.bytes(0x48, 0x31, 0xD8) // XOR RAX, RBX
			a.pushRAX()

		case bytecode.OpShiftLeft:
			a.popRAX()
			a.movqXMM0RAX()
			a.movabsRBX(math.Float64bits(float64(int64(1) << ins.Operand)))
			a.movqXMM1RBX()
			a.bytes(0xF2, 0x0F, 0x59, 0xC1) // MULSD XMM0, XMM1
			a.pushXMM0()

		case bytecode.OpCompareLt:
			// a < b  ==  b > a, SETA ignores unordered (NaN) results.
			a.popBinaryOperands()
			a.bytes(0x66, 0x0F, 0x2E, 0xC8) // UCOMISD XMM1, XMM0
			a.bytes(0x0F, 0x97, 0xC0)       // SETA AL
			a.pushBoolFromFlags()

		case bytecode.OpCompareLe:
			a.popBinaryOperands()
			a.bytes(0x66, 0x0F, 0x2E, 0xC8) // UCOMISD XMM1, XMM0
			a.bytes(0x0F, 0x93, 0xC0)       // SETAE AL
			a.pushBoolFromFlags()

		case bytecode.OpCompareGt:
			a.popBinaryOperands()
			a.bytes(0x66, 0x0F, 0x2E, 0xC1) // UCOMISD XMM0, XMM1
			a.bytes(0x0F, 0x97, 0xC0)       // SETA AL
			a.pushBoolFromFlags()

		case bytecode.OpCompareGe:
			a.popBinaryOperands()
			a.bytes(0x66, 0x0F, 0x2E, 0xC1) // UCOMISD XMM0, XMM1
			a.bytes(0x0F, 0x93, 0xC0)       // SETAE AL
			a.pushBoolFromFlags()

		case bytecode.OpCompareEq:
			// Equal means ZF set and PF clear (ordered).
			a.popBinaryOperands()
			a.bytes(0x66, 0x0F, 0x2E, 0xC1) // UCOMISD XMM0, XMM1
			a.bytes(0x0F, 0x9B, 0xC0)       // SETNP AL
			a.bytes(0x0F, 0x94, 0xC1)       // SETE CL
			a.bytes(0x20, 0xC8)             // AND AL, CL
			a.pushBoolFromFlags()

		case bytecode.OpCompareNe:
			a.popBinaryOperands()
			a.bytes(0x66, 0x0F, 0x2E, 0xC1) // UCOMISD XMM0, XMM1
			a.bytes(0x0F, 0x9A, 0xC0)       // SETP AL
			a.bytes(0x0F, 0x95, 0xC1)       // SETNE CL
			a.bytes(0x08, 0xC8)             // OR AL, CL
			a.pushBoolFromFlags()

		case bytecode.OpJump:
			a.bytes(0xE9) // JMP rel32
			a.fixups = append(a.fixups, fixup{at: len(a.buf), target: ins.Operand})
			a.imm32(0)

		case bytecode.OpJumpIfFalse:
			a.popRAX()
			a.movqXMM0RAX()
			a.bytes(0x66, 0x0F, 0x57, 0xC9) // XORPD XMM1, XMM1
			a.bytes(0x66, 0x0F, 0x2E, 0xC1) // UCOMISD XMM0, XMM1
			// NaN is truthy: parity set skips the branch.
			a.bytes(0x0F, 0x8A)
			a.imm32(6) // JP over the JE
			a.bytes(0x0F, 0x84)
			a.fixups = append(a.fixups, fixup{at: len(a.buf), target: ins.Operand})
			a.imm32(0)

		case bytecode.OpReturn:
			a.popRAX()
			a.movqXMM0RAX()
			a.bytes(0xF2, 0x0F, 0x11, 0x06) // MOVSD [RSI], XMM0
			a.bytes(0x31, 0xC0)             // XOR EAX, EAX
			a.bytes(0xC3)                   // RET

		case bytecode.OpPop:
			a.popRAX()

		default:
			return nil, fmt.Errorf("%w: opcode %s", ErrNotEmittable, ins.Op)
		}
	}
	a.irOffset[len(chunk.Code)] = len(a.buf)

	// Bail-out stub: report a side exit; the coordinator reruns the
	// tree-walk and invalidates stale caches.
	bailOffset := len(a.buf)
	a.bytes(0xB8, 0x01, 0x00, 0x00, 0x00) // MOV EAX, 1
	a.bytes(0xC3)                         // RET

	for _, fx := range a.fixups {
		rel := int32(a.irOffset[fx.target] - (fx.at + 4))
		binary.LittleEndian.PutUint32(a.buf[fx.at:], uint32(rel))
	}
	for _, at := range a.bailFixups {
		rel := int32(bailOffset - (at + 4))
		binary.LittleEndian.PutUint32(a.buf[at:], uint32(rel))
	}

	buffer, err := Allocate(len(a.buf))
	if err != nil {
		return nil, err
	}
	if err := buffer.Write(a.buf); err != nil {
		_ = buffer.Free()
		return nil, err
	}
	if err := buffer.MakeExecutable(); err != nil {
		_ = buffer.Free()
		return nil, err
	}
	return buffer, nil
}
