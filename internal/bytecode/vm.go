package bytecode

import (
	"fmt"
	"io"
	"math"

	"github.com/piratebomber/go-rubolt/internal/runtime"
)

// defaultStackCapacity sizes the operand stack of a fresh VM run.
const defaultStackCapacity = 64

// CallFn dispatches an OpCall to the host: the coordinator routes it
// back through the evaluator (or a compiled tier) so calls from IR
// keep full language semantics.
type CallFn func(callee runtime.Value, args []runtime.Value) (runtime.Value, *runtime.Exception)

// VM executes IR chunks. It serves as the Baseline tier: the same
// chunk the native backend consumes, run by a Go dispatch loop.
type VM struct {
	out  io.Writer
	call CallFn
}

// NewVM creates a VM writing program output to out and dispatching
// calls through call.
func NewVM(out io.Writer, call CallFn) *VM {
	return &VM{out: out, call: call}
}

// Run executes a chunk in the given environment frame. The caller
// binds parameters into env beforehand. The returned exception
// carries the failing line for the traceback.
func (vm *VM) Run(chunk *Chunk, env *runtime.Environment) (runtime.Value, *runtime.Exception) {
	if err := chunk.Validate(); err != nil {
		return nil, runtime.NewExceptionf(runtime.RuntimeError, "invalid chunk: %v", err)
	}

	stack := make([]runtime.Value, 0, defaultStackCapacity)
	push := func(v runtime.Value) { stack = append(stack, v) }
	pop := func() runtime.Value {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}

	ip := 0
	for ip < len(chunk.Code) {
		ins := chunk.Code[ip]
		ip++

		switch ins.Op {
		case OpLoadConst, OpLoadString:
			push(chunk.Constants[ins.Operand])

		case OpLoadVar:
			name := chunk.Names[ins.Operand]
			val, ok := env.Get(name)
			if !ok {
				return nil, runtime.NewException(runtime.NameError,
					"undefined variable '"+name+"'")
			}
			push(val)

		case OpStoreVar:
			nameIdx, declare := DecodeStore(ins.Operand)
			name := chunk.Names[nameIdx]
			val := pop()
			if declare {
				env.Define(name, val, false)
			} else if exc := env.Assign(name, val); exc != nil {
				return nil, exc
			}

		case OpAdd, OpSub, OpMul, OpDiv, OpMod,
			OpCompareLt, OpCompareGt, OpCompareLe, OpCompareGe:
			right := pop()
			left := pop()
			val, exc := vmBinary(ins.Op, left, right)
			if exc != nil {
				return nil, exc
			}
			push(val)

		case OpCompareEq:
			right := pop()
			left := pop()
			push(runtime.BoolOf(runtime.Equal(left, right)))

		case OpCompareNe:
			right := pop()
			left := pop()
			push(runtime.BoolOf(!runtime.Equal(left, right)))

		case OpNeg:
			val := pop()
			num, ok := val.(*runtime.Number)
			if !ok {
				return nil, runtime.NewExceptionf(runtime.TypeError,
					"unary '-' requires a number, got %s", val.Kind())
			}
			push(runtime.NewNumber(-num.Value))

		case OpNot:
			push(runtime.BoolOf(!runtime.IsTruthy(pop())))

		case OpShiftLeft:
			val := pop()
			num, ok := val.(*runtime.Number)
			if !ok {
				return nil, runtime.NewExceptionf(runtime.TypeError,
					"shift requires a number, got %s", val.Kind())
			}
			push(runtime.NewNumber(num.Value * float64(int64(1)<<ins.Operand)))

		case OpJump:
			ip = ins.Operand

		case OpJumpIfFalse:
			if !runtime.IsTruthy(pop()) {
				ip = ins.Operand
			}

		case OpCall:
			argc := ins.Operand
			args := make([]runtime.Value, argc)
			for idx := argc - 1; idx >= 0; idx-- {
				args[idx] = pop()
			}
			callee := pop()
			if vm.call == nil {
				return nil, runtime.NewException(runtime.RuntimeError,
					"no call dispatch configured")
			}
			result, exc := vm.call(callee, args)
			if exc != nil {
				return nil, exc
			}
			push(result)

		case OpReturn:
			return pop(), nil

		case OpPop:
			pop()

		case OpPrint:
			fmt.Fprintln(vm.out, pop().String())

		default:
			return nil, runtime.NewExceptionf(runtime.RuntimeError,
				"unknown opcode %d", ins.Op)
		}
	}

	// Falling off the end returns null; Compile always emits an
	// explicit return, so this covers hand-built chunks only.
	return runtime.TheNull, nil
}

// vmBinary mirrors the evaluator's binary operator semantics so the
// Baseline tier is observationally identical to the tree-walk.
func vmBinary(op OpCode, left, right runtime.Value) (runtime.Value, *runtime.Exception) {
	if op == OpAdd {
		if ls, ok := left.(*runtime.String); ok {
			rs, ok := right.(*runtime.String)
			if !ok {
				return nil, runtime.NewExceptionf(runtime.TypeError,
					"cannot add string and %s", right.Kind())
			}
			return runtime.NewString(ls.Value + rs.Value), nil
		}
	}

	ln, lok := left.(*runtime.Number)
	rn, rok := right.(*runtime.Number)
	if !lok || !rok {
		bad := left
		if lok {
			bad = right
		}
		return nil, runtime.NewExceptionf(runtime.TypeError,
			"operator %s requires numbers, got %s", op, bad.Kind())
	}

	switch op {
	case OpAdd:
		return runtime.NewNumber(ln.Value + rn.Value), nil
	case OpSub:
		return runtime.NewNumber(ln.Value - rn.Value), nil
	case OpMul:
		return runtime.NewNumber(ln.Value * rn.Value), nil
	case OpDiv:
		if rn.Value == 0 {
			return nil, runtime.NewException(runtime.DivisionByZeroError, "division by zero")
		}
		return runtime.NewNumber(ln.Value / rn.Value), nil
	case OpMod:
		if rn.Value == 0 {
			return nil, runtime.NewException(runtime.DivisionByZeroError, "modulo by zero")
		}
		return runtime.NewNumber(math.Mod(ln.Value, rn.Value)), nil
	case OpCompareLt:
		return runtime.BoolOf(ln.Value < rn.Value), nil
	case OpCompareGt:
		return runtime.BoolOf(ln.Value > rn.Value), nil
	case OpCompareLe:
		return runtime.BoolOf(ln.Value <= rn.Value), nil
	case OpCompareGe:
		return runtime.BoolOf(ln.Value >= rn.Value), nil
	}
	return nil, runtime.NewExceptionf(runtime.RuntimeError, "unexpected opcode %s", op)
}
