package interp

import (
	"math"
	"strconv"
	"time"

	"github.com/piratebomber/go-rubolt/internal/runtime"
)

// registerBuiltins installs the built-in functions into the global
// environment. Builtins are callable values backed by a fixed Go
// dispatch; they do not allocate a script call frame.
func (i *Interpreter) registerBuiltins() {
	for name, fn := range map[string]runtime.BuiltinFn{
		"len":    builtinLen,
		"type":   builtinType,
		"range":  builtinRange,
		"str":    builtinStr,
		"num":    builtinNum,
		"abs":    builtinAbs,
		"floor":  builtinFloor,
		"ceil":   builtinCeil,
		"sqrt":   builtinSqrt,
		"push":   builtinPush,
		"keys":   builtinKeys,
		"values": builtinValues,
		"clock":  builtinClock,
		"sleep":  builtinSleep,
		"assert": builtinAssert,
	} {
		i.globals.Define(name, &runtime.Builtin{Name: name, Fn: fn}, true)
	}
}

// wantArgs checks an exact argument count.
func wantArgs(name string, args []runtime.Value, n int) *runtime.Exception {
	if len(args) != n {
		return runtime.NewExceptionf(runtime.TypeError,
			"%s expects %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func wantNumber(name string, arg runtime.Value) (*runtime.Number, *runtime.Exception) {
	num, ok := arg.(*runtime.Number)
	if !ok {
		return nil, runtime.NewExceptionf(runtime.TypeError,
			"%s expects a number, got %s", name, kindName(arg))
	}
	return num, nil
}

func builtinLen(args []runtime.Value) (runtime.Value, *runtime.Exception) {
	if exc := wantArgs("len", args, 1); exc != nil {
		return nil, exc
	}
	switch v := args[0].(type) {
	case *runtime.String:
		return runtime.NewNumber(float64(len([]rune(v.Value)))), nil
	case *runtime.List:
		return runtime.NewNumber(float64(v.Len())), nil
	case *runtime.Tuple:
		return runtime.NewNumber(float64(v.Len())), nil
	case *runtime.Array:
		return runtime.NewNumber(float64(v.Len())), nil
	case *runtime.Dict:
		return runtime.NewNumber(float64(v.Len())), nil
	case *runtime.Range:
		return runtime.NewNumber(float64(v.Len())), nil
	default:
		return nil, runtime.NewExceptionf(runtime.TypeError,
			"len expects a string or collection, got %s", kindName(args[0]))
	}
}

func builtinType(args []runtime.Value) (runtime.Value, *runtime.Exception) {
	if exc := wantArgs("type", args, 1); exc != nil {
		return nil, exc
	}
	return runtime.NewString(args[0].Kind().String()), nil
}

// builtinRange implements range(end), range(start, end) and
// range(start, end, step). The end bound is exclusive; a zero step is
// a ValueError.
func builtinRange(args []runtime.Value) (runtime.Value, *runtime.Exception) {
	if len(args) < 1 || len(args) > 3 {
		return nil, runtime.NewExceptionf(runtime.TypeError,
			"range expects 1 to 3 arguments, got %d", len(args))
	}
	nums := make([]float64, len(args))
	for idx, arg := range args {
		num, exc := wantNumber("range", arg)
		if exc != nil {
			return nil, exc
		}
		nums[idx] = num.Value
	}

	r := &runtime.Range{Step: 1}
	switch len(nums) {
	case 1:
		r.End = nums[0]
	case 2:
		r.Start, r.End = nums[0], nums[1]
	case 3:
		r.Start, r.End, r.Step = nums[0], nums[1], nums[2]
		if r.Step == 0 {
			return nil, runtime.NewException(runtime.ValueError, "range step must not be zero")
		}
	}
	return r, nil
}

func builtinStr(args []runtime.Value) (runtime.Value, *runtime.Exception) {
	if exc := wantArgs("str", args, 1); exc != nil {
		return nil, exc
	}
	return runtime.NewString(args[0].String()), nil
}

func builtinNum(args []runtime.Value) (runtime.Value, *runtime.Exception) {
	if exc := wantArgs("num", args, 1); exc != nil {
		return nil, exc
	}
	switch v := args[0].(type) {
	case *runtime.Number:
		return v, nil
	case *runtime.Bool:
		if v.Value {
			return runtime.NewNumber(1), nil
		}
		return runtime.NewNumber(0), nil
	case *runtime.String:
		f, err := strconv.ParseFloat(v.Value, 64)
		if err != nil {
			return nil, runtime.NewExceptionf(runtime.ValueError,
				"cannot convert %q to number", v.Value)
		}
		return runtime.NewNumber(f), nil
	default:
		return nil, runtime.NewExceptionf(runtime.TypeError,
			"cannot convert %s to number", kindName(args[0]))
	}
}

func builtinAbs(args []runtime.Value) (runtime.Value, *runtime.Exception) {
	if exc := wantArgs("abs", args, 1); exc != nil {
		return nil, exc
	}
	num, exc := wantNumber("abs", args[0])
	if exc != nil {
		return nil, exc
	}
	return runtime.NewNumber(math.Abs(num.Value)), nil
}

func builtinFloor(args []runtime.Value) (runtime.Value, *runtime.Exception) {
	if exc := wantArgs("floor", args, 1); exc != nil {
		return nil, exc
	}
	num, exc := wantNumber("floor", args[0])
	if exc != nil {
		return nil, exc
	}
	return runtime.NewNumber(math.Floor(num.Value)), nil
}

func builtinCeil(args []runtime.Value) (runtime.Value, *runtime.Exception) {
	if exc := wantArgs("ceil", args, 1); exc != nil {
		return nil, exc
	}
	num, exc := wantNumber("ceil", args[0])
	if exc != nil {
		return nil, exc
	}
	return runtime.NewNumber(math.Ceil(num.Value)), nil
}

func builtinSqrt(args []runtime.Value) (runtime.Value, *runtime.Exception) {
	if exc := wantArgs("sqrt", args, 1); exc != nil {
		return nil, exc
	}
	num, exc := wantNumber("sqrt", args[0])
	if exc != nil {
		return nil, exc
	}
	if num.Value < 0 {
		return nil, runtime.NewException(runtime.ArithmeticError, "sqrt of negative number")
	}
	return runtime.NewNumber(math.Sqrt(num.Value)), nil
}

func builtinPush(args []runtime.Value) (runtime.Value, *runtime.Exception) {
	if exc := wantArgs("push", args, 2); exc != nil {
		return nil, exc
	}
	list, ok := args[0].(*runtime.List)
	if !ok {
		return nil, runtime.NewExceptionf(runtime.TypeError,
			"push expects a list, got %s", kindName(args[0]))
	}
	list.Elements = append(list.Elements, args[1])
	return list, nil
}

func builtinKeys(args []runtime.Value) (runtime.Value, *runtime.Exception) {
	if exc := wantArgs("keys", args, 1); exc != nil {
		return nil, exc
	}
	dict, ok := args[0].(*runtime.Dict)
	if !ok {
		return nil, runtime.NewExceptionf(runtime.TypeError,
			"keys expects a dict, got %s", kindName(args[0]))
	}
	keys := dict.Keys()
	elements := make([]runtime.Value, len(keys))
	for idx, k := range keys {
		elements[idx] = runtime.NewString(k)
	}
	return runtime.NewList(elements), nil
}

func builtinValues(args []runtime.Value) (runtime.Value, *runtime.Exception) {
	if exc := wantArgs("values", args, 1); exc != nil {
		return nil, exc
	}
	dict, ok := args[0].(*runtime.Dict)
	if !ok {
		return nil, runtime.NewExceptionf(runtime.TypeError,
			"values expects a dict, got %s", kindName(args[0]))
	}
	elements := make([]runtime.Value, 0, dict.Len())
	for _, k := range dict.Keys() {
		val, _ := dict.Get(k)
		elements = append(elements, val)
	}
	return runtime.NewList(elements), nil
}

// builtinClock returns a monotonic timestamp in seconds, for timing
// scripts.
func builtinClock(args []runtime.Value) (runtime.Value, *runtime.Exception) {
	if exc := wantArgs("clock", args, 0); exc != nil {
		return nil, exc
	}
	return runtime.NewNumber(float64(time.Now().UnixNano()) / 1e9), nil
}

// builtinSleep blocks the current thread for the given milliseconds.
// It does not yield to the task loop, so no other task runs meanwhile.
func builtinSleep(args []runtime.Value) (runtime.Value, *runtime.Exception) {
	if exc := wantArgs("sleep", args, 1); exc != nil {
		return nil, exc
	}
	num, exc := wantNumber("sleep", args[0])
	if exc != nil {
		return nil, exc
	}
	time.Sleep(time.Duration(num.Value * float64(time.Millisecond)))
	return runtime.TheNull, nil
}

func builtinAssert(args []runtime.Value) (runtime.Value, *runtime.Exception) {
	if len(args) != 1 && len(args) != 2 {
		return nil, runtime.NewExceptionf(runtime.TypeError,
			"assert expects 1 or 2 arguments, got %d", len(args))
	}
	if runtime.IsTruthy(args[0]) {
		return runtime.TheNull, nil
	}
	msg := "assertion failed"
	if len(args) == 2 {
		msg = args[1].String()
	}
	return nil, runtime.NewException(runtime.AssertionError, msg)
}
