package interp

import (
	"time"

	"github.com/piratebomber/go-rubolt/internal/async"
	"github.com/piratebomber/go-rubolt/internal/lexer"
	"github.com/piratebomber/go-rubolt/internal/runtime"
)

// registerTaskBuiltins installs the cooperative task builtins backed
// by the interpreter's event loop. Tasks run on the evaluator thread;
// the only suspension points are the task's own yields, so script
// state is never mutated concurrently.
func (i *Interpreter) registerTaskBuiltins() {
	i.loop = async.NewLoop()

	for name, fn := range map[string]runtime.BuiltinFn{
		"async":         i.builtinAsync,
		"await":         i.builtinAwait,
		"await_timeout": i.builtinAwaitTimeout,
		"call_soon":     i.builtinCallSoon,
		"call_later":    i.builtinCallLater,
		"cancel":        i.builtinCancel,
		"outcome":       i.builtinOutcome,
		"run_loop":      i.builtinRunLoop,
		"stop_loop":     i.builtinStopLoop,
	} {
		i.globals.Define(name, &runtime.Builtin{Name: name, Fn: fn}, true)
	}
}

// taskArg extracts the loop task from a script task value.
func taskArg(name string, args []runtime.Value, idx int) (*async.Task, *runtime.Exception) {
	if idx >= len(args) {
		return nil, runtime.NewExceptionf(runtime.TypeError, "%s expects a task argument", name)
	}
	t, ok := args[idx].(*runtime.Task)
	if !ok {
		return nil, runtime.NewExceptionf(runtime.TypeError,
			"%s expects a task, got %s", name, kindName(args[idx]))
	}
	handle, ok := t.Handle.(*async.Task)
	if !ok {
		return nil, runtime.NewException(runtime.TypeError, "task has no loop handle")
	}
	return handle, nil
}

// builtinAsync wraps a zero-argument function into a task:
// async(fn) returns a task that runs fn() when awaited or drained.
func (i *Interpreter) builtinAsync(args []runtime.Value) (runtime.Value, *runtime.Exception) {
	if exc := wantArgs("async", args, 1); exc != nil {
		return nil, exc
	}
	fn, ok := args[0].(*runtime.Function)
	if !ok {
		return nil, runtime.NewExceptionf(runtime.TypeError,
			"async expects a function, got %s", kindName(args[0]))
	}
	if fn.Arity() != 0 {
		return nil, runtime.NewException(runtime.TypeError,
			"async expects a function with no parameters")
	}

	name := displayName(fn)
	loopTask := i.loop.NewTask(name, func(t *async.Task) (any, error) {
		val, exc := i.callFunction(fn, nil, lexer.Position{})
		if exc != nil {
			return nil, exc
		}
		return val, nil
	})
	return &runtime.Task{Name: name, Handle: loopTask}, nil
}

// builtinAwait runs the task to completion on the current thread and
// returns its value. A failed task re-raises its exception; a
// cancelled task yields null.
func (i *Interpreter) builtinAwait(args []runtime.Value) (runtime.Value, *runtime.Exception) {
	if exc := wantArgs("await", args, 1); exc != nil {
		return nil, exc
	}
	task, exc := taskArg("await", args, 0)
	if exc != nil {
		return nil, exc
	}
	return taskResult(task, i.loop.Await(task))
}

// builtinAwaitTimeout awaits with a millisecond deadline. A timeout
// returns the string "timeout" without cancelling the task; the
// caller cancels explicitly.
func (i *Interpreter) builtinAwaitTimeout(args []runtime.Value) (runtime.Value, *runtime.Exception) {
	if exc := wantArgs("await_timeout", args, 2); exc != nil {
		return nil, exc
	}
	task, exc := taskArg("await_timeout", args, 0)
	if exc != nil {
		return nil, exc
	}
	ms, exc := wantNumber("await_timeout", args[1])
	if exc != nil {
		return nil, exc
	}

	outcome := i.loop.AwaitTimeout(task, time.Duration(ms.Value*float64(time.Millisecond)))
	if outcome == async.TimedOut {
		return runtime.NewString("timeout"), nil
	}
	return taskResult(task, outcome)
}

// taskResult converts a finished task's outcome to a script value.
func taskResult(task *async.Task, outcome async.Outcome) (runtime.Value, *runtime.Exception) {
	switch outcome {
	case async.Done:
		result, _ := task.Result()
		if val, ok := result.(runtime.Value); ok {
			return val, nil
		}
		return runtime.TheNull, nil
	case async.Cancelled:
		return runtime.TheNull, nil
	case async.Failed:
		_, err := task.Result()
		if exc, ok := err.(*runtime.Exception); ok {
			return nil, exc
		}
		return nil, runtime.NewExceptionf(runtime.RuntimeError, "task failed: %v", err)
	default:
		return runtime.TheNull, nil
	}
}

func (i *Interpreter) builtinCallSoon(args []runtime.Value) (runtime.Value, *runtime.Exception) {
	if exc := wantArgs("call_soon", args, 1); exc != nil {
		return nil, exc
	}
	task, exc := taskArg("call_soon", args, 0)
	if exc != nil {
		return nil, exc
	}
	i.loop.CallSoon(task)
	return runtime.TheNull, nil
}

func (i *Interpreter) builtinCallLater(args []runtime.Value) (runtime.Value, *runtime.Exception) {
	if exc := wantArgs("call_later", args, 2); exc != nil {
		return nil, exc
	}
	ms, exc := wantNumber("call_later", args[0])
	if exc != nil {
		return nil, exc
	}
	task, exc := taskArg("call_later", args, 1)
	if exc != nil {
		return nil, exc
	}
	i.loop.CallLater(time.Duration(ms.Value*float64(time.Millisecond)), task)
	return runtime.TheNull, nil
}

func (i *Interpreter) builtinCancel(args []runtime.Value) (runtime.Value, *runtime.Exception) {
	if exc := wantArgs("cancel", args, 1); exc != nil {
		return nil, exc
	}
	task, exc := taskArg("cancel", args, 0)
	if exc != nil {
		return nil, exc
	}
	i.loop.Cancel(task)
	return runtime.TheNull, nil
}

func (i *Interpreter) builtinOutcome(args []runtime.Value) (runtime.Value, *runtime.Exception) {
	if exc := wantArgs("outcome", args, 1); exc != nil {
		return nil, exc
	}
	task, exc := taskArg("outcome", args, 0)
	if exc != nil {
		return nil, exc
	}
	switch task.Outcome() {
	case async.Done:
		return runtime.NewString("done"), nil
	case async.Cancelled:
		return runtime.NewString("cancelled"), nil
	case async.Failed:
		return runtime.NewString("failed"), nil
	default:
		return runtime.NewString("pending"), nil
	}
}

func (i *Interpreter) builtinRunLoop(args []runtime.Value) (runtime.Value, *runtime.Exception) {
	if exc := wantArgs("run_loop", args, 0); exc != nil {
		return nil, exc
	}
	i.loop.Run()
	return runtime.TheNull, nil
}

func (i *Interpreter) builtinStopLoop(args []runtime.Value) (runtime.Value, *runtime.Exception) {
	if exc := wantArgs("stop_loop", args, 0); exc != nil {
		return nil, exc
	}
	i.loop.Stop()
	return runtime.TheNull, nil
}
