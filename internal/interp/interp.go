// Package interp implements the tree-walking evaluator for Rubolt.
//
// The evaluator executes the AST directly, threading environments for
// lexical scoping and propagating control-flow signals (return, break,
// continue) and script exceptions as typed results. A pluggable
// Coordinator observes call sites and function entries so the engine
// can drive inline caches, profiling and tiered dispatch without the
// evaluator depending on them.
package interp

import (
	"fmt"
	"io"

	"github.com/piratebomber/go-rubolt/internal/ast"
	"github.com/piratebomber/go-rubolt/internal/async"
	"github.com/piratebomber/go-rubolt/internal/lexer"
	"github.com/piratebomber/go-rubolt/internal/modules"
	"github.com/piratebomber/go-rubolt/internal/runtime"
)

// signal is the execution-signal state of the evaluator after a
// statement: Normal, Returning, Breaking or Continuing. Throwing is
// carried separately as a *runtime.Exception result.
type signal int

const (
	sigNormal signal = iota
	sigReturn
	sigBreak
	sigContinue
)

// Coordinator mediates between the evaluator and the optimization
// machinery. All methods are invoked on the evaluator goroutine.
type Coordinator interface {
	// RecordSite observes a dynamic dispatch: a call, member access or
	// index expression at the given site resolved to target for a
	// value of the given kind. method is the member name for member
	// sites and empty otherwise.
	RecordSite(site ast.SiteID, kind runtime.Kind, method string, target runtime.Value)

	// TryCompiled gives compiled code a chance to serve the call.
	// Returns handled=false when no compiled tier accepts, in which
	// case the evaluator tree-walks the body.
	TryCompiled(fn *runtime.Function, args []runtime.Value) (result runtime.Value, exc *runtime.Exception, handled bool)

	// EnterFunction and ExitFunction bracket a tree-walk execution of
	// fn for call counting and timing.
	EnterFunction(fn *runtime.Function)
	ExitFunction(fn *runtime.Function)
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithCoordinator attaches the engine's coordinator.
func WithCoordinator(c Coordinator) Option {
	return func(i *Interpreter) { i.coord = c }
}

// WithResolver attaches the module-import resolver.
func WithResolver(r modules.Resolver) Option {
	return func(i *Interpreter) { i.resolver = r }
}

// WithFile sets the source file name used in tracebacks.
func WithFile(name string) Option {
	return func(i *Interpreter) { i.file = name }
}

// WithMaxStackDepth bounds script recursion.
func WithMaxStackDepth(depth int) Option {
	return func(i *Interpreter) { i.callStack = runtime.NewCallStack(depth) }
}

// WithMaxMatchDepth bounds pattern-match recursion.
func WithMaxMatchDepth(depth int) Option {
	return func(i *Interpreter) {
		if depth > 0 {
			i.maxMatchDepth = depth
		}
	}
}

// WithStrictMatch enables strict pattern matching: object patterns
// without a rest element reject dicts with extra fields, and literal
// patterns refuse numeric/string coercion.
func WithStrictMatch(strict bool) Option {
	return func(i *Interpreter) { i.strictMatch = strict }
}

// DefaultMaxMatchDepth bounds pattern-match recursion when no limit
// is configured.
const DefaultMaxMatchDepth = 64

// Interpreter executes Rubolt programs by walking the AST.
type Interpreter struct {
	out           io.Writer
	globals       *runtime.Environment
	callStack     *runtime.CallStack
	coord         Coordinator
	resolver      modules.Resolver
	loop          *async.Loop
	file          string
	maxMatchDepth int
	strictMatch   bool

	// currentFn names the function being executed, for tracebacks.
	currentFn string

	// returnValue holds the value of the innermost pending return
	// signal; signalLabel the target label of a pending break or
	// continue ("" targets the innermost loop).
	returnValue runtime.Value
	signalLabel string
}

// New creates an interpreter writing program output to out.
func New(out io.Writer, opts ...Option) *Interpreter {
	i := &Interpreter{
		out:           out,
		globals:       runtime.NewEnvironment(),
		callStack:     runtime.NewCallStack(0),
		maxMatchDepth: DefaultMaxMatchDepth,
		currentFn:     "<main>",
	}
	for _, opt := range opts {
		opt(i)
	}
	i.registerBuiltins()
	i.registerTaskBuiltins()
	return i
}

// Globals returns the global environment. The REPL keeps it across
// inputs; the engine uses it to bind module exports.
func (i *Interpreter) Globals() *runtime.Environment { return i.globals }

// Interpret executes all top-level statements of program and returns
// the value of the last expression statement, or null. An uncaught
// script exception is returned with its traceback attached.
func (i *Interpreter) Interpret(program *ast.Program) (runtime.Value, *runtime.Exception) {
	var last runtime.Value = runtime.TheNull

	for _, stmt := range program.Statements {
		val, sig, exc := i.execStmt(i.globals, stmt)
		if exc != nil {
			return runtime.TheNull, exc
		}
		if sig != sigNormal {
			return runtime.TheNull, i.throwAt(stmt.Pos(), i.straySignalError(sig))
		}
		if val != nil {
			last = val
		}
	}
	return last, nil
}

// straySignalError builds the error for a control-flow signal that
// escaped every enclosing construct. A labelled break/continue whose
// label matches no enclosing loop is a NameError.
func (i *Interpreter) straySignalError(sig signal) *runtime.Exception {
	label := i.signalLabel
	i.signalLabel = ""
	switch sig {
	case sigBreak:
		if label != "" {
			return runtime.NewExceptionf(runtime.NameError, "break label '%s' matches no enclosing loop", label)
		}
		return runtime.NewException(runtime.RuntimeError, "break outside loop")
	case sigContinue:
		if label != "" {
			return runtime.NewExceptionf(runtime.NameError, "continue label '%s' matches no enclosing loop", label)
		}
		return runtime.NewException(runtime.RuntimeError, "continue outside loop")
	default:
		return runtime.NewException(runtime.RuntimeError, "return outside function")
	}
}

// throwAt stamps an exception with position, file and traceback.
func (i *Interpreter) throwAt(pos lexer.Position, exc *runtime.Exception) *runtime.Exception {
	exc.WithPos(pos)
	if exc.File == "" {
		exc.File = i.file
	}
	if exc.Trace == nil {
		exc.Trace = append(i.callStack.Capture(), runtime.TraceFrame{
			Function: "<main>",
			File:     i.file,
			Pos:      pos,
		})
	}
	return exc
}

// kindName returns the script-visible type name of v.
func kindName(v runtime.Value) string {
	return v.Kind().String()
}

// typeErrorf builds a TypeError with a formatted message.
func typeErrorf(format string, args ...any) *runtime.Exception {
	return runtime.NewException(runtime.TypeError, fmt.Sprintf(format, args...))
}
