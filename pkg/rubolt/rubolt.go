// Package rubolt is the public embedding API for the Rubolt engine.
//
// Host applications create an Engine, optionally register native
// modules, and run source strings:
//
//	eng := rubolt.New(os.Stdout)
//	result, err := eng.Run(`print("hello")`)
package rubolt

import (
	"io"

	"github.com/piratebomber/go-rubolt/internal/engine"
	"github.com/piratebomber/go-rubolt/internal/modules"
	"github.com/piratebomber/go-rubolt/internal/runtime"
)

// Value is a script value crossing the embedding boundary.
type Value = runtime.Value

// BuiltinFn is the Go signature of a native export.
type BuiltinFn = runtime.BuiltinFn

// Exception is a typed script error; native exports return it to
// raise into the script's try/catch machinery.
type Exception = runtime.Exception

// Export is one named export of a native module.
type Export = modules.Export

// Config re-exports the engine tuning knobs.
type Config = engine.Config

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config { return engine.DefaultConfig() }

// Engine is an embedded Rubolt engine. State accumulates across Run
// calls, so an Engine doubles as a REPL session.
type Engine struct {
	inner *engine.Engine
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	cfg  Config
	file string
}

// WithConfig overrides the engine configuration.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithFile sets the source name used in tracebacks.
func WithFile(name string) Option {
	return func(o *options) { o.file = name }
}

// New creates an engine writing program output to out.
func New(out io.Writer, opts ...Option) *Engine {
	o := options{cfg: engine.DefaultConfig(), file: "<embedded>"}
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{
		inner: engine.New(out, o.cfg, engine.WithFile(o.file)),
	}
}

// Run parses and executes source, returning the value of its last
// expression. Parse failures and uncaught script errors come back as
// Go errors (engine.ParseFailure / engine.ScriptFailure).
func (e *Engine) Run(source string) (Value, error) {
	return e.inner.Execute(source)
}

// RegisterModule makes a native module importable from scripts:
//
//	eng.RegisterModule("host", []rubolt.Export{{Name: "version", Fn: ...}})
//	// script: import "host"; print(host.version())
func (e *Engine) RegisterModule(name string, exports []Export) {
	obj := runtime.NewObject(name)
	for _, exp := range exports {
		obj.SetMember(exp.Name, &runtime.Builtin{Name: exp.Name, Fn: exp.Fn})
	}
	e.inner.Modules().Register(&modules.Module{Name: name, Exports: obj})
}

// Stats exposes the engine's tier, cache and profile metrics.
func (e *Engine) Stats() engine.Stats { return e.inner.Stats() }

// Number, String, Bool and Null build script values from Go values,
// for use in native exports.
func Number(v float64) Value { return runtime.NewNumber(v) }
func String(v string) Value  { return runtime.NewString(v) }
func Bool(v bool) Value      { return runtime.BoolOf(v) }
func Null() Value            { return runtime.TheNull }

// Errorf raises a typed script error from a native export.
func Errorf(kind string, format string, args ...any) *runtime.Exception {
	return runtime.NewExceptionf(runtime.ErrorKind(kind), format, args...)
}
