// Package engine wires the language pipeline together: it owns the
// profiler, the inline-cache manager and the JIT compiler, dispatches
// function calls across tiers and handles deoptimization back to the
// tree-walk.
package engine

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/piratebomber/go-rubolt/internal/ast"
	"github.com/piratebomber/go-rubolt/internal/bytecode"
	rerrors "github.com/piratebomber/go-rubolt/internal/errors"
	"github.com/piratebomber/go-rubolt/internal/ic"
	"github.com/piratebomber/go-rubolt/internal/interp"
	"github.com/piratebomber/go-rubolt/internal/jit"
	"github.com/piratebomber/go-rubolt/internal/lexer"
	"github.com/piratebomber/go-rubolt/internal/modules"
	"github.com/piratebomber/go-rubolt/internal/parser"
	"github.com/piratebomber/go-rubolt/internal/profile"
	"github.com/piratebomber/go-rubolt/internal/runtime"
)

// ParseFailure aggregates the parse errors of one source unit. Any
// parse error makes the engine refuse to execute.
type ParseFailure struct {
	Errors   []parser.ParseError
	Rendered string
}

// Error implements the error interface.
func (e *ParseFailure) Error() string {
	return fmt.Sprintf("parsing failed with %d error(s)", len(e.Errors))
}

// ScriptFailure wraps an uncaught script exception crossing the host
// boundary.
type ScriptFailure struct {
	Exc *runtime.Exception
}

// Error implements the error interface.
func (e *ScriptFailure) Error() string { return e.Exc.FormatTraceback() }

// Engine owns a whole program run: evaluator, profiler, inline
// caches and the JIT pipeline. A mutex guards shared state so host
// embedders driving the engine from their own threads cannot corrupt
// it; the language itself stays single-threaded.
type Engine struct {
	cfg      Config
	out      io.Writer
	interp   *interp.Interpreter
	profiler *profile.Profiler
	caches   *ic.Manager
	vm       *bytecode.VM
	registry *modules.Registry

	mu        sync.Mutex
	functions map[*runtime.Function]*jit.Function
	siteBase  int
	file      string
}

// Option configures an Engine.
type Option func(*engineSetup)

type engineSetup struct {
	file     string
	resolver modules.Resolver
}

// WithFile sets the source file name for tracebacks.
func WithFile(name string) Option {
	return func(s *engineSetup) { s.file = name }
}

// WithResolver overrides the module resolver. The default is the
// engine's own registry of built-in modules.
func WithResolver(r modules.Resolver) Option {
	return func(s *engineSetup) { s.resolver = r }
}

// New creates an engine writing program output to out.
func New(out io.Writer, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:       cfg,
		out:       out,
		profiler:  profile.New(),
		caches:    ic.NewManager(0),
		registry:  modules.NewRegistry(),
		functions: make(map[*runtime.Function]*jit.Function),
	}

	setup := engineSetup{}
	for _, opt := range opts {
		opt(&setup)
	}
	resolver := setup.resolver
	if resolver == nil {
		resolver = e.registry
	}
	e.file = setup.file

	e.interp = interp.New(out,
		interp.WithCoordinator(e),
		interp.WithResolver(resolver),
		interp.WithFile(setup.file),
		interp.WithMaxStackDepth(cfg.MaxStackDepth),
		interp.WithMaxMatchDepth(cfg.MaxMatchDepth),
		interp.WithStrictMatch(cfg.StrictMatch),
	)
	e.vm = bytecode.NewVM(out, e.interp.CallValue)
	return e
}

// Modules returns the engine's module registry for embedders to
// register native modules into.
func (e *Engine) Modules() *modules.Registry { return e.registry }

// Execute parses and runs one source unit. The REPL calls it
// repeatedly against the same engine; state accumulates in the global
// environment.
func (e *Engine) Execute(source string) (runtime.Value, error) {
	l := lexer.New(source)
	p := parser.New(l)
	p.SetSiteBase(e.siteBase)
	program := p.ParseProgram()

	if p.HadError() {
		parseErrs := p.Errors()
		rendered := make([]*rerrors.SourceError, len(parseErrs))
		for idx, pe := range parseErrs {
			rendered[idx] = rerrors.NewSourceError(pe.Pos, pe.Message, source, e.fileName())
		}
		return nil, &ParseFailure{
			Errors:   parseErrs,
			Rendered: rerrors.FormatErrors(rendered, true),
		}
	}

	e.siteBase = p.SiteCount()
	e.caches.Grow(e.siteBase)

	val, exc := e.interp.Interpret(program)
	if exc != nil {
		return nil, &ScriptFailure{Exc: exc}
	}

	// Poll time-based hot spots between top-level units, where the
	// overhead is invisible to tight loops.
	e.pollHotSpots()
	return val, nil
}

func (e *Engine) fileName() string { return e.file }

// ----------------------------------------------------------------------------
// interp.Coordinator implementation
// ----------------------------------------------------------------------------

// RecordSite feeds the inline cache for a dispatch site.
func (e *Engine) RecordSite(site ast.SiteID, kind runtime.Kind, method string, target runtime.Value) {
	s := e.caches.Site(site)
	if s == nil {
		return
	}
	if method != "" && s.MethodName == "" {
		s.MethodName = method
	}
	key := ic.KeyFor(kind)
	if _, hit := s.Lookup(key); !hit {
		s.Update(key, target)
	}
}

// TryCompiled serves a call from a compiled tier when one is ready.
func (e *Engine) TryCompiled(fn *runtime.Function, args []runtime.Value) (runtime.Value, *runtime.Exception, bool) {
	e.mu.Lock()
	jf := e.functions[fn]
	if jf == nil {
		jf = &jit.Function{Name: functionName(fn), Tier: jit.TierInterp}
		for _, param := range fn.Parameters {
			jf.ParamNames = append(jf.ParamNames, param.Name.Value)
		}
		e.functions[fn] = jf
	}
	jf.ExecCount++
	e.mu.Unlock()

	if !e.cfg.JITEnabled || jf.Tier == jit.TierInterp || jf.Chunk == nil {
		return nil, nil, false
	}

	// Native first: guards validate the observed type shape; a
	// mismatch or a side exit deoptimizes back to the tree-walk.
	if e.cfg.NativeEnabled && jf.Native != nil {
		if jf.CheckGuards(args) {
			if result, ok := jit.CallNative(jf, args); ok {
				return result, nil, true
			}
		}
		e.deoptimize(jf)
		return nil, nil, false
	}

	// Baseline/Optimized: run the chunk on the IR interpreter.
	frame := runtime.NewEnclosedEnvironment(fn.Env)
	for idx, param := range fn.Parameters {
		if idx < len(args) {
			frame.Define(param.Name.Value, args[idx], false)
		}
	}
	result, exc := e.vm.Run(jf.Chunk, frame)
	return result, exc, true
}

// EnterFunction brackets a tree-walk execution for profiling.
func (e *Engine) EnterFunction(fn *runtime.Function) {
	e.profiler.Enter(functionName(fn))
}

// ExitFunction finishes profiling and promotes newly hot functions.
func (e *Engine) ExitFunction(fn *runtime.Function) {
	name := functionName(fn)
	e.profiler.Exit(name)

	if !e.cfg.JITEnabled {
		return
	}
	e.mu.Lock()
	jf := e.functions[fn]
	e.mu.Unlock()
	if jf == nil || jf.Tier != jit.TierInterp || jf.Uncompilable {
		return
	}
	if jf.ExecCount >= e.cfg.HotThreshold {
		e.compile(fn, jf)
	}
}

// ----------------------------------------------------------------------------
// Compilation pipeline
// ----------------------------------------------------------------------------

// compile synchronously lowers a hot function: IR emission, the
// optimization passes, then native emission where the backend
// supports the chunk. Compilation is serialized per function.
func (e *Engine) compile(fn *runtime.Function, jf *jit.Function) {
	jf.Lock()
	defer jf.Unlock()
	if jf.Tier != jit.TierInterp {
		return
	}

	chunk, err := bytecode.Compile(fn)
	if err != nil {
		if errors.Is(err, bytecode.ErrUnsupported) {
			jf.Uncompilable = true
		}
		return
	}

	jf.Chunk = chunk
	jf.Tier = jit.TierBaseline

	bytecode.Optimize(chunk)
	jf.Tier = jit.TierOptimized

	if !e.cfg.NativeEnabled || !jit.NativeSupported {
		return
	}
	native, err := jit.EmitNative(chunk, jf.ParamNames)
	if err != nil {
		return
	}
	jf.Native = native
	jf.NativeSize = native.Size()
	// Native code specializes every parameter to the numeric shape
	// the emitter assumes; the guards encode that.
	jf.Guards = jf.Guards[:0]
	for idx := range jf.ParamNames {
		jf.Guards = append(jf.Guards, jit.Guard{Param: idx, Kind: runtime.NumberKind})
	}
}

// deoptimize reverts a function to the tree-walk after a guard
// failure and invalidates the stale inline caches. The function can
// become hot and recompile later.
func (e *Engine) deoptimize(jf *jit.Function) {
	jf.Lock()
	defer jf.Unlock()
	jf.ReleaseNative()
	jf.Chunk = nil
	jf.Tier = jit.TierInterp
	jf.ExecCount = 0
	e.caches.InvalidateAll()
}

// pollHotSpots runs the time-based hot-spot check. Functions already
// counted hot are compiled on return; this catches long-running
// functions with few calls.
func (e *Engine) pollHotSpots() {
	if !e.cfg.JITEnabled {
		return
	}
	hot := e.profiler.HotSpots(e.cfg.HotFrac, e.cfg.HotCallMin)
	if len(hot) == 0 {
		return
	}
	hotNames := make(map[string]bool, len(hot))
	for _, fs := range hot {
		hotNames[fs.Name] = true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for fn, jf := range e.functions {
		if jf.Tier == jit.TierInterp && !jf.Uncompilable && hotNames[jf.Name] {
			e.compile(fn, jf)
		}
	}
}

// ----------------------------------------------------------------------------
// Metrics
// ----------------------------------------------------------------------------

// FunctionStats is the per-function slice of Stats.
type FunctionStats struct {
	Name       string
	Tier       jit.Tier
	ExecCount  uint64
	NativeSize int
}

// Stats is the engine's observable metric surface: per-function tier
// and counters plus the inline-cache states.
type Stats struct {
	Functions []FunctionStats
	Sites     []ic.Stats
	Profile   []*profile.FunctionStats
}

// Stats snapshots the engine's metrics.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := Stats{Sites: e.caches.Snapshot(), Profile: e.profiler.Snapshot()}
	for _, jf := range e.functions {
		out.Functions = append(out.Functions, FunctionStats{
			Name:       jf.Name,
			Tier:       jf.Tier,
			ExecCount:  jf.ExecCount,
			NativeSize: jf.NativeSize,
		})
	}
	return out
}

// DisassembleAll renders the IR of every function the JIT compiled,
// for the CLI's --dump-ir flag.
func (e *Engine) DisassembleAll() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var sb strings.Builder
	for _, jf := range e.functions {
		if jf.Chunk != nil {
			sb.WriteString(bytecode.Disassemble(jf.Chunk))
		}
	}
	return sb.String()
}

// TierOf reports the current tier of a named function, for tests and
// the CLI's stats output.
func (e *Engine) TierOf(name string) jit.Tier {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, jf := range e.functions {
		if jf.Name == name {
			return jf.Tier
		}
	}
	return jit.TierInterp
}

func functionName(fn *runtime.Function) string {
	if fn.Name != "" {
		return fn.Name
	}
	return "<anonymous>"
}
