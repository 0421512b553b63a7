package runtime

import (
	"strings"

	"github.com/piratebomber/go-rubolt/internal/ast"
)

// Function represents a user-defined function value. It carries the
// declaration AST and the closure environment it was created in.
// Multiple closures created in the same lexical region share that
// environment; the environment lives as long as its longest holder.
type Function struct {
	Name       string // empty for anonymous functions
	Parameters []*ast.Parameter
	Body       *ast.BlockStatement
	Env        *Environment
}

func (f *Function) Kind() Kind { return FunctionKind }
func (f *Function) String() string {
	params := make([]string, len(f.Parameters))
	for i, p := range f.Parameters {
		params[i] = p.Name.Value
	}
	name := f.Name
	if name == "" {
		name = "<anonymous>"
	}
	return "<function " + name + "(" + strings.Join(params, ", ") + ")>"
}

// Arity returns the number of declared parameters.
func (f *Function) Arity() int { return len(f.Parameters) }

// BuiltinFn is the Go signature of a built-in function. Builtins do
// not allocate a script call frame.
type BuiltinFn func(args []Value) (Value, *Exception)

// Builtin represents a built-in function value backed by a fixed
// dispatch.
type Builtin struct {
	Name string
	Fn   BuiltinFn
}

func (b *Builtin) Kind() Kind     { return BuiltinKind }
func (b *Builtin) String() string { return "<builtin " + b.Name + ">" }
