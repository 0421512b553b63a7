// Package modules defines the pluggable module-import interface.
//
// The core language delegates every import "spec" to a Resolver; the
// core itself never interprets file-system paths. Resolvers return
// either a built-in module or a native (dynamic-library) module, both
// surfaced to scripts as an object whose members are the exports.
package modules

import (
	"fmt"
	"sort"

	"github.com/piratebomber/go-rubolt/internal/runtime"
)

// Export is one named export of a native module, matching the
// RbExport C layout {name, fn}.
type Export struct {
	Name string
	Fn   runtime.BuiltinFn
}

// NativeModule is the interface dynamic-library modules implement.
// Modern modules provide GetExports; legacy modules are adapted by
// LegacyInit below.
type NativeModule interface {
	// Name returns the module's bind name.
	Name() string
	// GetExports returns the module's export table.
	GetExports() []Export
}

// Resolver resolves an import spec to a module. Implementations
// decide what the spec means (registry name, path, URL); the core
// only forwards the literal string.
type Resolver interface {
	// Resolve returns the module for spec, or an error when the spec
	// is unknown or the module fails to load.
	Resolve(spec string) (*Module, error)
}

// Module is a resolved module ready for binding into a scope.
type Module struct {
	Name    string
	Exports *runtime.Object
}

// FromNative builds a Module from a native module's export table.
func FromNative(nm NativeModule) *Module {
	obj := runtime.NewObject(nm.Name())
	for _, exp := range nm.GetExports() {
		obj.SetMember(exp.Name, &runtime.Builtin{Name: exp.Name, Fn: exp.Fn})
	}
	return &Module{Name: nm.Name(), Exports: obj}
}

// LegacyInit adapts a legacy init_<module>() initializer, which
// registers exports imperatively, to the NativeModule interface.
func LegacyInit(name string, init func(register func(name string, fn runtime.BuiltinFn))) NativeModule {
	lm := &legacyModule{name: name}
	init(func(exportName string, fn runtime.BuiltinFn) {
		lm.exports = append(lm.exports, Export{Name: exportName, Fn: fn})
	})
	return lm
}

type legacyModule struct {
	name    string
	exports []Export
}

func (lm *legacyModule) Name() string         { return lm.name }
func (lm *legacyModule) GetExports() []Export { return lm.exports }

// Registry is a Resolver backed by an in-process table of modules.
// The engine registers built-in modules here; embedders may add their
// own native modules.
type Registry struct {
	modules map[string]*Module
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]*Module)}
}

// Register adds a module under its name. Re-registering a name
// replaces the module; no inline-cache entry is invalidated by it.
func (r *Registry) Register(m *Module) {
	r.modules[m.Name] = m
}

// RegisterNative adds a native module by its export table.
func (r *Registry) RegisterNative(nm NativeModule) {
	r.Register(FromNative(nm))
}

// Resolve implements Resolver.
func (r *Registry) Resolve(spec string) (*Module, error) {
	if m, ok := r.modules[spec]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("unknown module %q (known: %v)", spec, r.names())
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
