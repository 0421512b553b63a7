package modules

import (
	"testing"

	"github.com/piratebomber/go-rubolt/internal/runtime"
)

type fakeModule struct {
	name    string
	exports []Export
}

func (m *fakeModule) Name() string         { return m.name }
func (m *fakeModule) GetExports() []Export { return m.exports }

func noop(args []runtime.Value) (runtime.Value, *runtime.Exception) {
	return runtime.TheNull, nil
}

func TestFromNative(t *testing.T) {
	mod := FromNative(&fakeModule{
		name: "io",
		exports: []Export{
			{Name: "read", Fn: noop},
			{Name: "write", Fn: noop},
		},
	})

	if mod.Name != "io" {
		t.Errorf("name = %q", mod.Name)
	}
	for _, want := range []string{"read", "write"} {
		val, ok := mod.Exports.GetMember(want)
		if !ok {
			t.Errorf("export %q missing", want)
			continue
		}
		if _, isBuiltin := val.(*runtime.Builtin); !isBuiltin {
			t.Errorf("export %q is %T, want builtin", want, val)
		}
	}
}

func TestLegacyInit(t *testing.T) {
	nm := LegacyInit("legacy", func(register func(string, runtime.BuiltinFn)) {
		register("a", noop)
		register("b", noop)
	})
	if nm.Name() != "legacy" {
		t.Errorf("name = %q", nm.Name())
	}
	if len(nm.GetExports()) != 2 {
		t.Errorf("exports = %d, want 2", len(nm.GetExports()))
	}
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry()
	r.RegisterNative(&fakeModule{name: "m", exports: []Export{{Name: "f", Fn: noop}}})

	mod, err := r.Resolve("m")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if mod.Name != "m" {
		t.Errorf("name = %q", mod.Name)
	}

	if _, err := r.Resolve("missing"); err == nil {
		t.Error("expected error for unknown module")
	}
}

func TestRegistryRebind(t *testing.T) {
	r := NewRegistry()
	r.Register(&Module{Name: "m", Exports: runtime.NewObject("m")})

	replacement := runtime.NewObject("m")
	replacement.SetMember("new", runtime.True)
	r.Register(&Module{Name: "m", Exports: replacement})

	mod, err := r.Resolve("m")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if _, ok := mod.Exports.GetMember("new"); !ok {
		t.Error("re-registration did not replace the module")
	}
}
