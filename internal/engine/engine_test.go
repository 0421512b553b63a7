package engine

import (
	"bytes"
	"os"
	"testing"

	"github.com/piratebomber/go-rubolt/internal/ic"
	"github.com/piratebomber/go-rubolt/internal/jit"
	"github.com/piratebomber/go-rubolt/internal/modules"
	"github.com/piratebomber/go-rubolt/internal/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestEngine builds an engine with a low hot threshold so tiering
// kicks in inside small tests.
func newTestEngine(out *bytes.Buffer, mutate ...func(*Config)) *Engine {
	cfg := DefaultConfig()
	cfg.HotThreshold = 10
	cfg.HotCallMin = 5
	for _, m := range mutate {
		m(&cfg)
	}
	return New(out, cfg)
}

func TestExecuteSimpleProgram(t *testing.T) {
	var out bytes.Buffer
	eng := newTestEngine(&out)

	_, err := eng.Execute("let x = 1 + 2 * 3\nprint(x)")
	require.NoError(t, err)
	assert.Equal(t, "7\n", out.String())
}

func TestParseFailure(t *testing.T) {
	var out bytes.Buffer
	eng := newTestEngine(&out)

	_, err := eng.Execute("let = broken")
	var parseFail *ParseFailure
	require.ErrorAs(t, err, &parseFail)
	assert.NotEmpty(t, parseFail.Errors)
	assert.NotEmpty(t, parseFail.Rendered)
}

func TestScriptFailure(t *testing.T) {
	var out bytes.Buffer
	eng := newTestEngine(&out)

	_, err := eng.Execute("print(1 / 0)")
	var scriptFail *ScriptFailure
	require.ErrorAs(t, err, &scriptFail)
	assert.Equal(t, runtime.DivisionByZeroError, scriptFail.Exc.ErrKind)
}

func TestHotFunctionPromoted(t *testing.T) {
	var out bytes.Buffer
	eng := newTestEngine(&out)

	_, err := eng.Execute(`
def fact(n) {
    if (n < 2) return 1
    return n * fact(n - 1)
}
for (let i = 0; i < 1500; i = i + 1) {
    fact(5)
}
print(fact(5))
`)
	require.NoError(t, err)

	// The profiler must have promoted fact past the tree-walk, and
	// the result must be unchanged.
	lines := out.String()
	assert.Contains(t, lines, "120\n")
	tier := eng.TierOf("fact")
	assert.GreaterOrEqual(t, int(tier), int(jit.TierBaseline),
		"fact still on tier %s after 1500 calls", tier)
}

func TestJITEquivalence(t *testing.T) {
	// The same program must produce identical output with the JIT on
	// and off, across the hotness boundary.
	program := `
def compute(a, b) {
    let total = 0
    for (let i = 0; i < 10; i = i + 1) {
        total = total + a * i - b
    }
    return total
}
let sum = 0
for (let i = 0; i < 200; i = i + 1) {
    sum = sum + compute(i, 3)
}
print(sum)
`
	var jitOut, interpOut bytes.Buffer

	eng := newTestEngine(&jitOut)
	_, err := eng.Execute(program)
	require.NoError(t, err)
	require.GreaterOrEqual(t, int(eng.TierOf("compute")), int(jit.TierBaseline))

	plain := newTestEngine(&interpOut, func(c *Config) { c.JITEnabled = false })
	_, err = plain.Execute(program)
	require.NoError(t, err)

	assert.Equal(t, interpOut.String(), jitOut.String())
}

func TestNativeTierNumericKernel(t *testing.T) {
	if !jit.NativeSupported {
		t.Skip("no native backend on this architecture")
	}
	var out bytes.Buffer
	eng := newTestEngine(&out)

	_, err := eng.Execute(`
def mix(a, b) {
    return a * 2 + b * 8 - 1
}
let acc = 0
for (let i = 0; i < 100; i = i + 1) {
    acc = acc + mix(i, i)
}
print(acc)
print(mix(3, 4))
`)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "37\n")

	stats := eng.Stats()
	var mixStats *FunctionStats
	for idx := range stats.Functions {
		if stats.Functions[idx].Name == "mix" {
			mixStats = &stats.Functions[idx]
		}
	}
	require.NotNil(t, mixStats)
	assert.Equal(t, jit.TierOptimized, mixStats.Tier)
	assert.Greater(t, mixStats.NativeSize, 0, "numeric kernel should have native code")
}

func TestDeoptimizationOnGuardFailure(t *testing.T) {
	if !jit.NativeSupported {
		t.Skip("no native backend on this architecture")
	}
	var out bytes.Buffer
	eng := newTestEngine(&out)

	// double is compiled natively on numbers, then called with a
	// string-typed argument flow; the guard fails, the engine
	// deoptimizes and the tree-walk handles the call.
	_, err := eng.Execute(`
def double(x) {
    return x + x
}
for (let i = 0; i < 50; i = i + 1) {
    double(i)
}
print(double("ab"))
print(double(21))
`)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "abab\n")
	assert.Contains(t, out.String(), "42\n")
}

func TestBooleanReturnKeepsKindAcrossTiers(t *testing.T) {
	var out bytes.Buffer
	eng := newTestEngine(&out)

	// A hot predicate must keep returning Bool values (not 0/1
	// numbers) after promotion; the native backend refuses boolean
	// returns, so it runs on the IR tier.
	_, err := eng.Execute(`
def isneg(n) {
    return n < 0
}
for (let i = 0; i < 50; i = i + 1) {
    isneg(i)
}
print(isneg(1))
print(isneg(-1))
print(type(isneg(1)))
`)
	require.NoError(t, err)
	assert.Equal(t, "false\ntrue\nbool\n", out.String())

	stats := eng.Stats()
	for _, fs := range stats.Functions {
		if fs.Name == "isneg" {
			assert.Zero(t, fs.NativeSize, "boolean-returning function must not have native code")
		}
	}
}

func TestUncompilableFunctionStaysOnTreeWalk(t *testing.T) {
	var out bytes.Buffer
	eng := newTestEngine(&out)

	_, err := eng.Execute(`
def collect(n) {
    let items = []
    for (x in range(0, n)) {
        push(items, x)
    }
    return items
}
for (let i = 0; i < 50; i = i + 1) {
    collect(3)
}
print(collect(3))
`)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "[0, 1, 2]\n")
	assert.Equal(t, jit.TierInterp, eng.TierOf("collect"))
}

func TestInlineCachesPopulated(t *testing.T) {
	var out bytes.Buffer
	eng := newTestEngine(&out)

	_, err := eng.Execute(`
def f(x) { return x }
for (let i = 0; i < 20; i = i + 1) {
    f(i)
}
`)
	require.NoError(t, err)

	stats := eng.Stats()
	mono := 0
	for _, site := range stats.Sites {
		if site.State == ic.Mono {
			mono++
		}
	}
	assert.Greater(t, mono, 0, "repeated monomorphic calls should produce Mono sites")
}

func TestREPLStateAccumulates(t *testing.T) {
	var out bytes.Buffer
	eng := newTestEngine(&out)

	_, err := eng.Execute("let x = 40")
	require.NoError(t, err)
	val, err := eng.Execute("x + 2")
	require.NoError(t, err)
	assert.Equal(t, "42", val.String())

	// Site IDs from successive inputs must not collide.
	_, err = eng.Execute("def g(v) { return v }\ng(1)")
	require.NoError(t, err)
	_, err = eng.Execute("g(2)")
	require.NoError(t, err)
}

func TestModuleImport(t *testing.T) {
	var out bytes.Buffer
	eng := newTestEngine(&out)

	eng.Modules().RegisterNative(modules.LegacyInit("mathx",
		func(register func(string, runtime.BuiltinFn)) {
			register("twice", func(args []runtime.Value) (runtime.Value, *runtime.Exception) {
				n := args[0].(*runtime.Number)
				return runtime.NewNumber(n.Value * 2), nil
			})
		}))

	_, err := eng.Execute(`
import "mathx" as m
print(m.twice(21))
`)
	require.NoError(t, err)
	assert.Equal(t, "42\n", out.String())
}

func TestImportUnknownModule(t *testing.T) {
	var out bytes.Buffer
	eng := newTestEngine(&out)

	_, err := eng.Execute(`import "nope"`)
	var scriptFail *ScriptFailure
	require.ErrorAs(t, err, &scriptFail)
	assert.Equal(t, runtime.ImportError, scriptFail.Exc.ErrKind)
}

func TestProfilerStatsExposed(t *testing.T) {
	var out bytes.Buffer
	eng := newTestEngine(&out, func(c *Config) { c.JITEnabled = false })

	_, err := eng.Execute(`
def work(n) { return n * 2 }
for (let i = 0; i < 30; i = i + 1) { work(i) }
`)
	require.NoError(t, err)

	stats := eng.Stats()
	found := false
	for _, fs := range stats.Profile {
		if fs.Name == "work" {
			found = true
			assert.Equal(t, uint64(30), fs.CallCount)
		}
	}
	assert.True(t, found, "profiler should have per-function stats for work")
}

func TestConfigDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, uint64(1000), cfg.HotThreshold)
	assert.Equal(t, 0.05, cfg.HotFrac)
	assert.Equal(t, uint64(1000), cfg.HotCallMin)
	assert.False(t, cfg.StrictMatch)
	assert.True(t, cfg.JITEnabled)
}

func TestConfigFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/rubolt.yaml"
	content := "hot_threshold: 5\nstrict_match: true\njit: false\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), cfg.HotThreshold)
	assert.True(t, cfg.StrictMatch)
	assert.False(t, cfg.JITEnabled)
	// Untouched keys keep their defaults.
	assert.Equal(t, 1024, cfg.MaxStackDepth)
}

func TestConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/does/not/exist.yaml", nil)
	assert.Error(t, err)
}
