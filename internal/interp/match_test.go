package interp

import (
	"testing"

	"github.com/piratebomber/go-rubolt/internal/runtime"
)

func TestMatchLiterals(t *testing.T) {
	got := runOK(t, `
def describe(v) {
    return match v {
        case 0 => "zero"
        case 1 => "one"
        case "hi" => "greeting"
        case true => "yes"
        case null => "nothing"
        case _ => "other"
    }
}
print(describe(0))
print(describe(1))
print(describe("hi"))
print(describe(true))
print(describe(null))
print(describe(99))
`)
	if got != "zero\none\ngreeting\nyes\nnothing\nother\n" {
		t.Fatalf("got %q", got)
	}
}

func TestMatchFirstArmWins(t *testing.T) {
	got := runOK(t, `
print(match 5 {
    case number x => "first"
    case 5 => "second"
})
`)
	if got != "first\n" {
		t.Fatalf("got %q", got)
	}
}

func TestMatchIdentifierBindsSubject(t *testing.T) {
	// Property: for any value v, pattern x succeeds and binds x = v.
	got := runOK(t, `
print(match 42 { case x => x })
print(match "s" { case x => x })
print(match [1, 2] { case x => x })
`)
	if got != "42\ns\n[1, 2]\n" {
		t.Fatalf("got %q", got)
	}
}

func TestMatchGuards(t *testing.T) {
	got := runOK(t, `
def sign(n) {
    return match n {
        case x if x > 0 => "pos"
        case x if x < 0 => "neg"
        case _ => "zero"
    }
}
print(sign(3))
print(sign(-3))
print(sign(0))
`)
	if got != "pos\nneg\nzero\n" {
		t.Fatalf("got %q", got)
	}
}

func TestMatchListPatterns(t *testing.T) {
	got := runOK(t, `
def shape(l) {
    return match l {
        case [] => "empty"
        case [x] => "one"
        case [x, y] => x + y
        case [first, ...rest] => rest
    }
}
print(shape([]))
print(shape([5]))
print(shape([3, 4]))
print(shape([1, 2, 3, 4]))
`)
	if got != "empty\none\n7\n[2, 3, 4]\n" {
		t.Fatalf("got %q", got)
	}
}

func TestMatchTuplePattern(t *testing.T) {
	got := runOK(t, `
let point = (3, 4)
print(match point {
    case (0, 0) => "origin"
    case (x, y) => x * x + y * y
})
`)
	if got != "25\n" {
		t.Fatalf("got %q", got)
	}
}

func TestMatchObjectPatterns(t *testing.T) {
	got := runOK(t, `
let user = { name: "ada", role: "admin" }
print(match user {
    case { name: n, role: "admin" } => n + "!"
    case { name: n } => n
})
print(match { a: 1, b: 2, c: 3 } {
    case { a: x, ...rest } => rest
})
`)
	if got != "ada!\n{b: 2, c: 3}\n" {
		t.Fatalf("got %q", got)
	}
}

func TestMatchTypePatterns(t *testing.T) {
	got := runOK(t, `
def kindOf(v) {
    return match v {
        case number n => "num"
        case string s => "str"
        case list l => "list"
        case _ => "other"
    }
}
print(kindOf(1))
print(kindOf("x"))
print(kindOf([1]))
print(kindOf(true))
`)
	if got != "num\nstr\nlist\nother\n" {
		t.Fatalf("got %q", got)
	}
}

func TestMatchBindingsScopedToArm(t *testing.T) {
	// Tentative bindings from failed arms must not leak.
	_, exc := run(t, `
match [1, 2] {
    case [a, b, c] => a
    case _ => 0
}
print(a)
`)
	if exc == nil || exc.ErrKind != runtime.NameError {
		t.Fatalf("expected NameError for leaked binding, got %v", exc)
	}
}

func TestMatchNoArmYieldsNull(t *testing.T) {
	got := runOK(t, `print(match 1 { case 2 => "no" })`)
	if got != "null\n" {
		t.Fatalf("got %q", got)
	}
}

func TestMatchStrictMode(t *testing.T) {
	source := `
print(match { a: 1, b: 2 } {
    case { a: x } => "lenient"
    case _ => "strict"
})
`
	if got := runOK(t, source); got != "lenient\n" {
		t.Fatalf("default mode: got %q", got)
	}
	if got := runOK(t, source, WithStrictMatch(true)); got != "strict\n" {
		t.Fatalf("strict mode: got %q", got)
	}
}

func TestMatchDepthBound(t *testing.T) {
	// Nested lists deeper than the match bound raise at run time.
	source := `
let v = [[[[[1]]]]]
match v {
    case [[[[[x]]]]] => x
    case _ => 0
}
`
	if _, exc := run(t, source); exc != nil {
		t.Fatalf("depth 5 should fit the default bound: %v", exc)
	}
	_, exc := run(t, source, WithMaxMatchDepth(3))
	if exc == nil || exc.ErrKind != runtime.RuntimeError {
		t.Fatalf("expected depth-bound RuntimeError, got %v", exc)
	}
}

func TestMatchGuardSeesBindings(t *testing.T) {
	got := runOK(t, `
print(match [2, 3] {
    case [a, b] if a + b == 5 => "sum5"
    case _ => "other"
})
`)
	if got != "sum5\n" {
		t.Fatalf("got %q", got)
	}
}
