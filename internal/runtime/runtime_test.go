package runtime

import (
	"math"
	"testing"

	"github.com/piratebomber/go-rubolt/internal/lexer"
)

func TestTruthiness(t *testing.T) {
	tests := []struct {
		val  Value
		want bool
	}{
		{TheNull, false},
		{False, false},
		{True, true},
		{NewNumber(0), false},
		{NewNumber(1), true},
		{NewNumber(-0.5), true},
		{NewString(""), false},
		{NewString("x"), true},
		{NewList(nil), false},
		{NewList([]Value{True}), true},
		{NewDict(), false},
		{NewTuple(nil), false},
		{&Range{Start: 0, End: 0, Step: 1}, false},
		{&Range{Start: 0, End: 3, Step: 1}, true},
	}
	for _, tt := range tests {
		if got := IsTruthy(tt.val); got != tt.want {
			t.Errorf("IsTruthy(%s) = %v, want %v", tt.val.String(), got, tt.want)
		}
	}
}

func TestNumberFormatting(t *testing.T) {
	tests := []struct {
		val  float64
		want string
	}{
		{7, "7"},
		{3628800, "3628800"},
		{3.14, "3.14"},
		{-0.5, "-0.5"},
		{120, "120"},
		{1e21, "1e+21"},
	}
	for _, tt := range tests {
		if got := NewNumber(tt.val).String(); got != tt.want {
			t.Errorf("Number(%v).String() = %q, want %q", tt.val, got, tt.want)
		}
	}
}

func TestEqualPrimitives(t *testing.T) {
	tests := []struct {
		a, b Value
		want bool
	}{
		{NewNumber(1), NewNumber(1), true},
		{NewNumber(1), NewNumber(2), false},
		{NewNumber(math.NaN()), NewNumber(math.NaN()), false},
		{NewString("a"), NewString("a"), true},
		{NewString("a"), NewString("b"), false},
		{True, True, true},
		{True, False, false},
		{TheNull, &Null{}, true},
		{NewNumber(1), NewString("1"), false},
		{NewNumber(0), False, false},
	}
	for _, tt := range tests {
		if got := Equal(tt.a, tt.b); got != tt.want {
			t.Errorf("Equal(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestEqualCollections(t *testing.T) {
	a := NewList([]Value{NewNumber(1), NewString("x")})
	b := NewList([]Value{NewNumber(1), NewString("x")})
	c := NewList([]Value{NewNumber(1), NewString("y")})

	if !Equal(a, b) {
		t.Error("equal lists compared unequal")
	}
	if Equal(a, c) {
		t.Error("different lists compared equal")
	}

	d1 := NewDict()
	d1.Set("a", NewNumber(1))
	d1.Set("b", NewNumber(2))
	d2 := NewDict()
	d2.Set("b", NewNumber(2))
	d2.Set("a", NewNumber(1))
	if !Equal(d1, d2) {
		t.Error("dict equality must not depend on insertion order")
	}
}

func TestEqualCyclic(t *testing.T) {
	a := NewList([]Value{})
	a.Elements = append(a.Elements, a)
	b := NewList([]Value{})
	b.Elements = append(b.Elements, b)

	// The cycle guard must terminate and treat the structures as equal.
	if !Equal(a, b) {
		t.Error("cyclic self-lists compared unequal")
	}
}

func TestDictInsertionOrder(t *testing.T) {
	d := NewDict()
	d.Set("z", NewNumber(1))
	d.Set("a", NewNumber(2))
	d.Set("m", NewNumber(3))
	d.Set("z", NewNumber(4)) // update keeps position

	want := []string{"z", "a", "m"}
	got := d.Keys()
	if len(got) != len(want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keys = %v, want %v", got, want)
		}
	}

	d.Delete("a")
	if d.Len() != 2 || d.Keys()[1] != "m" {
		t.Errorf("after delete: keys = %v", d.Keys())
	}
}

func TestRange(t *testing.T) {
	tests := []struct {
		r    Range
		want []float64
	}{
		{Range{Start: 0, End: 0, Step: 1}, nil},
		{Range{Start: 0, End: 3, Step: 1}, []float64{0, 1, 2}},
		{Range{Start: 5, End: 0, Step: -1}, []float64{5, 4, 3, 2, 1}},
		{Range{Start: 0, End: 5, Step: 2}, []float64{0, 2, 4}},
	}
	for _, tt := range tests {
		if got := tt.r.Len(); got != len(tt.want) {
			t.Errorf("range %+v: Len() = %d, want %d", tt.r, got, len(tt.want))
			continue
		}
		for i, want := range tt.want {
			if got := tt.r.At(i); got != want {
				t.Errorf("range %+v: At(%d) = %v, want %v", tt.r, i, got, want)
			}
		}
	}
}

func TestEnvironmentScoping(t *testing.T) {
	global := NewEnvironment()
	global.Define("x", NewNumber(1), false)
	global.Define("k", NewNumber(9), true)

	inner := NewEnclosedEnvironment(global)
	inner.Define("y", NewNumber(2), false)

	// Lookup traverses parents.
	if v, ok := inner.Get("x"); !ok || v.(*Number).Value != 1 {
		t.Error("inner scope cannot see outer binding")
	}
	// Assignment writes the first frame that defines the name.
	if exc := inner.Assign("x", NewNumber(5)); exc != nil {
		t.Fatalf("assign failed: %v", exc)
	}
	if v, _ := global.Get("x"); v.(*Number).Value != 5 {
		t.Error("assignment did not reach the defining frame")
	}
	// Definition always writes the current frame.
	inner.Define("x", NewNumber(7), false)
	if v, _ := global.Get("x"); v.(*Number).Value != 5 {
		t.Error("shadowing definition leaked to the outer frame")
	}
	// Assigning an undefined name fails.
	if exc := inner.Assign("missing", TheNull); exc == nil || exc.ErrKind != NameError {
		t.Error("expected NameError for undefined assignment")
	}
	// Const rejects assignment.
	if exc := inner.Assign("k", TheNull); exc == nil || exc.ErrKind != TypeError {
		t.Error("expected TypeError for const assignment")
	}
}

func TestKindHierarchy(t *testing.T) {
	tests := []struct {
		kind, target ErrorKind
		want         bool
	}{
		{DivisionByZeroError, ArithmeticError, true},
		{DivisionByZeroError, RuntimeError, true},
		{FileNotFoundError, IOError, true},
		{NetworkError, IOError, true},
		{IndexError, RuntimeError, true},
		{IndexError, KeyError, false},
		{TypeError, ArithmeticError, false},
		{RuntimeError, RuntimeError, true},
		{IndexError, "*", true},
		{ErrorKind("CustomError"), "Exception", true},
		{ErrorKind("CustomError"), RuntimeError, false},
	}
	for _, tt := range tests {
		if got := KindIsA(tt.kind, tt.target); got != tt.want {
			t.Errorf("KindIsA(%s, %s) = %v, want %v", tt.kind, tt.target, got, tt.want)
		}
	}
}

func TestCallStackOverflow(t *testing.T) {
	cs := NewCallStack(3)
	for i := 0; i < 3; i++ {
		if exc := cs.Push("f", "", lexer.Position{}); exc != nil {
			t.Fatalf("push %d failed", i)
		}
	}
	if exc := cs.Push("f", "", lexer.Position{}); exc == nil || exc.ErrKind != MemoryError {
		t.Fatal("expected MemoryError on overflow")
	}
	cs.Pop()
	if cs.Depth() != 2 {
		t.Errorf("depth = %d, want 2", cs.Depth())
	}
}

func TestExceptionMembers(t *testing.T) {
	exc := NewException(IndexError, "index 5 out of bounds for length 2")
	if v, ok := exc.Member("type"); !ok || v.(*String).Value != "IndexError" {
		t.Error("e.type wrong")
	}
	if v, ok := exc.Member("message"); !ok || v.(*String).Value == "" {
		t.Error("e.message wrong")
	}
}
