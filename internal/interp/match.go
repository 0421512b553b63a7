package interp

import (
	"github.com/piratebomber/go-rubolt/internal/ast"
	"github.com/piratebomber/go-rubolt/internal/runtime"
)

// bindingTable accumulates tentative pattern bindings. Bindings are
// committed to a fresh arm scope only after the whole pattern
// succeeds; the guard runs in that scope, and a failed guard discards
// it, so a partially-matched arm leaves no trace.
type bindingTable struct {
	names  []string
	values []runtime.Value
}

func (bt *bindingTable) bind(name string, val runtime.Value) {
	bt.names = append(bt.names, name)
	bt.values = append(bt.values, val)
}

func (bt *bindingTable) commit(env *runtime.Environment) {
	for idx, name := range bt.names {
		env.Define(name, bt.values[idx], false)
	}
}

// evalMatch evaluates a match expression: arms are tried in order and
// the first arm whose pattern and guard both succeed supplies the
// result. A match with no succeeding arm evaluates to null.
func (i *Interpreter) evalMatch(env *runtime.Environment, e *ast.MatchExpression) (runtime.Value, *runtime.Exception) {
	subject, exc := i.evalExpr(env, e.Subject)
	if exc != nil {
		return nil, exc
	}

	for _, arm := range e.Arms {
		bindings := &bindingTable{}
		ok, mexc := i.matchPattern(arm.Pattern, subject, bindings, 0)
		if mexc != nil {
			return nil, i.throwAt(arm.Pattern.Pos(), mexc)
		}
		if !ok {
			continue
		}

		armScope := runtime.NewEnclosedEnvironment(env)
		bindings.commit(armScope)

		if arm.Guard != nil {
			guard, gexc := i.evalExpr(armScope, arm.Guard)
			if gexc != nil {
				return nil, gexc
			}
			if !runtime.IsTruthy(guard) {
				continue
			}
		}

		return i.evalExpr(armScope, arm.Body)
	}
	return runtime.TheNull, nil
}

// matchPattern matches a pattern against a subject value depth-first,
// recording tentative bindings. Matching is short-circuit: the first
// failing sub-pattern aborts the arm.
func (i *Interpreter) matchPattern(pat ast.Pattern, subject runtime.Value, bindings *bindingTable, depth int) (bool, *runtime.Exception) {
	if depth > i.maxMatchDepth {
		return false, runtime.NewExceptionf(runtime.RuntimeError,
			"pattern match exceeded maximum depth (%d)", i.maxMatchDepth)
	}

	switch p := pat.(type) {
	case *ast.WildcardPattern:
		return true, nil

	case *ast.IdentifierPattern:
		bindings.bind(p.Name, subject)
		return true, nil

	case *ast.LiteralPattern:
		lit, exc := i.evalExpr(i.globals, p.Value)
		if exc != nil {
			return false, exc
		}
		return runtime.Equal(lit, subject), nil

	case *ast.TypePattern:
		if subject.Kind().String() != p.TypeName {
			return false, nil
		}
		if p.Binding != "" {
			bindings.bind(p.Binding, subject)
		}
		return true, nil

	case *ast.TuplePattern:
		tup, ok := subject.(*runtime.Tuple)
		if !ok || len(tup.Elements) != len(p.Elements) {
			return false, nil
		}
		for idx, elemPat := range p.Elements {
			ok, exc := i.matchPattern(elemPat, tup.Elements[idx], bindings, depth+1)
			if exc != nil || !ok {
				return false, exc
			}
		}
		return true, nil

	case *ast.ListPattern:
		list, ok := subject.(*runtime.List)
		if !ok {
			return false, nil
		}
		if p.HasRest {
			if len(list.Elements) < len(p.Elements) {
				return false, nil
			}
		} else if len(list.Elements) != len(p.Elements) {
			return false, nil
		}
		for idx, elemPat := range p.Elements {
			ok, exc := i.matchPattern(elemPat, list.Elements[idx], bindings, depth+1)
			if exc != nil || !ok {
				return false, exc
			}
		}
		if p.HasRest && p.Rest != "" {
			rest := append([]runtime.Value(nil), list.Elements[len(p.Elements):]...)
			bindings.bind(p.Rest, runtime.NewList(rest))
		}
		return true, nil

	case *ast.ObjectPattern:
		dict, ok := subject.(*runtime.Dict)
		if !ok {
			return false, nil
		}
		matched := make(map[string]bool, len(p.Fields))
		for _, field := range p.Fields {
			val, found := dict.Get(field.Name)
			if !found {
				return false, nil
			}
			ok, exc := i.matchPattern(field.Pattern, val, bindings, depth+1)
			if exc != nil || !ok {
				return false, exc
			}
			matched[field.Name] = true
		}
		if !p.HasRest && i.strictMatch && dict.Len() != len(p.Fields) {
			// Strict mode rejects extra fields unless a rest element
			// accepts them.
			return false, nil
		}
		if p.HasRest && p.Rest != "" {
			rest := runtime.NewDict()
			for _, key := range dict.Keys() {
				if !matched[key] {
					val, _ := dict.Get(key)
					rest.Set(key, val)
				}
			}
			bindings.bind(p.Rest, rest)
		}
		return true, nil

	default:
		return false, runtime.NewExceptionf(runtime.RuntimeError, "unsupported pattern %T", pat)
	}
}
