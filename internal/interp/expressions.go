package interp

import (
	"math"

	"github.com/piratebomber/go-rubolt/internal/ast"
	"github.com/piratebomber/go-rubolt/internal/lexer"
	"github.com/piratebomber/go-rubolt/internal/runtime"
)

// evalExpr evaluates an expression in env. A failed evaluation
// returns a script exception with position attached.
func (i *Interpreter) evalExpr(env *runtime.Environment, expr ast.Expression) (runtime.Value, *runtime.Exception) {
	switch e := expr.(type) {
	case *ast.NumberLiteral:
		return runtime.NewNumber(e.Value), nil
	case *ast.StringLiteral:
		return runtime.NewString(e.Value), nil
	case *ast.BooleanLiteral:
		return runtime.BoolOf(e.Value), nil
	case *ast.NullLiteral:
		return runtime.TheNull, nil
	case *ast.Identifier:
		return i.evalIdentifier(env, e)
	case *ast.GroupedExpression:
		return i.evalExpr(env, e.Expression)
	case *ast.UnaryExpression:
		return i.evalUnary(env, e)
	case *ast.BinaryExpression:
		return i.evalBinary(env, e)
	case *ast.AssignExpression:
		return i.evalAssign(env, e)
	case *ast.CallExpression:
		return i.evalCall(env, e)
	case *ast.IndexExpression:
		return i.evalIndex(env, e)
	case *ast.MemberExpression:
		return i.evalMember(env, e)
	case *ast.ListLiteral:
		return i.evalListLiteral(env, e)
	case *ast.TupleLiteral:
		return i.evalTupleLiteral(env, e)
	case *ast.DictLiteral:
		return i.evalDictLiteral(env, e)
	case *ast.FunctionLiteral:
		return &runtime.Function{Parameters: e.Parameters, Body: e.Body, Env: env}, nil
	case *ast.MatchExpression:
		return i.evalMatch(env, e)
	default:
		return nil, i.throwAt(expr.Pos(),
			runtime.NewExceptionf(runtime.RuntimeError, "cannot evaluate %T", expr))
	}
}

func (i *Interpreter) evalIdentifier(env *runtime.Environment, e *ast.Identifier) (runtime.Value, *runtime.Exception) {
	if val, ok := env.Get(e.Value); ok {
		return val, nil
	}
	return nil, i.throwAt(e.Pos(),
		runtime.NewException(runtime.NameError, "undefined variable '"+e.Value+"'"))
}

func (i *Interpreter) evalUnary(env *runtime.Environment, e *ast.UnaryExpression) (runtime.Value, *runtime.Exception) {
	right, exc := i.evalExpr(env, e.Right)
	if exc != nil {
		return nil, exc
	}

	switch e.Operator {
	case "-":
		num, ok := right.(*runtime.Number)
		if !ok {
			return nil, i.throwAt(e.Pos(), typeErrorf("unary '-' requires a number, got %s", kindName(right)))
		}
		return runtime.NewNumber(-num.Value), nil
	case "!", "not":
		return runtime.BoolOf(!runtime.IsTruthy(right)), nil
	default:
		return nil, i.throwAt(e.Pos(), typeErrorf("unknown unary operator %q", e.Operator))
	}
}

func (i *Interpreter) evalBinary(env *runtime.Environment, e *ast.BinaryExpression) (runtime.Value, *runtime.Exception) {
	// Short-circuit operators evaluate the right side only when needed.
	switch e.Operator {
	case "and", "&&":
		left, exc := i.evalExpr(env, e.Left)
		if exc != nil {
			return nil, exc
		}
		if !runtime.IsTruthy(left) {
			return left, nil
		}
		return i.evalExpr(env, e.Right)
	case "or", "||":
		left, exc := i.evalExpr(env, e.Left)
		if exc != nil {
			return nil, exc
		}
		if runtime.IsTruthy(left) {
			return left, nil
		}
		return i.evalExpr(env, e.Right)
	}

	left, exc := i.evalExpr(env, e.Left)
	if exc != nil {
		return nil, exc
	}
	right, exc := i.evalExpr(env, e.Right)
	if exc != nil {
		return nil, exc
	}

	val, bexc := binaryOp(e.Operator, left, right)
	if bexc != nil {
		return nil, i.throwAt(e.Pos(), bexc)
	}
	return val, nil
}

// binaryOp applies a non-short-circuit binary operator to two values.
// The bytecode VM has its own implementation (vmBinary) and does not
// call this one.
func binaryOp(op string, left, right runtime.Value) (runtime.Value, *runtime.Exception) {
	switch op {
	case "+":
		if ls, ok := left.(*runtime.String); ok {
			if rs, ok := right.(*runtime.String); ok {
				return runtime.NewString(ls.Value + rs.Value), nil
			}
			return nil, typeErrorf("cannot add string and %s", kindName(right))
		}
		if ln, ok := left.(*runtime.Number); ok {
			if rn, ok := right.(*runtime.Number); ok {
				return runtime.NewNumber(ln.Value + rn.Value), nil
			}
			return nil, typeErrorf("cannot add number and %s", kindName(right))
		}
		return nil, typeErrorf("operator '+' requires numbers or strings, got %s", kindName(left))
	case "-", "*", "/", "%":
		ln, lok := left.(*runtime.Number)
		rn, rok := right.(*runtime.Number)
		if !lok || !rok {
			bad := left
			if lok {
				bad = right
			}
			return nil, typeErrorf("operator %q requires numbers, got %s", op, kindName(bad))
		}
		switch op {
		case "-":
			return runtime.NewNumber(ln.Value - rn.Value), nil
		case "*":
			return runtime.NewNumber(ln.Value * rn.Value), nil
		case "/":
			if rn.Value == 0 {
				return nil, runtime.NewException(runtime.DivisionByZeroError, "division by zero")
			}
			return runtime.NewNumber(ln.Value / rn.Value), nil
		case "%":
			if rn.Value == 0 {
				return nil, runtime.NewException(runtime.DivisionByZeroError, "modulo by zero")
			}
			return runtime.NewNumber(math.Mod(ln.Value, rn.Value)), nil
		}
	case "<", "<=", ">", ">=":
		ln, lok := left.(*runtime.Number)
		rn, rok := right.(*runtime.Number)
		if !lok || !rok {
			bad := left
			if lok {
				bad = right
			}
			return nil, typeErrorf("operator %q requires numbers, got %s", op, kindName(bad))
		}
		switch op {
		case "<":
			return runtime.BoolOf(ln.Value < rn.Value), nil
		case "<=":
			return runtime.BoolOf(ln.Value <= rn.Value), nil
		case ">":
			return runtime.BoolOf(ln.Value > rn.Value), nil
		case ">=":
			return runtime.BoolOf(ln.Value >= rn.Value), nil
		}
	case "==":
		return runtime.BoolOf(runtime.Equal(left, right)), nil
	case "!=":
		return runtime.BoolOf(!runtime.Equal(left, right)), nil
	}
	return nil, typeErrorf("unknown operator %q", op)
}

func (i *Interpreter) evalAssign(env *runtime.Environment, e *ast.AssignExpression) (runtime.Value, *runtime.Exception) {
	value, exc := i.evalExpr(env, e.Value)
	if exc != nil {
		return nil, exc
	}

	switch target := e.Target.(type) {
	case *ast.Identifier:
		if aexc := env.Assign(target.Value, value); aexc != nil {
			return nil, i.throwAt(e.Pos(), aexc)
		}
		return value, nil

	case *ast.IndexExpression:
		container, cexc := i.evalExpr(env, target.Target)
		if cexc != nil {
			return nil, cexc
		}
		index, iexc := i.evalExpr(env, target.Index)
		if iexc != nil {
			return nil, iexc
		}
		if sexc := setIndex(container, index, value); sexc != nil {
			return nil, i.throwAt(target.Pos(), sexc)
		}
		return value, nil

	case *ast.MemberExpression:
		container, cexc := i.evalExpr(env, target.Target)
		if cexc != nil {
			return nil, cexc
		}
		switch c := container.(type) {
		case *runtime.Dict:
			c.Set(target.Member, value)
			return value, nil
		case *runtime.Object:
			c.SetMember(target.Member, value)
			return value, nil
		default:
			return nil, i.throwAt(target.Pos(),
				typeErrorf("cannot set member %q on %s", target.Member, kindName(container)))
		}

	default:
		return nil, i.throwAt(e.Pos(), typeErrorf("invalid assignment target"))
	}
}

// setIndex stores value at container[index].
func setIndex(container, index, value runtime.Value) *runtime.Exception {
	switch c := container.(type) {
	case *runtime.List:
		idx, exc := asIndex(index, len(c.Elements))
		if exc != nil {
			return exc
		}
		c.Elements[idx] = value
		return nil
	case *runtime.Array:
		idx, exc := asIndex(index, len(c.Elements))
		if exc != nil {
			return exc
		}
		c.Elements[idx] = value
		return nil
	case *runtime.Dict:
		key, ok := index.(*runtime.String)
		if !ok {
			return typeErrorf("dict keys must be strings, got %s", kindName(index))
		}
		c.Set(key.Value, value)
		return nil
	case *runtime.Null:
		return runtime.NewException(runtime.NullError, "cannot index null")
	default:
		return typeErrorf("%s does not support index assignment", kindName(container))
	}
}

// asIndex converts a value to a valid integer index for a sequence of
// the given length.
func asIndex(index runtime.Value, length int) (int, *runtime.Exception) {
	num, ok := index.(*runtime.Number)
	if !ok {
		return 0, typeErrorf("index must be a number, got %s", kindName(index))
	}
	idx := int(num.Value)
	if float64(idx) != num.Value {
		return 0, runtime.NewExceptionf(runtime.IndexError, "index %s is not an integer", num.String())
	}
	if idx < 0 || idx >= length {
		return 0, runtime.NewExceptionf(runtime.IndexError, "index %d out of bounds for length %d", idx, length)
	}
	return idx, nil
}

func (i *Interpreter) evalIndex(env *runtime.Environment, e *ast.IndexExpression) (runtime.Value, *runtime.Exception) {
	container, exc := i.evalExpr(env, e.Target)
	if exc != nil {
		return nil, exc
	}
	index, exc := i.evalExpr(env, e.Index)
	if exc != nil {
		return nil, exc
	}

	val, gexc := getIndex(container, index)
	if gexc != nil {
		return nil, i.throwAt(e.Pos(), gexc)
	}
	if i.coord != nil {
		i.coord.RecordSite(e.Site, container.Kind(), "", val)
	}
	return val, nil
}

// getIndex reads container[index].
func getIndex(container, index runtime.Value) (runtime.Value, *runtime.Exception) {
	switch c := container.(type) {
	case *runtime.List:
		idx, exc := asIndex(index, len(c.Elements))
		if exc != nil {
			return nil, exc
		}
		return c.Elements[idx], nil
	case *runtime.Tuple:
		idx, exc := asIndex(index, len(c.Elements))
		if exc != nil {
			return nil, exc
		}
		return c.Elements[idx], nil
	case *runtime.Array:
		idx, exc := asIndex(index, len(c.Elements))
		if exc != nil {
			return nil, exc
		}
		return c.Elements[idx], nil
	case *runtime.String:
		runes := []rune(c.Value)
		idx, exc := asIndex(index, len(runes))
		if exc != nil {
			return nil, exc
		}
		return runtime.NewString(string(runes[idx])), nil
	case *runtime.Dict:
		key, ok := index.(*runtime.String)
		if !ok {
			return nil, typeErrorf("dict keys must be strings, got %s", kindName(index))
		}
		val, found := c.Get(key.Value)
		if !found {
			return nil, runtime.NewExceptionf(runtime.KeyError, "key %q not found", key.Value)
		}
		return val, nil
	case *runtime.Range:
		idx, exc := asIndex(index, c.Len())
		if exc != nil {
			return nil, exc
		}
		return runtime.NewNumber(c.At(idx)), nil
	case *runtime.Null:
		return nil, runtime.NewException(runtime.NullError, "cannot index null")
	default:
		return nil, typeErrorf("%s is not indexable", kindName(container))
	}
}

func (i *Interpreter) evalMember(env *runtime.Environment, e *ast.MemberExpression) (runtime.Value, *runtime.Exception) {
	container, exc := i.evalExpr(env, e.Target)
	if exc != nil {
		return nil, exc
	}

	val, mexc := getMember(container, e.Member)
	if mexc != nil {
		return nil, i.throwAt(e.Pos(), mexc)
	}
	if i.coord != nil {
		i.coord.RecordSite(e.Site, container.Kind(), e.Member, val)
	}
	return val, nil
}

// getMember reads container.name.
func getMember(container runtime.Value, name string) (runtime.Value, *runtime.Exception) {
	switch c := container.(type) {
	case *runtime.Dict:
		val, found := c.Get(name)
		if !found {
			return nil, runtime.NewExceptionf(runtime.AttributeError, "dict has no member %q", name)
		}
		return val, nil
	case *runtime.Object:
		val, found := c.GetMember(name)
		if !found {
			return nil, runtime.NewExceptionf(runtime.AttributeError,
				"%s has no member %q", c.String(), name)
		}
		return val, nil
	case *runtime.Exception:
		val, found := c.Member(name)
		if !found {
			return nil, runtime.NewExceptionf(runtime.AttributeError, "exception has no member %q", name)
		}
		return val, nil
	case *runtime.Null:
		return nil, runtime.NewExceptionf(runtime.NullError, "cannot access member %q of null", name)
	default:
		return nil, runtime.NewExceptionf(runtime.AttributeError,
			"%s has no member %q", kindName(container), name)
	}
}

func (i *Interpreter) evalListLiteral(env *runtime.Environment, e *ast.ListLiteral) (runtime.Value, *runtime.Exception) {
	elements := make([]runtime.Value, 0, len(e.Elements))
	for _, el := range e.Elements {
		val, exc := i.evalExpr(env, el)
		if exc != nil {
			return nil, exc
		}
		elements = append(elements, val)
	}
	return runtime.NewList(elements), nil
}

func (i *Interpreter) evalTupleLiteral(env *runtime.Environment, e *ast.TupleLiteral) (runtime.Value, *runtime.Exception) {
	elements := make([]runtime.Value, 0, len(e.Elements))
	for _, el := range e.Elements {
		val, exc := i.evalExpr(env, el)
		if exc != nil {
			return nil, exc
		}
		elements = append(elements, val)
	}
	return runtime.NewTuple(elements), nil
}

func (i *Interpreter) evalDictLiteral(env *runtime.Environment, e *ast.DictLiteral) (runtime.Value, *runtime.Exception) {
	dict := runtime.NewDict()
	for _, entry := range e.Entries {
		val, exc := i.evalExpr(env, entry.Value)
		if exc != nil {
			return nil, exc
		}
		dict.Set(entry.Key, val)
	}
	return dict, nil
}

// evalCall evaluates a call expression: resolves the callee, checks
// arity, records the dispatch at the call site and executes either a
// compiled tier or the tree-walk body.
func (i *Interpreter) evalCall(env *runtime.Environment, e *ast.CallExpression) (runtime.Value, *runtime.Exception) {
	callee, exc := i.evalExpr(env, e.Callee)
	if exc != nil {
		return nil, exc
	}

	args := make([]runtime.Value, 0, len(e.Arguments))
	for _, a := range e.Arguments {
		val, aexc := i.evalExpr(env, a)
		if aexc != nil {
			return nil, aexc
		}
		args = append(args, val)
	}

	if i.coord != nil {
		i.coord.RecordSite(e.Site, callee.Kind(), "", callee)
	}

	switch fn := callee.(type) {
	case *runtime.Builtin:
		val, bexc := fn.Fn(args)
		if bexc != nil {
			return nil, i.throwAt(e.Pos(), bexc)
		}
		return val, nil
	case *runtime.Function:
		return i.callFunction(fn, args, e.Pos())
	case *runtime.Null:
		return nil, i.throwAt(e.Pos(),
			runtime.NewException(runtime.NullError, "cannot call null"))
	default:
		return nil, i.throwAt(e.Pos(), typeErrorf("%s is not callable", kindName(callee)))
	}
}

// CallValue invokes any callable value with positional arguments.
// The engine routes OpCall dispatches from the IR tier through here
// so compiled code keeps full language semantics.
func (i *Interpreter) CallValue(callee runtime.Value, args []runtime.Value) (runtime.Value, *runtime.Exception) {
	switch fn := callee.(type) {
	case *runtime.Builtin:
		return fn.Fn(args)
	case *runtime.Function:
		return i.callFunction(fn, args, lexer.Position{})
	case *runtime.Null:
		return nil, runtime.NewException(runtime.NullError, "cannot call null")
	default:
		return nil, typeErrorf("%s is not callable", kindName(callee))
	}
}

// callFunction invokes a user function with positional arguments.
func (i *Interpreter) callFunction(fn *runtime.Function, args []runtime.Value, pos lexer.Position) (runtime.Value, *runtime.Exception) {
	if len(args) != fn.Arity() {
		name := fn.Name
		if name == "" {
			name = "<anonymous>"
		}
		return nil, i.throwAt(pos, typeErrorf(
			"function '%s' expects %d argument(s), got %d", name, fn.Arity(), len(args)))
	}

	if exc := i.callStack.Push(displayName(fn), i.file, pos); exc != nil {
		return nil, i.throwAt(pos, exc)
	}
	defer i.callStack.Pop()

	// The coordinator may serve the call from a compiled tier.
	if i.coord != nil {
		if result, exc, handled := i.coord.TryCompiled(fn, args); handled {
			if exc != nil {
				return nil, i.throwAt(pos, exc)
			}
			return result, nil
		}
		i.coord.EnterFunction(fn)
		defer i.coord.ExitFunction(fn)
	}

	frame := runtime.NewEnclosedEnvironment(fn.Env)
	for idx, param := range fn.Parameters {
		frame.Define(param.Name.Value, args[idx], false)
	}

	prevFn := i.currentFn
	i.currentFn = displayName(fn)
	defer func() { i.currentFn = prevFn }()

	_, sig, exc := i.execBlock(frame, fn.Body)
	if exc != nil {
		return nil, exc
	}
	switch sig {
	case sigReturn:
		return i.returnValue, nil
	case sigBreak, sigContinue:
		// A break/continue that escaped every loop in the body.
		return nil, i.throwAt(pos, i.straySignalError(sig))
	}
	return runtime.TheNull, nil
}

func displayName(fn *runtime.Function) string {
	if fn.Name != "" {
		return fn.Name
	}
	return "<anonymous>"
}
