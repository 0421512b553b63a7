package interp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/piratebomber/go-rubolt/internal/ast"
	"github.com/piratebomber/go-rubolt/internal/runtime"
)

// execStmt executes a statement in env. The returned value is non-nil
// only for expression statements (the REPL and Interpret use it); the
// signal reports pending return/break/continue; a non-nil exception is
// an in-flight throw.
func (i *Interpreter) execStmt(env *runtime.Environment, stmt ast.Statement) (runtime.Value, signal, *runtime.Exception) {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		val, exc := i.evalExpr(env, s.Expression)
		if exc != nil {
			return nil, sigNormal, exc
		}
		return val, sigNormal, nil

	case *ast.VarStatement:
		return nil, sigNormal, i.execVar(env, s)

	case *ast.FunctionStatement:
		fn := &runtime.Function{
			Name:       s.Name.Value,
			Parameters: s.Parameters,
			Body:       s.Body,
			Env:        env,
		}
		env.Define(s.Name.Value, fn, false)
		return nil, sigNormal, nil

	case *ast.ReturnStatement:
		if s.Value != nil {
			val, exc := i.evalExpr(env, s.Value)
			if exc != nil {
				return nil, sigNormal, exc
			}
			i.returnValue = val
		} else {
			i.returnValue = runtime.TheNull
		}
		return nil, sigReturn, nil

	case *ast.BlockStatement:
		scope := runtime.NewEnclosedEnvironment(env)
		_, sig, exc := i.execBlock(scope, s)
		return nil, sig, exc

	case *ast.IfStatement:
		return i.execIf(env, s)

	case *ast.WhileStatement:
		sig, exc := i.execWhile(env, s)
		return nil, sig, exc

	case *ast.DoWhileStatement:
		sig, exc := i.execDoWhile(env, s)
		return nil, sig, exc

	case *ast.ForStatement:
		sig, exc := i.execFor(env, s)
		return nil, sig, exc

	case *ast.ForInStatement:
		sig, exc := i.execForIn(env, s)
		return nil, sig, exc

	case *ast.LabeledStatement:
		return i.execStmt(env, s.Stmt)

	case *ast.BreakStatement:
		i.signalLabel = s.Label
		return nil, sigBreak, nil

	case *ast.ContinueStatement:
		i.signalLabel = s.Label
		return nil, sigContinue, nil

	case *ast.PrintStatement:
		val, exc := i.evalExpr(env, s.Value)
		if exc != nil {
			return nil, sigNormal, exc
		}
		fmt.Fprintln(i.out, val.String())
		return nil, sigNormal, nil

	case *ast.PrintfStatement:
		return nil, sigNormal, i.execPrintf(env, s)

	case *ast.ImportStatement:
		return nil, sigNormal, i.execImport(env, s)

	case *ast.TryStatement:
		return i.execTry(env, s)

	case *ast.ThrowStatement:
		val, exc := i.evalExpr(env, s.Value)
		if exc != nil {
			return nil, sigNormal, exc
		}
		return nil, sigNormal, i.throwAt(s.Pos(), toException(val))

	case *ast.PassStatement:
		return nil, sigNormal, nil

	default:
		return nil, sigNormal, i.throwAt(stmt.Pos(),
			runtime.NewExceptionf(runtime.RuntimeError, "cannot execute %T", stmt))
	}
}

// execBlock executes a block's statements in the given scope without
// creating a new one. Callers that need a fresh scope create it.
func (i *Interpreter) execBlock(scope *runtime.Environment, block *ast.BlockStatement) (runtime.Value, signal, *runtime.Exception) {
	var last runtime.Value
	for _, stmt := range block.Statements {
		val, sig, exc := i.execStmt(scope, stmt)
		if exc != nil {
			return nil, sigNormal, exc
		}
		if sig != sigNormal {
			return nil, sig, nil
		}
		if val != nil {
			last = val
		}
	}
	return last, sigNormal, nil
}

func (i *Interpreter) execVar(env *runtime.Environment, s *ast.VarStatement) *runtime.Exception {
	var value runtime.Value = runtime.TheNull
	if s.Value != nil {
		val, exc := i.evalExpr(env, s.Value)
		if exc != nil {
			return exc
		}
		value = val
	}

	// Redeclaring a const in the same scope is rejected; the type
	// annotation, when present, is checked best-effort.
	if env.IsConstLocal(s.Name.Value) {
		return i.throwAt(s.Pos(),
			typeErrorf("cannot redeclare const '%s'", s.Name.Value))
	}
	if s.Type != nil {
		if exc := checkAnnotation(s.Type.Name, value); exc != nil {
			return i.throwAt(s.Pos(), exc)
		}
	}
	env.Define(s.Name.Value, value, s.Const)
	return nil
}

// checkAnnotation performs the best-effort annotation check: null is
// always accepted, as is 'any'.
func checkAnnotation(typeName string, value runtime.Value) *runtime.Exception {
	if typeName == "any" || value == runtime.TheNull {
		return nil
	}
	actual := value.Kind().String()
	if typeName == actual {
		return nil
	}
	return typeErrorf("annotation mismatch: declared %s, got %s", typeName, actual)
}

func (i *Interpreter) execIf(env *runtime.Environment, s *ast.IfStatement) (runtime.Value, signal, *runtime.Exception) {
	cond, exc := i.evalExpr(env, s.Condition)
	if exc != nil {
		return nil, sigNormal, exc
	}
	if runtime.IsTruthy(cond) {
		scope := runtime.NewEnclosedEnvironment(env)
		_, sig, exc := i.execBlock(scope, s.Then)
		return nil, sig, exc
	}
	if s.Else != nil {
		return i.execStmt(env, s.Else)
	}
	return nil, sigNormal, nil
}

// loopSignal interprets a body signal for a loop with the given label.
// stop reports that the loop must exit; skip that the iteration ends
// but the loop continues; propagate that the signal belongs to an
// outer construct and must be passed on.
func (i *Interpreter) loopSignal(sig signal, label string) (stop, skip, propagate bool) {
	switch sig {
	case sigBreak:
		if i.signalLabel == "" || i.signalLabel == label {
			i.signalLabel = ""
			return true, false, false
		}
		return false, false, true
	case sigContinue:
		if i.signalLabel == "" || i.signalLabel == label {
			i.signalLabel = ""
			return false, true, false
		}
		return false, false, true
	case sigReturn:
		return false, false, true
	}
	return false, false, false
}

// execWhile runs a while loop. The returned signal is one the loop
// does not own (return, or a labelled break/continue targeting an
// outer loop) and must keep unwinding.
func (i *Interpreter) execWhile(env *runtime.Environment, s *ast.WhileStatement) (signal, *runtime.Exception) {
	for {
		cond, exc := i.evalExpr(env, s.Condition)
		if exc != nil {
			return sigNormal, exc
		}
		if !runtime.IsTruthy(cond) {
			return sigNormal, nil
		}

		scope := runtime.NewEnclosedEnvironment(env)
		_, sig, exc := i.execBlock(scope, s.Body)
		if exc != nil {
			return sigNormal, exc
		}
		stop, _, propagate := i.loopSignal(sig, s.Label)
		if propagate {
			return sig, nil
		}
		if stop {
			return sigNormal, nil
		}
	}
}

func (i *Interpreter) execDoWhile(env *runtime.Environment, s *ast.DoWhileStatement) (signal, *runtime.Exception) {
	for {
		scope := runtime.NewEnclosedEnvironment(env)
		_, sig, exc := i.execBlock(scope, s.Body)
		if exc != nil {
			return sigNormal, exc
		}
		stop, _, propagate := i.loopSignal(sig, s.Label)
		if propagate {
			return sig, nil
		}
		if stop {
			return sigNormal, nil
		}

		cond, exc := i.evalExpr(env, s.Condition)
		if exc != nil {
			return sigNormal, exc
		}
		if !runtime.IsTruthy(cond) {
			return sigNormal, nil
		}
	}
}

func (i *Interpreter) execFor(env *runtime.Environment, s *ast.ForStatement) (signal, *runtime.Exception) {
	// The init clause lives in its own scope enclosing every iteration.
	outer := runtime.NewEnclosedEnvironment(env)
	if s.Init != nil {
		_, sig, exc := i.execStmt(outer, s.Init)
		if exc != nil {
			return sigNormal, exc
		}
		if sig != sigNormal {
			return sig, nil
		}
	}

	for {
		if s.Condition != nil {
			cond, exc := i.evalExpr(outer, s.Condition)
			if exc != nil {
				return sigNormal, exc
			}
			if !runtime.IsTruthy(cond) {
				return sigNormal, nil
			}
		}

		scope := runtime.NewEnclosedEnvironment(outer)
		_, sig, exc := i.execBlock(scope, s.Body)
		if exc != nil {
			return sigNormal, exc
		}
		stop, _, propagate := i.loopSignal(sig, s.Label)
		if propagate {
			return sig, nil
		}
		if stop {
			return sigNormal, nil
		}

		if s.Increment != nil {
			if _, exc := i.evalExpr(outer, s.Increment); exc != nil {
				return sigNormal, exc
			}
		}
	}
}

func (i *Interpreter) execForIn(env *runtime.Environment, s *ast.ForInStatement) (signal, *runtime.Exception) {
	iterable, exc := i.evalExpr(env, s.Iterable)
	if exc != nil {
		return sigNormal, exc
	}

	items, iexc := iterate(iterable)
	if iexc != nil {
		return sigNormal, i.throwAt(s.Iterable.Pos(), iexc)
	}

	for _, item := range items {
		scope := runtime.NewEnclosedEnvironment(env)
		scope.Define(s.Variable.Value, item, false)
		_, sig, bexc := i.execBlock(scope, s.Body)
		if bexc != nil {
			return sigNormal, bexc
		}
		stop, _, propagate := i.loopSignal(sig, s.Label)
		if propagate {
			return sig, nil
		}
		if stop {
			return sigNormal, nil
		}
	}
	return sigNormal, nil
}

// iterate materializes the iteration sequence of a value: lists and
// tuples by element, strings character-by-character, ranges by value
// and dicts by key in insertion order.
func iterate(iterable runtime.Value) ([]runtime.Value, *runtime.Exception) {
	switch v := iterable.(type) {
	case *runtime.List:
		return append([]runtime.Value(nil), v.Elements...), nil
	case *runtime.Tuple:
		return append([]runtime.Value(nil), v.Elements...), nil
	case *runtime.Array:
		return append([]runtime.Value(nil), v.Elements...), nil
	case *runtime.String:
		runes := []rune(v.Value)
		items := make([]runtime.Value, len(runes))
		for idx, r := range runes {
			items[idx] = runtime.NewString(string(r))
		}
		return items, nil
	case *runtime.Range:
		items := make([]runtime.Value, v.Len())
		for idx := range items {
			items[idx] = runtime.NewNumber(v.At(idx))
		}
		return items, nil
	case *runtime.Dict:
		keys := v.Keys()
		items := make([]runtime.Value, len(keys))
		for idx, k := range keys {
			items[idx] = runtime.NewString(k)
		}
		return items, nil
	default:
		return nil, typeErrorf("%s is not iterable", kindName(iterable))
	}
}

func (i *Interpreter) execPrintf(env *runtime.Environment, s *ast.PrintfStatement) *runtime.Exception {
	formatVal, exc := i.evalExpr(env, s.Format)
	if exc != nil {
		return exc
	}
	format, ok := formatVal.(*runtime.String)
	if !ok {
		return i.throwAt(s.Pos(), typeErrorf("printf format must be a string, got %s", kindName(formatVal)))
	}

	args := make([]runtime.Value, 0, len(s.Arguments))
	for _, a := range s.Arguments {
		val, aexc := i.evalExpr(env, a)
		if aexc != nil {
			return aexc
		}
		args = append(args, val)
	}

	text, fexc := formatPrintf(format.Value, args)
	if fexc != nil {
		return i.throwAt(s.Pos(), fexc)
	}
	fmt.Fprint(i.out, text)
	return nil
}

// formatPrintf renders the printf verb subset: %d, %s, %f, %g, %%.
func formatPrintf(format string, args []runtime.Value) (string, *runtime.Exception) {
	var sb strings.Builder
	argIdx := 0

	next := func(verb byte) (runtime.Value, *runtime.Exception) {
		if argIdx >= len(args) {
			return nil, runtime.NewExceptionf(runtime.ValueError,
				"printf: missing argument for %%%c", verb)
		}
		val := args[argIdx]
		argIdx++
		return val, nil
	}

	for idx := 0; idx < len(format); idx++ {
		ch := format[idx]
		if ch != '%' {
			sb.WriteByte(ch)
			continue
		}
		if idx+1 >= len(format) {
			return "", runtime.NewException(runtime.ValueError, "printf: trailing '%' in format")
		}
		idx++
		verb := format[idx]
		switch verb {
		case '%':
			sb.WriteByte('%')
		case 'd':
			val, exc := next(verb)
			if exc != nil {
				return "", exc
			}
			num, ok := val.(*runtime.Number)
			if !ok {
				return "", typeErrorf("printf: %%d requires a number, got %s", kindName(val))
			}
			sb.WriteString(strconv.FormatInt(int64(num.Value), 10))
		case 's':
			val, exc := next(verb)
			if exc != nil {
				return "", exc
			}
			sb.WriteString(val.String())
		case 'f':
			val, exc := next(verb)
			if exc != nil {
				return "", exc
			}
			num, ok := val.(*runtime.Number)
			if !ok {
				return "", typeErrorf("printf: %%f requires a number, got %s", kindName(val))
			}
			sb.WriteString(strconv.FormatFloat(num.Value, 'f', 6, 64))
		case 'g':
			val, exc := next(verb)
			if exc != nil {
				return "", exc
			}
			num, ok := val.(*runtime.Number)
			if !ok {
				return "", typeErrorf("printf: %%g requires a number, got %s", kindName(val))
			}
			sb.WriteString(strconv.FormatFloat(num.Value, 'g', -1, 64))
		default:
			return "", runtime.NewExceptionf(runtime.ValueError,
				"printf: unsupported verb %%%c", verb)
		}
	}
	return sb.String(), nil
}

func (i *Interpreter) execImport(env *runtime.Environment, s *ast.ImportStatement) *runtime.Exception {
	if i.resolver == nil {
		return i.throwAt(s.Pos(),
			runtime.NewException(runtime.ImportError, "no module resolver configured"))
	}
	module, err := i.resolver.Resolve(s.Spec)
	if err != nil {
		return i.throwAt(s.Pos(),
			runtime.NewExceptionf(runtime.ImportError, "cannot import %q: %v", s.Spec, err))
	}

	name := module.Name
	if s.Alias != "" {
		name = s.Alias
	}
	env.Define(name, module.Exports, false)
	return nil
}

// toException converts a thrown value to an exception: exceptions
// pass through; strings throw a Custom error named by convention
// ("KindName: message" or plain RuntimeError); anything else is
// wrapped with its display text.
func toException(val runtime.Value) *runtime.Exception {
	switch v := val.(type) {
	case *runtime.Exception:
		return v
	case *runtime.String:
		if kind, msg, ok := strings.Cut(v.Value, ": "); ok && isErrorKindName(kind) {
			return runtime.NewException(runtime.ErrorKind(kind), msg)
		}
		return runtime.NewException(runtime.RuntimeError, v.Value)
	case *runtime.Dict:
		kind := runtime.RuntimeError
		if t, ok := v.Get("type"); ok {
			if ts, ok := t.(*runtime.String); ok {
				kind = runtime.ErrorKind(ts.Value)
			}
		}
		msg := ""
		if m, ok := v.Get("message"); ok {
			msg = m.String()
		}
		return runtime.NewException(kind, msg)
	default:
		return runtime.NewException(runtime.RuntimeError, val.String())
	}
}

// isErrorKindName reports whether name looks like an error kind:
// a capitalized identifier ending in "Error".
func isErrorKindName(name string) bool {
	return len(name) > 5 && name[0] >= 'A' && name[0] <= 'Z' && strings.HasSuffix(name, "Error")
}
