package interp

import (
	"github.com/piratebomber/go-rubolt/internal/ast"
	"github.com/piratebomber/go-rubolt/internal/runtime"
)

// execTry executes try/catch/finally.
//
// The body runs first; a thrown exception unwinds to the first catch
// arm whose kind matches through the hierarchy. The finally block
// always runs: after normal completion, after a caught or uncaught
// error, and when the body returned or broke out of a loop. An
// exception raised inside finally supplants whatever was in flight,
// and a control-flow signal from finally wins over the body's.
func (i *Interpreter) execTry(env *runtime.Environment, s *ast.TryStatement) (runtime.Value, signal, *runtime.Exception) {
	scope := runtime.NewEnclosedEnvironment(env)
	_, sig, exc := i.execBlock(scope, s.Body)

	if exc != nil {
		if clause := matchCatch(s.Catches, exc); clause != nil {
			catchScope := runtime.NewEnclosedEnvironment(env)
			if clause.Binding != nil {
				catchScope.Define(clause.Binding.Value, exc, false)
			}
			_, sig, exc = i.execBlock(catchScope, clause.Body)
		}
	}

	if s.Finally != nil {
		finallyScope := runtime.NewEnclosedEnvironment(env)
		_, fsig, fexc := i.execBlock(finallyScope, s.Finally)
		if fexc != nil {
			// The finally error supplants the in-flight one.
			return nil, sigNormal, fexc
		}
		if fsig != sigNormal {
			return nil, fsig, nil
		}
	}

	return nil, sig, exc
}

// matchCatch selects the first catch arm whose kind matches the
// exception, walking the kind hierarchy.
func matchCatch(clauses []*ast.CatchClause, exc *runtime.Exception) *ast.CatchClause {
	for _, clause := range clauses {
		if runtime.KindIsA(exc.ErrKind, runtime.ErrorKind(clause.Kind)) {
			return clause
		}
	}
	return nil
}
