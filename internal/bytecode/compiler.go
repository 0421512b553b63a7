package bytecode

import (
	"errors"
	"fmt"

	"github.com/piratebomber/go-rubolt/internal/ast"
	"github.com/piratebomber/go-rubolt/internal/runtime"
)

// ErrUnsupported marks a construct the IR cannot express. The
// coordinator keeps such functions on the tree-walk tier; compilation
// bails instead of producing code with divergent semantics.
var ErrUnsupported = errors.New("bytecode: unsupported construct")

// StoreVar operand encoding: the low bit distinguishes a declaration
// (define in the call frame) from an assignment (write the first
// enclosing frame that defines the name); the remaining bits hold the
// name index.
func storeOperand(nameIdx int, declare bool) int {
	op := nameIdx << 1
	if declare {
		op |= 1
	}
	return op
}

// DecodeStore splits a StoreVar operand into name index and declare
// flag.
func DecodeStore(operand int) (nameIdx int, declare bool) {
	return operand >> 1, operand&1 == 1
}

// loopContext tracks jump patch-up positions for one enclosing loop.
type loopContext struct {
	breakJumps    []int
	continueJumps []int
}

// Compiler lowers a function body to IR. One compiler instance
// compiles one function.
type Compiler struct {
	chunk     *Chunk
	loopStack []*loopContext
	declared  map[string]bool
}

// Compile lowers a function to a chunk. Parameters are bound by the
// caller into the execution frame; the body references them by name.
// Returns ErrUnsupported (wrapped) when the function uses constructs
// outside the IR subset.
func Compile(fn *runtime.Function) (*Chunk, error) {
	name := fn.Name
	if name == "" {
		name = "<anonymous>"
	}
	c := &Compiler{
		chunk:    NewChunk(name),
		declared: make(map[string]bool),
	}
	for _, param := range fn.Parameters {
		c.declared[param.Name.Value] = true
	}

	if err := c.compileBlock(fn.Body); err != nil {
		return nil, err
	}

	// An implicit null return for bodies that fall off the end.
	line := 0
	if n := len(c.chunk.Code); n > 0 {
		line = c.chunk.Code[n-1].Line
	}
	nullIdx := c.chunk.AddConstant(runtime.TheNull)
	c.chunk.Emit(OpLoadConst, nullIdx, line)
	c.chunk.Emit(OpReturn, 0, line)
	return c.chunk, nil
}

func (c *Compiler) unsupported(what string) error {
	return fmt.Errorf("%w: %s", ErrUnsupported, what)
}

func (c *Compiler) compileBlock(block *ast.BlockStatement) error {
	for _, stmt := range block.Statements {
		if err := c.compileStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileStmt(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		// Assignments in statement position leave nothing behind;
		// other expressions are evaluated and discarded.
		if assign, ok := s.Expression.(*ast.AssignExpression); ok {
			return c.compileAssign(assign)
		}
		if err := c.compileExpr(s.Expression); err != nil {
			return err
		}
		c.chunk.Emit(OpPop, 0, s.Pos().Line)
		return nil

	case *ast.VarStatement:
		return c.compileVar(s)

	case *ast.ReturnStatement:
		line := s.Pos().Line
		if s.Value != nil {
			if err := c.compileExpr(s.Value); err != nil {
				return err
			}
		} else {
			c.chunk.Emit(OpLoadConst, c.chunk.AddConstant(runtime.TheNull), line)
		}
		c.chunk.Emit(OpReturn, 0, line)
		return nil

	case *ast.IfStatement:
		return c.compileIf(s)

	case *ast.WhileStatement:
		if s.Label != "" {
			return c.unsupported("labelled loop")
		}
		return c.compileWhile(s)

	case *ast.ForStatement:
		if s.Label != "" {
			return c.unsupported("labelled loop")
		}
		return c.compileFor(s)

	case *ast.BlockStatement:
		// Flattened into the enclosing frame; per-block shadowing
		// bails in compileVar.
		return c.compileBlock(s)

	case *ast.PrintStatement:
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
		c.chunk.Emit(OpPrint, 0, s.Pos().Line)
		return nil

	case *ast.BreakStatement:
		if s.Label != "" {
			return c.unsupported("labelled break")
		}
		if len(c.loopStack) == 0 {
			return c.unsupported("break outside loop")
		}
		loop := c.loopStack[len(c.loopStack)-1]
		loop.breakJumps = append(loop.breakJumps, c.chunk.Emit(OpJump, 0, s.Pos().Line))
		return nil

	case *ast.ContinueStatement:
		if s.Label != "" {
			return c.unsupported("labelled continue")
		}
		if len(c.loopStack) == 0 {
			return c.unsupported("continue outside loop")
		}
		loop := c.loopStack[len(c.loopStack)-1]
		loop.continueJumps = append(loop.continueJumps, c.chunk.Emit(OpJump, 0, s.Pos().Line))
		return nil

	case *ast.PassStatement:
		return nil

	default:
		return c.unsupported(fmt.Sprintf("%T", stmt))
	}
}

func (c *Compiler) compileVar(s *ast.VarStatement) error {
	if s.Const {
		// Const bindings carry a flag the flat frame cannot represent.
		return c.unsupported("const declaration")
	}
	if c.declared[s.Name.Value] {
		// In-chunk shadowing would need block scopes; the tree-walk
		// keeps those functions.
		return c.unsupported("shadowing declaration")
	}

	line := s.Pos().Line
	if s.Value != nil {
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
	} else {
		c.chunk.Emit(OpLoadConst, c.chunk.AddConstant(runtime.TheNull), line)
	}
	c.declared[s.Name.Value] = true
	nameIdx := c.chunk.InternName(s.Name.Value)
	c.chunk.Emit(OpStoreVar, storeOperand(nameIdx, true), line)
	return nil
}

func (c *Compiler) compileAssign(s *ast.AssignExpression) error {
	target, ok := s.Target.(*ast.Identifier)
	if !ok {
		return c.unsupported("index/member assignment")
	}
	if err := c.compileExpr(s.Value); err != nil {
		return err
	}
	nameIdx := c.chunk.InternName(target.Value)
	c.chunk.Emit(OpStoreVar, storeOperand(nameIdx, false), s.Pos().Line)
	return nil
}

func (c *Compiler) compileIf(s *ast.IfStatement) error {
	elseJump, err := c.compileCondition(s.Condition)
	if err != nil {
		return err
	}
	if err := c.compileBlock(s.Then); err != nil {
		return err
	}

	if s.Else == nil {
		c.patchJump(elseJump)
		return nil
	}

	endJump := c.chunk.Emit(OpJump, 0, s.Pos().Line)
	c.patchJump(elseJump)
	if err := c.compileStmt(s.Else); err != nil {
		return err
	}
	c.patchJump(endJump)
	return nil
}

func (c *Compiler) compileWhile(s *ast.WhileStatement) error {
	loopStart := len(c.chunk.Code)
	exitJump, err := c.compileCondition(s.Condition)
	if err != nil {
		return err
	}

	loop := &loopContext{}
	c.loopStack = append(c.loopStack, loop)
	if err := c.compileBlock(s.Body); err != nil {
		return err
	}
	c.loopStack = c.loopStack[:len(c.loopStack)-1]

	for _, jump := range loop.continueJumps {
		c.chunk.Code[jump].Operand = loopStart
	}
	c.chunk.Emit(OpJump, loopStart, s.Pos().Line)
	c.patchJump(exitJump)
	for _, jump := range loop.breakJumps {
		c.patchJump(jump)
	}
	return nil
}

func (c *Compiler) compileFor(s *ast.ForStatement) error {
	if s.Init != nil {
		if err := c.compileStmt(s.Init); err != nil {
			return err
		}
	}

	loopStart := len(c.chunk.Code)
	exitJump := -1
	if s.Condition != nil {
		var err error
		exitJump, err = c.compileCondition(s.Condition)
		if err != nil {
			return err
		}
	}

	loop := &loopContext{}
	c.loopStack = append(c.loopStack, loop)
	if err := c.compileBlock(s.Body); err != nil {
		return err
	}
	c.loopStack = c.loopStack[:len(c.loopStack)-1]

	// The increment clause runs after the body and before the next
	// condition check; continue lands here.
	incrStart := len(c.chunk.Code)
	if s.Increment != nil {
		if assign, ok := s.Increment.(*ast.AssignExpression); ok {
			if err := c.compileAssign(assign); err != nil {
				return err
			}
		} else {
			if err := c.compileExpr(s.Increment); err != nil {
				return err
			}
			c.chunk.Emit(OpPop, 0, s.Pos().Line)
		}
	}
	for _, jump := range loop.continueJumps {
		c.chunk.Code[jump].Operand = incrStart
	}

	c.chunk.Emit(OpJump, loopStart, s.Pos().Line)
	if exitJump >= 0 {
		c.patchJump(exitJump)
	}
	for _, jump := range loop.breakJumps {
		c.patchJump(jump)
	}
	return nil
}

// compileCondition compiles a boolean condition and emits the
// conditional exit jump, returning its index for patching. A logical
// and/or condition is not compiled: it returns ErrUnsupported.
func (c *Compiler) compileCondition(cond ast.Expression) (int, error) {
	if bin, ok := cond.(*ast.BinaryExpression); ok {
		switch bin.Operator {
		case "and", "&&", "or", "||":
			// Jump-chained conditions need multi-target patching that
			// the single-exit contract here does not cover.
			return 0, c.unsupported("logical operator in compiled condition")
		}
	}
	if err := c.compileExpr(cond); err != nil {
		return 0, err
	}
	return c.chunk.Emit(OpJumpIfFalse, 0, cond.Pos().Line), nil
}

// patchJump points a previously emitted jump at the next instruction.
func (c *Compiler) patchJump(at int) {
	c.chunk.Code[at].Operand = len(c.chunk.Code)
}

func (c *Compiler) compileExpr(expr ast.Expression) error {
	switch e := expr.(type) {
	case *ast.NumberLiteral:
		c.chunk.Emit(OpLoadConst, c.chunk.AddConstant(runtime.NewNumber(e.Value)), e.Pos().Line)
		return nil

	case *ast.StringLiteral:
		c.chunk.Emit(OpLoadString, c.chunk.AddConstant(runtime.NewString(e.Value)), e.Pos().Line)
		return nil

	case *ast.BooleanLiteral:
		c.chunk.Emit(OpLoadConst, c.chunk.AddConstant(runtime.BoolOf(e.Value)), e.Pos().Line)
		return nil

	case *ast.NullLiteral:
		c.chunk.Emit(OpLoadConst, c.chunk.AddConstant(runtime.TheNull), e.Pos().Line)
		return nil

	case *ast.Identifier:
		c.chunk.Emit(OpLoadVar, c.chunk.InternName(e.Value), e.Pos().Line)
		return nil

	case *ast.GroupedExpression:
		return c.compileExpr(e.Expression)

	case *ast.UnaryExpression:
		if err := c.compileExpr(e.Right); err != nil {
			return err
		}
		switch e.Operator {
		case "-":
			c.chunk.Emit(OpNeg, 0, e.Pos().Line)
		case "!", "not":
			c.chunk.Emit(OpNot, 0, e.Pos().Line)
		default:
			return c.unsupported("unary " + e.Operator)
		}
		return nil

	case *ast.BinaryExpression:
		return c.compileBinary(e)

	case *ast.CallExpression:
		if err := c.compileExpr(e.Callee); err != nil {
			return err
		}
		for _, arg := range e.Arguments {
			if err := c.compileExpr(arg); err != nil {
				return err
			}
		}
		c.chunk.Emit(OpCall, len(e.Arguments), e.Pos().Line)
		return nil

	default:
		return c.unsupported(fmt.Sprintf("%T", expr))
	}
}

// binaryOps maps evaluator operators to IR opcodes.
var binaryOps = map[string]OpCode{
	"+":  OpAdd,
	"-":  OpSub,
	"*":  OpMul,
	"/":  OpDiv,
	"%":  OpMod,
	"==": OpCompareEq,
	"!=": OpCompareNe,
	"<":  OpCompareLt,
	">":  OpCompareGt,
	"<=": OpCompareLe,
	">=": OpCompareGe,
}

func (c *Compiler) compileBinary(e *ast.BinaryExpression) error {
	op, ok := binaryOps[e.Operator]
	if !ok {
		// Short-circuit operators produce their operand value, which
		// a consuming jump cannot preserve.
		return c.unsupported("operator " + e.Operator)
	}
	if err := c.compileExpr(e.Left); err != nil {
		return err
	}
	if err := c.compileExpr(e.Right); err != nil {
		return err
	}
	c.chunk.Emit(op, 0, e.Pos().Line)
	return nil
}
