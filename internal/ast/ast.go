// Package ast defines the Abstract Syntax Tree node types for Rubolt.
package ast

import (
	"bytes"
	"strconv"

	"github.com/piratebomber/go-rubolt/internal/lexer"
)

// Node is the base interface for all AST nodes.
// Every node must provide its token literal, position information,
// and a string representation for debugging and parser tests.
type Node interface {
	// TokenLiteral returns the literal value of the token this node is
	// associated with.
	TokenLiteral() string

	// String returns a string representation of the node for debugging.
	String() string

	// Pos returns the position of the node in the source code.
	Pos() lexer.Position
}

// Expression represents any node that produces a value.
type Expression interface {
	Node
	expressionNode()
}

// Statement represents a node that performs an action but doesn't
// produce a value.
type Statement interface {
	Node
	statementNode()
}

// Program is the root node of the AST.
type Program struct {
	Statements []Statement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

func (p *Program) String() string {
	var out bytes.Buffer
	for _, stmt := range p.Statements {
		out.WriteString(stmt.String())
	}
	return out.String()
}

func (p *Program) Pos() lexer.Position {
	if len(p.Statements) > 0 {
		return p.Statements[0].Pos()
	}
	return lexer.Position{Line: 1, Column: 1, Offset: 0}
}

// TypeAnnotation represents an optional type annotation on a
// declaration or parameter (string, number, bool, void, any).
// Annotations are advisory: the checker is best-effort only.
type TypeAnnotation struct {
	Token lexer.Token
	Name  string
}

func (ta *TypeAnnotation) String() string { return ta.Name }

// Identifier represents an identifier (variable or function name).
type Identifier struct {
	Token lexer.Token // The IDENT token
	Value string
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.Token.Literal }
func (i *Identifier) String() string       { return i.Value }
func (i *Identifier) Pos() lexer.Position  { return i.Token.Pos }

// NumberLiteral represents a numeric literal. Rubolt numbers are
// IEEE-754 doubles.
type NumberLiteral struct {
	Token lexer.Token // The NUMBER token
	Value float64
}

func (nl *NumberLiteral) expressionNode()      {}
func (nl *NumberLiteral) TokenLiteral() string { return nl.Token.Literal }
func (nl *NumberLiteral) String() string       { return nl.Token.Literal }
func (nl *NumberLiteral) Pos() lexer.Position  { return nl.Token.Pos }

// StringLiteral represents a string literal.
type StringLiteral struct {
	Token lexer.Token // The STRING token
	Value string
}

func (sl *StringLiteral) expressionNode()      {}
func (sl *StringLiteral) TokenLiteral() string { return sl.Token.Literal }
func (sl *StringLiteral) String() string       { return strconv.Quote(sl.Value) }
func (sl *StringLiteral) Pos() lexer.Position  { return sl.Token.Pos }

// BooleanLiteral represents true or false.
type BooleanLiteral struct {
	Token lexer.Token // The TRUE or FALSE token
	Value bool
}

func (bl *BooleanLiteral) expressionNode()      {}
func (bl *BooleanLiteral) TokenLiteral() string { return bl.Token.Literal }
func (bl *BooleanLiteral) String() string       { return bl.Token.Literal }
func (bl *BooleanLiteral) Pos() lexer.Position  { return bl.Token.Pos }

// NullLiteral represents the null literal.
type NullLiteral struct {
	Token lexer.Token // The NULL token
}

func (nl *NullLiteral) expressionNode()      {}
func (nl *NullLiteral) TokenLiteral() string { return nl.Token.Literal }
func (nl *NullLiteral) String() string       { return "null" }
func (nl *NullLiteral) Pos() lexer.Position  { return nl.Token.Pos }

// BinaryExpression represents a binary operation (a + b, x < y, p and q).
type BinaryExpression struct {
	Token    lexer.Token // The operator token
	Left     Expression
	Operator string // +, -, *, /, %, ==, !=, <, <=, >, >=, and, or
	Right    Expression
}

func (be *BinaryExpression) expressionNode()      {}
func (be *BinaryExpression) TokenLiteral() string { return be.Token.Literal }
func (be *BinaryExpression) Pos() lexer.Position  { return be.Token.Pos }
func (be *BinaryExpression) String() string {
	var out bytes.Buffer
	out.WriteString("(")
	out.WriteString(be.Left.String())
	out.WriteString(" " + be.Operator + " ")
	out.WriteString(be.Right.String())
	out.WriteString(")")
	return out.String()
}

// UnaryExpression represents a unary operation (-x, !b, not b).
type UnaryExpression struct {
	Token    lexer.Token // The operator token
	Operator string      // -, !, not
	Right    Expression
}

func (ue *UnaryExpression) expressionNode()      {}
func (ue *UnaryExpression) TokenLiteral() string { return ue.Token.Literal }
func (ue *UnaryExpression) Pos() lexer.Position  { return ue.Token.Pos }
func (ue *UnaryExpression) String() string {
	var out bytes.Buffer
	out.WriteString("(")
	out.WriteString(ue.Operator)
	if ue.Operator == "not" {
		out.WriteString(" ")
	}
	out.WriteString(ue.Right.String())
	out.WriteString(")")
	return out.String()
}

// GroupedExpression represents an expression wrapped in parentheses.
type GroupedExpression struct {
	Token      lexer.Token // The '(' token
	Expression Expression
}

func (ge *GroupedExpression) expressionNode()      {}
func (ge *GroupedExpression) TokenLiteral() string { return ge.Token.Literal }
func (ge *GroupedExpression) String() string       { return "(" + ge.Expression.String() + ")" }
func (ge *GroupedExpression) Pos() lexer.Position  { return ge.Token.Pos }
