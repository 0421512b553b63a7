package ast

import (
	"bytes"
	"strings"

	"github.com/piratebomber/go-rubolt/internal/lexer"
)

// SiteID identifies a dynamic-dispatch call site (call, member access
// or index expression). Site IDs are assigned sequentially by the
// parser and key the inline-cache subsystem.
type SiteID int

// NoSite marks an expression that has not been numbered.
const NoSite SiteID = -1

// CallExpression represents a function call: callee(arg1, arg2).
type CallExpression struct {
	Token     lexer.Token // The '(' token
	Callee    Expression
	Arguments []Expression
	Site      SiteID
}

func (ce *CallExpression) expressionNode()      {}
func (ce *CallExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *CallExpression) Pos() lexer.Position  { return ce.Token.Pos }
func (ce *CallExpression) String() string {
	args := make([]string, len(ce.Arguments))
	for i, a := range ce.Arguments {
		args[i] = a.String()
	}
	return ce.Callee.String() + "(" + strings.Join(args, ", ") + ")"
}

// IndexExpression represents indexing: target[index].
type IndexExpression struct {
	Token  lexer.Token // The '[' token
	Target Expression
	Index  Expression
	Site   SiteID
}

func (ie *IndexExpression) expressionNode()      {}
func (ie *IndexExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *IndexExpression) Pos() lexer.Position  { return ie.Token.Pos }
func (ie *IndexExpression) String() string {
	return "(" + ie.Target.String() + "[" + ie.Index.String() + "])"
}

// MemberExpression represents member access: target.name.
type MemberExpression struct {
	Token  lexer.Token // The '.' token
	Target Expression
	Member string
	Site   SiteID
}

func (me *MemberExpression) expressionNode()      {}
func (me *MemberExpression) TokenLiteral() string { return me.Token.Literal }
func (me *MemberExpression) Pos() lexer.Position  { return me.Token.Pos }
func (me *MemberExpression) String() string {
	return "(" + me.Target.String() + "." + me.Member + ")"
}

// AssignExpression represents assignment to an identifier, index or
// member target: x = v, a[i] = v, obj.f = v.
type AssignExpression struct {
	Token  lexer.Token // The '=' token
	Target Expression  // Identifier, IndexExpression or MemberExpression
	Value  Expression
}

func (ae *AssignExpression) expressionNode()      {}
func (ae *AssignExpression) TokenLiteral() string { return ae.Token.Literal }
func (ae *AssignExpression) Pos() lexer.Position  { return ae.Token.Pos }
func (ae *AssignExpression) String() string {
	return "(" + ae.Target.String() + " = " + ae.Value.String() + ")"
}

// ListLiteral represents a list literal: [1, 2, 3].
type ListLiteral struct {
	Token    lexer.Token // The '[' token
	Elements []Expression
}

func (ll *ListLiteral) expressionNode()      {}
func (ll *ListLiteral) TokenLiteral() string { return ll.Token.Literal }
func (ll *ListLiteral) Pos() lexer.Position  { return ll.Token.Pos }
func (ll *ListLiteral) String() string {
	elems := make([]string, len(ll.Elements))
	for i, e := range ll.Elements {
		elems[i] = e.String()
	}
	return "[" + strings.Join(elems, ", ") + "]"
}

// DictEntry is a single key: value pair in a dict literal.
// Keys are identifiers or string literals; both denote string keys.
type DictEntry struct {
	Key   string
	Value Expression
}

// DictLiteral represents a dict literal: { a: 1, "b": 2 }.
// Entry order is preserved; Rubolt dicts iterate in insertion order.
type DictLiteral struct {
	Token   lexer.Token // The '{' token
	Entries []DictEntry
}

func (dl *DictLiteral) expressionNode()      {}
func (dl *DictLiteral) TokenLiteral() string { return dl.Token.Literal }
func (dl *DictLiteral) Pos() lexer.Position  { return dl.Token.Pos }
func (dl *DictLiteral) String() string {
	var out bytes.Buffer
	out.WriteString("{")
	for i, entry := range dl.Entries {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(entry.Key + ": " + entry.Value.String())
	}
	out.WriteString("}")
	return out.String()
}

// TupleLiteral represents a tuple literal: (1, 2, 3).
// The parser only produces tuples for parenthesized lists with at
// least one comma; (x) stays a grouped expression.
type TupleLiteral struct {
	Token    lexer.Token // The '(' token
	Elements []Expression
}

func (tl *TupleLiteral) expressionNode()      {}
func (tl *TupleLiteral) TokenLiteral() string { return tl.Token.Literal }
func (tl *TupleLiteral) Pos() lexer.Position  { return tl.Token.Pos }
func (tl *TupleLiteral) String() string {
	elems := make([]string, len(tl.Elements))
	for i, e := range tl.Elements {
		elems[i] = e.String()
	}
	return "(" + strings.Join(elems, ", ") + ",)"
}

// Parameter is a function parameter with an optional type annotation.
type Parameter struct {
	Name *Identifier
	Type *TypeAnnotation
}

func (p *Parameter) String() string {
	if p.Type != nil {
		return p.Name.Value + ": " + p.Type.Name
	}
	return p.Name.Value
}

// FunctionLiteral represents an anonymous function expression.
// The closure environment is captured at evaluation time.
type FunctionLiteral struct {
	Token      lexer.Token // The DEF or FUNCTION token
	Parameters []*Parameter
	Body       *BlockStatement
}

func (fl *FunctionLiteral) expressionNode()      {}
func (fl *FunctionLiteral) TokenLiteral() string { return fl.Token.Literal }
func (fl *FunctionLiteral) Pos() lexer.Position  { return fl.Token.Pos }
func (fl *FunctionLiteral) String() string {
	params := make([]string, len(fl.Parameters))
	for i, p := range fl.Parameters {
		params[i] = p.String()
	}
	return fl.TokenLiteral() + "(" + strings.Join(params, ", ") + ") " + fl.Body.String()
}

// MatchArm is a single arm of a match expression: pattern with an
// optional guard, and the body evaluated when the arm is selected.
type MatchArm struct {
	Pattern Pattern
	Guard   Expression // nil when the arm has no guard
	Body    Expression
}

func (ma *MatchArm) String() string {
	var out bytes.Buffer
	out.WriteString("case " + ma.Pattern.String())
	if ma.Guard != nil {
		out.WriteString(" if " + ma.Guard.String())
	}
	out.WriteString(" => " + ma.Body.String())
	return out.String()
}

// MatchExpression represents a match over a subject value.
// Arms are tried in order; the first whose pattern and guard succeed
// supplies the result.
type MatchExpression struct {
	Token   lexer.Token // The MATCH token
	Subject Expression
	Arms    []*MatchArm
}

func (me *MatchExpression) expressionNode()      {}
func (me *MatchExpression) TokenLiteral() string { return me.Token.Literal }
func (me *MatchExpression) Pos() lexer.Position  { return me.Token.Pos }
func (me *MatchExpression) String() string {
	var out bytes.Buffer
	out.WriteString("match " + me.Subject.String() + " { ")
	for i, arm := range me.Arms {
		if i > 0 {
			out.WriteString("; ")
		}
		out.WriteString(arm.String())
	}
	out.WriteString(" }")
	return out.String()
}
