package ast

import (
	"bytes"
	"strings"

	"github.com/piratebomber/go-rubolt/internal/lexer"
)

// Pattern is the interface implemented by all match-arm patterns.
// Patterns appear only inside match expressions; they are parsed by
// the main parser, not a separate pattern DSL.
type Pattern interface {
	Node
	patternNode()
}

// LiteralPattern matches a literal value exactly (number, string,
// boolean or null).
type LiteralPattern struct {
	Token lexer.Token
	Value Expression // NumberLiteral, StringLiteral, BooleanLiteral or NullLiteral
}

func (lp *LiteralPattern) patternNode()         {}
func (lp *LiteralPattern) TokenLiteral() string { return lp.Token.Literal }
func (lp *LiteralPattern) Pos() lexer.Position  { return lp.Token.Pos }
func (lp *LiteralPattern) String() string       { return lp.Value.String() }

// IdentifierPattern always succeeds and binds the subject to a name.
type IdentifierPattern struct {
	Token lexer.Token
	Name  string
}

func (ip *IdentifierPattern) patternNode()         {}
func (ip *IdentifierPattern) TokenLiteral() string { return ip.Token.Literal }
func (ip *IdentifierPattern) Pos() lexer.Position  { return ip.Token.Pos }
func (ip *IdentifierPattern) String() string       { return ip.Name }

// WildcardPattern (_) always succeeds without binding.
type WildcardPattern struct {
	Token lexer.Token
}

func (wp *WildcardPattern) patternNode()         {}
func (wp *WildcardPattern) TokenLiteral() string { return wp.Token.Literal }
func (wp *WildcardPattern) Pos() lexer.Position  { return wp.Token.Pos }
func (wp *WildcardPattern) String() string       { return "_" }

// TuplePattern matches a tuple of fixed arity, element-wise.
type TuplePattern struct {
	Token    lexer.Token // The '(' token
	Elements []Pattern
}

func (tp *TuplePattern) patternNode()         {}
func (tp *TuplePattern) TokenLiteral() string { return tp.Token.Literal }
func (tp *TuplePattern) Pos() lexer.Position  { return tp.Token.Pos }
func (tp *TuplePattern) String() string {
	elems := make([]string, len(tp.Elements))
	for i, e := range tp.Elements {
		elems[i] = e.String()
	}
	return "(" + strings.Join(elems, ", ") + ")"
}

// ListPattern matches a list element-wise, optionally binding trailing
// elements to a rest name: [a, b, ...rest].
type ListPattern struct {
	Token    lexer.Token // The '[' token
	Elements []Pattern
	Rest     string // empty means no rest element
	HasRest  bool
}

func (lp *ListPattern) patternNode()         {}
func (lp *ListPattern) TokenLiteral() string { return lp.Token.Literal }
func (lp *ListPattern) Pos() lexer.Position  { return lp.Token.Pos }
func (lp *ListPattern) String() string {
	elems := make([]string, len(lp.Elements))
	for i, e := range lp.Elements {
		elems[i] = e.String()
	}
	s := "[" + strings.Join(elems, ", ")
	if lp.HasRest {
		if len(elems) > 0 {
			s += ", "
		}
		s += "..." + lp.Rest
	}
	return s + "]"
}

// FieldPattern is a single field of an object pattern.
type FieldPattern struct {
	Name    string
	Pattern Pattern
}

// ObjectPattern matches a dict field-by-field: { a: p1, b: p2, ... }.
// Without a rest element, strict mode rejects extra fields.
type ObjectPattern struct {
	Token   lexer.Token // The '{' token
	Fields  []FieldPattern
	HasRest bool
	Rest    string // optional binding for remaining fields
}

func (op *ObjectPattern) patternNode()         {}
func (op *ObjectPattern) TokenLiteral() string { return op.Token.Literal }
func (op *ObjectPattern) Pos() lexer.Position  { return op.Token.Pos }
func (op *ObjectPattern) String() string {
	var out bytes.Buffer
	out.WriteString("{")
	for i, f := range op.Fields {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(f.Name + ": " + f.Pattern.String())
	}
	if op.HasRest {
		if len(op.Fields) > 0 {
			out.WriteString(", ")
		}
		out.WriteString("...")
		out.WriteString(op.Rest)
	}
	out.WriteString("}")
	return out.String()
}

// TypePattern matches by type tag and binds the subject:
// "number x" matches any number and binds it to x.
type TypePattern struct {
	Token    lexer.Token // the type keyword token
	TypeName string      // number, string, bool, list, dict, tuple, function, null
	Binding  string      // empty means match type only
}

func (tp *TypePattern) patternNode()         {}
func (tp *TypePattern) TokenLiteral() string { return tp.Token.Literal }
func (tp *TypePattern) Pos() lexer.Position  { return tp.Token.Pos }
func (tp *TypePattern) String() string {
	if tp.Binding != "" {
		return tp.TypeName + " " + tp.Binding
	}
	return tp.TypeName
}

// PatternDepth computes the maximum nesting depth of a pattern. The
// matcher bounds recursion with this before walking the subject.
func PatternDepth(p Pattern) int {
	switch pat := p.(type) {
	case *TuplePattern:
		max := 0
		for _, e := range pat.Elements {
			if d := PatternDepth(e); d > max {
				max = d
			}
		}
		return max + 1
	case *ListPattern:
		max := 0
		for _, e := range pat.Elements {
			if d := PatternDepth(e); d > max {
				max = d
			}
		}
		return max + 1
	case *ObjectPattern:
		max := 0
		for _, f := range pat.Fields {
			if d := PatternDepth(f.Pattern); d > max {
				max = d
			}
		}
		return max + 1
	default:
		return 1
	}
}
