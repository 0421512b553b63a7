package ast

import (
	"testing"

	"github.com/piratebomber/go-rubolt/internal/lexer"
)

func ident(name string) *Identifier {
	return &Identifier{
		Token: lexer.Token{Type: lexer.IDENT, Literal: name},
		Value: name,
	}
}

func num(literal string, value float64) *NumberLiteral {
	return &NumberLiteral{
		Token: lexer.Token{Type: lexer.NUMBER, Literal: literal},
		Value: value,
	}
}

func TestProgramString(t *testing.T) {
	program := &Program{
		Statements: []Statement{
			&VarStatement{
				Token: lexer.Token{Type: lexer.LET, Literal: "let"},
				Name:  ident("x"),
				Value: num("5", 5),
			},
		},
	}
	if got := program.String(); got != "let x = 5;" {
		t.Errorf("String() = %q, want %q", got, "let x = 5;")
	}
}

func TestBinaryExpressionString(t *testing.T) {
	expr := &BinaryExpression{
		Token:    lexer.Token{Type: lexer.PLUS, Literal: "+"},
		Left:     num("1", 1),
		Operator: "+",
		Right: &BinaryExpression{
			Token:    lexer.Token{Type: lexer.STAR, Literal: "*"},
			Left:     num("2", 2),
			Operator: "*",
			Right:    num("3", 3),
		},
	}
	if got := expr.String(); got != "(1 + (2 * 3))" {
		t.Errorf("String() = %q", got)
	}
}

func TestStringLiteralQuoted(t *testing.T) {
	lit := &StringLiteral{
		Token: lexer.Token{Type: lexer.STRING, Literal: "hi"},
		Value: "hi",
	}
	if got := lit.String(); got != `"hi"` {
		t.Errorf("String() = %q", got)
	}
}

func TestPatternStrings(t *testing.T) {
	tests := []struct {
		pattern Pattern
		want    string
	}{
		{&WildcardPattern{}, "_"},
		{&IdentifierPattern{Name: "x"}, "x"},
		{&TypePattern{TypeName: "number", Binding: "n"}, "number n"},
		{
			&ListPattern{
				Elements: []Pattern{&IdentifierPattern{Name: "a"}},
				HasRest:  true,
				Rest:     "rest",
			},
			"[a, ...rest]",
		},
		{
			&ObjectPattern{
				Fields: []FieldPattern{{Name: "k", Pattern: &IdentifierPattern{Name: "v"}}},
			},
			"{k: v}",
		},
	}
	for _, tt := range tests {
		if got := tt.pattern.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestPatternDepth(t *testing.T) {
	flat := &IdentifierPattern{Name: "x"}
	if got := PatternDepth(flat); got != 1 {
		t.Errorf("flat depth = %d", got)
	}
	nested := &ListPattern{Elements: []Pattern{
		&TuplePattern{Elements: []Pattern{
			&IdentifierPattern{Name: "x"},
		}},
	}}
	if got := PatternDepth(nested); got != 3 {
		t.Errorf("nested depth = %d, want 3", got)
	}
}

func TestPositions(t *testing.T) {
	pos := lexer.Position{Line: 4, Column: 2}
	stmt := &ReturnStatement{Token: lexer.Token{Type: lexer.RETURN, Literal: "return", Pos: pos}}
	if got := stmt.Pos(); got != pos {
		t.Errorf("Pos() = %v, want %v", got, pos)
	}
}
