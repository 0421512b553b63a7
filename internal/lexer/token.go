package lexer

import "fmt"

// Position describes a location in the source text.
// Line and Column are 1-based; Column counts runes, not bytes.
// Offset is the byte offset of the position in the input.
type Position struct {
	Line   int
	Column int
	Offset int
}

// String returns the position formatted as "line:column".
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token represents a single lexical token with its type, literal text
// and position in the source.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}

// String returns a debug representation of the token.
func (t Token) String() string {
	return fmt.Sprintf("%s(%q) at %s", t.Type, t.Literal, t.Pos)
}

// LexerError represents a lexical error with its position.
// The lexer accumulates errors instead of stopping at the first one;
// the parser surfaces them with line/column information.
type LexerError struct {
	Message string
	Pos     Position
}

// Error implements the error interface.
func (e LexerError) Error() string {
	return fmt.Sprintf("lexical error at %s: %s", e.Pos, e.Message)
}
