// Package parser implements the recursive-descent parser for Rubolt.
// Expressions are parsed with precedence climbing (Pratt parsing);
// statements with plain recursive descent. The parser accumulates
// errors and recovers at statement boundaries (panic-mode recovery),
// so a single run reports as many problems as possible.
package parser

import (
	"fmt"

	"github.com/piratebomber/go-rubolt/internal/ast"
	"github.com/piratebomber/go-rubolt/internal/lexer"
)

// Operator precedence levels, lowest first.
const (
	LOWEST      = iota
	ASSIGNMENT  // =
	LOGICAL_OR  // or, ||
	LOGICAL_AND // and, &&
	EQUALITY    // ==, !=
	COMPARISON  // <, <=, >, >=
	ADDITIVE    // +, -
	PRODUCT     // *, /, %
	UNARY       // !x, -x, not x
	POSTFIX     // call, index, member (left-associative postfix)
)

// precedences maps token types to their precedence levels.
var precedences = map[lexer.TokenType]int{
	lexer.ASSIGN:    ASSIGNMENT,
	lexer.OR:        LOGICAL_OR,
	lexer.PIPE_PIPE: LOGICAL_OR,
	lexer.AND:       LOGICAL_AND,
	lexer.AMP_AMP:   LOGICAL_AND,
	lexer.EQ:        EQUALITY,
	lexer.NOT_EQ:    EQUALITY,
	lexer.LT:        COMPARISON,
	lexer.LE:        COMPARISON,
	lexer.GT:        COMPARISON,
	lexer.GE:        COMPARISON,
	lexer.PLUS:      ADDITIVE,
	lexer.MINUS:     ADDITIVE,
	lexer.STAR:      PRODUCT,
	lexer.SLASH:     PRODUCT,
	lexer.PERCENT:   PRODUCT,
	lexer.LPAREN:    POSTFIX,
	lexer.LBRACK:    POSTFIX,
	lexer.DOT:       POSTFIX,
}

// prefixParseFn parses prefix expressions (literals, unary ops, grouping).
type prefixParseFn func() ast.Expression

// infixParseFn parses infix expressions (binary ops, calls, member access).
type infixParseFn func(ast.Expression) ast.Expression

// Parser builds an AST from the token stream produced by the lexer.
type Parser struct {
	l *lexer.Lexer

	curToken  lexer.Token
	peekToken lexer.Token

	errors []ParseError

	prefixParseFns map[lexer.TokenType]prefixParseFn
	infixParseFns  map[lexer.TokenType]infixParseFn

	// nextSite numbers dynamic-dispatch sites (call, index, member) in
	// source order. Site IDs key the inline-cache subsystem.
	nextSite ast.SiteID
}

// ParseError is a parse error with its source position.
type ParseError struct {
	Message string
	Pos     lexer.Position
}

// Error implements the error interface.
func (e ParseError) Error() string {
	return fmt.Sprintf("parse error at %s: %s", e.Pos, e.Message)
}

// New creates a Parser reading from l.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}

	p.prefixParseFns = make(map[lexer.TokenType]prefixParseFn)
	p.registerPrefix(lexer.IDENT, p.parseIdentifier)
	p.registerPrefix(lexer.NUMBER, p.parseNumberLiteral)
	p.registerPrefix(lexer.STRING, p.parseStringLiteral)
	p.registerPrefix(lexer.TRUE, p.parseBooleanLiteral)
	p.registerPrefix(lexer.FALSE, p.parseBooleanLiteral)
	p.registerPrefix(lexer.NULL, p.parseNullLiteral)
	p.registerPrefix(lexer.BANG, p.parseUnaryExpression)
	p.registerPrefix(lexer.MINUS, p.parseUnaryExpression)
	p.registerPrefix(lexer.NOT, p.parseUnaryExpression)
	p.registerPrefix(lexer.LPAREN, p.parseGroupedOrTuple)
	p.registerPrefix(lexer.LBRACK, p.parseListLiteral)
	p.registerPrefix(lexer.LBRACE, p.parseDictLiteral)
	p.registerPrefix(lexer.DEF, p.parseFunctionLiteral)
	p.registerPrefix(lexer.FUNCTION, p.parseFunctionLiteral)
	p.registerPrefix(lexer.MATCH, p.parseMatchExpression)
	p.registerPrefix(lexer.UNDERSCORE, p.parseIdentifier)
	// async/await are reserved words but resolve as ordinary callables
	// backed by the task builtins.
	p.registerPrefix(lexer.ASYNC, p.parseIdentifier)
	p.registerPrefix(lexer.AWAIT, p.parseIdentifier)

	p.infixParseFns = make(map[lexer.TokenType]infixParseFn)
	for _, tt := range []lexer.TokenType{
		lexer.PLUS, lexer.MINUS, lexer.STAR, lexer.SLASH, lexer.PERCENT,
		lexer.EQ, lexer.NOT_EQ, lexer.LT, lexer.LE, lexer.GT, lexer.GE,
		lexer.AND, lexer.AMP_AMP, lexer.OR, lexer.PIPE_PIPE,
	} {
		p.registerInfix(tt, p.parseBinaryExpression)
	}
	p.registerInfix(lexer.ASSIGN, p.parseAssignExpression)
	p.registerInfix(lexer.LPAREN, p.parseCallExpression)
	p.registerInfix(lexer.LBRACK, p.parseIndexExpression)
	p.registerInfix(lexer.DOT, p.parseMemberExpression)

	// Prime curToken and peekToken.
	p.nextToken()
	p.nextToken()
	return p
}

// registerPrefix registers a prefix parse function for a token type.
func (p *Parser) registerPrefix(tokenType lexer.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

// registerInfix registers an infix parse function for a token type.
func (p *Parser) registerInfix(tokenType lexer.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

// nextToken advances the token window by one.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

// skipNewlines consumes NEWLINE tokens. Used inside bracketed
// constructs where line breaks are not statement terminators.
func (p *Parser) skipNewlines() {
	for p.curToken.Type == lexer.NEWLINE {
		p.nextToken()
	}
}

// skipTerminators consumes NEWLINE and SEMICOLON tokens between
// statements.
func (p *Parser) skipTerminators() {
	for p.curToken.Type == lexer.NEWLINE || p.curToken.Type == lexer.SEMICOLON {
		p.nextToken()
	}
}

// curIs reports whether the current token has the given type.
func (p *Parser) curIs(t lexer.TokenType) bool { return p.curToken.Type == t }

// peekIs reports whether the next token has the given type.
func (p *Parser) peekIs(t lexer.TokenType) bool { return p.peekToken.Type == t }

// expect consumes the current token when it matches t, or records an
// error and returns false.
func (p *Parser) expect(t lexer.TokenType) bool {
	if p.curIs(t) {
		p.nextToken()
		return true
	}
	p.errorf("expected %s, got %s", t, p.curToken.Type)
	return false
}

// getPrecedence returns the precedence of a token type (LOWEST if not found).
func (p *Parser) getPrecedence(tokenType lexer.TokenType) int {
	if prec, ok := precedences[tokenType]; ok {
		return prec
	}
	return LOWEST
}

// errorf records a parse error at the current token.
func (p *Parser) errorf(format string, args ...any) {
	p.errors = append(p.errors, ParseError{
		Message: fmt.Sprintf(format, args...),
		Pos:     p.curToken.Pos,
	})
}

// Errors returns all accumulated parse errors, including lexical
// errors surfaced from the lexer. Any error makes the engine refuse
// to execute the program.
func (p *Parser) Errors() []ParseError {
	errs := make([]ParseError, 0, len(p.errors)+len(p.l.Errors()))
	for _, le := range p.l.Errors() {
		errs = append(errs, ParseError{Message: le.Message, Pos: le.Pos})
	}
	errs = append(errs, p.errors...)
	return errs
}

// HadError reports whether any parse or lexical error occurred.
func (p *Parser) HadError() bool {
	return len(p.errors) > 0 || len(p.l.Errors()) > 0
}

// SiteCount returns the number of dispatch sites assigned so far.
// The engine sizes its inline-cache table from this.
func (p *Parser) SiteCount() int { return int(p.nextSite) }

// SetSiteBase makes site numbering start at base. The REPL uses this
// so sites of successive inputs never collide in the cache table.
func (p *Parser) SetSiteBase(base int) { p.nextSite = ast.SiteID(base) }

// newSite assigns the next call-site ID.
func (p *Parser) newSite() ast.SiteID {
	id := p.nextSite
	p.nextSite++
	return id
}

// ParseProgram parses the whole token stream into a Program.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}

	p.skipTerminators()
	for !p.curIs(lexer.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		} else {
			p.synchronize()
		}
		p.skipTerminators()
	}
	return program
}

// synchronize recovers from a parse error by discarding tokens until
// the next statement boundary.
func (p *Parser) synchronize() {
	for !p.curIs(lexer.EOF) {
		if p.curIs(lexer.NEWLINE) || p.curIs(lexer.SEMICOLON) {
			p.nextToken()
			return
		}
		p.nextToken()
	}
}

// expectTerminator checks that the statement just parsed is properly
// terminated by a newline, ';', EOF or a closing brace.
func (p *Parser) expectTerminator() {
	switch p.curToken.Type {
	case lexer.NEWLINE, lexer.SEMICOLON:
		p.nextToken()
	case lexer.EOF, lexer.RBRACE:
		// Closing brace or end of input terminates the last statement
		// of a block without an explicit terminator.
	default:
		p.errorf("expected newline or ';' after statement, got %s", p.curToken.Type)
		p.synchronize()
	}
}
