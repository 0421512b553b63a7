package parser

import (
	"strconv"

	"github.com/piratebomber/go-rubolt/internal/ast"
	"github.com/piratebomber/go-rubolt/internal/lexer"
)

// parseMatchExpression parses:
//
//	match subject {
//	    case pattern [if guard] => expr
//	    ...
//	}
//
// Arms are tried in order; the first arm whose pattern and guard both
// succeed is selected.
func (p *Parser) parseMatchExpression() ast.Expression {
	expr := &ast.MatchExpression{Token: p.curToken}
	p.nextToken() // consume 'match'

	subject := p.parseExpression(LOWEST)
	if subject == nil {
		return nil
	}
	expr.Subject = subject

	if !p.expect(lexer.LBRACE) {
		return nil
	}
	p.skipTerminators()

	for !p.curIs(lexer.RBRACE) {
		if p.curIs(lexer.EOF) {
			p.errorf("unexpected end of input in match expression")
			return nil
		}
		arm := p.parseMatchArm()
		if arm == nil {
			return nil
		}
		expr.Arms = append(expr.Arms, arm)
		p.skipTerminators()
	}
	p.nextToken() // consume '}'

	if len(expr.Arms) == 0 {
		p.errorf("match expression requires at least one case arm")
		return nil
	}
	return expr
}

// parseMatchArm parses: case pattern [if guard] => expr.
func (p *Parser) parseMatchArm() *ast.MatchArm {
	if !p.expect(lexer.CASE) {
		return nil
	}

	pattern := p.parsePattern(0)
	if pattern == nil {
		return nil
	}
	arm := &ast.MatchArm{Pattern: pattern}

	if p.curIs(lexer.IF) {
		p.nextToken()
		guard := p.parseExpression(LOWEST)
		if guard == nil {
			return nil
		}
		arm.Guard = guard
	}

	if !p.expect(lexer.ARROW) {
		return nil
	}
	p.skipNewlines()

	body := p.parseExpression(LOWEST)
	if body == nil {
		return nil
	}
	arm.Body = body
	return arm
}

// maxPatternNesting bounds pattern nesting at parse time; the matcher
// enforces its own depth bound against the subject at run time.
const maxPatternNesting = 64

// parsePattern parses a single pattern. Patterns appear only in match
// arms and share the main parser, so there is no separate pattern
// lexer.
func (p *Parser) parsePattern(depth int) ast.Pattern {
	if depth > maxPatternNesting {
		p.errorf("pattern nesting too deep")
		return nil
	}

	switch p.curToken.Type {
	case lexer.UNDERSCORE:
		pat := &ast.WildcardPattern{Token: p.curToken}
		p.nextToken()
		return pat

	case lexer.NUMBER:
		tok := p.curToken
		value, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.errorf("could not parse %q as number", tok.Literal)
			return nil
		}
		p.nextToken()
		return &ast.LiteralPattern{Token: tok, Value: &ast.NumberLiteral{Token: tok, Value: value}}

	case lexer.MINUS:
		// Negative number literal pattern.
		minusTok := p.curToken
		p.nextToken()
		if !p.curIs(lexer.NUMBER) {
			p.errorf("expected number after '-' in pattern, got %s", p.curToken.Type)
			return nil
		}
		value, err := strconv.ParseFloat(p.curToken.Literal, 64)
		if err != nil {
			p.errorf("could not parse %q as number", p.curToken.Literal)
			return nil
		}
		numTok := p.curToken
		p.nextToken()
		return &ast.LiteralPattern{Token: minusTok, Value: &ast.NumberLiteral{Token: numTok, Value: -value}}

	case lexer.STRING:
		tok := p.curToken
		p.nextToken()
		return &ast.LiteralPattern{Token: tok, Value: &ast.StringLiteral{Token: tok, Value: tok.Literal}}

	case lexer.TRUE, lexer.FALSE:
		tok := p.curToken
		p.nextToken()
		return &ast.LiteralPattern{Token: tok, Value: &ast.BooleanLiteral{Token: tok, Value: tok.Type == lexer.TRUE}}

	case lexer.NULL:
		tok := p.curToken
		p.nextToken()
		return &ast.LiteralPattern{Token: tok, Value: &ast.NullLiteral{Token: tok}}

	case lexer.IDENT:
		tok := p.curToken
		// Two adjacent identifiers form a type-tag pattern for the
		// non-keyword type names: "list xs", "dict d", "tuple t",
		// "function f".
		if p.peekIs(lexer.IDENT) {
			switch tok.Literal {
			case "list", "dict", "tuple", "function", "range":
				p.nextToken()
				pat := &ast.TypePattern{Token: tok, TypeName: tok.Literal, Binding: p.curToken.Literal}
				p.nextToken()
				return pat
			}
		}
		p.nextToken()
		return &ast.IdentifierPattern{Token: tok, Name: tok.Literal}

	case lexer.LPAREN:
		return p.parseTuplePattern(depth)

	case lexer.LBRACK:
		return p.parseListPattern(depth)

	case lexer.LBRACE:
		return p.parseObjectPattern(depth)

	case lexer.TYPE_NUMBER, lexer.TYPE_STRING, lexer.TYPE_BOOL, lexer.TYPE_ANY:
		return p.parseTypePattern()

	default:
		p.errorf("unexpected token %s in pattern", p.curToken.Type)
		return nil
	}
}

// parseTypePattern parses a type tag with an optional binding:
// "number x" matches any number and binds it to x.
func (p *Parser) parseTypePattern() ast.Pattern {
	pat := &ast.TypePattern{Token: p.curToken, TypeName: p.curToken.Literal}
	p.nextToken()
	if p.curIs(lexer.IDENT) {
		pat.Binding = p.curToken.Literal
		p.nextToken()
	}
	return pat
}

func (p *Parser) parseTuplePattern(depth int) ast.Pattern {
	pat := &ast.TuplePattern{Token: p.curToken}
	p.nextToken() // consume '('
	p.skipNewlines()

	for !p.curIs(lexer.RPAREN) {
		if p.curIs(lexer.EOF) {
			p.errorf("unexpected end of input in tuple pattern")
			return nil
		}
		elem := p.parsePattern(depth + 1)
		if elem == nil {
			return nil
		}
		pat.Elements = append(pat.Elements, elem)
		p.skipNewlines()
		if p.curIs(lexer.COMMA) {
			p.nextToken()
			p.skipNewlines()
		} else if !p.curIs(lexer.RPAREN) {
			p.errorf("expected ',' or ')' in tuple pattern, got %s", p.curToken.Type)
			return nil
		}
	}
	p.nextToken() // consume ')'
	return pat
}

func (p *Parser) parseListPattern(depth int) ast.Pattern {
	pat := &ast.ListPattern{Token: p.curToken}
	p.nextToken() // consume '['
	p.skipNewlines()

	for !p.curIs(lexer.RBRACK) {
		if p.curIs(lexer.EOF) {
			p.errorf("unexpected end of input in list pattern")
			return nil
		}
		if p.curIs(lexer.ELLIPSIS) {
			p.nextToken()
			pat.HasRest = true
			if p.curIs(lexer.IDENT) {
				pat.Rest = p.curToken.Literal
				p.nextToken()
			}
			p.skipNewlines()
			break
		}
		elem := p.parsePattern(depth + 1)
		if elem == nil {
			return nil
		}
		pat.Elements = append(pat.Elements, elem)
		p.skipNewlines()
		if p.curIs(lexer.COMMA) {
			p.nextToken()
			p.skipNewlines()
		} else if !p.curIs(lexer.RBRACK) {
			p.errorf("expected ',' or ']' in list pattern, got %s", p.curToken.Type)
			return nil
		}
	}
	if !p.expect(lexer.RBRACK) {
		return nil
	}
	return pat
}

func (p *Parser) parseObjectPattern(depth int) ast.Pattern {
	pat := &ast.ObjectPattern{Token: p.curToken}
	p.nextToken() // consume '{'
	p.skipNewlines()

	for !p.curIs(lexer.RBRACE) {
		if p.curIs(lexer.EOF) {
			p.errorf("unexpected end of input in object pattern")
			return nil
		}
		if p.curIs(lexer.ELLIPSIS) {
			p.nextToken()
			pat.HasRest = true
			if p.curIs(lexer.IDENT) {
				pat.Rest = p.curToken.Literal
				p.nextToken()
			}
			p.skipNewlines()
			break
		}

		if !p.curIs(lexer.IDENT) && !p.curIs(lexer.STRING) {
			p.errorf("expected field name in object pattern, got %s", p.curToken.Type)
			return nil
		}
		name := p.curToken.Literal
		nameTok := p.curToken
		p.nextToken()

		field := ast.FieldPattern{Name: name}
		if p.curIs(lexer.COLON) {
			p.nextToken()
			p.skipNewlines()
			sub := p.parsePattern(depth + 1)
			if sub == nil {
				return nil
			}
			field.Pattern = sub
		} else {
			// Shorthand { x } binds the field to its own name.
			field.Pattern = &ast.IdentifierPattern{Token: nameTok, Name: name}
		}
		pat.Fields = append(pat.Fields, field)

		p.skipNewlines()
		if p.curIs(lexer.COMMA) {
			p.nextToken()
			p.skipNewlines()
		} else if !p.curIs(lexer.RBRACE) {
			p.errorf("expected ',' or '}' in object pattern, got %s", p.curToken.Type)
			return nil
		}
	}
	if !p.expect(lexer.RBRACE) {
		return nil
	}
	return pat
}
