package parser

import (
	"strconv"

	"github.com/piratebomber/go-rubolt/internal/ast"
	"github.com/piratebomber/go-rubolt/internal/lexer"
)

// parseExpression parses an expression with the given minimum binding
// precedence. On entry curToken is the first token of the expression;
// on exit curToken is the first token after it.
func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.errorf("unexpected token %s in expression", p.curToken.Type)
		return nil
	}
	left := prefix()
	if left == nil {
		return nil
	}

	for precedence < p.getPrecedence(p.curToken.Type) {
		infix := p.infixParseFns[p.curToken.Type]
		if infix == nil {
			return left
		}
		left = infix(left)
		if left == nil {
			return nil
		}
	}
	return left
}

func (p *Parser) parseIdentifier() ast.Expression {
	ident := &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	p.nextToken()
	return ident
}

func (p *Parser) parseNumberLiteral() ast.Expression {
	tok := p.curToken
	value, err := strconv.ParseFloat(tok.Literal, 64)
	if err != nil {
		p.errorf("could not parse %q as number", tok.Literal)
		return nil
	}
	p.nextToken()
	return &ast.NumberLiteral{Token: tok, Value: value}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	lit := &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
	p.nextToken()
	return lit
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	lit := &ast.BooleanLiteral{Token: p.curToken, Value: p.curIs(lexer.TRUE)}
	p.nextToken()
	return lit
}

func (p *Parser) parseNullLiteral() ast.Expression {
	lit := &ast.NullLiteral{Token: p.curToken}
	p.nextToken()
	return lit
}

func (p *Parser) parseUnaryExpression() ast.Expression {
	tok := p.curToken
	p.nextToken()
	right := p.parseExpression(UNARY)
	if right == nil {
		return nil
	}
	return &ast.UnaryExpression{Token: tok, Operator: tok.Literal, Right: right}
}

// parseGroupedOrTuple parses '(' expr ')' as a grouped expression, or
// '(' expr ',' ... ')' as a tuple literal.
func (p *Parser) parseGroupedOrTuple() ast.Expression {
	tok := p.curToken
	p.nextToken() // consume '('
	p.skipNewlines()

	if p.curIs(lexer.RPAREN) {
		p.nextToken()
		return &ast.TupleLiteral{Token: tok}
	}

	first := p.parseExpression(LOWEST)
	if first == nil {
		return nil
	}
	p.skipNewlines()

	if !p.curIs(lexer.COMMA) {
		if !p.expect(lexer.RPAREN) {
			return nil
		}
		return &ast.GroupedExpression{Token: tok, Expression: first}
	}

	elements := []ast.Expression{first}
	for p.curIs(lexer.COMMA) {
		p.nextToken()
		p.skipNewlines()
		if p.curIs(lexer.RPAREN) {
			break // trailing comma
		}
		elem := p.parseExpression(LOWEST)
		if elem == nil {
			return nil
		}
		elements = append(elements, elem)
		p.skipNewlines()
	}
	if !p.expect(lexer.RPAREN) {
		return nil
	}
	return &ast.TupleLiteral{Token: tok, Elements: elements}
}

func (p *Parser) parseListLiteral() ast.Expression {
	tok := p.curToken
	elements, ok := p.parseExpressionList(lexer.RBRACK)
	if !ok {
		return nil
	}
	return &ast.ListLiteral{Token: tok, Elements: elements}
}

// parseExpressionList parses a comma-separated expression list after
// an opening delimiter, up to and including the end token. Newlines
// inside the list are not statement terminators.
func (p *Parser) parseExpressionList(end lexer.TokenType) ([]ast.Expression, bool) {
	var list []ast.Expression

	p.nextToken() // consume opening delimiter
	p.skipNewlines()

	for !p.curIs(end) {
		if p.curIs(lexer.EOF) {
			p.errorf("unexpected end of input, expected %s", end)
			return nil, false
		}
		expr := p.parseExpression(LOWEST)
		if expr == nil {
			return nil, false
		}
		list = append(list, expr)
		p.skipNewlines()
		if p.curIs(lexer.COMMA) {
			p.nextToken()
			p.skipNewlines()
		} else if !p.curIs(end) {
			p.errorf("expected ',' or %s in list, got %s", end, p.curToken.Type)
			return nil, false
		}
	}
	p.nextToken() // consume end delimiter
	return list, true
}

func (p *Parser) parseDictLiteral() ast.Expression {
	tok := p.curToken
	dict := &ast.DictLiteral{Token: tok}

	p.nextToken() // consume '{'
	p.skipNewlines()

	for !p.curIs(lexer.RBRACE) {
		if p.curIs(lexer.EOF) {
			p.errorf("unexpected end of input in dict literal")
			return nil
		}

		var key string
		switch {
		case p.curIs(lexer.IDENT), p.curIs(lexer.STRING), p.curToken.Type.IsKeyword():
			key = p.curToken.Literal
		default:
			p.errorf("expected dict key, got %s", p.curToken.Type)
			return nil
		}
		p.nextToken()
		if !p.expect(lexer.COLON) {
			return nil
		}
		p.skipNewlines()
		value := p.parseExpression(LOWEST)
		if value == nil {
			return nil
		}
		dict.Entries = append(dict.Entries, ast.DictEntry{Key: key, Value: value})

		p.skipNewlines()
		if p.curIs(lexer.COMMA) {
			p.nextToken()
			p.skipNewlines()
		} else if !p.curIs(lexer.RBRACE) {
			p.errorf("expected ',' or '}' in dict literal, got %s", p.curToken.Type)
			return nil
		}
	}
	p.nextToken() // consume '}'
	return dict
}

// parseFunctionLiteral parses an anonymous function expression:
// def (a, b) { ... }. Named declarations are handled by the statement
// parser.
func (p *Parser) parseFunctionLiteral() ast.Expression {
	tok := p.curToken
	p.nextToken() // consume 'def' / 'function'

	params, ok := p.parseParameterList()
	if !ok {
		return nil
	}
	body := p.parseBlock()
	if body == nil {
		return nil
	}
	return &ast.FunctionLiteral{Token: tok, Parameters: params, Body: body}
}

// parseParameterList parses '(' name [: type] , ... ')'.
func (p *Parser) parseParameterList() ([]*ast.Parameter, bool) {
	if !p.expect(lexer.LPAREN) {
		return nil, false
	}
	p.skipNewlines()

	var params []*ast.Parameter
	for !p.curIs(lexer.RPAREN) {
		if !p.curIs(lexer.IDENT) {
			p.errorf("expected parameter name, got %s", p.curToken.Type)
			return nil, false
		}
		param := &ast.Parameter{
			Name: &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal},
		}
		p.nextToken()
		if p.curIs(lexer.COLON) {
			p.nextToken()
			typ := p.parseTypeAnnotation()
			if typ == nil {
				return nil, false
			}
			param.Type = typ
		}
		params = append(params, param)

		p.skipNewlines()
		if p.curIs(lexer.COMMA) {
			p.nextToken()
			p.skipNewlines()
		} else if !p.curIs(lexer.RPAREN) {
			p.errorf("expected ',' or ')' in parameter list, got %s", p.curToken.Type)
			return nil, false
		}
	}
	p.nextToken() // consume ')'
	return params, true
}

// parseTypeAnnotation parses a type keyword (string, number, bool,
// void, any). Annotations are advisory only.
func (p *Parser) parseTypeAnnotation() *ast.TypeAnnotation {
	if !p.curToken.Type.IsTypeKeyword() {
		p.errorf("expected type name, got %s", p.curToken.Type)
		return nil
	}
	ta := &ast.TypeAnnotation{Token: p.curToken, Name: p.curToken.Literal}
	p.nextToken()
	return ta
}

func (p *Parser) parseBinaryExpression(left ast.Expression) ast.Expression {
	tok := p.curToken
	precedence := p.getPrecedence(tok.Type)
	p.nextToken()
	p.skipNewlines()
	right := p.parseExpression(precedence)
	if right == nil {
		return nil
	}
	return &ast.BinaryExpression{Token: tok, Left: left, Operator: tok.Literal, Right: right}
}

// parseAssignExpression parses target = value. Assignment is
// right-associative and only identifier, index and member targets are
// assignable.
func (p *Parser) parseAssignExpression(left ast.Expression) ast.Expression {
	tok := p.curToken

	switch left.(type) {
	case *ast.Identifier, *ast.IndexExpression, *ast.MemberExpression:
	default:
		p.errorf("invalid assignment target")
		return nil
	}

	p.nextToken()
	p.skipNewlines()
	value := p.parseExpression(ASSIGNMENT - 1)
	if value == nil {
		return nil
	}
	return &ast.AssignExpression{Token: tok, Target: left, Value: value}
}

func (p *Parser) parseCallExpression(callee ast.Expression) ast.Expression {
	tok := p.curToken
	args, ok := p.parseExpressionList(lexer.RPAREN)
	if !ok {
		return nil
	}
	return &ast.CallExpression{
		Token:     tok,
		Callee:    callee,
		Arguments: args,
		Site:      p.newSite(),
	}
}

func (p *Parser) parseIndexExpression(target ast.Expression) ast.Expression {
	tok := p.curToken
	p.nextToken() // consume '['
	p.skipNewlines()
	index := p.parseExpression(LOWEST)
	if index == nil {
		return nil
	}
	p.skipNewlines()
	if !p.expect(lexer.RBRACK) {
		return nil
	}
	return &ast.IndexExpression{
		Token:  tok,
		Target: target,
		Index:  index,
		Site:   p.newSite(),
	}
}

func (p *Parser) parseMemberExpression(target ast.Expression) ast.Expression {
	tok := p.curToken
	p.nextToken() // consume '.'

	// Member names may collide with keywords (e.type, task.await);
	// any word token is accepted here.
	if !p.curIs(lexer.IDENT) && !p.curToken.Type.IsKeyword() && !p.curToken.Type.IsTypeKeyword() {
		p.errorf("expected member name after '.', got %s", p.curToken.Type)
		return nil
	}
	member := p.curToken.Literal
	p.nextToken()

	return &ast.MemberExpression{
		Token:  tok,
		Target: target,
		Member: member,
		Site:   p.newSite(),
	}
}
