package parser

import (
	"github.com/piratebomber/go-rubolt/internal/ast"
	"github.com/piratebomber/go-rubolt/internal/lexer"
)

// parseStatement parses a single statement. On entry curToken is the
// first token of the statement; on exit curToken is past its
// terminator. Returns nil after recording an error.
func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case lexer.LET, lexer.CONST, lexer.VAR:
		return p.parseVarStatement(true)
	case lexer.DEF, lexer.FUNCTION:
		if p.peekIs(lexer.IDENT) {
			return p.parseFunctionStatement()
		}
		return p.parseExpressionStatement()
	case lexer.RETURN:
		return p.parseReturnStatement()
	case lexer.IF:
		return p.parseIfStatement()
	case lexer.WHILE:
		return p.parseWhileStatement("")
	case lexer.DO:
		return p.parseDoWhileStatement("")
	case lexer.FOR:
		return p.parseForStatement("")
	case lexer.BREAK:
		return p.parseBreakStatement()
	case lexer.CONTINUE:
		return p.parseContinueStatement()
	case lexer.PRINT:
		return p.parsePrintStatement()
	case lexer.PRINTF:
		return p.parsePrintfStatement()
	case lexer.IMPORT:
		return p.parseImportStatement()
	case lexer.TRY:
		return p.parseTryStatement()
	case lexer.THROW:
		return p.parseThrowStatement()
	case lexer.PASS:
		stmt := &ast.PassStatement{Token: p.curToken}
		p.nextToken()
		p.expectTerminator()
		return stmt
	case lexer.LBRACE:
		return p.parseBlock()
	case lexer.IDENT:
		// A label introduces a named loop: name: while ... / for ... / do ...
		if p.peekIs(lexer.COLON) {
			switch p.l.Peek(1).Type {
			case lexer.FOR, lexer.WHILE, lexer.DO:
				return p.parseLabeledStatement()
			}
		}
		return p.parseExpressionStatement()
	default:
		return p.parseExpressionStatement()
	}
}

// parseVarStatement parses let/const/var name [: type] [= value].
func (p *Parser) parseVarStatement(terminated bool) ast.Statement {
	tok := p.curToken
	isConst := p.curIs(lexer.CONST)
	p.nextToken()

	if !p.curIs(lexer.IDENT) {
		p.errorf("expected variable name after %q, got %s", tok.Literal, p.curToken.Type)
		return nil
	}
	name := &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	p.nextToken()

	stmt := &ast.VarStatement{Token: tok, Name: name, Const: isConst}

	if p.curIs(lexer.COLON) {
		p.nextToken()
		typ := p.parseTypeAnnotation()
		if typ == nil {
			return nil
		}
		stmt.Type = typ
	}

	if p.curIs(lexer.ASSIGN) {
		p.nextToken()
		p.skipNewlines()
		value := p.parseExpression(LOWEST)
		if value == nil {
			return nil
		}
		stmt.Value = value
	} else if isConst {
		p.errorf("const declaration of '%s' requires an initializer", name.Value)
		return nil
	}

	if terminated {
		p.expectTerminator()
	}
	return stmt
}

// parseFunctionStatement parses def name(params) [: type] block.
func (p *Parser) parseFunctionStatement() ast.Statement {
	tok := p.curToken
	p.nextToken() // consume 'def' / 'function'

	name := &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	p.nextToken()

	params, ok := p.parseParameterList()
	if !ok {
		return nil
	}

	stmt := &ast.FunctionStatement{Token: tok, Name: name, Parameters: params}

	// An optional return annotation: def f(): number { ... }. A colon
	// followed by a type keyword is an annotation; any other colon
	// introduces the body block.
	if p.curIs(lexer.COLON) && p.peekToken.Type.IsTypeKeyword() {
		p.nextToken()
		typ := p.parseTypeAnnotation()
		if typ == nil {
			return nil
		}
		stmt.ReturnType = typ
	}

	body := p.parseBlock()
	if body == nil {
		return nil
	}
	stmt.Body = body
	return stmt
}

func (p *Parser) parseReturnStatement() ast.Statement {
	stmt := &ast.ReturnStatement{Token: p.curToken}
	p.nextToken()

	if !p.curIs(lexer.NEWLINE) && !p.curIs(lexer.SEMICOLON) &&
		!p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		value := p.parseExpression(LOWEST)
		if value == nil {
			return nil
		}
		stmt.Value = value
	}
	p.expectTerminator()
	return stmt
}

// parseBlock parses a statement block. Braced blocks run to the
// matching '}'. Colon blocks run to the next top-level def/function
// declaration or end of input.
func (p *Parser) parseBlock() *ast.BlockStatement {
	switch p.curToken.Type {
	case lexer.LBRACE:
		block := &ast.BlockStatement{Token: p.curToken}
		p.nextToken()
		p.skipTerminators()
		for !p.curIs(lexer.RBRACE) {
			if p.curIs(lexer.EOF) {
				p.errorf("unexpected end of input, expected '}'")
				return nil
			}
			stmt := p.parseStatement()
			if stmt != nil {
				block.Statements = append(block.Statements, stmt)
			} else {
				p.synchronize()
			}
			p.skipTerminators()
		}
		p.nextToken() // consume '}'
		return block
	case lexer.COLON:
		block := &ast.BlockStatement{Token: p.curToken}
		p.nextToken()
		p.skipTerminators()
		for !p.curIs(lexer.EOF) && !p.curIs(lexer.DEF) && !p.curIs(lexer.FUNCTION) {
			stmt := p.parseStatement()
			if stmt != nil {
				block.Statements = append(block.Statements, stmt)
			} else {
				p.synchronize()
			}
			p.skipTerminators()
		}
		return block
	default:
		p.errorf("expected '{' or ':' to start a block, got %s", p.curToken.Type)
		return nil
	}
}

// parseCondition parses a condition that may be parenthesized:
// if (x) and if x are both accepted.
func (p *Parser) parseCondition() ast.Expression {
	return p.parseExpression(LOWEST)
}

func (p *Parser) parseIfStatement() ast.Statement {
	stmt := &ast.IfStatement{Token: p.curToken}
	p.nextToken()

	cond := p.parseCondition()
	if cond == nil {
		return nil
	}
	stmt.Condition = cond

	// A single non-block statement is allowed as the branch body:
	// if (n < 2) return 1.
	then := p.parseBranchBody()
	if then == nil {
		return nil
	}
	stmt.Then = then

	p.skipNewlines()
	switch p.curToken.Type {
	case lexer.ELIF:
		elifStmt := p.parseIfStatement()
		if elifStmt == nil {
			return nil
		}
		stmt.Else = elifStmt
	case lexer.ELSE:
		p.nextToken()
		p.skipNewlines()
		if p.curIs(lexer.IF) {
			elseIf := p.parseIfStatement()
			if elseIf == nil {
				return nil
			}
			stmt.Else = elseIf
		} else {
			elseBlock := p.parseBranchBody()
			if elseBlock == nil {
				return nil
			}
			stmt.Else = elseBlock
		}
	}
	return stmt
}

// parseBranchBody parses either a block or a single statement wrapped
// in a block, for use as an if/loop body.
func (p *Parser) parseBranchBody() *ast.BlockStatement {
	if p.curIs(lexer.LBRACE) || p.curIs(lexer.COLON) {
		return p.parseBlock()
	}
	tok := p.curToken
	stmt := p.parseStatement()
	if stmt == nil {
		return nil
	}
	return &ast.BlockStatement{Token: tok, Statements: []ast.Statement{stmt}}
}

func (p *Parser) parseWhileStatement(label string) ast.Statement {
	stmt := &ast.WhileStatement{Token: p.curToken, Label: label}
	p.nextToken()

	cond := p.parseCondition()
	if cond == nil {
		return nil
	}
	stmt.Condition = cond

	body := p.parseBranchBody()
	if body == nil {
		return nil
	}
	stmt.Body = body
	return stmt
}

func (p *Parser) parseDoWhileStatement(label string) ast.Statement {
	stmt := &ast.DoWhileStatement{Token: p.curToken, Label: label}
	p.nextToken()

	body := p.parseBranchBody()
	if body == nil {
		return nil
	}
	stmt.Body = body

	p.skipNewlines()
	if !p.expect(lexer.WHILE) {
		return nil
	}
	cond := p.parseCondition()
	if cond == nil {
		return nil
	}
	stmt.Condition = cond
	p.expectTerminator()
	return stmt
}

// parseForStatement parses both loop forms:
//
//	for (init; cond; incr) body
//	for (x in xs) body
func (p *Parser) parseForStatement(label string) ast.Statement {
	forTok := p.curToken
	p.nextToken()

	if !p.expect(lexer.LPAREN) {
		return nil
	}

	if p.curIs(lexer.IDENT) && p.peekIs(lexer.IN) {
		stmt := &ast.ForInStatement{Token: forTok, Label: label}
		stmt.Variable = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
		p.nextToken() // consume variable
		p.nextToken() // consume 'in'
		iterable := p.parseExpression(LOWEST)
		if iterable == nil {
			return nil
		}
		stmt.Iterable = iterable
		if !p.expect(lexer.RPAREN) {
			return nil
		}
		body := p.parseBranchBody()
		if body == nil {
			return nil
		}
		stmt.Body = body
		return stmt
	}

	stmt := &ast.ForStatement{Token: forTok, Label: label}

	// Init clause.
	if p.curIs(lexer.SEMICOLON) {
		p.nextToken()
	} else {
		var init ast.Statement
		if p.curIs(lexer.LET) || p.curIs(lexer.CONST) || p.curIs(lexer.VAR) {
			init = p.parseVarStatement(false)
		} else {
			expr := p.parseExpression(LOWEST)
			if expr == nil {
				return nil
			}
			init = &ast.ExpressionStatement{Token: forTok, Expression: expr}
		}
		if init == nil {
			return nil
		}
		stmt.Init = init
		if !p.expect(lexer.SEMICOLON) {
			return nil
		}
	}

	// Condition clause.
	if !p.curIs(lexer.SEMICOLON) {
		cond := p.parseExpression(LOWEST)
		if cond == nil {
			return nil
		}
		stmt.Condition = cond
	}
	if !p.expect(lexer.SEMICOLON) {
		return nil
	}

	// Increment clause.
	if !p.curIs(lexer.RPAREN) {
		incr := p.parseExpression(LOWEST)
		if incr == nil {
			return nil
		}
		stmt.Increment = incr
	}
	if !p.expect(lexer.RPAREN) {
		return nil
	}

	body := p.parseBranchBody()
	if body == nil {
		return nil
	}
	stmt.Body = body
	return stmt
}

// parseLabeledStatement parses name: loop. The label is recorded both
// on the wrapper and on the loop itself for break/continue targeting.
func (p *Parser) parseLabeledStatement() ast.Statement {
	labelTok := p.curToken
	label := p.curToken.Literal
	p.nextToken() // consume label
	p.nextToken() // consume ':'
	p.skipNewlines()

	var inner ast.Statement
	switch p.curToken.Type {
	case lexer.FOR:
		inner = p.parseForStatement(label)
	case lexer.WHILE:
		inner = p.parseWhileStatement(label)
	case lexer.DO:
		inner = p.parseDoWhileStatement(label)
	default:
		p.errorf("expected loop after label '%s', got %s", label, p.curToken.Type)
		return nil
	}
	if inner == nil {
		return nil
	}
	return &ast.LabeledStatement{Token: labelTok, Label: label, Stmt: inner}
}

func (p *Parser) parseBreakStatement() ast.Statement {
	stmt := &ast.BreakStatement{Token: p.curToken}
	p.nextToken()
	if p.curIs(lexer.IDENT) {
		stmt.Label = p.curToken.Literal
		p.nextToken()
	}
	p.expectTerminator()
	return stmt
}

func (p *Parser) parseContinueStatement() ast.Statement {
	stmt := &ast.ContinueStatement{Token: p.curToken}
	p.nextToken()
	if p.curIs(lexer.IDENT) {
		stmt.Label = p.curToken.Literal
		p.nextToken()
	}
	p.expectTerminator()
	return stmt
}

func (p *Parser) parsePrintStatement() ast.Statement {
	stmt := &ast.PrintStatement{Token: p.curToken}
	p.nextToken()
	if !p.expect(lexer.LPAREN) {
		return nil
	}
	p.skipNewlines()
	value := p.parseExpression(LOWEST)
	if value == nil {
		return nil
	}
	stmt.Value = value
	p.skipNewlines()
	if !p.expect(lexer.RPAREN) {
		return nil
	}
	p.expectTerminator()
	return stmt
}

func (p *Parser) parsePrintfStatement() ast.Statement {
	stmt := &ast.PrintfStatement{Token: p.curToken}
	p.nextToken()
	args, ok := p.parseExpressionList(lexer.RPAREN)
	if !ok {
		return nil
	}
	if len(args) == 0 {
		p.errorf("printf requires a format string")
		return nil
	}
	stmt.Format = args[0]
	stmt.Arguments = args[1:]
	p.expectTerminator()
	return stmt
}

func (p *Parser) parseImportStatement() ast.Statement {
	stmt := &ast.ImportStatement{Token: p.curToken}
	p.nextToken()

	if !p.curIs(lexer.STRING) {
		p.errorf("expected module spec string after 'import', got %s", p.curToken.Type)
		return nil
	}
	stmt.Spec = p.curToken.Literal
	p.nextToken()

	if p.curIs(lexer.AS) {
		p.nextToken()
		if !p.curIs(lexer.IDENT) {
			p.errorf("expected alias name after 'as', got %s", p.curToken.Type)
			return nil
		}
		stmt.Alias = p.curToken.Literal
		p.nextToken()
	}
	p.expectTerminator()
	return stmt
}

func (p *Parser) parseTryStatement() ast.Statement {
	stmt := &ast.TryStatement{Token: p.curToken}
	p.nextToken()

	body := p.parseBlock()
	if body == nil {
		return nil
	}
	stmt.Body = body

	p.skipNewlines()
	for p.curIs(lexer.CATCH) {
		clause := p.parseCatchClause()
		if clause == nil {
			return nil
		}
		stmt.Catches = append(stmt.Catches, clause)
		p.skipNewlines()
	}

	if p.curIs(lexer.FINALLY) {
		p.nextToken()
		finally := p.parseBlock()
		if finally == nil {
			return nil
		}
		stmt.Finally = finally
	}

	if len(stmt.Catches) == 0 && stmt.Finally == nil {
		p.errorf("try statement requires at least one catch or a finally")
		return nil
	}
	return stmt
}

// parseCatchClause parses one catch arm:
//
//	catch (e) { ... }            matches any kind, binds e
//	catch IndexError (e) { ... } matches IndexError and children
//	catch * { ... }              matches any kind
func (p *Parser) parseCatchClause() *ast.CatchClause {
	clause := &ast.CatchClause{Token: p.curToken, Kind: "*"}
	p.nextToken() // consume 'catch'

	switch {
	case p.curIs(lexer.STAR):
		p.nextToken()
	case p.curIs(lexer.IDENT) && !p.peekIs(lexer.RPAREN):
		clause.Kind = p.curToken.Literal
		p.nextToken()
	}

	if p.curIs(lexer.LPAREN) {
		p.nextToken()
		if !p.curIs(lexer.IDENT) {
			p.errorf("expected exception binding name, got %s", p.curToken.Type)
			return nil
		}
		clause.Binding = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
		p.nextToken()
		if !p.expect(lexer.RPAREN) {
			return nil
		}
	}

	body := p.parseBlock()
	if body == nil {
		return nil
	}
	clause.Body = body
	return clause
}

func (p *Parser) parseThrowStatement() ast.Statement {
	stmt := &ast.ThrowStatement{Token: p.curToken}
	p.nextToken()
	value := p.parseExpression(LOWEST)
	if value == nil {
		return nil
	}
	stmt.Value = value
	p.expectTerminator()
	return stmt
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	tok := p.curToken
	expr := p.parseExpression(LOWEST)
	if expr == nil {
		return nil
	}
	p.expectTerminator()
	return &ast.ExpressionStatement{Token: tok, Expression: expr}
}
