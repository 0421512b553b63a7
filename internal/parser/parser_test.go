package parser

import (
	"strings"
	"testing"

	"github.com/piratebomber/go-rubolt/internal/ast"
	"github.com/piratebomber/go-rubolt/internal/lexer"
)

// parse is the test helper: it parses source and fails the test on
// unexpected errors.
func parse(t *testing.T, source string) *ast.Program {
	t.Helper()
	p := New(lexer.New(source))
	program := p.ParseProgram()
	if p.HadError() {
		t.Fatalf("parse errors for %q: %v", source, p.Errors())
	}
	return program
}

// parseFail expects at least one parse error.
func parseFail(t *testing.T, source string) []ParseError {
	t.Helper()
	p := New(lexer.New(source))
	p.ParseProgram()
	if !p.HadError() {
		t.Fatalf("expected parse errors for %q", source)
	}
	return p.Errors()
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3));"},
		{"1 * 2 + 3", "((1 * 2) + 3);"},
		{"-a * b", "((-a) * b);"},
		{"!x == y", "((!x) == y);"},
		{"a + b - c", "((a + b) - c);"},
		{"a < b == c > d", "((a < b) == (c > d));"},
		{"a and b or c", "((a and b) or c);"},
		{"a or b and c", "(a or (b and c));"},
		{"a && b || c", "((a && b) || c);"},
		{"(1 + 2) * 3", "(((1 + 2)) * 3);"},
		{"a + f(b) * c", "(a + (f(b) * c));"},
		{"x = y = z", "(x = (y = z));"},
		{"a == b != c", "((a == b) != c);"},
		{"not a and b", "((not a) and b);"},
		{"a % b * c", "((a % b) * c);"},
	}

	for _, tt := range tests {
		program := parse(t, tt.input)
		if got := program.String(); got != tt.want {
			t.Errorf("input %q: got %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestPostfixChaining(t *testing.T) {
	program := parse(t, "obj.field[0](x).done")
	want := "(((obj.field)[0])(x).done);"
	if got := program.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestStatementTerminators(t *testing.T) {
	// Newline and ';' are equivalent statement terminators.
	newlines := parse(t, "let a = 1\nlet b = 2\n")
	semis := parse(t, "let a = 1; let b = 2;")
	if len(newlines.Statements) != 2 || len(semis.Statements) != 2 {
		t.Fatalf("expected 2 statements each, got %d and %d",
			len(newlines.Statements), len(semis.Statements))
	}
	if newlines.String() != semis.String() {
		t.Errorf("terminator forms disagree: %q vs %q", newlines.String(), semis.String())
	}
}

func TestVarStatements(t *testing.T) {
	program := parse(t, "let x = 5\nconst y = 10\nvar z\nlet n: number = 1")

	tests := []struct {
		name  string
		cons  bool
		typed string
	}{
		{"x", false, ""},
		{"y", true, ""},
		{"z", false, ""},
		{"n", false, "number"},
	}

	if len(program.Statements) != len(tests) {
		t.Fatalf("expected %d statements, got %d", len(tests), len(program.Statements))
	}
	for i, tt := range tests {
		stmt, ok := program.Statements[i].(*ast.VarStatement)
		if !ok {
			t.Fatalf("statement %d is %T, want *ast.VarStatement", i, program.Statements[i])
		}
		if stmt.Name.Value != tt.name {
			t.Errorf("statement %d: name %q, want %q", i, stmt.Name.Value, tt.name)
		}
		if stmt.Const != tt.cons {
			t.Errorf("statement %d: const %v, want %v", i, stmt.Const, tt.cons)
		}
		if tt.typed != "" && (stmt.Type == nil || stmt.Type.Name != tt.typed) {
			t.Errorf("statement %d: missing type annotation %q", i, tt.typed)
		}
	}
}

func TestConstRequiresInitializer(t *testing.T) {
	parseFail(t, "const x")
}

func TestFunctionDeclaration(t *testing.T) {
	program := parse(t, "def add(a, b) { return a + b }")
	fn, ok := program.Statements[0].(*ast.FunctionStatement)
	if !ok {
		t.Fatalf("statement is %T, want *ast.FunctionStatement", program.Statements[0])
	}
	if fn.Name.Value != "add" {
		t.Errorf("name = %q, want add", fn.Name.Value)
	}
	if len(fn.Parameters) != 2 {
		t.Fatalf("expected 2 parameters, got %d", len(fn.Parameters))
	}
	if len(fn.Body.Statements) != 1 {
		t.Fatalf("expected 1 body statement, got %d", len(fn.Body.Statements))
	}
}

func TestAnonymousFunction(t *testing.T) {
	program := parse(t, "let f = def (x) { return x }")
	decl := program.Statements[0].(*ast.VarStatement)
	if _, ok := decl.Value.(*ast.FunctionLiteral); !ok {
		t.Fatalf("value is %T, want *ast.FunctionLiteral", decl.Value)
	}
}

func TestIfElifElse(t *testing.T) {
	program := parse(t, `
if a { pass }
elif b { pass }
else { pass }
`)
	ifStmt, ok := program.Statements[0].(*ast.IfStatement)
	if !ok {
		t.Fatalf("statement is %T", program.Statements[0])
	}
	elif, ok := ifStmt.Else.(*ast.IfStatement)
	if !ok {
		t.Fatalf("elif branch is %T, want *ast.IfStatement", ifStmt.Else)
	}
	if _, ok := elif.Else.(*ast.BlockStatement); !ok {
		t.Fatalf("else branch is %T, want *ast.BlockStatement", elif.Else)
	}
}

func TestLoops(t *testing.T) {
	program := parse(t, `
while x < 10 { x = x + 1 }
do { x = x - 1 } while x > 0
for (let i = 0; i < 5; i = i + 1) { pass }
for (item in items) { print(item) }
`)
	if len(program.Statements) != 4 {
		t.Fatalf("expected 4 statements, got %d", len(program.Statements))
	}
	if _, ok := program.Statements[0].(*ast.WhileStatement); !ok {
		t.Errorf("statement 0 is %T", program.Statements[0])
	}
	if _, ok := program.Statements[1].(*ast.DoWhileStatement); !ok {
		t.Errorf("statement 1 is %T", program.Statements[1])
	}
	forStmt, ok := program.Statements[2].(*ast.ForStatement)
	if !ok {
		t.Fatalf("statement 2 is %T", program.Statements[2])
	}
	if forStmt.Init == nil || forStmt.Condition == nil || forStmt.Increment == nil {
		t.Error("for statement is missing a clause")
	}
	forIn, ok := program.Statements[3].(*ast.ForInStatement)
	if !ok {
		t.Fatalf("statement 3 is %T", program.Statements[3])
	}
	if forIn.Variable.Value != "item" {
		t.Errorf("for-in variable = %q", forIn.Variable.Value)
	}
}

func TestLabeledLoop(t *testing.T) {
	program := parse(t, `
outer: while true {
    while true {
        break outer
    }
}
`)
	labeled, ok := program.Statements[0].(*ast.LabeledStatement)
	if !ok {
		t.Fatalf("statement is %T, want *ast.LabeledStatement", program.Statements[0])
	}
	loop, ok := labeled.Stmt.(*ast.WhileStatement)
	if !ok {
		t.Fatalf("labelled statement is %T", labeled.Stmt)
	}
	if loop.Label != "outer" {
		t.Errorf("loop label = %q, want outer", loop.Label)
	}

	inner := loop.Body.Statements[0].(*ast.WhileStatement)
	brk := inner.Body.Statements[0].(*ast.BreakStatement)
	if brk.Label != "outer" {
		t.Errorf("break label = %q, want outer", brk.Label)
	}
}

func TestTryCatchFinally(t *testing.T) {
	program := parse(t, `
try { risky() }
catch IndexError (e) { print(e) }
catch (e) { print(e) }
finally { done() }
`)
	try, ok := program.Statements[0].(*ast.TryStatement)
	if !ok {
		t.Fatalf("statement is %T", program.Statements[0])
	}
	if len(try.Catches) != 2 {
		t.Fatalf("expected 2 catch clauses, got %d", len(try.Catches))
	}
	if try.Catches[0].Kind != "IndexError" {
		t.Errorf("first catch kind = %q", try.Catches[0].Kind)
	}
	if try.Catches[1].Kind != "*" {
		t.Errorf("second catch kind = %q, want *", try.Catches[1].Kind)
	}
	if try.Catches[0].Binding == nil || try.Catches[0].Binding.Value != "e" {
		t.Error("first catch binding missing")
	}
	if try.Finally == nil {
		t.Error("finally block missing")
	}
}

func TestTryRequiresCatchOrFinally(t *testing.T) {
	parseFail(t, "try { x() }")
}

func TestCollectionLiterals(t *testing.T) {
	program := parse(t, `
let l = [1, 2, 3]
let d = { a: 1, "b": 2 }
let t = (1, 2)
let g = (1 + 2)
`)
	if _, ok := program.Statements[0].(*ast.VarStatement).Value.(*ast.ListLiteral); !ok {
		t.Error("expected list literal")
	}
	dict, ok := program.Statements[1].(*ast.VarStatement).Value.(*ast.DictLiteral)
	if !ok {
		t.Fatal("expected dict literal")
	}
	if len(dict.Entries) != 2 || dict.Entries[0].Key != "a" || dict.Entries[1].Key != "b" {
		t.Errorf("dict entries wrong: %v", dict.Entries)
	}
	if _, ok := program.Statements[2].(*ast.VarStatement).Value.(*ast.TupleLiteral); !ok {
		t.Error("expected tuple literal")
	}
	if _, ok := program.Statements[3].(*ast.VarStatement).Value.(*ast.GroupedExpression); !ok {
		t.Error("expected grouped expression, not tuple")
	}
}

func TestImport(t *testing.T) {
	program := parse(t, `import "math" as m`)
	imp := program.Statements[0].(*ast.ImportStatement)
	if imp.Spec != "math" || imp.Alias != "m" {
		t.Errorf("import = %q as %q", imp.Spec, imp.Alias)
	}
}

func TestSiteNumbering(t *testing.T) {
	p := New(lexer.New("f(x)\ny.g\nz[0]\nh()"))
	program := p.ParseProgram()
	if p.HadError() {
		t.Fatalf("parse errors: %v", p.Errors())
	}
	if p.SiteCount() != 4 {
		t.Fatalf("expected 4 sites, got %d", p.SiteCount())
	}

	// Sites are numbered sequentially in source order.
	seen := map[ast.SiteID]bool{}
	collect := func(stmt ast.Statement) {
		es := stmt.(*ast.ExpressionStatement)
		switch e := es.Expression.(type) {
		case *ast.CallExpression:
			seen[e.Site] = true
		case *ast.MemberExpression:
			seen[e.Site] = true
		case *ast.IndexExpression:
			seen[e.Site] = true
		}
	}
	for _, stmt := range program.Statements {
		collect(stmt)
	}
	for id := ast.SiteID(0); id < 4; id++ {
		if !seen[id] {
			t.Errorf("site %d not assigned", id)
		}
	}
}

func TestPanicModeRecovery(t *testing.T) {
	// The parser reports the bad statement and recovers at the next
	// statement boundary, still seeing the valid trailing statement.
	p := New(lexer.New("let = 5\nlet ok = 1\n"))
	program := p.ParseProgram()
	if !p.HadError() {
		t.Fatal("expected a parse error")
	}
	found := false
	for _, stmt := range program.Statements {
		if vs, ok := stmt.(*ast.VarStatement); ok && vs.Name.Value == "ok" {
			found = true
		}
	}
	if !found {
		t.Error("parser did not recover to parse the following statement")
	}
}

func TestErrorPositions(t *testing.T) {
	errs := parseFail(t, "let x = \nlet @ = 2")
	for _, err := range errs {
		if err.Pos.Line == 0 {
			t.Errorf("error %q has no position", err.Message)
		}
	}
}

func TestInvalidAssignmentTarget(t *testing.T) {
	errs := parseFail(t, "1 + 2 = 3")
	joined := ""
	for _, e := range errs {
		joined += e.Message + ";"
	}
	if !strings.Contains(joined, "assignment target") {
		t.Errorf("expected assignment-target error, got %v", joined)
	}
}
