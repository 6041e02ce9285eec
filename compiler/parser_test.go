package compiler

import (
	"strings"
	"testing"
)

func mustParse(t *testing.T, src string) []Stmt {
	t.Helper()
	stmts, diags := ParseSource(src)
	if len(diags) > 0 {
		t.Fatalf("parse %q: unexpected diagnostics:\n%s", src, diags.Format(src))
	}
	return stmts
}

func parseExpr(t *testing.T, src string) Expr {
	t.Helper()
	stmts := mustParse(t, src)
	if len(stmts) != 1 {
		t.Fatalf("parse %q: got %d statements, want 1", src, len(stmts))
	}
	es, ok := stmts[0].(*ExprStmt)
	if !ok {
		t.Fatalf("parse %q: got %T, want *ExprStmt", src, stmts[0])
	}
	return es.Expr
}

func TestParserLiterals(t *testing.T) {
	tests := []struct {
		input string
		check func(*Literal) bool
		desc  string
	}{
		{"42", func(l *Literal) bool { return l.Kind == LiteralNumber && l.Value.(float64) == 42 }, "integer"},
		{"3.5", func(l *Literal) bool { return l.Kind == LiteralNumber && l.Value.(float64) == 3.5 }, "float"},
		{`"hi"`, func(l *Literal) bool { return l.Kind == LiteralString && l.Value.(string) == "hi" }, "string"},
		{"true", func(l *Literal) bool { return l.Kind == LiteralBool && l.Value.(bool) }, "true"},
		{"false", func(l *Literal) bool { return l.Kind == LiteralBool && !l.Value.(bool) }, "false"},
		{"null", func(l *Literal) bool { return l.Kind == LiteralNull }, "null"},
	}

	for _, tc := range tests {
		lit, ok := parseExpr(t, tc.input).(*Literal)
		if !ok {
			t.Errorf("%s: not a literal", tc.desc)
			continue
		}
		if !tc.check(lit) {
			t.Errorf("%s: check failed for %q", tc.desc, tc.input)
		}
	}
}

// ---------------------------------------------------------------------------
// Precedence
// ---------------------------------------------------------------------------

// sexpr renders an expression fully parenthesized for precedence checks.
func sexpr(e Expr) string {
	switch n := e.(type) {
	case *Binary:
		return "(" + n.Operator.Lexeme + " " + sexpr(n.Left) + " " + sexpr(n.Right) + ")"
	case *Logical:
		return "(" + n.Operator.Lexeme + " " + sexpr(n.Left) + " " + sexpr(n.Right) + ")"
	case *Unary:
		return "(" + n.Operator.Lexeme + " " + sexpr(n.Right) + ")"
	case *Grouping:
		return sexpr(n.Inner)
	case *Call:
		parts := []string{"call", sexpr(n.Callee)}
		for _, a := range n.Args {
			parts = append(parts, sexpr(a))
		}
		return "(" + strings.Join(parts, " ") + ")"
	case *Get:
		return "(. " + sexpr(n.Object) + " " + n.Name.Lexeme + ")"
	case *Index:
		return "([] " + sexpr(n.Object) + " " + sexpr(n.Index) + ")"
	case *Assign:
		if n.Value == nil {
			return "(" + n.Op.String() + " " + n.Name.Lexeme + ")"
		}
		return "(" + n.Op.String() + " " + n.Name.Lexeme + " " + sexpr(n.Value) + ")"
	case *Set:
		return "(" + n.Op.String() + " (. " + sexpr(n.Object) + " " + n.Name.Lexeme + ") " + sexpr(n.Value) + ")"
	case *SetIndex:
		return "(" + n.Op.String() + " ([] " + sexpr(n.Object) + " " + sexpr(n.Index) + ") " + sexpr(n.Value) + ")"
	default:
		return PrintExpr(e)
	}
}

func TestParserPrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 * 3", "(+ 1 (* 2 3))"},
		{"1 - 2 - 3", "(- (- 1 2) 3)"},
		{"2 ** 3 ** 2", "(** (** 2 3) 2)"},
		{"-2 ** 2", "(** (- 2) 2)"},
		{"a < b == c >= d", "(== (< a b) (>= c d))"},
		{"not a == b", "(not (== a b))"},
		{"!a == b", "(== (! a) b)"},
		{"a or b and c", "(or a (and b c))"},
		{"a xor b or c", "(or (xor a b) c)"},
		{"a = b = c", "(= a (= b c))"},
		{"a.b(c)[d]", "([] (call (. a b) c) d)"},
		{"x += 1 + 2", "(+= x (+ 1 2))"},
		{"(1 + 2) * 3", "(* (+ 1 2) 3)"},
		{"a % b * c", "(* (% a b) c)"},
	}

	for _, tc := range tests {
		got := sexpr(parseExpr(t, tc.input))
		if got != tc.want {
			t.Errorf("parse %q = %s, want %s", tc.input, got, tc.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Assignment targets
// ---------------------------------------------------------------------------

func TestParserAssignmentTargets(t *testing.T) {
	tests := []struct {
		input string
		op    AssignOp
		check func(Expr) bool
	}{
		{"x = 1", AssignPlain, func(e Expr) bool { _, ok := e.(*Assign); return ok }},
		{"x **= 2", AssignPow, func(e Expr) bool { _, ok := e.(*Assign); return ok }},
		{"x++", AssignIncrement, func(e Expr) bool { a, ok := e.(*Assign); return ok && a.Value == nil }},
		{"o.f -= 1", AssignSub, func(e Expr) bool { _, ok := e.(*Set); return ok }},
		{"o.f--", AssignDecrement, func(e Expr) bool { _, ok := e.(*Set); return ok }},
		{"l[0] *= 3", AssignMul, func(e Expr) bool { _, ok := e.(*SetIndex); return ok }},
		{"l[0]++", AssignIncrement, func(e Expr) bool { _, ok := e.(*SetIndex); return ok }},
	}

	for _, tc := range tests {
		e := parseExpr(t, tc.input)
		if !tc.check(e) {
			t.Errorf("parse %q: unexpected node %T", tc.input, e)
			continue
		}
		var op AssignOp
		switch n := e.(type) {
		case *Assign:
			op = n.Op
		case *Set:
			op = n.Op
		case *SetIndex:
			op = n.Op
		}
		if op != tc.op {
			t.Errorf("parse %q: op = %s, want %s", tc.input, op, tc.op)
		}
	}
}

func TestParserInvalidAssignmentTarget(t *testing.T) {
	for _, src := range []string{"1 = 2", "f() = 3", "(a) = 1", "this = 1", "a + b += 1", "3++"} {
		_, diags := ParseSource(src)
		if len(diags) != 1 {
			t.Errorf("parse %q: got %d diagnostics, want 1: %v", src, len(diags), diags)
			continue
		}
		if !strings.Contains(diags[0].Message, "invalid assignment target") {
			t.Errorf("parse %q: message = %q", src, diags[0].Message)
		}
	}
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func TestParserForDesugars(t *testing.T) {
	stmts := mustParse(t, "for (var i = 0; i < 5; i += 1) { print(i) }")
	outer, ok := stmts[0].(*Block)
	if !ok {
		t.Fatalf("for parsed as %T, want *Block", stmts[0])
	}
	if len(outer.Stmts) != 2 {
		t.Fatalf("outer block has %d statements, want 2", len(outer.Stmts))
	}
	if _, ok := outer.Stmts[0].(*VarDecl); !ok {
		t.Errorf("first statement = %T, want *VarDecl", outer.Stmts[0])
	}
	loop, ok := outer.Stmts[1].(*While)
	if !ok {
		t.Fatalf("second statement = %T, want *While", outer.Stmts[1])
	}
	body := loop.Body.(*Block)
	if len(body.Stmts) != 2 {
		t.Fatalf("loop body has %d statements, want 2", len(body.Stmts))
	}
	if _, ok := body.Stmts[0].(*Block); !ok {
		t.Errorf("user body = %T, want *Block", body.Stmts[0])
	}
	inc := body.Stmts[1].(*ExprStmt).Expr.(*Assign)
	if inc.Op != AssignAdd {
		t.Errorf("increment op = %s, want +=", inc.Op)
	}
}

func TestParserForEmptyClauses(t *testing.T) {
	stmts := mustParse(t, "for (;;) break")
	outer := stmts[0].(*Block)
	if len(outer.Stmts) != 1 {
		t.Fatalf("outer block has %d statements, want 1", len(outer.Stmts))
	}
	loop := outer.Stmts[0].(*While)
	if lit, ok := loop.Cond.(*Literal); !ok || lit.Value != true {
		t.Errorf("missing condition should become true, got %s", PrintExpr(loop.Cond))
	}
}

func TestParserForeach(t *testing.T) {
	stmts := mustParse(t, "foreach (var x in [1, 2]) print(x)")
	fe, ok := stmts[0].(*Foreach)
	if !ok {
		t.Fatalf("got %T, want *Foreach", stmts[0])
	}
	if fe.Var.Lexeme != "x" {
		t.Errorf("loop var = %q", fe.Var.Lexeme)
	}
	if _, ok := fe.Iterable.(*ListLiteral); !ok {
		t.Errorf("iterable = %T", fe.Iterable)
	}
}

func TestParserClass(t *testing.T) {
	src := `class B : A {
    B(x) {
        this.x = x
    }

    greet() {
        return "hi"
    }
}`
	stmts := mustParse(t, src)
	cls, ok := stmts[0].(*Class)
	if !ok {
		t.Fatalf("got %T, want *Class", stmts[0])
	}
	if cls.Name.Lexeme != "B" || cls.Superclass == nil || cls.Superclass.Name.Lexeme != "A" {
		t.Errorf("class header parsed wrong: %s : %v", cls.Name.Lexeme, cls.Superclass)
	}
	if len(cls.Methods) != 2 {
		t.Fatalf("got %d methods, want 2", len(cls.Methods))
	}
	if cls.Methods[0].Name.Lexeme != "B" || len(cls.Methods[0].Params) != 1 {
		t.Errorf("initializer parsed wrong")
	}
}

func TestParserDefaultParameters(t *testing.T) {
	stmts := mustParse(t, "func f(a, b = 2, c = a) {\n  return a\n}")
	fn, ok := stmts[0].(*FunctionDecl)
	if !ok {
		t.Fatalf("got %T, want *FunctionDecl", stmts[0])
	}
	if len(fn.Params) != 3 || len(fn.Defaults) != 3 {
		t.Fatalf("got %d params and %d defaults, want 3 and 3", len(fn.Params), len(fn.Defaults))
	}
	if fn.Defaults[0] != nil || fn.Defaults[1] == nil || fn.Defaults[2] == nil {
		t.Errorf("defaults = %#v, want only b and c set", fn.Defaults)
	}
	if got := RequiredParams(fn.Defaults); got != 1 {
		t.Errorf("RequiredParams = %d, want 1", got)
	}

	cls := mustParse(t, "class P {\n  P(x = 1) {}\n}")[0].(*Class)
	if d := cls.Methods[0].Defaults; len(d) != 1 || d[0] == nil {
		t.Errorf("method defaults = %#v", d)
	}
}

func TestParserDefaultMustBeTrailing(t *testing.T) {
	src := "func f(a = 1, b) {}"
	_, diags := ParseSource(src)
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1:\n%s", len(diags), diags.Format(src))
	}
	if !strings.Contains(diags[0].Message, `parameter "b" without a default`) {
		t.Errorf("message = %q", diags[0].Message)
	}
}

func TestParserIfElseAcrossLines(t *testing.T) {
	src := `if (a) {
    x = 1
}
else {
    x = 2
}`
	stmts := mustParse(t, src)
	if len(stmts) != 1 {
		t.Fatalf("got %d statements, want 1", len(stmts))
	}
	if stmts[0].(*If).Else == nil {
		t.Error("else branch was not attached")
	}
}

func TestParserBreakAndReturn(t *testing.T) {
	stmts := mustParse(t, "while (true) { break 2 }\nfunc f() { return }\nbreak")
	loop := stmts[0].(*While)
	brk := loop.Body.(*Block).Stmts[0].(*Break)
	if brk.Amount == nil {
		t.Error("break amount missing")
	}
	fn := stmts[1].(*FunctionDecl)
	if ret := fn.Body[0].(*Return); ret.Value != nil {
		t.Error("bare return should have nil value")
	}
	if stmts[2].(*Break).Amount != nil {
		t.Error("bare break should have nil amount")
	}
}

func TestParserImport(t *testing.T) {
	stmts := mustParse(t, "import util from \"lib/util.bj\"\nimport math")
	imp := stmts[0].(*Import)
	if imp.Name.Lexeme != "util" || imp.From == nil || imp.From.Literal.(string) != "lib/util.bj" {
		t.Errorf("import parsed wrong: %+v", imp)
	}
	if stmts[1].(*Import).From != nil {
		t.Error("plain import should have no source")
	}
}

func TestParserDictLiteral(t *testing.T) {
	e := parseExpr(t, "d = {\n  \"a\": 1,\n  \"b\": 2\n}")
	d, ok := e.(*Assign).Value.(*Dict)
	if !ok {
		t.Fatalf("value = %T, want *Dict", e.(*Assign).Value)
	}
	if len(d.Keys) != 2 || len(d.Values) != 2 {
		t.Errorf("dict has %d keys, %d values", len(d.Keys), len(d.Values))
	}
}

// ---------------------------------------------------------------------------
// Error recovery
// ---------------------------------------------------------------------------

func TestParserRecoversAtStatementBoundary(t *testing.T) {
	src := "var = 1\nvar y = 2\nprint(y"
	tokens, _ := Scan(src)
	stmts, diags := Parse(tokens)
	if len(diags) != 2 {
		t.Fatalf("got %d diagnostics, want 2:\n%s", len(diags), diags.Format(src))
	}
	if len(stmts) != 3 {
		t.Fatalf("got %d statements, want 3 (with nil placeholders)", len(stmts))
	}
	if stmts[0] != nil || stmts[2] != nil {
		t.Error("failed statements should be nil placeholders")
	}
	if v, ok := stmts[1].(*VarDecl); !ok || v.Name.Lexeme != "y" {
		t.Errorf("second statement = %#v, want var y", stmts[1])
	}
}

func TestParserRecoversInsideBlock(t *testing.T) {
	src := `func f() {
    var a = )
    var b = 2
}
var c = 3`
	stmts, diags := ParseSource(src)
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1:\n%s", len(diags), diags.Format(src))
	}
	if len(stmts) != 2 {
		t.Fatalf("got %d statements, want 2", len(stmts))
	}
	fn := stmts[0].(*FunctionDecl)
	if len(fn.Body) != 1 {
		t.Errorf("function body kept %d statements, want 1", len(fn.Body))
	}
}

func TestParserSuperIsReserved(t *testing.T) {
	_, diags := ParseSource("super.greet()")
	if len(diags) != 1 || !strings.Contains(diags[0].Message, "super") {
		t.Errorf("diagnostics = %v", diags)
	}
}

func TestParserMissingTerminator(t *testing.T) {
	_, diags := ParseSource("var x = 1 var y = 2")
	if len(diags) != 1 {
		t.Errorf("got %d diagnostics, want 1: %v", len(diags), diags)
	}
}
