package compiler

import (
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Printer: canonical Bluejay source from an AST
// ---------------------------------------------------------------------------

// Print renders statements as canonical source. Parsing the output yields a
// structurally identical tree; desugared for-loops print as their block and
// while form.
func Print(stmts []Stmt) string {
	pr := &printer{buf: &strings.Builder{}}
	for _, s := range stmts {
		if s == nil {
			continue
		}
		pr.stmt(s)
	}
	return pr.buf.String()
}

// PrintExpr renders a single expression.
func PrintExpr(e Expr) string {
	pr := &printer{buf: &strings.Builder{}}
	pr.expr(e)
	return pr.buf.String()
}

type printer struct {
	indent int
	buf    *strings.Builder
}

func (pr *printer) write(s string) {
	pr.buf.WriteString(s)
}

// writeIndent writes the current indentation prefix (two spaces per level).
func (pr *printer) writeIndent() {
	for i := 0; i < pr.indent; i++ {
		pr.buf.WriteString("  ")
	}
}

// stmt writes one statement on its own line(s), ending with a newline.
func (pr *printer) stmt(s Stmt) {
	pr.writeIndent()
	pr.stmtInline(s)
	pr.write("\n")
}

// stmtInline writes a statement starting at the current column without a
// trailing newline.
func (pr *printer) stmtInline(s Stmt) {
	switch n := s.(type) {
	case *ExprStmt:
		pr.expr(n.Expr)
	case *VarDecl:
		pr.write("var " + n.Name.Lexeme)
		if n.Init != nil {
			pr.write(" = ")
			pr.expr(n.Init)
		}
	case *Block:
		pr.block(n.Stmts)
	case *If:
		pr.write("if (")
		pr.expr(n.Cond)
		pr.write(") ")
		pr.stmtInline(n.Then)
		if n.Else != nil {
			if _, ok := n.Then.(*Block); ok {
				pr.write(" else ")
			} else {
				pr.write("\n")
				pr.writeIndent()
				pr.write("else ")
			}
			pr.stmtInline(n.Else)
		}
	case *While:
		pr.write("while (")
		pr.expr(n.Cond)
		pr.write(") ")
		pr.stmtInline(n.Body)
	case *Foreach:
		pr.write("foreach (var " + n.Var.Lexeme + " in ")
		pr.expr(n.Iterable)
		pr.write(") ")
		pr.stmtInline(n.Body)
	case *Repeat:
		pr.write("repeat (")
		pr.expr(n.Count)
		pr.write(") ")
		pr.stmtInline(n.Body)
	case *Break:
		pr.write("break")
		if n.Amount != nil {
			pr.write(" ")
			pr.expr(n.Amount)
		}
	case *Return:
		pr.write("return")
		if n.Value != nil {
			pr.write(" ")
			pr.expr(n.Value)
		}
	case *Import:
		pr.write("import " + n.Name.Lexeme)
		if n.From != nil {
			pr.write(" from " + n.From.Lexeme)
		}
	case *FunctionDecl:
		pr.write("func ")
		pr.signature(n.Name, n.Params, n.Defaults)
		pr.write(" ")
		pr.block(n.Body)
	case *MethodDecl:
		pr.signature(n.Name, n.Params, n.Defaults)
		pr.write(" ")
		pr.block(n.Body)
	case *Class:
		pr.write("class " + n.Name.Lexeme)
		if n.Superclass != nil {
			pr.write(" : " + n.Superclass.Name.Lexeme)
		}
		pr.write(" {\n")
		pr.indent++
		for i, m := range n.Methods {
			if i > 0 {
				pr.write("\n")
			}
			pr.stmt(m)
		}
		pr.indent--
		pr.writeIndent()
		pr.write("}")
	}
}

func (pr *printer) signature(name Token, params []Token, defaults []Expr) {
	pr.write(name.Lexeme + "(")
	for i, p := range params {
		if i > 0 {
			pr.write(", ")
		}
		pr.write(p.Lexeme)
		if i < len(defaults) && defaults[i] != nil {
			pr.write(" = ")
			pr.expr(defaults[i])
		}
	}
	pr.write(")")
}

func (pr *printer) block(stmts []Stmt) {
	pr.write("{\n")
	pr.indent++
	for _, s := range stmts {
		if s != nil {
			pr.stmt(s)
		}
	}
	pr.indent--
	pr.writeIndent()
	pr.write("}")
}

func (pr *printer) exprList(exprs []Expr) {
	for i, e := range exprs {
		if i > 0 {
			pr.write(", ")
		}
		pr.expr(e)
	}
}

func (pr *printer) assignTail(op AssignOp, value Expr) {
	if op.IsStep() {
		pr.write(op.String())
		return
	}
	pr.write(" " + op.String() + " ")
	pr.expr(value)
}

func (pr *printer) expr(e Expr) {
	switch n := e.(type) {
	case *Literal:
		pr.write(FormatLiteral(n))
	case *Variable:
		pr.write(n.Name.Lexeme)
	case *Grouping:
		pr.write("(")
		pr.expr(n.Inner)
		pr.write(")")
	case *Unary:
		op := n.Operator.Lexeme
		pr.write(op)
		if op == "not" {
			pr.write(" ")
		} else if inner, ok := n.Right.(*Unary); ok && inner.Operator.Lexeme != "not" && inner.Operator.Lexeme != "!" {
			// keep "- -x" from lexing as "--x"
			pr.write(" ")
		}
		pr.expr(n.Right)
	case *Binary:
		pr.expr(n.Left)
		pr.write(" " + n.Operator.Lexeme + " ")
		pr.expr(n.Right)
	case *Logical:
		pr.expr(n.Left)
		pr.write(" " + n.Operator.Lexeme + " ")
		pr.expr(n.Right)
	case *Call:
		pr.expr(n.Callee)
		pr.write("(")
		pr.exprList(n.Args)
		pr.write(")")
	case *Get:
		pr.expr(n.Object)
		pr.write("." + n.Name.Lexeme)
	case *Index:
		pr.expr(n.Object)
		pr.write("[")
		pr.expr(n.Index)
		pr.write("]")
	case *ListLiteral:
		pr.write("[")
		pr.exprList(n.Elements)
		pr.write("]")
	case *Dict:
		pr.write("{")
		for i := range n.Keys {
			if i > 0 {
				pr.write(", ")
			}
			pr.expr(n.Keys[i])
			pr.write(": ")
			pr.expr(n.Values[i])
		}
		pr.write("}")
	case *Assign:
		pr.write(n.Name.Lexeme)
		pr.assignTail(n.Op, n.Value)
	case *Set:
		pr.expr(n.Object)
		pr.write("." + n.Name.Lexeme)
		pr.assignTail(n.Op, n.Value)
	case *SetIndex:
		pr.expr(n.Object)
		pr.write("[")
		pr.expr(n.Index)
		pr.write("]")
		pr.assignTail(n.Op, n.Value)
	}
}

// FormatLiteral renders a literal as source text.
func FormatLiteral(n *Literal) string {
	switch n.Kind {
	case LiteralNumber:
		return FormatNumber(n.Value.(float64))
	case LiteralString:
		return `"` + n.Value.(string) + `"`
	case LiteralBool:
		if n.Value.(bool) {
			return "true"
		}
		return "false"
	}
	return "null"
}

// FormatNumber renders a number without exponent or trailing zeros.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
