package compiler

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Resolver: static scope-distance pass
// ---------------------------------------------------------------------------

// Locals maps a variable-reference or assignment node to the number of
// scopes between its use and its binding. Nodes missing from the map are
// globals, looked up by name.
type Locals map[Expr]int

// Resolver walks the AST with a stack of lexical scopes that mirrors the
// environments the interpreter creates, recording binding distances.
type Resolver struct {
	scopes []map[string]bool // name -> defined (false while declared only)
	locals Locals
	diags  Diagnostics

	methodDepth int
}

// NewResolver creates a resolver with an empty distance map.
func NewResolver() *Resolver {
	return &Resolver{locals: make(Locals)}
}

// Resolve computes binding distances for stmts. Nil statements are skipped.
func Resolve(stmts []Stmt) (Locals, Diagnostics) {
	r := NewResolver()
	r.ResolveStatements(stmts)
	return r.locals, r.diags
}

// ResolveStatements resolves stmts into the resolver's map. A resolver can
// be fed successive programs that share the global scope (the REPL does this).
func (r *Resolver) ResolveStatements(stmts []Stmt) {
	for _, s := range stmts {
		if s != nil {
			r.stmt(s)
		}
	}
}

// Locals returns the distance map built so far.
func (r *Resolver) Locals() Locals {
	return r.locals
}

// Errors returns accumulated resolver diagnostics.
func (r *Resolver) Errors() Diagnostics {
	return r.diags
}

// errorAt records a diagnostic anchored at tok.
func (r *Resolver) errorAt(tok Token, format string, args ...any) {
	r.diags = append(r.diags, &Diagnostic{
		Kind:    ResolveError,
		Token:   tok,
		Message: fmt.Sprintf(format, args...),
	})
}

func (r *Resolver) beginScope() {
	r.scopes = append(r.scopes, make(map[string]bool))
}

func (r *Resolver) endScope() {
	r.scopes = r.scopes[:len(r.scopes)-1]
}

// declare makes name visible but unusable in the innermost scope.
func (r *Resolver) declare(name string) {
	if len(r.scopes) == 0 {
		return
	}
	r.scopes[len(r.scopes)-1][name] = false
}

// define marks name usable in the innermost scope.
func (r *Resolver) define(name string) {
	if len(r.scopes) == 0 {
		return
	}
	r.scopes[len(r.scopes)-1][name] = true
}

// resolveLocal records the distance from the innermost scope to the one
// binding name, or leaves expr unrecorded for a global.
func (r *Resolver) resolveLocal(expr Expr, name string) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if _, ok := r.scopes[i][name]; ok {
			r.locals[expr] = len(r.scopes) - 1 - i
			return
		}
	}
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (r *Resolver) stmts(list []Stmt) {
	for _, s := range list {
		if s != nil {
			r.stmt(s)
		}
	}
}

func (r *Resolver) stmt(s Stmt) {
	switch n := s.(type) {
	case *Block:
		r.beginScope()
		r.stmts(n.Stmts)
		r.endScope()
	case *VarDecl:
		r.declare(n.Name.Lexeme)
		if n.Init != nil {
			r.expr(n.Init)
		}
		r.define(n.Name.Lexeme)
	case *FunctionDecl:
		r.declare(n.Name.Lexeme)
		r.define(n.Name.Lexeme)
		r.function(n.Params, n.Defaults, n.Body)
	case *Class:
		r.declare(n.Name.Lexeme)
		r.define(n.Name.Lexeme)
		if n.Superclass != nil {
			if n.Superclass.Name.Lexeme == n.Name.Lexeme {
				r.errorAt(n.Superclass.Name, "class %q cannot inherit from itself", n.Name.Lexeme)
			}
			r.expr(n.Superclass)
		}
		for _, m := range n.Methods {
			r.method(m)
		}
	case *MethodDecl:
		r.method(n)
	case *ExprStmt:
		r.expr(n.Expr)
	case *If:
		r.expr(n.Cond)
		r.stmt(n.Then)
		if n.Else != nil {
			r.stmt(n.Else)
		}
	case *While:
		r.expr(n.Cond)
		r.stmt(n.Body)
	case *Foreach:
		// the iterable is evaluated once, outside the loop variable's scope
		r.expr(n.Iterable)
		r.beginScope()
		r.declare(n.Var.Lexeme)
		r.define(n.Var.Lexeme)
		r.stmt(n.Body)
		r.endScope()
	case *Repeat:
		r.expr(n.Count)
		r.stmt(n.Body)
	case *Break:
		if n.Amount != nil {
			r.expr(n.Amount)
		}
	case *Return:
		if n.Value != nil {
			r.expr(n.Value)
		}
	case *Import:
		r.declare(n.Name.Lexeme)
		r.define(n.Name.Lexeme)
	}
}

// function resolves parameters and body in one fresh scope.
// function resolves a function body. Default values are evaluated in the
// declaring scope, so they resolve before the parameter scope opens.
func (r *Resolver) function(params []Token, defaults []Expr, body []Stmt) {
	for _, d := range defaults {
		if d != nil {
			r.expr(d)
		}
	}
	r.beginScope()
	for _, p := range params {
		r.declare(p.Lexeme)
		r.define(p.Lexeme)
	}
	r.stmts(body)
	r.endScope()
}

// method resolves a method body beneath the scope that binds `this`.
func (r *Resolver) method(m *MethodDecl) {
	r.methodDepth++
	r.beginScope()
	r.define("this")
	r.function(m.Params, m.Defaults, m.Body)
	r.endScope()
	r.methodDepth--
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (r *Resolver) exprs(list []Expr) {
	for _, e := range list {
		r.expr(e)
	}
}

func (r *Resolver) expr(e Expr) {
	switch n := e.(type) {
	case *Variable:
		name := n.Name.Lexeme
		if n.Name.Type == TokenThis {
			if r.methodDepth == 0 {
				r.errorAt(n.Name, "cannot use 'this' outside of a method")
				return
			}
			r.resolveLocal(n, name)
			return
		}
		if len(r.scopes) > 0 {
			if defined, ok := r.scopes[len(r.scopes)-1][name]; ok && !defined {
				r.errorAt(n.Name, "cannot read local variable %q in its own initializer", name)
			}
		}
		r.resolveLocal(n, name)
	case *Assign:
		if n.Value != nil {
			r.expr(n.Value)
		}
		r.resolveLocal(n, n.Name.Lexeme)
	case *Get:
		r.expr(n.Object)
	case *Set:
		r.expr(n.Object)
		if n.Value != nil {
			r.expr(n.Value)
		}
	case *Index:
		r.expr(n.Object)
		r.expr(n.Index)
	case *SetIndex:
		r.expr(n.Object)
		r.expr(n.Index)
		if n.Value != nil {
			r.expr(n.Value)
		}
	case *Binary:
		r.expr(n.Left)
		r.expr(n.Right)
	case *Logical:
		r.expr(n.Left)
		r.expr(n.Right)
	case *Unary:
		r.expr(n.Right)
	case *Grouping:
		r.expr(n.Inner)
	case *Call:
		r.expr(n.Callee)
		r.exprs(n.Args)
	case *ListLiteral:
		r.exprs(n.Elements)
	case *Dict:
		for i := range n.Keys {
			r.expr(n.Keys[i])
			r.expr(n.Values[i])
		}
	case *Literal:
	}
}
