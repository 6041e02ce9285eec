package compiler

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for Bluejay
// ---------------------------------------------------------------------------

// Parser turns a token stream into statements. It never fails outright: a
// grammar violation records one diagnostic, discards tokens up to a safe
// statement boundary and resumes, emitting a nil statement in place of the
// broken one.
type Parser struct {
	tokens  []Token
	current int
	diags   Diagnostics
}

// bailout unwinds the parser to the nearest statement boundary.
type bailout struct{}

// NewParser creates a parser over tokens produced by Scan.
func NewParser(tokens []Token) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != TokenEOF {
		end := 0
		if len(tokens) > 0 {
			end = tokens[len(tokens)-1].Offset
		}
		tokens = append(tokens, Token{Type: TokenEOF, Offset: end})
	}
	return &Parser{tokens: tokens}
}

// Parse parses a whole program. The returned slice contains a nil entry for
// every statement that failed to parse.
func Parse(tokens []Token) ([]Stmt, Diagnostics) {
	p := NewParser(tokens)
	return p.ParseProgram(), p.diags
}

// ParseSource scans and parses source, dropping the nil placeholders.
func ParseSource(source string) ([]Stmt, Diagnostics) {
	tokens, diags := Scan(source)
	stmts, parseDiags := Parse(tokens)
	diags = append(diags, parseDiags...)
	return Compact(stmts), diags
}

// Compact returns stmts without nil placeholders.
func Compact(stmts []Stmt) []Stmt {
	out := stmts[:0:0]
	for _, s := range stmts {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Errors returns accumulated parse diagnostics.
func (p *Parser) Errors() Diagnostics {
	return p.diags
}

// ---------------------------------------------------------------------------
// Token helpers
// ---------------------------------------------------------------------------

func (p *Parser) peek() Token {
	return p.tokens[p.current]
}

func (p *Parser) peekNext() Token {
	if p.current+1 >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.current+1]
}

func (p *Parser) previous() Token {
	return p.tokens[p.current-1]
}

func (p *Parser) atEnd() bool {
	return p.peek().Type == TokenEOF
}

func (p *Parser) advance() Token {
	if !p.atEnd() {
		p.current++
	}
	return p.previous()
}

func (p *Parser) check(t TokenType) bool {
	return p.peek().Type == t
}

func (p *Parser) match(types ...TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

// expect consumes a token of type t or bails out with msg.
func (p *Parser) expect(t TokenType, msg string) Token {
	if p.check(t) {
		return p.advance()
	}
	p.fail(p.peek(), msg)
	return Token{}
}

// errorAt records a diagnostic without unwinding.
func (p *Parser) errorAt(tok Token, format string, args ...any) {
	p.diags = append(p.diags, &Diagnostic{
		Kind:    SyntaxError,
		Token:   tok,
		Message: fmt.Sprintf(format, args...),
	})
}

// fail records a diagnostic and unwinds to the statement boundary.
func (p *Parser) fail(tok Token, msg string) {
	if tok.Type == TokenEOF {
		msg += " (at end of input)"
	} else if tok.Type != TokenEOS {
		msg += fmt.Sprintf(" (got %q)", tok.Lexeme)
	}
	p.errorAt(tok, "%s", msg)
	panic(bailout{})
}

// skipEOS discards end-of-statement tokens.
func (p *Parser) skipEOS() {
	for p.check(TokenEOS) {
		p.advance()
	}
}

// endStatement consumes the terminator of a simple statement. A closing
// brace, an else, or the end of input also ends a statement.
func (p *Parser) endStatement(what string) {
	if p.match(TokenEOS) || p.check(TokenRBrace) || p.check(TokenElse) || p.atEnd() {
		return
	}
	p.fail(p.peek(), "expected newline or ';' after "+what)
}

// synchronize discards tokens until an end-of-statement outside any block
// opened during recovery, or until a statement keyword or an unmatched '}'.
func (p *Parser) synchronize() {
	depth := 0
	for !p.atEnd() {
		switch t := p.peek().Type; {
		case t == TokenEOS:
			p.advance()
			if depth <= 0 {
				return
			}
		case t == TokenLBrace:
			depth++
			p.advance()
		case t == TokenRBrace:
			if depth == 0 {
				return
			}
			depth--
			p.advance()
		case depth == 0 && statementStarters[t]:
			return
		default:
			p.advance()
		}
	}
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// ParseProgram parses statements until end of input.
func (p *Parser) ParseProgram() []Stmt {
	var stmts []Stmt
	for {
		p.skipEOS()
		if p.atEnd() {
			break
		}
		stmts = append(stmts, p.declaration())
	}
	return stmts
}

// declaration parses one statement, recovering from grammar errors.
func (p *Parser) declaration() (stmt Stmt) {
	start := p.current
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			p.synchronize()
			if p.current == start {
				p.advance()
			}
			stmt = nil
		}
	}()

	switch {
	case p.match(TokenClass):
		return p.classDecl()
	case p.match(TokenFunc):
		return p.functionDecl()
	case p.match(TokenVar):
		return p.varDecl()
	}
	return p.statement()
}

func (p *Parser) statement() Stmt {
	switch {
	case p.match(TokenLBrace):
		return p.block()
	case p.match(TokenIf):
		return p.ifStmt()
	case p.match(TokenWhile):
		return p.whileStmt()
	case p.match(TokenFor):
		return p.forStmt()
	case p.match(TokenForeach):
		return p.foreachStmt()
	case p.match(TokenRepeat):
		return p.repeatStmt()
	case p.match(TokenBreak):
		kw := p.previous()
		return &Break{Keyword: kw, Amount: p.optionalValue("break statement")}
	case p.match(TokenReturn):
		kw := p.previous()
		return &Return{Keyword: kw, Value: p.optionalValue("return statement")}
	case p.match(TokenImport):
		return p.importStmt()
	}
	expr := p.expression()
	p.endStatement("expression")
	return &ExprStmt{Expr: expr}
}

// body parses the statement governed by a control-flow header, which may
// start on the next line.
func (p *Parser) body() Stmt {
	p.skipEOS()
	if p.atEnd() {
		p.fail(p.peek(), "expected statement")
	}
	switch {
	case p.match(TokenClass):
		return p.classDecl()
	case p.match(TokenFunc):
		return p.functionDecl()
	case p.match(TokenVar):
		return p.varDecl()
	}
	return p.statement()
}

// optionalValue parses the expression after break/return, if any.
func (p *Parser) optionalValue(what string) Expr {
	if p.match(TokenEOS) || p.check(TokenRBrace) || p.check(TokenElse) || p.atEnd() {
		return nil
	}
	value := p.expression()
	p.endStatement(what)
	return value
}

// block parses statements up to the closing brace; the '{' is consumed.
func (p *Parser) block() *Block {
	brace := p.previous()
	return &Block{Brace: brace, Stmts: p.blockBody()}
}

func (p *Parser) blockBody() []Stmt {
	var stmts []Stmt
	for {
		p.skipEOS()
		if p.check(TokenRBrace) || p.atEnd() {
			break
		}
		if s := p.declaration(); s != nil {
			stmts = append(stmts, s)
		}
	}
	p.expect(TokenRBrace, "expected '}' after block")
	return stmts
}

func (p *Parser) varDecl() Stmt {
	name := p.expect(TokenIdentifier, "expected variable name")
	var init Expr
	if p.match(TokenEqual) {
		init = p.expression()
	}
	p.endStatement("variable declaration")
	return &VarDecl{Name: name, Init: init}
}

// parameters parses a parameter list. A parameter may carry a default
// value; once one does, every later parameter must too.
func (p *Parser) parameters(what string) ([]Token, []Expr) {
	p.expect(TokenLParen, "expected '(' after "+what+" name")
	var params []Token
	var defaults []Expr
	if !p.check(TokenRParen) {
		for {
			param := p.expect(TokenIdentifier, "expected parameter name")
			for _, prev := range params {
				if prev.Lexeme == param.Lexeme {
					p.errorAt(param, "duplicate parameter %q", param.Lexeme)
				}
			}
			var def Expr
			if p.match(TokenEqual) {
				def = p.expression()
			} else if len(defaults) > 0 && defaults[len(defaults)-1] != nil {
				p.errorAt(param, "parameter %q without a default follows one with a default", param.Lexeme)
			}
			params = append(params, param)
			defaults = append(defaults, def)
			if !p.match(TokenComma) {
				break
			}
		}
	}
	p.expect(TokenRParen, "expected ')' after parameters")
	return params, defaults
}

func (p *Parser) functionDecl() Stmt {
	name := p.expect(TokenIdentifier, "expected function name")
	params, defaults := p.parameters("function")
	p.skipEOS()
	p.expect(TokenLBrace, "expected '{' before function body")
	return &FunctionDecl{Name: name, Params: params, Defaults: defaults, Body: p.blockBody()}
}

func (p *Parser) classDecl() Stmt {
	name := p.expect(TokenIdentifier, "expected class name")
	var super *Variable
	if p.match(TokenColon) {
		super = &Variable{Name: p.expect(TokenIdentifier, "expected superclass name")}
	}
	p.skipEOS()
	p.expect(TokenLBrace, "expected '{' before class body")

	var methods []*MethodDecl
	for {
		p.skipEOS()
		if p.check(TokenRBrace) || p.atEnd() {
			break
		}
		p.match(TokenFunc)
		mname := p.expect(TokenIdentifier, "expected method name")
		params, defaults := p.parameters("method")
		p.skipEOS()
		p.expect(TokenLBrace, "expected '{' before method body")
		methods = append(methods, &MethodDecl{Name: mname, Params: params, Defaults: defaults, Body: p.blockBody()})
	}
	p.expect(TokenRBrace, "expected '}' after class body")
	return &Class{Name: name, Superclass: super, Methods: methods}
}

func (p *Parser) ifStmt() Stmt {
	kw := p.previous()
	p.expect(TokenLParen, "expected '(' after 'if'")
	cond := p.expression()
	p.expect(TokenRParen, "expected ')' after if condition")
	then := p.body()

	var els Stmt
	if p.check(TokenEOS) && p.peekNext().Type == TokenElse {
		p.advance()
	}
	if p.match(TokenElse) {
		els = p.body()
	}
	return &If{Keyword: kw, Cond: cond, Then: then, Else: els}
}

func (p *Parser) whileStmt() Stmt {
	kw := p.previous()
	p.expect(TokenLParen, "expected '(' after 'while'")
	cond := p.expression()
	p.expect(TokenRParen, "expected ')' after while condition")
	return &While{Keyword: kw, Cond: cond, Body: p.body()}
}

// forStmt desugars for(init; cond; inc) body into
// { init; while (cond) { {body} inc } }.
func (p *Parser) forStmt() Stmt {
	kw := p.previous()
	p.expect(TokenLParen, "expected '(' after 'for'")

	var init Stmt
	switch {
	case p.match(TokenEOS):
	case p.match(TokenVar):
		init = p.varDecl()
	default:
		expr := p.expression()
		p.expect(TokenEOS, "expected ';' after loop initializer")
		init = &ExprStmt{Expr: expr}
	}

	var cond Expr
	if !p.check(TokenEOS) {
		cond = p.expression()
	}
	p.expect(TokenEOS, "expected ';' after loop condition")

	var inc Expr
	if !p.check(TokenRParen) {
		inc = p.expression()
	}
	p.expect(TokenRParen, "expected ')' after for clauses")

	body := p.body()
	if _, ok := body.(*Block); !ok {
		body = &Block{Brace: kw, Stmts: []Stmt{body}}
	}
	loopBody := []Stmt{body}
	if inc != nil {
		loopBody = append(loopBody, &ExprStmt{Expr: inc})
	}
	if cond == nil {
		cond = &Literal{Token: kw, Kind: LiteralBool, Value: true}
	}
	loop := &While{Keyword: kw, Cond: cond, Body: &Block{Brace: kw, Stmts: loopBody}}

	outer := &Block{Brace: kw}
	if init != nil {
		outer.Stmts = append(outer.Stmts, init)
	}
	outer.Stmts = append(outer.Stmts, loop)
	return outer
}

func (p *Parser) foreachStmt() Stmt {
	kw := p.previous()
	p.expect(TokenLParen, "expected '(' after 'foreach'")
	p.match(TokenVar)
	name := p.expect(TokenIdentifier, "expected loop variable name")
	p.expect(TokenIn, "expected 'in' after loop variable")
	iterable := p.expression()
	p.expect(TokenRParen, "expected ')' after foreach expression")
	return &Foreach{Keyword: kw, Var: name, Iterable: iterable, Body: p.body()}
}

func (p *Parser) repeatStmt() Stmt {
	kw := p.previous()
	p.expect(TokenLParen, "expected '(' after 'repeat'")
	count := p.expression()
	p.expect(TokenRParen, "expected ')' after repeat count")
	return &Repeat{Keyword: kw, Count: count, Body: p.body()}
}

func (p *Parser) importStmt() Stmt {
	kw := p.previous()
	name := p.expect(TokenIdentifier, "expected module name")
	var from *Token
	if p.check(TokenIdentifier) && p.peek().Lexeme == "from" {
		p.advance()
		path := p.expect(TokenString, "expected string after 'from'")
		from = &path
	}
	p.endStatement("import statement")
	return &Import{Keyword: kw, Name: name, From: from}
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

var compoundOps = map[TokenType]AssignOp{
	TokenEqual:         AssignPlain,
	TokenPlusEqual:     AssignAdd,
	TokenMinusEqual:    AssignSub,
	TokenStarEqual:     AssignMul,
	TokenSlashEqual:    AssignDiv,
	TokenPercentEqual:  AssignMod,
	TokenStarStarEqual: AssignPow,
	TokenPlusPlus:      AssignIncrement,
	TokenMinusMinus:    AssignDecrement,
}

// ParseExpression parses a single expression from the current position.
func (p *Parser) ParseExpression() (expr Expr) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			expr = nil
		}
	}()
	return p.expression()
}

func (p *Parser) expression() Expr {
	return p.assignment()
}

func (p *Parser) assignment() Expr {
	target := p.or()

	op, ok := compoundOps[p.peek().Type]
	if !ok {
		return target
	}
	opTok := p.advance()

	var value Expr
	if !op.IsStep() {
		value = p.assignment()
	}

	switch t := target.(type) {
	case *Variable:
		if t.Name.Type == TokenThis {
			break
		}
		return &Assign{Name: t.Name, Op: op, Value: value}
	case *Get:
		return &Set{Object: t.Object, Name: t.Name, Op: op, Value: value}
	case *Index:
		return &SetIndex{Object: t.Object, Bracket: t.Bracket, Index: t.Index, Op: op, Value: value}
	}
	p.errorAt(opTok, "invalid assignment target for %q", opTok.Lexeme)
	return target
}

func (p *Parser) or() Expr {
	expr := p.and()
	for p.match(TokenOr, TokenXor) {
		op := p.previous()
		right := p.and()
		expr = &Logical{Left: expr, Operator: op, Right: right}
	}
	return expr
}

func (p *Parser) and() Expr {
	expr := p.not()
	for p.match(TokenAnd) {
		op := p.previous()
		right := p.not()
		expr = &Logical{Left: expr, Operator: op, Right: right}
	}
	return expr
}

func (p *Parser) not() Expr {
	if p.match(TokenNot) {
		op := p.previous()
		return &Unary{Operator: op, Right: p.not()}
	}
	return p.equality()
}

// binaryLevel parses a left-associative chain of operators.
func (p *Parser) binaryLevel(next func() Expr, ops ...TokenType) Expr {
	expr := next()
	for p.match(ops...) {
		op := p.previous()
		right := next()
		expr = &Binary{Left: expr, Operator: op, Right: right}
	}
	return expr
}

func (p *Parser) equality() Expr {
	return p.binaryLevel(p.comparison, TokenEqualEqual, TokenBangEqual)
}

func (p *Parser) comparison() Expr {
	return p.binaryLevel(p.term, TokenLess, TokenLessEqual, TokenGreater, TokenGreaterEqual)
}

func (p *Parser) term() Expr {
	return p.binaryLevel(p.factor, TokenPlus, TokenMinus)
}

func (p *Parser) factor() Expr {
	return p.binaryLevel(p.power, TokenStar, TokenSlash, TokenPercent)
}

func (p *Parser) power() Expr {
	return p.binaryLevel(p.unary, TokenStarStar)
}

func (p *Parser) unary() Expr {
	if p.match(TokenBang, TokenMinus, TokenPlus) {
		op := p.previous()
		return &Unary{Operator: op, Right: p.unary()}
	}
	return p.call()
}

func (p *Parser) call() Expr {
	expr := p.primary()
	for {
		switch {
		case p.match(TokenLParen):
			var args []Expr
			if !p.check(TokenRParen) {
				for {
					args = append(args, p.expression())
					if !p.match(TokenComma) {
						break
					}
				}
			}
			paren := p.expect(TokenRParen, "expected ')' after arguments")
			expr = &Call{Callee: expr, Paren: paren, Args: args}
		case p.match(TokenDot):
			name := p.expect(TokenIdentifier, "expected attribute name after '.'")
			expr = &Get{Object: expr, Name: name}
		case p.match(TokenLBracket):
			bracket := p.previous()
			index := p.expression()
			p.expect(TokenRBracket, "expected ']' after index")
			expr = &Index{Object: expr, Bracket: bracket, Index: index}
		default:
			return expr
		}
	}
}

func (p *Parser) primary() Expr {
	tok := p.peek()
	switch tok.Type {
	case TokenTrue:
		p.advance()
		return &Literal{Token: tok, Kind: LiteralBool, Value: true}
	case TokenFalse:
		p.advance()
		return &Literal{Token: tok, Kind: LiteralBool, Value: false}
	case TokenNull:
		p.advance()
		return &Literal{Token: tok, Kind: LiteralNull}
	case TokenNumber:
		p.advance()
		return &Literal{Token: tok, Kind: LiteralNumber, Value: tok.Literal}
	case TokenString:
		p.advance()
		return &Literal{Token: tok, Kind: LiteralString, Value: tok.Literal}
	case TokenThis, TokenIdentifier:
		p.advance()
		return &Variable{Name: tok}
	case TokenSuper:
		p.fail(tok, "'super' is not supported")
	case TokenLParen:
		p.advance()
		inner := p.expression()
		p.expect(TokenRParen, "expected ')' after expression")
		return &Grouping{Paren: tok, Inner: inner}
	case TokenLBracket:
		p.advance()
		var elems []Expr
		if !p.check(TokenRBracket) {
			for {
				elems = append(elems, p.expression())
				if !p.match(TokenComma) {
					break
				}
			}
		}
		p.expect(TokenRBracket, "expected ',' or ']' after list elements")
		return &ListLiteral{Bracket: tok, Elements: elems}
	case TokenLBrace:
		p.advance()
		return p.dictLiteral(tok)
	}
	p.fail(tok, "expected expression")
	return nil
}

// dictLiteral parses {k: v, ...}; the '{' is consumed. Braces do not
// suppress newlines, so end-of-statement tokens between entries are skipped.
func (p *Parser) dictLiteral(brace Token) Expr {
	d := &Dict{Brace: brace}
	p.skipEOS()
	if !p.check(TokenRBrace) {
		for {
			p.skipEOS()
			d.Keys = append(d.Keys, p.expression())
			p.expect(TokenColon, "expected ':' after dictionary key")
			d.Values = append(d.Values, p.expression())
			p.skipEOS()
			if !p.match(TokenComma) {
				break
			}
		}
	}
	p.expect(TokenRBrace, "expected ',' or '}' after dictionary entries")
	return d
}
