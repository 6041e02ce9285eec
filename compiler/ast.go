package compiler

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for Bluejay
// ---------------------------------------------------------------------------

// Node is the interface implemented by all AST nodes.
type Node interface {
	Pos() int // byte offset of the node's anchor token
	node()    // marker method
}

// AssignOp tags an assignment with the operator that produced it. Compound
// forms are kept distinct so a value can implement them in place.
type AssignOp int

const (
	AssignPlain AssignOp = iota // =
	AssignAdd                   // +=
	AssignSub                   // -=
	AssignMul                   // *=
	AssignDiv                   // /=
	AssignMod                   // %=
	AssignPow                   // **=
	AssignIncrement             // ++
	AssignDecrement             // --
)

var assignOpText = [...]string{"=", "+=", "-=", "*=", "/=", "%=", "**=", "++", "--"}

func (op AssignOp) String() string { return assignOpText[op] }

// IsCompound reports whether op reads the target before writing it.
func (op AssignOp) IsCompound() bool { return op != AssignPlain }

// IsStep reports whether op is ++ or --, which take no right-hand side.
func (op AssignOp) IsStep() bool { return op == AssignIncrement || op == AssignDecrement }

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// Assign is assignment to a bare identifier.
type Assign struct {
	Name  Token
	Op    AssignOp
	Value Expr // nil for ++ and --
}

// Get reads an attribute: object.name
type Get struct {
	Object Expr
	Name   Token
}

// Set writes an attribute: object.name = value
type Set struct {
	Object Expr
	Name   Token
	Op     AssignOp
	Value  Expr // nil for ++ and --
}

// Binary is an operator-dispatched binary expression.
type Binary struct {
	Left     Expr
	Operator Token
	Right    Expr
}

// Call invokes a callee with positional arguments.
type Call struct {
	Callee Expr
	Paren  Token // closing paren, for error positions
	Args   []Expr
}

// Dict is a dictionary literal {k: v, ...}.
type Dict struct {
	Brace  Token
	Keys   []Expr
	Values []Expr
}

// Grouping is a parenthesized expression.
type Grouping struct {
	Paren Token
	Inner Expr
}

// Index reads an element: object[index]
type Index struct {
	Object  Expr
	Bracket Token
	Index   Expr
}

// SetIndex writes an element: object[index] = value
type SetIndex struct {
	Object  Expr
	Bracket Token
	Index   Expr
	Op      AssignOp
	Value   Expr // nil for ++ and --
}

// ListLiteral is a list literal [a, b, ...].
type ListLiteral struct {
	Bracket  Token
	Elements []Expr
}

// LiteralKind identifies the type of a literal.
type LiteralKind int

const (
	LiteralNull LiteralKind = iota
	LiteralNumber
	LiteralString
	LiteralBool
)

// Literal is a null, number, string or boolean literal. Value is nil,
// float64, the raw string text, or bool.
type Literal struct {
	Token Token
	Kind  LiteralKind
	Value any
}

// Logical is a short-circuiting and/or, or a non-short-circuiting xor.
type Logical struct {
	Left     Expr
	Operator Token
	Right    Expr
}

// Unary is a prefix operator: !x, not x, -x, +x.
type Unary struct {
	Operator Token
	Right    Expr
}

// Variable references a name. `this` is a Variable whose token type is TokenThis.
type Variable struct {
	Name Token
}

func (n *Assign) Pos() int      { return n.Name.Offset }
func (n *Get) Pos() int         { return n.Name.Offset }
func (n *Set) Pos() int         { return n.Name.Offset }
func (n *Binary) Pos() int      { return n.Operator.Offset }
func (n *Call) Pos() int        { return n.Paren.Offset }
func (n *Dict) Pos() int        { return n.Brace.Offset }
func (n *Grouping) Pos() int    { return n.Paren.Offset }
func (n *Index) Pos() int       { return n.Bracket.Offset }
func (n *SetIndex) Pos() int    { return n.Bracket.Offset }
func (n *ListLiteral) Pos() int { return n.Bracket.Offset }
func (n *Literal) Pos() int     { return n.Token.Offset }
func (n *Logical) Pos() int     { return n.Operator.Offset }
func (n *Unary) Pos() int       { return n.Operator.Offset }
func (n *Variable) Pos() int    { return n.Name.Offset }

func (n *Assign) node()      {}
func (n *Get) node()         {}
func (n *Set) node()         {}
func (n *Binary) node()      {}
func (n *Call) node()        {}
func (n *Dict) node()        {}
func (n *Grouping) node()    {}
func (n *Index) node()       {}
func (n *SetIndex) node()    {}
func (n *ListLiteral) node() {}
func (n *Literal) node()     {}
func (n *Logical) node()     {}
func (n *Unary) node()       {}
func (n *Variable) node()    {}

func (n *Assign) expr()      {}
func (n *Get) expr()         {}
func (n *Set) expr()         {}
func (n *Binary) expr()      {}
func (n *Call) expr()        {}
func (n *Dict) expr()        {}
func (n *Grouping) expr()    {}
func (n *Index) expr()       {}
func (n *SetIndex) expr()    {}
func (n *ListLiteral) expr() {}
func (n *Literal) expr()     {}
func (n *Logical) expr()     {}
func (n *Unary) expr()       {}
func (n *Variable) expr()    {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// Block is a braced statement list with its own scope.
type Block struct {
	Brace Token
	Stmts []Stmt
}

// Break exits Amount enclosing loops (1 when Amount is nil).
type Break struct {
	Keyword Token
	Amount  Expr
}

// Class declares a class with an optional superclass.
type Class struct {
	Name       Token
	Superclass *Variable
	Methods    []*MethodDecl
}

// ExprStmt evaluates an expression for its side effects.
type ExprStmt struct {
	Expr Expr
}

// Foreach iterates the list produced by the iterable's $iter protocol.
type Foreach struct {
	Keyword  Token
	Var      Token
	Iterable Expr
	Body     Stmt
}

// FunctionDecl declares a named function. Defaults parallels Params and
// holds nil for a parameter without a default value.
type FunctionDecl struct {
	Name     Token
	Params   []Token
	Defaults []Expr
	Body     []Stmt
}

// If is a conditional with an optional else branch.
type If struct {
	Keyword Token
	Cond    Expr
	Then    Stmt
	Else    Stmt
}

// Import names a module and optional source path.
type Import struct {
	Keyword Token
	Name    Token
	From    *Token
}

// MethodDecl declares a method inside a class body.
type MethodDecl struct {
	Name     Token
	Params   []Token
	Defaults []Expr
	Body     []Stmt
}

// RequiredParams counts the leading parameters that have no default.
func RequiredParams(defaults []Expr) int {
	for i, d := range defaults {
		if d != nil {
			return i
		}
	}
	return len(defaults)
}

// Repeat runs Body floor(Count) times.
type Repeat struct {
	Keyword Token
	Count   Expr
	Body    Stmt
}

// Return exits the enclosing function or method.
type Return struct {
	Keyword Token
	Value   Expr
}

// VarDecl declares a variable in the current scope.
type VarDecl struct {
	Name Token
	Init Expr
}

// While loops while Cond is truthy.
type While struct {
	Keyword Token
	Cond    Expr
	Body    Stmt
}

func (n *Block) Pos() int        { return n.Brace.Offset }
func (n *Break) Pos() int        { return n.Keyword.Offset }
func (n *Class) Pos() int        { return n.Name.Offset }
func (n *ExprStmt) Pos() int     { return n.Expr.Pos() }
func (n *Foreach) Pos() int      { return n.Keyword.Offset }
func (n *FunctionDecl) Pos() int { return n.Name.Offset }
func (n *If) Pos() int           { return n.Keyword.Offset }
func (n *Import) Pos() int       { return n.Keyword.Offset }
func (n *MethodDecl) Pos() int   { return n.Name.Offset }
func (n *Repeat) Pos() int       { return n.Keyword.Offset }
func (n *Return) Pos() int       { return n.Keyword.Offset }
func (n *VarDecl) Pos() int      { return n.Name.Offset }
func (n *While) Pos() int        { return n.Keyword.Offset }

func (n *Block) node()        {}
func (n *Break) node()        {}
func (n *Class) node()        {}
func (n *ExprStmt) node()     {}
func (n *Foreach) node()      {}
func (n *FunctionDecl) node() {}
func (n *If) node()           {}
func (n *Import) node()       {}
func (n *MethodDecl) node()   {}
func (n *Repeat) node()       {}
func (n *Return) node()       {}
func (n *VarDecl) node()      {}
func (n *While) node()        {}

func (n *Block) stmt()        {}
func (n *Break) stmt()        {}
func (n *Class) stmt()        {}
func (n *ExprStmt) stmt()     {}
func (n *Foreach) stmt()      {}
func (n *FunctionDecl) stmt() {}
func (n *If) stmt()           {}
func (n *Import) stmt()       {}
func (n *MethodDecl) stmt()   {}
func (n *Repeat) stmt()       {}
func (n *Return) stmt()       {}
func (n *VarDecl) stmt()      {}
func (n *While) stmt()        {}
