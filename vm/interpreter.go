package vm

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/chazu/bluejay/compiler"
)

// ---------------------------------------------------------------------------
// Interpreter: tree-walking evaluator
// ---------------------------------------------------------------------------

// DefaultMaxCallDepth bounds nested calls so runaway recursion is reported
// as a runtime error.
const DefaultMaxCallDepth = 4000

// Interpreter walks resolved statements. It is not safe for concurrent use.
type Interpreter struct {
	globals *Environment
	env     *Environment
	locals  compiler.Locals

	depth    int
	maxDepth int

	// ctx is polled at loop back-edges and calls
	ctx   context.Context
	ticks uint

	out io.Writer
	in  *bufio.Reader

	// Well-known native classes
	NumberClass  *Class
	StringClass  *Class
	BooleanClass *Class
	ListClass    *Class
	DictClass    *Class
}

// NewInterpreter creates an interpreter with the native classes and
// builtin functions registered in its globals.
func NewInterpreter() *Interpreter {
	globals := NewEnvironment(nil)
	in := &Interpreter{
		globals:  globals,
		env:      globals,
		locals:   make(compiler.Locals),
		maxDepth: DefaultMaxCallDepth,
		ctx:      context.Background(),
		out:      os.Stdout,
		in:       bufio.NewReader(os.Stdin),
	}
	in.bootstrap()
	return in
}

func (in *Interpreter) bootstrap() {
	in.NumberClass = in.registerNumberPrimitives()
	in.StringClass = in.registerStringPrimitives()
	in.BooleanClass = in.registerBooleanPrimitives()
	in.ListClass = in.registerListPrimitives()
	in.DictClass = in.registerDictPrimitives()
	in.registerBuiltins()
}

// Globals returns the global environment.
func (in *Interpreter) Globals() *Environment { return in.globals }

// Output returns the writer print writes to.
func (in *Interpreter) Output() io.Writer { return in.out }

// SetOutput redirects print.
func (in *Interpreter) SetOutput(w io.Writer) { in.out = w }

// SetInput replaces the reader input reads from.
func (in *Interpreter) SetInput(r io.Reader) { in.in = bufio.NewReader(r) }

// SetMaxCallDepth changes the nested call limit.
func (in *Interpreter) SetMaxCallDepth(n int) { in.maxDepth = n }

// SetContext makes running code stop with a RuntimeError once ctx is done.
// A nil ctx means no cancellation.
func (in *Interpreter) SetContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	in.ctx = ctx
}

// interruptCheckInterval is how many back-edges pass between context polls.
const interruptCheckInterval = 1024

// interrupted reports a done context as an error.
func (in *Interpreter) interrupted() error {
	in.ticks++
	if in.ticks%interruptCheckInterval != 0 {
		return nil
	}
	if err := in.ctx.Err(); err != nil {
		return &Error{Kind: RuntimeError, Message: "execution interrupted: " + err.Error(), cause: err}
	}
	return nil
}

// Resolve records resolver distances. Entries accumulate across calls so a
// REPL can resolve and run one input at a time.
func (in *Interpreter) Resolve(locals compiler.Locals) {
	for expr, d := range locals {
		in.locals[expr] = d
	}
}

// Interpret executes top-level statements. The first runtime error aborts
// the run; a break or return that escapes to the top level is an error too.
func (in *Interpreter) Interpret(stmts []compiler.Stmt) error {
	for _, stmt := range stmts {
		if stmt == nil {
			continue
		}
		out, err := in.exec(stmt)
		if err != nil {
			in.env = in.globals
			return err
		}
		if err := escaped(out); err != nil {
			return err
		}
	}
	return nil
}

// Evaluate evaluates one expression in the global environment.
func (in *Interpreter) Evaluate(expr compiler.Expr) (Value, error) {
	return in.eval(expr)
}

// evalIn evaluates expr with env as the current environment.
func (in *Interpreter) evalIn(expr compiler.Expr, env *Environment) (Value, error) {
	prev := in.env
	in.env = env
	defer func() { in.env = prev }()
	return in.eval(expr)
}

// ---------------------------------------------------------------------------
// Control-flow outcomes
// ---------------------------------------------------------------------------

type outcomeKind int

const (
	outcomeNormal outcomeKind = iota
	outcomeBreak
	outcomeReturn
)

// outcome is the result of executing a statement: normal completion, a
// break unwinding level loops, or a return carrying a value.
type outcome struct {
	kind  outcomeKind
	level int
	value Value
	token compiler.Token
}

var normal = outcome{}

// escaped converts a break or return that left every construct into an error.
func escaped(out outcome) error {
	switch out.kind {
	case outcomeBreak:
		return errorAt(out.token, RuntimeError, "break outside of loop")
	case outcomeReturn:
		return errorAt(out.token, RuntimeError, "return outside of function or method")
	}
	return nil
}

// loopBody interprets the outcome of one loop iteration. done reports
// whether the loop stops; out is what the loop statement itself yields.
func loopBody(o outcome) (done bool, out outcome) {
	switch o.kind {
	case outcomeBreak:
		if o.level > 1 {
			o.level--
			return true, o
		}
		return true, normal
	case outcomeReturn:
		return true, o
	}
	return false, normal
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (in *Interpreter) exec(stmt compiler.Stmt) (outcome, error) {
	switch s := stmt.(type) {
	case *compiler.ExprStmt:
		_, err := in.eval(s.Expr)
		return normal, err

	case *compiler.VarDecl:
		v := Null
		if s.Init != nil {
			var err error
			if v, err = in.eval(s.Init); err != nil {
				return normal, err
			}
		}
		in.env.Define(s.Name.Lexeme, v)
		return normal, nil

	case *compiler.Block:
		return in.executeBlock(s.Stmts, NewEnvironment(in.env))

	case *compiler.If:
		cond, err := in.eval(s.Cond)
		if err != nil {
			return normal, err
		}
		ok, err := in.Truthy(cond)
		if err != nil {
			return normal, locate(err, s.Keyword)
		}
		if ok {
			return in.exec(s.Then)
		}
		if s.Else != nil {
			return in.exec(s.Else)
		}
		return normal, nil

	case *compiler.While:
		return in.execWhile(s)

	case *compiler.Foreach:
		return in.execForeach(s)

	case *compiler.Repeat:
		return in.execRepeat(s)

	case *compiler.Break:
		level := 1
		if s.Amount != nil {
			v, err := in.eval(s.Amount)
			if err != nil {
				return normal, err
			}
			n, err := in.integer(v, "break amount")
			if err != nil {
				return normal, locate(err, s.Keyword)
			}
			if n < 1 {
				return normal, errorAt(s.Keyword, ValueError, "break amount must be at least 1, got %d", n)
			}
			level = n
		}
		return outcome{kind: outcomeBreak, level: level, token: s.Keyword}, nil

	case *compiler.Return:
		v := Null
		if s.Value != nil {
			var err error
			if v, err = in.eval(s.Value); err != nil {
				return normal, err
			}
		}
		return outcome{kind: outcomeReturn, value: v, token: s.Keyword}, nil

	case *compiler.FunctionDecl:
		in.env.Define(s.Name.Lexeme, &Function{Decl: s, Closure: in.env})
		return normal, nil

	case *compiler.Class:
		return normal, in.execClass(s)

	case *compiler.Import:
		return normal, errorAt(s.Keyword, RuntimeError, "imports are not supported")

	case *compiler.MethodDecl:
		return normal, errorAt(s.Name, RuntimeError, "method declaration outside of a class")
	}
	return normal, Errorf(RuntimeError, "unknown statement %T", stmt)
}

// executeBlock runs stmts with env as the current environment, restoring
// the previous one afterwards.
func (in *Interpreter) executeBlock(stmts []compiler.Stmt, env *Environment) (outcome, error) {
	prev := in.env
	in.env = env
	defer func() { in.env = prev }()

	for _, stmt := range stmts {
		out, err := in.exec(stmt)
		if err != nil || out.kind != outcomeNormal {
			return out, err
		}
	}
	return normal, nil
}

// executeBody runs a function or method body and yields its return value.
// A break cannot leave a function.
func (in *Interpreter) executeBody(stmts []compiler.Stmt, env *Environment) (Value, error) {
	out, err := in.executeBlock(stmts, env)
	if err != nil {
		return nil, err
	}
	switch out.kind {
	case outcomeReturn:
		return out.value, nil
	case outcomeBreak:
		return nil, escaped(out)
	}
	return Null, nil
}

func (in *Interpreter) execWhile(s *compiler.While) (outcome, error) {
	for {
		if err := in.interrupted(); err != nil {
			return normal, locate(err, s.Keyword)
		}
		cond, err := in.eval(s.Cond)
		if err != nil {
			return normal, err
		}
		ok, err := in.Truthy(cond)
		if err != nil {
			return normal, locate(err, s.Keyword)
		}
		if !ok {
			return normal, nil
		}
		body, err := in.exec(s.Body)
		if err != nil {
			return normal, err
		}
		if done, out := loopBody(body); done {
			return out, nil
		}
	}
}

func (in *Interpreter) execForeach(s *compiler.Foreach) (outcome, error) {
	iterable, err := in.eval(s.Iterable)
	if err != nil {
		return normal, err
	}
	items, err := in.Iterate(iterable)
	if err != nil {
		return normal, locate(err, s.Keyword)
	}
	for _, item := range items {
		if err := in.interrupted(); err != nil {
			return normal, locate(err, s.Keyword)
		}
		env := NewEnvironment(in.env)
		env.Define(s.Var.Lexeme, item)
		body, err := in.executeBlock([]compiler.Stmt{s.Body}, env)
		if err != nil {
			return normal, err
		}
		if done, out := loopBody(body); done {
			return out, nil
		}
	}
	return normal, nil
}

func (in *Interpreter) execRepeat(s *compiler.Repeat) (outcome, error) {
	v, err := in.eval(s.Count)
	if err != nil {
		return normal, err
	}
	n, err := in.integer(v, "repeat count")
	if err != nil {
		return normal, locate(err, s.Keyword)
	}
	for i := 0; i < n; i++ {
		if err := in.interrupted(); err != nil {
			return normal, locate(err, s.Keyword)
		}
		body, err := in.exec(s.Body)
		if err != nil {
			return normal, err
		}
		if done, out := loopBody(body); done {
			return out, nil
		}
	}
	return normal, nil
}

func (in *Interpreter) execClass(s *compiler.Class) error {
	var super *Class
	if s.Superclass != nil {
		v, err := in.eval(s.Superclass)
		if err != nil {
			return err
		}
		c, ok := v.(*Class)
		if !ok {
			return errorAt(s.Superclass.Name, TypeError, "superclass must be a class, not '%s'", TypeName(v))
		}
		super = c
	}
	class := NewClass(s.Name.Lexeme, super)
	for _, m := range s.Methods {
		class.AddStatic(m.Name.Lexeme, &Method{Decl: m, Closure: in.env, Class: class})
	}
	in.env.Define(s.Name.Lexeme, class)
	return nil
}

// integer coerces v through $num and requires an integral result.
func (in *Interpreter) integer(v Value, what string) (int, error) {
	f, err := in.ToNumber(v)
	if err != nil {
		return 0, err
	}
	return toInt(f, what)
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (in *Interpreter) eval(expr compiler.Expr) (Value, error) {
	switch e := expr.(type) {
	case *compiler.Literal:
		return in.evalLiteral(e)

	case *compiler.Grouping:
		return in.eval(e.Inner)

	case *compiler.Variable:
		return in.lookUpVariable(e.Name, e)

	case *compiler.Assign:
		rhs, err := in.assignedValue(e.Op, e.Value)
		if err != nil {
			return nil, err
		}
		if e.Op.IsCompound() {
			cur, err := in.lookUpVariable(e.Name, e)
			if err != nil {
				return nil, err
			}
			if rhs, err = in.Compound(e.Op, cur, rhs); err != nil {
				return nil, locate(err, e.Name)
			}
		}
		if err := in.assignVariable(e.Name, e, rhs); err != nil {
			return nil, err
		}
		return rhs, nil

	case *compiler.Unary:
		right, err := in.eval(e.Right)
		if err != nil {
			return nil, err
		}
		var v Value
		switch e.Operator.Type {
		case compiler.TokenMinus:
			v, err = in.Negate(right)
		case compiler.TokenPlus:
			v, err = in.Plus(right)
		default:
			var ok bool
			if ok, err = in.Truthy(right); err == nil {
				v = in.NewBoolean(!ok)
			}
		}
		if err != nil {
			return nil, locate(err, e.Operator)
		}
		return v, nil

	case *compiler.Binary:
		left, err := in.eval(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := in.eval(e.Right)
		if err != nil {
			return nil, err
		}
		v, err := in.Binary(e.Operator.Type, left, right)
		if err != nil {
			return nil, locate(err, e.Operator)
		}
		return v, nil

	case *compiler.Logical:
		return in.evalLogical(e)

	case *compiler.Call:
		callee, err := in.eval(e.Callee)
		if err != nil {
			return nil, err
		}
		args := make([]Value, 0, len(e.Args))
		for _, a := range e.Args {
			v, err := in.eval(a)
			if err != nil {
				return nil, err
			}
			args = append(args, v)
		}
		return in.call(callee, args, e.Paren)

	case *compiler.Get:
		obj, err := in.eval(e.Object)
		if err != nil {
			return nil, err
		}
		v, err := in.GetAttr(obj, e.Name.Lexeme)
		if err != nil {
			return nil, locate(err, e.Name)
		}
		return v, nil

	case *compiler.Set:
		obj, err := in.eval(e.Object)
		if err != nil {
			return nil, err
		}
		rhs, err := in.assignedValue(e.Op, e.Value)
		if err != nil {
			return nil, err
		}
		v, err := in.SetAttr(obj, e.Name.Lexeme, e.Op, rhs)
		if err != nil {
			return nil, locate(err, e.Name)
		}
		return v, nil

	case *compiler.Index:
		obj, err := in.eval(e.Object)
		if err != nil {
			return nil, err
		}
		idx, err := in.eval(e.Index)
		if err != nil {
			return nil, err
		}
		v, err := in.GetItem(obj, idx)
		if err != nil {
			return nil, locate(err, e.Bracket)
		}
		return v, nil

	case *compiler.SetIndex:
		return in.evalSetIndex(e)

	case *compiler.ListLiteral:
		items := make([]Value, 0, len(e.Elements))
		for _, el := range e.Elements {
			v, err := in.eval(el)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return in.NewList(items), nil

	case *compiler.Dict:
		dict := in.NewDict()
		data := dict.Native.(*DictData)
		for i := range e.Keys {
			k, err := in.eval(e.Keys[i])
			if err != nil {
				return nil, err
			}
			v, err := in.eval(e.Values[i])
			if err != nil {
				return nil, err
			}
			if err := data.Set(k, v); err != nil {
				return nil, locate(err, e.Brace)
			}
		}
		return dict, nil
	}
	return nil, Errorf(RuntimeError, "unknown expression %T", expr)
}

// evalLiteral boxes a literal by calling its native class constructor.
func (in *Interpreter) evalLiteral(e *compiler.Literal) (Value, error) {
	var class *Class
	switch e.Kind {
	case compiler.LiteralNumber:
		class = in.NumberClass
	case compiler.LiteralString:
		class = in.StringClass
	case compiler.LiteralBool:
		class = in.BooleanClass
	default:
		return Null, nil
	}
	return in.call(class, []Value{literal{raw: e.Value}}, e.Token)
}

func (in *Interpreter) evalLogical(e *compiler.Logical) (Value, error) {
	left, err := in.eval(e.Left)
	if err != nil {
		return nil, err
	}
	l, err := in.Truthy(left)
	if err != nil {
		return nil, locate(err, e.Operator)
	}
	switch e.Operator.Type {
	case compiler.TokenAnd:
		if !l {
			return left, nil
		}
		return in.eval(e.Right)
	case compiler.TokenOr:
		if l {
			return left, nil
		}
		return in.eval(e.Right)
	}
	right, err := in.eval(e.Right)
	if err != nil {
		return nil, err
	}
	r, err := in.Truthy(right)
	if err != nil {
		return nil, locate(err, e.Operator)
	}
	return in.NewBoolean(l != r), nil
}

func (in *Interpreter) evalSetIndex(e *compiler.SetIndex) (Value, error) {
	obj, err := in.eval(e.Object)
	if err != nil {
		return nil, err
	}
	idx, err := in.eval(e.Index)
	if err != nil {
		return nil, err
	}
	rhs, err := in.assignedValue(e.Op, e.Value)
	if err != nil {
		return nil, err
	}
	if e.Op.IsCompound() {
		cur, err := in.GetItem(obj, idx)
		if err != nil {
			return nil, locate(err, e.Bracket)
		}
		if rhs, err = in.Compound(e.Op, cur, rhs); err != nil {
			return nil, locate(err, e.Bracket)
		}
	}
	if err := in.SetItem(obj, idx, rhs); err != nil {
		return nil, locate(err, e.Bracket)
	}
	return rhs, nil
}

// assignedValue evaluates the right-hand side of an assignment; ++ and --
// step by one.
func (in *Interpreter) assignedValue(op compiler.AssignOp, value compiler.Expr) (Value, error) {
	if op.IsStep() || value == nil {
		return in.NewNumber(1), nil
	}
	return in.eval(value)
}

// ---------------------------------------------------------------------------
// Variables
// ---------------------------------------------------------------------------

func (in *Interpreter) lookUpVariable(name compiler.Token, expr compiler.Expr) (Value, error) {
	if d, ok := in.locals[expr]; ok {
		if v, ok := in.env.GetAt(d, name.Lexeme); ok {
			return v, nil
		}
		return nil, errorAt(name, RuntimeError, "local '%s' not found %d scopes out", name.Lexeme, d)
	}
	if v, ok := in.globals.Get(name.Lexeme); ok {
		return v, nil
	}
	return nil, errorAt(name, NameError, "undefined variable '%s'", name.Lexeme)
}

func (in *Interpreter) assignVariable(name compiler.Token, expr compiler.Expr, v Value) error {
	if d, ok := in.locals[expr]; ok {
		if in.env.AssignAt(d, name.Lexeme, v) {
			return nil
		}
		return errorAt(name, RuntimeError, "local '%s' not found %d scopes out", name.Lexeme, d)
	}
	if in.globals.Assign(name.Lexeme, v) {
		return nil
	}
	return errorAt(name, NameError, "undefined variable '%s'", name.Lexeme)
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

// Call invokes callee with args, checking arity. Native code uses it to
// call back into the interpreter.
func (in *Interpreter) Call(callee Value, args []Value) (Value, error) {
	fn, ok := callee.(Callable)
	if !ok {
		return nil, Errorf(RuntimeError, "object of type '%s' is not callable", TypeName(callee))
	}
	if hi := fn.Arity(); hi >= 0 {
		lo := minArity(fn)
		if n := len(args); n < lo || n > hi {
			if lo == hi {
				return nil, Errorf(RuntimeError, "expected %d arguments but got %d", hi, n)
			}
			return nil, Errorf(RuntimeError, "expected %d to %d arguments but got %d", lo, hi, n)
		}
	}
	if in.depth >= in.maxDepth {
		return nil, Errorf(RuntimeError, "maximum call depth of %d exceeded", in.maxDepth)
	}
	if err := in.interrupted(); err != nil {
		return nil, err
	}
	in.depth++
	defer func() { in.depth-- }()
	return fn.Call(in, args)
}

func (in *Interpreter) call(callee Value, args []Value, paren compiler.Token) (Value, error) {
	v, err := in.Call(callee, args)
	if err != nil {
		return nil, locate(err, paren)
	}
	return v, nil
}

// ---------------------------------------------------------------------------
// Class construction
// ---------------------------------------------------------------------------

func (c *Class) Call(in *Interpreter, args []Value) (Value, error) {
	inst := NewInstance(c)
	for k := c; k != nil; k = k.Superclass {
		if k.NewState != nil {
			inst.Native = k.NewState()
			break
		}
	}
	if init, ok := c.Initializer(); ok {
		bound, ok := bindMember(inst, init).(Callable)
		if !ok {
			return nil, Errorf(TypeError, "initializer of '%s' is not a method", c.Name)
		}
		if _, err := bound.Call(in, args); err != nil {
			return nil, err
		}
	}
	return inst, nil
}
