package vm

import (
	"context"
	"io"
	"sort"

	"github.com/tliron/commonlog"

	"github.com/chazu/bluejay/compiler"
)

// ---------------------------------------------------------------------------
// Runtime: one interpreter plus the pipeline that feeds it
// ---------------------------------------------------------------------------

// Runtime owns an interpreter and runs source through scan, parse, resolve
// and interpret. Globals persist between calls. A Runtime is not safe for
// concurrent use; the server serializes access through a worker.
type Runtime struct {
	interp *Interpreter
	log    commonlog.Logger
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithOutput sends print output to w.
func WithOutput(w io.Writer) Option {
	return func(rt *Runtime) { rt.interp.SetOutput(w) }
}

// WithInput reads input() lines from r.
func WithInput(r io.Reader) Option {
	return func(rt *Runtime) { rt.interp.SetInput(r) }
}

// WithLogger replaces the default bluejay.vm logger.
func WithLogger(log commonlog.Logger) Option {
	return func(rt *Runtime) { rt.log = log }
}

// WithMaxCallDepth changes the nested call limit.
func WithMaxCallDepth(n int) Option {
	return func(rt *Runtime) { rt.interp.SetMaxCallDepth(n) }
}

// NewRuntime creates a runtime with the native classes and builtins
// registered.
func NewRuntime(opts ...Option) *Runtime {
	rt := &Runtime{
		interp: NewInterpreter(),
		log:    commonlog.GetLogger("bluejay.vm"),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Interpreter exposes the underlying interpreter.
func (rt *Runtime) Interpreter() *Interpreter { return rt.interp }

// Compile scans, parses and resolves source. Diagnostics come back as a
// compiler.Diagnostics error; the resolver runs only on a clean parse.
func (rt *Runtime) Compile(source string) ([]compiler.Stmt, compiler.Locals, error) {
	stmts, diags := compiler.ParseSource(source)
	if len(diags) > 0 {
		return nil, nil, diags
	}
	locals, diags := compiler.Resolve(stmts)
	if len(diags) > 0 {
		return nil, nil, diags
	}
	return stmts, locals, nil
}

// Run executes a whole program. It returns compiler.Diagnostics for
// compile errors and *Error for the first runtime error.
func (rt *Runtime) Run(source string) error {
	return rt.RunContext(context.Background(), source)
}

// RunContext is Run, stopping with a RuntimeError that wraps ctx.Err()
// once ctx is done.
func (rt *Runtime) RunContext(ctx context.Context, source string) (err error) {
	stmts, locals, err := rt.Compile(source)
	if err != nil {
		rt.log.Debugf("compile failed: %v", err)
		return err
	}
	defer rt.enter(ctx, &err)()

	rt.interp.Resolve(locals)
	rt.log.Debugf("running %d statements", len(stmts))
	if err := rt.interp.Interpret(stmts); err != nil {
		rt.log.Debugf("runtime error: %v", err)
		return err
	}
	return nil
}

// Eval executes source and returns the value of a trailing expression
// statement, or Null when the last statement is not an expression.
func (rt *Runtime) Eval(source string) (Value, error) {
	return rt.EvalContext(context.Background(), source)
}

// EvalContext is Eval with the cancellation behavior of RunContext.
func (rt *Runtime) EvalContext(ctx context.Context, source string) (v Value, err error) {
	stmts, locals, err := rt.Compile(source)
	if err != nil {
		return nil, err
	}
	defer rt.enter(ctx, &err)()

	rt.interp.Resolve(locals)
	if len(stmts) == 0 {
		return Null, nil
	}
	last, ok := stmts[len(stmts)-1].(*compiler.ExprStmt)
	if !ok {
		return Null, rt.interp.Interpret(stmts)
	}
	if err := rt.interp.Interpret(stmts[:len(stmts)-1]); err != nil {
		return nil, err
	}
	return rt.interp.Evaluate(last.Expr)
}

// enter installs ctx for one run. The returned func restores the previous
// context and turns a panic in the interpreter into a RuntimeError stored
// in *errp, leaving the runtime usable.
func (rt *Runtime) enter(ctx context.Context, errp *error) func() {
	in := rt.interp
	prev := in.ctx
	in.SetContext(ctx)
	return func() {
		in.ctx = prev
		if r := recover(); r != nil {
			rt.log.Errorf("recovered from panic: %v", r)
			in.env = in.globals
			in.depth = 0
			*errp = Errorf(RuntimeError, "internal error: %v", r)
		}
	}
}

// RegisterClass binds a native or prebuilt class as a global.
func (rt *Runtime) RegisterClass(c *Class) {
	rt.log.Debugf("registering class %s", c.Name)
	rt.interp.RegisterClass(c)
}

// DefineNative binds a native function as a global.
func (rt *Runtime) DefineNative(name string, arity int, fn NativeFunc) {
	rt.interp.DefineNative(name, arity, fn)
}

// Lookup returns the global bound to name.
func (rt *Runtime) Lookup(name string) (Value, bool) {
	return rt.interp.globals.Get(name)
}

// Globals returns the sorted names bound in the global environment.
func (rt *Runtime) Globals() []string {
	names := rt.interp.globals.Names()
	sort.Strings(names)
	return names
}

// Classes returns every class bound in the global environment, by name.
func (rt *Runtime) Classes() []*Class {
	var out []*Class
	for _, name := range rt.Globals() {
		if c, ok := rt.Lookup(name); ok {
			if class, ok := c.(*Class); ok {
				out = append(out, class)
			}
		}
	}
	return out
}

// Stringify renders v through the $str protocol.
func (rt *Runtime) Stringify(v Value) (string, error) {
	return rt.interp.Stringify(v)
}
