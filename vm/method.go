package vm

import (
	"fmt"

	"github.com/chazu/bluejay/compiler"
)

// Callable is implemented by every value that can appear as a callee.
type Callable interface {
	Value
	Arity() int // -1 for variadic
	Call(in *Interpreter, args []Value) (Value, error)
}

// minArity is the fewest arguments fn accepts. Callables whose trailing
// parameters have defaults report it through MinArity.
func minArity(fn Callable) int {
	if m, ok := fn.(interface{ MinArity() int }); ok {
		return m.MinArity()
	}
	return fn.Arity()
}

// bindParams defines params in env from args. Missing trailing arguments
// take their default values, evaluated in scope.
func bindParams(in *Interpreter, env, scope *Environment, params []compiler.Token, defaults []compiler.Expr, args []Value) error {
	for i, p := range params {
		if i < len(args) {
			env.Define(p.Lexeme, args[i])
			continue
		}
		v, err := in.evalIn(defaults[i], scope)
		if err != nil {
			return err
		}
		env.Define(p.Lexeme, v)
	}
	return nil
}

// ---------------------------------------------------------------------------
// User-defined callables
// ---------------------------------------------------------------------------

// Function is a user function closing over the environment it was
// declared in.
type Function struct {
	Decl    *compiler.FunctionDecl
	Closure *Environment
}

func (*Function) value() {}

func (f *Function) Name() string  { return f.Decl.Name.Lexeme }
func (f *Function) Arity() int     { return len(f.Decl.Params) }
func (f *Function) MinArity() int { return compiler.RequiredParams(f.Decl.Defaults) }

func (f *Function) Call(in *Interpreter, args []Value) (Value, error) {
	env := NewEnvironment(f.Closure)
	if err := bindParams(in, env, f.Closure, f.Decl.Params, f.Decl.Defaults, args); err != nil {
		return nil, err
	}
	return in.executeBody(f.Decl.Body, env)
}

func (f *Function) String() string { return fmt.Sprintf("<fn %s>", f.Name()) }

// Method is a user method stored in a class's statics. It is not callable
// until bound to a receiver.
type Method struct {
	Decl    *compiler.MethodDecl
	Closure *Environment
	Class   *Class
}

func (*Method) value() {}

// Bind pairs the method with a receiver.
func (m *Method) Bind(recv *Instance) *BoundMethod {
	return &BoundMethod{Receiver: recv, Method: m}
}

// BoundMethod is a method paired with its receiver. A fresh one is made on
// every attribute access.
type BoundMethod struct {
	Receiver *Instance
	Method   *Method
}

func (*BoundMethod) value() {}

func (b *BoundMethod) Name() string  { return b.Method.Decl.Name.Lexeme }
func (b *BoundMethod) Arity() int     { return len(b.Method.Decl.Params) }
func (b *BoundMethod) MinArity() int { return compiler.RequiredParams(b.Method.Decl.Defaults) }

func (b *BoundMethod) Call(in *Interpreter, args []Value) (Value, error) {
	self := NewEnvironment(b.Method.Closure)
	self.Define("this", b.Receiver)
	env := NewEnvironment(self)
	decl := b.Method.Decl
	if err := bindParams(in, env, self, decl.Params, decl.Defaults, args); err != nil {
		return nil, err
	}
	return in.executeBody(decl.Body, env)
}

func (b *BoundMethod) String() string {
	return fmt.Sprintf("<method %s.%s>", b.Method.Class.Name, b.Name())
}

// ---------------------------------------------------------------------------
// Native callables
// ---------------------------------------------------------------------------

// NativeFunc implements a native function.
type NativeFunc func(in *Interpreter, args []Value) (Value, error)

// NativeMethodFunc implements a native method of any arity.
type NativeMethodFunc func(in *Interpreter, recv *Instance, args []Value) (Value, error)

// Method0Func is a native method taking no arguments.
type Method0Func func(in *Interpreter, recv *Instance) (Value, error)

// Method1Func is a native method taking one argument.
type Method1Func func(in *Interpreter, recv *Instance, arg Value) (Value, error)

// Method2Func is a native method taking two arguments.
type Method2Func func(in *Interpreter, recv *Instance, arg1, arg2 Value) (Value, error)

// NativeFunction is a host-implemented global function.
type NativeFunction struct {
	name  string
	arity int
	fn    NativeFunc
}

func (*NativeFunction) value() {}

// NewNativeFunction wraps fn. An arity of -1 accepts any argument count.
func NewNativeFunction(name string, arity int, fn NativeFunc) *NativeFunction {
	return &NativeFunction{name: name, arity: arity, fn: fn}
}

func (f *NativeFunction) Name() string { return f.name }
func (f *NativeFunction) Arity() int   { return f.arity }

func (f *NativeFunction) Call(in *Interpreter, args []Value) (Value, error) {
	return f.fn(in, args)
}

func (f *NativeFunction) String() string { return fmt.Sprintf("<native fn %s>", f.name) }

// NativeMethod is a host-implemented method stored in a class's statics.
type NativeMethod struct {
	name  string
	arity int
	fn    NativeMethodFunc
}

func (*NativeMethod) value() {}

func (m *NativeMethod) Name() string { return m.name }
func (m *NativeMethod) Arity() int   { return m.arity }

// Invoke runs the method against recv. The argument count is not checked.
func (m *NativeMethod) Invoke(in *Interpreter, recv *Instance, args []Value) (Value, error) {
	return m.fn(in, recv, args)
}

// Bind pairs the method with a receiver.
func (m *NativeMethod) Bind(recv *Instance) *BoundNative {
	return &BoundNative{Receiver: recv, Method: m}
}

// NewNativeMethod wraps a general NativeMethodFunc. An arity of -1 accepts
// any argument count.
func NewNativeMethod(name string, arity int, fn NativeMethodFunc) *NativeMethod {
	return &NativeMethod{name: name, arity: arity, fn: fn}
}

// NewMethod0 creates a zero-argument native method.
func NewMethod0(name string, fn Method0Func) *NativeMethod {
	return NewNativeMethod(name, 0, func(in *Interpreter, recv *Instance, _ []Value) (Value, error) {
		return fn(in, recv)
	})
}

// NewMethod1 creates a one-argument native method.
func NewMethod1(name string, fn Method1Func) *NativeMethod {
	return NewNativeMethod(name, 1, func(in *Interpreter, recv *Instance, args []Value) (Value, error) {
		return fn(in, recv, args[0])
	})
}

// NewMethod2 creates a two-argument native method.
func NewMethod2(name string, fn Method2Func) *NativeMethod {
	return NewNativeMethod(name, 2, func(in *Interpreter, recv *Instance, args []Value) (Value, error) {
		return fn(in, recv, args[0], args[1])
	})
}

// BoundNative is a native method paired with its receiver.
type BoundNative struct {
	Receiver *Instance
	Method   *NativeMethod
}

func (*BoundNative) value() {}

func (b *BoundNative) Name() string { return b.Method.name }
func (b *BoundNative) Arity() int   { return b.Method.arity }

func (b *BoundNative) Call(in *Interpreter, args []Value) (Value, error) {
	return b.Method.fn(in, b.Receiver, args)
}

func (b *BoundNative) String() string {
	return fmt.Sprintf("<native method %s.%s>", b.Receiver.Class.Name, b.Method.name)
}

// ---------------------------------------------------------------------------
// Member helpers
// ---------------------------------------------------------------------------

// bindMember turns a method found in a class's statics into a callable
// bound to recv. Other members are returned unchanged.
func bindMember(recv *Instance, member Value) Value {
	switch m := member.(type) {
	case *Method:
		return m.Bind(recv)
	case *NativeMethod:
		return m.Bind(recv)
	}
	return member
}

// memberArity reports the parameter count of a class member, or -1.
func memberArity(member Value) int {
	switch m := member.(type) {
	case *Method:
		return len(m.Decl.Params)
	case *NativeMethod:
		return m.arity
	case Callable:
		return m.Arity()
	}
	return -1
}
