package vm

import (
	"fmt"

	"github.com/chazu/bluejay/compiler"
)

// ---------------------------------------------------------------------------
// Value: the universal runtime datum
// ---------------------------------------------------------------------------

// Value is implemented by every runtime value. The set is closed:
//
//	Null           the null singleton
//	*Instance      an object of some class (numbers and strings included)
//	*Class         a class, callable as its constructor
//	*Function      a user function closing over its defining environment
//	*BoundMethod   a user method paired with its receiver
//	*NativeFunction, *BoundNative  host-implemented callables
//	literal        an unboxed literal, only ever passed to a constructor
type Value interface {
	value() // marker method
}

type nullValue struct{}

func (nullValue) value() {}

// Null is the null value. There is exactly one.
var Null Value = nullValue{}

// IsNull reports whether v is Null.
func IsNull(v Value) bool {
	_, ok := v.(nullValue)
	return ok
}

// literal carries a raw float64, string or bool from the parser into the
// matching native constructor.
type literal struct {
	raw any
}

func (literal) value() {}

// ---------------------------------------------------------------------------
// Instance
// ---------------------------------------------------------------------------

// Instance is an object: a class pointer, its own attributes, and an
// opaque slot for state owned by a native class (float64 for Number,
// string for String, bool for Boolean, *ListData, *DictData).
type Instance struct {
	Class  *Class
	Fields map[string]Value
	Native any
}

func (*Instance) value() {}

// NewInstance allocates an instance of class without running any initializer.
func NewInstance(class *Class) *Instance {
	return &Instance{Class: class, Fields: make(map[string]Value)}
}

// ---------------------------------------------------------------------------
// Class
// ---------------------------------------------------------------------------

// Class holds a name, an optional superclass and its statics: methods,
// native methods and any other member values. The initializer is the
// static whose name equals the class name. NewState, set on native
// classes, makes the zero native state of every instance, including
// instances of user subclasses.
type Class struct {
	Name       string
	Superclass *Class
	Statics    map[string]Value
	Native     bool
	NewState   func() any
}

func (*Class) value() {}

// NewClass creates a class with an empty statics table.
func NewClass(name string, superclass *Class) *Class {
	return &Class{Name: name, Superclass: superclass, Statics: make(map[string]Value)}
}

// FindMember looks name up in the statics of c and its ancestors,
// most-derived first.
func (c *Class) FindMember(name string) (Value, bool) {
	for k := c; k != nil; k = k.Superclass {
		if v, ok := k.Statics[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Initializer returns the method named after the class, if any.
func (c *Class) Initializer() (Value, bool) {
	return c.FindMember(c.Name)
}

// IsSubclassOf reports whether c is other or inherits from it.
func (c *Class) IsSubclassOf(other *Class) bool {
	for k := c; k != nil; k = k.Superclass {
		if k == other {
			return true
		}
	}
	return false
}

// AddStatic sets a member value.
func (c *Class) AddStatic(name string, v Value) {
	c.Statics[name] = v
}

// AddMethod0 registers a zero-argument native method.
func (c *Class) AddMethod0(name string, fn Method0Func) {
	c.Statics[name] = NewMethod0(name, fn)
}

// AddMethod1 registers a one-argument native method.
func (c *Class) AddMethod1(name string, fn Method1Func) {
	c.Statics[name] = NewMethod1(name, fn)
}

// AddMethod2 registers a two-argument native method.
func (c *Class) AddMethod2(name string, fn Method2Func) {
	c.Statics[name] = NewMethod2(name, fn)
}

// Arity is the parameter count of the initializer, or zero without one.
func (c *Class) Arity() int {
	init, ok := c.Initializer()
	if !ok {
		return 0
	}
	return memberArity(init)
}

// MinArity is the number of initializer parameters without defaults.
func (c *Class) MinArity() int {
	init, ok := c.Initializer()
	if !ok {
		return 0
	}
	if m, ok := init.(*Method); ok {
		return compiler.RequiredParams(m.Decl.Defaults)
	}
	return memberArity(init)
}

func (c *Class) String() string { return fmt.Sprintf("<class %s>", c.Name) }

// ---------------------------------------------------------------------------
// Type names
// ---------------------------------------------------------------------------

// TypeName names the type of v for error messages.
func TypeName(v Value) string {
	switch x := v.(type) {
	case nullValue:
		return "Null"
	case *Instance:
		return x.Class.Name
	case *Class:
		return "Class"
	case *Function:
		return "Function"
	case *BoundMethod, *BoundNative:
		return "Method"
	case *NativeFunction:
		return "NativeFunction"
	case literal:
		switch x.raw.(type) {
		case float64:
			return "Number"
		case string:
			return "String"
		case bool:
			return "Boolean"
		}
	}
	return "Object"
}
