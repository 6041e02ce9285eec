package vm

import (
	"github.com/chazu/bluejay/compiler"
)

// ---------------------------------------------------------------------------
// Operator dispatch
//
// Every operator, coercion, index and iteration is a method with a reserved
// name looked up on the receiver's class chain. Nothing here knows about
// numbers or strings.
// ---------------------------------------------------------------------------

// Reserved method names.
const (
	MethodAdd     = "$add"
	MethodSub     = "$sub"
	MethodMul     = "$mul"
	MethodDiv     = "$div"
	MethodMod     = "$mod"
	MethodPow     = "$pow"
	MethodEq      = "$eq"
	MethodNe      = "$ne"
	MethodLt      = "$lt"
	MethodLte     = "$lte"
	MethodGt      = "$gt"
	MethodGte     = "$gte"
	MethodNeg     = "$neg"
	MethodUadd    = "$uadd"
	MethodGetItem = "$getitem"
	MethodSetItem = "$setitem"
	MethodStr     = "$str"
	MethodNum     = "$num"
	MethodBool    = "$bool"
	MethodIter    = "$iter"
)

type binaryOp struct {
	method string
	symbol string
}

var binaryOps = map[compiler.TokenType]binaryOp{
	compiler.TokenPlus:         {MethodAdd, "+"},
	compiler.TokenMinus:        {MethodSub, "-"},
	compiler.TokenStar:         {MethodMul, "*"},
	compiler.TokenSlash:        {MethodDiv, "/"},
	compiler.TokenPercent:      {MethodMod, "%"},
	compiler.TokenStarStar:     {MethodPow, "**"},
	compiler.TokenEqualEqual:   {MethodEq, "=="},
	compiler.TokenBangEqual:    {MethodNe, "!="},
	compiler.TokenLess:         {MethodLt, "<"},
	compiler.TokenLessEqual:    {MethodLte, "<="},
	compiler.TokenGreater:      {MethodGt, ">"},
	compiler.TokenGreaterEqual: {MethodGte, ">="},
}

// compoundOp maps an assignment operator to the optional in-place method
// tried first and the binary method used otherwise.
type compoundOp struct {
	inPlace string
	binaryOp
}

var compoundOps = map[compiler.AssignOp]compoundOp{
	compiler.AssignAdd:       {"$iadd", binaryOp{MethodAdd, "+="}},
	compiler.AssignSub:       {"$isub", binaryOp{MethodSub, "-="}},
	compiler.AssignMul:       {"$imul", binaryOp{MethodMul, "*="}},
	compiler.AssignDiv:       {"$idiv", binaryOp{MethodDiv, "/="}},
	compiler.AssignMod:       {"$imod", binaryOp{MethodMod, "%="}},
	compiler.AssignPow:       {"$ipow", binaryOp{MethodPow, "**="}},
	compiler.AssignIncrement: {"", binaryOp{MethodAdd, "++"}},
	compiler.AssignDecrement: {"", binaryOp{MethodSub, "--"}},
}

// maxIterChain bounds how many $iter hops foreach follows.
const maxIterChain = 64

// FindMethod looks name up on the class chain of v. Only instances have
// methods.
func FindMethod(v Value, name string) (Value, bool) {
	inst, ok := v.(*Instance)
	if !ok {
		return nil, false
	}
	return inst.Class.FindMember(name)
}

// Invoke calls the method name on recv. A missing method is an
// AttributeError.
func (in *Interpreter) Invoke(recv Value, name string, args ...Value) (Value, error) {
	member, ok := FindMethod(recv, name)
	if !ok {
		return nil, Errorf(AttributeError, "'%s' object has no method '%s'", TypeName(recv), name)
	}
	return in.Call(bindMember(recv.(*Instance), member), args)
}

// operator invokes a reserved method, failing with a TypeError naming the
// operator symbol when the receiver does not implement it.
func (in *Interpreter) operator(recv Value, op binaryOp, args ...Value) (Value, error) {
	member, ok := FindMethod(recv, op.method)
	if !ok {
		return nil, Errorf(TypeError, "unsupported operation '%s' for type '%s'", op.symbol, TypeName(recv))
	}
	return in.Call(bindMember(recv.(*Instance), member), args)
}

// Binary applies a binary operator. Equality involving null or any
// non-instance compares identity without dispatch.
func (in *Interpreter) Binary(op compiler.TokenType, left, right Value) (Value, error) {
	bop, ok := binaryOps[op]
	if !ok {
		return nil, Errorf(RuntimeError, "invalid binary operator %s", op)
	}
	if op == compiler.TokenEqualEqual || op == compiler.TokenBangEqual {
		_, lok := left.(*Instance)
		_, rok := right.(*Instance)
		if !lok || !rok {
			same := left == right
			if op == compiler.TokenBangEqual {
				same = !same
			}
			return in.NewBoolean(same), nil
		}
	}
	return in.operator(left, bop, right)
}

// Negate applies unary minus.
func (in *Interpreter) Negate(v Value) (Value, error) {
	return in.operator(v, binaryOp{MethodNeg, "unary -"})
}

// Plus applies unary plus.
func (in *Interpreter) Plus(v Value) (Value, error) {
	return in.operator(v, binaryOp{MethodUadd, "unary +"})
}

// Compound computes the new value for a compound assignment of cur. An
// in-place method ($iadd and friends) is preferred when the class has one.
func (in *Interpreter) Compound(op compiler.AssignOp, cur, rhs Value) (Value, error) {
	cop, ok := compoundOps[op]
	if !ok {
		return rhs, nil
	}
	if cop.inPlace != "" {
		if member, ok := FindMethod(cur, cop.inPlace); ok {
			return in.Call(bindMember(cur.(*Instance), member), []Value{rhs})
		}
	}
	return in.operator(cur, cop.binaryOp, rhs)
}

// Equal reports whether a == b under the $eq protocol.
func (in *Interpreter) Equal(a, b Value) (bool, error) {
	v, err := in.Binary(compiler.TokenEqualEqual, a, b)
	if err != nil {
		return false, err
	}
	return in.Truthy(v)
}

// ---------------------------------------------------------------------------
// Coercions
// ---------------------------------------------------------------------------

// Truthy applies $bool. Null is false; a value without $bool is true.
func (in *Interpreter) Truthy(v Value) (bool, error) {
	if IsNull(v) {
		return false, nil
	}
	member, ok := FindMethod(v, MethodBool)
	if !ok {
		return true, nil
	}
	res, err := in.Call(bindMember(v.(*Instance), member), nil)
	if err != nil {
		return false, err
	}
	b, ok := AsBool(res)
	if !ok {
		return false, Errorf(TypeError, "$bool must return a Boolean, not '%s'", TypeName(res))
	}
	return b, nil
}

// Stringify applies $str. Values without one print as <Name object>.
func (in *Interpreter) Stringify(v Value) (string, error) {
	switch x := v.(type) {
	case nullValue:
		return "null", nil
	case *Class:
		return x.String(), nil
	case *Function:
		return x.String(), nil
	case *BoundMethod:
		return x.String(), nil
	case *BoundNative:
		return x.String(), nil
	case *NativeFunction:
		return x.String(), nil
	case *Instance:
		member, ok := x.Class.FindMember(MethodStr)
		if !ok {
			return "<" + x.Class.Name + " object>", nil
		}
		res, err := in.Call(bindMember(x, member), nil)
		if err != nil {
			return "", err
		}
		s, ok := AsString(res)
		if !ok {
			return "", Errorf(TypeError, "$str must return a String, not '%s'", TypeName(res))
		}
		return s, nil
	}
	return "<" + TypeName(v) + ">", nil
}

// ToNumber applies $num. Coercion is never implicit: a value without
// $num is a TypeError.
func (in *Interpreter) ToNumber(v Value) (float64, error) {
	if lit, ok := v.(literal); ok {
		if f, ok := lit.raw.(float64); ok {
			return f, nil
		}
	}
	member, ok := FindMethod(v, MethodNum)
	if !ok {
		return 0, Errorf(TypeError, "cannot convert '%s' to a number", TypeName(v))
	}
	res, err := in.Call(bindMember(v.(*Instance), member), nil)
	if err != nil {
		return 0, err
	}
	f, ok := AsNumber(res)
	if !ok {
		return 0, Errorf(TypeError, "$num must return a Number, not '%s'", TypeName(res))
	}
	return f, nil
}

// ---------------------------------------------------------------------------
// Indexing and iteration
// ---------------------------------------------------------------------------

// GetItem applies $getitem.
func (in *Interpreter) GetItem(obj, index Value) (Value, error) {
	if _, ok := FindMethod(obj, MethodGetItem); !ok {
		return nil, Errorf(RuntimeError, "object of type '%s' is not indexable", TypeName(obj))
	}
	return in.operator(obj, binaryOp{MethodGetItem, "[]"}, index)
}

// SetItem applies $setitem.
func (in *Interpreter) SetItem(obj, index, v Value) error {
	if _, ok := FindMethod(obj, MethodSetItem); !ok {
		return Errorf(RuntimeError, "object of type '%s' does not support item assignment", TypeName(obj))
	}
	_, err := in.operator(obj, binaryOp{MethodSetItem, "[]="}, index, v)
	return err
}

// Iterate resolves v to a list of elements for foreach. Lists iterate
// directly; otherwise $iter is called until it yields a list. A result that
// is neither a list nor has $iter is a TypeError.
func (in *Interpreter) Iterate(v Value) ([]Value, error) {
	cur := v
	for hops := 0; ; hops++ {
		if list, ok := AsList(cur); ok {
			return append([]Value(nil), list.Items...), nil
		}
		member, ok := FindMethod(cur, MethodIter)
		if !ok {
			if hops == 0 {
				return nil, Errorf(RuntimeError, "object of type '%s' is not iterable", TypeName(v))
			}
			return nil, Errorf(TypeError, "$iter of '%s' returned non-iterable '%s'", TypeName(v), TypeName(cur))
		}
		if hops >= maxIterChain {
			return nil, Errorf(RuntimeError, "$iter chain of '%s' did not produce a List", TypeName(v))
		}
		next, err := in.Call(bindMember(cur.(*Instance), member), nil)
		if err != nil {
			return nil, err
		}
		if next == cur {
			return nil, Errorf(TypeError, "$iter of '%s' returned itself", TypeName(cur))
		}
		cur = next
	}
}

// ---------------------------------------------------------------------------
// Attributes
// ---------------------------------------------------------------------------

// GetAttr reads obj.name: the instance's own fields first, then its class
// chain. Methods come back bound to obj, freshly on every access.
func (in *Interpreter) GetAttr(obj Value, name string) (Value, error) {
	switch x := obj.(type) {
	case *Instance:
		if v, ok := x.Fields[name]; ok {
			return v, nil
		}
		if member, ok := x.Class.FindMember(name); ok {
			return bindMember(x, member), nil
		}
		return nil, Errorf(AttributeError, "'%s' object has no attribute '%s'", x.Class.Name, name)
	case *Class:
		if member, ok := x.FindMember(name); ok {
			return member, nil
		}
		return nil, Errorf(AttributeError, "class '%s' has no member '%s'", x.Name, name)
	}
	return nil, Errorf(AttributeError, "'%s' value has no attribute '%s'", TypeName(obj), name)
}

// SetAttr writes obj.name. A compound operator needs the attribute to be
// present on the instance already.
func (in *Interpreter) SetAttr(obj Value, name string, op compiler.AssignOp, rhs Value) (Value, error) {
	inst, ok := obj.(*Instance)
	if !ok {
		return nil, Errorf(TypeError, "cannot set attribute '%s' on '%s'", name, TypeName(obj))
	}
	if inst.Fields == nil {
		inst.Fields = make(map[string]Value)
	}
	if !op.IsCompound() {
		inst.Fields[name] = rhs
		return rhs, nil
	}
	cur, ok := inst.Fields[name]
	if !ok {
		return nil, Errorf(AttributeError, "'%s' object has no attribute '%s' to update with '%s'", inst.Class.Name, name, op)
	}
	res, err := in.Compound(op, cur, rhs)
	if err != nil {
		return nil, err
	}
	inst.Fields[name] = res
	return res, nil
}
