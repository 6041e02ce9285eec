package vm

import (
	"strings"
)

// ---------------------------------------------------------------------------
// List: growable ordered sequence
// ---------------------------------------------------------------------------

// ListData is the native state of a List instance.
type ListData struct {
	Items []Value
}

// NewList boxes items as a List instance. The slice is not copied.
func (in *Interpreter) NewList(items []Value) *Instance {
	return &Instance{Class: in.ListClass, Native: &ListData{Items: items}}
}

// AsList unwraps a List instance.
func AsList(v Value) (*ListData, bool) {
	inst, ok := v.(*Instance)
	if !ok {
		return nil, false
	}
	l, ok := inst.Native.(*ListData)
	return l, ok
}

func listOf(recv *Instance) (*ListData, error) {
	l, ok := recv.Native.(*ListData)
	if !ok {
		return nil, Errorf(TypeError, "'%s' object is not a list", recv.Class.Name)
	}
	return l, nil
}

func (in *Interpreter) joinValues(items []Value, sep string) (string, error) {
	parts := make([]string, len(items))
	for i, item := range items {
		s, err := in.Stringify(item)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, sep), nil
}

func (in *Interpreter) registerListPrimitives() *Class {
	c := NewClass("List", nil)
	c.Native = true
	c.NewState = func() any { return &ListData{} }

	c.AddMethod0("List", func(in *Interpreter, recv *Instance) (Value, error) {
		recv.Native = &ListData{}
		return Null, nil
	})

	c.AddMethod0("length", func(in *Interpreter, recv *Instance) (Value, error) {
		l, err := listOf(recv)
		if err != nil {
			return nil, err
		}
		return in.NewNumber(float64(len(l.Items))), nil
	})

	c.AddMethod1("append", func(in *Interpreter, recv *Instance, v Value) (Value, error) {
		l, err := listOf(recv)
		if err != nil {
			return nil, err
		}
		l.Items = append(l.Items, v)
		return Null, nil
	})

	c.AddMethod0("pop", func(in *Interpreter, recv *Instance) (Value, error) {
		l, err := listOf(recv)
		if err != nil {
			return nil, err
		}
		if len(l.Items) == 0 {
			return nil, Errorf(ValueError, "pop from empty list")
		}
		last := l.Items[len(l.Items)-1]
		l.Items = l.Items[:len(l.Items)-1]
		return last, nil
	})

	c.AddMethod2("insert", func(in *Interpreter, recv *Instance, index, v Value) (Value, error) {
		l, err := listOf(recv)
		if err != nil {
			return nil, err
		}
		i, err := intArg(index, "index")
		if err != nil {
			return nil, err
		}
		n := len(l.Items)
		pos := i
		if pos < 0 {
			pos += n
		}
		if pos < 0 || pos > n {
			return nil, Errorf(ValueError, "index %d out of range for insert into length %d", i, n)
		}
		l.Items = append(l.Items, nil)
		copy(l.Items[pos+1:], l.Items[pos:])
		l.Items[pos] = v
		return Null, nil
	})

	c.AddMethod1("contains", func(in *Interpreter, recv *Instance, v Value) (Value, error) {
		l, err := listOf(recv)
		if err != nil {
			return nil, err
		}
		for _, item := range l.Items {
			eq, err := in.Equal(item, v)
			if err != nil {
				return nil, err
			}
			if eq {
				return in.NewBoolean(true), nil
			}
		}
		return in.NewBoolean(false), nil
	})

	c.AddMethod1(MethodGetItem, func(in *Interpreter, recv *Instance, index Value) (Value, error) {
		l, err := listOf(recv)
		if err != nil {
			return nil, err
		}
		i, err := indexArg(index, len(l.Items))
		if err != nil {
			return nil, err
		}
		return l.Items[i], nil
	})

	c.AddMethod2(MethodSetItem, func(in *Interpreter, recv *Instance, index, v Value) (Value, error) {
		l, err := listOf(recv)
		if err != nil {
			return nil, err
		}
		i, err := indexArg(index, len(l.Items))
		if err != nil {
			return nil, err
		}
		l.Items[i] = v
		return Null, nil
	})

	c.AddMethod1(MethodAdd, func(in *Interpreter, recv *Instance, other Value) (Value, error) {
		l, err := listOf(recv)
		if err != nil {
			return nil, err
		}
		o, ok := AsList(other)
		if !ok {
			return nil, Errorf(TypeError, "can only concatenate List with List, not '%s'", TypeName(other))
		}
		items := make([]Value, 0, len(l.Items)+len(o.Items))
		items = append(items, l.Items...)
		items = append(items, o.Items...)
		return in.NewList(items), nil
	})

	c.AddMethod1("$iadd", func(in *Interpreter, recv *Instance, other Value) (Value, error) {
		l, err := listOf(recv)
		if err != nil {
			return nil, err
		}
		o, ok := AsList(other)
		if !ok {
			return nil, Errorf(TypeError, "can only extend List with List, not '%s'", TypeName(other))
		}
		l.Items = append(l.Items, o.Items...)
		return recv, nil
	})

	c.AddMethod1(MethodMul, func(in *Interpreter, recv *Instance, other Value) (Value, error) {
		l, err := listOf(recv)
		if err != nil {
			return nil, err
		}
		n, err := intArg(other, "repeat count")
		if err != nil {
			return nil, err
		}
		total, err := repeatLength(len(l.Items), n)
		if err != nil {
			return nil, err
		}
		items := make([]Value, 0, total)
		for i := 0; i < n && total > 0; i++ {
			items = append(items, l.Items...)
		}
		return in.NewList(items), nil
	})

	c.AddMethod1(MethodEq, func(in *Interpreter, recv *Instance, other Value) (Value, error) {
		l, err := listOf(recv)
		if err != nil {
			return nil, err
		}
		o, ok := AsList(other)
		if !ok || len(o.Items) != len(l.Items) {
			return in.NewBoolean(false), nil
		}
		for i := range l.Items {
			eq, err := in.Equal(l.Items[i], o.Items[i])
			if err != nil {
				return nil, err
			}
			if !eq {
				return in.NewBoolean(false), nil
			}
		}
		return in.NewBoolean(true), nil
	})

	c.AddMethod1(MethodNe, func(in *Interpreter, recv *Instance, other Value) (Value, error) {
		eq, err := in.Equal(recv, other)
		if err != nil {
			return nil, err
		}
		return in.NewBoolean(!eq), nil
	})

	c.AddMethod0(MethodStr, func(in *Interpreter, recv *Instance) (Value, error) {
		l, err := listOf(recv)
		if err != nil {
			return nil, err
		}
		s, err := in.joinValues(l.Items, ", ")
		if err != nil {
			return nil, err
		}
		return in.NewString("[" + s + "]"), nil
	})

	c.AddMethod0(MethodBool, func(in *Interpreter, recv *Instance) (Value, error) {
		l, err := listOf(recv)
		if err != nil {
			return nil, err
		}
		return in.NewBoolean(len(l.Items) > 0), nil
	})

	c.AddMethod0(MethodIter, func(in *Interpreter, recv *Instance) (Value, error) {
		if _, err := listOf(recv); err != nil {
			return nil, err
		}
		return recv, nil
	})

	in.RegisterClass(c)
	return c
}
