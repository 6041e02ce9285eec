package vm

// NewBoolean boxes b as a Boolean instance.
func (in *Interpreter) NewBoolean(b bool) *Instance {
	return &Instance{Class: in.BooleanClass, Native: b}
}

// AsBool unwraps a Boolean instance.
func AsBool(v Value) (bool, bool) {
	inst, ok := v.(*Instance)
	if !ok {
		return false, false
	}
	b, ok := inst.Native.(bool)
	return b, ok
}

func boolOf(recv *Instance) (bool, error) {
	b, ok := recv.Native.(bool)
	if !ok {
		return false, Errorf(TypeError, "'%s' object is not a boolean", recv.Class.Name)
	}
	return b, nil
}

func (in *Interpreter) registerBooleanPrimitives() *Class {
	c := NewClass("Boolean", nil)
	c.Native = true
	c.NewState = func() any { return false }

	c.AddMethod1("Boolean", func(in *Interpreter, recv *Instance, arg Value) (Value, error) {
		if lit, ok := arg.(literal); ok {
			if b, ok := lit.raw.(bool); ok {
				recv.Native = b
				return Null, nil
			}
		}
		b, err := in.Truthy(arg)
		if err != nil {
			return nil, err
		}
		recv.Native = b
		return Null, nil
	})

	c.AddMethod0(MethodStr, func(in *Interpreter, recv *Instance) (Value, error) {
		b, err := boolOf(recv)
		if err != nil {
			return nil, err
		}
		if b {
			return in.NewString("true"), nil
		}
		return in.NewString("false"), nil
	})

	c.AddMethod0(MethodNum, func(in *Interpreter, recv *Instance) (Value, error) {
		b, err := boolOf(recv)
		if err != nil {
			return nil, err
		}
		if b {
			return in.NewNumber(1), nil
		}
		return in.NewNumber(0), nil
	})

	c.AddMethod0(MethodBool, func(in *Interpreter, recv *Instance) (Value, error) {
		if _, err := boolOf(recv); err != nil {
			return nil, err
		}
		return recv, nil
	})

	c.AddMethod1(MethodEq, func(in *Interpreter, recv *Instance, other Value) (Value, error) {
		b, err := boolOf(recv)
		if err != nil {
			return nil, err
		}
		o, ok := AsBool(other)
		return in.NewBoolean(ok && b == o), nil
	})

	c.AddMethod1(MethodNe, func(in *Interpreter, recv *Instance, other Value) (Value, error) {
		b, err := boolOf(recv)
		if err != nil {
			return nil, err
		}
		o, ok := AsBool(other)
		return in.NewBoolean(!ok || b != o), nil
	})

	in.RegisterClass(c)
	return c
}
