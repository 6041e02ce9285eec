package vm

// ---------------------------------------------------------------------------
// Dict: insertion-ordered mapping
// ---------------------------------------------------------------------------

type keyKind uint8

const (
	keyNull keyKind = iota
	keyNumber
	keyString
	keyBool
	keyRef
)

// dictKey is the hashable form of a key. Null, numbers, strings and
// booleans compare by value; everything else by identity.
type dictKey struct {
	kind keyKind
	num  float64
	str  string
	ref  Value
}

func keyOf(v Value) dictKey {
	if IsNull(v) {
		return dictKey{kind: keyNull}
	}
	if inst, ok := v.(*Instance); ok {
		switch x := inst.Native.(type) {
		case float64:
			return dictKey{kind: keyNumber, num: x}
		case string:
			return dictKey{kind: keyString, str: x}
		case bool:
			if x {
				return dictKey{kind: keyBool, num: 1}
			}
			return dictKey{kind: keyBool}
		}
	}
	return dictKey{kind: keyRef, ref: v}
}

// DictData is the native state of a Dict instance.
type DictData struct {
	index  map[dictKey]int
	keys   []Value
	values []Value
}

func newDictData() *DictData {
	return &DictData{index: make(map[dictKey]int)}
}

// Len returns the number of entries.
func (d *DictData) Len() int { return len(d.keys) }

// Get returns the value stored under k.
func (d *DictData) Get(k Value) (Value, bool) {
	i, ok := d.index[keyOf(k)]
	if !ok {
		return nil, false
	}
	return d.values[i], true
}

// Set stores v under k, keeping the original position of an existing key.
func (d *DictData) Set(k, v Value) error {
	key := keyOf(k)
	if key.kind == keyNumber && key.num != key.num {
		return Errorf(ValueError, "nan cannot be a dict key")
	}
	if i, ok := d.index[key]; ok {
		d.values[i] = v
		return nil
	}
	d.index[key] = len(d.keys)
	d.keys = append(d.keys, k)
	d.values = append(d.values, v)
	return nil
}

// Remove deletes k and returns its value.
func (d *DictData) Remove(k Value) (Value, bool) {
	key := keyOf(k)
	i, ok := d.index[key]
	if !ok {
		return nil, false
	}
	v := d.values[i]
	delete(d.index, key)
	d.keys = append(d.keys[:i], d.keys[i+1:]...)
	d.values = append(d.values[:i], d.values[i+1:]...)
	for j := i; j < len(d.keys); j++ {
		d.index[keyOf(d.keys[j])] = j
	}
	return v, true
}

// Keys returns the keys in insertion order.
func (d *DictData) Keys() []Value {
	return append([]Value(nil), d.keys...)
}

// Values returns the values in key insertion order.
func (d *DictData) Values() []Value {
	return append([]Value(nil), d.values...)
}

// NewDict creates an empty Dict instance.
func (in *Interpreter) NewDict() *Instance {
	return &Instance{Class: in.DictClass, Native: newDictData()}
}

// AsDict unwraps a Dict instance.
func AsDict(v Value) (*DictData, bool) {
	inst, ok := v.(*Instance)
	if !ok {
		return nil, false
	}
	d, ok := inst.Native.(*DictData)
	return d, ok
}

func dictOf(recv *Instance) (*DictData, error) {
	d, ok := recv.Native.(*DictData)
	if !ok {
		return nil, Errorf(TypeError, "'%s' object is not a dict", recv.Class.Name)
	}
	return d, nil
}

func (in *Interpreter) missingKey(k Value) error {
	s, err := in.Stringify(k)
	if err != nil {
		return err
	}
	return Errorf(ValueError, "key %s not found", s)
}

func (in *Interpreter) registerDictPrimitives() *Class {
	c := NewClass("Dict", nil)
	c.Native = true
	c.NewState = func() any { return newDictData() }

	c.AddMethod0("Dict", func(in *Interpreter, recv *Instance) (Value, error) {
		recv.Native = newDictData()
		return Null, nil
	})

	c.AddMethod0("length", func(in *Interpreter, recv *Instance) (Value, error) {
		d, err := dictOf(recv)
		if err != nil {
			return nil, err
		}
		return in.NewNumber(float64(d.Len())), nil
	})

	c.AddMethod0("keys", func(in *Interpreter, recv *Instance) (Value, error) {
		d, err := dictOf(recv)
		if err != nil {
			return nil, err
		}
		return in.NewList(d.Keys()), nil
	})

	c.AddMethod0("values", func(in *Interpreter, recv *Instance) (Value, error) {
		d, err := dictOf(recv)
		if err != nil {
			return nil, err
		}
		return in.NewList(d.Values()), nil
	})

	c.AddMethod1("contains", func(in *Interpreter, recv *Instance, k Value) (Value, error) {
		d, err := dictOf(recv)
		if err != nil {
			return nil, err
		}
		_, ok := d.Get(k)
		return in.NewBoolean(ok), nil
	})

	c.AddMethod1("remove", func(in *Interpreter, recv *Instance, k Value) (Value, error) {
		d, err := dictOf(recv)
		if err != nil {
			return nil, err
		}
		v, ok := d.Remove(k)
		if !ok {
			return nil, in.missingKey(k)
		}
		return v, nil
	})

	c.AddMethod1(MethodGetItem, func(in *Interpreter, recv *Instance, k Value) (Value, error) {
		d, err := dictOf(recv)
		if err != nil {
			return nil, err
		}
		v, ok := d.Get(k)
		if !ok {
			return nil, in.missingKey(k)
		}
		return v, nil
	})

	c.AddMethod2(MethodSetItem, func(in *Interpreter, recv *Instance, k, v Value) (Value, error) {
		d, err := dictOf(recv)
		if err != nil {
			return nil, err
		}
		return Null, d.Set(k, v)
	})

	c.AddMethod0(MethodStr, func(in *Interpreter, recv *Instance) (Value, error) {
		d, err := dictOf(recv)
		if err != nil {
			return nil, err
		}
		buf := []byte{'{'}
		for i := range d.keys {
			if i > 0 {
				buf = append(buf, ", "...)
			}
			ks, err := in.Stringify(d.keys[i])
			if err != nil {
				return nil, err
			}
			vs, err := in.Stringify(d.values[i])
			if err != nil {
				return nil, err
			}
			buf = append(buf, ks...)
			buf = append(buf, ": "...)
			buf = append(buf, vs...)
		}
		buf = append(buf, '}')
		return in.NewString(string(buf)), nil
	})

	c.AddMethod0(MethodBool, func(in *Interpreter, recv *Instance) (Value, error) {
		d, err := dictOf(recv)
		if err != nil {
			return nil, err
		}
		return in.NewBoolean(d.Len() > 0), nil
	})

	c.AddMethod0(MethodIter, func(in *Interpreter, recv *Instance) (Value, error) {
		d, err := dictOf(recv)
		if err != nil {
			return nil, err
		}
		return in.NewList(d.Keys()), nil
	})

	in.RegisterClass(c)
	return c
}
