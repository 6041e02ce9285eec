package vm

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// String: immutable text, indexed by character
// ---------------------------------------------------------------------------

// NewString boxes s as a String instance.
func (in *Interpreter) NewString(s string) *Instance {
	return &Instance{Class: in.StringClass, Native: s}
}

// AsString unwraps a String instance.
func AsString(v Value) (string, bool) {
	inst, ok := v.(*Instance)
	if !ok {
		return "", false
	}
	s, ok := inst.Native.(string)
	return s, ok
}

// Unescape interprets the escapes \n \t \r \\ and \" in a raw string
// literal. Any other backslash sequence is kept as written.
func Unescape(raw string) string {
	if !strings.Contains(raw, `\`) {
		return raw
	}
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		if ch != '\\' || i+1 == len(raw) {
			b.WriteByte(ch)
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		default:
			b.WriteByte('\\')
			b.WriteByte(raw[i])
		}
	}
	return b.String()
}

func stringOf(recv *Instance) (string, error) {
	s, ok := recv.Native.(string)
	if !ok {
		return "", Errorf(TypeError, "'%s' object is not a string", recv.Class.Name)
	}
	return s, nil
}

func stringArg(v Value, method string) (string, error) {
	s, ok := AsString(v)
	if !ok {
		return "", Errorf(TypeError, "%s expects a String, not '%s'", method, TypeName(v))
	}
	return s, nil
}

// intArg requires an integral Number argument.
func intArg(v Value, what string) (int, error) {
	f, ok := AsNumber(v)
	if !ok {
		return 0, Errorf(TypeError, "%s must be a Number, not '%s'", what, TypeName(v))
	}
	return toInt(f, what)
}

// indexArg resolves an index into a sequence of length n. Negative indexes
// count from the end.
func indexArg(v Value, n int) (int, error) {
	i, err := intArg(v, "index")
	if err != nil {
		return 0, err
	}
	j := i
	if j < 0 {
		j += n
	}
	if j < 0 || j >= n {
		return 0, Errorf(ValueError, "index %d out of range for length %d", i, n)
	}
	return j, nil
}

func (in *Interpreter) registerStringPrimitives() *Class {
	c := NewClass("String", nil)
	c.Native = true
	c.NewState = func() any { return "" }

	c.AddMethod1("String", func(in *Interpreter, recv *Instance, arg Value) (Value, error) {
		if lit, ok := arg.(literal); ok {
			if s, ok := lit.raw.(string); ok {
				recv.Native = Unescape(s)
				return Null, nil
			}
		}
		s, err := in.Stringify(arg)
		if err != nil {
			return nil, err
		}
		recv.Native = s
		return Null, nil
	})

	c.AddMethod0("length", func(in *Interpreter, recv *Instance) (Value, error) {
		s, err := stringOf(recv)
		if err != nil {
			return nil, err
		}
		return in.NewNumber(float64(utf8.RuneCountInString(s))), nil
	})

	c.AddMethod2("replace", func(in *Interpreter, recv *Instance, old, repl Value) (Value, error) {
		s, err := stringOf(recv)
		if err != nil {
			return nil, err
		}
		o, err := stringArg(old, "replace")
		if err != nil {
			return nil, err
		}
		r, err := stringArg(repl, "replace")
		if err != nil {
			return nil, err
		}
		return in.NewString(strings.ReplaceAll(s, o, r)), nil
	})

	c.AddMethod2("sub", func(in *Interpreter, recv *Instance, start, end Value) (Value, error) {
		s, err := stringOf(recv)
		if err != nil {
			return nil, err
		}
		runes := []rune(s)
		i, err := intArg(start, "start index")
		if err != nil {
			return nil, err
		}
		j, err := intArg(end, "end index")
		if err != nil {
			return nil, err
		}
		switch {
		case i < 0:
			return nil, Errorf(ValueError, "start index must not be negative")
		case j > len(runes):
			return nil, Errorf(ValueError, "end index %d beyond string length %d", j, len(runes))
		case i > j:
			return nil, Errorf(ValueError, "start index %d is after end index %d", i, j)
		}
		return in.NewString(string(runes[i:j])), nil
	})

	c.AddMethod1("find", func(in *Interpreter, recv *Instance, needle Value) (Value, error) {
		s, err := stringOf(recv)
		if err != nil {
			return nil, err
		}
		n, err := stringArg(needle, "find")
		if err != nil {
			return nil, err
		}
		i := strings.Index(s, n)
		if i < 0 {
			return in.NewNumber(-1), nil
		}
		return in.NewNumber(float64(utf8.RuneCountInString(s[:i]))), nil
	})

	c.AddMethod0("upper", func(in *Interpreter, recv *Instance) (Value, error) {
		s, err := stringOf(recv)
		if err != nil {
			return nil, err
		}
		return in.NewString(strings.ToUpper(s)), nil
	})

	c.AddMethod0("lower", func(in *Interpreter, recv *Instance) (Value, error) {
		s, err := stringOf(recv)
		if err != nil {
			return nil, err
		}
		return in.NewString(strings.ToLower(s)), nil
	})

	c.AddMethod1("split", func(in *Interpreter, recv *Instance, sep Value) (Value, error) {
		s, err := stringOf(recv)
		if err != nil {
			return nil, err
		}
		p, err := stringArg(sep, "split")
		if err != nil {
			return nil, err
		}
		parts := strings.Split(s, p)
		items := make([]Value, len(parts))
		for i, part := range parts {
			items[i] = in.NewString(part)
		}
		return in.NewList(items), nil
	})

	c.AddMethod1(MethodAdd, func(in *Interpreter, recv *Instance, other Value) (Value, error) {
		s, err := stringOf(recv)
		if err != nil {
			return nil, err
		}
		o, err := in.Stringify(other)
		if err != nil {
			return nil, err
		}
		return in.NewString(s + o), nil
	})

	c.AddMethod1(MethodMul, func(in *Interpreter, recv *Instance, other Value) (Value, error) {
		s, err := stringOf(recv)
		if err != nil {
			return nil, err
		}
		n, err := intArg(other, "repeat count")
		if err != nil {
			return nil, err
		}
		total, err := repeatLength(len(s), n)
		if err != nil {
			return nil, err
		}
		if total == 0 {
			return in.NewString(""), nil
		}
		return in.NewString(strings.Repeat(s, n)), nil
	})

	c.AddMethod1(MethodEq, func(in *Interpreter, recv *Instance, other Value) (Value, error) {
		s, err := stringOf(recv)
		if err != nil {
			return nil, err
		}
		o, ok := AsString(other)
		return in.NewBoolean(ok && s == o), nil
	})
	c.AddMethod1(MethodNe, func(in *Interpreter, recv *Instance, other Value) (Value, error) {
		s, err := stringOf(recv)
		if err != nil {
			return nil, err
		}
		o, ok := AsString(other)
		return in.NewBoolean(!ok || s != o), nil
	})

	compare := func(name, symbol string, op func(a, b string) bool) {
		c.AddMethod1(name, func(in *Interpreter, recv *Instance, other Value) (Value, error) {
			s, err := stringOf(recv)
			if err != nil {
				return nil, err
			}
			o, ok := AsString(other)
			if !ok {
				return nil, Errorf(TypeError, "unsupported operand types for %s: 'String' and '%s'", symbol, TypeName(other))
			}
			return in.NewBoolean(op(s, o)), nil
		})
	}
	compare(MethodLt, "<", func(a, b string) bool { return a < b })
	compare(MethodLte, "<=", func(a, b string) bool { return a <= b })
	compare(MethodGt, ">", func(a, b string) bool { return a > b })
	compare(MethodGte, ">=", func(a, b string) bool { return a >= b })

	c.AddMethod1(MethodGetItem, func(in *Interpreter, recv *Instance, index Value) (Value, error) {
		s, err := stringOf(recv)
		if err != nil {
			return nil, err
		}
		runes := []rune(s)
		i, err := indexArg(index, len(runes))
		if err != nil {
			return nil, err
		}
		return in.NewString(string(runes[i])), nil
	})

	c.AddMethod0(MethodStr, func(in *Interpreter, recv *Instance) (Value, error) {
		if _, err := stringOf(recv); err != nil {
			return nil, err
		}
		return recv, nil
	})

	c.AddMethod0(MethodNum, func(in *Interpreter, recv *Instance) (Value, error) {
		s, err := stringOf(recv)
		if err != nil {
			return nil, err
		}
		f, perr := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if perr != nil {
			return nil, Errorf(TypeError, "cannot convert string %q to a number", s)
		}
		return in.NewNumber(f), nil
	})

	c.AddMethod0(MethodBool, func(in *Interpreter, recv *Instance) (Value, error) {
		s, err := stringOf(recv)
		if err != nil {
			return nil, err
		}
		return in.NewBoolean(s != ""), nil
	})

	c.AddMethod0(MethodIter, func(in *Interpreter, recv *Instance) (Value, error) {
		s, err := stringOf(recv)
		if err != nil {
			return nil, err
		}
		items := make([]Value, 0, len(s))
		for _, r := range s {
			items = append(items, in.NewString(string(r)))
		}
		return in.NewList(items), nil
	})

	in.RegisterClass(c)
	return c
}
