package vm

import (
	"math"
	"strconv"
)

// ---------------------------------------------------------------------------
// Number: double-precision numbers
// ---------------------------------------------------------------------------

// NewNumber boxes f as a Number instance.
func (in *Interpreter) NewNumber(f float64) *Instance {
	return &Instance{Class: in.NumberClass, Native: f}
}

// AsNumber unwraps a Number instance.
func AsNumber(v Value) (float64, bool) {
	inst, ok := v.(*Instance)
	if !ok {
		return 0, false
	}
	f, ok := inst.Native.(float64)
	return f, ok
}

// FormatNumber renders f the way Number's $str does: integral values have
// no fraction.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// MaxSequenceLength caps the length of a String or List built by
// repetition with *.
const MaxSequenceLength = 1 << 27

// toInt converts an integral f to int. what names the value in errors.
func toInt(f float64, what string) (int, error) {
	if f != math.Trunc(f) {
		return 0, Errorf(TypeError, "%s must be an integer, got %s", what, FormatNumber(f))
	}
	if f < math.MinInt || f >= -math.MinInt {
		return 0, Errorf(ValueError, "%s %s is out of range", what, strconv.FormatFloat(f, 'g', -1, 64))
	}
	return int(f), nil
}

// repeatLength checks that n copies of a sequence of length unit stay
// within MaxSequenceLength and returns the total. Negative n counts as 0.
func repeatLength(unit, n int) (int, error) {
	if n <= 0 || unit == 0 {
		return 0, nil
	}
	if n > MaxSequenceLength/unit {
		return 0, Errorf(ValueError, "repeat count %d makes a sequence longer than %d", n, MaxSequenceLength)
	}
	return unit * n, nil
}

func numberOf(recv *Instance) (float64, error) {
	f, ok := recv.Native.(float64)
	if !ok {
		return 0, Errorf(TypeError, "'%s' object is not a number", recv.Class.Name)
	}
	return f, nil
}

// numberOperands unwraps the receiver and a Number right operand.
func numberOperands(recv *Instance, other Value, symbol string) (float64, float64, error) {
	a, err := numberOf(recv)
	if err != nil {
		return 0, 0, err
	}
	b, ok := AsNumber(other)
	if !ok {
		return 0, 0, Errorf(TypeError, "unsupported operand types for %s: 'Number' and '%s'", symbol, TypeName(other))
	}
	return a, b, nil
}

func (in *Interpreter) registerNumberPrimitives() *Class {
	c := NewClass("Number", nil)
	c.Native = true
	c.NewState = func() any { return 0.0 }

	c.AddMethod1("Number", func(in *Interpreter, recv *Instance, arg Value) (Value, error) {
		f, err := in.ToNumber(arg)
		if err != nil {
			return nil, err
		}
		recv.Native = f
		return Null, nil
	})

	arith := func(name, symbol string, op func(a, b float64) (float64, error)) {
		c.AddMethod1(name, func(in *Interpreter, recv *Instance, other Value) (Value, error) {
			a, b, err := numberOperands(recv, other, symbol)
			if err != nil {
				return nil, err
			}
			r, err := op(a, b)
			if err != nil {
				return nil, err
			}
			return in.NewNumber(r), nil
		})
	}
	arith(MethodAdd, "+", func(a, b float64) (float64, error) { return a + b, nil })
	arith(MethodSub, "-", func(a, b float64) (float64, error) { return a - b, nil })
	arith(MethodMul, "*", func(a, b float64) (float64, error) { return a * b, nil })
	arith(MethodDiv, "/", func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, Errorf(ValueError, "division by zero")
		}
		return a / b, nil
	})
	arith(MethodMod, "%", func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, Errorf(ValueError, "modulo by zero")
		}
		return math.Mod(a, b), nil
	})
	arith(MethodPow, "**", func(a, b float64) (float64, error) { return math.Pow(a, b), nil })

	compare := func(name, symbol string, op func(a, b float64) bool) {
		c.AddMethod1(name, func(in *Interpreter, recv *Instance, other Value) (Value, error) {
			a, b, err := numberOperands(recv, other, symbol)
			if err != nil {
				return nil, err
			}
			return in.NewBoolean(op(a, b)), nil
		})
	}
	compare(MethodLt, "<", func(a, b float64) bool { return a < b })
	compare(MethodLte, "<=", func(a, b float64) bool { return a <= b })
	compare(MethodGt, ">", func(a, b float64) bool { return a > b })
	compare(MethodGte, ">=", func(a, b float64) bool { return a >= b })

	c.AddMethod1(MethodEq, func(in *Interpreter, recv *Instance, other Value) (Value, error) {
		a, err := numberOf(recv)
		if err != nil {
			return nil, err
		}
		b, ok := AsNumber(other)
		return in.NewBoolean(ok && a == b), nil
	})
	c.AddMethod1(MethodNe, func(in *Interpreter, recv *Instance, other Value) (Value, error) {
		a, err := numberOf(recv)
		if err != nil {
			return nil, err
		}
		b, ok := AsNumber(other)
		return in.NewBoolean(!ok || a != b), nil
	})

	c.AddMethod0(MethodNeg, func(in *Interpreter, recv *Instance) (Value, error) {
		a, err := numberOf(recv)
		if err != nil {
			return nil, err
		}
		return in.NewNumber(-a), nil
	})
	c.AddMethod0(MethodUadd, func(in *Interpreter, recv *Instance) (Value, error) {
		a, err := numberOf(recv)
		if err != nil {
			return nil, err
		}
		return in.NewNumber(a), nil
	})
	c.AddMethod0(MethodStr, func(in *Interpreter, recv *Instance) (Value, error) {
		a, err := numberOf(recv)
		if err != nil {
			return nil, err
		}
		return in.NewString(FormatNumber(a)), nil
	})
	c.AddMethod0(MethodNum, func(in *Interpreter, recv *Instance) (Value, error) {
		if _, err := numberOf(recv); err != nil {
			return nil, err
		}
		return recv, nil
	})
	c.AddMethod0(MethodBool, func(in *Interpreter, recv *Instance) (Value, error) {
		a, err := numberOf(recv)
		if err != nil {
			return nil, err
		}
		return in.NewBoolean(a != 0), nil
	})

	in.RegisterClass(c)
	return c
}
