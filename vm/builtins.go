package vm

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// RegisterClass binds c in the global environment under its name.
func (in *Interpreter) RegisterClass(c *Class) {
	in.globals.Define(c.Name, c)
}

// DefineNative binds a native function in the global environment.
func (in *Interpreter) DefineNative(name string, arity int, fn NativeFunc) {
	in.globals.Define(name, NewNativeFunction(name, arity, fn))
}

func (in *Interpreter) registerBuiltins() {
	in.DefineNative("print", 1, func(in *Interpreter, args []Value) (Value, error) {
		s, err := in.Stringify(args[0])
		if err != nil {
			return nil, err
		}
		if _, err := fmt.Fprintln(in.out, s); err != nil {
			return nil, Errorf(RuntimeError, "print: %v", err)
		}
		return Null, nil
	})

	in.DefineNative("input", 1, func(in *Interpreter, args []Value) (Value, error) {
		prompt, err := in.Stringify(args[0])
		if err != nil {
			return nil, err
		}
		fmt.Fprint(in.out, prompt)
		line, err := in.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, Errorf(RuntimeError, "input: %v", err)
		}
		if line == "" && err != nil {
			return Null, nil
		}
		return in.NewString(strings.TrimRight(line, "\r\n")), nil
	})

	in.DefineNative("type", 1, func(in *Interpreter, args []Value) (Value, error) {
		if inst, ok := args[0].(*Instance); ok {
			return inst.Class, nil
		}
		return Null, nil
	})

	in.DefineNative("len", 1, func(in *Interpreter, args []Value) (Value, error) {
		return in.Invoke(args[0], "length")
	})

	in.DefineNative("clock", 0, func(in *Interpreter, args []Value) (Value, error) {
		return in.NewNumber(float64(time.Now().UnixNano()) / 1e9), nil
	})
}
