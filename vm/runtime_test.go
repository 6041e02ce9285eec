package vm

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/chazu/bluejay/compiler"
)

func TestRuntimeCompileErrors(t *testing.T) {
	tests := []struct {
		src  string
		kind compiler.DiagnosticKind
	}{
		{"var = 1", compiler.SyntaxError},
		{"print(1", compiler.SyntaxError},
		{"print(this)", compiler.ResolveError},
		{"class A : A {}", compiler.ResolveError},
	}
	for _, tc := range tests {
		var out bytes.Buffer
		rt := NewRuntime(WithOutput(&out))
		err := rt.Run(tc.src)
		var diags compiler.Diagnostics
		if !errors.As(err, &diags) || len(diags) == 0 {
			t.Errorf("Run(%q) error = %v, want diagnostics", tc.src, err)
			continue
		}
		if diags[0].Kind != tc.kind {
			t.Errorf("Run(%q) kind = %s, want %s", tc.src, diags[0].Kind, tc.kind)
		}
		if out.Len() != 0 {
			t.Errorf("Run(%q) produced output before failing to compile: %q", tc.src, out.String())
		}
	}
}

func TestRuntimeGlobalsPersist(t *testing.T) {
	var out bytes.Buffer
	rt := NewRuntime(WithOutput(&out))
	steps := []string{
		"var total = 1",
		"func bump(n) { total += n }",
		"bump(4)",
		"print(total)",
	}
	for _, src := range steps {
		if err := rt.Run(src); err != nil {
			t.Fatalf("Run(%q): %v", src, err)
		}
	}
	if out.String() != "5\n" {
		t.Errorf("output = %q, want 5", out.String())
	}
}

func TestRuntimeRecoversAfterError(t *testing.T) {
	var out bytes.Buffer
	rt := NewRuntime(WithOutput(&out))
	if err := rt.Run("{\n  var x = 1\n  undefined\n}"); !IsKind(err, NameError) {
		t.Fatalf("error = %v, want NameError", err)
	}
	if err := rt.Run("var y = 2\nprint(y)"); err != nil {
		t.Fatalf("Run after error: %v", err)
	}
	if out.String() != "2\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestRuntimeEval(t *testing.T) {
	rt := NewRuntime(WithOutput(new(bytes.Buffer)))
	tests := []struct {
		src  string
		want string
	}{
		{"1 + 2", "3"},
		{"var a = [1]\na.append(2)\na", "[1, 2]"},
		{"var b = 5", "null"},
		{"", "null"},
		{"a.length() * 10", "20"},
	}
	for _, tc := range tests {
		v, err := rt.Eval(tc.src)
		if err != nil {
			t.Fatalf("Eval(%q): %v", tc.src, err)
		}
		got, err := rt.Stringify(v)
		if err != nil {
			t.Fatalf("Stringify: %v", err)
		}
		if got != tc.want {
			t.Errorf("Eval(%q) = %q, want %q", tc.src, got, tc.want)
		}
	}
}

func TestRuntimeInput(t *testing.T) {
	var out bytes.Buffer
	rt := NewRuntime(WithOutput(&out), WithInput(strings.NewReader("bob\n")))
	src := "print(\"hi \" + input(\"name? \"))\nprint(input(\"again? \"))"
	if err := rt.Run(src); err != nil {
		t.Fatal(err)
	}
	if want := "name? hi bob\nagain? null\n"; out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestRuntimeDefineNative(t *testing.T) {
	var out bytes.Buffer
	rt := NewRuntime(WithOutput(&out))
	rt.DefineNative("twice", 1, func(in *Interpreter, args []Value) (Value, error) {
		return in.Call(args[0], nil)
	})
	rt.DefineNative("sum", -1, func(in *Interpreter, args []Value) (Value, error) {
		total := 0.0
		for _, a := range args {
			f, err := in.ToNumber(a)
			if err != nil {
				return nil, err
			}
			total += f
		}
		return in.NewNumber(total), nil
	})

	src := "func hello() { return \"hello\" }\nprint(twice(hello))\nprint(sum())\nprint(sum(1, 2, \"3\"))"
	if err := rt.Run(src); err != nil {
		t.Fatal(err)
	}
	if want := "hello\n0\n6\n"; out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestRuntimeNativeClass(t *testing.T) {
	counter := NewClass("Counter", nil)
	counter.Native = true
	counter.AddMethod1("Counter", func(in *Interpreter, recv *Instance, start Value) (Value, error) {
		f, err := in.ToNumber(start)
		if err != nil {
			return nil, err
		}
		recv.Native = f
		return Null, nil
	})
	counter.AddMethod0("next", func(in *Interpreter, recv *Instance) (Value, error) {
		n := recv.Native.(float64) + 1
		recv.Native = n
		return in.NewNumber(n), nil
	})
	counter.AddMethod0(MethodStr, func(in *Interpreter, recv *Instance) (Value, error) {
		return in.NewString("Counter@" + FormatNumber(recv.Native.(float64))), nil
	})

	var out bytes.Buffer
	rt := NewRuntime(WithOutput(&out))
	rt.RegisterClass(counter)

	src := `var c = Counter(10)
c.next()
print(c.next())
print(c)
class Loud : Counter {
  Loud(n) { this.n = n }
  shout() { return "N" + this.n }
}
print(Loud(3).shout())`
	if err := rt.Run(src); err != nil {
		t.Fatal(err)
	}
	if want := "12\nCounter@12\nN3\n"; out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestRuntimeIntrospection(t *testing.T) {
	rt := NewRuntime(WithOutput(new(bytes.Buffer)))
	if err := rt.Run("class Point {}\nvar origin = Point()"); err != nil {
		t.Fatal(err)
	}

	names := rt.Globals()
	for _, want := range []string{"print", "input", "Number", "String", "Boolean", "List", "Dict", "Point", "origin"} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Globals() missing %q", want)
		}
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("Globals() not sorted: %v", names)
		}
	}

	var classes []string
	for _, c := range rt.Classes() {
		classes = append(classes, c.Name)
	}
	if got, want := strings.Join(classes, ","), "Boolean,Dict,List,Number,Point,String"; got != want {
		t.Errorf("Classes() = %s, want %s", got, want)
	}

	if v, ok := rt.Lookup("origin"); !ok || TypeName(v) != "Point" {
		t.Errorf("Lookup(origin) = %v, %v", v, ok)
	}
}

func TestResolverDistancesMatchEnvironments(t *testing.T) {
	// Every local resolved by the compiler must be found at exactly its
	// recorded distance at run time.
	src := `func outer(a) {
  var b = a + 1
  {
    var c = b + 1
    func inner(d) {
      foreach (e in [d]) {
        return a + b + c + e
      }
    }
    return inner(10)
  }
}
class K {
  K(v) { this.v = v }
  get() {
    var w = this.v
    return w
  }
}
print(outer(1))
print(K(7).get())`
	if got := run(t, src); got != "16\n7\n" {
		t.Errorf("output = %q", got)
	}
}

// ---------------------------------------------------------------------------
// Panics and cancellation
// ---------------------------------------------------------------------------

func TestRuntimeRecoversFromPanics(t *testing.T) {
	var out bytes.Buffer
	rt := NewRuntime(WithOutput(&out))
	rt.DefineNative("boom", 0, func(in *Interpreter, args []Value) (Value, error) {
		panic("boom")
	})

	err := rt.Run("func f() {\n  var local = 1\n  boom()\n}\nf()")
	if !IsKind(err, RuntimeError) || !strings.Contains(err.Error(), "internal error: boom") {
		t.Fatalf("Run error = %v, want RuntimeError about the panic", err)
	}
	if _, err := rt.Eval("boom()"); !IsKind(err, RuntimeError) {
		t.Fatalf("Eval error = %v, want RuntimeError", err)
	}

	// The runtime is back at global scope and still usable.
	if err := rt.Run("var x = 2\nprint(x)"); err != nil {
		t.Fatalf("Run after panic: %v", err)
	}
	if _, ok := rt.Lookup("local"); ok {
		t.Error("local of the panicking call leaked into globals")
	}
	if out.String() != "2\n" {
		t.Errorf("output = %q, want %q", out.String(), "2\n")
	}
}

func TestRuntimeRunContextCanceled(t *testing.T) {
	rt := NewRuntime(WithOutput(new(bytes.Buffer)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sources := []string{
		"while (true) {}",
		"var i = 0\nwhile (true) i += 1",
		"repeat (10 ** 12) {}",
		"func spin() {\n  while (true) {}\n}\nspin()",
	}
	for _, src := range sources {
		err := rt.RunContext(ctx, src)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunContext(%q) = %v, want context.Canceled", src, err)
		}
		if !IsKind(err, RuntimeError) {
			t.Errorf("RunContext(%q) kind: %v, want RuntimeError", src, err)
		}
	}

	if err := rt.Run("print(1)"); err != nil {
		t.Errorf("Run after cancellation: %v", err)
	}
}

func TestRuntimeEvalContextDeadline(t *testing.T) {
	rt := NewRuntime(WithOutput(new(bytes.Buffer)))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := rt.EvalContext(ctx, "var n = 0\nwhile (true) n += 1\nn")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("EvalContext = %v, want context.DeadlineExceeded", err)
	}
	if !strings.Contains(err.Error(), "execution interrupted") {
		t.Errorf("error = %q", err)
	}
}
