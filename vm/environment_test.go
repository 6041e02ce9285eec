package vm

import (
	"sort"
	"testing"
)

func TestEnvironmentDefineAndGet(t *testing.T) {
	interp := NewInterpreter()
	globals := NewEnvironment(nil)
	globals.Define("a", interp.NewNumber(1))

	inner := NewEnvironment(globals)
	inner.Define("b", interp.NewNumber(2))

	if v, ok := inner.Get("a"); !ok || v == nil {
		t.Errorf("inner.Get(a) = %v, %v; want the outer binding", v, ok)
	}
	if _, ok := globals.Get("b"); ok {
		t.Error("outer frame sees an inner binding")
	}
	if _, ok := inner.Get("missing"); ok {
		t.Error("Get(missing) reported a binding")
	}
}

func TestEnvironmentShadowing(t *testing.T) {
	interp := NewInterpreter()
	outer := NewEnvironment(nil)
	one := interp.NewNumber(1)
	two := interp.NewNumber(2)
	outer.Define("x", one)

	inner := NewEnvironment(outer)
	inner.Define("x", two)

	if v, _ := inner.Get("x"); v != two {
		t.Errorf("inner x = %v, want the shadowing binding", v)
	}
	if v, _ := outer.Get("x"); v != one {
		t.Errorf("outer x = %v, want the original binding", v)
	}
	if v, _ := inner.GetAt(1, "x"); v != one {
		t.Errorf("GetAt(1, x) = %v, want the outer binding", v)
	}
}

func TestEnvironmentAssign(t *testing.T) {
	interp := NewInterpreter()
	outer := NewEnvironment(nil)
	outer.Define("x", Null)
	inner := NewEnvironment(outer)

	v := interp.NewString("set")
	if !inner.Assign("x", v) {
		t.Fatal("Assign(x) failed for an outer binding")
	}
	if got, _ := outer.Get("x"); got != v {
		t.Errorf("outer x = %v after assign through inner", got)
	}
	if inner.Assign("undeclared", v) {
		t.Error("Assign succeeded for an undeclared name")
	}
	if _, ok := inner.values["x"]; ok {
		t.Error("Assign created a binding in the inner frame")
	}
}

func TestEnvironmentAt(t *testing.T) {
	e0 := NewEnvironment(nil)
	e1 := NewEnvironment(e0)
	e2 := NewEnvironment(e1)

	if e2.Ancestor(0) != e2 || e2.Ancestor(1) != e1 || e2.Ancestor(2) != e0 {
		t.Error("Ancestor walked the wrong chain")
	}
	if e2.Ancestor(3) != nil {
		t.Error("Ancestor past the outermost frame should be nil")
	}
	if got := e2.Depth(); got != 3 {
		t.Errorf("Depth = %d, want 3", got)
	}

	if !e2.AssignAt(1, "y", Null) {
		t.Fatal("AssignAt(1) failed")
	}
	if _, ok := e1.values["y"]; !ok {
		t.Error("AssignAt(1) did not write the parent frame")
	}
	if _, ok := e2.GetAt(0, "y"); ok {
		t.Error("GetAt(0) should not search outward")
	}
	if e2.AssignAt(5, "y", Null) {
		t.Error("AssignAt beyond the chain reported success")
	}
}

func TestEnvironmentNames(t *testing.T) {
	e := NewEnvironment(NewEnvironment(nil))
	e.Define("b", Null)
	e.Define("a", Null)
	e.Enclosing().Define("outer", Null)

	names := e.Names()
	sort.Strings(names)
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names = %v, want [a b]", names)
	}
}
