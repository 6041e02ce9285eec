package vm

// ---------------------------------------------------------------------------
// Environment: chained lexical scope frames
// ---------------------------------------------------------------------------

// Environment is one scope frame. Frames are shared by pointer: a closure
// keeps its defining frame alive after the block that made it has exited.
type Environment struct {
	values    map[string]Value
	enclosing *Environment
}

// NewEnvironment creates a frame nested in enclosing (nil for globals).
func NewEnvironment(enclosing *Environment) *Environment {
	return &Environment{values: make(map[string]Value), enclosing: enclosing}
}

// Enclosing returns the parent frame.
func (e *Environment) Enclosing() *Environment {
	return e.enclosing
}

// Define binds name in this frame, rebinding it if already present.
func (e *Environment) Define(name string, v Value) {
	e.values[name] = v
}

// Get looks name up frame by frame outward.
func (e *Environment) Get(name string) (Value, bool) {
	for env := e; env != nil; env = env.enclosing {
		if v, ok := env.values[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Assign rebinds the nearest existing binding of name. It reports false
// when no frame binds it.
func (e *Environment) Assign(name string, v Value) bool {
	for env := e; env != nil; env = env.enclosing {
		if _, ok := env.values[name]; ok {
			env.values[name] = v
			return true
		}
	}
	return false
}

// Ancestor returns the frame distance hops outward, or nil if the chain
// is shorter than that.
func (e *Environment) Ancestor(distance int) *Environment {
	env := e
	for i := 0; i < distance && env != nil; i++ {
		env = env.enclosing
	}
	return env
}

// GetAt reads name from exactly the frame distance hops outward.
func (e *Environment) GetAt(distance int, name string) (Value, bool) {
	env := e.Ancestor(distance)
	if env == nil {
		return nil, false
	}
	v, ok := env.values[name]
	return v, ok
}

// AssignAt writes name into exactly the frame distance hops outward.
func (e *Environment) AssignAt(distance int, name string, v Value) bool {
	env := e.Ancestor(distance)
	if env == nil {
		return false
	}
	env.values[name] = v
	return true
}

// Names returns the names bound in this frame.
func (e *Environment) Names() []string {
	out := make([]string, 0, len(e.values))
	for name := range e.values {
		out = append(out, name)
	}
	return out
}

// Depth counts the frames from e to the outermost one, inclusive.
func (e *Environment) Depth() int {
	n := 0
	for env := e; env != nil; env = env.enclosing {
		n++
	}
	return n
}
