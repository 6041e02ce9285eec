package vm

import (
	"errors"
	"fmt"

	"github.com/chazu/bluejay/compiler"
)

// ErrorKind classifies a runtime failure.
type ErrorKind int

const (
	RuntimeError   ErrorKind = iota // arity, non-callable, escaped break/return
	NameError                       // undefined variable
	AttributeError                  // undefined attribute
	TypeError                       // no matching operator method, bad operand type
	ValueError                      // structurally invalid operand
)

var errorKindNames = map[ErrorKind]string{
	RuntimeError:   "RuntimeError",
	NameError:      "NameError",
	AttributeError: "AttributeError",
	TypeError:      "TypeError",
	ValueError:     "ValueError",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is a runtime error. Token, when set, locates the failure in the
// source; native methods raise errors without one and the interpreter
// fills it in from the expression that dispatched to them.
type Error struct {
	Kind    ErrorKind
	Token   *compiler.Token
	Message string

	cause error
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Message
}

// Unwrap returns the context error behind an interrupted run, if any.
func (e *Error) Unwrap() error { return e.cause }

// Position returns the 1-based line and column of the error, or 0, 0 when
// it carries no token.
func (e *Error) Position(source string) (line, col int) {
	if e.Token == nil {
		return 0, 0
	}
	return compiler.LineCol(source, e.Token.Offset)
}

// Format renders the error with its source position when known.
func (e *Error) Format(source string) string {
	line, col := e.Position(source)
	if line == 0 {
		return e.Error()
	}
	return fmt.Sprintf("%s: line %d, column %d: %s", e.Kind, line, col, e.Message)
}

// Errorf creates a runtime error of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// errorAt creates a runtime error anchored at tok.
func errorAt(tok compiler.Token, kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Token: &tok, Message: fmt.Sprintf(format, args...)}
}

// locate attaches tok to err if err is a runtime error without a position.
func locate(err error, tok compiler.Token) error {
	var rerr *Error
	if errors.As(err, &rerr) && rerr.Token == nil {
		rerr.Token = &tok
	}
	return err
}

// IsKind reports whether err is a runtime error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var rerr *Error
	return errors.As(err, &rerr) && rerr.Kind == kind
}
