package compiler

import (
	"fmt"
	"strings"
)

// DiagnosticKind classifies a compile-time problem.
type DiagnosticKind int

const (
	SyntaxError  DiagnosticKind = iota // lexer or parser
	ResolveError                       // static binding checks
)

func (k DiagnosticKind) String() string {
	if k == ResolveError {
		return "ResolveError"
	}
	return "SyntaxError"
}

// Diagnostic is a compile-time error anchored at a token.
type Diagnostic struct {
	Kind    DiagnosticKind
	Token   Token
	Message string
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s at offset %d: %s", d.Kind, d.Token.Offset, d.Message)
}

// Format renders the diagnostic against its source with line and column
// numbers and a caret under the offending column.
func (d *Diagnostic) Format(source string) string {
	line, col := LineCol(source, d.Token.Offset)
	var b strings.Builder
	fmt.Fprintf(&b, "%s: line %d, column %d: %s", d.Kind, line, col, d.Message)
	if text := sourceLine(source, d.Token.Offset); text != "" {
		fmt.Fprintf(&b, "\n    %s\n    %s^", text, strings.Repeat(" ", col-1))
	}
	return b.String()
}

// Diagnostics is a list of compile-time problems. A non-empty list is an error.
type Diagnostics []*Diagnostic

func (ds Diagnostics) Error() string {
	msgs := make([]string, len(ds))
	for i, d := range ds {
		msgs[i] = d.Error()
	}
	return strings.Join(msgs, "\n")
}

// Format renders every diagnostic against source.
func (ds Diagnostics) Format(source string) string {
	msgs := make([]string, len(ds))
	for i, d := range ds {
		msgs[i] = d.Format(source)
	}
	return strings.Join(msgs, "\n")
}

// Err returns ds as an error, or nil when empty.
func (ds Diagnostics) Err() error {
	if len(ds) == 0 {
		return nil
	}
	return ds
}

// LineCol converts a byte offset into 1-based line and column numbers by
// counting newlines. Columns count runes.
func LineCol(source string, offset int) (line, col int) {
	if offset > len(source) {
		offset = len(source)
	}
	if offset < 0 {
		offset = 0
	}
	line = 1
	lineStart := 0
	for i := 0; i < offset; i++ {
		if source[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	col = len([]rune(source[lineStart:offset])) + 1
	return line, col
}

// sourceLine returns the text of the line containing offset.
func sourceLine(source string, offset int) string {
	if offset > len(source) {
		offset = len(source)
	}
	start := strings.LastIndexByte(source[:offset], '\n') + 1
	end := strings.IndexByte(source[offset:], '\n')
	if end < 0 {
		end = len(source)
	} else {
		end += offset
	}
	return strings.TrimRight(source[start:end], "\r")
}
