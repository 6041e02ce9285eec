package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/peterh/liner"

	"github.com/chazu/bluejay/compiler"
	"github.com/chazu/bluejay/manifest"
	"github.com/chazu/bluejay/vm"
)

const continuationPrompt = ".. "

// prompter reads one line of input. *liner.State implements it.
type prompter interface {
	Prompt(prompt string) (string, error)
}

// runREPL starts an interactive read-eval-print loop on the terminal.
func runREPL(rt *vm.Runtime, m *manifest.Manifest, stdout, stderr io.Writer) int {
	fmt.Fprintln(stdout, "Bluejay REPL (type ':help' for commands, ':quit' to exit)")

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := m.HistoryPath()
	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(histPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			} else {
				log.Warningf("cannot write history: %v", err)
			}
		}()
	}

	r := &repl{rt: rt, out: stdout, errOut: stderr, prompt: m.Repl.Prompt}
	r.loop(ln, ln.AppendHistory)
	fmt.Fprintln(stdout)
	return exitOK
}

// repl evaluates entries against one runtime. Globals accumulate across
// entries and errors do not end the session.
type repl struct {
	rt     *vm.Runtime
	out    io.Writer
	errOut io.Writer
	prompt string
}

// loop reads entries until end of input or :quit.
func (r *repl) loop(p prompter, remember func(string)) {
	for {
		code, ok := r.read(p)
		if !ok {
			return
		}
		if strings.TrimSpace(code) == "" {
			continue
		}
		remember(strings.ReplaceAll(code, "\n", " "))
		if r.handle(code) {
			return
		}
	}
}

// read collects lines until they form a complete entry. It returns false
// at end of input.
func (r *repl) read(p prompter) (string, bool) {
	var b strings.Builder
	for {
		prompt := r.prompt
		if b.Len() > 0 {
			prompt = continuationPrompt
		}
		line, err := p.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			// Ctrl-C discards the pending entry
			b.Reset()
			continue
		}
		if err != nil {
			fmt.Fprintf(r.errOut, "Error: %v\n", err)
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") || !incomplete(src) {
			return src, true
		}
	}
}

// handle runs one entry. It reports whether the session should end.
func (r *repl) handle(code string) bool {
	trimmed := strings.TrimSpace(code)
	if strings.HasPrefix(trimmed, ":") {
		return r.command(trimmed)
	}

	// Ctrl-C stops a running entry without leaving the REPL
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	v, err := r.rt.EvalContext(ctx, code)
	if err != nil {
		fmt.Fprintln(r.errOut, formatError(code, err))
		return false
	}
	if v == vm.Null {
		return false
	}
	s, err := r.rt.Stringify(v)
	if err != nil {
		fmt.Fprintln(r.errOut, formatError(code, err))
		return false
	}
	fmt.Fprintln(r.out, s)
	return false
}

// command handles REPL meta-commands.
func (r *repl) command(cmd string) bool {
	switch cmd {
	case ":quit", ":q":
		return true
	case ":help", ":h", ":?":
		fmt.Fprintln(r.out, "REPL Commands:")
		fmt.Fprintln(r.out, "  :help, :h, :?     Show this help")
		fmt.Fprintln(r.out, "  :globals          List global names and their types")
		fmt.Fprintln(r.out, "  :quit, :q         Exit REPL")
		fmt.Fprintln(r.out, "Unclosed brackets or braces continue the entry on the next line.")
	case ":globals":
		for _, name := range r.rt.Globals() {
			v, _ := r.rt.Lookup(name)
			fmt.Fprintf(r.out, "  %-16s %s\n", name, vm.TypeName(v))
		}
	default:
		fmt.Fprintf(r.out, "Unknown command: %s (type :help for commands)\n", cmd)
	}
	return false
}

// incomplete reports whether src stops inside an open bracket, brace,
// string or block comment, or ends where the grammar needs more input.
func incomplete(src string) bool {
	tokens, diags := compiler.Scan(src)
	for _, d := range diags {
		if strings.HasPrefix(d.Message, "unterminated") {
			return true
		}
	}

	depth := 0
	for _, tok := range tokens {
		switch tok.Type {
		case compiler.TokenLParen, compiler.TokenLBracket, compiler.TokenLBrace:
			depth++
		case compiler.TokenRParen, compiler.TokenRBracket, compiler.TokenRBrace:
			depth--
		}
	}
	if depth > 0 {
		return true
	}
	if len(diags) > 0 || depth < 0 {
		return false
	}

	// Errors at the very end mean the parser ran out of input
	end := len(strings.TrimRight(src, " \t\r\n"))
	_, diags = compiler.ParseSource(src)
	for _, d := range diags {
		if d.Token.Offset >= end {
			return true
		}
	}
	return false
}
