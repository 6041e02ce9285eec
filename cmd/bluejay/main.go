// Bluejay CLI - runs scripts, the REPL, the language server and the
// evaluation service
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/tliron/commonlog"

	"github.com/chazu/bluejay/compiler"
	"github.com/chazu/bluejay/compiler/hash"
	"github.com/chazu/bluejay/manifest"
	"github.com/chazu/bluejay/server"
	"github.com/chazu/bluejay/vm"

	_ "github.com/tliron/commonlog/simple"
)

// Exit codes follow sysexits.h.
const (
	exitOK       = 0
	exitFailure  = 1
	exitUsage    = 2
	exitDataErr  = 65 // syntax or resolve diagnostics
	exitNoInput  = 66 // unreadable file
	exitSoftware = 70 // runtime error
)

var log = commonlog.GetLogger("bluejay.cli")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// verbosity is a counted -v flag.
type verbosity int

func (v *verbosity) String() string   { return strconv.Itoa(int(*v)) }
func (v *verbosity) IsBoolFlag() bool { return true }

func (v *verbosity) Set(s string) error {
	if s == "true" {
		*v++
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*v = verbosity(n)
	return nil
}

type options struct {
	interactive bool
	tokens      bool
	ast         bool
	fingerprint bool
	dumpAST     bool
	lsp         bool
	serve       bool
	addr        string
	verbose     verbosity
	files       []string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("bluejay", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&opts.interactive, "i", false, "Start the REPL after running files")
	fs.BoolVar(&opts.tokens, "tokens", false, "Print the token stream of each file")
	fs.BoolVar(&opts.ast, "ast", false, "Print each file's syntax tree as canonical source")
	fs.BoolVar(&opts.fingerprint, "fingerprint", false, "Print the structural hash of each file")
	fs.BoolVar(&opts.dumpAST, "dump-ast", false, "Write the normalized syntax tree of each file as CBOR")
	fs.BoolVar(&opts.lsp, "lsp", false, "Run the language server on stdio")
	fs.BoolVar(&opts.serve, "serve", false, "Run the evaluation service (Connect HTTP/JSON)")
	fs.StringVar(&opts.addr, "addr", "", "Evaluation service address (default from bluejay.toml, else "+manifest.DefaultAddr+")")
	fs.Var(&opts.verbose, "v", "Increase log verbosity (repeatable)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: bluejay [options] [files...]\n")
		fmt.Fprintf(stderr, "       bluejay fmt [--check] [paths...]\n\n")
		fmt.Fprintf(stderr, "Runs Bluejay scripts in one runtime. Without files, runs the entry script\n")
		fmt.Fprintf(stderr, "named in bluejay.toml, or starts the REPL.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  bluejay                      # Start REPL\n")
		fmt.Fprintf(stderr, "  bluejay main.bj              # Run a script\n")
		fmt.Fprintf(stderr, "  bluejay -i lib.bj            # Run lib.bj, then start REPL\n")
		fmt.Fprintf(stderr, "  bluejay -fingerprint a.bj    # Print structural hash\n")
		fmt.Fprintf(stderr, "  bluejay --serve -addr :8080  # Serve evaluation sessions\n")
		fmt.Fprintf(stderr, "  bluejay --lsp                # Language server for editors\n")
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	opts.files = fs.Args()
	return opts, nil
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 && args[0] == "fmt" {
		return cmdFmt(args[1:], stdout, stderr)
	}

	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	m, err := loadManifest()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	configureLogging(opts, m)

	switch {
	case opts.lsp:
		if err := server.NewLSP().Run(); err != nil {
			fmt.Fprintf(stderr, "LSP error: %v\n", err)
			return exitFailure
		}
		return exitOK

	case opts.serve:
		addr := opts.addr
		if addr == "" {
			addr = m.Server.Addr
		}
		srv := server.New()
		defer srv.Stop()
		if err := srv.ListenAndServe(addr); err != nil {
			fmt.Fprintf(stderr, "Server error: %v\n", err)
			return exitFailure
		}
		return exitOK

	case opts.tokens || opts.ast || opts.fingerprint || opts.dumpAST:
		return dumpFiles(opts, stdout, stderr)
	}

	rt := vm.NewRuntime(vm.WithOutput(stdout), vm.WithInput(os.Stdin))

	files := opts.files
	if len(files) == 0 {
		if entry := m.EntryPath(); entry != "" {
			log.Infof("running entry %s", entry)
			files = []string{entry}
		}
	}
	for _, path := range files {
		if code := runFile(rt, path, stderr); code != exitOK {
			return code
		}
	}

	if opts.interactive || len(files) == 0 {
		return runREPL(rt, m, stdout, stderr)
	}
	return exitOK
}

// loadManifest finds bluejay.toml from the working directory, falling
// back to defaults.
func loadManifest() (*manifest.Manifest, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	m, err := manifest.FindAndLoad(cwd)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return manifest.Default(cwd), nil
	}
	return m, nil
}

// configureLogging applies -v, or the manifest verbosity when no -v is
// given.
func configureLogging(opts *options, m *manifest.Manifest) {
	level := int(opts.verbose)
	if level == 0 && m.Log.Verbosity != nil {
		level = *m.Log.Verbosity
	}
	commonlog.Configure(level, m.LogFilePath())
}

// runFile runs one script in rt and maps failures to exit codes.
func runFile(rt *vm.Runtime, path string, stderr io.Writer) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitNoInput
	}
	source := string(data)
	log.Debugf("running %s (%d bytes)", path, len(source))

	err = rt.Run(source)
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(stderr, "%s: %s\n", path, formatError(source, err))
	var diags compiler.Diagnostics
	if errors.As(err, &diags) {
		return exitDataErr
	}
	return exitSoftware
}

// formatError renders err with line, column and caret where available.
func formatError(source string, err error) string {
	var diags compiler.Diagnostics
	if errors.As(err, &diags) {
		return diags.Format(source)
	}
	var rerr *vm.Error
	if errors.As(err, &rerr) {
		return rerr.Format(source)
	}
	return err.Error()
}

// ---------------------------------------------------------------------------
// Inspection flags: -tokens, -ast, -fingerprint, -dump-ast
// ---------------------------------------------------------------------------

func dumpFiles(opts *options, stdout, stderr io.Writer) int {
	if len(opts.files) == 0 {
		fmt.Fprintf(stderr, "Error: no files given\n")
		return exitUsage
	}
	for _, path := range opts.files {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitNoInput
		}
		source := string(data)

		if opts.tokens {
			tokens, diags := compiler.Scan(source)
			for _, tok := range tokens {
				line, col := compiler.LineCol(source, tok.Offset)
				fmt.Fprintf(stdout, "%d:%d\t%s\t%q\n", line, col, tok.Type, tok.Lexeme)
			}
			if len(diags) > 0 {
				fmt.Fprintf(stderr, "%s: %s\n", path, diags.Format(source))
				return exitDataErr
			}
			continue
		}

		stmts, diags := compiler.ParseSource(source)
		if len(diags) > 0 {
			fmt.Fprintf(stderr, "%s: %s\n", path, diags.Format(source))
			return exitDataErr
		}

		switch {
		case opts.ast:
			fmt.Fprint(stdout, compiler.Print(stmts))
		case opts.fingerprint:
			sum, err := hash.Fingerprint(stmts)
			if err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				return exitSoftware
			}
			fmt.Fprintf(stdout, "%s  %s\n", hash.Hex(sum), path)
		case opts.dumpAST:
			data, err := hash.Serialize(hash.Normalize(stmts))
			if err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				return exitSoftware
			}
			if _, err := stdout.Write(data); err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				return exitFailure
			}
		}
	}
	return exitOK
}
