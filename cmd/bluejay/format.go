package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/bluejay/compiler"
	"github.com/chazu/bluejay/compiler/hash"
)

const sourceExt = ".bj"

// errHasComments marks a file the formatter leaves alone: comments are
// not part of the syntax tree and printing would drop them.
var errHasComments = errors.New("file contains comments")

// Format renders source in canonical layout. The result is checked to
// have the same structural fingerprint as the input.
func Format(source string) (string, error) {
	tokens, diags := compiler.Scan(source)
	if err := diags.Err(); err != nil {
		return "", err
	}
	if hasComments(source, tokens) {
		return "", errHasComments
	}

	stmts, diags := compiler.Parse(tokens)
	if err := diags.Err(); err != nil {
		return "", err
	}
	before, err := hash.Fingerprint(stmts)
	if err != nil {
		return "", err
	}

	formatted := compiler.Print(stmts)
	after, err := hash.FingerprintSource(formatted)
	if err != nil {
		return "", fmt.Errorf("formatted output does not parse: %w", err)
	}
	if before != after {
		return "", fmt.Errorf("formatting changed the program structure")
	}
	return formatted, nil
}

// hasComments reports whether any text other than whitespace lies
// between tokens.
func hasComments(source string, tokens []compiler.Token) bool {
	pos := 0
	for _, tok := range tokens {
		if tok.Offset > pos && strings.TrimSpace(source[pos:tok.Offset]) != "" {
			return true
		}
		if end := tok.Offset + len(tok.Lexeme); end > pos {
			pos = end
		}
	}
	return pos < len(source) && strings.TrimSpace(source[pos:]) != ""
}

// ---------------------------------------------------------------------------
// CLI command: bluejay fmt
// ---------------------------------------------------------------------------

func cmdFmt(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("fmt", flag.ContinueOnError)
	fs.SetOutput(stderr)
	check := fs.Bool("check", false, "Check formatting without modifying files; exit 1 if any file would change")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: bluejay fmt [--check] <files or directories...>\n\n")
		fmt.Fprintf(stderr, "Format Bluejay source files to canonical style.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nIf no paths are given, formats the source directories from bluejay.toml,\n")
		fmt.Fprintf(stderr, "or the current directory.\n")
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	paths := fs.Args()
	if len(paths) == 0 {
		paths = defaultFmtPaths()
	}

	files, err := collectSourceFiles(paths)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	if len(files) == 0 {
		fmt.Fprintf(stderr, "No %s files found\n", sourceExt)
		return exitOK
	}

	anyChanged := false
	for _, path := range files {
		changed, err := formatFile(path, *check, stdout)
		if errors.Is(err, errHasComments) {
			fmt.Fprintf(stderr, "skipped %s: %v\n", path, err)
			continue
		}
		if err != nil {
			fmt.Fprintf(stderr, "Error formatting %s: %v\n", path, err)
			return exitFailure
		}
		if changed {
			anyChanged = true
		}
	}

	if *check && anyChanged {
		return exitFailure
	}
	return exitOK
}

func defaultFmtPaths() []string {
	m, err := loadManifest()
	if err == nil {
		if dirs := m.SourceDirPaths(); len(dirs) > 0 {
			return dirs
		}
	}
	return []string{"."}
}

// formatFile formats a single file. In check mode it returns true if the
// file would change; otherwise it rewrites the file and returns true if
// it changed.
func formatFile(path string, checkMode bool, stdout io.Writer) (bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	original := string(content)
	formatted, err := Format(original)
	if err != nil {
		return false, err
	}
	if original == formatted {
		return false, nil
	}

	if checkMode {
		fmt.Fprintf(stdout, "would format: %s\n", path)
		return true, nil
	}

	if err := os.WriteFile(path, []byte(formatted), 0644); err != nil {
		return false, err
	}
	fmt.Fprintf(stdout, "formatted: %s\n", path)
	return true, nil
}

// collectSourceFiles resolves paths to a flat list of source files.
// Directories are walked recursively.
func collectSourceFiles(paths []string) ([]string, error) {
	var result []string

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("invalid path %q: %w", p, err)
		}

		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("cannot access %q: %w", abs, err)
		}

		if !info.IsDir() {
			if filepath.Ext(abs) != sourceExt {
				return nil, fmt.Errorf("%q is not a %s file", abs, sourceExt)
			}
			result = append(result, abs)
			continue
		}

		err = filepath.WalkDir(abs, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(path) == sourceExt {
				result = append(result, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}
