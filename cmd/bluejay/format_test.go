package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFormat_Canonical(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"x=1+2", "x = 1 + 2\n"},
		{"f( a ,b )", "f(a, b)\n"},
		{"func f(){return}", "func f() {\n  return\n}\n"},
	}
	for _, tc := range tests {
		got, err := Format(tc.input)
		if err != nil {
			t.Errorf("Format(%q): %v", tc.input, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Format(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestFormat_Idempotent(t *testing.T) {
	source := `class Point {
  Point(x, y) { this.x = x
  this.y = y }
  $add(o) { return Point(this.x+o.x, this.y+o.y) }
}
var p=Point(1,2)+Point(3,4)
if (p.x>3) print("big") else print("small")`

	first, err := Format(source)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	second, err := Format(first)
	if err != nil {
		t.Fatalf("Format of formatted output: %v", err)
	}
	if first != second {
		t.Errorf("Format is not idempotent:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}

func TestFormat_Errors(t *testing.T) {
	if _, err := Format("var = 1"); err == nil {
		t.Error("Format should reject invalid source")
	}
	if _, err := Format("// note\nprint(1)"); !errors.Is(err, errHasComments) {
		t.Errorf("Format with a line comment = %v, want errHasComments", err)
	}
	if _, err := Format("print(1) /* trailing */"); !errors.Is(err, errHasComments) {
		t.Errorf("Format with a block comment = %v, want errHasComments", err)
	}
}

func TestHasComments_IgnoresStrings(t *testing.T) {
	if _, err := Format("print(\"// not a comment\")"); err != nil {
		t.Errorf("comment markers inside strings should be allowed: %v", err)
	}
}

func TestCmdFmt(t *testing.T) {
	dir := t.TempDir()
	messy := writeScript(t, dir, "messy.bj", "x=1+2")
	clean := writeScript(t, dir, "clean.bj", "x = 1 + 2\n")
	commented := writeScript(t, dir, "commented.bj", "// keep me\nx=1")
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x=1"), 0644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr strings.Builder

	// Check mode reports without writing
	if code := cmdFmt([]string{"--check", dir}, &stdout, &stderr); code != exitFailure {
		t.Errorf("fmt --check exit = %d, want %d", code, exitFailure)
	}
	if !strings.Contains(stdout.String(), "would format: "+messy) {
		t.Errorf("stdout = %q", stdout.String())
	}
	if strings.Contains(stdout.String(), clean) {
		t.Error("clean file should not be reported")
	}
	if !strings.Contains(stderr.String(), "skipped "+commented) {
		t.Errorf("stderr = %q, want the commented file skipped", stderr.String())
	}
	if data, _ := os.ReadFile(messy); string(data) != "x=1+2" {
		t.Error("check mode should not modify files")
	}

	// Write mode rewrites
	stdout.Reset()
	if code := cmdFmt([]string{dir}, &stdout, &stderr); code != exitOK {
		t.Errorf("fmt exit = %d, want %d", code, exitOK)
	}
	if data, _ := os.ReadFile(messy); string(data) != "x = 1 + 2\n" {
		t.Errorf("formatted file = %q", data)
	}
	if data, _ := os.ReadFile(commented); string(data) != "// keep me\nx=1" {
		t.Error("a file with comments should be left untouched")
	}

	// Now everything is formatted
	stdout.Reset()
	if code := cmdFmt([]string{"--check", messy, clean}, &stdout, &stderr); code != exitOK {
		t.Errorf("fmt --check after formatting exit = %d, want %d", code, exitOK)
	}
}

func TestCmdFmt_RejectsOtherFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.txt")
	if err := os.WriteFile(path, []byte("x = 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	var stdout, stderr strings.Builder
	if code := cmdFmt([]string{path}, &stdout, &stderr); code != exitFailure {
		t.Errorf("exit = %d, want %d", code, exitFailure)
	}
}

func TestRun_FmtSubcommand(t *testing.T) {
	path := writeScript(t, t.TempDir(), "r.bj", "print( 1 )")
	code, stdout, _ := runCLI("fmt", "--check", path)
	if code != exitFailure || !strings.Contains(stdout, "would format") {
		t.Errorf("run fmt --check = %d, %q", code, stdout)
	}
}
