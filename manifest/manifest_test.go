package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "test-app"
version = "0.1.0"

[source]
dirs = ["src", "lib"]
entry = "main.bj"

[repl]
prompt = "bj> "
history = ".history"

[log]
verbosity = 2
file = "logs/bluejay.log"

[server]
addr = "127.0.0.1:9000"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "test-app" {
		t.Errorf("project name = %q, want test-app", m.Project.Name)
	}
	if m.Project.Version != "0.1.0" {
		t.Errorf("project version = %q, want 0.1.0", m.Project.Version)
	}
	if len(m.Source.Dirs) != 2 {
		t.Errorf("source dirs count = %d, want 2", len(m.Source.Dirs))
	}
	if m.Source.Entry != "main.bj" {
		t.Errorf("source entry = %q, want main.bj", m.Source.Entry)
	}
	if m.Repl.Prompt != "bj> " {
		t.Errorf("repl prompt = %q, want \"bj> \"", m.Repl.Prompt)
	}
	if m.Log.Verbosity == nil || *m.Log.Verbosity != 2 {
		t.Errorf("log verbosity = %v, want 2", m.Log.Verbosity)
	}
	if m.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("server addr = %q, want 127.0.0.1:9000", m.Server.Addr)
	}
	if got, want := m.HistoryPath(), filepath.Join(m.Dir, ".history"); got != want {
		t.Errorf("HistoryPath = %q, want %q", got, want)
	}
	if got := m.LogFilePath(); got == nil || *got != filepath.Join(m.Dir, "logs", "bluejay.log") {
		t.Errorf("LogFilePath = %v", got)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "minimal"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(m.Source.Dirs) != 1 || m.Source.Dirs[0] != "src" {
		t.Errorf("default source dirs = %v, want [src]", m.Source.Dirs)
	}
	if m.Repl.Prompt != DefaultPrompt {
		t.Errorf("default prompt = %q", m.Repl.Prompt)
	}
	if m.Server.Addr != DefaultAddr {
		t.Errorf("default addr = %q", m.Server.Addr)
	}
	if m.Log.Verbosity != nil {
		t.Errorf("default verbosity = %v, want unset", *m.Log.Verbosity)
	}
	if m.LogFilePath() != nil {
		t.Error("default log file should be unset")
	}
	if m.EntryPath() != "" {
		t.Errorf("EntryPath = %q, want empty", m.EntryPath())
	}
}

func TestLoadManifestErrors(t *testing.T) {
	tests := []struct {
		desc    string
		content string
		wantErr string
	}{
		{"syntax", "[project\nname = 1", "parse error"},
		{"wrong type", "[source]\ndirs = \"src\"", "parse error"},
		{"unknown key", "[project]\nname = \"x\"\nnamespace = \"Y\"", "unknown keys"},
	}
	for _, tc := range tests {
		dir := t.TempDir()
		writeManifest(t, dir, tc.content)
		_, err := Load(dir)
		if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
			t.Errorf("%s: Load error = %v, want %q", tc.desc, err, tc.wantErr)
		}
	}

	if _, err := Load(t.TempDir()); err == nil {
		t.Error("Load of a directory without a manifest should fail")
	}
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, dir, "[project]\nname = \"found-project\"\n")

	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Project.Name != "found-project" {
		t.Errorf("project name = %q, want found-project", m.Project.Name)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	m, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no bluejay.toml exists")
	}
}

func TestSourceDirPaths(t *testing.T) {
	m := &Manifest{
		Dir: "/app",
		Source: Source{
			Dirs: []string{"src", "/abs/lib"},
		},
	}

	paths := m.SourceDirPaths()
	if len(paths) != 2 {
		t.Fatalf("expected 2 paths, got %d", len(paths))
	}
	if paths[0] != "/app/src" {
		t.Errorf("paths[0] = %q, want /app/src", paths[0])
	}
	if paths[1] != "/abs/lib" {
		t.Errorf("paths[1] = %q, want /abs/lib", paths[1])
	}
}

func TestEntryPath(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "src"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "src", "main.bj"), []byte("print(1)\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		entry string
		want  string
	}{
		{"main.bj", filepath.Join(dir, "src", "main.bj")},
		{"other.bj", filepath.Join(dir, "other.bj")},
		{"scripts/run.bj", filepath.Join(dir, "scripts", "run.bj")},
		{"/abs/run.bj", "/abs/run.bj"},
	}
	for _, tc := range tests {
		m := Default(dir)
		m.Source.Entry = tc.entry
		if got := m.EntryPath(); got != tc.want {
			t.Errorf("EntryPath(%q) = %q, want %q", tc.entry, got, tc.want)
		}
	}
}

func TestHistoryPathExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	m := Default("/project")
	if got, want := m.HistoryPath(), filepath.Join(home, ".bluejay_history"); got != want {
		t.Errorf("HistoryPath = %q, want %q", got, want)
	}
	m.Repl.History = "/tmp/h"
	if got := m.HistoryPath(); got != "/tmp/h" {
		t.Errorf("HistoryPath = %q, want /tmp/h", got)
	}
}
