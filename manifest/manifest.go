// Package manifest handles bluejay.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the manifest file looked for in a project directory.
const FileName = "bluejay.toml"

// Defaults applied by Load when a table leaves a value unset.
const (
	DefaultPrompt  = ">> "
	DefaultHistory = "~/.bluejay_history"
	DefaultAddr    = ":4567"
)

// Manifest represents a bluejay.toml project configuration.
type Manifest struct {
	Project Project      `toml:"project"`
	Source  Source       `toml:"source"`
	Repl    ReplConfig   `toml:"repl"`
	Log     LogConfig    `toml:"log"`
	Server  ServerConfig `toml:"server"`

	// Dir is the directory containing the bluejay.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source configures source file locations. Entry is the script the CLI
// runs when it is given no files.
type Source struct {
	Dirs  []string `toml:"dirs"`
	Entry string   `toml:"entry"`
}

// ReplConfig configures the interactive prompt.
type ReplConfig struct {
	Prompt  string `toml:"prompt"`
	History string `toml:"history"`
}

// LogConfig configures commonlog. A nil Verbosity leaves the CLI default.
type LogConfig struct {
	Verbosity *int   `toml:"verbosity"`
	File      string `toml:"file"`
}

// ServerConfig configures the evaluation service.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Default returns the manifest used when no bluejay.toml exists.
func Default(dir string) *Manifest {
	m := &Manifest{Dir: dir}
	m.applyDefaults()
	return m
}

// Load parses a bluejay.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	m.applyDefaults()
	return &m, nil
}

func (m *Manifest) applyDefaults() {
	if len(m.Source.Dirs) == 0 {
		m.Source.Dirs = []string{"src"}
	}
	if m.Repl.Prompt == "" {
		m.Repl.Prompt = DefaultPrompt
	}
	if m.Repl.History == "" {
		m.Repl.History = DefaultHistory
	}
	if m.Server.Addr == "" {
		m.Server.Addr = DefaultAddr
	}
}

// FindAndLoad walks up from startDir to find a bluejay.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// SourceDirPaths returns absolute paths for the configured source directories.
func (m *Manifest) SourceDirPaths() []string {
	var paths []string
	for _, d := range m.Source.Dirs {
		paths = append(paths, m.resolve(d))
	}
	return paths
}

// EntryPath returns the entry script path, or "" when none is configured.
// A bare file name is looked up in the source directories first.
func (m *Manifest) EntryPath() string {
	if m.Source.Entry == "" {
		return ""
	}
	if filepath.IsAbs(m.Source.Entry) {
		return m.Source.Entry
	}
	if !strings.ContainsRune(m.Source.Entry, filepath.Separator) {
		for _, dir := range m.SourceDirPaths() {
			candidate := filepath.Join(dir, m.Source.Entry)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return m.resolve(m.Source.Entry)
}

// HistoryPath returns the REPL history file with a leading ~ expanded.
// Relative paths are taken from the manifest directory.
func (m *Manifest) HistoryPath() string {
	h := m.Repl.History
	if h == "~" || strings.HasPrefix(h, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		return filepath.Join(home, strings.TrimPrefix(h[1:], "/"))
	}
	return m.resolve(h)
}

// LogFilePath returns the configured log file, or nil to log to stderr.
func (m *Manifest) LogFilePath() *string {
	if m.Log.File == "" {
		return nil
	}
	path := m.resolve(m.Log.File)
	return &path
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
