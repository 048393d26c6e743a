// Package manifest handles swiftast.toml project configuration.
package manifest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the project configuration file.
const FileName = "swiftast.toml"

// Manifest represents a swiftast.toml project configuration.
type Manifest struct {
	Compiler Compiler     `toml:"compiler"`
	Parse    ParseConfig  `toml:"parse"`
	Source   Source       `toml:"source"`
	Store    StoreConfig  `toml:"store"`
	Policy   PolicyConfig `toml:"policy"`
	Server   ServerConfig `toml:"server"`

	// Dir is the directory containing the swiftast.toml file (set at load time).
	Dir string `toml:"-"`
}

// Compiler configures how dumps are produced.
type Compiler struct {
	// Command is the argv used to dump a file. The literal {file} is
	// replaced by the source path; if absent the path is appended.
	Command []string `toml:"command"`
	Timeout string   `toml:"timeout"`
}

// ParseConfig configures the structural parser.
type ParseConfig struct {
	Strict        bool     `toml:"strict"`
	NoisePrefixes []string `toml:"noise-prefixes"`
}

// Source configures source file locations.
type Source struct {
	Dirs []string `toml:"dirs"`
}

// StoreConfig configures the declaration index.
type StoreConfig struct {
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
}

// PolicyConfig points at a CUE policy file.
type PolicyConfig struct {
	File string `toml:"file"`
}

// ServerConfig configures the parse service.
type ServerConfig struct {
	Port int `toml:"port"`
}

// Default returns the configuration used when no swiftast.toml exists.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if len(m.Compiler.Command) == 0 {
		m.Compiler.Command = []string{"swiftc", "-dump-ast", "-parse-as-library", "{file}"}
	}
	if m.Compiler.Timeout == "" {
		m.Compiler.Timeout = "60s"
	}
	if len(m.Source.Dirs) == 0 {
		m.Source.Dirs = []string{"Sources"}
	}
	if m.Store.Driver == "" {
		m.Store.Driver = "sqlite"
	}
	if m.Store.Path == "" {
		m.Store.Path = filepath.Join(".swiftast", "index.db")
	}
	if m.Server.Port == 0 {
		m.Server.Port = 4200
	}
}

// Load parses a swiftast.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	if _, err := m.CompilerTimeout(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	switch m.Store.Driver {
	case "sqlite", "duckdb":
	default:
		return nil, fmt.Errorf("%s: unknown store driver %q", path, m.Store.Driver)
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a swiftast.toml file,
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
			return nil, nil
		}
		dir = parent
	}
}

// CompilerTimeout parses the configured dump timeout.
func (m *Manifest) CompilerTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(m.Compiler.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid compiler timeout %q: %w", m.Compiler.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("compiler timeout must be positive, got %s", d)
	}
	return d, nil
}

// Resolve returns p relative to the manifest directory unless it is absolute.
func (m *Manifest) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// SourceDirPaths returns absolute paths for the configured source directories.
func (m *Manifest) SourceDirPaths() []string {
	var paths []string
	for _, d := range m.Source.Dirs {
		paths = append(paths, m.Resolve(d))
	}
	return paths
}

// StorePath returns the absolute path of the index database.
func (m *Manifest) StorePath() string {
	return m.Resolve(m.Store.Path)
}

// SourceFiles returns every .swift file below the source directories,
// sorted. Missing directories are skipped.
func (m *Manifest) SourceFiles() ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, root := range m.SourceDirPaths() {
		if _, err := os.Stat(root); os.IsNotExist(err) {
			continue
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) == ".swift" && !seen[path] {
				seen[path] = true
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", root, err)
		}
	}
	sort.Strings(files)
	return files, nil
}
