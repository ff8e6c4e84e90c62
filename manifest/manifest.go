// Package manifest handles tether.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a tether.toml project configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Wrap    Wrap    `toml:"wrap"`

	// Dir is the directory containing the tether.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Wrap configures binding generation.
type Wrap struct {
	// Output is the directory generated binding files are written to.
	Output string `toml:"output"`
	// Prefix is prepended to every registered name (e.g. "go.").
	Prefix   string    `toml:"prefix"`
	Packages []Package `toml:"packages"`
}

// Package selects one Go package to wrap.
type Package struct {
	Import string `toml:"import"`
	// Include restricts which exported names are wrapped; empty means all.
	Include []string `toml:"include"`
}

// Load parses a tether.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "tether.toml")
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

	// Defaults
	if m.Wrap.Output == "" {
		m.Wrap.Output = ".tether/wrap"
	}
	if m.Wrap.Prefix == "" {
		m.Wrap.Prefix = "go."
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a tether.toml file, then loads
// and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "tether.toml")
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

// OutputDir returns the absolute path of the generated-bindings directory.
func (m *Manifest) OutputDir() string {
	if filepath.IsAbs(m.Wrap.Output) {
		return m.Wrap.Output
	}
	return filepath.Join(m.Dir, m.Wrap.Output)
}
