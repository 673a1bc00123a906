// Package plugin discovers and loads in-process plugin shared libraries and
// exposes a Registry satisfying mvm.PluginRegistry.
package plugin

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FunctionArg describes one argument of a plugin's declared function, for
// tooling (the CLI's plugins subcommand) rather than for ABI enforcement.
type FunctionArg struct {
	Name     string `json:"name"`
	Kind     string `json:"kind,omitempty"`
	Optional bool   `json:"optional,omitempty"`
}

// FunctionSpec documents one callable exported by a plugin.
type FunctionSpec struct {
	Name        string        `json:"name"`
	Args        []FunctionArg `json:"args,omitempty"`
	Returns     *FunctionArg  `json:"returns,omitempty"`
	Description string        `json:"description,omitempty"`
}

// Manifest is the contents of a plugin's manifest.json.
type Manifest struct {
	Name        string         `json:"name"`
	Version     string         `json:"version,omitempty"`
	Description string         `json:"description,omitempty"`
	ABI         string         `json:"abi,omitempty"`
	Entry       string         `json:"entry,omitempty"`
	Functions   []FunctionSpec `json:"functions,omitempty"`

	// Dir is the manifest's containing directory, set by discovery rather
	// than decoded from JSON, so Entry can be resolved relative to it.
	Dir string `json:"-"`
}

// LoadManifest reads and validates a manifest.json file.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.ABI == "" {
		m.ABI = "inprocess"
	}
	m.Dir = filepath.Dir(path)
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate rejects an empty name and duplicate function names.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("manifest name is empty")
	}
	seen := make(map[string]bool, len(m.Functions))
	for _, f := range m.Functions {
		if seen[f.Name] {
			return fmt.Errorf("duplicate function name %q", f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// LibraryPath resolves the Entry field to a candidate shared library path
// for the host platform: Entry itself, then Entry+.dll/libEntry.so/libEntry.dylib.
func (m *Manifest) LibraryPath() []string {
	entry := m.Entry
	if entry == "" {
		entry = m.Name
	}
	base := filepath.Join(m.Dir, entry)
	return []string{
		base,
		base + ".dll",
		filepath.Join(m.Dir, "lib"+entry+".so"),
		filepath.Join(m.Dir, "lib"+entry+".dylib"),
	}
}

// Discover walks dir expecting one subdirectory per plugin, each containing
// its own manifest.json. Subdirectories without a manifest are silently
// skipped; a dir that does not exist yields no manifests and no error.
func Discover(dir string) ([]*Manifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read plugin dir: %w", err)
	}

	var out []*Manifest
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		manifestPath := filepath.Join(dir, entry.Name(), "manifest.json")
		if _, err := os.Stat(manifestPath); err != nil {
			continue
		}
		m, err := LoadManifest(manifestPath)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
