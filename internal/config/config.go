// Package config loads the optional mainstage.toml project configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the contents of mainstage.toml. A missing file is not an error;
// Load returns the zero-value defaults in that case.
type Config struct {
	VM VMConfig `toml:"vm"`
}

// VMConfig sets CLI defaults for the VM; none of these are required to run
// a compiled MSBC file. The CLI reads them only from this file and takes no
// flags for them.
type VMConfig struct {
	StepLimit int    `toml:"step_limit"`
	PluginDir string `toml:"plugin_dir"`
	Trace     bool   `toml:"trace"`
}

// Load parses mainstage.toml from dir. A missing file yields zero-value
// defaults rather than an error, so the CLI works with no configuration
// present.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, "mainstage.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return &c, nil
}
