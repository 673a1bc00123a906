package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOnMissingFileReturnsDefaults(t *testing.T) {
	c, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.VM.StepLimit != 0 || c.VM.PluginDir != "" || c.VM.Trace {
		t.Fatalf("expected zero-value defaults, got %+v", c.VM)
	}
}

func TestLoadParsesVMSection(t *testing.T) {
	dir := t.TempDir()
	content := "[vm]\nstep_limit = 500\nplugin_dir = \"plugins\"\ntrace = true\n"
	if err := os.WriteFile(filepath.Join(dir, "mainstage.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.VM.StepLimit != 500 || c.VM.PluginDir != "plugins" || !c.VM.Trace {
		t.Fatalf("unexpected config: %+v", c.VM)
	}
}
