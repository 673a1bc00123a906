package plugin

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, json string) string {
	t.Helper()
	path := filepath.Join(dir, "manifest.json")
	if err := os.WriteFile(path, []byte(json), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	return path
}

func TestLoadManifestDefaultsABIToInprocess(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `{"name":"demo"}`)
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest failed: %v", err)
	}
	if m.ABI != "inprocess" {
		t.Fatalf("expected default abi \"inprocess\", got %q", m.ABI)
	}
}

func TestLoadManifestRejectsEmptyName(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `{"name":""}`)
	if _, err := LoadManifest(path); err == nil {
		t.Fatal("expected an error for an empty manifest name")
	}
}

func TestLoadManifestRejectsDuplicateFunctionNames(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `{"name":"demo","functions":[{"name":"f"},{"name":"f"}]}`)
	if _, err := LoadManifest(path); err == nil {
		t.Fatal("expected an error for duplicate function names")
	}
}

func TestDiscoverSkipsSubdirsWithoutManifest(t *testing.T) {
	dir := t.TempDir()
	withManifest := filepath.Join(dir, "a")
	os.Mkdir(withManifest, 0o755)
	writeManifest(t, withManifest, `{"name":"a"}`)

	without := filepath.Join(dir, "b")
	os.Mkdir(without, 0o755)

	manifests, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(manifests) != 1 || manifests[0].Name != "a" {
		t.Fatalf("expected exactly one manifest \"a\", got %v", manifests)
	}
}

func TestDiscoverOnMissingDirReturnsNoError(t *testing.T) {
	manifests, err := Discover(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("expected no error for a missing directory, got %v", err)
	}
	if len(manifests) != 0 {
		t.Fatalf("expected no manifests, got %v", manifests)
	}
}

func TestRegistryCallOnUnknownFunctionReportsNotFound(t *testing.T) {
	r := NewRegistry()
	_, found, err := r.Call("doesNotExist", nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if found {
		t.Fatal("expected found=false for an empty registry")
	}
}
