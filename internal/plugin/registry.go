package plugin

import (
	"fmt"

	"github.com/ColtMcG1/Mainstage/internal/ir"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

var logger = commonlog.GetLogger("mainstage.plugin")

// loaded pairs a manifest with its loaded shared library, if loading
// succeeded. A plugin whose load failed is kept out of funcIndex entirely.
type loaded struct {
	manifest *Manifest
	lib      *library
}

// Registry satisfies mvm.PluginRegistry's Call(name, args) (ir.Value, bool,
// error) interface structurally; mvm never imports this package.
type Registry struct {
	plugins   []*loaded
	funcIndex map[string]*loaded // function name -> first-registered plugin exporting it
}

// NewRegistry returns an empty registry. Use LoadDir to populate it.
func NewRegistry() *Registry {
	return &Registry{funcIndex: map[string]*loaded{}}
}

// LoadDir discovers manifests under dir and attempts to load each one's
// shared library. A load failure is logged and that plugin is skipped
// rather than failing the whole directory (§6.3, Supplemented load
// diagnostics); load errors are collected and returned together so the
// caller can decide whether any are fatal.
func (r *Registry) LoadDir(dir string) []error {
	manifests, err := Discover(dir)
	if err != nil {
		return []error{err}
	}

	var errs []error
	for _, m := range manifests {
		if err := r.loadOne(m); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (r *Registry) loadOne(m *Manifest) error {
	var lib *library
	var lastErr error
	for _, candidate := range m.LibraryPath() {
		l, err := loadLibrary(candidate)
		if err == nil {
			lib = l
			break
		}
		lastErr = err
	}
	if lib == nil {
		logger.Warning(fmt.Sprintf("in-process load failed for plugin %q: %v", m.Name, lastErr))
		return fmt.Errorf("plugin %q: %w", m.Name, lastErr)
	}

	entry := &loaded{manifest: m, lib: lib}
	r.plugins = append(r.plugins, entry)

	for _, fn := range declaredOrDiscoveredFunctions(m) {
		if _, exists := r.funcIndex[fn]; !exists {
			r.funcIndex[fn] = entry
		}
	}

	logger.Info(fmt.Sprintf("registered in-process plugin %q (instance %s) from %s", lib.name, lib.instanceID, lib.path))
	return nil
}

// declaredOrDiscoveredFunctions returns the manifest's declared function
// names; a manifest with none still makes its plugin callable by any name,
// since the ABI itself has no introspection call to enumerate exports.
func declaredOrDiscoveredFunctions(m *Manifest) []string {
	names := make([]string, 0, len(m.Functions))
	for _, f := range m.Functions {
		names = append(names, f.Name)
	}
	return names
}

// Call implements mvm.PluginRegistry. found is false only when no loaded
// plugin declares the function name and no fallback plugin exists (see
// fallback); an ABI-level failure (plugin missing,
// malformed JSON, {"error":...} envelope) is returned as a non-nil error
// with found=true so the caller still knows a plugin was targeted.
func (r *Registry) Call(name string, args []ir.Value) (ir.Value, bool, error) {
	entry, ok := r.funcIndex[name]
	if !ok {
		entry = r.fallback(name)
		if entry == nil {
			return ir.Null(), false, nil
		}
	}

	argsJSON, err := valuesToJSON(args)
	if err != nil {
		return ir.Null(), true, fmt.Errorf("serialize args for %s: %w", name, err)
	}

	raw, err := entry.lib.call(name, argsJSON)
	if err != nil {
		return ir.Null(), true, err
	}

	v, err := jsonToValue(raw)
	if err != nil {
		return ir.Null(), true, err
	}
	return v, true, nil
}

// fallback dispatches to the first loaded plugin, in registration order,
// whose manifest declares no functions at all, since an empty functions list
// does not prove the export doesn't exist (§4.4). It returns nil when every
// loaded plugin declares at least one function.
func (r *Registry) fallback(name string) *loaded {
	if len(r.plugins) == 0 {
		return nil
	}
	for _, p := range r.plugins {
		if len(p.manifest.Functions) == 0 {
			return p
		}
	}
	return nil
}

// Plugins returns the manifests of every successfully loaded plugin. The
// CLI's plugins list subcommand does not use it; it reads manifests with
// Discover without loading any library.
func (r *Registry) Plugins() []*Manifest {
	out := make([]*Manifest, len(r.plugins))
	for i, p := range r.plugins {
		out[i] = p.manifest
	}
	return out
}
