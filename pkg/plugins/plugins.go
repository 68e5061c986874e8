// Package plugins loads dynamically-linked view plugins and gates them on an
// API-version hash.
package plugins

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"plugin"

	"github.com/provgraph/pvm/pkg/log"
	"github.com/provgraph/pvm/pkg/types"
	"github.com/provgraph/pvm/pkg/views"
)

// APIVersion participates in the plugin build-version hash. Bump on any
// change to the plugin contract.
const APIVersion = "0.6.0"

// InitSymbol is the factory symbol a plugin shared object must export, of
// type func() Plugin.
const InitSymbol = "PVMPlugin"

// dylibExt is the shared-library extension the loader scans for. Go's
// plugin packaging emits .so on every supported platform.
const dylibExt = ".so"

// Plugin extends the engine with additional view types.
type Plugin interface {
	// Name identifies the plugin in logs and listings.
	Name() string
	// BuildVersion must return the BuildVersion() of the API the plugin was
	// compiled against; a mismatch fails the load.
	BuildVersion() string
	// ViewOps registers the plugin's view types.
	ViewOps(c *views.Coordinator) error
}

// BuildVersion hashes the API version strings of the core packages a plugin
// links against.
func BuildVersion() string {
	h := sha256.Sum256([]byte(types.APIVersion + views.APIVersion + APIVersion))
	return hex.EncodeToString(h[:])
}

// VersionMismatchError reports a plugin built against a different API.
type VersionMismatchError struct {
	Path string
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("failed to load plugin %s due to a mismatched plugin API version", e.Path)
}

// Manager owns the loaded plugins.
type Manager struct {
	plugins []Plugin
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{}
}

// Load opens one plugin shared object, checks its build version and retains
// it.
func (m *Manager) Load(path string) error {
	lib, err := plugin.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open plugin %s: %w", path, err)
	}
	sym, err := lib.Lookup(InitSymbol)
	if err != nil {
		return fmt.Errorf("plugin %s does not export %s: %w", path, InitSymbol, err)
	}
	factory, ok := sym.(func() Plugin)
	if !ok {
		return fmt.Errorf("plugin %s exports %s with the wrong type", path, InitSymbol)
	}
	p := factory()
	if p.BuildVersion() != BuildVersion() {
		return &VersionMismatchError{Path: path}
	}
	m.plugins = append(m.plugins, p)
	log.WithComponent("plugins").Info().Str("plugin", p.Name()).Str("path", path).Msg("plugin loaded")
	return nil
}

// LoadAll loads every shared object in dir.
func (m *Manager) LoadAll(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read plugin directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != dylibExt {
			continue
		}
		if err := m.Load(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// Plugins returns the loaded plugins in load order.
func (m *Manager) Plugins() []Plugin {
	out := make([]Plugin, len(m.plugins))
	copy(out, m.plugins)
	return out
}

// InitViews lets every plugin register its view types.
func (m *Manager) InitViews(c *views.Coordinator) error {
	for _, p := range m.plugins {
		if err := p.ViewOps(c); err != nil {
			return fmt.Errorf("plugin %s view registration failed: %w", p.Name(), err)
		}
	}
	return nil
}
