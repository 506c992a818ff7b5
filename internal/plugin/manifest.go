package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/dshills/polyglot/internal/plugin/security"
)

// ManifestName is the manifest file name inside a plugin directory.
const ManifestName = "plugin.json"

// Manifest describes a plugin's metadata and requirements.
type Manifest struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Author      string `json:"author"`

	// Main is the entry script relative to the plugin directory. When
	// empty the loader resolves plugin.lua, then init.lua.
	Main string `json:"main"`

	// Requires names pg API modules the plugin cannot run without
	// (e.g. "panel", "command"). Checked against the module registry
	// before the entry script runs.
	Requires []string `json:"requires"`

	// Dependencies names plugins that must be loaded first.
	Dependencies []string `json:"dependencies"`

	// Capabilities the plugin requests from the sandbox.
	Capabilities []security.Capability `json:"capabilities"`

	// path is the plugin directory, set by the loader.
	path string
}

// Manifest validation errors.
var (
	ErrMissingName       = errors.New("manifest: name is required")
	ErrInvalidName       = errors.New("manifest: name must be lowercase alphanumeric with hyphens")
	ErrMissingVersion    = errors.New("manifest: version is required")
	ErrInvalidVersion    = errors.New("manifest: version must be valid semver")
	ErrInvalidMain       = errors.New("manifest: main must be a .lua file")
	ErrInvalidCapability = errors.New("manifest: unknown capability")
)

// namePattern validates plugin names.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*[a-z0-9]$|^[a-z]$`)

// semverPattern validates version strings (simplified semver).
var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)

// LoadManifest reads and validates a plugin.json file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	m.path = filepath.Dir(path)
	m.applyDefaults()

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// NewManifestMinimal synthesizes a manifest for plugins without one.
func NewManifestMinimal(name, path string) *Manifest {
	return &Manifest{
		Name:    name,
		Version: "0.0.0",
		path:    path,
	}
}

func (m *Manifest) applyDefaults() {
	if m.Version == "" {
		m.Version = "0.0.0"
	}
}

// Validate checks the manifest fields.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return ErrMissingName
	}
	if !namePattern.MatchString(m.Name) {
		return fmt.Errorf("%w: %s", ErrInvalidName, m.Name)
	}

	if m.Version == "" {
		return ErrMissingVersion
	}
	if !semverPattern.MatchString(m.Version) {
		return fmt.Errorf("%w: %s", ErrInvalidVersion, m.Version)
	}

	if m.Main != "" && filepath.Ext(m.Main) != ".lua" {
		return fmt.Errorf("%w: %s", ErrInvalidMain, m.Main)
	}

	for _, c := range m.Capabilities {
		if !security.IsValidCapability(c) {
			return fmt.Errorf("%w: %s", ErrInvalidCapability, c)
		}
	}
	return nil
}

// Path returns the plugin directory.
func (m *Manifest) Path() string {
	return m.path
}

// MainPath returns the absolute path of the entry script.
func (m *Manifest) MainPath() string {
	return filepath.Join(m.path, m.Main)
}

// HasCapability reports whether the plugin requests the capability.
func (m *Manifest) HasCapability(c security.Capability) bool {
	for _, have := range m.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// String renders "name vX.Y.Z".
func (m *Manifest) String() string {
	return fmt.Sprintf("%s v%s", m.Name, m.Version)
}

// Clone returns a deep copy of the manifest.
func (m *Manifest) Clone() *Manifest {
	clone := *m
	if m.Requires != nil {
		clone.Requires = append([]string(nil), m.Requires...)
	}
	if m.Dependencies != nil {
		clone.Dependencies = append([]string(nil), m.Dependencies...)
	}
	if m.Capabilities != nil {
		clone.Capabilities = append([]security.Capability(nil), m.Capabilities...)
	}
	return &clone
}
