package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/polyglot/internal/config/loader"
)

// FileName is the name of the configuration file under the config directory.
const FileName = "config.toml"

// Config provides unified access to the Polyglot configuration.
// Three layers are merged in fixed precedence: built-in defaults,
// the config.toml file, and POLYGLOT_* environment variables (highest).
type Config struct {
	mu sync.RWMutex

	defaults map[string]any
	file     map[string]any
	env      map[string]any

	// merged is the cached merge of the three layers.
	merged map[string]any

	userConfigDir string
	fs            loader.FileSystem

	// dirty is set when Set modifies the file layer after Load.
	dirty bool

	observers []func(path string, oldValue, newValue any)

	// configErrors stores errors encountered during configuration access.
	// This allows detection of type mismatches and other config problems.
	configErrors map[string]error
}

// Option configures a Config instance.
type Option func(*Config)

// WithUserConfigDir sets the user configuration directory.
func WithUserConfigDir(dir string) Option {
	return func(c *Config) {
		c.userConfigDir = dir
	}
}

// WithFileSystem sets the file system used to read the config file.
func WithFileSystem(fs loader.FileSystem) Option {
	return func(c *Config) {
		c.fs = fs
	}
}

// New creates a new Config instance with the given options.
// The configuration holds only defaults until Load is called.
func New(opts ...Option) *Config {
	c := &Config{
		defaults: defaultConfig(),
		fs:       loader.DefaultFS(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.userConfigDir == "" {
		c.userConfigDir = DefaultUserConfigDir()
	}

	c.remerge()
	return c
}

// Load loads configuration from the config file and the environment.
// A missing config file is not an error; the defaults stand.
func (c *Config) Load() error {
	tomlLoader := loader.NewTOMLLoaderWithFS(c.fs, c.Path())
	fileData, err := tomlLoader.Load()
	if err != nil {
		return err
	}

	envLoader := loader.NewEnvLoader("POLYGLOT_")
	envData, err := envLoader.Load()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.file = fileData
	c.env = envData
	c.dirty = false
	c.remerge()
	c.mu.Unlock()

	return nil
}

// Path returns the path of the configuration file.
func (c *Config) Path() string {
	return filepath.Join(c.userConfigDir, FileName)
}

// UserConfigDir returns the user configuration directory.
func (c *Config) UserConfigDir() string {
	return c.userConfigDir
}

// Get returns the value at the given path from the merged configuration.
func (c *Config) Get(path string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return getPath(c.merged, path)
}

// GetString returns a string value at the given path.
func (c *Config) GetString(path string) (string, error) {
	v, ok := c.Get(path)
	if !ok {
		return "", ErrSettingNotFound
	}
	s, ok := v.(string)
	if !ok {
		return "", &TypeError{Path: path, Expected: "string", Actual: typeName(v)}
	}
	return s, nil
}

// GetInt returns an integer value at the given path.
func (c *Config) GetInt(path string) (int, error) {
	v, ok := c.Get(path)
	if !ok {
		return 0, ErrSettingNotFound
	}
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		return int(val), nil
	default:
		return 0, &TypeError{Path: path, Expected: "int", Actual: typeName(v)}
	}
}

// GetBool returns a boolean value at the given path.
func (c *Config) GetBool(path string) (bool, error) {
	v, ok := c.Get(path)
	if !ok {
		return false, ErrSettingNotFound
	}
	b, ok := v.(bool)
	if !ok {
		return false, &TypeError{Path: path, Expected: "bool", Actual: typeName(v)}
	}
	return b, nil
}

// GetFloat returns a float64 value at the given path.
func (c *Config) GetFloat(path string) (float64, error) {
	v, ok := c.Get(path)
	if !ok {
		return 0, ErrSettingNotFound
	}
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	default:
		return 0, &TypeError{Path: path, Expected: "float64", Actual: typeName(v)}
	}
}

// GetStringSlice returns a string slice at the given path.
func (c *Config) GetStringSlice(path string) ([]string, error) {
	v, ok := c.Get(path)
	if !ok {
		return nil, ErrSettingNotFound
	}

	switch val := v.(type) {
	case []string:
		return val, nil
	case []any:
		result := make([]string, len(val))
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, &TypeError{Path: path, Expected: "[]string", Actual: typeName(v)}
			}
			result[i] = s
		}
		return result, nil
	default:
		return nil, &TypeError{Path: path, Expected: "[]string", Actual: typeName(v)}
	}
}

// Set sets a value at the given path in the file layer.
// Environment overrides still win in the merged view. Observers are
// notified with the effective merged values before and after the change.
func (c *Config) Set(path string, value any) error {
	c.mu.Lock()

	oldValue, _ := getPath(c.merged, path)

	if c.file == nil {
		c.file = make(map[string]any)
	}
	if err := setPath(c.file, path, value); err != nil {
		c.mu.Unlock()
		return err
	}

	c.dirty = true
	c.remerge()
	newValue, _ := getPath(c.merged, path)

	// Snapshot observers so notification runs outside the lock.
	observers := make([]func(string, any, any), 0, len(c.observers))
	for _, obs := range c.observers {
		if obs != nil {
			observers = append(observers, obs)
		}
	}
	c.mu.Unlock()

	for _, obs := range observers {
		obs(path, oldValue, newValue)
	}

	return nil
}

// Subscribe registers an observer for configuration changes.
// The returned function removes the subscription.
func (c *Config) Subscribe(observer func(path string, oldValue, newValue any)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.observers = append(c.observers, observer)
	idx := len(c.observers) - 1

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if idx < len(c.observers) {
			c.observers[idx] = nil
		}
	}
}

// Dirty reports whether Set has modified the file layer since Load.
func (c *Config) Dirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dirty
}

// Save writes the file layer to the configuration file.
// The write is atomic: a temp file in the same directory is renamed over
// the target.
func (c *Config) Save() error {
	c.mu.RLock()
	fileLayer := loader.Clone(c.file)
	c.mu.RUnlock()

	if fileLayer == nil {
		fileLayer = map[string]any{}
	}

	data, err := toml.Marshal(fileLayer)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	path := c.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.toml")
	if err != nil {
		return fmt.Errorf("creating temp config: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing config: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing config: %w", err)
	}

	c.mu.Lock()
	c.dirty = false
	c.mu.Unlock()

	return nil
}

// Merged returns a deep copy of the fully merged configuration.
func (c *Config) Merged() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return loader.Clone(c.merged)
}

// remerge rebuilds the merged view. Callers must hold the write lock
// (or have exclusive access during construction).
func (c *Config) remerge() {
	merged := loader.Clone(c.defaults)
	merged = loader.DeepMerge(merged, loader.Clone(c.file))
	merged = loader.DeepMerge(merged, loader.Clone(c.env))
	c.merged = merged
}

// DefaultUserConfigDir returns the default user configuration directory.
// POLYGLOT_CONFIG_DIR overrides; otherwise XDG_CONFIG_HOME or
// ~/.config/polyglot.
func DefaultUserConfigDir() string {
	if dir := os.Getenv("POLYGLOT_CONFIG_DIR"); dir != "" {
		return dir
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "polyglot")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "polyglot")
}

// defaultConfig returns the default configuration values.
func defaultConfig() map[string]any {
	return map[string]any{
		"workbench": map[string]any{
			"activityBarVisible": true,
			"sidebarVisible":     true,
			"panelWidth":         32,
			"restoreSession":     true,
		},
		"explorer": map[string]any{
			"showHidden":    false,
			"pattern":       "",
			"autoRefresh":   true,
			"confirmDelete": true,
		},
		"search": map[string]any{
			"maxResults":    1000,
			"maxFileSize":   1048576,
			"contextLines":  2,
			"includeHidden": false,
		},
		"theme": map[string]any{
			"name": "polyglot-dark",
		},
		"typography": map[string]any{
			"baseFontFamily": "Sans",
			"baseFontSize":   13,
			"scaleFactor":    1.0,
		},
		"plugins": map[string]any{
			"enabled":  true,
			"autoLoad": true,
			"dirs":     []string{},
		},
		"mt": map[string]any{
			"provider":       "anthropic",
			"model":          "",
			"maxTokens":      1024,
			"timeoutSeconds": 30,
		},
		"logging": map[string]any{
			"level": "info",
			"file":  "",
		},
	}
}

// getPath retrieves a value from a nested map using a dot-separated path.
func getPath(m map[string]any, path string) (any, bool) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, false
	}

	current := any(m)
	for _, part := range parts {
		cm, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = cm[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// setPath sets a value in a nested map using a dot-separated path.
func setPath(m map[string]any, path string, value any) error {
	parts := splitPath(path)
	if len(parts) == 0 {
		return ErrInvalidPath
	}

	current := m
	for i := 0; i < len(parts)-1; i++ {
		part := parts[i]
		next, ok := current[part]
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		nextMap, ok := next.(map[string]any)
		if !ok {
			return ErrInvalidPath
		}
		current = nextMap
	}

	current[parts[len(parts)-1]] = value
	return nil
}

// splitPath splits a dot-separated path into parts.
func splitPath(path string) []string {
	if path == "" {
		return nil
	}

	var parts []string
	current := ""
	for _, c := range path {
		if c == '.' {
			if current != "" {
				parts = append(parts, current)
				current = ""
			}
		} else {
			current += string(c)
		}
	}
	if current != "" {
		parts = append(parts, current)
	}
	return parts
}

// typeName returns the type name for error messages.
func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	switch v.(type) {
	case string:
		return "string"
	case int, int64:
		return "int"
	case float64:
		return "float64"
	case bool:
		return "bool"
	case []string:
		return "[]string"
	case []any:
		return "[]any"
	case map[string]any:
		return "map"
	default:
		return "unknown"
	}
}
