package config

// Section accessor methods return snapshot structs. Mutating the returned
// struct does not modify the underlying configuration. Use Config.Set()
// to update configuration values.

// WorkbenchConfig provides type-safe access to workbench settings.
type WorkbenchConfig struct {
	// ActivityBarVisible shows the activity bar.
	ActivityBarVisible bool

	// SidebarVisible shows the sidebar on startup.
	SidebarVisible bool

	// PanelWidth is the sidebar panel width in cells.
	PanelWidth int

	// RestoreSession restores the previous session state on startup.
	RestoreSession bool
}

// ExplorerConfig provides type-safe access to file explorer settings.
type ExplorerConfig struct {
	// ShowHidden includes dotfiles in directory listings.
	ShowHidden bool

	// Pattern is the initial filename filter pattern.
	Pattern string

	// AutoRefresh refreshes the listing when the directory changes on disk.
	AutoRefresh bool

	// ConfirmDelete asks for confirmation before deleting files.
	ConfirmDelete bool
}

// SearchConfig provides type-safe access to content search settings.
type SearchConfig struct {
	// MaxResults is the maximum number of search results.
	MaxResults int

	// MaxFileSize is the per-file size cap in bytes; larger files are skipped.
	MaxFileSize int

	// ContextLines is the number of context lines around each match.
	ContextLines int

	// IncludeHidden searches hidden directories.
	IncludeHidden bool
}

// ThemeConfig provides type-safe access to theme settings.
type ThemeConfig struct {
	// Name is the active theme name.
	Name string
}

// TypographyConfig provides type-safe access to typography settings.
type TypographyConfig struct {
	// BaseFontFamily is the base font family.
	BaseFontFamily string

	// BaseFontSize is the base font size in points.
	BaseFontSize int

	// ScaleFactor scales all font roles.
	ScaleFactor float64
}

// PluginsConfig provides type-safe access to plugin settings.
type PluginsConfig struct {
	// Enabled enables the plugin system.
	Enabled bool

	// AutoLoad loads all discovered plugins on startup.
	AutoLoad bool

	// Dirs lists additional plugin roots beside <configDir>/plugins.
	Dirs []string
}

// MTConfig provides type-safe access to machine-translation settings.
type MTConfig struct {
	// Provider is the default provider ("anthropic", "openai", "gemini").
	Provider string

	// Model overrides the provider's default model when non-empty.
	Model string

	// MaxTokens is the response token cap.
	MaxTokens int

	// TimeoutSeconds bounds each translation request.
	TimeoutSeconds int

	// AnthropicAPIKey is the Anthropic credential (POLYGLOT_ANTHROPIC_KEY).
	AnthropicAPIKey string

	// OpenAIAPIKey is the OpenAI credential (POLYGLOT_OPENAI_KEY).
	OpenAIAPIKey string

	// GeminiAPIKey is the Gemini credential (POLYGLOT_GEMINI_KEY).
	GeminiAPIKey string
}

// LoggingConfig provides type-safe access to logging settings.
type LoggingConfig struct {
	// Level is the logging verbosity level ("debug", "info", "warn", "error").
	Level string

	// File is the log file path (empty for stderr).
	File string
}

// Workbench returns type-safe access to workbench settings.
func (c *Config) Workbench() WorkbenchConfig {
	return WorkbenchConfig{
		ActivityBarVisible: c.getBoolOr("workbench.activityBarVisible", true),
		SidebarVisible:     c.getBoolOr("workbench.sidebarVisible", true),
		PanelWidth:         c.getIntOr("workbench.panelWidth", 32),
		RestoreSession:     c.getBoolOr("workbench.restoreSession", true),
	}
}

// Explorer returns type-safe access to file explorer settings.
func (c *Config) Explorer() ExplorerConfig {
	return ExplorerConfig{
		ShowHidden:    c.getBoolOr("explorer.showHidden", false),
		Pattern:       c.getStringOr("explorer.pattern", ""),
		AutoRefresh:   c.getBoolOr("explorer.autoRefresh", true),
		ConfirmDelete: c.getBoolOr("explorer.confirmDelete", true),
	}
}

// Search returns type-safe access to content search settings.
func (c *Config) Search() SearchConfig {
	return SearchConfig{
		MaxResults:    c.getIntOr("search.maxResults", 1000),
		MaxFileSize:   c.getIntOr("search.maxFileSize", 1048576),
		ContextLines:  c.getIntOr("search.contextLines", 2),
		IncludeHidden: c.getBoolOr("search.includeHidden", false),
	}
}

// Theme returns type-safe access to theme settings.
func (c *Config) Theme() ThemeConfig {
	return ThemeConfig{
		Name: c.getStringOr("theme.name", "polyglot-dark"),
	}
}

// Typography returns type-safe access to typography settings.
func (c *Config) Typography() TypographyConfig {
	return TypographyConfig{
		BaseFontFamily: c.getStringOr("typography.baseFontFamily", "Sans"),
		BaseFontSize:   c.getIntOr("typography.baseFontSize", 13),
		ScaleFactor:    c.getFloatOr("typography.scaleFactor", 1.0),
	}
}

// Plugins returns type-safe access to plugin settings.
func (c *Config) Plugins() PluginsConfig {
	return PluginsConfig{
		Enabled:  c.getBoolOr("plugins.enabled", true),
		AutoLoad: c.getBoolOr("plugins.autoLoad", true),
		Dirs:     c.getStringSliceOr("plugins.dirs", nil),
	}
}

// MT returns type-safe access to machine-translation settings.
func (c *Config) MT() MTConfig {
	return MTConfig{
		Provider:        c.getStringOr("mt.provider", "anthropic"),
		Model:           c.getStringOr("mt.model", ""),
		MaxTokens:       c.getIntOr("mt.maxTokens", 1024),
		TimeoutSeconds:  c.getIntOr("mt.timeoutSeconds", 30),
		AnthropicAPIKey: c.getStringOr("mt.anthropicApiKey", ""),
		OpenAIAPIKey:    c.getStringOr("mt.openaiApiKey", ""),
		GeminiAPIKey:    c.getStringOr("mt.geminiApiKey", ""),
	}
}

// Logging returns type-safe access to logging settings.
func (c *Config) Logging() LoggingConfig {
	return LoggingConfig{
		Level: c.getStringOr("logging.level", "info"),
		File:  c.getStringOr("logging.file", ""),
	}
}

// Helper methods for section accessors.
// These methods only return the default for ErrSettingNotFound.
// Type errors return the default to avoid breaking callers, but are
// recorded so misconfiguration can be surfaced after loading.

func (c *Config) getStringOr(path string, defaultValue string) string {
	v, err := c.GetString(path)
	if err != nil {
		if err != ErrSettingNotFound {
			c.recordConfigError(path, err)
		}
		return defaultValue
	}
	return v
}

func (c *Config) getIntOr(path string, defaultValue int) int {
	v, err := c.GetInt(path)
	if err != nil {
		if err != ErrSettingNotFound {
			c.recordConfigError(path, err)
		}
		return defaultValue
	}
	return v
}

func (c *Config) getBoolOr(path string, defaultValue bool) bool {
	v, err := c.GetBool(path)
	if err != nil {
		if err != ErrSettingNotFound {
			c.recordConfigError(path, err)
		}
		return defaultValue
	}
	return v
}

func (c *Config) getFloatOr(path string, defaultValue float64) float64 {
	v, err := c.GetFloat(path)
	if err != nil {
		if err != ErrSettingNotFound {
			c.recordConfigError(path, err)
		}
		return defaultValue
	}
	return v
}

func (c *Config) getStringSliceOr(path string, defaultValue []string) []string {
	v, err := c.GetStringSlice(path)
	if err != nil {
		if err != ErrSettingNotFound {
			c.recordConfigError(path, err)
		}
		result := make([]string, len(defaultValue))
		copy(result, defaultValue)
		return result
	}
	result := make([]string, len(v))
	copy(result, v)
	return result
}

// recordConfigError stores configuration errors for later retrieval.
// Only the first error for each path is recorded to preserve the original cause.
func (c *Config) recordConfigError(path string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.configErrors == nil {
		c.configErrors = make(map[string]error)
	}
	if _, exists := c.configErrors[path]; !exists {
		c.configErrors[path] = err
	}
}

// ConfigErrors returns any configuration errors encountered during access.
// This allows callers to check for misconfigurations after loading.
func (c *Config) ConfigErrors() map[string]error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.configErrors == nil {
		return nil
	}
	result := make(map[string]error, len(c.configErrors))
	for k, v := range c.configErrors {
		result[k] = v
	}
	return result
}

// ClearConfigErrors clears any stored configuration errors.
func (c *Config) ClearConfigErrors() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.configErrors = nil
}
