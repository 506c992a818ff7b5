// Package config provides the configuration system for Polyglot.
//
// The config package loads, merges, and provides typed access to all
// application settings, and persists session state between runs.
//
// # Architecture
//
// Configuration is organized in three layers with higher layers
// overriding lower:
//
//	┌─────────────────────────────┐
//	│  3. Environment Variables   │  ← POLYGLOT_* (highest priority)
//	├─────────────────────────────┤
//	│  2. Config File             │  ← ~/.config/polyglot/config.toml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// # Basic Usage
//
// Load configuration from the default paths:
//
//	cfg := config.New()
//	if err := cfg.Load(); err != nil {
//	    // Handle parse errors; a missing file is not an error.
//	}
//
//	// Access typed settings
//	theme, err := cfg.GetString("theme.name")
//
//	// Access typed sections
//	wb := cfg.Workbench()
//	fmt.Println(wb.PanelWidth)
//
// # Configuration File
//
// Polyglot uses TOML as the configuration format:
//
//	# ~/.config/polyglot/config.toml
//	[workbench]
//	panelWidth = 32
//
//	[theme]
//	name = "polyglot-dark"
//
//	[mt]
//	provider = "anthropic"
//
// # Session State
//
// StateStore persists per-panel and workbench session state as a JSON
// document (state.json) addressed with gjson paths and written with
// sjson.
//
// # Error Handling
//
// The package defines several error types:
//
//   - ErrSettingNotFound: Setting path doesn't exist
//   - ErrTypeMismatch: Value type doesn't match expected type
//   - ErrInvalidPath: Setting path is malformed
//   - loader.ParseError: Configuration file parsing failed
package config
