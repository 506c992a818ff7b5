package theme

import "errors"

// Common errors for theme operations.
var (
	// ErrNilTheme indicates a nil theme was registered.
	ErrNilTheme = errors.New("theme is nil")

	// ErrThemeNotFound indicates the named theme is not registered.
	ErrThemeNotFound = errors.New("theme not found")

	// ErrInvalidJSON indicates a theme document is not valid JSON.
	ErrInvalidJSON = errors.New("invalid theme JSON")

	// ErrMissingName indicates a theme without a name.
	ErrMissingName = errors.New("theme name is required")

	// ErrMissingVersion indicates a theme without a version.
	ErrMissingVersion = errors.New("theme version is required")

	// ErrMissingColors indicates a theme without a colors table.
	ErrMissingColors = errors.New("theme colors are required")

	// ErrMissingStyles indicates a theme without a styles table.
	ErrMissingStyles = errors.New("theme styles are required")

	// ErrMissingColorKey indicates a required color key is absent.
	ErrMissingColorKey = errors.New("required color key missing")

	// ErrInvalidColor indicates a color value is not #RRGGBB or #RRGGBBAA.
	ErrInvalidColor = errors.New("invalid color value")

	// ErrInvalidFontSize indicates a non-positive font size.
	ErrInvalidFontSize = errors.New("font size must be positive")
)
