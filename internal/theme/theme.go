// Package theme provides named color/style token sets and typography for the
// workbench. Managers propagate changes through explicit observer lists plus
// a single bus emission for plugins.
package theme

import "strings"

// Typography carries the base font settings a theme may ship.
type Typography struct {
	BaseFontFamily string  `json:"base_font_family"`
	BaseFontSize   float64 `json:"base_font_size"`
	ScaleFactor    float64 `json:"scale_factor"`
}

// Theme is a named set of color tokens and per-component style fragments.
// Style values may reference color tokens as "$token".
type Theme struct {
	Name       string                       `json:"name"`
	Version    string                       `json:"version"`
	Typography Typography                   `json:"typography"`
	Colors     map[string]string            `json:"colors"`
	Styles     map[string]map[string]string `json:"styles"`
}

// Color returns the color token value for key.
func (t *Theme) Color(key string) (string, bool) {
	v, ok := t.Colors[key]
	return v, ok
}

// ColorOr returns the color token value for key, or fallback.
func (t *Theme) ColorOr(key, fallback string) string {
	if v, ok := t.Colors[key]; ok {
		return v
	}
	return fallback
}

// Style returns the style fragment for component with "$token" references
// resolved against the color table. Unknown tokens resolve to an empty
// string so a bad reference is visible rather than silently themed.
func (t *Theme) Style(component string) map[string]string {
	src, ok := t.Styles[component]
	if !ok {
		return nil
	}
	out := make(map[string]string, len(src))
	for prop, val := range src {
		out[prop] = t.resolve(val)
	}
	return out
}

// StyleValue resolves one property of one component.
func (t *Theme) StyleValue(component, property string) (string, bool) {
	src, ok := t.Styles[component]
	if !ok {
		return "", false
	}
	val, ok := src[property]
	if !ok {
		return "", false
	}
	return t.resolve(val), true
}

func (t *Theme) resolve(val string) string {
	if !strings.HasPrefix(val, "$") {
		return val
	}
	return t.Colors[val[1:]]
}

// Clone returns a deep copy of the theme.
func (t *Theme) Clone() *Theme {
	c := &Theme{
		Name:       t.Name,
		Version:    t.Version,
		Typography: t.Typography,
		Colors:     make(map[string]string, len(t.Colors)),
		Styles:     make(map[string]map[string]string, len(t.Styles)),
	}
	for k, v := range t.Colors {
		c.Colors[k] = v
	}
	for comp, frag := range t.Styles {
		dst := make(map[string]string, len(frag))
		for prop, val := range frag {
			dst[prop] = val
		}
		c.Styles[comp] = dst
	}
	return c
}

// DefaultThemeName is applied when no theme is configured.
const DefaultThemeName = "polyglot-dark"

// PolyglotDark returns the default dark theme.
func PolyglotDark() *Theme {
	return buildTheme("polyglot-dark", map[string]string{
		"background":              "#1e1e2e",
		"foreground":              "#cdd6f4",
		"sidebar_background":      "#181825",
		"activity_bar_background": "#11111b",
		"tab_active_background":   "#1e1e2e",
		"tab_inactive_background": "#313244",
		"status_background":       "#11111b",
		"accent":                  "#89b4fa",
		"error":                   "#f38ba8",
		"warning":                 "#f9e2af",
	})
}

// PolyglotLight returns the built-in light theme.
func PolyglotLight() *Theme {
	return buildTheme("polyglot-light", map[string]string{
		"background":              "#ffffff",
		"foreground":              "#1f2430",
		"sidebar_background":      "#f2f3f5",
		"activity_bar_background": "#e8eaed",
		"tab_active_background":   "#ffffff",
		"tab_inactive_background": "#e8eaed",
		"status_background":       "#e8eaed",
		"accent":                  "#1a73e8",
		"error":                   "#c5221f",
		"warning":                 "#a26b00",
	})
}

// HighContrast returns the built-in high-contrast theme.
func HighContrast() *Theme {
	t := buildTheme("high-contrast", map[string]string{
		"background":              "#000000",
		"foreground":              "#ffffff",
		"sidebar_background":      "#000000",
		"activity_bar_background": "#000000",
		"tab_active_background":   "#000000",
		"tab_inactive_background": "#1a1a1a",
		"status_background":       "#000000",
		"accent":                  "#ffff00",
		"error":                   "#ff5555",
		"warning":                 "#ffff00",
	})
	// Hard overrides for the derived chrome tokens.
	t.Colors["border"] = "#ffffff"
	t.Colors["hover"] = "#333333"
	return t
}

// buildTheme assembles a theme from its base palette, deriving the hover,
// border, selection, and contrast tokens.
func buildTheme(name string, colors map[string]string) *Theme {
	bg := colors["background"]
	colors["hover"] = DeriveHover(bg)
	colors["border"] = DeriveBorder(bg)
	colors["selection"] = Blend(colors["accent"], bg, 0.35)
	colors["accent_text"] = ContrastText(colors["accent"])

	return &Theme{
		Name:    name,
		Version: "1.0.0",
		Typography: Typography{
			BaseFontFamily: "Sans",
			BaseFontSize:   13,
			ScaleFactor:    1.0,
		},
		Colors: colors,
		Styles: map[string]map[string]string{
			"workbench": {
				"background": "$background",
				"foreground": "$foreground",
			},
			"sidebar": {
				"background": "$sidebar_background",
				"foreground": "$foreground",
				"border":     "$border",
			},
			"activity_bar": {
				"background": "$activity_bar_background",
				"foreground": "$foreground",
				"active":     "$accent",
			},
			"tab.active": {
				"background": "$tab_active_background",
				"foreground": "$foreground",
				"border":     "$accent",
			},
			"tab.inactive": {
				"background": "$tab_inactive_background",
				"foreground": "$foreground",
			},
			"status_bar": {
				"background": "$status_background",
				"foreground": "$foreground",
			},
			"list.hover": {
				"background": "$hover",
			},
			"list.selection": {
				"background": "$selection",
			},
		},
	}
}
