package theme

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

// Validate checks a theme JSON document against the import schema: name,
// version, colors, and styles are required; colors must include at least
// background and foreground; every color value must be #RRGGBB or #RRGGBBAA.
func Validate(data []byte) error {
	if !gjson.ValidBytes(data) {
		return ErrInvalidJSON
	}
	doc := gjson.ParseBytes(data)

	if doc.Get("name").String() == "" {
		return ErrMissingName
	}
	if doc.Get("version").String() == "" {
		return ErrMissingVersion
	}

	colors := doc.Get("colors")
	if !colors.Exists() || !colors.IsObject() {
		return ErrMissingColors
	}
	styles := doc.Get("styles")
	if !styles.Exists() || !styles.IsObject() {
		return ErrMissingStyles
	}

	for _, key := range []string{"background", "foreground"} {
		if !colors.Get(key).Exists() {
			return fmt.Errorf("colors.%s: %w", key, ErrMissingColorKey)
		}
	}

	var colorErr error
	colors.ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.String {
			colorErr = fmt.Errorf("colors.%s: %w", key.String(), ErrInvalidColor)
			return false
		}
		if _, err := ParseHex(value.String()); err != nil {
			colorErr = fmt.Errorf("colors.%s: %w", key.String(), err)
			return false
		}
		return true
	})
	return colorErr
}

// Decode validates and unmarshals a theme JSON document.
func Decode(data []byte) (*Theme, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	var t Theme
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode theme: %w", err)
	}
	if t.Styles == nil {
		t.Styles = make(map[string]map[string]string)
	}
	return &t, nil
}

// DecodeFile reads and decodes a theme JSON file.
func DecodeFile(path string) (*Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read theme %s: %w", path, err)
	}
	return Decode(data)
}

// Encode marshals a theme to indented JSON in the import/export schema.
func Encode(t *Theme) ([]byte, error) {
	if t == nil {
		return nil, ErrNilTheme
	}
	return json.MarshalIndent(t, "", "  ")
}

// EncodeFile writes a theme as JSON to path.
func EncodeFile(t *Theme, path string) error {
	data, err := Encode(t)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
