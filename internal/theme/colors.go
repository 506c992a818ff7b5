package theme

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// ParseHex parses "#RRGGBB" or "#RRGGBBAA" (alpha accepted and discarded).
// Valid lengths are exactly 7 or 9 including the leading "#".
func ParseHex(s string) (colorful.Color, error) {
	if len(s) != 7 && len(s) != 9 {
		return colorful.Color{}, fmt.Errorf("%q: %w", s, ErrInvalidColor)
	}
	if s[0] != '#' {
		return colorful.Color{}, fmt.Errorf("%q: %w", s, ErrInvalidColor)
	}
	if len(s) == 9 {
		// Alpha channel is tolerated on input; rendering is opaque.
		var a uint8
		if _, err := fmt.Sscanf(s[7:], "%02x", &a); err != nil {
			return colorful.Color{}, fmt.Errorf("%q: %w", s, ErrInvalidColor)
		}
		s = s[:7]
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("%q: %w", s, ErrInvalidColor)
	}
	return c, nil
}

// IsDark reports whether the color reads as dark (Lab lightness below 50%).
func IsDark(hex string) bool {
	c, err := ParseHex(hex)
	if err != nil {
		return true
	}
	l, _, _ := c.Lab()
	return l < 0.5
}

// Lighten raises the Lab lightness of hex by amount (0..1). Invalid input is
// returned unchanged.
func Lighten(hex string, amount float64) string {
	c, err := ParseHex(hex)
	if err != nil {
		return hex
	}
	l, a, b := c.Lab()
	return colorful.Lab(clampUnit(l+amount), a, b).Clamped().Hex()
}

// Darken lowers the Lab lightness of hex by amount (0..1).
func Darken(hex string, amount float64) string {
	return Lighten(hex, -amount)
}

// Blend mixes a into b in Lab space; t=0 yields b, t=1 yields a.
func Blend(a, b string, t float64) string {
	ca, err := ParseHex(a)
	if err != nil {
		return b
	}
	cb, err := ParseHex(b)
	if err != nil {
		return a
	}
	return cb.BlendLab(ca, clampUnit(t)).Clamped().Hex()
}

// ContrastText picks black or white for legible text over bg.
func ContrastText(bg string) string {
	if IsDark(bg) {
		return "#ffffff"
	}
	return "#000000"
}

// DeriveHover derives a hover shade from a base background: dark themes
// lighten, light themes darken.
func DeriveHover(bg string) string {
	if IsDark(bg) {
		return Lighten(bg, 0.08)
	}
	return Darken(bg, 0.08)
}

// DeriveBorder derives a border shade one step further out than hover.
func DeriveBorder(bg string) string {
	if IsDark(bg) {
		return Lighten(bg, 0.16)
	}
	return Darken(bg, 0.16)
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
