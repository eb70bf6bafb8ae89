package subtitle

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	MinFontSize     = 12
	MaxFontSize     = 48
	MinBottomOffset = 0
	MaxBottomOffset = 100
)

// FontOptions is the enumerated font family choice.
var FontOptions = []string{"Inter", "Arial", "Roboto", "Times New Roman", "Georgia", "Arial, sans-serif"}

// Settings is display-only configuration for the subtitle line.
type Settings struct {
	BottomOffset    int    `toml:"bottom_offset" json:"bottomOffset"`
	BackgroundColor string `toml:"background_color" json:"backgroundColor"`
	TextColor       string `toml:"text_color" json:"textColor"`
	FontFamily      string `toml:"font_family" json:"fontFamily"`
	FontSize        int    `toml:"font_size" json:"fontSize"`
}

func DefaultSettings() Settings {
	return Settings{
		BottomOffset:    20,
		BackgroundColor: "rgba(0, 0, 0, 0.6)",
		TextColor:       "#FFFFFF",
		FontFamily:      "Arial, sans-serif",
		FontSize:        24,
	}
}

// Clamp pulls numeric fields into range and replaces unparseable colors and
// unknown fonts with their defaults.
func (s Settings) Clamp() Settings {
	def := DefaultSettings()
	s.FontSize = clampInt(s.FontSize, MinFontSize, MaxFontSize)
	s.BottomOffset = clampInt(s.BottomOffset, MinBottomOffset, MaxBottomOffset)
	if _, err := ParseRGBA(s.BackgroundColor); err != nil {
		s.BackgroundColor = def.BackgroundColor
	}
	if _, err := ParseHex(s.TextColor); err != nil {
		s.TextColor = def.TextColor
	}
	if !isFontOption(s.FontFamily) {
		s.FontFamily = def.FontFamily
	}
	return s
}

// RGBA is a parsed background color.
type RGBA struct {
	R, G, B uint8
	A       float64
}

func (c RGBA) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

func (c RGBA) String() string {
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", c.R, c.G, c.B, strconv.FormatFloat(c.A, 'f', -1, 64))
}

// ParseRGBA accepts "rgba(r, g, b, a)" and "#RRGGBB" (opaque).
func ParseRGBA(s string) (RGBA, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		c, err := ParseHex(s)
		if err != nil {
			return RGBA{}, err
		}
		c.A = 1
		return c, nil
	}

	inner, ok := strings.CutPrefix(s, "rgba(")
	if !ok {
		return RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	inner, ok = strings.CutSuffix(inner, ")")
	if !ok {
		return RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	parts := strings.Split(inner, ",")
	if len(parts) != 4 {
		return RGBA{}, fmt.Errorf("invalid color %q: want 4 components", s)
	}

	var c RGBA
	channels := []*uint8{&c.R, &c.G, &c.B}
	for i, dst := range channels {
		v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || v < 0 || v > 255 {
			return RGBA{}, fmt.Errorf("invalid color %q: component %d", s, i)
		}
		*dst = uint8(v)
	}
	a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
	if err != nil || a < 0 || a > 1 {
		return RGBA{}, fmt.Errorf("invalid color %q: alpha", s)
	}
	c.A = a
	return c, nil
}

// ParseHex parses "#RRGGBB".
func ParseHex(s string) (RGBA, error) {
	s = strings.TrimSpace(s)
	if len(s) != 7 || s[0] != '#' {
		return RGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 1}, nil
}

// Background combines a hex color and an opacity into the stored form.
func Background(hex string, opacity float64) (string, error) {
	c, err := ParseHex(hex)
	if err != nil {
		return "", err
	}
	c.A = min(max(opacity, 0), 1)
	return c.String(), nil
}

func isFontOption(font string) bool {
	for _, f := range FontOptions {
		if f == font {
			return true
		}
	}
	return false
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
