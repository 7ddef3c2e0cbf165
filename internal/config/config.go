// Package config loads skelly settings from a JSON file, falling back
// to built-in defaults when the file is missing or malformed.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/andrewjensen/skelly/internal/logging"
)

// Config holds every user-tunable setting.
type Config struct {
	Server    Server    `json:"server"`
	Display   Display   `json:"display"`
	Rendering Rendering `json:"rendering"`
	Fonts     Fonts     `json:"fonts"`
}

// Server configures the capture endpoint.
type Server struct {
	// Addr is the listen address of the HTTP capture server.
	Addr string `json:"addr"`
}

// Display selects and sizes the output backend.
type Display struct {
	// Backend is one of "window", "device" or "static".
	Backend string `json:"backend"`
	// Width and Height are the surface dimensions in pixels. A device
	// backend ignores them and reports its native panel size.
	Width  int `json:"width"`
	Height int `json:"height"`
	// OutputDir receives PNG files when Backend is "static".
	OutputDir string `json:"output_dir"`
	// Framebuffer and Input are the device node paths used by the
	// "device" backend.
	Framebuffer string `json:"framebuffer"`
	Input       string `json:"input"`
}

// Rendering controls typography and page geometry.
type Rendering struct {
	// FontSize is the logical body size in points.
	FontSize int `json:"font_size"`
	// Scale multiplies logical sizes into device pixels.
	Scale float64 `json:"scale"`
	// MarginX and MarginY are page margins in device pixels.
	MarginX int `json:"margin_x"`
	MarginY int `json:"margin_y"`
	// LineHeight is the baseline distance as a multiple of the font size.
	LineHeight float64 `json:"line_height"`
}

// Fonts configures the typeface cascade.
type Fonts struct {
	// Cascade lists TTF files tried in order before the built-in fonts.
	Cascade []string `json:"cascade"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: Server{
			Addr: ":8080",
		},
		Display: Display{
			Backend:     "window",
			Width:       1404,
			Height:      1872,
			OutputDir:   "out",
			Framebuffer: "/dev/fb0",
			Input:       "/dev/input/event1",
		},
		Rendering: Rendering{
			FontSize:   12,
			Scale:      2.0,
			MarginX:    100,
			MarginY:    80,
			LineHeight: 1.2,
		},
	}
}

// Load reads and decodes the JSON file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadWithFallback loads path, returning the defaults when the file is
// absent or invalid. The failure is logged, never surfaced.
func LoadWithFallback(path string) Config {
	cfg, err := Load(path)
	if err != nil {
		logging.Logger().Warn("using default settings", "path", path, "error", err)
		return Default()
	}
	return cfg
}

func (c Config) validate() error {
	if c.Rendering.FontSize <= 0 {
		return fmt.Errorf("config: font_size must be positive, got %d", c.Rendering.FontSize)
	}
	if c.Rendering.Scale <= 0 {
		return fmt.Errorf("config: scale must be positive, got %g", c.Rendering.Scale)
	}
	if c.Rendering.LineHeight < 1 {
		return fmt.Errorf("config: line_height must be at least 1, got %g", c.Rendering.LineHeight)
	}
	switch c.Display.Backend {
	case "window", "device", "static":
	default:
		return fmt.Errorf("config: unknown display backend %q", c.Display.Backend)
	}
	return nil
}
