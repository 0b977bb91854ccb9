// Package config loads document and engine settings from TOML files.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/paperlay/paperlay/pkg/errors"
)

// Config is the full settings tree for one document project.
type Config struct {
	Page     PageConfig     `toml:"page"`
	Layout   LayoutConfig   `toml:"layout"`
	Render   RenderConfig   `toml:"render"`
	Document DocumentConfig `toml:"document"`
	Overlay  OverlayConfig  `toml:"overlay"`
	Editor   EditorConfig   `toml:"editor"`
}

// PageConfig selects the physical page. Width and Height, when both set,
// override the preset.
type PageConfig struct {
	Preset      string  `toml:"preset"`
	Width       float64 `toml:"width"`
	Height      float64 `toml:"height"`
	Orientation string  `toml:"orientation"`
}

// LayoutConfig controls flowed-content layout and measurement.
type LayoutConfig struct {
	MarginTop      float64 `toml:"margin_top"`
	MarginRight    float64 `toml:"margin_right"`
	MarginBottom   float64 `toml:"margin_bottom"`
	MarginLeft     float64 `toml:"margin_left"`
	SettleDelayMS  int     `toml:"settle_delay_ms"`
	FallbackHeight float64 `toml:"fallback_height"`
}

// RenderConfig controls page rasterization.
type RenderConfig struct {
	Oversample float64 `toml:"oversample"`
}

// DocumentConfig is the metadata written into the exported PDF.
type DocumentConfig struct {
	Title    string `toml:"title"`
	Author   string `toml:"author"`
	Subject  string `toml:"subject"`
	Keywords string `toml:"keywords"`
}

// OverlayConfig locates the overlay sidecar and its image assets.
type OverlayConfig struct {
	Sidecar  string `toml:"sidecar"`
	AssetDir string `toml:"asset_dir"`
}

// EditorConfig holds interactive editing preferences.
type EditorConfig struct {
	LockAspect bool `toml:"lock_aspect"`
}

// pageSize is a physical page in points.
type pageSize struct {
	W, H float64
}

var presets = map[string]pageSize{
	"a4":     {595.28, 841.89},
	"a5":     {419.53, 595.28},
	"letter": {612, 792},
	"legal":  {612, 1008},
}

// Default returns the settings used when no file overrides them: A4
// portrait, one-inch margins, 2x oversampling.
func Default() Config {
	return Config{
		Page: PageConfig{
			Preset:      "a4",
			Orientation: "portrait",
		},
		Layout: LayoutConfig{
			MarginTop:      72,
			MarginRight:    72,
			MarginBottom:   72,
			MarginLeft:     72,
			SettleDelayMS:  150,
			FallbackHeight: 40,
		},
		Render: RenderConfig{
			Oversample: 2,
		},
		Editor: EditorConfig{
			LockAspect: true,
		},
	}
}

// Load reads a TOML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeFileNotFound, err, "failed to read config %s", path)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "failed to parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	if _, _, err := c.PageSize(); err != nil {
		return err
	}
	w, h, _ := c.PageSize()
	if c.Layout.MarginTop < 0 || c.Layout.MarginRight < 0 || c.Layout.MarginBottom < 0 || c.Layout.MarginLeft < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "margins must not be negative")
	}
	if c.Layout.MarginLeft+c.Layout.MarginRight >= w {
		return errors.New(errors.ErrCodeInvalidConfig, "side margins leave no room on a %.2fpt wide page", w)
	}
	if c.Layout.MarginTop+c.Layout.MarginBottom >= h {
		return errors.New(errors.ErrCodeInvalidConfig, "vertical margins leave no room on a %.2fpt tall page", h)
	}
	if c.Render.Oversample < 1 || c.Render.Oversample > 8 {
		return errors.New(errors.ErrCodeInvalidConfig, "oversample %.2f out of range [1, 8]", c.Render.Oversample)
	}
	if c.Layout.SettleDelayMS < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "settle_delay_ms must not be negative")
	}
	if c.Layout.FallbackHeight <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "fallback_height must be positive")
	}
	return nil
}

// PageSize resolves the configured page to width and height in points,
// swapping the axes for landscape orientation.
func (c Config) PageSize() (float64, float64, error) {
	w, h := c.Page.Width, c.Page.Height
	if w <= 0 || h <= 0 {
		preset, ok := presets[strings.ToLower(strings.TrimSpace(c.Page.Preset))]
		if !ok {
			return 0, 0, errors.New(errors.ErrCodeInvalidConfig, "unknown page preset %q", c.Page.Preset)
		}
		w, h = preset.W, preset.H
	}

	switch strings.ToLower(strings.TrimSpace(c.Page.Orientation)) {
	case "", "portrait":
	case "landscape":
		w, h = h, w
	default:
		return 0, 0, errors.New(errors.ErrCodeInvalidConfig, "unknown orientation %q", c.Page.Orientation)
	}
	return w, h, nil
}

// Capacity returns the vertical space available to flowed blocks on one
// page, between the top and bottom margins.
func (c Config) Capacity() (float64, error) {
	_, h, err := c.PageSize()
	if err != nil {
		return 0, err
	}
	return h - c.Layout.MarginTop - c.Layout.MarginBottom, nil
}

// ContentWidth returns the horizontal space between the side margins.
func (c Config) ContentWidth() (float64, error) {
	w, _, err := c.PageSize()
	if err != nil {
		return 0, err
	}
	return w - c.Layout.MarginLeft - c.Layout.MarginRight, nil
}

// SettleDelay returns the measurement settle delay as a duration.
func (c Config) SettleDelay() time.Duration {
	return time.Duration(c.Layout.SettleDelayMS) * time.Millisecond
}
