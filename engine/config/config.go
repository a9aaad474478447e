package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/meshlet/engine/core"
	"github.com/spaghettifunk/meshlet/engine/renderer"
	"github.com/spaghettifunk/meshlet/engine/renderer/metadata"
)

// DefaultPath is looked up when no -config flag is given.
const DefaultPath = "meshlet.toml"

// Duration decodes TOML strings such as "30s" or "1m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type WindowConfig struct {
	Title  string `toml:"title"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
	PosX   int    `toml:"pos_x"`
	PosY   int    `toml:"pos_y"`
}

type RendererConfig struct {
	// "vulkan", "metal", "dx12", "gl", "primary" or "all"
	Backend string `toml:"backend"`
	// "auto_vsync", "auto_no_vsync", "fifo", "fifo_relaxed", "immediate" or "mailbox"
	PresentMode string `toml:"present_mode"`
	// "reconfigure_once" or "none"
	AcquireRetry string   `toml:"acquire_retry"`
	Validation   bool     `toml:"validation"`
	InitTimeout  Duration `toml:"init_timeout"`
}

type LogConfig struct {
	Level        string `toml:"level"`
	ReportCaller bool   `toml:"report_caller"`
	// Reload the file on change and re-apply the log level.
	Watch bool `toml:"watch"`
}

type Config struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Log      LogConfig      `toml:"log"`
}

func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "meshlet",
			Width:  800,
			Height: 600,
			PosX:   100,
			PosY:   100,
		},
		Renderer: RendererConfig{
			Backend:      "vulkan",
			PresentMode:  "auto_vsync",
			AcquireRetry: renderer.AcquireRetryReconfigureOnce.String(),
			InitTimeout:  Duration{30 * time.Second},
		},
		Log: LogConfig{
			Level:        "info",
			ReportCaller: true,
			Watch:        true,
		},
	}
}

// Load reads the file at path on top of the defaults. A missing file at the
// default path is not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			core.LogDebug("No configuration at '%s', using defaults.", path)
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses TOML on top of the defaults and validates the result.
// Unknown keys are rejected.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("%w: %s", core.ErrInvalidConfig, strict.String())
		}
		return nil, fmt.Errorf("%w: %s", core.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return fmt.Errorf("%w: window size %dx%d must be non-zero", core.ErrInvalidConfig, c.Window.Width, c.Window.Height)
	}
	if _, err := metadata.ParseBackend(c.Renderer.Backend); err != nil {
		return fmt.Errorf("%w: renderer.backend: %w", core.ErrInvalidConfig, err)
	}
	if _, err := metadata.ParsePresentMode(c.Renderer.PresentMode); err != nil {
		return fmt.Errorf("%w: renderer.present_mode: %w", core.ErrInvalidConfig, err)
	}
	if _, err := renderer.ParseAcquireRetryPolicy(c.Renderer.AcquireRetry); err != nil {
		return err
	}
	if c.Renderer.InitTimeout.Duration <= 0 {
		return fmt.Errorf("%w: renderer.init_timeout must be positive", core.ErrInvalidConfig)
	}
	if _, err := core.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Backends returns the parsed backend set. Only valid after Validate.
func (c *Config) Backends() metadata.Backends {
	b, _ := metadata.ParseBackend(c.Renderer.Backend)
	return b
}

// PresentMode returns the parsed present mode. Only valid after Validate.
func (c *Config) PresentMode() metadata.PresentMode {
	m, _ := metadata.ParsePresentMode(c.Renderer.PresentMode)
	return m
}

// AcquireRetry returns the parsed policy. Only valid after Validate.
func (c *Config) AcquireRetry() renderer.AcquireRetryPolicy {
	p, _ := renderer.ParseAcquireRetryPolicy(c.Renderer.AcquireRetry)
	return p
}

// LogLevel returns the parsed level. Only valid after Validate.
func (c *Config) LogLevel() log.Level {
	l, _ := core.ParseLevel(c.Log.Level)
	return l
}

// Encode writes the configuration as TOML, in the layout Load reads.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
