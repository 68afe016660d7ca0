// Package config holds the project settings. Flags fill a Config in the
// CLI; a YAML file may provide the same fields.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/animscene/internal/surface"
)

var ErrInvalidConfig = errors.New("invalid config")

// Modes.
const (
	ModeVideo = "video" // durable: segments joined into OutputVideo
	ModeLive  = "live"  // interactive: frames drawn to the live surfaces
)

type Config struct {
	ScriptPath  string `yaml:"script"`
	OutputVideo string `yaml:"output"`
	Mode        string `yaml:"mode"`

	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	FPS        int    `yaml:"fps"`
	Preset     string `yaml:"preset"`
	Background string `yaml:"background"`

	PicturesDir string `yaml:"pictures_dir"` // base for relative picture references
	DPI         int    `yaml:"dpi"`

	AudioPath    string  `yaml:"audio"`
	FadeDuration float64 `yaml:"fade"`
	VideoEncoder string  `yaml:"encoder"`
	Quality      int     `yaml:"quality"`
	KeepSegments bool    `yaml:"keep_segments"`

	Listen       string              `yaml:"listen"` // websocket viewer address, live mode
	PreviewWidth int                 `yaml:"preview_width"`
	MQTT         *surface.MQTTConfig `yaml:"mqtt"`

	// Script generation from a PDF or image folder.
	InputPath    string  `yaml:"input"`
	ScriptOutput string  `yaml:"script_output"`
	PageDuration float64 `yaml:"page_duration"`
	Detector     string  `yaml:"detector"`

	LogLevel     string `yaml:"log_level"`
	Debug        bool   `yaml:"debug"`
	ShowStats    bool   `yaml:"stats"`
	BuildVersion string `yaml:"-"`
}

// Default returns the settings used when neither flags nor a file say
// otherwise.
func Default() *Config {
	return &Config{
		Mode:         ModeVideo,
		Width:        1280,
		Height:       720,
		FPS:          30,
		Background:   "#000000",
		DPI:          150,
		Listen:       "127.0.0.1:8080",
		PreviewWidth: 640,
		PageDuration: 5,
		LogLevel:     "info",
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

// ApplyPreset overrides the size for a known aspect preset. An empty preset
// changes nothing.
func (c *Config) ApplyPreset() error {
	switch c.Preset {
	case "":
	case "16:9":
		c.Width, c.Height = 1280, 720
	case "9:16":
		c.Width, c.Height = 720, 1280
	case "4:5":
		c.Width, c.Height = 1080, 1350
	default:
		return fmt.Errorf("%w: unknown preset %q", ErrInvalidConfig, c.Preset)
	}
	return nil
}

// Validate checks the settings needed to build a scene.
func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}
	// yuv420p needs even dimensions
	if c.Mode == ModeVideo && (c.Width%2 != 0 || c.Height%2 != 0) {
		return fmt.Errorf("%w: video size %dx%d must be even", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.FPS <= 0 || c.FPS > 1000 {
		return fmt.Errorf("%w: fps %d", ErrInvalidConfig, c.FPS)
	}
	if c.FadeDuration < 0 {
		return fmt.Errorf("%w: negative fade", ErrInvalidConfig)
	}

	switch c.Mode {
	case ModeVideo:
		if c.OutputVideo == "" {
			return fmt.Errorf("%w: video mode needs an output path", ErrInvalidConfig)
		}
	case ModeLive:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}

	if c.MQTT != nil && (c.MQTT.URL == "" || c.MQTT.Topic == "") {
		return fmt.Errorf("%w: mqtt needs url and topic", ErrInvalidConfig)
	}

	switch c.VideoEncoder {
	case "", "libx264", "h264_nvenc", "h264_videotoolbox":
	default:
		return fmt.Errorf("%w: unsupported encoder %q", ErrInvalidConfig, c.VideoEncoder)
	}
	return nil
}
