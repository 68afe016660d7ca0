package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ivlev/animscene/internal/surface"
)

func TestApplyPreset(t *testing.T) {
	tests := []struct {
		preset string
		w, h   int
	}{
		{"", 1280, 720},
		{"16:9", 1280, 720},
		{"9:16", 720, 1280},
		{"4:5", 1080, 1350},
	}
	for _, tt := range tests {
		cfg := Default()
		cfg.Preset = tt.preset
		if err := cfg.ApplyPreset(); err != nil {
			t.Fatalf("preset %q: %v", tt.preset, err)
		}
		if cfg.Width != tt.w || cfg.Height != tt.h {
			t.Errorf("preset %q: got %dx%d, want %dx%d", tt.preset, cfg.Width, cfg.Height, tt.w, tt.h)
		}
	}

	cfg := Default()
	cfg.Preset = "21:9"
	if err := cfg.ApplyPreset(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.OutputVideo = "out.mp4"
		return cfg
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Width = 0 }},
		{"odd video height", func(c *Config) { c.Height = 721 }},
		{"zero fps", func(c *Config) { c.FPS = 0 }},
		{"negative fade", func(c *Config) { c.FadeDuration = -1 }},
		{"no output", func(c *Config) { c.OutputVideo = "" }},
		{"unknown mode", func(c *Config) { c.Mode = "stream" }},
		{"mqtt without topic", func(c *Config) { c.MQTT = &surface.MQTTConfig{URL: "tcp://localhost:1883"} }},
		{"bad encoder", func(c *Config) { c.VideoEncoder = "mpeg2" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	live := valid()
	live.Mode = ModeLive
	live.OutputVideo = ""
	live.Height = 721
	if err := live.Validate(); err != nil {
		t.Errorf("live mode allows odd sizes and no output: %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("mode: live\nfps: 24\nmqtt:\n  url: tcp://localhost:1883\n  topic: frames\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != ModeLive || cfg.FPS != 24 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Width != 1280 {
		t.Errorf("defaults not kept: width %d", cfg.Width)
	}
	if cfg.MQTT == nil || cfg.MQTT.Topic != "frames" {
		t.Errorf("mqtt = %+v", cfg.MQTT)
	}

	if err := os.WriteFile(path, []byte("fps: [1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}
