// ABOUTME: YAML configuration parsing and validation
// ABOUTME: Defines the recognized audio engine options
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mediafold/renderwave/pkg/audio/output"
	"github.com/mediafold/renderwave/pkg/render"
)

type Config struct {
	Audio AudioConfig `yaml:"audio"`
}

type AudioConfig struct {
	// DisableSync turns off wall-clock synchronization entirely.
	DisableSync bool `yaml:"disable_sync"`

	// DeviceAPI selects the output backend: modern, legacy or null.
	DeviceAPI string `yaml:"device_api"`

	// DeviceID selects an output device by name substring.
	DeviceID string `yaml:"device_id"`

	// DesiredLatencyMs is the requested device callback latency.
	DesiredLatencyMs int `yaml:"desired_latency_ms"`

	// BufferSeconds overrides the latency-derived ring buffer size.
	BufferSeconds float64 `yaml:"buffer_seconds"`

	// FeedThreshold is the buffer capacity fraction at which ingestion
	// pauses (0 selects the engine default).
	FeedThreshold float64 `yaml:"feed_threshold"`

	// UseTempoProcessor routes speed changes through the pitch-preserving
	// tempo stage.
	UseTempoProcessor bool `yaml:"use_tempo_processor"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Audio: AudioConfig{
			DeviceAPI:        output.APIModern,
			DesiredLatencyMs: int(output.DefaultLatency.Milliseconds()),
		},
	}
}

// Load reads and validates a YAML configuration file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks option ranges.
func (c Config) Validate() error {
	switch c.Audio.DeviceAPI {
	case "", output.APIModern, "modern", output.APILegacy, "legacy", output.APINull:
	default:
		return fmt.Errorf("audio.device_api: unknown API %q", c.Audio.DeviceAPI)
	}
	if c.Audio.DesiredLatencyMs < 0 {
		return fmt.Errorf("audio.desired_latency_ms must not be negative")
	}
	if c.Audio.FeedThreshold < 0 || c.Audio.FeedThreshold > 1 {
		return fmt.Errorf("audio.feed_threshold must be within [0, 1]")
	}
	if c.Audio.BufferSeconds < 0 {
		return fmt.Errorf("audio.buffer_seconds must not be negative")
	}
	return nil
}

// RenderOptions converts the configuration into renderer options.
func (c Config) RenderOptions() render.Options {
	return render.Options{
		DeviceAPI:         c.Audio.DeviceAPI,
		DeviceID:          c.Audio.DeviceID,
		DesiredLatency:    time.Duration(c.Audio.DesiredLatencyMs) * time.Millisecond,
		BufferDuration:    time.Duration(c.Audio.BufferSeconds * float64(time.Second)),
		DisableSync:       c.Audio.DisableSync,
		UseTempoProcessor: c.Audio.UseTempoProcessor,
		FeedThreshold:     c.Audio.FeedThreshold,
	}
}
