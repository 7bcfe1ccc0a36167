// ABOUTME: Audio output device abstraction
// ABOUTME: Pull-model devices that drain an io.Reader render source
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mediafold/renderwave/pkg/audio"
)

// Supported device API names.
const (
	APIModern = "malgo" // miniaudio pull callback
	APILegacy = "oto"   // persistent oto player
	APINull   = "null"  // headless timer pump
)

// DefaultLatency is the desired device latency when none is configured.
const DefaultLatency = 60 * time.Millisecond

// Device is an opaque output sink. Devices pull PCM from the io.Reader they
// were opened with; the render loop is that reader.
type Device interface {
	// Start begins (or resumes) the device's pull loop.
	Start() error

	// Pause suspends pulling without tearing the device down.
	Pause() error

	// Close releases the device. Idempotent.
	Close() error

	// DesiredLatency is the requested callback latency.
	DesiredLatency() time.Duration
}

// Config selects and shapes a device.
type Config struct {
	API            string        // APIModern, APILegacy or APINull; empty means modern
	DeviceID       string        // substring match against enumerated device names
	DesiredLatency time.Duration // 0 means DefaultLatency
	Format         audio.Format
}

func (c Config) latency() time.Duration {
	if c.DesiredLatency <= 0 {
		return DefaultLatency
	}
	return c.DesiredLatency
}

// Open creates a device of the configured API pulling from src. Callers that
// can tolerate missing hardware should fall back to NewNull on error.
func Open(cfg Config, src io.Reader) (Device, error) {
	switch strings.ToLower(cfg.API) {
	case "", APIModern, "modern":
		return newMalgo(cfg, src)
	case APILegacy, "legacy":
		return newOto(cfg, src)
	case APINull:
		return NewNull(cfg.Format, cfg.latency(), src), nil
	default:
		return nil, fmt.Errorf("unknown device API %q", cfg.API)
	}
}
