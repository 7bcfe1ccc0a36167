// ABOUTME: Malgo-based output device using the miniaudio pull callback
// ABOUTME: The native data callback drains the render source directly
package output

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/gen2brain/malgo"
)

// Malgo is the modern device backend. miniaudio invokes the data callback
// on its own real-time thread; the callback copies from the render source
// and must never block on it.
type Malgo struct {
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	latency  time.Duration
	closed   bool
}

func newMalgo(cfg Config, src io.Reader) (Device, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	m := &Malgo{malgoCtx: ctx, latency: cfg.latency()}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(cfg.Format.Channels)
	deviceConfig.SampleRate = uint32(cfg.Format.SampleRate)
	deviceConfig.PeriodSizeInMilliseconds = uint32(m.latency.Milliseconds())
	deviceConfig.Alsa.NoMMap = 1

	if cfg.DeviceID != "" {
		if id, name, err := findDevice(ctx, cfg.DeviceID); err == nil {
			deviceConfig.Playback.DeviceID = id.Pointer()
			log.Printf("Selected output device: %s", name)
		} else {
			log.Printf("Warning: %v, using default output device", err)
		}
	}

	onSamples := func(pOutput, pInput []byte, frameCount uint32) {
		// The render source always fills the full request (silence on
		// starvation), so a short read only happens on teardown.
		if _, err := io.ReadFull(src, pOutput); err != nil {
			for i := range pOutput {
				pOutput[i] = 0
			}
		}
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onSamples})
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}
	m.device = device

	log.Printf("Audio output initialized: %dHz, %d channels, %v latency (malgo)",
		cfg.Format.SampleRate, cfg.Format.Channels, m.latency)

	return m, nil
}

// findDevice matches an enumerated playback device by name substring.
func findDevice(ctx *malgo.AllocatedContext, wanted string) (malgo.DeviceID, string, error) {
	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return malgo.DeviceID{}, "", fmt.Errorf("device enumeration failed: %w", err)
	}
	for _, info := range infos {
		if strings.Contains(strings.ToLower(info.Name()), strings.ToLower(wanted)) {
			return info.ID, info.Name(), nil
		}
	}
	return malgo.DeviceID{}, "", fmt.Errorf("no output device matching %q", wanted)
}

// ListDevices enumerates the names of available playback devices.
func ListDevices() ([]string, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("device enumeration failed: %w", err)
	}
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name()
	}
	return names, nil
}

// Start begins the pull loop.
func (m *Malgo) Start() error {
	if m.device == nil {
		return fmt.Errorf("device closed")
	}
	if err := m.device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	return nil
}

// Pause suspends the pull loop.
func (m *Malgo) Pause() error {
	if m.device == nil {
		return fmt.Errorf("device closed")
	}
	if err := m.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop device: %w", err)
	}
	return nil
}

// Close releases the device and context. Idempotent.
func (m *Malgo) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true

	if m.device != nil {
		if m.device.IsStarted() {
			if err := m.device.Stop(); err != nil {
				log.Printf("Warning: device stop error: %v", err)
			}
		}
		m.device.Uninit()
		m.device = nil
	}
	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			log.Printf("Warning: malgo context uninit error: %v", err)
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	return nil
}

// DesiredLatency returns the requested callback latency.
func (m *Malgo) DesiredLatency() time.Duration { return m.latency }
