// ABOUTME: Oto-based output device, the legacy device API selection
// ABOUTME: A persistent oto player pulls from the render source
package output

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Oto is the legacy device backend. oto only allows one context per
// process and does not support output device selection; a DeviceID in the
// config is logged and ignored.
type Oto struct {
	otoCtx  *oto.Context
	player  *oto.Player
	latency time.Duration
	closed  bool
}

func newOto(cfg Config, src io.Reader) (Device, error) {
	if cfg.DeviceID != "" {
		log.Printf("Warning: legacy device API ignores device selection %q", cfg.DeviceID)
	}

	op := &oto.NewContextOptions{
		SampleRate:   cfg.Format.SampleRate,
		ChannelCount: cfg.Format.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   cfg.latency(),
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	o := &Oto{
		otoCtx:  ctx,
		player:  ctx.NewPlayer(src),
		latency: cfg.latency(),
	}

	log.Printf("Audio output initialized: %dHz, %d channels, %v latency (oto)",
		cfg.Format.SampleRate, cfg.Format.Channels, o.latency)

	return o, nil
}

// Start begins (or resumes) playback.
func (o *Oto) Start() error {
	if o.player == nil {
		return fmt.Errorf("device closed")
	}
	o.player.Play()
	return nil
}

// Pause suspends playback.
func (o *Oto) Pause() error {
	if o.player == nil {
		return fmt.Errorf("device closed")
	}
	o.player.Pause()
	return nil
}

// Close releases the player and suspends the context. Idempotent.
func (o *Oto) Close() error {
	if o.closed {
		return nil
	}
	o.closed = true

	if o.player != nil {
		if err := o.player.Close(); err != nil {
			log.Printf("Warning: oto player close error: %v", err)
		}
		o.player = nil
	}
	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			log.Printf("Warning: oto context suspend error: %v", err)
		}
		o.otoCtx = nil
	}
	return nil
}

// DesiredLatency returns the requested callback latency.
func (o *Oto) DesiredLatency() time.Duration { return o.latency }
