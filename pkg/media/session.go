// ABOUTME: Shared playback session state owned by the controller
// ABOUTME: Renderers read position, speed and gain atomically per callback
package media

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mediafold/renderwave/pkg/audio/gain"
)

// Session is the explicitly owned state object shared between the playback
// controller and the renderers. There are no package globals; every
// component receives the session it belongs to.
//
// Single-word fields use atomics so the real-time audio callback can read
// them without taking the session lock.
type Session struct {
	id uuid.UUID

	positionNs atomic.Int64
	speedBits  atomic.Uint64

	playing  atomic.Bool
	seeking  atomic.Bool
	seekable atomic.Bool
	hasAudio atomic.Bool

	volumeBits  atomic.Uint64
	balanceBits atomic.Uint64
	muted       atomic.Bool
}

// NewSession creates a session at position zero, speed 1.0, full volume,
// seekable, with audio present.
func NewSession() *Session {
	s := &Session{id: uuid.New()}
	s.SetSpeedRatio(1.0)
	s.SetVolume(1.0)
	s.seekable.Store(true)
	s.hasAudio.Store(true)
	return s
}

// ID returns the session identity.
func (s *Session) ID() uuid.UUID { return s.id }

// Position returns the external wall-clock playback position.
func (s *Session) Position() time.Duration {
	return time.Duration(s.positionNs.Load())
}

// SetPosition advances the playback clock.
func (s *Session) SetPosition(p time.Duration) {
	s.positionNs.Store(int64(p))
}

// SpeedRatio returns the current speed ratio (1.0 = normal).
func (s *Session) SpeedRatio() float64 {
	return math.Float64frombits(s.speedBits.Load())
}

// SetSpeedRatio sets the speed ratio. Non-positive values are ignored.
func (s *Session) SetSpeedRatio(r float64) {
	if r < 0 {
		return
	}
	s.speedBits.Store(math.Float64bits(r))
}

// IsPlaying reports whether playback is running.
func (s *Session) IsPlaying() bool { return s.playing.Load() }

// SetPlaying flips the playing flag.
func (s *Session) SetPlaying(v bool) { s.playing.Store(v) }

// IsSeeking reports whether a seek is in progress.
func (s *Session) IsSeeking() bool { return s.seeking.Load() }

// SetSeeking flips the seek-in-progress flag.
func (s *Session) SetSeeking(v bool) { s.seeking.Store(v) }

// IsSeekable reports whether the stream supports seeking. Live streams are
// not seekable, which enables the synchronizer's give-up policy.
func (s *Session) IsSeekable() bool { return s.seekable.Load() }

// SetSeekable marks the stream as seekable or live.
func (s *Session) SetSeekable(v bool) { s.seekable.Store(v) }

// HasAudio reports whether the stream carries an audio component.
func (s *Session) HasAudio() bool { return s.hasAudio.Load() }

// SetHasAudio marks the audio component present or absent.
func (s *Session) SetHasAudio(v bool) { s.hasAudio.Store(v) }

// Gain snapshots the current volume/balance/mute state.
func (s *Session) Gain() gain.State {
	return gain.State{
		Volume:  math.Float64frombits(s.volumeBits.Load()),
		Balance: math.Float64frombits(s.balanceBits.Load()),
		Muted:   s.muted.Load(),
	}.Clamped()
}

// SetVolume sets playback volume (0.0 - 1.0, clamped on read).
func (s *Session) SetVolume(v float64) { s.volumeBits.Store(math.Float64bits(v)) }

// SetBalance sets stereo balance (-1.0 left .. +1.0 right, clamped on read).
func (s *Session) SetBalance(b float64) { s.balanceBits.Store(math.Float64bits(b)) }

// SetMuted flips the mute flag.
func (s *Session) SetMuted(m bool) { s.muted.Store(m) }
