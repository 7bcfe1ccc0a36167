// ABOUTME: Wall-clock synchronizer for the audio read cursor
// ABOUTME: Four-zone thresholds with hysteresis and a live-stream give-up
package render

import (
	"log"
	"time"

	"github.com/mediafold/renderwave/pkg/audio"
	"github.com/mediafold/renderwave/pkg/audio/ring"
)

// Synchronization thresholds. Latency is clock minus buffer-derived audio
// position: positive means audio lags the clock, negative means it leads.
const (
	// PerfectSyncThreshold is the band within which no correction happens.
	PerfectSyncThreshold = 10 * time.Millisecond

	// LaggingSyncThreshold triggers a large skip of the whole latency.
	LaggingSyncThreshold = 100 * time.Millisecond

	// LeadingSyncThreshold triggers a large rewind, or silence when the
	// rewind history cannot cover it.
	LeadingSyncThreshold = -25 * time.Millisecond

	// MaxSyncStep caps how far one minor correction moves per callback.
	MaxSyncStep = 25 * time.Millisecond
)

// Give-up policy for non-seekable streams: sustained correction churn means
// the source clock is unsyncable and further correction only adds artifacts.
const (
	giveUpRatePerSecond = 3
	giveUpSustained     = 3 * time.Second
)

// Synchronizer keeps the buffer's read cursor within a small window of the
// external wall clock by skipping, rewinding, or withholding reads.
type Synchronizer struct {
	format   audio.Format
	disabled bool

	// Give-up tracking, reset on play/pause transitions.
	gaveUp      bool
	windowStart time.Time
	windowCount int
	sustained   time.Duration

	nowFn func() time.Time
}

// NewSynchronizer creates a synchronizer. disabled mirrors the
// disable-sync configuration option.
func NewSynchronizer(f audio.Format, disabled bool) *Synchronizer {
	return &Synchronizer{format: f, disabled: disabled, nowFn: time.Now}
}

// ResetSession clears the give-up tracking. Called whenever playback
// transitions between playing and paused.
func (s *Synchronizer) ResetSession() {
	s.gaveUp = false
	s.windowStart = time.Time{}
	s.windowCount = 0
	s.sustained = 0
}

// GaveUp reports whether correction has been abandoned for this session.
func (s *Synchronizer) GaveUp() bool { return s.gaveUp }

// Apply measures latency against the buffer's write tag and adjusts the
// read cursor. requested is the byte count the current callback will read.
// It returns false when the callback should emit silence and not read.
func (s *Synchronizer) Apply(buf *ring.Buffer, clock time.Duration, requested int, speedRatio float64, seekable bool) bool {
	if s.disabled || s.gaveUp {
		return true
	}

	tag := buf.WriteTag()
	if tag == ring.TagUnset {
		return true
	}

	position := tag - s.format.DurationFor(buf.ReadableCount())
	latency := clock - position

	if latency >= -PerfectSyncThreshold && latency <= PerfectSyncThreshold {
		return true
	}

	if !seekable {
		s.trackCorrection()
		if s.gaveUp {
			return true
		}
	}

	if latency > LaggingSyncThreshold {
		skipped := buf.Skip(s.format.BytesFor(latency))
		if speedRatio == 1.0 {
			log.Printf("Warning: audio lagging %v behind clock, skipped %d bytes", latency, skipped)
		}
		return true
	}

	if latency < LeadingSyncThreshold {
		rewind := s.format.BytesFor(-latency)
		if buf.RewindableCount() >= rewind && rewind > requested {
			buf.Rewind(rewind)
			return true
		}
		// Cannot rewind far enough; hold this callback with silence so
		// the clock catches up.
		return false
	}

	// Steady-state convergence: one small step per callback.
	step := latency
	if step > MaxSyncStep {
		step = MaxSyncStep
	}
	if step < -MaxSyncStep {
		step = -MaxSyncStep
	}
	if step > 0 {
		buf.Skip(s.format.BytesFor(step))
	} else {
		buf.Rewind(s.format.BytesFor(-step))
	}
	return true
}

// trackCorrection counts corrections per second; once the rate stays above
// the limit for the sustained window, synchronization is abandoned for the
// rest of the session.
func (s *Synchronizer) trackCorrection() {
	now := s.nowFn()
	if s.windowStart.IsZero() {
		s.windowStart = now
	}

	elapsed := now.Sub(s.windowStart)
	if elapsed >= time.Second {
		if s.windowCount > giveUpRatePerSecond {
			s.sustained += elapsed
		} else {
			s.sustained = 0
		}
		s.windowStart = now
		s.windowCount = 0

		if s.sustained >= giveUpSustained {
			s.gaveUp = true
			log.Printf("Giving up on audio synchronization for this session: correction rate exceeded %d/s for %v",
				giveUpRatePerSecond, giveUpSustained)
			return
		}
	}
	s.windowCount++
}
