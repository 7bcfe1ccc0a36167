// ABOUTME: Tests for the wall-clock synchronizer
// ABOUTME: Covers the hysteresis zones and the live-stream give-up policy
package render

import (
	"testing"
	"time"

	"github.com/mediafold/renderwave/pkg/audio"
	"github.com/mediafold/renderwave/pkg/audio/ring"
)

// prepBuffer returns a ring whose derived audio position is exactly pos:
// it holds readable bytes worth of audio tagged at pos + that duration.
func prepBuffer(t *testing.T, f audio.Format, pos time.Duration, readable time.Duration) *ring.Buffer {
	t.Helper()
	b := ring.New(f.BytesPerSecond() * 4)

	n := f.BytesFor(readable)
	b.Write(make([]byte, n), pos+f.DurationFor(n))
	return b
}

func TestPerfectBandNoCorrection(t *testing.T) {
	f := audio.DefaultFormat()
	s := NewSynchronizer(f, false)

	for _, latency := range []time.Duration{0, 5 * time.Millisecond, -9 * time.Millisecond} {
		pos := 500 * time.Millisecond
		b := prepBuffer(t, f, pos, 300*time.Millisecond)
		before := b.ReadableCount()

		ok := s.Apply(b, pos+latency, 2000, 1.0, true)

		if !ok {
			t.Fatalf("latency %v: expected continue", latency)
		}
		if b.ReadableCount() != before {
			t.Errorf("latency %v: cursor moved inside the perfect band", latency)
		}
	}
}

func TestLaggingSkipDoesNotOvershoot(t *testing.T) {
	f := audio.DefaultFormat()
	s := NewSynchronizer(f, false)

	pos := 500 * time.Millisecond
	latency := LaggingSyncThreshold + 5*time.Millisecond
	b := prepBuffer(t, f, pos, 400*time.Millisecond)
	before := b.ReadableCount()

	ok := s.Apply(b, pos+latency, 2000, 1.0, true)
	if !ok {
		t.Fatal("expected continue after skip")
	}

	skipped := before - b.ReadableCount()
	want := f.BytesFor(latency)
	if skipped != want {
		t.Errorf("skipped %d bytes, want %d", skipped, want)
	}
	// Skipping exactly the latency lands at zero, never past it.
	if f.DurationFor(skipped) > latency {
		t.Errorf("skip overshot: %v > %v", f.DurationFor(skipped), latency)
	}
}

func TestMinorStepIsCapped(t *testing.T) {
	f := audio.DefaultFormat()
	s := NewSynchronizer(f, false)

	pos := 500 * time.Millisecond
	latency := 60 * time.Millisecond // between perfect and lagging
	b := prepBuffer(t, f, pos, 400*time.Millisecond)
	before := b.ReadableCount()

	if !s.Apply(b, pos+latency, 2000, 1.0, true) {
		t.Fatal("expected continue")
	}

	stepped := before - b.ReadableCount()
	if want := f.BytesFor(MaxSyncStep); stepped != want {
		t.Errorf("stepped %d bytes, want capped %d", stepped, want)
	}
}

func TestLeadingWithoutHistoryHoldsSilence(t *testing.T) {
	f := audio.DefaultFormat()
	s := NewSynchronizer(f, false)

	pos := 500 * time.Millisecond
	latency := -80 * time.Millisecond
	// Fresh buffer: no rewindable history at all.
	b := ring.New(f.BytesPerSecond())
	n := f.BytesFor(300 * time.Millisecond)
	b.Write(make([]byte, n), pos+f.DurationFor(n))

	if s.Apply(b, pos+latency, 2000, 1.0, true) {
		t.Fatal("expected hold (silence) when rewind history is insufficient")
	}
	if b.ReadableCount() != n {
		t.Error("hold must not move the cursor")
	}
}

func TestLeadingRewindReplaysHistory(t *testing.T) {
	f := audio.DefaultFormat()
	s := NewSynchronizer(f, false)

	pos := 500 * time.Millisecond
	b := ring.New(f.BytesPerSecond() * 4)
	n := f.BytesFor(600 * time.Millisecond)
	b.Write(make([]byte, n), pos+f.DurationFor(n))

	// Consume some audio so rewind history exists.
	consumed := f.BytesFor(200 * time.Millisecond)
	if err := b.Read(make([]byte, consumed)); err != nil {
		t.Fatal(err)
	}
	// Position moved forward by the consumed duration.
	pos += 200 * time.Millisecond
	before := b.ReadableCount()

	latency := -80 * time.Millisecond
	if !s.Apply(b, pos+latency, 2000, 1.0, true) {
		t.Fatal("expected rewind, not hold")
	}
	rewound := b.ReadableCount() - before
	if want := f.BytesFor(80 * time.Millisecond); rewound != want {
		t.Errorf("rewound %d bytes, want %d", rewound, want)
	}
}

func TestDisabledSyncNeverCorrects(t *testing.T) {
	f := audio.DefaultFormat()
	s := NewSynchronizer(f, true)

	pos := 500 * time.Millisecond
	b := prepBuffer(t, f, pos, 400*time.Millisecond)
	before := b.ReadableCount()

	if !s.Apply(b, pos+time.Second, 2000, 1.0, true) {
		t.Fatal("disabled sync must always continue")
	}
	if b.ReadableCount() != before {
		t.Error("disabled sync must not move the cursor")
	}
}

func TestGiveUpOnSustainedCorrections(t *testing.T) {
	f := audio.DefaultFormat()
	s := NewSynchronizer(f, false)

	now := time.Unix(0, 0)
	s.nowFn = func() time.Time { return now }

	pos := 500 * time.Millisecond
	latency := LaggingSyncThreshold + 20*time.Millisecond

	// Five corrections per simulated second for five seconds.
	for i := 0; i < 25 && !s.GaveUp(); i++ {
		b := prepBuffer(t, f, pos, 400*time.Millisecond)
		s.Apply(b, pos+latency, 2000, 1.0, false)
		now = now.Add(200 * time.Millisecond)
	}

	if !s.GaveUp() {
		t.Fatal("expected the synchronizer to give up")
	}

	// After giving up, no further corrections happen.
	b := prepBuffer(t, f, pos, 400*time.Millisecond)
	before := b.ReadableCount()
	if !s.Apply(b, pos+latency, 2000, 1.0, false) {
		t.Fatal("gave-up sync must continue without correcting")
	}
	if b.ReadableCount() != before {
		t.Error("gave-up sync must not move the cursor")
	}

	// A pause/play transition resumes correction.
	s.ResetSession()
	if s.GaveUp() {
		t.Fatal("ResetSession must clear the give-up state")
	}
	b = prepBuffer(t, f, pos, 400*time.Millisecond)
	before = b.ReadableCount()
	s.Apply(b, pos+latency, 2000, 1.0, false)
	if b.ReadableCount() == before {
		t.Error("expected corrections to resume after reset")
	}
}

func TestSlowCorrectionRateNeverGivesUp(t *testing.T) {
	f := audio.DefaultFormat()
	s := NewSynchronizer(f, false)

	now := time.Unix(0, 0)
	s.nowFn = func() time.Time { return now }

	pos := 500 * time.Millisecond
	latency := LaggingSyncThreshold + 20*time.Millisecond

	// Two corrections per second stays under the give-up rate.
	for i := 0; i < 20; i++ {
		b := prepBuffer(t, f, pos, 400*time.Millisecond)
		s.Apply(b, pos+latency, 2000, 1.0, false)
		now = now.Add(500 * time.Millisecond)
	}

	if s.GaveUp() {
		t.Fatal("low correction rate must not trigger give-up")
	}
}
