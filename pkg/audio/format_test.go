// ABOUTME: Tests for the wave format descriptor
// ABOUTME: Byte/duration conversions, frame alignment, and sample codecs
package audio

import (
	"testing"
	"time"
)

func TestDefaultFormat(t *testing.T) {
	f := DefaultFormat()
	if f.SampleRate != 44100 || f.Channels != 2 || f.Depth != 16 {
		t.Errorf("unexpected default format: %+v", f)
	}
	if f.FrameSize() != 4 {
		t.Errorf("FrameSize() = %d, want 4", f.FrameSize())
	}
	if f.BytesPerSecond() != 176400 {
		t.Errorf("BytesPerSecond() = %d, want 176400", f.BytesPerSecond())
	}
}

func TestNewFormatRejectsBadRate(t *testing.T) {
	if _, err := NewFormat(0); err == nil {
		t.Error("expected error for zero sample rate")
	}
	if _, err := NewFormat(-44100); err == nil {
		t.Error("expected error for negative sample rate")
	}
	f, err := NewFormat(48000)
	if err != nil {
		t.Fatalf("NewFormat(48000): %v", err)
	}
	if f.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want 48000", f.SampleRate)
	}
}

func TestBytesForIsFrameAligned(t *testing.T) {
	f := DefaultFormat()
	tests := []struct {
		d    time.Duration
		want int
	}{
		{time.Second, 176400},
		{100 * time.Millisecond, 17640},
		{time.Millisecond, 176},
		{0, 0},
	}
	for _, tt := range tests {
		got := f.BytesFor(tt.d)
		if got != tt.want {
			t.Errorf("BytesFor(%v) = %d, want %d", tt.d, got, tt.want)
		}
		if got%f.FrameSize() != 0 {
			t.Errorf("BytesFor(%v) = %d, not frame-aligned", tt.d, got)
		}
	}
}

func TestDurationForRoundTrip(t *testing.T) {
	f := DefaultFormat()
	for _, d := range []time.Duration{time.Second, 250 * time.Millisecond, 10 * time.Millisecond} {
		got := f.DurationFor(f.BytesFor(d))
		diff := got - d
		if diff < 0 {
			diff = -diff
		}
		// One frame of slack for the alignment rounding.
		if diff > f.DurationFor(f.FrameSize()) {
			t.Errorf("round trip of %v drifted to %v", d, got)
		}
	}
}

func TestAlignToFrame(t *testing.T) {
	f := DefaultFormat()
	tests := []struct{ in, want int }{
		{0, 0},
		{3, 0},
		{4, 4},
		{7, 4},
		{100, 100},
		{-8, 0},
	}
	for _, tt := range tests {
		if got := f.AlignToFrame(tt.in); got != tt.want {
			t.Errorf("AlignToFrame(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSamplesRoundTrip(t *testing.T) {
	src := []int16{0, 1, -1, 32767, -32768, 12345}
	buf := make([]byte, len(src)*BytesPerSample)
	PutSamples(buf, src)
	got := Samples(buf)
	for i := range src {
		if got[i] != src[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], src[i])
		}
	}
}

func TestSilence(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	Silence(buf)
	for i, b := range buf {
		if b != 0 {
			t.Errorf("byte %d = %d after Silence", i, b)
		}
	}
}
