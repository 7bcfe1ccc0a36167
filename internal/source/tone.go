// ABOUTME: Sine test tone block source
// ABOUTME: Produces timestamped decoded blocks for demos and tests
package source

import (
	"math"
	"time"

	"github.com/mediafold/renderwave/pkg/audio"
)

// Tone generates a stereo sine wave as a sequence of decoded blocks.
type Tone struct {
	format    audio.Format
	frequency float64
	amplitude float64

	frameIndex uint64
	clock      time.Duration
}

// NewTone creates a tone source. amplitude is 0..1 of full scale.
func NewTone(f audio.Format, frequency, amplitude float64) *Tone {
	if frequency <= 0 {
		frequency = 440.0
	}
	if amplitude <= 0 || amplitude > 1 {
		amplitude = 0.5
	}
	return &Tone{format: f, frequency: frequency, amplitude: amplitude}
}

// NextBlock produces the next block of the given duration.
func (s *Tone) NextBlock(d time.Duration) *audio.Block {
	frames := s.format.BytesFor(d) / s.format.FrameSize()
	samples := make([]int16, frames*s.format.Channels)

	for i := 0; i < frames; i++ {
		t := float64(s.frameIndex+uint64(i)) / float64(s.format.SampleRate)
		v := int16(math.Sin(2*math.Pi*s.frequency*t) * 32767.0 * s.amplitude)
		for c := 0; c < s.format.Channels; c++ {
			samples[i*s.format.Channels+c] = v
		}
	}

	data := make([]byte, len(samples)*audio.BytesPerSample)
	audio.PutSamples(data, samples)

	block := audio.NewBlock(s.clock, data)
	s.frameIndex += uint64(frames)
	s.clock += s.format.DurationFor(len(data))
	return block
}
