// ABOUTME: Tests for the pitch-preserving tempo stage
// ABOUTME: Checks output frame ratios and identity at speed 1.0
package tempo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediafold/renderwave/pkg/audio"
)

// sine generates n stereo frames of a 220Hz tone.
func sine(n int, rate int) []int16 {
	out := make([]int16, n*2)
	for i := 0; i < n; i++ {
		v := int16(math.Sin(2*math.Pi*220*float64(i)/float64(rate)) * 16000)
		out[i*2] = v
		out[i*2+1] = v
	}
	return out
}

func TestIdentityAtUnitSpeed(t *testing.T) {
	s := New(audio.DefaultFormat())
	in := sine(5000, audio.DefaultSampleRate)
	s.Write(in)

	require.Equal(t, 5000, s.OutputFrames(), "unit speed passes frames through")

	out := make([]int16, len(in))
	n := s.Read(out)
	require.Equal(t, len(in), n)
	assert.Equal(t, in, out)
}

func TestSpeedUpShrinksOutput(t *testing.T) {
	for _, speed := range []float64{1.5, 2.0, 3.0} {
		s := New(audio.DefaultFormat())
		s.SetSpeed(speed)

		frames := audio.DefaultSampleRate // one second
		s.Write(sine(frames, audio.DefaultSampleRate))
		s.Flush()

		got := s.OutputFrames()
		want := float64(frames) / speed
		assert.InEpsilon(t, want, float64(got), 0.15,
			"speed %v: got %d frames, want about %.0f", speed, got, want)
	}
}

func TestSlowDownGrowsOutput(t *testing.T) {
	for _, speed := range []float64{0.5, 0.75} {
		s := New(audio.DefaultFormat())
		s.SetSpeed(speed)

		frames := audio.DefaultSampleRate
		s.Write(sine(frames, audio.DefaultSampleRate))
		s.Flush()

		got := s.OutputFrames()
		want := float64(frames) / speed
		assert.InEpsilon(t, want, float64(got), 0.15,
			"speed %v: got %d frames, want about %.0f", speed, got, want)
	}
}

func TestReadAlignsToFrames(t *testing.T) {
	s := New(audio.DefaultFormat())
	s.Write(sine(1000, audio.DefaultSampleRate))

	out := make([]int16, 33) // deliberately odd
	n := s.Read(out)
	assert.Equal(t, 32, n, "reads are clipped to whole frames")
	assert.Equal(t, 1000-16, s.OutputFrames())
}

func TestSetSpeedClamps(t *testing.T) {
	s := New(audio.DefaultFormat())
	s.SetSpeed(100)
	assert.Equal(t, MaxSpeed, s.Speed())
	s.SetSpeed(0)
	assert.Equal(t, MinSpeed, s.Speed())
}

func TestResetDiscardsState(t *testing.T) {
	s := New(audio.DefaultFormat())
	s.SetSpeed(2.0)
	s.Write(sine(4000, audio.DefaultSampleRate))
	s.Reset()

	assert.Equal(t, 0, s.OutputFrames())
	out := make([]int16, 64)
	assert.Equal(t, 0, s.Read(out))
}
