// ABOUTME: Wave format descriptor and byte/duration conversions
// ABOUTME: The engine operates on interleaved 16-bit stereo PCM
package audio

import (
	"encoding/binary"
	"fmt"
	"time"
)

const (
	// DefaultSampleRate is the engine's nominal sample rate.
	DefaultSampleRate = 44100

	// BitDepth and ChannelCount are fixed for this engine.
	BitDepth     = 16
	ChannelCount = 2

	// BytesPerSample is the byte width of one 16-bit sample.
	BytesPerSample = BitDepth / 8
)

// Format describes the PCM stream format of an audio session.
type Format struct {
	SampleRate int
	Channels   int
	Depth      int
}

// DefaultFormat returns the engine's standard 44.1kHz 16-bit stereo format.
func DefaultFormat() Format {
	return Format{SampleRate: DefaultSampleRate, Channels: ChannelCount, Depth: BitDepth}
}

// NewFormat validates and creates a format. Only 16-bit stereo is supported.
func NewFormat(sampleRate int) (Format, error) {
	if sampleRate <= 0 {
		return Format{}, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}
	return Format{SampleRate: sampleRate, Channels: ChannelCount, Depth: BitDepth}, nil
}

// FrameSize returns the byte length of one interleaved frame (all channels).
func (f Format) FrameSize() int {
	return f.Channels * (f.Depth / 8)
}

// BytesPerSecond returns the PCM byte rate.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.FrameSize()
}

// BytesFor converts a duration to a frame-aligned byte count.
func (f Format) BytesFor(d time.Duration) int {
	b := int(d.Seconds() * float64(f.BytesPerSecond()))
	return f.AlignToFrame(b)
}

// DurationFor converts a byte count to playback duration.
func (f Format) DurationFor(byteCount int) time.Duration {
	return time.Duration(float64(byteCount) / float64(f.BytesPerSecond()) * float64(time.Second))
}

// AlignToFrame rounds a byte count down to a whole-frame boundary.
func (f Format) AlignToFrame(byteCount int) int {
	if byteCount < 0 {
		return 0
	}
	return byteCount - byteCount%f.FrameSize()
}

// Silence zeroes the given buffer.
func Silence(dst []byte) {
	for i := range dst {
		dst[i] = 0
	}
}

// Samples decodes little-endian bytes into int16 samples.
// The byte slice length must be even; a trailing odd byte is ignored.
func Samples(src []byte) []int16 {
	out := make([]int16, len(src)/BytesPerSample)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(src[i*BytesPerSample:]))
	}
	return out
}

// PutSamples encodes int16 samples as little-endian bytes into dst.
// dst must hold at least len(src)*2 bytes.
func PutSamples(dst []byte, src []int16) {
	for i, s := range src {
		binary.LittleEndian.PutUint16(dst[i*BytesPerSample:], uint16(s))
	}
}
