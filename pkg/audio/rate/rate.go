// ABOUTME: Speed-ratio sample conversion over the circular buffer
// ABOUTME: Pass-through, frame-duplicating stretch, and group-collapsing shrink
package rate

import (
	"github.com/mediafold/renderwave/pkg/audio"
	"github.com/mediafold/renderwave/pkg/audio/ring"
)

// Status reports the outcome of one conversion pass.
type Status int

const (
	// OK means the output buffer holds converted samples.
	OK Status = iota

	// Starved means not enough buffered data was available; the output
	// buffer holds silence and the ring was left untouched.
	Starved

	// Resync means the shrink path could not source a full block; the
	// output holds silence and the caller should clear the ring, as after
	// a seek.
	Resync
)

// DefaultMaxRatio bounds the speed ratios the converter sizes its scratch
// buffer for.
const DefaultMaxRatio = 8.0

// Converter produces exactly the requested byte count at any supported
// speed ratio. The scratch buffer is reused across callbacks so the
// real-time path does not allocate in the steady state.
type Converter struct {
	format   audio.Format
	maxRatio float64
	scratch  []byte

	// FirstFrameOnly selects the cheaper shrink mode that keeps only the
	// first frame of each group instead of averaging.
	FirstFrameOnly bool

	repeatAccum float64
	groupAccum  float64
}

// New creates a converter for the given format. maxRatio <= 0 selects
// DefaultMaxRatio.
func New(f audio.Format, maxRatio float64) *Converter {
	if maxRatio <= 0 {
		maxRatio = DefaultMaxRatio
	}
	return &Converter{format: f, maxRatio: maxRatio}
}

// MaxRatio returns the highest speed ratio the converter supports.
func (c *Converter) MaxRatio() float64 { return c.maxRatio }

// Reset clears the fractional accumulators. Called on seek and stop.
func (c *Converter) Reset() {
	c.repeatAccum = 0
	c.groupAccum = 0
}

// Process fills out with exactly len(out) bytes read from buf at the given
// speed ratio. It never produces a partial buffer: on starvation the output
// is silence of the full requested length.
func (c *Converter) Process(buf *ring.Buffer, out []byte, ratio float64) Status {
	switch {
	case ratio == 1.0:
		return c.passThrough(buf, out)
	case ratio < 1.0:
		return c.stretch(buf, out, ratio)
	default:
		if ratio > c.maxRatio {
			ratio = c.maxRatio
		}
		return c.shrink(buf, out, ratio)
	}
}

// passThrough reads the requested bytes verbatim.
func (c *Converter) passThrough(buf *ring.Buffer, out []byte) Status {
	if buf.ReadableCount() < len(out) {
		audio.Silence(out)
		return Starved
	}
	if err := buf.Read(out); err != nil {
		audio.Silence(out)
		return Starved
	}
	return OK
}

// stretch slows playback down by reading fewer source bytes and duplicating
// frames. The fractional accumulator spreads the duplicates evenly across
// the block instead of clustering them.
func (c *Converter) stretch(buf *ring.Buffer, out []byte, ratio float64) Status {
	frameSize := c.format.FrameSize()
	srcBytes := c.format.AlignToFrame(int(float64(len(out)) * ratio))
	if srcBytes < frameSize || buf.ReadableCount() < srcBytes {
		audio.Silence(out)
		return Starved
	}

	src := c.ensureScratch(srcBytes)
	if err := buf.Read(src); err != nil {
		audio.Silence(out)
		return Starved
	}

	repeatFactor := float64(len(out)) / float64(srcBytes)
	outOff := 0
	for srcOff := 0; srcOff < srcBytes && outOff < len(out); srcOff += frameSize {
		c.repeatAccum += repeatFactor
		for c.repeatAccum >= 1.0 && outOff+frameSize <= len(out) {
			copy(out[outOff:outOff+frameSize], src[srcOff:srcOff+frameSize])
			outOff += frameSize
			c.repeatAccum -= 1.0
		}
	}

	// Rounding can leave a frame or two short; repeat the final frame.
	last := src[srcBytes-frameSize : srcBytes]
	for outOff+frameSize <= len(out) {
		copy(out[outOff:outOff+frameSize], last)
		outOff += frameSize
	}
	if outOff < len(out) {
		audio.Silence(out[outOff:])
	}
	return OK
}

// shrink speeds playback up by collapsing groups of frames. Group size is
// fractional; the running remainder distributes rounding error across the
// block. Insufficient source data is treated like a seek: the caller clears
// the ring and this callback emits silence.
func (c *Converter) shrink(buf *ring.Buffer, out []byte, ratio float64) Status {
	frameSize := c.format.FrameSize()
	srcBytes := c.format.AlignToFrame(int(float64(len(out)) * ratio))
	if srcBytes < frameSize || buf.ReadableCount() < srcBytes {
		audio.Silence(out)
		return Resync
	}

	src := c.ensureScratch(srcBytes)
	if err := buf.Read(src); err != nil {
		audio.Silence(out)
		return Resync
	}

	srcFrames := srcBytes / frameSize
	outFrames := len(out) / frameSize
	srcIdx := 0
	for i := 0; i < outFrames; i++ {
		sizeF := ratio + c.groupAccum
		group := int(sizeF)
		c.groupAccum = sizeF - float64(group)
		if group < 1 {
			group = 1
		}
		if srcIdx+group > srcFrames {
			group = srcFrames - srcIdx
		}
		if group <= 0 {
			// Out of source frames; hold the last one.
			srcIdx = srcFrames - 1
			group = 1
		}

		outOff := i * frameSize
		if c.FirstFrameOnly || group == 1 {
			copy(out[outOff:outOff+frameSize], src[srcIdx*frameSize:srcIdx*frameSize+frameSize])
		} else {
			c.averageGroup(out[outOff:outOff+frameSize], src, srcIdx, group)
		}
		srcIdx += group
	}
	if rem := len(out) % frameSize; rem != 0 {
		audio.Silence(out[len(out)-rem:])
	}
	return OK
}

// averageGroup averages the left and right samples of group frames into one.
func (c *Converter) averageGroup(dst, src []byte, startFrame, group int) {
	frameSize := c.format.FrameSize()
	var left, right int
	for f := 0; f < group; f++ {
		off := (startFrame + f) * frameSize
		left += int(int16(uint16(src[off]) | uint16(src[off+1])<<8))
		right += int(int16(uint16(src[off+2]) | uint16(src[off+3])<<8))
	}
	l := int16(left / group)
	r := int16(right / group)
	dst[0] = byte(l)
	dst[1] = byte(l >> 8)
	dst[2] = byte(r)
	dst[3] = byte(r >> 8)
}

// ensureScratch grows the shared scratch buffer lazily, never shrinking
// below the worst-case demand already seen.
func (c *Converter) ensureScratch(n int) []byte {
	if cap(c.scratch) < n {
		want := c.format.AlignToFrame(int(float64(n) * c.maxRatio))
		if want < n {
			want = n
		}
		c.scratch = make([]byte, want)
	}
	return c.scratch[:n]
}
