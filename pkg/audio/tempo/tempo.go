// ABOUTME: Pitch-preserving tempo stage for interleaved 16-bit frames
// ABOUTME: PICOLA-style pitch period detection with overlap-add splicing
package tempo

import (
	"math"

	"github.com/mediafold/renderwave/pkg/audio"
)

const (
	// Human pitch range bounds the period search window.
	minPitch = 65
	maxPitch = 400

	// Pitch detection runs over input downsampled to roughly this rate.
	amdfFreq = 4000

	// MinSpeed and MaxSpeed bound the tempo factors the stage accepts.
	MinSpeed = 0.1
	MaxSpeed = 8.0
)

// Stretcher changes playback tempo without shifting pitch. Interleaved
// 16-bit frames go in via Write, the same format comes out via Read, and
// the tempo factor can change between callbacks.
//
// Speeding up removes one pitch period at a time, slowing down inserts
// one, and the seam is crossfaded with a linear overlap-add. For speeds
// between 0.5x and 2.0x a stretch of input is passed through unmodified
// after each splice so the average rate lands on the requested factor.
type Stretcher struct {
	sampleRate int
	channels   int
	speed      float64

	minPeriod   int
	maxPeriod   int
	maxRequired int

	input      []int16
	output     []int16
	downSample []int16

	prevPeriod  int
	prevMinDiff int
}

// New creates a stretcher for the given format at speed 1.0.
func New(f audio.Format) *Stretcher {
	s := &Stretcher{
		sampleRate: f.SampleRate,
		channels:   f.Channels,
		speed:      1.0,
		minPeriod:  f.SampleRate / maxPitch,
		maxPeriod:  f.SampleRate / minPitch,
	}
	s.maxRequired = 2 * s.maxPeriod
	s.downSample = make([]int16, s.maxRequired)
	return s
}

// Speed returns the current tempo factor.
func (s *Stretcher) Speed() float64 { return s.speed }

// SetSpeed sets the tempo factor, clamped to the supported range.
func (s *Stretcher) SetSpeed(speed float64) {
	if speed < MinSpeed {
		speed = MinSpeed
	}
	if speed > MaxSpeed {
		speed = MaxSpeed
	}
	s.speed = speed
}

// Write feeds interleaved samples in and processes whole pitch windows.
// len(samples) should be a multiple of the channel count.
func (s *Stretcher) Write(samples []int16) {
	s.input = append(s.input, samples...)
	s.process()
}

// OutputFrames returns the number of whole frames queued for Read.
func (s *Stretcher) OutputFrames() int {
	return len(s.output) / s.channels
}

// Read drains up to len(out) processed samples, aligned to whole frames,
// and returns the number of samples copied.
func (s *Stretcher) Read(out []int16) int {
	n := len(out)
	if n > len(s.output) {
		n = len(s.output)
	}
	n -= n % s.channels
	copy(out, s.output[:n])
	s.output = s.output[:copy(s.output, s.output[n:])]
	return n
}

// Flush pushes whatever input remains through the splicer by padding it
// with silence. Flushing mid-word can distort the tail.
func (s *Stretcher) Flush() {
	pad := make([]int16, s.maxRequired*s.channels)
	s.input = append(s.input, pad...)
	s.process()
	s.input = s.input[:0]
}

// Reset discards all buffered input and output. Called on seek.
func (s *Stretcher) Reset() {
	s.input = s.input[:0]
	s.output = s.output[:0]
	s.prevPeriod = 0
	s.prevMinDiff = 0
}

func (s *Stretcher) inputFrames() int { return len(s.input) / s.channels }

// process consumes input while a full detection window is available.
func (s *Stretcher) process() {
	if s.speed > 0.99999 && s.speed < 1.00001 {
		s.output = append(s.output, s.input...)
		s.input = s.input[:0]
		return
	}

	for s.inputFrames() >= s.maxRequired {
		period := s.findPitchPeriod()

		if s.speed > 1.0 {
			if s.skipPitchPeriod(period) == 0 {
				return
			}
			if s.speed < 2.0 {
				// Pass input through unmodified until the average rate
				// matches the requested speed.
				unmodified := int(float64(period) * (2.0 - s.speed) / (s.speed - 1.0))
				s.copyUnmodified(unmodified)
			}
		} else {
			if s.insertPitchPeriod(period) == 0 {
				return
			}
			if s.speed > 0.5 {
				unmodified := int(float64(period) * (2.0*s.speed - 1.0) / (1.0 - s.speed))
				s.copyUnmodified(unmodified)
			}
		}
	}
}

// copyUnmodified moves up to n frames straight from input to output.
func (s *Stretcher) copyUnmodified(n int) {
	if n > s.inputFrames() {
		n = s.inputFrames()
	}
	if n <= 0 {
		return
	}
	s.output = append(s.output, s.input[:n*s.channels]...)
	s.dropInput(n)
}

// dropInput removes n frames from the head of the input FIFO.
func (s *Stretcher) dropInput(n int) {
	s.input = s.input[:copy(s.input, s.input[n*s.channels:])]
}

// skipPitchPeriod removes one pitch period (or a portion of one at >=2x),
// crossfading the cut. Returns the frames emitted.
func (s *Stretcher) skipPitchPeriod(period int) int {
	var newFrames int
	if s.speed >= 2.0 {
		newFrames = int(math.Round(float64(period) / (s.speed - 1.0)))
	} else {
		newFrames = period
	}
	if newFrames > s.inputFrames()-period {
		newFrames = s.inputFrames() - period
	}
	if newFrames <= 0 {
		return 0
	}
	s.overlapAdd(newFrames, period)
	s.dropInput(newFrames + period)
	return newFrames
}

// insertPitchPeriod duplicates one pitch period (or a portion at <=0.5x),
// crossfading the join. Returns the frames of input consumed.
func (s *Stretcher) insertPitchPeriod(period int) int {
	var newFrames int
	if s.speed <= 0.5 {
		newFrames = int(float64(period) * s.speed / (1.0 - s.speed))
	} else {
		newFrames = period
	}
	if period > s.inputFrames() {
		period = s.inputFrames()
	}
	if newFrames > period {
		newFrames = period
	}
	if newFrames <= 0 || period <= 0 {
		return 0
	}

	// First copy the period verbatim, then append the crossfaded repeat.
	s.output = append(s.output, s.input[:period*s.channels]...)
	s.overlapAdd(newFrames, period)
	s.dropInput(newFrames)
	return newFrames
}

// overlapAdd appends newFrames spliced frames: input frame i ramps down
// while input frame i+period ramps up.
func (s *Stretcher) overlapAdd(newFrames, period int) {
	base := len(s.output)
	s.output = append(s.output, make([]int16, newFrames*s.channels)...)

	for i := 0; i < newFrames; i++ {
		for c := 0; c < s.channels; c++ {
			down := int(s.input[i*s.channels+c])
			up := int(s.input[(i+period)*s.channels+c])
			s.output[base+i*s.channels+c] = int16((down*(newFrames-i) + up*i) / newFrames)
		}
	}
}

// findPitchPeriod estimates the dominant pitch period of the current input
// window, preferring the previous estimate at abrupt word endings.
func (s *Stretcher) findPitchPeriod() int {
	skip := 1
	if s.sampleRate > amdfFreq {
		skip = s.sampleRate / amdfFreq
	}

	s.downSampleInput(skip)
	period, minDiff, maxDiff := findPitchPeriodInRange(s.downSample, s.minPeriod/skip, s.maxPeriod/skip)

	if skip != 1 {
		// Refine around the coarse estimate at full resolution.
		period *= skip
		lo := period - (skip << 2)
		hi := period + (skip << 2)
		if lo < s.minPeriod {
			lo = s.minPeriod
		}
		if hi > s.maxPeriod {
			hi = s.maxPeriod
		}
		s.downSampleInput(1)
		period, minDiff, maxDiff = findPitchPeriodInRange(s.downSample, lo, hi)
	}

	ret := period
	if s.prevPeriodBetter(minDiff, maxDiff) {
		ret = s.prevPeriod
	}
	s.prevMinDiff = minDiff
	s.prevPeriod = period
	return ret
}

// prevPeriodBetter detects pitch periods at abrupt ends of voiced words
// that are better approximated by the previous estimate.
func (s *Stretcher) prevPeriodBetter(minDiff, maxDiff int) bool {
	if minDiff == 0 || s.prevPeriod == 0 {
		return false
	}
	if maxDiff > minDiff*3 {
		return false
	}
	if minDiff*2 <= s.prevMinDiff*3 {
		return false
	}
	return true
}

// downSampleInput mixes channels to mono and averages skip frames together
// into the down-sample buffer.
func (s *Stretcher) downSampleInput(skip int) {
	n := s.maxRequired / skip
	if cap(s.downSample) < n {
		s.downSample = make([]int16, n)
	}
	s.downSample = s.downSample[:n]

	skipSamples := skip * s.channels
	idx := 0
	for i := 0; i < n; i++ {
		v := 0
		for j := 0; j < skipSamples; j++ {
			v += int(s.input[idx])
			idx++
		}
		s.downSample[i] = int16(v / skipSamples)
	}
}

// findPitchPeriodInRange runs an AMDF search over [minP, maxP] and returns
// the best period with its normalized min and max differences.
func findPitchPeriodInRange(samples []int16, minP, maxP int) (bestPeriod, minDiff, maxDiff int) {
	worstPeriod := 255
	minDiff = 1
	if maxP*2 > len(samples) {
		maxP = len(samples) / 2
	}
	if minP < 1 {
		minP = 1
	}

	for period := minP; period <= maxP; period++ {
		diff := 0
		for i := 0; i < period; i++ {
			d := int(samples[i]) - int(samples[i+period])
			if d < 0 {
				d = -d
			}
			diff += d
		}
		if bestPeriod == 0 || diff*bestPeriod < minDiff*period {
			minDiff = diff
			bestPeriod = period
		}
		if diff*worstPeriod > maxDiff*period {
			maxDiff = diff
			worstPeriod = period
		}
	}

	if bestPeriod > 0 {
		minDiff /= bestPeriod
	}
	if worstPeriod > 0 {
		maxDiff /= worstPeriod
	}
	return bestPeriod, minDiff, maxDiff
}
