// ABOUTME: Volume, balance and mute shaping for 16-bit stereo PCM
// ABOUTME: Applies per-channel gain in place over the render buffer
package gain

import "encoding/binary"

// State holds the current volume, balance and mute inputs. It is mutated by
// the playback controller and read once per render callback.
type State struct {
	Volume  float64 // 0.0 .. 1.0
	Balance float64 // -1.0 (left) .. +1.0 (right)
	Muted   bool
}

// Default returns full volume, centered balance, unmuted.
func Default() State {
	return State{Volume: 1.0}
}

// Clamped returns the state with volume and balance forced into range.
func (s State) Clamped() State {
	s.Volume = clamp(s.Volume, 0, 1)
	s.Balance = clamp(s.Balance, -1, 1)
	return s
}

// LeftGain returns the effective left-channel multiplier.
func (s State) LeftGain() float64 {
	s = s.Clamped()
	if s.Balance > 0 {
		return s.Volume * (1 - s.Balance)
	}
	return s.Volume
}

// RightGain returns the effective right-channel multiplier.
func (s State) RightGain() float64 {
	s = s.Clamped()
	if s.Balance < 0 {
		return s.Volume * (1 + s.Balance)
	}
	return s.Volume
}

// Apply shapes buf in place. buf holds interleaved 16-bit stereo
// little-endian frames; a trailing partial frame is left untouched.
func Apply(buf []byte, s State) {
	if s.Muted {
		for i := range buf {
			buf[i] = 0
		}
		return
	}

	left := s.LeftGain()
	right := s.RightGain()
	if left == 1.0 && right == 1.0 {
		return
	}

	for i := 0; i+3 < len(buf); i += 4 {
		if left != 1.0 {
			scale(buf[i:], left)
		}
		if right != 1.0 {
			scale(buf[i+2:], right)
		}
	}
}

// scale multiplies one little-endian int16 sample in place.
func scale(b []byte, g float64) {
	v := int16(binary.LittleEndian.Uint16(b))
	binary.LittleEndian.PutUint16(b, uint16(int16(float64(v)*g)))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
