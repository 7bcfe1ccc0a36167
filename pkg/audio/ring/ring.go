// ABOUTME: Fixed-capacity circular sample buffer with skip and rewind
// ABOUTME: Tracks a wall-clock write tag for clock synchronization
package ring

import (
	"fmt"
	"math"
	"time"

	"github.com/mediafold/renderwave/pkg/audio"
)

// TagUnset is the sentinel write tag of a buffer that has not been written
// to since creation or the last Clear.
const TagUnset = time.Duration(math.MinInt64)

// Buffer is a fixed-capacity byte ring supporting sequential read,
// skip-ahead, and rewind. Bytes behind the read cursor remain intact until
// overwritten, which is what makes Rewind possible.
//
// Buffer performs no locking of its own; the render loop serializes all
// access behind its session lock.
type Buffer struct {
	data       []byte
	readIdx    int
	writeIdx   int
	readable   int
	rewindable int
	writeTag   time.Duration
}

// New creates a buffer with the given byte capacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = audio.DefaultFormat().BytesPerSecond()
	}
	return &Buffer{
		data:     make([]byte, capacity),
		writeTag: TagUnset,
	}
}

// SizeFor returns a buffer capacity derived from the device latency and a
// decoded-block capacity factor, with a multi-second floor.
func SizeFor(f audio.Format, latency time.Duration, blockFactor int) int {
	size := f.BytesFor(latency) * blockFactor
	if floor := f.BytesPerSecond() * 2; size < floor {
		size = floor
	}
	return size
}

// Capacity returns the fixed byte capacity.
func (b *Buffer) Capacity() int { return len(b.data) }

// ReadableCount returns the bytes available to Read or Skip.
func (b *Buffer) ReadableCount() int { return b.readable }

// RewindableCount returns the bytes the read cursor can move backward
// without touching unread data.
func (b *Buffer) RewindableCount() int { return b.rewindable }

// CapacityPercent returns the fraction of capacity holding readable bytes.
func (b *Buffer) CapacityPercent() float64 {
	return float64(b.readable) / float64(len(b.data))
}

// WriteTag returns the wall-clock timestamp of the most recently written
// chunk, or TagUnset.
func (b *Buffer) WriteTag() time.Duration { return b.writeTag }

// Write copies p into the ring, advancing the write cursor with wraparound,
// and tags the buffer with the chunk's timestamp. The buffer does not
// reject writes; the caller is expected to respect CapacityPercent before
// feeding (overrunning a full window silently consumes rewind history first,
// then unread data).
func (b *Buffer) Write(p []byte, tag time.Duration) {
	for len(p) > 0 {
		run := len(b.data) - b.writeIdx
		if run > len(p) {
			run = len(p)
		}
		copy(b.data[b.writeIdx:], p[:run])
		b.writeIdx = (b.writeIdx + run) % len(b.data)
		b.readable += run
		p = p[run:]
	}
	// Producers are expected to respect the capacity ceiling; if one does
	// not, the oldest unread bytes are considered overwritten.
	if b.readable > len(b.data) {
		over := b.readable - len(b.data)
		b.readIdx = (b.readIdx + over) % len(b.data)
		b.readable = len(b.data)
	}
	// Newly written bytes consume rewind history within the capacity window.
	if b.rewindable > len(b.data)-b.readable {
		b.rewindable = len(b.data) - b.readable
	}
	b.writeTag = tag
}

// Read copies len(p) readable bytes out and advances the read cursor.
// Requesting more than ReadableCount is an error; the buffer is untouched.
func (b *Buffer) Read(p []byte) error {
	if len(p) > b.readable {
		return fmt.Errorf("ring: read of %d bytes exceeds readable count %d", len(p), b.readable)
	}
	n := len(p)
	off := 0
	for off < n {
		run := len(b.data) - b.readIdx
		if run > n-off {
			run = n - off
		}
		copy(p[off:], b.data[b.readIdx:b.readIdx+run])
		b.readIdx = (b.readIdx + run) % len(b.data)
		off += run
	}
	b.readable -= n
	b.rewindable += n
	if b.rewindable > len(b.data)-b.readable {
		b.rewindable = len(b.data) - b.readable
	}
	return nil
}

// Skip advances the read cursor by up to n bytes, clamped to the readable
// count, and returns the bytes actually skipped. Used to drop stale samples
// when audio lags behind the clock.
func (b *Buffer) Skip(n int) int {
	if n > b.readable {
		n = b.readable
	}
	if n <= 0 {
		return 0
	}
	b.readIdx = (b.readIdx + n) % len(b.data)
	b.readable -= n
	b.rewindable += n
	if b.rewindable > len(b.data)-b.readable {
		b.rewindable = len(b.data) - b.readable
	}
	return n
}

// Rewind moves the read cursor backward by up to n bytes, clamped to the
// rewindable count, and returns the bytes actually rewound. Used to replay
// recent samples when audio runs ahead of the clock.
func (b *Buffer) Rewind(n int) int {
	if n > b.rewindable {
		n = b.rewindable
	}
	if n <= 0 {
		return 0
	}
	b.readIdx -= n
	if b.readIdx < 0 {
		b.readIdx += len(b.data)
	}
	b.readable += n
	b.rewindable -= n
	return n
}

// Clear resets both cursors and the write tag. Called on seek and stop.
func (b *Buffer) Clear() {
	b.readIdx = 0
	b.writeIdx = 0
	b.readable = 0
	b.rewindable = 0
	b.writeTag = TagUnset
}
