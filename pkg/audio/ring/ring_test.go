// ABOUTME: Tests for the circular sample buffer
// ABOUTME: Covers round-trips, skip/rewind clamping, and the capacity invariant
package ring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pattern(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i * 7)
	}
	return p
}

func TestWriteReadRoundTrip(t *testing.T) {
	b := New(4096)
	src := pattern(3000)
	b.Write(src, 10*time.Millisecond)

	require.Equal(t, 3000, b.ReadableCount())
	require.Equal(t, 10*time.Millisecond, b.WriteTag())

	dst := make([]byte, 3000)
	require.NoError(t, b.Read(dst))
	assert.Equal(t, src, dst)
	assert.Equal(t, 0, b.ReadableCount())
	assert.Equal(t, 3000, b.RewindableCount())
}

func TestWrapAroundRoundTrip(t *testing.T) {
	b := New(1000)
	first := pattern(700)
	b.Write(first, time.Millisecond)

	dst := make([]byte, 700)
	require.NoError(t, b.Read(dst))

	// Second write wraps past the end of the backing array.
	second := pattern(600)
	b.Write(second, 2*time.Millisecond)

	dst = make([]byte, 600)
	require.NoError(t, b.Read(dst))
	assert.Equal(t, second, dst)
}

func TestReadUnderflowFails(t *testing.T) {
	b := New(100)
	b.Write(pattern(10), 0)

	err := b.Read(make([]byte, 11))
	require.Error(t, err)
	assert.Equal(t, 10, b.ReadableCount(), "failed read must not consume")
}

func TestRewindRestoresBytes(t *testing.T) {
	b := New(2048)
	src := pattern(1024)
	b.Write(src, 0)

	dst := make([]byte, 1024)
	require.NoError(t, b.Read(dst))

	n := b.Rewind(1024)
	require.Equal(t, 1024, n)
	require.Equal(t, 1024, b.ReadableCount())

	again := make([]byte, 1024)
	require.NoError(t, b.Read(again))
	assert.Equal(t, dst, again, "read after rewind must replay identical bytes")
}

func TestSkipAndRewindClamp(t *testing.T) {
	b := New(500)
	b.Write(pattern(200), 0)

	assert.Equal(t, 200, b.Skip(300), "skip clamps to readable count")
	assert.Equal(t, 0, b.ReadableCount())
	assert.Equal(t, 200, b.RewindableCount())

	assert.Equal(t, 200, b.Rewind(999), "rewind clamps to rewindable count")
	assert.Equal(t, 200, b.ReadableCount())
	assert.Equal(t, 0, b.RewindableCount())
}

func TestCapacityInvariant(t *testing.T) {
	b := New(256)
	dst := make([]byte, 64)

	check := func() {
		if b.ReadableCount()+b.RewindableCount() > b.Capacity() {
			t.Fatalf("invariant violated: readable=%d rewindable=%d capacity=%d",
				b.ReadableCount(), b.RewindableCount(), b.Capacity())
		}
	}

	for i := 0; i < 40; i++ {
		b.Write(pattern(48), time.Duration(i)*time.Millisecond)
		check()
		if b.ReadableCount() >= 64 {
			_ = b.Read(dst)
			check()
		}
		b.Skip(16)
		check()
		b.Rewind(24)
		check()
	}
}

func TestClearResetsTag(t *testing.T) {
	b := New(128)
	b.Write(pattern(64), 42*time.Millisecond)
	b.Clear()

	assert.Equal(t, TagUnset, b.WriteTag())
	assert.Equal(t, 0, b.ReadableCount())
	assert.Equal(t, 0, b.RewindableCount())
}

func TestCapacityPercent(t *testing.T) {
	b := New(1000)
	b.Write(pattern(250), 0)
	assert.InDelta(t, 0.25, b.CapacityPercent(), 1e-9)
}
