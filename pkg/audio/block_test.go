// ABOUTME: Tests for the decoded block chain
// ABOUTME: Timestamps, end calculation, and chain building
package audio

import (
	"testing"
	"time"
)

func TestBlockEnd(t *testing.T) {
	f := DefaultFormat()
	b := NewBlock(time.Second, make([]byte, f.BytesFor(100*time.Millisecond)))
	want := time.Second + 100*time.Millisecond
	diff := b.End(f) - want
	if diff < 0 {
		diff = -diff
	}
	if diff > f.DurationFor(f.FrameSize()) {
		t.Errorf("End() = %v, want ~%v", b.End(f), want)
	}
}

func TestBlockChain(t *testing.T) {
	head := NewBlock(0, []byte{1, 2, 3, 4})
	tail := head.Append(NewBlock(10, []byte{5, 6, 7, 8})).Append(NewBlock(20, nil))

	if tail.Start() != 20 {
		t.Errorf("Append did not return the appended block")
	}

	var starts []time.Duration
	for b := head; b != nil; b = b.Next() {
		starts = append(starts, b.Start())
	}
	if len(starts) != 3 || starts[0] != 0 || starts[1] != 10 || starts[2] != 20 {
		t.Errorf("chain traversal = %v", starts)
	}
}
