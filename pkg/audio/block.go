// ABOUTME: Decoded sample block chain
// ABOUTME: Time-ordered linked blocks produced by an upstream decode pipeline
package audio

import "time"

// Block is a decoded chunk of interleaved 16-bit stereo PCM. Blocks are
// owned by the decode pipeline; the engine only copies bytes out of them.
type Block struct {
	start time.Duration
	data  []byte
	next  *Block
}

// NewBlock creates a block with the given start timestamp and payload.
func NewBlock(start time.Duration, data []byte) *Block {
	return &Block{start: start, data: data}
}

// Start returns the block's presentation timestamp.
func (b *Block) Start() time.Duration { return b.start }

// Data returns the block's PCM payload.
func (b *Block) Data() []byte { return b.data }

// Len returns the payload byte length.
func (b *Block) Len() int { return len(b.data) }

// End returns the timestamp just past the block's last sample.
func (b *Block) End(f Format) time.Duration {
	return b.start + f.DurationFor(len(b.data))
}

// Next returns the block that follows this one, or nil.
func (b *Block) Next() *Block { return b.next }

// Append links a block after this one and returns it, so producers can
// build chains: head.Append(...).Append(...).
func (b *Block) Append(next *Block) *Block {
	b.next = next
	return next
}
