// ABOUTME: Single-set multi-wait readiness latch
// ABOUTME: Lets initialization block until the first pull callback fires
package render

import (
	"context"
	"sync"
)

// OneShot is a settable-once event. Any number of goroutines can wait on
// it; Set releases them all and is safe to call repeatedly.
type OneShot struct {
	once sync.Once
	ch   chan struct{}
}

// NewOneShot creates an unset latch.
func NewOneShot() *OneShot {
	return &OneShot{ch: make(chan struct{})}
}

// Set fires the latch. Subsequent calls are no-ops.
func (o *OneShot) Set() {
	o.once.Do(func() { close(o.ch) })
}

// IsSet reports whether the latch has fired.
func (o *OneShot) IsSet() bool {
	select {
	case <-o.ch:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the latch fires.
func (o *OneShot) Done() <-chan struct{} { return o.ch }

// Wait blocks until the latch fires or the context ends.
func (o *OneShot) Wait(ctx context.Context) error {
	select {
	case <-o.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
