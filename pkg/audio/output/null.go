// ABOUTME: Null output device for headless runs and missing hardware
// ABOUTME: A timer pump drains the render source at the configured latency
package output

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mediafold/renderwave/pkg/audio"
)

// Null pulls from the render source on a wall-clock timer and discards the
// samples. It keeps the render loop's timing behavior intact when no
// hardware is available, and drives the engine in tests.
type Null struct {
	latency time.Duration
	pull    []byte
	src     io.Reader

	running atomic.Bool
	done    chan struct{}
	once    sync.Once
}

// NewNull creates a null device pulling one latency worth of bytes per tick.
func NewNull(f audio.Format, latency time.Duration, src io.Reader) *Null {
	if latency <= 0 {
		latency = DefaultLatency
	}
	n := &Null{
		latency: latency,
		pull:    make([]byte, f.BytesFor(latency)),
		src:     src,
		done:    make(chan struct{}),
	}
	go n.run()
	return n
}

func (n *Null) run() {
	ticker := time.NewTicker(n.latency)
	defer ticker.Stop()

	for {
		select {
		case <-n.done:
			return
		case <-ticker.C:
			if n.running.Load() {
				_, _ = io.ReadFull(n.src, n.pull)
			}
		}
	}
}

// Start begins pulling.
func (n *Null) Start() error {
	n.running.Store(true)
	return nil
}

// Pause stops pulling without closing.
func (n *Null) Pause() error {
	n.running.Store(false)
	return nil
}

// Close stops the pump. Idempotent.
func (n *Null) Close() error {
	n.running.Store(false)
	n.once.Do(func() { close(n.done) })
	return nil
}

// DesiredLatency returns the configured pull interval.
func (n *Null) DesiredLatency() time.Duration { return n.latency }
