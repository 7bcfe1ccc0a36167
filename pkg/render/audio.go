// ABOUTME: The audio render loop: buffer ingestion, sync, rate, gain
// ABOUTME: Implements the device pull callback as an io.Reader that never blocks long
package render

import (
	"context"
	"encoding/binary"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mediafold/renderwave/pkg/audio"
	"github.com/mediafold/renderwave/pkg/audio/gain"
	"github.com/mediafold/renderwave/pkg/audio/output"
	"github.com/mediafold/renderwave/pkg/audio/rate"
	"github.com/mediafold/renderwave/pkg/audio/ring"
	"github.com/mediafold/renderwave/pkg/audio/tempo"
	"github.com/mediafold/renderwave/pkg/media"
)

// State is the renderer lifecycle state.
type State int32

const (
	StateUninitialized State = iota
	StateInitialized
	StatePlaying
	StatePaused
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Lock acquisition budgets. The producer gives up quickly and drops the
// cycle; the consumer waits a little longer but must stay inside the
// device callback deadline.
const (
	producerLockTimeout = 10 * time.Millisecond
	consumerLockTimeout = 40 * time.Millisecond
)

// DefaultFeedThreshold stops buffer ingestion once this capacity fraction
// is readable, bounding lookahead memory.
const DefaultFeedThreshold = 0.75

// blockCapacityFactor sizes the ring from the device latency.
const blockCapacityFactor = 24

// Options configures an AudioRenderer.
type Options struct {
	// DeviceAPI selects the output backend (output.APIModern, APILegacy,
	// APINull). Empty selects the modern API.
	DeviceAPI string

	// DeviceID selects an output device by name substring.
	DeviceID string

	// DesiredLatency is the requested device callback latency.
	DesiredLatency time.Duration

	// BufferDuration overrides the latency-derived ring buffer size when > 0.
	BufferDuration time.Duration

	// DisableSync turns off all clock correction.
	DisableSync bool

	// UseTempoProcessor routes non-unit speed ratios through the
	// pitch-preserving tempo stage instead of stretch/shrink.
	UseTempoProcessor bool

	// FirstFrameOnly selects the cheaper shrink mode.
	FirstFrameOnly bool

	// FeedThreshold overrides DefaultFeedThreshold when > 0.
	FeedThreshold float64
}

func (o Options) feedThreshold() float64 {
	if o.FeedThreshold > 0 {
		return o.FeedThreshold
	}
	return DefaultFeedThreshold
}

// AudioRenderer pulls decoded audio through synchronization, rate
// conversion and gain shaping into an output device. It implements
// media.Sink and io.Reader; the device drives Read from its own real-time
// callback thread while the decode side pushes blocks through Render.
type AudioRenderer struct {
	format  audio.Format
	session *media.Session
	opts    Options

	lock      *timedLock
	buffer    *ring.Buffer
	conv      *rate.Converter
	stretcher *tempo.Stretcher
	syncr     *Synchronizer
	device    output.Device

	state atomic.Int32
	ready *OneShot

	deviceStopped atomic.Bool
	stopLogOnce   sync.Once
	silentMode    bool

	// Preallocated scratch for the tempo path; the pull callback must not
	// allocate in the steady state.
	feedBuf  []byte
	tempoIn  []int16
	tempoOut []int16
}

// NewAudioRenderer creates a renderer bound to a session. Call OnStarting
// before feeding it.
func NewAudioRenderer(f audio.Format, session *media.Session, opts Options) *AudioRenderer {
	return &AudioRenderer{
		format:  f,
		session: session,
		opts:    opts,
		lock:    newTimedLock(),
		ready:   NewOneShot(),
	}
}

// Kind identifies this sink as the audio renderer.
func (r *AudioRenderer) Kind() media.SinkKind { return media.SinkAudio }

// Format returns the PCM format this renderer was created with.
func (r *AudioRenderer) Format() audio.Format { return r.format }

// SilentMode reports whether the renderer fell back to the null device
// because no output hardware was usable.
func (r *AudioRenderer) SilentMode() bool { return r.silentMode }

// State returns the current lifecycle state.
func (r *AudioRenderer) State() State { return State(r.state.Load()) }

// WaitReady blocks until the device has invoked the pull callback at least
// once, or the context ends.
func (r *AudioRenderer) WaitReady(ctx context.Context) error {
	return r.ready.Wait(ctx)
}

// OnStarting allocates the device, ring buffer, converter and optional
// tempo stage, and starts the device pull loop. A missing output device is
// not fatal: the renderer falls back to a silent null device so startup
// sequencing is never blocked.
func (r *AudioRenderer) OnStarting() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.State() != StateUninitialized {
		return nil
	}

	latency := r.opts.DesiredLatency
	if latency <= 0 {
		latency = output.DefaultLatency
	}

	capacity := ring.SizeFor(r.format, latency, blockCapacityFactor)
	if r.opts.BufferDuration > 0 {
		capacity = r.format.BytesFor(r.opts.BufferDuration)
	}
	r.buffer = ring.New(capacity)
	r.conv = rate.New(r.format, 0)
	r.conv.FirstFrameOnly = r.opts.FirstFrameOnly
	r.syncr = NewSynchronizer(r.format, r.opts.DisableSync)
	if r.opts.UseTempoProcessor {
		r.stretcher = tempo.New(r.format)
	}

	feedBytes := r.format.BytesFor(100 * time.Millisecond)
	r.feedBuf = make([]byte, feedBytes)
	r.tempoIn = make([]int16, feedBytes/audio.BytesPerSample)
	r.tempoOut = make([]int16, feedBytes/audio.BytesPerSample)

	dev, err := output.Open(output.Config{
		API:            r.opts.DeviceAPI,
		DeviceID:       r.opts.DeviceID,
		DesiredLatency: latency,
		Format:         r.format,
	}, r)
	if err != nil {
		log.Printf("Warning: no usable output device (%v); rendering silently", err)
		dev = output.NewNull(r.format, latency, r)
		r.silentMode = true
	}
	r.device = dev

	if err := r.device.Start(); err != nil {
		log.Printf("Warning: output device failed to start: %v", err)
		r.deviceStopped.Store(true)
	}

	r.state.Store(int32(StateInitialized))
	return nil
}

// Render pushes decoded blocks into the ring buffer. It is called from the
// decode/dispatch side, never the audio thread. Blocks already written
// (at or before the current write tag) are passed over; ingestion stops at
// the feed threshold so lookahead stays bounded. Contention is resolved by
// dropping the cycle, not by waiting.
func (r *AudioRenderer) Render(block *audio.Block, clock time.Duration) {
	if block == nil || r.State() == StateClosed || r.State() == StateUninitialized {
		return
	}
	if r.session.IsSeeking() {
		return
	}
	if r.deviceStopped.Load() {
		r.stopLogOnce.Do(func() {
			log.Printf("Warning: output device stopped; audio blocks are being discarded")
		})
		return
	}
	if !r.lock.TryLockFor(producerLockTimeout) {
		return
	}
	defer r.lock.Unlock()

	threshold := r.opts.feedThreshold()
	for b := block; b != nil; b = b.Next() {
		if r.buffer.CapacityPercent() >= threshold {
			break
		}
		if tag := r.buffer.WriteTag(); tag != ring.TagUnset && b.Start() <= tag {
			continue
		}
		r.buffer.Write(b.Data(), b.Start())
	}
}

// Update is the periodic housekeeping hook. The audio renderer needs none.
func (r *AudioRenderer) Update(clock time.Duration) {}

// Read is the device pull callback. It always fills p completely and never
// returns an error: on contention, starvation or any internal failure the
// output is silence. Panics are absorbed here so nothing propagates across
// the device's native callback boundary.
func (r *AudioRenderer) Read(p []byte) (n int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("Warning: audio render callback recovered: %v", rec)
			audio.Silence(p)
			n, err = len(p), nil
		}
	}()

	r.ready.Set()

	if len(p) == 0 {
		return 0, nil
	}
	if r.State() == StateClosed || r.deviceStopped.Load() {
		audio.Silence(p)
		return len(p), nil
	}
	if !r.lock.TryLockFor(consumerLockTimeout) {
		audio.Silence(p)
		return len(p), nil
	}
	defer r.lock.Unlock()

	speed := r.session.SpeedRatio()
	if r.State() != StatePlaying || speed <= 0 || !r.session.HasAudio() ||
		r.session.IsSeeking() || r.buffer.ReadableCount() == 0 {
		audio.Silence(p)
		return len(p), nil
	}

	if !r.syncr.Apply(r.buffer, r.session.Position(), len(p), speed, r.session.IsSeekable()) {
		audio.Silence(p)
		return len(p), nil
	}

	if r.stretcher != nil && speed != 1.0 {
		r.readThroughTempo(p, speed)
	} else {
		if status := r.conv.Process(r.buffer, p, speed); status == rate.Resync {
			r.buffer.Clear()
		}
	}

	gain.Apply(p, r.session.Gain())
	return len(p), nil
}

// readThroughTempo feeds ring bytes into the tempo stage until it has the
// requested frame count queued, then drains exactly that many frames.
func (r *AudioRenderer) readThroughTempo(p []byte, speed float64) {
	st := r.stretcher
	st.SetSpeed(speed)

	frameSize := r.format.FrameSize()
	neededFrames := len(p) / frameSize

	for st.OutputFrames() < neededFrames {
		chunk := r.buffer.ReadableCount()
		if chunk > len(r.feedBuf) {
			chunk = len(r.feedBuf)
		}
		chunk = r.format.AlignToFrame(chunk)
		if chunk == 0 {
			break
		}
		if err := r.buffer.Read(r.feedBuf[:chunk]); err != nil {
			break
		}
		samples := chunk / audio.BytesPerSample
		for i := 0; i < samples; i++ {
			r.tempoIn[i] = int16(binary.LittleEndian.Uint16(r.feedBuf[i*audio.BytesPerSample:]))
		}
		st.Write(r.tempoIn[:samples])
	}

	if st.OutputFrames() < neededFrames {
		audio.Silence(p)
		return
	}

	want := neededFrames * r.format.Channels
	if len(r.tempoOut) < want {
		r.tempoOut = make([]int16, want)
	}
	st.Read(r.tempoOut[:want])
	audio.PutSamples(p, r.tempoOut[:want])
	if rem := len(p) % audio.BytesPerSample; rem != 0 {
		audio.Silence(p[len(p)-rem:])
	}
}

// OnPlay resumes the device and restarts sync tracking.
func (r *AudioRenderer) OnPlay() {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.State() == StateClosed || r.State() == StateUninitialized {
		return
	}
	if err := r.device.Start(); err != nil {
		log.Printf("Warning: output device failed to start: %v", err)
		r.deviceStopped.Store(true)
	}
	r.syncr.ResetSession()
	r.state.Store(int32(StatePlaying))
}

// OnPause suspends the device and restarts sync tracking.
func (r *AudioRenderer) OnPause() {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.State() != StatePlaying {
		return
	}
	if err := r.device.Pause(); err != nil {
		log.Printf("Warning: output device failed to pause: %v", err)
	}
	r.syncr.ResetSession()
	r.state.Store(int32(StatePaused))
}

// OnStop pauses the device and discards all buffered audio.
func (r *AudioRenderer) OnStop() {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.State() == StateClosed || r.State() == StateUninitialized {
		return
	}
	if err := r.device.Pause(); err != nil {
		log.Printf("Warning: output device failed to pause: %v", err)
	}
	r.clearLocked()
	r.state.Store(int32(StateInitialized))
}

// OnSeek discards buffered audio and conversion state; the device keeps
// running. An in-flight pull callback that loses the lock race simply
// renders silence for that cycle.
func (r *AudioRenderer) OnSeek() {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.State() == StateClosed || r.State() == StateUninitialized {
		return
	}
	r.clearLocked()
}

// OnClose tears down the device and buffers. Idempotent.
func (r *AudioRenderer) OnClose() {
	if State(r.state.Swap(int32(StateClosed))) == StateClosed {
		return
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if r.device != nil {
		if err := r.device.Close(); err != nil {
			log.Printf("Warning: output device close error: %v", err)
		}
		r.device = nil
	}
	if r.buffer != nil {
		r.buffer.Clear()
	}
	r.stretcher = nil
}

// clearLocked resets the ring and conversion state. Caller holds the lock.
func (r *AudioRenderer) clearLocked() {
	r.buffer.Clear()
	r.conv.Reset()
	if r.stretcher != nil {
		r.stretcher.Reset()
	}
}
