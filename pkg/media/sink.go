// ABOUTME: Render sink kinds and the common sink lifecycle contract
// ABOUTME: Audio, video, subtitle, data and closed-caption sinks share it
package media

import (
	"time"

	"github.com/mediafold/renderwave/pkg/audio"
)

// SinkKind tags the media stream a sink renders.
type SinkKind int

const (
	SinkAudio SinkKind = iota
	SinkVideo
	SinkSubtitle
	SinkData
	SinkClosedCaptions
)

// String returns the kind name.
func (k SinkKind) String() string {
	switch k {
	case SinkAudio:
		return "audio"
	case SinkVideo:
		return "video"
	case SinkSubtitle:
		return "subtitle"
	case SinkData:
		return "data"
	case SinkClosedCaptions:
		return "closedcaptions"
	default:
		return "unknown"
	}
}

// Sink is the lifecycle contract every renderer kind implements. Lifecycle
// calls come from the external playback controller; Render comes from the
// decode/dispatch side with the current playback clock.
type Sink interface {
	Kind() SinkKind

	// OnStarting allocates device resources before the first Render.
	OnStarting() error

	OnPlay()
	OnPause()
	OnStop()
	OnSeek()
	OnClose()

	// Render pushes a decoded block chain toward the sink.
	Render(block *audio.Block, clock time.Duration)

	// Update is a periodic housekeeping hook.
	Update(clock time.Duration)
}
