// ABOUTME: Entry point for the renderwave demo player
// ABOUTME: Parses CLI flags, feeds a tone or MP3 source through the audio renderer
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mediafold/renderwave/internal/config"
	"github.com/mediafold/renderwave/internal/source"
	"github.com/mediafold/renderwave/pkg/audio"
	"github.com/mediafold/renderwave/pkg/audio/output"
	"github.com/mediafold/renderwave/pkg/media"
	"github.com/mediafold/renderwave/pkg/render"
)

var (
	configPath = flag.String("config", "", "Path to YAML config file (optional)")
	mp3Path    = flag.String("mp3", "", "MP3 file to play (default: 440Hz test tone)")
	speed      = flag.Float64("speed", 1.0, "Playback speed ratio")
	volume     = flag.Float64("volume", 1.0, "Volume, 0.0 to 1.0")
	balance    = flag.Float64("balance", 0.0, "Balance, -1.0 (left) to 1.0 (right)")
	duration   = flag.Duration("duration", 10*time.Second, "How long to play (tone only)")
	listDevs   = flag.Bool("list-devices", false, "List playback devices and exit")
)

// blockSource yields timestamped PCM blocks for the render loop.
type blockSource interface {
	NextBlock(d time.Duration) (*audio.Block, error)
}

// toneSource adapts the infallible tone generator to blockSource.
type toneSource struct{ tone *source.Tone }

func (t toneSource) NextBlock(d time.Duration) (*audio.Block, error) {
	return t.tone.NextBlock(d), nil
}

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("error loading config: %v", err)
		}
	}

	if *listDevs {
		if err := listDevices(); err != nil {
			log.Fatalf("error listing devices: %v", err)
		}
		return
	}

	format := audio.DefaultFormat()
	var (
		src   blockSource
		total = *duration
	)
	if *mp3Path != "" {
		f, err := source.OpenMP3(*mp3Path)
		if err != nil {
			log.Fatalf("error opening %s: %v", *mp3Path, err)
		}
		defer func() { _ = f.Close() }()
		format = f.Format()
		src = f
		if d := f.Duration(); d > 0 {
			total = d
		}
		log.Printf("Playing %s (%v, %d Hz)", *mp3Path, total.Round(time.Second), format.SampleRate)
	} else {
		src = toneSource{tone: source.NewTone(format, 440, 0.5)}
		log.Printf("Playing 440Hz test tone for %v", total)
	}

	session := media.NewSession()
	session.SetSpeedRatio(*speed)
	session.SetVolume(*volume)
	session.SetBalance(*balance)

	renderer := render.NewAudioRenderer(format, session, cfg.RenderOptions())
	if err := renderer.OnStarting(); err != nil {
		log.Fatalf("error starting renderer: %v", err)
	}
	defer renderer.OnClose()

	if renderer.SilentMode() {
		log.Printf("No playback device available, running silent")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session.SetPlaying(true)
	renderer.OnPlay()

	if err := pump(ctx, renderer, session, src, total); err != nil {
		log.Fatalf("playback error: %v", err)
	}

	renderer.OnStop()
	log.Printf("Done")
}

func listDevices() error {
	names, err := output.ListDevices()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		log.Printf("No playback devices found")
		return nil
	}
	for _, name := range names {
		log.Printf("  %s", name)
	}
	return nil
}

// pump drives the playback clock, keeping a bounded lookahead of decoded
// blocks fed to the renderer until the source ends or the deadline passes.
func pump(ctx context.Context, renderer *render.AudioRenderer, session *media.Session, src blockSource, total time.Duration) error {
	const (
		feedInterval = 50 * time.Millisecond
		lookahead    = 500 * time.Millisecond
	)

	ticker := time.NewTicker(feedInterval)
	defer ticker.Stop()

	start := time.Now()
	var fed time.Duration
	drained := false
	for {
		select {
		case <-ctx.Done():
			log.Printf("Interrupted")
			return nil
		case <-ticker.C:
		}

		clock := time.Duration(float64(time.Since(start)) * session.SpeedRatio())
		session.SetPosition(clock)
		if clock >= total {
			return nil
		}

		for !drained && fed < clock+lookahead {
			block, err := src.NextBlock(feedInterval)
			if err != nil {
				return err
			}
			if block == nil {
				// Source exhausted; keep the clock running until
				// the buffered tail plays out.
				drained = true
				break
			}
			fed = block.End(renderer.Format())
			renderer.Render(block, clock)
		}
	}
}
