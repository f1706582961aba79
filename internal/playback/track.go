package playback

import (
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// TrackPlayer plays an MP3 audio track through the shared speaker. It stands
// in for the media player: its decoder offset is the playback clock.
type TrackPlayer struct {
	path     string
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	vol      *effects.Volume

	mu     sync.Mutex
	state  State
	volume float64
	queued bool
	events chan Event
}

// OpenTrack decodes the MP3 file at path. Playback starts with Play.
func OpenTrack(path string) (*TrackPlayer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open track %s: %w", path, err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3 %s: %w", path, err)
	}

	ctrl := &beep.Ctrl{Streamer: streamer, Paused: true}
	return &TrackPlayer{
		path:     path,
		streamer: streamer,
		format:   format,
		ctrl:     ctrl,
		vol:      &effects.Volume{Streamer: ctrl, Base: 2},
		volume:   1,
		events:   make(chan Event, eventBuffer),
	}, nil
}

func (p *TrackPlayer) Duration() time.Duration {
	return p.format.SampleRate.D(p.streamer.Len())
}

func (p *TrackPlayer) Position() (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateStopped {
		return 0, ErrUnavailable
	}
	return p.positionLocked(), nil
}

func (p *TrackPlayer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *TrackPlayer) Events() <-chan Event {
	return p.events
}

// SetVolume maps a linear volume onto the exponential gain of effects.Volume.
func (p *TrackPlayer) SetVolume(volume float64) error {
	volume = clampVolume(volume)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume

	speaker.Lock()
	defer speaker.Unlock()
	if volume == 0 {
		p.vol.Silent = true
		return nil
	}
	p.vol.Silent = false
	p.vol.Volume = math.Log2(volume)
	return nil
}

func (p *TrackPlayer) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

func (p *TrackPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StatePlaying:
		return nil
	case StateEnded, StateStopped:
		return fmt.Errorf("cannot play: playback %s", p.state)
	}

	if !p.queued {
		out, err := Adapt(p.format.SampleRate, p.vol)
		if err != nil {
			return err
		}
		// The callback runs on the speaker goroutine with the speaker lock
		// held, so it must not block on p.mu.
		speaker.Play(beep.Seq(out, beep.Callback(func() { go p.finish() })))
		p.queued = true
	}

	speaker.Lock()
	p.ctrl.Paused = false
	speaker.Unlock()

	p.state = StatePlaying
	p.emitLocked()
	return nil
}

func (p *TrackPlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePlaying {
		return nil
	}
	speaker.Lock()
	p.ctrl.Paused = true
	speaker.Unlock()

	p.state = StatePaused
	p.emitLocked()
	return nil
}

func (p *TrackPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state.Terminal() {
		return nil
	}
	speaker.Lock()
	p.ctrl.Streamer = nil
	speaker.Unlock()

	p.state = StateStopped
	p.emitLocked()
	return p.streamer.Close()
}

func (p *TrackPlayer) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePlaying {
		return
	}
	p.state = StateEnded
	p.emitLocked()
}

func (p *TrackPlayer) positionLocked() int64 {
	speaker.Lock()
	pos := p.streamer.Position()
	speaker.Unlock()
	return p.format.SampleRate.D(pos).Milliseconds()
}

func (p *TrackPlayer) emitLocked() {
	ev := Event{State: p.state, PositionMs: p.positionLocked()}
	select {
	case p.events <- ev:
	default:
	}
}
