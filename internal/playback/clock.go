package playback

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ClockPlayer simulates media of a fixed duration. Its position advances with
// the wall clock while playing; volume is only recorded.
type ClockPlayer struct {
	duration time.Duration
	now      func() time.Time

	mu        sync.Mutex
	state     State
	offset    time.Duration
	startedAt time.Time
	volume    float64
	timer     *time.Timer
	events    chan Event
}

func NewClockPlayer(duration time.Duration) *ClockPlayer {
	return newClockPlayer(duration, time.Now)
}

func newClockPlayer(duration time.Duration, now func() time.Time) *ClockPlayer {
	return &ClockPlayer{
		duration: duration,
		now:      now,
		volume:   1,
		events:   make(chan Event, eventBuffer),
	}
}

func (p *ClockPlayer) Duration() time.Duration {
	return p.duration
}

func (p *ClockPlayer) Position() (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateStopped {
		return 0, ErrUnavailable
	}
	return p.elapsedLocked().Milliseconds(), nil
}

func (p *ClockPlayer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *ClockPlayer) Events() <-chan Event {
	return p.events
}

func (p *ClockPlayer) SetVolume(volume float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = clampVolume(volume)
	return nil
}

func (p *ClockPlayer) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

func (p *ClockPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StatePlaying:
		return nil
	case StateEnded, StateStopped:
		return fmt.Errorf("cannot play: playback %s", p.state)
	}

	p.startedAt = p.now()
	p.state = StatePlaying
	p.timer = time.AfterFunc(p.duration-p.offset, p.finish)
	p.emitLocked()
	return nil
}

func (p *ClockPlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePlaying {
		return nil
	}
	p.offset = p.elapsedLocked()
	p.stopTimerLocked()
	p.state = StatePaused
	p.emitLocked()
	return nil
}

func (p *ClockPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state.Terminal() {
		return nil
	}
	p.offset = p.elapsedLocked()
	p.stopTimerLocked()
	p.state = StateStopped
	p.emitLocked()
	return nil
}

func (p *ClockPlayer) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePlaying {
		return
	}
	p.offset = p.duration
	p.timer = nil
	p.state = StateEnded
	p.emitLocked()
}

func (p *ClockPlayer) elapsedLocked() time.Duration {
	elapsed := p.offset
	if p.state == StatePlaying {
		elapsed += p.now().Sub(p.startedAt)
	}
	if elapsed > p.duration {
		elapsed = p.duration
	}
	return elapsed
}

func (p *ClockPlayer) stopTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *ClockPlayer) emitLocked() {
	ev := Event{State: p.state, PositionMs: p.elapsedLocked().Milliseconds()}
	select {
	case p.events <- ev:
	default:
		logrus.WithField("state", ev.State).Warn("Playback event dropped, no reader")
	}
}
