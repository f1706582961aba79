package subsync

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"subnarrate/internal/playback"
)

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type fakeClock struct {
	mu      sync.Mutex
	pos     int64
	err     error
	state   playback.State
	volumes []float64
	events  chan playback.Event
}

func newFakeClock(state playback.State) *fakeClock {
	return &fakeClock{state: state, events: make(chan playback.Event, 16)}
}

func (c *fakeClock) Position() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos, c.err
}

func (c *fakeClock) State() playback.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *fakeClock) Events() <-chan playback.Event { return c.events }

func (c *fakeClock) SetVolume(v float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.volumes = append(c.volumes, v)
	return nil
}

func (c *fakeClock) setPosition(pos int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = pos
}

func (c *fakeClock) transition(s playback.State) {
	c.mu.Lock()
	c.state = s
	pos := c.pos
	c.mu.Unlock()
	c.events <- playback.Event{State: s, PositionMs: pos}
}

func (c *fakeClock) volumeLog() []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]float64(nil), c.volumes...)
}

func (c *fakeClock) lastVolume() (float64, bool) {
	v := c.volumeLog()
	if len(v) == 0 {
		return 0, false
	}
	return v[len(v)-1], true
}

type utteranceCall struct {
	text string
	rate float64
	ctx  context.Context
}

type fakeNarrator struct {
	mu    sync.Mutex
	calls []utteranceCall
	stops int
	err   error
	block bool
}

func (n *fakeNarrator) Speak(ctx context.Context, text string, rate float64) error {
	n.mu.Lock()
	n.calls = append(n.calls, utteranceCall{text: text, rate: rate, ctx: ctx})
	block, err := n.block, n.err
	n.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (n *fakeNarrator) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stops++
	return nil
}

func (n *fakeNarrator) snapshot() ([]utteranceCall, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]utteranceCall(nil), n.calls...), n.stops
}

type fakeRenderer struct {
	mu    sync.Mutex
	shown []string
	hides int
}

func (r *fakeRenderer) Show(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shown = append(r.shown, text)
}

func (r *fakeRenderer) Hide() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hides++
}

func (r *fakeRenderer) snapshot() ([]string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.shown...), r.hides
}

// eventually polls cond until it holds or a second passes.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}
