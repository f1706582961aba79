package subsync

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// Narrator speaks text at a rate multiplier. Speak must interrupt any
// previous utterance.
type Narrator interface {
	Speak(ctx context.Context, text string, rate float64) error
	Stop() error
}

// VolumeControl is the media track's output volume (0 silent, 1 full).
type VolumeControl interface {
	SetVolume(volume float64) error
}

// Renderer displays subtitle text.
type Renderer interface {
	Show(text string)
	Hide()
}

// NarrationState is whether an utterance currently owns the media volume.
type NarrationState int

const (
	Idle NarrationState = iota
	Narrating
)

func (s NarrationState) String() string {
	if s == Narrating {
		return "narrating"
	}
	return "idle"
}

type utterance struct {
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// Coordinator applies sync events to the renderer, the media volume and the
// narrator. With a nil narrator it only toggles subtitle text.
type Coordinator struct {
	volume   VolumeControl
	narrator Narrator
	renderer Renderer
	log      *logrus.Entry

	mu       sync.Mutex
	state    NarrationState
	gen      uint64
	inflight *utterance
	last     *utterance

	// speakMu keeps a superseded request from reaching the narrator after
	// its replacement.
	speakMu sync.Mutex
}

func NewCoordinator(volume VolumeControl, narrator Narrator, renderer Renderer, log *logrus.Entry) *Coordinator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Coordinator{
		volume:   volume,
		narrator: narrator,
		renderer: renderer,
		log:      log,
	}
}

// NarrationEnabled reports whether a narrator is attached.
func (c *Coordinator) NarrationEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.narrator != nil
}

func (c *Coordinator) State() NarrationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Apply handles one tick result.
func (c *Coordinator) Apply(ctx context.Context, ev SyncEvent) {
	if ev.Kind != EventNone {
		eventsTotal.WithLabelValues(ev.Kind.String()).Inc()
	}

	switch ev.Kind {
	case EventShow:
		c.renderer.Show(ev.Cue.Text)
		rate, ok := ev.SpeechRate()
		if !ok || !c.startNarration(ctx, ev.Cue.Text, rate) {
			return
		}

		c.log.WithFields(logrus.Fields{
			"cue":       ev.Cue.ID,
			"rate":      rate,
			"raw_rate":  ev.Estimate.RawRate,
			"words":     ev.Estimate.Words,
			"syllables": ev.Estimate.Syllables,
		}).Debug("Narrating cue")

	case EventHide:
		c.renderer.Hide()
		c.Halt()
	}
}

// Halt stops narration and restores the media volume. Calling it while
// idle is a no-op.
func (c *Coordinator) Halt() {
	c.mu.Lock()
	n := c.narrator
	if n == nil || c.state == Idle && c.inflight == nil {
		c.mu.Unlock()
		return
	}
	c.cancelLocked()
	c.mu.Unlock()

	c.stopAndRestore(n)
}

// DisableNarration stops any utterance, restores the media volume and
// detaches the narrator, so later cues are shown without being spoken. It
// reports false when narration was already off.
func (c *Coordinator) DisableNarration() bool {
	c.mu.Lock()
	n := c.narrator
	if n == nil {
		c.mu.Unlock()
		return false
	}
	c.narrator = nil
	c.cancelLocked()
	c.mu.Unlock()

	c.stopAndRestore(n)
	c.log.Info("Narration turned off")
	return true
}

func (c *Coordinator) stopAndRestore(n Narrator) {
	// A cancelled request still holds speakMu until the narrator returns;
	// stopping after it guarantees nothing starts speaking behind us.
	c.speakMu.Lock()
	if err := n.Stop(); err != nil {
		c.log.WithError(err).Warn("Failed to stop narration")
	}
	c.speakMu.Unlock()

	c.mu.Lock()
	c.restoreLocked()
	c.mu.Unlock()
}

// Wait blocks until the in-flight narration request returns.
func (c *Coordinator) Wait() {
	c.mu.Lock()
	u := c.last
	c.mu.Unlock()
	if u != nil {
		<-u.done
	}
}

// startNarration reports false when no narrator is attached.
func (c *Coordinator) startNarration(ctx context.Context, text string, rate float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.narrator
	if n == nil {
		return false
	}
	c.cancelLocked()
	if err := c.volume.SetVolume(0); err != nil {
		c.log.WithError(err).Warn("Failed to mute playback")
	}
	c.state = Narrating
	speechRate.Observe(rate)

	c.gen++
	uctx, cancel := context.WithCancel(ctx)
	u := &utterance{gen: c.gen, cancel: cancel, done: make(chan struct{})}
	c.inflight = u
	c.last = u

	// Cloud narrators block on the network, so the request never runs on
	// the polling goroutine.
	go func() {
		defer close(u.done)
		defer cancel()

		c.speakMu.Lock()
		if uctx.Err() != nil {
			c.speakMu.Unlock()
			return
		}
		err := n.Speak(uctx, text, rate)
		c.speakMu.Unlock()
		if err == nil || errors.Is(err, context.Canceled) {
			return
		}

		narrationFailuresTotal.Inc()
		c.log.WithError(err).Warn("Narration failed, showing subtitle only")

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen == u.gen {
			c.restoreLocked()
		}
	}()
	return true
}

func (c *Coordinator) cancelLocked() {
	if c.inflight != nil {
		c.inflight.cancel()
		c.inflight = nil
	}
}

func (c *Coordinator) restoreLocked() {
	if c.state == Narrating {
		if err := c.volume.SetVolume(1); err != nil {
			c.log.WithError(err).Warn("Failed to restore playback volume")
		}
	}
	c.state = Idle
}
