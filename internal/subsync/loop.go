package subsync

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"subnarrate/internal/domain/cue"
	"subnarrate/internal/playback"
)

const DefaultPollInterval = 300 * time.Millisecond

// Clock is the part of a playback source the loop reads from.
type Clock interface {
	VolumeControl
	Position() (int64, error)
	State() playback.State
	Events() <-chan playback.Event
}

// Loop polls the playback clock while media is playing and feeds the result
// through the engine into the coordinator. SyncState is only touched by the
// goroutine running Run.
type Loop struct {
	engine   *Engine
	cues     []cue.Cue
	clock    Clock
	coord    *Coordinator
	interval time.Duration
	log      *logrus.Entry

	state SyncState

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewLoop(engine *Engine, cues []cue.Cue, clock Clock, coord *Coordinator, interval time.Duration, log *logrus.Entry) *Loop {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Loop{
		engine:   engine,
		cues:     cues,
		clock:    clock,
		coord:    coord,
		interval: interval,
		log:      log,
	}
}

// Run blocks until playback ends or stops, Stop is called, or ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	l.mu.Lock()
	l.cancel = cancel
	l.mu.Unlock()
	defer cancel()

	var ticker *time.Ticker
	var tick <-chan time.Time
	start := func() {
		if ticker != nil {
			return
		}
		ticker = time.NewTicker(l.interval)
		tick = ticker.C
		l.Tick(ctx)
	}
	halt := func() {
		if ticker != nil {
			ticker.Stop()
			ticker, tick = nil, nil
		}
		l.coord.Halt()
	}
	defer halt()

	if l.clock.State() == playback.StatePlaying {
		start()
	}

	events := l.clock.Events()
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			l.log.WithFields(logrus.Fields{
				"state":    ev.State,
				"position": ev.PositionMs,
			}).Debug("Playback state changed")

			switch {
			case ev.State == playback.StatePlaying:
				start()
			case ev.State.Terminal():
				halt()
				l.clear(ctx)
				return nil
			default:
				halt()
			}

		case <-tick:
			l.Tick(ctx)
		}
	}
}

// Tick runs one poll. A position the clock cannot report skips the tick.
func (l *Loop) Tick(ctx context.Context) SyncEvent {
	if l.clock.State() != playback.StatePlaying {
		return SyncEvent{Kind: EventNone}
	}

	pos, err := l.clock.Position()
	if err != nil {
		skippedTicksTotal.Inc()
		l.log.WithError(err).Debug("Skipping tick")
		return SyncEvent{Kind: EventNone}
	}
	ticksTotal.Inc()

	ev := l.engine.OnTick(pos, l.cues, &l.state, l.coord.NarrationEnabled())
	l.coord.Apply(ctx, ev)
	return ev
}

// Stop cancels a running loop. Calling it more than once, or before Run,
// does nothing.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
}

// State returns a copy of the sync state. Only safe once Run has returned
// or from the Run goroutine.
func (l *Loop) State() SyncState {
	return l.state
}

func (l *Loop) clear(ctx context.Context) {
	if !l.state.LastEmitted.Valid {
		return
	}
	l.state = SyncState{}
	l.coord.Apply(ctx, SyncEvent{Kind: EventHide})
}
