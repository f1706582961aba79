// Package subsync maps a playback position onto timed subtitle cues and
// coordinates optional narration with the media track.
package subsync

import "subnarrate/internal/domain/cue"

// CueRef is an optional cue identifier. The zero value means "no cue".
type CueRef struct {
	ID    int
	Valid bool
}

func refTo(c cue.Cue) CueRef {
	return CueRef{ID: c.ID, Valid: true}
}

// SyncState is owned by the polling loop and passed into every tick.
type SyncState struct {
	Active      CueRef
	LastEmitted CueRef
}

// EventKind says what a tick asks the renderer to do.
type EventKind int

const (
	EventNone EventKind = iota
	EventShow
	EventHide
)

func (k EventKind) String() string {
	switch k {
	case EventShow:
		return "show"
	case EventHide:
		return "hide"
	default:
		return "none"
	}
}

// SyncEvent is the result of a tick. Estimate is only set when Narrate is true.
type SyncEvent struct {
	Kind     EventKind
	Cue      cue.Cue
	Narrate  bool
	Estimate Estimate
}

// SpeechRate returns the narration rate and whether the event carries one.
func (e SyncEvent) SpeechRate() (float64, bool) {
	if e.Kind != EventShow || !e.Narrate {
		return 0, false
	}
	return e.Estimate.Rate, true
}

// FindActiveCue returns the first cue in list order whose half-open interval
// [StartMs, EndMs) contains positionMs.
func FindActiveCue(positionMs int64, cues []cue.Cue) (cue.Cue, bool) {
	for _, c := range cues {
		if c.Contains(positionMs) {
			return c, true
		}
	}
	return cue.Cue{}, false
}

// Engine turns playback positions into show/hide events. It holds no
// per-session state; everything mutable lives in SyncState.
type Engine struct {
	Rate RateEstimator
}

// NewEngine returns an engine that prices narration with rate.
func NewEngine(rate RateEstimator) *Engine {
	return &Engine{Rate: rate}
}

// OnTick resolves the active cue at positionMs and reports a change relative
// to state.LastEmitted. Only state is mutated.
func (e *Engine) OnTick(positionMs int64, cues []cue.Cue, state *SyncState, narrate bool) SyncEvent {
	active, ok := FindActiveCue(positionMs, cues)

	ref := CueRef{}
	if ok {
		ref = refTo(active)
	}
	state.Active = ref

	if ref == state.LastEmitted {
		return SyncEvent{Kind: EventNone}
	}
	state.LastEmitted = ref

	if !ok {
		return SyncEvent{Kind: EventHide}
	}

	ev := SyncEvent{Kind: EventShow, Cue: active}
	if narrate {
		ev.Narrate = true
		ev.Estimate = e.Rate.Estimate(active)
	}
	return ev
}
