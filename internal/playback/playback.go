// Package playback provides media clocks the subtitle engine can follow.
package playback

import "errors"

// ErrUnavailable is returned when the source cannot report a position yet
// (not prepared) or any more (closed).
var ErrUnavailable = errors.New("playback position unavailable")

type State int

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
	StateEnded
	StateStopped
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	case StateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Terminal reports whether no further playback can happen.
func (s State) Terminal() bool {
	return s == StateEnded || s == StateStopped
}

// Event is emitted on every state transition.
type Event struct {
	State      State
	PositionMs int64
}

// Source is a media clock with a controllable output volume.
type Source interface {
	Position() (int64, error)
	State() State
	Events() <-chan Event
	SetVolume(volume float64) error
	Volume() float64
	Play() error
	Pause() error
	Stop() error
}

const eventBuffer = 64

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
