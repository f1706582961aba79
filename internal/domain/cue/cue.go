package cue

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCue  = errors.New("invalid cue")
	ErrDuplicateID = errors.New("duplicate cue id")
	ErrUnordered   = errors.New("cues not ordered by start")
	ErrOverlap     = errors.New("cues overlap")
)

// Cue is a timed subtitle entry. Times are offsets into the media in milliseconds.
type Cue struct {
	ID      int    `json:"id" yaml:"id" mapstructure:"id"`
	StartMs int64  `json:"start_ms" yaml:"start_ms" mapstructure:"start_ms"`
	EndMs   int64  `json:"end_ms" yaml:"end_ms" mapstructure:"end_ms"`
	Text    string `json:"text" yaml:"text" mapstructure:"text"`
}

// Window is the display duration of the cue in milliseconds.
func (c Cue) Window() int64 {
	return c.EndMs - c.StartMs
}

// Contains reports whether positionMs falls inside [StartMs, EndMs).
func (c Cue) Contains(positionMs int64) bool {
	return positionMs >= c.StartMs && positionMs < c.EndMs
}

func (c Cue) validate() error {
	if c.StartMs < 0 {
		return fmt.Errorf("%w: cue %d starts at negative offset %d", ErrInvalidCue, c.ID, c.StartMs)
	}
	if c.EndMs <= c.StartMs {
		return fmt.Errorf("%w: cue %d ends at %d, not after start %d", ErrInvalidCue, c.ID, c.EndMs, c.StartMs)
	}
	if strings.TrimSpace(c.Text) == "" {
		return fmt.Errorf("%w: cue %d has no text", ErrInvalidCue, c.ID)
	}
	return nil
}

// List is an ordered, non-overlapping cue collection. Build one with NewList.
type List []Cue

// NewList validates cues and returns them as a List. The input is copied.
func NewList(cues []Cue) (List, error) {
	seen := make(map[int]struct{}, len(cues))
	for i, c := range cues {
		if err := c.validate(); err != nil {
			return nil, err
		}
		if _, ok := seen[c.ID]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, c.ID)
		}
		seen[c.ID] = struct{}{}

		if i == 0 {
			continue
		}
		prev := cues[i-1]
		if c.StartMs < prev.StartMs {
			return nil, fmt.Errorf("%w: cue %d starts at %d before cue %d at %d",
				ErrUnordered, c.ID, c.StartMs, prev.ID, prev.StartMs)
		}
		if c.StartMs < prev.EndMs {
			return nil, fmt.Errorf("%w: cue %d starts at %d before cue %d ends at %d",
				ErrOverlap, c.ID, c.StartMs, prev.ID, prev.EndMs)
		}
	}

	out := make(List, len(cues))
	copy(out, cues)
	return out, nil
}

// End returns the end offset of the last cue, or 0 for an empty list.
func (l List) End() int64 {
	if len(l) == 0 {
		return 0
	}
	return l[len(l)-1].EndMs
}

// ByID looks up a cue by its identifier.
func (l List) ByID(id int) (Cue, bool) {
	for _, c := range l {
		if c.ID == id {
			return c, true
		}
	}
	return Cue{}, false
}
