// Package render draws subtitle cues on a terminal.
package render

import (
	"fmt"
	"io"
	"os"
	"sync"

	"subnarrate/internal/cli/scheme/colours"
)

// Terminal prints each shown cue on its own line and marks where it was
// cleared.
type Terminal struct {
	w io.Writer

	mu      sync.Mutex
	current string
	visible bool
}

func NewTerminal(w io.Writer) *Terminal {
	if w == nil {
		w = os.Stdout
	}
	return &Terminal{w: w}
}

func (t *Terminal) Show(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.current = text
	t.visible = true
	fmt.Fprintln(t.w, colours.Subtitle.Sprint("💬 "+text))
}

// Hide is a no-op when nothing is on screen.
func (t *Terminal) Hide() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.visible {
		return
	}
	t.visible = false
	t.current = ""
	fmt.Fprintln(t.w, colours.Muted.Sprint("   ···"))
}

// Current returns the text on screen, if any.
func (t *Terminal) Current() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, t.visible
}
