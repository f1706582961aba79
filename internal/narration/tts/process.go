package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"
)

// processSpeaker runs one external speech command at a time. A new utterance
// kills the previous process.
type processSpeaker struct {
	name string
	path string

	mutex   sync.Mutex
	cmd     *exec.Cmd
	playing bool
}

func (p *processSpeaker) run(ctx context.Context, args []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, p.path, args...)
	cmd.Cancel = func() error { return interrupt(cmd) }
	cmd.WaitDelay = 2 * time.Second

	p.mutex.Lock()
	p.killLocked()
	if err := cmd.Start(); err != nil {
		p.mutex.Unlock()
		return fmt.Errorf("failed to start %s: %w", p.name, err)
	}
	p.cmd = cmd
	p.playing = true
	p.mutex.Unlock()

	err := cmd.Wait()

	p.mutex.Lock()
	superseded := p.cmd != cmd
	if !superseded {
		p.cmd = nil
		p.playing = false
	}
	p.mutex.Unlock()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil && !superseded {
		return fmt.Errorf("%s failed: %w", p.name, err)
	}
	return nil
}

func (p *processSpeaker) stop() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.killLocked()
}

func (p *processSpeaker) killLocked() error {
	cmd := p.cmd
	p.cmd = nil
	p.playing = false
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func (p *processSpeaker) isPlaying() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.playing
}

// wordsPerMinute converts a rate multiplier to a words-per-minute value
// around base, bounded to what command-line synthesizers accept.
func wordsPerMinute(base, speed, rate float64) int {
	wpm := int(base * speed * rate)
	if wpm < 80 {
		return 80
	}
	if wpm > 500 {
		return 500
	}
	return wpm
}
