package playback

import (
	"errors"
	"testing"
	"time"
)

var (
	_ Source = (*ClockPlayer)(nil)
	_ Source = (*TrackPlayer)(nil)
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1700000000, 0)}
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func drain(ch <-chan Event) (out []Event) {
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestClockPlayerAdvancesWhilePlaying(t *testing.T) {
	clk := newFakeClock()
	p := newClockPlayer(time.Hour, clk.now)
	defer p.Stop()

	if pos, err := p.Position(); err != nil || pos != 0 {
		t.Fatalf("Position() before play = %d, %v", pos, err)
	}

	if err := p.Play(); err != nil {
		t.Fatal(err)
	}
	clk.advance(1500 * time.Millisecond)
	if pos, _ := p.Position(); pos != 1500 {
		t.Errorf("Position() = %d, want 1500", pos)
	}

	p.Pause()
	clk.advance(10 * time.Second)
	if pos, _ := p.Position(); pos != 1500 {
		t.Errorf("Position() while paused = %d, want 1500", pos)
	}

	p.Play()
	clk.advance(500 * time.Millisecond)
	if pos, _ := p.Position(); pos != 2000 {
		t.Errorf("Position() after resume = %d, want 2000", pos)
	}

	events := drain(p.Events())
	want := []State{StatePlaying, StatePaused, StatePlaying}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, ev := range events {
		if ev.State != want[i] {
			t.Errorf("event %d = %s, want %s", i, ev.State, want[i])
		}
	}
	if events[1].PositionMs != 1500 {
		t.Errorf("pause event position = %d, want 1500", events[1].PositionMs)
	}
}

func TestClockPlayerFinish(t *testing.T) {
	clk := newFakeClock()
	p := newClockPlayer(time.Hour, clk.now)
	p.Play()
	drain(p.Events())

	p.finish()
	if p.State() != StateEnded {
		t.Fatalf("State() = %s, want ended", p.State())
	}
	if pos, _ := p.Position(); pos != time.Hour.Milliseconds() {
		t.Errorf("Position() = %d, want duration", pos)
	}
	if err := p.Play(); err == nil {
		t.Error("Play() after end should fail")
	}
	ev := drain(p.Events())
	if len(ev) != 1 || ev[0].State != StateEnded {
		t.Errorf("events = %+v", ev)
	}
}

func TestClockPlayerEndsOnTimer(t *testing.T) {
	p := NewClockPlayer(20 * time.Millisecond)
	p.Play()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-p.Events():
			if ev.State == StateEnded {
				return
			}
		case <-deadline:
			t.Fatal("player never ended")
		}
	}
}

func TestClockPlayerStop(t *testing.T) {
	p := newClockPlayer(time.Hour, newFakeClock().now)
	p.Play()
	if err := p.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("second Stop() = %v", err)
	}
	if _, err := p.Position(); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Position() after stop error = %v, want ErrUnavailable", err)
	}
	if got := len(drain(p.Events())); got != 2 {
		t.Errorf("got %d events, want 2", got)
	}
}

func TestClockPlayerVolumeClamped(t *testing.T) {
	p := NewClockPlayer(time.Second)
	p.SetVolume(0)
	if p.Volume() != 0 {
		t.Errorf("Volume() = %v, want 0", p.Volume())
	}
	p.SetVolume(3)
	if p.Volume() != 1 {
		t.Errorf("Volume() = %v, want 1", p.Volume())
	}
}
