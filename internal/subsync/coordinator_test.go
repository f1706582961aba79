package subsync

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"subnarrate/internal/domain/cue"
	"subnarrate/internal/playback"
)

func showEvent(c cue.Cue, narrate bool) SyncEvent {
	var state SyncState
	return NewEngine(DefaultRateEstimator()).OnTick(c.StartMs, []cue.Cue{c}, &state, narrate)
}

func TestCoordinatorShowNarrates(t *testing.T) {
	clock := newFakeClock(playback.StatePlaying)
	narrator := &fakeNarrator{}
	renderer := &fakeRenderer{}
	c := NewCoordinator(clock, narrator, renderer, quietLog())

	ev := showEvent(cue.Cue{ID: 1, StartMs: 0, EndMs: 3500, Text: "a b c d e"}, true)
	c.Apply(context.Background(), ev)
	c.Wait()

	shown, _ := renderer.snapshot()
	if len(shown) != 1 || shown[0] != "a b c d e" {
		t.Errorf("shown = %v", shown)
	}
	if v, ok := clock.lastVolume(); !ok || v != 0 {
		t.Errorf("volume = %v, %v; want muted", v, ok)
	}
	calls, _ := narrator.snapshot()
	if len(calls) != 1 || !almostEqual(calls[0].rate, 0.5714) {
		t.Fatalf("narrator calls = %+v", calls)
	}
	if c.State() != Narrating {
		t.Errorf("State() = %s, want narrating", c.State())
	}

	c.Apply(context.Background(), SyncEvent{Kind: EventHide})
	_, hides := renderer.snapshot()
	_, stops := narrator.snapshot()
	if hides != 1 || stops != 1 {
		t.Errorf("hides=%d stops=%d, want 1 and 1", hides, stops)
	}
	if v, _ := clock.lastVolume(); v != 1 {
		t.Errorf("volume after hide = %v, want 1", v)
	}
	if c.State() != Idle {
		t.Errorf("State() = %s, want idle", c.State())
	}
}

func TestCoordinatorWithoutNarrator(t *testing.T) {
	clock := newFakeClock(playback.StatePlaying)
	renderer := &fakeRenderer{}
	c := NewCoordinator(clock, nil, renderer, quietLog())

	c.Apply(context.Background(), showEvent(cue.Cue{ID: 1, StartMs: 0, EndMs: 3500, Text: "a b c d e"}, false))
	c.Apply(context.Background(), SyncEvent{Kind: EventHide})
	c.Halt()

	shown, hides := renderer.snapshot()
	if len(shown) != 1 || hides != 1 {
		t.Errorf("shown=%v hides=%d", shown, hides)
	}
	if got := clock.volumeLog(); len(got) != 0 {
		t.Errorf("volume touched with narration off: %v", got)
	}
}

func TestCoordinatorNarrationFailureRestoresVolume(t *testing.T) {
	before := testutil.ToFloat64(narrationFailuresTotal)

	clock := newFakeClock(playback.StatePlaying)
	narrator := &fakeNarrator{err: errors.New("service unavailable")}
	renderer := &fakeRenderer{}
	c := NewCoordinator(clock, narrator, renderer, quietLog())

	c.Apply(context.Background(), showEvent(cue.Cue{ID: 1, StartMs: 0, EndMs: 2000, Text: "hello"}, true))
	c.Wait()

	if got := clock.volumeLog(); len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("volume log = %v, want [0 1]", got)
	}
	if shown, _ := renderer.snapshot(); len(shown) != 1 {
		t.Errorf("subtitle not shown after narration failure")
	}
	if c.State() != Idle {
		t.Errorf("State() = %s, want idle", c.State())
	}
	if got := testutil.ToFloat64(narrationFailuresTotal) - before; got != 1 {
		t.Errorf("narration failures delta = %v, want 1", got)
	}
}

func TestCoordinatorFlushesPreviousUtterance(t *testing.T) {
	clock := newFakeClock(playback.StatePlaying)
	narrator := &fakeNarrator{block: true}
	c := NewCoordinator(clock, narrator, &fakeRenderer{}, quietLog())
	ctx := context.Background()

	c.Apply(ctx, showEvent(cue.Cue{ID: 1, StartMs: 0, EndMs: 2000, Text: "first"}, true))
	if !eventually(func() bool { calls, _ := narrator.snapshot(); return len(calls) == 1 }) {
		t.Fatal("first utterance never started")
	}

	c.Apply(ctx, showEvent(cue.Cue{ID: 2, StartMs: 2000, EndMs: 4000, Text: "second"}, true))
	if !eventually(func() bool { calls, _ := narrator.snapshot(); return len(calls) == 2 }) {
		t.Fatal("second utterance never started")
	}

	calls, _ := narrator.snapshot()
	if calls[0].ctx.Err() == nil {
		t.Error("first utterance was not cancelled")
	}
	if calls[1].ctx.Err() != nil {
		t.Error("second utterance cancelled early")
	}
	if calls[1].text != "second" {
		t.Errorf("second call text = %q", calls[1].text)
	}

	c.Halt()
	c.Wait()
	if calls[1].ctx.Err() == nil {
		t.Error("Halt did not cancel the in-flight utterance")
	}
	if v, _ := clock.lastVolume(); v != 1 {
		t.Errorf("volume after halt = %v, want 1", v)
	}
}

func TestCoordinatorHaltIsIdempotent(t *testing.T) {
	clock := newFakeClock(playback.StatePlaying)
	narrator := &fakeNarrator{}
	c := NewCoordinator(clock, narrator, &fakeRenderer{}, quietLog())

	c.Halt()
	if _, stops := narrator.snapshot(); stops != 0 {
		t.Errorf("Halt while idle stopped narrator %d times", stops)
	}

	c.Apply(context.Background(), showEvent(cue.Cue{ID: 1, StartMs: 0, EndMs: 2000, Text: "hello"}, true))
	c.Wait()
	c.Halt()
	c.Halt()

	if _, stops := narrator.snapshot(); stops != 1 {
		t.Errorf("narrator stopped %d times, want 1", stops)
	}
	if got := clock.volumeLog(); len(got) != 2 {
		t.Errorf("volume log = %v, want one mute and one restore", got)
	}
}

func TestCoordinatorDisableNarration(t *testing.T) {
	clock := newFakeClock(playback.StatePlaying)
	narrator := &fakeNarrator{block: true}
	renderer := &fakeRenderer{}
	c := NewCoordinator(clock, narrator, renderer, quietLog())
	ctx := context.Background()

	c.Apply(ctx, showEvent(cue.Cue{ID: 1, StartMs: 0, EndMs: 2000, Text: "first"}, true))
	if !eventually(func() bool { calls, _ := narrator.snapshot(); return len(calls) == 1 }) {
		t.Fatal("utterance never started")
	}

	if !c.DisableNarration() {
		t.Fatal("DisableNarration() = false with a narrator attached")
	}
	c.Wait()

	calls, stops := narrator.snapshot()
	if calls[0].ctx.Err() == nil {
		t.Error("in-flight utterance was not cancelled")
	}
	if stops != 1 {
		t.Errorf("narrator stopped %d times, want 1", stops)
	}
	if v, _ := clock.lastVolume(); v != 1 {
		t.Errorf("volume after disabling = %v, want 1", v)
	}
	if c.NarrationEnabled() || c.State() != Idle {
		t.Errorf("NarrationEnabled() = %v, State() = %s; want false, idle", c.NarrationEnabled(), c.State())
	}

	c.Apply(ctx, showEvent(cue.Cue{ID: 2, StartMs: 2000, EndMs: 4000, Text: "second"}, true))
	c.Apply(ctx, SyncEvent{Kind: EventHide})

	if calls, _ := narrator.snapshot(); len(calls) != 1 {
		t.Errorf("narrator called %d times after disabling, want 1", len(calls))
	}
	if shown, _ := renderer.snapshot(); len(shown) != 2 || shown[1] != "second" {
		t.Errorf("shown = %v, want the second cue rendered", shown)
	}
	if got := clock.volumeLog(); len(got) != 2 {
		t.Errorf("volume log = %v, want one mute and one restore", got)
	}
	if c.DisableNarration() {
		t.Error("second DisableNarration() = true")
	}
}
