package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	SetDefaults()

	c, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Sync.PollInterval != 300*time.Millisecond {
		t.Errorf("PollInterval = %v, want 300ms", c.Sync.PollInterval)
	}
	if !c.Sync.Narration {
		t.Error("narration should default to on")
	}
	if c.Sync.MinRate != 0.5 || c.Sync.MaxRate != 3.0 {
		t.Errorf("rate range = [%v, %v], want [0.5, 3]", c.Sync.MinRate, c.Sync.MaxRate)
	}
	if c.TTS.Type != "auto" {
		t.Errorf("TTS.Type = %q, want auto", c.TTS.Type)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value interface{}
	}{
		{"zero poll interval", "sync.poll_interval", "0s"},
		{"non-positive min rate", "sync.min_rate", 0},
		{"max below min", "sync.max_rate", 0.25},
		{"loud volume", "tts.volume", 3},
		{"negative duration", "playback.duration", "-1s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			SetDefaults()
			viper.Set(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%v succeeded", tt.key, tt.value)
			}
		})
	}
}

func TestLoadUnboundedMaxRate(t *testing.T) {
	viper.Reset()
	SetDefaults()
	viper.Set("sync.max_rate", 0)

	if _, err := Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
}

func TestInitReadsFile(t *testing.T) {
	viper.Reset()

	path := filepath.Join(t.TempDir(), "subnarrate.yaml")
	data := `
sync:
  poll_interval: 100ms
  narration: false
cues:
  - id: 7
    start_ms: 0
    end_ms: 1000
    text: "hello there"
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Init(path); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	c, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Sync.PollInterval != 100*time.Millisecond || c.Sync.Narration {
		t.Errorf("Sync = %+v", c.Sync)
	}

	cues, err := CueSource().Cues()
	if err != nil {
		t.Fatalf("Cues() error = %v", err)
	}
	if len(cues) != 1 || cues[0].ID != 7 || cues[0].Text != "hello there" {
		t.Errorf("Cues() = %+v", cues)
	}
}

func TestInitMissingExplicitFile(t *testing.T) {
	viper.Reset()
	if err := Init(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Init() with a missing file succeeded")
	}
}

func TestCueSourceFallsBackToSample(t *testing.T) {
	viper.Reset()
	SetDefaults()

	cues, err := CueSource().Cues()
	if err != nil {
		t.Fatalf("Cues() error = %v", err)
	}
	if len(cues) != 4 {
		t.Errorf("got %d sample cues, want 4", len(cues))
	}
}
