package tts

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Words per second the mock pretends to speak at rate 1.
const mockWPS = 2.5

// Utterance is one Speak call recorded by MockTTSEngine.
type Utterance struct {
	Text string
	Rate float64
}

// MockTTSEngine prints instead of speaking and takes as long as a real voice
// would.
type MockTTSEngine struct {
	mu      sync.Mutex
	playing int
	speed   float64
	volume  float64
	voice   string
	spoken  []Utterance
	cancel  context.CancelFunc
	out     io.Writer
}

func NewMockTTSEngine(c Config) *MockTTSEngine {
	speed := c.Speed
	if speed <= 0 {
		speed = 1
	}
	return &MockTTSEngine{
		speed:  speed,
		volume: c.Volume,
		voice:  "default",
		out:    os.Stdout,
	}
}

// SetOutput sets where the mock announces what it would say.
func (m *MockTTSEngine) SetOutput(w io.Writer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.out = w
}

func (m *MockTTSEngine) GetAvailableVoices() ([]string, error) {
	return []string{"mock-voice"}, nil
}

func (m *MockTTSEngine) Speak(ctx context.Context, text string, rate float64) error {
	duration := mockDuration(text, m.speed*rate)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.cancel = cancel
	m.spoken = append(m.spoken, Utterance{Text: text, Rate: rate})
	m.playing++
	out := m.out
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.playing--
		m.mu.Unlock()
	}()

	color.New(color.FgYellow).Fprintf(out, "🔊 %q at %.2fx (simulated for %v)\n", text, rate, duration)

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// mockDuration is how long text takes at the given multiplier.
func mockDuration(text string, rate float64) time.Duration {
	if rate <= 0 {
		rate = 1
	}
	words := max(1, len(strings.Fields(text)))
	return time.Duration(float64(words) / (mockWPS * rate) * float64(time.Second))
}

// Spoken returns every utterance so far, oldest first.
func (m *MockTTSEngine) Spoken() []Utterance {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Utterance(nil), m.spoken...)
}

func (m *MockTTSEngine) SetVoice(voice string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voice = voice
	return nil
}

func (m *MockTTSEngine) SetVolume(volume float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = volume
	return nil
}

func (m *MockTTSEngine) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	return nil
}

func (m *MockTTSEngine) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing > 0
}
