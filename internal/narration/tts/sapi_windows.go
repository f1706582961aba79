//go:build windows

package tts

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"strings"
	"sync"
)

// SAPIEngine implements Windows SAPI TTS through PowerShell's System.Speech
type SAPIEngine struct {
	speaker processSpeaker

	mutex  sync.RWMutex
	config Config
}

func newSAPIEngine(config Config) (Engine, error) {
	path, err := exec.LookPath("powershell")
	if err != nil {
		return nil, fmt.Errorf("powershell not found: %w", err)
	}

	return &SAPIEngine{
		speaker: processSpeaker{name: "sapi", path: path},
		config:  config,
	}, nil
}

func (s *SAPIEngine) Speak(ctx context.Context, text string, rate float64) error {
	s.mutex.RLock()
	script := sapiScript(s.config, text, rate)
	s.mutex.RUnlock()

	return s.speaker.run(ctx, []string{"-NoProfile", "-Command", script})
}

func sapiScript(config Config, text string, rate float64) string {
	var b strings.Builder
	b.WriteString("Add-Type -AssemblyName System.Speech; ")
	b.WriteString("$s = New-Object System.Speech.Synthesis.SpeechSynthesizer; ")
	if config.Voice != "" && config.Voice != "default" {
		fmt.Fprintf(&b, "$s.SelectVoice('%s'); ", psQuote(config.Voice))
	}
	fmt.Fprintf(&b, "$s.Rate = %d; ", sapiRate(config.Speed*rate))
	fmt.Fprintf(&b, "$s.Volume = %d; ", int(math.Min(100, 100*config.Volume)))
	fmt.Fprintf(&b, "$s.Speak('%s')", psQuote(text))
	return b.String()
}

// sapiRate maps a multiplier onto SAPI's -10..10 scale, where 10 is roughly
// three times the normal pace.
func sapiRate(rate float64) int {
	if rate <= 0 {
		return 0
	}
	r := int(math.Round(10 * math.Log(rate) / math.Log(3)))
	return max(-10, min(10, r))
}

func psQuote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func (s *SAPIEngine) Stop() error {
	return s.speaker.stop()
}

func (s *SAPIEngine) SetVoice(voice string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.config.Voice = voice
	return nil
}

func (s *SAPIEngine) SetVolume(volume float64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.config.Volume = volume
	return nil
}

func (s *SAPIEngine) IsPlaying() bool {
	return s.speaker.isPlaying()
}

func (s *SAPIEngine) GetAvailableVoices() ([]string, error) {
	cmd := exec.Command(s.speaker.path, "-NoProfile", "-Command",
		`Add-Type -AssemblyName System.Speech; `+
			`(New-Object System.Speech.Synthesis.SpeechSynthesizer).GetInstalledVoices() | `+
			`ForEach-Object { $_.VoiceInfo.Name }`)

	output, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	var voices []string
	for _, line := range strings.Split(string(output), "\n") {
		if name := strings.TrimSpace(line); name != "" {
			voices = append(voices, name)
		}
	}
	return voices, nil
}
