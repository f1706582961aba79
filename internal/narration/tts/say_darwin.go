//go:build darwin

package tts

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// Default pace of the macOS voices in words per minute.
const sayBaseWPM = 175

// SayEngine narrates through the macOS built-in 'say' command
type SayEngine struct {
	speaker processSpeaker

	mutex  sync.RWMutex
	config Config
}

func newSayEngine(config Config) (Engine, error) {
	path, err := exec.LookPath("say")
	if err != nil {
		return nil, fmt.Errorf("say not found: %w", err)
	}

	return &SayEngine{
		speaker: processSpeaker{name: "say", path: path},
		config:  config,
	}, nil
}

func (s *SayEngine) Speak(ctx context.Context, text string, rate float64) error {
	s.mutex.RLock()
	args := []string{"-r", strconv.Itoa(wordsPerMinute(sayBaseWPM, s.config.Speed, rate))}
	if s.config.Voice != "" && s.config.Voice != "default" {
		args = append(args, "-v", s.config.Voice)
	}
	s.mutex.RUnlock()

	return s.speaker.run(ctx, append(args, "--", text))
}

func (s *SayEngine) Stop() error {
	return s.speaker.stop()
}

func (s *SayEngine) SetVoice(voice string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.config.Voice = voice
	return nil
}

// SetVolume is recorded only; say has no volume flag.
func (s *SayEngine) SetVolume(volume float64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.config.Volume = volume
	return nil
}

func (s *SayEngine) IsPlaying() bool {
	return s.speaker.isPlaying()
}

func (s *SayEngine) GetAvailableVoices() ([]string, error) {
	output, err := exec.Command(s.speaker.path, "-v", "?").Output()
	if err != nil {
		return nil, err
	}

	var voices []string
	for _, line := range strings.Split(string(output), "\n") {
		// "Alex                en_US    # Most people recognize me by my voice."
		fields := strings.Fields(line)
		if len(fields) > 0 {
			voices = append(voices, fields[0])
		}
	}
	return voices, nil
}
