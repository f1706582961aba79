// Cross-platform eSpeak implementation
package tts

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// eSpeak's default pace in words per minute.
const espeakBaseWPM = 175

// ESpeakEngine implements TTS using eSpeak/eSpeak-NG
type ESpeakEngine struct {
	speaker processSpeaker

	mutex  sync.RWMutex
	config Config
}

// newESpeakEngine creates a new eSpeak TTS engine
func newESpeakEngine(config Config) (*ESpeakEngine, error) {
	espeakPath, err := findESpeakExecutable()
	if err != nil {
		return nil, fmt.Errorf("eSpeak not found: %w", err)
	}

	if err := exec.Command(espeakPath, "--version").Run(); err != nil {
		return nil, fmt.Errorf("eSpeak test failed: %w", err)
	}

	return &ESpeakEngine{
		speaker: processSpeaker{name: "espeak", path: espeakPath},
		config:  config,
	}, nil
}

func findESpeakExecutable() (string, error) {
	candidates := []string{"espeak-ng", "espeak"}

	for _, candidate := range candidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("eSpeak executable not found in PATH")
}

func (e *ESpeakEngine) Speak(ctx context.Context, text string, rate float64) error {
	e.mutex.RLock()
	args := espeakArgs(e.config, text, rate)
	e.mutex.RUnlock()

	return e.speaker.run(ctx, args)
}

// espeakArgs builds the command line: -s is words per minute, -a is
// amplitude in 0-200.
func espeakArgs(config Config, text string, rate float64) []string {
	args := []string{}

	if config.Voice != "" && config.Voice != "default" {
		args = append(args, "-v", config.Voice)
	}

	args = append(args, "-s", strconv.Itoa(wordsPerMinute(espeakBaseWPM, config.Speed, rate)))
	args = append(args, "-a", strconv.Itoa(int(100*config.Volume)))

	// "--" keeps text starting with a dash from being read as a flag
	return append(args, "--", text)
}

func (e *ESpeakEngine) Stop() error {
	return e.speaker.stop()
}

func (e *ESpeakEngine) SetVoice(voice string) error {
	voices, err := e.GetAvailableVoices()
	if err != nil {
		return err
	}

	for _, v := range voices {
		if v == voice {
			e.mutex.Lock()
			e.config.Voice = voice
			e.mutex.Unlock()
			return nil
		}
	}
	return fmt.Errorf("voice '%s' not available", voice)
}

func (e *ESpeakEngine) SetVolume(volume float64) error {
	if volume < 0 || volume > 2.0 {
		return fmt.Errorf("volume must be between 0 and 2.0")
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.config.Volume = volume
	return nil
}

func (e *ESpeakEngine) IsPlaying() bool {
	return e.speaker.isPlaying()
}

func (e *ESpeakEngine) GetAvailableVoices() ([]string, error) {
	output, err := exec.Command(e.speaker.path, "--voices").Output()
	if err != nil {
		return nil, err
	}

	return parseESpeakVoices(string(output)), nil
}

func parseESpeakVoices(output string) []string {
	lines := strings.Split(output, "\n")
	voices := make([]string, 0)

	for i, line := range lines {
		// Skip header line
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}

		// Pty Language Age/Gender VoiceName File Other Languages
		fields := strings.Fields(line)
		if len(fields) >= 4 {
			voices = append(voices, fields[3])
		}
	}

	return voices
}
