package tts

import (
	"context"
	"errors"
)

var ErrUnsupported = errors.New("tts engine not supported on this platform")

type Config struct {
	Type      string
	Speed     float64
	Volume    float64
	Voice     string
	Language  string
	CachePath string
}

// Engine interface for text-to-speech narration.
//
// Speak interrupts whatever the engine is saying, then blocks until the new
// utterance finishes or ctx is cancelled. rate multiplies the engine's
// natural pace.
type Engine interface {
	Speak(ctx context.Context, text string, rate float64) error
	SetVoice(voice string) error
	SetVolume(volume float64) error
	Stop() error
	IsPlaying() bool
	GetAvailableVoices() ([]string, error)
}

// CacheableEngine extends Engine with cache management capabilities
type CacheableEngine interface {
	Engine
	GetCacheStats() (map[string]interface{}, error)
	ClearCache() error
}
