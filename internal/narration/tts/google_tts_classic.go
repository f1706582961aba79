package tts

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"cloud.google.com/go/texttospeech/apiv1"
	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	texttospeechpb "google.golang.org/genproto/googleapis/cloud/texttospeech/v1"

	"subnarrate/internal/playback"
)

const (
	defaultGoogleVoice    = "en-US-Chirp3-HD-Charon"
	defaultGoogleLanguage = "en-US"

	// A little under the 5000 byte request limit.
	maxRequestRunes = 4800

	minSpeakingRate = 0.25
	maxSpeakingRate = 4.0

	// Synthesis requests per second. Cache hits are not limited.
	synthesizeRPS = 5
)

type GoogleClassicTTSEngine struct {
	client       *texttospeech.Client
	cacheRootDir string
	cacheLock    *flock.Flock
	limiter      *rate.Limiter

	mu        sync.Mutex
	voice     string
	language  string
	speed     float64
	volume    float64
	isPlaying bool
	ctrl      *beep.Ctrl
}

func newGoogleClassicTTSEngine(ctx context.Context, config Config) (*GoogleClassicTTSEngine, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS client: %w", err)
	}

	cacheDir := config.CachePath
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "subnarrate-tts")
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	voice := config.Voice
	if voice == "" || voice == "default" {
		voice = defaultGoogleVoice
	}
	language := config.Language
	if language == "" {
		language = defaultGoogleLanguage
	}

	return &GoogleClassicTTSEngine{
		client:       client,
		cacheRootDir: cacheDir,
		cacheLock:    flock.New(filepath.Clean(cacheDir) + ".lock"),
		limiter:      rate.NewLimiter(rate.Limit(synthesizeRPS), 1),
		voice:        voice,
		language:     language,
		speed:        config.Speed,
		volume:       config.Volume,
	}, nil
}

// Speak synthesizes text (or reuses the cached MP3), then plays it through
// the shared speaker until it ends or ctx is cancelled.
func (g *GoogleClassicTTSEngine) Speak(ctx context.Context, text string, rate float64) error {
	if utf8.RuneCountInString(text) > maxRequestRunes {
		return fmt.Errorf("text too long for a single request: %d runes", utf8.RuneCountInString(text))
	}

	g.mu.Lock()
	voice, language := g.voice, g.language
	rate *= g.speed
	volume := g.volume
	g.mu.Unlock()

	// Chirp voices often don't support speakingRate/pitch/SSML, so the rate
	// is applied on playback instead.
	chirp := isChirpVoice(voice)

	audio, err := g.loadOrSynthesize(ctx, text, voice, language, rate, volume, chirp)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(audio)))
	if err != nil {
		return fmt.Errorf("failed to decode MP3: %w", err)
	}
	defer streamer.Close()

	var s beep.Streamer = streamer
	if chirp && rate != 1 {
		s = beep.ResampleRatio(4, rate, s)
	}
	out, err := playback.Adapt(format.SampleRate, s)
	if err != nil {
		return err
	}

	ctrl := &beep.Ctrl{Streamer: out}
	done := make(chan struct{})

	g.mu.Lock()
	g.stopLocked()
	g.ctrl = ctrl
	g.isPlaying = true
	g.mu.Unlock()

	speaker.Play(beep.Seq(ctrl, beep.Callback(func() { close(done) })))

	select {
	case <-done:
		g.mu.Lock()
		if g.ctrl == ctrl {
			g.ctrl = nil
			g.isPlaying = false
		}
		g.mu.Unlock()
		return nil
	case <-ctx.Done():
		g.mu.Lock()
		if g.ctrl == ctrl {
			g.stopLocked()
		}
		g.mu.Unlock()
		return ctx.Err()
	}
}

func (g *GoogleClassicTTSEngine) loadOrSynthesize(ctx context.Context, text, voice, language string, pace, volume float64, chirp bool) ([]byte, error) {
	key := cacheKey(text, voice, language, pace, chirp)
	cacheDir := filepath.Join(g.cacheRootDir, language)
	chunkPath := filepath.Join(cacheDir, key+".mp3")

	if audio, err := os.ReadFile(chunkPath); err == nil {
		logrus.WithField("path", chunkPath).Debug("Using cached narration audio")
		return audio, nil
	}

	audioCfg := &texttospeechpb.AudioConfig{
		AudioEncoding: texttospeechpb.AudioEncoding_MP3,
	}
	if !chirp {
		audioCfg.SpeakingRate = clampSpeakingRate(pace)
		audioCfg.VolumeGainDb = volumeGainDb(volume)
	}

	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: language,
			Name:         voice,
		},
		AudioConfig: audioCfg,
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := g.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}

	// Another process may be clearing the cache.
	if err := g.cacheLock.Lock(); err != nil {
		logrus.WithError(err).Warn("Failed to lock narration cache, not caching")
		return resp.AudioContent, nil
	}
	defer g.cacheLock.Unlock()

	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		logrus.WithError(err).Warn("Failed to create narration cache directory")
		return resp.AudioContent, nil
	}
	if err := os.WriteFile(chunkPath, resp.AudioContent, 0644); err != nil {
		logrus.WithError(err).WithField("path", chunkPath).Warn("Failed to cache narration audio")
	}
	return resp.AudioContent, nil
}

func (g *GoogleClassicTTSEngine) stopLocked() {
	if g.ctrl != nil {
		speaker.Lock()
		g.ctrl.Streamer = nil
		speaker.Unlock()
		g.ctrl = nil
	}
	g.isPlaying = false
}

func (g *GoogleClassicTTSEngine) SetVoice(voice string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.voice = voice
	return nil
}

func (g *GoogleClassicTTSEngine) SetVolume(volume float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.volume = volume
	return nil
}

func (g *GoogleClassicTTSEngine) Stop() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopLocked()
	return nil
}

func (g *GoogleClassicTTSEngine) IsPlaying() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.isPlaying
}

func (g *GoogleClassicTTSEngine) GetAvailableVoices() ([]string, error) {
	g.mu.Lock()
	language := g.language
	g.mu.Unlock()

	resp, err := g.client.ListVoices(context.Background(), &texttospeechpb.ListVoicesRequest{LanguageCode: language})
	if err != nil {
		return nil, err
	}
	voices := []string{}
	for _, v := range resp.Voices {
		voices = append(voices, v.Name)
	}
	return voices, nil
}

// GetCacheStats returns cache statistics for the current engine
func (g *GoogleClassicTTSEngine) GetCacheStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var totalFiles int64
	var totalSize int64

	err := filepath.Walk(g.cacheRootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Continue walking despite errors
		}

		if !info.IsDir() && strings.HasSuffix(strings.ToLower(info.Name()), ".mp3") {
			totalFiles++
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	stats["cache_directory"] = g.cacheRootDir
	stats["cached_files"] = totalFiles
	stats["total_size_mb"] = float64(totalSize) / (1024 * 1024)

	return stats, nil
}

// ClearCache removes all cached files
func (g *GoogleClassicTTSEngine) ClearCache() error {
	if err := g.cacheLock.Lock(); err != nil {
		return fmt.Errorf("failed to lock cache: %w", err)
	}
	defer g.cacheLock.Unlock()
	return os.RemoveAll(g.cacheRootDir)
}

func (g *GoogleClassicTTSEngine) Close() error {
	g.Stop()
	return g.client.Close()
}

func isChirpVoice(voice string) bool {
	return strings.Contains(strings.ToLower(voice), "chirp")
}

// cacheKey identifies one synthesized utterance. The rate only matters when
// it is baked into the audio.
func cacheKey(text, voice, language string, rate float64, chirp bool) string {
	id := text + "|" + voice + "|" + language
	if !chirp {
		id += fmt.Sprintf("|%.2f", clampSpeakingRate(rate))
	}
	return md5Sum(id)[:16]
}

func clampSpeakingRate(rate float64) float64 {
	return math.Max(minSpeakingRate, math.Min(maxSpeakingRate, rate))
}

// volumeGainDb converts a linear volume to the service's [-96, 16] dB gain.
func volumeGainDb(volume float64) float64 {
	if volume <= 0 {
		return -96
	}
	return math.Max(-96, math.Min(16, 20*math.Log10(volume)))
}

func md5Sum(s string) string {
	h := md5.New()
	io.WriteString(h, s)
	return fmt.Sprintf("%x", h.Sum(nil))
}
