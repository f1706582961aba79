package session

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"subnarrate/internal/cli/scheme/colours"
	"subnarrate/internal/config"
	"subnarrate/internal/domain/cue"
	"subnarrate/internal/narration/tts"
	"subnarrate/internal/subsync"
)

func (s *Session) ShowWelcome() {
	fmt.Fprintln(s.Out)
	colours.Title.Fprintln(s.Out, "🎬 Welcome to subnarrate! 🎬")
	fmt.Fprintln(s.Out)
	colours.Info.Fprintln(s.Out, "📚 Available commands:")
	fmt.Fprintln(s.Out, "  • subnarrate play         - Follow playback and show or narrate cues")
	fmt.Fprintln(s.Out, "  • subnarrate cues         - List cues with their narration rates")
	fmt.Fprintln(s.Out, "  • subnarrate rate         - Estimate the speech rate for a line")
	fmt.Fprintln(s.Out, "  • subnarrate voices       - List voices of the narration engine")
	fmt.Fprintln(s.Out, "  • subnarrate cache status - Show the narration audio cache")
	fmt.Fprintln(s.Out)

	engines := tts.GetAvailableEngines()
	names := make([]string, 0, len(engines))
	for _, e := range engines {
		names = append(names, e.String())
	}
	colours.Info.Fprintf(s.Out, "🎤 Narration engines here: %s\n", strings.Join(names, ", "))
	fmt.Fprintln(s.Out)
	colours.Prompt.Fprintln(s.Out, "✨ Ready when you are ✨")
}

// ListCues prints every configured cue with its rate breakdown.
func (s *Session) ListCues() error {
	cues, err := config.CueSource().Cues()
	if err != nil {
		return fmt.Errorf("failed to load cues: %w", err)
	}

	estimator := s.rateEstimator()
	rows := make([][]string, 0, len(cues))
	for _, c := range cues {
		rows = append(rows, estimateRow(c, estimator.Estimate(c)))
	}

	fmt.Fprintln(s.Out)
	colours.Title.Fprintln(s.Out, "📜 Cues")
	fmt.Fprintln(s.Out, renderTable(
		[]string{"ID", "Start", "End", "Window", "Words", "Syllables", "WPS", "Rate", "Text"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
	))
	colours.Success.Fprintf(s.Out, "✨ %d cues, %s total\n", len(cues), formatMs(cues.End()))
	return nil
}

func estimateRow(c cue.Cue, e subsync.Estimate) []string {
	rate := fmt.Sprintf("%.2fx", e.Rate)
	if e.Clamped {
		rate = fmt.Sprintf("%.2fx (%.2fx)", e.Rate, e.RawRate)
	}
	return []string{
		strconv.Itoa(c.ID),
		formatMs(c.StartMs),
		formatMs(c.EndMs),
		formatMs(e.WindowMs),
		strconv.Itoa(e.Words),
		strconv.Itoa(e.Syllables),
		fmt.Sprintf("%.1f", e.WordsPerSecond),
		rate,
		c.Text,
	}
}

// EstimateRate prints the rate breakdown for text shown for windowMs.
func (s *Session) EstimateRate(text string, windowMs int64) error {
	if windowMs <= 0 {
		return fmt.Errorf("window must be positive, got %dms", windowMs)
	}
	c := cue.Cue{StartMs: 0, EndMs: windowMs, Text: text}
	e := s.rateEstimator().Estimate(c)

	fmt.Fprintln(s.Out, renderTable(
		[]string{"Words", "Syllables", "WPS", "Speech", "Window", "Rate"},
		[][]string{{
			strconv.Itoa(e.Words),
			strconv.Itoa(e.Syllables),
			fmt.Sprintf("%.1f", e.WordsPerSecond),
			formatMs(int64(e.EstimatedSpeechMs)),
			formatMs(e.WindowMs),
			fmt.Sprintf("%.4fx", e.Rate),
		}},
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
	))
	if e.Clamped {
		colours.Warning.Fprintf(s.Out, "⚠️  Clamped from %.4fx to [%.2f, %.2f]\n", e.RawRate, s.Cfg.Sync.MinRate, s.Cfg.Sync.MaxRate)
	}
	return nil
}

// ListVoices prints the voices the configured engine offers.
func (s *Session) ListVoices(ctx context.Context) error {
	engine, err := tts.NewEngine(ctx, s.ttsConfig())
	if err != nil {
		return fmt.Errorf("failed to create tts engine: %w", err)
	}
	defer s.closeEngine(engine)

	voices, err := engine.GetAvailableVoices()
	if err != nil {
		return fmt.Errorf("failed to list voices: %w", err)
	}
	sort.Strings(voices)

	colours.Title.Fprintf(s.Out, "🎤 %d voices\n", len(voices))
	for _, v := range voices {
		fmt.Fprintf(s.Out, "  • %s\n", v)
	}
	return nil
}

func (s *Session) cacheableEngine(ctx context.Context) (tts.CacheableEngine, error) {
	engine, err := tts.NewEngine(ctx, s.ttsConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create tts engine: %w", err)
	}
	cacheable, ok := engine.(tts.CacheableEngine)
	if !ok {
		s.closeEngine(engine)
		return nil, fmt.Errorf("tts engine %q does not cache audio", s.Cfg.TTS.Type)
	}
	return cacheable, nil
}

func (s *Session) CacheStatus(ctx context.Context) error {
	engine, err := s.cacheableEngine(ctx)
	if err != nil {
		return err
	}
	defer s.closeEngine(engine)

	stats, err := engine.GetCacheStats()
	if err != nil {
		return fmt.Errorf("failed to get cache info: %w", err)
	}

	colours.Title.Fprintln(s.Out, "📊 Narration Cache Status")
	colours.Info.Fprintf(s.Out, "📁 Location: %v\n", stats["cache_directory"])
	colours.Info.Fprintf(s.Out, "🎧 Files: %v\n", stats["cached_files"])
	colours.Info.Fprintf(s.Out, "💾 Size: %.2f MB\n", stats["total_size_mb"])
	return nil
}

func (s *Session) ClearCache(ctx context.Context) error {
	engine, err := s.cacheableEngine(ctx)
	if err != nil {
		return err
	}
	defer s.closeEngine(engine)

	if err := engine.ClearCache(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	colours.Success.Fprintln(s.Out, "✅ Narration cache cleared")
	return nil
}

func formatMs(ms int64) string {
	return fmt.Sprintf("%d.%03ds", ms/1000, ms%1000)
}
