// Package session wires a cue list, a playback source, a narrator and the
// terminal renderer into one subtitle playback session.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"subnarrate/internal/cli/scheme/colours"
	"subnarrate/internal/config"
	"subnarrate/internal/domain/cue"
	"subnarrate/internal/narration/tts"
	"subnarrate/internal/playback"
	"subnarrate/internal/render"
	"subnarrate/internal/subsync"
)

// Played after the last cue when no media length is configured.
const tailPadding = time.Second

// Session is one run of the CLI against the loaded configuration.
type Session struct {
	ID  uuid.UUID
	Cfg config.Config

	In  io.Reader
	Out io.Writer

	log *logrus.Entry

	// newPlayer overrides openPlayer.
	newPlayer func(cue.List) (playback.Source, error)
}

func New(cfg config.Config) *Session {
	id := uuid.New()
	return &Session{
		ID:  id,
		Cfg: cfg,
		In:  os.Stdin,
		Out: os.Stdout,
		log: logrus.WithField("session", id.String()),
	}
}

// newNarrator builds the configured TTS engine. Failure leaves the session
// in subtitle-only mode.
func (s *Session) newNarrator(ctx context.Context) tts.Engine {
	engine, err := tts.NewEngine(ctx, s.ttsConfig())
	if err != nil {
		s.log.WithError(err).WithField("type", s.Cfg.TTS.Type).Warn("Failed to create tts engine, showing subtitles only")
		return nil
	}
	if w, ok := engine.(interface{ SetOutput(io.Writer) }); ok {
		w.SetOutput(s.Out)
	}
	return engine
}

// closeEngine stops an engine and releases whatever it holds open.
func (s *Session) closeEngine(engine interface{ Stop() error }) {
	if err := engine.Stop(); err != nil {
		s.log.WithError(err).Warn("Failed to stop tts engine")
	}
	if c, ok := engine.(io.Closer); ok {
		if err := c.Close(); err != nil {
			s.log.WithError(err).Warn("Failed to close tts engine")
		}
	}
}

func (s *Session) ttsConfig() tts.Config {
	return tts.Config{
		Type:      s.Cfg.TTS.Type,
		Speed:     s.Cfg.TTS.Speed,
		Volume:    s.Cfg.TTS.Volume,
		Voice:     s.Cfg.TTS.Voice,
		Language:  s.Cfg.TTS.Language,
		CachePath: s.Cfg.TTS.CachePath,
	}
}

func (s *Session) rateEstimator() subsync.RateEstimator {
	return subsync.RateEstimator{MinRate: s.Cfg.Sync.MinRate, MaxRate: s.Cfg.Sync.MaxRate}
}

// openPlayer returns the MP3 track player when media is configured, else a
// simulated clock long enough for every cue.
func (s *Session) openPlayer(cues cue.List) (playback.Source, error) {
	if s.Cfg.Playback.Media != "" {
		track, err := playback.OpenTrack(s.Cfg.Playback.Media)
		if err != nil {
			return nil, err
		}
		s.log.WithFields(logrus.Fields{
			"media":    s.Cfg.Playback.Media,
			"duration": track.Duration(),
		}).Info("Following media track")
		return track, nil
	}

	duration := s.Cfg.Playback.Duration
	if duration <= 0 {
		duration = time.Duration(cues.End())*time.Millisecond + tailPadding
	}
	s.log.WithField("duration", duration).Info("Following simulated clock")
	return playback.NewClockPlayer(duration), nil
}

// Play runs the subtitle session until playback ends, the user stops it,
// or ctx is cancelled.
func (s *Session) Play(ctx context.Context, narrate bool) error {
	cues, err := config.CueSource().Cues()
	if err != nil {
		return fmt.Errorf("failed to load cues: %w", err)
	}

	open := s.openPlayer
	if s.newPlayer != nil {
		open = s.newPlayer
	}
	player, err := open(cues)
	if err != nil {
		return err
	}
	defer player.Stop()

	// Keep the interface nil rather than a nil *Engine inside it.
	var narrator subsync.Narrator
	if narrate && s.Cfg.Sync.Narration {
		if engine := s.newNarrator(ctx); engine != nil {
			narrator = engine
			defer s.closeEngine(engine)
		}
	}

	return s.run(ctx, cues, player, narrator)
}

func (s *Session) run(ctx context.Context, cues cue.List, player playback.Source, narrator subsync.Narrator) error {
	renderer := render.NewTerminal(s.Out)
	coord := subsync.NewCoordinator(player, narrator, renderer, s.log)
	loop := subsync.NewLoop(subsync.NewEngine(s.rateEstimator()), cues, player, coord, s.Cfg.Sync.PollInterval, s.log)

	s.log.WithFields(logrus.Fields{
		"cues":      len(cues),
		"narration": coord.NarrationEnabled(),
		"interval":  s.Cfg.Sync.PollInterval,
	}).Info("Starting subtitle session")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return loop.Run(gctx)
	})

	if s.Cfg.Metrics.Addr != "" {
		s.serveMetrics(g, gctx)
	}

	if err := player.Play(); err != nil {
		cancel()
		g.Wait()
		return fmt.Errorf("failed to start playback: %w", err)
	}

	if s.In != nil {
		commands := make(chan string)
		go readCommands(gctx, s.In, commands)
		g.Go(func() error {
			return s.handleCommands(gctx, player, coord, commands)
		})
	}

	err := g.Wait()
	coord.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	s.log.WithField("state", player.State()).Info("Subtitle session finished")
	return nil
}

func (s *Session) serveMetrics(g *errgroup.Group, ctx context.Context) {
	srv := &http.Server{
		Addr:              s.Cfg.Metrics.Addr,
		Handler:           metricsRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		s.log.WithField("addr", srv.Addr).Info("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

func metricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

// readCommands forwards trimmed input lines until r is exhausted or ctx is
// done. A blocked read cannot be interrupted, so it runs outside the errgroup.
func readCommands(ctx context.Context, r io.Reader, out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case out <- strings.TrimSpace(strings.ToLower(scanner.Text())):
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) handleCommands(ctx context.Context, player playback.Source, coord *subsync.Coordinator, commands <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case input, ok := <-commands:
			if !ok {
				return nil
			}
			switch input {
			case "p", "pause":
				if player.State() == playback.StatePlaying {
					if err := player.Pause(); err != nil {
						colours.Error.Fprintf(s.Out, "❌ %v\n", err)
						continue
					}
					colours.Warning.Fprintln(s.Out, "⏸️  Paused")
				} else {
					if err := player.Play(); err != nil {
						colours.Error.Fprintf(s.Out, "❌ %v\n", err)
						continue
					}
					colours.Success.Fprintln(s.Out, "▶️  Resumed")
				}
			case "n", "narration":
				if coord.DisableNarration() {
					colours.Warning.Fprintln(s.Out, "🔇 Narration off")
				} else {
					colours.Info.Fprintln(s.Out, "ℹ️  Narration is already off")
				}
			case "s", "stop":
				colours.Warning.Fprintln(s.Out, "⏹️  Stopped")
				return player.Stop()
			case "":
				continue
			default:
				colours.Info.Fprintln(s.Out, "ℹ️  Use 'p' for pause/resume, 'n' to turn narration off, 's' to stop")
			}
		}
	}
}
