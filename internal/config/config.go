package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"subnarrate/internal/domain/cue"
)

const envPrefix = "SUBNARRATE"

type TTS struct {
	Type      string  `mapstructure:"type"`
	Voice     string  `mapstructure:"voice"`
	Language  string  `mapstructure:"language"`
	Speed     float64 `mapstructure:"speed"`
	Volume    float64 `mapstructure:"volume"`
	CachePath string  `mapstructure:"cache_path"`
}

type Sync struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Narration    bool          `mapstructure:"narration"`
	MinRate      float64       `mapstructure:"min_rate"`
	MaxRate      float64       `mapstructure:"max_rate"`
}

type Playback struct {
	// Media is an MP3 track to follow. Empty means a silent simulated clock.
	Media    string        `mapstructure:"media"`
	Duration time.Duration `mapstructure:"duration"`
}

type Metrics struct {
	Addr string `mapstructure:"addr"`
}

type Config struct {
	TTS      TTS      `mapstructure:"tts"`
	Sync     Sync     `mapstructure:"sync"`
	Playback Playback `mapstructure:"playback"`
	Metrics  Metrics  `mapstructure:"metrics"`
}

func SetDefaults() {
	viper.SetDefault("tts.type", "auto") // Auto-select best engine
	viper.SetDefault("tts.voice", "default")
	viper.SetDefault("tts.language", "en-US")
	viper.SetDefault("tts.speed", 1.0)
	viper.SetDefault("tts.volume", 1.0)
	viper.SetDefault("tts.cache_path", "./cache/tts")

	viper.SetDefault("sync.poll_interval", "300ms")
	viper.SetDefault("sync.narration", true)
	viper.SetDefault("sync.min_rate", 0.5)
	viper.SetDefault("sync.max_rate", 3.0)

	viper.SetDefault("playback.media", "")
	viper.SetDefault("playback.duration", "0s")

	viper.SetDefault("metrics.addr", "")
}

// Init points viper at the config file and environment. A missing default
// config file is not an error; a missing explicit one is.
func Init(cfgFile string) error {
	SetDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("subnarrate")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("$HOME/.subnarrate")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			logrus.Debug("No config file found, using defaults")
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}

	logrus.WithField("file", viper.ConfigFileUsed()).Debug("Loaded config")
	return nil
}

// Load decodes and checks the current viper settings.
func Load() (Config, error) {
	var c Config
	if err := viper.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("failed to decode config: %w", err)
	}
	return c, c.validate()
}

func (c Config) validate() error {
	if c.Sync.PollInterval <= 0 {
		return fmt.Errorf("sync.poll_interval must be positive, got %v", c.Sync.PollInterval)
	}
	if c.Sync.MinRate <= 0 {
		return fmt.Errorf("sync.min_rate must be positive, got %v", c.Sync.MinRate)
	}
	if c.Sync.MaxRate > 0 && c.Sync.MaxRate < c.Sync.MinRate {
		return fmt.Errorf("sync.max_rate %v is below sync.min_rate %v", c.Sync.MaxRate, c.Sync.MinRate)
	}
	if c.TTS.Volume < 0 || c.TTS.Volume > 2 {
		return fmt.Errorf("tts.volume must be between 0 and 2.0, got %v", c.TTS.Volume)
	}
	if c.Playback.Duration < 0 {
		return fmt.Errorf("playback.duration must not be negative, got %v", c.Playback.Duration)
	}
	return nil
}

// CueSource returns the configured cues, or the sample cues when the config
// has none.
func CueSource() cue.Source {
	if viper.IsSet("cues") {
		return cue.NewViperSource(nil, "cues")
	}
	return cue.Sample()
}
