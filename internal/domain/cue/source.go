package cue

import (
	"fmt"

	"github.com/spf13/viper"
)

// Source supplies the cue list for a playback session.
type Source interface {
	Cues() (List, error)
}

// Static is a Source backed by an in-memory slice.
type Static []Cue

func (s Static) Cues() (List, error) {
	return NewList(s)
}

// ViperSource decodes cues from a viper configuration key.
type ViperSource struct {
	v   *viper.Viper
	key string
}

// NewViperSource reads cues stored under key. A nil v uses the global viper instance.
func NewViperSource(v *viper.Viper, key string) *ViperSource {
	if v == nil {
		v = viper.GetViper()
	}
	return &ViperSource{v: v, key: key}
}

func (s *ViperSource) Cues() (List, error) {
	if !s.v.IsSet(s.key) {
		return nil, fmt.Errorf("no cues configured under %q", s.key)
	}

	var cues []Cue
	if err := s.v.UnmarshalKey(s.key, &cues); err != nil {
		return nil, fmt.Errorf("failed to decode cues: %w", err)
	}
	return NewList(cues)
}

// Sample returns the demo cues used when nothing is configured.
func Sample() Static {
	return Static{
		{ID: 1, StartMs: 0, EndMs: 3500, Text: "Sir, how did you get so much knowledge"},
		{ID: 2, StartMs: 3500, EndMs: 6500, Text: "about Islam by studying in general line?"},
		{ID: 3, StartMs: 6501, EndMs: 8000, Text: "We who study in normal line,"},
		{ID: 4, StartMs: 8001, EndMs: 10000, Text: "How will we learn about Islam?"},
	}
}
