package subsync

import (
	"strings"

	"subnarrate/internal/domain/cue"
)

// Words-per-second tiers picked by syllable count.
const (
	ComplexWPS = 1.8
	MediumWPS  = 2.2
	SimpleWPS  = 2.5

	complexSyllables = 15
	mediumSyllables  = 8
)

// Default clamp range for the narration rate multiplier.
const (
	DefaultMinRate = 0.5
	DefaultMaxRate = 3.0
)

// Estimate is the breakdown behind a cue's narration rate.
type Estimate struct {
	WindowMs          int64
	Words             int
	Syllables         int
	WordsPerSecond    float64
	EstimatedSpeechMs float64
	RawRate           float64
	Rate              float64
	Clamped           bool
}

// RateEstimator computes how fast narration has to run to finish inside a
// cue's window. A MaxRate <= 0 disables clamping.
type RateEstimator struct {
	MinRate float64
	MaxRate float64
}

// DefaultRateEstimator clamps to [DefaultMinRate, DefaultMaxRate].
func DefaultRateEstimator() RateEstimator {
	return RateEstimator{MinRate: DefaultMinRate, MaxRate: DefaultMaxRate}
}

func (r RateEstimator) Estimate(c cue.Cue) Estimate {
	words := len(strings.Fields(c.Text))
	syllables := CountSyllables(c.Text)
	wps := WordsPerSecond(words, syllables)
	if words < 1 {
		words = 1
	}

	est := Estimate{
		WindowMs:          c.Window(),
		Words:             words,
		Syllables:         syllables,
		WordsPerSecond:    wps,
		EstimatedSpeechMs: float64(words) / wps * 1000,
	}
	if est.WindowMs <= 0 {
		est.RawRate = 1
	} else {
		est.RawRate = est.EstimatedSpeechMs / float64(est.WindowMs)
	}
	est.Rate, est.Clamped = r.clamp(est.RawRate)
	return est
}

func (r RateEstimator) clamp(rate float64) (float64, bool) {
	if r.MaxRate <= 0 {
		return rate, false
	}
	if rate < r.MinRate {
		return r.MinRate, true
	}
	if rate > r.MaxRate {
		return r.MaxRate, true
	}
	return rate, false
}

// WordsPerSecond picks the natural speaking pace for a cue. Longer, more
// complex text is spoken slower.
func WordsPerSecond(words, syllables int) float64 {
	if words == 0 {
		return SimpleWPS
	}
	switch {
	case syllables > complexSyllables:
		return ComplexWPS
	case syllables > mediumSyllables:
		return MediumWPS
	default:
		return SimpleWPS
	}
}

// CountSyllables sums the heuristic syllable count of every word in text.
func CountSyllables(text string) int {
	total := 0
	for _, w := range strings.Fields(text) {
		total += wordSyllables(w)
	}
	return total
}

// wordSyllables counts vowel groups in the ASCII letters of word, dropping
// one for a trailing silent "e".
func wordSyllables(word string) int {
	var clean strings.Builder
	for _, r := range strings.ToLower(word) {
		if r >= 'a' && r <= 'z' {
			clean.WriteRune(r)
		}
	}
	w := clean.String()

	count := 0
	prevVowel := false
	for _, r := range w {
		vowel := strings.ContainsRune("aeiou", r)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}

	if strings.HasSuffix(w, "e") && count > 1 {
		count--
	}
	return count
}
