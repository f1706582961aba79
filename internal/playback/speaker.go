package playback

import (
	"fmt"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

const resampleQuality = 4

var (
	speakerMu   sync.Mutex
	speakerRate beep.SampleRate
)

// OpenSpeaker initialises the process-wide beep speaker on first use and
// returns the sample rate it runs at. Later callers share that rate.
func OpenSpeaker(rate beep.SampleRate) (beep.SampleRate, error) {
	speakerMu.Lock()
	defer speakerMu.Unlock()

	if speakerRate != 0 {
		return speakerRate, nil
	}
	if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
		return 0, fmt.Errorf("failed to initialise speaker: %w", err)
	}
	speakerRate = rate
	return rate, nil
}

// Adapt resamples s, produced at rate, to the speaker's rate.
func Adapt(rate beep.SampleRate, s beep.Streamer) (beep.Streamer, error) {
	target, err := OpenSpeaker(rate)
	if err != nil {
		return nil, err
	}
	if target == rate {
		return s, nil
	}
	return beep.Resample(resampleQuality, rate, target, s), nil
}
