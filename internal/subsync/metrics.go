package subsync

import "github.com/prometheus/client_golang/prometheus"

var (
	ticksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "subnarrate",
			Subsystem: "sync",
			Name:      "ticks_total",
			Help:      "Total number of polling ticks that read a playback position",
		},
	)

	skippedTicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "subnarrate",
			Subsystem: "sync",
			Name:      "skipped_ticks_total",
			Help:      "Ticks skipped because the playback position was unavailable",
		},
	)

	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "subnarrate",
			Subsystem: "sync",
			Name:      "events_total",
			Help:      "Subtitle events emitted, by kind",
		},
		[]string{"kind"},
	)

	narrationFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "subnarrate",
			Subsystem: "sync",
			Name:      "narration_failures_total",
			Help:      "Narration requests that failed and were skipped",
		},
	)

	speechRate = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "subnarrate",
			Subsystem: "sync",
			Name:      "speech_rate",
			Help:      "Narration rate multipliers handed to the narrator",
			Buckets:   []float64{0.5, 0.75, 1, 1.25, 1.5, 2, 2.5, 3},
		},
	)
)

func init() {
	prometheus.MustRegister(ticksTotal, skippedTicksTotal, eventsTotal, narrationFailuresTotal, speechRate)
}
