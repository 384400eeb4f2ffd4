package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "radar"

// Source labels for fetch metrics.
const (
	SourceTimestamps = "timestamps"
	SourceFeed       = "feed"
	SourceAdvisory   = "advisory"
	SourceOutlook    = "outlook"
	SourceBasemap    = "basemap"
)

var (
	FramesKnown = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "frames_known",
		Help:      "Radar timestamps currently in the animation window.",
	})

	FramesEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_evicted_total",
		Help:      "Radar frames dropped from the front of the window.",
	})

	AdvisoriesHeld = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "advisory_entries",
		Help:      "Advisory entries held after the last reconciliation.",
	})

	AdvisoryLayersDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "advisory_layers_discarded_total",
		Help:      "Advisory layers built after their entry was removed or superseded.",
	})

	FetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_failures_total",
		Help:      "Failed upstream fetches by source.",
	}, []string{"source"})

	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "fetch_duration_seconds",
		Help:      "Duration of upstream fetches by source.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source"})
)
