package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	filesImported = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracksync",
		Subsystem: "import",
		Name:      "files_total",
		Help:      "Inbox files processed, by outcome (imported, failed, unsupported, duplicate).",
	}, []string{"outcome"})
	samplesSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracksync",
		Subsystem: "import",
		Name:      "skipped_samples_total",
		Help:      "Samples or fields dropped during decoding, by format.",
	}, []string{"format"})
	pointsImported = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tracksync",
		Subsystem: "import",
		Name:      "points_total",
		Help:      "Points stored across all imported events.",
	})
	importDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tracksync",
		Subsystem: "import",
		Name:      "run_duration_seconds",
		Help:      "Wall time of one inbox import run.",
		Buckets:   prometheus.DefBuckets,
	})
	lastImportGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tracksync",
		Subsystem: "import",
		Name:      "last_event_imported_timestamp_seconds",
		Help:      "Unix timestamp of the most recent event stored.",
	})
)

const (
	OutcomeImported    = "imported"
	OutcomeFailed      = "failed"
	OutcomeUnsupported = "unsupported"
	OutcomeDuplicate   = "duplicate"
)

func init() {
	prometheus.MustRegister(filesImported, samplesSkipped, pointsImported, importDuration, lastImportGauge)
}

// RecordFile counts one processed inbox file.
func RecordFile(outcome string) {
	filesImported.WithLabelValues(outcome).Inc()
}

// RecordImport accounts for one stored event.
func RecordImport(format string, points, skipped int, at time.Time) {
	pointsImported.Add(float64(points))
	if skipped > 0 {
		samplesSkipped.WithLabelValues(format).Add(float64(skipped))
	}
	if !at.IsZero() {
		lastImportGauge.Set(float64(at.Unix()))
	}
}

// ObserveRun records the duration of an import run started at start.
func ObserveRun(start time.Time) {
	importDuration.Observe(time.Since(start).Seconds())
}
