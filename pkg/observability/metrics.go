package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecordsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "synthetics",
			Subsystem: "reporter",
			Name:      "records_written_total",
			Help:      "Records written to the output sink.",
		},
		[]string{"type"},
	)

	RecordWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "synthetics",
			Subsystem: "reporter",
			Name:      "record_write_failures_total",
			Help:      "Records that failed to serialize or write.",
		},
		[]string{"type"},
	)

	SubscriberFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "synthetics",
			Subsystem: "runner",
			Name:      "subscriber_failures_total",
			Help:      "Subscriber errors and panics isolated during dispatch.",
		},
		[]string{"event"},
	)

	CollectorStopSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "synthetics",
			Subsystem: "collector",
			Name:      "stop_seconds",
			Help:      "Time spent stopping a collector and decoding its output.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		},
		[]string{"kind"},
	)

	CollectorFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "synthetics",
			Subsystem: "collector",
			Name:      "failures_total",
			Help:      "Collector attach and stop failures.",
		},
		[]string{"kind", "phase"},
	)

	JourneysFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "synthetics",
			Subsystem: "journey",
			Name:      "finished_total",
			Help:      "Journeys finished by status.",
		},
		[]string{"status"},
	)
)

// ObserveCollectorStop records how long a collector took to stop.
func ObserveCollectorStop(kind string, d time.Duration) {
	CollectorStopSeconds.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordCollectorFailure counts a collector failure in the given phase.
func RecordCollectorFailure(kind, phase string) {
	CollectorFailures.WithLabelValues(kind, phase).Inc()
}
