package commitgraph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics mirrors the teacher's practice of instrumenting hot request
// paths with Prometheus counters/histograms. Query calls (PositionOf,
// HashAt, DataAt) are cheap array indexing, so only the lookup path that
// can degrade (hash binary search) and the writer's end-to-end run are
// instrumented; per-position decode calls are not, to keep DataAt free of
// metrics overhead on the hottest traversal path.
var (
	readerLookups = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "commitgraph",
		Subsystem: "reader",
		Name:      "lookup_total",
		Help:      "Number of PositionOf calls served by a commitgraph Reader.",
	})

	readerLookupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "commitgraph",
		Subsystem: "reader",
		Name:      "lookup_seconds",
		Help:      "Latency of PositionOf binary searches.",
		Buckets:   prometheus.DefBuckets,
	})

	writerCommits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "commitgraph",
		Subsystem: "writer",
		Name:      "commits_total",
		Help:      "Number of commits written across all commitgraph Writer runs.",
	})

	writerDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "commitgraph",
		Subsystem: "writer",
		Name:      "duration_seconds",
		Help:      "Wall-clock duration of a commitgraph Writer run, from discovery through serialization.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 16),
	})
)
