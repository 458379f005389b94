package ops

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// mutationsTotal counts mutations by operation and outcome
	// (ok, noop, rejected, conflict, error).
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "piecewall",
		Subsystem: "ops",
		Name:      "mutations_total",
		Help:      "Piece list mutations by operation and outcome",
	}, []string{"op", "result"})

	// writeRetriesTotal counts compare-and-swap attempts lost to a concurrent writer.
	writeRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "piecewall",
		Subsystem: "ops",
		Name:      "write_retries_total",
		Help:      "Writes retried after losing an optimistic race",
	}, []string{"op"})

	consolidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "piecewall",
		Subsystem: "consolidation",
		Name:      "total",
		Help:      "Consolidation attempts by outcome",
	}, []string{"result"})

	consolidationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "piecewall",
		Subsystem: "consolidation",
		Name:      "duration_seconds",
		Help:      "End-to-end consolidation latency including the summarizer call",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
	})
)
