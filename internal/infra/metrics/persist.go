package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(persistLoadsTotal, persistSavesTotal, persistSaveBytes) }

var (
	persistLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "persist_loads_total",
			Help: "Snapshot loads by result.",
		},
		[]string{"result"}, // ok|empty|corrupt|error
	)

	persistSavesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "persist_saves_total",
			Help: "Snapshot saves by result.",
		},
		[]string{"result"}, // ok|error|coalesced
	)

	persistSaveBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "persist_save_bytes",
			Help:    "Size of serialized snapshots written.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		},
	)
)

func IncPersistLoad(result string) {
	persistLoadsTotal.WithLabelValues(norm(result)).Inc()
}

func IncPersistSave(result string) {
	persistSavesTotal.WithLabelValues(norm(result)).Inc()
}

func ObserveSaveBytes(n int) {
	persistSaveBytes.Observe(float64(n))
}
