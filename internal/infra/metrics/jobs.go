package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(replyTasksTotal, responderLatencyMs, uploadsTotal) }

var (
	replyTasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reply_tasks_total",
			Help: "Deferred reply tasks, labelled by outcome.",
		},
		[]string{"outcome"}, // ok|timeout|canceled|busy|error
	)

	responderLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "responder_latency_ms",
			Help:    "Responder call latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000},
		},
		[]string{"provider", "success"},
	)

	uploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uploads_total",
			Help: "File uploads by result.",
		},
		[]string{"result"}, // ok|failed
	)
)

func IncReplyTask(outcome string) {
	replyTasksTotal.WithLabelValues(norm(outcome)).Inc()
}

func ObserveResponder(provider string, latencyMs int64, success bool) {
	responderLatencyMs.WithLabelValues(norm(provider), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func IncUpload(result string) {
	uploadsTotal.WithLabelValues(norm(result)).Inc()
}
