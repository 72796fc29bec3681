package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(conversationsGauge, conversationOpsTotal, messagesAppendedTotal)
}

var (
	conversationsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "store_conversations",
			Help: "Number of conversations currently held by the store.",
		},
	)

	conversationOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operations_total",
			Help: "Store operations by kind and result.",
		},
		[]string{"op", "result"}, // op=create|append|delete|select, result=ok|noop
	)

	messagesAppendedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_messages_appended_total",
			Help: "Messages appended, labelled by role.",
		},
		[]string{"role"},
	)
)

func SetConversations(n int) {
	conversationsGauge.Set(float64(n))
}

func IncStoreOp(op, result string) {
	conversationOpsTotal.WithLabelValues(norm(op), norm(result)).Inc()
}

func IncMessageAppended(role string) {
	messagesAppendedTotal.WithLabelValues(norm(role)).Inc()
}
