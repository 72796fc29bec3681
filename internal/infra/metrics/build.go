package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(buildInfo) }

var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "conversation_store_build_info",
		Help: "A constant metric labelled with version, store backend and responder provider.",
	},
	[]string{"version", "backend", "provider"},
)

func SetBuildInfo(version, backend, provider string) {
	buildInfo.WithLabelValues(version, norm(backend), norm(provider)).Set(1)
}
