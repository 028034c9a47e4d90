package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_mutations_total",
		Help: "Committed message mutations by operation.",
	}, []string{"op"})

	activeSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_active_subscriptions",
		Help: "Currently active live-query subscriptions.",
	})

	wsConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_ws_connections",
		Help: "Open websocket connections.",
	})
)

func RecordMutation(op string) {
	mutationsTotal.WithLabelValues(op).Inc()
}

func SetActiveSubscriptions(n int) {
	activeSubscriptions.Set(float64(n))
}

func AddWSConnection(delta int) {
	wsConnections.Add(float64(delta))
}
