package engine

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	engineConnectionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ratengine",
		Subsystem: "engine",
		Name:      "active_connections",
		Help:      "Currently open connections across all listeners.",
	})

	engineRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ratengine",
		Subsystem: "engine",
		Name:      "requests_total",
		Help:      "Requests served, by protocol.",
	}, []string{"protocol"})
)

func promHandlerFor(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
