// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DeliveryOK     = "ok"
	DeliveryFailed = "failed"
)

var (
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nexus",
		Name:      "messages_sent_total",
		Help:      "Messages durably appended to the message log.",
	})

	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nexus",
		Name:      "deliveries_total",
		Help:      "Pushes of persisted messages to live channels, by result.",
	}, []string{"result"})

	LiveChannels = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "nexus",
		Name:      "live_channels",
		Help:      "Channels currently joined to an identity.",
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
