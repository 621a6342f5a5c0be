package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "taskchat_connections_active",
		Help: "Currently open websocket connections",
	})

	RoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "taskchat_rooms_active",
		Help: "Rooms currently held in memory",
	})

	JoinsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskchat_joins_total",
		Help: "Total successful room joins",
	})

	MessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskchat_messages_total",
		Help: "Total chat messages broadcast",
	})

	UploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskchat_uploads_total",
		Help: "Total files accepted and persisted",
	})

	UploadsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskchat_uploads_rejected_total",
		Help: "Upload calls rejected, by reason",
	}, []string{"reason"})
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
