package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type OrderMetrics struct {
	Placed  *prometheus.CounterVec
	Latency prometheus.Histogram
}

func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	placed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "farmmart",
		Subsystem: "orders",
		Name:      "placed_total",
		Help:      "Order placement attempts by result.",
	}, []string{"result"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "farmmart",
		Subsystem: "orders",
		Name:      "place_duration_seconds",
		Help:      "Latency of the order placement transaction.",
		Buckets:   prometheus.DefBuckets,
	})
	reg.MustRegister(placed, latency)
	return &OrderMetrics{Placed: placed, Latency: latency}
}

// ObservePlace is nil-safe so services built without metrics stay quiet.
func (m *OrderMetrics) ObservePlace(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.Placed.WithLabelValues(result).Inc()
	m.Latency.Observe(d.Seconds())
}

func Handler() http.Handler { return promhttp.Handler() }
