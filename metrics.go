package multistream

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics receives negotiation outcome observations from a Muxer. The
// zero value (via noopMetrics) discards everything; attach a
// PrometheusMetrics with WithMetrics to export real counters.
type Metrics interface {
	// ObserveNegotiation records one Negotiate call's outcome
	// ("accepted", "eof", "error") and wall-clock duration. A rejected
	// protocol does not end a Negotiate call, so it has no outcome of its
	// own.
	ObserveNegotiation(outcome string, d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ObserveNegotiation(string, time.Duration) {}

// PrometheusMetrics implements Metrics over two collectors: a counter
// vector labeled by outcome, and a duration histogram. Modeled on the
// naming conventions of pkg/interfaces/metrics.go (Counter/Histogram),
// backed here by the real client_golang collectors rather than a custom
// abstraction.
type PrometheusMetrics struct {
	negotiations *prometheus.CounterVec
	duration     prometheus.Histogram
}

// NewPrometheusMetrics creates and registers the collectors against reg.
// Passing nil registers against prometheus.DefaultRegisterer.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	pm := &PrometheusMetrics{
		negotiations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "multistream",
			Name:      "negotiations_total",
			Help:      "Count of completed Negotiate calls by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "multistream",
			Name:      "negotiation_duration_seconds",
			Help:      "Wall-clock duration of Negotiate calls.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(pm.negotiations, pm.duration)
	return pm
}

// ObserveNegotiation implements Metrics.
func (pm *PrometheusMetrics) ObserveNegotiation(outcome string, d time.Duration) {
	pm.negotiations.WithLabelValues(outcome).Inc()
	pm.duration.Observe(d.Seconds())
}
