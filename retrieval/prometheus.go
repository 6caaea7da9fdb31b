package retrieval

import (
	"context"
	"errors"
	"time"

	"github.com/poiesic/rolodex/core"
	"github.com/poiesic/rolodex/index"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values for the request counter.
const (
	OutcomeOK             = "ok"
	OutcomeInvalidInput   = "invalid_input"
	OutcomeDesynchronized = "desynchronized"
	OutcomeCanceled       = "canceled"
	OutcomeError          = "error"
)

// PrometheusMonitor records retrieval metrics.
type PrometheusMonitor struct {
	requests *prometheus.CounterVec
	duration prometheus.Histogram
	results  prometheus.Histogram
}

var _ Monitor = (*PrometheusMonitor)(nil)

// NewPrometheusMonitor creates a monitor and registers its collectors with
// reg. A nil reg means prometheus.DefaultRegisterer.
func NewPrometheusMonitor(reg prometheus.Registerer) (*PrometheusMonitor, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &PrometheusMonitor{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rolodex",
				Subsystem: "retrieval",
				Name:      "requests_total",
				Help:      "Retrieval requests by outcome.",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rolodex",
			Subsystem: "retrieval",
			Name:      "duration_seconds",
			Help:      "End-to-end retrieval latency, query encoding included.",
			Buckets:   prometheus.DefBuckets,
		}),
		results: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rolodex",
			Subsystem: "retrieval",
			Name:      "results",
			Help:      "Records returned per successful retrieval.",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20, 50},
		}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.duration, m.results} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *PrometheusMonitor) Start(_ string, _ int) {}

func (m *PrometheusMonitor) AfterSearch(_ []index.Hit) {}

func (m *PrometheusMonitor) Finish(results []*core.SearchResult, elapsed time.Duration, err error) {
	outcome := Outcome(err)
	m.requests.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
	if outcome == OutcomeOK {
		m.results.Observe(float64(len(results)))
	}
}

// Outcome classifies a retrieval error into a metric label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, core.ErrInput):
		return OutcomeInvalidInput
	case errors.Is(err, core.ErrDesynchronized):
		return OutcomeDesynchronized
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}
