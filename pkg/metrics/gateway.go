package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Gateway call outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeDeclined = "declined"
	OutcomeTimeout  = "timeout"
	OutcomeError    = "error"
)

// GatewayMetrics tracks calls made to the payment processor.
type GatewayMetrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewGatewayMetrics registers the processor call metrics on reg.
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	if reg == nil {
		return &GatewayMetrics{}
	}
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_gateway_calls_total",
		Help: "Payment processor calls by operation and outcome.",
	}, []string{"processor", "operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payments_gateway_call_duration_seconds",
		Help:    "Latency of payment processor calls.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"processor", "operation"})
	reg.MustRegister(calls, duration)
	return &GatewayMetrics{calls: calls, duration: duration}
}

// Observe records one processor call.
func (g *GatewayMetrics) Observe(processor, operation, outcome string, elapsed time.Duration) {
	if g == nil || g.calls == nil {
		return
	}
	g.calls.WithLabelValues(normalizeLabel(processor), normalizeLabel(operation), normalizeLabel(outcome)).Inc()
	g.duration.WithLabelValues(normalizeLabel(processor), normalizeLabel(operation)).Observe(elapsed.Seconds())
}
