package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics counts reconciled processor notifications.
type WebhookMetrics struct {
	events *prometheus.CounterVec
}

func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_webhook_events_total",
		Help: "Processor webhook events by provider, type and reconciliation result.",
	}, []string{"provider", "event_type", "result"})
	reg.MustRegister(events)
	return &WebhookMetrics{events: events}
}

// Observe records the reconciliation result of one event.
func (w *WebhookMetrics) Observe(provider, eventType string, ok bool) {
	if w == nil || w.events == nil {
		return
	}
	result := "failed"
	if ok {
		result = "ok"
	}
	w.events.WithLabelValues(normalizeLabel(provider), normalizeLabel(eventType), result).Inc()
}
