package billing

import (
	"github.com/prometheus/client_golang/prometheus"
)

// webhook outcome labels
const (
	outcomeAccepted     = "accepted"
	outcomeDuplicate    = "duplicate"
	outcomePending      = "pending"
	outcomeIgnored      = "ignored"
	outcomeMalformed    = "malformed"
	outcomeUnauthorized = "unauthorized"
	outcomeFailed       = "failed"
)

type metrics struct {
	webhookEvents *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coachbill",
			Subsystem: "webhooks",
			Name:      "events_total",
			Help:      "Webhook deliveries by provider and processing outcome.",
		}, []string{"provider", "outcome"}),
	}
	reg.MustRegister(m.webhookEvents)
	return m
}

func (m *metrics) observe(provider, outcome string) {
	m.webhookEvents.WithLabelValues(provider, outcome).Inc()
}
