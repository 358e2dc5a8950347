package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the payment service collectors. A nil *Metrics records nothing.
type Metrics struct {
	OrdersCreated   *prometheus.CounterVec
	Verifications   *prometheus.CounterVec
	WebhookEvents   *prometheus.CounterVec
	ProviderLatency prometheus.Histogram

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

func New() *Metrics {
	return &Metrics{
		OrdersCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_orders_created_total",
				Help: "Total number of payment orders registered with the provider",
			},
			[]string{"purpose"},
		),
		Verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_verifications_total",
				Help: "Payment verifications by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		WebhookEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_webhook_events_total",
				Help: "Verified provider webhook events by event type",
			},
			[]string{"event"},
		),
		ProviderLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "payment_provider_request_duration_seconds",
				Help:    "Duration of order registration calls to the provider",
				Buckets: prometheus.DefBuckets,
			},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"handler", "method"},
		),
	}
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.OrdersCreated, m.Verifications, m.WebhookEvents, m.ProviderLatency,
		m.HTTPRequests, m.HTTPDuration,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) OrderCreated(purpose string) {
	if m == nil {
		return
	}
	m.OrdersCreated.WithLabelValues(purpose).Inc()
}

func (m *Metrics) Verification(source, outcome string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) Webhook(event string) {
	if m == nil {
		return
	}
	m.WebhookEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) ProviderCall(seconds float64) {
	if m == nil {
		return
	}
	m.ProviderLatency.Observe(seconds)
}

func (m *Metrics) HTTPRequest(handler, method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(handler, method, status).Inc()
	m.HTTPDuration.WithLabelValues(handler, method).Observe(seconds)
}
