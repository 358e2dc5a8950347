package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.OrderCreated("semester")
	m.Verification("client", "ok")
	m.Webhook("payment.captured")
	m.ProviderCall(0.1)
	m.HTTPRequest("/health", "GET", "200", 0.01)
}

func TestRegisterAndCount(t *testing.T) {
	m := New()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))
	assert.Error(t, m.Register(reg), "double registration must fail")

	m.OrderCreated("hostel")
	m.OrderCreated("hostel")
	m.Verification("webhook", "signature_mismatch")
	m.HTTPRequest("/api/payments/verify", "POST", "400", 0.02)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OrdersCreated.WithLabelValues("hostel")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Verifications.WithLabelValues("webhook", "signature_mismatch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/api/payments/verify", "POST", "400")))
}
