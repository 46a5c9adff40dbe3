package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestChatMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChatMetrics(reg)

	m.ObserveRequest("action")
	m.ObserveRequest("action")
	m.ObserveAction("list_therapists", "ok")
	m.ObserveLLMLatency(0.25)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.requestsTotal.WithLabelValues("action")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.actionsTotal.WithLabelValues("list_therapists", "ok")))
}

func TestChatMetricsNilReceiverIsSafe(t *testing.T) {
	var m *ChatMetrics

	assert.NotPanics(t, func() {
		m.ObserveRequest("action")
		m.ObserveAction("list_therapists", "ok")
		m.ObserveLLMLatency(0.1)
	})
}
