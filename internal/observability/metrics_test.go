package observability

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics()

	m.RecordClassification("gemini", "ok")
	m.RecordClassification("gemini", "ok")
	m.RecordClassification("gemini", "timeout")
	m.RecordFieldFallback("gemini", "category")
	m.RecordRequest("/tickets", "GET", 200, 15*time.Millisecond)
	m.RecordError("/tickets", "POST", "VALIDATION_FAILED")
	m.SetTicketTotals(7, 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.classifications.WithLabelValues("gemini", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.classifications.WithLabelValues("gemini", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fieldFallbacks.WithLabelValues("gemini", "category")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestCount.WithLabelValues("/tickets", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorCount.WithLabelValues("/tickets", "POST", "VALIDATION_FAILED")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.ticketsTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ticketsOpen))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordClassification("openai", "ok")
		m.RecordFieldFallback("openai", "priority")
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "NOT_FOUND")
		m.SetTicketTotals(1, 1)
	})
}

func TestMetricsHandlerExposesCollectors(t *testing.T) {
	m := NewMetrics()
	m.RecordClassification("groq", "parse_error")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `ticket_classifications_total{outcome="parse_error",provider="groq"} 1`)
}
