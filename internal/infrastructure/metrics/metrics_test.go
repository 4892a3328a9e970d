package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/backoffice/prdesk/internal/domain/pricing"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findFamily(t *testing.T, m *Metrics, name string) *dto.MetricFamily {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func labelValue(metric *dto.Metric, name string) string {
	for _, lp := range metric.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestMetrics_ObserveHTTP(t *testing.T) {
	m := New()
	m.ObserveHTTP("GET", "/sales/pr", 200, 10*time.Millisecond)
	m.ObserveHTTP("GET", "/sales/pr", 200, 20*time.Millisecond)
	m.ObserveHTTP("GET", "", 404, time.Millisecond)

	f := findFamily(t, m, "prdesk_http_requests_total")
	require.NotNil(t, f)
	byRoute := map[string]float64{}
	for _, metric := range f.GetMetric() {
		byRoute[labelValue(metric, "route")] += metric.GetCounter().GetValue()
	}
	assert.Equal(t, 2.0, byRoute["/sales/pr"])
	assert.Equal(t, 1.0, byRoute["unmatched"])
}

func TestMetrics_RecordTransition(t *testing.T) {
	m := New()
	m.RecordTransition(pricing.ActionAssign, "ok")
	m.RecordTransition(pricing.ActionAssign, "CONCURRENCY_CONFLICT")

	f := findFamily(t, m, "prdesk_workflow_transitions_total")
	require.NotNil(t, f)
	assert.Len(t, f.GetMetric(), 2)
}

func TestMetrics_StateGauge(t *testing.T) {
	m := New()
	m.RegisterStateGauge(func(context.Context) (map[pricing.Status]int64, error) {
		return map[pricing.Status]int64{pricing.StatusDraft: 3, pricing.StatusClosed: 1}, nil
	}, nil)

	f := findFamily(t, m, "prdesk_workflow_requests")
	require.NotNil(t, f)
	got := map[string]float64{}
	for _, metric := range f.GetMetric() {
		got[labelValue(metric, "status")] = metric.GetGauge().GetValue()
	}
	assert.Equal(t, map[string]float64{"Draft": 3, "Closed": 1}, got)
}

func TestMetrics_StateGaugeError(t *testing.T) {
	m := New()
	m.RegisterStateGauge(func(context.Context) (map[pricing.Status]int64, error) {
		return nil, errors.New("db down")
	}, nil)

	assert.Nil(t, findFamily(t, m, "prdesk_workflow_requests"))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RecordTransition(pricing.ActionSubmit, "ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `prdesk_workflow_transitions_total{action="submit",result="ok"} 1`))
}
