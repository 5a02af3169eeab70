package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestAppMetrics(t *testing.T) (*AppMetrics, MetricsCollector) {
	t.Helper()
	c := newTestCollector(t)
	return NewAppMetrics(c), c
}

func TestNewAppMetrics_RegistersAll(t *testing.T) {
	m, _ := newTestAppMetrics(t)
	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.ParseRequestsTotal)
	assert.NotNil(t, m.ParseConfidence)
	assert.NotNil(t, m.CorrectionsTotal)
	assert.NotNil(t, m.RuleBundleSize)
	assert.NotNil(t, m.ErrorsTotal)
}

func TestRecordHTTPRequest(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordHTTPRequest(m, "POST", "/api/v1/parse", 200, 25*time.Millisecond)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_http_requests_total{method="POST",path="/api/v1/parse",status_code="200"} 1`)
	assert.Contains(t, output, "test_unit_http_request_duration_seconds_count")
}

func TestRecordParse_OK(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordParse(m, "disease", "ok", 0.85, 3*time.Millisecond)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_parse_requests_total{category="disease",status="ok"} 1`)
	assert.Contains(t, output, `test_unit_parse_confidence_count{category="disease"} 1`)
}

func TestRecordParse_Error_SkipsObservations(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordParse(m, "medical", "error", 0, time.Millisecond)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_parse_requests_total{category="medical",status="error"} 1`)
	assert.NotContains(t, output, `test_unit_parse_confidence_count{category="medical"}`)
}

func TestRecordCacheAccess(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordCacheAccess(m, "disease", true)
	RecordCacheAccess(m, "disease", true)
	RecordCacheAccess(m, "disease", false)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_parse_cache_hits_total{category="disease"} 2`)
	assert.Contains(t, output, `test_unit_parse_cache_misses_total{category="disease"} 1`)
}

func TestRecordCorrection(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordCorrection(m, "payout_amount", true)
	RecordCorrection(m, "payout_amount", false)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_corrections_total{field="payout_amount",kind="confirm"} 1`)
	assert.Contains(t, output, `test_unit_corrections_total{field="payout_amount",kind="correct"} 1`)
}

func TestRecordDBQuery_ErrorCountsOnce(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordDBQuery(m, "postgres", "select", 2*time.Millisecond, nil)
	RecordDBQuery(m, "postgres", "select", 2*time.Millisecond, errors.New("boom"))

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_db_query_duration_seconds_count{db="postgres",operation="select"} 2`)
	assert.Contains(t, output, `test_unit_errors_total{component="postgres",error_type="query_error"} 1`)
}
