package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds all application metrics.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Parse engine
	ParseRequestsTotal   CounterVec
	ParseDuration        HistogramVec
	ParseConfidence      HistogramVec
	FieldConfidence      HistogramVec
	ParseCacheHitsTotal  CounterVec
	ParseCacheMissTotal  CounterVec
	LearnedRuleHitsTotal CounterVec

	// Review and learning
	CorrectionsTotal     CounterVec
	RulesDistilledTotal  CounterVec
	RuleBundleSize       GaugeVec
	RuleRefreshDuration  HistogramVec
	DistillCycleDuration HistogramVec

	// Infrastructure
	DBConnectionPoolSize   GaugeVec
	DBConnectionPoolActive GaugeVec
	DBQueryDuration        HistogramVec
	MessageProcessDuration HistogramVec

	// System health
	ServiceUptime     GaugeVec
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

// Default buckets.
var (
	DefaultHTTPDurationBuckets  = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultParseDurationBuckets = []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1}
	DefaultConfidenceBuckets    = []float64{0, .1, .2, .3, .4, .5, .6, .7, .8, .9, 1}
	DefaultDBDurationBuckets    = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
)

// NewAppMetrics registers all metrics and returns the AppMetrics struct.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	// HTTP
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method", "path")

	// Parse engine
	m.ParseRequestsTotal = collector.RegisterCounter("parse_requests_total", "Clause parse requests", "category", "status")
	m.ParseDuration = collector.RegisterHistogram("parse_duration_seconds", "Clause parse duration", DefaultParseDurationBuckets, "category")
	m.ParseConfidence = collector.RegisterHistogram("parse_confidence", "Overall parse confidence", DefaultConfidenceBuckets, "category")
	m.FieldConfidence = collector.RegisterHistogram("parse_field_confidence", "Per-field parse confidence", DefaultConfidenceBuckets, "field")
	m.ParseCacheHitsTotal = collector.RegisterCounter("parse_cache_hits_total", "Result cache hits", "category")
	m.ParseCacheMissTotal = collector.RegisterCounter("parse_cache_misses_total", "Result cache misses", "category")
	m.LearnedRuleHitsTotal = collector.RegisterCounter("learned_rule_hits_total", "Extractions resolved by learned rules", "field")

	// Review and learning
	m.CorrectionsTotal = collector.RegisterCounter("corrections_total", "Review corrections consumed", "field", "kind")
	m.RulesDistilledTotal = collector.RegisterCounter("rules_distilled_total", "Learned rules distilled from corrections", "field")
	m.RuleBundleSize = collector.RegisterGauge("rule_bundle_size", "Learned rules in the active bundle", "field")
	m.RuleRefreshDuration = collector.RegisterHistogram("rule_refresh_duration_seconds", "Rule bundle refresh duration", DefaultDBDurationBuckets)
	m.DistillCycleDuration = collector.RegisterHistogram("distill_cycle_duration_seconds", "Distillation cycle duration", DefaultHTTPDurationBuckets)

	// Infrastructure
	m.DBConnectionPoolSize = collector.RegisterGauge("db_pool_size", "Database connection pool size", "db")
	m.DBConnectionPoolActive = collector.RegisterGauge("db_pool_active", "Database active connections", "db")
	m.DBQueryDuration = collector.RegisterHistogram("db_query_duration_seconds", "Database query duration", DefaultDBDurationBuckets, "db", "operation")
	m.MessageProcessDuration = collector.RegisterHistogram("mq_process_duration_seconds", "Message processing duration", DefaultHTTPDurationBuckets, "topic")

	// System health
	m.ServiceUptime = collector.RegisterGauge("service_uptime_seconds", "Service uptime", "service")
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "error_type")

	return m
}

// ─────────────────────────────────────────────────────────────────────────────
// Recording helpers
// ─────────────────────────────────────────────────────────────────────────────

func RecordHTTPRequest(metrics *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordParse reports one engine invocation. status is "ok", "cached", or
// "error".
func RecordParse(metrics *AppMetrics, category, status string, confidence float64, duration time.Duration) {
	metrics.ParseRequestsTotal.WithLabelValues(category, status).Inc()
	if status == "ok" {
		metrics.ParseDuration.WithLabelValues(category).Observe(duration.Seconds())
		metrics.ParseConfidence.WithLabelValues(category).Observe(confidence)
	}
}

func RecordCacheAccess(metrics *AppMetrics, category string, hit bool) {
	if hit {
		metrics.ParseCacheHitsTotal.WithLabelValues(category).Inc()
	} else {
		metrics.ParseCacheMissTotal.WithLabelValues(category).Inc()
	}
}

// RecordCorrection reports a consumed review message. kind is "confirm" or
// "correct".
func RecordCorrection(metrics *AppMetrics, field string, confirmed bool) {
	kind := "correct"
	if confirmed {
		kind = "confirm"
	}
	metrics.CorrectionsTotal.WithLabelValues(field, kind).Inc()
}

func RecordDBQuery(metrics *AppMetrics, db, operation string, duration time.Duration, err error) {
	metrics.DBQueryDuration.WithLabelValues(db, operation).Observe(duration.Seconds())
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues(db, "query_error").Inc()
	}
}

func RecordError(metrics *AppMetrics, component, errorType string) {
	metrics.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
