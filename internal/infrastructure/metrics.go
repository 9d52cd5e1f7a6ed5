package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// BusinessMetrics are the instruments of the server. Every Record helper
// accepts a nil receiver.
type BusinessMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	QueriesTotal      metric.Int64Counter
	QueryDuration     metric.Float64Histogram
	QueryErrors       metric.Int64Counter
	QueryEmptyResults metric.Int64Counter

	DatasetLoadsTotal   metric.Int64Counter
	DatasetLoadFailures metric.Int64Counter
	DatasetLoadDuration metric.Float64Histogram
	DatasetObservations metric.Int64Gauge
	DatasetVersion      metric.Int64Gauge

	SystemErrors metric.Int64Counter
}

// instruments collects creation errors so the constructor reads as
// a flat list
type instruments struct {
	meter metric.Meter
	errs  []error
}

func (in *instruments) counter(name, desc string) metric.Int64Counter {
	c, err := in.meter.Int64Counter(name, metric.WithDescription(desc))
	in.errs = append(in.errs, err)
	return c
}

func (in *instruments) upDown(name, desc string) metric.Int64UpDownCounter {
	c, err := in.meter.Int64UpDownCounter(name, metric.WithDescription(desc))
	in.errs = append(in.errs, err)
	return c
}

func (in *instruments) seconds(name, desc string) metric.Float64Histogram {
	h, err := in.meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
	in.errs = append(in.errs, err)
	return h
}

func (in *instruments) gauge(name, desc string) metric.Int64Gauge {
	g, err := in.meter.Int64Gauge(name, metric.WithDescription(desc))
	in.errs = append(in.errs, err)
	return g
}

// CreateBusinessMetrics registers the server instruments on meter
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	in := &instruments{meter: meter}
	m := &BusinessMetrics{
		HTTPRequestsTotal:   in.counter("http_requests_total", "Total number of HTTP requests"),
		HTTPRequestDuration: in.seconds("http_request_duration_seconds", "HTTP request duration in seconds"),
		HTTPActiveRequests:  in.upDown("http_active_requests", "Number of in-flight HTTP requests"),

		QueriesTotal:      in.counter("indicator_queries_total", "Total number of indicator queries"),
		QueryDuration:     in.seconds("indicator_query_duration_seconds", "Indicator query duration in seconds"),
		QueryErrors:       in.counter("indicator_query_errors_total", "Total number of rejected or failed indicator queries"),
		QueryEmptyResults: in.counter("indicator_query_empty_total", "Total number of indicator queries with no data"),

		DatasetLoadsTotal:   in.counter("dataset_loads_total", "Total number of workbook load attempts"),
		DatasetLoadFailures: in.counter("dataset_load_failures_total", "Total number of failed workbook loads"),
		DatasetLoadDuration: in.seconds("dataset_load_duration_seconds", "Workbook load duration in seconds"),
		DatasetObservations: in.gauge("dataset_observations", "Number of observations in the dataset being served"),
		DatasetVersion:      in.gauge("dataset_version", "Version of the dataset being served"),

		SystemErrors: in.counter("system_errors_total", "Total number of recovered panics and other system errors"),
	}
	if err := errors.Join(in.errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordHTTPRequest counts one served request
func (m *BusinessMetrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status_code", status),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// TrackActive adjusts the in-flight request gauge by delta
func (m *BusinessMetrics) TrackActive(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.HTTPActiveRequests.Add(ctx, delta)
}

// RecordSystemError counts a recovered panic or similar failure
func (m *BusinessMetrics) RecordSystemError(ctx context.Context, errorType, component string) {
	if m == nil {
		return
	}
	m.SystemErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("error_type", errorType),
		attribute.String("component", component),
	))
}

// RecordQueryMetrics records one indicator query. A query without rows counts
// as empty, not as an error.
func RecordQueryMetrics(ctx context.Context, metrics *BusinessMetrics, indicator string, duration time.Duration, rows int, err error) {
	if metrics == nil {
		return
	}

	base := attribute.String("indicator", indicator)
	status := "success"
	switch {
	case err != nil:
		status = "failure"
		metrics.QueryErrors.Add(ctx, 1, metric.WithAttributes(base, errorType(err)))
	case rows == 0:
		status = "no_data"
		metrics.QueryEmptyResults.Add(ctx, 1, metric.WithAttributes(base))
	}
	metrics.QueriesTotal.Add(ctx, 1, metric.WithAttributes(base))
	metrics.QueryDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(base, attribute.String("status", status)))

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.AddEvent("indicator.query", trace.WithAttributes(
			base,
			attribute.Int("rows", rows),
			attribute.String("status", status),
		))
	}
}

// RecordDatasetLoad records one workbook load. The gauges only move on
// success, so they always describe the snapshot being served.
func RecordDatasetLoad(ctx context.Context, metrics *BusinessMetrics, trigger string, duration time.Duration, observations int, version int64, err error) {
	if metrics == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("trigger", trigger))
	metrics.DatasetLoadsTotal.Add(ctx, 1, attrs)
	metrics.DatasetLoadDuration.Record(ctx, duration.Seconds(), attrs)

	if err != nil {
		metrics.DatasetLoadFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("trigger", trigger), errorType(err)))
		return
	}
	metrics.DatasetObservations.Record(ctx, int64(observations))
	metrics.DatasetVersion.Record(ctx, version)
}

func errorType(err error) attribute.KeyValue {
	return attribute.String("error.type", fmt.Sprintf("%T", err))
}
