package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// OTelExporter provides OpenTelemetry metrics export following OTel standards
type OTelExporter struct {
	meterProvider *sdkmetric.MeterProvider
	collector     Collector

	// OTel meters and instruments
	meter            metric.Meter
	statusCountGauge metric.Int64ObservableGauge
	breakerGauge     metric.Int64ObservableGauge
	failuresGauge    metric.Int64ObservableGauge
}

// NewOTelExporter creates a new OpenTelemetry metrics exporter with Prometheus format
func NewOTelExporter(collector Collector) (*OTelExporter, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(meterProvider)

	meter := meterProvider.Meter(
		"webhook-engine",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	oe := &OTelExporter{
		meterProvider: meterProvider,
		collector:     collector,
		meter:         meter,
	}

	if err := oe.registerInstruments(); err != nil {
		return nil, fmt.Errorf("registering instruments: %w", err)
	}

	return oe, nil
}

// registerInstruments creates and registers all OpenTelemetry metric instruments
func (oe *OTelExporter) registerInstruments() error {
	var err error

	// Ledger record gauge (per status)
	oe.statusCountGauge, err = oe.meter.Int64ObservableGauge(
		"webhook.ledger.records",
		metric.WithDescription("Number of ledger records by status"),
		metric.WithUnit("{events}"),
		metric.WithInt64Callback(oe.observeStatusCounts),
	)
	if err != nil {
		return fmt.Errorf("creating status count gauge: %w", err)
	}

	// Breaker state gauge (1 for the current state, labeled)
	oe.breakerGauge, err = oe.meter.Int64ObservableGauge(
		"webhook.breaker.state",
		metric.WithDescription("Current circuit breaker state"),
		metric.WithInt64Callback(oe.observeBreakerState),
	)
	if err != nil {
		return fmt.Errorf("creating breaker state gauge: %w", err)
	}

	// Consecutive failure streak feeding the breaker threshold
	oe.failuresGauge, err = oe.meter.Int64ObservableGauge(
		"webhook.breaker.consecutive_failures",
		metric.WithDescription("Consecutive downstream failures recorded by the breaker"),
		metric.WithUnit("{failures}"),
		metric.WithInt64Callback(oe.observeConsecutiveFailures),
	)
	if err != nil {
		return fmt.Errorf("creating consecutive failures gauge: %w", err)
	}

	return nil
}

// observeStatusCounts is a callback that reports ledger record counts by status
func (oe *OTelExporter) observeStatusCounts(ctx context.Context, observer metric.Int64Observer) error {
	statusCounts, err := oe.collector.GetStatusCounts(ctx)
	if err != nil {
		return err
	}

	for status, count := range statusCounts {
		observer.Observe(count, metric.WithAttributes(
			attribute.String("ledger.status", status),
		))
	}

	return nil
}

// observeBreakerState is a callback that reports the breaker state as a
// labeled gauge: the current state observes 1
func (oe *OTelExporter) observeBreakerState(ctx context.Context, observer metric.Int64Observer) error {
	state, err := oe.collector.GetBreakerState(ctx)
	if err != nil {
		return err
	}

	observer.Observe(1, metric.WithAttributes(
		attribute.String("breaker.state", state.State),
	))

	return nil
}

// observeConsecutiveFailures is a callback that reports the failure streak
func (oe *OTelExporter) observeConsecutiveFailures(ctx context.Context, observer metric.Int64Observer) error {
	state, err := oe.collector.GetBreakerState(ctx)
	if err != nil {
		return err
	}

	observer.Observe(state.ConsecutiveFailures)
	return nil
}

// ServeHTTP serves Prometheus-formatted metrics on the given HTTP handler
func (oe *OTelExporter) ServeHTTP() http.Handler {
	return promhttp.Handler()
}

// Shutdown gracefully shuts down the meter provider
func (oe *OTelExporter) Shutdown(ctx context.Context) error {
	if oe.meterProvider != nil {
		return oe.meterProvider.Shutdown(ctx)
	}
	return nil
}
