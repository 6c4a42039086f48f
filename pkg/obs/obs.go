// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package obs wires a process-wide OpenTelemetry tracer and meter for the
// chiseltrace builder (which opens one span per build run) and the dpdg_*
// counters/histograms exported through Prometheus.
package obs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("chiseltrace.dpdg")
	meter  = otel.Meter("chiseltrace.dpdg")
)

// Exporter selects where traces/metrics are sent.
type Exporter int

const (
	// ExporterNone disables trace/metric export entirely (the default for
	// short-lived CLI invocations that don't pass --metrics-addr).
	ExporterNone Exporter = iota
	// ExporterStdout writes spans/metrics to stdout, useful for local
	// debugging of the seven-phase cycle loop.
	ExporterStdout
	// ExporterPrometheus registers a pull-based Prometheus collector,
	// served by Handler() on --metrics-addr.
	ExporterPrometheus
)

// Config configures the observability surface.
type Config struct {
	Exporter Exporter
	Logger   *slog.Logger
}

// Metrics holds the per-cycle counters and histograms the DPDG builder
// updates as it runs. Fields are safe for concurrent use once New has
// returned; the instruments themselves are goroutine-safe per the
// OpenTelemetry API contract.
type Metrics struct {
	CyclesTotal     metric.Int64Counter
	NodesTotal      metric.Int64Counter
	EdgesTotal      metric.Int64Counter
	DelayedPending  metric.Int64UpDownCounter
	CycleDuration   metric.Float64Histogram
	initOnce        sync.Once
	initErr         error
}

// Provider bundles the tracer, meter, and a shutdown func. Callers should
// defer Shutdown to flush any buffered spans/metrics before process exit.
type Provider struct {
	Tracer   trace.Tracer
	Meter    metric.Meter
	Metrics  *Metrics
	registry *otelprometheus.Exporter
	shutdown []func(context.Context) error
}

// New builds a Provider per cfg. With ExporterNone, the returned tracer and
// meter are the global otel no-op implementations, so instrumented code
// pays near-zero cost when observability isn't requested.
func New(cfg Config) (*Provider, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Provider{Tracer: tracer, Meter: meter, Metrics: &Metrics{}}

	switch cfg.Exporter {
	case ExporterNone:
		// Leave the global no-op tracer/meter in place.
	case ExporterStdout:
		traceExp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("stdout trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExp))
		otel.SetTracerProvider(tp)
		p.Tracer = tp.Tracer("chiseltrace.dpdg")
		p.shutdown = append(p.shutdown, tp.Shutdown)

		metricExp, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("stdout metric exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)))
		otel.SetMeterProvider(mp)
		p.Meter = mp.Meter("chiseltrace.dpdg")
		p.shutdown = append(p.shutdown, mp.Shutdown)

	case ExporterPrometheus:
		promExp, err := otelprometheus.New()
		if err != nil {
			return nil, fmt.Errorf("prometheus exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(promExp))
		otel.SetMeterProvider(mp)
		p.Meter = mp.Meter("chiseltrace.dpdg")
		p.registry = promExp
		p.shutdown = append(p.shutdown, mp.Shutdown)

	default:
		return nil, fmt.Errorf("obs: unknown exporter %d", cfg.Exporter)
	}

	if err := p.Metrics.init(p.Meter, logger); err != nil {
		return nil, err
	}
	return p, nil
}

// init lazily creates every instrument exactly once. If an individual
// instrument can't be created it logs the failures and returns an error,
// which New passes back to its caller.
func (m *Metrics) init(meter metric.Meter, logger *slog.Logger) error {
	m.initOnce.Do(func() {
		var failed []string

		var err error
		m.CyclesTotal, err = meter.Int64Counter("dpdg_cycles_total",
			metric.WithDescription("Cycles processed by the DPDG builder"))
		if err != nil {
			failed = append(failed, "cycles_total: "+err.Error())
		}

		m.NodesTotal, err = meter.Int64Counter("dpdg_nodes_total",
			metric.WithDescription("Dynamic nodes created"))
		if err != nil {
			failed = append(failed, "nodes_total: "+err.Error())
		}

		m.EdgesTotal, err = meter.Int64Counter("dpdg_edges_total",
			metric.WithDescription("Dynamic dependency edges resolved"))
		if err != nil {
			failed = append(failed, "edges_total: "+err.Error())
		}

		m.DelayedPending, err = meter.Int64UpDownCounter("dpdg_delayed_pending",
			metric.WithDescription("Delayed writes currently pending in the delayed-write queue"))
		if err != nil {
			failed = append(failed, "delayed_pending: "+err.Error())
		}

		m.CycleDuration, err = meter.Float64Histogram("dpdg_cycle_batch_duration_seconds",
			metric.WithDescription("Wall time spent in the cycle loop of one build run"),
			metric.WithUnit("s"))
		if err != nil {
			failed = append(failed, "cycle_duration: "+err.Error())
		}

		if len(failed) > 0 {
			logger.Error("failed to initialize some dpdg metrics (observability degraded)",
				slog.Int("failed_count", len(failed)),
				slog.Any("errors", failed))
			m.initErr = errors.New("obs: partial metric init failure")
		}
	})
	return m.initErr
}

// Handler returns the promhttp handler serving the Prometheus exposition
// format, or nil if the Provider wasn't built with ExporterPrometheus.
func (p *Provider) Handler() http.Handler {
	if p.registry == nil {
		return nil
	}
	return promhttp.Handler()
}

// Shutdown flushes and closes every exporter the Provider opened. Safe to
// call on a Provider built with ExporterNone (no-op).
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range p.shutdown {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
