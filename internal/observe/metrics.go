// Package observe provides the OpenTelemetry metric instruments used by
// thoth and the Prometheus bridge that exposes them on /metrics.
//
// Tests should build a [Metrics] with [NewMetrics] over an SDK
// ManualReader, or use [Noop] when nothing is inspected.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// meterName is the instrumentation scope name used for all thoth metrics.
const meterName = "github.com/kalambet/thoth"

// Status attribute values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds the metric instruments. All fields are safe for concurrent
// use.
type Metrics struct {
	// EnhanceDuration tracks end-to-end enhancement latency, including the
	// generate call.
	EnhanceDuration metric.Float64Histogram

	// EnhanceRequests counts enhancement outcomes. Attributes:
	//   attribute.String("status", ...), attribute.String("kind", ...)
	EnhanceRequests metric.Int64Counter

	// EnhanceChars counts characters flowing through the service. Attribute:
	//   attribute.String("direction", "in"|"out")
	EnhanceChars metric.Int64Counter

	// InFlight is the number of enhancements currently waiting on the server.
	InFlight metric.Int64UpDownCounter

	// ToolCalls counts MCP tool invocations. Attributes:
	//   attribute.String("tool", ...), attribute.String("status", ...)
	ToolCalls metric.Int64Counter

	// HTTPRequestDuration tracks API request latency. Attributes:
	//   attribute.String("method", ...), attribute.String("route", ...), attribute.Int("code", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are histogram boundaries in seconds, sized for local model
// generation rather than network hops.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
}

// NewMetrics creates the instruments on the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.EnhanceDuration, err = m.Float64Histogram("thoth.enhance.duration",
		metric.WithDescription("Latency of text enhancement requests."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.EnhanceRequests, err = m.Int64Counter("thoth.enhance.requests",
		metric.WithDescription("Enhancement requests by status and error kind."),
	); err != nil {
		return nil, err
	}
	if met.EnhanceChars, err = m.Int64Counter("thoth.enhance.chars",
		metric.WithDescription("Characters submitted to and returned by enhancement."),
		metric.WithUnit("{char}"),
	); err != nil {
		return nil, err
	}
	if met.InFlight, err = m.Int64UpDownCounter("thoth.enhance.in_flight",
		metric.WithDescription("Enhancements waiting on the inference server."),
	); err != nil {
		return nil, err
	}
	if met.ToolCalls, err = m.Int64Counter("thoth.mcp.tool_calls",
		metric.WithDescription("MCP tool invocations by tool and status."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("thoth.http.request.duration",
		metric.WithDescription("HTTP request latency by method and route."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// Noop returns Metrics whose instruments discard every observation.
func Noop() *Metrics {
	m, err := NewMetrics(noop.NewMeterProvider())
	if err != nil {
		panic("observe: noop metrics: " + err.Error())
	}
	return m
}

// RecordEnhance records the outcome of one enhancement. kind is empty on
// success.
func (m *Metrics) RecordEnhance(ctx context.Context, d time.Duration, kind string, inChars, outChars int) {
	status := StatusOK
	if kind != "" {
		status = StatusError
	}
	m.EnhanceDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("status", status)),
	)
	m.EnhanceRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("status", status),
			attribute.String("kind", kind),
		),
	)
	m.EnhanceChars.Add(ctx, int64(inChars), metric.WithAttributes(attribute.String("direction", "in")))
	if outChars > 0 {
		m.EnhanceChars.Add(ctx, int64(outChars), metric.WithAttributes(attribute.String("direction", "out")))
	}
}

// TrackInFlight counts one enhancement as waiting on the server until the
// returned func is called.
func (m *Metrics) TrackInFlight(ctx context.Context) (done func()) {
	m.InFlight.Add(ctx, 1)
	return func() { m.InFlight.Add(context.WithoutCancel(ctx), -1) }
}

// RecordToolCall records an MCP tool invocation.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string) {
	m.ToolCalls.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("status", status),
		),
	)
}
