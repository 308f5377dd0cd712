package redisconn

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// instrumentationName is the OTel scope for connection telemetry.
const instrumentationName = "github.com/xraph/keel/redisconn"

// SpanName is the span recorded around each WithConnection call.
const SpanName = "keel.redis.with_connection"

// telemetry records one span per WithConnection call plus checkout and
// reconnect counters. With no providers configured the global (noop by
// default) providers are used.
type telemetry struct {
	tracer     trace.Tracer
	checkouts  metric.Int64Counter
	reconnects metric.Int64Counter
}

func newTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) *telemetry {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	checkouts, cErr := meter.Int64Counter(
		"keel.redis.checkouts",
		metric.WithDescription("Connections leased from the pool"),
		metric.WithUnit("{checkout}"),
	)
	_ = cErr // noop fallback guaranteed by OTel API contract

	reconnects, rErr := meter.Int64Counter(
		"keel.redis.reconnects",
		metric.WithDescription("Reconnects triggered by failover signals"),
		metric.WithUnit("{reconnect}"),
	)
	_ = rErr // noop fallback guaranteed by OTel API contract

	return &telemetry{
		tracer:     tp.Tracer(instrumentationName),
		checkouts:  checkouts,
		reconnects: reconnects,
	}
}

func (t *telemetry) start(ctx context.Context) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanName, trace.WithSpanKind(trace.SpanKindClient))
}

func (t *telemetry) end(span trace.Span, attempts int, failover Signal, err error) {
	span.SetAttributes(
		attribute.Int("keel.redis.attempts", attempts),
		attribute.String("keel.redis.failover", failover.String()),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func (t *telemetry) checkout(ctx context.Context) {
	t.checkouts.Add(ctx, 1)
}

func (t *telemetry) reconnect(ctx context.Context, s Signal) {
	t.reconnects.Add(ctx, 1, metric.WithAttributes(attribute.String("signal", s.String())))
}
