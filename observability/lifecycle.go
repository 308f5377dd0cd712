package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/keel/lifecycle"
	"github.com/xraph/keel/worker"
)

const instrumentationName = "github.com/xraph/keel/observability"

// LifecycleMetrics counts lifecycle events as keel.lifecycle.events,
// labelled by event name.
type LifecycleMetrics struct {
	events metric.Int64Counter
}

// NewLifecycleMetrics creates the counter on mp, or on the global meter
// provider when mp is nil.
func NewLifecycleMetrics(mp metric.MeterProvider) *LifecycleMetrics {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	events, err := mp.Meter(instrumentationName).Int64Counter(
		"keel.lifecycle.events",
		metric.WithDescription("Lifecycle events fired"),
		metric.WithUnit("{event}"),
	)
	_ = err // noop fallback guaranteed by OTel API contract

	return &LifecycleMetrics{events: events}
}

// Register adds a counting hook for every event to r. The hook never fails,
// so it does not stop hooks registered after it.
func (m *LifecycleMetrics) Register(r *lifecycle.Registry) error {
	for _, e := range worker.Events() {
		if err := r.On(e, m.hook(e)); err != nil {
			return err
		}
	}
	return nil
}

func (m *LifecycleMetrics) hook(e worker.Event) lifecycle.Hook {
	attrs := metric.WithAttributes(attribute.String("event", e.String()))
	return func(ctx context.Context) error {
		m.events.Add(ctx, 1, attrs)
		return nil
	}
}
