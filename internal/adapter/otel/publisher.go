package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/tenancyd/internal/domain"
)

// TracingPublisher wraps a domain.EventPublisher with OpenTelemetry tracing.
type TracingPublisher struct {
	next   domain.EventPublisher
	tracer trace.Tracer
}

// Compile-time check: TracingPublisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*TracingPublisher)(nil)

// NewTracingPublisher creates a tracing decorator around the given publisher.
func NewTracingPublisher(next domain.EventPublisher) *TracingPublisher {
	return &TracingPublisher{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (p *TracingPublisher) Publish(ctx context.Context, event domain.LeaseEvent) error {
	attrs := []attribute.KeyValue{
		attribute.String("event.type", string(event.Type)),
		attribute.String("tenant.id", event.TenantID),
	}
	if event.LeaseID != "" {
		attrs = append(attrs, attribute.String("lease.id", event.LeaseID))
	}
	if event.TenantStatus != "" {
		attrs = append(attrs, attribute.String("tenant.status", string(event.TenantStatus)))
	}

	ctx, span := p.tracer.Start(ctx, "EventPublisher.Publish", trace.WithAttributes(attrs...))
	defer span.End()

	err := p.next.Publish(ctx, event)
	record(span, err)
	return err
}
