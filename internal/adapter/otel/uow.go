package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/tenancyd/internal/domain"
)

// TracingUnitOfWork wraps a domain.UnitOfWork in a span and decorates the
// lease repository and event publisher handed to fn, so their spans nest
// under the transaction. Outcomes are counted on the
// "tenancyd.unit_of_work.completed" instrument.
type TracingUnitOfWork struct {
	next      domain.UnitOfWork
	tracer    trace.Tracer
	completed metric.Int64Counter
}

var _ domain.UnitOfWork = (*TracingUnitOfWork)(nil)

// NewTracingUnitOfWork creates a tracing decorator around the given unit of work.
func NewTracingUnitOfWork(next domain.UnitOfWork) (*TracingUnitOfWork, error) {
	completed, err := otel.Meter(tracerName).Int64Counter("tenancyd.unit_of_work.completed",
		metric.WithDescription("Units of work finished, by outcome"),
	)
	if err != nil {
		return nil, err
	}
	return &TracingUnitOfWork{
		next:      next,
		tracer:    otel.Tracer(tracerName),
		completed: completed,
	}, nil
}

func (u *TracingUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, st domain.Stores) error) error {
	ctx, span := u.tracer.Start(ctx, "UnitOfWork.Do")
	defer span.End()

	err := u.next.Do(ctx, func(ctx context.Context, st domain.Stores) error {
		st.Leases = NewTracingLeaseRepository(st.Leases)
		st.Events = NewTracingPublisher(st.Events)
		return fn(ctx, st)
	})

	outcome := "commit"
	if err != nil {
		outcome = "rollback"
		record(span, err)
	}
	span.SetAttributes(attribute.String("uow.outcome", outcome))
	u.completed.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	return err
}
