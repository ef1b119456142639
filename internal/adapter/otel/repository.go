package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/tenancyd/internal/domain"
)

const tracerName = "github.com/neomorfeo/tenancyd/internal/adapter/otel"

// TracingLeaseRepository wraps a domain.LeaseRepository with OpenTelemetry tracing.
// Each method creates a span with lease attributes and records errors.
type TracingLeaseRepository struct {
	next   domain.LeaseRepository
	tracer trace.Tracer
}

// Compile-time check: TracingLeaseRepository implements domain.LeaseRepository.
var _ domain.LeaseRepository = (*TracingLeaseRepository)(nil)

// NewTracingLeaseRepository creates a tracing decorator around the given repository.
func NewTracingLeaseRepository(next domain.LeaseRepository) *TracingLeaseRepository {
	return &TracingLeaseRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingLeaseRepository) Insert(ctx context.Context, lease domain.Lease) error {
	ctx, span := r.tracer.Start(ctx, "LeaseRepository.Insert",
		trace.WithAttributes(
			attribute.String("lease.id", lease.ID),
			attribute.String("unit.id", lease.UnitID),
			attribute.String("tenant.id", lease.TenantID),
		),
	)
	defer span.End()

	err := r.next.Insert(ctx, lease)
	record(span, err)
	return err
}

func (r *TracingLeaseRepository) GetByID(ctx context.Context, id string) (domain.Lease, error) {
	ctx, span := r.tracer.Start(ctx, "LeaseRepository.GetByID",
		trace.WithAttributes(attribute.String("lease.id", id)),
	)
	defer span.End()

	lease, err := r.next.GetByID(ctx, id)
	record(span, err)
	return lease, err
}

func (r *TracingLeaseRepository) GetByTenant(ctx context.Context, tenantID string) ([]domain.Lease, error) {
	ctx, span := r.tracer.Start(ctx, "LeaseRepository.GetByTenant",
		trace.WithAttributes(attribute.String("tenant.id", tenantID)),
	)
	defer span.End()

	leases, err := r.next.GetByTenant(ctx, tenantID)
	recordList(span, len(leases), err)
	return leases, err
}

func (r *TracingLeaseRepository) GetByUnit(ctx context.Context, unitID string) ([]domain.Lease, error) {
	ctx, span := r.tracer.Start(ctx, "LeaseRepository.GetByUnit",
		trace.WithAttributes(attribute.String("unit.id", unitID)),
	)
	defer span.End()

	leases, err := r.next.GetByUnit(ctx, unitID)
	recordList(span, len(leases), err)
	return leases, err
}

func (r *TracingLeaseRepository) GetByPropertyWithinDateRange(ctx context.Context, propertyID string, from, to time.Time) ([]domain.Lease, error) {
	ctx, span := r.tracer.Start(ctx, "LeaseRepository.GetByPropertyWithinDateRange",
		trace.WithAttributes(
			attribute.String("property.id", propertyID),
			attribute.String("range.from", from.Format(domain.DateLayout)),
			attribute.String("range.to", to.Format(domain.DateLayout)),
		),
	)
	defer span.End()

	leases, err := r.next.GetByPropertyWithinDateRange(ctx, propertyID, from, to)
	recordList(span, len(leases), err)
	return leases, err
}

func (r *TracingLeaseRepository) Update(ctx context.Context, id string, update domain.LeaseUpdate) error {
	ctx, span := r.tracer.Start(ctx, "LeaseRepository.Update",
		trace.WithAttributes(attribute.String("lease.id", id)),
	)
	defer span.End()

	if update.Status != nil {
		span.SetAttributes(attribute.String("lease.status", string(*update.Status)))
	}
	if update.EndDate != nil {
		span.SetAttributes(attribute.String("lease.end_date", update.EndDate.Format(domain.DateLayout)))
	}

	err := r.next.Update(ctx, id, update)
	record(span, err)
	return err
}

func record(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func recordList(span trace.Span, n int, err error) {
	if err != nil {
		record(span, err)
		return
	}
	span.SetAttributes(attribute.Int("result.count", n))
}
