package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/neomorfeo/tenancyd/internal/domain"
)

// Ports groups the adapters a LeaseService depends on.
type Ports struct {
	UnitOfWork domain.UnitOfWork
	Leases     domain.LeaseRepository
	Refunds    domain.RefundRepository
	Properties domain.PropertyDirectory
	Tenants    domain.TenantDirectory
	Validator  domain.TransitionValidator
}

// LeaseService is the only component allowed to mutate lease state. It
// enforces the occupancy rules across leases, unit caches, tenant status and
// refunds.
type LeaseService struct {
	uow        domain.UnitOfWork
	leases     domain.LeaseRepository
	refunds    domain.RefundRepository
	properties domain.PropertyDirectory
	tenants    domain.TenantDirectory
	validator  domain.TransitionValidator
	registry   *OccupancyRegistry
	locks      *UnitLocker
	now        func() time.Time
	logger     *slog.Logger
}

// Option customizes a LeaseService.
type Option func(*LeaseService)

// WithClock overrides the time source used for "today".
func WithClock(now func() time.Time) Option {
	return func(s *LeaseService) { s.now = now }
}

// WithLogger sets the logger used for internal failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *LeaseService) { s.logger = logger }
}

// NewLeaseService creates a service with the given adapters.
func NewLeaseService(p Ports, opts ...Option) *LeaseService {
	s := &LeaseService{
		uow:        p.UnitOfWork,
		leases:     p.Leases,
		refunds:    p.Refunds,
		properties: p.Properties,
		tenants:    p.Tenants,
		validator:  p.Validator,
		registry:   NewOccupancyRegistry(p.Leases),
		locks:      NewUnitLocker(),
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LeaseService) today() time.Time {
	return domain.Day(s.now())
}

// GetLease returns a lease the actor has access to.
func (s *LeaseService) GetLease(ctx context.Context, leaseID, actorID string) (domain.Lease, error) {
	lease, err := s.leases.GetByID(ctx, leaseID)
	if err != nil {
		return domain.Lease{}, s.fail(ctx, "get_lease", err, "lease_id", leaseID)
	}
	if err := s.authorize(ctx, lease.PropertyID, actorID); err != nil {
		return domain.Lease{}, s.fail(ctx, "get_lease", err, "lease_id", leaseID)
	}
	return lease, nil
}

// GetUnitAvailability reports whether the unit is free today.
func (s *LeaseService) GetUnitAvailability(ctx context.Context, unitID string) (AvailabilityStatus, error) {
	return s.GetUnitAvailabilityOn(ctx, unitID, s.today())
}

// GetUnitAvailabilityOn reports whether the unit is free on the given day.
func (s *LeaseService) GetUnitAvailabilityOn(ctx context.Context, unitID string, day time.Time) (AvailabilityStatus, error) {
	if _, err := s.properties.GetParentPropertyForUnit(ctx, unitID); err != nil {
		return AvailabilityStatus{}, s.fail(ctx, "get_unit_availability", err, "unit_id", unitID)
	}
	status, err := s.registry.GetAvailability(ctx, unitID, day)
	if err != nil {
		return AvailabilityStatus{}, s.fail(ctx, "get_unit_availability", err, "unit_id", unitID)
	}
	return status, nil
}

// GetActiveTenantForUnit returns the tenant occupying the unit today, or nil.
func (s *LeaseService) GetActiveTenantForUnit(ctx context.Context, unitID string) (*domain.Tenant, error) {
	status, err := s.GetUnitAvailability(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if status.ActiveLease == nil {
		return nil, nil
	}
	tenant, err := s.tenants.GetTenantByID(ctx, status.ActiveLease.TenantID)
	if err != nil {
		return nil, s.fail(ctx, "get_active_tenant", err, "unit_id", unitID, "tenant_id", status.ActiveLease.TenantID)
	}
	return &tenant, nil
}

// ListTenantRefunds returns the refunds recorded for a tenant the actor owns.
func (s *LeaseService) ListTenantRefunds(ctx context.Context, tenantID, actorID string) ([]domain.RefundRecord, error) {
	if _, err := s.ownedTenant(ctx, tenantID, actorID); err != nil {
		return nil, s.fail(ctx, "list_refunds", err, "tenant_id", tenantID)
	}
	refunds, err := s.refunds.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, s.fail(ctx, "list_refunds", err, "tenant_id", tenantID)
	}
	return refunds, nil
}

// authorize checks the actor may manage the property.
func (s *LeaseService) authorize(ctx context.Context, propertyID, actorID string) error {
	ok, err := s.properties.CheckPropertyAccess(ctx, propertyID, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.UnauthorizedError{Resource: "property " + propertyID, ActorID: actorID}
	}
	return nil
}

func (s *LeaseService) ownedTenant(ctx context.Context, tenantID, actorID string) (domain.Tenant, error) {
	tenant, err := s.tenants.GetTenantByID(ctx, tenantID)
	if err != nil {
		return domain.Tenant{}, err
	}
	if tenant.OwnerID != actorID {
		return domain.Tenant{}, &domain.UnauthorizedError{Resource: "tenant " + tenantID, ActorID: actorID}
	}
	return tenant, nil
}

// syncTenantStatus moves the tenant to the status implied by its open lease
// count, going through the transition validator.
func (s *LeaseService) syncTenantStatus(ctx context.Context, st domain.Stores, tenant domain.Tenant, open int) (domain.TenantStatus, bool, error) {
	target := domain.DeriveTenantStatus(tenant.Status, open)
	if target == tenant.Status {
		return tenant.Status, false, nil
	}

	event, ok := domain.EventFor(tenant.Status, target)
	if !ok {
		return "", false, fmt.Errorf("no transition from %q to %q for tenant %q", tenant.Status, target, tenant.ID)
	}
	next, err := s.transition(ctx, st, tenant, event)
	if err != nil {
		return "", false, err
	}
	return next, true, nil
}

// transition applies a status event and records it.
func (s *LeaseService) transition(ctx context.Context, st domain.Stores, tenant domain.Tenant, event domain.Event) (domain.TenantStatus, error) {
	next, err := s.validator.Apply(ctx, tenant.Status, event)
	if err != nil {
		return "", err
	}
	if err := st.Tenants.UpdateStatus(ctx, tenant.ID, next); err != nil {
		return "", fmt.Errorf("updating tenant status: %w", err)
	}
	if err := st.Events.Publish(ctx, domain.LeaseEvent{
		Type:         domain.TenantStatusChanged,
		TenantID:     tenant.ID,
		TenantStatus: next,
		OccurredAt:   s.now().UTC(),
	}); err != nil {
		return "", fmt.Errorf("publishing status change: %w", err)
	}
	return next, nil
}

// refreshUnitCache recomputes the unit's cached occupancy from its leases.
func (s *LeaseService) refreshUnitCache(ctx context.Context, st domain.Stores, unitID string) error {
	leases, err := st.Leases.GetByUnit(ctx, unitID)
	if err != nil {
		return fmt.Errorf("loading unit leases: %w", err)
	}
	status, tenantID := domain.CachedOccupancy(leases, s.today())
	if err := st.Units.SetOccupancy(ctx, unitID, status, tenantID); err != nil {
		return fmt.Errorf("updating unit occupancy: %w", err)
	}
	return nil
}

// countOpen counts leases that have not ended before today, skipping
// exclude. Status is ignored: a lease terminated with a later end date
// still holds its unit until then.
func countOpen(leases []domain.Lease, today time.Time, exclude string) int {
	n := 0
	for _, l := range leases {
		if l.ID != exclude && !l.EndedBefore(today) {
			n++
		}
	}
	return n
}

// fail returns business errors untouched and logs everything else with
// operation context before wrapping it.
func (s *LeaseService) fail(ctx context.Context, op string, err error, attrs ...any) error {
	if domain.IsBusinessError(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	s.logger.ErrorContext(ctx, "lease operation failed", append([]any{"op", op, "error", err}, attrs...)...)
	return fmt.Errorf("%s: %w", op, err)
}
