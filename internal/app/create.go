package app

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/neomorfeo/tenancyd/internal/domain"
)

// CreateLeaseRequest holds the inputs for binding a tenant to a unit.
type CreateLeaseRequest struct {
	ActorID       string
	PropertyID    string
	UnitID        string
	TenantID      string
	StartDate     time.Time
	EndDate       *time.Time
	RentAmount    decimal.Decimal
	DepositAmount decimal.Decimal
	AdvanceAmount decimal.Decimal
}

func (r CreateLeaseRequest) validate() error {
	switch {
	case r.ActorID == "":
		return &domain.ValidationError{Field: "actor_id", Reason: "is required"}
	case r.PropertyID == "":
		return &domain.ValidationError{Field: "property_id", Reason: "is required"}
	case r.UnitID == "":
		return &domain.ValidationError{Field: "unit_id", Reason: "is required"}
	case r.TenantID == "":
		return &domain.ValidationError{Field: "tenant_id", Reason: "is required"}
	case r.StartDate.IsZero():
		return &domain.ValidationError{Field: "start_date", Reason: "is required"}
	case r.EndDate != nil && !domain.Day(*r.EndDate).After(domain.Day(r.StartDate)):
		return &domain.ValidationError{Field: "end_date", Reason: "must be after start_date"}
	case !r.RentAmount.IsPositive():
		return &domain.ValidationError{Field: "rent_amount", Reason: "must be positive"}
	case r.DepositAmount.IsNegative():
		return &domain.ValidationError{Field: "deposit_amount", Reason: "must not be negative"}
	case r.AdvanceAmount.IsNegative():
		return &domain.ValidationError{Field: "advance_amount", Reason: "must not be negative"}
	}
	return nil
}

// CreateLease binds a tenant to a unit. Creation is serialized per unit; of
// two concurrent requests for the same vacant unit one succeeds and the
// other receives *domain.UnitOccupiedError.
func (s *LeaseService) CreateLease(ctx context.Context, req CreateLeaseRequest) (domain.Lease, error) {
	if err := req.validate(); err != nil {
		return domain.Lease{}, err
	}
	logAttrs := []any{"unit_id", req.UnitID, "tenant_id", req.TenantID}

	if err := s.checkCreateScope(ctx, req); err != nil {
		return domain.Lease{}, s.fail(ctx, "create_lease", err, logAttrs...)
	}

	id, err := generateID()
	if err != nil {
		return domain.Lease{}, s.fail(ctx, "create_lease", fmt.Errorf("generating lease id: %w", err), logAttrs...)
	}

	release, err := s.locks.Lock(ctx, req.UnitID)
	if err != nil {
		return domain.Lease{}, s.fail(ctx, "create_lease", err, logAttrs...)
	}
	defer release()

	start := domain.Day(req.StartDate)
	var end *time.Time
	if req.EndDate != nil {
		e := domain.Day(*req.EndDate)
		end = &e
	}
	now := s.now().UTC()
	lease := domain.Lease{
		ID:            id,
		PropertyID:    req.PropertyID,
		UnitID:        req.UnitID,
		TenantID:      req.TenantID,
		StartDate:     start,
		EndDate:       end,
		RentAmount:    req.RentAmount,
		DepositAmount: req.DepositAmount,
		AdvanceAmount: req.AdvanceAmount,
		Status:        domain.LeaseActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.uow.Do(ctx, func(ctx context.Context, st domain.Stores) error {
		overlapping, err := NewOccupancyRegistry(st.Leases).FindOverlapping(ctx, req.UnitID, start, end)
		if err != nil {
			return err
		}
		for _, l := range overlapping {
			if l.TenantID != req.TenantID {
				return &domain.UnitOccupiedError{UnitID: req.UnitID, LeaseID: l.ID, TenantID: l.TenantID}
			}
		}

		own, err := st.Leases.GetByTenant(ctx, req.TenantID)
		if err != nil {
			return fmt.Errorf("loading tenant leases: %w", err)
		}
		for _, l := range own {
			if l.UnitID == req.UnitID && l.Overlaps(start, end) {
				return &domain.DuplicateAssignmentError{TenantID: req.TenantID, UnitID: req.UnitID, LeaseID: l.ID}
			}
		}

		tenant, err := st.Tenants.GetByID(ctx, req.TenantID)
		if err != nil {
			return err
		}
		if tenant.Status == domain.TenantInactive {
			return &domain.TenantInactiveError{TenantID: tenant.ID}
		}

		if err := st.Leases.Insert(ctx, lease); err != nil {
			return fmt.Errorf("inserting lease: %w", err)
		}
		if err := s.refreshUnitCache(ctx, st, req.UnitID); err != nil {
			return err
		}
		if _, _, err := s.syncTenantStatus(ctx, st, tenant, countOpen(append(own, lease), s.today(), "")); err != nil {
			return err
		}

		return st.Events.Publish(ctx, domain.LeaseEvent{
			Type:       domain.LeaseCreated,
			LeaseID:    lease.ID,
			TenantID:   lease.TenantID,
			UnitID:     lease.UnitID,
			PropertyID: lease.PropertyID,
			OccurredAt: now,
		})
	})
	if err != nil {
		return domain.Lease{}, s.fail(ctx, "create_lease", err, logAttrs...)
	}

	s.logger.InfoContext(ctx, "lease created", "lease_id", lease.ID, "unit_id", lease.UnitID, "tenant_id", lease.TenantID)
	return lease, nil
}

// checkCreateScope verifies the unit sits in the given property, that the
// actor may manage it, and that the tenant belongs to the property owner.
func (s *LeaseService) checkCreateScope(ctx context.Context, req CreateLeaseRequest) error {
	parent, err := s.properties.GetParentPropertyForUnit(ctx, req.UnitID)
	if err != nil {
		return err
	}
	if parent != req.PropertyID {
		return &domain.ValidationError{Field: "unit_id", Reason: fmt.Sprintf("unit does not belong to property %q", req.PropertyID)}
	}
	if err := s.authorize(ctx, req.PropertyID, req.ActorID); err != nil {
		return err
	}

	owner, err := s.properties.GetPropertyOwner(ctx, req.PropertyID)
	if err != nil {
		return err
	}
	tenant, err := s.tenants.GetTenantByID(ctx, req.TenantID)
	if err != nil {
		return err
	}
	if tenant.OwnerID != owner {
		return &domain.ValidationError{Field: "tenant_id", Reason: "tenant belongs to a different owner"}
	}
	return nil
}
