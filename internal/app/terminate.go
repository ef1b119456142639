package app

import (
	"context"
	"fmt"
	"time"

	"github.com/neomorfeo/tenancyd/internal/domain"
)

// TerminateLeaseRequest holds the inputs for closing a lease. RefundAdvance
// defaults to true and Reason to domain.DefaultTerminationReason.
type TerminateLeaseRequest struct {
	ActorID         string
	LeaseID         string
	TerminationDate time.Time
	RefundAdvance   *bool
	Reason          string
}

// TerminationResult reports what a termination changed.
type TerminationResult struct {
	Lease               domain.Lease
	Refund              *domain.RefundRecord
	TenantStatus        domain.TenantStatus
	TenantStatusChanged bool
}

func (r TerminateLeaseRequest) validate() error {
	switch {
	case r.ActorID == "":
		return &domain.ValidationError{Field: "actor_id", Reason: "is required"}
	case r.LeaseID == "":
		return &domain.ValidationError{Field: "lease_id", Reason: "is required"}
	case r.TerminationDate.IsZero():
		return &domain.ValidationError{Field: "termination_date", Reason: "is required"}
	}
	return nil
}

// TerminateLease closes a lease on the given date, issues at most one refund
// of the advance, and returns the tenant to unassigned when no other open
// lease remains. A retried termination fails with
// *domain.AlreadyTerminatedError and never creates a second refund.
func (s *LeaseService) TerminateLease(ctx context.Context, req TerminateLeaseRequest) (TerminationResult, error) {
	if err := req.validate(); err != nil {
		return TerminationResult{}, err
	}
	refundAdvance := req.RefundAdvance == nil || *req.RefundAdvance
	reason := req.Reason
	if reason == "" {
		reason = domain.DefaultTerminationReason
	}
	endDate := domain.Day(req.TerminationDate)
	logAttrs := []any{"lease_id", req.LeaseID}

	current, err := s.leases.GetByID(ctx, req.LeaseID)
	if err != nil {
		return TerminationResult{}, s.fail(ctx, "terminate_lease", err, logAttrs...)
	}
	if err := s.authorize(ctx, current.PropertyID, req.ActorID); err != nil {
		return TerminationResult{}, s.fail(ctx, "terminate_lease", err, logAttrs...)
	}

	release, err := s.locks.Lock(ctx, current.UnitID)
	if err != nil {
		return TerminationResult{}, s.fail(ctx, "terminate_lease", err, logAttrs...)
	}
	defer release()

	var result TerminationResult
	err = s.uow.Do(ctx, func(ctx context.Context, st domain.Stores) error {
		result = TerminationResult{}

		lease, err := st.Leases.GetByID(ctx, req.LeaseID)
		if err != nil {
			return err
		}
		if err := checkTerminable(lease, endDate); err != nil {
			return err
		}

		now := s.now().UTC()
		status := domain.LeaseTerminated
		update := domain.LeaseUpdate{
			EndDate:           &endDate,
			TerminationReason: &reason,
			Status:            &status,
			UpdatedAt:         now,
		}
		if err := st.Leases.Update(ctx, lease.ID, update); err != nil {
			return fmt.Errorf("updating lease: %w", err)
		}
		lease = update.Apply(lease)
		result.Lease = lease

		if err := st.Events.Publish(ctx, domain.LeaseEvent{
			Type:       domain.LeaseEnded,
			LeaseID:    lease.ID,
			TenantID:   lease.TenantID,
			UnitID:     lease.UnitID,
			PropertyID: lease.PropertyID,
			OccurredAt: now,
		}); err != nil {
			return fmt.Errorf("publishing termination: %w", err)
		}

		if refundAdvance && lease.AdvanceAmount.IsPositive() {
			refund, err := s.issueRefund(ctx, st, lease, now)
			if err != nil {
				return err
			}
			result.Refund = &refund
		}

		tenant, err := st.Tenants.GetByID(ctx, lease.TenantID)
		if err != nil {
			return err
		}
		result.TenantStatus = tenant.Status

		own, err := st.Leases.GetByTenant(ctx, lease.TenantID)
		if err != nil {
			return fmt.Errorf("loading tenant leases: %w", err)
		}
		if open := countOpen(own, s.today(), lease.ID); open == 0 {
			next, changed, err := s.syncTenantStatus(ctx, st, tenant, open)
			if err != nil {
				return err
			}
			result.TenantStatus, result.TenantStatusChanged = next, changed
		}

		return s.refreshUnitCache(ctx, st, lease.UnitID)
	})
	if err != nil {
		return TerminationResult{}, s.fail(ctx, "terminate_lease", err, logAttrs...)
	}

	s.logger.InfoContext(ctx, "lease terminated",
		"lease_id", result.Lease.ID,
		"end_date", endDate.Format(domain.DateLayout),
		"refund", result.Refund != nil,
		"tenant_status", result.TenantStatus,
	)
	return result, nil
}

// checkTerminable rejects re-termination and dates before the lease started.
// A scheduled end date may only be brought forward.
func checkTerminable(lease domain.Lease, endDate time.Time) error {
	if lease.Status == domain.LeaseTerminated && lease.EndDate != nil {
		return &domain.AlreadyTerminatedError{LeaseID: lease.ID, EndDate: *lease.EndDate}
	}
	if lease.EndDate != nil && !domain.Day(*lease.EndDate).After(endDate) {
		return &domain.AlreadyTerminatedError{LeaseID: lease.ID, EndDate: *lease.EndDate}
	}
	if endDate.Before(domain.Day(lease.StartDate)) {
		return &domain.ValidationError{Field: "termination_date", Reason: "must not precede the lease start date"}
	}
	return nil
}

// issueRefund records the advance refund under its deterministic reference.
// If the reference already exists the stored record is returned instead.
func (s *LeaseService) issueRefund(ctx context.Context, st domain.Stores, lease domain.Lease, now time.Time) (domain.RefundRecord, error) {
	id, err := generateID()
	if err != nil {
		return domain.RefundRecord{}, fmt.Errorf("generating refund id: %w", err)
	}
	refund := domain.RefundRecord{
		ID:         id,
		LeaseID:    lease.ID,
		TenantID:   lease.TenantID,
		PropertyID: lease.PropertyID,
		UnitID:     lease.UnitID,
		Amount:     lease.AdvanceAmount,
		Status:     domain.RefundPending,
		Reference:  domain.RefundReference(lease.ID, *lease.EndDate),
		CreatedAt:  now,
	}

	inserted, err := st.Refunds.Insert(ctx, refund)
	if err != nil {
		return domain.RefundRecord{}, fmt.Errorf("inserting refund: %w", err)
	}
	if !inserted {
		existing, err := st.Refunds.GetByReference(ctx, refund.Reference)
		if err != nil {
			return domain.RefundRecord{}, fmt.Errorf("loading existing refund: %w", err)
		}
		return existing, nil
	}

	if err := st.Events.Publish(ctx, domain.LeaseEvent{
		Type:       domain.RefundIssued,
		LeaseID:    lease.ID,
		TenantID:   lease.TenantID,
		UnitID:     lease.UnitID,
		PropertyID: lease.PropertyID,
		Refund:     &refund,
		OccurredAt: now,
	}); err != nil {
		return domain.RefundRecord{}, fmt.Errorf("publishing refund: %w", err)
	}
	return refund, nil
}
