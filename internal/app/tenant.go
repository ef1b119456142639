package app

import (
	"context"

	"github.com/neomorfeo/tenancyd/internal/domain"
)

// ReactivateTenant is the operator request that takes an inactive tenant
// back to unassigned. If the tenant still holds open leases it continues on
// to active so that status keeps matching occupancy.
func (s *LeaseService) ReactivateTenant(ctx context.Context, tenantID, actorID string) (domain.Tenant, error) {
	if _, err := s.ownedTenant(ctx, tenantID, actorID); err != nil {
		return domain.Tenant{}, s.fail(ctx, "reactivate_tenant", err, "tenant_id", tenantID)
	}

	var tenant domain.Tenant
	err := s.uow.Do(ctx, func(ctx context.Context, st domain.Stores) error {
		var err error
		tenant, err = st.Tenants.GetByID(ctx, tenantID)
		if err != nil {
			return err
		}

		next, err := s.transition(ctx, st, tenant, domain.EventReactivate)
		if err != nil {
			return err
		}
		tenant.Status = next

		own, err := st.Leases.GetByTenant(ctx, tenantID)
		if err != nil {
			return err
		}
		next, _, err = s.syncTenantStatus(ctx, st, tenant, countOpen(own, s.today(), ""))
		if err != nil {
			return err
		}
		tenant.Status = next
		return nil
	})
	if err != nil {
		return domain.Tenant{}, s.fail(ctx, "reactivate_tenant", err, "tenant_id", tenantID)
	}
	return tenant, nil
}
