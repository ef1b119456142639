package domain

import (
	"context"
	"time"
)

// LeaseRepository is pure lease persistence. It performs no overlap checks.
type LeaseRepository interface {
	Insert(ctx context.Context, lease Lease) error
	GetByID(ctx context.Context, id string) (Lease, error)
	GetByTenant(ctx context.Context, tenantID string) ([]Lease, error)
	GetByUnit(ctx context.Context, unitID string) ([]Lease, error)
	// GetByPropertyWithinDateRange returns the property's leases whose end
	// date falls within [from, to]. Open-ended leases are never returned.
	GetByPropertyWithinDateRange(ctx context.Context, propertyID string, from, to time.Time) ([]Lease, error)
	Update(ctx context.Context, id string, update LeaseUpdate) error
}

// UnitRepository reads units and maintains their cached occupancy fields.
type UnitRepository interface {
	GetUnit(ctx context.Context, id string) (Unit, error)
	SetOccupancy(ctx context.Context, unitID string, status UnitStatus, tenantID string) error
}

// TenantRepository persists the materialized tenant status.
type TenantRepository interface {
	GetByID(ctx context.Context, id string) (Tenant, error)
	UpdateStatus(ctx context.Context, id string, status TenantStatus) error
}

// RefundRepository stores refund obligations. Insert reports false without
// error when a record with the same reference already exists.
type RefundRepository interface {
	Insert(ctx context.Context, refund RefundRecord) (bool, error)
	GetByReference(ctx context.Context, reference string) (RefundRecord, error)
	ListByTenant(ctx context.Context, tenantID string) ([]RefundRecord, error)
}

// EventPublisher defines the contract for emitting lease events.
type EventPublisher interface {
	Publish(ctx context.Context, event LeaseEvent) error
}

// Stores is the set of repositories bound to one unit of work.
type Stores struct {
	Leases  LeaseRepository
	Units   UnitRepository
	Tenants TenantRepository
	Refunds RefundRepository
	Events  EventPublisher
}

// UnitOfWork runs fn with repositories whose writes commit together. If fn
// returns an error every write made through the stores is undone.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}

// PropertyDirectory is the property collaborator.
type PropertyDirectory interface {
	GetPropertyOwner(ctx context.Context, propertyID string) (string, error)
	GetParentPropertyForUnit(ctx context.Context, unitID string) (string, error)
	CheckPropertyAccess(ctx context.Context, propertyID, userID string) (bool, error)
	ListOwnedProperties(ctx context.Context, ownerID string) ([]string, error)
}

// TenantDirectory is the tenant lookup collaborator.
type TenantDirectory interface {
	GetTenantByID(ctx context.Context, id string) (Tenant, error)
	GetTenantByEmail(ctx context.Context, email string) (Tenant, error)
}

// TransitionValidator checks a tenant status event against the transition table.
type TransitionValidator interface {
	Apply(ctx context.Context, current TenantStatus, event Event) (TenantStatus, error)
}
