package domain

import "time"

// TenantStatus is the coarse lifecycle flag of a tenant, independent of any
// single lease.
type TenantStatus string

const (
	TenantActive     TenantStatus = "active"
	TenantUnassigned TenantStatus = "unassigned"
	TenantInactive   TenantStatus = "inactive"
)

// Event represents an action that triggers a tenant status transition.
type Event string

const (
	// EventLeaseStarted fires when a tenant gains its first open lease.
	EventLeaseStarted Event = "lease_started"
	// EventLeasesEnded fires when the last open lease of a tenant is terminated.
	EventLeasesEnded Event = "leases_ended"
	// EventReactivate is the explicit operator request that brings an
	// inactive tenant back into the assignable pool.
	EventReactivate Event = "reactivate"
)

// Transition defines a valid state change: an event moves a tenant from Src to Dst.
type Transition struct {
	Event Event
	Src   TenantStatus
	Dst   TenantStatus
}

// Transitions defines all status changes the tenancy engine may perform.
// Nothing here enters TenantInactive; that is an operator action handled
// elsewhere, and the engine only ever leaves it through EventReactivate.
var Transitions = []Transition{
	{Event: EventLeaseStarted, Src: TenantUnassigned, Dst: TenantActive},
	{Event: EventLeasesEnded, Src: TenantActive, Dst: TenantUnassigned},
	{Event: EventReactivate, Src: TenantInactive, Dst: TenantUnassigned},
}

// EventFor returns the transition event that moves a tenant from src to dst.
func EventFor(src, dst TenantStatus) (Event, bool) {
	for _, t := range Transitions {
		if t.Src == src && t.Dst == dst {
			return t.Event, true
		}
	}
	return "", false
}

// Tenant is a person renting from a landlord. OwnerID is the landlord
// account that created the record; UserID is set once the tenant claims a login.
type Tenant struct {
	ID        string
	OwnerID   string
	UserID    string
	Email     string
	Name      string
	Status    TenantStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTenant creates a tenant that holds no lease yet.
func NewTenant(id, ownerID, email, name string) Tenant {
	now := time.Now().UTC()
	return Tenant{
		ID:        id,
		OwnerID:   ownerID,
		Email:     email,
		Name:      name,
		Status:    TenantUnassigned,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DeriveTenantStatus computes the status a tenant should carry given how many
// open leases it holds. Inactive is operator controlled and is never left
// automatically.
func DeriveTenantStatus(current TenantStatus, openLeases int) TenantStatus {
	if current == TenantInactive {
		return TenantInactive
	}
	if openLeases > 0 {
		return TenantActive
	}
	return TenantUnassigned
}
