package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LeaseStatus records whether a lease was closed by the termination flow.
type LeaseStatus string

const (
	LeaseActive     LeaseStatus = "active"
	LeaseTerminated LeaseStatus = "terminated"
)

// DefaultTerminationReason is used when the caller does not give one.
const DefaultTerminationReason = "owner_termination"

// Lease binds a tenant to a unit for a date range. A nil EndDate means the
// lease is open-ended. All dates are calendar days (see Day).
type Lease struct {
	ID                string
	PropertyID        string
	UnitID            string
	TenantID          string
	StartDate         time.Time
	EndDate           *time.Time
	RentAmount        decimal.Decimal
	DepositAmount     decimal.Decimal
	AdvanceAmount     decimal.Decimal
	Status            LeaseStatus
	TerminationReason string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ActiveOn reports whether the lease covers day d. Both bounds are inclusive.
func (l Lease) ActiveOn(d time.Time) bool {
	d = Day(d)
	if Day(l.StartDate).After(d) {
		return false
	}
	return l.EndDate == nil || !Day(*l.EndDate).Before(d)
}

// EndedBefore reports whether the lease's last day is before d.
func (l Lease) EndedBefore(d time.Time) bool {
	return l.EndDate != nil && Day(*l.EndDate).Before(Day(d))
}

// Overlaps reports whether the lease shares at least one day with the
// range [start, end]. A nil end means the range never closes.
func (l Lease) Overlaps(start time.Time, end *time.Time) bool {
	if end != nil && Day(l.StartDate).After(Day(*end)) {
		return false
	}
	return !l.EndedBefore(start)
}

// LeaseUpdate is a partial update; nil fields are left untouched.
type LeaseUpdate struct {
	EndDate           *time.Time
	TerminationReason *string
	Status            *LeaseStatus
	UpdatedAt         time.Time
}

// Apply returns a copy of l with the update applied.
func (u LeaseUpdate) Apply(l Lease) Lease {
	if u.EndDate != nil {
		end := Day(*u.EndDate)
		l.EndDate = &end
	}
	if u.TerminationReason != nil {
		l.TerminationReason = *u.TerminationReason
	}
	if u.Status != nil {
		l.Status = *u.Status
	}
	if !u.UpdatedAt.IsZero() {
		l.UpdatedAt = u.UpdatedAt
	}
	return l
}

// CachedOccupancy computes the value a unit's cached occupancy fields should
// hold: the tenant of the lease active on today, or failing that the next
// upcoming lease, or vacant.
func CachedOccupancy(leases []Lease, today time.Time) (UnitStatus, string) {
	var next *Lease
	for i := range leases {
		l := leases[i]
		if l.ActiveOn(today) {
			return UnitOccupied, l.TenantID
		}
		if Day(l.StartDate).After(Day(today)) && (next == nil || l.StartDate.Before(next.StartDate)) {
			next = &leases[i]
		}
	}
	if next != nil {
		return UnitOccupied, next.TenantID
	}
	return UnitVacant, ""
}
