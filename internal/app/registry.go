package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/neomorfeo/tenancyd/internal/domain"
)

// AvailabilityStatus describes whether a unit is free on a given day.
type AvailabilityStatus struct {
	UnitID      string
	AsOf        time.Time
	Available   bool
	ActiveLease *domain.Lease
}

// OccupancyRegistry answers who holds a unit, derived from lease rows rather
// than the unit's cached fields.
type OccupancyRegistry struct {
	leases domain.LeaseRepository
}

// NewOccupancyRegistry creates a registry reading from the given repository.
// Inside a unit of work pass the transaction-bound repository.
func NewOccupancyRegistry(leases domain.LeaseRepository) *OccupancyRegistry {
	return &OccupancyRegistry{leases: leases}
}

// GetActiveAssignment returns the lease active on the unit at asOf, if any.
// More than one match is a data-integrity fault and is returned as
// *domain.OccupancyIntegrityError.
func (r *OccupancyRegistry) GetActiveAssignment(ctx context.Context, unitID string, asOf time.Time) (*domain.Lease, error) {
	leases, err := r.leases.GetByUnit(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("loading unit leases: %w", err)
	}

	var matches []domain.Lease
	for _, l := range leases {
		if l.ActiveOn(asOf) {
			matches = append(matches, l)
		}
	}
	return single(unitID, matches)
}

// GetAvailability reports whether the unit is free at asOf.
func (r *OccupancyRegistry) GetAvailability(ctx context.Context, unitID string, asOf time.Time) (AvailabilityStatus, error) {
	active, err := r.GetActiveAssignment(ctx, unitID, asOf)
	if err != nil {
		return AvailabilityStatus{}, err
	}
	return AvailabilityStatus{
		UnitID:      unitID,
		AsOf:        domain.Day(asOf),
		Available:   active == nil,
		ActiveLease: active,
	}, nil
}

// FindOverlapping returns the unit's leases that share at least one day with
// [start, end], ordered by start date. A nil end means an open-ended range.
func (r *OccupancyRegistry) FindOverlapping(ctx context.Context, unitID string, start time.Time, end *time.Time) ([]domain.Lease, error) {
	leases, err := r.leases.GetByUnit(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("loading unit leases: %w", err)
	}

	var matches []domain.Lease
	for _, l := range leases {
		if l.Overlaps(start, end) {
			matches = append(matches, l)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].StartDate.Before(matches[j].StartDate)
	})
	return matches, nil
}

func single(unitID string, matches []domain.Lease) (*domain.Lease, error) {
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return &matches[0], nil
	}
	ids := make([]string, len(matches))
	for i, l := range matches {
		ids[i] = l.ID
	}
	return nil, &domain.OccupancyIntegrityError{UnitID: unitID, LeaseIDs: ids}
}
