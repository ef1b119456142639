package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/neomorfeo/tenancyd/internal/domain"
)

// maxExpiryHorizon bounds how far ahead a scan may look.
const maxExpiryHorizon = 3650

// scanConcurrency caps the number of properties queried at once.
const scanConcurrency = 4

// LeaseExpiryInfo is a lease ending within a scan horizon.
type LeaseExpiryInfo struct {
	Lease           domain.Lease
	DaysUntilExpiry int
}

// ExpiryScanner finds leases about to end. It never mutates state.
type ExpiryScanner struct {
	leases     domain.LeaseRepository
	properties domain.PropertyDirectory
	now        func() time.Time
	logger     *slog.Logger
}

// NewExpiryScanner creates a scanner over the given repository and directory.
func NewExpiryScanner(leases domain.LeaseRepository, properties domain.PropertyDirectory, now func() time.Time) *ExpiryScanner {
	if now == nil {
		now = time.Now
	}
	return &ExpiryScanner{
		leases:     leases,
		properties: properties,
		now:        now,
		logger:     slog.Default(),
	}
}

// GetExpiringLeases returns leases on the owner's properties whose end date
// falls within [today, today+daysAhead], sorted by end date.
func (s *ExpiryScanner) GetExpiringLeases(ctx context.Context, ownerID string, daysAhead int) ([]LeaseExpiryInfo, error) {
	if ownerID == "" {
		return nil, &domain.ValidationError{Field: "owner_id", Reason: "is required"}
	}
	if daysAhead < 0 || daysAhead > maxExpiryHorizon {
		return nil, &domain.ValidationError{Field: "days_ahead", Reason: fmt.Sprintf("must be between 0 and %d", maxExpiryHorizon)}
	}

	properties, err := s.properties.ListOwnedProperties(ctx, ownerID)
	if err != nil {
		return nil, s.fail(ctx, ownerID, fmt.Errorf("listing properties: %w", err))
	}

	today := domain.Day(s.now())
	horizon := today.AddDate(0, 0, daysAhead)

	var (
		mu  sync.Mutex
		out []LeaseExpiryInfo
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scanConcurrency)
	for _, propertyID := range properties {
		g.Go(func() error {
			leases, err := s.leases.GetByPropertyWithinDateRange(gctx, propertyID, today, horizon)
			if err != nil {
				return fmt.Errorf("property %s: %w", propertyID, err)
			}
			mu.Lock()
			defer mu.Unlock()
			for _, l := range leases {
				out = append(out, LeaseExpiryInfo{
					Lease:           l,
					DaysUntilExpiry: domain.DaysBetween(today, *l.EndDate),
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, s.fail(ctx, ownerID, err)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Lease, out[j].Lease
		if !a.EndDate.Equal(*b.EndDate) {
			return a.EndDate.Before(*b.EndDate)
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (s *ExpiryScanner) fail(ctx context.Context, ownerID string, err error) error {
	s.logger.ErrorContext(ctx, "expiry scan failed", "owner_id", ownerID, "error", err)
	return err
}
