package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/neomorfeo/tenancyd/internal/adapter/memory"
	"github.com/neomorfeo/tenancyd/internal/app"
	"github.com/neomorfeo/tenancyd/internal/domain"
)

func TestOccupancyRegistry_ActiveAssignment(t *testing.T) {
	s := memory.New()
	s.AddLease(domain.Lease{ID: "past", UnitID: "u-1", TenantID: "t-1", StartDate: day("2023-01-01"), EndDate: dayPtr("2023-12-31")})
	s.AddLease(domain.Lease{ID: "now", UnitID: "u-1", TenantID: "t-2", StartDate: day("2024-01-01"), EndDate: dayPtr("2024-06-15")})
	s.AddLease(domain.Lease{ID: "next", UnitID: "u-1", TenantID: "t-3", StartDate: day("2024-06-16")})
	r := app.NewOccupancyRegistry(s.Leases())
	ctx := context.Background()

	tests := []struct {
		on   string
		want string
	}{
		{"2022-06-01", ""},
		{"2023-12-31", "past"},
		{"2024-01-01", "now"},
		{"2024-06-15", "now"},
		{"2024-06-16", "next"},
		{"2030-01-01", "next"},
	}
	for _, tt := range tests {
		got, err := r.GetActiveAssignment(ctx, "u-1", day(tt.on))
		if err != nil {
			t.Fatalf("%s: %v", tt.on, err)
		}
		var id string
		if got != nil {
			id = got.ID
		}
		if id != tt.want {
			t.Errorf("on %s: got %q, want %q", tt.on, id, tt.want)
		}
	}
}

func TestOccupancyRegistry_Availability(t *testing.T) {
	s := memory.New()
	s.AddLease(domain.Lease{ID: "l-1", UnitID: "u-1", TenantID: "t-1", StartDate: day("2024-01-01"), EndDate: dayPtr("2024-06-15")})
	r := app.NewOccupancyRegistry(s.Leases())

	st, err := r.GetAvailability(context.Background(), "u-1", day("2024-06-15"))
	if err != nil {
		t.Fatalf("GetAvailability failed: %v", err)
	}
	if st.Available {
		t.Error("unit should be occupied on its lease's last day")
	}

	st, _ = r.GetAvailability(context.Background(), "u-1", day("2024-06-16"))
	if !st.Available || st.ActiveLease != nil {
		t.Errorf("availability = %+v, want free", st)
	}
	if !st.AsOf.Equal(day("2024-06-16")) {
		t.Errorf("AsOf = %v, want 2024-06-16", st.AsOf)
	}
}

func TestOccupancyRegistry_FindOverlapping(t *testing.T) {
	s := memory.New()
	s.AddLease(domain.Lease{ID: "b", UnitID: "u-1", TenantID: "t-2", StartDate: day("2024-07-01")})
	s.AddLease(domain.Lease{ID: "a", UnitID: "u-1", TenantID: "t-1", StartDate: day("2024-01-01"), EndDate: dayPtr("2024-03-31")})
	s.AddLease(domain.Lease{ID: "other", UnitID: "u-2", TenantID: "t-3", StartDate: day("2024-01-01")})
	r := app.NewOccupancyRegistry(s.Leases())
	ctx := context.Background()

	got, err := r.FindOverlapping(ctx, "u-1", day("2024-03-01"), nil)
	if err != nil {
		t.Fatalf("FindOverlapping failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("got %v, want [a b]", ids(got))
	}

	got, _ = r.FindOverlapping(ctx, "u-1", day("2024-04-01"), dayPtr("2024-06-30"))
	if len(got) != 0 {
		t.Errorf("gap between leases should be free, got %v", ids(got))
	}
}

func TestOccupancyRegistry_IntegrityFault(t *testing.T) {
	s := memory.New()
	s.AddLease(domain.Lease{ID: "a", UnitID: "u-1", TenantID: "t-1", StartDate: day("2024-01-01")})
	s.AddLease(domain.Lease{ID: "b", UnitID: "u-1", TenantID: "t-2", StartDate: day("2024-02-01")})
	r := app.NewOccupancyRegistry(s.Leases())

	_, err := r.GetActiveAssignment(context.Background(), "u-1", day("2024-03-01"))
	var intErr *domain.OccupancyIntegrityError
	if !errors.As(err, &intErr) {
		t.Fatalf("expected OccupancyIntegrityError, got %v", err)
	}
	if domain.IsBusinessError(err) {
		t.Error("integrity fault must not be reported as a business error")
	}
}

func ids(leases []domain.Lease) []string {
	out := make([]string, len(leases))
	for i, l := range leases {
		out[i] = l.ID
	}
	return out
}
