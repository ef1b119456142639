package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/neomorfeo/tenancyd/internal/adapter/sqlite"
	"github.com/neomorfeo/tenancyd/internal/domain"
)

// newTestStore creates an in-memory SQLite store seeded with one property,
// two units and two tenants.
func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	must(t, store.CreateProperty(ctx, domain.Property{ID: "p-1", OwnerID: "owner-1", Name: "Elm Court"}))
	must(t, store.CreateProperty(ctx, domain.Property{ID: "p-2", OwnerID: "owner-2", Name: "Oak House"}))
	must(t, store.CreateUnit(ctx, domain.Unit{ID: "u-1", PropertyID: "p-1", Label: "1A"}))
	must(t, store.CreateUnit(ctx, domain.Unit{ID: "u-2", PropertyID: "p-1", Label: "1B"}))
	must(t, store.CreateTenant(ctx, domain.NewTenant("t-1", "owner-1", "ana@example.com", "Ana")))
	must(t, store.CreateTenant(ctx, domain.NewTenant("t-2", "owner-1", "ben@example.com", "Ben")))
	return store
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
}

func day(s string) time.Time {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func dayPtr(s string) *time.Time {
	d := day(s)
	return &d
}

func testLease(id, unit, tenant, start string, end *time.Time) domain.Lease {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return domain.Lease{
		ID:            id,
		PropertyID:    "p-1",
		UnitID:        unit,
		TenantID:      tenant,
		StartDate:     day(start),
		EndDate:       end,
		RentAmount:    decimal.RequireFromString("1250.50"),
		DepositAmount: decimal.NewFromInt(2500),
		AdvanceAmount: decimal.RequireFromString("625.25"),
		Status:        domain.LeaseActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func insert(t *testing.T, store *sqlite.Store, l domain.Lease) {
	t.Helper()
	err := store.Do(context.Background(), func(ctx context.Context, st domain.Stores) error {
		return st.Leases.Insert(ctx, l)
	})
	if err != nil {
		t.Fatalf("inserting lease %s: %v", l.ID, err)
	}
}

func TestLease_InsertAndGetByID(t *testing.T) {
	store := newTestStore(t)
	want := testLease("l-1", "u-1", "t-1", "2024-01-01", dayPtr("2024-12-31"))
	insert(t, store, want)

	got, err := store.Leases().GetByID(context.Background(), "l-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.UnitID != "u-1" || got.TenantID != "t-1" {
		t.Errorf("unit/tenant = %q/%q, want u-1/t-1", got.UnitID, got.TenantID)
	}
	if !got.StartDate.Equal(want.StartDate) {
		t.Errorf("StartDate = %v, want %v", got.StartDate, want.StartDate)
	}
	if got.EndDate == nil || !got.EndDate.Equal(*want.EndDate) {
		t.Errorf("EndDate = %v, want %v", got.EndDate, want.EndDate)
	}
	if !got.RentAmount.Equal(want.RentAmount) {
		t.Errorf("RentAmount = %s, want %s", got.RentAmount, want.RentAmount)
	}
	if !got.AdvanceAmount.Equal(want.AdvanceAmount) {
		t.Errorf("AdvanceAmount = %s, want %s", got.AdvanceAmount, want.AdvanceAmount)
	}
	if got.Status != domain.LeaseActive {
		t.Errorf("Status = %q, want %q", got.Status, domain.LeaseActive)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
}

func TestLease_OpenEnded(t *testing.T) {
	store := newTestStore(t)
	insert(t, store, testLease("l-1", "u-1", "t-1", "2024-01-01", nil))

	got, err := store.Leases().GetByID(context.Background(), "l-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.EndDate != nil {
		t.Errorf("EndDate = %v, want nil", got.EndDate)
	}
}

func TestLease_GetByID_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Leases().GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, domain.ErrLeaseNotFound) {
		t.Errorf("expected ErrLeaseNotFound, got %v", err)
	}
}

func TestLease_GetByUnitAndTenant(t *testing.T) {
	store := newTestStore(t)
	insert(t, store, testLease("l-b", "u-1", "t-1", "2024-06-01", nil))
	insert(t, store, testLease("l-a", "u-1", "t-2", "2024-01-01", dayPtr("2024-05-31")))
	insert(t, store, testLease("l-c", "u-2", "t-1", "2024-02-01", nil))
	ctx := context.Background()

	byUnit, err := store.Leases().GetByUnit(ctx, "u-1")
	if err != nil {
		t.Fatalf("GetByUnit failed: %v", err)
	}
	if len(byUnit) != 2 || byUnit[0].ID != "l-a" || byUnit[1].ID != "l-b" {
		t.Errorf("GetByUnit = %v, want [l-a l-b] ordered by start", leaseIDs(byUnit))
	}

	byTenant, err := store.Leases().GetByTenant(ctx, "t-1")
	if err != nil {
		t.Fatalf("GetByTenant failed: %v", err)
	}
	if len(byTenant) != 2 || byTenant[0].ID != "l-c" || byTenant[1].ID != "l-b" {
		t.Errorf("GetByTenant = %v, want [l-c l-b]", leaseIDs(byTenant))
	}
}

func TestLease_GetByPropertyWithinDateRange(t *testing.T) {
	store := newTestStore(t)
	insert(t, store, testLease("l-in", "u-1", "t-1", "2024-01-01", dayPtr("2024-06-20")))
	insert(t, store, testLease("l-edge", "u-2", "t-2", "2024-01-01", dayPtr("2024-07-10")))
	insert(t, store, testLease("l-open", "u-2", "t-1", "2024-08-01", nil))

	got, err := store.Leases().GetByPropertyWithinDateRange(context.Background(), "p-1", day("2024-06-10"), day("2024-07-10"))
	if err != nil {
		t.Fatalf("GetByPropertyWithinDateRange failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %v, want l-in and l-edge", leaseIDs(got))
	}
	for _, l := range got {
		if l.ID == "l-open" {
			t.Error("open-ended lease must not be returned")
		}
	}
}

func TestLease_Update(t *testing.T) {
	store := newTestStore(t)
	insert(t, store, testLease("l-1", "u-1", "t-1", "2024-01-01", nil))
	ctx := context.Background()

	end := day("2024-06-15")
	reason := "tenant_request"
	status := domain.LeaseTerminated
	err := store.Do(ctx, func(ctx context.Context, st domain.Stores) error {
		return st.Leases.Update(ctx, "l-1", domain.LeaseUpdate{EndDate: &end, TerminationReason: &reason, Status: &status})
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, _ := store.Leases().GetByID(ctx, "l-1")
	if got.EndDate == nil || !got.EndDate.Equal(end) {
		t.Errorf("EndDate = %v, want %v", got.EndDate, end)
	}
	if got.Status != domain.LeaseTerminated || got.TerminationReason != reason {
		t.Errorf("status/reason = %q/%q, want terminated/%q", got.Status, got.TerminationReason, reason)
	}

	err = store.Do(ctx, func(ctx context.Context, st domain.Stores) error {
		return st.Leases.Update(ctx, "missing", domain.LeaseUpdate{Status: &status})
	})
	if !errors.Is(err, domain.ErrLeaseNotFound) {
		t.Errorf("expected ErrLeaseNotFound, got %v", err)
	}
}

func TestDo_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Do(ctx, func(ctx context.Context, st domain.Stores) error {
		if err := st.Leases.Insert(ctx, testLease("l-1", "u-1", "t-1", "2024-01-01", nil)); err != nil {
			return err
		}
		if err := st.Units.SetOccupancy(ctx, "u-1", domain.UnitOccupied, "t-1"); err != nil {
			return err
		}
		if err := st.Tenants.UpdateStatus(ctx, "t-1", domain.TenantActive); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := store.Leases().GetByID(ctx, "l-1"); !errors.Is(err, domain.ErrLeaseNotFound) {
		t.Errorf("lease should be rolled back, got %v", err)
	}
	u, _ := store.GetUnit(ctx, "u-1")
	if u.Status != domain.UnitVacant || u.CurrentTenantID != "" {
		t.Errorf("unit = (%q, %q), want (Vacant, \"\")", u.Status, u.CurrentTenantID)
	}
	tenant, _ := store.GetTenantByID(ctx, "t-1")
	if tenant.Status != domain.TenantUnassigned {
		t.Errorf("tenant status = %q, want unassigned", tenant.Status)
	}
}

func TestUnits_SetOccupancy(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Do(ctx, func(ctx context.Context, st domain.Stores) error {
		if err := st.Units.SetOccupancy(ctx, "u-1", domain.UnitOccupied, "t-1"); err != nil {
			return err
		}
		u, err := st.Units.GetUnit(ctx, "u-1")
		if err != nil {
			return err
		}
		if u.CurrentTenantID != "t-1" {
			t.Errorf("CurrentTenantID inside transaction = %q, want t-1", u.CurrentTenantID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}

	err = store.Do(ctx, func(ctx context.Context, st domain.Stores) error {
		return st.Units.SetOccupancy(ctx, "u-404", domain.UnitVacant, "")
	})
	if !errors.Is(err, domain.ErrUnitNotFound) {
		t.Errorf("expected ErrUnitNotFound, got %v", err)
	}
}

func TestRefunds_InsertIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	insert(t, store, testLease("l-1", "u-1", "t-1", "2024-01-01", nil))
	ctx := context.Background()

	refund := domain.RefundRecord{
		ID:         "r-1",
		LeaseID:    "l-1",
		TenantID:   "t-1",
		PropertyID: "p-1",
		UnitID:     "u-1",
		Amount:     decimal.RequireFromString("625.25"),
		Status:     domain.RefundPending,
		Reference:  domain.RefundReference("l-1", day("2024-06-15")),
		CreatedAt:  time.Now().UTC(),
	}

	var first, second bool
	err := store.Do(ctx, func(ctx context.Context, st domain.Stores) error {
		var err error
		if first, err = st.Refunds.Insert(ctx, refund); err != nil {
			return err
		}
		dup := refund
		dup.ID = "r-2"
		second, err = st.Refunds.Insert(ctx, dup)
		return err
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if !first || second {
		t.Errorf("inserted = (%v, %v), want (true, false)", first, second)
	}

	got, err := store.Refunds().GetByReference(ctx, refund.Reference)
	if err != nil {
		t.Fatalf("GetByReference failed: %v", err)
	}
	if got.ID != "r-1" || !got.Amount.Equal(refund.Amount) {
		t.Errorf("refund = (%q, %s), want (r-1, %s)", got.ID, got.Amount, refund.Amount)
	}

	list, _ := store.Refunds().ListByTenant(ctx, "t-1")
	if len(list) != 1 {
		t.Errorf("got %d refunds, want 1", len(list))
	}

	if _, err := store.Refunds().GetByReference(ctx, "missing"); !errors.Is(err, domain.ErrRefundNotFound) {
		t.Errorf("expected ErrRefundNotFound, got %v", err)
	}
}

func TestDirectory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	owner, err := store.GetPropertyOwner(ctx, "p-1")
	if err != nil || owner != "owner-1" {
		t.Errorf("GetPropertyOwner = %q, %v; want owner-1", owner, err)
	}
	if _, err := store.GetPropertyOwner(ctx, "p-404"); !errors.Is(err, domain.ErrPropertyNotFound) {
		t.Errorf("expected ErrPropertyNotFound, got %v", err)
	}

	parent, err := store.GetParentPropertyForUnit(ctx, "u-2")
	if err != nil || parent != "p-1" {
		t.Errorf("GetParentPropertyForUnit = %q, %v; want p-1", parent, err)
	}

	ok, _ := store.CheckPropertyAccess(ctx, "p-1", "manager-1")
	if ok {
		t.Error("manager should not have access before grant")
	}
	must(t, store.GrantAccess(ctx, "p-1", "manager-1"))
	must(t, store.GrantAccess(ctx, "p-1", "manager-1"))
	ok, _ = store.CheckPropertyAccess(ctx, "p-1", "manager-1")
	if !ok {
		t.Error("manager should have access after grant")
	}

	props, _ := store.ListOwnedProperties(ctx, "owner-1")
	if len(props) != 1 || props[0] != "p-1" {
		t.Errorf("ListOwnedProperties = %v, want [p-1]", props)
	}

	tenant, err := store.GetTenantByEmail(ctx, "ANA@example.com")
	if err != nil || tenant.ID != "t-1" {
		t.Errorf("GetTenantByEmail = %q, %v; want t-1", tenant.ID, err)
	}
	if _, err := store.GetTenantByID(ctx, "t-404"); !errors.Is(err, domain.ErrTenantNotFound) {
		t.Errorf("expected ErrTenantNotFound, got %v", err)
	}
}

func TestCreateTenant_DuplicateEmail(t *testing.T) {
	store := newTestStore(t)

	err := store.CreateTenant(context.Background(), domain.NewTenant("t-9", "owner-1", "ana@example.com", "Other Ana"))
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

type recordingOutbox struct {
	events []domain.LeaseEvent
	fail   error
}

func (o *recordingOutbox) EnqueueTx(_ context.Context, tx *sql.Tx, e domain.LeaseEvent) error {
	if tx == nil {
		return errors.New("outbox called without transaction")
	}
	if o.fail != nil {
		return o.fail
	}
	o.events = append(o.events, e)
	return nil
}

func TestDo_PublishesThroughOutbox(t *testing.T) {
	store := newTestStore(t)
	outbox := &recordingOutbox{}
	store.SetOutbox(outbox)
	ctx := context.Background()

	err := store.Do(ctx, func(ctx context.Context, st domain.Stores) error {
		return st.Events.Publish(ctx, domain.LeaseEvent{Type: domain.LeaseCreated, LeaseID: "l-1"})
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if len(outbox.events) != 1 || outbox.events[0].LeaseID != "l-1" {
		t.Errorf("outbox events = %+v, want one for l-1", outbox.events)
	}

	outbox.fail = errors.New("queue full")
	err = store.Do(ctx, func(ctx context.Context, st domain.Stores) error {
		if err := st.Leases.Insert(ctx, testLease("l-2", "u-1", "t-1", "2024-01-01", nil)); err != nil {
			return err
		}
		return st.Events.Publish(ctx, domain.LeaseEvent{Type: domain.LeaseCreated, LeaseID: "l-2"})
	})
	if err == nil {
		t.Fatal("expected outbox failure to abort the transaction")
	}
	if _, err := store.Leases().GetByID(ctx, "l-2"); !errors.Is(err, domain.ErrLeaseNotFound) {
		t.Errorf("lease should be rolled back, got %v", err)
	}
}

func leaseIDs(leases []domain.Lease) []string {
	out := make([]string, len(leases))
	for i, l := range leases {
		out[i] = l.ID
	}
	return out
}
