package river_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	goriver "github.com/riverqueue/river"
	"github.com/shopspring/decimal"

	riveradapter "github.com/neomorfeo/tenancyd/internal/adapter/river"
	"github.com/neomorfeo/tenancyd/internal/adapter/sqlite"
	"github.com/neomorfeo/tenancyd/internal/domain"
)

// setupStore opens a file-backed lease store with River's tables migrated
// into the same database and the publisher installed as its outbox.
func setupStore(t *testing.T) (*sqlite.Store, *riveradapter.Client) {
	t.Helper()

	store, err := sqlite.New(t.TempDir() + "/river_test.db")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	client, err := riveradapter.Setup(context.Background(), store.DB(), riveradapter.Options{Workers: 1})
	if err != nil {
		t.Fatalf("river setup: %v", err)
	}
	store.SetOutbox(riveradapter.NewPublisher(client))
	return store, client
}

func start(t *testing.T, client *riveradapter.Client) {
	t.Helper()
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("river start: %v", err)
	}
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Stop(stopCtx); err != nil {
			t.Errorf("river stop: %v", err)
		}
	})
}

func countJobs(t *testing.T, store *sqlite.Store) int {
	t.Helper()
	var n int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM river_job WHERE kind = 'lease.event'`).Scan(&n); err != nil {
		t.Fatalf("counting jobs: %v", err)
	}
	return n
}

func TestOutbox_CommittedEventIsProcessed(t *testing.T) {
	store, client := setupStore(t)
	ctx := context.Background()

	// Subscribe to job completions before starting so we don't miss events.
	subscribeChan, subscribeCancel := client.Subscribe(goriver.EventKindJobCompleted)
	defer subscribeCancel()
	start(t, client)

	refund := &domain.RefundRecord{Reference: "refund-l-42-20240615", Amount: decimal.RequireFromString("750.00")}
	err := store.Do(ctx, func(ctx context.Context, st domain.Stores) error {
		return st.Events.Publish(ctx, domain.LeaseEvent{
			Type:     domain.RefundIssued,
			LeaseID:  "l-42",
			TenantID: "t-7",
			Refund:   refund,
		})
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}

	select {
	case event := <-subscribeChan:
		if event.Job.Kind != "lease.event" {
			t.Errorf("job kind = %q, want %q", event.Job.Kind, "lease.event")
		}
		args := string(event.Job.EncodedArgs)
		for _, want := range []string{`"type":"refund_pending"`, `"lease_id":"l-42"`, `"tenant_id":"t-7"`, `"refund_reference":"refund-l-42-20240615"`} {
			if !strings.Contains(args, want) {
				t.Errorf("encoded args missing %s, got: %s", want, args)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job completion")
	}
}

func TestOutbox_RolledBackEventIsDiscarded(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.Do(ctx, func(ctx context.Context, st domain.Stores) error {
		if err := st.Events.Publish(ctx, domain.LeaseEvent{Type: domain.LeaseCreated, LeaseID: "l-1"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if n := countJobs(t, store); n != 0 {
		t.Errorf("got %d jobs after rollback, want 0", n)
	}

	err = store.Do(ctx, func(ctx context.Context, st domain.Stores) error {
		return st.Events.Publish(ctx, domain.LeaseEvent{Type: domain.LeaseCreated, LeaseID: "l-1"})
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if n := countJobs(t, store); n != 1 {
		t.Errorf("got %d jobs after commit, want 1", n)
	}
}

func TestPublisher_Publish_OutsideTransaction(t *testing.T) {
	store, client := setupStore(t)

	pub := riveradapter.NewPublisher(client)
	err := pub.Publish(context.Background(), domain.LeaseEvent{
		Type:         domain.TenantStatusChanged,
		TenantID:     "t-1",
		TenantStatus: domain.TenantUnassigned,
	})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if n := countJobs(t, store); n != 1 {
		t.Errorf("got %d jobs, want 1", n)
	}
}

func TestNewLeaseEventJobArgs(t *testing.T) {
	at := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	args := riveradapter.NewLeaseEventJobArgs(domain.LeaseEvent{
		Type:       domain.LeaseEnded,
		LeaseID:    "l-1",
		UnitID:     "u-1",
		PropertyID: "p-1",
		OccurredAt: at,
	})

	if args.Kind() != "lease.event" {
		t.Errorf("Kind = %q, want %q", args.Kind(), "lease.event")
	}
	if args.Type != "lease_terminated" || args.UnitID != "u-1" || args.PropertyID != "p-1" {
		t.Errorf("args = %+v", args)
	}
	if args.RefundReference != "" {
		t.Errorf("RefundReference = %q, want empty", args.RefundReference)
	}
	if !args.OccurredAt.Equal(at) {
		t.Errorf("OccurredAt = %v, want %v", args.OccurredAt, at)
	}
}

func TestLeaseEventJobArgs_InsertOpts(t *testing.T) {
	opts := riveradapter.LeaseEventJobArgs{}.InsertOpts()
	if opts.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", opts.MaxAttempts)
	}
}
