package river

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/tenancyd/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// LeaseEventJobArgs is the JSON snapshot of a lease event stored in River's
// job table. It carries everything the worker needs, so processing never
// reads lease state back.
type LeaseEventJobArgs struct {
	Type            string    `json:"type"`
	LeaseID         string    `json:"lease_id,omitempty"`
	TenantID        string    `json:"tenant_id,omitempty"`
	UnitID          string    `json:"unit_id,omitempty"`
	PropertyID      string    `json:"property_id,omitempty"`
	TenantStatus    string    `json:"tenant_status,omitempty"`
	RefundReference string    `json:"refund_reference,omitempty"`
	RefundAmount    string    `json:"refund_amount,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (LeaseEventJobArgs) Kind() string { return "lease.event" }

// InsertOpts caps retries; a lease event that cannot be handled after a few
// attempts is left discarded in river_job for inspection.
func (LeaseEventJobArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{MaxAttempts: leaseEventMaxAttempts}
}

const leaseEventMaxAttempts = 5

// NewLeaseEventJobArgs snapshots e into job arguments.
func NewLeaseEventJobArgs(e domain.LeaseEvent) LeaseEventJobArgs {
	args := LeaseEventJobArgs{
		Type:         string(e.Type),
		LeaseID:      e.LeaseID,
		TenantID:     e.TenantID,
		UnitID:       e.UnitID,
		PropertyID:   e.PropertyID,
		TenantStatus: string(e.TenantStatus),
		OccurredAt:   e.OccurredAt,
	}
	if e.Refund != nil {
		args.RefundReference = e.Refund.Reference
		args.RefundAmount = e.Refund.Amount.String()
	}
	return args
}

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher enqueues lease events as River jobs.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// EnqueueTx inserts the event job inside tx, so it is only visible to
// workers once the lease change that produced it commits.
func (p *Publisher) EnqueueTx(ctx context.Context, tx *sql.Tx, e domain.LeaseEvent) error {
	if _, err := p.client.InsertTx(ctx, tx, NewLeaseEventJobArgs(e), nil); err != nil {
		return fmt.Errorf("enqueuing %s job: %w", e.Type, err)
	}
	return nil
}

// Publish enqueues an event outside any transaction.
func (p *Publisher) Publish(ctx context.Context, e domain.LeaseEvent) error {
	if _, err := p.client.Insert(ctx, NewLeaseEventJobArgs(e), nil); err != nil {
		return fmt.Errorf("enqueuing %s job: %w", e.Type, err)
	}
	return nil
}
