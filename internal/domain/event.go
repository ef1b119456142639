package domain

import "time"

// LeaseEventType names something that happened to a lease.
type LeaseEventType string

const (
	LeaseCreated        LeaseEventType = "lease_created"
	LeaseEnded          LeaseEventType = "lease_terminated"
	RefundIssued        LeaseEventType = "refund_pending"
	TenantStatusChanged LeaseEventType = "tenant_status_changed"
)

// LeaseEvent is emitted inside the unit of work for every lease mutation so
// that downstream consumers (notifications, accounting) see exactly the
// committed changes.
type LeaseEvent struct {
	Type         LeaseEventType
	LeaseID      string
	TenantID     string
	UnitID       string
	PropertyID   string
	TenantStatus TenantStatus
	Refund       *RefundRecord
	OccurredAt   time.Time
}
