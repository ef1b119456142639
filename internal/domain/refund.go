package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RefundStatus tracks a refund obligation through payout.
type RefundStatus string

const (
	RefundPending   RefundStatus = "pending_refund"
	RefundPaid      RefundStatus = "refunded"
	RefundCancelled RefundStatus = "cancelled"
)

// RefundRecord is a pending obligation to return a tenant's advance payment.
type RefundRecord struct {
	ID         string
	LeaseID    string
	TenantID   string
	PropertyID string
	UnitID     string
	Amount     decimal.Decimal
	Status     RefundStatus
	Reference  string
	CreatedAt  time.Time
}

// RefundReference derives the idempotency key of the refund produced by
// terminating a lease on the given date. A retried termination yields the
// same reference, so storage can refuse the duplicate.
func RefundReference(leaseID string, terminationDate time.Time) string {
	return "refund-" + leaseID + "-" + Day(terminationDate).Format("20060102")
}
