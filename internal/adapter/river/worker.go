package river

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

// EventWorker processes lease event jobs. Events are logged; downstream
// consumers (notifications, accounting) read them from the log stream.
type EventWorker struct {
	river.WorkerDefaults[LeaseEventJobArgs]
	logger *slog.Logger
}

// NewEventWorker returns a worker logging through logger, or the default
// logger when nil.
func NewEventWorker(logger *slog.Logger) *EventWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventWorker{logger: logger}
}

// Work processes a single event job.
func (w *EventWorker) Work(ctx context.Context, job *river.Job[LeaseEventJobArgs]) error {
	attrs := []any{
		"type", job.Args.Type,
		"job_id", job.ID,
		"attempt", job.Attempt,
	}
	if job.Args.LeaseID != "" {
		attrs = append(attrs, "lease_id", job.Args.LeaseID)
	}
	if job.Args.TenantID != "" {
		attrs = append(attrs, "tenant_id", job.Args.TenantID)
	}
	if job.Args.TenantStatus != "" {
		attrs = append(attrs, "tenant_status", job.Args.TenantStatus)
	}
	if job.Args.RefundReference != "" {
		attrs = append(attrs, "refund_reference", job.Args.RefundReference, "refund_amount", job.Args.RefundAmount)
	}
	w.logger.InfoContext(ctx, "lease event processed", attrs...)
	return nil
}
