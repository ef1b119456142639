package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/neomorfeo/tenancyd/internal/domain"
)

// --- Units ---

type unitRepository struct {
	q querier
}

func (r *unitRepository) GetUnit(ctx context.Context, id string) (domain.Unit, error) {
	return getUnit(ctx, r.q, id)
}

func (r *unitRepository) SetOccupancy(ctx context.Context, unitID string, status domain.UnitStatus, tenantID string) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE units SET status = ?, current_tenant_id = ? WHERE id = ?`,
		string(status), nullString(tenantID), unitID,
	)
	if err != nil {
		return fmt.Errorf("updating unit occupancy: %w", err)
	}
	return checkAffected(result, domain.ErrUnitNotFound)
}

func getUnit(ctx context.Context, q querier, id string) (domain.Unit, error) {
	var (
		u       domain.Unit
		status  string
		current sql.NullString
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, property_id, label, status, current_tenant_id FROM units WHERE id = ?`, id,
	).Scan(&u.ID, &u.PropertyID, &u.Label, &status, &current)
	if err != nil {
		if noRows(err) {
			return domain.Unit{}, domain.ErrUnitNotFound
		}
		return domain.Unit{}, fmt.Errorf("scanning unit: %w", err)
	}
	u.Status = domain.UnitStatus(status)
	u.CurrentTenantID = current.String
	return u, nil
}

// --- Tenants ---

type tenantRepository struct {
	q querier
}

func (r *tenantRepository) GetByID(ctx context.Context, id string) (domain.Tenant, error) {
	return scanTenant(r.q.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = ?`, id,
	))
}

func (r *tenantRepository) UpdateStatus(ctx context.Context, id string, status domain.TenantStatus) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE tenants SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC().Format(timeFormat), id,
	)
	if err != nil {
		return fmt.Errorf("updating tenant status: %w", err)
	}
	return checkAffected(result, domain.ErrTenantNotFound)
}

const tenantColumns = `id, owner_id, user_id, email, name, status, created_at, updated_at`

func scanTenant(row rowScanner) (domain.Tenant, error) {
	var t domain.Tenant
	var status, createdAt, updatedAt string

	err := row.Scan(&t.ID, &t.OwnerID, &t.UserID, &t.Email, &t.Name, &status, &createdAt, &updatedAt)
	if err != nil {
		if noRows(err) {
			return domain.Tenant{}, domain.ErrTenantNotFound
		}
		return domain.Tenant{}, fmt.Errorf("scanning tenant: %w", err)
	}

	t.Status = domain.TenantStatus(status)
	t.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	t.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return t, nil
}

// --- Refunds ---

const refundColumns = `id, lease_id, tenant_id, property_id, unit_id, amount, status, reference, created_at`

// RefundRepository implements domain.RefundRepository using SQLite. The
// unique reference column makes Insert idempotent.
type RefundRepository struct {
	q querier
}

func (r *RefundRepository) Insert(ctx context.Context, rf domain.RefundRecord) (bool, error) {
	result, err := r.q.ExecContext(ctx,
		`INSERT INTO refunds (`+refundColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (reference) DO NOTHING`,
		rf.ID, rf.LeaseID, rf.TenantID, rf.PropertyID, rf.UnitID,
		rf.Amount.String(), string(rf.Status), rf.Reference,
		rf.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return false, fmt.Errorf("inserting refund: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *RefundRepository) GetByReference(ctx context.Context, reference string) (domain.RefundRecord, error) {
	rf, err := scanRefund(r.q.QueryRowContext(ctx,
		`SELECT `+refundColumns+` FROM refunds WHERE reference = ?`, reference,
	))
	if noRows(err) {
		return domain.RefundRecord{}, domain.ErrRefundNotFound
	}
	return rf, err
}

func (r *RefundRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.RefundRecord, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+refundColumns+` FROM refunds WHERE tenant_id = ? ORDER BY created_at, id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing refunds: %w", err)
	}
	defer rows.Close()

	var refunds []domain.RefundRecord
	for rows.Next() {
		rf, err := scanRefund(rows)
		if err != nil {
			return nil, err
		}
		refunds = append(refunds, rf)
	}
	return refunds, rows.Err()
}

func scanRefund(row rowScanner) (domain.RefundRecord, error) {
	var rf domain.RefundRecord
	var amount, status, createdAt string

	err := row.Scan(&rf.ID, &rf.LeaseID, &rf.TenantID, &rf.PropertyID, &rf.UnitID,
		&amount, &status, &rf.Reference, &createdAt)
	if err != nil {
		if noRows(err) {
			return domain.RefundRecord{}, err
		}
		return domain.RefundRecord{}, fmt.Errorf("scanning refund: %w", err)
	}

	if rf.Amount, err = decimal.NewFromString(amount); err != nil {
		return domain.RefundRecord{}, fmt.Errorf("refund %s amount: %w", rf.ID, err)
	}
	rf.Status = domain.RefundStatus(status)
	rf.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	return rf, nil
}
