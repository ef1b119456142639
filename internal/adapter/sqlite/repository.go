package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/neomorfeo/tenancyd/internal/domain"
)

const leaseColumns = `id, property_id, unit_id, tenant_id, start_date, end_date,
	rent_amount, deposit_amount, advance_amount, status, termination_reason,
	created_at, updated_at`

// LeaseRepository implements domain.LeaseRepository using SQLite.
type LeaseRepository struct {
	q querier
}

func (r *LeaseRepository) Insert(ctx context.Context, l domain.Lease) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO leases (`+leaseColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.PropertyID, l.UnitID, l.TenantID,
		l.StartDate.Format(domain.DateLayout), formatDate(l.EndDate),
		l.RentAmount.String(), l.DepositAmount.String(), l.AdvanceAmount.String(),
		string(l.Status), l.TerminationReason,
		l.CreatedAt.UTC().Format(timeFormat),
		l.UpdatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting lease: %w", err)
	}
	return nil
}

func (r *LeaseRepository) GetByID(ctx context.Context, id string) (domain.Lease, error) {
	l, err := scanLease(r.q.QueryRowContext(ctx,
		`SELECT `+leaseColumns+` FROM leases WHERE id = ?`, id,
	))
	if noRows(err) {
		return domain.Lease{}, domain.ErrLeaseNotFound
	}
	return l, err
}

func (r *LeaseRepository) GetByTenant(ctx context.Context, tenantID string) ([]domain.Lease, error) {
	return r.list(ctx,
		`SELECT `+leaseColumns+` FROM leases WHERE tenant_id = ? ORDER BY start_date, id`, tenantID)
}

func (r *LeaseRepository) GetByUnit(ctx context.Context, unitID string) ([]domain.Lease, error) {
	return r.list(ctx,
		`SELECT `+leaseColumns+` FROM leases WHERE unit_id = ? ORDER BY start_date, id`, unitID)
}

func (r *LeaseRepository) GetByPropertyWithinDateRange(ctx context.Context, propertyID string, from, to time.Time) ([]domain.Lease, error) {
	return r.list(ctx,
		`SELECT `+leaseColumns+` FROM leases
		 WHERE property_id = ? AND end_date IS NOT NULL AND end_date BETWEEN ? AND ?
		 ORDER BY start_date, id`,
		propertyID, from.Format(domain.DateLayout), to.Format(domain.DateLayout))
}

func (r *LeaseRepository) Update(ctx context.Context, id string, u domain.LeaseUpdate) error {
	var (
		sets []string
		args []any
	)
	if u.EndDate != nil {
		sets = append(sets, "end_date = ?")
		args = append(args, u.EndDate.Format(domain.DateLayout))
	}
	if u.TerminationReason != nil {
		sets = append(sets, "termination_reason = ?")
		args = append(args, *u.TerminationReason)
	}
	if u.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*u.Status))
	}
	updatedAt := u.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, updatedAt.UTC().Format(timeFormat), id)

	result, err := r.q.ExecContext(ctx,
		`UPDATE leases SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("updating lease: %w", err)
	}
	return checkAffected(result, domain.ErrLeaseNotFound)
}

func (r *LeaseRepository) list(ctx context.Context, query string, args ...any) ([]domain.Lease, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing leases: %w", err)
	}
	defer rows.Close()

	var leases []domain.Lease
	for rows.Next() {
		l, err := scanLease(rows)
		if err != nil {
			return nil, err
		}
		leases = append(leases, l)
	}

	return leases, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanLease(row rowScanner) (domain.Lease, error) {
	var (
		l                      domain.Lease
		start, status          string
		end                    sql.NullString
		rent, deposit, advance string
		createdAt, updatedAt   string
	)

	err := row.Scan(&l.ID, &l.PropertyID, &l.UnitID, &l.TenantID, &start, &end,
		&rent, &deposit, &advance, &status, &l.TerminationReason, &createdAt, &updatedAt)
	if err != nil {
		if noRows(err) {
			return domain.Lease{}, err
		}
		return domain.Lease{}, fmt.Errorf("scanning lease: %w", err)
	}

	if l.StartDate, err = domain.ParseDate(start); err != nil {
		return domain.Lease{}, fmt.Errorf("lease %s start_date: %w", l.ID, err)
	}
	if end.Valid {
		d, err := domain.ParseDate(end.String)
		if err != nil {
			return domain.Lease{}, fmt.Errorf("lease %s end_date: %w", l.ID, err)
		}
		l.EndDate = &d
	}
	if l.RentAmount, err = decimal.NewFromString(rent); err != nil {
		return domain.Lease{}, fmt.Errorf("lease %s rent_amount: %w", l.ID, err)
	}
	if l.DepositAmount, err = decimal.NewFromString(deposit); err != nil {
		return domain.Lease{}, fmt.Errorf("lease %s deposit_amount: %w", l.ID, err)
	}
	if l.AdvanceAmount, err = decimal.NewFromString(advance); err != nil {
		return domain.Lease{}, fmt.Errorf("lease %s advance_amount: %w", l.ID, err)
	}
	l.Status = domain.LeaseStatus(status)
	l.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	l.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return l, nil
}

func formatDate(d *time.Time) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Format(domain.DateLayout), Valid: true}
}
