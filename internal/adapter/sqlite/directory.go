package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/neomorfeo/tenancyd/internal/domain"
)

// The property and tenant collaborators are served from the same database.

func (s *Store) GetPropertyOwner(ctx context.Context, propertyID string) (string, error) {
	var owner string
	err := s.db.QueryRowContext(ctx,
		`SELECT owner_id FROM properties WHERE id = ?`, propertyID,
	).Scan(&owner)
	if err != nil {
		if noRows(err) {
			return "", domain.ErrPropertyNotFound
		}
		return "", fmt.Errorf("reading property owner: %w", err)
	}
	return owner, nil
}

func (s *Store) GetParentPropertyForUnit(ctx context.Context, unitID string) (string, error) {
	u, err := getUnit(ctx, s.db, unitID)
	if err != nil {
		return "", err
	}
	return u.PropertyID, nil
}

func (s *Store) CheckPropertyAccess(ctx context.Context, propertyID, userID string) (bool, error) {
	owner, err := s.GetPropertyOwner(ctx, propertyID)
	if err != nil {
		return false, err
	}
	if owner == userID {
		return true, nil
	}

	var n int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM property_access WHERE property_id = ? AND user_id = ?`,
		propertyID, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking property access: %w", err)
	}
	return n > 0, nil
}

func (s *Store) ListOwnedProperties(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM properties WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing properties: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning property id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) GetTenantByID(ctx context.Context, id string) (domain.Tenant, error) {
	return scanTenant(s.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = ?`, id,
	))
}

func (s *Store) GetTenantByEmail(ctx context.Context, email string) (domain.Tenant, error) {
	return scanTenant(s.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE email = ? ORDER BY created_at LIMIT 1`, email,
	))
}

// GetUnit reads a unit including its cached occupancy fields.
func (s *Store) GetUnit(ctx context.Context, id string) (domain.Unit, error) {
	return getUnit(ctx, s.db, id)
}

// --- Registration ---

// CreateProperty registers a property.
func (s *Store) CreateProperty(ctx context.Context, p domain.Property) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO properties (id, owner_id, name) VALUES (?, ?, ?)`,
		p.ID, p.OwnerID, p.Name,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("property %q: %w", p.ID, domain.ErrConflict)
		}
		return fmt.Errorf("inserting property: %w", err)
	}
	return nil
}

// GrantAccess lets userID manage propertyID in addition to its owner.
func (s *Store) GrantAccess(ctx context.Context, propertyID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO property_access (property_id, user_id) VALUES (?, ?)
		 ON CONFLICT (property_id, user_id) DO NOTHING`,
		propertyID, userID,
	)
	if err != nil {
		return fmt.Errorf("granting property access: %w", err)
	}
	return nil
}

// CreateUnit registers a vacant unit.
func (s *Store) CreateUnit(ctx context.Context, u domain.Unit) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO units (id, property_id, label, status) VALUES (?, ?, ?, ?)`,
		u.ID, u.PropertyID, u.Label, string(domain.UnitVacant),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("unit %q: %w", u.ID, domain.ErrConflict)
		}
		return fmt.Errorf("inserting unit: %w", err)
	}
	return nil
}

// CreateTenant registers a tenant. Emails are unique per owner.
func (s *Store) CreateTenant(ctx context.Context, t domain.Tenant) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
		t.UpdatedAt = t.CreatedAt
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tenants (`+tenantColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, t.UserID, t.Email, t.Name, string(t.Status),
		t.CreatedAt.UTC().Format(timeFormat),
		t.UpdatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("tenant %q: %w", t.Email, domain.ErrConflict)
		}
		return fmt.Errorf("inserting tenant: %w", err)
	}
	return nil
}
