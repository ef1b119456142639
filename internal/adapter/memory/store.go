// Package memory is an in-process implementation of every storage port.
//
// It has no native transactions. A unit of work records a compensating
// action for each write and replays them in reverse when the work fails,
// which is the same saga the engine would need over any store lacking
// multi-statement commits.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/neomorfeo/tenancyd/internal/domain"
)

// Compile-time checks.
var (
	_ domain.UnitOfWork        = (*Store)(nil)
	_ domain.PropertyDirectory = (*Store)(nil)
	_ domain.TenantDirectory   = (*Store)(nil)
)

// Store holds all records in maps guarded by one mutex. A unit of work holds
// the mutex for its whole duration.
type Store struct {
	mu         sync.Mutex
	properties map[string]domain.Property
	access     map[string]map[string]bool
	units      map[string]domain.Unit
	tenants    map[string]domain.Tenant
	leases     map[string]domain.Lease
	refunds    map[string]domain.RefundRecord
	events     []domain.LeaseEvent
	faults     map[string]error
	logger     *slog.Logger
}

// New returns an empty store.
func New() *Store {
	return &Store{
		properties: make(map[string]domain.Property),
		access:     make(map[string]map[string]bool),
		units:      make(map[string]domain.Unit),
		tenants:    make(map[string]domain.Tenant),
		leases:     make(map[string]domain.Lease),
		refunds:    make(map[string]domain.RefundRecord),
		faults:     make(map[string]error),
		logger:     slog.Default(),
	}
}

// txn is the compensation log of one unit of work.
type txn struct {
	undo   []func() error
	events []domain.LeaseEvent
}

func (t *txn) record(fn func() error) {
	if t != nil {
		t.undo = append(t.undo, fn)
	}
}

// Do runs fn with stores bound to a compensation log. Events published
// through the stores are only released when fn succeeds.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, st domain.Stores) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txn{}
	if err := fn(ctx, s.stores(tx)); err != nil {
		s.compensate(ctx, tx, err)
		return err
	}
	s.events = append(s.events, tx.events...)
	return nil
}

func (s *Store) compensate(ctx context.Context, tx *txn, cause error) {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		if err := tx.undo[i](); err != nil {
			s.logger.ErrorContext(ctx, "compensation failed; store may be inconsistent",
				"step", i, "cause", cause, "error", err)
		}
	}
}

func (s *Store) stores(tx *txn) domain.Stores {
	return domain.Stores{
		Leases:  &leaseRepo{s: s, tx: tx},
		Units:   &unitRepo{s: s, tx: tx},
		Tenants: &tenantRepo{s: s, tx: tx},
		Refunds: &refundRepo{s: s, tx: tx},
		Events:  &publisher{s: s, tx: tx},
	}
}

// Leases returns a repository for reads outside a unit of work.
func (s *Store) Leases() domain.LeaseRepository { return &leaseRepo{s: s} }

// Refunds returns a repository for reads outside a unit of work.
func (s *Store) Refunds() domain.RefundRepository { return &refundRepo{s: s} }

// Events returns a copy of all committed events.
func (s *Store) Events() []domain.LeaseEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.LeaseEvent(nil), s.events...)
}

// InjectFault makes the next call to op (e.g. "units.SetOccupancy") fail
// with err.
func (s *Store) InjectFault(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

// fault consumes a pending injected fault. Callers hold s.mu.
func (s *Store) fault(op string) error {
	err, ok := s.faults[op]
	if !ok {
		return nil
	}
	delete(s.faults, op)
	return err
}

// locked runs fn under the store mutex unless the caller is inside a unit
// of work, which already holds it.
func (s *Store) locked(tx *txn, fn func() error) error {
	if tx == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn()
}

// --- Seeding ---

// AddProperty stores a property.
func (s *Store) AddProperty(p domain.Property) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.properties[p.ID] = p
}

// GrantAccess lets userID manage propertyID in addition to its owner.
func (s *Store) GrantAccess(propertyID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.access[propertyID] == nil {
		s.access[propertyID] = make(map[string]bool)
	}
	s.access[propertyID][userID] = true
}

// AddUnit stores a unit.
func (s *Store) AddUnit(u domain.Unit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.Status == "" {
		u.Status = domain.UnitVacant
	}
	s.units[u.ID] = u
}

// AddTenant stores a tenant.
func (s *Store) AddTenant(t domain.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[t.ID] = t
}

// AddLease stores a lease directly, bypassing every rule. Tests use it to
// build corrupted states.
func (s *Store) AddLease(l domain.Lease) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leases[l.ID] = l
}

// Unit returns a unit by id.
func (s *Store) Unit(id string) (domain.Unit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.units[id]
	return u, ok
}

// --- PropertyDirectory ---

func (s *Store) GetPropertyOwner(_ context.Context, propertyID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.properties[propertyID]
	if !ok {
		return "", domain.ErrPropertyNotFound
	}
	return p.OwnerID, nil
}

func (s *Store) GetParentPropertyForUnit(_ context.Context, unitID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.units[unitID]
	if !ok {
		return "", domain.ErrUnitNotFound
	}
	return u.PropertyID, nil
}

func (s *Store) CheckPropertyAccess(_ context.Context, propertyID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.properties[propertyID]
	if !ok {
		return false, domain.ErrPropertyNotFound
	}
	return p.OwnerID == userID || s.access[propertyID][userID], nil
}

func (s *Store) ListOwnedProperties(_ context.Context, ownerID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, p := range s.properties {
		if p.OwnerID == ownerID {
			ids = append(ids, p.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// --- TenantDirectory ---

func (s *Store) GetTenantByID(_ context.Context, id string) (domain.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return domain.Tenant{}, domain.ErrTenantNotFound
	}
	return t, nil
}

func (s *Store) GetTenantByEmail(_ context.Context, email string) (domain.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tenants {
		if strings.EqualFold(t.Email, email) {
			return t, nil
		}
	}
	return domain.Tenant{}, domain.ErrTenantNotFound
}

// --- Leases ---

type leaseRepo struct {
	s  *Store
	tx *txn
}

func (r *leaseRepo) Insert(_ context.Context, l domain.Lease) error {
	return r.s.locked(r.tx, func() error {
		if err := r.s.fault("leases.Insert"); err != nil {
			return err
		}
		if _, exists := r.s.leases[l.ID]; exists {
			return fmt.Errorf("lease %q already exists", l.ID)
		}
		r.s.leases[l.ID] = l
		r.tx.record(func() error {
			delete(r.s.leases, l.ID)
			return nil
		})
		return nil
	})
}

func (r *leaseRepo) GetByID(_ context.Context, id string) (domain.Lease, error) {
	var out domain.Lease
	err := r.s.locked(r.tx, func() error {
		l, ok := r.s.leases[id]
		if !ok {
			return domain.ErrLeaseNotFound
		}
		out = l
		return nil
	})
	return out, err
}

func (r *leaseRepo) GetByTenant(_ context.Context, tenantID string) ([]domain.Lease, error) {
	return r.filter(func(l domain.Lease) bool { return l.TenantID == tenantID })
}

func (r *leaseRepo) GetByUnit(_ context.Context, unitID string) ([]domain.Lease, error) {
	return r.filter(func(l domain.Lease) bool { return l.UnitID == unitID })
}

func (r *leaseRepo) GetByPropertyWithinDateRange(_ context.Context, propertyID string, from, to time.Time) ([]domain.Lease, error) {
	from, to = domain.Day(from), domain.Day(to)
	return r.filter(func(l domain.Lease) bool {
		if l.PropertyID != propertyID || l.EndDate == nil {
			return false
		}
		end := domain.Day(*l.EndDate)
		return !end.Before(from) && !end.After(to)
	})
}

func (r *leaseRepo) filter(keep func(domain.Lease) bool) ([]domain.Lease, error) {
	var out []domain.Lease
	err := r.s.locked(r.tx, func() error {
		for _, l := range r.s.leases {
			if keep(l) {
				out = append(out, l)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (r *leaseRepo) Update(_ context.Context, id string, u domain.LeaseUpdate) error {
	return r.s.locked(r.tx, func() error {
		if err := r.s.fault("leases.Update"); err != nil {
			return err
		}
		before, ok := r.s.leases[id]
		if !ok {
			return domain.ErrLeaseNotFound
		}
		r.s.leases[id] = u.Apply(before)
		r.tx.record(func() error {
			r.s.leases[id] = before
			return nil
		})
		return nil
	})
}

// --- Units ---

type unitRepo struct {
	s  *Store
	tx *txn
}

func (r *unitRepo) GetUnit(_ context.Context, id string) (domain.Unit, error) {
	var out domain.Unit
	err := r.s.locked(r.tx, func() error {
		u, ok := r.s.units[id]
		if !ok {
			return domain.ErrUnitNotFound
		}
		out = u
		return nil
	})
	return out, err
}

func (r *unitRepo) SetOccupancy(_ context.Context, unitID string, status domain.UnitStatus, tenantID string) error {
	return r.s.locked(r.tx, func() error {
		if err := r.s.fault("units.SetOccupancy"); err != nil {
			return err
		}
		before, ok := r.s.units[unitID]
		if !ok {
			return domain.ErrUnitNotFound
		}
		after := before
		after.Status, after.CurrentTenantID = status, tenantID
		r.s.units[unitID] = after
		r.tx.record(func() error {
			r.s.units[unitID] = before
			return nil
		})
		return nil
	})
}

// --- Tenants ---

type tenantRepo struct {
	s  *Store
	tx *txn
}

func (r *tenantRepo) GetByID(_ context.Context, id string) (domain.Tenant, error) {
	var out domain.Tenant
	err := r.s.locked(r.tx, func() error {
		t, ok := r.s.tenants[id]
		if !ok {
			return domain.ErrTenantNotFound
		}
		out = t
		return nil
	})
	return out, err
}

func (r *tenantRepo) UpdateStatus(_ context.Context, id string, status domain.TenantStatus) error {
	return r.s.locked(r.tx, func() error {
		if err := r.s.fault("tenants.UpdateStatus"); err != nil {
			return err
		}
		before, ok := r.s.tenants[id]
		if !ok {
			return domain.ErrTenantNotFound
		}
		after := before
		after.Status = status
		after.UpdatedAt = time.Now().UTC()
		r.s.tenants[id] = after
		r.tx.record(func() error {
			r.s.tenants[id] = before
			return nil
		})
		return nil
	})
}

// --- Refunds ---

type refundRepo struct {
	s  *Store
	tx *txn
}

func (r *refundRepo) Insert(_ context.Context, rf domain.RefundRecord) (bool, error) {
	inserted := false
	err := r.s.locked(r.tx, func() error {
		if err := r.s.fault("refunds.Insert"); err != nil {
			return err
		}
		if _, exists := r.s.refunds[rf.Reference]; exists {
			return nil
		}
		r.s.refunds[rf.Reference] = rf
		inserted = true
		r.tx.record(func() error {
			delete(r.s.refunds, rf.Reference)
			return nil
		})
		return nil
	})
	return inserted, err
}

func (r *refundRepo) GetByReference(_ context.Context, reference string) (domain.RefundRecord, error) {
	var out domain.RefundRecord
	err := r.s.locked(r.tx, func() error {
		rf, ok := r.s.refunds[reference]
		if !ok {
			return domain.ErrRefundNotFound
		}
		out = rf
		return nil
	})
	return out, err
}

func (r *refundRepo) ListByTenant(_ context.Context, tenantID string) ([]domain.RefundRecord, error) {
	var out []domain.RefundRecord
	err := r.s.locked(r.tx, func() error {
		for _, rf := range r.s.refunds {
			if rf.TenantID == tenantID {
				out = append(out, rf)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Reference < out[j].Reference })
	return out, err
}

// --- Events ---

type publisher struct {
	s  *Store
	tx *txn
}

func (p *publisher) Publish(_ context.Context, e domain.LeaseEvent) error {
	if p.tx == nil {
		p.s.mu.Lock()
		defer p.s.mu.Unlock()
		p.s.events = append(p.s.events, e)
		return nil
	}
	if err := p.s.fault("events.Publish"); err != nil {
		return err
	}
	p.tx.events = append(p.tx.events, e)
	return nil
}
