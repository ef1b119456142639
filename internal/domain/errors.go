package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error kinds. Every business-rule error matches exactly one of these with
// errors.Is; anything that matches none is an internal failure.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
)

// Sentinel errors for missing records.
var (
	ErrLeaseNotFound    = fmt.Errorf("lease %w", ErrNotFound)
	ErrUnitNotFound     = fmt.Errorf("unit %w", ErrNotFound)
	ErrTenantNotFound   = fmt.Errorf("tenant %w", ErrNotFound)
	ErrPropertyNotFound = fmt.Errorf("property %w", ErrNotFound)
	ErrRefundNotFound   = fmt.Errorf("refund %w", ErrNotFound)
)

// IsBusinessError reports whether err is one of the typed rule violations
// that callers are expected to handle.
func IsBusinessError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrUnauthorized)
}

// UnitOccupiedError is returned when a lease would overlap another tenant's
// lease on the same unit.
type UnitOccupiedError struct {
	UnitID   string
	LeaseID  string
	TenantID string
}

func (e *UnitOccupiedError) Error() string {
	return fmt.Sprintf("unit %q is occupied by tenant %q (lease %q)", e.UnitID, e.TenantID, e.LeaseID)
}

func (e *UnitOccupiedError) Is(target error) bool { return target == ErrConflict }

// DuplicateAssignmentError is returned when the tenant already holds an
// overlapping lease on the same unit.
type DuplicateAssignmentError struct {
	TenantID string
	UnitID   string
	LeaseID  string
}

func (e *DuplicateAssignmentError) Error() string {
	return fmt.Sprintf("tenant %q already holds lease %q on unit %q", e.TenantID, e.LeaseID, e.UnitID)
}

func (e *DuplicateAssignmentError) Is(target error) bool { return target == ErrConflict }

// AlreadyTerminatedError is returned when a lease has already been closed
// at or before the requested termination date.
type AlreadyTerminatedError struct {
	LeaseID string
	EndDate time.Time
}

func (e *AlreadyTerminatedError) Error() string {
	return fmt.Sprintf("lease %q already ends on %s", e.LeaseID, e.EndDate.Format(DateLayout))
}

func (e *AlreadyTerminatedError) Is(target error) bool { return target == ErrConflict }

// TenantInactiveError is returned when a lease is requested for a tenant an
// operator has deactivated.
type TenantInactiveError struct {
	TenantID string
}

func (e *TenantInactiveError) Error() string {
	return fmt.Sprintf("tenant %q is inactive", e.TenantID)
}

func (e *TenantInactiveError) Is(target error) bool { return target == ErrConflict }

// TransitionError is returned when a status transition is not allowed.
type TransitionError struct {
	Event   Event
	Current TenantStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from state %q", e.Event, e.Current)
}

func (e *TransitionError) Is(target error) bool { return target == ErrConflict }

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// UnauthorizedError is returned when the caller does not own the resource,
// e.g. Resource "property p-1".
type UnauthorizedError struct {
	Resource string
	ActorID  string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("user %q has no access to %s", e.ActorID, e.Resource)
}

func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }

// OccupancyIntegrityError means storage holds more than one lease active on
// the same unit at the same time. It is a data fault, not a business outcome.
type OccupancyIntegrityError struct {
	UnitID   string
	LeaseIDs []string
}

func (e *OccupancyIntegrityError) Error() string {
	return fmt.Sprintf("unit %q has %d overlapping leases: %s", e.UnitID, len(e.LeaseIDs), strings.Join(e.LeaseIDs, ", "))
}
