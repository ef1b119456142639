// Package fsm validates tenant status changes with looplab/fsm.
package fsm

import (
	"context"
	"fmt"
	"slices"

	loopfsm "github.com/looplab/fsm"

	"github.com/neomorfeo/tenancyd/internal/domain"
)

var _ domain.TransitionValidator = (*Validator)(nil)

// Validator checks status changes against domain.Transitions. looplab/fsm
// machines hold their own state, so a fresh one is seeded with the stored
// status on every call and thrown away afterwards.
type Validator struct {
	events []loopfsm.EventDesc
}

// New builds a validator from domain.Transitions. looplab/fsm keys its
// table by (event, source), so each transition becomes its own EventDesc.
func New() *Validator {
	events := make([]loopfsm.EventDesc, 0, len(domain.Transitions))
	for _, t := range domain.Transitions {
		events = append(events, loopfsm.EventDesc{
			Name: string(t.Event),
			Src:  []string{string(t.Src)},
			Dst:  string(t.Dst),
		})
	}
	return &Validator{events: events}
}

// Apply returns the status reached by firing event from current, or a
// *domain.TransitionError when the table has no such edge.
func (v *Validator) Apply(ctx context.Context, current domain.TenantStatus, event domain.Event) (domain.TenantStatus, error) {
	machine := v.machine(current)
	if !machine.Can(string(event)) {
		return "", &domain.TransitionError{Event: event, Current: current}
	}
	if err := machine.Event(ctx, string(event)); err != nil {
		return "", fmt.Errorf("tenant status %s on %s: %w", current, event, err)
	}
	return domain.TenantStatus(machine.Current()), nil
}

// Allowed lists the events that may fire from current, sorted by name.
func (v *Validator) Allowed(current domain.TenantStatus) []domain.Event {
	names := v.machine(current).AvailableTransitions()
	slices.Sort(names)
	out := make([]domain.Event, len(names))
	for i, n := range names {
		out[i] = domain.Event(n)
	}
	return out
}

func (v *Validator) machine(current domain.TenantStatus) *loopfsm.FSM {
	return loopfsm.NewFSM(string(current), v.events, nil)
}
