package billing

import (
	"fmt"

	"github.com/odyssey-erp/gymsuite/internal/shared"
)

// Status is the lifecycle state of a membership.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// ErrInvalidTransition is returned for status changes outside the machine.
var ErrInvalidTransition = fmt.Errorf("%w: invalid status transition", shared.ErrValidation)

// ErrShiftFull rejects a membership for a shift at capacity.
var ErrShiftFull = fmt.Errorf("%w: shift is at full capacity", shared.ErrBusinessRule)

var transitions = map[Status][]Status{
	StatusDraft:     {StatusActive},
	StatusActive:    {StatusSuspended, StatusExpired, StatusCancelled},
	StatusSuspended: {StatusActive, StatusCancelled},
	StatusExpired:   {StatusActive},
}

// Valid reports whether the status is known.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusSuspended, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// Occupying reports whether a membership in this status holds a shift slot.
func (s Status) Occupying() bool {
	return s != StatusExpired && s != StatusCancelled
}

// CanTransition reports whether from → to is allowed.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns ErrInvalidTransition when from → to is not allowed.
func ValidateTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// CheckCapacity enforces the shift limit. Zero capacity means unlimited.
func CheckCapacity(capacity, occupied int) error {
	if capacity > 0 && occupied >= capacity {
		return fmt.Errorf("%w (%d/%d)", ErrShiftFull, occupied, capacity)
	}
	return nil
}
