package order

import (
	"errors"
	"fmt"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// transitions is the full set of legal edges. delivered and cancelled are
// terminal: they have no entry here.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered, StatusCancelled},
}

func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled:
		return Status(s), true
	}
	return "", false
}

// ErrNoChange rejects a transition to the current status. Repeating a
// transition is not idempotent success here; the caller is told nothing moved.
var ErrNoChange = errors.New("order is already in the requested status")

type IllegalTransitionError struct {
	From Status
	To   Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal status transition %s -> %s", e.From, e.To)
}

// CanTransition returns nil when the edge is legal, ErrNoChange for a
// same-state request and an IllegalTransitionError for everything else.
func CanTransition(from, to Status) error {
	if from == to {
		return ErrNoChange
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return &IllegalTransitionError{From: from, To: to}
}
