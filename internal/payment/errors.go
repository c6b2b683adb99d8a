package payment

import (
	"errors"
	"fmt"

	"github.com/dcastano/tienda-core/internal/order"
)

var (
	ErrAlreadyPaid = errors.New("order is already paid")
)

// NotPayableError rejects a payment operation for an order whose status does
// not admit it, and names that status.
type NotPayableError struct {
	Status order.Status
}

func (e *NotPayableError) Error() string {
	return fmt.Sprintf("order in status %q is not payable", e.Status)
}

// AmountMismatchError is raised before any gateway call when the reported
// amount differs from what the order froze at build time.
type AmountMismatchError struct {
	Expected string
	Reported string
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("payment amount mismatch: expected %s, reported %s", e.Expected, e.Reported)
}

// PersistFailedError means the gateway authorized the charge but the local
// write did not land. Money has moved and local state has not; this is
// surfaced with both identifiers for manual reconciliation and must never be
// retried automatically.
type PersistFailedError struct {
	OrderID    string
	PaymentKey string
	Err        error
}

func (e *PersistFailedError) Error() string {
	return fmt.Sprintf("payment authorized but local persist failed (order=%s key=%s): %v",
		e.OrderID, e.PaymentKey, e.Err)
}

func (e *PersistFailedError) Unwrap() error { return e.Err }
