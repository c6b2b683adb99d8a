package order

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("order not found")
	ErrEmptyCart       = errors.New("cart is empty, nothing to order")
	ErrInvalidShipping = errors.New("recipient, phone, postal code and address are required")
	// ErrStatusConflict means a guarded status write matched no row: the order
	// changed under us between read and write.
	ErrStatusConflict = errors.New("order not in expected status")
)

// LineInvalidError aborts an order build on the first bad cart line.
type LineInvalidError struct {
	ProductID string
	Reason    string
}

func (e *LineInvalidError) Error() string {
	return fmt.Sprintf("cart line for product %s is invalid: %s", e.ProductID, e.Reason)
}

// ItemsPersistError is the recognized inconsistent outcome of checkout: the
// header was written but its items were not. It carries the order id so a
// human can reconcile; it is never retried automatically.
type ItemsPersistError struct {
	OrderID string
	Err     error
}

func (e *ItemsPersistError) Error() string {
	return fmt.Sprintf("order %s created but items failed to persist: %v", e.OrderID, e.Err)
}

func (e *ItemsPersistError) Unwrap() error { return e.Err }
