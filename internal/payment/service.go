package payment

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/dcastano/tienda-core/internal/money"
	"github.com/dcastano/tienda-core/internal/order"
)

const statusSuccess = "success"

// Restocker puts a cancelled order's units back on the shelf.
type Restocker interface {
	Restock(ctx context.Context, orderID string)
}

// Service reconciles orders against the external gateway. It never trusts the
// caller's amount and never trusts the gateway to catch a forged one.
type Service struct {
	orders  order.Repository
	store   Store
	gateway Gateway
	restock Restocker
}

func NewService(orders order.Repository, store Store, gw Gateway, restock Restocker) *Service {
	return &Service{orders: orders, store: store, gateway: gw, restock: restock}
}

// Initiate hands back the order's id and frozen amount for the client-side
// gateway leg. It does not contact the gateway itself.
func (s *Service) Initiate(ctx context.Context, buyerID, orderID string) (*Initiation, error) {
	o, err := s.orders.GetForBuyer(ctx, orderID, buyerID)
	if err != nil {
		return nil, err
	}
	if o.PaymentStatus == statusSuccess {
		return nil, ErrAlreadyPaid
	}
	if o.Status != order.StatusPending {
		return nil, &NotPayableError{Status: o.Status}
	}
	return &Initiation{OrderID: o.ID, Amount: o.Total}, nil
}

// Confirm checks the reported amount against the order before any network
// call, authorizes the charge at the gateway, then writes the payment row and
// the guarded pending->confirmed order update. A failure after the gateway
// said yes comes back as PersistFailedError, never as a rejection.
func (s *Service) Confirm(ctx context.Context, buyerID, paymentKey, orderID, reportedAmount string) (*order.Order, error) {
	o, err := s.orders.GetForBuyer(ctx, orderID, buyerID)
	if err != nil {
		return nil, err
	}
	if o.PaymentStatus == statusSuccess {
		return nil, ErrAlreadyPaid
	}
	if o.Status != order.StatusPending {
		return nil, &NotPayableError{Status: o.Status}
	}
	if !money.Equal(o.Total, reportedAmount) {
		return nil, &AmountMismatchError{Expected: o.Total, Reported: reportedAmount}
	}

	res, err := s.gateway.Authorize(ctx, paymentKey, o.ID, o.Total)
	if err != nil {
		// rejection or timeout: no local mutation happened
		return nil, err
	}

	// The charge is authorized from here on. Everything below must surface
	// as PersistFailed so an operator knows money moved without local state.
	if err := s.store.InsertPayment(ctx, paymentKey, o.ID, o.Total); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			// this authorization already produced its one local effect
			return nil, ErrAlreadyPaid
		}
		log.Printf("[payment] ledger insert failed order=%s key=%s: %v", o.ID, paymentKey, err)
		return nil, &PersistFailedError{OrderID: o.ID, PaymentKey: paymentKey, Err: err}
	}

	rec := Record{
		Amount:     res.Amount,
		Method:     res.Method,
		PaymentKey: paymentKey,
		OrderID:    o.ID,
		ReceiptURL: res.ReceiptURL,
		Fee:        res.Fee,
	}
	if rec.Amount == "" {
		rec.Amount = o.Total
	}
	info, err := json.Marshal(rec)
	if err != nil {
		return nil, &PersistFailedError{OrderID: o.ID, PaymentKey: paymentKey, Err: err}
	}

	if err := s.orders.MarkPaid(ctx, o.ID, buyerID, paymentKey, res.Method, info); err != nil {
		log.Printf("[payment] order update failed after authorization order=%s key=%s: %v", o.ID, paymentKey, err)
		return nil, &PersistFailedError{OrderID: o.ID, PaymentKey: paymentKey, Err: err}
	}

	now := time.Now()
	o.Status = order.StatusConfirmed
	o.PaymentKey = paymentKey
	o.PaymentMethod = res.Method
	o.PaymentStatus = statusSuccess
	o.PaidAt = &now
	o.PaymentInfo = info
	return o, nil
}

// Cancel flips the order to cancelled locally and appends a cancellation to
// the payment record. It does not instruct the gateway to reverse the charge;
// refunds are a separate manual process.
func (s *Service) Cancel(ctx context.Context, buyerID, orderID, reason string) (*order.Order, error) {
	o, err := s.orders.GetForBuyer(ctx, orderID, buyerID)
	if err != nil {
		return nil, err
	}
	if o.Status != order.StatusPending && o.Status != order.StatusConfirmed {
		// post-shipment cancellation routes through returns, not here
		return nil, &NotPayableError{Status: o.Status}
	}

	var info []byte
	if len(o.PaymentInfo) > 0 {
		var rec Record
		if err := json.Unmarshal(o.PaymentInfo, &rec); err == nil {
			rec.Cancellations = append(rec.Cancellations, Cancellation{
				Reason:      reason,
				CancelledAt: time.Now(),
			})
			if b, err := json.Marshal(rec); err == nil {
				info = b
			}
		}
	}

	if err := s.orders.CancelWithPayment(ctx, o.ID, buyerID, o.Status, info); err != nil {
		return nil, err
	}
	s.restock.Restock(ctx, o.ID)

	o.Status = order.StatusCancelled
	o.PaymentStatus = "cancelled"
	if info != nil {
		o.PaymentInfo = info
	}
	return o, nil
}
