package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcastano/tienda-core/internal/order"
)

type stubOrders struct {
	o            *order.Order
	markPaidErr  error
	markedPaid   bool
	cancelled    bool
	lastInfo     []byte
	lastKey      string
	lastMethod   string
}

func (s *stubOrders) GetForBuyer(_ context.Context, id, buyerID string) (*order.Order, error) {
	if s.o == nil || s.o.ID != id || s.o.BuyerID != buyerID {
		return nil, order.ErrNotFound
	}
	cp := *s.o
	return &cp, nil
}

func (s *stubOrders) MarkPaid(_ context.Context, id, buyerID, paymentKey, method string, info []byte) error {
	if s.markPaidErr != nil {
		return s.markPaidErr
	}
	if s.o == nil || s.o.ID != id || s.o.BuyerID != buyerID || s.o.Status != order.StatusPending {
		return order.ErrStatusConflict
	}
	s.markedPaid = true
	s.lastKey = paymentKey
	s.lastMethod = method
	s.lastInfo = info
	s.o.Status = order.StatusConfirmed
	s.o.PaymentStatus = "success"
	return nil
}

func (s *stubOrders) CancelWithPayment(_ context.Context, id, buyerID string, from order.Status, info []byte) error {
	if s.o == nil || s.o.ID != id || s.o.BuyerID != buyerID || s.o.Status != from {
		return order.ErrStatusConflict
	}
	s.cancelled = true
	s.lastInfo = info
	s.o.Status = order.StatusCancelled
	s.o.PaymentStatus = "cancelled"
	return nil
}

// the reconciler never touches the rest of the order surface
func (s *stubOrders) InsertHeader(context.Context, *order.Order) error { return fmt.Errorf("unused") }
func (s *stubOrders) InsertItems(context.Context, []order.Item) error  { return fmt.Errorf("unused") }
func (s *stubOrders) DeleteHeader(context.Context, string) error       { return fmt.Errorf("unused") }
func (s *stubOrders) ListByBuyer(context.Context, string, order.Status, int, int) ([]order.Order, error) {
	return nil, fmt.Errorf("unused")
}
func (s *stubOrders) GetItems(context.Context, string) ([]order.Item, error) {
	return nil, fmt.Errorf("unused")
}
func (s *stubOrders) UpdateStatus(context.Context, string, string, order.Status, order.Status) error {
	return fmt.Errorf("unused")
}

type fakeGateway struct {
	res   *AuthorizeResult
	err   error
	calls int
}

func (f *fakeGateway) Authorize(_ context.Context, paymentKey, orderID, amount string) (*AuthorizeResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.res != nil {
		return f.res, nil
	}
	return &AuthorizeResult{
		PaymentKey: paymentKey,
		OrderID:    orderID,
		Method:     "card",
		Amount:     amount,
		ReceiptURL: "https://receipts.example.com/" + paymentKey,
		Fee:        "10.00",
	}, nil
}

type stubStore struct {
	keys      map[string]bool
	insertErr error
}

func (s *stubStore) InsertPayment(_ context.Context, paymentKey, _, _ string) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	if s.keys == nil {
		s.keys = map[string]bool{}
	}
	if s.keys[paymentKey] {
		return ErrDuplicateKey
	}
	s.keys[paymentKey] = true
	return nil
}

type recordingRestocker struct {
	orders []string
}

func (r *recordingRestocker) Restock(_ context.Context, orderID string) {
	r.orders = append(r.orders, orderID)
}

func pendingOrder() *order.Order {
	return &order.Order{
		ID:      "ord_1",
		BuyerID: "buyer",
		Total:   "2500.00",
		Status:  order.StatusPending,
	}
}

func newFixture(o *order.Order) (*Service, *stubOrders, *fakeGateway, *stubStore, *recordingRestocker) {
	orders := &stubOrders{o: o}
	gw := &fakeGateway{}
	store := &stubStore{}
	rs := &recordingRestocker{}
	return NewService(orders, store, gw, rs), orders, gw, store, rs
}

func TestInitiate(t *testing.T) {
	svc, _, _, _, _ := newFixture(pendingOrder())

	init, err := svc.Initiate(context.Background(), "buyer", "ord_1")
	require.NoError(t, err)
	assert.Equal(t, "ord_1", init.OrderID)
	assert.Equal(t, "2500.00", init.Amount)
}

func TestInitiateOwnershipLooksLikeNotFound(t *testing.T) {
	svc, _, _, _, _ := newFixture(pendingOrder())
	_, err := svc.Initiate(context.Background(), "intruder", "ord_1")
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestInitiateAlreadyPaid(t *testing.T) {
	o := pendingOrder()
	o.Status = order.StatusConfirmed
	o.PaymentStatus = "success"
	svc, _, _, _, _ := newFixture(o)

	_, err := svc.Initiate(context.Background(), "buyer", "ord_1")
	assert.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestInitiateNotPayable(t *testing.T) {
	o := pendingOrder()
	o.Status = order.StatusShipped
	svc, _, _, _, _ := newFixture(o)

	_, err := svc.Initiate(context.Background(), "buyer", "ord_1")
	var np *NotPayableError
	require.True(t, errors.As(err, &np))
	assert.Equal(t, order.StatusShipped, np.Status)
}

func TestConfirmAmountMismatchNeverReachesGateway(t *testing.T) {
	svc, orders, gw, _, _ := newFixture(pendingOrder())

	_, err := svc.Confirm(context.Background(), "buyer", "pay_1", "ord_1", "2400.00")
	var am *AmountMismatchError
	require.True(t, errors.As(err, &am))
	assert.Equal(t, "2500.00", am.Expected)
	assert.Equal(t, "2400.00", am.Reported)
	assert.Equal(t, 0, gw.calls, "the gateway is never asked about a forged amount")
	assert.Equal(t, order.StatusPending, orders.o.Status, "the order is untouched")
}

func TestConfirmAcceptsEquivalentAmountForms(t *testing.T) {
	svc, _, gw, _, _ := newFixture(pendingOrder())

	_, err := svc.Confirm(context.Background(), "buyer", "pay_1", "ord_1", "2500")
	require.NoError(t, err)
	assert.Equal(t, 1, gw.calls)
}

func TestConfirmGatewayRejectedMakesNoMutation(t *testing.T) {
	svc, orders, gw, store, _ := newFixture(pendingOrder())
	gw.err = &RejectedError{Message: "card declined"}

	_, err := svc.Confirm(context.Background(), "buyer", "pay_1", "ord_1", "2500.00")
	var rej *RejectedError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, order.StatusPending, orders.o.Status)
	assert.Empty(t, store.keys)
}

func TestConfirmGatewayTimeoutIsDistinct(t *testing.T) {
	svc, orders, gw, _, _ := newFixture(pendingOrder())
	gw.err = ErrGatewayTimeout

	_, err := svc.Confirm(context.Background(), "buyer", "pay_1", "ord_1", "2500.00")
	assert.ErrorIs(t, err, ErrGatewayTimeout)
	var rej *RejectedError
	assert.False(t, errors.As(err, &rej))
	assert.Equal(t, order.StatusPending, orders.o.Status)
}

func TestConfirmSuccess(t *testing.T) {
	svc, orders, _, _, _ := newFixture(pendingOrder())

	o, err := svc.Confirm(context.Background(), "buyer", "pay_1", "ord_1", "2500.00")
	require.NoError(t, err)

	assert.Equal(t, order.StatusConfirmed, o.Status)
	assert.Equal(t, "success", o.PaymentStatus)
	assert.NotNil(t, o.PaidAt)
	assert.True(t, orders.markedPaid)
	assert.Equal(t, "pay_1", orders.lastKey)
	assert.Equal(t, "card", orders.lastMethod)

	var rec Record
	require.NoError(t, json.Unmarshal(orders.lastInfo, &rec))
	assert.Equal(t, "2500.00", rec.Amount)
	assert.Equal(t, "pay_1", rec.PaymentKey)
	assert.Equal(t, "10.00", rec.Fee)
	assert.NotEmpty(t, rec.ReceiptURL)
}

func TestConfirmDuplicateKeyMakesNoSecondEffect(t *testing.T) {
	svc, orders, gw, store, _ := newFixture(pendingOrder())
	store.keys = map[string]bool{"pay_1": true}

	_, err := svc.Confirm(context.Background(), "buyer", "pay_1", "ord_1", "2500.00")
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	assert.Equal(t, 1, gw.calls)
	assert.False(t, orders.markedPaid)
}

func TestConfirmPersistFailureAfterAuthorization(t *testing.T) {
	svc, orders, gw, _, _ := newFixture(pendingOrder())
	orders.markPaidErr = fmt.Errorf("store unavailable")

	_, err := svc.Confirm(context.Background(), "buyer", "pay_1", "ord_1", "2500.00")
	var pf *PersistFailedError
	require.True(t, errors.As(err, &pf), "money moved, local state did not: must be its own kind")
	assert.Equal(t, "ord_1", pf.OrderID)
	assert.Equal(t, "pay_1", pf.PaymentKey)
	assert.Equal(t, 1, gw.calls)

	var rej *RejectedError
	assert.False(t, errors.As(err, &rej), "never reported as a gateway rejection")
}

func TestConfirmNotPayableStatuses(t *testing.T) {
	for _, st := range []order.Status{order.StatusShipped, order.StatusDelivered, order.StatusCancelled} {
		o := pendingOrder()
		o.Status = st
		svc, _, gw, _, _ := newFixture(o)

		_, err := svc.Confirm(context.Background(), "buyer", "pay_1", "ord_1", "2500.00")
		var np *NotPayableError
		require.True(t, errors.As(err, &np), "status %s", st)
		assert.Equal(t, 0, gw.calls)
	}
}

func TestCancelPending(t *testing.T) {
	svc, orders, _, _, rs := newFixture(pendingOrder())

	o, err := svc.Cancel(context.Background(), "buyer", "ord_1", "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, o.Status)
	assert.Equal(t, "cancelled", o.PaymentStatus)
	assert.True(t, orders.cancelled)
	assert.Equal(t, []string{"ord_1"}, rs.orders, "cancelled units go back to stock")
}

func TestCancelConfirmedAppendsCancellation(t *testing.T) {
	o := pendingOrder()
	o.Status = order.StatusConfirmed
	prior, _ := json.Marshal(Record{
		Amount: "2500.00", Method: "card", PaymentKey: "pay_1", OrderID: "ord_1",
	})
	o.PaymentInfo = prior
	svc, orders, _, _, _ := newFixture(o)

	got, err := svc.Cancel(context.Background(), "buyer", "ord_1", "refund requested")
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, got.Status)

	var rec Record
	require.NoError(t, json.Unmarshal(orders.lastInfo, &rec))
	assert.Equal(t, "pay_1", rec.PaymentKey, "prior fields are kept, not overwritten")
	require.Len(t, rec.Cancellations, 1)
	assert.Equal(t, "refund requested", rec.Cancellations[0].Reason)
}

func TestCancelShippedIsRefused(t *testing.T) {
	o := pendingOrder()
	o.Status = order.StatusShipped
	svc, orders, _, _, rs := newFixture(o)

	_, err := svc.Cancel(context.Background(), "buyer", "ord_1", "")
	var np *NotPayableError
	require.True(t, errors.As(err, &np))
	assert.Equal(t, order.StatusShipped, np.Status)
	assert.False(t, orders.cancelled)
	assert.Empty(t, rs.orders)
}
