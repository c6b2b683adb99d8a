package order

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dcastano/tienda-core/internal/cart"
	"github.com/dcastano/tienda-core/internal/catalog"
	"github.com/dcastano/tienda-core/internal/money"
)

// CartSource is the slice of the cart the order builder needs: the raw lines
// and a way to clear them once the order stands.
type CartSource interface {
	Lines(ctx context.Context, buyerID string) ([]cart.Line, error)
	Clear(ctx context.Context, buyerID string) error
}

type Service struct {
	repo  Repository
	cart  CartSource
	stock catalog.Repository
}

func NewService(repo Repository, cartSrc CartSource, stock catalog.Repository) *Service {
	return &Service{repo: repo, cart: cartSrc, stock: stock}
}

// priced pairs a cart line with its purchase-time product snapshot.
type priced struct {
	line cart.Line
	prod *catalog.Product
}

// Build runs the checkout sequence: load cart, validate lines, reserve stock,
// write header, write items, clear cart. There is no transaction wrapping the
// writes; each step that can leave partial state has an explicit compensation
// or a named error so the caller can tell "nothing happened" apart from
// "reconcile manually".
func (s *Service) Build(ctx context.Context, buyerID string, ship ShippingAddress, note string) (*Order, error) {
	if ship.Recipient == "" || ship.Phone == "" || ship.PostalCode == "" || ship.Address1 == "" {
		return nil, ErrInvalidShipping
	}

	lines, err := s.cart.Lines(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	// Validation is advisory; the conditional decrement in reserve is what
	// actually holds. When reserve loses a race it gets one re-validation
	// against fresh stock before the build fails.
	var snap []priced
	for attempt := 0; ; attempt++ {
		snap, err = s.resolve(ctx, lines)
		if err != nil {
			return nil, err
		}
		shortID, err := s.reserve(ctx, snap)
		if err != nil {
			return nil, err
		}
		if shortID == "" {
			break
		}
		if attempt == 1 {
			return nil, &LineInvalidError{ProductID: shortID, Reason: "insufficient stock"}
		}
	}

	total := decimal.Zero
	for _, pl := range snap {
		sub, err := money.Subtotal(pl.prod.Price, pl.line.Quantity)
		if err != nil {
			s.release(ctx, snap)
			return nil, err
		}
		total = total.Add(sub)
	}

	o := &Order{
		ID:       uuid.NewString(),
		BuyerID:  buyerID,
		Total:    money.Format(total),
		Status:   StatusPending,
		Shipping: ship,
		Note:     note,
	}
	if err := s.repo.InsertHeader(ctx, o); err != nil {
		s.release(ctx, snap)
		return nil, err
	}

	items := make([]Item, 0, len(snap))
	for _, pl := range snap {
		items = append(items, Item{
			ID:          uuid.NewString(),
			OrderID:     o.ID,
			ProductID:   pl.prod.ID,
			ProductName: pl.prod.Name,
			Quantity:    pl.line.Quantity,
			UnitPrice:   pl.prod.Price,
		})
	}
	if err := s.repo.InsertItems(ctx, items); err != nil {
		log.Printf("[order] items persist failed order=%s: %v", o.ID, err)
		if derr := s.repo.DeleteHeader(ctx, o.ID); derr != nil {
			log.Printf("[order] compensating header delete failed order=%s: %v", o.ID, derr)
		}
		s.release(ctx, snap)
		return nil, &ItemsPersistError{OrderID: o.ID, Err: err}
	}

	// The order stands from here on. A failed cart clear leaves stale lines
	// for the buyer to remove; it does not fail the checkout.
	if err := s.cart.Clear(ctx, buyerID); err != nil {
		log.Printf("[order] cart clear failed buyer=%s order=%s: %v", buyerID, o.ID, err)
	}
	return o, nil
}

func (s *Service) resolve(ctx context.Context, lines []cart.Line) ([]priced, error) {
	out := make([]priced, 0, len(lines))
	for _, l := range lines {
		p, err := s.stock.GetActive(ctx, l.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return nil, &LineInvalidError{ProductID: l.ProductID, Reason: "product no longer available"}
			}
			return nil, err
		}
		if l.Quantity > p.Stock {
			return nil, &LineInvalidError{
				ProductID: l.ProductID,
				Reason:    fmt.Sprintf("insufficient stock: requested %d, available %d", l.Quantity, p.Stock),
			}
		}
		out = append(out, priced{line: l, prod: p})
	}
	return out, nil
}

// reserve decrements stock for every line, or for none: when one conditional
// update misses, the ones already taken are put back. The id of the short
// product is returned so the caller can re-validate.
func (s *Service) reserve(ctx context.Context, snap []priced) (string, error) {
	for i, pl := range snap {
		ok, err := s.stock.Reserve(ctx, pl.prod.ID, pl.line.Quantity)
		if err != nil {
			s.release(ctx, snap[:i])
			return "", err
		}
		if !ok {
			s.release(ctx, snap[:i])
			return pl.prod.ID, nil
		}
	}
	return "", nil
}

func (s *Service) release(ctx context.Context, snap []priced) {
	for _, pl := range snap {
		if err := s.stock.Release(ctx, pl.prod.ID, pl.line.Quantity); err != nil {
			log.Printf("[order] stock release failed product=%s qty=%d: %v", pl.prod.ID, pl.line.Quantity, err)
		}
	}
}

func (s *Service) Get(ctx context.Context, buyerID, id string) (*Order, []Item, error) {
	o, err := s.repo.GetForBuyer(ctx, id, buyerID)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.repo.GetItems(ctx, o.ID)
	if err != nil {
		return nil, nil, err
	}
	return o, items, nil
}

func (s *Service) List(ctx context.Context, buyerID string, status Status, limit, offset int) ([]Order, error) {
	return s.repo.ListByBuyer(ctx, buyerID, status, limit, offset)
}

// Transition moves an order along the status machine. Entering cancelled puts
// the ordered units back on the shelf; a failed restock is logged, never fatal.
func (s *Service) Transition(ctx context.Context, buyerID, id string, to Status) (*Order, error) {
	o, err := s.repo.GetForBuyer(ctx, id, buyerID)
	if err != nil {
		return nil, err
	}
	if err := CanTransition(o.Status, to); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, buyerID, o.Status, to); err != nil {
		return nil, err
	}
	if to == StatusCancelled {
		s.Restock(ctx, id)
	}
	o.Status = to
	return o, nil
}

// Restock returns an order's quantities to the catalog after cancellation.
func (s *Service) Restock(ctx context.Context, orderID string) {
	items, err := s.repo.GetItems(ctx, orderID)
	if err != nil {
		log.Printf("[order] restock: loading items failed order=%s: %v", orderID, err)
		return
	}
	for _, it := range items {
		if err := s.stock.Release(ctx, it.ProductID, it.Quantity); err != nil {
			log.Printf("[order] restock failed order=%s product=%s qty=%d: %v", orderID, it.ProductID, it.Quantity, err)
		}
	}
}
