package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dcastano/tienda-core/internal/catalog"
	"github.com/dcastano/tienda-core/internal/money"
)

// Service owns the buyer -> {product -> quantity} mapping. Every stock check
// goes back to the catalog at call time; nothing about a product is cached on
// the cart side.
type Service struct {
	repo    Repository
	catalog catalog.Repository
}

func NewService(repo Repository, cat catalog.Repository) *Service {
	return &Service{repo: repo, catalog: cat}
}

// Add merges repeated adds of the same product into one line. The combined
// quantity is checked against the stock figure fetched after the existing line
// is read, so the check never runs against a number already known stale.
func (s *Service) Add(ctx context.Context, buyerID, productID string, qty int) (*Line, error) {
	if buyerID == "" {
		return nil, ErrUnauthenticated
	}
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}

	existing, err := s.repo.GetByBuyerAndProduct(ctx, buyerID, productID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	newQty := qty
	if existing != nil {
		newQty += existing.Quantity
	}

	p, err := s.catalog.GetActive(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, ErrProductUnavailable
		}
		return nil, err
	}
	if newQty > p.Stock {
		return nil, &InsufficientStockError{Requested: newQty, Available: p.Stock}
	}

	if existing != nil {
		if err := s.repo.UpdateQuantity(ctx, existing.ID, newQty); err != nil {
			return nil, err
		}
		existing.Quantity = newQty
		return existing, nil
	}

	l := &Line{
		ID:        uuid.NewString(),
		BuyerID:   buyerID,
		ProductID: productID,
		Quantity:  qty,
	}
	if err := s.repo.Insert(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// List returns the priced snapshot, most-recently-added first. Lines whose
// product no longer resolves are dropped from the result, not reported.
func (s *Service) List(ctx context.Context, buyerID string) ([]PricedLine, error) {
	if buyerID == "" {
		return nil, ErrUnauthenticated
	}
	lines, err := s.repo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	out := make([]PricedLine, 0, len(lines))
	for _, l := range lines {
		p, err := s.catalog.GetActive(ctx, l.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				continue
			}
			return nil, err
		}
		sub, err := money.Subtotal(p.Price, l.Quantity)
		if err != nil {
			return nil, err
		}
		out = append(out, PricedLine{
			Line:        l,
			ProductName: p.Name,
			UnitPrice:   p.Price,
			Stock:       p.Stock,
			Subtotal:    money.Format(sub),
		})
	}
	return out, nil
}

// Lines returns the raw lines without the product join. The order builder uses
// this to do its own validation instead of the drop-silently rendering rule.
func (s *Service) Lines(ctx context.Context, buyerID string) ([]Line, error) {
	return s.repo.ListByBuyer(ctx, buyerID)
}

func (s *Service) SetQuantity(ctx context.Context, buyerID, lineID string, qty int) (*Line, error) {
	if buyerID == "" {
		return nil, ErrUnauthenticated
	}
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}
	l, err := s.repo.GetByID(ctx, lineID)
	if err != nil {
		return nil, ErrNotFound
	}
	// not-owned looks exactly like not-found
	if l.BuyerID != buyerID {
		return nil, ErrNotFound
	}
	p, err := s.catalog.GetActive(ctx, l.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, ErrProductUnavailable
		}
		return nil, err
	}
	if qty > p.Stock {
		return nil, &InsufficientStockError{Requested: qty, Available: p.Stock}
	}
	if err := s.repo.UpdateQuantity(ctx, l.ID, qty); err != nil {
		return nil, err
	}
	l.Quantity = qty
	return l, nil
}

func (s *Service) Remove(ctx context.Context, buyerID, lineID string) error {
	if buyerID == "" {
		return ErrUnauthenticated
	}
	return s.repo.Delete(ctx, buyerID, lineID)
}

func (s *Service) RemoveMany(ctx context.Context, buyerID string, lineIDs []string) error {
	if buyerID == "" {
		return ErrUnauthenticated
	}
	if len(lineIDs) == 0 {
		return nil
	}
	return s.repo.DeleteMany(ctx, buyerID, lineIDs)
}

// Clear removes every line the buyer has. Used by checkout after an order is built.
func (s *Service) Clear(ctx context.Context, buyerID string) error {
	return s.repo.DeleteByBuyer(ctx, buyerID)
}

func (s *Service) Total(ctx context.Context, buyerID string) (*Summary, error) {
	priced, err := s.List(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	count := 0
	for _, pl := range priced {
		sub, err := money.Parse(pl.Subtotal)
		if err != nil {
			return nil, err
		}
		total = total.Add(sub)
		count += pl.Quantity
	}
	return &Summary{Subtotal: money.Format(total), ItemCount: count}, nil
}
