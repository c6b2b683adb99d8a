package cart

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("cart line not found")
)

type Repository interface {
	Insert(ctx context.Context, l *Line) error
	GetByID(ctx context.Context, id string) (*Line, error)
	GetByBuyerAndProduct(ctx context.Context, buyerID, productID string) (*Line, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]Line, error)
	UpdateQuantity(ctx context.Context, id string, qty int) error
	Delete(ctx context.Context, buyerID, id string) error
	DeleteMany(ctx context.Context, buyerID string, ids []string) error
	DeleteByBuyer(ctx context.Context, buyerID string) error
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Insert(ctx context.Context, l *Line) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO cart_items (id, buyer_id, product_id, quantity, created_at, updated_at)
		VALUES ($1,$2,$3,$4,NOW(),NOW())
	`, l.ID, l.BuyerID, l.ProductID, l.Quantity)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Line, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var l Line
	err := r.db.QueryRow(ctx, `
		SELECT id, buyer_id, product_id, quantity, created_at, updated_at
		FROM cart_items WHERE id=$1
	`, id).Scan(&l.ID, &l.BuyerID, &l.ProductID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, ErrNotFound
	}
	return &l, nil
}

func (r *PGRepo) GetByBuyerAndProduct(ctx context.Context, buyerID, productID string) (*Line, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var l Line
	err := r.db.QueryRow(ctx, `
		SELECT id, buyer_id, product_id, quantity, created_at, updated_at
		FROM cart_items WHERE buyer_id=$1 AND product_id=$2
	`, buyerID, productID).Scan(&l.ID, &l.BuyerID, &l.ProductID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *PGRepo) ListByBuyer(ctx context.Context, buyerID string) ([]Line, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT id, buyer_id, product_id, quantity, created_at, updated_at
		FROM cart_items WHERE buyer_id=$1
		ORDER BY created_at DESC
	`, buyerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.BuyerID, &l.ProductID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *PGRepo) UpdateQuantity(ctx context.Context, id string, qty int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE cart_items
		SET quantity = $2, updated_at = NOW()
		WHERE id = $1
	`, id, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete is scoped by buyer and idempotent: removing an absent line is fine.
func (r *PGRepo) Delete(ctx context.Context, buyerID, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE buyer_id=$1 AND id=$2`, buyerID, id)
	return err
}

func (r *PGRepo) DeleteMany(ctx context.Context, buyerID string, ids []string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE buyer_id=$1 AND id = ANY($2)`, buyerID, ids)
	return err
}

func (r *PGRepo) DeleteByBuyer(ctx context.Context, buyerID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE buyer_id=$1`, buyerID)
	return err
}
