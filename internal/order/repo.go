package order

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository deliberately exposes single-statement operations only. The order
// build sequence and the payment confirm write compose them with explicit
// compensation instead of a multi-statement transaction.
type Repository interface {
	InsertHeader(ctx context.Context, o *Order) error
	InsertItems(ctx context.Context, items []Item) error
	// DeleteHeader exists only as checkout compensation for a failed item write.
	DeleteHeader(ctx context.Context, id string) error
	GetForBuyer(ctx context.Context, id, buyerID string) (*Order, error)
	ListByBuyer(ctx context.Context, buyerID string, status Status, limit, offset int) ([]Order, error)
	GetItems(ctx context.Context, orderID string) ([]Item, error)
	// UpdateStatus is guarded by the expected current status; zero rows
	// affected comes back as ErrStatusConflict.
	UpdateStatus(ctx context.Context, id, buyerID string, from, to Status) error
	// MarkPaid flips pending -> confirmed and writes all payment fields in one
	// statement, scoped by (id, buyer_id, status='pending').
	MarkPaid(ctx context.Context, id, buyerID, paymentKey, method string, info []byte) error
	// CancelWithPayment flips to cancelled and marks the payment cancelled,
	// guarded by the expected current status.
	CancelWithPayment(ctx context.Context, id, buyerID string, from Status, info []byte) error
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

const orderColumns = `
	id, buyer_id, total::text, status,
	recipient, phone, postal_code, address1, address2, note,
	COALESCE(payment_key,''), COALESCE(payment_method,''), COALESCE(payment_status,''),
	paid_at, payment_info, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var status string
	err := row.Scan(&o.ID, &o.BuyerID, &o.Total, &status,
		&o.Shipping.Recipient, &o.Shipping.Phone, &o.Shipping.PostalCode,
		&o.Shipping.Address1, &o.Shipping.Address2, &o.Note,
		&o.PaymentKey, &o.PaymentMethod, &o.PaymentStatus,
		&o.PaidAt, &o.PaymentInfo, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Status = Status(status)
	return &o, nil
}

func (r *PGRepo) InsertHeader(ctx context.Context, o *Order) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO orders (id, buyer_id, total, status, recipient, phone, postal_code, address1, address2, note, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW(),NOW())
	`, o.ID, o.BuyerID, o.Total, string(o.Status),
		o.Shipping.Recipient, o.Shipping.Phone, o.Shipping.PostalCode,
		o.Shipping.Address1, o.Shipping.Address2, o.Note)
	return err
}

func (r *PGRepo) InsertItems(ctx context.Context, items []Item) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	for _, it := range items {
		if _, err := r.db.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, product_name, quantity, unit_price, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,NOW())
		`, it.ID, it.OrderID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice); err != nil {
			return err
		}
	}
	return nil
}

func (r *PGRepo) DeleteHeader(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	return err
}

func (r *PGRepo) GetForBuyer(ctx context.Context, id, buyerID string) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	o, err := scanOrder(r.db.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders WHERE id=$1 AND buyer_id=$2
	`, id, buyerID))
	if err != nil {
		// not-owned is indistinguishable from not-found by construction
		return nil, ErrNotFound
	}
	return o, nil
}

func (r *PGRepo) ListByBuyer(ctx context.Context, buyerID string, status Status, limit, offset int) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE buyer_id=$1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC LIMIT $3 OFFSET $4
	`, buyerID, string(status), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *PGRepo) GetItems(ctx context.Context, orderID string) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, unit_price::text, created_at
		FROM order_items
		WHERE order_id = $1
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PGRepo) UpdateStatus(ctx context.Context, id, buyerID string, from, to Status) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET status = $4, updated_at = NOW()
		WHERE id = $1 AND buyer_id = $2 AND status = $3
	`, id, buyerID, string(from), string(to))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *PGRepo) MarkPaid(ctx context.Context, id, buyerID, paymentKey, method string, info []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET status = 'confirmed',
		    payment_key = $3,
		    payment_method = $4,
		    payment_status = 'success',
		    paid_at = NOW(),
		    payment_info = $5,
		    updated_at = NOW()
		WHERE id = $1 AND buyer_id = $2 AND status = 'pending'
	`, id, buyerID, paymentKey, method, info)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *PGRepo) CancelWithPayment(ctx context.Context, id, buyerID string, from Status, info []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET status = 'cancelled',
		    payment_status = 'cancelled',
		    payment_info = COALESCE($4, payment_info),
		    updated_at = NOW()
		WHERE id = $1 AND buyer_id = $2 AND status = $3
	`, id, buyerID, string(from), info)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	return nil
}
