package payment

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateKey means this payment key already produced a local effect.
var ErrDuplicateKey = errors.New("payment key already recorded")

// Store is the reconciler's own ledger: one row per gateway authorization,
// keyed by payment key. Its uniqueness is what prevents a second local effect
// from a single authorization.
type Store interface {
	InsertPayment(ctx context.Context, paymentKey, orderID, amount string) error
}

type PGStore struct{ db *pgxpool.Pool }

func NewPGStore(db *pgxpool.Pool) *PGStore { return &PGStore{db: db} }

func (s *PGStore) InsertPayment(ctx context.Context, paymentKey, orderID, amount string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.db.Exec(ctx, `
		INSERT INTO payments (payment_key, order_id, amount, created_at)
		VALUES ($1,$2,$3,NOW())
	`, paymentKey, orderID, amount)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}
