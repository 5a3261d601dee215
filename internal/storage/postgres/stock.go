package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grosnack/grosnack/internal/domain/stock"
)

var _ stock.Remote = (*StockRepository)(nil)

// StockRepository implements stock.Remote backed by PostgreSQL. Reserve uses
// a conditional single-row update, so the check and the decrement are one
// atomic statement: this is the cross-session serialization point that keeps
// two checkouts from both taking the last unit.
type StockRepository struct {
	pool *pgxpool.Pool
}

// NewStockRepository returns a StockRepository that uses the given pool.
func NewStockRepository(pool *pgxpool.Pool) *StockRepository {
	return &StockRepository{pool: pool}
}

// Reserve decrements the tracked quantity if and only if enough is available.
// It returns false without an error when stock is insufficient (or the
// product is untracked).
func (r *StockRepository) Reserve(ctx context.Context, productID string, qty int) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE stock SET qty = qty - $2, updated_at = now()
		 WHERE product_id = $1 AND qty >= $2`,
		productID, qty)
	if err != nil {
		return false, errors.Wrapf(err, "reserve %d of %q", qty, productID)
	}
	return tag.RowsAffected() == 1, nil
}

// Release increments the tracked quantity, creating the row if needed.
func (r *StockRepository) Release(ctx context.Context, productID string, qty int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO stock (product_id, qty) VALUES ($1, $2)
		 ON CONFLICT (product_id)
		 DO UPDATE SET qty = stock.qty + EXCLUDED.qty, updated_at = now()`,
		productID, qty)
	if err != nil {
		return errors.Wrapf(err, "release %d of %q", qty, productID)
	}
	return nil
}

// Ensure creates the tracked row for a product if absent, leaving an existing
// quantity untouched.
func (r *StockRepository) Ensure(ctx context.Context, productID string, qty int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO stock (product_id, qty) VALUES ($1, $2)
		 ON CONFLICT (product_id) DO NOTHING`,
		productID, qty)
	if err != nil {
		return errors.Wrapf(err, "ensure stock row for %q", productID)
	}
	return nil
}
