package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase. The catalog is
// owned by an external service; this package only consumes it.
type Product struct {
	ID             string
	Name           string
	Brand          string
	Category       string
	Price          decimal.Decimal
	WholesalePrice decimal.Decimal
	MinOrderQty    int
	MaxOrderQty    int
	Stock          int
	Available      bool
}

// UnitPrice returns the price applicable in the given pricing mode.
func (p Product) UnitPrice(wholesale bool) decimal.Decimal {
	if wholesale {
		return p.WholesalePrice
	}
	return p.Price
}

// Repository defines read operations for the product catalog plus the single
// write used to propagate stock releases back to it.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)

	// AddStock increments the catalog's stock counter for a product.
	// Callers treat it as best-effort: a failure must not roll back the
	// caller's own state.
	AddStock(ctx context.Context, id string, qty int) error
}
