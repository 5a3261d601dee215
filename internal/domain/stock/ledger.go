// Package stock implements the stock ledger: tracked available quantities per
// product with reserve/release semantics. Stock is validated when the cart
// changes but only decremented at checkout, so Reserve is the single point
// where two sessions racing for the last unit get serialized.
package stock

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/grosnack/grosnack/internal/domain/product"
)

// InsufficientStockError indicates a reservation was rejected because the
// tracked quantity could not cover the requested amount.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Remote is the shared stock backend used when sessions on different devices
// share one server. Reserve must be atomic at the storage layer (conditional
// update), since it is the only cross-session consistency mechanism.
type Remote interface {
	Reserve(ctx context.Context, productID string, qty int) (bool, error)
	Release(ctx context.Context, productID string, qty int) error

	// Ensure creates the tracked row for a product if it does not exist yet,
	// leaving an existing quantity untouched.
	Ensure(ctx context.Context, productID string, qty int) error
}

// Ledger tracks available quantities per product. The in-memory map is the
// session-local view; when a Remote backend is configured it has the final
// word on reservations and receives best-effort release propagation.
type Ledger struct {
	mu  sync.Mutex
	qty map[string]int

	remote  Remote             // nil when running local-only
	catalog product.Repository // nil when no catalog write-back is wanted
	lg      *zap.Logger
}

// NewLedger creates a Ledger. Both remote and catalog may be nil for a
// local-only session.
func NewLedger(remote Remote, catalog product.Repository, lg *zap.Logger) *Ledger {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Ledger{
		qty:     make(map[string]int),
		remote:  remote,
		catalog: catalog,
		lg:      lg,
	}
}

// Available returns the tracked quantity for a product, 0 when unknown.
func (l *Ledger) Available(productID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.qty[productID]
}

// IsAvailable reports whether at least qty units are tracked for the product.
func (l *Ledger) IsAvailable(productID string, qty int) bool {
	return l.Available(productID) >= qty
}

// Reserve atomically checks sufficiency and decrements the tracked quantity.
// It returns false and leaves all state unchanged when stock is insufficient.
// With a remote backend configured, the remote conditional decrement decides
// the winner between concurrent sessions; a remote *error* (as opposed to a
// rejection) falls back to the local decision.
func (l *Ledger) Reserve(ctx context.Context, productID string, qty int) bool {
	if qty <= 0 {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cur := l.qty[productID]
	if cur < qty {
		return false
	}

	if l.remote != nil {
		ok, err := l.remote.Reserve(ctx, productID, qty)
		if err != nil {
			l.lg.Warn("remote stock reserve failed, using local state",
				zap.String("product_id", productID),
				zap.Int("qty", qty),
				zap.Error(err))
		} else if !ok {
			// Another session won the race for these units.
			return false
		}
	}

	l.qty[productID] = cur - qty
	return true
}

// Release unconditionally returns qty units to the ledger, used when an order
// is cancelled. The increment is propagated to the remote backend and the
// product catalog on a best-effort basis; local state is authoritative and is
// not rolled back when propagation fails.
func (l *Ledger) Release(ctx context.Context, productID string, qty int) {
	if qty <= 0 {
		return
	}

	l.mu.Lock()
	l.qty[productID] += qty
	l.mu.Unlock()

	if l.remote != nil {
		if err := l.remote.Release(ctx, productID, qty); err != nil {
			l.lg.Warn("remote stock release failed",
				zap.String("product_id", productID),
				zap.Int("qty", qty),
				zap.Error(err))
		}
	}
	if l.catalog != nil {
		if err := l.catalog.AddStock(ctx, productID, qty); err != nil {
			l.lg.Warn("catalog stock write-back failed",
				zap.String("product_id", productID),
				zap.Int("qty", qty),
				zap.Error(err))
		}
	}
}

// Sync reconciles the ledger's key set with the current catalog: products the
// ledger has never seen are added at their catalog-declared stock. Products
// with a tracked quantity are left alone, so a catalog refresh never silently
// restores stock that has already been consumed.
func (l *Ledger) Sync(ctx context.Context, products []product.Product) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, p := range products {
		if _, tracked := l.qty[p.ID]; tracked {
			continue
		}
		l.qty[p.ID] = p.Stock
		if l.remote != nil {
			if err := l.remote.Ensure(ctx, p.ID, p.Stock); err != nil {
				l.lg.Warn("remote stock ensure failed",
					zap.String("product_id", p.ID),
					zap.Error(err))
			}
		}
	}
}
