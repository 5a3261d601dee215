// Package local provides the client-local fallback backend: per-user keyed
// in-memory stores mirroring the shapes the remote backend persists. It serves
// guest sessions and any operation whose remote call failed.
package local

import (
	"context"
	"sort"
	"sync"

	"github.com/grosnack/grosnack/internal/domain/order"
)

// OrderRepository implements order.Repository in memory, keyed by user.
// Create acts as an upsert so it can double as the cache for orders whose
// remote status write failed.
type OrderRepository struct {
	mu   sync.RWMutex
	byID map[string]*order.Order
}

var _ order.Repository = (*OrderRepository)(nil)

// NewOrderRepository creates an empty OrderRepository.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{byID: make(map[string]*order.Order)}
}

// Create stores the order, replacing any existing record with the same id.
func (r *OrderRepository) Create(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[o.ID] = cloneOrder(o)
	return nil
}

// UpdateStatus sets the status of a stored order.
func (r *OrderRepository) UpdateStatus(_ context.Context, id string, status order.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.byID[id]
	if !ok {
		return order.ErrNotFound
	}
	o.Status = status
	return nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []order.Order
	for _, o := range r.byID {
		if o.UserID == userID {
			out = append(out, *cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// GetByID returns a single order or order.ErrNotFound.
func (r *OrderRepository) GetByID(_ context.Context, id string) (*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return cloneOrder(o), nil
}

// DeleteByUser removes every order owned by the user.
func (r *OrderRepository) DeleteByUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, o := range r.byID {
		if o.UserID == userID {
			delete(r.byID, id)
		}
	}
	return nil
}

func cloneOrder(o *order.Order) *order.Order {
	clone := *o
	clone.Items = make([]order.Item, len(o.Items))
	copy(clone.Items, o.Items)
	return &clone
}
