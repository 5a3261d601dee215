package local

import (
	"context"
	"sort"
	"sync"

	"github.com/grosnack/grosnack/internal/domain/product"
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository is the in-memory catalog used when no database is
// configured. It is seeded once at startup and serves reads from copies.
type ProductRepository struct {
	mu   sync.RWMutex
	byID map[string]product.Product
}

// NewProductRepository creates a catalog seeded with the given products.
func NewProductRepository(seed []product.Product) *ProductRepository {
	byID := make(map[string]product.Product, len(seed))
	for _, p := range seed {
		byID[p.ID] = p
	}
	return &ProductRepository{byID: byID}
}

// List returns all products sorted by name.
func (r *ProductRepository) List(_ context.Context) ([]product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]product.Product, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetByID returns a single product or product.ErrNotFound.
func (r *ProductRepository) GetByID(_ context.Context, id string) (*product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

// GetByIDs returns the products matching the given ids, skipping unknown ones.
func (r *ProductRepository) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// AddStock adjusts the catalog-declared stock for a product.
func (r *ProductRepository) AddStock(_ context.Context, id string, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[id]
	if !ok {
		return product.ErrNotFound
	}
	p.Stock += qty
	r.byID[id] = p
	return nil
}
