package local

import (
	"sync"

	"github.com/grosnack/grosnack/internal/domain/cart"
)

// CartStore hands out the per-user cart aggregate, creating it lazily. Carts
// are strictly per-user and never shared between sessions.
type CartStore struct {
	mu      sync.Mutex
	carts   map[string]*cart.Cart
	newCart func() *cart.Cart
}

// NewCartStore creates a CartStore using newCart as the factory for fresh
// carts.
func NewCartStore(newCart func() *cart.Cart) *CartStore {
	return &CartStore{
		carts:   make(map[string]*cart.Cart),
		newCart: newCart,
	}
}

// Get returns the user's cart, creating an empty one on first access.
func (s *CartStore) Get(userID string) *cart.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[userID]
	if !ok {
		c = s.newCart()
		s.carts[userID] = c
	}
	return c
}

// Drop removes the user's cart entirely. Debug/reset path.
func (s *CartStore) Drop(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
}
