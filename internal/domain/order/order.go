// Package order implements immutable order records, the status lifecycle, and
// the dual-backend order store (remote-first with silent local fallback).
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested order does not exist in any backend.
var ErrNotFound = errors.New("order not found")

// Status is the order lifecycle state. The happy path moves strictly forward;
// cancelled is reachable from any non-terminal state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

var statusRank = map[Status]int{
	StatusPending:   0,
	StatusConfirmed: 1,
	StatusPreparing: 2,
	StatusShipped:   3,
	StatusDelivered: 4,
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	if s == StatusCancelled {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// Terminal reports whether no further transitions are expected from s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether moving from one status to another follows the
// expected lifecycle: forward along the happy path, or to cancelled from any
// non-terminal state. The store itself does not enforce this; callers use it
// to decide what to offer.
func CanTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	fromRank, ok1 := statusRank[from]
	toRank, ok2 := statusRank[to]
	return ok1 && ok2 && toRank > fromRank
}

// Item is one line of an order, snapshotted from the cart at creation time and
// immutable afterwards.
type Item struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Brand     string          `json:"brand"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Order is an immutable record of a completed checkout. Only Status changes
// after creation.
type Order struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	Status    Status
	Items     []Item

	Total             decimal.Decimal
	WholesaleSubtotal decimal.Decimal
	Savings           decimal.Decimal

	DeliveryDate     string
	DeliveryTimeSlot string
	DeliveryAddress  string
	DeliveryNotes    string

	PaymentMethod string
	Wholesale     bool
}

// Repository defines persistence operations for orders. Implementations back
// either the remote server or the per-user local fallback; Create acts as an
// upsert so the local backend can cache remote orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	UpdateStatus(ctx context.Context, id string, status Status) error
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	GetByID(ctx context.Context, id string) (*Order, error)
	DeleteByUser(ctx context.Context, userID string) error
}
