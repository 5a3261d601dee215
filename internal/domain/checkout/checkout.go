// Package checkout coordinates the checkout sequence: cart validation, stock
// reservation, order creation, metrics update, confirmation, and cart clear.
// It is the one place where all fulfillment invariants must hold together.
package checkout

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/grosnack/grosnack/internal/domain/cart"
	"github.com/grosnack/grosnack/internal/domain/metrics"
	"github.com/grosnack/grosnack/internal/domain/order"
	"github.com/grosnack/grosnack/internal/domain/stock"
	"github.com/grosnack/grosnack/internal/notify"
)

// ValidationError carries every cart precondition the checkout attempt
// violated. Nothing has been mutated when it is returned.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "cart validation failed: " + strings.Join(e.Reasons, "; ")
}

// Orchestrator runs the checkout sequence against the fulfillment core.
type Orchestrator struct {
	ledger  *stock.Ledger
	orders  *order.Store
	metrics *metrics.Aggregator
	sender  notify.Sender
	lg      *zap.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(
	ledger *stock.Ledger,
	orders *order.Store,
	m *metrics.Aggregator,
	sender notify.Sender,
	lg *zap.Logger,
) *Orchestrator {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Orchestrator{
		ledger:  ledger,
		orders:  orders,
		metrics: m,
		sender:  sender,
		lg:      lg,
	}
}

// Checkout validates the cart, reserves stock line by line, creates the
// order, records metrics, fires the confirmation, and clears the cart.
//
// Failure handling is deliberately asymmetric. A failed reservation aborts
// cleanly before any order exists, but units reserved earlier in the same
// attempt are not returned (multi-line reservation is not atomic). A failed
// order write after reservation is fatal and reported as-is: the decrement is
// not auto-released, leaving a stock-gone-order-missing state that must stay
// visible to the operator rather than being silently healed.
func (o *Orchestrator) Checkout(ctx context.Context, c *cart.Cart, userID, paymentMethod string) (string, error) {
	if res := c.Validate(); !res.OK {
		return "", &ValidationError{Reasons: res.Reasons}
	}

	lines := c.Lines()
	for _, line := range lines {
		if !o.ledger.Reserve(ctx, line.Product.ID, line.Quantity) {
			return "", &stock.InsufficientStockError{
				ProductID: line.Product.ID,
				Requested: line.Quantity,
				Available: o.ledger.Available(line.Product.ID),
			}
		}
	}

	draft := o.buildOrder(c, lines, userID, paymentMethod)
	id, err := o.orders.Create(ctx, draft)
	if err != nil {
		return "", errors.Wrap(err, "order create failed after stock reservation; reserved stock was not released")
	}

	o.metrics.RecordOrder(draft)

	go func() {
		if !o.sender.Send(context.WithoutCancel(ctx), draft) {
			o.lg.Warn("order confirmation delivery failed", zap.String("order_id", id))
		}
	}()

	c.Clear()
	return id, nil
}

func (o *Orchestrator) buildOrder(c *cart.Cart, lines []cart.Line, userID, paymentMethod string) *order.Order {
	items := make([]order.Item, len(lines))
	for i, line := range lines {
		items[i] = order.Item{
			ProductID: line.Product.ID,
			Name:      line.Product.Name,
			Brand:     line.Product.Brand,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Subtotal:  line.Subtotal,
		}
	}

	summary := c.Summary()
	draft := &order.Order{
		UserID:        userID,
		Items:         items,
		Total:         summary.FinalTotal,
		Savings:       summary.Savings,
		PaymentMethod: paymentMethod,
		Wholesale:     c.Wholesale(),
	}
	draft.WholesaleSubtotal = decimal.Zero
	if c.Wholesale() {
		draft.WholesaleSubtotal = summary.Total
	}
	if s := c.Schedule(); s != nil {
		draft.DeliveryDate = s.Date
		draft.DeliveryTimeSlot = s.TimeSlot
		draft.DeliveryAddress = s.Address
		draft.DeliveryNotes = s.Notes
	}
	return draft
}
