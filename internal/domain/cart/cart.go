// Package cart implements the per-user shopping cart aggregate. A cart never
// reserves stock: mutations run an optimistic availability check against the
// ledger, and the authoritative decrement happens only at checkout.
package cart

import (
	"fmt"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/grosnack/grosnack/internal/domain/product"
	"github.com/grosnack/grosnack/internal/domain/stock"
)

// ErrLineNotFound is returned when updating a product that is not in the cart.
var ErrLineNotFound = errors.New("cart line not found")

// DeliverySchedule holds the delivery slot attached to a cart. It is required
// before checkout when wholesale mode is active.
type DeliverySchedule struct {
	ID       string
	Date     string
	TimeSlot string
	Address  string
	Notes    string
}

// Line is a single cart position. UnitPrice is a snapshot of the retail or
// wholesale price taken when the line was added or the mode last toggled.
type Line struct {
	Product   product.Product
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// Summary holds the derived cart totals exposed to the UI layer.
type Summary struct {
	ItemCount   int
	Total       decimal.Decimal
	Savings     decimal.Decimal
	DeliveryFee decimal.Decimal
	FinalTotal  decimal.Decimal
}

// ValidationResult is the outcome of Validate with human-readable reasons.
type ValidationResult struct {
	OK      bool
	Reasons []string
}

// Cart holds line items, the wholesale-mode flag, and an optional delivery
// schedule for one user session. It is never shared between sessions, but
// requests within one session run on concurrent goroutines, so the mutable
// state is mutex-guarded.
type Cart struct {
	ledger      *stock.Ledger
	deliveryFee decimal.Decimal

	mu        sync.Mutex
	wholesale bool
	lines     []Line
	schedule  *DeliverySchedule
}

// New creates an empty retail-mode cart validating against the given ledger.
// deliveryFee is the flat fee applied once a delivery schedule is attached.
func New(ledger *stock.Ledger, deliveryFee decimal.Decimal) *Cart {
	return &Cart{
		ledger:      ledger,
		deliveryFee: deliveryFee,
	}
}

// Wholesale reports whether wholesale pricing is active.
func (c *Cart) Wholesale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wholesale
}

// Lines returns a copy of the current cart lines.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Schedule returns the attached delivery schedule, or nil.
func (c *Cart) Schedule() *DeliverySchedule {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.schedule == nil {
		return nil
	}
	s := *c.schedule
	return &s
}

// SetSchedule attaches a delivery schedule to the cart.
func (c *Cart) SetSchedule(s DeliverySchedule) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schedule = &s
}

// AddLine puts qty units of the product into the cart, merging into an
// existing line. In wholesale mode the quantity is raised to the product's
// minimum order quantity. The combined quantity for the product must pass the
// ledger's availability check, otherwise the cart is left unchanged.
func (c *Cart) AddLine(p product.Product, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if qty < 1 {
		qty = 1
	}
	if c.wholesale && qty < p.MinOrderQty {
		qty = p.MinOrderQty
	}

	idx := c.lineIndex(p.ID)
	total := qty
	if idx >= 0 {
		total += c.lines[idx].Quantity
	}
	if !c.ledger.IsAvailable(p.ID, total) {
		return &stock.InsufficientStockError{
			ProductID: p.ID,
			Requested: total,
			Available: c.ledger.Available(p.ID),
		}
	}

	if idx >= 0 {
		c.lines[idx].Quantity = total
		c.reprice(&c.lines[idx])
		return nil
	}

	line := Line{Product: p, Quantity: qty}
	c.reprice(&line)
	c.lines = append(c.lines, line)
	return nil
}

// UpdateQuantity sets the quantity of an existing line. A quantity of zero or
// less removes the line. Otherwise the wholesale minimum-order floor and the
// availability check are re-applied; on insufficient stock the line keeps its
// previous quantity.
func (c *Cart) UpdateQuantity(productID string, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.lineIndex(productID)
	if idx < 0 {
		return ErrLineNotFound
	}
	if qty <= 0 {
		c.removeLine(idx)
		return nil
	}

	p := c.lines[idx].Product
	if c.wholesale && qty < p.MinOrderQty {
		qty = p.MinOrderQty
	}
	if !c.ledger.IsAvailable(productID, qty) {
		return &stock.InsufficientStockError{
			ProductID: productID,
			Requested: qty,
			Available: c.ledger.Available(productID),
		}
	}

	c.lines[idx].Quantity = qty
	c.reprice(&c.lines[idx])
	return nil
}

// RemoveLine drops the product from the cart. There is no stock side effect
// because nothing was reserved.
func (c *Cart) RemoveLine(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.lineIndex(productID)
	if idx < 0 {
		return
	}
	c.removeLine(idx)
}

// ToggleWholesaleMode flips the pricing mode and reprices every line from the
// product's retail or wholesale price. Quantities are preserved as-is;
// minimum-order violations introduced by the toggle surface through Validate
// rather than being fixed up retroactively.
func (c *Cart) ToggleWholesaleMode() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wholesale = !c.wholesale
	for i := range c.lines {
		c.reprice(&c.lines[i])
	}
}

// Clear empties the cart and discards any attached delivery schedule.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
	c.schedule = nil
}

// Summary computes the derived totals: item count, price total, wholesale
// savings, delivery fee (flat, only with a schedule attached) and final total.
func (c *Cart) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	var s Summary
	s.Total = decimal.Zero
	s.Savings = decimal.Zero
	for _, line := range c.lines {
		s.ItemCount += line.Quantity
		s.Total = s.Total.Add(line.Subtotal)
		if c.wholesale {
			delta := line.Product.Price.Sub(line.Product.WholesalePrice)
			s.Savings = s.Savings.Add(delta.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}
	}
	s.DeliveryFee = decimal.Zero
	if c.schedule != nil {
		s.DeliveryFee = c.deliveryFee
	}
	s.FinalTotal = s.Total.Add(s.DeliveryFee)
	return s
}

// Validate checks the cart against all checkout preconditions and returns
// every violated rule as a human-readable reason.
func (c *Cart) Validate() ValidationResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	var reasons []string
	if len(c.lines) == 0 {
		reasons = append(reasons, "cart is empty")
	}
	for _, line := range c.lines {
		if c.wholesale && line.Quantity < line.Product.MinOrderQty {
			reasons = append(reasons, fmt.Sprintf(
				"product %s is below its minimum order quantity of %d",
				line.Product.Name, line.Product.MinOrderQty))
		}
		if !line.Product.Available {
			reasons = append(reasons, fmt.Sprintf("product %s is unavailable", line.Product.Name))
		}
	}
	if c.wholesale && c.schedule == nil {
		reasons = append(reasons, "wholesale orders require a delivery schedule")
	}
	return ValidationResult{OK: len(reasons) == 0, Reasons: reasons}
}

// lineIndex, removeLine and reprice expect c.mu to be held.

func (c *Cart) lineIndex(productID string) int {
	for i := range c.lines {
		if c.lines[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) removeLine(idx int) {
	c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
}

func (c *Cart) reprice(line *Line) {
	line.UnitPrice = line.Product.UnitPrice(c.wholesale)
	line.Subtotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
}
