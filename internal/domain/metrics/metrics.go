// Package metrics derives per-user business metrics from orders. Completion
// applies a cheap incremental delta; cancellation triggers a full rebuild
// from order history, because ranked top-products and the bounded activity
// list have no clean incremental inverse.
package metrics

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/grosnack/grosnack/internal/domain/order"
)

const (
	topProductsLimit  = 3
	recentActivityMax = 10
)

// TopProduct is an entry in the top-products ranking, ordered by cumulative
// revenue.
type TopProduct struct {
	Name     string
	Quantity int
	Revenue  decimal.Decimal
}

// Activity is one entry of the bounded recent-activity feed.
type Activity struct {
	OrderID     string
	Description string
	Total       decimal.Decimal
	At          time.Time
}

// UserMetrics is the read model exposed to the UI layer. All fields are
// derived; zero values mean the user has no recorded orders.
type UserMetrics struct {
	UserID            string
	TotalOrders       int
	TotalSpent        decimal.Decimal
	TotalSavings      decimal.Decimal
	AverageOrderValue decimal.Decimal
	MonthlyGoal       decimal.Decimal
	MonthlyProgress   decimal.Decimal
	FavoriteBrand     string
	TopProducts       []TopProduct
	RecentActivity    []Activity
}

// OrderHistory supplies the source of truth for rebuilds.
type OrderHistory interface {
	ListByUser(ctx context.Context, userID string) ([]order.Order, error)
}

type productAgg struct {
	quantity int
	revenue  decimal.Decimal
}

type userState struct {
	orders          int
	spent           decimal.Decimal
	savings         decimal.Decimal
	monthlyProgress decimal.Decimal
	products        map[string]*productAgg
	brands          map[string]int
	activity        []Activity
}

func newUserState() *userState {
	return &userState{
		spent:           decimal.Zero,
		savings:         decimal.Zero,
		monthlyProgress: decimal.Zero,
		products:        make(map[string]*productAgg),
		brands:          make(map[string]int),
	}
}

// Aggregator maintains the incremental per-user metrics view and can rebuild
// it from order history.
type Aggregator struct {
	mu      sync.Mutex
	users   map[string]*userState
	goal    decimal.Decimal
	history OrderHistory
	lg      *zap.Logger
	now     func() time.Time
}

// NewAggregator creates an Aggregator with the configured monthly spending
// goal. history supplies the orders replayed by Rebuild.
func NewAggregator(goal decimal.Decimal, history OrderHistory, lg *zap.Logger) *Aggregator {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Aggregator{
		users:   make(map[string]*userState),
		goal:    goal,
		history: history,
		lg:      lg,
		now:     time.Now,
	}
}

// Get returns the user's metrics snapshot. Unknown users get zero-valued
// metrics; reading never creates state.
func (a *Aggregator) Get(userID string) UserMetrics {
	a.mu.Lock()
	defer a.mu.Unlock()

	st, ok := a.users[userID]
	if !ok {
		return UserMetrics{
			UserID:            userID,
			TotalSpent:        decimal.Zero,
			TotalSavings:      decimal.Zero,
			AverageOrderValue: decimal.Zero,
			MonthlyGoal:       a.goal,
			MonthlyProgress:   decimal.Zero,
		}
	}
	return a.snapshot(userID, st)
}

// RecordOrder applies the incremental delta for a completed order: totals,
// monthly progress, top-products merge, favorite brand, and one activity
// entry prepended to the bounded feed.
func (a *Aggregator) RecordOrder(o *order.Order) {
	a.mu.Lock()
	defer a.mu.Unlock()

	st, ok := a.users[o.UserID]
	if !ok {
		st = newUserState()
		a.users[o.UserID] = st
	}
	a.applyLocked(st, o, true)
}

// Rebuild discards the user's incremental view and recomputes it by replaying
// the user's non-cancelled orders from history. Monthly progress only counts
// orders placed in the current calendar month.
func (a *Aggregator) Rebuild(ctx context.Context, userID string) error {
	orders, err := a.history.ListByUser(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "load order history")
	}

	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})

	st := newUserState()
	now := a.now()
	for i := range orders {
		o := &orders[i]
		if o.Status == order.StatusCancelled {
			continue
		}
		sameMonth := o.CreatedAt.Year() == now.Year() && o.CreatedAt.Month() == now.Month()
		a.applyLocked(st, o, sameMonth)
	}

	a.mu.Lock()
	a.users[userID] = st
	a.mu.Unlock()
	return nil
}

// Reset drops the user's metrics state. Debug/testing path only.
func (a *Aggregator) Reset(userID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.users, userID)
}

// applyLocked folds one order into the state. Safe to call on a state not yet
// published to a.users.
func (a *Aggregator) applyLocked(st *userState, o *order.Order, countMonthly bool) {
	st.orders++
	st.spent = st.spent.Add(o.Total)
	st.savings = st.savings.Add(o.Savings)
	if countMonthly {
		st.monthlyProgress = st.monthlyProgress.Add(o.Total)
	}

	for _, item := range o.Items {
		agg, ok := st.products[item.Name]
		if !ok {
			agg = &productAgg{revenue: decimal.Zero}
			st.products[item.Name] = agg
		}
		agg.quantity += item.Quantity
		agg.revenue = agg.revenue.Add(item.Subtotal)
		if item.Brand != "" {
			st.brands[item.Brand] += item.Quantity
		}
	}

	entry := Activity{
		OrderID:     o.ID,
		Description: fmt.Sprintf("Order with %d items placed", len(o.Items)),
		Total:       o.Total,
		At:          o.CreatedAt,
	}
	st.activity = append([]Activity{entry}, st.activity...)
	if len(st.activity) > recentActivityMax {
		st.activity = st.activity[:recentActivityMax]
	}
}

func (a *Aggregator) snapshot(userID string, st *userState) UserMetrics {
	m := UserMetrics{
		UserID:          userID,
		TotalOrders:     st.orders,
		TotalSpent:      st.spent,
		TotalSavings:    st.savings,
		MonthlyGoal:     a.goal,
		MonthlyProgress: st.monthlyProgress,
	}
	m.AverageOrderValue = decimal.Zero
	if st.orders > 0 {
		m.AverageOrderValue = st.spent.Div(decimal.NewFromInt(int64(st.orders))).Round(2)
	}

	top := make([]TopProduct, 0, len(st.products))
	for name, agg := range st.products {
		top = append(top, TopProduct{Name: name, Quantity: agg.quantity, Revenue: agg.revenue})
	}
	sort.Slice(top, func(i, j int) bool {
		if !top[i].Revenue.Equal(top[j].Revenue) {
			return top[i].Revenue.GreaterThan(top[j].Revenue)
		}
		return top[i].Name < top[j].Name
	})
	if len(top) > topProductsLimit {
		top = top[:topProductsLimit]
	}
	m.TopProducts = top

	bestQty := 0
	for brand, qty := range st.brands {
		if qty > bestQty || (qty == bestQty && brand < m.FavoriteBrand) {
			m.FavoriteBrand = brand
			bestQty = qty
		}
	}

	m.RecentActivity = make([]Activity, len(st.activity))
	copy(m.RecentActivity, st.activity)
	return m
}
